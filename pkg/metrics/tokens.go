package metrics

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const defaultEncoding = "cl100k_base"

// TokenCounter estimates prompt tokens for providers that do not report usage.
// The BPE table is loaded lazily; if it cannot be loaded the counter falls back
// to a four-characters-per-token approximation.
type TokenCounter struct {
	encoding string
	once     sync.Once
	enc      *tiktoken.Tiktoken
}

// NewTokenCounter builds a counter for the given tiktoken encoding name.
func NewTokenCounter(encoding string) *TokenCounter {
	if encoding == "" {
		encoding = defaultEncoding
	}
	return &TokenCounter{encoding: encoding}
}

// Count returns the token count of text.
func (c *TokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c == nil {
		return approximateTokens(text)
	}
	c.once.Do(func() {
		enc, err := tiktoken.GetEncoding(c.encoding)
		if err == nil {
			c.enc = enc
		}
	})
	if c.enc == nil {
		return approximateTokens(text)
	}
	return len(c.enc.Encode(text, nil, nil))
}

func approximateTokens(text string) int {
	n := (len(text) + 3) / 4
	if n == 0 {
		return 1
	}
	return n
}
