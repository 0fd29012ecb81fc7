// Package affiliate appends partner tracking parameters to booking links.
package affiliate

import (
	"net/url"
	"strings"
)

// IDSource resolves a partner id. It is consulted on every rewrite so ids can
// change while the process runs. An empty result means "not configured".
type IDSource interface {
	PartnerID(partner string) string
}

// Rewriter adds tracking parameters to URLs on recognized booking domains.
type Rewriter struct {
	rules []Rule
	ids   IDSource
}

// NewRewriter builds a rewriter over the default rule table.
func NewRewriter(ids IDSource) *Rewriter {
	return &Rewriter{rules: DefaultRules(), ids: ids}
}

// RewriteURL returns raw with any missing tracking parameters appended.
// It never fails: unparseable, unrecognized or unconfigured URLs come back
// unchanged, and existing query keys are never overwritten.
func (r *Rewriter) RewriteURL(raw string) (out string) {
	defer func() {
		if recover() != nil {
			out = raw
		}
	}()

	rule, ok := r.match(raw)
	if !ok {
		return raw
	}
	params := r.activeParams(rule)
	if len(params) == 0 {
		return raw
	}

	base, fragment, hasFragment := strings.Cut(raw, "#")
	path, query, _ := strings.Cut(base, "?")
	existing := queryKeys(query)

	var added []string
	for _, p := range params {
		if _, present := existing[p.name]; present {
			continue
		}
		added = append(added, url.QueryEscape(p.name)+"="+url.QueryEscape(p.value))
	}
	if len(added) == 0 {
		return raw
	}

	var b strings.Builder
	b.WriteString(path)
	b.WriteByte('?')
	if query != "" {
		b.WriteString(query)
		if !strings.HasSuffix(query, "&") {
			b.WriteByte('&')
		}
	}
	b.WriteString(strings.Join(added, "&"))
	if hasFragment {
		b.WriteByte('#')
		b.WriteString(fragment)
	}
	return b.String()
}

// queryKeys collects the keys already present in query. It accepts both "&"
// and ";" separators and keeps keys whose escaping is malformed as written,
// so such URLs are still rewritten without touching their existing pairs.
func queryKeys(query string) map[string]struct{} {
	keys := make(map[string]struct{})
	for _, pair := range strings.FieldsFunc(query, func(r rune) bool { return r == '&' || r == ';' }) {
		key, _, _ := strings.Cut(pair, "=")
		if unescaped, err := url.QueryUnescape(key); err == nil {
			key = unescaped
		}
		keys[key] = struct{}{}
	}
	return keys
}

// Recognized reports whether raw points at one of the booking domains.
func (r *Rewriter) Recognized(raw string) bool {
	_, ok := r.match(raw)
	return ok
}

func (r *Rewriter) match(raw string) (Rule, bool) {
	host := hostOf(raw)
	if host == "" {
		return Rule{}, false
	}
	for _, rule := range r.rules {
		if matchesDomain(host, rule.Domain) {
			return rule, true
		}
	}
	return Rule{}, false
}

type resolvedParam struct {
	name  string
	value string
}

func (r *Rewriter) activeParams(rule Rule) []resolvedParam {
	out := make([]resolvedParam, 0, len(rule.Params))
	for _, p := range rule.Params {
		value := p.Static
		if p.FromPartnerID {
			value = ""
			if r.ids != nil {
				value = r.ids.PartnerID(rule.Partner)
			}
		}
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		out = append(out, resolvedParam{name: p.Name, value: value})
	}
	return out
}

// hostOf returns the lower-cased host with a leading "www." removed, or "".
func hostOf(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// matchesDomain applies the dot-delimited suffix rule: x.viator.com matches
// viator.com, notviator.com and viator.com.evil.com do not.
func matchesDomain(host, domain string) bool {
	return host == domain || strings.HasSuffix(host, "."+domain)
}
