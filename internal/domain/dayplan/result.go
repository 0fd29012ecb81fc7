package dayplan

import (
	"fmt"
	"time"
)

// ErrorKind classifies a terminal pipeline failure.
type ErrorKind string

const (
	KindContextNotFound      ErrorKind = "context_not_found"
	KindContextUnavailable   ErrorKind = "context_unavailable"
	KindLLMNotConfigured     ErrorKind = "llm_not_configured"
	KindQuotaExceeded        ErrorKind = "quota_exceeded"
	KindAuthenticationFailed ErrorKind = "authentication_failed"
	KindProviderError        ErrorKind = "provider_error"
	KindPersistenceFailure   ErrorKind = "persistence_failure"
)

// QuotaRetryAfter is the retry hint attached to QuotaExceeded failures.
const QuotaRetryAfter = 300 * time.Second

// Transient reports whether the caller may retry the same request later.
func (k ErrorKind) Transient() bool {
	return k == KindQuotaExceeded || k == KindProviderError || k == KindContextUnavailable
}

// Failure is the terminal error of a run.
type Failure struct {
	Kind       ErrorKind
	Detail     string
	RetryAfter time.Duration
}

func (f Failure) Error() string {
	if f.Detail == "" {
		return string(f.Kind)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Detail)
}

// Result is the outcome of one pipeline run: exactly one of Plan and Failure is set.
type Result struct {
	Plan    *PersistedPlan
	Failure *Failure
}

// Success wraps a persisted plan.
func Success(plan PersistedPlan) Result {
	return Result{Plan: &plan}
}

// Failed builds a terminal failure result.
func Failed(kind ErrorKind, detail string) Result {
	f := &Failure{Kind: kind, Detail: detail}
	if kind == KindQuotaExceeded {
		f.RetryAfter = QuotaRetryAfter
	}
	return Result{Failure: f}
}

// OK reports whether the run produced a persisted plan.
func (r Result) OK() bool {
	return r.Failure == nil && r.Plan != nil
}

// metricLabel is the result label used for generation metrics.
func (r Result) metricLabel() string {
	switch {
	case r.Failure != nil:
		return string(r.Failure.Kind)
	case r.Plan != nil && r.Plan.Plan.IsDegraded():
		return "degraded"
	default:
		return "success"
	}
}
