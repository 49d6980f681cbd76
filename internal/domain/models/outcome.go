package models

import "fmt"

// ErrorKind classifies a failed fetch.
type ErrorKind string

const (
	KindNotFound       ErrorKind = "not_found"
	KindRateLimited    ErrorKind = "rate_limited"
	KindTimeout        ErrorKind = "timeout"
	KindNetworkFailure ErrorKind = "network_failure"
	KindMalformed      ErrorKind = "malformed"
	KindEmpty          ErrorKind = "empty"
)

// Retryable reports whether the fetcher retries this kind internally.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindRateLimited, KindTimeout, KindNetworkFailure:
		return true
	default:
		return false
	}
}

// Sentinels for errors.Is matching by kind.
var (
	ErrNotFound       = &FetchError{Kind: KindNotFound}
	ErrRateLimited    = &FetchError{Kind: KindRateLimited}
	ErrTimeout        = &FetchError{Kind: KindTimeout}
	ErrNetworkFailure = &FetchError{Kind: KindNetworkFailure}
	ErrMalformed      = &FetchError{Kind: KindMalformed}
	ErrEmpty          = &FetchError{Kind: KindEmpty}
)

// FetchError is a classified fetch failure.
type FetchError struct {
	Kind   ErrorKind
	Detail string
}

func (e *FetchError) Error() string {
	if e.Detail == "" {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
}

// Is matches any FetchError of the same kind.
func (e *FetchError) Is(target error) bool {
	t, ok := target.(*FetchError)
	return ok && t.Kind == e.Kind
}

// NewFetchError builds a FetchError with a formatted detail.
func NewFetchError(kind ErrorKind, format string, a ...interface{}) *FetchError {
	return &FetchError{Kind: kind, Detail: fmt.Sprintf(format, a...)}
}

// FetchOutcome holds exactly one of a series or an error.
type FetchOutcome struct {
	Series Series
	Err    *FetchError
}

// Success wraps a non-empty series.
func Success(s Series) FetchOutcome {
	if s.IsEmpty() {
		return Failure(KindEmpty, "empty series")
	}
	return FetchOutcome{Series: s}
}

func Failure(kind ErrorKind, detail string) FetchOutcome {
	return FetchOutcome{Err: &FetchError{Kind: kind, Detail: detail}}
}

func FailureFrom(err *FetchError) FetchOutcome {
	return FetchOutcome{Err: err}
}

func (o FetchOutcome) OK() bool { return o.Err == nil }

// Result unpacks the outcome into Go's (value, error) convention.
func (o FetchOutcome) Result() (Series, error) {
	if o.Err != nil {
		return Series{}, o.Err
	}
	return o.Series, nil
}

// Label is the metrics label for the outcome.
func (o FetchOutcome) Label() string {
	if o.Err != nil {
		return string(o.Err.Kind)
	}
	return "ok"
}
