package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"

	openai "github.com/sashabaranov/go-openai"
)

// FailureKind classifies why no diagnosis came back.  Kinds are for logs and
// metrics; the user is told the same thing in every case.
type FailureKind string

const (
	FailureAuthentication FailureKind = "authentication"
	FailureRateLimit      FailureKind = "rate_limit"
	FailureConnection     FailureKind = "connection"
	FailureAPI            FailureKind = "api"
	FailureMalformed      FailureKind = "malformed_response"
	FailureEmpty          FailureKind = "empty_response"
	FailureUnknown        FailureKind = "unknown"
)

// Failure is the only error type a Gateway returns.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode > 0 {
		return fmt.Sprintf("diagnosis %s failure (status %d): %v", f.Kind, f.StatusCode, f.Err)
	}
	return fmt.Sprintf("diagnosis %s failure: %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure unwraps err into a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	ok := errors.As(err, &f)
	return f, ok
}

// classify maps a transport error to a Failure.
func classify(err error) *Failure {
	if f, ok := AsFailure(err); ok {
		return f
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return byStatus(apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return byStatus(reqErr.HTTPStatusCode, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &Failure{Kind: FailureConnection, Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return &Failure{Kind: FailureConnection, Err: err}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return &Failure{Kind: FailureConnection, Err: err}
	}
	return &Failure{Kind: FailureUnknown, Err: err}
}

func byStatus(status int, err error) *Failure {
	kind := FailureAPI
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		kind = FailureAuthentication
	case http.StatusTooManyRequests:
		kind = FailureRateLimit
	case 0:
		kind = FailureConnection
	}
	return &Failure{Kind: kind, StatusCode: status, Err: err}
}
