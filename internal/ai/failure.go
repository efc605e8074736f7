package ai

import (
	"errors"
	"fmt"
	"net/http"
)

type FailureKind int

const (
	FailureConnectivity FailureKind = iota
	FailureUnauthorized
	FailureRateLimited
	FailureServer
)

func (k FailureKind) String() string {
	switch k {
	case FailureUnauthorized:
		return "unauthorized"
	case FailureRateLimited:
		return "rate_limited"
	case FailureServer:
		return "server_error"
	default:
		return "connectivity"
	}
}

// Failure is a generation call that did not produce text. Callers are expected
// to show Message() to the user instead of aborting the exchange.
type Failure struct {
	Kind       FailureKind
	StatusCode int
	Err        error
}

func (f *Failure) Error() string {
	if f.Err == nil {
		return fmt.Sprintf("generation failed: %s", f.Kind)
	}
	return fmt.Sprintf("generation failed (%s): %v", f.Kind, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

func (f *Failure) Message() string {
	switch f.Kind {
	case FailureUnauthorized:
		return "The model API key is invalid or has expired, please check the configuration."
	case FailureRateLimited:
		return "The model service is receiving too many requests, please try again later."
	case FailureServer:
		return "The model service hit an internal server error, please try again later."
	default:
		return "Sorry, the AI service cannot be reached right now, please check the network or try again later."
	}
}

// FailureMessage returns the user-facing text for err when it is a *Failure.
func FailureMessage(err error) (string, bool) {
	var failure *Failure
	if errors.As(err, &failure) {
		return failure.Message(), true
	}
	return "", false
}

func classifyStatus(code int) FailureKind {
	switch {
	case code == http.StatusUnauthorized:
		return FailureUnauthorized
	case code == http.StatusTooManyRequests:
		return FailureRateLimited
	case code >= 500:
		return FailureServer
	default:
		return FailureConnectivity
	}
}
