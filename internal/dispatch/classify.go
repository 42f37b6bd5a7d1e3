package dispatch

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/xdpzq/centralgpt/pkg/llm"
)

// failureClass groups provider errors by how the dispatcher reacts to them.
type failureClass int

const (
	classFatal failureClass = iota
	classRateLimit
	classCredential
)

func (c failureClass) String() string {
	switch c {
	case classRateLimit:
		return "rate_limit"
	case classCredential:
		return "credential"
	default:
		return "fatal"
	}
}

// Substrings of the provider error text that mark a candidate as exhausted.
// The match is case-sensitive.
var (
	rateLimitMarkers  = []string{"429", "Quota", "limit", "RESOURCE_EXHAUSTED"}
	credentialMarkers = []string{"400", "INVALID_ARGUMENT"}
)

// retryable reports whether err means the current key is unusable and the
// next key should be tried. Cancellation is never retryable.
func retryable(err error) bool {
	if err == nil || isCancellation(err) {
		return false
	}
	if structuredClass(err) != classFatal {
		return true
	}
	return markerClass(err.Error()) != classFatal
}

// classify maps the last error of an exhausted run onto the message class
// shown to the caller. Rate limiting wins over credential failures.
func classify(err error) failureClass {
	if err == nil || isCancellation(err) {
		return classFatal
	}
	structured := structuredClass(err)
	markers := markerClass(err.Error())
	switch {
	case structured == classRateLimit || markers == classRateLimit:
		return classRateLimit
	case structured == classCredential || markers == classCredential:
		return classCredential
	default:
		return classFatal
	}
}

// structuredClass inspects the typed provider error, when there is one.
func structuredClass(err error) failureClass {
	switch llm.StatusCode(err) {
	case http.StatusTooManyRequests:
		return classRateLimit
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return classCredential
	}
	switch {
	case llm.IsRateLimitError(err), llm.IsQuotaError(err):
		return classRateLimit
	case llm.IsAuthenticationError(err):
		return classCredential
	}
	return classFatal
}

func markerClass(text string) failureClass {
	for _, m := range rateLimitMarkers {
		if strings.Contains(text, m) {
			return classRateLimit
		}
	}
	for _, m := range credentialMarkers {
		if strings.Contains(text, m) {
			return classCredential
		}
	}
	return classFatal
}

func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
