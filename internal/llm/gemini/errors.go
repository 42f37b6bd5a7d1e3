package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/xdpzq/centralgpt/pkg/llm"
)

// statusError represents an HTTP error response from the Gemini API.
// Its text keeps the numeric status and the API status string
// ("gemini: 429 RESOURCE_EXHAUSTED: Quota exceeded ...").
type statusError struct {
	StatusCode int
	Status     string // google.rpc status, e.g. RESOURCE_EXHAUSTED.
	Reason     string // ErrorInfo reason, e.g. API_KEY_INVALID.
	Message    string
}

func (e *statusError) Error() string {
	if e.Status == "" {
		return fmt.Sprintf("gemini: %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("gemini: %d %s: %s", e.StatusCode, e.Status, e.Message)
}

// mapError translates Gemini and network errors into typed llm.ProviderError values.
func mapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return llm.NewProviderError(llm.ErrCodeTimeout, "request timed out or cancelled", err)
	}

	var se *statusError
	if errors.As(err, &se) {
		code := se.StatusCode
		switch {
		case se.Reason == "API_KEY_INVALID" || code == http.StatusUnauthorized || code == http.StatusForbidden:
			return llm.NewStatusError(llm.ErrCodeAuthentication, code, "gemini rejected api key", err)
		case code == http.StatusTooManyRequests || se.Status == "RESOURCE_EXHAUSTED":
			return llm.NewStatusError(llm.ErrCodeQuotaExhausted, code, "gemini quota exhausted", err)
		case code == http.StatusNotFound:
			return llm.NewStatusError(llm.ErrCodeModelNotFound, code, "gemini model not found", err)
		case strings.Contains(strings.ToLower(se.Message), "exceeds the maximum number of tokens"):
			return llm.NewStatusError(llm.ErrCodeContextLength, code, "gemini context length exceeded", err)
		case code >= 500:
			return llm.NewStatusError(llm.ErrCodeServerError, code, "gemini server error", err)
		case code >= 400:
			return llm.NewStatusError(llm.ErrCodeInvalidRequest, code, "gemini invalid request", err)
		}
	}

	msg := err.Error()
	if strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dial tcp") {
		return llm.NewProviderError(llm.ErrCodeServerError, "gemini server unreachable", err)
	}

	return llm.NewProviderError(llm.ErrCodeServerError, "gemini error", err)
}
