package dispatch

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/xdpzq/centralgpt/pkg/llm"
)

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"429 text", errors.New("got 429 from upstream"), true},
		{"400 text", errors.New("HTTP 400"), true},
		{"invalid argument", errors.New("status INVALID_ARGUMENT"), true},
		{"quota", errors.New("Quota exceeded for metric"), true},
		{"limit", errors.New("rate limit reached"), true},
		{"resource exhausted", errors.New("RESOURCE_EXHAUSTED"), true},
		{"lowercase quota does not match", errors.New("quota exceeded"), false},
		{"other", errors.New("500 internal"), false},
		{"canceled", context.Canceled, false},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), false},
		{"status 429", llm.NewStatusError(llm.ErrCodeServerError, 429, "busy", nil), true},
		{"status 401", llm.NewStatusError(llm.ErrCodeServerError, 401, "nope", nil), true},
		{"status 403", llm.NewStatusError(llm.ErrCodeServerError, 403, "nope", nil), true},
		{"status 503", llm.NewStatusError(llm.ErrCodeServerError, 503, "unavailable", nil), false},
		{"quota code", llm.NewProviderError(llm.ErrCodeQuotaExhausted, "out", nil), true},
		{"auth code", llm.NewProviderError(llm.ErrCodeAuthentication, "bad key", nil), true},
		{"timeout code wrapping cancel", llm.NewProviderError(llm.ErrCodeTimeout, "cancelled", context.Canceled), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := retryable(tt.err); got != tt.want {
				t.Errorf("retryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"429", errors.New("429 Too Many Requests"), MsgRateLimited},
		{"quota", errors.New("Quota exceeded"), MsgRateLimited},
		{"limit", errors.New("limit reached"), MsgRateLimited},
		{"400", errors.New("400 Bad Request"), MsgInvalidCredential},
		{"invalid argument", errors.New("INVALID_ARGUMENT"), MsgInvalidCredential},
		{"rate limit wins", errors.New("400 then 429"), MsgRateLimited},
		{"status 401", llm.NewStatusError(llm.ErrCodeAuthentication, 401, "unauthenticated", nil), MsgInvalidCredential},
		{"status 429", llm.NewStatusError(llm.ErrCodeQuotaExhausted, 429, "busy", nil), MsgRateLimited},
		{"generic", errors.New("socket closed"), "System Failure: socket closed"},
		{"nil", nil, "System Failure: unknown error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := failureMessage(tt.err); got != tt.want {
				t.Errorf("failureMessage(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestFailureClass_String(t *testing.T) {
	for c, want := range map[failureClass]string{
		classFatal:      "fatal",
		classRateLimit:  "rate_limit",
		classCredential: "credential",
	} {
		if got := c.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", c, got, want)
		}
	}
}
