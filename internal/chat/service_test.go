package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/xdpzq/centralgpt/internal/auth"
	"github.com/xdpzq/centralgpt/internal/dispatch"
	"github.com/xdpzq/centralgpt/internal/event"
	"github.com/xdpzq/centralgpt/internal/history"
	"github.com/xdpzq/centralgpt/internal/settings"
	"go.uber.org/zap"
)

type fakeDispatcher struct {
	result dispatch.Result
	got    []dispatch.Request
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req dispatch.Request) dispatch.Result {
	f.got = append(f.got, req)
	return f.result
}

type fakeFeatures settings.Features

func (f *fakeFeatures) Features() settings.Features { return settings.Features(*f) }

type fakePrincipals struct {
	p   auth.Principal
	err error
}

func (f fakePrincipals) Principal(context.Context, *auth.Claims) (auth.Principal, error) {
	return f.p, f.err
}

type fakeHistory struct {
	saved []history.Entry
	err   error
}

func (f *fakeHistory) Save(_ context.Context, e *history.Entry) error {
	f.saved = append(f.saved, *e)
	return f.err
}

type fakeBus struct {
	mu     sync.Mutex
	events []event.Event
}

func (f *fakeBus) PublishAsync(_ context.Context, e event.Event) {
	f.mu.Lock()
	f.events = append(f.events, e)
	f.mu.Unlock()
}

type env struct {
	svc      *Service
	disp     *fakeDispatcher
	features *fakeFeatures
	history  *fakeHistory
	bus      *fakeBus
}

var userClaims = &auth.Claims{UserID: "u1", Username: "neo", Role: string(auth.RoleUser)}

func newEnv() *env {
	e := &env{
		disp:     &fakeDispatcher{result: dispatch.Result{Text: "hello", Outcome: dispatch.OutcomeSuccess, Attempts: 1}},
		features: &fakeFeatures{FeatureImage: true},
		history:  &fakeHistory{},
		bus:      &fakeBus{},
	}
	principals := fakePrincipals{p: auth.Principal{ID: "u1", Username: "neo", Role: auth.RoleUser, AIName: "Oracle", DevName: "Architect"}}
	e.svc = NewService(e.disp, e.features, principals, e.history, e.bus, zap.NewNop())
	return e
}

func TestSend_Success(t *testing.T) {
	e := newEnv()

	reply, err := e.svc.Send(context.Background(), userClaims, Request{Message: "  who are you?  ", Image: "data:image/png;base64,AAAA"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if reply.Response != "hello" || reply.AIName != "Oracle" || reply.Failed {
		t.Errorf("reply = %+v", reply)
	}

	if len(e.disp.got) != 1 {
		t.Fatalf("dispatch calls = %d, want 1", len(e.disp.got))
	}
	req := e.disp.got[0]
	if req.Prompt != "who are you?" {
		t.Errorf("prompt = %q, want trimmed", req.Prompt)
	}
	if !strings.Contains(req.SystemInstruction, "Oracle") || !strings.Contains(req.SystemInstruction, "Architect") {
		t.Errorf("system instruction missing persona: %q", req.SystemInstruction)
	}
	if req.Image == "" {
		t.Error("image should be forwarded")
	}

	if len(e.history.saved) != 1 || e.history.saved[0].Username != "neo" {
		t.Errorf("history = %+v", e.history.saved)
	}
	if len(e.bus.events) != 1 || e.bus.events[0].Topic != event.TopicChatCompleted {
		t.Errorf("events = %+v", e.bus.events)
	}
}

func TestSend_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		features settings.Features
		req      Request
		want     error
	}{
		{"maintenance", settings.Features{MaintenanceMode: true, FeatureImage: true}, Request{Message: "hi"}, ErrMaintenance},
		{"image disabled", settings.Features{}, Request{Message: "hi", Image: "AAAA"}, ErrImageDisabled},
		{"empty", settings.Features{FeatureImage: true}, Request{Message: "   "}, ErrEmptyMessage},
		{"too long", settings.Features{FeatureImage: true}, Request{Message: strings.Repeat("x", MaxMessageLength+1)}, ErrMessageTooLarge},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			*e.features = fakeFeatures(tc.features)

			if _, err := e.svc.Send(context.Background(), userClaims, tc.req); !errors.Is(err, tc.want) {
				t.Errorf("err = %v, want %v", err, tc.want)
			}
			if len(e.disp.got) != 0 {
				t.Error("dispatcher should not be called")
			}
		})
	}
}

func TestSend_ImageOnly(t *testing.T) {
	e := newEnv()
	if _, err := e.svc.Send(context.Background(), userClaims, Request{Image: "AAAA"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(e.disp.got) != 1 {
		t.Error("image-only request should be dispatched")
	}
}

func TestSend_FailureNotRecorded(t *testing.T) {
	e := newEnv()
	e.disp.result = dispatch.Result{Text: dispatch.MsgRateLimited, Failed: true, Outcome: dispatch.OutcomeExhausted}

	reply, err := e.svc.Send(context.Background(), userClaims, Request{Message: "hi"})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !reply.Failed || reply.Response != dispatch.MsgRateLimited {
		t.Errorf("reply = %+v", reply)
	}
	if len(e.history.saved) != 0 || len(e.bus.events) != 0 {
		t.Error("failed exchanges should not be recorded")
	}
}

func TestSend_HistoryErrorIsNotSurfaced(t *testing.T) {
	e := newEnv()
	e.history.err = errors.New("disk full")

	if _, err := e.svc.Send(context.Background(), userClaims, Request{Message: "hi"}); err != nil {
		t.Errorf("Send err = %v, want nil", err)
	}
}

func TestSend_PrincipalError(t *testing.T) {
	e := newEnv()
	e.svc.principals = fakePrincipals{err: auth.ErrUserDisabled}

	_, err := e.svc.Send(context.Background(), userClaims, Request{Message: "hi"})
	if !errors.Is(err, auth.ErrUserDisabled) {
		t.Errorf("err = %v, want ErrUserDisabled", err)
	}
}

func TestSystemInstruction_Defaults(t *testing.T) {
	got := SystemInstruction("", "")
	if !strings.Contains(got, auth.DefaultAIName) || !strings.Contains(got, auth.DefaultDevName) {
		t.Errorf("SystemInstruction = %q", got)
	}
}

func TestHandleChat(t *testing.T) {
	tests := []struct {
		name     string
		claims   *auth.Claims
		features settings.Features
		body     string
		wantCode int
	}{
		{"ok", userClaims, settings.Features{FeatureImage: true}, `{"message":"hi"}`, http.StatusOK},
		{"anonymous", nil, settings.Features{}, `{"message":"hi"}`, http.StatusUnauthorized},
		{"admin", &auth.Claims{UserID: "admin", Role: string(auth.RoleAdmin)}, settings.Features{}, `{"message":"hi"}`, http.StatusForbidden},
		{"maintenance", userClaims, settings.Features{MaintenanceMode: true}, `{"message":"hi"}`, http.StatusServiceUnavailable},
		{"image disabled", userClaims, settings.Features{}, `{"message":"hi","image":"AAAA"}`, http.StatusBadRequest},
		{"bad json", userClaims, settings.Features{}, `{`, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			*e.features = fakeFeatures(tc.features)
			mux := http.NewServeMux()
			NewHandler(e.svc, zap.NewNop()).RegisterRoutes(mux)

			req := httptest.NewRequest("POST", "/api/v1/chat", bytes.NewBufferString(tc.body))
			if tc.claims != nil {
				req = req.WithContext(auth.WithClaims(req.Context(), tc.claims))
			}
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)

			if w.Code != tc.wantCode {
				t.Fatalf("status = %d, want %d; body: %s", w.Code, tc.wantCode, w.Body.String())
			}
			if tc.wantCode == http.StatusOK {
				var reply Reply
				if err := json.NewDecoder(w.Body).Decode(&reply); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if reply.Response != "hello" {
					t.Errorf("response = %q", reply.Response)
				}
			}
		})
	}
}
