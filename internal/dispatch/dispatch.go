// Package dispatch sends completion requests to the AI endpoint, rotating
// through a pool of API keys until one succeeds or the pool is exhausted.
//
// Every outcome is rendered as text: a caller never sees an error from
// Complete, only the model's answer or a "System Failure: ..." line.
package dispatch

import (
	"context"
	"math/rand/v2"
	"strings"
	"sync/atomic"

	"github.com/xdpzq/centralgpt/pkg/llm"
	"go.uber.org/zap"
)

// MinKeyLength is the shortest string accepted as a plausible API key.
const MinKeyLength = 11

// Messages returned in place of a model answer.
const (
	MsgNoCredentials     = "System Failure: No Valid API Keys Available. Please configure keys in Admin Panel."
	MsgRateLimited       = "System Failure: Rate Limit Exceeded (429). All API keys exhausted, try again later."
	MsgInvalidCredential = "System Failure: API Key Invalid or Expired (400). Check Admin Config."
	MsgEmptyResponse     = "No response generated."

	failurePrefix = "System Failure: "
)

// Shuffler permutes n elements in place through swap.
// *rand.Rand from math/rand/v2 satisfies it.
type Shuffler interface {
	Shuffle(n int, swap func(i, j int))
}

// globalShuffler uses the goroutine-safe top-level math/rand/v2 source.
type globalShuffler struct{}

func (globalShuffler) Shuffle(n int, swap func(i, j int)) { rand.Shuffle(n, swap) }

// Request is one completion request. Image is optional base64 data, with
// or without a data-URL prefix.
type Request struct {
	Prompt            string
	SystemInstruction string
	Image             string
}

// Result is the outcome of Dispatch.
type Result struct {
	Text     string // Model answer or failure message.
	Failed   bool   // True when Text is a failure message.
	Outcome  string // One of the Outcome* constants.
	Attempts int    // Provider calls made.
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithShuffler replaces the random permutation source.
func WithShuffler(s Shuffler) Option {
	return func(d *Dispatcher) { d.shuffler = s }
}

// WithLogger sets the dispatcher logger.
func WithLogger(l *zap.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithConfig applies model, temperature, and fallback key. Zero values
// leave the defaults in place.
func WithConfig(cfg Config) Option {
	return func(d *Dispatcher) {
		if cfg.Model != "" {
			d.model = cfg.Model
		}
		if cfg.Temperature != 0 {
			d.temperature = cfg.Temperature
		}
		d.fallback = strings.TrimSpace(cfg.FallbackKey)
	}
}

// Dispatcher owns the credential pool and runs the rotation loop.
// It is safe for concurrent use.
type Dispatcher struct {
	pool        atomic.Pointer[[]string]
	newProvider llm.Factory
	shuffler    Shuffler
	fallback    string
	model       string
	temperature float64
	logger      *zap.Logger
}

// New creates a Dispatcher that obtains one provider per key from factory.
func New(factory llm.Factory, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		newProvider: factory,
		shuffler:    globalShuffler{},
		model:       DefaultModel,
		temperature: DefaultTemperature,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	empty := []string{}
	d.pool.Store(&empty)
	return d
}

// SetCredentials trims every key, drops empty ones, and replaces the pool.
// An empty result is allowed; requests then use the fallback key.
func (d *Dispatcher) SetCredentials(keys []string) {
	clean := make([]string, 0, len(keys))
	for _, k := range keys {
		if k = strings.TrimSpace(k); k != "" {
			clean = append(clean, k)
		}
	}
	d.pool.Store(&clean)
	poolSize.Set(float64(len(clean)))
	d.logger.Info("credential pool updated", zap.Int("keys", len(clean)))
}

// Credentials returns a copy of the active pool.
func (d *Dispatcher) Credentials() []string {
	p := *d.pool.Load()
	out := make([]string, len(p))
	copy(out, p)
	return out
}

// Complete returns the model's answer to prompt, or a failure message.
func (d *Dispatcher) Complete(ctx context.Context, prompt, systemInstruction, image string) string {
	return d.Dispatch(ctx, Request{
		Prompt:            prompt,
		SystemInstruction: systemInstruction,
		Image:             image,
	}).Text
}

// Dispatch runs the rotation loop for req and reports how it ended.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Result {
	msg := buildMessage(req)
	candidates := d.candidates()

	if len(candidates) == 0 {
		d.logger.Warn("no usable api keys")
		return d.finish(Result{Text: MsgNoCredentials, Failed: true, Outcome: OutcomeNoCredentials})
	}

	opts := []llm.CallOption{
		llm.WithModel(d.model),
		llm.WithTemperature(d.temperature),
	}
	if req.SystemInstruction != "" {
		opts = append(opts, llm.WithSystemInstruction(req.SystemInstruction))
	}

	var (
		lastErr  error
		attempts int
	)
	for _, key := range candidates {
		attempts++
		resp, err := d.try(ctx, key, msg, opts)
		if err == nil {
			attemptsTotal.WithLabelValues("ok").Inc()
			if resp == nil || resp.Content == "" {
				return d.finish(Result{Text: MsgEmptyResponse, Outcome: OutcomeEmpty, Attempts: attempts})
			}
			return d.finish(Result{Text: resp.Content, Outcome: OutcomeSuccess, Attempts: attempts})
		}

		lastErr = err
		if !retryable(err) {
			attemptsTotal.WithLabelValues("fatal").Inc()
			d.logger.Error("provider call failed",
				zap.String("key", maskKey(key)),
				zap.Int("attempt", attempts),
				zap.Error(err),
			)
			return d.finish(Result{Text: failureMessage(err), Failed: true, Outcome: OutcomeFatal, Attempts: attempts})
		}
		attemptsTotal.WithLabelValues("retry").Inc()
		d.logger.Warn("api key rejected, rotating",
			zap.String("key", maskKey(key)),
			zap.Int("attempt", attempts),
			zap.Int("remaining", len(candidates)-attempts),
			zap.Stringer("class", classify(err)),
			zap.Error(err),
		)
	}

	return d.finish(Result{Text: failureMessage(lastErr), Failed: true, Outcome: OutcomeExhausted, Attempts: attempts})
}

func (d *Dispatcher) try(ctx context.Context, key string, msg llm.Message, opts []llm.CallOption) (*llm.Response, error) {
	p, err := d.newProvider(key)
	if err != nil {
		return nil, err
	}
	return p.Chat(ctx, []llm.Message{msg}, opts...)
}

func (d *Dispatcher) finish(r Result) Result {
	outcomesTotal.WithLabelValues(r.Outcome).Inc()
	return r
}

// candidates snapshots the pool (or the fallback key), shuffles it, and
// drops keys that are too short to be real.
func (d *Dispatcher) candidates() []string {
	pool := *d.pool.Load()

	var keys []string
	if len(pool) > 0 {
		keys = make([]string, len(pool))
		copy(keys, pool)
	} else {
		keys = []string{d.fallback}
	}

	d.shuffler.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	out := keys[:0]
	for _, k := range keys {
		if len(k) >= MinKeyLength {
			out = append(out, k)
		}
	}
	return out
}

// buildMessage assembles the user turn: the prompt text and, when present,
// the image as an inline part.
func buildMessage(req Request) llm.Message {
	msg := llm.Message{Role: llm.RoleUser, Content: req.Prompt}
	if req.Image != "" {
		msg.Images = []llm.Blob{ParseImage(req.Image)}
	}
	return msg
}

// ParseImage splits an optional data-URL prefix ("data:image/png;base64,")
// from base64 image data. The MIME type defaults to image/jpeg.
func ParseImage(s string) llm.Blob {
	b := llm.Blob{MIMEType: "image/jpeg", Data: s}
	i := strings.IndexByte(s, ',')
	if i < 0 {
		return b
	}
	header := s[:i]
	b.Data = s[i+1:]
	if rest, ok := strings.CutPrefix(header, "data:"); ok {
		mime, _, _ := strings.Cut(rest, ";")
		if mime != "" {
			b.MIMEType = mime
		}
	}
	return b
}

// failureMessage renders the last error of a failed run.
func failureMessage(err error) string {
	switch classify(err) {
	case classRateLimit:
		return MsgRateLimited
	case classCredential:
		return MsgInvalidCredential
	}
	if err == nil {
		return failurePrefix + "unknown error"
	}
	return failurePrefix + err.Error()
}

// maskKey shortens a key for logs.
func maskKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "…" + key[len(key)-4:]
}
