package server

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"
)

// Rate limit defaults. Login and chat get their own, much smaller budgets.
const (
	DefaultRPS        = 20
	DefaultBurst      = 40
	DefaultLoginRPS   = 0.2
	DefaultLoginBurst = 5
	DefaultChatRPS    = 0.5
	DefaultChatBurst  = 6

	// maxTrackedClients bounds each bucket set before idle entries are pruned.
	maxTrackedClients = 10000
	idleClientTTL     = 10 * time.Minute
)

var rateLimitedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "centralgpt",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the rate limiter, by scope.",
	},
	[]string{"scope"},
)

func init() {
	prometheus.MustRegister(rateLimitedTotal)
}

// RouteLimit is an additional per-client budget for one method and path.
// A zero RPS disables it.
type RouteLimit struct {
	Method string
	Path   string
	RPS    float64
	Burst  int
}

func (l RouteLimit) key() string { return l.Method + " " + l.Path }

// RateLimitConfig bounds per-client request rates. RPS and Burst form the
// budget shared by every API and page request; Routes are checked on top.
// TrustProxy makes X-Forwarded-For the client identity, which is only safe
// behind a proxy that overwrites the header.
type RateLimitConfig struct {
	RPS        float64
	Burst      int
	Routes     []RouteLimit
	TrustProxy bool
}

// LoginLimit returns the login route budget.
func LoginLimit(rps float64, burst int) RouteLimit {
	return RouteLimit{Method: http.MethodPost, Path: "/api/v1/auth/login", RPS: rps, Burst: burst}
}

// ChatLimit returns the chat route budget.
func ChatLimit(rps float64, burst int) RouteLimit {
	return RouteLimit{Method: http.MethodPost, Path: "/api/v1/chat", RPS: rps, Burst: burst}
}

// withDefaults fills in the shared budget when unset.
func (c RateLimitConfig) withDefaults() RateLimitConfig {
	if c.RPS <= 0 {
		c.RPS = DefaultRPS
	}
	if c.Burst <= 0 {
		c.Burst = DefaultBurst
	}
	return c
}

// RateLimitMiddleware enforces cfg per client. Requests to paths in
// skipPaths are never limited. A rejected request gets a 429 problem with
// a Retry-After hint.
func RateLimitMiddleware(cfg RateLimitConfig, skipPaths []string) Middleware {
	cfg = cfg.withDefaults()
	global := newBucketSet(cfg.RPS, cfg.Burst)

	routes := make(map[string]*bucketSet, len(cfg.Routes))
	for _, rl := range cfg.Routes {
		if rl.RPS <= 0 {
			continue
		}
		burst := rl.Burst
		if burst <= 0 {
			burst = 1
		}
		routes[rl.key()] = newBucketSet(rl.RPS, burst)
	}

	skip := make(map[string]bool, len(skipPaths))
	for _, p := range skipPaths {
		skip[p] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if skip[r.URL.Path] {
				next.ServeHTTP(w, r)
				return
			}

			client := clientIP(r, cfg.TrustProxy)
			route := r.Method + " " + r.URL.Path
			if set, ok := routes[route]; ok && !set.allow(client) {
				reject(w, r, set, route)
				return
			}
			if !global.allow(client) {
				reject(w, r, global, "global")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func reject(w http.ResponseWriter, r *http.Request, set *bucketSet, scope string) {
	rateLimitedTotal.WithLabelValues(scope).Inc()
	w.Header().Set("Retry-After", strconv.Itoa(set.retryAfter()))
	RateLimited(w, "rate limit exceeded", r.URL.Path)
}

// bucketSet holds one token bucket per client.
type bucketSet struct {
	mu      sync.Mutex
	clients map[string]*bucket
	limit   rate.Limit
	burst   int
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newBucketSet(rps float64, burst int) *bucketSet {
	return &bucketSet{
		clients: make(map[string]*bucket),
		limit:   rate.Limit(rps),
		burst:   burst,
	}
}

func (s *bucketSet) allow(client string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.clients[client]
	if !ok {
		if len(s.clients) >= maxTrackedClients {
			s.prune(time.Now().Add(-idleClientTTL))
		}
		b = &bucket{limiter: rate.NewLimiter(s.limit, s.burst)}
		s.clients[client] = b
	}
	b.lastSeen = time.Now()
	return b.limiter.Allow()
}

// retryAfter is the whole number of seconds until one token refills.
func (s *bucketSet) retryAfter() int {
	return max(1, int(math.Ceil(1/float64(s.limit))))
}

// prune drops clients idle since before cutoff. Must be called with s.mu held.
func (s *bucketSet) prune(cutoff time.Time) {
	for c, b := range s.clients {
		if b.lastSeen.Before(cutoff) {
			delete(s.clients, c)
		}
	}
}

// clientIP identifies the caller. X-Forwarded-For is honoured only when
// trustProxy is set.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			first, _, _ := strings.Cut(xff, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
