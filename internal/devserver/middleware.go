package devserver

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/good-yellow-bee/peervote/internal/metrics"
)

type contextKey string

const userIDKey contextKey = "user_id"

// authSchemes are the accepted Authorization header prefixes.
var authSchemes = []string{"Bearer", "JWT"}

// userID returns the authenticated user id, or 0 for anonymous requests.
func userID(ctx context.Context) int64 {
	if v, ok := ctx.Value(userIDKey).(int64); ok {
		return v
	}
	return 0
}

// statusWriter captures the status code and size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.size += n
	return n, err
}

// requestLogger logs every request and records it in the request counter.
// The client's X-Request-ID is echoed back, or a short one is generated.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.NewString()[:8]
			}
			w.Header().Set("X-Request-ID", requestID)

			wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(wrapped, r)

			metrics.DevServerRequestsTotal.WithLabelValues(
				r.Method,
				routePattern(r),
				strconv.Itoa(wrapped.status),
			).Inc()

			level := slog.LevelInfo
			if wrapped.status >= 500 {
				level = slog.LevelError
			}
			logger.Log(r.Context(), level, "request",
				"id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", wrapped.status,
				"size", wrapped.size,
				"duration", time.Since(start),
			)
		})
	}
}

// routePattern returns the matched chi pattern, falling back to the raw path.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
		return rctx.RoutePattern()
	}
	return r.URL.Path
}

// recoverer turns handler panics into 500 responses.
func recoverer(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic in handler", "panic", rec, "stack", string(debug.Stack()))
					writeDetail(w, http.StatusInternalServerError, "A server error occurred.")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// ipLimiter keeps one token bucket per client address.
type ipLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	limiters map[string]*rate.Limiter
}

func newIPLimiter(limit rate.Limit, burst int) *ipLimiter {
	return &ipLimiter{
		limit:    limit,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (l *ipLimiter) Allow(ip string) bool {
	l.mu.Lock()
	lim, ok := l.limiters[ip]
	if !ok {
		lim = rate.NewLimiter(l.limit, l.burst)
		l.limiters[ip] = lim
	}
	l.mu.Unlock()
	return lim.Allow()
}

// rateLimitByIP rejects requests from clients that exceed their bucket.
func rateLimitByIP(limiter *ipLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !limiter.Allow(clientIP(r)) {
				writeDetail(w, http.StatusTooManyRequests, detailThrottled)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientIP(r *http.Request) string {
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// authenticate resolves the Authorization header into a user id. Requests
// without a recognised scheme pass through as anonymous; a recognised scheme
// with a bad token is rejected.
func authenticate(tokens *TokenService, store *Store, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !acceptedScheme(scheme) {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.ValidateAccess(strings.TrimSpace(token))
			if err != nil {
				logger.Debug("token rejected", "remote", r.RemoteAddr, "error", err)
				writeJSON(w, http.StatusUnauthorized, detailResponse{
					Detail: detailTokenNotValid,
					Code:   "token_not_valid",
				})
				return
			}
			if _, ok := store.User(claims.UserID); !ok {
				writeJSON(w, http.StatusUnauthorized, detailResponse{
					Detail: "User not found",
					Code:   "user_not_found",
				})
				return
			}

			ctx := context.WithValue(r.Context(), userIDKey, claims.UserID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func acceptedScheme(scheme string) bool {
	for _, s := range authSchemes {
		if scheme == s {
			return true
		}
	}
	return false
}

// requireUser rejects anonymous requests.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID(r.Context()) == 0 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="api"`)
			writeDetail(w, http.StatusUnauthorized, detailNoCredentials)
			return
		}
		next.ServeHTTP(w, r)
	})
}
