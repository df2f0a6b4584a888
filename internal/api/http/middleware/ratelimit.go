package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/contactbook/contactbook-server/internal/logger"
	"github.com/contactbook/contactbook-server/internal/model"
)

// RateGate admits or denies a request for a composite key.
type RateGate interface {
	Check(ctx context.Context, key string, limit model.RouteLimit) error
}

// RateLimit applies a per-route request budget before the handler runs.
// The key combines the route with the authenticated user when present,
// falling back to the client IP.
type RateLimit struct {
	gate       RateGate
	contextMgr model.ContextManager
	logger     *logger.Logger
}

func NewRateLimit(gate RateGate, contextMgr model.ContextManager, logger *logger.Logger) *RateLimit {
	return &RateLimit{gate: gate, contextMgr: contextMgr, logger: logger}
}

// Handle wraps next with the given route budget.
func (m *RateLimit) Handle(route string, limit model.RouteLimit, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := route + "|" + m.callerKey(r)

		err := m.gate.Check(r.Context(), key, limit)
		var rateErr *model.RateLimitError
		switch {
		case errors.As(err, &rateErr):
			w.Header().Set("Retry-After", retryAfterSeconds(rateErr.RetryAfter))
			m.deny(w, http.StatusTooManyRequests, "too many requests")
			return
		case errors.Is(err, model.ErrUnavailable):
			m.deny(w, http.StatusServiceUnavailable, "service unavailable")
			return
		case err != nil:
			m.logger.Error("Rate limit middleware: check failed",
				"route", route,
				"error", err.Error())
			m.deny(w, http.StatusServiceUnavailable, "service unavailable")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (m *RateLimit) callerKey(r *http.Request) string {
	if userID, ok := m.contextMgr.GetUserIDFromContext(r.Context()); ok {
		return userID.String()
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// retryAfterSeconds renders a Retry-After value, rounded up so a
// sub-second window never reads as "retry now".
func retryAfterSeconds(d time.Duration) string {
	secs := int64((d + time.Second - 1) / time.Second)
	if secs < 1 {
		secs = 1
	}
	return strconv.FormatInt(secs, 10)
}

func (m *RateLimit) deny(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
