package handler

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/contactbook/contactbook-server/internal/model"
)

// writeServiceError maps the closed error set of the auth core to
// transport statuses. Services never see HTTP; this is the only place
// where error kinds become status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var rateErr *model.RateLimitError
	if errors.As(err, &rateErr) {
		w.Header().Set("Retry-After", retryAfterSeconds(rateErr.RetryAfter))
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Detail: "too many requests"})
		return
	}

	switch {
	case errors.Is(err, model.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "invalid credentials"})
	case errors.Is(err, model.ErrEmailNotConfirmed):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "email not confirmed"})
	case errors.Is(err, model.ErrInvalidToken):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "could not validate credentials"})
	case errors.Is(err, model.ErrTokenRevoked):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "token revoked"})
	case errors.Is(err, model.ErrEmailTaken):
		writeJSON(w, http.StatusConflict, errorResponse{Detail: "account already exists"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Detail: "record not found"})
	case errors.Is(err, model.ErrUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Detail: "service unavailable"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Detail: "internal server error"})
	}
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
