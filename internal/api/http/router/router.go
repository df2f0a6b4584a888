package router

import (
	"net/http"

	"github.com/contactbook/contactbook-server/internal/api/http/handler"
	"github.com/contactbook/contactbook-server/internal/api/http/middleware"
	"github.com/contactbook/contactbook-server/internal/model"
)

// Limits carries the per-route-group request budgets.
type Limits struct {
	Auth model.RouteLimit
	API  model.RouteLimit
}

// Router assembles handlers and middleware into the API surface.
type Router struct {
	auth         *handler.Auth
	users        *handler.User
	authenticate *middleware.Authenticate
	rateLimit    *middleware.RateLimit
	logging      *middleware.Logging
	limits       Limits
}

func New(
	auth *handler.Auth,
	users *handler.User,
	authenticate *middleware.Authenticate,
	rateLimit *middleware.RateLimit,
	logging *middleware.Logging,
	limits Limits,
) *Router {
	return &Router{
		auth:         auth,
		users:        users,
		authenticate: authenticate,
		rateLimit:    rateLimit,
		logging:      logging,
		limits:       limits,
	}
}

// Register builds the route table. Sensitive auth routes are rate
// limited by client IP before any credential handling; profile routes
// authenticate first so the budget is tracked per user.
func (r *Router) Register() http.Handler {
	mux := http.NewServeMux()

	r.handleAuth(mux, "POST /api/auth/signup", "auth.signup", r.auth.Signup)
	r.handleAuth(mux, "POST /api/auth/login", "auth.login", r.auth.Login)
	r.handleAuth(mux, "GET /api/auth/refresh_token", "auth.refresh", r.auth.Refresh)
	r.handleAuth(mux, "POST /api/auth/logout", "auth.logout", r.auth.Logout)
	r.handleAuth(mux, "GET /api/auth/confirmed_email/{token}", "auth.confirm", r.auth.ConfirmEmail)
	r.handleAuth(mux, "POST /api/auth/request_email", "auth.request_email", r.auth.RequestEmail)
	r.handleAuth(mux, "POST /api/auth/password_reset", "auth.password_reset", r.auth.PasswordReset)
	r.handleAuth(mux, "GET /api/auth/confirm_password_reset/{token}", "auth.confirm_reset", r.auth.ConfirmPasswordReset)
	r.handleAuth(mux, "POST /api/auth/new_password", "auth.new_password", r.auth.NewPassword)

	r.handleAPI(mux, "GET /api/users/me", "users.me", r.users.Me)
	r.handleAPI(mux, "PATCH /api/users/avatar", "users.avatar", r.users.UpdateAvatar)
	r.handleAPI(mux, "DELETE /api/users/avatar", "users.avatar", r.users.DeleteAvatar)

	return r.logging.Handle(mux)
}

func (r *Router) handleAuth(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	mux.Handle(pattern, r.rateLimit.Handle(route, r.limits.Auth, h))
}

func (r *Router) handleAPI(mux *http.ServeMux, pattern, route string, h http.HandlerFunc) {
	mux.Handle(pattern, r.authenticate.Handle(r.rateLimit.Handle(route, r.limits.API, h)))
}
