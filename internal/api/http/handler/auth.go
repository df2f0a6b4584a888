package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/contactbook/contactbook-server/internal/logger"
	"github.com/contactbook/contactbook-server/internal/model"
)

// SessionService defines the session operations exposed over HTTP.
type SessionService interface {
	Register(ctx context.Context, username, email, password string) (model.User, error)
	Login(ctx context.Context, email, password string) (accessToken string, refreshToken string, err error)
	Refresh(ctx context.Context, refreshToken string) (accessToken string, newRefreshToken string, err error)
	Logout(ctx context.Context, refreshToken string) error
	ConfirmEmail(ctx context.Context, confirmToken string) error
	RequestConfirmation(ctx context.Context, email string) error
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, resetToken string) (model.User, error)
	ResetPassword(ctx context.Context, resetToken, newPassword string) error
}

// Auth handles HTTP endpoints for authentication.
type Auth struct {
	sessions SessionService
	logger   *logger.Logger
}

// NewAuth creates a new Auth handler.
func NewAuth(sessions SessionService, logger *logger.Logger) *Auth {
	return &Auth{sessions: sessions, logger: logger}
}

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar,omitempty"`
}

type signupResponse struct {
	User   userResponse `json:"user"`
	Detail string       `json:"detail"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type resetConfirmResponse struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

type newPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// Signup registers a new user and triggers the confirmation mail.
func (h *Auth) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if req.Email == "" || len(req.Password) < 8 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "email and a password of at least 8 characters are required"})
		return
	}

	user, err := h.sessions.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		h.logger.Error("Auth handler: signup failed", "email", req.Email, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, signupResponse{
		User:   toUserResponse(user),
		Detail: "User successfully created. Check your email for confirmation.",
	})
}

// Login verifies credentials and returns a fresh token pair.
func (h *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	access, refresh, err := h.sessions.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Info("Auth handler: login failed", "email", req.Email, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}

// Refresh rotates the presented refresh token into a new pair.
func (h *Auth) Refresh(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "missing bearer token"})
		return
	}

	access, refresh, err := h.sessions.Refresh(r.Context(), refreshToken)
	if err != nil {
		h.logger.Info("Auth handler: refresh failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
	})
}

// Logout closes the refresh chain for the presented token.
func (h *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	refreshToken, ok := bearerToken(r)
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "missing bearer token"})
		return
	}

	if err := h.sessions.Logout(r.Context(), refreshToken); err != nil {
		h.logger.Info("Auth handler: logout failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Logged out")
}

// ConfirmEmail marks the account confirmed. Replays on an already
// confirmed account report that state with a success status.
func (h *Auth) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	err := h.sessions.ConfirmEmail(r.Context(), token)
	if errors.Is(err, model.ErrAlreadyConfirmed) {
		writeMessage(w, http.StatusOK, "Your email is already confirmed")
		return
	}
	if err != nil {
		h.logger.Info("Auth handler: email confirmation failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "Email confirmed")
}

// RequestEmail re-sends the confirmation mail. The response does not
// reveal whether the address is registered.
func (h *Auth) RequestEmail(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	err := h.sessions.RequestConfirmation(r.Context(), req.Email)
	if errors.Is(err, model.ErrAlreadyConfirmed) {
		writeMessage(w, http.StatusOK, "Your email is already confirmed")
		return
	}
	if err != nil {
		h.logger.Error("Auth handler: confirmation request failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Check your email for confirmation.")
}

// PasswordReset mails a reset token. The response does not reveal
// whether the address is registered.
func (h *Auth) PasswordReset(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}

	if err := h.sessions.RequestPasswordReset(r.Context(), req.Email); err != nil {
		h.logger.Error("Auth handler: password reset request failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Check your email for instruction.")
}

// ConfirmPasswordReset validates the mailed reset token and reports the
// address it belongs to. This is the landing endpoint of the reset link;
// the password itself is changed through NewPassword.
func (h *Auth) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")

	user, err := h.sessions.ConfirmPasswordReset(r.Context(), token)
	if err != nil {
		h.logger.Info("Auth handler: password reset confirmation failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resetConfirmResponse{
		Email:   user.Email,
		Message: "User confirmed password reset",
	})
}

// NewPassword sets a new password using a reset token.
func (h *Auth) NewPassword(w http.ResponseWriter, r *http.Request) {
	var req newPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "invalid request body"})
		return
	}
	if len(req.Password) < 8 {
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: "a password of at least 8 characters is required"})
		return
	}

	if err := h.sessions.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		h.logger.Info("Auth handler: password update failed", "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusCreated, "Password updated")
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" || token == header {
		return "", false
	}
	return token, true
}

func toUserResponse(user model.User) userResponse {
	return userResponse{
		ID:        user.ID.String(),
		Username:  user.Username,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
	}
}
