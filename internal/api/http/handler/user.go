package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/google/uuid"

	"github.com/contactbook/contactbook-server/internal/logger"
	"github.com/contactbook/contactbook-server/internal/model"
)

// UserService defines profile operations exposed over HTTP.
type UserService interface {
	Get(ctx context.Context, userID uuid.UUID) (model.User, error)
	UpdateAvatar(ctx context.Context, userID uuid.UUID, reader io.Reader) (model.User, error)
	DeleteAvatar(ctx context.Context, userID uuid.UUID) (model.User, error)
}

// User handles HTTP endpoints for the authenticated user's profile.
type User struct {
	users      UserService
	contextMgr model.ContextManager
	logger     *logger.Logger
}

func NewUser(users UserService, contextMgr model.ContextManager, logger *logger.Logger) *User {
	return &User{users: users, contextMgr: contextMgr, logger: logger}
}

// Me returns the authenticated user's profile.
func (h *User) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextMgr.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "could not validate credentials"})
		return
	}

	user, err := h.users.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("User handler: profile lookup failed", "user_id", userID, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// UpdateAvatar stores the uploaded image and returns the updated profile.
func (h *User) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextMgr.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "could not validate credentials"})
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Detail: "missing file upload"})
		return
	}
	defer file.Close()

	user, err := h.users.UpdateAvatar(r.Context(), userID, file)
	if err != nil {
		h.logger.Error("User handler: avatar update failed", "user_id", userID, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}

// DeleteAvatar removes the stored image and returns the updated profile.
func (h *User) DeleteAvatar(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.contextMgr.GetUserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Detail: "could not validate credentials"})
		return
	}

	user, err := h.users.DeleteAvatar(r.Context(), userID)
	if err != nil {
		h.logger.Error("User handler: avatar delete failed", "user_id", userID, "error", err.Error())
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toUserResponse(user))
}
