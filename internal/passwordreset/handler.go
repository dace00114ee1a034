package passwordreset

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/rolacode/telehealth-platform/internal/notify"
	"github.com/rolacode/telehealth-platform/internal/users"
	"github.com/rolacode/telehealth-platform/pkg/logging"
)

const bcryptCost = 10

// UserDirectory is what the handler needs from the users store.
type UserDirectory interface {
	GetByEmail(ctx context.Context, email string) (*users.User, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
}

// Tokens issues and consumes single-use reset tokens.
type Tokens interface {
	Issue(ctx context.Context, userID string) (string, error)
	Consume(ctx context.Context, tokenID string) (string, error)
}

// Handler serves the forgot/reset password flow.
type Handler struct {
	directory       UserDirectory
	tokens          Tokens
	email           notify.EmailSender
	frontendBaseURL string
	logger          *logging.Logger
}

// NewHandler creates a password reset handler.
func NewHandler(directory UserDirectory, tokens Tokens, email notify.EmailSender, frontendBaseURL string, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if email == nil {
		email = notify.NewStubEmailSender(logger)
	}
	return &Handler{
		directory:       directory,
		tokens:          tokens,
		email:           email,
		frontendBaseURL: strings.TrimRight(frontendBaseURL, "/"),
		logger:          logger,
	}
}

type forgotRequest struct {
	Email string `json:"email"`
}

// HandleForgot issues a reset token and emails the reset link.
// POST /api/resetPassword/forgot
func (h *Handler) HandleForgot(w http.ResponseWriter, r *http.Request) {
	var req forgotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}

	user, err := h.directory.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no account with that email")
			return
		}
		h.logger.Error("passwordreset: lookup failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during password reset")
		return
	}

	token, err := h.tokens.Issue(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("passwordreset: token issue failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during password reset")
		return
	}

	resetURL := fmt.Sprintf("%s/resetPassword/%s", h.frontendBaseURL, token)
	msg := notify.EmailMessage{
		To:      user.Email,
		ToName:  user.FirstName + " " + user.LastName,
		Subject: "Password reset request",
		Body:    "A password reset was requested for your account. Open this link to choose a new password: " + resetURL + "\n\nThe link expires shortly and can be used once. If you did not request this, ignore this email.",
	}
	if err := h.email.Send(r.Context(), msg); err != nil {
		h.logger.Error("passwordreset: email send failed", "error", err, "user_id", user.ID)
		writeError(w, http.StatusInternalServerError, "failed to send reset email")
		return
	}

	h.logger.Info("passwordreset: reset email sent", "user_id", user.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password reset email sent"})
}

type resetRequest struct {
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

// HandleReset consumes the token and sets the new password.
// POST /api/resetPassword/reset/{token}
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "reset token is required")
		return
	}

	var req resetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}
	if req.Password != req.ConfirmPassword {
		writeError(w, http.StatusBadRequest, "passwords do not match")
		return
	}

	userID, err := h.tokens.Consume(r.Context(), token)
	if err != nil {
		if errors.Is(err, ErrTokenUnknown) {
			writeError(w, http.StatusBadRequest, "reset token is invalid or expired")
			return
		}
		h.logger.Error("passwordreset: token consume failed", "error", err)
		writeError(w, http.StatusInternalServerError, "server error during password reset")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "server error during password reset")
		return
	}

	if err := h.directory.UpdatePassword(r.Context(), userID, string(hash)); err != nil {
		h.logger.Error("passwordreset: password update failed", "error", err, "user_id", userID)
		writeError(w, http.StatusInternalServerError, "server error during password reset")
		return
	}

	h.logger.Info("passwordreset: password updated", "user_id", userID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated successfully"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
