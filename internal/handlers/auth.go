package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/crucial707/hci-account/internal/account"
	"github.com/crucial707/hci-account/internal/models"
)

// ForgotPasswordMessage is returned whether or not the email has an account.
const ForgotPasswordMessage = "If an account with this email exists, a password reset link has been sent"

// ==========================
// Auth Handler
// ==========================
type AuthHandler struct {
	Accounts *account.Service
	Logger   *slog.Logger
}

type userResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

func newUserResponse(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, Name: u.Name}
}

// ==========================
// Signup
// ==========================
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		decodeError(w, err)
		return
	}

	user, err := h.Accounts.Signup(r.Context(), input.Name, input.Email, input.Password)
	if err != nil {
		serviceError(w, r, h.Logger, "signup", err)
		return
	}

	writeJSON(w, newUserResponse(user))
}

// ==========================
// Login (no session is issued; success returns the account)
// ==========================
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		decodeError(w, err)
		return
	}

	user, err := h.Accounts.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		serviceError(w, r, h.Logger, "login", err)
		return
	}

	writeJSON(w, newUserResponse(user))
}

// ==========================
// Forgot Password (same response for known and unknown emails)
// ==========================
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email string `json:"email"`
	}

	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		decodeError(w, err)
		return
	}

	if err := h.Accounts.RequestPasswordReset(r.Context(), input.Email); err != nil {
		serviceError(w, r, h.Logger, "forgot password", err)
		return
	}

	writeJSON(w, map[string]string{"message": ForgotPasswordMessage})
}
