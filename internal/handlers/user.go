package handlers

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/crucial707/hci-account/internal/account"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// multipartMemory is how much of a multipart body is held in memory before spilling to temp files.
const multipartMemory = 8 << 20

// ==========================
// UserHandler
// ==========================
type UserHandler struct {
	Accounts *account.Service
	Logger   *slog.Logger
}

// ==========================
// Upload Profile Photo (multipart: profilePhoto file + email field)
// ==========================
func (h *UserHandler) UploadProfilePhoto(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			JSONError(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		JSONError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fields := make(map[string]string)
	email := r.FormValue("email")
	if email == "" {
		fields["email"] = "required"
	}
	file, header, err := r.FormFile("profilePhoto")
	if err != nil {
		fields["profilePhoto"] = "required"
	} else {
		defer file.Close()
	}
	if len(fields) > 0 {
		JSONValidationError(w, account.MsgValidation, fields, http.StatusBadRequest)
		return
	}

	url, err := h.Accounts.UploadProfilePhoto(r.Context(), email, file, header.Filename)
	if err != nil {
		serviceError(w, r, h.Logger, "upload profile photo", err)
		return
	}

	writeJSON(w, map[string]string{"photoUrl": url})
}

// ==========================
// Get Profile (?email=)
// ==========================
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		JSONValidationError(w, account.MsgValidation, map[string]string{"email": "required"}, http.StatusBadRequest)
		return
	}

	profile, err := h.Accounts.GetProfile(r.Context(), email)
	if err != nil {
		serviceError(w, r, h.Logger, "get profile", err)
		return
	}

	writeJSON(w, profile)
}

// ==========================
// Serve Profile Photo
// ==========================
func (h *UserHandler) ServeProfilePhoto(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	rc, err := h.Accounts.OpenProfilePhoto(r.Context(), name)
	if errors.Is(err, account.ErrNotFound) {
		JSONError(w, "photo not found", http.StatusNotFound)
		return
	}
	if err != nil {
		orDefault(h.Logger).ErrorContext(r.Context(), "open profile photo failed", "file", name, "error", err)
		JSONError(w, ErrMessageInternal, http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	ctype := mime.TypeByExtension(filepath.Ext(name))
	if ctype == "" {
		ctype = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ctype)
	// Filenames are random and never rewritten with different content.
	w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
	if _, err := io.Copy(w, rc); err != nil {
		// Headers are already sent; the client sees a truncated body.
		orDefault(h.Logger).WarnContext(r.Context(), "stream profile photo failed",
			"request_id", chimw.GetReqID(r.Context()), "file", name, "error", err)
	}
}
