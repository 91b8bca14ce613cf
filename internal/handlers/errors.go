package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/crucial707/hci-account/internal/account"
)

// ErrMessageInternal is the generic message for unexpected faults. Do not expose internal details to clients.
const ErrMessageInternal = "internal server error"

// JSONError sends a JSON error response with a single "error" field.
func JSONError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// JSONValidationError sends a JSON error response with "error" and optional "fields" for field-level details.
// status is typically http.StatusBadRequest (400).
func JSONValidationError(w http.ResponseWriter, message string, fields map[string]string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	out := map[string]interface{}{"error": message}
	if len(fields) > 0 {
		out["fields"] = fields
	}
	json.NewEncoder(w).Encode(out)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// decodeError reports a body that could not be read: 413 past the size limit, 400 otherwise.
func decodeError(w http.ResponseWriter, err error) {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		JSONError(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	JSONError(w, "invalid JSON", http.StatusBadRequest)
}

// serviceError maps account errors to responses. Every account error kind is a 400;
// unexpected faults are logged and reported with a generic message.
func serviceError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, op string, err error) {
	var verr *account.ValidationError
	if errors.As(err, &verr) {
		JSONValidationError(w, account.MsgValidation, verr.Fields, http.StatusBadRequest)
		return
	}
	if msg, ok := account.PublicMessage(err); ok {
		JSONError(w, msg, http.StatusBadRequest)
		return
	}
	orDefault(logger).ErrorContext(r.Context(), op+" failed", "error", err)
	JSONError(w, ErrMessageInternal, http.StatusBadRequest)
}

func orDefault(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
