package account

import (
	"errors"
	"sort"
	"strings"
)

// Error kinds returned by Service.
var (
	ErrConflict           = errors.New("email already in use")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("user not found")
	ErrStorage            = errors.New("could not store file")
)

// Client-facing messages per error kind. Login failures share one message whether the
// email or the password was wrong.
const (
	MsgConflict           = "Email already in use"
	MsgInvalidCredentials = "Invalid credentials"
	MsgNotFound           = "User not found"
	MsgStorage            = "Could not store file. Please try again."
	MsgValidation         = "validation failed"
)

// PublicMessage returns the client-facing message for err and whether err is a known kind.
func PublicMessage(err error) (string, bool) {
	var verr *ValidationError
	switch {
	case errors.Is(err, ErrConflict):
		return MsgConflict, true
	case errors.Is(err, ErrInvalidCredentials):
		return MsgInvalidCredentials, true
	case errors.Is(err, ErrNotFound):
		return MsgNotFound, true
	case errors.Is(err, ErrStorage):
		return MsgStorage, true
	case errors.As(err, &verr):
		return MsgValidation, true
	}
	return "", false
}

// ValidationError lists per-field problems with the input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, ", ")
}
