// Package account implements the signup, login, password-reset and
// profile-photo workflows on top of a user store and a blob store.
package account

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/mail"
	"path/filepath"
	"strings"
	"sync"

	"github.com/crucial707/hci-account/internal/metrics"
	"github.com/crucial707/hci-account/internal/models"
	"github.com/crucial707/hci-account/internal/password"
	"github.com/crucial707/hci-account/internal/repo"
	"github.com/crucial707/hci-account/internal/resettoken"
	"github.com/crucial707/hci-account/internal/storage"
	"github.com/google/uuid"
)

// Event names for metrics.
const (
	eventSignup        = "signup"
	eventLogin         = "login"
	eventPasswordReset = "password_reset"
	eventPhotoUpload   = "photo_upload"
)

// UserStore persists users. Implemented by *repo.UserRepo; errors follow repo.ErrNotFound
// and repo.ErrDuplicateEmail.
type UserStore interface {
	Create(ctx context.Context, name, email, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateProfilePhoto(ctx context.Context, id int, url string) (*models.User, error)
}

// AuditLogger records account events. Implemented by *repo.AuditRepo.
type AuditLogger interface {
	Log(ctx context.Context, userID int, action, details string) error
}

// TokenIssuer creates password-reset tokens. Implemented by *resettoken.Issuer.
type TokenIssuer interface {
	Issue(userID int) (resettoken.Token, error)
}

// ResetNotifier receives issued reset tokens for delivery to the user.
type ResetNotifier interface {
	NotifyPasswordReset(ctx context.Context, user *models.User, token resettoken.Token) error
}

// LogNotifier is a ResetNotifier that only records that a token was issued.
// The token value itself is never logged.
type LogNotifier struct {
	Logger *slog.Logger
}

func (n LogNotifier) NotifyPasswordReset(ctx context.Context, user *models.User, token resettoken.Token) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "password reset token issued",
		"user_id", user.ID, "token_id", token.ID, "expires_at", token.ExpiresAt)
	return nil
}

// Config holds the collaborators of a Service. Users, Hasher and Photos are required.
type Config struct {
	Users    UserStore
	Hasher   password.Hasher
	Photos   storage.Store
	Tokens   TokenIssuer
	Notifier ResetNotifier
	Audit    AuditLogger
	Logger   *slog.Logger

	// PhotoURLPrefix is prepended to stored filenames, e.g. "/uploads/profile-photos/".
	PhotoURLPrefix string
}

// Service runs the account workflows. It holds no mutable state of its own beyond a
// lazily computed dummy hash.
type Service struct {
	users     UserStore
	hasher    password.Hasher
	photos    storage.Store
	tokens    TokenIssuer
	notifier  ResetNotifier
	audit     AuditLogger
	logger    *slog.Logger
	urlPrefix string

	dummyMu   sync.Mutex
	dummyHash string
}

func NewService(cfg Config) *Service {
	s := &Service{
		users:     cfg.Users,
		hasher:    cfg.Hasher,
		photos:    cfg.Photos,
		tokens:    cfg.Tokens,
		notifier:  cfg.Notifier,
		audit:     cfg.Audit,
		logger:    cfg.Logger,
		urlPrefix: cfg.PhotoURLPrefix,
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.notifier == nil {
		s.notifier = LogNotifier{Logger: s.logger}
	}
	return s
}

// NormalizeEmail trims surrounding space and lower-cases the address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ==========================
// Signup
// ==========================

// Signup registers a user. The email pre-check is advisory; the unique constraint in the
// store is what actually enforces uniqueness, and its violation also maps to ErrConflict.
func (s *Service) Signup(ctx context.Context, name, email, rawPassword string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = NormalizeEmail(email)

	fields := make(map[string]string)
	if name == "" {
		fields["name"] = "required"
	}
	if email == "" {
		fields["email"] = "required"
	} else if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		fields["email"] = "invalid"
	}
	if rawPassword == "" {
		fields["password"] = "required"
	} else if len(rawPassword) > password.MaxLength {
		fields["password"] = fmt.Sprintf("too long (max %d bytes)", password.MaxLength)
	}
	if len(fields) > 0 {
		metrics.RecordAccountEvent(eventSignup, metrics.OutcomeFailure)
		return nil, &ValidationError{Fields: fields}
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		metrics.RecordAccountEvent(eventSignup, metrics.OutcomeFailure)
		return nil, ErrConflict
	case !errors.Is(err, repo.ErrNotFound):
		metrics.RecordAccountEvent(eventSignup, metrics.OutcomeError)
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	hash, err := s.hasher.Hash(rawPassword)
	if err != nil {
		metrics.RecordAccountEvent(eventSignup, metrics.OutcomeError)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(ctx, name, email, hash)
	if errors.Is(err, repo.ErrDuplicateEmail) {
		metrics.RecordAccountEvent(eventSignup, metrics.OutcomeFailure)
		return nil, ErrConflict
	}
	if err != nil {
		metrics.RecordAccountEvent(eventSignup, metrics.OutcomeError)
		return nil, fmt.Errorf("create user: %w", err)
	}

	metrics.RecordAccountEvent(eventSignup, metrics.OutcomeSuccess)
	s.record(ctx, user.ID, models.AuditSignup, "")
	s.logger.InfoContext(ctx, "user signed up", "user_id", user.ID)
	return user, nil
}

// ==========================
// Login
// ==========================

// Login verifies credentials. Unknown email and wrong password both return
// ErrInvalidCredentials, and both paths perform one hash comparison.
func (s *Service) Login(ctx context.Context, email, rawPassword string) (*models.User, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		_ = s.hasher.Compare(s.dummy(), rawPassword)
		metrics.RecordAccountEvent(eventLogin, metrics.OutcomeFailure)
		s.record(ctx, 0, models.AuditLoginFailed, "unknown email")
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		metrics.RecordAccountEvent(eventLogin, metrics.OutcomeError)
		return nil, fmt.Errorf("lookup email: %w", err)
	}

	if err := s.hasher.Compare(user.PasswordHash, rawPassword); err != nil {
		if !errors.Is(err, password.ErrMismatch) {
			s.logger.WarnContext(ctx, "stored password hash unusable", "user_id", user.ID, "error", err)
		}
		metrics.RecordAccountEvent(eventLogin, metrics.OutcomeFailure)
		s.record(ctx, user.ID, models.AuditLoginFailed, "wrong password")
		return nil, ErrInvalidCredentials
	}

	metrics.RecordAccountEvent(eventLogin, metrics.OutcomeSuccess)
	s.record(ctx, user.ID, models.AuditLogin, "")
	return user, nil
}

// dummy returns a valid hash used to equalize login cost for unknown emails.
// A failed computation is not cached, so the next login retries it.
func (s *Service) dummy() string {
	s.dummyMu.Lock()
	defer s.dummyMu.Unlock()
	if s.dummyHash == "" {
		h, err := s.hasher.Hash(uuid.NewString())
		if err != nil {
			s.logger.Warn("compute dummy password hash", "error", err)
			return ""
		}
		s.dummyHash = h
	}
	return s.dummyHash
}

// ==========================
// Password reset
// ==========================

// RequestPasswordReset issues a reset token when the email belongs to a user. The result
// is nil whether or not the user exists; only store, token or notifier faults are returned.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		metrics.RecordAccountEvent(eventPasswordReset, metrics.OutcomeFailure)
		return nil
	}
	if err != nil {
		metrics.RecordAccountEvent(eventPasswordReset, metrics.OutcomeError)
		return fmt.Errorf("lookup email: %w", err)
	}

	if s.tokens == nil {
		// reset delivery not configured
		metrics.RecordAccountEvent(eventPasswordReset, metrics.OutcomeSuccess)
		s.record(ctx, user.ID, models.AuditPasswordReset, "no token issuer")
		return nil
	}

	token, err := s.tokens.Issue(user.ID)
	if err != nil {
		metrics.RecordAccountEvent(eventPasswordReset, metrics.OutcomeError)
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.notifier.NotifyPasswordReset(ctx, user, token); err != nil {
		metrics.RecordAccountEvent(eventPasswordReset, metrics.OutcomeError)
		return fmt.Errorf("notify password reset: %w", err)
	}

	metrics.RecordAccountEvent(eventPasswordReset, metrics.OutcomeSuccess)
	s.record(ctx, user.ID, models.AuditPasswordReset, "token "+token.ID)
	return nil
}

// ==========================
// Profile photo
// ==========================

// PhotoFilename builds a collision-resistant filename: random UUID + "_" + the base of
// the original name. Unsafe characters in the original name are replaced with '_'.
func PhotoFilename(original string) string {
	base := filepath.Base(strings.ReplaceAll(original, `\`, "/"))
	if base == "." || base == "/" || base == ".." {
		base = ""
	}
	base = strings.Map(func(r rune) rune {
		switch {
		case r < 0x20, r == 0x7f, r == '/', r == '\\':
			return '_'
		}
		return r
	}, base)
	if base == "" {
		return uuid.NewString()
	}
	return uuid.NewString() + "_" + base
}

// UploadProfilePhoto stores the photo under a generated filename and points the user's
// profilePhotoUrl at it. Returns the new URL.
func (s *Service) UploadProfilePhoto(ctx context.Context, email string, r io.Reader, originalFilename string) (string, error) {
	email = NormalizeEmail(email)

	user, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		metrics.RecordAccountEvent(eventPhotoUpload, metrics.OutcomeFailure)
		return "", ErrNotFound
	}
	if err != nil {
		metrics.RecordAccountEvent(eventPhotoUpload, metrics.OutcomeError)
		return "", fmt.Errorf("lookup email: %w", err)
	}

	name := PhotoFilename(originalFilename)
	if err := s.photos.Save(ctx, name, r); err != nil {
		metrics.RecordAccountEvent(eventPhotoUpload, metrics.OutcomeError)
		s.logger.ErrorContext(ctx, "store profile photo", "user_id", user.ID, "file", name, "error", err)
		return "", fmt.Errorf("%w (%v)", ErrStorage, err)
	}

	url := s.urlPrefix + name
	if _, err := s.users.UpdateProfilePhoto(ctx, user.ID, url); err != nil {
		metrics.RecordAccountEvent(eventPhotoUpload, metrics.OutcomeError)
		if errors.Is(err, repo.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("update profile photo: %w", err)
	}

	metrics.RecordAccountEvent(eventPhotoUpload, metrics.OutcomeSuccess)
	s.record(ctx, user.ID, models.AuditProfilePhotoUploaded, name)
	return url, nil
}

// GetProfile returns the public profile for email.
func (s *Service) GetProfile(ctx context.Context, email string) (*models.Profile, error) {
	user, err := s.users.GetByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup email: %w", err)
	}
	return user.Profile(), nil
}

// OpenProfilePhoto streams a stored photo by filename. Missing or invalid names yield ErrNotFound.
func (s *Service) OpenProfilePhoto(ctx context.Context, name string) (io.ReadCloser, error) {
	rc, err := s.photos.Open(ctx, name)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
		return nil, ErrNotFound
	}
	return rc, err
}

// record writes an audit entry; failures are logged and otherwise ignored.
func (s *Service) record(ctx context.Context, userID int, action, details string) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Log(ctx, userID, action, details); err != nil {
		s.logger.WarnContext(ctx, "audit log failed", "action", action, "user_id", userID, "error", err)
	}
}
