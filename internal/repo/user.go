package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/crucial707/hci-account/internal/models"
	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no user row matches.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when an insert hits the users_email_key constraint.
	ErrDuplicateEmail = errors.New("email already exists")
)

// pqUniqueViolation is the postgres SQLSTATE for unique_violation.
const pqUniqueViolation = "23505"

const userColumns = `id, name, email, password_hash, profile_photo_url, created_at`

// ==========================
// UserRepo
// ==========================
type UserRepo struct {
	DB *sql.DB
}

// ==========================
// Constructor
// ==========================
func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{DB: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*models.User, error) {
	user := &models.User{}
	var photo sql.NullString
	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &photo, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if photo.Valid {
		user.ProfilePhotoURL = &photo.String
	}
	return user, nil
}

// ==========================
// Create User
// ==========================
func (r *UserRepo) Create(ctx context.Context, name, email, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns

	user, err := scanUser(r.DB.QueryRowContext(ctx, query, name, email, passwordHash))
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == pqUniqueViolation {
			return nil, ErrDuplicateEmail
		}
		return nil, err
	}
	return user, nil
}

// ==========================
// Get By Email
// ==========================
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.DB.QueryRowContext(ctx, query, email))
}

// ==========================
// Update Profile Photo
// ==========================
func (r *UserRepo) UpdateProfilePhoto(ctx context.Context, id int, url string) (*models.User, error) {
	query := `
		UPDATE users
		SET profile_photo_url = $1
		WHERE id = $2
		RETURNING ` + userColumns

	return scanUser(r.DB.QueryRowContext(ctx, query, url, id))
}

// ==========================
// List Profile Photo URLs
// ==========================

// ListProfilePhotoURLs returns every non-null profile_photo_url.
func (r *UserRepo) ListProfilePhotoURLs(ctx context.Context) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT profile_photo_url FROM users WHERE profile_photo_url IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var urls []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		urls = append(urls, u)
	}
	return urls, rows.Err()
}
