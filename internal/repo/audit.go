package repo

import (
	"context"
	"database/sql"
)

// AuditRepo persists account audit log entries.
type AuditRepo struct {
	db *sql.DB
}

// NewAuditRepo returns a new AuditRepo.
func NewAuditRepo(db *sql.DB) *AuditRepo {
	return &AuditRepo{db: db}
}

// Log records an audit entry. userID 0 is stored as NULL (e.g. a failed login for an unknown email).
func (r *AuditRepo) Log(ctx context.Context, userID int, action, details string) error {
	uid := sql.NullInt64{Int64: int64(userID), Valid: userID > 0}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_log (user_id, action, details) VALUES ($1, $2, $3)`,
		uid, action, details,
	)
	return err
}
