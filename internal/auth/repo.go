package auth

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mealdesk/mealdesk-console/internal/authz"
)

// SignInRecord is one sign-in audit entry.
type SignInRecord struct {
	SessionID   string
	PrincipalID int64
	Email       string
	Role        authz.Role
	IP          string
	UserAgent   string
	ExpiresAt   time.Time
}

// AuditRepository records sign-in activity for the settings audit trail.
type AuditRepository interface {
	RecordSignIn(ctx context.Context, rec SignInRecord) error
	CloseSession(ctx context.Context, sessionID string) error
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// PGAuditRepository implements AuditRepository using PostgreSQL.
type PGAuditRepository struct {
	pool *pgxpool.Pool
}

// NewAuditRepository constructs a PostgreSQL audit repository.
func NewAuditRepository(pool *pgxpool.Pool) *PGAuditRepository {
	return &PGAuditRepository{pool: pool}
}

// RecordSignIn inserts a sign-in entry. A repeated sign-in on the same
// browser session replaces the previous entry.
func (r *PGAuditRepository) RecordSignIn(ctx context.Context, rec SignInRecord) error {
	const insert = `
		INSERT INTO signin_audit (session_id, principal_id, email, role, ip, user_agent, signed_in_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, now(), $7)`
	_, err := r.pool.Exec(ctx, insert,
		rec.SessionID, rec.PrincipalID, rec.Email, string(rec.Role), rec.IP, rec.UserAgent, rec.ExpiresAt.UTC())
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		const update = `
			UPDATE signin_audit
			SET principal_id = $2, email = $3, role = $4, ip = $5, user_agent = $6,
			    signed_in_at = now(), signed_out_at = NULL, expires_at = $7
			WHERE session_id = $1`
		_, err = r.pool.Exec(ctx, update,
			rec.SessionID, rec.PrincipalID, rec.Email, string(rec.Role), rec.IP, rec.UserAgent, rec.ExpiresAt.UTC())
	}
	return err
}

// CloseSession stamps the entry's sign-out time.
func (r *PGAuditRepository) CloseSession(ctx context.Context, sessionID string) error {
	const query = `UPDATE signin_audit SET signed_out_at = now() WHERE session_id = $1 AND signed_out_at IS NULL`
	_, err := r.pool.Exec(ctx, query, sessionID)
	return err
}

// DeleteExpired removes entries whose remote session expired before the
// cutoff. Returns the number of rows removed.
func (r *PGAuditRepository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	const query = `DELETE FROM signin_audit WHERE expires_at < $1`
	tag, err := r.pool.Exec(ctx, query, before.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ AuditRepository = (*PGAuditRepository)(nil)
