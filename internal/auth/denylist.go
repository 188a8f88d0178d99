package auth

import (
	"context"
	"database/sql"
	"time"
)

// SQLDenylist stores revoked token ids in the revoked_tokens table.
type SQLDenylist struct {
	db *sql.DB
}

var _ Denylist = (*SQLDenylist)(nil)

// NewSQLDenylist creates a new SQLDenylist.
func NewSQLDenylist(db *sql.DB) *SQLDenylist {
	return &SQLDenylist{db: db}
}

// Revoke marks jti as revoked until the given time.
func (d *SQLDenylist) Revoke(ctx context.Context, jti string, until time.Time) error {
	_, err := d.db.ExecContext(ctx,
		"INSERT INTO revoked_tokens (jti, expires_at) VALUES (?, ?) ON CONFLICT(jti) DO UPDATE SET expires_at = excluded.expires_at",
		jti, until.Unix())
	return err
}

// IsRevoked reports whether jti has been revoked.
func (d *SQLDenylist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM revoked_tokens WHERE jti = ?)", jti).Scan(&exists)
	return exists, err
}

// Purge deletes entries whose tokens have expired anyway.
func (d *SQLDenylist) Purge(ctx context.Context, now time.Time) (int64, error) {
	res, err := d.db.ExecContext(ctx, "DELETE FROM revoked_tokens WHERE expires_at < ?", now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
