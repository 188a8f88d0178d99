package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/isdelr/profileapp-be/internal/models"
)

const profileColumns = "id, name, email, title, bio, website, image_url, username, created_at"

// SQLStore persists profiles in the profiles table.
type SQLStore struct {
	db  *sql.DB
	now func() time.Time
}

var _ ProfileRepository = (*SQLStore)(nil)

// NewSQLStore creates a new SQLStore.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db, now: time.Now}
}

// scanProfile is a helper to scan a profile from a row or rows object.
func scanProfile(scanner interface{ Scan(...interface{}) error }) (models.Profile, error) {
	var p models.Profile
	err := scanner.Scan(&p.ID, &p.Name, &p.Email, &p.Title, &p.Bio, &p.Website, &p.ImageURL, &p.Username, &p.CreatedAt)
	return p, err
}

func (s *SQLStore) List(ctx context.Context) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+profileColumns+" FROM profiles ORDER BY seq DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

func (s *SQLStore) Get(ctx context.Context, id string) (models.Profile, error) {
	return s.get(ctx, s.db, id)
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

func (s *SQLStore) get(ctx context.Context, q queryRower, id string) (models.Profile, error) {
	p, err := scanProfile(q.QueryRowContext(ctx, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Profile{}, ErrProfileNotFound
		}
		return models.Profile{}, err
	}
	return p, nil
}

const maxIDQuery = "SELECT MAX(CAST(id AS INTEGER)) FROM profiles WHERE id GLOB '[0-9]*' AND id NOT GLOB '*[^0-9]*'"

func (s *SQLStore) Insert(ctx context.Context, profile models.Profile) (models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Profile{}, err
	}
	defer tx.Rollback()

	// Only all-digit ids count, matching nextID.
	var highest sql.NullInt64
	if err := tx.QueryRowContext(ctx, maxIDQuery).Scan(&highest); err != nil {
		return models.Profile{}, fmt.Errorf("failed to compute next id: %w", err)
	}
	profile.ID = strconv.FormatInt(highest.Int64+1, 10)
	profile.CreatedAt = s.now().UTC()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO profiles("+profileColumns+") VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)",
		profile.ID, profile.Name, profile.Email, profile.Title, profile.Bio,
		profile.Website, profile.ImageURL, profile.Username, profile.CreatedAt,
	)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Profile{}, err
	}
	return profile, nil
}

func (s *SQLStore) Update(ctx context.Context, id string, patch models.ProfilePatch) (models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Profile{}, err
	}
	defer tx.Rollback()

	current, err := s.get(ctx, tx, id)
	if err != nil {
		return models.Profile{}, err
	}
	updated := patch.Apply(current)

	_, err = tx.ExecContext(ctx,
		"UPDATE profiles SET name = ?, email = ?, title = ?, bio = ?, website = ?, image_url = ? WHERE id = ?",
		updated.Name, updated.Email, updated.Title, updated.Bio, updated.Website, updated.ImageURL, id,
	)
	if err != nil {
		return models.Profile{}, fmt.Errorf("failed to update profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Profile{}, err
	}
	return updated, nil
}

func (s *SQLStore) Remove(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProfileNotFound
	}
	return nil
}
