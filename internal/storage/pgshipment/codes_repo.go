package pgshipment

import (
	"context"

	"github.com/KierLogistics/VaultTrack/internal/codegen"
	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) GetTrackingCode(ctx context.Context, code string) (*models.TrackingCode, error) {
	var tc models.TrackingCode
	err := s.db.QueryRow(ctx, `
SELECT code, status, created_at, last_accessed, access_count
FROM tracking_codes
WHERE code = $1
`, code).Scan(&tc.Code, &tc.Status, &tc.CreatedAt, &tc.LastAccessed, &tc.AccessCount)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select tracking code")
	}
	return &tc, nil
}

func (s *Storage) InsertTrackingCode(ctx context.Context, row *models.TrackingCode) error {
	if row.Code == codegen.ReservedDemoCode {
		return errors.New("code is reserved")
	}
	_, err := s.db.Exec(ctx, `
INSERT INTO tracking_codes (code, status, created_at, access_count)
VALUES ($1, $2, $3, 0)
`, row.Code, row.Status, row.CreatedAt)
	return errors.Wrap(err, "insert tracking code")
}

func (s *Storage) IncrementAccess(ctx context.Context, code string) error {
	_, err := s.db.Exec(ctx, `
UPDATE tracking_codes
SET access_count = access_count + 1, last_accessed = now()
WHERE code = $1
`, code)
	return errors.Wrap(err, "increment access")
}

func (s *Storage) ListCodes(ctx context.Context, limit int) ([]string, error) {
	q := `SELECT code FROM tracking_codes ORDER BY created_at DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT $1`
		args = append(args, limit)
	}

	rows, err := s.db.Query(ctx, q, args...)
	if err != nil {
		return nil, errors.Wrap(err, "select codes")
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, errors.Wrap(err, "scan code")
		}
		out = append(out, code)
	}
	return out, errors.Wrap(rows.Err(), "rows")
}

func (s *Storage) ListTrackingCodes(ctx context.Context, limit int) ([]*models.TrackingCode, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := s.db.Query(ctx, `
SELECT code, status, created_at, last_accessed, access_count
FROM tracking_codes
ORDER BY created_at DESC
LIMIT $1
`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "select tracking codes")
	}
	defer rows.Close()

	var out []*models.TrackingCode
	for rows.Next() {
		var tc models.TrackingCode
		if err := rows.Scan(&tc.Code, &tc.Status, &tc.CreatedAt, &tc.LastAccessed, &tc.AccessCount); err != nil {
			return nil, errors.Wrap(err, "scan tracking code")
		}
		out = append(out, &tc)
	}
	return out, errors.Wrap(rows.Err(), "rows")
}
