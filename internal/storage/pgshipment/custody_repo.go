package pgshipment

import (
	"context"
	"encoding/json"

	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/pkg/errors"
)

func (s *Storage) GetCustodyChain(ctx context.Context, code string) ([]*models.CustodyEntry, error) {
	rows, err := s.db.Query(ctx, `
SELECT id, tracking_code, guardian_id, guardian_name, location, timestamp, status, notes, verified
FROM custody_chain
WHERE tracking_code = $1
ORDER BY timestamp ASC
`, code)
	if err != nil {
		return nil, errors.Wrap(err, "select custody chain")
	}
	defer rows.Close()

	var out []*models.CustodyEntry
	for rows.Next() {
		var e models.CustodyEntry
		var loc []byte
		if err := rows.Scan(
			&e.ID, &e.TrackingCode, &e.GuardianID, &e.GuardianName,
			&loc, &e.Timestamp, &e.Status, &e.Notes, &e.Verified,
		); err != nil {
			return nil, errors.Wrap(err, "scan custody entry")
		}
		if l := unmarshalLocation(loc); l != nil {
			e.Location = *l
		}
		out = append(out, &e)
	}
	return out, errors.Wrap(rows.Err(), "rows")
}

func (s *Storage) AppendCustodyEntry(ctx context.Context, entry *models.CustodyEntry) error {
	locJSON, err := json.Marshal(entry.Location)
	if err != nil {
		return errors.Wrap(err, "marshal location")
	}

	_, err = s.db.Exec(ctx, `
INSERT INTO custody_chain (id, tracking_code, guardian_id, guardian_name, location, timestamp, status, notes, verified)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, entry.ID, entry.TrackingCode, entry.GuardianID, entry.GuardianName,
		locJSON, entry.Timestamp, entry.Status, entry.Notes, entry.Verified)
	return errors.Wrap(err, "insert custody entry")
}
