package pgshipment

import (
	"context"

	"github.com/pkg/errors"
)

func (s *Storage) initSchema(ctx context.Context) error {
	stmts := []string{
		`
CREATE TABLE IF NOT EXISTS tracking_codes (
  code TEXT PRIMARY KEY,
  status TEXT NOT NULL DEFAULT 'active',
  created_at TIMESTAMPTZ NOT NULL,
  last_accessed TIMESTAMPTZ NULL,
  access_count BIGINT NOT NULL DEFAULT 0
)`,
		// Legacy shipment shape: the delivery block lives in a JSONB column.
		`
CREATE TABLE IF NOT EXISTS shipments (
  id TEXT PRIMARY KEY,
  tracking_code TEXT NOT NULL UNIQUE REFERENCES tracking_codes(code),
  product_details JSONB NULL,
  origin_location JSONB NULL,
  origin_facility TEXT NOT NULL DEFAULT '',
  origin_guardian TEXT NOT NULL DEFAULT '',
  pickup_date TIMESTAMPTZ NULL,
  current_location JSONB NULL,
  current_facility TEXT NOT NULL DEFAULT '',
  current_guardian TEXT NOT NULL DEFAULT '',
  destination_location JSONB NULL,
  destination_facility TEXT NOT NULL DEFAULT '',
  recipient_name TEXT NOT NULL DEFAULT '',
  recipient_contact TEXT NOT NULL DEFAULT '',
  journey_status TEXT NOT NULL DEFAULT '',
  security_level TEXT NOT NULL DEFAULT '',
  verification_status TEXT NOT NULL DEFAULT '',
  delivery_info JSONB NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		// Enhanced shipment shape: delivery fields flattened into columns.
		`
CREATE TABLE IF NOT EXISTS enhanced_shipments (
  id TEXT PRIMARY KEY,
  tracking_code TEXT NOT NULL UNIQUE REFERENCES tracking_codes(code),
  product_details JSONB NULL,
  origin_location JSONB NULL,
  origin_facility TEXT NOT NULL DEFAULT '',
  origin_guardian TEXT NOT NULL DEFAULT '',
  pickup_date TIMESTAMPTZ NULL,
  current_location JSONB NULL,
  current_facility TEXT NOT NULL DEFAULT '',
  current_guardian TEXT NOT NULL DEFAULT '',
  destination_location JSONB NULL,
  destination_facility TEXT NOT NULL DEFAULT '',
  recipient_name TEXT NOT NULL DEFAULT '',
  recipient_contact TEXT NOT NULL DEFAULT '',
  estimated_delivery TIMESTAMPTZ NULL,
  journey_status TEXT NOT NULL DEFAULT 'pending',
  security_level TEXT NOT NULL DEFAULT '',
  verification_status TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMPTZ NOT NULL,
  updated_at TIMESTAMPTZ NOT NULL
)`,
		`
CREATE TABLE IF NOT EXISTS custody_chain (
  id TEXT PRIMARY KEY,
  tracking_code TEXT NOT NULL REFERENCES tracking_codes(code),
  guardian_id TEXT NOT NULL,
  guardian_name TEXT NOT NULL,
  location JSONB NULL,
  timestamp TIMESTAMPTZ NOT NULL,
  status TEXT NOT NULL,
  notes TEXT NOT NULL DEFAULT '',
  verified BOOLEAN NOT NULL DEFAULT FALSE
)`,
		`CREATE INDEX IF NOT EXISTS idx_custody_chain_code_ts ON custody_chain(tracking_code, timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_tracking_codes_created_at ON tracking_codes(created_at DESC)`,
	}

	for _, q := range stmts {
		if _, err := s.db.Exec(ctx, q); err != nil {
			return errors.Wrap(err, "init schema")
		}
	}
	return nil
}
