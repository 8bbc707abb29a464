package pgshipment

import (
	"context"
	"encoding/json"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pkg/errors"
)

func (s *Storage) GetEnhancedShipment(ctx context.Context, code string) (*models.EnhancedShipment, error) {
	var e models.EnhancedShipment
	var product, origin, current, dest []byte
	err := s.db.QueryRow(ctx, `
SELECT
  id, tracking_code, product_details,
  origin_location, origin_facility, origin_guardian, pickup_date,
  current_location, current_facility, current_guardian,
  destination_location, destination_facility, recipient_name, recipient_contact,
  estimated_delivery, journey_status, security_level, verification_status,
  created_at, updated_at
FROM enhanced_shipments
WHERE tracking_code = $1
`, code).Scan(
		&e.ID, &e.TrackingCode, &product,
		&origin, &e.OriginFacility, &e.OriginGuardian, &e.PickupDate,
		&current, &e.CurrentFacility, &e.CurrentGuardian,
		&dest, &e.DestinationFacility, &e.RecipientName, &e.RecipientContact,
		&e.EstimatedDelivery, &e.JourneyStatus, &e.SecurityLevel, &e.VerificationStatus,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select enhanced shipment")
	}

	e.Product = unmarshalProduct(product)
	e.OriginLocation = unmarshalLocation(origin)
	e.CurrentLocation = unmarshalLocation(current)
	e.DestinationLocation = unmarshalLocation(dest)
	return &e, nil
}

func (s *Storage) GetLegacyShipment(ctx context.Context, code string) (*models.Shipment, error) {
	var sh models.Shipment
	var product, origin, current, dest, del []byte
	err := s.db.QueryRow(ctx, `
SELECT
  id, tracking_code, product_details,
  origin_location, origin_facility, origin_guardian, pickup_date,
  current_location, current_facility, current_guardian,
  destination_location, destination_facility, recipient_name, recipient_contact,
  journey_status, security_level, verification_status,
  delivery_info, status, created_at, updated_at
FROM shipments
WHERE tracking_code = $1
`, code).Scan(
		&sh.ID, &sh.TrackingCode, &product,
		&origin, &sh.OriginFacility, &sh.OriginGuardian, &sh.PickupDate,
		&current, &sh.CurrentFacility, &sh.CurrentGuardian,
		&dest, &sh.DestinationFacility, &sh.RecipientName, &sh.RecipientContact,
		&sh.JourneyStatus, &sh.SecurityLevel, &sh.VerificationStatus,
		&del, &sh.Status, &sh.CreatedAt, &sh.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select legacy shipment")
	}

	sh.Product = unmarshalProduct(product)
	sh.OriginLocation = unmarshalLocation(origin)
	sh.CurrentLocation = unmarshalLocation(current)
	sh.DestinationLocation = unmarshalLocation(dest)
	if len(del) > 0 {
		var d models.DeliveryInfo
		if json.Unmarshal(del, &d) == nil {
			sh.Delivery = &d
		}
	}
	return &sh, nil
}

// UpdateShipmentStatus applies a courier update to whichever shape holds the
// shipment, preferring enhanced. A code with no shipment row yet gets a fresh
// enhanced row, so the first courier event creates the record.
func (s *Storage) UpdateShipmentStatus(ctx context.Context, code, status string, loc models.Location, estimatedDelivery *time.Time) error {
	locJSON, err := json.Marshal(loc)
	if err != nil {
		return errors.Wrap(err, "marshal location")
	}

	tag, err := s.db.Exec(ctx, `
UPDATE enhanced_shipments
SET journey_status = $2, current_location = $3, estimated_delivery = $4, updated_at = now()
WHERE tracking_code = $1
`, code, status, locJSON, estimatedDelivery)
	if err != nil {
		return errors.Wrap(err, "update enhanced shipment")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	tag, err = s.db.Exec(ctx, `
UPDATE shipments
SET status = $2,
    journey_status = $2,
    current_location = $3,
    delivery_info = jsonb_set(
      jsonb_set(COALESCE(delivery_info, '{}'::jsonb), '{currentStatus}', to_jsonb($2::text)),
      '{estimatedDelivery}', COALESCE(to_jsonb($4::timestamptz), 'null'::jsonb)
    ),
    updated_at = now()
WHERE tracking_code = $1
`, code, status, locJSON, estimatedDelivery)
	if err != nil {
		return errors.Wrap(err, "update legacy shipment")
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	now := time.Now().UTC()
	_, err = s.db.Exec(ctx, `
INSERT INTO enhanced_shipments (id, tracking_code, current_location, estimated_delivery, journey_status, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $6)
`, uuid.NewString(), code, locJSON, estimatedDelivery, status, now)
	return errors.Wrap(err, "insert enhanced shipment")
}

func unmarshalLocation(b []byte) *models.Location {
	if len(b) == 0 {
		return nil
	}
	var l models.Location
	if json.Unmarshal(b, &l) != nil {
		return nil
	}
	return &l
}

func unmarshalProduct(b []byte) *models.ProductDetails {
	if len(b) == 0 {
		return nil
	}
	var p models.ProductDetails
	if json.Unmarshal(b, &p) != nil {
		return nil
	}
	return &p
}
