package shipments

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/broker/messages"
	"github.com/KierLogistics/VaultTrack/internal/codegen"
	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// CourierUpdate is the inbound courier payload, shared by the HTTP webhook and
// the courier.updates kafka topic.
type CourierUpdate struct {
	TrackingCode      string          `json:"tracking_code"`
	Status            string          `json:"status"`
	Location          models.Location `json:"location"`
	Timestamp         time.Time       `json:"timestamp"`
	Courier           string          `json:"courier"`
	EstimatedDelivery *time.Time      `json:"estimated_delivery,omitempty"`
	GuardianID        string          `json:"guardian_id,omitempty"`
	GuardianName      string          `json:"guardian_name,omitempty"`
	Notes             string          `json:"notes,omitempty"`
}

// Validate checks the payload against the webhook schema. Any violation fails
// the whole update before a single side effect happens.
func (u CourierUpdate) Validate() error {
	var problems []string

	if !codegen.ValidateFlat(u.TrackingCode) {
		problems = append(problems, "tracking_code must be 12 uppercase alphanumeric characters")
	}
	if !validWebhookStatus(u.Status) {
		problems = append(problems, "status must be one of in-transit, customs, delayed, delivered, secured")
	}
	if u.Location.Latitude < -90 || u.Location.Latitude > 90 {
		problems = append(problems, "location.latitude out of range")
	}
	if u.Location.Longitude < -180 || u.Location.Longitude > 180 {
		problems = append(problems, "location.longitude out of range")
	}
	if u.Location.Address == "" {
		problems = append(problems, "location.address is required")
	}
	if u.Location.City == "" {
		problems = append(problems, "location.city is required")
	}
	if u.Location.Country == "" {
		problems = append(problems, "location.country is required")
	}
	if u.Timestamp.IsZero() {
		problems = append(problems, "timestamp is required")
	}
	if u.Courier == "" {
		problems = append(problems, "courier is required")
	}

	if len(problems) > 0 {
		return errors.WithMessage(ErrInvalidPayload, strings.Join(problems, "; "))
	}
	return nil
}

type UpdateResult struct {
	TrackingCode   string
	CustodyEntryID string
	UpdatedAt      time.Time
}

// ApplyCourierUpdate validates the payload, advances the delivery state and,
// when both guardian fields are present, appends a verified custody entry.
func (s *Service) ApplyCourierUpdate(ctx context.Context, upd CourierUpdate) (*UpdateResult, error) {
	if err := upd.Validate(); err != nil {
		return nil, err
	}

	row, err := s.store.GetTrackingCode(ctx, upd.TrackingCode)
	if err != nil {
		return nil, storeErr("get tracking code", err)
	}
	if row == nil || row.Status != models.CodeStatusActive {
		return nil, ErrNotFound
	}

	current := s.currentStatus(ctx, upd.TrackingCode)
	if isTerminal(current) && upd.Status != current {
		if s.opts.StrictTransitions {
			return nil, errors.WithMessagef(ErrTerminalStatus, "%s -> %s", current, upd.Status)
		}
		slog.Warn("courier update leaves terminal status",
			"code", upd.TrackingCode, "from", current, "to", upd.Status, "courier", upd.Courier)
	}

	if err := s.store.UpdateShipmentStatus(ctx, upd.TrackingCode, upd.Status, upd.Location, upd.EstimatedDelivery); err != nil {
		return nil, storeErr("update shipment status", err)
	}

	res := &UpdateResult{TrackingCode: upd.TrackingCode, UpdatedAt: time.Now().UTC()}

	if upd.GuardianID != "" && upd.GuardianName != "" {
		entry := &models.CustodyEntry{
			ID:           uuid.NewString(),
			TrackingCode: upd.TrackingCode,
			GuardianID:   upd.GuardianID,
			GuardianName: upd.GuardianName,
			Timestamp:    upd.Timestamp,
			Location:     upd.Location,
			Status:       upd.Status,
			Notes:        upd.Notes,
			Verified:     true,
		}
		if err := s.store.AppendCustodyEntry(ctx, entry); err != nil {
			return nil, storeErr("append custody entry", err)
		}
		res.CustodyEntryID = entry.ID
	}

	s.publishUpdated(ctx, upd, res)
	return res, nil
}

// currentStatus is a best-effort read used for the terminal-state check.
// Missing rows and read failures count as pending.
func (s *Service) currentStatus(ctx context.Context, code string) string {
	if e, err := s.store.GetEnhancedShipment(ctx, code); err == nil && e != nil {
		return strOr(e.JourneyStatus, models.StatusPending)
	}
	if l, err := s.store.GetLegacyShipment(ctx, code); err == nil && l != nil {
		if l.Delivery != nil && l.Delivery.CurrentStatus != "" {
			return l.Delivery.CurrentStatus
		}
		return strOr(l.JourneyStatus, models.StatusPending)
	}
	return models.StatusPending
}

// publishUpdated emits the shipment.updated event. The store is the source of
// truth, so a broker failure is logged, not propagated.
func (s *Service) publishUpdated(ctx context.Context, upd CourierUpdate, res *UpdateResult) {
	if s.opts.Publisher == nil || s.opts.UpdatedTopic == "" {
		return
	}
	msg := messages.ShipmentUpdated{
		TrackingCode:   upd.TrackingCode,
		Status:         upd.Status,
		Location:       upd.Location,
		Courier:        upd.Courier,
		CustodyEntryID: res.CustodyEntryID,
		UpdatedAt:      res.UpdatedAt,
	}
	b, err := json.Marshal(msg)
	if err != nil {
		slog.Warn("marshal shipment.updated", "err", err)
		return
	}
	if err := s.opts.Publisher.Publish(ctx, s.opts.UpdatedTopic, []byte(upd.TrackingCode), b); err != nil {
		slog.Warn("publish shipment.updated failed", "code", upd.TrackingCode, "err", err)
	}
}
