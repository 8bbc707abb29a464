// Package memshipment is an in-memory record store used for local development
// (no postgres required) and as the seam for service tests.
package memshipment

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/codegen"
	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
)

type Storage struct {
	mu       sync.RWMutex
	codes    map[string]*models.TrackingCode
	enhanced map[string]*models.EnhancedShipment
	legacy   map[string]*models.Shipment
	custody  map[string][]*models.CustodyEntry
}

func New() *Storage {
	return &Storage{
		codes:    map[string]*models.TrackingCode{},
		enhanced: map[string]*models.EnhancedShipment{},
		legacy:   map[string]*models.Shipment{},
		custody:  map[string][]*models.CustodyEntry{},
	}
}

func (s *Storage) GetTrackingCode(ctx context.Context, code string) (*models.TrackingCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	row, ok := s.codes[code]
	if !ok {
		return nil, nil
	}
	cp := *row
	return &cp, nil
}

func (s *Storage) InsertTrackingCode(ctx context.Context, row *models.TrackingCode) error {
	if row.Code == codegen.ReservedDemoCode {
		return errors.New("code is reserved")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.codes[row.Code]; ok {
		return errors.Errorf("duplicate code %s", row.Code)
	}
	cp := *row
	s.codes[row.Code] = &cp
	return nil
}

func (s *Storage) IncrementAccess(ctx context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.codes[code]
	if !ok {
		return nil
	}
	now := time.Now().UTC()
	row.AccessCount++
	row.LastAccessed = &now
	return nil
}

func (s *Storage) ListCodes(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.ListTrackingCodes(ctx, limit)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Code)
	}
	return out, nil
}

func (s *Storage) ListTrackingCodes(ctx context.Context, limit int) ([]*models.TrackingCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.TrackingCode, 0, len(s.codes))
	for _, row := range s.codes {
		cp := *row
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Storage) GetEnhancedShipment(ctx context.Context, code string) (*models.EnhancedShipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.enhanced[code]
	if !ok {
		return nil, nil
	}
	cp := *e
	return &cp, nil
}

func (s *Storage) GetLegacyShipment(ctx context.Context, code string) (*models.Shipment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.legacy[code]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (s *Storage) GetCustodyChain(ctx context.Context, code string) ([]*models.CustodyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := s.custody[code]
	out := make([]*models.CustodyEntry, 0, len(entries))
	for _, e := range entries {
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })
	return out, nil
}

func (s *Storage) UpdateShipmentStatus(ctx context.Context, code, status string, loc models.Location, estimatedDelivery *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()

	if e, ok := s.enhanced[code]; ok {
		e.JourneyStatus = status
		e.CurrentLocation = &loc
		e.EstimatedDelivery = estimatedDelivery
		e.UpdatedAt = now
		return nil
	}
	if l, ok := s.legacy[code]; ok {
		l.Status = status
		l.JourneyStatus = status
		l.CurrentLocation = &loc
		if l.Delivery == nil {
			l.Delivery = &models.DeliveryInfo{}
		}
		l.Delivery.CurrentStatus = status
		l.Delivery.EstimatedDelivery = estimatedDelivery
		l.UpdatedAt = now
		return nil
	}

	s.enhanced[code] = &models.EnhancedShipment{
		ID:                uuid.NewString(),
		TrackingCode:      code,
		CurrentLocation:   &loc,
		EstimatedDelivery: estimatedDelivery,
		JourneyStatus:     status,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	return nil
}

func (s *Storage) AppendCustodyEntry(ctx context.Context, entry *models.CustodyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	s.custody[entry.TrackingCode] = append(s.custody[entry.TrackingCode], &cp)
	return nil
}

// Seed helpers for local development and tests.

func (s *Storage) SeedEnhanced(e *models.EnhancedShipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.enhanced[e.TrackingCode] = &cp
}

func (s *Storage) SeedLegacy(l *models.Shipment) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.legacy[l.TrackingCode] = &cp
}
