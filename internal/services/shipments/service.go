package shipments

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/cache"
	"github.com/KierLogistics/VaultTrack/internal/codegen"
	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/pkg/errors"
)

// Error taxonomy. Handlers map these to 404/500/400/409.
var (
	ErrNotFound         = errors.New("tracking code not found or inactive")
	ErrStoreUnavailable = errors.New("record store unavailable")
	ErrInvalidPayload   = errors.New("invalid webhook payload")
	ErrTerminalStatus   = errors.New("shipment already in terminal status")
)

// Store is the record store collaborator. Shipment-shape getters return
// (nil, nil) when no row exists; only transport/database failures are errors.
type Store interface {
	GetTrackingCode(ctx context.Context, code string) (*models.TrackingCode, error)
	GetEnhancedShipment(ctx context.Context, code string) (*models.EnhancedShipment, error)
	GetLegacyShipment(ctx context.Context, code string) (*models.Shipment, error)
	GetCustodyChain(ctx context.Context, code string) ([]*models.CustodyEntry, error)
	UpdateShipmentStatus(ctx context.Context, code, status string, loc models.Location, estimatedDelivery *time.Time) error
	AppendCustodyEntry(ctx context.Context, entry *models.CustodyEntry) error
	IncrementAccess(ctx context.Context, code string) error
	InsertTrackingCode(ctx context.Context, row *models.TrackingCode) error
	ListCodes(ctx context.Context, limit int) ([]string, error)
	ListTrackingCodes(ctx context.Context, limit int) ([]*models.TrackingCode, error)
}

type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

type Options struct {
	// Publisher may be nil; shipment.updated events are then skipped.
	Publisher    Publisher
	UpdatedTopic string

	// StrictTransitions rejects webhook updates out of delivered/secured.
	// Off by default: couriers do send correction events.
	StrictTransitions bool

	// ListTTL controls caching of the admin code listing.
	ListTTL time.Duration
}

type Service struct {
	store Store
	cache cache.BytesCache
	opts  Options
}

func New(store Store, c cache.BytesCache, opts Options) *Service {
	return &Service{store: store, cache: c, opts: opts}
}

// Track assembles the public view for a tracking code. The reserved demo code
// short-circuits to a fixture without touching the store.
func (s *Service) Track(ctx context.Context, code string) (*models.TrackingView, error) {
	if code == codegen.ReservedDemoCode {
		return demoFixture(time.Now().UTC()), nil
	}

	row, err := s.store.GetTrackingCode(ctx, code)
	if err != nil {
		return nil, storeErr("get tracking code", err)
	}
	if row == nil || row.Status != models.CodeStatusActive {
		return nil, ErrNotFound
	}

	// The shipment shapes and the custody chain are optional sub-fetches:
	// a failure degrades to defaults instead of failing the lookup.
	enhanced, err := s.store.GetEnhancedShipment(ctx, code)
	if err != nil {
		slog.Warn("enhanced shipment fetch failed, using defaults", "code", code, "err", err)
		enhanced = nil
	}
	var legacy *models.Shipment
	if enhanced == nil {
		legacy, err = s.store.GetLegacyShipment(ctx, code)
		if err != nil {
			slog.Warn("legacy shipment fetch failed, using defaults", "code", code, "err", err)
			legacy = nil
		}
	}
	chain, err := s.store.GetCustodyChain(ctx, code)
	if err != nil {
		slog.Warn("custody chain fetch failed, using defaults", "code", code, "err", err)
		chain = nil
	}

	view := reconcile(code, enhanced, legacy, chain, time.Now().UTC())

	// Best-effort: the counter bump must never delay or fail the lookup.
	go s.bumpAccess(code)

	return view, nil
}

func (s *Service) bumpAccess(code string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.store.IncrementAccess(ctx, code); err != nil {
		slog.Warn("access counter update failed", "code", code, "err", err)
	}
}

// IssueCode generates a flat-format code, verifies it against the store and
// persists it. Retries are bounded the same way as the secure generator.
func (s *Service) IssueCode(ctx context.Context) (*models.TrackingCode, error) {
	const maxAttempts = 100
	for attempt := 0; attempt < maxAttempts; attempt++ {
		code := codegen.GenerateFlat()
		row, err := s.store.GetTrackingCode(ctx, code)
		if err != nil {
			return nil, storeErr("get tracking code", err)
		}
		if row != nil {
			continue
		}
		tc := &models.TrackingCode{
			Code:      code,
			Status:    models.CodeStatusActive,
			CreatedAt: time.Now().UTC(),
		}
		if err := s.store.InsertTrackingCode(ctx, tc); err != nil {
			return nil, storeErr("insert tracking code", err)
		}
		return tc, nil
	}
	return nil, codegen.ErrExhaustedRetries
}

// IssueBatch generates n secure-format codes, excluding every code the store
// already knows plus earlier draws of the same batch, and persists them.
func (s *Service) IssueBatch(ctx context.Context, n int) ([]*models.TrackingCode, error) {
	if n <= 0 {
		return nil, errors.New("count must be positive")
	}
	if n > 100 {
		return nil, errors.New("count too large (max 100)")
	}

	existing, err := s.store.ListCodes(ctx, 0)
	if err != nil {
		return nil, storeErr("list codes", err)
	}
	codes, err := codegen.GenerateBatch(n, existing)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]*models.TrackingCode, 0, len(codes))
	for _, code := range codes {
		tc := &models.TrackingCode{Code: code, Status: models.CodeStatusActive, CreatedAt: now}
		if err := s.store.InsertTrackingCode(ctx, tc); err != nil {
			return nil, storeErr("insert tracking code", err)
		}
		out = append(out, tc)
	}
	return out, nil
}

// ListTrackingCodes returns code rows for the admin listing, newest first.
// Responses are cached briefly; the cache is best-effort, so absent or
// failing redis never fails the listing.
func (s *Service) ListTrackingCodes(ctx context.Context, limit int) ([]*models.TrackingCode, error) {
	key := listKey(limit)
	if s.cache != nil && s.opts.ListTTL > 0 {
		if b, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var rows []*models.TrackingCode
			if json.Unmarshal(b, &rows) == nil {
				return rows, nil
			}
		}
	}

	rows, err := s.store.ListTrackingCodes(ctx, limit)
	if err != nil {
		return nil, storeErr("list tracking codes", err)
	}
	if s.cache != nil && s.opts.ListTTL > 0 {
		if b, err := json.Marshal(rows); err == nil {
			_ = s.cache.Set(ctx, key, b, s.opts.ListTTL)
		}
	}
	return rows, nil
}

func listKey(limit int) string {
	return fmt.Sprintf("tracking-codes:list:%d", limit)
}

func storeErr(op string, err error) error {
	return errors.WithMessagef(ErrStoreUnavailable, "%s: %v", op, err)
}
