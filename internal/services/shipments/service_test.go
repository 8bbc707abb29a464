package shipments

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/codegen"
	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu sync.Mutex

	codeRow     *models.TrackingCode
	codeErr     error
	enhanced    *models.EnhancedShipment
	enhancedErr error
	legacy      *models.Shipment
	legacyErr   error
	chain       []*models.CustodyEntry
	chainErr    error

	updateErr error
	appendErr error
	insertErr error
	incErr    error

	existingCodes []string

	legacyCalls int
	updates     []string
	appended    []*models.CustodyEntry
	inserted    []*models.TrackingCode
	incremented []string
}

func (f *fakeStore) GetTrackingCode(ctx context.Context, code string) (*models.TrackingCode, error) {
	if f.codeErr != nil {
		return nil, f.codeErr
	}
	if f.codeRow != nil && f.codeRow.Code == code {
		return f.codeRow, nil
	}
	return nil, nil
}

func (f *fakeStore) GetEnhancedShipment(ctx context.Context, code string) (*models.EnhancedShipment, error) {
	return f.enhanced, f.enhancedErr
}

func (f *fakeStore) GetLegacyShipment(ctx context.Context, code string) (*models.Shipment, error) {
	f.legacyCalls++
	return f.legacy, f.legacyErr
}

func (f *fakeStore) GetCustodyChain(ctx context.Context, code string) ([]*models.CustodyEntry, error) {
	return f.chain, f.chainErr
}

func (f *fakeStore) UpdateShipmentStatus(ctx context.Context, code, status string, loc models.Location, estimatedDelivery *time.Time) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates = append(f.updates, code+":"+status)
	return nil
}

func (f *fakeStore) AppendCustodyEntry(ctx context.Context, entry *models.CustodyEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, entry)
	return nil
}

func (f *fakeStore) IncrementAccess(ctx context.Context, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.incErr != nil {
		return f.incErr
	}
	f.incremented = append(f.incremented, code)
	return nil
}

func (f *fakeStore) incrementedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.incremented)
}

func (f *fakeStore) InsertTrackingCode(ctx context.Context, row *models.TrackingCode) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.inserted = append(f.inserted, row)
	return nil
}

func (f *fakeStore) ListCodes(ctx context.Context, limit int) ([]string, error) {
	return f.existingCodes, nil
}

func (f *fakeStore) ListTrackingCodes(ctx context.Context, limit int) ([]*models.TrackingCode, error) {
	out := make([]*models.TrackingCode, 0, len(f.existingCodes))
	for _, c := range f.existingCodes {
		out = append(out, &models.TrackingCode{Code: c, Status: models.CodeStatusActive})
	}
	return out, nil
}

type fakeCache struct {
	m map[string][]byte
}

func (c *fakeCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, ok := c.m[key]
	return b, ok, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.m[key] = value
	return nil
}

func activeCode(code string) *models.TrackingCode {
	return &models.TrackingCode{Code: code, Status: models.CodeStatusActive, CreatedAt: time.Now().UTC()}
}

func TestTrack_DemoCodeBypassesStore(t *testing.T) {
	f := &fakeStore{codeErr: errors.New("store down")}
	s := New(f, nil, Options{})

	view, err := s.Track(context.Background(), codegen.ReservedDemoCode)
	require.NoError(t, err)
	require.Equal(t, codegen.ReservedDemoCode, view.TrackingCode)
	require.Equal(t, "Gold Bars", view.Product.Type)
	require.Len(t, view.CustodyChain, 3)
	require.Equal(t, models.StatusInTransit, view.JourneyStatus)
	require.Zero(t, f.incrementedCount())
}

func TestTrack_NotFound(t *testing.T) {
	s := New(&fakeStore{}, nil, Options{})
	_, err := s.Track(context.Background(), "MISSING7B2N9")
	require.ErrorIs(t, err, ErrNotFound)

	inactive := activeCode("INACTIVE7B2N")
	inactive.Status = models.CodeStatusInactive
	s = New(&fakeStore{codeRow: inactive}, nil, Options{})
	_, err = s.Track(context.Background(), "INACTIVE7B2N")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestTrack_StoreUnavailable(t *testing.T) {
	s := New(&fakeStore{codeErr: errors.New("conn refused")}, nil, Options{})
	_, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.NotErrorIs(t, err, ErrNotFound)
}

func TestTrack_DefaultsWhenNoShipment(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	s := New(f, nil, Options{})

	view, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)

	require.Equal(t, "Gold Shipment", view.Product.Type)
	require.Equal(t, "kg", view.Product.WeightUnit)
	require.Equal(t, 999.5, view.Product.Purity)
	require.Equal(t, "Pending", view.Product.SerialNumber)
	require.NotNil(t, view.Product.Photos)
	require.Empty(t, view.Product.Photos)

	require.Equal(t, "Processing Center", view.CurrentLocation.Address)
	require.Equal(t, "Kier Logistics Hub", view.CurrentLocation.Facility)
	require.Zero(t, view.CurrentLocation.Latitude)

	require.Equal(t, "Origin Location", view.Origin.Location.Address)
	require.Equal(t, "Destination Address", view.Destination.Location.Address)
	require.Equal(t, "Recipient Name", view.Destination.RecipientName)

	require.Equal(t, models.StatusPending, view.JourneyStatus)
	require.Equal(t, models.StatusPending, view.Delivery.CurrentStatus)
	require.Equal(t, "high", view.SecurityLevel)
	require.Equal(t, "pending", view.VerificationStatus)
	require.Empty(t, view.CustodyChain)
	require.False(t, view.LastUpdated.IsZero())
}

func TestTrack_SubFetchFailuresDegrade(t *testing.T) {
	f := &fakeStore{
		codeRow:     activeCode("AU7B2N9X4LQZ"),
		enhancedErr: errors.New("timeout"),
		legacyErr:   errors.New("timeout"),
		chainErr:    errors.New("timeout"),
	}
	s := New(f, nil, Options{})

	view, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)
	require.Equal(t, models.StatusPending, view.JourneyStatus)
}

func TestTrack_EnhancedTakesPrecedence(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	f := &fakeStore{
		codeRow: activeCode("AU7B2N9X4LQZ"),
		enhanced: &models.EnhancedShipment{
			ID:            "enh-1",
			TrackingCode:  "AU7B2N9X4LQZ",
			Product:       &models.ProductDetails{Type: "Gold Bars"},
			JourneyStatus: models.StatusCustoms,
			UpdatedAt:     now,
		},
		legacy: &models.Shipment{
			ID:      "leg-1",
			Product: &models.ProductDetails{Type: "Silver Bars"},
		},
	}
	s := New(f, nil, Options{})

	view, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)
	require.Equal(t, "Gold Bars", view.Product.Type)
	require.Equal(t, "enh-1", view.Product.ID)
	require.Equal(t, models.StatusCustoms, view.JourneyStatus)
	require.Equal(t, models.StatusCustoms, view.Delivery.CurrentStatus)
	require.Equal(t, now, view.LastUpdated)
	// Legacy shape is consulted only when no enhanced row exists.
	require.Zero(t, f.legacyCalls)
}

func TestTrack_FieldLevelDefaults(t *testing.T) {
	f := &fakeStore{
		codeRow: activeCode("AU7B2N9X4LQZ"),
		legacy: &models.Shipment{
			Product: &models.ProductDetails{Type: "Platinum Ingots"},
		},
	}
	s := New(f, nil, Options{})

	view, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)

	// The known field survives untouched, everything else defaults.
	require.Equal(t, "Platinum Ingots", view.Product.Type)
	require.Equal(t, "kg", view.Product.WeightUnit)
	require.Equal(t, 999.5, view.Product.Purity)
	require.Equal(t, "999.5", view.Product.PurityUnit)
	require.Equal(t, "Pending", view.Product.SerialNumber)
	require.Equal(t, "Shipment details pending", view.Product.Description)
}

func TestTrack_CustodyChainSortedAscending(t *testing.T) {
	now := time.Now().UTC()
	f := &fakeStore{
		codeRow: activeCode("AU7B2N9X4LQZ"),
		chain: []*models.CustodyEntry{
			{ID: "c3", Timestamp: now.Add(2 * time.Hour)},
			{ID: "c1", Timestamp: now},
			{ID: "c2", Timestamp: now.Add(time.Hour)},
		},
	}
	s := New(f, nil, Options{})

	view, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)
	require.Len(t, view.CustodyChain, 3)
	require.Equal(t, "c1", view.CustodyChain[0].ID)
	require.Equal(t, "c2", view.CustodyChain[1].ID)
	require.Equal(t, "c3", view.CustodyChain[2].ID)
	// Nested locations get the custody default treatment.
	require.Equal(t, "Unknown", view.CustodyChain[0].Location.Address)
}

func TestTrack_Idempotent(t *testing.T) {
	now := time.Now().UTC().Truncate(time.Second)
	f := &fakeStore{
		codeRow: activeCode("AU7B2N9X4LQZ"),
		legacy: &models.Shipment{
			ID:        "leg-1",
			Product:   &models.ProductDetails{Type: "Gold Bars", Weight: 1.5},
			UpdatedAt: now,
		},
		chain: []*models.CustodyEntry{
			{ID: "c1", Timestamp: now.Add(-time.Hour), GuardianName: "A"},
		},
	}
	s := New(f, nil, Options{})

	v1, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)
	v2, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)

	b1, err := json.Marshal(v1)
	require.NoError(t, err)
	b2, err := json.Marshal(v2)
	require.NoError(t, err)
	require.JSONEq(t, string(b1), string(b2))
}

func TestTrack_AccessCounterFireAndForget(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	s := New(f, nil, Options{})

	_, err := s.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return f.incrementedCount() == 1 }, time.Second, 5*time.Millisecond)

	// A failing counter update never fails the lookup.
	f2 := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ"), incErr: errors.New("down")}
	s2 := New(f2, nil, Options{})
	_, err = s2.Track(context.Background(), "AU7B2N9X4LQZ")
	require.NoError(t, err)
}

func TestIssueCode(t *testing.T) {
	f := &fakeStore{}
	s := New(f, nil, Options{})

	tc, err := s.IssueCode(context.Background())
	require.NoError(t, err)
	require.True(t, codegen.ValidateFlat(tc.Code))
	require.Equal(t, models.CodeStatusActive, tc.Status)
	require.Len(t, f.inserted, 1)
	require.Equal(t, tc.Code, f.inserted[0].Code)
}

func TestIssueCode_StoreErrors(t *testing.T) {
	s := New(&fakeStore{codeErr: errors.New("down")}, nil, Options{})
	_, err := s.IssueCode(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)

	s = New(&fakeStore{insertErr: errors.New("down")}, nil, Options{})
	_, err = s.IssueCode(context.Background())
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestIssueBatch(t *testing.T) {
	f := &fakeStore{existingCodes: []string{"AAA-AAAA-AAAA"}}
	s := New(f, nil, Options{})

	out, err := s.IssueBatch(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, out, 10)
	require.Len(t, f.inserted, 10)

	seen := map[string]struct{}{}
	for _, tc := range out {
		require.True(t, codegen.Validate(tc.Code))
		_, dup := seen[tc.Code]
		require.False(t, dup)
		seen[tc.Code] = struct{}{}
	}
}

func TestIssueBatch_Validate(t *testing.T) {
	s := New(&fakeStore{}, nil, Options{})
	_, err := s.IssueBatch(context.Background(), 0)
	require.Error(t, err)
	_, err = s.IssueBatch(context.Background(), 101)
	require.Error(t, err)
}

func TestListTrackingCodes_Cached(t *testing.T) {
	f := &fakeStore{existingCodes: []string{"AU7B2N9X4LQZ"}}
	c := &fakeCache{m: map[string][]byte{}}
	s := New(f, c, Options{ListTTL: time.Minute})

	rows, err := s.ListTrackingCodes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// Second call is served from cache even if the store changes.
	f.existingCodes = nil
	rows, err = s.ListTrackingCodes(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
}
