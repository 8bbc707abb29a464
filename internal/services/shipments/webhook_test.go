package shipments

import (
	"context"
	"testing"
	"time"

	"github.com/KierLogistics/VaultTrack/internal/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	topic  string
	keys   []string
	values [][]byte
	err    error
}

func (p *fakePublisher) Publish(ctx context.Context, topic string, key, value []byte) error {
	if p.err != nil {
		return p.err
	}
	p.topic = topic
	p.keys = append(p.keys, string(key))
	p.values = append(p.values, value)
	return nil
}

func validUpdate() CourierUpdate {
	return CourierUpdate{
		TrackingCode: "AU7B2N9X4LQZ",
		Status:       models.StatusInTransit,
		Location: models.Location{
			Latitude:  40.7128,
			Longitude: -74.006,
			Address:   "123 Wall Street",
			City:      "New York",
			Country:   "USA",
		},
		Timestamp: time.Now().UTC(),
		Courier:   "Kier Secure Transport",
	}
}

func TestCourierUpdate_Validate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*CourierUpdate)
	}{
		{"bogus status", func(u *CourierUpdate) { u.Status = "bogus" }},
		{"pending not accepted", func(u *CourierUpdate) { u.Status = models.StatusPending }},
		{"short code", func(u *CourierUpdate) { u.TrackingCode = "AU7B2N9X4L" }},
		{"lowercase code", func(u *CourierUpdate) { u.TrackingCode = "au7b2n9x4lqz" }},
		{"hyphenated code", func(u *CourierUpdate) { u.TrackingCode = "AU7-B2N9-X4LQ" }},
		{"latitude out of range", func(u *CourierUpdate) { u.Location.Latitude = 90.5 }},
		{"longitude out of range", func(u *CourierUpdate) { u.Location.Longitude = -180.5 }},
		{"missing address", func(u *CourierUpdate) { u.Location.Address = "" }},
		{"missing city", func(u *CourierUpdate) { u.Location.City = "" }},
		{"missing country", func(u *CourierUpdate) { u.Location.Country = "" }},
		{"missing timestamp", func(u *CourierUpdate) { u.Timestamp = time.Time{} }},
		{"missing courier", func(u *CourierUpdate) { u.Courier = "" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			u := validUpdate()
			tc.mutate(&u)
			require.ErrorIs(t, u.Validate(), ErrInvalidPayload)
		})
	}

	require.NoError(t, validUpdate().Validate())
}

func TestApplyCourierUpdate_InvalidPayloadIsFailClosed(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	s := New(f, nil, Options{})

	u := validUpdate()
	u.Status = "bogus"
	_, err := s.ApplyCourierUpdate(context.Background(), u)
	require.ErrorIs(t, err, ErrInvalidPayload)
	require.Empty(t, f.updates)
	require.Empty(t, f.appended)
}

func TestApplyCourierUpdate_UnknownCode(t *testing.T) {
	s := New(&fakeStore{}, nil, Options{})
	_, err := s.ApplyCourierUpdate(context.Background(), validUpdate())
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyCourierUpdate_UpdatesWithoutGuardian(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	s := New(f, nil, Options{})

	res, err := s.ApplyCourierUpdate(context.Background(), validUpdate())
	require.NoError(t, err)
	require.Equal(t, "AU7B2N9X4LQZ", res.TrackingCode)
	require.False(t, res.UpdatedAt.IsZero())
	require.Empty(t, res.CustodyEntryID)

	require.Equal(t, []string{"AU7B2N9X4LQZ:in-transit"}, f.updates)
	require.Empty(t, f.appended)
}

func TestApplyCourierUpdate_GuardianAppendsCustody(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	s := New(f, nil, Options{})

	u := validUpdate()
	u.GuardianID = "guardian-7"
	u.GuardianName = "Michael Chen"
	u.Notes = "handover at hub"

	res, err := s.ApplyCourierUpdate(context.Background(), u)
	require.NoError(t, err)
	require.NotEmpty(t, res.CustodyEntryID)

	require.Len(t, f.appended, 1)
	entry := f.appended[0]
	require.Equal(t, res.CustodyEntryID, entry.ID)
	require.Equal(t, "guardian-7", entry.GuardianID)
	require.Equal(t, "Michael Chen", entry.GuardianName)
	require.Equal(t, u.Timestamp, entry.Timestamp)
	require.Equal(t, u.Location, entry.Location)
	require.Equal(t, u.Status, entry.Status)
	require.Equal(t, "handover at hub", entry.Notes)
	require.True(t, entry.Verified)
}

func TestApplyCourierUpdate_GuardianIDAloneAppendsNothing(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	s := New(f, nil, Options{})

	u := validUpdate()
	u.GuardianID = "guardian-7"

	_, err := s.ApplyCourierUpdate(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, f.updates, 1)
	require.Empty(t, f.appended)
}

func TestApplyCourierUpdate_TerminalStatus(t *testing.T) {
	delivered := &models.EnhancedShipment{
		TrackingCode:  "AU7B2N9X4LQZ",
		JourneyStatus: models.StatusDelivered,
	}

	// Permissive by default: the update goes through.
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ"), enhanced: delivered}
	s := New(f, nil, Options{})
	_, err := s.ApplyCourierUpdate(context.Background(), validUpdate())
	require.NoError(t, err)
	require.Len(t, f.updates, 1)

	// Strict mode rejects leaving delivered/secured before any side effect.
	f = &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ"), enhanced: delivered}
	s = New(f, nil, Options{StrictTransitions: true})
	_, err = s.ApplyCourierUpdate(context.Background(), validUpdate())
	require.ErrorIs(t, err, ErrTerminalStatus)
	require.Empty(t, f.updates)
	require.Empty(t, f.appended)

	// Re-asserting the same terminal status is fine even in strict mode.
	f = &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ"), enhanced: delivered}
	s = New(f, nil, Options{StrictTransitions: true})
	u := validUpdate()
	u.Status = models.StatusDelivered
	_, err = s.ApplyCourierUpdate(context.Background(), u)
	require.NoError(t, err)
	require.Len(t, f.updates, 1)
}

func TestApplyCourierUpdate_StoreFailurePropagates(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ"), updateErr: errors.New("down")}
	s := New(f, nil, Options{})
	_, err := s.ApplyCourierUpdate(context.Background(), validUpdate())
	require.ErrorIs(t, err, ErrStoreUnavailable)

	u := validUpdate()
	u.GuardianID = "g"
	u.GuardianName = "n"
	f = &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ"), appendErr: errors.New("down")}
	s = New(f, nil, Options{})
	_, err = s.ApplyCourierUpdate(context.Background(), u)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestApplyCourierUpdate_PublishesEvent(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	p := &fakePublisher{}
	s := New(f, nil, Options{Publisher: p, UpdatedTopic: "shipment.updated"})

	_, err := s.ApplyCourierUpdate(context.Background(), validUpdate())
	require.NoError(t, err)
	require.Equal(t, "shipment.updated", p.topic)
	require.Equal(t, []string{"AU7B2N9X4LQZ"}, p.keys)
	require.Contains(t, string(p.values[0]), `"in-transit"`)
}

func TestApplyCourierUpdate_PublishFailureIsBestEffort(t *testing.T) {
	f := &fakeStore{codeRow: activeCode("AU7B2N9X4LQZ")}
	p := &fakePublisher{err: errors.New("broker down")}
	s := New(f, nil, Options{Publisher: p, UpdatedTopic: "shipment.updated"})

	_, err := s.ApplyCourierUpdate(context.Background(), validUpdate())
	require.NoError(t, err)
}
