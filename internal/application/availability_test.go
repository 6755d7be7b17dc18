package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/meeting-calendar/internal/scheduler"
)

func utcRange(t *testing.T, startHour, startMinute, endHour, endMinute int) scheduler.TimeRange {
	t.Helper()
	r, err := scheduler.NewTimeRange(
		time.Date(2024, 6, 1, startHour, startMinute, 0, 0, time.UTC),
		time.Date(2024, 6, 1, endHour, endMinute, 0, 0, time.UTC),
		time.UTC,
	)
	require.NoError(t, err)
	return r
}

func seedSession(t *testing.T, store *memoryStore, id string, r scheduler.TimeRange, cancelled bool) {
	t.Helper()
	session, err := scheduler.RestoreSession(scheduler.SessionSnapshot{
		ID: id, Title: id, OwnerID: "owner", Range: r, Cancelled: cancelled, Version: 1,
	})
	require.NoError(t, err)
	store.sessions[id] = session
}

func seedBlackout(t *testing.T, store *memoryStore, id string, r scheduler.TimeRange) {
	t.Helper()
	blackout, err := scheduler.NewBlackout(id, r, time.UTC, "admin", time.Time{})
	require.NoError(t, err)
	store.blackouts[id] = blackout
}

func TestAvailabilityIndex(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := newMemoryStore()
	seedSession(t, store, "active", utcRange(t, 10, 0, 11, 0), false)
	seedSession(t, store, "cancelled", utcRange(t, 12, 0, 13, 0), true)
	seedBlackout(t, store, "lunch", utcRange(t, 9, 0, 10, 0))
	index := NewAvailabilityIndex(store)

	cases := []struct {
		name      string
		r         scheduler.TimeRange
		exclude   []string
		available bool
	}{
		{"overlaps active session", utcRange(t, 10, 30, 11, 30), nil, false},
		{"touches active session", utcRange(t, 11, 0, 12, 0), nil, true},
		{"overlaps only a cancelled session", utcRange(t, 12, 0, 13, 0), nil, true},
		{"overlaps blackout", utcRange(t, 9, 30, 10, 15), nil, false},
		{"before the blackout", utcRange(t, 8, 0, 9, 0), nil, true},
		{"excluded self", utcRange(t, 10, 15, 10, 45), []string{"active"}, true},
		{"exclusion does not cover blackouts", utcRange(t, 9, 30, 9, 45), []string{"lunch"}, false},
	}
	for _, tc := range cases {
		available, err := index.IsAvailable(ctx, tc.r, tc.exclude...)
		require.NoError(t, err, tc.name)
		assert.Equal(t, tc.available, available, tc.name)
	}

	sessions, err := index.FindOverlappingSessions(ctx, utcRange(t, 8, 0, 14, 0))
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "active", sessions[0].ID)

	blackouts, err := index.FindOverlappingBlackouts(ctx, utcRange(t, 8, 0, 14, 0), "lunch")
	require.NoError(t, err)
	assert.Empty(t, blackouts)

	conflicts, err := index.Conflicts(ctx, utcRange(t, 9, 30, 10, 30))
	require.NoError(t, err)
	require.Len(t, conflicts, 2)
	assert.Equal(t, scheduler.ConflictTypeBlackout, conflicts[0].Type)
	assert.Equal(t, scheduler.ConflictTypeSession, conflicts[1].Type)
}

func TestAvailabilityIndex_Unconfigured(t *testing.T) {
	t.Parallel()

	var index *AvailabilityIndex
	if _, err := index.IsAvailable(context.Background(), scheduler.TimeRange{}); err == nil {
		t.Fatalf("expected error from nil index")
	}
}
