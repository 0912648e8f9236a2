package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseClock(t *testing.T) {
	hour, minute, err := ParseClock("09:30")
	require.NoError(t, err)
	assert.Equal(t, 9, hour)
	assert.Equal(t, 30, minute)

	hour, minute, err = ParseClock("00:00")
	require.NoError(t, err)
	assert.Zero(t, hour)
	assert.Zero(t, minute)

	for _, bad := range []string{"", "24:00", "12:60", "noon", "12-30"} {
		_, _, err := ParseClock(bad)
		assert.ErrorIs(t, err, ErrInvalidClock, "clock %q", bad)
	}
}

func TestStartInstant(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	date := time.Date(2026, time.September, 14, 0, 0, 0, 0, time.UTC)
	got, err := StartInstant(date, "14:30", loc)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2026, time.September, 14, 14, 30, 0, 0, loc), got)

	_, err = StartInstant(date, "99:99", loc)
	assert.ErrorIs(t, err, ErrInvalidClock)
}

func TestStatusValid(t *testing.T) {
	assert.True(t, SlotFree.Valid())
	assert.True(t, SlotBooked.Valid())
	assert.False(t, SlotStatus("held").Valid())

	for _, s := range []ConsultationStatus{StatusPending, StatusScheduled, StatusCompleted, StatusCancelled} {
		assert.True(t, s.Valid())
	}
	assert.False(t, ConsultationStatus("done").Valid())
}
