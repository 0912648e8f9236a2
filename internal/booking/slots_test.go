package booking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func testDate(daysAhead int) time.Time {
	d := time.Now().UTC().AddDate(0, 0, daysAhead)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

func TestSlotServiceCreate(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()
	date := testDate(1)

	slot, err := svc.Create(context.Background(), doctorID, date, "10:00")
	require.NoError(t, err)
	assert.Equal(t, doctorID, slot.DoctorID)
	assert.Equal(t, "10:00", slot.StartTime)
	assert.Equal(t, SlotFree, slot.Status)
}

func TestSlotServiceCreateDuplicate(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()
	date := testDate(1)

	_, err := svc.Create(context.Background(), doctorID, date, "10:00")
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), doctorID, date, "10:00")
	assert.ErrorIs(t, err, ErrSlotExists)

	// Same time under another doctor is fine.
	otherID := store.addDoctor()
	_, err = svc.Create(context.Background(), otherID, date, "10:00")
	assert.NoError(t, err)
}

func TestSlotServiceCreateUnknownDoctor(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())

	_, err := svc.Create(context.Background(), uuid.New(), testDate(1), "10:00")
	assert.ErrorIs(t, err, ErrDoctorNotFound)
}

func TestSlotServiceCreateBadClock(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()

	for _, clock := range []string{"", "25:00", "10:60", "ten o'clock", "9:0"} {
		_, err := svc.Create(context.Background(), doctorID, testDate(1), clock)
		assert.ErrorIs(t, err, ErrInvalidClock, "clock %q", clock)
	}
}

func TestSlotServiceBulkCreate(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()
	date := testDate(1)

	entries := []SlotEntry{
		{Date: date, StartTime: "09:00"},
		{Date: date, StartTime: "10:00"},
		{Date: date, StartTime: "11:00"},
	}

	created, err := svc.BulkCreate(context.Background(), doctorID, entries)
	require.NoError(t, err)
	assert.Len(t, created, 3)
}

func TestSlotServiceBulkCreateEmpty(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()

	_, err := svc.BulkCreate(context.Background(), doctorID, nil)
	assert.ErrorIs(t, err, ErrNoSlots)
}

func TestSlotServiceBulkCreateCollision(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()
	date := testDate(1)
	store.addSlot(doctorID, date, "10:00", SlotFree)

	_, err := svc.BulkCreate(context.Background(), doctorID, []SlotEntry{
		{Date: date, StartTime: "09:00"},
		{Date: date, StartTime: "10:00"},
	})
	assert.ErrorIs(t, err, ErrSlotExists)
}

func TestSlotServiceListFree(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()

	store.addSlot(doctorID, testDate(1), "09:00", SlotFree)
	store.addSlot(doctorID, testDate(1), "10:00", SlotBooked)
	store.addSlot(doctorID, testDate(2), "09:00", SlotFree)
	store.addSlot(doctorID, testDate(5), "09:00", SlotFree)

	onDate, err := svc.ListFreeOnDate(context.Background(), doctorID, testDate(1))
	require.NoError(t, err)
	require.Len(t, onDate, 1)
	assert.Equal(t, "09:00", onDate[0].StartTime)

	inRange, err := svc.ListFreeInRange(context.Background(), doctorID, testDate(1), testDate(2))
	require.NoError(t, err)
	assert.Len(t, inRange, 2)

	all, err := svc.ListByDoctor(context.Background(), doctorID)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestSlotServiceSetStatus(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()
	slot := store.addSlot(doctorID, testDate(1), "10:00", SlotFree)

	updated, err := svc.SetStatus(context.Background(), slot.ID, SlotBooked)
	require.NoError(t, err)
	assert.Equal(t, SlotBooked, updated.Status)

	_, err = svc.SetStatus(context.Background(), slot.ID, SlotStatus("reserved"))
	assert.ErrorIs(t, err, ErrInvalidSlotStatus)

	_, err = svc.SetStatus(context.Background(), uuid.New(), SlotFree)
	assert.ErrorIs(t, err, ErrSlotNotFound)
}

func TestSlotServiceDelete(t *testing.T) {
	store := newFakeStore()
	svc := NewSlotService(store, zap.NewNop())
	doctorID := store.addDoctor()

	free := store.addSlot(doctorID, testDate(1), "09:00", SlotFree)
	booked := store.addSlot(doctorID, testDate(1), "10:00", SlotBooked)

	require.NoError(t, svc.Delete(context.Background(), free.ID))
	_, err := store.GetSlot(context.Background(), free.ID)
	assert.ErrorIs(t, err, ErrSlotNotFound)

	err = svc.Delete(context.Background(), booked.ID)
	assert.ErrorIs(t, err, ErrSlotDeleteBooked)

	err = svc.Delete(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrSlotNotFound)
}
