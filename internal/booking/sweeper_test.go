package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// scheduledAt stores a scheduled consultation whose start is the given instant.
func scheduledAt(store *fakeStore, start time.Time) Consultation {
	doctorID := store.addDoctor()
	patientID := store.addPatient()

	return store.addConsultation(Consultation{
		PatientID: patientID,
		DoctorID:  doctorID,
		Date:      time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC),
		StartTime: start.Format("15:04"),
		Status:    StatusScheduled,
	})
}

func TestAutoCompleterRun(t *testing.T) {
	store := newFakeStore()
	completer := NewAutoCompleter(store, noopLocker{}, time.Hour, time.UTC, zap.NewNop())

	now := time.Now().UTC()
	elapsed := scheduledAt(store, now.Add(-90*time.Minute))
	inProgress := scheduledAt(store, now.Add(-10*time.Minute))
	future := scheduledAt(store, now.Add(2*time.Hour))

	stats, err := completer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)
	assert.Zero(t, stats.Failed)

	got, err := store.GetConsultation(context.Background(), elapsed.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status)

	got, err = store.GetConsultation(context.Background(), inProgress.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status, "appointment still inside its window")

	got, err = store.GetConsultation(context.Background(), future.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusScheduled, got.Status)
}

func TestAutoCompleterIdempotent(t *testing.T) {
	store := newFakeStore()
	completer := NewAutoCompleter(store, noopLocker{}, time.Hour, time.UTC, zap.NewNop())

	scheduledAt(store, time.Now().UTC().Add(-3*time.Hour))

	stats, err := completer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)

	stats, err = completer.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Completed, "completed consultations are not candidates again")
}

func TestAutoCompleterPartialFailure(t *testing.T) {
	store := newFakeStore()
	completer := NewAutoCompleter(store, noopLocker{}, time.Hour, time.UTC, zap.NewNop())

	now := time.Now().UTC()
	broken := scheduledAt(store, now.Add(-2*time.Hour))
	healthy := scheduledAt(store, now.Add(-2*time.Hour).Add(time.Minute))
	store.failStatusFor[broken.ID] = errors.New("deadlock detected")

	stats, err := completer.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.Failed)

	got, err := store.GetConsultation(context.Background(), healthy.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, got.Status, "one bad row must not abort the sweep")
}

func TestAutoCompleterSkipsWhenLockHeld(t *testing.T) {
	store := newFakeStore()
	completer := NewAutoCompleter(store, heldLocker{}, time.Hour, time.UTC, zap.NewNop())

	scheduledAt(store, time.Now().UTC().Add(-3*time.Hour))

	stats, err := completer.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
}

func newTestReminderDispatcher(store *fakeStore, notifier Notifier) *ReminderDispatcher {
	return NewReminderDispatcher(store, notifier, noopLocker{}, time.Hour, 15*time.Minute, time.UTC, zap.NewNop())
}

func TestReminderDispatcherRun(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	dispatcher := newTestReminderDispatcher(store, notifier)

	now := time.Now().UTC()
	soon := scheduledAt(store, now.Add(30*time.Minute))
	justStarted := scheduledAt(store, now.Add(-10*time.Minute))
	farOff := scheduledAt(store, now.Add(3*time.Hour))

	stats, err := dispatcher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Sent)

	// Both participants of each due consultation get the push.
	assert.Len(t, notifier.callsFor(soon.PatientID), 1)
	assert.Len(t, notifier.callsFor(soon.DoctorID), 1)
	assert.Len(t, notifier.callsFor(justStarted.PatientID), 1)
	assert.Empty(t, notifier.callsFor(farOff.PatientID))
}

func TestReminderDispatcherSendsOnce(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	dispatcher := newTestReminderDispatcher(store, notifier)

	c := scheduledAt(store, time.Now().UTC().Add(30*time.Minute))

	stats, err := dispatcher.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	stats, err = dispatcher.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Sent)
	assert.Equal(t, 1, stats.Skipped, "claim already taken for this window")

	assert.Len(t, notifier.callsFor(c.PatientID), 1)
}

func TestReminderDispatcherSkipsWhenLockHeld(t *testing.T) {
	store := newFakeStore()
	notifier := &fakeNotifier{}
	dispatcher := NewReminderDispatcher(store, notifier, heldLocker{}, time.Hour, 15*time.Minute, time.UTC, zap.NewNop())

	scheduledAt(store, time.Now().UTC().Add(30*time.Minute))

	stats, err := dispatcher.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Checked)
	assert.Zero(t, notifier.total())
}
