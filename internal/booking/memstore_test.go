package booking

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/telehealth-backend/internal/notify"
	"github.com/teleclinic/telehealth-backend/internal/redisclient"
)

// fakeStore is an in-memory SlotRepository + ConsultationRepository with the
// same uniqueness guarantees the Postgres schema enforces.
type fakeStore struct {
	mu       sync.Mutex
	doctors  map[uuid.UUID]bool
	patients map[uuid.UUID]bool
	slots    map[uuid.UUID]Slot
	consults map[uuid.UUID]Consultation

	// failSlotFlip forces UpdateSlotStatus to fail, to exercise the
	// coordinator's compensation path.
	failSlotFlip error
	// failStatusFor forces UpdateConsultationStatus to fail per consultation.
	failStatusFor map[uuid.UUID]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		doctors:       make(map[uuid.UUID]bool),
		patients:      make(map[uuid.UUID]bool),
		slots:         make(map[uuid.UUID]Slot),
		consults:      make(map[uuid.UUID]Consultation),
		failStatusFor: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) addDoctor() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.doctors[id] = true
	return id
}

func (f *fakeStore) addPatient() uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := uuid.New()
	f.patients[id] = true
	return id
}

func (f *fakeStore) addSlot(doctorID uuid.UUID, date time.Time, clock string, status SlotStatus) Slot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := Slot{
		ID:            uuid.New(),
		DoctorID:      doctorID,
		AvailableDate: date,
		StartTime:     clock,
		Status:        status,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.slots[s.ID] = s
	return s
}

func (f *fakeStore) addConsultation(c Consultation) Consultation {
	f.mu.Lock()
	defer f.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	f.consults[c.ID] = c
	return c
}

func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}

// SlotRepository

func (f *fakeStore) DoctorExists(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.doctors[id], nil
}

func (f *fakeStore) CreateSlot(_ context.Context, doctorID uuid.UUID, date time.Time, clock string) (*Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.slots {
		if s.DoctorID == doctorID && sameDay(s.AvailableDate, date) && s.StartTime == clock {
			return nil, ErrSlotExists
		}
	}

	s := Slot{
		ID:            uuid.New(),
		DoctorID:      doctorID,
		AvailableDate: date,
		StartTime:     clock,
		Status:        SlotFree,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	f.slots[s.ID] = s
	return &s, nil
}

func (f *fakeStore) CreateSlots(ctx context.Context, doctorID uuid.UUID, entries []SlotEntry) ([]Slot, error) {
	created := make([]Slot, 0, len(entries))
	for _, e := range entries {
		s, err := f.CreateSlot(ctx, doctorID, e.Date, e.StartTime)
		if err != nil {
			return nil, err
		}
		created = append(created, *s)
	}
	return created, nil
}

func (f *fakeStore) GetSlot(_ context.Context, id uuid.UUID) (*Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	return &s, nil
}

func (f *fakeStore) FindSlot(_ context.Context, doctorID uuid.UUID, date time.Time, clock string) (*Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.slots {
		if s.DoctorID == doctorID && sameDay(s.AvailableDate, date) && s.StartTime == clock {
			return &s, nil
		}
	}
	return nil, ErrSlotNotFound
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		if !sameDay(slots[i].AvailableDate, slots[j].AvailableDate) {
			return slots[i].AvailableDate.Before(slots[j].AvailableDate)
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}

func (f *fakeStore) ListSlotsByDoctor(_ context.Context, doctorID uuid.UUID) ([]Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Slot
	for _, s := range f.slots {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out, nil
}

func (f *fakeStore) ListFreeSlotsInRange(_ context.Context, doctorID uuid.UUID, start, end time.Time) ([]Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Slot
	for _, s := range f.slots {
		if s.DoctorID == doctorID && s.Status == SlotFree &&
			!s.AvailableDate.Before(start) && !s.AvailableDate.After(end) {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out, nil
}

func (f *fakeStore) ListFreeSlotsOnDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Slot
	for _, s := range f.slots {
		if s.DoctorID == doctorID && s.Status == SlotFree && sameDay(s.AvailableDate, date) {
			out = append(out, s)
		}
	}
	sortSlots(out)
	return out, nil
}

func (f *fakeStore) UpdateSlotStatus(_ context.Context, id uuid.UUID, status SlotStatus) (*Slot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSlotFlip != nil && status == SlotBooked {
		return nil, f.failSlotFlip
	}

	s, ok := f.slots[id]
	if !ok {
		return nil, ErrSlotNotFound
	}
	s.Status = status
	s.UpdatedAt = time.Now()
	f.slots[id] = s
	return &s, nil
}

func (f *fakeStore) DeleteSlot(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.slots[id]; !ok {
		return ErrSlotNotFound
	}
	delete(f.slots, id)
	return nil
}

// ConsultationRepository

func (f *fakeStore) PatientExists(_ context.Context, id uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.patients[id], nil
}

func (f *fakeStore) GetConsultation(_ context.Context, id uuid.UUID) (*Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consults[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	return &c, nil
}

func sortConsultationsDesc(cs []Consultation) {
	sort.Slice(cs, func(i, j int) bool {
		if !sameDay(cs[i].Date, cs[j].Date) {
			return cs[i].Date.After(cs[j].Date)
		}
		return cs[i].StartTime > cs[j].StartTime
	})
}

func (f *fakeStore) ListByPatient(_ context.Context, patientID uuid.UUID, statuses []ConsultationStatus) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.PatientID != patientID {
			continue
		}
		if len(statuses) > 0 {
			match := false
			for _, s := range statuses {
				if c.Status == s {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, c)
	}
	sortConsultationsDesc(out)
	return out, nil
}

func (f *fakeStore) ListPrescriptions(_ context.Context, patientID uuid.UUID) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.PatientID == patientID && c.Status == StatusCompleted && c.Prescription != nil {
			out = append(out, c)
		}
	}
	sortConsultationsDesc(out)
	return out, nil
}

func (f *fakeStore) ListByDoctor(_ context.Context, doctorID uuid.UUID) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.DoctorID == doctorID {
			out = append(out, c)
		}
	}
	sortConsultationsDesc(out)
	return out, nil
}

func (f *fakeStore) ListUpcomingByDoctor(_ context.Context, doctorID uuid.UUID, today time.Time) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.DoctorID != doctorID {
			continue
		}
		if c.Status != StatusPending && c.Status != StatusScheduled {
			continue
		}
		if c.Date.Before(today) && !sameDay(c.Date, today) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !sameDay(out[i].Date, out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (f *fakeStore) ListCompletedByDoctor(_ context.Context, doctorID uuid.UUID) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.DoctorID == doctorID && c.Status == StatusCompleted {
			out = append(out, c)
		}
	}
	sortConsultationsDesc(out)
	return out, nil
}

func (f *fakeStore) ListActiveBySlot(_ context.Context, slotID uuid.UUID) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.AvailabilityID != nil && *c.AvailabilityID == slotID && c.Status != StatusCancelled {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteCancelledBySlot(_ context.Context, slotID uuid.UUID) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var purged int64
	for id, c := range f.consults {
		if c.AvailabilityID != nil && *c.AvailabilityID == slotID && c.Status == StatusCancelled {
			delete(f.consults, id)
			purged++
		}
	}
	return purged, nil
}

func (f *fakeStore) PatientHasActiveAt(_ context.Context, patientID uuid.UUID, date time.Time, clock string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.consults {
		if c.PatientID == patientID && sameDay(c.Date, date) && c.StartTime == clock && c.Status != StatusCancelled {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) CreatePending(_ context.Context, c Consultation) (*Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	// Mirror the partial unique index on active consultations per slot.
	if c.AvailabilityID != nil {
		for _, existing := range f.consults {
			if existing.AvailabilityID != nil && *existing.AvailabilityID == *c.AvailabilityID &&
				existing.Status != StatusCancelled {
				return nil, ErrSlotTaken
			}
		}
	}

	c.ID = uuid.New()
	c.Status = StatusPending
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	f.consults[c.ID] = c
	return &c, nil
}

func (f *fakeStore) UpdateConsultationStatus(_ context.Context, id uuid.UUID, status ConsultationStatus) (*Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err, ok := f.failStatusFor[id]; ok {
		return nil, err
	}

	c, ok := f.consults[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	f.consults[id] = c
	return &c, nil
}

func (f *fakeStore) SetPrescription(_ context.Context, id uuid.UUID, text string) (*Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consults[id]
	if !ok {
		return nil, ErrConsultationNotFound
	}
	c.Prescription = &text
	c.UpdatedAt = time.Now()
	f.consults[id] = c
	return &c, nil
}

func (f *fakeStore) DeleteConsultation(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.consults[id]; !ok {
		return ErrConsultationNotFound
	}
	delete(f.consults, id)
	return nil
}

func (f *fakeStore) ListScheduledThrough(_ context.Context, date time.Time) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.Status == StatusScheduled && (c.Date.Before(date) || sameDay(c.Date, date)) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeStore) ListScheduledOnDates(_ context.Context, dates []time.Time) ([]Consultation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Consultation
	for _, c := range f.consults {
		if c.Status != StatusScheduled {
			continue
		}
		for _, d := range dates {
			if sameDay(c.Date, d) {
				out = append(out, c)
				break
			}
		}
	}
	return out, nil
}

func (f *fakeStore) ClaimReminder(_ context.Context, id uuid.UUID, windowStart time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.consults[id]
	if !ok || c.Status != StatusScheduled {
		return false, nil
	}
	if c.LastReminderAt != nil && !c.LastReminderAt.Before(windowStart) {
		return false, nil
	}
	now := time.Now()
	c.LastReminderAt = &now
	f.consults[id] = c
	return true, nil
}

// noopLocker runs the critical section without any locking.
type noopLocker struct{}

func (noopLocker) WithLock(ctx context.Context, _ string, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// heldLocker simulates a lock another process already holds.
type heldLocker struct{}

func (heldLocker) WithLock(context.Context, string, func(ctx context.Context) error) error {
	return redisclient.ErrLockNotAcquired
}

// fakeNotifier records fan-outs so tests can assert on async notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	calls []notifierCall
}

type notifierCall struct {
	UserID uuid.UUID
	Title  string
}

func (f *fakeNotifier) SendToUser(_ context.Context, userID uuid.UUID, n notify.Notification) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, notifierCall{UserID: userID, Title: n.Title})
	return true
}

func (f *fakeNotifier) callsFor(userID uuid.UUID) []notifierCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []notifierCall
	for _, c := range f.calls {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeNotifier) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
