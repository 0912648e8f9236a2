package booking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrDoctorNotFound       = errors.New("doctor not found")
	ErrPatientNotFound      = errors.New("patient not found")
	ErrSlotNotFound         = errors.New("availability slot not found")
	ErrConsultationNotFound = errors.New("consultation not found")

	// ErrSlotExists is returned when a slot for the same
	// (doctor, date, start time) already exists.
	ErrSlotExists = errors.New("slot already exists for this date and time")

	// ErrSlotTaken is raised by the store when an insert collides with the
	// one-active-consultation-per-slot unique index.
	ErrSlotTaken = errors.New("slot already has an active consultation")
)

// SlotRepository owns availability_slots rows.
type SlotRepository interface {
	DoctorExists(ctx context.Context, id uuid.UUID) (bool, error)

	CreateSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string) (*Slot, error)
	CreateSlots(ctx context.Context, doctorID uuid.UUID, entries []SlotEntry) ([]Slot, error)

	GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error)
	FindSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string) (*Slot, error)
	ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error)
	ListFreeSlotsInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]Slot, error)
	ListFreeSlotsOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error)

	UpdateSlotStatus(ctx context.Context, id uuid.UUID, status SlotStatus) (*Slot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
}

// ConsultationRepository owns consultations rows.
type ConsultationRepository interface {
	PatientExists(ctx context.Context, id uuid.UUID) (bool, error)

	GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error)

	// Patient-facing reads, ordered by (date, time) descending. A nil status
	// filter means all statuses.
	ListByPatient(ctx context.Context, patientID uuid.UUID, statuses []ConsultationStatus) ([]Consultation, error)
	ListPrescriptions(ctx context.Context, patientID uuid.UUID) ([]Consultation, error)

	// Doctor-facing reads.
	ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Consultation, error)
	ListUpcomingByDoctor(ctx context.Context, doctorID uuid.UUID, today time.Time) ([]Consultation, error)
	ListCompletedByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Consultation, error)

	// Booking-coordinator reads and writes.
	ListActiveBySlot(ctx context.Context, slotID uuid.UUID) ([]Consultation, error)
	DeleteCancelledBySlot(ctx context.Context, slotID uuid.UUID) (int64, error)
	PatientHasActiveAt(ctx context.Context, patientID uuid.UUID, date time.Time, clock string) (bool, error)
	CreatePending(ctx context.Context, c Consultation) (*Consultation, error)

	UpdateConsultationStatus(ctx context.Context, id uuid.UUID, status ConsultationStatus) (*Consultation, error)
	SetPrescription(ctx context.Context, id uuid.UUID, text string) (*Consultation, error)
	DeleteConsultation(ctx context.Context, id uuid.UUID) error

	// Sweeper reads and the reminder-dedup claim.
	ListScheduledThrough(ctx context.Context, date time.Time) ([]Consultation, error)
	ListScheduledOnDates(ctx context.Context, dates []time.Time) ([]Consultation, error)

	// ClaimReminder conditionally stamps last_reminder_at. It returns false
	// when another sweep already claimed this consultation inside the current
	// reminder window, so at most one run sends.
	ClaimReminder(ctx context.Context, id uuid.UUID, windowStart time.Time) (bool, error)
}
