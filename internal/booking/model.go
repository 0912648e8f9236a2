package booking

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrInvalidClock marks a start time that is not a valid "HH:MM" string.
var ErrInvalidClock = errors.New("invalid start time, want HH:MM")

type SlotStatus string

const (
	SlotFree   SlotStatus = "free"
	SlotBooked SlotStatus = "booked"
)

func (s SlotStatus) Valid() bool {
	return s == SlotFree || s == SlotBooked
}

type ConsultationStatus string

const (
	StatusPending   ConsultationStatus = "pending"
	StatusScheduled ConsultationStatus = "scheduled"
	StatusCompleted ConsultationStatus = "completed"
	StatusCancelled ConsultationStatus = "cancelled"
)

func (s ConsultationStatus) Valid() bool {
	switch s {
	case StatusPending, StatusScheduled, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Doctor struct {
	ID        uuid.UUID
	Name      string
	Specialty *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	Email     *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Slot is a doctor-declared unit of bookable time. StartTime is a wall-clock
// "HH:MM" string; combine it with AvailableDate via StartInstant for ordering
// and comparisons.
type Slot struct {
	ID            uuid.UUID
	DoctorID      uuid.UUID
	AvailableDate time.Time // date component only
	StartTime     string    // "HH:MM"
	Status        SlotStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type Consultation struct {
	ID             uuid.UUID
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	AvailabilityID *uuid.UUID // slot that produced this consultation, if any
	Date           time.Time  // date component only
	StartTime      string     // "HH:MM"
	Status         ConsultationStatus
	Prescription   *string
	LastReminderAt *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SlotEntry is one (date, time) pair in a bulk-creation request.
type SlotEntry struct {
	Date      time.Time
	StartTime string
}

// ParseClock validates an "HH:MM" wall-clock string and returns its components.
func ParseClock(s string) (hour, minute int, err error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return t.Hour(), t.Minute(), nil
}

// StartInstant combines a calendar date and an "HH:MM" clock into an instant
// in the given location.
func StartInstant(date time.Time, clock string, loc *time.Location) (time.Time, error) {
	hour, minute, err := ParseClock(clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, loc), nil
}

// StartInstant returns the instant this consultation begins.
func (c *Consultation) StartInstant(loc *time.Location) (time.Time, error) {
	return StartInstant(c.Date, c.StartTime, loc)
}
