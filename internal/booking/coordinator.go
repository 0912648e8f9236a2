package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teleclinic/telehealth-backend/internal/notify"
	"github.com/teleclinic/telehealth-backend/internal/redisclient"
)

var (
	ErrMissingBookingFields = errors.New("missing required fields for booking")
	ErrPastSlot             = errors.New("cannot book past slot")
	ErrSlotAlreadyBooked    = errors.New("this slot has already been booked")
	ErrPatientTimeClash     = errors.New("patient already has a consultation at this time")
	ErrSlotContended        = errors.New("slot is currently being booked, please retry")
)

// BookingRequest carries the five booking arguments. All are required.
type BookingRequest struct {
	PatientID      uuid.UUID
	DoctorID       uuid.UUID
	AvailabilityID uuid.UUID
	Date           time.Time
	StartTime      string
}

// Coordinator runs the cross-entity booking transaction: reserve the slot,
// create the consultation, and keep the two in step even when one write fails.
type Coordinator struct {
	consults ConsultationRepository
	slots    SlotRepository
	locker   redisclient.Locker
	notifier Notifier
	loc      *time.Location
	log      *zap.Logger
}

func NewCoordinator(consults ConsultationRepository, slots SlotRepository, locker redisclient.Locker, notifier Notifier, loc *time.Location, log *zap.Logger) *Coordinator {
	return &Coordinator{
		consults: consults,
		slots:    slots,
		locker:   locker,
		notifier: notifier,
		loc:      loc,
		log:      log,
	}
}

// Book reserves a slot for a patient and creates a pending consultation.
//
// Preconditions are checked in order, first failure wins: all fields present,
// start strictly in the future, patient exists, slot exists, no active
// consultation holds the slot, slot free, patient not double-booked. The invariant checks and both
// writes run inside a per-slot lock so concurrent attempts on the same slot
// serialize; the partial unique index on consultations backstops the check if
// the lock is ever bypassed.
//
// The two writes have no shared transaction, so a failed slot flip after a
// successful insert is compensated by deleting the just-created consultation.
func (c *Coordinator) Book(ctx context.Context, req BookingRequest) (*Consultation, error) {
	if req.PatientID == uuid.Nil || req.DoctorID == uuid.Nil || req.AvailabilityID == uuid.Nil ||
		req.Date.IsZero() || req.StartTime == "" {
		return nil, ErrMissingBookingFields
	}

	start, err := StartInstant(req.Date, req.StartTime, c.loc)
	if err != nil {
		return nil, err
	}
	if !start.After(time.Now().In(c.loc)) {
		return nil, ErrPastSlot
	}

	exists, err := c.consults.PatientExists(ctx, req.PatientID)
	if err != nil {
		return nil, fmt.Errorf("check patient: %w", err)
	}
	if !exists {
		return nil, ErrPatientNotFound
	}

	if _, err := c.slots.GetSlot(ctx, req.AvailabilityID); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load slot: %w", err)
	}

	var created *Consultation

	err = c.locker.WithLock(ctx, redisclient.SlotLockKey(req.AvailabilityID), func(lockCtx context.Context) error {
		// Purge leftovers from an interrupted cancellation so the
		// one-active-consultation check sees clean state.
		purged, err := c.consults.DeleteCancelledBySlot(lockCtx, req.AvailabilityID)
		if err != nil {
			return fmt.Errorf("purge cancelled consultations: %w", err)
		}
		if purged > 0 {
			c.log.Info("purged stale cancelled consultations",
				zap.String("slot_id", req.AvailabilityID.String()),
				zap.Int64("purged", purged))
		}

		active, err := c.consults.ListActiveBySlot(lockCtx, req.AvailabilityID)
		if err != nil {
			return fmt.Errorf("check active consultations: %w", err)
		}
		if len(active) > 0 {
			return ErrSlotAlreadyBooked
		}

		slot, err := c.slots.GetSlot(lockCtx, req.AvailabilityID)
		if err != nil {
			return fmt.Errorf("reload slot: %w", err)
		}
		if slot.Status != SlotFree {
			return ErrSlotAlreadyBooked
		}

		clash, err := c.consults.PatientHasActiveAt(lockCtx, req.PatientID, req.Date, req.StartTime)
		if err != nil {
			return fmt.Errorf("check patient schedule: %w", err)
		}
		if clash {
			return ErrPatientTimeClash
		}

		availabilityID := req.AvailabilityID
		created, err = c.consults.CreatePending(lockCtx, Consultation{
			PatientID:      req.PatientID,
			DoctorID:       req.DoctorID,
			AvailabilityID: &availabilityID,
			Date:           req.Date,
			StartTime:      req.StartTime,
		})
		if err != nil {
			if errors.Is(err, ErrSlotTaken) {
				return ErrSlotAlreadyBooked
			}
			return fmt.Errorf("create consultation: %w", err)
		}

		if _, err := c.slots.UpdateSlotStatus(lockCtx, req.AvailabilityID, SlotBooked); err != nil {
			c.rollback(created.ID)
			created = nil
			return fmt.Errorf("mark slot as booked: %w", err)
		}

		return nil
	})

	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrSlotContended
		}
		return nil, err
	}

	c.log.Info("consultation booked",
		zap.String("consultation_id", created.ID.String()),
		zap.String("patient_id", req.PatientID.String()),
		zap.String("doctor_id", req.DoctorID.String()),
		zap.String("slot_id", req.AvailabilityID.String()))

	c.notifyDoctor(created)

	return created, nil
}

// rollback undoes the consultation insert after a failed slot flip. It runs on
// a fresh context because the lock context may already be dead.
func (c *Coordinator) rollback(consultationID uuid.UUID) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := c.consults.DeleteConsultation(ctx, consultationID); err != nil && !errors.Is(err, ErrConsultationNotFound) {
		c.log.Error("booking rollback failed, consultation may be orphaned",
			zap.String("consultation_id", consultationID.String()),
			zap.Error(err))
		return
	}

	c.log.Warn("booking rolled back",
		zap.String("consultation_id", consultationID.String()))
}

func (c *Coordinator) notifyDoctor(created *Consultation) {
	if c.notifier == nil {
		return
	}

	n := notify.BookingRequest(created.ID, created.PatientID, created.DoctorID,
		created.Date.Format(dateFormat), created.StartTime)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if !c.notifier.SendToUser(ctx, created.DoctorID, n) {
			c.log.Warn("booking notification not delivered",
				zap.String("consultation_id", created.ID.String()))
		}
	}()
}
