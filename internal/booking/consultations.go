package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teleclinic/telehealth-backend/internal/notify"
)

var (
	ErrInvalidConsultationStatus = errors.New("invalid status, must be one of: pending, scheduled, completed, cancelled")
	ErrEmptyPrescription         = errors.New("prescription cannot be empty")
	ErrConsultationNotDeletable  = errors.New("can only delete pending or cancelled consultations")
)

// notifyTimeout bounds the detached goroutines that fire post-transition
// pushes.
const notifyTimeout = 10 * time.Second

// ConsultationService owns the consultation status state machine and its
// coupling to slot state.
type ConsultationService struct {
	consults ConsultationRepository
	slots    SlotRepository
	notifier Notifier
	loc      *time.Location
	log      *zap.Logger
}

func NewConsultationService(consults ConsultationRepository, slots SlotRepository, notifier Notifier, loc *time.Location, log *zap.Logger) *ConsultationService {
	return &ConsultationService{
		consults: consults,
		slots:    slots,
		notifier: notifier,
		loc:      loc,
		log:      log,
	}
}

func (s *ConsultationService) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]Consultation, error) {
	return s.consults.ListByPatient(ctx, patientID, nil)
}

// ListConfirmedByPatient returns consultations the doctor has accepted,
// including already completed ones.
func (s *ConsultationService) ListConfirmedByPatient(ctx context.Context, patientID uuid.UUID) ([]Consultation, error) {
	return s.consults.ListByPatient(ctx, patientID, []ConsultationStatus{StatusScheduled, StatusCompleted})
}

func (s *ConsultationService) ListPendingByPatient(ctx context.Context, patientID uuid.UUID) ([]Consultation, error) {
	return s.consults.ListByPatient(ctx, patientID, []ConsultationStatus{StatusPending})
}

func (s *ConsultationService) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Consultation, error) {
	return s.consults.ListByDoctor(ctx, doctorID)
}

func (s *ConsultationService) ListUpcomingByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Consultation, error) {
	today := time.Now().In(s.loc)
	return s.consults.ListUpcomingByDoctor(ctx, doctorID, today)
}

// ListPastByDoctor returns completed consultations whose start has actually
// elapsed, not merely ones dated before today.
func (s *ConsultationService) ListPastByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Consultation, error) {
	completed, err := s.consults.ListCompletedByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(s.loc)

	past := make([]Consultation, 0, len(completed))
	for _, c := range completed {
		start, err := c.StartInstant(s.loc)
		if err != nil {
			s.log.Warn("unparseable consultation start time",
				zap.String("consultation_id", c.ID.String()),
				zap.Error(err))
			continue
		}
		if start.Before(now) {
			past = append(past, c)
		}
	}

	return past, nil
}

func (s *ConsultationService) ListPrescriptions(ctx context.Context, patientID uuid.UUID) ([]Consultation, error) {
	return s.consults.ListPrescriptions(ctx, patientID)
}

func (s *ConsultationService) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.consults.GetConsultation(ctx, id)
}

// UpdateStatus drives the consultation state machine.
//
//	pending --accept--> scheduled --complete--> completed
//	pending/scheduled --cancel--> cancelled
//
// Cancelling frees the attached slot and removes the consultation record, so
// the slot can be rebooked without tripping the one-active-consultation
// invariant. Callers see the returned consultation carrying the cancelled
// status even though the row is gone.
func (s *ConsultationService) UpdateStatus(ctx context.Context, id uuid.UUID, status ConsultationStatus) (*Consultation, error) {
	if !status.Valid() {
		return nil, ErrInvalidConsultationStatus
	}

	current, err := s.consults.GetConsultation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load consultation: %w", err)
	}

	if status == StatusCancelled {
		return s.cancel(ctx, current)
	}

	updated, err := s.consults.UpdateConsultationStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("update consultation status: %w", err)
	}

	if status == StatusScheduled && current.Status == StatusPending {
		s.notifyAcceptance(updated)
	}

	s.log.Info("consultation status updated",
		zap.String("consultation_id", id.String()),
		zap.String("from", string(current.Status)),
		zap.String("to", string(status)))

	return updated, nil
}

func (s *ConsultationService) cancel(ctx context.Context, c *Consultation) (*Consultation, error) {
	if c.AvailabilityID != nil {
		if _, err := s.slots.UpdateSlotStatus(ctx, *c.AvailabilityID, SlotFree); err != nil && !errors.Is(err, ErrSlotNotFound) {
			return nil, fmt.Errorf("release slot: %w", err)
		}
	}

	if err := s.consults.DeleteConsultation(ctx, c.ID); err != nil && !errors.Is(err, ErrConsultationNotFound) {
		return nil, fmt.Errorf("remove cancelled consultation: %w", err)
	}

	s.log.Info("consultation cancelled",
		zap.String("consultation_id", c.ID.String()))

	cancelled := *c
	cancelled.Status = StatusCancelled
	return &cancelled, nil
}

// Accept marks a pending consultation as scheduled (doctor acceptance).
func (s *ConsultationService) Accept(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.UpdateStatus(ctx, id, StatusScheduled)
}

// Cancel releases the slot and removes the consultation.
func (s *ConsultationService) Cancel(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.UpdateStatus(ctx, id, StatusCancelled)
}

// Complete marks a consultation as completed.
func (s *ConsultationService) Complete(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	return s.UpdateStatus(ctx, id, StatusCompleted)
}

// AddPrescription attaches prescription text or a document URI.
func (s *ConsultationService) AddPrescription(ctx context.Context, id uuid.UUID, text string) (*Consultation, error) {
	if text == "" {
		return nil, ErrEmptyPrescription
	}

	updated, err := s.consults.SetPrescription(ctx, id, text)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("add prescription: %w", err)
	}

	return updated, nil
}

// Delete removes a consultation record. Only pending and cancelled
// consultations may be deleted; an attached slot is freed first.
func (s *ConsultationService) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.consults.GetConsultation(ctx, id)
	if err != nil {
		if errors.Is(err, ErrConsultationNotFound) {
			return err
		}
		return fmt.Errorf("load consultation: %w", err)
	}

	if c.Status != StatusPending && c.Status != StatusCancelled {
		return ErrConsultationNotDeletable
	}

	if c.AvailabilityID != nil {
		if _, err := s.slots.UpdateSlotStatus(ctx, *c.AvailabilityID, SlotFree); err != nil && !errors.Is(err, ErrSlotNotFound) {
			return fmt.Errorf("release slot: %w", err)
		}
	}

	if err := s.consults.DeleteConsultation(ctx, id); err != nil {
		return fmt.Errorf("delete consultation: %w", err)
	}

	s.log.Info("consultation deleted", zap.String("consultation_id", id.String()))
	return nil
}

func (s *ConsultationService) notifyAcceptance(c *Consultation) {
	if s.notifier == nil {
		return
	}

	n := notify.Acceptance(c.ID, c.PatientID, c.DoctorID, c.Date.Format(dateFormat), c.StartTime)

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()

		if !s.notifier.SendToUser(ctx, c.PatientID, n) {
			s.log.Warn("acceptance notification not delivered",
				zap.String("consultation_id", c.ID.String()))
		}
	}()
}
