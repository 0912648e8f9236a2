package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrInvalidSlotStatus = errors.New(`invalid slot status, must be "free" or "booked"`)
	ErrNoSlots           = errors.New("slots must be a non-empty list")
	ErrSlotDeleteBooked  = errors.New("cannot delete a booked slot")
)

// SlotService owns the availability-slot lifecycle.
type SlotService struct {
	repo SlotRepository
	log  *zap.Logger
}

func NewSlotService(repo SlotRepository, log *zap.Logger) *SlotService {
	return &SlotService{
		repo: repo,
		log:  log,
	}
}

// Create adds a single free slot for a doctor. Duplicate (doctor, date, time)
// combinations are rejected.
func (s *SlotService) Create(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string) (*Slot, error) {
	if _, _, err := ParseClock(clock); err != nil {
		return nil, err
	}

	exists, err := s.repo.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	if _, err := s.repo.FindSlot(ctx, doctorID, date, clock); err == nil {
		return nil, ErrSlotExists
	} else if !errors.Is(err, ErrSlotNotFound) {
		return nil, fmt.Errorf("check existing slot: %w", err)
	}

	slot, err := s.repo.CreateSlot(ctx, doctorID, date, clock)
	if err != nil {
		return nil, fmt.Errorf("create slot: %w", err)
	}

	s.log.Info("slot created",
		zap.String("slot_id", slot.ID.String()),
		zap.String("doctor_id", doctorID.String()),
		zap.String("date", date.Format(dateFormat)),
		zap.String("start_time", clock))

	return slot, nil
}

// BulkCreate inserts a batch of slots in one transaction. The whole batch is
// rejected if any entry collides with an existing slot.
func (s *SlotService) BulkCreate(ctx context.Context, doctorID uuid.UUID, entries []SlotEntry) ([]Slot, error) {
	if len(entries) == 0 {
		return nil, ErrNoSlots
	}

	for _, e := range entries {
		if _, _, err := ParseClock(e.StartTime); err != nil {
			return nil, err
		}
	}

	exists, err := s.repo.DoctorExists(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("check doctor: %w", err)
	}
	if !exists {
		return nil, ErrDoctorNotFound
	}

	created, err := s.repo.CreateSlots(ctx, doctorID, entries)
	if err != nil {
		return nil, fmt.Errorf("bulk create slots: %w", err)
	}

	s.log.Info("slots bulk created",
		zap.String("doctor_id", doctorID.String()),
		zap.Int("count", len(created)))

	return created, nil
}

// ListByDoctor returns every slot a doctor has declared, booked or free.
func (s *SlotService) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	slots, err := s.repo.ListSlotsByDoctor(ctx, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// ListFreeInRange returns free slots within [start, end], inclusive.
func (s *SlotService) ListFreeInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]Slot, error) {
	slots, err := s.repo.ListFreeSlotsInRange(ctx, doctorID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list slots in range: %w", err)
	}
	return slots, nil
}

// ListFreeOnDate returns free slots for one calendar day.
func (s *SlotService) ListFreeOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	slots, err := s.repo.ListFreeSlotsOnDate(ctx, doctorID, date)
	if err != nil {
		return nil, fmt.Errorf("list free slots: %w", err)
	}
	return slots, nil
}

// SetStatus flips a slot between free and booked.
func (s *SlotService) SetStatus(ctx context.Context, id uuid.UUID, status SlotStatus) (*Slot, error) {
	if !status.Valid() {
		return nil, ErrInvalidSlotStatus
	}

	slot, err := s.repo.UpdateSlotStatus(ctx, id, status)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update slot status: %w", err)
	}

	return slot, nil
}

// Delete removes a slot. Booked slots cannot be deleted; the consultation
// holding them has to be cancelled first.
func (s *SlotService) Delete(ctx context.Context, id uuid.UUID) error {
	slot, err := s.repo.GetSlot(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return err
		}
		return fmt.Errorf("load slot: %w", err)
	}

	if slot.Status == SlotBooked {
		return ErrSlotDeleteBooked
	}

	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}

	s.log.Info("slot deleted", zap.String("slot_id", id.String()))
	return nil
}
