package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const slotColumns = `
	id, doctor_id, available_date,
	to_char(start_time, 'HH24:MI'), status, created_at, updated_at`

func (r *PgStore) DoctorExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM doctors WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

func (r *PgStore) CreateSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string) (*Slot, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO availability_slots (id, doctor_id, available_date, start_time, status, created_at, updated_at)
		VALUES ($1, $2, $3::date, $4::time, 'free', now(), now())
		RETURNING `+slotColumns+`
	`, id, doctorID, date.Format(dateFormat), clock)

	slot, err := scanSlot(row)
	if err != nil {
		if isUniqueViolation(err, "") {
			return nil, ErrSlotExists
		}
		return nil, err
	}

	return slot, nil
}

func (r *PgStore) CreateSlots(ctx context.Context, doctorID uuid.UUID, entries []SlotEntry) ([]Slot, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	created := make([]Slot, 0, len(entries))
	for _, e := range entries {
		id := uuid.New()

		row := tx.QueryRow(ctx, `
			INSERT INTO availability_slots (id, doctor_id, available_date, start_time, status, created_at, updated_at)
			VALUES ($1, $2, $3::date, $4::time, 'free', now(), now())
			RETURNING `+slotColumns+`
		`, id, doctorID, e.Date.Format(dateFormat), e.StartTime)

		slot, err := scanSlot(row)
		if err != nil {
			if isUniqueViolation(err, "") {
				return nil, ErrSlotExists
			}
			return nil, err
		}
		created = append(created, *slot)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return created, nil
}

func (r *PgStore) GetSlot(ctx context.Context, id uuid.UUID) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE id = $1
	`, id)
	return scanSlot(row)
}

func (r *PgStore) FindSlot(ctx context.Context, doctorID uuid.UUID, date time.Time, clock string) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND available_date = $2::date
		  AND start_time = $3::time
	`, doctorID, date.Format(dateFormat), clock)
	return scanSlot(row)
}

func (r *PgStore) ListSlotsByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		ORDER BY available_date ASC, start_time ASC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgStore) ListFreeSlotsInRange(ctx context.Context, doctorID uuid.UUID, start, end time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND available_date >= $2::date
		  AND available_date <= $3::date
		  AND status = 'free'
		ORDER BY available_date ASC, start_time ASC
	`, doctorID, start.Format(dateFormat), end.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgStore) ListFreeSlotsOnDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]Slot, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+slotColumns+`
		FROM availability_slots
		WHERE doctor_id = $1
		  AND available_date = $2::date
		  AND status = 'free'
		ORDER BY start_time ASC
	`, doctorID, date.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	return collectSlots(rows)
}

func (r *PgStore) UpdateSlotStatus(ctx context.Context, id uuid.UUID, status SlotStatus) (*Slot, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE availability_slots
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+slotColumns+`
	`, id, status)
	return scanSlot(row)
}

func (r *PgStore) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM availability_slots
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrSlotNotFound
	}
	return nil
}
