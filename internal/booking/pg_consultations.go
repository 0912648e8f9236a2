package booking

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const consultationColumns = `
	id, patient_id, doctor_id, availability_id, consultation_date,
	to_char(start_time, 'HH24:MI'), status, prescription, last_reminder_at,
	created_at, updated_at`

func (r *PgStore) PatientExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM patients WHERE id = $1)
	`, id).Scan(&exists)
	return exists, err
}

func (r *PgStore) GetConsultation(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE id = $1
	`, id)
	return scanConsultation(row)
}

func (r *PgStore) ListByPatient(ctx context.Context, patientID uuid.UUID, statuses []ConsultationStatus) ([]Consultation, error) {
	query := `
		SELECT ` + consultationColumns + `
		FROM consultations
		WHERE patient_id = $1`
	args := []any{patientID}

	if len(statuses) > 0 {
		query += ` AND status = ANY($2)`
		strs := make([]string, len(statuses))
		for i, s := range statuses {
			strs[i] = string(s)
		}
		args = append(args, strs)
	}

	query += ` ORDER BY consultation_date DESC, start_time DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) ListPrescriptions(ctx context.Context, patientID uuid.UUID) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE patient_id = $1
		  AND status = 'completed'
		  AND prescription IS NOT NULL
		ORDER BY consultation_date DESC, start_time DESC
	`, patientID)
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) ListByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE doctor_id = $1
		ORDER BY consultation_date DESC, start_time DESC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) ListUpcomingByDoctor(ctx context.Context, doctorID uuid.UUID, today time.Time) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE doctor_id = $1
		  AND status IN ('pending', 'scheduled')
		  AND consultation_date >= $2::date
		ORDER BY consultation_date ASC, start_time ASC
	`, doctorID, today.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) ListCompletedByDoctor(ctx context.Context, doctorID uuid.UUID) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE doctor_id = $1
		  AND status = 'completed'
		ORDER BY consultation_date DESC, start_time DESC
	`, doctorID)
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) ListActiveBySlot(ctx context.Context, slotID uuid.UUID) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE availability_id = $1
		  AND status <> 'cancelled'
	`, slotID)
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) DeleteCancelledBySlot(ctx context.Context, slotID uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM consultations
		WHERE availability_id = $1
		  AND status = 'cancelled'
	`, slotID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (r *PgStore) PatientHasActiveAt(ctx context.Context, patientID uuid.UUID, date time.Time, clock string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM consultations
			WHERE patient_id = $1
			  AND consultation_date = $2::date
			  AND start_time = $3::time
			  AND status <> 'cancelled'
		)
	`, patientID, date.Format(dateFormat), clock).Scan(&exists)
	return exists, err
}

func (r *PgStore) CreatePending(ctx context.Context, c Consultation) (*Consultation, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO consultations
			(id, patient_id, doctor_id, availability_id, consultation_date, start_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5::date, $6::time, 'pending', now(), now())
		RETURNING `+consultationColumns+`
	`, id, c.PatientID, c.DoctorID, c.AvailabilityID, c.Date.Format(dateFormat), c.StartTime)

	created, err := scanConsultation(row)
	if err != nil {
		if isUniqueViolation(err, "consultations_active_slot_idx") {
			return nil, ErrSlotTaken
		}
		return nil, err
	}

	return created, nil
}

func (r *PgStore) UpdateConsultationStatus(ctx context.Context, id uuid.UUID, status ConsultationStatus) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+consultationColumns+`
	`, id, status)
	return scanConsultation(row)
}

func (r *PgStore) SetPrescription(ctx context.Context, id uuid.UUID, text string) (*Consultation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE consultations
		SET prescription = $2,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+consultationColumns+`
	`, id, text)
	return scanConsultation(row)
}

func (r *PgStore) DeleteConsultation(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM consultations
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConsultationNotFound
	}
	return nil
}

func (r *PgStore) ListScheduledThrough(ctx context.Context, date time.Time) ([]Consultation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE status = 'scheduled'
		  AND consultation_date <= $1::date
		ORDER BY consultation_date ASC, start_time ASC
	`, date.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) ListScheduledOnDates(ctx context.Context, dates []time.Time) ([]Consultation, error) {
	strs := make([]string, len(dates))
	for i, d := range dates {
		strs[i] = d.Format(dateFormat)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+consultationColumns+`
		FROM consultations
		WHERE status = 'scheduled'
		  AND consultation_date = ANY($1::date[])
		ORDER BY consultation_date ASC, start_time ASC
	`, strs)
	if err != nil {
		return nil, err
	}
	return collectConsultations(rows)
}

func (r *PgStore) ClaimReminder(ctx context.Context, id uuid.UUID, windowStart time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE consultations
		SET last_reminder_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
		  AND (last_reminder_at IS NULL OR last_reminder_at < $2)
	`, id, windowStart)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
