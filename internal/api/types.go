package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/teleclinic/telehealth-backend/internal/booking"
)

const dateFormat = "2006-01-02"

type CreateSlotRequest struct {
	DoctorID      string `json:"doctor_id"`
	AvailableDate string `json:"available_date"` // YYYY-MM-DD
	StartTime     string `json:"start_time"`     // HH:MM
}

type BulkSlotEntry struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
}

type BulkCreateSlotsRequest struct {
	DoctorID string          `json:"doctor_id"`
	Slots    []BulkSlotEntry `json:"slots"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}

type BookConsultationRequest struct {
	PatientID        string `json:"patient_id"`
	DoctorID         string `json:"doctor_id"`
	AvailabilityID   string `json:"availability_id"`
	ConsultationDate string `json:"consultation_date"` // YYYY-MM-DD
	StartTime        string `json:"start_time"`        // HH:MM
}

type AddPrescriptionRequest struct {
	Prescription string `json:"prescription"`
}

type RegisterTokenRequest struct {
	UserID   string `json:"user_id"`
	Token    string `json:"token"`
	Platform string `json:"platform"`
}

type SlotResponse struct {
	ID            uuid.UUID `json:"id"`
	DoctorID      uuid.UUID `json:"doctor_id"`
	AvailableDate string    `json:"available_date"`
	StartTime     string    `json:"start_time"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type ConsultationResponse struct {
	ID               uuid.UUID  `json:"id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	DoctorID         uuid.UUID  `json:"doctor_id"`
	AvailabilityID   *uuid.UUID `json:"availability_id,omitempty"`
	ConsultationDate string     `json:"consultation_date"`
	StartTime        string     `json:"start_time"`
	Status           string     `json:"status"`
	Prescription     *string    `json:"prescription,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	Deleted          bool       `json:"deleted,omitempty"`
}

type TokenResponse struct {
	ID       uuid.UUID `json:"id"`
	UserID   uuid.UUID `json:"user_id"`
	Platform string    `json:"platform"`
}

func toSlotResponse(s booking.Slot) SlotResponse {
	return SlotResponse{
		ID:            s.ID,
		DoctorID:      s.DoctorID,
		AvailableDate: s.AvailableDate.Format(dateFormat),
		StartTime:     s.StartTime,
		Status:        string(s.Status),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func toSlotResponses(slots []booking.Slot) []SlotResponse {
	out := make([]SlotResponse, 0, len(slots))
	for _, s := range slots {
		out = append(out, toSlotResponse(s))
	}
	return out
}

func toConsultationResponse(c booking.Consultation) ConsultationResponse {
	return ConsultationResponse{
		ID:               c.ID,
		PatientID:        c.PatientID,
		DoctorID:         c.DoctorID,
		AvailabilityID:   c.AvailabilityID,
		ConsultationDate: c.Date.Format(dateFormat),
		StartTime:        c.StartTime,
		Status:           string(c.Status),
		Prescription:     c.Prescription,
		CreatedAt:        c.CreatedAt,
		UpdatedAt:        c.UpdatedAt,
		Deleted:          c.Status == booking.StatusCancelled,
	}
}

func toConsultationResponses(cs []booking.Consultation) []ConsultationResponse {
	out := make([]ConsultationResponse, 0, len(cs))
	for _, c := range cs {
		out = append(out, toConsultationResponse(c))
	}
	return out
}
