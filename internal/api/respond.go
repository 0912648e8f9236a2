package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/teleclinic/telehealth-backend/internal/booking"
	"github.com/teleclinic/telehealth-backend/internal/notify"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, details string) {
	writeJSON(w, status, ErrorResponse{Error: code, Details: details})
}

// errorStatus maps the domain error taxonomy to HTTP. Invalid input is
// client-correctable, not-found and conflict are surfaced as-is, anything else
// is a dependency failure.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, booking.ErrInvalidClock),
		errors.Is(err, booking.ErrInvalidSlotStatus),
		errors.Is(err, booking.ErrInvalidConsultationStatus),
		errors.Is(err, booking.ErrNoSlots),
		errors.Is(err, booking.ErrMissingBookingFields),
		errors.Is(err, booking.ErrPastSlot),
		errors.Is(err, booking.ErrEmptyPrescription):
		return http.StatusBadRequest, "invalid_input"

	case errors.Is(err, booking.ErrDoctorNotFound),
		errors.Is(err, booking.ErrPatientNotFound),
		errors.Is(err, booking.ErrSlotNotFound),
		errors.Is(err, booking.ErrConsultationNotFound),
		errors.Is(err, notify.ErrTokenNotFound):
		return http.StatusNotFound, "not_found"

	case errors.Is(err, booking.ErrSlotExists),
		errors.Is(err, booking.ErrSlotAlreadyBooked),
		errors.Is(err, booking.ErrSlotTaken),
		errors.Is(err, booking.ErrPatientTimeClash),
		errors.Is(err, booking.ErrSlotContended),
		errors.Is(err, booking.ErrSlotDeleteBooked),
		errors.Is(err, booking.ErrConsultationNotDeletable):
		return http.StatusConflict, "conflict"
	}

	return http.StatusInternalServerError, "internal_error"
}

func respondError(w http.ResponseWriter, err error) {
	status, code := errorStatus(err)
	details := err.Error()
	if status == http.StatusInternalServerError {
		// Dependency messages stay in the logs.
		details = "unexpected error"
	}
	writeError(w, status, code, details)
}
