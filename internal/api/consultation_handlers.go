package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/teleclinic/telehealth-backend/internal/booking"
)

func (h *Handlers) bookConsultation(w http.ResponseWriter, r *http.Request) {
	var req BookConsultationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return
	}
	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}
	availabilityID, err := uuid.Parse(req.AvailabilityID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_availability_id", "availability_id must be a valid UUID")
		return
	}
	date, err := parseDate(req.ConsultationDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	consultation, err := h.Coordinator.Book(r.Context(), booking.BookingRequest{
		PatientID:      patientID,
		DoctorID:       doctorID,
		AvailabilityID: availabilityID,
		Date:           date,
		StartTime:      req.StartTime,
	})
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toConsultationResponse(*consultation))
}

func (h *Handlers) updateConsultationStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_consultation_id", err.Error())
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}
	if req.Status == "" {
		writeError(w, http.StatusBadRequest, "missing_status", "status is required")
		return
	}

	consultation, err := h.Consults.UpdateStatus(r.Context(), id, booking.ConsultationStatus(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConsultationResponse(*consultation))
}

func (h *Handlers) transitionHandler(fn func(context.Context, uuid.UUID) (*booking.Consultation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, "id")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_consultation_id", err.Error())
			return
		}

		consultation, err := fn(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponse(*consultation))
	}
}

func (h *Handlers) addPrescription(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_consultation_id", err.Error())
		return
	}

	var req AddPrescriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	consultation, err := h.Consults.AddPrescription(r.Context(), id, req.Prescription)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toConsultationResponse(*consultation))
}

func (h *Handlers) deleteConsultation(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_consultation_id", err.Error())
		return
	}

	if err := h.Consults.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handlers) listHandler(param string, fn func(context.Context, uuid.UUID) ([]booking.Consultation, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := parseUUIDParam(r, param)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_"+param, err.Error())
			return
		}

		consultations, err := fn(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toConsultationResponses(consultations))
	}
}
