package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/teleclinic/telehealth-backend/internal/booking"
)

func parseUUIDParam(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%s must be a valid UUID", name)
	}
	return id, nil
}

func parseDate(raw string) (time.Time, error) {
	d, err := time.Parse(dateFormat, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, want YYYY-MM-DD", raw)
	}
	return d, nil
}

func (h *Handlers) listDoctorSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := parseUUIDParam(r, "doctorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", err.Error())
		return
	}

	slots, err := h.Slots.ListByDoctor(r.Context(), doctorID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSlotResponses(slots))
}

func (h *Handlers) listDoctorSlotsInRange(w http.ResponseWriter, r *http.Request) {
	doctorID, err := parseUUIDParam(r, "doctorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", err.Error())
		return
	}

	startRaw := r.URL.Query().Get("startDate")
	endRaw := r.URL.Query().Get("endDate")
	if startRaw == "" || endRaw == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "startDate and endDate are required")
		return
	}

	start, err := parseDate(startRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_start_date", err.Error())
		return
	}
	end, err := parseDate(endRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_end_date", err.Error())
		return
	}

	slots, err := h.Slots.ListFreeInRange(r.Context(), doctorID, start, end)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSlotResponses(slots))
}

func (h *Handlers) listFreeSlots(w http.ResponseWriter, r *http.Request) {
	doctorID, err := parseUUIDParam(r, "doctorID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", err.Error())
		return
	}

	dateRaw := r.URL.Query().Get("date")
	if dateRaw == "" {
		writeError(w, http.StatusBadRequest, "missing_params", "date is required")
		return
	}

	date, err := parseDate(dateRaw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	slots, err := h.Slots.ListFreeOnDate(r.Context(), doctorID, date)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSlotResponses(slots))
}

func (h *Handlers) createSlot(w http.ResponseWriter, r *http.Request) {
	var req CreateSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}

	date, err := parseDate(req.AvailableDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
		return
	}

	slot, err := h.Slots.Create(r.Context(), doctorID, date, req.StartTime)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSlotResponse(*slot))
}

func (h *Handlers) bulkCreateSlots(w http.ResponseWriter, r *http.Request) {
	var req BulkCreateSlotsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	doctorID, err := uuid.Parse(req.DoctorID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_doctor_id", "doctor_id must be a valid UUID")
		return
	}

	entries := make([]booking.SlotEntry, 0, len(req.Slots))
	for _, s := range req.Slots {
		date, err := parseDate(s.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_date", err.Error())
			return
		}
		entries = append(entries, booking.SlotEntry{Date: date, StartTime: s.StartTime})
	}

	slots, err := h.Slots.BulkCreate(r.Context(), doctorID, entries)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, toSlotResponses(slots))
}

func (h *Handlers) updateSlotStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", err.Error())
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

	slot, err := h.Slots.SetStatus(r.Context(), id, booking.SlotStatus(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSlotResponse(*slot))
}

func (h *Handlers) deleteSlot(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_slot_id", err.Error())
		return
	}

	if err := h.Slots.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
