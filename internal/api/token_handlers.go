package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func (h *Handlers) registerDeviceToken(w http.ResponseWriter, r *http.Request) {
	var req RegisterTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", "user_id must be a valid UUID")
		return
	}
	if req.Token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}

	platform := req.Platform
	if platform == "" {
		platform = "android"
	}

	token, err := h.Tokens.UpsertToken(r.Context(), userID, req.Token, platform)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, TokenResponse{
		ID:       token.ID,
		UserID:   token.UserID,
		Platform: token.Platform,
	})
}

func (h *Handlers) deleteDeviceToken(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if token == "" {
		writeError(w, http.StatusBadRequest, "missing_token", "token is required")
		return
	}

	if err := h.Tokens.DeleteToken(r.Context(), token); err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// deleteUserDeviceTokens drops every device registered for a user, used on
// account deletion and logout-everywhere.
func (h *Handlers) deleteUserDeviceTokens(w http.ResponseWriter, r *http.Request) {
	userID, err := parseUUIDParam(r, "userID")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_user_id", err.Error())
		return
	}

	deleted, err := h.Tokens.DeleteTokensByUser(r.Context(), userID)
	if err != nil {
		respondError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{"deleted": deleted})
}
