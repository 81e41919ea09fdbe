// internal/handlers/preferences.go
package handlers

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// PreferencesHandler handles session filter preference HTTP requests
type PreferencesHandler struct {
	service ports.PreferenceService
	logger  *slog.Logger
}

// NewPreferencesHandler creates a new preferences handler
func NewPreferencesHandler(service ports.PreferenceService, logger *slog.Logger) *PreferencesHandler {
	return &PreferencesHandler{
		service: service,
		logger:  logger.With(slog.String("handler", "preferences")),
	}
}

// Get handles GET /api/v1/preferences/{session}
func (h *PreferencesHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("session")

	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	prefs, err := h.service.Get(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to get preferences",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to retrieve preferences")
		return
	}

	h.respondJSON(w, http.StatusOK, prefs)
}

// Save handles PUT /api/v1/preferences/{session}
func (h *PreferencesHandler) Save(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("session")

	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	var prefs ports.FilterPreferences
	if err := json.NewDecoder(r.Body).Decode(&prefs); err != nil {
		h.respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.service.Save(ctx, sessionID, &prefs); err != nil {
		h.logger.ErrorContext(ctx, "failed to save preferences",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to save preferences")
		return
	}

	// The store write is coalesced; the state is accepted as-is.
	h.respondJSON(w, http.StatusAccepted, prefs)
}

// Clear handles DELETE /api/v1/preferences/{session}
func (h *PreferencesHandler) Clear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("session")

	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	if err := h.service.Clear(ctx, sessionID); err != nil {
		h.logger.ErrorContext(ctx, "failed to clear preferences",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to clear preferences")
		return
	}

	h.respondJSON(w, http.StatusOK, map[string]string{
		"message": "Preferences cleared",
	})
}

// Subscribe handles GET /api/v1/preferences/{session}/events as a
// server-sent event stream, pushing preference changes to other tabs of
// the same session.
func (h *PreferencesHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := r.PathValue("session")

	if sessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.respondError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	updates, err := h.service.Subscribe(ctx, sessionID)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to subscribe to preferences",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
		h.respondError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case prefs, open := <-updates:
			if !open {
				return
			}
			payload, err := json.Marshal(prefs)
			if err != nil {
				h.logger.ErrorContext(ctx, "failed to encode preference event",
					slog.String("session_id", sessionID),
					slog.String("error", err.Error()))
				continue
			}
			fmt.Fprintf(w, "event: preferences\ndata: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// Helper methods

func (h *PreferencesHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode JSON response",
			slog.String("error", err.Error()))
	}
}

func (h *PreferencesHandler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
