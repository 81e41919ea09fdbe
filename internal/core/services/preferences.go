// internal/core/services/preferences.go
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bookmybike/marketplace-be/internal/core/ports"
	"github.com/bookmybike/marketplace-be/internal/pkg/debounce"
)

// PreferenceService persists session filter state. Saves are coalesced
// per session through a trailing-edge debouncer, so slider drags cost
// one store write after the client stops moving; the latest state is
// still served immediately from the pending buffer.
type PreferenceService struct {
	store     ports.PreferenceStore
	debouncer *debounce.Debouncer
	logger    *slog.Logger

	pending *pendingPrefs
}

// Statically assert that *PreferenceService implements the PreferenceService interface.
var _ ports.PreferenceService = (*PreferenceService)(nil)

// NewPreferenceService creates a preference service with the given
// settle window.
func NewPreferenceService(store ports.PreferenceStore, settle time.Duration, logger *slog.Logger) *PreferenceService {
	return &PreferenceService{
		store:     store,
		debouncer: debounce.New(settle),
		logger:    logger.With(slog.String("service", "preferences")),
		pending:   newPendingPrefs(),
	}
}

// Get returns the session's current filter state: a pending unwritten
// save wins over the store.
func (s *PreferenceService) Get(ctx context.Context, sessionID string) (*ports.FilterPreferences, error) {
	if prefs, ok := s.pending.get(sessionID); ok {
		return prefs, nil
	}

	prefs, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load preferences: %w", err)
	}
	if prefs == nil {
		return &ports.FilterPreferences{}, nil
	}
	return prefs, nil
}

// Save records the session's filter state. The store write happens after
// the settle window; the broadcast to other tabs happens immediately.
func (s *PreferenceService) Save(ctx context.Context, sessionID string, prefs *ports.FilterPreferences) error {
	if sessionID == "" {
		return fmt.Errorf("session id is required")
	}

	s.pending.set(sessionID, prefs)

	if err := s.store.Publish(ctx, sessionID, prefs); err != nil {
		s.logger.WarnContext(ctx, "preference broadcast failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}

	s.debouncer.Do(sessionID, func() {
		writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		latest, ok := s.pending.take(sessionID)
		if !ok {
			return
		}
		if err := s.store.Store(writeCtx, sessionID, latest); err != nil {
			s.logger.ErrorContext(writeCtx, "failed to persist preferences",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
	})

	return nil
}

// Clear drops the session's filter state immediately
func (s *PreferenceService) Clear(ctx context.Context, sessionID string) error {
	s.debouncer.Cancel(sessionID)
	s.pending.delete(sessionID)

	if err := s.store.Remove(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to clear preferences: %w", err)
	}

	if err := s.store.Publish(ctx, sessionID, &ports.FilterPreferences{}); err != nil {
		s.logger.WarnContext(ctx, "preference broadcast failed",
			slog.String("session_id", sessionID),
			slog.String("error", err.Error()))
	}

	return nil
}

// Subscribe delivers preference updates for a session
func (s *PreferenceService) Subscribe(ctx context.Context, sessionID string) (<-chan *ports.FilterPreferences, error) {
	return s.store.Subscribe(ctx, sessionID)
}

// Close flushes pending writes and stops the debouncer
func (s *PreferenceService) Close() {
	s.debouncer.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	for sessionID, prefs := range s.pending.drain() {
		if err := s.store.Store(ctx, sessionID, prefs); err != nil {
			s.logger.Error("failed to flush preferences on shutdown",
				slog.String("session_id", sessionID),
				slog.String("error", err.Error()))
		}
	}
}
