// internal/adapters/redis/preferences.go
package redis_a

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bookmybike/marketplace-be/internal/core/ports"
)

// PreferenceStore keeps per-session filter preferences in Redis and
// fans out updates over pub/sub so other tabs of the same session see
// changes without polling.
type PreferenceStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

var _ ports.PreferenceStore = (*PreferenceStore)(nil)

// NewPreferenceStore creates a Redis-backed preference store
func NewPreferenceStore(client *redis.Client, ttl time.Duration, logger *slog.Logger) *PreferenceStore {
	return &PreferenceStore{
		client: client,
		ttl:    ttl,
		logger: logger.With(slog.String("component", "preference_store")),
	}
}

func prefsKey(sessionID string) string {
	return BuildKey(PrefixPrefs, sessionID)
}

func prefsChannel(sessionID string) string {
	return BuildKey(PrefixPrefs, "events", sessionID)
}

// Load returns the stored preferences, or nil when the session has none
func (s *PreferenceStore) Load(ctx context.Context, sessionID string) (*ports.FilterPreferences, error) {
	data, err := s.client.Get(ctx, prefsKey(sessionID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var prefs ports.FilterPreferences
	if err := json.Unmarshal(data, &prefs); err != nil {
		return nil, fmt.Errorf("unmarshal error: %w", err)
	}

	return &prefs, nil
}

// Store persists the preferences, refreshing the session TTL
func (s *PreferenceStore) Store(ctx context.Context, sessionID string, prefs *ports.FilterPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := s.client.Set(ctx, prefsKey(sessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	s.logger.DebugContext(ctx, "preferences stored",
		slog.String("session_id", sessionID))

	return nil
}

// Remove drops a session's preferences
func (s *PreferenceStore) Remove(ctx context.Context, sessionID string) error {
	if err := s.client.Del(ctx, prefsKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("redis del error: %w", err)
	}
	return nil
}

// Publish broadcasts a preference update to the session channel
func (s *PreferenceStore) Publish(ctx context.Context, sessionID string, prefs *ports.FilterPreferences) error {
	data, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("marshal error: %w", err)
	}

	if err := s.client.Publish(ctx, prefsChannel(sessionID), data).Err(); err != nil {
		return fmt.Errorf("redis publish error: %w", err)
	}

	return nil
}

// Subscribe delivers preference updates for a session until the context
// is cancelled. Malformed payloads are logged and skipped.
func (s *PreferenceStore) Subscribe(ctx context.Context, sessionID string) (<-chan *ports.FilterPreferences, error) {
	sub := s.client.Subscribe(ctx, prefsChannel(sessionID))

	// Confirm the subscription before handing back the channel
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("redis subscribe error: %w", err)
	}

	out := make(chan *ports.FilterPreferences)
	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var prefs ports.FilterPreferences
				if err := json.Unmarshal([]byte(msg.Payload), &prefs); err != nil {
					s.logger.WarnContext(ctx, "dropping malformed preference event",
						slog.String("session_id", sessionID),
						slog.String("error", err.Error()))
					continue
				}
				select {
				case out <- &prefs:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
