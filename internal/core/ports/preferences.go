// internal/core/ports/preferences.go
package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// FilterPreferences is the per-session storefront state that survives
// page reloads: the facet selections and the finance assumptions.
type FilterPreferences struct {
	Search    string   `json:"search,omitempty"`
	Makes     []string `json:"makes,omitempty"`
	FuelTags  []string `json:"fuel_tags,omitempty"`
	Segments  []string `json:"segments,omitempty"`
	BodyTypes []string `json:"body_types,omitempty"`
	CCBuckets []string `json:"cc_buckets,omitempty"`
	Brakes    []string `json:"brakes,omitempty"`
	Wheels    []string `json:"wheels,omitempty"`
	Consoles  []string `json:"consoles,omitempty"`
	Seats     []string `json:"seats,omitempty"`
	Weights   []string `json:"weights,omitempty"`
	Finishes  []string `json:"finishes,omitempty"`

	MaxPrice     decimal.Decimal `json:"max_price,omitempty"`
	MaxEMI       decimal.Decimal `json:"max_emi,omitempty"`
	Downpayment  decimal.Decimal `json:"downpayment,omitempty"`
	TenureMonths int             `json:"tenure_months,omitempty"`
}

// PreferenceStore is the persistence port behind the preference service.
// Implemented by the Redis adapter.
type PreferenceStore interface {
	Load(ctx context.Context, sessionID string) (*FilterPreferences, error)
	Store(ctx context.Context, sessionID string, prefs *FilterPreferences) error
	Remove(ctx context.Context, sessionID string) error
	Publish(ctx context.Context, sessionID string, prefs *FilterPreferences) error
	Subscribe(ctx context.Context, sessionID string) (<-chan *FilterPreferences, error)
}

// PreferenceService persists and broadcasts per-session filter state.
// Writes are coalesced so a slider being dragged does not produce a
// store write per tick.
type PreferenceService interface {
	Get(ctx context.Context, sessionID string) (*FilterPreferences, error)
	Save(ctx context.Context, sessionID string, prefs *FilterPreferences) error
	Clear(ctx context.Context, sessionID string) error
	// Subscribe delivers preference updates for a session until the
	// context is cancelled, for cross-tab sync.
	Subscribe(ctx context.Context, sessionID string) (<-chan *FilterPreferences, error)
}
