// internal/core/domain/catalog.go
package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BodyType represents the sellable category of a catalog entry
type BodyType string

// Body type constants
const (
	BodyMotorcycle BodyType = "MOTORCYCLE"
	BodyScooter    BodyType = "SCOOTER"
	BodyMoped      BodyType = "MOPED"
	BodyAccessory  BodyType = "ACCESSORY"
	BodyService    BodyType = "SERVICE"
)

// IsVehicle reports whether the body type is a rideable vehicle rather than
// an accessory or a workshop service line.
func (b BodyType) IsVehicle() bool {
	switch b {
	case BodyMotorcycle, BodyScooter, BodyMoped:
		return true
	}
	return false
}

// FuelType represents the declared fuel flag on a variant
type FuelType string

// Fuel type constants
const (
	FuelPetrol FuelType = "PETROL"
	FuelEV     FuelType = "EV"
	FuelCNG    FuelType = "CNG"
)

// DefaultSegment is applied when a variant carries no segment label.
const DefaultSegment = "Commuter"

// Price holds the three price points quoted for a variant, in rupees.
// OfferPrice and OnRoad may be zero when the dealer has not published them.
type Price struct {
	ExShowroom decimal.Decimal `json:"ex_showroom"`
	OnRoad     decimal.Decimal `json:"on_road"`
	OfferPrice decimal.Decimal `json:"offer_price"`
}

// Specs is the partial, free-form specification sheet of a variant.
// Every field is optional; zero values mean "unknown" and bucket derivation
// falls back to each facet's catch-all bucket.
type Specs struct {
	DisplacementCC float64 `json:"displacement_cc,omitempty"`
	FrontBrake     string  `json:"front_brake,omitempty"`
	RearBrake      string  `json:"rear_brake,omitempty"`
	ABS            string  `json:"abs,omitempty"`
	Wheel          string  `json:"wheel,omitempty"`
	Console        string  `json:"console,omitempty"`
	SeatHeightMM   float64 `json:"seat_height_mm,omitempty"`
	KerbWeightKG   float64 `json:"kerb_weight_kg,omitempty"`
	Finish         string  `json:"finish,omitempty"`
}

// SpecsFromMap decodes a loosely typed specification map (JSONB payloads,
// feed rows) into Specs. Unparseable values are dropped, never raised.
func SpecsFromMap(m map[string]any) Specs {
	if m == nil {
		return Specs{}
	}
	return Specs{
		DisplacementCC: lenientFloat(m["displacement_cc"]),
		FrontBrake:     lenientString(m["front_brake"]),
		RearBrake:      lenientString(m["rear_brake"]),
		ABS:            lenientString(m["abs"]),
		Wheel:          lenientString(m["wheel"]),
		Console:        lenientString(m["console"]),
		SeatHeightMM:   lenientFloat(m["seat_height_mm"]),
		KerbWeightKG:   lenientFloat(m["kerb_weight_kg"]),
		Finish:         lenientString(m["finish"]),
	}
}

func lenientString(v any) string {
	s, _ := v.(string)
	return s
}

func lenientFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		if err != nil {
			return 0
		}
		f, _ := d.Float64()
		return f
	}
	return 0
}

// ColorOption is a presentational color swatch on a variant. It never
// participates in filtering.
type ColorOption struct {
	HexCode    string  `json:"hex_code"`
	Name       string  `json:"name"`
	ImageURL   string  `json:"image_url,omitempty"`
	ZoomFactor float64 `json:"zoom_factor,omitempty"`
	IsFlipped  bool    `json:"is_flipped,omitempty"`
	OffsetX    float64 `json:"offset_x,omitempty"`
	OffsetY    float64 `json:"offset_y,omitempty"`
}

// VehicleVariant is a single sellable configuration in the dealer catalog.
// The filter engine treats it as a read-only projection.
type VehicleVariant struct {
	ID        uuid.UUID     `json:"id"`
	Make      string        `json:"make"`
	Model     string        `json:"model"`
	Variant   string        `json:"variant"`
	Slug      string        `json:"slug"`
	BodyType  BodyType      `json:"body_type"`
	FuelType  FuelType      `json:"fuel_type"`
	Segment   string        `json:"segment"`
	Price     Price         `json:"price"`
	Specs     Specs         `json:"specs"`
	Colors    []ColorOption `json:"colors,omitempty"`
	IsActive  bool          `json:"is_active"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
	DeletedAt *time.Time    `json:"deleted_at,omitempty"`
}

// DisplayName concatenates make, model and variant the way storefront
// search matches against them.
func (v *VehicleVariant) DisplayName() string {
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", v.Make, v.Model, v.Variant))
}

// BestPrice resolves the price used for ceilings and EMI derivation:
// offer price, else on-road, else ex-showroom, first non-zero in that order.
func (v *VehicleVariant) BestPrice() decimal.Decimal {
	if v.Price.OfferPrice.IsPositive() {
		return v.Price.OfferPrice
	}
	if v.Price.OnRoad.IsPositive() {
		return v.Price.OnRoad
	}
	return v.Price.ExShowroom
}

// Validate performs domain validation on the variant
func (v *VehicleVariant) Validate() error {
	if v.Make == "" {
		return fmt.Errorf("make is required")
	}
	if v.Model == "" {
		return fmt.Errorf("model is required")
	}
	if v.Price.ExShowroom.IsNegative() || v.Price.OnRoad.IsNegative() || v.Price.OfferPrice.IsNegative() {
		return fmt.Errorf("prices cannot be negative")
	}
	if v.BodyType == "" {
		v.BodyType = BodyMotorcycle
	}
	switch v.BodyType {
	case BodyMotorcycle, BodyScooter, BodyMoped, BodyAccessory, BodyService:
	default:
		return fmt.Errorf("unknown body type %q", v.BodyType)
	}
	if v.FuelType == "" {
		v.FuelType = FuelPetrol
	}
	switch v.FuelType {
	case FuelPetrol, FuelEV, FuelCNG:
	default:
		return fmt.Errorf("unknown fuel type %q", v.FuelType)
	}
	if v.Segment == "" {
		v.Segment = DefaultSegment
	}
	return nil
}

// PrepareForStorage fills identity, slug and timestamps before persistence
func (v *VehicleVariant) PrepareForStorage() {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.Slug == "" {
		v.Slug = Slugify(v.DisplayName())
	}

	now := time.Now()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	v.UpdatedAt = now
}

// Slugify lowercases a display name and collapses non-alphanumerics to
// single hyphens, matching the storefront URL scheme.
func Slugify(s string) string {
	var b strings.Builder
	lastHyphen := true
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		default:
			if !lastHyphen {
				b.WriteByte('-')
				lastHyphen = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}
