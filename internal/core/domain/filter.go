// internal/core/domain/filter.go
package domain

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// FuelTag is the three-way fuel facet derived from a variant, which may
// differ from the declared fuel flag (an "Electric" model name wins).
type FuelTag string

const (
	TagPetrol   FuelTag = "PETROL"
	TagElectric FuelTag = "ELECTRIC"
	TagCNG      FuelTag = "CNG"
)

// CCBucket is the coarse displacement facet
type CCBucket string

const (
	CCUnder125 CCBucket = "UNDER_125"
	CC125To250 CCBucket = "125_250"
	CC250To500 CCBucket = "250_500"
	CCOver500  CCBucket = "OVER_500"
)

// BrakeTag is the six-way braking facet. Precedence is significant:
// the first matching tag wins.
type BrakeTag string

const (
	BrakeDualABS          BrakeTag = "DUAL_ABS"
	BrakeFrontABSRearDisc BrakeTag = "FRONT_ABS_REAR_DISC"
	BrakeFrontABSRearDrum BrakeTag = "FRONT_ABS_REAR_DRUM"
	BrakeDualDisc         BrakeTag = "DUAL_DISC"
	BrakeFrontDiscRear    BrakeTag = "FRONT_DISC_REAR_DRUM"
	BrakeAllDrum          BrakeTag = "ALL_DRUM"
)

// WheelTag buckets the wheel construction facet
type WheelTag string

const (
	WheelAlloy WheelTag = "ALLOY"
	WheelSpoke WheelTag = "SPOKE"
	WheelSteel WheelTag = "STEEL"
)

// ConsoleTag buckets the instrument cluster facet
type ConsoleTag string

const (
	ConsoleDigital     ConsoleTag = "DIGITAL"
	ConsoleSemiDigital ConsoleTag = "SEMI_DIGITAL"
	ConsoleAnalog      ConsoleTag = "ANALOG"
)

// SeatBucket buckets the seat height facet, in millimetres
type SeatBucket string

const (
	SeatLow      SeatBucket = "LOW"      // < 780mm
	SeatStandard SeatBucket = "STANDARD" // 780-800mm
	SeatTall     SeatBucket = "TALL"     // > 800mm
)

// WeightBucket buckets the kerb weight facet, in kilograms
type WeightBucket string

const (
	WeightLight WeightBucket = "LIGHT" // < 110kg
	WeightMid   WeightBucket = "MID"   // 110-130kg
	WeightHeavy WeightBucket = "HEAVY" // > 130kg
)

// FinishTag buckets the paint finish facet
type FinishTag string

const (
	FinishMatte    FinishTag = "MATTE"
	FinishGlossy   FinishTag = "GLOSSY"
	FinishMetallic FinishTag = "METALLIC"
	FinishStandard FinishTag = "STANDARD"
)

// DeriveFuelTag classifies a variant as Electric, CNG or Petrol.
// A model name containing "electric" overrides the declared fuel flag.
func DeriveFuelTag(v *VehicleVariant) FuelTag {
	if v.FuelType == FuelEV || strings.Contains(strings.ToLower(v.Model), "electric") {
		return TagElectric
	}
	if v.FuelType == FuelCNG {
		return TagCNG
	}
	return TagPetrol
}

// DeriveCCBucket maps displacement to a coarse bucket. Unknown or zero
// displacement lands in the lowest bucket by the stated thresholds.
func DeriveCCBucket(cc float64) CCBucket {
	switch {
	case cc < 125:
		return CCUnder125
	case cc <= 250:
		return CC125To250
	case cc <= 500:
		return CC250To500
	default:
		return CCOver500
	}
}

// DeriveBrakeTag classifies the braking setup from free-text spec fields.
// First match wins; a variant with no recognizable descriptors is AllDrum.
func DeriveBrakeTag(s Specs) BrakeTag {
	frontDisc := strings.Contains(strings.ToLower(s.FrontBrake), "disc")
	rearDisc := strings.Contains(strings.ToLower(s.RearBrake), "disc")
	abs := strings.ToLower(s.ABS)
	hasABS := strings.Contains(abs, "abs")
	dualABS := hasABS && strings.Contains(abs, "dual")

	switch {
	case dualABS:
		return BrakeDualABS
	case hasABS && rearDisc:
		return BrakeFrontABSRearDisc
	case hasABS:
		return BrakeFrontABSRearDrum
	case frontDisc && rearDisc:
		return BrakeDualDisc
	case frontDisc:
		return BrakeFrontDiscRear
	default:
		return BrakeAllDrum
	}
}

// DeriveWheelTag classifies the wheel construction. Unknown text buckets
// as steel rather than excluding the variant.
func DeriveWheelTag(wheel string) WheelTag {
	w := strings.ToLower(wheel)
	switch {
	case strings.Contains(w, "alloy"):
		return WheelAlloy
	case strings.Contains(w, "spoke"):
		return WheelSpoke
	default:
		return WheelSteel
	}
}

// DeriveConsoleTag classifies the instrument cluster
func DeriveConsoleTag(console string) ConsoleTag {
	c := strings.ToLower(console)
	switch {
	case strings.Contains(c, "semi"):
		return ConsoleSemiDigital
	case strings.Contains(c, "digital"), strings.Contains(c, "tft"), strings.Contains(c, "lcd"):
		return ConsoleDigital
	default:
		return ConsoleAnalog
	}
}

// DeriveSeatBucket maps seat height to a bucket; zero/unknown maps low
func DeriveSeatBucket(mm float64) SeatBucket {
	switch {
	case mm < 780:
		return SeatLow
	case mm <= 800:
		return SeatStandard
	default:
		return SeatTall
	}
}

// DeriveWeightBucket maps kerb weight to a bucket; zero/unknown maps light
func DeriveWeightBucket(kg float64) WeightBucket {
	switch {
	case kg < 110:
		return WeightLight
	case kg <= 130:
		return WeightMid
	default:
		return WeightHeavy
	}
}

// DeriveFinishTag classifies the paint finish
func DeriveFinishTag(finish string) FinishTag {
	f := strings.ToLower(finish)
	switch {
	case strings.Contains(f, "matte"), strings.Contains(f, "matt"):
		return FinishMatte
	case strings.Contains(f, "metallic"):
		return FinishMetallic
	case strings.Contains(f, "gloss"):
		return FinishGlossy
	default:
		return FinishStandard
	}
}

// Selection is an explicit tri-state facet filter: either unfiltered
// (matches everything) or a concrete subset of allowed values. The zero
// value is unfiltered, so absent query parameters need no special casing.
type Selection[T comparable] struct {
	values map[T]struct{}
}

// SelectionOf builds a subset selection. With no values it stays
// unfiltered, preserving "empty selected-set means no filter".
func SelectionOf[T comparable](vals ...T) Selection[T] {
	if len(vals) == 0 {
		return Selection[T]{}
	}
	m := make(map[T]struct{}, len(vals))
	for _, v := range vals {
		m[v] = struct{}{}
	}
	return Selection[T]{values: m}
}

// IsUnfiltered reports whether the selection matches everything
func (s Selection[T]) IsUnfiltered() bool {
	return len(s.values) == 0
}

// Matches reports whether v passes the selection
func (s Selection[T]) Matches(v T) bool {
	if s.IsUnfiltered() {
		return true
	}
	_, ok := s.values[v]
	return ok
}

// Len returns the number of selected values (0 when unfiltered)
func (s Selection[T]) Len() int {
	return len(s.values)
}

// Values returns the selected values in stable order
func (s Selection[T]) Values(less func(a, b T) bool) []T {
	out := make([]T, 0, len(s.values))
	for v := range s.values {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return less(out[i], out[j]) })
	return out
}

// coversAll reports whether the selection includes every value of the
// given universe.
func (s Selection[T]) coversAll(universe []T) bool {
	if len(universe) == 0 || len(s.values) < len(universe) {
		return false
	}
	for _, u := range universe {
		if _, ok := s.values[u]; !ok {
			return false
		}
	}
	return true
}

// FilterCriteria carries every storefront facet plus the finance
// assumptions behind the EMI ceiling. Zero values mean "unfiltered".
type FilterCriteria struct {
	Search string

	Makes     Selection[string] // uppercase make names
	FuelTags  Selection[FuelTag]
	Segments  Selection[string]
	BodyTypes Selection[BodyType]
	CCBuckets Selection[CCBucket]
	Brakes    Selection[BrakeTag]
	Wheels    Selection[WheelTag]
	Consoles  Selection[ConsoleTag]
	Seats     Selection[SeatBucket]
	Weights   Selection[WeightBucket]
	Finishes  Selection[FinishTag]

	MaxPrice decimal.Decimal
	MaxEMI   decimal.Decimal

	Downpayment  decimal.Decimal
	TenureMonths int
	// EMIRate overrides the default flat monthly rate when positive
	EMIRate decimal.Decimal
}

// NormalizeMakes collapses a make selection that covers the entire
// available-make universe back to unfiltered, so "every make ticked" and
// "nothing ticked" produce identical results.
func (c *FilterCriteria) NormalizeMakes(availableMakes []string) {
	universe := make([]string, 0, len(availableMakes))
	for _, m := range availableMakes {
		universe = append(universe, strings.ToUpper(m))
	}
	if c.Makes.coversAll(universe) {
		c.Makes = Selection[string]{}
	}
}

// Matches evaluates every facet as an independent AND-combined predicate.
// Derivation failures degrade to each facet's catch-all bucket, so a
// sparse spec sheet never excludes a variant on its own.
func (c *FilterCriteria) Matches(v *VehicleVariant) bool {
	if c.Search != "" &&
		!strings.Contains(strings.ToLower(v.DisplayName()), strings.ToLower(c.Search)) {
		return false
	}

	if !c.Makes.Matches(strings.ToUpper(v.Make)) {
		return false
	}
	if !c.FuelTags.Matches(DeriveFuelTag(v)) {
		return false
	}
	if !c.Segments.Matches(v.Segment) {
		return false
	}

	// With no body-type filter the storefront shows vehicles only;
	// an explicit filter matches exactly with no implicit exclusion.
	if c.BodyTypes.IsUnfiltered() {
		if !v.BodyType.IsVehicle() {
			return false
		}
	} else if !c.BodyTypes.Matches(v.BodyType) {
		return false
	}

	if !c.CCBuckets.Matches(DeriveCCBucket(v.Specs.DisplacementCC)) {
		return false
	}
	if !c.Brakes.Matches(DeriveBrakeTag(v.Specs)) {
		return false
	}
	if !c.Wheels.Matches(DeriveWheelTag(v.Specs.Wheel)) {
		return false
	}
	if !c.Consoles.Matches(DeriveConsoleTag(v.Specs.Console)) {
		return false
	}
	if !c.Seats.Matches(DeriveSeatBucket(v.Specs.SeatHeightMM)) {
		return false
	}
	if !c.Weights.Matches(DeriveWeightBucket(v.Specs.KerbWeightKG)) {
		return false
	}
	if !c.Finishes.Matches(DeriveFinishTag(v.Specs.Finish)) {
		return false
	}

	price := v.BestPrice()
	if c.MaxPrice.IsPositive() && price.GreaterThan(c.MaxPrice) {
		return false
	}
	if c.MaxEMI.IsPositive() {
		emi := EstimateMonthlyEMI(price, c.Downpayment)
		if c.EMIRate.IsPositive() {
			emi = EstimateMonthlyEMIAtRate(price, c.Downpayment, c.EMIRate)
		}
		if emi.GreaterThan(c.MaxEMI) {
			return false
		}
	}

	return true
}

// FilterVehicles applies the criteria to a variant list and returns the
// matching subset. The input slice is never mutated; the result is a new
// slice preserving input order.
func FilterVehicles(vehicles []VehicleVariant, criteria FilterCriteria) []VehicleVariant {
	matched := make([]VehicleVariant, 0, len(vehicles))
	for i := range vehicles {
		if criteria.Matches(&vehicles[i]) {
			matched = append(matched, vehicles[i])
		}
	}
	return matched
}

// AvailableMakes returns the distinct uppercase makes present in a
// variant list, sorted, for make-universe normalization and facet menus.
func AvailableMakes(vehicles []VehicleVariant) []string {
	seen := make(map[string]struct{})
	var makes []string
	for i := range vehicles {
		m := strings.ToUpper(vehicles[i].Make)
		if m == "" {
			continue
		}
		if _, ok := seen[m]; !ok {
			seen[m] = struct{}{}
			makes = append(makes, m)
		}
	}
	sort.Strings(makes)
	return makes
}
