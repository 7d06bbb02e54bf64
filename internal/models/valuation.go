package models

import "time"

// PropertyType is the property type as submitted by the chat widget.
type PropertyType string

const (
	TypeApartment PropertyType = "apartment"
	TypeVilla     PropertyType = "villa"
	TypeHouse     PropertyType = "house"
	TypeOffice    PropertyType = "office"
	TypeGarage    PropertyType = "garage"
	TypeShop      PropertyType = "shop"
	TypeOther     PropertyType = "other"
)

// PropertyKind is the reference-dataset market segment a property belongs to.
type PropertyKind string

const (
	KindResidential PropertyKind = "residential"
	KindOffices     PropertyKind = "offices"
	KindCommercial  PropertyKind = "commercial"
	KindBox         PropertyKind = "box"
	KindOther       PropertyKind = "other"
)

// Kind maps the widget-facing property type onto a dataset segment.
func (t PropertyType) Kind() PropertyKind {
	switch t {
	case TypeApartment, TypeVilla, TypeHouse:
		return KindResidential
	case TypeOffice:
		return KindOffices
	case TypeGarage:
		return KindBox
	case TypeShop:
		return KindCommercial
	case TypeOther:
		return KindCommercial
	default:
		return KindCommercial
	}
}

// Condition describes the state of maintenance declared by the visitor.
type Condition string

const (
	ConditionNew        Condition = "new"
	ConditionRenovated  Condition = "renovated"
	ConditionGood       Condition = "good"
	ConditionToRenovate Condition = "to_renovate"
)

// Period identifies the half-year a reference record was published for.
type Period struct {
	Year int `json:"year"`
	Half int `json:"half"`
}

// After reports whether p is more recent than other.
func (p Period) After(other Period) bool {
	if p.Year != other.Year {
		return p.Year > other.Year
	}
	return p.Half > other.Half
}

// ReferenceRecord is one row of the price reference table: known min/avg/max
// price per square meter for a given city, zone and market segment.
type ReferenceRecord struct {
	City           string       `json:"city"`
	Zone           string       `json:"zone"`
	PostalCode     string       `json:"postal_code"`
	Kind           PropertyKind `json:"property_kind"`
	Category       string       `json:"category"`
	MinPricePerSqm float64      `json:"min_price_per_sqm"`
	AvgPricePerSqm float64      `json:"avg_price_per_sqm"`
	MaxPricePerSqm float64      `json:"max_price_per_sqm"`
	Period         Period       `json:"period"`
	Source         string       `json:"source"`
}

// ValuationInput is the property description a valuation is computed from.
// Field validation happens at the HTTP layer before this struct is built.
type ValuationInput struct {
	Address      string       `json:"address"`
	City         string       `json:"city"`
	Neighborhood string       `json:"neighborhood"`
	PostalCode   string       `json:"postal_code"`
	PropertyType PropertyType `json:"property_type"`
	Category     string       `json:"category"`
	SurfaceSqm   float64      `json:"surface_sqm"`
	Floor        *int         `json:"floor"`
	HasElevator  *bool        `json:"has_elevator"`
	HasParking   *bool        `json:"has_parking"`
	Condition    Condition    `json:"condition"`
}

// ValuationResult is the computed price range for a single input.
type ValuationResult struct {
	MinPrice             int     `json:"min_price"`
	MaxPrice             int     `json:"max_price"`
	EstimatedPrice       int     `json:"estimated_price"`
	BaseReferenceValue   float64 `json:"base_reference_value"`
	FloorCoefficient     float64 `json:"floor_coefficient"`
	ConditionCoefficient float64 `json:"condition_coefficient"`
	Explanation          string  `json:"explanation"`
}

// Narrative is the AI-written analysis attached to a valuation. The
// adjustment factor is advisory only and never changes the computed prices.
type Narrative struct {
	Analysis         string  `json:"analysis"`
	AdjustmentFactor float64 `json:"adjustment_factor"`
	Confidence       string  `json:"confidence"`
	Generated        bool    `json:"generated"`
}

// Lead is a stored widget interaction: contact details, the described
// property and a snapshot of the valuation it received.
type Lead struct {
	ID           int64        `json:"id" gorm:"primaryKey"`
	Name         string       `json:"name"`
	Email        string       `json:"email"`
	Phone        string       `json:"phone"`
	Address      string       `json:"address"`
	City         string       `json:"city"`
	Neighborhood string       `json:"neighborhood"`
	PostalCode   string       `json:"postal_code"`
	PropertyType PropertyType `json:"property_type"`
	SurfaceSqm   float64      `json:"surface_sqm"`
	Floor        *int         `json:"floor"`
	HasElevator  *bool        `json:"has_elevator"`
	Condition    Condition    `json:"condition"`

	MinPrice       int    `json:"min_price"`
	MaxPrice       int    `json:"max_price"`
	EstimatedPrice int    `json:"estimated_price"`
	Explanation    string `json:"explanation"`
	Analysis       string `json:"analysis"`
	Confidence     string `json:"confidence"`

	Latitude           *float64 `json:"latitude"`
	Longitude          *float64 `json:"longitude"`
	GeocodingAttempted bool     `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// LeadStats summarizes stored leads for the agency dashboard.
type LeadStats struct {
	TotalLeads        int     `json:"total_leads"`
	AverageEstimate   float64 `json:"average_estimate"`
	AverageSurfaceSqm float64 `json:"average_surface_sqm"`
	AvgPricePerSqm    float64 `json:"avg_price_per_sqm"`
}
