package domain

import "strings"

// FilterSet holds the twelve facet dimensions a hotel search can be narrowed by.
type FilterSet struct {
	Brands              []string `json:"brands"`
	Amenities           []string `json:"amenities"`
	Activities          []string `json:"activities"`
	TransportationTypes []string `json:"transportationTypes"`
	PropertyTypes       []string `json:"propertyTypes"`
	Cities              []string `json:"cities"`
	States              []string `json:"states"`
	Countries           []string `json:"countries"`
	MeetingsAndEvents   []string `json:"meetingsAndEvents"`
	HotelServiceTypes   []string `json:"hotelServiceTypes"`
	LeisureRegion       []string `json:"leisureRegion"`
	AllInclusive        []string `json:"allInclusive"`
}

// Dimension pairs a provider facet type with the caller's selected codes.
type Dimension struct {
	Type   string
	Label  string
	Values []string
}

// Dimensions lists every dimension in the provider's expected term order.
func (f FilterSet) Dimensions() []Dimension {
	return []Dimension{
		{Type: "BRANDS", Label: "Brands", Values: f.Brands},
		{Type: "AMENITIES", Label: "Amenities", Values: f.Amenities},
		{Type: "PROPERTY_TYPES", Label: "Property Types", Values: f.PropertyTypes},
		{Type: "ACTIVITIES", Label: "Activities", Values: f.Activities},
		{Type: "CITIES", Label: "Cities", Values: f.Cities},
		{Type: "STATES", Label: "States", Values: f.States},
		{Type: "COUNTRIES", Label: "Countries", Values: f.Countries},
		{Type: "HOTEL_SERVICE_TYPES", Label: "Hotel Services", Values: f.HotelServiceTypes},
		{Type: "MEETINGS_EVENTS", Label: "Meetings & Events", Values: f.MeetingsAndEvents},
		{Type: "TRANSPORTATION_TYPES", Label: "Transportation", Values: f.TransportationTypes},
		{Type: "LEISURE_REGIONS", Label: "Leisure Regions", Values: f.LeisureRegion},
		{Type: "ALL_INCLUSIVE", Label: "All-Inclusive", Values: f.AllInclusive},
	}
}

// HasAny is true iff at least one dimension has a selected value.
func (f FilterSet) HasAny() bool {
	for _, d := range f.Dimensions() {
		if len(d.Values) > 0 {
			return true
		}
	}
	return false
}

// ActiveFilters renders the non-empty dimensions as "Label: a, b".
func (f FilterSet) ActiveFilters() []string {
	var out []string
	for _, d := range f.Dimensions() {
		if len(d.Values) == 0 {
			continue
		}
		out = append(out, d.Label+": "+strings.Join(d.Values, ", "))
	}
	return out
}

// Normalized returns a copy where nil dimensions become empty slices,
// so echoed parameters always serialize as arrays.
func (f FilterSet) Normalized() FilterSet {
	nz := func(s []string) []string {
		if s == nil {
			return []string{}
		}
		return s
	}
	return FilterSet{
		Brands:              nz(f.Brands),
		Amenities:           nz(f.Amenities),
		Activities:          nz(f.Activities),
		TransportationTypes: nz(f.TransportationTypes),
		PropertyTypes:       nz(f.PropertyTypes),
		Cities:              nz(f.Cities),
		States:              nz(f.States),
		Countries:           nz(f.Countries),
		MeetingsAndEvents:   nz(f.MeetingsAndEvents),
		HotelServiceTypes:   nz(f.HotelServiceTypes),
		LeisureRegion:       nz(f.LeisureRegion),
		AllInclusive:        nz(f.AllInclusive),
	}
}
