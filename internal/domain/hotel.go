package domain

import (
	"bytes"
	"encoding/json"
)

// HotelSearchQuery is the caller's search_hotels input after defaults are applied.
type HotelSearchQuery struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate"`
	Guests    int      `json:"guests"`
	Rooms     int      `json:"rooms"`
	ChildAges []int    `json:"childAges"`
	Page      int      `json:"page"`
	MinPrice  *float64 `json:"minPrice,omitempty"`
	MaxPrice  *float64 `json:"maxPrice,omitempty"`
	FilterSet
}

// HasFilters is true iff at least one filter dimension is non-empty.
func (q HotelSearchQuery) HasFilters() bool { return q.FilterSet.HasAny() }

// RetryParams echoes what a caller needs to repeat a search without filters.
func (q HotelSearchQuery) RetryParams() RetryParams {
	ages := q.ChildAges
	if ages == nil {
		ages = []int{}
	}
	return RetryParams{
		Latitude:  q.Latitude,
		Longitude: q.Longitude,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Guests:    q.Guests,
		Rooms:     q.Rooms,
		ChildAges: ages,
	}
}

type RetryParams struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	StartDate string  `json:"startDate"`
	EndDate   string  `json:"endDate"`
	Guests    int     `json:"guests"`
	Rooms     int     `json:"rooms"`
	ChildAges []int   `json:"childAges"`
}

// HotelSearchRequest is what the gateway sends upstream: the query plus a provider window.
type HotelSearchRequest struct {
	Latitude  float64
	Longitude float64
	StartDate string
	EndDate   string
	Guests    int
	Rooms     int
	ChildAges []int
	MinPrice  *float64
	MaxPrice  *float64
	Filters   FilterSet
	Offset    int
	Limit     int
}

// SearchPage is the raw, provider-shaped page. Edges and facets stay loosely typed
// so the normalizer can treat every nested field as optional.
type SearchPage struct {
	Total    int
	Edges    []map[string]any
	Facets   []map[string]any
	PageInfo map[string]any
}

// HotelCard is the flat, stable per-hotel record handed to callers.
type HotelCard struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Brand        *string  `json:"brand"`
	Distance     string   `json:"distance"`
	DistanceUnit string   `json:"distanceUnit"`
	Price        *string  `json:"price"`
	Currency     *string  `json:"currency"`
	Rating       *float64 `json:"rating"`
	Reviews      *int     `json:"reviews"`
	Bookable     bool     `json:"bookable"`
	URL          *string  `json:"url"`
	Image        *string  `json:"image"`
	Platform     string   `json:"platform"`
	DataIssues   []string `json:"dataIssues,omitempty"`
}

type FacetBucket struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Count int    `json:"count"`
}

type FacetDimension struct {
	Code    string
	Buckets []FacetBucket
}

// FacetCatalog keeps provider dimension order; it serializes as an object keyed by code.
type FacetCatalog []FacetDimension

func (c FacetCatalog) Lookup(code string) ([]FacetBucket, bool) {
	for _, d := range c {
		if d.Code == code {
			return d.Buckets, true
		}
	}
	return nil, false
}

func (c FacetCatalog) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, d := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(d.Code)
		if err != nil {
			return nil, err
		}
		buckets := d.Buckets
		if buckets == nil {
			buckets = []FacetBucket{}
		}
		v, err := json.Marshal(buckets)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

type PageInfo struct {
	CurrentPage  int  `json:"currentPage"`
	TotalPages   int  `json:"totalPages"`
	TotalResults int  `json:"totalResults"`
	PerPage      int  `json:"perPage"`
	HasNextPage  bool `json:"hasNextPage"`
	HasPrevPage  bool `json:"hasPrevPage"`
	ShowingFrom  int  `json:"showingFrom"`
	ShowingTo    int  `json:"showingTo"`
}

type HotelSearchResult struct {
	Hotels        []HotelCard      `json:"hotels"`
	Total         int              `json:"total"`
	Facets        FacetCatalog     `json:"facets"`
	Pagination    PageInfo         `json:"pagination"`
	SearchParams  HotelSearchQuery `json:"searchParams"`
	Dates         string           `json:"dates"`
	ActiveFilters []string         `json:"activeFilters"`
}

// PropertyDetails is the joined result of the three detail sub-queries.
type PropertyDetails struct {
	PropertyInfo     map[string]any
	PhotoGallery     map[string]any
	Amenities        map[string]any
	Degraded         bool
	DegradedSections []string
}

type RatesRequest struct {
	PropertyID   string
	CheckInDate  string
	CheckOutDate string
	Rooms        int
	Guests       int
}

// PropertyRates is the joined result of the rates chain; failed sections hold fallback data.
type PropertyRates struct {
	Property         map[string]any
	Rooms            map[string]any
	Images           map[string]any
	Header           map[string]any
	Degraded         bool
	DegradedSections []string
}
