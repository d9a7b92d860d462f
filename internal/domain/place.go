package domain

// Place is a geocodable location suggestion.
type Place struct {
	PlaceID              string `json:"placeId"`
	Description          string `json:"description"`
	PrimaryDescription   string `json:"primaryDescription"`
	SecondaryDescription string `json:"secondaryDescription"`
}

type PlacesPage struct {
	Places []Place `json:"places"`
	Total  int     `json:"total"`
}

// PlaceLocation carries coordinates and address; any field may be absent upstream.
type PlaceLocation struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	Address     *string  `json:"address"`
	City        *string  `json:"city"`
	State       *string  `json:"state"`
	Country     *string  `json:"country"`
	CountryName *string  `json:"countryName"`
}

type PlaceDetail struct {
	PlaceID         string        `json:"placeId"`
	Description     *string       `json:"description"`
	Distance        *float64      `json:"distance"`
	Location        PlaceLocation `json:"location"`
	Types           []string      `json:"types"`
	DestinationType *string       `json:"destinationType"`
}

// Resolved reports whether both coordinates came back.
func (p PlaceDetail) Resolved() bool {
	return p.Location.Latitude != nil && p.Location.Longitude != nil
}
