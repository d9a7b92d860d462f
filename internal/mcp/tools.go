package mcp

import (
	"context"

	"marriott_mcp/internal/app"
	"marriott_mcp/internal/domain"
)

const (
	ResultsWidgetURI = "ui://widget/hotel-results.html"
	DetailsWidgetURI = "ui://widget/hotel-details.html"
)

// ToolService is the application surface the registry dispatches to.
type ToolService interface {
	SearchPlaces(ctx context.Context, in app.PlacesInput) domain.ToolResult
	ResolvePlace(ctx context.Context, in app.PlaceInput) domain.ToolResult
	SearchHotels(ctx context.Context, sessionID string, q domain.HotelSearchQuery) domain.ToolResult
	HotelDetails(ctx context.Context, in app.DetailsInput) domain.ToolResult
	HotelRates(ctx context.Context, in app.RatesInput) domain.ToolResult
}

var readOnly = map[string]any{"readOnlyHint": true}

const datePattern = `^\d{4}-\d{2}-\d{2}$`

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "minLength": 1, "description": desc}
}

func positiveInt(desc string) map[string]any {
	return map[string]any{"type": "integer", "minimum": 1, "description": desc}
}

func codes(desc string) map[string]any {
	return map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": desc}
}

func object(props map[string]any, required ...string) map[string]any {
	s := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		s["required"] = required
	}
	return s
}

func widgetMeta(uri, invoking, invoked string) map[string]any {
	return map[string]any{
		"openai/outputTemplate":          uri,
		"openai/toolInvocation/invoking": invoking,
		"openai/toolInvocation/invoked":  invoked,
		"openai/widgetAccessible":        true,
	}
}

func searchHotelsSchema() map[string]any {
	props := map[string]any{
		"latitude":  map[string]any{"type": "number", "minimum": -90, "maximum": 90, "description": "Latitude from place_details"},
		"longitude": map[string]any{"type": "number", "minimum": -180, "maximum": 180, "description": "Longitude from place_details"},
		"startDate": map[string]any{"type": "string", "pattern": datePattern, "description": "Check-in date, YYYY-MM-DD"},
		"endDate":   map[string]any{"type": "string", "pattern": datePattern, "description": "Check-out date, YYYY-MM-DD"},
		"guests":    positiveInt("Adults, default 1"),
		"rooms":     positiveInt("Rooms, default 1"),
		"childAges": map[string]any{
			"type":        "array",
			"items":       map[string]any{"type": "integer", "minimum": 0, "maximum": 17},
			"description": "Age of each child",
		},
		"page":     positiveInt("1-based page, default 1"),
		"minPrice": map[string]any{"type": "number", "minimum": 0},
		"maxPrice": map[string]any{"type": "number", "minimum": 0},
	}
	for _, f := range filterFields {
		props[f[0]] = codes("Exact " + f[1] + " codes from the facet list of an unfiltered search")
	}
	return object(props, "latitude", "longitude", "startDate", "endDate")
}

// input field and label for each facet dimension
var filterFields = [][2]string{
	{"brands", "brand"},
	{"amenities", "amenity"},
	{"activities", "activity"},
	{"transportationTypes", "transportation"},
	{"propertyTypes", "property type"},
	{"cities", "city"},
	{"states", "state"},
	{"countries", "country"},
	{"meetingsAndEvents", "meetings and events"},
	{"hotelServiceTypes", "hotel service"},
	{"leisureRegion", "leisure region"},
	{"allInclusive", "all-inclusive"},
}

// RegisterTools binds the five hotel tools to svc.
func RegisterTools(r *Registry, svc ToolService) error {
	defs := []struct {
		tool Tool
		h    Handler
	}{
		{
			Tool{
				Name:        app.ToolSearchPlaces,
				Title:       "Search places",
				Description: "Find place suggestions for a free-text location. Use the returned placeId with place_details.",
				InputSchema: object(map[string]any{"query": str("City, landmark or address")}, "query"),
				Annotations: readOnly,
			},
			bind(func(ctx context.Context, _ string, in app.PlacesInput) domain.ToolResult {
				return svc.SearchPlaces(ctx, in)
			}),
		},
		{
			Tool{
				Name:        app.ToolPlaceDetails,
				Title:       "Place details",
				Description: "Resolve a placeId from search_places to coordinates for search_hotels.",
				InputSchema: object(map[string]any{"placeId": str("placeId from search_places")}, "placeId"),
				Annotations: readOnly,
			},
			bind(func(ctx context.Context, _ string, in app.PlaceInput) domain.ToolResult {
				return svc.ResolvePlace(ctx, in)
			}),
		},
		{
			Tool{
				Name:  app.ToolSearchHotels,
				Title: "Search hotels",
				Description: "Search hotels around coordinates for a date range. Always run an unfiltered search first " +
					"for a location; filters only accept codes from that search's facet list.",
				InputSchema: searchHotelsSchema(),
				Annotations: readOnly,
				Meta:        widgetMeta(ResultsWidgetURI, "Searching hotels", "Hotels found"),
			},
			bind(svc.SearchHotels),
		},
		{
			Tool{
				Name:        app.ToolHotelDetails,
				Title:       "Hotel details",
				Description: "Property information, photo gallery and amenities for a Property ID.",
				InputSchema: object(map[string]any{"propertyId": str("Property ID from search_hotels")}, "propertyId"),
				Annotations: readOnly,
				Meta:        widgetMeta(DetailsWidgetURI, "Loading hotel", "Hotel loaded"),
			},
			bind(func(ctx context.Context, _ string, in app.DetailsInput) domain.ToolResult {
				return svc.HotelDetails(ctx, in)
			}),
		},
		{
			Tool{
				Name:        app.ToolHotelRates,
				Title:       "Hotel rates",
				Description: "Room rates for a property and stay. Rooms and guests default to 1.",
				InputSchema: object(map[string]any{
					"propertyId":   str("Property ID from search_hotels"),
					"checkInDate":  str("Check-in date, YYYY-MM-DD"),
					"checkOutDate": str("Check-out date, YYYY-MM-DD"),
					"rooms":        positiveInt("Rooms, default 1"),
					"guests":       positiveInt("Guests per room, default 1"),
				}, "propertyId", "checkInDate", "checkOutDate"),
				Annotations: readOnly,
			},
			bind(func(ctx context.Context, _ string, in app.RatesInput) domain.ToolResult {
				return svc.HotelRates(ctx, in)
			}),
		},
	}
	for _, d := range defs {
		if err := r.Register(d.tool, d.h); err != nil {
			return err
		}
	}
	return nil
}
