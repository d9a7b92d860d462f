package marriott

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
	"marriott_mcp/internal/shared"
)

const (
	searchRadiusMeters = 80467.2
	ratesPageLimit     = 150
)

var _ domain.InventoryGateway = (*Client)(nil)

func (c *Client) SearchPlaces(ctx context.Context, query string) (domain.PlacesPage, error) {
	data, err := c.do(ctx, call{
		op:    opSuggestedPlaces,
		prof:  profileHomepage,
		query: querySuggestedPlaces,
		vars:  map[string]any{"query": query},
	})
	if err != nil {
		return domain.PlacesPage{}, err
	}
	sp := shared.LookupMap(data, "suggestedPlaces")
	if sp == nil {
		return domain.PlacesPage{}, &domain.ParseError{Operation: opSuggestedPlaces, Err: errors.New("missing suggestedPlaces")}
	}
	nodes, err := edgeNodes(opSuggestedPlaces, sp["edges"])
	if err != nil {
		return domain.PlacesPage{}, err
	}
	out := domain.PlacesPage{Places: make([]domain.Place, 0, len(nodes))}
	for _, n := range nodes {
		out.Places = append(out.Places, domain.Place{
			PlaceID:              shared.LookupStr(n, "placeId"),
			Description:          shared.LookupStr(n, "description"),
			PrimaryDescription:   shared.LookupStr(n, "primaryDescription"),
			SecondaryDescription: shared.LookupStr(n, "secondaryDescription"),
		})
	}
	out.Total = len(out.Places)
	if t := shared.LookupInt(sp, "total"); t != nil {
		out.Total = *t
	}
	return out, nil
}

// PlaceDetails returns an unresolved detail (no coordinates) when the provider
// answers with a null object for an unknown place id.
func (c *Client) PlaceDetails(ctx context.Context, placeID string) (domain.PlaceDetail, error) {
	data, err := c.do(ctx, call{
		op:    opPlaceDetails,
		prof:  profileHomepage,
		query: queryPlaceDetails,
		vars:  map[string]any{"placeId": placeID},
	})
	if err != nil {
		return domain.PlaceDetail{}, err
	}
	raw, present := data["suggestedPlaceDetails"]
	if !present {
		return domain.PlaceDetail{}, &domain.ParseError{Operation: opPlaceDetails, Err: errors.New("missing suggestedPlaceDetails")}
	}
	if raw == nil {
		return domain.PlaceDetail{PlaceID: placeID, Types: []string{}}, nil
	}
	d, ok := raw.(map[string]any)
	if !ok {
		return domain.PlaceDetail{}, &domain.ParseError{Operation: opPlaceDetails, Err: fmt.Errorf("suggestedPlaceDetails is %T", raw)}
	}
	out := domain.PlaceDetail{
		PlaceID:         shared.LookupStr(d, "placeId"),
		Description:     shared.LookupStrPtr(d, "description"),
		Distance:        shared.LookupFloat(d, "distance"),
		Types:           shared.LookupStrings(d, "types"),
		DestinationType: shared.LookupStrPtr(d, "destinationType"),
		Location: domain.PlaceLocation{
			Latitude:    shared.LookupFloat(d, "location.latitude"),
			Longitude:   shared.LookupFloat(d, "location.longitude"),
			Address:     shared.LookupStrPtr(d, "location.address"),
			City:        shared.LookupStrPtr(d, "location.city"),
			State:       shared.LookupStrPtr(d, "location.state"),
			Country:     shared.LookupStrPtr(d, "location.country"),
			CountryName: shared.LookupStrPtr(d, "location.countryName"),
		},
	}
	if out.PlaceID == "" {
		out.PlaceID = placeID
	}
	return out, nil
}

func (c *Client) SearchHotels(ctx context.Context, req domain.HotelSearchRequest) (domain.SearchPage, error) {
	data, err := c.do(ctx, call{
		op:    opSearchByGeo,
		prof:  profileShop,
		query: querySearchByGeo,
		vars:  searchVariables(req),
	})
	if err != nil {
		return domain.SearchPage{}, err
	}
	sbg := shared.LookupMap(data, "search.lowestAvailableRates.searchByGeolocation")
	if sbg == nil {
		return domain.SearchPage{}, &domain.ParseError{Operation: opSearchByGeo, Err: errors.New("missing searchByGeolocation")}
	}
	nodes, err := edgeNodes(opSearchByGeo, sbg["edges"])
	if err != nil {
		return domain.SearchPage{}, err
	}
	page := domain.SearchPage{Edges: nodes, PageInfo: shared.LookupMap(sbg, "pageInfo")}
	switch t := shared.LookupInt(sbg, "total"); {
	case t != nil:
		page.Total = *t
	case len(nodes) > 0:
		return domain.SearchPage{}, &domain.ParseError{Operation: opSearchByGeo, Err: errors.New("missing total")}
	}
	// a null edge list only stands for an empty page when the provider says so
	if sbg["edges"] == nil && page.Total != 0 {
		return domain.SearchPage{}, &domain.ParseError{Operation: opSearchByGeo, Err: fmt.Errorf("edges missing with total %d", page.Total)}
	}
	for _, f := range shared.LookupSlice(sbg, "facets") {
		if m, ok := f.(map[string]any); ok {
			page.Facets = append(page.Facets, m)
		}
	}
	return page, nil
}

// PropertyDetails runs the three detail queries concurrently. A failed section is
// replaced with its fallback; only when every section fails is the first error returned.
func (c *Client) PropertyDetails(ctx context.Context, propertyID string) (domain.PropertyDetails, error) {
	ctx, span := observability.Tracer().Start(ctx, "marriott.PropertyDetails")
	defer span.End()

	type section struct {
		name     string
		op       string
		query    string
		path     string
		fallback func() map[string]any
		data     map[string]any
		err      error
	}
	sections := []*section{
		{name: sectionPropertyInfo, op: opPropertyInfo, query: queryPropertyInfo, path: "property",
			fallback: func() map[string]any { return fallbackPropertyInfo(propertyID) }},
		{name: sectionPhotoGallery, op: opPhotoGallery, query: queryPhotoGallery, path: "property.media.photoGallery",
			fallback: fallbackPhotoGallery},
		{name: sectionAmenities, op: opAmenities, query: queryAmenities, path: "property",
			fallback: func() map[string]any { return fallbackAmenities(propertyID) }},
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range sections {
		s := s
		vars := map[string]any{"propertyId": propertyID}
		if s.op == opPropertyInfo {
			vars["filter"] = "PHONE"
			vars["descriptionsFilter"] = []string{"LOCATION"}
		}
		g.Go(func() error {
			data, err := c.do(gctx, call{op: s.op, prof: profileShop, query: s.query, vars: vars})
			if err == nil {
				s.data, err = container(s.op, data, s.path)
			}
			s.err = err
			// only caller cancellation aborts the siblings
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.PropertyDetails{}, err
	}

	var out domain.PropertyDetails
	var firstErr error
	for _, s := range sections {
		if s.err != nil {
			if firstErr == nil {
				firstErr = s.err
			}
			s.data = s.fallback()
			out.DegradedSections = append(out.DegradedSections, s.name)
			observability.ObserveFallback("hotel_details", s.name)
			log.Warn().Err(s.err).Str("property_id", propertyID).Str("section", s.name).Msg("detail section degraded")
		}
	}
	if len(out.DegradedSections) == len(sections) {
		return domain.PropertyDetails{}, firstErr
	}
	out.PropertyInfo = sections[0].data
	out.PhotoGallery = sections[1].data
	out.Amenities = sections[2].data
	out.Degraded = len(out.DegradedSections) > 0
	return out, nil
}

// PropertyRates warms a cookie session, then walks the four booking queries in
// order. Sub-query failures degrade to fallbacks; caller cancellation aborts.
func (c *Client) PropertyRates(ctx context.Context, req domain.RatesRequest) (domain.PropertyRates, error) {
	ctx, span := observability.Tracer().Start(ctx, "marriott.PropertyRates")
	defer span.End()

	jar := NewCookieJar()
	c.bootstrap(ctx, jar)
	if ctx.Err() != nil {
		return domain.PropertyRates{}, ctx.Err()
	}
	requestID := uuid.NewString()
	idVars := map[string]any{"propertyId": req.PropertyID}

	steps := []struct {
		name     string
		op       string
		query    string
		vars     map[string]any
		path     string
		fallback func() map[string]any
		dst      *map[string]any
	}{
		{sectionProperty, opBookProperty, queryBookProperty, idVars, "property", fallbackBookProperty, nil},
		{sectionRooms, opBookProducts, queryBookProducts, productsVariables(req), "searchProductsByProperty", fallbackRooms, nil},
		{sectionImages, opBookRoomImages, queryBookRoomImages, idVars, "property.media.photoGallery", fallbackRoomImages, nil},
		{sectionHeader, opBookHotelHeader, queryBookHotelHeader, idVars, "property",
			func() map[string]any { return fallbackHeader(req.PropertyID) }, nil},
	}

	var out domain.PropertyRates
	steps[0].dst = &out.Property
	steps[1].dst = &out.Rooms
	steps[2].dst = &out.Images
	steps[3].dst = &out.Header

	for i, st := range steps {
		if i > 0 && !sleepCtx(ctx, c.stepDelay) {
			return domain.PropertyRates{}, ctx.Err()
		}
		data, err := c.do(ctx, call{op: st.op, prof: profileBook, query: st.query, vars: st.vars, jar: jar, requestID: requestID})
		if err == nil {
			data, err = container(st.op, data, st.path)
		}
		if err != nil {
			if ctx.Err() != nil {
				return domain.PropertyRates{}, ctx.Err()
			}
			log.Warn().Err(err).Str("property_id", req.PropertyID).Str("section", st.name).Msg("rates section degraded")
			observability.ObserveFallback("hotel_rates", st.name)
			out.DegradedSections = append(out.DegradedSections, st.name)
			data = st.fallback()
		}
		*st.dst = data
	}
	out.Degraded = len(out.DegradedSections) > 0
	return out, nil
}

func searchVariables(req domain.HotelSearchRequest) map[string]any {
	options := map[string]any{
		"startDate":                    req.StartDate,
		"endDate":                      req.EndDate,
		"rateRequestTypes":             []map[string]any{{"type": "STANDARD", "value": ""}},
		"numberInParty":                req.Guests + len(req.ChildAges),
		"quantity":                     req.Rooms,
		"includeMandatoryFees":         false,
		"includeTaxesAndFees":          false,
		"includeUnavailableProperties": true,
	}
	if len(req.ChildAges) > 0 {
		options["childAges"] = req.ChildAges
	}

	dims := req.Filters.Dimensions()
	terms := make([]map[string]any, 0, len(dims))
	for _, d := range dims {
		vals := d.Values
		if vals == nil {
			vals = []string{}
		}
		terms = append(terms, map[string]any{"type": d.Type, "dimensions": vals})
	}

	minPrice, maxPrice := "100", "200"
	if req.MinPrice != nil {
		minPrice = formatAmount(*req.MinPrice)
	}
	if req.MaxPrice != nil {
		maxPrice = formatAmount(*req.MaxPrice)
	}

	return map[string]any{
		"search": map[string]any{
			"latitude":  req.Latitude,
			"longitude": req.Longitude,
			"distance":  searchRadiusMeters,
			"options":   options,
			"facets": map[string]any{
				"terms": terms,
				"ranges": []map[string]any{
					{"type": "PRICE", "dimensions": []string{}, "endpoints": []string{"0", minPrice, maxPrice, "overflow"}},
					{"type": "DISTANCE", "dimensions": []string{}, "endpoints": []string{"0", "4830", "14520", "80470"}},
				},
			},
		},
		"limit":  req.Limit,
		"offset": req.Offset,
		"sort": map[string]any{
			"fields": []map[string]any{{"field": "DISTANCE", "direction": "ASC"}},
		},
		"filter": []string{"HOTEL_MARKETING_CAPTION"},
	}
}

func productsVariables(req domain.RatesRequest) map[string]any {
	return map[string]any{
		"search": map[string]any{
			"options": map[string]any{
				"startDate":         req.CheckInDate,
				"endDate":           req.CheckOutDate,
				"quantity":          req.Rooms,
				"numberInParty":     req.Guests,
				"childAges":         []int{},
				"productRoomType":   []string{"ALL"},
				"productStatusType": []string{"AVAILABLE"},
				"rateRequestTypes": []map[string]any{
					{"type": "STANDARD", "value": ""},
					{"type": "PREPAY", "value": ""},
					{"type": "PACKAGES", "value": ""},
					{"type": "CLUSTER", "value": "MRM"},
				},
				"isErsProperty": false,
			},
			"propertyId": req.PropertyID,
		},
		"offset": 0,
		"limit":  ratesPageLimit,
	}
}

// edgeNodes unwraps edges[].node. Absent or null edges mean an empty page.
func edgeNodes(op string, raw any) ([]map[string]any, error) {
	if raw == nil {
		return []map[string]any{}, nil
	}
	edges, ok := raw.([]any)
	if !ok {
		return nil, &domain.ParseError{Operation: op, Err: fmt.Errorf("edges is %T, want array", raw)}
	}
	out := make([]map[string]any, 0, len(edges))
	for i, e := range edges {
		edge, _ := e.(map[string]any)
		node, ok := edge["node"].(map[string]any)
		if !ok {
			return nil, &domain.ParseError{Operation: op, Err: fmt.Errorf("edges[%d].node is not an object", i)}
		}
		out = append(out, node)
	}
	return out, nil
}

func container(op string, data map[string]any, path string) (map[string]any, error) {
	m := shared.LookupMap(data, path)
	if m == nil {
		return nil, &domain.ParseError{Operation: op, Err: fmt.Errorf("missing %s", path)}
	}
	return m, nil
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}
