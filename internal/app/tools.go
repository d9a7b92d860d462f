package app

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
)

// Tool names exposed to calling agents.
const (
	ToolSearchPlaces = "search_places"
	ToolPlaceDetails = "place_details"
	ToolSearchHotels = "search_hotels"
	ToolHotelDetails = "hotel_details"
	ToolHotelRates   = "hotel_rates"
)

type PlacesInput struct {
	Query string `json:"query"`
}

type PlaceInput struct {
	PlaceID string `json:"placeId"`
}

type DetailsInput struct {
	PropertyID string `json:"propertyId"`
}

type RatesInput struct {
	PropertyID   string `json:"propertyId"`
	CheckInDate  string `json:"checkInDate"`
	CheckOutDate string `json:"checkOutDate"`
	Rooms        int    `json:"rooms"`
	Guests       int    `json:"guests"`
}

type placeContent struct {
	domain.PlaceDetail
	Resolved bool `json:"resolved"`
}

type detailsContent struct {
	PropertyID       string         `json:"propertyId"`
	PropertyInfo     map[string]any `json:"propertyInfo"`
	PhotoGallery     map[string]any `json:"photoGallery"`
	Amenities        map[string]any `json:"amenities"`
	Degraded         bool           `json:"degraded"`
	DegradedSections []string       `json:"degradedSections"`
}

type ratesContent struct {
	PropertyID       string         `json:"propertyId"`
	CheckInDate      string         `json:"checkInDate"`
	CheckOutDate     string         `json:"checkOutDate"`
	RoomCount        int            `json:"roomCount"`
	Guests           int            `json:"guests"`
	Property         map[string]any `json:"property"`
	Rooms            map[string]any `json:"rooms"`
	Images           map[string]any `json:"images"`
	Header           map[string]any `json:"header"`
	Degraded         bool           `json:"degraded"`
	DegradedSections []string       `json:"degradedSections"`
}

type discoveryContent struct {
	Status      string             `json:"status"`
	Message     string             `json:"message"`
	LocationKey string             `json:"locationKey"`
	RetryWith   domain.RetryParams `json:"retryWith"`
}

// ToolService implements the five tools on top of the gateway, the discovery
// guard and the normalizer. Every method returns a tool result; faults become
// error results rather than Go errors.
type ToolService struct {
	gw       domain.InventoryGateway
	guard    *DiscoveryGuard
	norm     Normalizer
	pageSize int
	audit    domain.SearchAuditLog
	now      func() time.Time
}

type Option func(*ToolService)

func WithAuditLog(a domain.SearchAuditLog) Option {
	return func(s *ToolService) { s.audit = a }
}

func NewToolService(gw domain.InventoryGateway, guard *DiscoveryGuard, norm Normalizer, pageSize int, opts ...Option) *ToolService {
	s := &ToolService{
		gw:       gw,
		guard:    guard,
		norm:     norm,
		pageSize: pageSizeOrDefault(pageSize),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *ToolService) PageSize() int { return s.pageSize }

func (s *ToolService) SearchPlaces(ctx context.Context, in PlacesInput) domain.ToolResult {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		return s.invalid(ToolSearchPlaces, &domain.ValidationError{Field: "query", Message: "query is required"})
	}
	page, err := s.gw.SearchPlaces(ctx, query)
	if err != nil {
		return s.failed(ToolSearchPlaces, "search places", err)
	}
	if page.Places == nil {
		page.Places = []domain.Place{}
	}
	observability.ObserveTool(ToolSearchPlaces, domain.OutcomeOK)
	return domain.ToolResult{ShortText: placesText(query, page), StructuredContent: page}
}

func (s *ToolService) ResolvePlace(ctx context.Context, in PlaceInput) domain.ToolResult {
	id := strings.TrimSpace(in.PlaceID)
	if id == "" {
		return s.invalid(ToolPlaceDetails, &domain.ValidationError{Field: "placeId", Message: "placeId is required"})
	}
	d, err := s.gw.PlaceDetails(ctx, id)
	if err != nil {
		return s.failed(ToolPlaceDetails, "resolve place", err)
	}
	if d.Types == nil {
		d.Types = []string{}
	}
	outcome := domain.OutcomeOK
	if !d.Resolved() {
		outcome = "unresolved"
	}
	observability.ObserveTool(ToolPlaceDetails, outcome)
	return domain.ToolResult{
		ShortText:         placeText(d),
		StructuredContent: placeContent{PlaceDetail: d, Resolved: d.Resolved()},
	}
}

// SearchHotels runs the guard before any provider call, so a rejected search
// costs no round trip.
func (s *ToolService) SearchHotels(ctx context.Context, sessionID string, q domain.HotelSearchQuery) domain.ToolResult {
	q = withSearchDefaults(q)
	key := LocationKey(q.Latitude, q.Longitude)
	rec := domain.SearchRecord{
		SessionID:   sessionID,
		LocationKey: key,
		StartDate:   q.StartDate,
		EndDate:     q.EndDate,
		Page:        q.Page,
		Filters:     q.ActiveFilters(),
	}

	if verr := validateSearch(q); verr != nil {
		s.record(ctx, rec, domain.OutcomeInvalid, nil, verr)
		return s.invalid(ToolSearchHotels, verr)
	}

	decision, err := s.guard.Check(ctx, sessionID, key, q.HasFilters())
	if err != nil {
		log.Error().Err(err).Str("session", sessionID).Msg("discovery store failed")
		s.record(ctx, rec, domain.OutcomeFailed, nil, err)
		return s.failed(ToolSearchHotels, "search hotels", err)
	}
	if decision == Reject {
		rej := &domain.DiscoveryRequiredError{LocationKey: key, Retry: q.RetryParams()}
		s.record(ctx, rec, domain.OutcomeRejected, nil, rej)
		observability.ObserveTool(ToolSearchHotels, domain.OutcomeRejected)
		return domain.ToolResult{
			ShortText: discoveryText(q),
			StructuredContent: discoveryContent{
				Status:      domain.CodeDiscoveryRequired,
				Message:     "Search this location without filters first, then filter using codes from its facets.",
				LocationKey: key,
				RetryWith:   rej.Retry,
			},
		}
	}

	page, err := s.gw.SearchHotels(ctx, domain.HotelSearchRequest{
		Latitude:  q.Latitude,
		Longitude: q.Longitude,
		StartDate: q.StartDate,
		EndDate:   q.EndDate,
		Guests:    q.Guests,
		Rooms:     q.Rooms,
		ChildAges: q.ChildAges,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Filters:   q.FilterSet,
		Offset:    ToOffset(q.Page, s.pageSize),
		Limit:     s.pageSize,
	})
	if err != nil {
		s.record(ctx, rec, domain.OutcomeFailed, nil, err)
		return s.failed(ToolSearchHotels, "search hotels", err)
	}
	if !q.HasFilters() {
		if err := s.guard.Record(ctx, sessionID, key); err != nil {
			log.Error().Err(err).Str("session", sessionID).Str("location", key).Msg("discovery not recorded")
		}
	}

	res := s.norm.NormalizeSearch(q, page, s.pageSize)
	if len(res.Hotels) == 0 {
		s.record(ctx, rec, domain.OutcomeEmpty, &res, nil)
		observability.ObserveTool(ToolSearchHotels, domain.OutcomeEmpty)
		text := noResultsText(res.ActiveFilters)
		if res.Total > 0 {
			text = pastLastPageText(q.Page, res.Pagination)
		}
		return domain.ToolResult{ShortText: text, StructuredContent: res}
	}
	s.record(ctx, rec, domain.OutcomeOK, &res, nil)
	observability.ObserveTool(ToolSearchHotels, domain.OutcomeOK)
	return domain.ToolResult{
		ShortText:         searchText(res, q.HasFilters(), s.norm.FacetCap),
		StructuredContent: res,
	}
}

func (s *ToolService) HotelDetails(ctx context.Context, in DetailsInput) domain.ToolResult {
	id := strings.TrimSpace(in.PropertyID)
	if id == "" {
		return s.invalid(ToolHotelDetails, &domain.ValidationError{Field: "propertyId", Message: "propertyId is required"})
	}
	d, err := s.gw.PropertyDetails(ctx, id)
	if err != nil {
		return s.failed(ToolHotelDetails, "load hotel details", err)
	}
	observability.ObserveTool(ToolHotelDetails, outcomeFor(d.Degraded))
	return domain.ToolResult{
		ShortText: detailsText(id, d),
		StructuredContent: detailsContent{
			PropertyID:       id,
			PropertyInfo:     d.PropertyInfo,
			PhotoGallery:     d.PhotoGallery,
			Amenities:        d.Amenities,
			Degraded:         d.Degraded,
			DegradedSections: nonNil(d.DegradedSections),
		},
	}
}

// HotelRates passes dates through untouched; the provider owns date validation.
func (s *ToolService) HotelRates(ctx context.Context, in RatesInput) domain.ToolResult {
	req := domain.RatesRequest{
		PropertyID:   strings.TrimSpace(in.PropertyID),
		CheckInDate:  strings.TrimSpace(in.CheckInDate),
		CheckOutDate: strings.TrimSpace(in.CheckOutDate),
		Rooms:        in.Rooms,
		Guests:       in.Guests,
	}
	var missing []*domain.ValidationError
	if req.PropertyID == "" {
		missing = append(missing, &domain.ValidationError{Field: "propertyId", Message: "propertyId is required"})
	}
	if req.CheckInDate == "" {
		missing = append(missing, &domain.ValidationError{Field: "checkInDate", Message: "checkInDate is required"})
	}
	if req.CheckOutDate == "" {
		missing = append(missing, &domain.ValidationError{Field: "checkOutDate", Message: "checkOutDate is required"})
	}
	if len(missing) > 0 {
		return s.invalid(ToolHotelRates, missing...)
	}
	if req.Rooms < 1 {
		req.Rooms = 1
	}
	if req.Guests < 1 {
		req.Guests = 1
	}

	r, err := s.gw.PropertyRates(ctx, req)
	if err != nil {
		return s.failed(ToolHotelRates, "load hotel rates", err)
	}
	observability.ObserveTool(ToolHotelRates, outcomeFor(r.Degraded))
	return domain.ToolResult{
		ShortText: ratesText(req, r),
		StructuredContent: ratesContent{
			PropertyID:       req.PropertyID,
			CheckInDate:      req.CheckInDate,
			CheckOutDate:     req.CheckOutDate,
			RoomCount:        req.Rooms,
			Guests:           req.Guests,
			Property:         r.Property,
			Rooms:            r.Rooms,
			Images:           r.Images,
			Header:           r.Header,
			Degraded:         r.Degraded,
			DegradedSections: nonNil(r.DegradedSections),
		},
	}
}

// ValidationResult is the uniform invalid-input result, shared with schema validation.
func ValidationResult(message string, fields []string) domain.ToolResult {
	if fields == nil {
		fields = []string{}
	}
	return domain.ToolResult{
		ShortText: "Invalid input: " + message,
		StructuredContent: map[string]any{
			"error": map[string]any{
				"code":    domain.CodeValidation,
				"message": message,
				"fields":  fields,
			},
		},
		IsError: true,
	}
}

func (s *ToolService) invalid(tool string, errs ...*domain.ValidationError) domain.ToolResult {
	observability.ObserveTool(tool, domain.OutcomeInvalid)
	msgs := make([]string, 0, len(errs))
	fields := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Error())
		fields = append(fields, e.Field)
	}
	return ValidationResult(strings.Join(msgs, "; "), fields)
}

func (s *ToolService) failed(tool, action string, err error) domain.ToolResult {
	observability.ObserveTool(tool, domain.OutcomeFailed)
	log.Warn().Err(err).Str("tool", tool).Str("code", domain.ErrorCode(err)).Msg("tool call failed")
	return domain.ToolResult{
		ShortText: failureText(action, err),
		StructuredContent: map[string]any{
			"error": map[string]any{
				"code":      domain.ErrorCode(err),
				"message":   err.Error(),
				"retryable": domain.IsRetryable(err),
			},
		},
		IsError: true,
	}
}

// record writes the audit row. Failures are logged and never change the tool result.
func (s *ToolService) record(ctx context.Context, rec domain.SearchRecord, outcome string, res *domain.HotelSearchResult, err error) {
	if s.audit == nil {
		return
	}
	rec.Outcome = outcome
	rec.CreatedAt = s.now().UTC()
	if rec.Filters == nil {
		rec.Filters = []string{}
	}
	if res != nil {
		total, returned := res.Total, len(res.Hotels)
		rec.Total, rec.Returned = &total, &returned
	}
	if err != nil {
		code := domain.ErrorCode(err)
		rec.ErrorCode = &code
	}
	// the audit write must not inherit a cancelled request
	actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if aerr := s.audit.RecordSearch(actx, rec); aerr != nil {
		log.Warn().Err(aerr).Str("session", rec.SessionID).Msg("search audit write failed")
	}
}

func withSearchDefaults(q domain.HotelSearchQuery) domain.HotelSearchQuery {
	q.StartDate = strings.TrimSpace(q.StartDate)
	q.EndDate = strings.TrimSpace(q.EndDate)
	if q.Guests < 1 {
		q.Guests = 1
	}
	if q.Rooms < 1 {
		q.Rooms = 1
	}
	if q.ChildAges == nil {
		q.ChildAges = []int{}
	}
	q.Page = NormalizePage(q.Page)
	q.FilterSet = q.FilterSet.Normalized()
	return q
}

func validateSearch(q domain.HotelSearchQuery) *domain.ValidationError {
	switch {
	case q.StartDate == "":
		return &domain.ValidationError{Field: "startDate", Message: "startDate is required"}
	case q.EndDate == "":
		return &domain.ValidationError{Field: "endDate", Message: "endDate is required"}
	case q.Latitude < -90 || q.Latitude > 90:
		return &domain.ValidationError{Field: "latitude", Message: "latitude must be between -90 and 90"}
	case q.Longitude < -180 || q.Longitude > 180:
		return &domain.ValidationError{Field: "longitude", Message: "longitude must be between -180 and 180"}
	case q.MinPrice != nil && q.MaxPrice != nil && *q.MinPrice > *q.MaxPrice:
		return &domain.ValidationError{Field: "minPrice", Message: "minPrice must not exceed maxPrice"}
	}
	return nil
}

func outcomeFor(degraded bool) string {
	if degraded {
		return "degraded"
	}
	return domain.OutcomeOK
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// IsDiscoveryRequired reports whether a structured result is a guard rejection.
func IsDiscoveryRequired(r domain.ToolResult) bool {
	c, ok := r.StructuredContent.(discoveryContent)
	return ok && c.Status == domain.CodeDiscoveryRequired
}
