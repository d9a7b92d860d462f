package app

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
	"marriott_mcp/internal/shared"
)

const (
	metersPerMile   = 1609.34
	defaultDecimals = 2
	platform        = "marriott"
	unknownFacet    = "unknown"
	defaultFacetCap = 20
)

// Data quality conditions surfaced on cards instead of failing the search.
const (
	IssueMissingPropertyID  = "missing_property_id"
	IssueMissingName        = "missing_name"
	IssueMissingBookingSlug = "missing_booking_slug"
)

// ranked widest first
var imageVariants = []string{"wideHorizontal", "classicHorizontal", "square"}

type Normalizer struct {
	AssetOrigin   string
	BookingOrigin string
	FacetCap      int
}

func NewNormalizer(assetOrigin, bookingOrigin string, facetCap int) Normalizer {
	if facetCap <= 0 {
		facetCap = defaultFacetCap
	}
	return Normalizer{
		AssetOrigin:   strings.TrimRight(assetOrigin, "/"),
		BookingOrigin: strings.TrimRight(bookingOrigin, "/"),
		FacetCap:      facetCap,
	}
}

// NormalizeCard flattens one search edge node. Every nested field is optional.
func (n Normalizer) NormalizeCard(node map[string]any) domain.HotelCard {
	prop := shared.LookupMap(node, "property")
	rate := shared.LookupMap(node, "rates.0.rateModes.lowestAverageRate.amount")

	card := domain.HotelCard{
		ID:           shared.LookupStr(prop, "id"),
		Name:         shared.LookupStr(prop, "basicInformation.name"),
		Brand:        shared.LookupStrPtr(prop, "basicInformation.brand.name"),
		DistanceUnit: "mi",
		Price:        formatPrice(rate),
		Currency:     shared.LookupStrPtr(rate, "currency"),
		Rating:       shared.LookupFloat(prop, "reviews.stars.count"),
		Reviews:      shared.LookupInt(prop, "reviews.numberOfReviews.count"),
		Bookable:     shared.LookupStr(node, "rates.0.status.code") == "AvailableForSale",
		Image:        n.imageURL(prop),
		Platform:     platform,
	}

	meters := 0.0
	if d := shared.LookupFloat(node, "distance"); d != nil {
		meters = *d
	}
	card.Distance = fmt.Sprintf("%.1f", meters/metersPerMile)

	if card.Currency == nil {
		card.Currency = shared.LookupStrPtr(prop, "basicInformation.currency")
	}

	if card.ID == "" {
		card.DataIssues = append(card.DataIssues, IssueMissingPropertyID)
	}
	if card.Name == "" {
		card.DataIssues = append(card.DataIssues, IssueMissingName)
	}
	if slug := shared.LookupStr(prop, "seoNickname"); slug != "" {
		u := n.BookingOrigin + "/hotels/travel/" + slug + "/"
		card.URL = &u
	} else {
		card.DataIssues = append(card.DataIssues, IssueMissingBookingSlug)
	}
	for _, issue := range card.DataIssues {
		observability.ObserveDataIssue(issue)
		log.Warn().Str("property_id", card.ID).Str("issue", issue).Msg("hotel card data issue")
	}
	return card
}

// formatPrice divides the minor-unit amount by 10^decimalPoint and rounds to a whole
// number. An absent decimalPoint means 2; an explicit 0 is kept.
func formatPrice(amount map[string]any) *string {
	amt := shared.LookupFloat(amount, "amount")
	if amt == nil {
		return nil
	}
	decimals := float64(defaultDecimals)
	if dp := shared.LookupFloat(amount, "decimalPoint"); dp != nil {
		decimals = *dp
	}
	s := strconv.FormatFloat(math.Round(*amt/math.Pow(10, decimals)), 'f', 0, 64)
	return &s
}

func (n Normalizer) imageURL(prop map[string]any) *string {
	urls := shared.LookupMap(prop, "media.primaryImage.edges.0.node.imageUrls")
	for _, v := range imageVariants {
		u := shared.LookupStr(urls, v)
		if u == "" {
			continue
		}
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			if !strings.HasPrefix(u, "/") {
				u = "/" + u
			}
			u = n.AssetOrigin + u
		}
		return &u
	}
	return nil
}

// NormalizeFacets keeps provider order for dimensions and buckets, caps buckets per
// dimension, and keeps only the first dimension seen for a repeated code.
func (n Normalizer) NormalizeFacets(raw []map[string]any) domain.FacetCatalog {
	limit := n.FacetCap
	if limit <= 0 {
		limit = defaultFacetCap
	}
	out := domain.FacetCatalog{}
	seen := map[string]bool{}
	for _, f := range raw {
		code := shared.LookupStr(f, "type.code")
		if code == "" {
			code = unknownFacet
		}
		if seen[code] {
			continue
		}
		seen[code] = true

		dim := domain.FacetDimension{Code: code, Buckets: []domain.FacetBucket{}}
		for _, b := range shared.LookupSlice(f, "buckets") {
			if len(dim.Buckets) == limit {
				break
			}
			bm, ok := b.(map[string]any)
			if !ok {
				continue
			}
			bucket := domain.FacetBucket{
				Code:  shared.LookupStr(bm, "code"),
				Label: shared.LookupStr(bm, "label"),
			}
			if c := shared.LookupInt(bm, "count"); c != nil {
				bucket.Count = *c
			}
			dim.Buckets = append(dim.Buckets, bucket)
		}
		out = append(out, dim)
	}
	return out
}

// NormalizeSearch builds the caller-facing result. Zero edges is an empty result, not an error.
func (n Normalizer) NormalizeSearch(q domain.HotelSearchQuery, page domain.SearchPage, pageSize int) domain.HotelSearchResult {
	hotels := make([]domain.HotelCard, 0, len(page.Edges))
	for _, node := range page.Edges {
		hotels = append(hotels, n.NormalizeCard(node))
	}
	active := q.ActiveFilters()
	if active == nil {
		active = []string{}
	}
	return domain.HotelSearchResult{
		Hotels:        hotels,
		Total:         page.Total,
		Facets:        n.NormalizeFacets(page.Facets),
		Pagination:    ToPageInfo(page.Total, pageSize, q.Page, len(hotels)),
		SearchParams:  q,
		Dates:         q.StartDate + " to " + q.EndDate,
		ActiveFilters: active,
	}
}
