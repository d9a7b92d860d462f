package app

import (
	"fmt"
	"strconv"
	"strings"

	"marriott_mcp/internal/domain"
	"marriott_mcp/internal/shared"
)

func searchText(res domain.HotelSearchResult, filtered bool, facetCap int) string {
	var b strings.Builder
	b.WriteString("SEARCH RESULTS REFERENCE (use these property IDs for details):\n\n")
	start := res.Pagination.ShowingFrom
	for i, h := range res.Hotels {
		fmt.Fprintf(&b, "%d. %q - Property ID: %s\n", start+i, h.Name, h.ID)
	}
	if res.Pagination.TotalPages > 1 {
		fmt.Fprintf(&b, "\n... showing %d of %d total results (page %d/%d)\n",
			len(res.Hotels), res.Total, res.Pagination.CurrentPage, res.Pagination.TotalPages)
	}
	if !filtered {
		if block := facetsText(res.Facets, facetCap); block != "" {
			b.WriteString(block)
		}
	}
	b.WriteString("\nUse the exact Property ID from this list with hotel_details or hotel_rates.")
	return b.String()
}

func facetsText(facets domain.FacetCatalog, limit int) string {
	var b strings.Builder
	for _, d := range facets {
		codes := make([]string, 0, len(d.Buckets))
		for _, bk := range d.Buckets {
			if len(codes) == limit {
				break
			}
			if bk.Code != "" {
				codes = append(codes, bk.Code)
			}
		}
		if len(codes) > 0 {
			fmt.Fprintf(&b, "\n%s: %s\n", d.Code, strings.Join(codes, ", "))
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return "\n=== AVAILABLE FACETS ===\n" + b.String() + "\n=== USE THESE EXACT CODES IN YOUR NEXT SEARCH ===\n"
}

func noResultsText(active []string) string {
	var b strings.Builder
	b.WriteString("No hotels found matching your criteria.\n\n")
	if len(active) == 0 {
		b.WriteString("Try adjusting your dates or searching a different location.")
		return b.String()
	}
	b.WriteString("Active filters:\n")
	for _, f := range active {
		fmt.Fprintf(&b, "  - %s\n", f)
	}
	b.WriteString("\nSuggestions:\n  - Try removing some filters\n  - Adjust your dates\n  - Search a different location")
	return b.String()
}

func pastLastPageText(page int, pi domain.PageInfo) string {
	return fmt.Sprintf("Page %d is past the end of these results: %d hotels found across %d pages.\n\nRequest page %d to see the last page.",
		page, pi.TotalResults, pi.TotalPages, pi.TotalPages)
}

func discoveryText(q domain.HotelSearchQuery) string {
	return fmt.Sprintf(`DISCOVERY REQUIRED: search this location without filters first.

Step 1: call search_hotels WITHOUT any filter parameters:
- latitude: %s
- longitude: %s
- startDate: %s
- endDate: %s
- guests: %d
- rooms: %d

Step 2: read the AVAILABLE FACETS section of that response.

Step 3: call search_hotels again using only codes listed there.`,
		fmtCoord(q.Latitude), fmtCoord(q.Longitude), q.StartDate, q.EndDate, q.Guests, q.Rooms)
}

func failureText(action string, err error) string {
	return fmt.Sprintf("Could not %s: %s. Please try again, or adjust the search criteria.", action, domain.ErrorCode(err))
}

func placesText(query string, page domain.PlacesPage) string {
	if len(page.Places) == 0 {
		return fmt.Sprintf("No places found for %q. Try a more specific name.", query)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d places for %q:\n", page.Total, query)
	for i, p := range page.Places {
		fmt.Fprintf(&b, "%d. %s (placeId: %s)\n", i+1, p.Description, p.PlaceID)
	}
	b.WriteString("\nCall place_details with a placeId to get coordinates.")
	return b.String()
}

func placeText(d domain.PlaceDetail) string {
	if !d.Resolved() {
		return fmt.Sprintf("Could not resolve coordinates for place %s. Ask the user for a more specific location.", d.PlaceID)
	}
	name := d.PlaceID
	if d.Description != nil {
		name = *d.Description
	}
	return fmt.Sprintf("%s is at latitude %s, longitude %s.", name, fmtCoord(*d.Location.Latitude), fmtCoord(*d.Location.Longitude))
}

func detailsText(id string, d domain.PropertyDetails) string {
	name := shared.LookupStr(d.PropertyInfo, "basicInformation.name")
	if name == "" {
		name = id
	}
	var b strings.Builder
	b.WriteString(name)
	if brand := shared.LookupStr(d.PropertyInfo, "basicInformation.brand.name"); brand != "" {
		fmt.Fprintf(&b, " (%s)", brand)
	}
	if city := shared.LookupStr(d.PropertyInfo, "contactInformation.address.city"); city != "" {
		fmt.Fprintf(&b, " in %s", city)
	}
	b.WriteString(".")
	if r := shared.LookupFloat(d.PropertyInfo, "reviews.stars.count"); r != nil {
		fmt.Fprintf(&b, " Rating %.1f/5.", *r)
	}
	fmt.Fprintf(&b, " %d photos.", countPhotos(d.PhotoGallery))
	if d.Degraded {
		fmt.Fprintf(&b, " Some sections are unavailable: %s.", strings.Join(d.DegradedSections, ", "))
	}
	return b.String()
}

func countPhotos(gallery map[string]any) int {
	n := 0
	for _, v := range gallery {
		if cat, ok := v.(map[string]any); ok {
			n += len(shared.LookupSlice(cat, "edges"))
		}
	}
	return n
}

func ratesText(req domain.RatesRequest, r domain.PropertyRates) string {
	name := shared.LookupStr(r.Header, "basicInformation.name")
	if name == "" {
		name = req.PropertyID
	}
	rooms := len(shared.LookupSlice(r.Rooms, "edges"))
	s := fmt.Sprintf("%s: %d room options for %s to %s (%d room(s), %d guest(s)).",
		name, rooms, req.CheckInDate, req.CheckOutDate, req.Rooms, req.Guests)
	if r.Degraded {
		s += fmt.Sprintf(" Some sections use fallback data: %s.", strings.Join(r.DegradedSections, ", "))
	}
	return s
}

func fmtCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
