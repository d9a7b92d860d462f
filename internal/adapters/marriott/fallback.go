package marriott

// Canned payloads substituted for failed detail and rates sub-queries. They mirror
// the shape of a real response with every collection empty, so normalization
// downstream never needs an "unavailable" branch. Each call returns a fresh copy.

const (
	sectionPropertyInfo = "propertyInfo"
	sectionPhotoGallery = "photoGallery"
	sectionAmenities    = "amenities"
	sectionProperty     = "property"
	sectionRooms        = "rooms"
	sectionImages       = "images"
	sectionHeader       = "header"
)

func fallbackPropertyInfo(propertyID string) map[string]any {
	return map[string]any{
		"id": propertyID,
		"basicInformation": map[string]any{
			"name":         nil,
			"brand":        nil,
			"descriptions": []any{},
		},
		"contactInformation": map[string]any{"address": nil, "contactNumbers": []any{}},
		"airports":           []any{},
		"reviews":            nil,
		"parking":            []any{},
		"policies":           nil,
	}
}

func fallbackPhotoGallery() map[string]any {
	return map[string]any{}
}

func fallbackAmenities(propertyID string) map[string]any {
	return map[string]any{
		"id":                    propertyID,
		"facilitiesAndServices": []any{},
		"matchingSearchFacets":  []any{},
	}
}

func fallbackBookProperty() map[string]any {
	return map[string]any{
		"basicInformation": map[string]any{
			"descriptions": []any{},
			"isAdultsOnly": false,
			"resort":       false,
		},
	}
}

func fallbackRooms() map[string]any {
	return map[string]any{"edges": []any{}, "total": 0}
}

func fallbackRoomImages() map[string]any {
	return map[string]any{
		"imagesForAllTags": map[string]any{"total": 0, "assets": []any{}},
	}
}

func fallbackHeader(propertyID string) map[string]any {
	return map[string]any{
		"id":                 propertyID,
		"basicInformation":   map[string]any{"name": nil, "currency": nil},
		"reviews":            nil,
		"contactInformation": map[string]any{"address": nil, "contactNumbers": []any{}},
		"seoNickname":        nil,
		"media":              map[string]any{"primaryImage": map[string]any{"edges": []any{}}},
	}
}
