package app_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marriott_mcp/internal/app"
	"marriott_mcp/internal/domain"
)

func norm() app.Normalizer {
	return app.NewNormalizer("https://cache.marriott.com", "https://www.marriott.com", 20)
}

func ptr[T any](v T) *T { return &v }

func edge(amount any, decimalPoint any) map[string]any {
	amt := map[string]any{"currency": "USD"}
	if amount != nil {
		amt["amount"] = amount
	}
	if decimalPoint != nil {
		amt["decimalPoint"] = decimalPoint
	}
	return map[string]any{
		"distance": 1609.34,
		"property": map[string]any{
			"id":          "NYCMQ",
			"seoNickname": "nycmq-new-york-marriott-marquis",
			"basicInformation": map[string]any{
				"name":     "New York Marriott Marquis",
				"currency": "EUR",
				"brand":    map[string]any{"name": "Marriott Hotels"},
			},
			"reviews": map[string]any{
				"stars":           map[string]any{"count": 4.4},
				"numberOfReviews": map[string]any{"count": 5123.0},
			},
			"media": map[string]any{"primaryImage": map[string]any{"edges": []any{
				map[string]any{"node": map[string]any{"imageUrls": map[string]any{
					"classicHorizontal": "/content/dam/marriott/nycmq-classic.jpg",
					"square":            "/content/dam/marriott/nycmq-square.jpg",
				}}},
			}}},
		},
		"rates": []any{map[string]any{
			"status":    map[string]any{"code": "AvailableForSale"},
			"rateModes": map[string]any{"lowestAverageRate": map[string]any{"amount": amt}},
		}},
	}
}

func TestNormalizeCard_FullEdge(t *testing.T) {
	c := norm().NormalizeCard(edge(53900.0, 2.0))
	assert.Equal(t, "NYCMQ", c.ID)
	assert.Equal(t, "New York Marriott Marquis", c.Name)
	assert.Equal(t, ptr("Marriott Hotels"), c.Brand)
	assert.Equal(t, ptr("539"), c.Price)
	assert.Equal(t, ptr("USD"), c.Currency)
	assert.Equal(t, "1.0", c.Distance)
	assert.Equal(t, "mi", c.DistanceUnit)
	assert.Equal(t, ptr(4.4), c.Rating)
	assert.Equal(t, ptr(5123), c.Reviews)
	assert.True(t, c.Bookable)
	assert.Equal(t, ptr("https://www.marriott.com/hotels/travel/nycmq-new-york-marriott-marquis/"), c.URL)
	assert.Equal(t, ptr("https://cache.marriott.com/content/dam/marriott/nycmq-classic.jpg"), c.Image)
	assert.Equal(t, "marriott", c.Platform)
	assert.Empty(t, c.DataIssues)
}

func TestNormalizeCard_Price(t *testing.T) {
	cases := []struct {
		name    string
		amount  any
		decimal any
		want    *string
	}{
		{"default decimals", 53900.0, nil, ptr("539")},
		{"rounds half up", 53950.0, 2.0, ptr("540")},
		{"explicit zero decimals", 539.0, 0.0, ptr("539")},
		{"three decimals", 1234567.0, 3.0, ptr("1235")},
		{"numeric string", "53900", 2.0, ptr("539")},
		{"absent amount", nil, 2.0, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, norm().NormalizeCard(edge(tc.amount, tc.decimal)).Price)
		})
	}
}

func TestNormalizeCard_SparseEdge(t *testing.T) {
	c := norm().NormalizeCard(map[string]any{})
	assert.Equal(t, "0.0", c.Distance)
	assert.Nil(t, c.Price)
	assert.Nil(t, c.Currency)
	assert.Nil(t, c.Brand)
	assert.Nil(t, c.Rating)
	assert.Nil(t, c.Reviews)
	assert.Nil(t, c.Image)
	assert.Nil(t, c.URL)
	assert.False(t, c.Bookable)
	assert.Equal(t, []string{app.IssueMissingPropertyID, app.IssueMissingName, app.IssueMissingBookingSlug}, c.DataIssues)

	b, err := json.Marshal(c)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	v, present := m["image"]
	assert.True(t, present, "image is emitted as null, not omitted")
	assert.Nil(t, v)
}

func TestNormalizeCard_CurrencyFallsBackToProperty(t *testing.T) {
	e := edge(nil, nil)
	delete(e["rates"].([]any)[0].(map[string]any)["rateModes"].(map[string]any)["lowestAverageRate"].(map[string]any)["amount"].(map[string]any), "currency")
	c := norm().NormalizeCard(e)
	assert.Equal(t, ptr("EUR"), c.Currency)
}

func TestNormalizeCard_ImagePreference(t *testing.T) {
	e := edge(100.0, 2.0)
	urls := e["property"].(map[string]any)["media"].(map[string]any)["primaryImage"].(map[string]any)["edges"].([]any)[0].(map[string]any)["node"].(map[string]any)["imageUrls"].(map[string]any)
	urls["wideHorizontal"] = "https://cdn.example.com/wide.jpg"
	c := norm().NormalizeCard(e)
	assert.Equal(t, ptr("https://cdn.example.com/wide.jpg"), c.Image)
}

func TestNormalizeCard_ZeroDistance(t *testing.T) {
	e := edge(100.0, 2.0)
	e["distance"] = 0.0
	assert.Equal(t, "0.0", norm().NormalizeCard(e).Distance)
}

func TestNormalizeFacets(t *testing.T) {
	buckets := make([]any, 0, 25)
	for i := 0; i < 25; i++ {
		buckets = append(buckets, map[string]any{"code": string(rune('A' + i)), "label": "L", "count": float64(i)})
	}
	raw := []map[string]any{
		{"type": map[string]any{"code": "BRANDS"}, "buckets": []any{
			map[string]any{"code": "SI", "label": "Sheraton", "count": 4.0},
			map[string]any{"code": "MC", "label": "Marriott", "count": 9.0},
		}},
		{"type": map[string]any{"code": "AMENITIES"}, "buckets": buckets},
		{"buckets": []any{map[string]any{"code": "x"}}},
		{"type": map[string]any{"code": "BRANDS"}, "buckets": []any{map[string]any{"code": "dup"}}},
		{"type": map[string]any{"code": "CITIES"}},
	}
	cat := norm().NormalizeFacets(raw)
	require.Len(t, cat, 4)
	assert.Equal(t, "BRANDS", cat[0].Code)
	assert.Equal(t, []domain.FacetBucket{{Code: "SI", Label: "Sheraton", Count: 4}, {Code: "MC", Label: "Marriott", Count: 9}}, cat[0].Buckets)
	assert.Len(t, cat[1].Buckets, 20)
	assert.Equal(t, "A", cat[1].Buckets[0].Code)
	assert.Equal(t, "unknown", cat[2].Code)
	assert.Equal(t, "CITIES", cat[3].Code)
	assert.Empty(t, cat[3].Buckets)

	b, err := json.Marshal(cat[:1])
	require.NoError(t, err)
	assert.JSONEq(t, `{"BRANDS":[{"code":"SI","label":"Sheraton","count":4},{"code":"MC","label":"Marriott","count":9}]}`, string(b))
}

func TestNormalizeFacets_CapIsConfigurable(t *testing.T) {
	n := app.NewNormalizer("", "", 1)
	cat := n.NormalizeFacets([]map[string]any{{"type": map[string]any{"code": "BRANDS"}, "buckets": []any{
		map[string]any{"code": "SI"}, map[string]any{"code": "MC"},
	}}})
	assert.Len(t, cat[0].Buckets, 1)
}

func TestNormalizeSearch_EmptyPage(t *testing.T) {
	q := domain.HotelSearchQuery{StartDate: "2026-11-01", EndDate: "2026-11-03", Page: 1}
	res := norm().NormalizeSearch(q, domain.SearchPage{Total: 0}, 5)
	assert.NotNil(t, res.Hotels)
	assert.Empty(t, res.Hotels)
	assert.Equal(t, 0, res.Total)
	assert.Equal(t, "2026-11-01 to 2026-11-03", res.Dates)
	assert.Equal(t, []string{}, res.ActiveFilters)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"hotels":[]`)
	assert.Contains(t, string(b), `"facets":{}`)
}
