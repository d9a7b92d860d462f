package marriott_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marriott_mcp/internal/adapters/marriott"
	"marriott_mcp/internal/domain"
)

type gqlRequest struct {
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
	Query         string         `json:"query"`
}

func newClient(t *testing.T, base string, attempts int) *marriott.Client {
	t.Helper()
	cl, err := marriott.New(marriott.Config{
		BaseURL:     base,
		Timeout:     2 * time.Second,
		RPS:         100,
		MaxAttempts: attempts,
	})
	require.NoError(t, err)
	return cl
}

func decodeReq(t *testing.T, r *http.Request) gqlRequest {
	t.Helper()
	var req gqlRequest
	b, _ := io.ReadAll(r.Body)
	if err := json.Unmarshal(b, &req); err != nil {
		t.Errorf("bad request body: %v", err)
	}
	return req
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func searchBody(total any, edges any) map[string]any {
	sbg := map[string]any{"edges": edges}
	if total != nil {
		sbg["total"] = total
	}
	return map[string]any{"data": map[string]any{
		"search": map[string]any{"lowestAvailableRates": map[string]any{"searchByGeolocation": sbg}},
	}}
}

func TestClient_SearchHotels_RetriesThenSuccess(t *testing.T) {
	var hits int32
	var got gqlRequest
	var hdr http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		got = decodeReq(t, r)
		hdr = r.Header.Clone()
		if r.URL.Path != "/mi/query/phoenixShopDatedSearchByGeoQuery" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		writeJSON(w, searchBody(1, []any{
			map[string]any{"node": map[string]any{"distance": 1609.34, "property": map[string]any{"id": "NYCMQ"}}},
		}))
	}))
	defer ts.Close()

	minPrice := 150.0
	page, err := newClient(t, ts.URL, 3).SearchHotels(context.Background(), domain.HotelSearchRequest{
		Latitude: 40.75, Longitude: -73.99,
		StartDate: "2026-11-01", EndDate: "2026-11-03",
		Guests: 2, Rooms: 1, ChildAges: []int{7},
		MinPrice: &minPrice,
		Filters:  domain.FilterSet{Brands: []string{"SI"}},
		Offset:   5, Limit: 5,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, atomic.LoadInt32(&hits))
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Edges, 1)
	assert.Equal(t, "NYCMQ", page.Edges[0]["property"].(map[string]any)["id"])

	assert.Equal(t, "phoenix_shop", hdr.Get("apollographql-client-name"))
	assert.Equal(t, "phoenixShopDatedSearchByGeoQuery", hdr.Get("graphql-operation-name"))
	assert.NotEmpty(t, hdr.Get("graphql-operation-signature"))
	assert.Equal(t, "true", hdr.Get("graphql-require-safelisting"))

	search := got.Variables["search"].(map[string]any)
	opts := search["options"].(map[string]any)
	assert.EqualValues(t, 3, opts["numberInParty"])
	assert.Equal(t, []any{7.0}, opts["childAges"])
	assert.EqualValues(t, 80467.2, search["distance"])
	assert.EqualValues(t, 5, got.Variables["offset"])

	facets := search["facets"].(map[string]any)
	terms := facets["terms"].([]any)
	require.Len(t, terms, 12)
	first := terms[0].(map[string]any)
	assert.Equal(t, "BRANDS", first["type"])
	assert.Equal(t, []any{"SI"}, first["dimensions"])
	assert.Equal(t, "ALL_INCLUSIVE", terms[11].(map[string]any)["type"])
	price := facets["ranges"].([]any)[0].(map[string]any)
	assert.Equal(t, []any{"0", "150", "200", "overflow"}, price["endpoints"])
}

func TestClient_SearchHotels_NoChildAgesOmitted(t *testing.T) {
	var got gqlRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = decodeReq(t, r)
		writeJSON(w, searchBody(0, nil))
	}))
	defer ts.Close()

	page, err := newClient(t, ts.URL, 1).SearchHotels(context.Background(), domain.HotelSearchRequest{Guests: 2, Rooms: 1, Limit: 5})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.Empty(t, page.Edges)

	opts := got.Variables["search"].(map[string]any)["options"].(map[string]any)
	_, has := opts["childAges"]
	assert.False(t, has)
	assert.EqualValues(t, 2, opts["numberInParty"])
}

func TestClient_SearchHotels_ShapeErrors(t *testing.T) {
	cases := map[string]any{
		"edges not array":   searchBody(3, map[string]any{"oops": true}),
		"node not object":   searchBody(1, []any{map[string]any{"node": "x"}}),
		"total missing":     searchBody(nil, []any{map[string]any{"node": map[string]any{}}}),
		"container missing": map[string]any{"data": map[string]any{"search": nil}},
		"edges null":        searchBody(47, nil),
		"edges absent": map[string]any{"data": map[string]any{"search": map[string]any{
			"lowestAvailableRates": map[string]any{"searchByGeolocation": map[string]any{"total": 47}},
		}}},
		"data missing":      map[string]any{"extensions": map[string]any{}},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, body)
			}))
			defer ts.Close()

			_, err := newClient(t, ts.URL, 1).SearchHotels(context.Background(), domain.HotelSearchRequest{})
			var pe *domain.ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, domain.CodeParse, domain.ErrorCode(err))
		})
	}
}

func TestClient_NonJSONBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>maintenance</html>")
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 1).SearchPlaces(context.Background(), "paris")
	assert.Equal(t, domain.CodeParse, domain.ErrorCode(err))
}

func TestClient_UpstreamErrorsNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		writeJSON(w, map[string]any{"errors": []any{
			map[string]any{"message": "bad date"},
			map[string]any{"message": "bad geo"},
		}})
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 3).SearchPlaces(context.Background(), "paris")
	var ue *domain.UpstreamError
	require.ErrorAs(t, err, &ue)
	assert.Equal(t, []string{"bad date", "bad geo"}, ue.Messages)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClient_ChallengeNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"cpr_chlge":"true"}`)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 3).SearchPlaces(context.Background(), "paris")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Challenge)
	assert.False(t, domain.IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClient_LongRetryAfterNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "7200")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 3).SearchPlaces(context.Background(), "paris")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
	assert.Equal(t, 2*time.Hour, te.RetryAfter)
	assert.False(t, domain.IsRetryable(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClient_RetryAfterBeyondDeadlineKeepsStatus(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer ts.Close()

	cl, err := marriott.New(marriott.Config{BaseURL: ts.URL, Timeout: time.Second, RPS: 100, MaxAttempts: 3})
	require.NoError(t, err)

	start := time.Now()
	_, err = cl.SearchPlaces(context.Background(), "paris")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.False(t, te.Timeout)
	assert.Equal(t, http.StatusTooManyRequests, te.StatusCode)
	assert.Equal(t, 5*time.Second, te.RetryAfter)
	assert.NotEqual(t, domain.CodeTimeout, domain.ErrorCode(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
	assert.Less(t, time.Since(start), 900*time.Millisecond)
}

func TestClient_RetryAfterListUsesFirstValue(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "0, 120")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		writeJSON(w, map[string]any{"data": map[string]any{"suggestedPlaces": map[string]any{"edges": []any{}, "total": 0}}})
	}))
	defer ts.Close()

	start := time.Now()
	page, err := newClient(t, ts.URL, 3).SearchPlaces(context.Background(), "paris")
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
	assert.Less(t, time.Since(start), 10*time.Second)
}

func TestClient_ExhaustedRetriesKeepStatus(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 2).SearchPlaces(context.Background(), "paris")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
	assert.True(t, domain.IsRetryable(err))
	assert.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestClient_ForbiddenWithoutCookiesNotRetried(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 3).SearchPlaces(context.Background(), "paris")
	assert.Equal(t, domain.CodeTransport, domain.ErrorCode(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestClient_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer ts.Close()

	cl, err := marriott.New(marriott.Config{BaseURL: ts.URL, Timeout: 100 * time.Millisecond, RPS: 100, MaxAttempts: 3})
	require.NoError(t, err)

	_, err = cl.SearchPlaces(context.Background(), "paris")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.Timeout)
	assert.Equal(t, domain.CodeTimeout, domain.ErrorCode(err))
}

func TestClient_SearchPlaces(t *testing.T) {
	var hdr http.Header
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr = r.Header.Clone()
		req := decodeReq(t, r)
		if req.Variables["query"] != "times square" {
			t.Errorf("unexpected variables %v", req.Variables)
		}
		writeJSON(w, map[string]any{"data": map[string]any{"suggestedPlaces": map[string]any{
			"total": 1,
			"edges": []any{map[string]any{"node": map[string]any{
				"placeId": "ChIJ1", "description": "Times Square, New York, NY, USA",
				"primaryDescription": "Times Square", "secondaryDescription": "New York, NY, USA",
			}}},
		}}})
	}))
	defer ts.Close()

	page, err := newClient(t, ts.URL, 1).SearchPlaces(context.Background(), "times square")
	require.NoError(t, err)
	require.Len(t, page.Places, 1)
	assert.Equal(t, "ChIJ1", page.Places[0].PlaceID)
	assert.Equal(t, "Times Square", page.Places[0].PrimaryDescription)
	assert.Equal(t, "phoenix_homepage", hdr.Get("apollographql-client-name"))
}

func TestClient_PlaceDetails(t *testing.T) {
	t.Run("resolved", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"data": map[string]any{"suggestedPlaceDetails": map[string]any{
				"placeId":  "ChIJ1",
				"location": map[string]any{"latitude": 40.758, "longitude": -73.9855, "city": "New York"},
				"types":    []any{"tourist_attraction"},
			}}})
		}))
		defer ts.Close()

		d, err := newClient(t, ts.URL, 1).PlaceDetails(context.Background(), "ChIJ1")
		require.NoError(t, err)
		assert.True(t, d.Resolved())
		assert.Equal(t, 40.758, *d.Location.Latitude)
		assert.Equal(t, "New York", *d.Location.City)
		assert.Nil(t, d.Location.State)
		assert.Equal(t, []string{"tourist_attraction"}, d.Types)
	})

	t.Run("unknown place", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, map[string]any{"data": map[string]any{"suggestedPlaceDetails": nil}})
		}))
		defer ts.Close()

		d, err := newClient(t, ts.URL, 1).PlaceDetails(context.Background(), "nope")
		require.NoError(t, err)
		assert.False(t, d.Resolved())
		assert.Equal(t, "nope", d.PlaceID)
	})
}

func TestClient_PropertyDetails_DegradesFailedSection(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch decodeReq(t, r).OperationName {
		case "phoenixShopHQVPropertyInfoCall":
			writeJSON(w, map[string]any{"data": map[string]any{"property": map[string]any{"id": "NYCMQ", "basicInformation": map[string]any{"name": "Marquis"}}}})
		case "phoenixShopHQVPhotogalleryCall":
			w.WriteHeader(http.StatusInternalServerError)
		case "phoenixShopHotelAmenities":
			writeJSON(w, map[string]any{"data": map[string]any{"property": map[string]any{"id": "NYCMQ", "facilitiesAndServices": []any{}}}})
		}
	}))
	defer ts.Close()

	d, err := newClient(t, ts.URL, 1).PropertyDetails(context.Background(), "NYCMQ")
	require.NoError(t, err)
	assert.True(t, d.Degraded)
	assert.Equal(t, []string{"photoGallery"}, d.DegradedSections)
	assert.Equal(t, "NYCMQ", d.PropertyInfo["id"])
	assert.NotNil(t, d.PhotoGallery)
	assert.Equal(t, "NYCMQ", d.Amenities["id"])
}

func TestClient_PropertyDetails_AllSectionsFail(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 1).PropertyDetails(context.Background(), "NYCMQ")
	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusInternalServerError, te.StatusCode)
}

func TestClient_PropertyRates_CookieChainAndFallback(t *testing.T) {
	var (
		mu         sync.Mutex
		ops        []string
		cookies    = map[string]string{}
		requestIDs = map[string]bool{}
		propHits   int
	)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			if r.URL.Path != "/en-gb/reservation/rateListMenu.mi" {
				t.Errorf("unexpected bootstrap path %s", r.URL.Path)
			}
			http.SetCookie(w, &http.Cookie{Name: "sessionID", Value: "abc", Path: "/"})
			w.WriteHeader(http.StatusOK)
			return
		}
		req := decodeReq(t, r)
		mu.Lock()
		ops = append(ops, req.OperationName)
		cookies[req.OperationName] = r.Header.Get("Cookie")
		requestIDs[r.Header.Get("x-request-id")] = true
		mu.Unlock()

		switch req.OperationName {
		case "PhoenixBookProperty":
			mu.Lock()
			propHits++
			n := propHits
			mu.Unlock()
			if n == 1 {
				// fresh cookie then a 403, which is retried because the jar is not empty
				http.SetCookie(w, &http.Cookie{Name: "bm", Value: "1"})
				w.WriteHeader(http.StatusForbidden)
				return
			}
			writeJSON(w, map[string]any{"data": map[string]any{"property": map[string]any{"basicInformation": map[string]any{"resort": true}}}})
		case "PhoenixBookSearchProductsByProperty":
			opts := req.Variables["search"].(map[string]any)["options"].(map[string]any)
			if opts["startDate"] != "2026-11-01" || opts["numberInParty"] != 2.0 {
				t.Errorf("unexpected options %v", opts)
			}
			writeJSON(w, map[string]any{"errors": []any{map[string]any{"message": "rates unavailable"}}})
		case "PhoenixBookRoomImages":
			writeJSON(w, map[string]any{"data": map[string]any{"property": map[string]any{"media": map[string]any{"photoGallery": map[string]any{"imagesForAllTags": map[string]any{"total": 1}}}}}})
		case "PhoenixBookHotelHeaderData":
			writeJSON(w, map[string]any{"data": map[string]any{"property": map[string]any{"id": "NYCMQ", "seoNickname": "nycmq-new-york-marriott-marquis"}}})
		}
	}))
	defer ts.Close()

	rates, err := newClient(t, ts.URL, 2).PropertyRates(context.Background(), domain.RatesRequest{
		PropertyID: "NYCMQ", CheckInDate: "2026-11-01", CheckOutDate: "2026-11-03", Rooms: 1, Guests: 2,
	})
	require.NoError(t, err)
	assert.True(t, rates.Degraded)
	assert.Equal(t, []string{"rooms"}, rates.DegradedSections)
	assert.Equal(t, map[string]any{"edges": []any{}, "total": 0}, rates.Rooms)
	assert.Equal(t, true, rates.Property["basicInformation"].(map[string]any)["resort"])
	assert.Equal(t, "nycmq-new-york-marriott-marquis", rates.Header["seoNickname"])

	assert.Equal(t, []string{
		"PhoenixBookProperty", "PhoenixBookProperty",
		"PhoenixBookSearchProductsByProperty", "PhoenixBookRoomImages", "PhoenixBookHotelHeaderData",
	}, ops)
	assert.Equal(t, "sessionID=abc; bm=1", cookies["PhoenixBookHotelHeaderData"])
	assert.True(t, strings.HasPrefix(cookies["PhoenixBookSearchProductsByProperty"], "sessionID=abc"))
	assert.Len(t, requestIDs, 1)
}

func TestClient_PropertyRates_BootstrapFailureIsNotFatal(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		if r.Header.Get("Cookie") != "" {
			t.Errorf("no cookies expected, got %q", r.Header.Get("Cookie"))
		}
		writeJSON(w, map[string]any{"data": map[string]any{
			"property":                 map[string]any{"id": "NYCMQ", "media": map[string]any{"photoGallery": map[string]any{}}},
			"searchProductsByProperty": map[string]any{"edges": []any{}, "total": 0},
		}})
	}))
	defer ts.Close()

	rates, err := newClient(t, ts.URL, 1).PropertyRates(context.Background(), domain.RatesRequest{PropertyID: "NYCMQ", Rooms: 1, Guests: 1})
	require.NoError(t, err)
	assert.False(t, rates.Degraded)
	assert.Empty(t, rates.DegradedSections)
}

func TestClient_PropertyRates_AllSubQueriesFailFallsBack(t *testing.T) {
	var posts int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			atomic.AddInt32(&posts, 1)
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer ts.Close()

	rates, err := newClient(t, ts.URL, 1).PropertyRates(context.Background(), domain.RatesRequest{
		PropertyID: "NYCMQ", CheckInDate: "2026-11-01", CheckOutDate: "2026-11-03", Rooms: 1, Guests: 1,
	})
	require.NoError(t, err)
	assert.True(t, rates.Degraded)
	assert.Equal(t, []string{"property", "rooms", "images", "header"}, rates.DegradedSections)
	assert.EqualValues(t, 4, atomic.LoadInt32(&posts))

	assert.Contains(t, rates.Property, "basicInformation")
	assert.Equal(t, map[string]any{"edges": []any{}, "total": 0}, rates.Rooms)
	assert.Contains(t, rates.Images, "imagesForAllTags")
	assert.Equal(t, "NYCMQ", rates.Header["id"])
}

func TestClient_PropertyRates_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			w.WriteHeader(http.StatusOK)
			return
		}
		cancel()
		<-r.Context().Done()
	}))
	defer ts.Close()

	_, err := newClient(t, ts.URL, 1).PropertyRates(ctx, domain.RatesRequest{PropertyID: "NYCMQ", Rooms: 1, Guests: 1})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}
