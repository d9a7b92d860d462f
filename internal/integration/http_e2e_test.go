//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/redis/go-redis/v9"

	server "marriott_mcp/internal/adapters/http_server"
	"marriott_mcp/internal/bootstrap"
	"marriott_mcp/internal/shared"
)

// ---------- fake provider ----------

type provider struct {
	mu     sync.Mutex
	brands [][]string
}

func (p *provider) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/mi/query/phoenixShopDatedSearchByGeoQuery" {
		http.NotFound(w, r)
		return
	}
	var body struct {
		Variables struct {
			Search struct {
				Facets struct {
					Terms []struct {
						Type       string   `json:"type"`
						Dimensions []string `json:"dimensions"`
					} `json:"terms"`
				} `json:"facets"`
			} `json:"search"`
		} `json:"variables"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	p.mu.Lock()
	for _, term := range body.Variables.Search.Facets.Terms {
		if term.Type == "BRANDS" {
			p.brands = append(p.brands, term.Dimensions)
		}
	}
	p.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(searchResponse))
}

func (p *provider) calls() [][]string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]string(nil), p.brands...)
}

const searchResponse = `{"data":{"search":{"lowestAvailableRates":{"searchByGeolocation":{
  "total": 1,
  "pageInfo": {"hasNextPage": false},
  "facets": [{"type":{"code":"BRANDS"},"buckets":[{"code":"SI","label":"Sheraton","count":1}]}],
  "edges": [{"node": {
    "distance": 804.67,
    "property": {
      "id": "NYCSI",
      "seoNickname": "nycsi-sheraton-new-york-times-square-hotel",
      "basicInformation": {"name": "Sheraton New York Times Square", "brand": {"name": "Sheraton"}}
    },
    "rates": [{"status":{"code":"AvailableForSale"},
      "rateModes":{"lowestAverageRate":{"amount":{"amount":41900,"decimalPoint":2,"currency":"USD"}}}}]
  }}]
}}}}}`

// ---------- JSON-RPC client ----------

type rpcClient struct {
	t       *testing.T
	url     string
	session string
	id      int
}

func (c *rpcClient) call(method string, params any) map[string]any {
	c.t.Helper()
	c.id++
	payload, _ := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": c.id, "method": method, "params": params})
	req, _ := http.NewRequest(http.MethodPost, c.url+"/mcp", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if c.session != "" {
		req.Header.Set("Mcp-Session-Id", c.session)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatalf("POST /mcp: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		c.t.Fatalf("%s: status %d", method, res.StatusCode)
	}
	if sid := res.Header.Get("Mcp-Session-Id"); sid != "" {
		c.session = sid
	}
	var out struct {
		Result map[string]any `json:"result"`
		Error  map[string]any `json:"error"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		c.t.Fatalf("decode: %v", err)
	}
	if out.Error != nil {
		c.t.Fatalf("%s: rpc error %v", method, out.Error)
	}
	return out.Result
}

func (c *rpcClient) searchHotels(filters map[string]any) map[string]any {
	args := map[string]any{"latitude": 40.758, "longitude": -73.9855, "startDate": "2026-11-01", "endDate": "2026-11-03"}
	for k, v := range filters {
		args[k] = v
	}
	return c.call("tools/call", map[string]any{"name": "search_hotels", "arguments": args})
}

func structured(res map[string]any) map[string]any {
	m, _ := res["structuredContent"].(map[string]any)
	return m
}

func text(res map[string]any) string {
	content, _ := res["content"].([]any)
	if len(content) == 0 {
		return ""
	}
	first, _ := content[0].(map[string]any)
	s, _ := first["text"].(string)
	return s
}

// ---------- the test ----------

func TestHTTP_EndToEnd_DiscoveryThenFilter(t *testing.T) {
	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("docker unavailable: %v", err)
	}
	if err := pool.Client.Ping(); err != nil {
		t.Skipf("docker unreachable: %v", err)
	}
	resource, err := pool.RunWithOptions(&dockertest.RunOptions{Repository: "redis", Tag: "7-alpine"},
		func(hc *docker.HostConfig) {
			hc.AutoRemove = true
			hc.RestartPolicy = docker.RestartPolicy{Name: "no"}
		})
	if err != nil {
		t.Fatalf("run redis: %v", err)
	}
	t.Cleanup(func() { _ = pool.Purge(resource) })

	redisAddr := "127.0.0.1:" + resource.GetPort("6379/tcp")
	if err := pool.Retry(func() error {
		c := redis.NewClient(&redis.Options{Addr: redisAddr})
		defer c.Close()
		return c.Ping(context.Background()).Err()
	}); err != nil {
		t.Fatalf("connect redis: %v", err)
	}

	up := &provider{}
	upstream := httptest.NewServer(up)
	defer upstream.Close()

	cfg := shared.Config{
		MarriottBase:        upstream.URL,
		AssetOrigin:         "https://cache.marriott.com",
		BookingOrigin:       "https://www.marriott.com",
		UpstreamTimeout:     5 * time.Second,
		UpstreamRPS:         50,
		UpstreamMaxAttempts: 2,
		PageSize:            5,
		FacetBucketCap:      20,
		SessionTTL:          time.Hour,
		RedisAddr:           redisAddr,
		WidgetDir:           t.TempDir(),
	}
	stack, err := bootstrap.Build(context.Background(), cfg, "e2e")
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	defer stack.Close()

	srv := server.New(10 * time.Second)
	srv.MountHandlers(&server.Handlers{MCP: stack.Server, Audit: stack.Audit})
	ts := httptest.NewServer(srv.Mux())
	defer ts.Close()

	alice := &rpcClient{t: t, url: ts.URL}
	alice.call("initialize", map[string]any{"protocolVersion": "2024-11-05"})
	if alice.session == "" {
		t.Fatal("initialize did not issue a session id")
	}

	// filtered before discovery: rejected without calling the provider
	res := alice.searchHotels(map[string]any{"brands": []string{"SI"}})
	if res["isError"] != false || structured(res)["status"] != "DISCOVERY_REQUIRED" {
		t.Fatalf("want discovery rejection, got %v", res)
	}
	if n := len(up.calls()); n != 0 {
		t.Fatalf("provider called %d times for a rejected search", n)
	}

	// discovery
	res = alice.searchHotels(nil)
	if res["isError"] != false {
		t.Fatalf("discovery failed: %v", res)
	}
	if !strings.Contains(text(res), "AVAILABLE FACETS") || !strings.Contains(text(res), "BRANDS: SI") {
		t.Fatalf("discovery text lacks facets: %q", text(res))
	}
	hotels, _ := structured(res)["hotels"].([]any)
	if len(hotels) != 1 {
		t.Fatalf("want 1 hotel, got %v", structured(res)["hotels"])
	}
	if price := hotels[0].(map[string]any)["price"]; price != "419" {
		t.Fatalf("price = %v", price)
	}

	// filtered after discovery
	res = alice.searchHotels(map[string]any{"brands": []string{"SI"}})
	if res["isError"] != false || structured(res)["total"] != float64(1) {
		t.Fatalf("filtered search failed: %v", res)
	}
	calls := up.calls()
	if len(calls) != 2 || len(calls[1]) != 1 || calls[1][0] != "SI" {
		t.Fatalf("provider brand terms = %v", calls)
	}

	// discovery state is per session
	bob := &rpcClient{t: t, url: ts.URL}
	bob.call("initialize", map[string]any{})
	res = bob.searchHotels(map[string]any{"brands": []string{"SI"}})
	if structured(res)["status"] != "DISCOVERY_REQUIRED" {
		t.Fatalf("second session should need discovery, got %v", res)
	}

	// state lives in redis, keyed by session
	rc := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer rc.Close()
	key, err := rc.Get(context.Background(), "discovery:"+alice.session).Result()
	if err != nil || key != "40.758,-73.9855" {
		t.Fatalf("redis discovery key = %q, %v", key, err)
	}
}
