package mcp

import (
	"net/http"
	"strings"
)

const (
	AppName        = "Marriott Hotel Search"
	AppDescription = "Search Marriott hotels worldwide by location, dates, brand and amenities."
)

// Instructions is handed to the calling agent on initialize and in the app manifest.
const Instructions = `You help guests find Marriott hotels.

Workflow:
1. search_places with the destination, then place_details with the chosen placeId to get coordinates.
2. search_hotels with latitude, longitude, startDate and endDate and NO filters. Read the AVAILABLE FACETS block.
3. If the guest asked for a brand, amenity or other filter, call search_hotels again for the same coordinates
   with the exact codes from that block. Never guess codes.
4. hotel_details or hotel_rates with a Property ID from the results.

A filtered search for a location that has not been searched unfiltered in this session returns
DISCOVERY_REQUIRED; repeat the search without filters first.

Keep guests, child ages and dates across turns. A new location clears all filters.`

type ManifestServer struct {
	URL string `json:"url"`
}

type ManifestTool struct {
	Type    string         `json:"type"`
	Name    string         `json:"name"`
	Server  ManifestServer `json:"server"`
	ToolIDs []string       `json:"tool_ids"`
}

type Manifest struct {
	SchemaVersion string         `json:"schema_version"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Instructions  string         `json:"instructions"`
	Tools         []ManifestTool `json:"tools"`
}

func BuildManifest(serverName, baseURL string, toolIDs []string) Manifest {
	return Manifest{
		SchemaVersion: "v1",
		Name:          AppName,
		Description:   AppDescription,
		Instructions:  Instructions,
		Tools: []ManifestTool{{
			Type:    "mcp",
			Name:    serverName,
			Server:  ManifestServer{URL: strings.TrimRight(baseURL, "/") + "/mcp"},
			ToolIDs: toolIDs,
		}},
	}
}

// BaseURL derives the public origin from proxy headers, then Host.
func BaseURL(r *http.Request) string {
	proto := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Proto"), ",")[0])
	if proto == "" {
		proto = "http"
		if r.TLS != nil {
			proto = "https"
		}
	}
	host := strings.TrimSpace(strings.Split(r.Header.Get("X-Forwarded-Host"), ",")[0])
	if host == "" {
		host = r.Host
	}
	if host == "" {
		host = "localhost"
	}
	return proto + "://" + host
}
