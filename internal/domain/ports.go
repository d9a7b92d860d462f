package domain

import (
	"context"
	"time"
)

// InventoryGateway talks to the hotel inventory provider.
type InventoryGateway interface {
	SearchPlaces(ctx context.Context, query string) (PlacesPage, error)
	PlaceDetails(ctx context.Context, placeID string) (PlaceDetail, error)
	SearchHotels(ctx context.Context, req HotelSearchRequest) (SearchPage, error)
	PropertyDetails(ctx context.Context, propertyID string) (PropertyDetails, error)
	PropertyRates(ctx context.Context, req RatesRequest) (PropertyRates, error)
}

// DiscoveryStore holds the last discovery location key per session.
type DiscoveryStore interface {
	LastDiscovery(ctx context.Context, sessionID string) (string, bool, error)
	RecordDiscovery(ctx context.Context, sessionID, key string) error
}

// SearchAuditLog records search_hotels outcomes. Optional.
type SearchAuditLog interface {
	RecordSearch(ctx context.Context, rec SearchRecord) error
	RecentSearches(ctx context.Context, sessionID string, limit int) ([]SearchRecord, error)
}

// Search outcomes recorded in the audit log.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeRejected = "rejected"
	OutcomeInvalid  = "invalid"
	OutcomeFailed   = "failed"
)

type SearchRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"sessionId"`
	LocationKey string    `json:"locationKey"`
	StartDate   string    `json:"startDate"`
	EndDate     string    `json:"endDate"`
	Page        int       `json:"page"`
	Filters     []string  `json:"filters"`
	Outcome     string    `json:"outcome"`
	Total       *int      `json:"total"`
	Returned    *int      `json:"returned"`
	ErrorCode   *string   `json:"errorCode"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ToolResult is the uniform tool envelope: a terse pointer plus the payload.
type ToolResult struct {
	ShortText         string
	StructuredContent any
	IsError           bool
}
