package app

import (
	"context"
	"strconv"

	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/adapters/observability"
	"marriott_mcp/internal/domain"
)

type Decision int

const (
	Allow Decision = iota
	Reject
)

func (d Decision) String() string {
	if d == Reject {
		return "reject"
	}
	return "allow"
}

// LocationKey renders coordinates with the shortest round-trip float formatting,
// so 40.750 and 40.75 share a key while any change in value does not.
func LocationKey(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}

// DiscoveryGuard refuses filtered searches at a location the session has not
// first searched unfiltered, since facet codes come from that unfiltered response.
type DiscoveryGuard struct {
	store domain.DiscoveryStore
}

func NewDiscoveryGuard(store domain.DiscoveryStore) *DiscoveryGuard {
	return &DiscoveryGuard{store: store}
}

// CheckAndRecord is Check followed by Record for an unfiltered search.
func (g *DiscoveryGuard) CheckAndRecord(ctx context.Context, sessionID, key string, hasFilters bool) (Decision, error) {
	d, err := g.Check(ctx, sessionID, key, hasFilters)
	if err != nil || d == Reject || hasFilters {
		return d, err
	}
	if err := g.Record(ctx, sessionID, key); err != nil {
		return Reject, err
	}
	return Allow, nil
}

// Record marks key as the session's discovered location. Callers record only
// after the unfiltered search has returned facets.
func (g *DiscoveryGuard) Record(ctx context.Context, sessionID, key string) error {
	if err := g.store.RecordDiscovery(ctx, sessionID, key); err != nil {
		return err
	}
	observability.ObserveDiscovery("record")
	log.Debug().Str("session", sessionID).Str("location", key).Msg("discovery recorded")
	return nil
}

// Check runs before the provider call and does not change state. Unfiltered
// searches are always allowed; filtered ones only when key matches the last
// recorded one.
func (g *DiscoveryGuard) Check(ctx context.Context, sessionID, key string, hasFilters bool) (Decision, error) {
	if !hasFilters {
		return Allow, nil
	}
	last, ok, err := g.store.LastDiscovery(ctx, sessionID)
	if err != nil {
		return Reject, err
	}
	if !ok || last != key {
		observability.ObserveDiscovery("reject")
		log.Info().Str("session", sessionID).Str("location", key).Str("last", last).Msg("filtered search rejected: discovery required")
		return Reject, nil
	}
	observability.ObserveDiscovery("allow")
	log.Debug().Str("session", sessionID).Str("location", key).Msg("filtered search allowed")
	return Allow, nil
}
