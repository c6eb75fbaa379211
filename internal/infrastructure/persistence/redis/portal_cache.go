package redis

import (
	"context"
	"errors"

	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
)

// Cache keys for the single-valued entries.
const (
	keyDashboardSnapshot = PrefixDashboard + "snapshot"
	keyOpportunityList   = PrefixOpportunities + "list"
	keyCampusLocations   = PrefixCampus + "locations"
)

// PortalCache implements the cache ports of the domain on a shared Cache.
// Misses are reported as nil values, never as errors.
type PortalCache struct {
	cache *Cache
}

// NewPortalCache creates a new PortalCache.
func NewPortalCache(cache *Cache) *PortalCache {
	return &PortalCache{cache: cache}
}

var (
	_ dashboard.SnapshotCache = (*PortalCache)(nil)
	_ opportunity.ListCache   = (*PortalCache)(nil)
	_ campus.Cache            = (*PortalCache)(nil)
	_ community.BanCache      = (*PortalCache)(nil)
)

// -----------------------------------------------------------------------------
// Dashboard
// -----------------------------------------------------------------------------

// GetSnapshot returns the cached dashboard or nil.
func (p *PortalCache) GetSnapshot(ctx context.Context) (*dashboard.Snapshot, error) {
	var s dashboard.Snapshot
	if err := p.cache.Get(ctx, keyDashboardSnapshot, &s); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	return &s, nil
}

// SetSnapshot stores the dashboard.
func (p *PortalCache) SetSnapshot(ctx context.Context, s *dashboard.Snapshot) error {
	if s == nil {
		return ErrCacheNilValue
	}
	return p.cache.Set(ctx, keyDashboardSnapshot, s, TTLDashboard)
}

// -----------------------------------------------------------------------------
// Opportunities
// -----------------------------------------------------------------------------

// GetOpportunities returns the cached listing or nil.
func (p *PortalCache) GetOpportunities(ctx context.Context) ([]*opportunity.Opportunity, error) {
	var items []*opportunity.Opportunity
	if err := p.cache.Get(ctx, keyOpportunityList, &items); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	if items == nil {
		items = []*opportunity.Opportunity{}
	}
	return items, nil
}

// SetOpportunities stores the listing. An empty listing is cached as [].
func (p *PortalCache) SetOpportunities(ctx context.Context, items []*opportunity.Opportunity) error {
	if items == nil {
		items = []*opportunity.Opportunity{}
	}
	return p.cache.Set(ctx, keyOpportunityList, items, TTLOpportunities)
}

// InvalidateOpportunities drops the listing.
func (p *PortalCache) InvalidateOpportunities(ctx context.Context) error {
	return p.cache.Delete(ctx, keyOpportunityList)
}

// -----------------------------------------------------------------------------
// Campus map
// -----------------------------------------------------------------------------

// GetLocations returns the cached markers or nil.
func (p *PortalCache) GetLocations(ctx context.Context) ([]campus.Location, error) {
	var items []campus.Location
	if err := p.cache.Get(ctx, keyCampusLocations, &items); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return nil, nil
		}
		return nil, err
	}
	if items == nil {
		items = []campus.Location{}
	}
	return items, nil
}

// SetLocations stores the markers.
func (p *PortalCache) SetLocations(ctx context.Context, items []campus.Location) error {
	if items == nil {
		items = []campus.Location{}
	}
	return p.cache.Set(ctx, keyCampusLocations, items, TTLCampusMap)
}

// InvalidateLocations drops the markers.
func (p *PortalCache) InvalidateLocations(ctx context.Context) error {
	return p.cache.Delete(ctx, keyCampusLocations)
}

// -----------------------------------------------------------------------------
// Bans
// -----------------------------------------------------------------------------

// GetBanStatus reads a member's cached standing.
func (p *PortalCache) GetBanStatus(ctx context.Context, email string) (community.BanStatus, bool, error) {
	var status community.BanStatus
	if err := p.cache.Get(ctx, BanKey(email), &status); err != nil {
		if errors.Is(err, ErrCacheMiss) {
			return community.BanStatus{}, false, nil
		}
		return community.BanStatus{}, false, err
	}
	return status, true, nil
}

// SetBanStatus caches a member's standing.
func (p *PortalCache) SetBanStatus(ctx context.Context, email string, status community.BanStatus) error {
	return p.cache.Set(ctx, BanKey(email), status, TTLBanStatus)
}

// InvalidateBanStatus forgets a member's standing.
func (p *PortalCache) InvalidateBanStatus(ctx context.Context, email string) error {
	return p.cache.Delete(ctx, BanKey(email))
}
