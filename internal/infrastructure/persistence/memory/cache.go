package memory

import (
	"context"
	"sync"

	"github.com/aegis-hub/aegis-portal/internal/domain/campus"
	"github.com/aegis-hub/aegis-portal/internal/domain/community"
	"github.com/aegis-hub/aegis-portal/internal/domain/dashboard"
	"github.com/aegis-hub/aegis-portal/internal/domain/opportunity"
)

// Cache implements every cache port without expiry. It backs the memory
// driver when Redis is off.
type Cache struct {
	mu            sync.RWMutex
	snapshot      *dashboard.Snapshot
	opportunities []*opportunity.Opportunity
	locations     []campus.Location
	bans          map[string]community.BanStatus
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{bans: make(map[string]community.BanStatus)}
}

var (
	_ dashboard.SnapshotCache = (*Cache)(nil)
	_ opportunity.ListCache   = (*Cache)(nil)
	_ campus.Cache            = (*Cache)(nil)
	_ community.BanCache      = (*Cache)(nil)
)

func (c *Cache) GetSnapshot(context.Context) (*dashboard.Snapshot, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.snapshot == nil {
		return nil, nil
	}
	cp := *c.snapshot
	return &cp, nil
}

func (c *Cache) SetSnapshot(_ context.Context, s *dashboard.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *s
	c.snapshot = &cp
	return nil
}

func (c *Cache) GetOpportunities(context.Context) ([]*opportunity.Opportunity, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opportunities, nil
}

func (c *Cache) SetOpportunities(_ context.Context, items []*opportunity.Opportunity) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []*opportunity.Opportunity{}
	}
	c.opportunities = items
	return nil
}

func (c *Cache) InvalidateOpportunities(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opportunities = nil
	return nil
}

func (c *Cache) GetLocations(context.Context) ([]campus.Location, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.locations, nil
}

func (c *Cache) SetLocations(_ context.Context, items []campus.Location) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if items == nil {
		items = []campus.Location{}
	}
	c.locations = items
	return nil
}

func (c *Cache) InvalidateLocations(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.locations = nil
	return nil
}

func (c *Cache) GetBanStatus(_ context.Context, email string) (community.BanStatus, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.bans[email]
	return s, ok, nil
}

func (c *Cache) SetBanStatus(_ context.Context, email string, status community.BanStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bans[email] = status
	return nil
}

func (c *Cache) InvalidateBanStatus(_ context.Context, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.bans, email)
	return nil
}
