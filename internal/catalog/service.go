package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const cacheTTL = 30 * time.Second

// ErrNotHotspotOwner indicates the acting host does not own the hotspot.
var ErrNotHotspotOwner = errors.New("not owner of hotspot")

// Service exposes catalog reads and host-side provisioning. Reads go through
// an optional Redis cache; cache failures fall back to the repository.
type Service struct {
	repo  Repository
	cache *redis.Client
}

// NewService builds a catalog service. The cache may be nil.
func NewService(repo Repository, cache *redis.Client) *Service {
	return &Service{repo: repo, cache: cache}
}

// HotspotInput captures data required to register a hotspot.
type HotspotInput struct {
	Name      string
	Latitude  float64
	Longitude float64
}

// PlanInput captures data required to create a plan.
type PlanInput struct {
	Name      string
	Price     int64
	Duration  time.Duration
	DataCapMB int64
}

// CreateHotspot registers a hotspot owned by the host.
func (s *Service) CreateHotspot(ctx context.Context, hostID string, input HotspotInput) (Hotspot, error) {
	if input.Name == "" {
		return Hotspot{}, fmt.Errorf("hotspot name is required")
	}
	h := Hotspot{
		ID:        uuid.NewString(),
		HostID:    hostID,
		Name:      input.Name,
		Latitude:  input.Latitude,
		Longitude: input.Longitude,
		Online:    true,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreateHotspot(ctx, h); err != nil {
		return Hotspot{}, err
	}
	return h, nil
}

// CreatePlan adds a plan to a hotspot owned by the host.
func (s *Service) CreatePlan(ctx context.Context, hostID, hotspotID string, input PlanInput) (Plan, error) {
	if input.Price <= 0 {
		return Plan{}, fmt.Errorf("plan price must be positive")
	}
	if input.Duration <= 0 {
		return Plan{}, fmt.Errorf("plan duration must be positive")
	}
	h, err := s.repo.GetHotspot(ctx, hotspotID)
	if err != nil {
		return Plan{}, err
	}
	if h.HostID != hostID {
		return Plan{}, ErrNotHotspotOwner
	}
	p := Plan{
		ID:        uuid.NewString(),
		HotspotID: hotspotID,
		Name:      input.Name,
		Price:     input.Price,
		Duration:  input.Duration,
		DataCapMB: input.DataCapMB,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.CreatePlan(ctx, p); err != nil {
		return Plan{}, err
	}
	return p, nil
}

// SetAvailability toggles the hotspot's online and sales-paused flags.
func (s *Service) SetAvailability(ctx context.Context, hostID, hotspotID string, online, salesPaused bool) (Hotspot, error) {
	h, err := s.repo.GetHotspot(ctx, hotspotID)
	if err != nil {
		return Hotspot{}, err
	}
	if h.HostID != hostID {
		return Hotspot{}, ErrNotHotspotOwner
	}
	if err := s.repo.SetAvailability(ctx, hotspotID, online, salesPaused); err != nil {
		return Hotspot{}, err
	}
	s.invalidate(ctx, hotspotCacheKey(hotspotID))
	h.Online = online
	h.SalesPaused = salesPaused
	return h, nil
}

// GetHotspot fetches a hotspot, preferring the cache.
func (s *Service) GetHotspot(ctx context.Context, id string) (Hotspot, error) {
	var h Hotspot
	if s.cacheGet(ctx, hotspotCacheKey(id), &h) {
		return h, nil
	}
	h, err := s.repo.GetHotspot(ctx, id)
	if err != nil {
		return Hotspot{}, err
	}
	s.cacheSet(ctx, hotspotCacheKey(id), h)
	return h, nil
}

// GetPlan fetches a plan, preferring the cache.
func (s *Service) GetPlan(ctx context.Context, id string) (Plan, error) {
	var p Plan
	if s.cacheGet(ctx, planCacheKey(id), &p) {
		return p, nil
	}
	p, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	s.cacheSet(ctx, planCacheKey(id), p)
	return p, nil
}

// ListHotspots returns all hotspots.
func (s *Service) ListHotspots(ctx context.Context) ([]Hotspot, error) {
	return s.repo.ListHotspots(ctx)
}

// ListPlans returns the plans sold at a hotspot.
func (s *Service) ListPlans(ctx context.Context, hotspotID string) ([]Plan, error) {
	return s.repo.ListPlans(ctx, hotspotID)
}

func hotspotCacheKey(id string) string { return "catalog:hotspot:" + id }
func planCacheKey(id string) string    { return "catalog:plan:" + id }

func (s *Service) cacheGet(ctx context.Context, key string, dst any) bool {
	if s.cache == nil {
		return false
	}
	raw, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		return false // fail-open on cache miss or error
	}
	return json.Unmarshal(raw, dst) == nil
}

func (s *Service) cacheSet(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.cache.Set(ctx, key, raw, cacheTTL)
}

func (s *Service) invalidate(ctx context.Context, key string) {
	if s.cache == nil {
		return
	}
	s.cache.Del(ctx, key)
}
