package catalog

import (
	"context"
	"sort"
	"sync"
)

type memoryRepository struct {
	mu       sync.RWMutex
	hotspots map[string]Hotspot
	plans    map[string]Plan
}

// NewMemoryRepository constructs an in-memory catalog for tests and dev mode.
func NewMemoryRepository() Repository {
	return &memoryRepository{
		hotspots: make(map[string]Hotspot),
		plans:    make(map[string]Plan),
	}
}

func (r *memoryRepository) CreateHotspot(_ context.Context, h Hotspot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hotspots[h.ID] = h
	return nil
}

func (r *memoryRepository) GetHotspot(_ context.Context, id string) (Hotspot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.hotspots[id]
	if !ok {
		return Hotspot{}, ErrHotspotNotFound
	}
	return h, nil
}

func (r *memoryRepository) ListHotspots(_ context.Context) ([]Hotspot, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Hotspot, 0, len(r.hotspots))
	for _, h := range r.hotspots {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *memoryRepository) SetAvailability(_ context.Context, id string, online, salesPaused bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.hotspots[id]
	if !ok {
		return ErrHotspotNotFound
	}
	h.Online = online
	h.SalesPaused = salesPaused
	r.hotspots[id] = h
	return nil
}

func (r *memoryRepository) CreatePlan(_ context.Context, p Plan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.plans[p.ID] = p
	return nil
}

func (r *memoryRepository) GetPlan(_ context.Context, id string) (Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.plans[id]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

func (r *memoryRepository) ListPlans(_ context.Context, hotspotID string) ([]Plan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Plan
	for _, p := range r.plans {
		if p.HotspotID == hotspotID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Price < out[j].Price })
	return out, nil
}
