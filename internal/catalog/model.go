package catalog

import "time"

// Hotspot is a host-operated access point selling Wi-Fi plans.
type Hotspot struct {
	ID          string
	HostID      string
	Name        string
	Latitude    float64
	Longitude   float64
	Online      bool
	SalesPaused bool
	CreatedAt   time.Time
}

// Available reports whether purchases against the hotspot are allowed.
func (h Hotspot) Available() bool {
	return h.Online && !h.SalesPaused
}

// Plan is a purchasable offer sold at a hotspot: an access duration plus an
// optional data cap at a fixed price in the smallest currency unit.
type Plan struct {
	ID        string
	HotspotID string
	Name      string
	Price     int64
	Duration  time.Duration
	DataCapMB int64
	CreatedAt time.Time
}
