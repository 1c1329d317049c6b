package catalog

import (
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Handler exposes catalog HTTP endpoints.
type Handler struct {
	service *Service
}

// NewHandler builds a catalog HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type hotspotResponse struct {
	ID          string  `json:"id"`
	HostID      string  `json:"host_id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Online      bool    `json:"online"`
	SalesPaused bool    `json:"sales_paused"`
}

type planResponse struct {
	ID              string `json:"id"`
	HotspotID       string `json:"hotspot_id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DurationSeconds int64  `json:"duration_seconds"`
	DataCapMB       int64  `json:"data_cap_mb"`
}

// List returns all hotspots.
func (h *Handler) List(c *fiber.Ctx) error {
	hotspots, err := h.service.ListHotspots(c.UserContext())
	if err != nil {
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]hotspotResponse, 0, len(hotspots))
	for _, hs := range hotspots {
		out = append(out, toHotspotResponse(hs))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"hotspots": out})
}

// Plans returns the plans sold at a hotspot.
func (h *Handler) Plans(c *fiber.Ctx) error {
	plans, err := h.service.ListPlans(c.UserContext(), c.Params("hotspotId"))
	if err != nil {
		if errors.Is(err, ErrHotspotNotFound) {
			return fiber.NewError(http.StatusNotFound, err.Error())
		}
		return fiber.NewError(http.StatusInternalServerError, err.Error())
	}
	out := make([]planResponse, 0, len(plans))
	for _, p := range plans {
		out = append(out, toPlanResponse(p))
	}
	return c.Status(http.StatusOK).JSON(fiber.Map{"plans": out})
}

type createHotspotRequest struct {
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Create registers a hotspot for the authenticated host.
func (h *Handler) Create(c *fiber.Ctx) error {
	var req createHotspotRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	hostID, _ := c.Locals("user_id").(string)
	hs, err := h.service.CreateHotspot(c.UserContext(), hostID, HotspotInput{
		Name:      req.Name,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
	})
	if err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	return c.Status(http.StatusCreated).JSON(toHotspotResponse(hs))
}

type createPlanRequest struct {
	Name            string `json:"name"`
	Price           int64  `json:"price"`
	DurationSeconds int64  `json:"duration_seconds"`
	DataCapMB       int64  `json:"data_cap_mb"`
}

// CreatePlan adds a plan to one of the host's hotspots.
func (h *Handler) CreatePlan(c *fiber.Ctx) error {
	var req createPlanRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	hostID, _ := c.Locals("user_id").(string)
	p, err := h.service.CreatePlan(c.UserContext(), hostID, c.Params("hotspotId"), PlanInput{
		Name:      req.Name,
		Price:     req.Price,
		Duration:  time.Duration(req.DurationSeconds) * time.Second,
		DataCapMB: req.DataCapMB,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrHotspotNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotHotspotOwner):
			return fiber.NewError(http.StatusForbidden, err.Error())
		default:
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
	}
	return c.Status(http.StatusCreated).JSON(toPlanResponse(p))
}

type availabilityRequest struct {
	Online      bool `json:"online"`
	SalesPaused bool `json:"sales_paused"`
}

// SetAvailability toggles a hotspot's availability flags.
func (h *Handler) SetAvailability(c *fiber.Ctx) error {
	var req availabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(http.StatusBadRequest, err.Error())
	}
	hostID, _ := c.Locals("user_id").(string)
	hs, err := h.service.SetAvailability(c.UserContext(), hostID, c.Params("hotspotId"), req.Online, req.SalesPaused)
	if err != nil {
		switch {
		case errors.Is(err, ErrHotspotNotFound):
			return fiber.NewError(http.StatusNotFound, err.Error())
		case errors.Is(err, ErrNotHotspotOwner):
			return fiber.NewError(http.StatusForbidden, err.Error())
		default:
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
	}
	return c.Status(http.StatusOK).JSON(toHotspotResponse(hs))
}

func toHotspotResponse(h Hotspot) hotspotResponse {
	return hotspotResponse{
		ID:          h.ID,
		HostID:      h.HostID,
		Name:        h.Name,
		Latitude:    h.Latitude,
		Longitude:   h.Longitude,
		Online:      h.Online,
		SalesPaused: h.SalesPaused,
	}
}

func toPlanResponse(p Plan) planResponse {
	return planResponse{
		ID:              p.ID,
		HotspotID:       p.HotspotID,
		Name:            p.Name,
		Price:           p.Price,
		DurationSeconds: int64(p.Duration.Seconds()),
		DataCapMB:       p.DataCapMB,
	}
}
