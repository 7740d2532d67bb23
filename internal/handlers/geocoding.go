package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/geocoding"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
	"github.com/gofiber/fiber/v2"
)

// maxBatchItems caps one POST/PATCH payload
const maxBatchItems = 50

// EmpresaStore is the slice of the company service the geocoding
// endpoints need
type EmpresaStore interface {
	PendingGeocoding(ctx context.Context) ([]models.Empresa, error)
	SetCoordinates(ctx context.Context, id uint, coord geocoding.Coordinate, force bool) error
}

type GeocodingHandler struct {
	empresas    EmpresaStore
	coordinator *geocoding.BatchCoordinator
	cache       *geocoding.CacheStore
	budget      *geocoding.RateBudget
}

func NewGeocodingHandler(empresas EmpresaStore, coordinator *geocoding.BatchCoordinator, cache *geocoding.CacheStore, budget *geocoding.RateBudget) *GeocodingHandler {
	return &GeocodingHandler{
		empresas:    empresas,
		coordinator: coordinator,
		cache:       cache,
		budget:      budget,
	}
}

func SetupGeocodingRoutes(router fiber.Router, h *GeocodingHandler) {
	router.Get("/pending", h.Pending)
	router.Post("/batch", h.ResolveBatch)
	router.Patch("/batch", h.ApplyUpdates)
	router.Get("/stats", h.Stats)
}

// Pending godoc
// @Summary List companies awaiting geocoding
// @Tags geocoding
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /geocoding/pending [get]
func (h *GeocodingHandler) Pending(c *fiber.Ctx) error {
	empresas, err := h.empresas.PendingGeocoding(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{
		"items": empresas,
		"total": len(empresas),
	})
}

// BatchRequest is the POST /geocoding/batch body
type BatchRequest struct {
	Requests []geocoding.Request `json:"requests"`
	Force    bool                `json:"force"`
}

// BatchResponse is the POST /geocoding/batch reply
type BatchResponse struct {
	Results []geocoding.ItemResult `json:"results"`
	Stats   geocoding.BatchStats   `json:"stats"`
	Success bool                   `json:"success"`
}

// ResolveBatch godoc
// @Summary Resolve a batch of company addresses to coordinates
// @Tags geocoding
// @Accept json
// @Produce json
// @Param request body BatchRequest true "Addresses to resolve"
// @Success 200 {object} BatchResponse
// @Router /geocoding/batch [post]
func (h *GeocodingHandler) ResolveBatch(c *fiber.Ctx) error {
	var req BatchRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Requests) == 0 {
		return badRequest(c, "requests must be a non-empty array")
	}
	if len(req.Requests) > maxBatchItems {
		return badRequest(c, fmt.Sprintf("requests exceeds the maximum of %d items", maxBatchItems))
	}
	for i, r := range req.Requests {
		if r.ID == 0 {
			return badRequest(c, fmt.Sprintf("requests[%d] is missing an id", i))
		}
		if r.Address == "" {
			return badRequest(c, fmt.Sprintf("requests[%d] is missing an address", i))
		}
	}

	results, stats, err := h.coordinator.ResolveBatch(c.Context(), req.Requests, geocoding.BatchOptions{
		Force: req.Force,
	})
	if err != nil {
		if errors.Is(err, geocoding.ErrBatchInFlight) {
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"success": false,
				"error":   "A geocoding batch is already processing",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(BatchResponse{
		Results: results,
		Stats:   stats,
		Success: true,
	})
}

// CoordinateUpdate is one externally-resolved coordinate to persist
type CoordinateUpdate struct {
	ID      uint    `json:"id"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// UpdateResult reports one PATCH item
type UpdateResult struct {
	ID      uint   `json:"id"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// UpdatesRequest is the PATCH /geocoding/batch body
type UpdatesRequest struct {
	Updates []CoordinateUpdate `json:"updates"`
}

// ApplyUpdates godoc
// @Summary Persist coordinates resolved outside the service
// @Description Invalid items are reported per entry; valid ones in the same payload are still applied
// @Tags geocoding
// @Accept json
// @Produce json
// @Param request body UpdatesRequest true "Coordinates to persist"
// @Success 200 {object} map[string]interface{}
// @Router /geocoding/batch [patch]
func (h *GeocodingHandler) ApplyUpdates(c *fiber.Ctx) error {
	var req UpdatesRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "Invalid request body")
	}
	if len(req.Updates) == 0 {
		return badRequest(c, "updates must be a non-empty array")
	}
	if len(req.Updates) > maxBatchItems {
		return badRequest(c, fmt.Sprintf("updates exceeds the maximum of %d items", maxBatchItems))
	}

	results := make([]UpdateResult, 0, len(req.Updates))
	applied := 0
	for _, u := range req.Updates {
		if u.ID == 0 {
			results = append(results, UpdateResult{Error: "missing id"})
			continue
		}
		coord := geocoding.Coordinate{Lat: u.Lat, Lng: u.Lng}
		if !coord.Valid() {
			results = append(results, UpdateResult{
				ID:    u.ID,
				Error: fmt.Sprintf("coordinate out of range: %s", coord),
			})
			continue
		}

		if err := h.empresas.SetCoordinates(c.Context(), u.ID, coord, true); err != nil {
			results = append(results, UpdateResult{ID: u.ID, Error: err.Error()})
			continue
		}
		if u.Address != "" {
			h.cache.Set(c.Context(), u.Address, coord)
		}
		results = append(results, UpdateResult{ID: u.ID, Success: true})
		applied++
	}

	return c.JSON(fiber.Map{
		"results": results,
		"applied": applied,
		"success": true,
	})
}

// StatsResponse is the GET /geocoding/stats reply
type StatsResponse struct {
	DailyRequests     int     `json:"dailyRequests"`
	DailyLimit        int     `json:"dailyLimit"`
	RemainingRequests int     `json:"remainingRequests"`
	CanMakeRequests   bool    `json:"canMakeRequests"`
	DBCacheSize       int64   `json:"dbCacheSize"`
	HitRate           float64 `json:"hitRate"`
	MemoryCacheSize   int     `json:"memoryCacheSize"`
}

// Stats godoc
// @Summary Geocoding budget and cache statistics
// @Tags geocoding
// @Produce json
// @Success 200 {object} StatsResponse
// @Router /geocoding/stats [get]
func (h *GeocodingHandler) Stats(c *fiber.Ctx) error {
	snap := h.budget.Snapshot()
	return c.JSON(StatsResponse{
		DailyRequests:     snap.Used,
		DailyLimit:        snap.Limit,
		RemainingRequests: snap.Remaining,
		CanMakeRequests:   snap.CanMake,
		DBCacheSize:       h.cache.DBSize(c.Context()),
		HitRate:           h.budget.HitRate(c.Context()),
		MemoryCacheSize:   h.cache.MemorySize(),
	})
}
