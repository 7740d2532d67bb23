package handlers

import (
	"context"
	"strconv"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/geocoding"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/services"
	"github.com/gofiber/fiber/v2"
)

// EmpresaDirectory is the slice of the company service the public
// directory endpoints need
type EmpresaDirectory interface {
	List(ctx context.Context, filter *services.EmpresaFilter) (*services.EmpresaListResponse, error)
	GetByID(ctx context.Context, id uint) (*models.Empresa, error)
	Nearby(ctx context.Context, origin geocoding.Coordinate, radiusKm float64, limit int) ([]geocoding.RankedEmpresa, error)
}

type EmpresaHandler struct {
	service EmpresaDirectory
}

func NewEmpresaHandler(service EmpresaDirectory) *EmpresaHandler {
	return &EmpresaHandler{service: service}
}

func SetupEmpresaRoutes(router fiber.Router, service EmpresaDirectory) {
	h := NewEmpresaHandler(service)

	router.Get("/", h.List)
	router.Get("/cercanas", h.Nearby)
	router.Get("/:id", h.Get)
}

// List godoc
// @Summary List companies
// @Tags empresas
// @Produce json
// @Param page query int false "Page number"
// @Param limit query int false "Items per page"
// @Param provincia query string false "Filter by province"
// @Param localidad query string false "Filter by locality"
// @Param servicio query string false "Filter by offered service"
// @Param q query string false "Search term"
// @Success 200 {object} services.EmpresaListResponse
// @Router /empresas [get]
func (h *EmpresaHandler) List(c *fiber.Ctx) error {
	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))

	filter := services.EmpresaFilter{
		Page:      page,
		Limit:     limit,
		Provincia: c.Query("provincia"),
		Localidad: c.Query("localidad"),
		Servicio:  c.Query("servicio"),
		Query:     c.Query("q"),
	}

	response, err := h.service.List(c.Context(), &filter)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(response)
}

// Nearby godoc
// @Summary List companies near a point, featured first then closest
// @Tags empresas
// @Produce json
// @Param lat query number true "Origin latitude"
// @Param lng query number true "Origin longitude"
// @Param radio_km query number false "Radius cut in kilometers"
// @Param limit query int false "Maximum results"
// @Success 200 {object} map[string]interface{}
// @Router /empresas/cercanas [get]
func (h *EmpresaHandler) Nearby(c *fiber.Ctx) error {
	lat, errLat := strconv.ParseFloat(c.Query("lat"), 64)
	lng, errLng := strconv.ParseFloat(c.Query("lng"), 64)
	if errLat != nil || errLng != nil {
		return badRequest(c, "lat and lng query parameters are required")
	}

	origin := geocoding.Coordinate{Lat: lat, Lng: lng}
	if !origin.Valid() {
		return badRequest(c, "lat/lng out of range")
	}

	radiusKm, _ := strconv.ParseFloat(c.Query("radio_km", "0"), 64)
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	ranked, err := h.service.Nearby(c.Context(), origin, radiusKm, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(fiber.Map{
		"items": ranked,
		"total": len(ranked),
	})
}

// Get godoc
// @Summary Get company by ID
// @Tags empresas
// @Produce json
// @Param id path int true "Company ID"
// @Success 200 {object} models.Empresa
// @Router /empresas/{id} [get]
func (h *EmpresaHandler) Get(c *fiber.Ctx) error {
	id, err := strconv.Atoi(c.Params("id"))
	if err != nil {
		return badRequest(c, "Invalid company ID")
	}

	empresa, err := h.service.GetByID(c.Context(), uint(id))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Company not found"})
	}

	return c.JSON(empresa)
}
