package services

import (
	"context"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/database"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/geocoding"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
)

// pendingCap bounds one admin geocoding round
const pendingCap = 50

type EmpresaService struct {
	db *database.DB
}

func NewEmpresaService(db *database.DB) *EmpresaService {
	return &EmpresaService{db: db}
}

type EmpresaFilter struct {
	Page      int
	Limit     int
	Provincia string
	Localidad string
	Servicio  string
	Query     string
}

type EmpresaListResponse struct {
	Items      []models.Empresa `json:"items"`
	Total      int64            `json:"total"`
	Page       int              `json:"page"`
	Limit      int              `json:"limit"`
	TotalPages int              `json:"total_pages"`
}

// List retrieves enabled companies with filtering and pagination,
// featured entries first
func (s *EmpresaService) List(ctx context.Context, filter *EmpresaFilter) (*EmpresaListResponse, error) {
	var empresas []models.Empresa
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Empresa{}).
		Preload("Servicios").
		Where("habilitada = ?", true)

	if filter.Provincia != "" {
		query = query.Where("provincia = ?", filter.Provincia)
	}
	if filter.Localidad != "" {
		query = query.Where("localidad = ?", filter.Localidad)
	}
	if filter.Servicio != "" {
		query = query.Joins("JOIN empresa_servicios es ON es.empresa_id = empresas.id").
			Joins("JOIN servicios sv ON sv.id = es.servicio_id").
			Where("sv.nombre = ?", filter.Servicio)
	}
	if filter.Query != "" {
		searchTerm := "%" + filter.Query + "%"
		query = query.Where("nombre ILIKE ? OR localidad ILIKE ? OR provincia ILIKE ?",
			searchTerm, searchTerm, searchTerm)
	}

	query.Count(&total)

	query = query.Order("destacada DESC, created_at DESC")

	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Page <= 0 {
		filter.Page = 1
	}
	offset := (filter.Page - 1) * filter.Limit
	query = query.Offset(offset).Limit(filter.Limit)

	if err := query.Find(&empresas).Error; err != nil {
		return nil, err
	}

	totalPages := int(total) / filter.Limit
	if int(total)%filter.Limit > 0 {
		totalPages++
	}

	return &EmpresaListResponse{
		Items:      empresas,
		Total:      total,
		Page:       filter.Page,
		Limit:      filter.Limit,
		TotalPages: totalPages,
	}, nil
}

// GetByID retrieves one enabled company with its services
func (s *EmpresaService) GetByID(ctx context.Context, id uint) (*models.Empresa, error) {
	var empresa models.Empresa
	err := s.db.WithContext(ctx).Preload("Servicios").
		Where("habilitada = ?", true).
		First(&empresa, id).Error
	if err != nil {
		return nil, err
	}
	return &empresa, nil
}

// PendingGeocoding lists enabled companies that have an address but no
// coordinates yet, featured first then newest, capped
func (s *EmpresaService) PendingGeocoding(ctx context.Context) ([]models.Empresa, error) {
	var empresas []models.Empresa
	err := s.db.WithContext(ctx).
		Where("habilitada = ?", true).
		Where("direccion IS NOT NULL AND direccion <> ''").
		Where("lat IS NULL OR lng IS NULL").
		Order("destacada DESC, created_at DESC").
		Limit(pendingCap).
		Find(&empresas).Error
	if err != nil {
		return nil, err
	}
	return empresas, nil
}

// Coordinates returns the stored pair for a company, nil when unset.
// Part of the geocoding.RecordStore contract.
func (s *EmpresaService) Coordinates(ctx context.Context, id uint) (*geocoding.Coordinate, error) {
	var empresa models.Empresa
	if err := s.db.WithContext(ctx).Select("lat", "lng").First(&empresa, id).Error; err != nil {
		return nil, err
	}
	if !empresa.HasCoordinates() {
		return nil, nil
	}
	return &geocoding.Coordinate{Lat: *empresa.Lat, Lng: *empresa.Lng}, nil
}

// SetCoordinates writes a resolved pair back to the record. Without
// force it only fills records whose pair is still null, so an existing
// coordinate is never trampled by a background write.
func (s *EmpresaService) SetCoordinates(ctx context.Context, id uint, coord geocoding.Coordinate, force bool) error {
	query := s.db.WithContext(ctx).Model(&models.Empresa{}).Where("id = ?", id)
	if !force {
		query = query.Where("lat IS NULL OR lng IS NULL")
	}
	return query.Updates(map[string]interface{}{
		"lat": coord.Lat,
		"lng": coord.Lng,
	}).Error
}

// Nearby returns enabled, coordinate-bearing companies ranked by
// distance from the origin, featured first. radiusKm <= 0 disables the
// radius cut.
func (s *EmpresaService) Nearby(ctx context.Context, origin geocoding.Coordinate, radiusKm float64, limit int) ([]geocoding.RankedEmpresa, error) {
	var empresas []models.Empresa
	err := s.db.WithContext(ctx).
		Preload("Servicios").
		Where("habilitada = ?", true).
		Where("lat IS NOT NULL AND lng IS NOT NULL").
		Find(&empresas).Error
	if err != nil {
		return nil, err
	}

	ranked := geocoding.Rank(empresas, origin)
	if radiusKm > 0 {
		inRange := ranked[:0]
		for _, r := range ranked {
			if r.Distancia <= radiusKm {
				inRange = append(inRange, r)
			}
		}
		ranked = inRange
	}
	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}
