package geocoding

import (
	"context"
	"errors"
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/database"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PersistentCache is the durable tier behind CacheStore's in-memory map.
type PersistentCache interface {
	// Lookup returns the row for key whose last_used_at is after
	// usedAfter, nil when there is none
	Lookup(ctx context.Context, key string, usedAfter time.Time) (*models.GeocodeCache, error)
	// Upsert inserts the row or, on an address_hash conflict, refreshes
	// lat/lng/last_used_at and bumps hit_count
	Upsert(ctx context.Context, row *models.GeocodeCache) error
	// Touch refreshes the usage counters of an existing row
	Touch(ctx context.Context, key string, hitCount int, usedAt time.Time) error
	Count(ctx context.Context) (int64, error)
	// DeleteUnusedSince purges rows last used at or before cutoff
	DeleteUnusedSince(ctx context.Context, cutoff time.Time) (int64, error)
}

// AuditLog appends geocode_log rows and answers the trailing-window
// queries the rate budget needs.
type AuditLog interface {
	Append(ctx context.Context, row *models.GeocodeLog) error
	// CountSince counts rows newer than cutoff; an empty source matches
	// every row
	CountSince(ctx context.Context, cutoff time.Time, source string) (int64, error)
	// OldestSince returns the created_at of the oldest matching row,
	// the zero time when none exists
	OldestSince(ctx context.Context, cutoff time.Time, source string) (time.Time, error)
}

type gormPersistentCache struct {
	db *database.DB
}

// NewPersistentCache backs the cache's durable tier with geocode_cache
func NewPersistentCache(db *database.DB) PersistentCache {
	return &gormPersistentCache{db: db}
}

func (g *gormPersistentCache) Lookup(ctx context.Context, key string, usedAfter time.Time) (*models.GeocodeCache, error) {
	var row models.GeocodeCache
	err := g.db.WithContext(ctx).
		Where("address_hash = ? AND last_used_at > ?", key, usedAfter).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

func (g *gormPersistentCache) Upsert(ctx context.Context, row *models.GeocodeCache) error {
	return g.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "address_hash"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"lat":          row.Lat,
			"lng":          row.Lng,
			"hit_count":    gorm.Expr("geocode_cache.hit_count + 1"),
			"last_used_at": row.LastUsedAt,
		}),
	}).Create(row).Error
}

func (g *gormPersistentCache) Touch(ctx context.Context, key string, hitCount int, usedAt time.Time) error {
	return g.db.WithContext(ctx).Model(&models.GeocodeCache{}).
		Where("address_hash = ?", key).
		Updates(map[string]interface{}{
			"hit_count":    hitCount,
			"last_used_at": usedAt,
		}).Error
}

func (g *gormPersistentCache) Count(ctx context.Context) (int64, error) {
	var count int64
	err := g.db.WithContext(ctx).Model(&models.GeocodeCache{}).Count(&count).Error
	return count, err
}

func (g *gormPersistentCache) DeleteUnusedSince(ctx context.Context, cutoff time.Time) (int64, error) {
	res := g.db.WithContext(ctx).
		Where("last_used_at <= ?", cutoff).
		Delete(&models.GeocodeCache{})
	return res.RowsAffected, res.Error
}

type gormAuditLog struct {
	db *database.DB
}

// NewAuditLog backs the budget's audit trail with geocode_log
func NewAuditLog(db *database.DB) AuditLog {
	return &gormAuditLog{db: db}
}

func (g *gormAuditLog) Append(ctx context.Context, row *models.GeocodeLog) error {
	return g.db.WithContext(ctx).Create(row).Error
}

func (g *gormAuditLog) CountSince(ctx context.Context, cutoff time.Time, source string) (int64, error) {
	query := g.db.WithContext(ctx).Model(&models.GeocodeLog{}).
		Where("created_at > ?", cutoff)
	if source != "" {
		query = query.Where("source = ?", source)
	}
	var count int64
	err := query.Count(&count).Error
	return count, err
}

func (g *gormAuditLog) OldestSince(ctx context.Context, cutoff time.Time, source string) (time.Time, error) {
	query := g.db.WithContext(ctx).Where("created_at > ?", cutoff)
	if source != "" {
		query = query.Where("source = ?", source)
	}
	var oldest models.GeocodeLog
	err := query.Order("created_at ASC").First(&oldest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return time.Time{}, nil
		}
		return time.Time{}, err
	}
	return oldest.CreatedAt, nil
}
