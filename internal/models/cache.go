package models

import (
	"time"
)

// GeocodeCache is the persistent geocoding cache, keyed by the hash of
// the normalized address
// DB: geocode_cache
type GeocodeCache struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	AddressHash string    `gorm:"column:address_hash;size:40;not null;uniqueIndex:geocode_cache_address_hash_key" json:"address_hash"`
	Address     string    `gorm:"column:address;size:500;not null" json:"address"`
	Lat         float64   `gorm:"column:lat;type:double precision;not null" json:"lat"`
	Lng         float64   `gorm:"column:lng;type:double precision;not null" json:"lng"`
	HitCount    int       `gorm:"column:hit_count;not null;default:0" json:"hit_count"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	LastUsedAt  time.Time `gorm:"column:last_used_at;not null" json:"last_used_at"`
}

func (GeocodeCache) TableName() string {
	return "geocode_cache"
}

// GeocodeLog is an append-only audit row, one per resolution. Rows with
// Source == "provider" are the ones that consumed daily budget.
// DB: geocode_log
type GeocodeLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	EmpresaID uint      `gorm:"column:empresa_id;index:idx_geocode_log_empresa" json:"empresa_id"`
	Source    string    `gorm:"column:source;size:20;not null;index:idx_geocode_log_source" json:"source"`
	Success   bool      `gorm:"column:success;not null" json:"success"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime;index:idx_geocode_log_created" json:"created_at"`
}

func (GeocodeLog) TableName() string {
	return "geocode_log"
}
