package database

import (
	"time"

	"github.com/tfmcode/guia-camiones-atmosfericos/internal/config"
	applog "github.com/tfmcode/guia-camiones-atmosfericos/internal/logger"
	"github.com/tfmcode/guia-camiones-atmosfericos/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DB struct {
	*gorm.DB
}

func Connect(cfg *config.Config) (*DB, error) {
	log := applog.GetLogger("database")

	logLevel := logger.Silent
	if cfg.ServerEnv == "development" {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err == nil {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
		log.Info("Database connection pool configured")
	}

	return &DB{db}, nil
}

// Migrate runs AutoMigrate for all models
// Note: errors are logged but not fatal - the pre-existing schema is compatible
func Migrate(db *DB) error {
	log := applog.GetLogger("database")

	err := db.AutoMigrate(
		// Directory domain
		&models.Servicio{},
		&models.Empresa{},

		// Geocoding domain
		&models.GeocodeCache{},
		&models.GeocodeLog{},
	)
	if err != nil {
		log.Warnf("AutoMigrate warning (non-fatal): %v", err)
	}
	return nil
}
