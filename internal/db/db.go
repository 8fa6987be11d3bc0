package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"airquality-backend/config"
	"airquality-backend/internal/model"
)

// Supported values of database.driver.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Open connects to the configured database and tunes the connection pool.
// It does not touch the schema; see Migrate.
func Open(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetimeMinutes) * time.Minute)

	return db, nil
}

func dialectorFor(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverPostgres, "postgresql", "pgx":
		return postgres.Open(cfg.DSN), nil
	case DriverSQLite, "sqlite3":
		return sqlite.Open(sqliteDSN(cfg.DSN)), nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q (allowed: %s, %s)", cfg.Driver, DriverPostgres, DriverSQLite)
	}
}

// sqliteDSN turns on foreign keys so the measurement -> sensor reference is
// enforced the same way postgres does it.
func sqliteDSN(dsn string) string {
	if strings.Contains(dsn, "_foreign_keys") || strings.Contains(dsn, "_fk") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on"
}

// Migrate creates or updates the registry and measurement tables.
func Migrate(db *gorm.DB, cfg *config.DatabaseConfig) error {
	slog.Info("running database migrations")
	if err := db.AutoMigrate(
		&model.Sensor{},
		&model.Measurement{},
	); err != nil {
		return fmt.Errorf("automigrate failed: %w", err)
	}

	if cfg.EnableTimescale {
		if db.Dialector.Name() != DriverPostgres {
			slog.Warn("enable_timescale ignored for non-postgres database", "dialect", db.Dialector.Name())
		} else {
			slog.Info("TimescaleDB is enabled, applying TimescaleDB-specific DDL")
			if err := applyTimescaleDDL(db); err != nil {
				slog.Warn("failed to apply some TimescaleDB DDL, continuing without them", "error", err)
			}
		}
	}

	slog.Info("database initialization complete")
	return nil
}

// Init opens the database and migrates it.
func Init(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	db, err := Open(cfg, logLevel)
	if err != nil {
		return nil, err
	}
	if err := Migrate(db, cfg); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func applyTimescaleDDL(db *gorm.DB) error {
	ddls := []string{
		"CREATE EXTENSION IF NOT EXISTS timescaledb;",

		// Hypertables need the time column in every unique index, so the
		// primary key becomes (id, timestamp).
		"ALTER TABLE measurements DROP CONSTRAINT IF EXISTS measurements_pkey;",
		"ALTER TABLE measurements ADD PRIMARY KEY (id, timestamp);",
		"SELECT create_hypertable('measurements', 'timestamp', if_not_exists => TRUE, migrate_data => TRUE);",

		// Latest-per-sensor and series lookups walk this index backwards.
		"CREATE INDEX IF NOT EXISTS idx_measurements_sensor_ts_desc ON measurements (sensor_id, timestamp DESC, id DESC);",
	}

	for _, ddl := range ddls {
		if err := db.Exec(ddl).Error; err != nil {
			return fmt.Errorf("DDL failed on %q: %w", ddl, err)
		}
	}
	return nil
}
