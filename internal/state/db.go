// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	psqlInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	var err error
	DB, err = sql.Open("postgres", psqlInfo)
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	err = DB.Ping()
	if err != nil {
		DB.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Msg("Successfully connected to the PostgreSQL database!")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
	}
}

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema() error {
	if DB == nil {
		return fmt.Errorf("database not initialized")
	}

	schemaSQL := `
		CREATE TABLE IF NOT EXISTS risk_parameters (
			params_id SERIAL PRIMARY KEY,
			version INTEGER NOT NULL DEFAULT 1,
			config_name VARCHAR(255) NOT NULL DEFAULT 'default',
			is_active BOOLEAN NOT NULL DEFAULT FALSE,
			activated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			credit_score_ceiling BIGINT NOT NULL, credit_risk_multiplier BIGINT NOT NULL,
			maturity_window_days BIGINT NOT NULL, maturity_risk_premium BIGINT NOT NULL,
			late_payment_multiplier BIGINT NOT NULL, credit_downgrade_multiplier BIGINT NOT NULL,
			severity_ceiling BIGINT NOT NULL, event_window_days BIGINT NOT NULL, max_scored_events BIGINT NOT NULL,
			min_fee_bps BIGINT NOT NULL, max_fee_bps BIGINT NOT NULL,
			fee_slope_bps BIGINT NOT NULL, fee_calibration_score BIGINT NOT NULL,
			healthy_threshold_bps BIGINT NOT NULL, liquidation_step_bps BIGINT NOT NULL,
			default_risk_score BIGINT NOT NULL,
			CONSTRAINT uq_risk_parameters_config_version UNIQUE (config_name, version)
		);
		CREATE INDEX IF NOT EXISTS idx_risk_parameters_config_active_timestamp ON risk_parameters(config_name, is_active, activated_at DESC);

		CREATE TABLE IF NOT EXISTS pool_compliance (
			pool_id BIGINT PRIMARY KEY,
			is_compliant BOOLEAN NOT NULL,
			default_risk_score BIGINT NOT NULL DEFAULT 0,
			activated BOOLEAN NOT NULL DEFAULT FALSE,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);

		CREATE TABLE IF NOT EXISTS trade_assets (
			pool_id BIGINT NOT NULL,
			owner VARCHAR(128) NOT NULL,
			face_value NUMERIC(38, 0) NOT NULL,
			maturity TIMESTAMPTZ NOT NULL,
			credit_score INTEGER NOT NULL,
			asset_type VARCHAR(32) NOT NULL,
			jurisdiction_hash VARCHAR(128) NOT NULL,
			is_active BOOLEAN NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (pool_id, owner)
		);

		CREATE TABLE IF NOT EXISTS collateral_health (
			pool_id BIGINT NOT NULL,
			owner VARCHAR(128) NOT NULL,
			total_collateral NUMERIC(38, 0) NOT NULL,
			total_debt NUMERIC(38, 0) NOT NULL,
			health_factor_bps BIGINT NOT NULL,
			last_update TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (pool_id, owner)
		);

		CREATE TABLE IF NOT EXISTS risk_events (
			event_id SERIAL PRIMARY KEY,
			pool_id BIGINT NOT NULL,
			owner VARCHAR(128) NOT NULL,
			event_timestamp TIMESTAMPTZ NOT NULL,
			severity INTEGER NOT NULL,
			is_late_payment BOOLEAN NOT NULL,
			is_credit_downgrade BOOLEAN NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_risk_events_participant ON risk_events(pool_id, owner, event_id);

		CREATE TABLE IF NOT EXISTS engine_notifications (
			sequence SERIAL PRIMARY KEY,
			notification_type VARCHAR(50) NOT NULL,
			pool_id BIGINT NOT NULL,
			owner VARCHAR(128) NOT NULL,
			amount NUMERIC(38, 0),
			asset_type VARCHAR(32),
			health_factor_bps BIGINT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_engine_notifications_created ON engine_notifications(created_at DESC);
		CREATE INDEX IF NOT EXISTS idx_engine_notifications_type ON engine_notifications(notification_type);
	`
	_, err := DB.Exec(schemaSQL)
	if err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	log.Info().Msg("Database schema ensured.")
	return nil
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection() error {
	if DB == nil {
		return fmt.Errorf("database connection is nil")
	}

	// Use a short timeout context for health checks
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := DB.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	return nil
}
