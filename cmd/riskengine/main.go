package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/tradefin-network/riskengine/internal/config"
	"github.com/tradefin-network/riskengine/internal/engine"
	"github.com/tradefin-network/riskengine/internal/logger"
	"github.com/tradefin-network/riskengine/internal/state"
	"github.com/tradefin-network/riskengine/internal/web"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

const (
	DEFAULT_RISK_CONFIG_VERSION = 1
)

// main is the entry point for the risk engine daemon.
func main() {
	// --- 1. Initialization Phase ---
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("Warning: .env file not found. Relying on OS environment variables.")
	}

	if err := config.LoadConfig(); err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Initialize(config.LogLevel)
	log.Info().Msg("Risk Engine Starting...")

	// Initialize Database Connection
	dbCfg := state.DBConfig{
		Host: config.DBHost, Port: config.DBPort,
		User: config.DBUser, Password: config.DBPassword,
		DBName: config.DBName, SSLMode: config.DBSSLMode,
	}
	if err := state.InitDB(dbCfg); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer state.CloseDB()
	if err := state.EnsureSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure database schema")
	}

	// Load Risk Parameters
	riskParams, err := state.LoadActiveRiskParameters(config.RiskConfigName)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load active risk parameters, using defaults and saving.")
		defaultParams := config.DefaultRiskParameters
		if _, err := state.SaveRiskParameters(defaultParams, config.RiskConfigName, DEFAULT_RISK_CONFIG_VERSION, true); err != nil {
			log.Fatal().Err(err).Msg("Failed to save initial default risk parameters.")
		}
		riskParams = &defaultParams
	}
	log.Info().Msg("Risk parameters loaded successfully.")

	// --- 2. Engine Initialization ---
	eng, err := engine.New(engine.Config{
		Params:  *riskParams,
		Journal: state.NewJournal(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create engine instance")
	}

	// Warm-start the engine from persisted state.
	snapshot, err := loadSnapshot()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load persisted engine state")
	}
	eng.Restore(snapshot)
	log.Info().Msg("Engine instance created successfully")

	// --- 3. Start Web Server ---
	webServer := web.NewWebServer(config.WebPort, eng)
	go func() {
		log.Info().Str("port", config.WebPort).Msg("Starting risk engine API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed to start")
		}
	}()

	// --- 4. Wait for shutdown ---
	// The lifecycle contract is an in-process API driven by the pool manager;
	// the daemon only serves the read-only surface until terminated.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	log.Info().Str("signal", sig.String()).Msg("Shutting down")
}

// loadSnapshot assembles the persisted engine state for warm start.
func loadSnapshot() (engine.Snapshot, error) {
	pools, err := state.LoadPools()
	if err != nil {
		return engine.Snapshot{}, err
	}
	assets, err := state.LoadAssets()
	if err != nil {
		return engine.Snapshot{}, err
	}
	healths, err := state.LoadHealth()
	if err != nil {
		return engine.Snapshot{}, err
	}
	events, err := state.LoadRiskEvents()
	if err != nil {
		return engine.Snapshot{}, err
	}

	return engine.Snapshot{
		Pools:   pools,
		Assets:  assets,
		Healths: healths,
		Events:  events,
	}, nil
}
