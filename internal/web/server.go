package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/tradefin-network/riskengine/internal/engine"
	"github.com/tradefin-network/riskengine/internal/logger"
	"github.com/tradefin-network/riskengine/internal/metrics"
	"github.com/tradefin-network/riskengine/internal/state"
	"github.com/tradefin-network/riskengine/internal/types"
)

var webLogger = logger.GetForComponent("web_server")

// EngineReader is the read-only view of the engine exposed over HTTP. The
// lifecycle contract itself stays an in-process API; this surface is
// observability only.
type EngineReader interface {
	QueryRiskScore(pool types.PoolID, owner string) (types.RiskScoreResult, error)
	QueryFee(pool types.PoolID, owner string) (int64, error)
	Health(pool types.PoolID, owner string) (types.CollateralHealth, bool)
	Asset(pool types.PoolID, owner string) (types.TradeAsset, bool)
	PoolState(pool types.PoolID) (types.PoolComplianceState, bool)
	Params() types.RiskParameters
}

// WebServer serves the read-only risk API: parameters, pool compliance state,
// per-participant scores, fees, collateral health, and recent notifications.
type WebServer struct {
	router *mux.Router
	port   string
	engine EngineReader
}

// NewWebServer creates a new web server instance
func NewWebServer(port string, reader EngineReader) *WebServer {
	if port == "" {
		port = "8080"
	}

	server := &WebServer{
		router: mux.NewRouter(),
		port:   port,
		engine: reader,
	}

	server.setupRoutes()
	return server
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes() {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	ws.router.Handle("/metrics", metrics.Handler()).Methods("GET")

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/parameters", ws.handleGetParameters).Methods("GET")
	api.HandleFunc("/notifications", ws.handleGetNotifications).Methods("GET")
	api.HandleFunc("/pools/{pool}", ws.handleGetPool).Methods("GET")
	api.HandleFunc("/pools/{pool}/participants/{owner}/risk-score", ws.handleGetRiskScore).Methods("GET")
	api.HandleFunc("/pools/{pool}/participants/{owner}/fee", ws.handleGetFee).Methods("GET")
	api.HandleFunc("/pools/{pool}/participants/{owner}/collateral", ws.handleGetCollateral).Methods("GET")
	api.HandleFunc("/pools/{pool}/participants/{owner}/asset", ws.handleGetAsset).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
	ws.router.Use(metrics.Middleware)
}

// Start starts the web server
func (ws *WebServer) Start() error {
	webLogger.Info().Str("port", ws.port).Msg("Starting web server")

	server := &http.Server{
		Addr:         ":" + ws.port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return server.ListenAndServe()
}

// handleHealth returns server health status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	dbHealthy := true
	if err := state.TestDBConnection(); err != nil {
		dbHealthy = false
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if !dbHealthy {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	response := map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"sys_bytes":        memStats.Sys,
			"gc_cycles":        memStats.NumGC,
		},
		"component": map[string]interface{}{
			"name":    "riskengine-collateral-safety-engine",
			"version": "1.0.0",
		},
		"engine_status": map[string]interface{}{
			"database_healthy": dbHealthy,
		},
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// handleGetParameters returns the active risk parameters
func (ws *WebServer) handleGetParameters(w http.ResponseWriter, r *http.Request) {
	response := map[string]interface{}{
		"parameters": ws.engine.Params(),
		"timestamp":  time.Now().UTC(),
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetNotifications returns the most recent engine notifications
func (ws *WebServer) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= 100 {
			limit = parsedLimit
		}
	}

	notifications, err := state.GetRecentNotifications(limit)
	if err != nil {
		webLogger.Error().Err(err).Msg("Failed to get recent notifications")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve notifications")
		return
	}

	response := map[string]interface{}{
		"notifications": notifications,
		"count":         len(notifications),
		"limit":         limit,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetPool returns a pool's compliance state
func (ws *WebServer) handleGetPool(w http.ResponseWriter, r *http.Request) {
	pool, ok := ws.poolFromRequest(w, r)
	if !ok {
		return
	}

	st, found := ws.engine.PoolState(pool)
	if !found {
		ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, st)
}

// handleGetRiskScore returns a participant's current risk score
func (ws *WebServer) handleGetRiskScore(w http.ResponseWriter, r *http.Request) {
	pool, owner, ok := ws.participantFromRequest(w, r)
	if !ok {
		return
	}

	score, err := ws.engine.QueryRiskScore(pool, owner)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownPool) {
			ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
			return
		}
		webLogger.Error().Err(err).Msg("Failed to compute risk score")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute risk score")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, score)
}

// handleGetFee returns the fee a swap would currently be charged
func (ws *WebServer) handleGetFee(w http.ResponseWriter, r *http.Request) {
	pool, owner, ok := ws.participantFromRequest(w, r)
	if !ok {
		return
	}

	feeBps, err := ws.engine.QueryFee(pool, owner)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownPool) {
			ws.writeErrorResponse(w, http.StatusNotFound, "Pool not found")
			return
		}
		webLogger.Error().Err(err).Msg("Failed to compute fee")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to compute fee")
		return
	}

	response := map[string]interface{}{
		"pool_id": pool,
		"owner":   owner,
		"fee_bps": feeBps,
	}
	ws.writeJSONResponse(w, http.StatusOK, response)
}

// handleGetCollateral returns a participant's collateral health record
func (ws *WebServer) handleGetCollateral(w http.ResponseWriter, r *http.Request) {
	pool, owner, ok := ws.participantFromRequest(w, r)
	if !ok {
		return
	}

	health, found := ws.engine.Health(pool, owner)
	if !found {
		ws.writeErrorResponse(w, http.StatusNotFound, "No collateral record for participant")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, health)
}

// handleGetAsset returns a participant's registered asset
func (ws *WebServer) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	pool, owner, ok := ws.participantFromRequest(w, r)
	if !ok {
		return
	}

	asset, found := ws.engine.Asset(pool, owner)
	if !found {
		ws.writeErrorResponse(w, http.StatusNotFound, "No asset registered for participant")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, asset)
}

func (ws *WebServer) poolFromRequest(w http.ResponseWriter, r *http.Request) (types.PoolID, bool) {
	vars := mux.Vars(r)
	poolID, err := strconv.ParseUint(vars["pool"], 10, 64)
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid pool ID")
		return 0, false
	}
	return types.PoolID(poolID), true
}

func (ws *WebServer) participantFromRequest(w http.ResponseWriter, r *http.Request) (types.PoolID, string, bool) {
	pool, ok := ws.poolFromRequest(w, r)
	if !ok {
		return 0, "", false
	}
	owner := mux.Vars(r)["owner"]
	if owner == "" {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Missing owner")
		return 0, "", false
	}
	return pool, owner, true
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		webLogger.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	}

	ws.writeJSONResponse(w, statusCode, response)
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		duration := time.Since(start)

		webLogger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", duration).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
