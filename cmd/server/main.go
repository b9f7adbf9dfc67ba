// backend-go/cmd/server/main.go
package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/mux"

	"github.com/andresuchdata/stockcast/backend-go/internal/api"
	"github.com/andresuchdata/stockcast/backend-go/internal/artifacts"
	"github.com/andresuchdata/stockcast/backend-go/internal/cache"
	"github.com/andresuchdata/stockcast/backend-go/internal/config"
	"github.com/andresuchdata/stockcast/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
	"github.com/andresuchdata/stockcast/backend-go/pkg/logger"
)

func main() {
	cfg := config.Load()

	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	forecastCache, err := cache.NewForecastCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Cache unavailable, continuing without it")
		forecastCache = cache.NewNoopForecastCache()
	}

	metaStore, err := artifacts.NewModelMetaStore(cfg.Artifacts)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("Artifact store unavailable, continuing without it")
		metaStore = artifacts.NewNoopModelMetaStore()
	}

	salesRepo := postgres.NewSalesRepository(db)
	inventoryRepo := postgres.NewInventoryRepository(db)

	forecastService := service.NewForecastService(salesRepo, inventoryRepo, forecastCache, metaStore, cfg)
	batchService := service.NewBatchService(salesRepo, forecastService, cfg.Forecast.BatchWorkers)

	router := api.NewRouter(&api.Services{
		ForecastService: forecastService,
		BatchService:    batchService,
	}, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	opsSrv := &http.Server{
		Addr:    ":" + cfg.Server.OpsPort,
		Handler: opsRouter(db),
	}

	go func() {
		logger.Log.Info().Str("port", cfg.Server.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	go func() {
		logger.Log.Info().Str("port", cfg.Server.OpsPort).Msg("Starting ops listener")
		if err := opsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Error().Err(err).Msg("Ops listener failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := opsSrv.Shutdown(ctx); err != nil {
		logger.Log.Error().Err(err).Msg("Ops listener forced to shutdown")
	}
	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}

// opsRouter serves the out-of-band liveness and readiness endpoints on
// the ops port, away from the public API surface.
func opsRouter(db *postgres.DB) *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok"}
		code := http.StatusOK
		if err := db.PingContext(ctx); err != nil {
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(status)
	}).Methods("GET")

	return r
}
