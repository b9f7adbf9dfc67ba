// internal/api/api.go
package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/stockcast/backend-go/internal/api/handlers"
	"github.com/andresuchdata/stockcast/backend-go/internal/api/middleware"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
)

type Services struct {
	ForecastService *service.ForecastService
	BatchService    *service.BatchService
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())

	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	apiGroup := router.Group("/api/v1")

	if services != nil && services.ForecastService != nil {
		productHandler := handlers.NewProductHandler(services.ForecastService, services.BatchService)
		productGroup := apiGroup.Group("/products")
		{
			productGroup.GET("/:code/forecast", productHandler.GetForecast)
			productGroup.GET("/:code/kpi", productHandler.GetKPI)
			productGroup.GET("/:code/decision", productHandler.GetDecision)
			productGroup.GET("/:code/scenarios", productHandler.GetScenarios)
			productGroup.GET("/:code/sensitivity", productHandler.GetSensitivity)
			productGroup.GET("/:code/backtest", productHandler.GetBacktest)

			if services.BatchService != nil {
				productGroup.POST("/evaluate", productHandler.EvaluateBatch)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
