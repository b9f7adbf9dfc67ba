package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
	"github.com/andresuchdata/stockcast/backend-go/internal/service"
)

type ProductHandler struct {
	service *service.ForecastService
	batch   *service.BatchService
}

func NewProductHandler(svc *service.ForecastService, batch *service.BatchService) *ProductHandler {
	return &ProductHandler{service: svc, batch: batch}
}

func (h *ProductHandler) parseCadence(c *gin.Context) (domain.Cadence, bool) {
	raw := c.DefaultQuery("cadence", string(domain.CadenceDay))
	cadence, err := domain.ParseCadence(raw)
	if err != nil {
		errorResponse(c, http.StatusBadRequest, err.Error())
		return "", false
	}
	return cadence, true
}

func (h *ProductHandler) parseOverrides(c *gin.Context) (service.PolicyOverrides, bool) {
	var overrides service.PolicyOverrides

	if raw := strings.TrimSpace(c.Query("lead_time")); raw != "" {
		leadTime, err := strconv.Atoi(raw)
		if err != nil || leadTime <= 0 {
			errorResponse(c, http.StatusBadRequest, "lead_time must be a positive integer")
			return overrides, false
		}
		overrides.LeadTimeDays = leadTime
	}

	if raw := strings.TrimSpace(c.Query("service_level")); raw != "" {
		level, err := strconv.ParseFloat(raw, 64)
		if err != nil || level <= 0 || level >= 1 {
			errorResponse(c, http.StatusBadRequest, "service_level must be in (0, 1)")
			return overrides, false
		}
		overrides.ServiceLevel = level
	}

	if raw := strings.TrimSpace(c.Query("stock")); raw != "" {
		stock, err := strconv.ParseFloat(raw, 64)
		if err != nil || stock < 0 {
			errorResponse(c, http.StatusBadRequest, "stock must be a non-negative number")
			return overrides, false
		}
		overrides.CurrentStock = &stock
	}

	return overrides, true
}

func parseHorizon(c *gin.Context) (int, bool) {
	raw := strings.TrimSpace(c.Query("horizon"))
	if raw == "" {
		return 0, true
	}
	horizon, err := strconv.Atoi(raw)
	if err != nil || horizon <= 0 {
		errorResponse(c, http.StatusBadRequest, "horizon must be a positive integer")
		return 0, false
	}
	return horizon, true
}

// GetForecast serves GET /products/:code/forecast.
func (h *ProductHandler) GetForecast(c *gin.Context) {
	cadence, ok := h.parseCadence(c)
	if !ok {
		return
	}
	horizon, ok := parseHorizon(c)
	if !ok {
		return
	}

	resp, err := h.service.Forecast(c.Request.Context(), c.Param("code"), cadence, c.Query("engine"), horizon)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetKPI serves GET /products/:code/kpi.
func (h *ProductHandler) GetKPI(c *gin.Context) {
	cadence, ok := h.parseCadence(c)
	if !ok {
		return
	}
	overrides, ok := h.parseOverrides(c)
	if !ok {
		return
	}

	kpiSet, err := h.service.KPIs(c.Request.Context(), c.Param("code"), cadence, overrides)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"product_code": c.Param("code"), "kpi": kpiSet})
}

// GetDecision serves GET /products/:code/decision.
func (h *ProductHandler) GetDecision(c *gin.Context) {
	cadence, ok := h.parseCadence(c)
	if !ok {
		return
	}
	overrides, ok := h.parseOverrides(c)
	if !ok {
		return
	}

	resp, err := h.service.Decision(c.Request.Context(), c.Param("code"), cadence, overrides)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetScenarios serves GET /products/:code/scenarios.
func (h *ProductHandler) GetScenarios(c *gin.Context) {
	cadence, ok := h.parseCadence(c)
	if !ok {
		return
	}
	overrides, ok := h.parseOverrides(c)
	if !ok {
		return
	}

	resp, err := h.service.Scenarios(c.Request.Context(), c.Param("code"), cadence, overrides)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetSensitivity serves GET /products/:code/sensitivity.
func (h *ProductHandler) GetSensitivity(c *gin.Context) {
	cadence, ok := h.parseCadence(c)
	if !ok {
		return
	}
	overrides, ok := h.parseOverrides(c)
	if !ok {
		return
	}

	resp, err := h.service.Sensitivity(c.Request.Context(), c.Param("code"), cadence, overrides)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetBacktest serves GET /products/:code/backtest.
func (h *ProductHandler) GetBacktest(c *gin.Context) {
	cadence, ok := h.parseCadence(c)
	if !ok {
		return
	}
	horizon, ok := parseHorizon(c)
	if !ok {
		return
	}

	result, err := h.service.Backtest(c.Request.Context(), c.Param("code"), cadence, c.Query("engine"), horizon)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// EvaluateBatch serves POST /products/evaluate.
func (h *ProductHandler) EvaluateBatch(c *gin.Context) {
	cadence, ok := h.parseCadence(c)
	if !ok {
		return
	}
	overrides, ok := h.parseOverrides(c)
	if !ok {
		return
	}

	summary, err := h.batch.EvaluateAll(c.Request.Context(), cadence, overrides)
	if err != nil {
		handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// handleServiceError maps domain sentinels onto HTTP statuses: unknown
// products are 404, histories the engines cannot work with are 422,
// bad engine names are 400, and anything else is a 500.
func handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		errorResponse(c, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrEmptyHistory),
		errors.Is(err, domain.ErrInsufficientHistory),
		errors.Is(err, domain.ErrNoValidWindows),
		errors.Is(err, domain.ErrNoDecision):
		errorResponse(c, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, domain.ErrUnknownEngine):
		errorResponse(c, http.StatusBadRequest, err.Error())
	default:
		errorResponse(c, http.StatusInternalServerError, err.Error())
	}
}

func errorResponse(c *gin.Context, statusCode int, message string) {
	log.Error().Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
}
