package api

import (
	"fmt"
	"time"

	models "YieldPull/internal/domain/models"
	"YieldPull/internal/usecase"
	"YieldPull/pkg/cache"
	xhttp "YieldPull/pkg/http"
	xlogger "YieldPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// MetricsEchoHandler exposes the computed payment metrics over HTTP.
type MetricsEchoHandler struct {
	logger      *xlogger.Logger
	refresher   *usecase.MetricsRefresher
	screener    *usecase.Screener
	cache       cache.Service
	screenerTTL time.Duration
}

func NewMetricsEchoHandler(logger *xlogger.Logger, refresher *usecase.MetricsRefresher, screener *usecase.Screener, c cache.Service, screenerTTL time.Duration) *MetricsEchoHandler {
	if screenerTTL <= 0 {
		screenerTTL = 30 * time.Second
	}
	return &MetricsEchoHandler{
		logger:      logger,
		refresher:   refresher,
		screener:    screener,
		cache:       c,
		screenerTTL: screenerTTL,
	}
}

func (h *MetricsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/instruments/:id/metrics", h.InstrumentMetrics)
	g.POST("/refresh", h.Refresh)
	g.GET("/screener", h.Screener)
}

// InstrumentMetrics returns the latest computed metrics for one instrument.
func (h *MetricsEchoHandler) InstrumentMetrics(c echo.Context) error {
	req := &models.InstrumentMetricsRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	inst, ok := h.refresher.Get(req.ID)
	if !ok {
		return xhttp.NotFoundResponse(c, map[string]string{"id": req.ID})
	}
	return xhttp.SuccessResponse(c, inst)
}

// Refresh triggers a refresh cycle for the requested instruments, or all
// tracked ones when the list is empty.
func (h *MetricsEchoHandler) Refresh(c echo.Context) error {
	req := &models.RefreshRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	if len(req.IDs) == 0 {
		h.refresher.RefreshAll(ctx, req.Force)
		return xhttp.SuccessResponse(c, map[string]string{"status": "refreshed"})
	}

	failed := make([]string, 0)
	for _, id := range req.IDs {
		if err := h.refresher.Refresh(ctx, id, req.Force); err != nil {
			h.logger.Error("refresh error", xlogger.String("instrument", id), xlogger.Error(err))
			failed = append(failed, id)
		}
	}
	if len(failed) > 0 {
		return xhttp.SuccessResponse(c, map[string]interface{}{"status": "partial", "failed": failed})
	}
	return xhttp.SuccessResponse(c, map[string]string{"status": "refreshed"})
}

// Screener returns tracked instruments ranked by the requested metric.
// Responses are cached briefly; the underlying metrics change at most
// once per refresh cycle.
func (h *MetricsEchoHandler) Screener(c echo.Context) error {
	req := &models.ScreenerRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	ctx := c.Request().Context()
	key := fmt.Sprintf("screener:%s:%s:%d", req.Type, req.SortBy, req.Limit)
	if h.cache != nil {
		var cached []usecase.ScreenerRow
		if err := h.cache.Get(ctx, key, &cached); err == nil {
			return xhttp.SuccessResponse(c, cached)
		}
	}

	rows := h.screener.Screen(models.InstrumentType(req.Type), req.SortBy, req.Limit)
	if h.cache != nil {
		if err := h.cache.Set(ctx, key, rows, h.screenerTTL); err != nil {
			h.logger.Warn("screener cache set failed", xlogger.Error(err))
		}
	}
	return xhttp.SuccessResponse(c, rows)
}
