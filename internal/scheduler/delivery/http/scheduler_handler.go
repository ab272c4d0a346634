package http

import (
	"context"
	"errors"
	"net/http"

	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/internal/scheduler/service"
	"golang-stock-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// SchedulerHandler handles HTTP requests for the analysis scheduler.
type SchedulerHandler struct {
	schedulerService service.SchedulerService
	logger           *logger.Logger
	// baseCtx outlives the request so triggered runs are not cancelled with it.
	baseCtx context.Context
}

// NewSchedulerHandler creates a new SchedulerHandler. Manual runs started over HTTP
// inherit ctx.
func NewSchedulerHandler(ctx context.Context, schedulerService service.SchedulerService, logger *logger.Logger) *SchedulerHandler {
	return &SchedulerHandler{schedulerService: schedulerService, logger: logger, baseCtx: ctx}
}

// RegisterRoutes registers the scheduler routes to the Echo group.
func (h *SchedulerHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/status", h.GetStatus)
	g.POST("/start", h.Start)
	g.POST("/stop", h.Stop)
	g.POST("/trigger", h.Trigger)
}

// GetStatus godoc
// @Summary Get scheduler status
// @Description Running state, schedule, last and next run, providers and market hours
// @Tags scheduler
// @Produce  json
// @Success 200 {object} dto.StatusResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scheduler/status [get]
func (h *SchedulerHandler) GetStatus(c echo.Context) error {
	status, err := h.schedulerService.Status(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to get scheduler status", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get scheduler status"})
	}
	return c.JSON(http.StatusOK, status)
}

// Start godoc
// @Summary Start the scheduler
// @Description Start the daily analysis schedule. Starting a running scheduler is a no-op.
// @Tags scheduler
// @Produce  json
// @Success 200 {object} dto.MessageResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scheduler/start [post]
func (h *SchedulerHandler) Start(c echo.Context) error {
	if err := h.schedulerService.Start(h.baseCtx); err != nil {
		h.logger.Error("Failed to start scheduler", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Scheduler started"})
}

// Stop godoc
// @Summary Stop the scheduler
// @Description Stop the daily analysis schedule. Stopping a stopped scheduler is a no-op.
// @Tags scheduler
// @Produce  json
// @Success 200 {object} dto.MessageResponse
// @Router /scheduler/stop [post]
func (h *SchedulerHandler) Stop(c echo.Context) error {
	h.schedulerService.Stop()
	return c.JSON(http.StatusOK, dto.MessageResponse{Message: "Scheduler stopped"})
}

// Trigger godoc
// @Summary Trigger a manual analysis
// @Description Analyze the given symbols, or the scheduled symbol set when none are given. The run slot is claimed before the response; the analysis continues in the background.
// @Tags scheduler
// @Accept  json
// @Produce  json
// @Param   request  body    dto.TriggerAnalysisRequest   false    "Symbols to analyze"
// @Success 202 {object} dto.TriggerAnalysisResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 409 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /scheduler/trigger [post]
func (h *SchedulerHandler) Trigger(c echo.Context) error {
	var req dto.TriggerAnalysisRequest
	if c.Request().ContentLength != 0 {
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return c.JSON(http.StatusBadRequest, errs)
		}
	}

	if err := h.schedulerService.StartManualAnalysis(h.baseCtx, req.Symbols); err != nil {
		if errors.Is(err, service.ErrRunInProgress) {
			return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to start manual analysis", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to start manual analysis"})
	}

	return c.JSON(http.StatusAccepted, dto.TriggerAnalysisResponse{Message: "Analysis triggered", Symbols: req.Symbols})
}
