package http

import (
	"errors"
	"net/http"

	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/internal/scheduler/service"
	"golang-stock-tracker/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// RunHandler handles HTTP requests for analysis run history.
type RunHandler struct {
	runService service.RunService
	logger     *logger.Logger
}

// NewRunHandler creates a new RunHandler.
func NewRunHandler(runService service.RunService, logger *logger.Logger) *RunHandler {
	return &RunHandler{runService: runService, logger: logger}
}

// RegisterRoutes registers the run history routes to the Echo group.
func (h *RunHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetAllRuns)
	g.GET("/:id", h.GetRunByID)
}

// GetAllRuns godoc
// @Summary List analysis runs
// @Description List the most recent analysis runs
// @Tags runs
// @Produce  json
// @Param   limit  query   int false   "Maximum rows (default 20)"
// @Success 200 {array} dto.AnalysisRunResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs [get]
func (h *RunHandler) GetAllRuns(c echo.Context) error {
	var req dto.ListRunsRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	runs, err := h.runService.GetAllRuns(c.Request().Context(), req.Limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get analysis runs"})
	}
	return c.JSON(http.StatusOK, runs)
}

// GetRunByID godoc
// @Summary Get an analysis run by ID
// @Description Get a single analysis run with its per-symbol output
// @Tags runs
// @Produce  json
// @Param   id  path    string true    "Run ID"
// @Success 200 {object} dto.AnalysisRunResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /runs/{id} [get]
func (h *RunHandler) GetRunByID(c echo.Context) error {
	id := c.Param("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid run ID"})
	}

	run, err := h.runService.GetRunByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Run not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, run)
}
