package http

import (
	"errors"
	"net/http"
	"strings"

	analyzerdto "golang-stock-tracker/internal/analyzer/dto"
	analyzer "golang-stock-tracker/internal/analyzer/service"
	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/internal/scheduler/service"
	"golang-stock-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
)

// AnalysisHandler handles one-off analysis requests.
type AnalysisHandler struct {
	schedulerService service.SchedulerService
	analysisService  analyzer.AnalysisService
	logger           *logger.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(schedulerService service.SchedulerService, analysisService analyzer.AnalysisService, logger *logger.Logger) *AnalysisHandler {
	return &AnalysisHandler{schedulerService: schedulerService, analysisService: analysisService, logger: logger}
}

// RegisterRoutes registers the analysis routes to the Echo group.
func (h *AnalysisHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/providers", h.GetProviders)
	g.POST("/:symbol", h.AnalyzeSymbol)
}

// GetProviders godoc
// @Summary List AI providers
// @Description List the configured AI providers in the order they are tried
// @Tags analysis
// @Produce  json
// @Success 200 {array} string
// @Router /analysis/providers [get]
func (h *AnalysisHandler) GetProviders(c echo.Context) error {
	return c.JSON(http.StatusOK, h.analysisService.AvailableProviders())
}

// AnalyzeSymbol godoc
// @Summary Analyze a single symbol
// @Description Run a custom analysis for one symbol, optionally preferring a provider
// @Tags analysis
// @Accept  json
// @Produce  json
// @Param   symbol   path    string true    "Stock symbol"
// @Param   request  body    dto.AnalyzeSymbolRequest   false    "Preferred provider"
// @Success 201 {object} dto.RecommendationResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /analysis/{symbol} [post]
func (h *AnalysisHandler) AnalyzeSymbol(c echo.Context) error {
	symbol := strings.TrimSpace(c.Param("symbol"))
	if symbol == "" || len(symbol) > 20 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid symbol"})
	}

	var req dto.AnalyzeSymbolRequest
	if c.Request().ContentLength != 0 {
		if errs := ReadAndValidateRequest(c, &req); errs != nil {
			return c.JSON(http.StatusBadRequest, errs)
		}
	}

	rec, err := h.schedulerService.AnalyzeSymbol(c.Request().Context(), symbol, req.Provider)
	if err != nil {
		if errors.Is(err, analyzerdto.ErrDataUnavailable) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
		}
		h.logger.Error("Failed to analyze symbol", logger.ErrorField(err), logger.StringField("symbol", symbol))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to analyze symbol"})
	}

	return c.JSON(http.StatusCreated, service.ToRecommendationResponse(rec))
}
