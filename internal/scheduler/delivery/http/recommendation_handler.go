package http

import (
	"errors"
	"net/http"
	"strconv"

	"golang-stock-tracker/internal/scheduler/dto"
	"golang-stock-tracker/internal/scheduler/service"
	"golang-stock-tracker/pkg/logger"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"
)

// RecommendationHandler handles HTTP requests for stored recommendations.
type RecommendationHandler struct {
	recommendationService service.RecommendationService
	logger                *logger.Logger
}

// NewRecommendationHandler creates a new RecommendationHandler.
func NewRecommendationHandler(recommendationService service.RecommendationService, logger *logger.Logger) *RecommendationHandler {
	return &RecommendationHandler{recommendationService: recommendationService, logger: logger}
}

// RegisterRoutes registers the recommendation routes to the Echo group.
func (h *RecommendationHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetRecommendations)
	g.DELETE("/:id", h.DeleteRecommendation)
}

// GetRecommendations godoc
// @Summary List recommendations
// @Description List recommendations, newest first
// @Tags recommendations
// @Produce  json
// @Param   symbol  query   string false   "Stock symbol"
// @Param   type    query   string false   "daily_opportunity, manual or custom"
// @Param   limit   query   int    false   "Maximum rows (default 50)"
// @Success 200 {array} dto.RecommendationResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /recommendations [get]
func (h *RecommendationHandler) GetRecommendations(c echo.Context) error {
	var req dto.ListRecommendationsRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	recs, err := h.recommendationService.List(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get recommendations"})
	}
	return c.JSON(http.StatusOK, recs)
}

// DeleteRecommendation godoc
// @Summary Delete a recommendation
// @Description Delete a recommendation by its ID
// @Tags recommendations
// @Produce  json
// @Param   id  path    int true    "Recommendation ID"
// @Success 204 {object} nil
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /recommendations/{id} [delete]
func (h *RecommendationHandler) DeleteRecommendation(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid recommendation ID"})
	}

	if err := h.recommendationService.Delete(c.Request().Context(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Recommendation not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete recommendation"})
	}
	return c.NoContent(http.StatusNoContent)
}
