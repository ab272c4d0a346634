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

// WatchlistHandler handles HTTP requests for watchlists.
type WatchlistHandler struct {
	watchlistService service.WatchlistService
	logger           *logger.Logger
}

// NewWatchlistHandler creates a new WatchlistHandler.
func NewWatchlistHandler(watchlistService service.WatchlistService, logger *logger.Logger) *WatchlistHandler {
	return &WatchlistHandler{watchlistService: watchlistService, logger: logger}
}

// RegisterRoutes registers the watchlist routes to the Echo group.
func (h *WatchlistHandler) RegisterRoutes(g *echo.Group) {
	g.GET("", h.GetWatchlist)
	g.POST("", h.AddSymbol)
	g.DELETE("/:symbol", h.RemoveSymbol)
}

// GetWatchlist godoc
// @Summary Get a watchlist
// @Description List the symbols a user watches
// @Tags watchlist
// @Produce  json
// @Param   user_id  query   int false   "User ID (default 1)"
// @Success 200 {array} dto.WatchlistItemResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /watchlist [get]
func (h *WatchlistHandler) GetWatchlist(c echo.Context) error {
	var req dto.ListWatchlistRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	items, err := h.watchlistService.List(c.Request().Context(), req.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to get watchlist"})
	}
	return c.JSON(http.StatusOK, items)
}

// AddSymbol godoc
// @Summary Add a symbol to a watchlist
// @Description Add a symbol to a user's watchlist. Adding an existing symbol succeeds.
// @Tags watchlist
// @Accept  json
// @Produce  json
// @Param   item  body    dto.AddWatchlistRequest   true    "Symbol to watch"
// @Success 201 {object} dto.WatchlistItemResponse
// @Failure 400 {object} dto.ValidationErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /watchlist [post]
func (h *WatchlistHandler) AddSymbol(c echo.Context) error {
	var req dto.AddWatchlistRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		return c.JSON(http.StatusBadRequest, errs)
	}

	item, err := h.watchlistService.Add(c.Request().Context(), &req)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add symbol"})
	}
	return c.JSON(http.StatusCreated, item)
}

// RemoveSymbol godoc
// @Summary Remove a symbol from a watchlist
// @Description Remove a symbol from a user's watchlist
// @Tags watchlist
// @Produce  json
// @Param   symbol   path    string true    "Stock symbol"
// @Param   user_id  query   int    false   "User ID (default 1)"
// @Success 204 {object} nil
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /watchlist/{symbol} [delete]
func (h *WatchlistHandler) RemoveSymbol(c echo.Context) error {
	userID := dto.DefaultUserID
	if raw := c.QueryParam("user_id"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil || id == 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid user ID"})
		}
		userID = uint(id)
	}

	if err := h.watchlistService.Remove(c.Request().Context(), userID, c.Param("symbol")); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "Symbol not in watchlist"})
		}
		h.logger.Error("Failed to remove watchlist symbol", logger.ErrorField(err))
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to remove symbol"})
	}
	return c.NoContent(http.StatusNoContent)
}
