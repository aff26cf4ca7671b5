package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gitpingio/gitping/internal/subscriptions"
)

// SubscriptionsHandler serves per-identity subscription endpoints.
type SubscriptionsHandler struct {
	service *subscriptions.Service
	logger  *slog.Logger
}

// NewSubscriptionsHandler creates a subscriptions handler.
func NewSubscriptionsHandler(log *slog.Logger, service *subscriptions.Service) *SubscriptionsHandler {
	return &SubscriptionsHandler{
		service: service,
		logger:  log.With(slog.String("handler", "subscriptions")),
	}
}

// Register mounts the subscription routes on the Echo instance.
func (h *SubscriptionsHandler) Register(e *echo.Echo) {
	g := e.Group("/identities/:key/subscriptions")
	g.POST("", h.Create)
	g.GET("", h.List)
	g.DELETE("/:seq", h.Delete)
}

// Create godoc
// @Summary Create a subscription
// @Tags subscriptions
// @Param payload body subscriptions.CreateRequest true "Subscription"
// @Success 201 {object} subscriptions.Subscription
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /identities/{key}/subscriptions [post].
func (h *SubscriptionsHandler) Create(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	var req subscriptions.CreateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	req.RepoOwner = strings.TrimSpace(req.RepoOwner)
	req.RepoName = strings.TrimSpace(req.RepoName)
	req.Pattern = strings.TrimSpace(req.Pattern)
	if req.RepoOwner == "" || req.RepoName == "" || req.Pattern == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "repo_owner, repo_name and pattern are required")
	}
	sub, err := h.service.Create(c.Request().Context(), key, req)
	if err != nil {
		if errors.Is(err, subscriptions.ErrIdentityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, sub)
}

// List godoc
// @Summary List an identity's subscriptions
// @Tags subscriptions
// @Success 200 {array} subscriptions.Subscription
// @Failure 404 {object} ErrorResponse
// @Router /identities/{key}/subscriptions [get].
func (h *SubscriptionsHandler) List(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	subs, err := h.service.List(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, subscriptions.ErrIdentityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, subs)
}

// Delete godoc
// @Summary Delete a subscription by its per-identity number
// @Tags subscriptions
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /identities/{key}/subscriptions/{seq} [delete].
func (h *SubscriptionsHandler) Delete(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	seq, err := strconv.Atoi(c.Param("seq"))
	if err != nil || seq < 1 {
		return echo.NewHTTPError(http.StatusBadRequest, "seq must be a positive integer")
	}
	if err := h.service.Delete(c.Request().Context(), key, seq); err != nil {
		if errors.Is(err, subscriptions.ErrSubscriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "subscription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
