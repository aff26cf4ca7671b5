package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gitpingio/gitping/internal/authflow"
	"github.com/gitpingio/gitping/internal/identities"
)

// IdentitiesHandler serves identity management endpoints.
type IdentitiesHandler struct {
	service *identities.Service
	flow    *authflow.Coordinator
	logger  *slog.Logger
}

// MutedRequest is the body for PUT /identities/:key/muted.
type MutedRequest struct {
	Muted bool `json:"muted"`
}

// BeginLoginResponse is the body returned when a device-flow login starts.
type BeginLoginResponse struct {
	AlreadyLinked   bool   `json:"already_linked"`
	VerificationURI string `json:"verification_uri,omitempty"`
	UserCode        string `json:"user_code,omitempty"`
}

// NewIdentitiesHandler creates an identities handler.
func NewIdentitiesHandler(log *slog.Logger, service *identities.Service, flow *authflow.Coordinator) *IdentitiesHandler {
	return &IdentitiesHandler{
		service: service,
		flow:    flow,
		logger:  log.With(slog.String("handler", "identities")),
	}
}

// Register mounts the identity routes on the Echo instance.
func (h *IdentitiesHandler) Register(e *echo.Echo) {
	g := e.Group("/identities")
	g.GET("/:key", h.Get)
	g.DELETE("/:key", h.Delete)
	g.POST("/:key/login", h.BeginLogin)
	g.POST("/:key/logout", h.Logout)
	g.PUT("/:key/muted", h.SetMuted)
}

func identityKeyParam(c echo.Context) (string, error) {
	key := strings.TrimSpace(c.Param("key"))
	if key == "" {
		return "", echo.NewHTTPError(http.StatusBadRequest, "identity key is required")
	}
	return key, nil
}

// Get godoc
// @Summary Get identity
// @Tags identities
// @Success 200 {object} identities.Identity
// @Failure 404 {object} ErrorResponse
// @Router /identities/{key} [get].
func (h *IdentitiesHandler) Get(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	identity, err := h.service.GetByKey(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, identities.ErrIdentityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, identity)
}

// Delete godoc
// @Summary Delete identity and its subscriptions
// @Tags identities
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /identities/{key} [delete].
func (h *IdentitiesHandler) Delete(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	if err := h.service.Delete(c.Request().Context(), key); err != nil {
		if errors.Is(err, identities.ErrIdentityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// BeginLogin godoc
// @Summary Start a GitHub device-flow login for an identity
// @Tags identities
// @Success 202 {object} BeginLoginResponse
// @Failure 409 {object} ErrorResponse
// @Router /identities/{key}/login [post].
func (h *IdentitiesHandler) BeginLogin(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	if _, err := h.service.Ensure(c.Request().Context(), key); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	res, _, err := h.flow.Begin(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, authflow.ErrAttemptPending) {
			return echo.NewHTTPError(http.StatusConflict, "a login is already in progress")
		}
		h.logger.Error("begin login failed", slog.String("identity", key), slog.Any("error", err))
		return echo.NewHTTPError(http.StatusBadGateway, "could not start GitHub login")
	}
	if res.AlreadyLinked {
		return c.JSON(http.StatusOK, BeginLoginResponse{AlreadyLinked: true})
	}
	return c.JSON(http.StatusAccepted, BeginLoginResponse{
		VerificationURI: res.VerificationURI,
		UserCode:        res.UserCode,
	})
}

// Logout godoc
// @Summary Unlink an identity's GitHub account
// @Tags identities
// @Success 200 {object} identities.Identity
// @Failure 404 {object} ErrorResponse
// @Router /identities/{key}/logout [post].
func (h *IdentitiesHandler) Logout(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	identity, err := h.service.Unlink(c.Request().Context(), key)
	if err != nil {
		if errors.Is(err, identities.ErrIdentityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, identity)
}

// SetMuted godoc
// @Summary Mute or unmute notifications for an identity
// @Tags identities
// @Param payload body MutedRequest true "Muted flag"
// @Success 200 {object} identities.Identity
// @Failure 404 {object} ErrorResponse
// @Router /identities/{key}/muted [put].
func (h *IdentitiesHandler) SetMuted(c echo.Context) error {
	key, err := identityKeyParam(c)
	if err != nil {
		return err
	}
	var req MutedRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	identity, err := h.service.SetMuted(c.Request().Context(), key, req.Muted)
	if err != nil {
		if errors.Is(err, identities.ErrIdentityNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "identity not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, identity)
}
