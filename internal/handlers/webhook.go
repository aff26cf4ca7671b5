package handlers

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/gitpingio/gitping/internal/dispatch"
)

// WebhookHandler receives GitHub push events and feeds them to the dispatcher.
type WebhookHandler struct {
	dispatcher *dispatch.Dispatcher
	secret     string
	logger     *slog.Logger
}

// pushPayload is the subset of the GitHub push event we consume.
type pushPayload struct {
	Repository struct {
		Name  string `json:"name"`
		Owner struct {
			Login string `json:"login"`
			Name  string `json:"name"`
		} `json:"owner"`
	} `json:"repository"`
	Commits []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	} `json:"commits"`
}

// NewWebhookHandler creates a webhook handler. secret is the shared HMAC
// secret configured on the GitHub hook; when empty, signatures are not checked.
func NewWebhookHandler(log *slog.Logger, dispatcher *dispatch.Dispatcher, secret string) *WebhookHandler {
	return &WebhookHandler{
		dispatcher: dispatcher,
		secret:     secret,
		logger:     log.With(slog.String("handler", "webhook")),
	}
}

// Register mounts POST /webhook/github on the Echo instance.
func (h *WebhookHandler) Register(e *echo.Echo) {
	e.POST("/webhook/github", h.Receive)
}

// Receive godoc
// @Summary Receive a GitHub webhook delivery
// @Description Verify the HMAC signature and dispatch push events
// @Tags webhook
// @Success 202 {object} map[string]string
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /webhook/github [post].
func (h *WebhookHandler) Receive(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "read body failed")
	}
	if !h.verifySignature(body, c.Request().Header.Get("X-Hub-Signature-256")) {
		h.logger.Warn("signature mismatch",
			slog.String("delivery", c.Request().Header.Get("X-GitHub-Delivery")))
		return echo.NewHTTPError(http.StatusUnauthorized, "invalid signature")
	}

	event := c.Request().Header.Get("X-GitHub-Event")
	if event != "push" {
		// GitHub sends ping on hook creation; acknowledge anything non-push.
		return c.JSON(http.StatusOK, map[string]string{"status": "ignored", "event": event})
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	owner := payload.Repository.Owner.Login
	if owner == "" {
		owner = payload.Repository.Owner.Name
	}
	repo := payload.Repository.Name
	if strings.TrimSpace(owner) == "" || strings.TrimSpace(repo) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "repository owner and name are required")
	}

	paths := changedPaths(payload)
	if err := h.dispatcher.HandlePush(c.Request().Context(), owner, repo, paths); err != nil {
		h.logger.Error("dispatch failed",
			slog.String("repo", owner+"/"+repo),
			slog.Any("error", err))
		return echo.NewHTTPError(http.StatusInternalServerError, "dispatch failed")
	}
	return c.JSON(http.StatusAccepted, map[string]string{"status": "dispatched"})
}

func (h *WebhookHandler) verifySignature(body []byte, header string) bool {
	if h.secret == "" {
		return true
	}
	sig, ok := strings.CutPrefix(header, "sha256=")
	if !ok {
		return false
	}
	mac := hmac.New(sha256.New, []byte(h.secret))
	mac.Write(body)
	want := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(sig), []byte(want))
}

// changedPaths returns the deduplicated union of added, modified and removed
// paths across all commits, preserving first-seen order.
func changedPaths(payload pushPayload) []string {
	seen := make(map[string]struct{})
	var paths []string
	add := func(list []string) {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			paths = append(paths, p)
		}
	}
	for _, commit := range payload.Commits {
		add(commit.Added)
		add(commit.Modified)
		add(commit.Removed)
	}
	return paths
}
