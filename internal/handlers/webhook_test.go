package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/gitpingio/gitping/internal/dispatch"
)

type recordingSource struct {
	mu    sync.Mutex
	calls []string
}

func (s *recordingSource) ListByRepo(ctx context.Context, owner, repo string) ([]dispatch.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, owner+"/"+repo)
	return nil, nil
}

type nopNotifier struct{}

func (nopNotifier) Send(ctx context.Context, identityKey, text string) error { return nil }

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newWebhookTest(secret string) (*WebhookHandler, *recordingSource) {
	source := &recordingSource{}
	dispatcher := dispatch.NewDispatcher(slog.Default(), source, nopNotifier{})
	return NewWebhookHandler(slog.Default(), dispatcher, secret), source
}

func doWebhook(h *WebhookHandler, body, event, signature string) *httptest.ResponseRecorder {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/webhook/github", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if event != "" {
		req.Header.Set("X-GitHub-Event", event)
	}
	if signature != "" {
		req.Header.Set("X-Hub-Signature-256", signature)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if err := h.Receive(c); err != nil {
		e.HTTPErrorHandler(err, c)
	}
	return rec
}

const pushBody = `{
	"repository": {"name": "linux", "owner": {"login": "torvalds"}},
	"commits": [
		{"added": ["a.go"], "modified": ["b.go"], "removed": []},
		{"added": [], "modified": ["a.go"], "removed": ["c.go"]}
	]
}`

func TestWebhookVerifiesSignature(t *testing.T) {
	h, source := newWebhookTest("hook-secret")

	rec := doWebhook(h, pushBody, "push", "sha256=deadbeef")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad signature status = %d, want 401", rec.Code)
	}
	if len(source.calls) != 0 {
		t.Fatal("dispatch ran despite bad signature")
	}

	rec = doWebhook(h, pushBody, "push", sign("hook-secret", []byte(pushBody)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("good signature status = %d, want 202", rec.Code)
	}
	if len(source.calls) != 1 || source.calls[0] != "torvalds/linux" {
		t.Fatalf("dispatch calls = %v", source.calls)
	}
}

func TestWebhookIgnoresNonPushEvents(t *testing.T) {
	h, source := newWebhookTest("")
	rec := doWebhook(h, `{"zen":"Design for failure."}`, "ping", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("ping status = %d, want 200", rec.Code)
	}
	if len(source.calls) != 0 {
		t.Fatal("dispatch ran for non-push event")
	}
}

func TestWebhookRejectsMissingRepository(t *testing.T) {
	h, _ := newWebhookTest("")
	rec := doWebhook(h, `{"commits":[]}`, "push", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestChangedPathsDeduplicatesAcrossCommits(t *testing.T) {
	var payload pushPayload
	payload.Commits = []struct {
		Added    []string `json:"added"`
		Modified []string `json:"modified"`
		Removed  []string `json:"removed"`
	}{
		{Added: []string{"a.go"}, Modified: []string{"b.go"}},
		{Modified: []string{"a.go"}, Removed: []string{"c.go", "b.go"}},
	}
	paths := changedPaths(payload)
	want := []string{"a.go", "b.go", "c.go"}
	if len(paths) != len(want) {
		t.Fatalf("paths = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("paths = %v, want %v", paths, want)
		}
	}
}
