package authflow

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gitpingio/gitping/internal/githubapi"
)

type pollStep struct {
	token string
	err   error
	delay time.Duration
}

type fakeProvider struct {
	mu         sync.Mutex
	grant      githubapi.DeviceGrant
	grantErr   error
	grantCalls int
	steps      []pollStep
	pollCalls  int
}

func (p *fakeProvider) RequestDeviceGrant(context.Context) (githubapi.DeviceGrant, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.grantCalls++
	if p.grantErr != nil {
		return githubapi.DeviceGrant{}, p.grantErr
	}
	return p.grant, nil
}

func (p *fakeProvider) PollToken(context.Context, string) (string, error) {
	p.mu.Lock()
	step := pollStep{err: githubapi.ErrAuthorizationPending}
	if p.pollCalls < len(p.steps) {
		step = p.steps[p.pollCalls]
	}
	p.pollCalls++
	p.mu.Unlock()
	if step.delay > 0 {
		time.Sleep(step.delay)
	}
	return step.token, step.err
}

func (p *fakeProvider) calls() (grants, polls int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.grantCalls, p.pollCalls
}

type fakeLinker struct {
	mu      sync.Mutex
	linked  bool
	linkErr error
	tokens  map[string]string
}

func (l *fakeLinker) Linked(context.Context, string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.linked, nil
}

func (l *fakeLinker) Link(_ context.Context, identityKey, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.linkErr != nil {
		return l.linkErr
	}
	if l.tokens == nil {
		l.tokens = map[string]string{}
	}
	l.tokens[identityKey] = token
	return nil
}

func (l *fakeLinker) token(identityKey string) string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.tokens[identityKey]
}

type sentMessage struct {
	identityKey string
	text        string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (n *fakeNotifier) Send(_ context.Context, identityKey, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentMessage{identityKey: identityKey, text: text})
	return nil
}

func (n *fakeNotifier) messages() []sentMessage {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]sentMessage(nil), n.sent...)
}

func testGrant(expiresIn, interval time.Duration) githubapi.DeviceGrant {
	return githubapi.DeviceGrant{
		DeviceCode:      "dc-1",
		UserCode:        "ABCD-1234",
		VerificationURI: "https://github.com/login/device",
		ExpiresIn:       expiresIn,
		Interval:        interval,
	}
}

// newTestCoordinator wires fakes and records every sleep the poll loop takes.
func newTestCoordinator(provider *fakeProvider, linker *fakeLinker, notifier *fakeNotifier) (*Coordinator, func() []time.Duration) {
	c := NewCoordinator(nil, provider, linker, notifier)
	var mu sync.Mutex
	var sleeps []time.Duration
	inner := c.sleep
	c.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		sleeps = append(sleeps, d)
		mu.Unlock()
		return inner(ctx, d)
	}
	return c, func() []time.Duration {
		mu.Lock()
		defer mu.Unlock()
		return append([]time.Duration(nil), sleeps...)
	}
}

func waitDone(t *testing.T, attempt *Attempt) {
	t.Helper()
	select {
	case <-attempt.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("attempt did not finish in time")
	}
}

func TestBeginAlreadyLinkedShortCircuits(t *testing.T) {
	provider := &fakeProvider{grant: testGrant(time.Second, time.Millisecond)}
	c, _ := newTestCoordinator(provider, &fakeLinker{linked: true}, &fakeNotifier{})

	result, attempt, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if !result.AlreadyLinked {
		t.Error("expected AlreadyLinked")
	}
	if attempt != nil {
		t.Error("expected no attempt handle")
	}
	if grants, _ := provider.calls(); grants != 0 {
		t.Errorf("provider grant calls = %d, want 0", grants)
	}
}

func TestBeginRejectsSecondPendingAttempt(t *testing.T) {
	provider := &fakeProvider{grant: testGrant(150*time.Millisecond, 10*time.Millisecond)}
	c, _ := newTestCoordinator(provider, &fakeLinker{}, &fakeNotifier{})

	_, first, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("first begin: %v", err)
	}
	if _, _, err := c.Begin(context.Background(), "u1"); !errors.Is(err, ErrAttemptPending) {
		t.Fatalf("second begin err = %v, want ErrAttemptPending", err)
	}

	waitDone(t, first)
	if c.Pending("u1") {
		t.Error("attempt still registered after terminal state")
	}
	// A new attempt is allowed once the first resolved.
	if _, _, err := c.Begin(context.Background(), "u1"); err != nil {
		t.Fatalf("third begin: %v", err)
	}
}

func TestBeginInvalidGrantAborts(t *testing.T) {
	provider := &fakeProvider{grantErr: githubapi.ErrInvalidGrant}
	c, _ := newTestCoordinator(provider, &fakeLinker{}, &fakeNotifier{})

	_, _, err := c.Begin(context.Background(), "u1")
	if !errors.Is(err, githubapi.ErrInvalidGrant) {
		t.Fatalf("err = %v, want ErrInvalidGrant", err)
	}
	if c.Pending("u1") {
		t.Error("failed begin must not leave a pending attempt")
	}
	if _, polls := provider.calls(); polls != 0 {
		t.Errorf("poll calls = %d, want 0", polls)
	}
}

func TestSuccessAfterPendingAndSlowDown(t *testing.T) {
	provider := &fakeProvider{
		grant: testGrant(2*time.Second, 5*time.Millisecond),
		steps: []pollStep{
			{err: githubapi.ErrAuthorizationPending},
			{err: githubapi.ErrAuthorizationPending},
			{err: githubapi.ErrAuthorizationPending},
			{err: &githubapi.SlowDownError{Interval: 20 * time.Millisecond}},
			{token: "gho_e2e"},
		},
	}
	linker := &fakeLinker{}
	notifier := &fakeNotifier{}
	c, sleeps := newTestCoordinator(provider, linker, notifier)

	result, attempt, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if result.UserCode != "ABCD-1234" || result.VerificationURI == "" {
		t.Errorf("unexpected verification material: %+v", result)
	}

	waitDone(t, attempt)
	if attempt.State() != StateSucceeded {
		t.Fatalf("state = %s, want %s", attempt.State(), StateSucceeded)
	}
	if got := linker.token("u1"); got != "gho_e2e" {
		t.Errorf("stored token = %q, want gho_e2e", got)
	}

	messages := notifier.messages()
	if len(messages) != 1 {
		t.Fatalf("notifications = %d, want exactly 1", len(messages))
	}
	if messages[0].identityKey != "u1" || messages[0].text != msgLinked {
		t.Errorf("unexpected notification: %+v", messages[0])
	}

	recorded := sleeps()
	for i := 1; i < len(recorded); i++ {
		if recorded[i] < recorded[i-1] {
			t.Fatalf("sleep %d (%s) shorter than previous (%s)", i, recorded[i], recorded[i-1])
		}
	}
	if len(recorded) == 0 || recorded[len(recorded)-1] != 20*time.Millisecond {
		t.Errorf("final sleep = %v, want 20ms", recorded)
	}
}

func TestSlowDownNeverShortensInterval(t *testing.T) {
	provider := &fakeProvider{
		grant: testGrant(2*time.Second, 5*time.Millisecond),
		steps: []pollStep{
			{err: &githubapi.SlowDownError{Interval: 30 * time.Millisecond}},
			{err: &githubapi.SlowDownError{Interval: 10 * time.Millisecond}},
			{token: "gho_t"},
		},
	}
	c, sleeps := newTestCoordinator(provider, &fakeLinker{}, &fakeNotifier{})

	_, attempt, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitDone(t, attempt)

	recorded := sleeps()
	if len(recorded) != 2 {
		t.Fatalf("sleeps = %v, want 2 entries", recorded)
	}
	if recorded[0] != 30*time.Millisecond || recorded[1] != 30*time.Millisecond {
		t.Errorf("sleeps = %v, want [30ms 30ms]", recorded)
	}
}

func TestDeadlineBeatsLateSuccess(t *testing.T) {
	// The only poll takes longer than the grant expiry, then yields a token.
	provider := &fakeProvider{
		grant: testGrant(30*time.Millisecond, 5*time.Millisecond),
		steps: []pollStep{
			{token: "gho_late", delay: 80 * time.Millisecond},
		},
	}
	linker := &fakeLinker{}
	notifier := &fakeNotifier{}
	c, _ := newTestCoordinator(provider, linker, notifier)

	_, attempt, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitDone(t, attempt)

	if attempt.State() != StateTimedOut {
		t.Fatalf("state = %s, want %s", attempt.State(), StateTimedOut)
	}
	if linker.token("u1") != "" {
		t.Error("late credential must not be stored after the deadline")
	}
	messages := notifier.messages()
	if len(messages) != 1 || messages[0].text != msgTimedOut {
		t.Errorf("unexpected notifications: %+v", messages)
	}
}

func TestDeadlineDuringSleep(t *testing.T) {
	provider := &fakeProvider{
		grant: testGrant(40*time.Millisecond, 30*time.Millisecond),
		// Every poll reports pending; the second sleep crosses the deadline.
	}
	notifier := &fakeNotifier{}
	c, _ := newTestCoordinator(provider, &fakeLinker{}, notifier)

	_, attempt, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitDone(t, attempt)

	if attempt.State() != StateTimedOut {
		t.Fatalf("state = %s, want %s", attempt.State(), StateTimedOut)
	}
	messages := notifier.messages()
	if len(messages) != 1 || messages[0].text != msgTimedOut {
		t.Errorf("unexpected notifications: %+v", messages)
	}
}

func TestProviderTerminalErrorFails(t *testing.T) {
	provider := &fakeProvider{
		grant: testGrant(time.Second, time.Millisecond),
		steps: []pollStep{
			{err: errors.New("github: token poll error: expired_token")},
		},
	}
	linker := &fakeLinker{}
	notifier := &fakeNotifier{}
	c, _ := newTestCoordinator(provider, linker, notifier)

	_, attempt, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitDone(t, attempt)

	if attempt.State() != StateFailed {
		t.Fatalf("state = %s, want %s", attempt.State(), StateFailed)
	}
	if linker.token("u1") != "" {
		t.Error("failed attempt must not store a token")
	}
	messages := notifier.messages()
	if len(messages) != 1 || messages[0].text != msgFailed {
		t.Errorf("unexpected notifications: %+v", messages)
	}
	if strings.Contains(messages[0].text, "expired_token") {
		t.Error("provider error text must not reach the user")
	}
}

func TestStoreWriteFailureWithholdsSuccessMessage(t *testing.T) {
	provider := &fakeProvider{
		grant: testGrant(time.Second, time.Millisecond),
		steps: []pollStep{
			{token: "gho_t"},
		},
	}
	linker := &fakeLinker{linkErr: errors.New("connection reset")}
	notifier := &fakeNotifier{}
	c, _ := newTestCoordinator(provider, linker, notifier)

	_, attempt, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	waitDone(t, attempt)

	if attempt.State() != StateFailed {
		t.Fatalf("state = %s, want %s", attempt.State(), StateFailed)
	}
	messages := notifier.messages()
	if len(messages) != 1 {
		t.Fatalf("notifications = %d, want 1", len(messages))
	}
	if messages[0].text == msgLinked {
		t.Error("success message sent despite failed store write")
	}
}

func TestIndependentIdentitiesRunConcurrently(t *testing.T) {
	provider := &fakeProvider{
		grant: testGrant(time.Second, time.Millisecond),
		steps: []pollStep{
			{token: "gho_a"},
			{token: "gho_b"},
		},
	}
	linker := &fakeLinker{}
	c, _ := newTestCoordinator(provider, linker, &fakeNotifier{})

	_, a, err := c.Begin(context.Background(), "u1")
	if err != nil {
		t.Fatalf("begin u1: %v", err)
	}
	_, b, err := c.Begin(context.Background(), "u2")
	if err != nil {
		t.Fatalf("begin u2: %v", err)
	}
	waitDone(t, a)
	waitDone(t, b)

	if linker.token("u1") == "" || linker.token("u2") == "" {
		t.Errorf("both identities should be linked: %+v", linker.tokens)
	}
}
