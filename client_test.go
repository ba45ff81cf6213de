package cleverbot

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeService simulates the remote endpoints: the cookie bootstrap GET and
// the carriage-return framed exchange POST
type fakeService struct {
	mu sync.Mutex

	bootstrapCalls atomic.Int64
	exchangeCalls  atomic.Int64

	bootstrapStatus int
	bootstrapCookie bool
	exchangeStatus  int
	exchangeBody    string

	lastQuery  string
	lastCookie string
	lastBody   string

	srv *httptest.Server
}

func newFakeService(t *testing.T) *fakeService {
	t.Helper()
	f := &fakeService{
		bootstrapStatus: http.StatusOK,
		bootstrapCookie: true,
		exchangeStatus:  http.StatusOK,
		exchangeBody:    "Nice to meet you\rMXiJd8A3JK09\rTOKEN99",
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeService) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	bootstrapStatus := f.bootstrapStatus
	bootstrapCookie := f.bootstrapCookie
	exchangeStatus := f.exchangeStatus
	exchangeBody := f.exchangeBody
	f.mu.Unlock()

	switch {
	case strings.HasPrefix(r.URL.Path, "/extras/"):
		f.bootstrapCalls.Add(1)
		if bootstrapCookie {
			w.Header().Add("Set-Cookie", "XVIS=abc123; path=/")
			w.Header().Add("Set-Cookie", "XTRA=def456; path=/")
		}
		w.WriteHeader(bootstrapStatus)
		io.WriteString(w, "// social extras")

	case strings.HasPrefix(r.URL.Path, "/webservicemin"):
		f.exchangeCalls.Add(1)
		body, _ := io.ReadAll(r.Body)
		f.mu.Lock()
		f.lastQuery = r.URL.RawQuery
		f.lastCookie = r.Header.Get("Cookie")
		f.lastBody = string(body)
		f.mu.Unlock()
		w.WriteHeader(exchangeStatus)
		if exchangeStatus == http.StatusOK {
			io.WriteString(w, exchangeBody)
		}

	default:
		http.NotFound(w, r)
	}
}

func (f *fakeService) setExchange(status int, body string) {
	f.mu.Lock()
	f.exchangeStatus = status
	f.exchangeBody = body
	f.mu.Unlock()
}

// newTestClient returns a client aimed at the fake service with fast,
// deterministic retry behavior
func newTestClient(t *testing.T, f *fakeService, opts ...Option) *Client {
	t.Helper()
	base := []Option{
		WithBaseURL(f.srv.URL),
		WithRetry(3, time.Millisecond),
	}
	c := New(append(base, opts...)...)
	t.Cleanup(c.Close)
	c.randInt = func(int) int { return 0 }
	c.sleep = func(context.Context, time.Duration) error { return nil }
	return c
}

func TestInteractSuccess(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)

	reply, err := c.Interact(context.Background(), "hello", nil, "")
	if err != nil {
		t.Fatalf("Interact: %v", err)
	}
	if reply != "Nice to meet you" {
		t.Errorf("reply = %q", reply)
	}

	if c.sessionID != "MXiJd8A3JK09" {
		t.Errorf("sessionID = %q", c.sessionID)
	}
	if c.authToken != "MXi,TOKEN99" {
		t.Errorf("authToken = %q", c.authToken)
	}
	if c.lastReply != "Nice to meet you" {
		t.Errorf("lastReply = %q", c.lastReply)
	}
	if c.exchangeCount != 1 {
		t.Errorf("exchangeCount = %d, want 1", c.exchangeCount)
	}
	// One successful bootstrap plus one successful exchange.
	if got := c.successCount.Load(); got != 2 {
		t.Errorf("successCount = %d, want 2", got)
	}
	if got := c.failureCount.Load(); got != 0 {
		t.Errorf("failureCount = %d, want 0", got)
	}

	f.mu.Lock()
	query, cookie := f.lastQuery, f.lastCookie
	f.mu.Unlock()

	// First exchange hits the bare endpoint.
	if strings.Contains(query, "&out=") {
		t.Errorf("first exchange should not carry continuation params: %s", query)
	}
	if !strings.Contains(cookie, "XVIS=abc123") {
		t.Errorf("exchange should send the primary jar cookie: %s", cookie)
	}
	if !strings.Contains(cookie, "note=1") {
		t.Errorf("exchange cookie missing note marker: %s", cookie)
	}
}

func TestInteractContinuation(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)

	ctx := context.Background()
	if _, err := c.Interact(ctx, "hello", nil, ""); err != nil {
		t.Fatalf("first Interact: %v", err)
	}
	f.setExchange(http.StatusOK, "Still here\rMXiJd8A3JK09\rTOKEN99")
	if _, err := c.Interact(ctx, "how are you", []string{"hello", "Nice to meet you"}, ""); err != nil {
		t.Fatalf("second Interact: %v", err)
	}

	f.mu.Lock()
	query, cookie, body := f.lastQuery, f.lastCookie, f.lastBody
	f.mu.Unlock()

	for _, want := range []string{
		"out=Nice+to+meet+you",
		"in=how+are+you",
		"ns=2",
		"xai=MXi%2CTOKEN99",
		"sub=Say",
	} {
		if !strings.Contains(query, want) {
			t.Errorf("continuation query missing %q: %s", want, query)
		}
	}

	for _, want := range []string{
		"XVIS=abc123",
		"XAI=MXi",
		"CBSID=MXiJd8A3JK09",
		"note=1",
		"CBALT=1~Nice+to+meet+you",
	} {
		if !strings.Contains(cookie, want) {
			t.Errorf("continuation cookie missing %q: %s", want, cookie)
		}
	}

	if !strings.Contains(body, "vText0=Nice+to+meet+you&") {
		t.Errorf("history not reversed into payload: %s", body)
	}
	// Cookie jar is fresh, so only the first interact bootstrapped.
	if got := f.bootstrapCalls.Load(); got != 1 {
		t.Errorf("bootstrapCalls = %d, want 1", got)
	}
}

func TestBanShortCircuits(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f, WithRetry(5, time.Millisecond))
	f.setExchange(http.StatusForbidden, "")

	_, err := c.Interact(context.Background(), "hello", nil, "")
	if !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
	if got := f.exchangeCalls.Load(); got != 1 {
		t.Errorf("exchangeCalls = %d, want 1 (bans are never retried)", got)
	}
	if !strings.Contains(err.Error(), "attempt 1") {
		t.Errorf("ban error should name the attempt: %v", err)
	}
}

func TestBanOnBootstrap(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)
	f.mu.Lock()
	f.bootstrapStatus = http.StatusForbidden
	f.mu.Unlock()

	_, err := c.Interact(context.Background(), "hello", nil, "")
	if !errors.Is(err, ErrBanned) {
		t.Fatalf("expected ErrBanned, got %v", err)
	}
	if got := f.bootstrapCalls.Load(); got != 1 {
		t.Errorf("bootstrapCalls = %d, want 1", got)
	}
}

func TestExhaustedRetries(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)
	f.setExchange(http.StatusInternalServerError, "")

	_, err := c.Interact(context.Background(), "hello", nil, "")
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}

	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected *ExhaustedError, got %T", err)
	}
	if exhausted.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", exhausted.Attempts)
	}
	var remote *RemoteCallError
	if !errors.As(err, &remote) {
		t.Errorf("last error should be *RemoteCallError, got %v", exhausted.Last)
	}
	if got := f.exchangeCalls.Load(); got != 3 {
		t.Errorf("exchangeCalls = %d, want 3", got)
	}
	if got := c.failureCount.Load(); got != 3 {
		t.Errorf("failureCount = %d, want 3", got)
	}
}

func TestMalformedResponseRetried(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)
	f.setExchange(http.StatusOK, "only-reply\rtwo-segments")

	_, err := c.Interact(context.Background(), "hello", nil, "")
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}
	var malformed *MalformedResponseError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *MalformedResponseError in chain, got %v", err)
	}
	if malformed.Segments != 2 {
		t.Errorf("Segments = %d, want 2", malformed.Segments)
	}

	// A malformed body must not populate session state.
	if c.sessionID != "" || c.authToken != "" || c.lastReply != "" {
		t.Errorf("malformed response populated session state: %q %q %q",
			c.sessionID, c.authToken, c.lastReply)
	}
	if got := f.exchangeCalls.Load(); got != 3 {
		t.Errorf("exchangeCalls = %d, want 3", got)
	}
}

func TestEmptyBodyIsRemoteCallFailure(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f, WithRetry(1, time.Millisecond))
	f.setExchange(http.StatusOK, "")

	_, err := c.Interact(context.Background(), "hello", nil, "")
	var remote *RemoteCallError
	if !errors.As(err, &remote) {
		t.Fatalf("expected *RemoteCallError in chain, got %v", err)
	}
}

func TestCookieValidityWindow(t *testing.T) {
	f := newFakeService(t)

	t.Run("fresh jar is reused", func(t *testing.T) {
		c := newTestClient(t, f)
		before := f.bootstrapCalls.Load()

		c.cookies = []string{"XVIS=cached"}
		c.cookiesAt = time.Now().Add(-(c.cfg.CookieExpiration - time.Second))

		if err := c.ensureCookies(context.Background()); err != nil {
			t.Fatalf("ensureCookies: %v", err)
		}
		if got := f.bootstrapCalls.Load(); got != before {
			t.Errorf("fresh jar triggered a refresh")
		}
	})

	t.Run("expired jar is refreshed", func(t *testing.T) {
		c := newTestClient(t, f)
		before := f.bootstrapCalls.Load()

		c.cookies = []string{"XVIS=stale"}
		c.cookiesAt = time.Now().Add(-(c.cfg.CookieExpiration + time.Second))

		if err := c.ensureCookies(context.Background()); err != nil {
			t.Fatalf("ensureCookies: %v", err)
		}
		if got := f.bootstrapCalls.Load(); got != before+1 {
			t.Errorf("expired jar should refresh exactly once, got %d calls", got-before)
		}
		if c.cookies[0] != "XVIS=abc123" {
			t.Errorf("jar not replaced: %v", c.cookies)
		}
	})
}

func TestResetClearsSession(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)

	if _, err := c.Interact(context.Background(), "hello", nil, ""); err != nil {
		t.Fatalf("Interact: %v", err)
	}
	successBefore := c.successCount.Load()
	failureBefore := c.failureCount.Load()

	c.Reset()

	if c.sessionID != "" || c.authToken != "" || c.lastReply != "" {
		t.Error("Reset left session identifiers behind")
	}
	if c.exchangeCount != 0 {
		t.Errorf("exchangeCount = %d after Reset", c.exchangeCount)
	}
	if len(c.cookies) != 0 || !c.cookiesAt.IsZero() {
		t.Error("Reset left cookie jar behind")
	}
	if c.successCount.Load() != successBefore || c.failureCount.Load() != failureBefore {
		t.Error("Reset must not touch the request counters")
	}
}

func TestBackoffGrowth(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f, WithRetry(4, time.Millisecond))
	f.setExchange(http.StatusInternalServerError, "")

	var waits []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	_, err := c.Interact(context.Background(), "hello", nil, "")
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("expected ErrExhaustedRetries, got %v", err)
	}

	if len(waits) != 3 {
		t.Fatalf("expected 3 backoff waits, got %d", len(waits))
	}
	// With the random source pinned to zero each wait is
	// base + 1s + (attempt-1)*1s, strictly growing.
	base := c.cfg.RetryBaseCooldown
	for i, wait := range waits {
		want := base + time.Second + time.Duration(i)*time.Second
		if wait != want {
			t.Errorf("wait %d = %v, want %v", i+1, wait, want)
		}
	}
	for i := 1; i < len(waits); i++ {
		if waits[i] < waits[i-1] {
			t.Errorf("backoff shrank: %v then %v", waits[i-1], waits[i])
		}
	}
}

func TestPerCallLanguageValidated(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)

	_, err := c.Interact(context.Background(), "hello", nil, "xx-not-real")
	var cerr *ConfigError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *ConfigError, got %v", err)
	}
	if got := f.exchangeCalls.Load(); got != 0 {
		t.Errorf("invalid language should be rejected before any network call, got %d calls", got)
	}
}

func TestEmptyMessageRejected(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)

	if _, err := c.Interact(context.Background(), "", nil, ""); err == nil {
		t.Fatal("empty message should be rejected")
	}
}

func TestSnapshot(t *testing.T) {
	f := newFakeService(t)
	c := newTestClient(t, f)

	if _, err := c.Interact(context.Background(), "hello", nil, ""); err != nil {
		t.Fatalf("Interact: %v", err)
	}

	snap := c.Snapshot()
	if snap.ID != c.ID() {
		t.Errorf("snapshot ID = %q, want %q", snap.ID, c.ID())
	}
	if snap.Version != Version {
		t.Errorf("snapshot Version = %q", snap.Version)
	}
	if snap.Session.SessionID != "MXiJd8A3JK09" {
		t.Errorf("snapshot SessionID = %q", snap.Session.SessionID)
	}
	if snap.Session.ExchangeCount != 1 {
		t.Errorf("snapshot ExchangeCount = %d", snap.Session.ExchangeCount)
	}
	if snap.SuccessCount != 2 {
		t.Errorf("snapshot SuccessCount = %d", snap.SuccessCount)
	}
	if snap.Config.MaxRetryAttempts != 3 {
		t.Errorf("snapshot MaxRetryAttempts = %d", snap.Config.MaxRetryAttempts)
	}
}
