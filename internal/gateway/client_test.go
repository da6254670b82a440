package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/songzhibin97/adminconsole/internal/tracing"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

type staticTokens struct {
	mu    sync.Mutex
	token string
}

func (s *staticTokens) Token(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token, nil
}

func (s *staticTokens) set(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

type recordedRequest struct {
	method string
	path   string
	query  string
	auth   string
	trace  string
	body   []byte
}

type fakeRecorder struct {
	mu       sync.Mutex
	requests []string
	expiries int
}

func (f *fakeRecorder) ObserveRequest(method, endpoint string, status int, _ time.Duration) {
	f.mu.Lock()
	f.requests = append(f.requests, endpoint)
	f.mu.Unlock()
}
func (f *fakeRecorder) IncSessionExpired() {
	f.mu.Lock()
	f.expiries++
	f.mu.Unlock()
}
func (f *fakeRecorder) ObserveTransition(string, string)       {}
func (f *fakeRecorder) ObserveMutation(string, string, string) {}

// newTestServer answers every request with status and body and records what
// it received.
func newTestServer(t *testing.T, status int, body string) (*httptest.Server, func() []recordedRequest) {
	t.Helper()
	var (
		mu   sync.Mutex
		seen []recordedRequest
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		seen = append(seen, recordedRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			auth:   r.Header.Get("Authorization"),
			trace:  r.Header.Get("traceparent"),
			body:   b,
		})
		mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, func() []recordedRequest {
		mu.Lock()
		defer mu.Unlock()
		return append([]recordedRequest(nil), seen...)
	}
}

func newTestClient(t *testing.T, baseURL string, tokens TokenSource, rec *fakeRecorder) *Client {
	t.Helper()
	opts := Options{BaseURL: baseURL, Prefix: "/api/v1", Timeout: 2 * time.Second, Tokens: tokens}
	if rec != nil {
		opts.Metrics = rec
	}
	c, err := New(opts)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNew_InvalidBaseURL(t *testing.T) {
	for _, base := range []string{"", "localhost:5000", "://bad"} {
		if _, err := New(Options{BaseURL: base}); err == nil {
			t.Errorf("New(%q) succeeded", base)
		}
	}
}

func TestClient_BearerTokenReadAtCallTime(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{}`)
	tokens := &staticTokens{}
	c := newTestClient(t, srv.URL, tokens, nil)
	ctx := context.Background()

	_, _ = c.Do(ctx, Request{Method: http.MethodGet, Path: "/users"})
	tokens.set("first")
	_, _ = c.Do(ctx, Request{Method: http.MethodGet, Path: "/users"})
	tokens.set("second")
	_, _ = c.Do(ctx, Request{Method: http.MethodGet, Path: "/users"})

	got := seen()
	if len(got) != 3 {
		t.Fatalf("server saw %d requests", len(got))
	}
	want := []string{"", "Bearer first", "Bearer second"}
	for i, w := range want {
		if got[i].auth != w {
			t.Errorf("request %d Authorization = %q, want %q", i, got[i].auth, w)
		}
		if got[i].path != "/api/v1/users" {
			t.Errorf("request %d path = %q", i, got[i].path)
		}
	}
}

func TestClient_TokenSourceError(t *testing.T) {
	srv, seen := newTestServer(t, http.StatusOK, `{}`)
	broken := TokenFunc(func(context.Context) (string, error) { return "", errors.New("store down") })
	c := newTestClient(t, srv.URL, broken, nil)

	if _, err := c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"}); err == nil {
		t.Fatal("expected error")
	}
	if len(seen()) != 0 {
		t.Error("request must not be sent when the token cannot be read")
	}
}

func TestClient_UnauthorizedEmitsExpiryOnce(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{"error":{"message":"Token expired"}}`)
	rec := &fakeRecorder{}
	c := newTestClient(t, srv.URL, &staticTokens{token: "stale"}, rec)

	var first, second int32
	c.OnSessionExpired(func(ExpiryEvent) { atomic.AddInt32(&first, 1) })
	c.OnSessionExpired(func(ExpiryEvent) { atomic.AddInt32(&second, 1) })

	_, err := c.Do(context.Background(), Request{Name: "missions.list", Method: http.MethodGet, Path: "/missions/templates"})

	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("error = %v, want *ResponseError", err)
	}
	if respErr.StatusCode != http.StatusUnauthorized || respErr.Message != "Token expired" {
		t.Errorf("ResponseError = %+v", respErr)
	}
	if first != 1 || second != 1 {
		t.Errorf("subscribers notified %d and %d times, want 1 each", first, second)
	}
	if rec.expiries != 1 {
		t.Errorf("expiry metric = %d", rec.expiries)
	}
	if !console.IsSessionExpired(Classify(err)) {
		t.Error("Classify should report session expiry")
	}
}

func TestClient_ExpiryEventCarriesTokenFingerprint(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{}`)
	tokens := &staticTokens{token: "first"}
	c := newTestClient(t, srv.URL, tokens, nil)

	var (
		mu     sync.Mutex
		events []ExpiryEvent
	)
	c.OnSessionExpired(func(e ExpiryEvent) {
		mu.Lock()
		events = append(events, e)
		mu.Unlock()
	})

	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"})
	tokens.set("second")
	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"})

	if len(events) != 2 {
		t.Fatalf("events = %d, want 2", len(events))
	}
	if events[0].TokenFingerprint != Fingerprint("first") || events[1].TokenFingerprint != Fingerprint("second") {
		t.Errorf("fingerprints = %q, %q", events[0].TokenFingerprint, events[1].TokenFingerprint)
	}
	if Fingerprint("first") == Fingerprint("second") || Fingerprint("") != "" {
		t.Error("Fingerprint must distinguish tokens and be empty without one")
	}
}

func TestClient_ConcurrentUnauthorizedRequests(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{}`)
	c := newTestClient(t, srv.URL, &staticTokens{token: "stale"}, nil)

	var events int32
	c.OnSessionExpired(func(ExpiryEvent) { atomic.AddInt32(&events, 1) })

	const n = 5
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"})
		}()
	}
	wg.Wait()

	if events != n {
		t.Errorf("events = %d, want one per request (%d)", events, n)
	}
}

func TestClient_AuthCallUnauthorizedDoesNotEmit(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
	c := newTestClient(t, srv.URL, nil, nil)

	var events int32
	c.OnSessionExpired(func(ExpiryEvent) { atomic.AddInt32(&events, 1) })

	_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/auth/login", AuthCall: true})
	if err == nil {
		t.Fatal("expected error")
	}
	if events != 0 {
		t.Errorf("auth call raised %d expiry events", events)
	}

	classified := Classify(err)
	if classified.Code != "INVALID_CREDENTIALS" || classified.Message != "Invalid credentials" {
		t.Errorf("Classify() = %+v", classified)
	}
	if console.IsSessionExpired(classified) {
		t.Error("credential failure must not be reported as session expiry")
	}
}

func TestClient_Unsubscribe(t *testing.T) {
	srv, _ := newTestServer(t, http.StatusUnauthorized, `{}`)
	c := newTestClient(t, srv.URL, nil, nil)

	var events int32
	unsubscribe := c.OnSessionExpired(func(ExpiryEvent) { atomic.AddInt32(&events, 1) })
	unsubscribe()
	unsubscribe()

	_, _ = c.Do(context.Background(), Request{Method: http.MethodGet, Path: "/users"})
	if events != 0 {
		t.Errorf("unsubscribed handler called %d times", events)
	}
}

func TestClient_ErrorsPassThrough(t *testing.T) {
	tests := []struct {
		status   int
		body     string
		wantCode string
		wantMsg  string
		wantType console.ErrorType
	}{
		{http.StatusBadRequest, `{"error":{"message":"Email already exists"},"message":"ignored"}`, "REQUEST_REJECTED", "Email already exists", console.ErrorTypeTransport},
		{http.StatusConflict, `{"message":"Duplicate name"}`, "CONFLICT", "Duplicate name", console.ErrorTypeTransport},
		{http.StatusForbidden, `{}`, "FORBIDDEN", "Forbidden", console.ErrorTypeAuthorization},
		{http.StatusNotFound, `not json`, "NOT_FOUND", "Not Found", console.ErrorTypeTransport},
		{http.StatusInternalServerError, `{"error":"boom"}`, "SERVER_ERROR", "boom", console.ErrorTypeTransport},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			srv, _ := newTestServer(t, tt.status, tt.body)
			c := newTestClient(t, srv.URL, nil, nil)

			var events int32
			c.OnSessionExpired(func(ExpiryEvent) { atomic.AddInt32(&events, 1) })

			_, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/users"})
			got := Classify(err)
			if got.Code != tt.wantCode || got.Message != tt.wantMsg || got.Type != tt.wantType {
				t.Errorf("Classify() = %+v", got)
			}
			if got.Type == console.ErrorTypeTransport && got.Status != tt.status {
				t.Errorf("Status = %d, want %d", got.Status, tt.status)
			}
			if events != 0 {
				t.Error("non-401 errors must not raise expiry events")
			}
		})
	}
}

func TestClient_NetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	rec := &fakeRecorder{}
	c := newTestClient(t, base, nil, rec)
	_, err := c.Do(context.Background(), Request{Name: "users.list", Method: http.MethodGet, Path: "/users"})
	if err == nil {
		t.Fatal("expected error")
	}
	got := Classify(err)
	if got.Type != console.ErrorTypeTransport || got.Code != "NETWORK" {
		t.Errorf("Classify() = %+v", got)
	}
	if len(rec.requests) != 1 || rec.requests[0] != "users.list" {
		t.Errorf("metrics = %v", rec.requests)
	}
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Do(ctx, Request{Method: http.MethodGet, Path: "/slow"})
	if got := Classify(err); got.Code != "TIMEOUT" {
		t.Errorf("Classify() = %+v", got)
	}
}

func TestClient_JSONBodyAndTraceHeader(t *testing.T) {
	if _, err := tracing.NewTracerProvider(nil, "test"); err != nil {
		t.Fatal(err)
	}
	srv, seen := newTestServer(t, http.StatusCreated, `{"success":true}`)
	c := newTestClient(t, srv.URL, nil, nil)

	provider := sdktrace.NewTracerProvider()
	defer provider.Shutdown(context.Background())
	ctx, span := provider.Tracer("test").Start(context.Background(), "cli")
	defer span.End()

	resp, err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/career-fields", Body: map[string]string{"name": "Design"}})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}

	got := seen()[0]
	var body map[string]string
	if err := json.Unmarshal(got.body, &body); err != nil || body["name"] != "Design" {
		t.Errorf("body = %s", got.body)
	}
	if got.trace == "" {
		t.Error("traceparent header not propagated")
	}
}

func TestClassify(t *testing.T) {
	if Classify(nil) != nil {
		t.Error("Classify(nil) != nil")
	}
	validation := console.NewValidationError("REQUIRED_FIELDS", "missing")
	if Classify(validation) != validation {
		t.Error("console errors must pass through unchanged")
	}
	if got := Classify(context.Canceled); got.Code != "CANCELED" {
		t.Errorf("Classify(canceled) = %+v", got)
	}
	if got := Classify(console.ErrInsufficientPrivilege); !console.IsAuthorizationError(got) {
		t.Errorf("Classify(insufficient privilege) = %+v", got)
	}
}
