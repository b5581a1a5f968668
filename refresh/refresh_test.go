package refresh

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/reqkit/credential"
	"github.com/kbukum/reqkit/httpclient"
	"github.com/kbukum/reqkit/logger"
	"github.com/kbukum/reqkit/observability"
)

// api accepts exactly one access token and counts what it sees.
type api struct {
	valid atomic.Value

	mu   sync.Mutex
	seen []string
	hits atomic.Int32
}

func (a *api) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.hits.Add(1)
	auth := r.Header.Get("Authorization")
	a.mu.Lock()
	a.seen = append(a.seen, auth)
	a.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if auth != "Bearer "+a.valid.Load().(string) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"token expired"}`))
		return
	}
	_, _ = fmt.Fprintf(w, `{"code":0,"data":{"path":%q}}`, r.URL.Path)
}

// pausingStore lets a test stop one Load after it has read the credential,
// holding that stale snapshot while other goroutines move on.
type pausingStore struct {
	*credential.MemoryStore

	mu    sync.Mutex
	skip  int
	pause func()
}

// pauseLoad arms pause for the Load that follows the next skip loads.
func (s *pausingStore) pauseLoad(skip int, pause func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skip, s.pause = skip, pause
}

func (s *pausingStore) Load(ctx context.Context) (credential.Credential, error) {
	cred, err := s.MemoryStore.Load(ctx)

	s.mu.Lock()
	var pause func()
	if s.pause != nil {
		if s.skip > 0 {
			s.skip--
		} else {
			pause, s.pause = s.pause, nil
		}
	}
	s.mu.Unlock()

	if pause != nil {
		pause()
	}
	return cred, err
}

type fixture struct {
	api       *api
	client    *httpclient.Client
	store     *pausingStore
	coord     *Coordinator
	reauth    *ReAuthenticator
	refreshes atomic.Int32
	logouts   atomic.Int32
	// onLogout runs inside the Logout hook when set.
	onLogout func()
}

func newFixture(t *testing.T, cfg Config, refresher Refresher, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{api: &api{}}
	f.api.valid.Store("T2")
	srv := httptest.NewServer(f.api)
	t.Cleanup(srv.Close)

	client, err := httpclient.NewClient(httpclient.Config{Name: "test", BaseURL: srv.URL})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.client = client
	f.store = &pausingStore{MemoryStore: credential.NewMemoryStore(credential.Credential{AccessToken: "T1", RefreshToken: "R1"})}

	opts = append([]Option{WithLogger(logger.Nop())}, opts...)
	f.reauth, err = NewReAuthenticator(f.store, cfg.ExpiredMode, Hooks{
		Logout: func(context.Context) error {
			f.logouts.Add(1)
			if f.onLogout != nil {
				f.onLogout()
			}
			return nil
		},
	}, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	counted := func(ctx context.Context, cred credential.Credential) (string, error) {
		f.refreshes.Add(1)
		return refresher(ctx, cred)
	}
	f.coord, err = NewCoordinator(cfg, client, f.store, counted, f.reauth, opts...)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	client.AddRequestInterceptor(CredentialInterceptor(f.store, BearerFormat, 0))
	client.AddResponseInterceptor(httpclient.EnvelopeInterceptor(httpclient.DefaultEnvelope()))
	client.AddResponseInterceptor(NewAuthenticator(cfg, f.coord, f.reauth, opts...).Interceptor())
	return f
}

func (f *fixture) get(ctx context.Context, path string) (*httpclient.Result, error) {
	return f.client.Do(ctx, httpclient.Request{Path: path})
}

// waitPending blocks until n requests are queued behind the refresh.
func waitPending(t *testing.T, c *Coordinator, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.Pending() < n {
		if time.Now().After(deadline) {
			t.Errorf("expected %d pending requests, got %d", n, c.Pending())
			return
		}
		time.Sleep(time.Millisecond)
	}
}

func waitRefreshing(t *testing.T, c *Coordinator) {
	t.Helper()
	waitState(t, c, StateRefreshing)
}

func waitState(t *testing.T, c *Coordinator, want State) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("coordinator never reached %s, still %s", want, c.State())
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCoordinator_SingleFlight(t *testing.T) {
	const n = 10
	var f *fixture
	f = newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		waitPending(t, f.coord, n-1)
		return "T2", nil
	})

	var wg sync.WaitGroup
	errs := make([]error, n)
	payloads := make([]string, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := f.get(context.Background(), fmt.Sprintf("/items/%d", i))
			errs[i] = err
			if res != nil {
				payloads[i] = string(res.Payload)
			}
		}(i)
	}
	wg.Wait()

	if got := f.refreshes.Load(); got != 1 {
		t.Errorf("expected 1 refresh, got %d", got)
	}
	for i := range n {
		if errs[i] != nil {
			t.Errorf("request %d: unexpected error: %v", i, errs[i])
			continue
		}
		if want := fmt.Sprintf(`{"path":"/items/%d"}`, i); payloads[i] != want {
			t.Errorf("request %d: expected payload %s, got %s", i, want, payloads[i])
		}
	}
	if got := f.api.hits.Load(); got != 2*n {
		t.Errorf("expected %d server hits, got %d", 2*n, got)
	}
	if f.coord.State() != StateIdle {
		t.Errorf("expected idle state, got %s", f.coord.State())
	}
	cred, _ := f.store.Load(context.Background())
	if cred.AccessToken != "T2" {
		t.Errorf("expected stored token T2, got %q", cred.AccessToken)
	}
}

func TestCoordinator_ReplaysCarryNewToken(t *testing.T) {
	var f *fixture
	f = newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		waitPending(t, f.coord, 2)
		return "T2", nil
	})

	var wg sync.WaitGroup
	for _, p := range []string{"/a", "/b", "/c"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			if _, err := f.get(context.Background(), p); err != nil {
				t.Errorf("%s: unexpected error: %v", p, err)
			}
		}(p)
	}
	wg.Wait()

	f.api.mu.Lock()
	defer f.api.mu.Unlock()
	var stale, fresh int
	for _, auth := range f.api.seen {
		switch auth {
		case "Bearer T1":
			stale++
		case "Bearer T2":
			fresh++
		default:
			t.Errorf("unexpected Authorization %q", auth)
		}
	}
	if stale != 3 || fresh != 3 {
		t.Errorf("expected 3 stale and 3 fresh sends, got %d and %d", stale, fresh)
	}
}

func TestCoordinator_RefreshRejected(t *testing.T) {
	const n = 5
	var f *fixture
	f = newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		waitPending(t, f.coord, n-1)
		return "", errors.New("refresh token revoked")
	})

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.get(context.Background(), "/")
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if !httpclient.IsUnauthorized(err) {
			t.Errorf("request %d: expected original 401, got %v", i, err)
		}
	}
	if got := f.refreshes.Load(); got != 1 {
		t.Errorf("expected 1 refresh, got %d", got)
	}
	if got := f.logouts.Load(); got != 1 {
		t.Errorf("expected 1 logout, got %d", got)
	}
	cred, _ := f.store.Load(context.Background())
	if cred.AccessToken != "" {
		t.Errorf("expected access token cleared, got %q", cred.AccessToken)
	}
}

func TestCoordinator_ReplayCappedAtOnce(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "T3", nil
	})

	_, err := f.get(context.Background(), "/")
	if !httpclient.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if got := f.api.hits.Load(); got != 2 {
		t.Errorf("expected 2 server hits, got %d", got)
	}
	if got := f.refreshes.Load(); got != 1 {
		t.Errorf("expected 1 refresh, got %d", got)
	}
	if got := f.logouts.Load(); got != 1 {
		t.Errorf("expected 1 logout, got %d", got)
	}
}

func TestCoordinator_NoDuplicateReauth(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "", errors.New("boom")
	})

	for range 3 {
		if _, err := f.get(context.Background(), "/"); err == nil {
			t.Fatal("expected error")
		}
	}
	if got := f.logouts.Load(); got != 1 {
		t.Errorf("expected 1 logout, got %d", got)
	}

	if err := f.reauth.Reset(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, _ = f.get(context.Background(), "/")
	if got := f.logouts.Load(); got != 2 {
		t.Errorf("expected 2 logouts after reset, got %d", got)
	}
}

func TestAuthenticator_LogoutPassthrough(t *testing.T) {
	f := newFixture(t, Config{LogoutPath: "/logout"}, func(context.Context, credential.Credential) (string, error) {
		return "T2", nil
	})

	res, err := f.get(context.Background(), "/api/logout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Response == nil || res.Response.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected the 401 response, got %+v", res.Response)
	}
	if got := f.refreshes.Load(); got != 0 {
		t.Errorf("expected no refresh, got %d", got)
	}
	if got := f.logouts.Load(); got != 0 {
		t.Errorf("expected no logout, got %d", got)
	}
}

func TestAuthenticator_RefreshDisabled(t *testing.T) {
	f := newFixture(t, Config{DisableRefresh: true}, func(context.Context, credential.Credential) (string, error) {
		return "T2", nil
	})

	_, err := f.get(context.Background(), "/")
	if !httpclient.IsUnauthorized(err) {
		t.Fatalf("expected 401, got %v", err)
	}
	if got := f.refreshes.Load(); got != 0 {
		t.Errorf("expected no refresh, got %d", got)
	}
	if got := f.logouts.Load(); got != 1 {
		t.Errorf("expected 1 logout, got %d", got)
	}
}

func TestAuthenticator_IgnoresOtherErrors(t *testing.T) {
	a := NewAuthenticator(Config{}, nil, nil, WithLogger(logger.Nop()))
	orig := httpclient.ClassifyStatusCode(http.StatusForbidden, nil)

	res, err := a.Interceptor().OnError(context.Background(), orig)
	if res != nil || err != orig {
		t.Errorf("expected passthrough, got %v, %v", res, err)
	}
}

func TestCoordinator_StaleTokenShortcut(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "", errors.New("must not be called")
	})
	if err := f.store.SetAccessToken(context.Background(), "T2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	req := &httpclient.Request{Path: "/x"}
	req.AttachToken("Authorization", "Bearer T1", "T1")
	orig := httpclient.ClassifyStatusCode(http.StatusUnauthorized, nil)

	res, err := f.coord.Resolve(context.Background(), req, orig)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(res.Payload) != `{"path":"/x"}` {
		t.Errorf("unexpected payload %s", res.Payload)
	}
	if got := f.refreshes.Load(); got != 0 {
		t.Errorf("expected no refresh, got %d", got)
	}
}

func TestCoordinator_RefresherPanic(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		panic("refresher bug")
	})

	_, err := f.get(context.Background(), "/")
	if !httpclient.IsUnauthorized(err) {
		t.Fatalf("expected original 401, got %v", err)
	}
	if f.coord.State() != StateIdle {
		t.Errorf("expected idle state after panic, got %s", f.coord.State())
	}
	if f.coord.Pending() != 0 {
		t.Errorf("expected no pending requests, got %d", f.coord.Pending())
	}
	if got := f.logouts.Load(); got != 1 {
		t.Errorf("expected 1 logout, got %d", got)
	}
}

func TestCoordinator_EmptyToken(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "", nil
	})

	token, err := f.coord.settle(context.Background())
	if token != "" || !errors.Is(err, ErrEmptyToken) {
		t.Errorf("expected ErrEmptyToken, got %q, %v", token, err)
	}
	if !httpclient.IsRefresh(err) {
		t.Errorf("expected refresh error kind, got %v", err)
	}
}

func TestCoordinator_NoRefreshToken(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "T2", nil
	})
	if err := f.store.Save(context.Background(), credential.Credential{AccessToken: "T1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err := f.coord.settle(context.Background())
	if !errors.Is(err, ErrNoRefreshToken) {
		t.Errorf("expected ErrNoRefreshToken, got %v", err)
	}
	if got := f.refreshes.Load(); got != 0 {
		t.Errorf("expected refresher not called, got %d", got)
	}
}

func TestCoordinator_WaitTimeout(t *testing.T) {
	release := make(chan struct{})
	var f *fixture
	f = newFixture(t, Config{WaitTimeout: 50 * time.Millisecond}, func(context.Context, credential.Credential) (string, error) {
		<-release
		return "T2", nil
	})

	leader := make(chan error, 1)
	go func() {
		_, err := f.get(context.Background(), "/leader")
		leader <- err
	}()

	waitRefreshing(t, f.coord)

	_, err := f.get(context.Background(), "/waiter")
	if !errors.Is(err, ErrRefreshTimeout) {
		t.Errorf("expected ErrRefreshTimeout, got %v", err)
	}
	if f.coord.Pending() != 0 {
		t.Errorf("expected timed out waiter removed, got %d pending", f.coord.Pending())
	}

	close(release)
	if err := <-leader; err != nil {
		t.Errorf("leader: unexpected error: %v", err)
	}
}

func TestCoordinator_WaiterCanceled(t *testing.T) {
	release := make(chan struct{})
	var f *fixture
	f = newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		<-release
		return "T2", nil
	})

	leader := make(chan error, 1)
	go func() {
		_, err := f.get(context.Background(), "/leader")
		leader <- err
	}()

	waitRefreshing(t, f.coord)

	ctx, cancel := context.WithCancel(context.Background())
	waiter := make(chan error, 1)
	go func() {
		_, err := f.get(ctx, "/waiter")
		waiter <- err
	}()
	waitPending(t, f.coord, 1)
	cancel()

	if err := <-waiter; !httpclient.IsCanceled(err) {
		t.Errorf("expected canceled error, got %v", err)
	}
	close(release)
	if err := <-leader; err != nil {
		t.Errorf("leader: unexpected error: %v", err)
	}
	if got := f.logouts.Load(); got != 0 {
		t.Errorf("expected no logout, got %d", got)
	}
}

func TestCoordinator_RefreshSettledAfterStaleRead(t *testing.T) {
	started := make(chan struct{}, 1)
	release := make(chan struct{})
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		return "T2", nil
	})

	leader := make(chan error, 1)
	go func() {
		_, err := f.get(context.Background(), "/leader")
		leader <- err
	}()
	<-started

	// The late request attaches T1, gets its 401, then reads the store while
	// it still holds T1. It stays paused there until the refresh has settled.
	paused := make(chan struct{})
	proceed := make(chan struct{})
	f.store.pauseLoad(1, func() {
		close(paused)
		<-proceed
	})
	late := make(chan error, 1)
	go func() {
		_, err := f.get(context.Background(), "/late")
		late <- err
	}()
	<-paused

	close(release)
	if err := <-leader; err != nil {
		t.Fatalf("leader: unexpected error: %v", err)
	}
	waitState(t, f.coord, StateIdle)

	close(proceed)
	if err := <-late; err != nil {
		t.Errorf("late request: unexpected error: %v", err)
	}
	if got := f.refreshes.Load(); got != 1 {
		t.Errorf("expected 1 refresh, got %d", got)
	}
}

func TestCoordinator_ResetForgetsRefreshedToken(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "T2", nil
	})
	if _, err := f.get(context.Background(), "/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.coord.mu.Lock()
	refreshed := f.coord.refreshed
	f.coord.mu.Unlock()
	if refreshed != "T2" {
		t.Fatalf("expected refreshed token T2, got %q", refreshed)
	}

	f.coord.Reset()
	f.coord.mu.Lock()
	refreshed = f.coord.refreshed
	f.coord.mu.Unlock()
	if refreshed != "" {
		t.Errorf("expected refreshed token cleared, got %q", refreshed)
	}
}

func TestCoordinator_DrainWakesLateWaiters(t *testing.T) {
	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "", errors.New("must not be called")
	})
	ctx := context.Background()
	if err := f.store.SetAccessToken(ctx, "T2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// An unbuffered first waiter holds the drain open until it is read.
	first := make(chan settled)
	f.coord.mu.Lock()
	f.coord.state = StateRefreshing
	f.coord.waiters = []chan settled{first}
	f.coord.mu.Unlock()

	drained := make(chan int, 1)
	go func() { drained <- f.coord.drain(settled{token: "T2"}) }()
	waitState(t, f.coord, StateDraining)

	late := make(chan error, 1)
	go func() {
		req := &httpclient.Request{Path: "/late"}
		req.AttachToken("Authorization", "Bearer T2", "T2")
		_, err := f.coord.Resolve(ctx, req, httpclient.ClassifyStatusCode(http.StatusUnauthorized, nil))
		late <- err
	}()
	waitPending(t, f.coord, 1)

	if out := <-first; out.token != "T2" || out.err != nil {
		t.Errorf("first waiter: unexpected outcome %+v", out)
	}
	if err := <-late; err != nil {
		t.Errorf("late waiter: unexpected error: %v", err)
	}
	if n := <-drained; n != 2 {
		t.Errorf("expected 2 waiters woken across batches, got %d", n)
	}
	if f.coord.State() != StateIdle {
		t.Errorf("expected idle state, got %s", f.coord.State())
	}
	if f.coord.Pending() != 0 {
		t.Errorf("expected no pending requests, got %d", f.coord.Pending())
	}
	if got := f.refreshes.Load(); got != 0 {
		t.Errorf("expected no refresh, got %d", got)
	}
}

func TestCoordinator_LogoutHookPanic(t *testing.T) {
	release := make(chan struct{})
	var f *fixture
	f = newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		<-release
		return "", errors.New("refresh token revoked")
	})
	f.onLogout = func() { panic("logout hook bug") }

	leader := make(chan any, 1)
	go func() {
		defer func() { leader <- recover() }()
		_, _ = f.get(context.Background(), "/leader")
	}()
	waitRefreshing(t, f.coord)

	waiter := make(chan error, 1)
	go func() {
		_, err := f.get(context.Background(), "/waiter")
		waiter <- err
	}()
	waitPending(t, f.coord, 1)
	close(release)

	if r := <-leader; r == nil {
		t.Error("expected the hook panic to reach the leader")
	}
	if err := <-waiter; !httpclient.IsUnauthorized(err) {
		t.Errorf("waiter: expected original 401, got %v", err)
	}
	if f.coord.State() != StateIdle {
		t.Errorf("expected idle state after hook panic, got %s", f.coord.State())
	}
	if f.coord.Pending() != 0 {
		t.Errorf("expected no pending requests, got %d", f.coord.Pending())
	}

	// The coordinator still serves the next 401.
	if _, err := f.get(context.Background(), "/next"); !httpclient.IsUnauthorized(err) {
		t.Errorf("next: expected original 401, got %v", err)
	}
	if got := f.refreshes.Load(); got != 2 {
		t.Errorf("expected a second refresh, got %d", got)
	}
}

func TestCoordinator_Telemetry(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))

	f := newFixture(t, Config{}, func(context.Context, credential.Credential) (string, error) {
		return "T2", nil
	}, WithMeterProvider(mp), WithTracerProvider(tp))

	if _, err := f.get(context.Background(), "/"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Name() != observability.SpanRefreshToken {
		t.Fatalf("expected one %s span, got %d", observability.SpanRefreshToken, len(spans))
	}
	var outcome string
	for _, kv := range spans[0].Attributes() {
		if kv.Key == observability.AttrOutcome {
			outcome = kv.Value.AsString()
		}
	}
	if outcome != observability.OutcomeSuccess {
		t.Errorf("expected span outcome success, got %q", outcome)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "reqkit.refresh.total" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				t.Fatalf("unexpected data type %T", m.Data)
			}
			for _, dp := range sum.DataPoints {
				if v, _ := dp.Attributes.Value(attribute.Key(observability.AttrOutcome)); v.AsString() == observability.OutcomeSuccess {
					total += dp.Value
				}
			}
		}
	}
	if total != 1 {
		t.Errorf("expected 1 successful refresh recorded, got %d", total)
	}
}
