package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/sources"
)

type stubSource struct {
	id      string
	cadence config.Cadence
	live    bool
	calls   atomic.Int64
	invoke  func(ctx context.Context, call int64) sources.Outcome
}

func (s *stubSource) ID() string              { return s.id }
func (s *stubSource) Cadence() config.Cadence { return s.cadence }
func (s *stubSource) Live() bool              { return s.live }

func (s *stubSource) Invoke(ctx context.Context) sources.Outcome {
	call := s.calls.Add(1)
	if s.invoke == nil {
		return sources.Success(sources.Panel{Title: s.id, Rows: []sources.Row{{Title: "ok"}}})
	}
	return s.invoke(ctx, call)
}

func okSource(id string, cadence config.Cadence) *stubSource {
	return &stubSource{id: id, cadence: cadence, live: true}
}

func failingSource(id string, cadence config.Cadence) *stubSource {
	return &stubSource{id: id, cadence: cadence, live: true, invoke: func(context.Context, int64) sources.Outcome {
		return sources.Failure("Sin datos", fmt.Errorf("stub: %w", sources.ErrEmpty))
	}}
}

func mockSource(id string) *stubSource {
	return &stubSource{id: id, cadence: config.CadenceGlobal, invoke: func(context.Context, int64) sources.Outcome {
		return sources.MockSuccess(sources.Panel{Title: id, Rows: []sources.Row{{Title: "static"}}})
	}}
}

type recordingSink struct {
	mu      sync.Mutex
	panels  []string
	tallies []HealthTally
}

func (r *recordingSink) PanelUpdated(id string, _ sources.Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.panels = append(r.panels, id)
}

func (r *recordingSink) HealthPublished(tally HealthTally) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tallies = append(r.tallies, tally)
}

func (r *recordingSink) published() []HealthTally {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]HealthTally(nil), r.tallies...)
}

func stubConfig(stubs ...*stubSource) *config.Config {
	cfg := &config.Config{Name: "test"}
	for _, stub := range stubs {
		cfg.Sources = append(cfg.Sources, config.SourceConfig{ID: stub.id, Driver: "stub", Cadence: stub.cadence})
	}
	return cfg
}

func stubFactory(stubs ...*stubSource) sources.Factory {
	byID := make(map[string]*stubSource, len(stubs))
	for _, stub := range stubs {
		byID[stub.id] = stub
	}
	return func(cfg config.SourceConfig, _ sources.Dependencies) (sources.DataSource, error) {
		stub, ok := byID[cfg.ID]
		if !ok {
			return nil, fmt.Errorf("source %s: unknown stub", cfg.ID)
		}
		return stub, nil
	}
}

func newStubService(t *testing.T, cfg *config.Config, stubs []*stubSource, opts ...Option) *Service {
	t.Helper()
	opts = append([]Option{WithSourceFactory("stub", stubFactory(stubs...))}, opts...)
	svc, err := New(cfg, zerolog.New(io.Discard), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })
	return svc
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	cfg := &config.Config{Sources: []config.SourceConfig{{ID: "crypto", Driver: "missing"}}}
	_, err := New(cfg, zerolog.New(io.Discard))
	require.ErrorContains(t, err, "no source factory registered for driver missing")
	require.Error(t, Validate(cfg, zerolog.New(io.Discard)))
}

func TestNewSkipsDisabledSources(t *testing.T) {
	a := okSource("a", config.CadenceGlobal)
	b := okSource("b", config.CadenceGlobal)
	cfg := stubConfig(a, b)
	cfg.Sources[1].Disable = true
	svc := newStubService(t, cfg, []*stubSource{a, b})

	require.Len(t, svc.Sources(), 1)
	tally := svc.RunFullPass(context.Background())
	require.Equal(t, 1, tally.Total)
	require.Zero(t, b.calls.Load())
}

func TestHealthIsZeroBeforeFirstPass(t *testing.T) {
	a := okSource("a", config.CadenceGlobal)
	svc := newStubService(t, stubConfig(a), []*stubSource{a})
	require.Equal(t, HealthTally{}, svc.Health())
	for _, panel := range svc.Panels() {
		require.Equal(t, PanelPending, panel.Status)
	}
}

func TestRunFullPassTallyUnderRandomLatency(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	var stubs []*stubSource
	wantActive, wantLive := 0, 0
	for i := 0; i < 24; i++ {
		delay := time.Duration(rng.Intn(15)) * time.Millisecond
		id := fmt.Sprintf("src-%02d", i)
		var stub *stubSource
		switch rng.Intn(3) {
		case 0:
			stub = failingSource(id, config.CadenceGlobal)
		case 1:
			stub = mockSource(id)
			wantActive++
		default:
			stub = okSource(id, config.CadenceGlobal)
			wantActive++
			wantLive++
		}
		inner := stub.invoke
		stub.invoke = func(ctx context.Context, call int64) sources.Outcome {
			time.Sleep(delay)
			if inner == nil {
				return sources.Success(sources.Panel{Title: id})
			}
			return inner(ctx, call)
		}
		stubs = append(stubs, stub)
	}
	sink := &recordingSink{}
	svc := newStubService(t, stubConfig(stubs...), stubs, WithSink(sink))

	tally := svc.RunFullPass(context.Background())
	require.Equal(t, wantActive, tally.Active)
	require.Equal(t, wantLive, tally.Live)
	require.Equal(t, 24, tally.Total)
	require.Equal(t, uint64(1), tally.Pass)
	require.Equal(t, tally, svc.Health())
	for _, stub := range stubs {
		require.Equal(t, int64(1), stub.calls.Load(), stub.id)
	}
	require.Equal(t, []HealthTally{tally}, sink.published())
}

func TestRunFullPassPublishesOnlyCompleteTallies(t *testing.T) {
	release := make(chan struct{})
	var stubs []*stubSource
	for i := 0; i < 8; i++ {
		stub := okSource(fmt.Sprintf("slow-%d", i), config.CadenceGlobal)
		stub.invoke = func(ctx context.Context, _ int64) sources.Outcome {
			<-release
			return sources.Success(sources.Panel{})
		}
		stubs = append(stubs, stub)
	}
	svc := newStubService(t, stubConfig(stubs...), stubs)

	done := make(chan HealthTally, 1)
	go func() { done <- svc.RunFullPass(context.Background()) }()

	stop := make(chan struct{})
	violations := make(chan HealthTally, 1)
	var observer sync.WaitGroup
	observer.Add(1)
	go func() {
		defer observer.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			tally := svc.Health()
			if tally != (HealthTally{}) && (tally.Active != 8 || tally.Total != 8) {
				select {
				case violations <- tally:
				default:
				}
			}
		}
	}()

	require.Eventually(t, func() bool {
		for _, p := range svc.Panels() {
			if !p.Running {
				return false
			}
		}
		return true
	}, time.Second, time.Millisecond)
	require.Equal(t, HealthTally{}, svc.Health())
	close(release)
	final := <-done
	close(stop)
	observer.Wait()

	select {
	case tally := <-violations:
		t.Fatalf("observed partial tally %+v", tally)
	default:
	}
	require.Equal(t, final, svc.Health())
	require.Equal(t, 8, final.Active)
}

func TestAdapterIsolation(t *testing.T) {
	good := okSource("good", config.CadenceGlobal)
	bad := failingSource("bad", config.CadenceGlobal)
	boom := &stubSource{id: "boom", cadence: config.CadenceGlobal, live: true, invoke: func(context.Context, int64) sources.Outcome {
		panic("adapter bug")
	}}
	hung := &stubSource{id: "hung", cadence: config.CadenceGlobal, live: true, invoke: func(ctx context.Context, _ int64) sources.Outcome {
		<-ctx.Done()
		return sources.Failure("Timeout", fmt.Errorf("stub: %w: %v", sources.ErrNetwork, ctx.Err()))
	}}
	stubs := []*stubSource{good, bad, boom, hung}
	cfg := stubConfig(stubs...)
	cfg.Sources[3].Timeout = config.Duration{Duration: 30 * time.Millisecond}
	svc := newStubService(t, cfg, stubs)

	tally := svc.RunFullPass(context.Background())
	require.Equal(t, 1, tally.Active)
	require.Equal(t, 4, tally.Total)

	state, ok := svc.Panel("boom")
	require.True(t, ok)
	require.Equal(t, PanelError, state.Status)
	require.Contains(t, state.Error, "adapter bug")

	state, _ = svc.Panel("hung")
	require.Equal(t, PanelError, state.Status)
	require.Equal(t, "Timeout", state.Reason)

	state, _ = svc.Panel("bad")
	require.Equal(t, "Sin datos", state.Reason)

	state, _ = svc.Panel("good")
	require.Equal(t, PanelOK, state.Status)
}

func TestSafeInvokeWrapsPanic(t *testing.T) {
	src := &stubSource{id: "boom", invoke: func(context.Context, int64) sources.Outcome { panic(errors.New("nil map")) }}
	outcome := safeInvoke(context.Background(), src)
	require.False(t, outcome.OK)
	require.ErrorIs(t, outcome.Err, sources.ErrPanic)
}

func TestMockSourcesCountAsActiveButNotLive(t *testing.T) {
	live := okSource("live", config.CadenceGlobal)
	static := mockSource("static")
	svc := newStubService(t, stubConfig(live, static), []*stubSource{live, static})

	tally := svc.RunFullPass(context.Background())
	require.Equal(t, 2, tally.Active)
	require.Equal(t, 1, tally.Live)
	require.Equal(t, "2/2", tally.Ratio())

	state, _ := svc.Panel("static")
	require.Equal(t, PanelMock, state.Status)
}

func TestNetworkDownYieldsZeroActive(t *testing.T) {
	var stubs []*stubSource
	for i := 0; i < 5; i++ {
		stubs = append(stubs, failingSource(fmt.Sprintf("down-%d", i), config.CadenceGlobal))
	}
	svc := newStubService(t, stubConfig(stubs...), stubs)
	tally := svc.RunFullPass(context.Background())
	require.Zero(t, tally.Active)
	require.Equal(t, 5, tally.Total)
	require.Equal(t, uint64(1), svc.Health().Pass)
}

func TestInvokeCadenceLeavesTallyUntouched(t *testing.T) {
	price := okSource("crypto", config.CadenceFast)
	flights := okSource("flights", config.CadenceMedium)
	news := okSource("news", config.CadenceGlobal)
	stubs := []*stubSource{price, flights, news}
	sink := &recordingSink{}
	svc := newStubService(t, stubConfig(stubs...), stubs, WithSink(sink))

	first := svc.RunFullPass(context.Background())
	require.Equal(t, 3, first.Active)

	ok := svc.InvokeCadence(context.Background(), config.CadenceFast)
	require.Equal(t, 1, ok)
	require.Equal(t, int64(2), price.calls.Load())
	require.Equal(t, int64(1), flights.calls.Load())
	require.Equal(t, int64(1), news.calls.Load())
	require.Equal(t, first, svc.Health())
	require.Len(t, sink.published(), 1)

	state, _ := svc.Panel("crypto")
	require.Greater(t, state.Sequence, uint64(3))
}

func TestStaleInvocationDoesNotOverwriteNewerOutcome(t *testing.T) {
	release := make(chan struct{})
	src := &stubSource{id: "crypto", cadence: config.CadenceFast, live: true}
	src.invoke = func(ctx context.Context, call int64) sources.Outcome {
		if call == 1 {
			<-release
			return sources.Success(sources.Panel{Title: "old"})
		}
		return sources.Success(sources.Panel{Title: "new"})
	}
	sink := &recordingSink{}
	svc := newStubService(t, stubConfig(src), []*stubSource{src}, WithSink(sink))
	rs := svc.sources[0]

	oldDone := make(chan sources.Outcome, 1)
	go func() { oldDone <- svc.invoke(context.Background(), rs) }()
	require.Eventually(t, func() bool { return src.calls.Load() == 1 }, time.Second, time.Millisecond)

	newer := svc.invoke(context.Background(), rs)
	require.Equal(t, "new", newer.Content.Title)
	close(release)
	older := <-oldDone
	require.Equal(t, "old", older.Content.Title)

	state, _ := svc.Panel("crypto")
	require.Equal(t, "new", state.Content.Title)
	require.False(t, state.Running)
	sink.mu.Lock()
	require.Equal(t, []string{"crypto"}, sink.panels)
	sink.mu.Unlock()
}

// slotCheckingSink compares every notification with the panel slot it
// claims to describe.
type slotCheckingSink struct {
	svc        *Service
	mu         sync.Mutex
	last       string
	mismatches int
}

func (c *slotCheckingSink) PanelUpdated(id string, outcome sources.Outcome) {
	state, _ := c.svc.Panel(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if state.Content.Title != outcome.Content.Title {
		c.mismatches++
	}
	c.last = outcome.Content.Title
}

func (c *slotCheckingSink) HealthPublished(HealthTally) {}

func TestSinksReceiveOutcomesInAcceptedOrder(t *testing.T) {
	src := &stubSource{id: "crypto", cadence: config.CadenceFast, live: true}
	src.invoke = func(_ context.Context, call int64) sources.Outcome {
		time.Sleep(time.Duration(rand.Intn(200)) * time.Microsecond)
		return sources.Success(sources.Panel{Title: fmt.Sprintf("call-%d", call)})
	}
	svc := newStubService(t, stubConfig(src), []*stubSource{src})
	sink := &slotCheckingSink{svc: svc}
	svc.sinks.add(sink)
	rs := svc.sources[0]

	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			svc.invoke(context.Background(), rs)
		}()
	}
	wg.Wait()

	state, _ := svc.Panel("crypto")
	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Zero(t, sink.mismatches)
	require.Equal(t, state.Content.Title, sink.last)
}

func TestCancelledPassIsNotPublished(t *testing.T) {
	src := &stubSource{id: "slow", cadence: config.CadenceGlobal, live: true, invoke: func(ctx context.Context, _ int64) sources.Outcome {
		<-ctx.Done()
		return sources.Failure("Timeout", ctx.Err())
	}}
	svc := newStubService(t, stubConfig(src), []*stubSource{src})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	tally := svc.RunFullPass(ctx)
	require.Equal(t, 1, tally.Total)
	require.Equal(t, HealthTally{}, svc.Health())
}

func TestOlderPassDoesNotReplaceNewerTally(t *testing.T) {
	a := okSource("a", config.CadenceGlobal)
	svc := newStubService(t, stubConfig(a), []*stubSource{a})

	newer := &HealthTally{Pass: 5, Active: 1, Total: 1}
	require.True(t, svc.publish(newer))
	require.False(t, svc.publish(&HealthTally{Pass: 4}))
	require.Equal(t, *newer, svc.Health())
}

func TestSetPanelVisible(t *testing.T) {
	a := okSource("a", config.CadenceGlobal)
	svc := newStubService(t, stubConfig(a), []*stubSource{a})

	state, err := svc.SetPanelVisible("a", false)
	require.NoError(t, err)
	require.False(t, state.Visible)
	_, err = svc.SetPanelVisible("missing", true)
	require.Error(t, err)

	svc.RunFullPass(context.Background())
	state, _ = svc.Panel("a")
	require.False(t, state.Visible)
	require.Equal(t, 1, svc.Health().Active)
}

func TestIntervalsReportConfiguredPeriods(t *testing.T) {
	price := okSource("crypto", config.CadenceFast)
	svc := newStubService(t, stubConfig(price), []*stubSource{price})
	intervals := svc.Intervals()
	require.Len(t, intervals, 3)
	require.Equal(t, config.CadenceGlobal, intervals[0].Cadence)
	require.Equal(t, 180*time.Second, intervals[0].Interval)
	require.Equal(t, 30*time.Second, intervals[1].Interval)
	require.Equal(t, 1, intervals[1].Sources)
	require.Equal(t, 45*time.Second, intervals[2].Interval)
}
