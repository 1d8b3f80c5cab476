package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/internal/logging"
	"github.com/timzifer/colint/runtime/monitors"
	"github.com/timzifer/colint/runtime/sources"
	"github.com/timzifer/colint/telemetry"
)

// Service owns the registered data sources, their panel slots and the
// published health tally.
type Service struct {
	cfg    *config.Config
	logger zerolog.Logger
	now    func() time.Time

	sources []*registeredSource
	panels  *panelStore

	seq    atomic.Uint64
	passes atomic.Uint64
	health atomic.Pointer[HealthTally]

	inFlight map[config.Cadence]*atomic.Int64

	monitors  *monitors.Registry
	sinks     *sinkSet
	// notifyMu orders sink notifications the same way the panel store
	// accepts outcomes, so a sink never sees a superseded outcome last.
	notifyMu  sync.Mutex
	telemetry telemetry.Collector
	refresh   chan struct{}

	mu       sync.Mutex
	liveView *liveViewServer
}

type registeredSource struct {
	source  sources.DataSource
	cfg     config.SourceConfig
	timeout time.Duration
	logger  zerolog.Logger
}

// Option customises service construction.
type Option func(*serviceOptions)

type serviceOptions struct {
	factories map[string]sources.Factory
	sinks     []Sink
	client    *http.Client
	now       func() time.Time
}

func newServiceOptions() serviceOptions {
	return serviceOptions{factories: make(map[string]sources.Factory)}
}

func applyOptions(opts serviceOptions, list []Option) serviceOptions {
	for _, opt := range list {
		if opt != nil {
			opt(&opts)
		}
	}
	return opts
}

// WithSourceFactory registers or overrides a source factory for a driver identifier.
func WithSourceFactory(driver string, factory sources.Factory) Option {
	return func(opts *serviceOptions) {
		if opts == nil || driver == "" {
			return
		}
		if opts.factories == nil {
			opts.factories = make(map[string]sources.Factory)
		}
		if factory == nil {
			delete(opts.factories, driver)
			return
		}
		opts.factories[driver] = factory
	}
}

// WithSink attaches a presentation sink.
func WithSink(sink Sink) Option {
	return func(opts *serviceOptions) {
		if opts == nil || sink == nil {
			return
		}
		opts.sinks = append(opts.sinks, sink)
	}
}

// WithHTTPClient overrides the client shared by the upstream adapters.
func WithHTTPClient(client *http.Client) Option {
	return func(opts *serviceOptions) {
		if opts == nil {
			return
		}
		opts.client = client
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(opts *serviceOptions) {
		if opts == nil {
			return
		}
		opts.now = now
	}
}

// New builds a service from configuration and dependencies.
func New(cfg *config.Config, logger zerolog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("config must not be nil")
	}
	options := applyOptions(newServiceOptions(), opts)
	now := options.now
	if now == nil {
		now = time.Now
	}
	client := options.client
	if client == nil {
		client = &http.Client{}
	}

	registered, err := buildSources(cfg, options.factories, client, now, logger)
	if err != nil {
		return nil, err
	}

	svc := &Service{
		cfg:       cfg,
		logger:    logger,
		now:       now,
		sources:   registered,
		panels:    newPanelStore(),
		inFlight:  make(map[config.Cadence]*atomic.Int64, 3),
		monitors:  monitors.New(now),
		sinks:     newSinkSet(options.sinks...),
		telemetry: telemetry.Noop(),
		refresh:   make(chan struct{}, 1),
	}
	for _, cadence := range config.Cadences() {
		svc.inFlight[cadence] = &atomic.Int64{}
	}
	for _, rs := range registered {
		svc.panels.register(rs)
	}
	return svc, nil
}

func buildSources(cfg *config.Config, factories map[string]sources.Factory, client *http.Client, now func() time.Time, logger zerolog.Logger) ([]*registeredSource, error) {
	registered := make([]*registeredSource, 0, len(cfg.Sources))
	seen := make(map[string]struct{}, len(cfg.Sources))
	for _, srcCfg := range cfg.Sources {
		if srcCfg.Disable {
			continue
		}
		factory := factories[srcCfg.Driver]
		if factory == nil {
			return nil, fmt.Errorf("source %s: no source factory registered for driver %s", srcCfg.ID, srcCfg.Driver)
		}
		timeout := cfg.RequestTimeout(srcCfg)
		srcLogger := logging.Source(logger, srcCfg)
		deps := sources.Dependencies{
			HTTP:      client,
			UserAgent: cfg.HTTP.UserAgent,
			Timeout:   timeout,
			BodyLimit: cfg.BodyLimit(srcCfg),
			Logger:    srcLogger,
			Now:       now,
		}
		src, err := factory(srcCfg, deps)
		if err != nil {
			return nil, err
		}
		if src == nil {
			return nil, fmt.Errorf("source %s: factory returned nil", srcCfg.ID)
		}
		if _, dup := seen[src.ID()]; dup {
			return nil, fmt.Errorf("source %s registered twice", src.ID())
		}
		seen[src.ID()] = struct{}{}
		registered = append(registered, &registeredSource{source: src, cfg: srcCfg, timeout: timeout, logger: srcLogger})
	}
	return registered, nil
}

// Validate performs a dry-run construction of every source without starting background services.
func Validate(cfg *config.Config, logger zerolog.Logger, opts ...Option) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}
	options := applyOptions(newServiceOptions(), opts)
	_, err := buildSources(cfg, options.factories, http.DefaultClient, time.Now, logger)
	return err
}

// SetTelemetry replaces the collector used for runtime metrics.
func (s *Service) SetTelemetry(collector telemetry.Collector) {
	if s == nil {
		return
	}
	if collector == nil {
		collector = telemetry.Noop()
	}
	s.telemetry = collector
}

// Sources lists the registered source configurations in registration order.
func (s *Service) Sources() []config.SourceConfig {
	if s == nil {
		return nil
	}
	out := make([]config.SourceConfig, 0, len(s.sources))
	for _, rs := range s.sources {
		out = append(out, rs.cfg)
	}
	return out
}

// Monitors exposes the custom monitor registry.
func (s *Service) Monitors() *monitors.Registry {
	if s == nil {
		return nil
	}
	return s.monitors
}

// Health returns the most recently published tally. Before the first full
// pass completes it is the zero value.
func (s *Service) Health() HealthTally {
	if s == nil {
		return HealthTally{}
	}
	if current := s.health.Load(); current != nil {
		return *current
	}
	return HealthTally{}
}

// RunFullPass invokes every registered source concurrently, waits until all
// of them settle and publishes the resulting tally.
func (s *Service) RunFullPass(ctx context.Context) HealthTally {
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	pass := s.passes.Add(1)

	var active, live atomic.Int64
	runWorkerPool(ctx, len(s.sources), s.sources, func(ctx context.Context, rs *registeredSource) sources.Outcome {
		outcome := s.invoke(ctx, rs)
		if outcome.OK {
			active.Add(1)
			if !outcome.Mock {
				live.Add(1)
			}
		}
		return outcome
	})

	tally := HealthTally{
		Active:      int(active.Load()),
		Live:        int(live.Load()),
		Total:       len(s.sources),
		Pass:        pass,
		CompletedAt: s.now(),
		Duration:    time.Since(start),
	}
	if err := ctx.Err(); err != nil {
		s.logger.Debug().Err(err).Uint64("pass", pass).Msg("full pass cancelled, tally not published")
		return tally
	}
	if !s.publish(&tally) {
		s.logger.Debug().Uint64("pass", pass).Msg("newer full pass already published")
		return tally
	}
	s.telemetry.SetHealth(tally.Active, tally.Live)
	s.telemetry.ObserveFullPass(tally.Duration)
	s.sinks.HealthPublished(tally)
	s.logger.Info().
		Uint64("pass", pass).
		Int("active", tally.Active).
		Int("live", tally.Live).
		Int("total", tally.Total).
		Dur("duration", tally.Duration).
		Msg("full pass completed")
	return tally
}

// publish swaps in the tally unless a later-started pass already published.
func (s *Service) publish(tally *HealthTally) bool {
	for {
		current := s.health.Load()
		if current != nil && current.Pass > tally.Pass {
			return false
		}
		if s.health.CompareAndSwap(current, tally) {
			return true
		}
	}
}

// InvokeCadence re-invokes only the sources of one cadence class. It updates
// their panel slots and leaves the tally untouched. The number of successful
// invocations is returned.
func (s *Service) InvokeCadence(ctx context.Context, cadence config.Cadence) int {
	if ctx == nil {
		ctx = context.Background()
	}
	selected := make([]*registeredSource, 0, len(s.sources))
	for _, rs := range s.sources {
		if rs.source.Cadence() == cadence {
			selected = append(selected, rs)
		}
	}
	outcomes := runWorkerPool(ctx, len(selected), selected, s.invoke)
	ok := 0
	for _, outcome := range outcomes {
		if outcome.OK {
			ok++
		}
	}
	return ok
}

// RequestRefresh asks the scheduler for an immediate full pass. Requests made
// while one is already pending are coalesced.
func (s *Service) RequestRefresh() {
	if s == nil {
		return
	}
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Run performs the initial full pass and then drives the interval timers
// until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	s.RunFullPass(ctx)
	if ctx.Err() != nil {
		return nil
	}
	s.runScheduler(ctx)
	return nil
}

func (s *Service) invoke(ctx context.Context, rs *registeredSource) sources.Outcome {
	id := rs.source.ID()
	seq := s.seq.Add(1)
	s.panels.begin(id, seq)

	start := time.Now()
	callCtx, cancel := context.WithTimeout(ctx, rs.timeout)
	outcome := safeInvoke(callCtx, rs.source)
	cancel()
	duration := time.Since(start)

	cadence := string(rs.source.Cadence())
	s.telemetry.ObserveInvocation(id, cadence, outcomeLabel(outcome))
	if !outcome.OK {
		event := rs.logger.Warn().Str("reason", outcome.Reason)
		if outcome.Err != nil {
			event = event.Err(outcome.Err)
		}
		event.Msg("source invocation failed")
	}

	s.notifyMu.Lock()
	if s.panels.record(id, seq, outcome, s.now(), duration) {
		s.sinks.PanelUpdated(id, outcome)
	}
	s.notifyMu.Unlock()
	return outcome
}

func safeInvoke(ctx context.Context, src sources.DataSource) (outcome sources.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			outcome = sources.Failure("Error interno", fmt.Errorf("%w: %v", sources.ErrPanic, r))
		}
	}()
	return src.Invoke(ctx)
}

func outcomeLabel(outcome sources.Outcome) string {
	switch {
	case !outcome.OK:
		return telemetry.OutcomeFailure
	case outcome.Mock:
		return telemetry.OutcomeMock
	default:
		return telemetry.OutcomeSuccess
	}
}

// InFlight reports the number of running timer invocations per cadence.
func (s *Service) InFlight() map[config.Cadence]int64 {
	out := make(map[config.Cadence]int64, len(s.inFlight))
	for cadence, counter := range s.inFlight {
		out[cadence] = counter.Load()
	}
	return out
}

// Intervals reports the timer periods in scheduling order.
func (s *Service) Intervals() []TimerInterval {
	cadences := config.Cadences()
	out := make([]TimerInterval, 0, len(cadences))
	for _, cadence := range cadences {
		count := 0
		for _, rs := range s.sources {
			if rs.source.Cadence() == cadence {
				count++
			}
		}
		out = append(out, TimerInterval{Cadence: cadence, Interval: s.cfg.Interval(cadence), Sources: count})
	}
	return out
}

// TimerInterval describes one interval timer.
type TimerInterval struct {
	Cadence  config.Cadence
	Interval time.Duration
	Sources  int
}

// EnableLiveView starts the embedded dashboard server.
func (s *Service) EnableLiveView(listen string) error {
	if s == nil {
		return errors.New("service is nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveView != nil {
		return errors.New("live view already running")
	}
	server, err := newLiveViewServer(listen, s, logging.Component(s.logger, s.cfg.Logging, "live_view"))
	if err != nil {
		return err
	}
	s.liveView = server
	s.sinks.add(server.hub)
	return nil
}

// LiveViewAddr returns the bound live view address, or an empty string.
func (s *Service) LiveViewAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.liveView == nil || s.liveView.ln == nil {
		return ""
	}
	return s.liveView.ln.Addr().String()
}

// Close stops the live view and detaches every sink.
func (s *Service) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	server := s.liveView
	s.liveView = nil
	s.mu.Unlock()
	if server != nil {
		s.sinks.remove(server.hub)
		server.close()
	}
	return s.sinks.Close()
}
