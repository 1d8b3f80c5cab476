package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/internal/logging"
)

// runScheduler drives the global, fast and medium timers until ctx is
// cancelled and then waits for the invocations they started.
func (s *Service) runScheduler(ctx context.Context) {
	var wg sync.WaitGroup
	for _, cadence := range config.Cadences() {
		var trigger <-chan struct{}
		if cadence == config.CadenceGlobal {
			trigger = s.refresh
		}
		wg.Add(1)
		go func(cadence config.Cadence, trigger <-chan struct{}) {
			defer wg.Done()
			s.runTimer(ctx, cadence, trigger)
		}(cadence, trigger)
	}
	wg.Wait()
}

func (s *Service) runTimer(ctx context.Context, cadence config.Cadence, trigger <-chan struct{}) {
	interval := s.cfg.Interval(cadence)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var running sync.WaitGroup
	defer running.Wait()

	var busy atomic.Bool
	logger := logging.Component(s.logger, s.cfg.Logging, "scheduler").With().Str("cadence", string(cadence)).Logger()
	logger.Debug().Dur("interval", interval).Msg("timer started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug().Msg("timer stopped")
			return
		case <-ticker.C:
			s.fire(ctx, logger, cadence, &busy, &running, "tick")
		case <-trigger:
			s.fire(ctx, logger, cadence, &busy, &running, "refresh")
		}
	}
}

func (s *Service) fire(ctx context.Context, logger zerolog.Logger, cadence config.Cadence, busy *atomic.Bool, running *sync.WaitGroup, reason string) {
	guarded := !s.cfg.Scheduler.AllowOverlap
	if guarded && !busy.CompareAndSwap(false, true) {
		s.telemetry.IncSkippedTick(string(cadence))
		logger.Debug().Str("trigger", reason).Msg("previous invocation still running, tick skipped")
		return
	}
	counter := s.inFlight[cadence]
	counter.Add(1)
	running.Add(1)
	go func() {
		defer running.Done()
		defer counter.Add(-1)
		if guarded {
			defer busy.Store(false)
		}
		if cadence == config.CadenceGlobal {
			s.RunFullPass(ctx)
			return
		}
		s.InvokeCadence(ctx, cadence)
	}()
}
