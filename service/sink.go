package service

import (
	"errors"
	"io"
	"sync"

	"github.com/rs/zerolog"

	"github.com/timzifer/colint/runtime/sources"
)

// Sink receives panel outcomes and published tallies. Implementations must
// not block: they are called from the invoking goroutine.
type Sink interface {
	PanelUpdated(id string, outcome sources.Outcome)
	HealthPublished(tally HealthTally)
}

// sinkSet fans notifications out to every attached sink.
type sinkSet struct {
	mu    sync.RWMutex
	sinks []Sink
}

func newSinkSet(sinks ...Sink) *sinkSet {
	set := &sinkSet{}
	for _, sink := range sinks {
		set.add(sink)
	}
	return set
}

func (s *sinkSet) add(sink Sink) {
	if sink == nil {
		return
	}
	s.mu.Lock()
	s.sinks = append(s.sinks, sink)
	s.mu.Unlock()
}

func (s *sinkSet) remove(sink Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.sinks {
		if existing == sink {
			s.sinks = append(s.sinks[:i:i], s.sinks[i+1:]...)
			return
		}
	}
}

func (s *sinkSet) snapshot() []Sink {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Sink(nil), s.sinks...)
}

func (s *sinkSet) PanelUpdated(id string, outcome sources.Outcome) {
	for _, sink := range s.snapshot() {
		sink.PanelUpdated(id, outcome)
	}
}

func (s *sinkSet) HealthPublished(tally HealthTally) {
	for _, sink := range s.snapshot() {
		sink.HealthPublished(tally)
	}
}

// Close closes every sink implementing io.Closer.
func (s *sinkSet) Close() error {
	var errs []error
	for _, sink := range s.snapshot() {
		if closer, ok := sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// LogSink writes every notification to a zerolog logger.
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink that logs panel updates at debug and tallies at
// info level to the given, already scoped, logger.
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// PanelUpdated implements Sink.
func (l *LogSink) PanelUpdated(id string, outcome sources.Outcome) {
	event := l.logger.Debug().Str("panel", id).Bool("ok", outcome.OK).Bool("mock", outcome.Mock)
	if outcome.OK {
		event.Int("rows", len(outcome.Content.Rows)).Msg("panel updated")
		return
	}
	event.Str("reason", outcome.Reason).Msg("panel failed")
}

// HealthPublished implements Sink.
func (l *LogSink) HealthPublished(tally HealthTally) {
	l.logger.Info().
		Str("sources", tally.Ratio()).
		Int("live", tally.Live).
		Uint64("pass", tally.Pass).
		Msg("health published")
}
