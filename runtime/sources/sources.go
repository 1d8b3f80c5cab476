package sources

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
)

// Error kinds reported by adapters. Adapters wrap them with context and
// compare with errors.Is.
var (
	// ErrNetwork covers transport failures and non-2xx upstream statuses.
	ErrNetwork = errors.New("network error")
	// ErrEmpty is returned when an upstream answered without usable records.
	ErrEmpty = errors.New("no data")
	// ErrParse marks undecodable upstream payloads.
	ErrParse = errors.New("parse error")
	// ErrPanic marks an adapter that panicked during an invocation.
	ErrPanic = errors.New("adapter panic")
)

// DataSource produces the content of a single dashboard panel.
//
// Invoke must not panic and never returns an error value: every failure is
// collapsed into a Failure outcome. Implementations must be safe for
// concurrent invocations because timers of different cadences may overlap.
type DataSource interface {
	ID() string
	Cadence() config.Cadence
	Live() bool
	Invoke(ctx context.Context) Outcome
}

// Outcome is the terminal state of one invocation.
type Outcome struct {
	OK      bool
	Content Panel
	Reason  string
	Err     error
	Mock    bool
}

// Success wraps content fetched from a live upstream.
func Success(panel Panel) Outcome {
	return Outcome{OK: true, Content: panel}
}

// MockSuccess wraps content served from static records.
func MockSuccess(panel Panel) Outcome {
	return Outcome{OK: true, Content: panel, Mock: true}
}

// Failure carries the display reason and the classified cause.
func Failure(reason string, err error) Outcome {
	if reason == "" && err != nil {
		reason = err.Error()
	}
	return Outcome{Reason: reason, Err: err}
}

// Tone hints how a sink should colour a row.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNegative Tone = "negative"
	ToneNeutral  Tone = "neutral"
	ToneDanger   Tone = "danger"
	ToneWarning  Tone = "warning"
)

// Panel is the structured rendering of a source; sinks decide how it looks.
type Panel struct {
	Title  string  `json:"title"`
	Rows   []Row   `json:"rows"`
	Ticker []Row   `json:"ticker,omitempty"`
	Points []Point `json:"points,omitempty"`
}

// Row is one line of a panel.
type Row struct {
	Title  string    `json:"title"`
	Link   string    `json:"link,omitempty"`
	Value  string    `json:"value,omitempty"`
	Change string    `json:"change,omitempty"`
	Tone   Tone      `json:"tone,omitempty"`
	Detail string    `json:"detail,omitempty"`
	Meta   string    `json:"meta,omitempty"`
	Time   time.Time `json:"time,omitempty"`
}

// Point is a geolocated marker contributed to the map.
type Point struct {
	Label   string  `json:"label"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Heading float64 `json:"heading"`
}

// Dependencies are the shared facilities handed to source factories.
type Dependencies struct {
	HTTP      *http.Client
	UserAgent string
	Timeout   time.Duration
	BodyLimit int64
	Logger    zerolog.Logger
	Now       func() time.Time
}

// Clock returns the configured time source, defaulting to time.Now.
func (d Dependencies) Clock() func() time.Time {
	if d.Now == nil {
		return time.Now
	}
	return d.Now
}

// Client returns the configured HTTP client, defaulting to http.DefaultClient.
func (d Dependencies) Client() *http.Client {
	if d.HTTP == nil {
		return http.DefaultClient
	}
	return d.HTTP
}

// Factory constructs a DataSource using the provided configuration and
// dependencies.
//
// Factories allow different upstream adapters to be wired into the service
// without coupling the orchestrator to concrete types.
type Factory func(cfg config.SourceConfig, deps Dependencies) (DataSource, error)

// Base carries the identity shared by every adapter.
type Base struct {
	SourceID      string
	SourceCadence config.Cadence
}

// NewBase extracts the identity of a configured source.
func NewBase(cfg config.SourceConfig) Base {
	cadence := cfg.Cadence
	if cadence == "" {
		cadence = config.CadenceGlobal
	}
	return Base{SourceID: cfg.ID, SourceCadence: cadence}
}

// ID implements DataSource.
func (b Base) ID() string { return b.SourceID }

// Cadence implements DataSource.
func (b Base) Cadence() config.Cadence { return b.SourceCadence }

// PanelTitle picks the configured panel name over a driver default.
func PanelTitle(cfg config.SourceConfig, fallback string) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return fallback
}
