// Package opensky tracks aircraft over a bounding box using the OpenSky
// Network states API.
package opensky

import (
	"context"
	"errors"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/format"
	"github.com/timzifer/colint/runtime/fetch"
	"github.com/timzifer/colint/runtime/sources"
)

// State vector positions in the OpenSky response.
const (
	idxICAO     = 0
	idxCallsign = 1
	idxOrigin   = 2
	idxLon      = 5
	idxLat      = 6
	idxAltitude = 7
	idxTrack    = 10
)

type statesResponse struct {
	Time   int64   `json:"time"`
	States [][]any `json:"states"`
}

// NewFactory returns a sources.Factory for the opensky driver.
func NewFactory() sources.Factory {
	return func(cfg config.SourceConfig, deps sources.Dependencies) (sources.DataSource, error) {
		if cfg.ID == "" {
			return nil, errors.New("source id must not be empty")
		}
		settings, err := parseSettings(cfg)
		if err != nil {
			return nil, err
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		return &Source{
			Base:     sources.NewBase(cfg),
			title:    sources.PanelTitle(cfg, "Vuelos"),
			endpoint: endpoint,
			settings: settings,
			deps:     deps,
			logger:   deps.Logger.With().Str("source", cfg.ID).Logger(),
		}, nil
	}
}

// Source renders live flights and falls back to static rows when the
// upstream is unreachable or reports no aircraft.
type Source struct {
	sources.Base
	title    string
	endpoint string
	settings Settings
	deps     sources.Dependencies
	logger   zerolog.Logger
}

// Live implements sources.DataSource.
func (s *Source) Live() bool { return true }

// Invoke implements sources.DataSource.
func (s *Source) Invoke(ctx context.Context) sources.Outcome {
	b := s.settings.Bounds
	var resp statesResponse
	err := fetch.GetJSON(ctx, s.deps.Client(), fetch.Request{
		URL: s.endpoint,
		Query: url.Values{
			"lamin": {formatCoord(b.LatMin)},
			"lomin": {formatCoord(b.LonMin)},
			"lamax": {formatCoord(b.LatMax)},
			"lomax": {formatCoord(b.LonMax)},
		},
		UserAgent: s.deps.UserAgent,
		BodyLimit: s.deps.BodyLimit,
	}, &resp)
	if err != nil {
		s.logger.Debug().Err(err).Msg("flight states unavailable, serving fallback")
		return sources.MockSuccess(s.fallback())
	}
	if len(resp.States) == 0 {
		s.logger.Debug().Msg("no flight states in bounds, serving fallback")
		return sources.MockSuccess(s.fallback())
	}

	panel := sources.Panel{Title: s.title}
	for i, state := range resp.States {
		if i < s.settings.MaxRows {
			panel.Rows = append(panel.Rows, sources.Row{
				Title: label(state),
				Value: strconv.FormatFloat(math.Round(number(state, idxAltitude)*metersToFeet), 'f', 0, 64) + " ft",
				Meta:  format.OrNA(text(state, idxOrigin)),
			})
		}
		if i < s.settings.MaxPoints {
			lat, lon := number(state, idxLat), number(state, idxLon)
			if lat != 0 && lon != 0 {
				panel.Points = append(panel.Points, sources.Point{
					Label:   label(state),
					Lat:     lat,
					Lng:     lon,
					Heading: number(state, idxTrack),
				})
			}
		}
	}
	return sources.Success(panel)
}

func (s *Source) fallback() sources.Panel {
	panel := sources.Panel{Title: s.title}
	for _, flight := range s.settings.Fallback {
		panel.Rows = append(panel.Rows, sources.Row{
			Title: flight.Callsign,
			Value: flight.Altitude,
			Meta:  flight.Info,
		})
	}
	return panel
}

func label(state []any) string {
	if callsign := strings.TrimSpace(text(state, idxCallsign)); callsign != "" {
		return callsign
	}
	return text(state, idxICAO)
}

func text(state []any, idx int) string {
	if idx >= len(state) {
		return ""
	}
	if v, ok := state[idx].(string); ok {
		return v
	}
	return ""
}

// number reads a numeric column; nulls and missing columns read as zero.
func number(state []any, idx int) float64 {
	if idx >= len(state) {
		return 0
	}
	switch v := state[idx].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	default:
		return 0
	}
}

func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
