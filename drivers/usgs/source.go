// Package usgs lists recent earthquakes from the USGS FDSN event service.
package usgs

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/format"
	"github.com/timzifer/colint/runtime/fetch"
	"github.com/timzifer/colint/runtime/sources"
)

const defaultEndpoint = "https://earthquake.usgs.gov/fdsnws/event/1/query"

var (
	dangerMagnitude  = decimal.NewFromInt(6)
	warningMagnitude = decimal.NewFromInt(5)
)

// Settings describes the configuration accepted via driver_settings.
type Settings struct {
	Limit        int     `yaml:"limit,omitempty"`
	MinMagnitude float64 `yaml:"min_magnitude,omitempty"`
}

type featureCollection struct {
	Features []feature `json:"features"`
}

type feature struct {
	Properties struct {
		Mag   *float64 `json:"mag"`
		Place string   `json:"place"`
		Time  int64    `json:"time"`
		URL   string   `json:"url"`
	} `json:"properties"`
	Geometry struct {
		Coordinates []float64 `json:"coordinates"`
	} `json:"geometry"`
}

// NewFactory returns a sources.Factory for the usgs driver.
func NewFactory() sources.Factory {
	return func(cfg config.SourceConfig, deps sources.Dependencies) (sources.DataSource, error) {
		if cfg.ID == "" {
			return nil, errors.New("source id must not be empty")
		}
		settings := Settings{Limit: 5, MinMagnitude: 4.5}
		if err := cfg.DecodeSettings(&settings); err != nil {
			return nil, err
		}
		if settings.Limit <= 0 {
			return nil, fmt.Errorf("source %s: limit must be positive", cfg.ID)
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		return &Source{
			Base:     sources.NewBase(cfg),
			title:    sources.PanelTitle(cfg, "Sismos"),
			endpoint: endpoint,
			settings: settings,
			deps:     deps,
			now:      deps.Clock(),
		}, nil
	}
}

// Source renders the latest seismic events with a tone graded by magnitude.
type Source struct {
	sources.Base
	title    string
	endpoint string
	settings Settings
	deps     sources.Dependencies
	now      func() time.Time
}

// Live implements sources.DataSource.
func (s *Source) Live() bool { return true }

// Invoke implements sources.DataSource.
func (s *Source) Invoke(ctx context.Context) sources.Outcome {
	var collection featureCollection
	err := fetch.GetJSON(ctx, s.deps.Client(), fetch.Request{
		URL: s.endpoint,
		Query: url.Values{
			"format":       {"geojson"},
			"limit":        {strconv.Itoa(s.settings.Limit)},
			"minmagnitude": {strconv.FormatFloat(s.settings.MinMagnitude, 'f', -1, 64)},
		},
		UserAgent: s.deps.UserAgent,
		BodyLimit: s.deps.BodyLimit,
	}, &collection)
	if err != nil {
		return sources.Failure("USGS Error", fmt.Errorf("usgs: %w", err))
	}

	now := s.now()
	panel := sources.Panel{Title: s.title}
	for _, f := range collection.Features {
		props := f.Properties
		if props.Mag == nil {
			continue
		}
		mag := format.Fixed(*props.Mag, 1)
		occurred := time.UnixMilli(props.Time).UTC()
		panel.Rows = append(panel.Rows, sources.Row{
			Title: "M " + mag + " - " + props.Place,
			Link:  props.URL,
			Value: mag,
			Tone:  magnitudeTone(mag),
			Meta:  format.TimeAgo(occurred, now),
			Time:  occurred,
		})
		if coords := f.Geometry.Coordinates; len(coords) >= 2 {
			panel.Points = append(panel.Points, sources.Point{Label: "M " + mag, Lat: coords[1], Lng: coords[0]})
		}
	}
	if len(panel.Rows) == 0 {
		return sources.Failure("Sin sismos", fmt.Errorf("usgs: %w", sources.ErrEmpty))
	}
	return sources.Success(panel)
}

// magnitudeTone grades the displayed (rounded) magnitude.
func magnitudeTone(mag string) sources.Tone {
	value, err := decimal.NewFromString(mag)
	if err != nil {
		return sources.ToneNeutral
	}
	switch {
	case value.GreaterThan(dangerMagnitude):
		return sources.ToneDanger
	case value.GreaterThan(warningMagnitude):
		return sources.ToneWarning
	default:
		return sources.TonePositive
	}
}
