// Package static serves panels whose content is declared in configuration.
package static

import (
	"context"
	"errors"
	"fmt"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/sources"
)

// RowSettings is one configured panel row.
type RowSettings struct {
	Title  string `yaml:"title"`
	Link   string `yaml:"link,omitempty"`
	Value  string `yaml:"value,omitempty"`
	Change string `yaml:"change,omitempty"`
	Tone   string `yaml:"tone,omitempty"`
	Detail string `yaml:"detail,omitempty"`
	Meta   string `yaml:"meta,omitempty"`
}

// Settings describes the configuration accepted via driver_settings.
type Settings struct {
	Rows []RowSettings `yaml:"rows"`
}

var knownTones = map[sources.Tone]struct{}{
	"":                   {},
	sources.TonePositive: {},
	sources.ToneNegative: {},
	sources.ToneNeutral:  {},
	sources.ToneDanger:   {},
	sources.ToneWarning:  {},
}

// NewFactory returns a sources.Factory for the static driver.
func NewFactory() sources.Factory {
	return func(cfg config.SourceConfig, deps sources.Dependencies) (sources.DataSource, error) {
		if cfg.ID == "" {
			return nil, errors.New("source id must not be empty")
		}
		var settings Settings
		if err := cfg.DecodeSettings(&settings); err != nil {
			return nil, err
		}
		if len(settings.Rows) == 0 {
			return nil, fmt.Errorf("source %s: static panel needs at least one row", cfg.ID)
		}
		rows := make([]sources.Row, 0, len(settings.Rows))
		for i, row := range settings.Rows {
			tone := sources.Tone(row.Tone)
			if _, ok := knownTones[tone]; !ok {
				return nil, fmt.Errorf("source %s: row %d: unknown tone %q", cfg.ID, i, row.Tone)
			}
			rows = append(rows, sources.Row{
				Title:  row.Title,
				Link:   row.Link,
				Value:  row.Value,
				Change: row.Change,
				Tone:   tone,
				Detail: row.Detail,
				Meta:   row.Meta,
			})
		}
		return &Source{
			Base:  sources.NewBase(cfg),
			title: sources.PanelTitle(cfg, cfg.ID),
			rows:  rows,
		}, nil
	}
}

// Source always succeeds with its configured rows.
type Source struct {
	sources.Base
	title string
	rows  []sources.Row
}

// Live implements sources.DataSource.
func (s *Source) Live() bool { return false }

// Invoke implements sources.DataSource.
func (s *Source) Invoke(context.Context) sources.Outcome {
	rows := make([]sources.Row, len(s.rows))
	copy(rows, s.rows)
	return sources.MockSuccess(sources.Panel{Title: s.title, Rows: rows})
}
