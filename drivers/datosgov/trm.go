// Package datosgov reads Socrata datasets published on datos.gov.co: the
// official exchange rate (TRM) and SECOP public procurement contracts.
package datosgov

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/runtime/fetch"
	"github.com/timzifer/colint/runtime/sources"
)

type trmRecord struct {
	Valor         string `json:"valor"`
	Unidad        string `json:"unidad"`
	VigenciaDesde string `json:"vigenciadesde"`
	VigenciaHasta string `json:"vigenciahasta"`
}

// NewTRMFactory returns a sources.Factory for the trm driver.
func NewTRMFactory() sources.Factory {
	return func(cfg config.SourceConfig, deps sources.Dependencies) (sources.DataSource, error) {
		if cfg.ID == "" {
			return nil, errors.New("source id must not be empty")
		}
		settings, err := parseTRMSettings(cfg)
		if err != nil {
			return nil, err
		}
		fallback, err := decimal.NewFromString(settings.Fallback)
		if err != nil {
			return nil, fmt.Errorf("source %s: invalid fallback %q: %w", cfg.ID, settings.Fallback, err)
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultTRMEndpoint
		}
		return &TRMSource{
			Base:     sources.NewBase(cfg),
			title:    sources.PanelTitle(cfg, "Mercados CO"),
			endpoint: endpoint,
			settings: settings,
			fallback: fallback,
			deps:     deps,
		}, nil
	}
}

// TRMSource renders the latest official USD/COP rate followed by static
// market quotes.
type TRMSource struct {
	sources.Base
	title    string
	endpoint string
	settings TRMSettings
	fallback decimal.Decimal
	deps     sources.Dependencies
}

// Live implements sources.DataSource.
func (s *TRMSource) Live() bool { return true }

// Invoke implements sources.DataSource. A dataset without records, or a
// record without a value, renders the configured fallback rate.
func (s *TRMSource) Invoke(ctx context.Context) sources.Outcome {
	var records []trmRecord
	err := fetch.GetJSON(ctx, s.deps.Client(), fetch.Request{
		URL: s.endpoint,
		Query: url.Values{
			"$limit": {"1"},
			"$order": {"vigenciadesde DESC"},
		},
		UserAgent: s.deps.UserAgent,
		BodyLimit: s.deps.BodyLimit,
	}, &records)
	if err != nil {
		return sources.Failure("Error TRM", fmt.Errorf("trm: %w", err))
	}
	rate := s.fallback
	meta := "fallback"
	if len(records) > 0 && strings.TrimSpace(records[0].Valor) != "" {
		rate, err = decimal.NewFromString(strings.TrimSpace(records[0].Valor))
		if err != nil {
			return sources.Failure("Error TRM", fmt.Errorf("trm: %w: valor %q", sources.ErrParse, records[0].Valor))
		}
		meta = records[0].VigenciaDesde
	}

	panel := sources.Panel{Title: s.title}
	panel.Rows = append(panel.Rows, sources.Row{
		Title:  s.settings.Label,
		Value:  "$" + rate.StringFixed(2),
		Change: s.settings.Change,
		Tone:   toneOf(!strings.HasPrefix(s.settings.Change, "-")),
		Meta:   meta,
	})
	for _, market := range s.settings.Markets {
		panel.Rows = append(panel.Rows, sources.Row{
			Title:  market.Name,
			Value:  "$" + market.Price,
			Change: market.Change,
			Tone:   toneOf(market.Positive),
		})
	}
	return sources.Success(panel)
}

func toneOf(positive bool) sources.Tone {
	if positive {
		return sources.TonePositive
	}
	return sources.ToneNegative
}
