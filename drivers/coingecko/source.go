// Package coingecko feeds the crypto panel from the CoinGecko simple price API.
package coingecko

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/format"
	"github.com/timzifer/colint/runtime/fetch"
	"github.com/timzifer/colint/runtime/sources"
)

// NewFactory returns a sources.Factory for the coingecko driver.
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
			title:    sources.PanelTitle(cfg, "Crypto"),
			endpoint: endpoint,
			settings: settings,
			deps:     deps,
		}, nil
	}
}

// Source renders prices and 24h changes for a fixed list of coins.
type Source struct {
	sources.Base
	title    string
	endpoint string
	settings Settings
	deps     sources.Dependencies
}

// Live implements sources.DataSource.
func (s *Source) Live() bool { return true }

// Invoke implements sources.DataSource.
func (s *Source) Invoke(ctx context.Context) sources.Outcome {
	vs := s.settings.VsCurrency
	var quotes map[string]map[string]*float64
	err := fetch.GetJSON(ctx, s.deps.Client(), fetch.Request{
		URL: s.endpoint,
		Query: url.Values{
			"ids":                 {strings.Join(s.settings.Coins, ",")},
			"vs_currencies":       {vs},
			"include_24hr_change": {"true"},
		},
		UserAgent: s.deps.UserAgent,
		BodyLimit: s.deps.BodyLimit,
	}, &quotes)
	if err != nil {
		return sources.Failure("Error cargando crypto", fmt.Errorf("coingecko: %w", err))
	}

	panel := sources.Panel{Title: s.title}
	prices := make(map[string]float64, len(quotes))
	for _, id := range s.settings.Coins {
		quote, ok := quotes[id]
		if !ok || quote[vs] == nil {
			continue
		}
		price := *quote[vs]
		prices[id] = price
		change := 0.0
		if v := quote[vs+"_24h_change"]; v != nil {
			change = *v
		}
		tone := sources.TonePositive
		if change < 0 {
			tone = sources.ToneNegative
		}
		panel.Rows = append(panel.Rows, sources.Row{
			Title:  s.settings.symbol(id),
			Value:  format.USD(price),
			Change: format.Change(change),
			Tone:   tone,
		})
	}
	if len(panel.Rows) == 0 {
		return sources.Failure("Sin datos", fmt.Errorf("coingecko: %w", sources.ErrEmpty))
	}
	panel.Ticker = s.ticker(prices)
	return sources.Success(panel)
}

// ticker is only rendered when every configured ticker coin was quoted.
func (s *Source) ticker(prices map[string]float64) []sources.Row {
	if len(s.settings.Ticker) == 0 {
		return nil
	}
	rows := make([]sources.Row, 0, len(s.settings.Ticker))
	for _, id := range s.settings.Ticker {
		price, ok := prices[id]
		if !ok {
			return nil
		}
		rows = append(rows, sources.Row{Title: s.settings.symbol(id), Value: format.USD(price)})
	}
	return rows
}
