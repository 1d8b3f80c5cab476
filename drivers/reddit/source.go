// Package reddit lists the top posts of a subreddit listing.
package reddit

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/format"
	"github.com/timzifer/colint/runtime/fetch"
	"github.com/timzifer/colint/runtime/sources"
)

const (
	defaultEndpoint = "https://www.reddit.com/r/Colombia/.json"
	defaultBaseURL  = "https://reddit.com"
)

// Settings describes the configuration accepted via driver_settings.
type Settings struct {
	Fetch       int    `yaml:"fetch,omitempty"`
	Limit       int    `yaml:"limit,omitempty"`
	TitleLength int    `yaml:"title_length,omitempty"`
	Label       string `yaml:"label,omitempty"`
	BaseURL     string `yaml:"base_url,omitempty"`
}

type listing struct {
	Data struct {
		Children []struct {
			Data post `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type post struct {
	Title      string  `json:"title"`
	Permalink  string  `json:"permalink"`
	Score      int     `json:"score"`
	Subreddit  string  `json:"subreddit_name_prefixed"`
	CreatedUTC float64 `json:"created_utc"`
	Stickied   bool    `json:"stickied"`
}

// NewFactory returns a sources.Factory for the reddit driver.
func NewFactory() sources.Factory {
	return func(cfg config.SourceConfig, deps sources.Dependencies) (sources.DataSource, error) {
		if cfg.ID == "" {
			return nil, errors.New("source id must not be empty")
		}
		settings := Settings{Fetch: 10, Limit: 5, TitleLength: 60, Label: "r/Colombia", BaseURL: defaultBaseURL}
		if err := cfg.DecodeSettings(&settings); err != nil {
			return nil, err
		}
		if settings.Limit <= 0 || settings.Fetch <= 0 {
			return nil, fmt.Errorf("source %s: fetch and limit must be positive", cfg.ID)
		}
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultEndpoint
		}
		return &Source{
			Base:     sources.NewBase(cfg),
			title:    sources.PanelTitle(cfg, "Reddit"),
			endpoint: endpoint,
			settings: settings,
			deps:     deps,
		}, nil
	}
}

// Source renders the top posts with their score.
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
	var resp listing
	err := fetch.GetJSON(ctx, s.deps.Client(), fetch.Request{
		URL:       s.endpoint,
		Query:     url.Values{"limit": {strconv.Itoa(s.settings.Fetch)}},
		UserAgent: s.deps.UserAgent,
		BodyLimit: s.deps.BodyLimit,
	}, &resp)
	if err != nil {
		return sources.Failure("Reddit no disponible", fmt.Errorf("reddit: %w", err))
	}
	panel := sources.Panel{Title: s.title}
	for _, child := range resp.Data.Children {
		if len(panel.Rows) == s.settings.Limit {
			break
		}
		p := child.Data
		label := p.Subreddit
		if label == "" {
			label = s.settings.Label
		}
		row := sources.Row{
			Title:  format.Truncate(p.Title, s.settings.TitleLength),
			Link:   strings.TrimSuffix(s.settings.BaseURL, "/") + p.Permalink,
			Value:  "↑" + strconv.Itoa(p.Score),
			Detail: label,
		}
		if p.CreatedUTC > 0 {
			row.Time = time.Unix(int64(p.CreatedUTC), 0).UTC()
		}
		panel.Rows = append(panel.Rows, row)
	}
	if len(panel.Rows) == 0 {
		return sources.Failure("Reddit no disponible", fmt.Errorf("reddit: %w", sources.ErrEmpty))
	}
	return sources.Success(panel)
}
