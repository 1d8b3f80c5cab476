// Package rss renders news panels from RSS feeds converted to JSON by an
// rss2json compatible proxy.
package rss

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/format"
	"github.com/timzifer/colint/runtime/fetch"
	"github.com/timzifer/colint/runtime/sources"
)

type proxyResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message"`
	Items   []proxyItem `json:"items"`
}

type proxyItem struct {
	Title      string   `json:"title"`
	Link       string   `json:"link"`
	PubDate    string   `json:"pubDate"`
	Author     string   `json:"author"`
	Categories []string `json:"categories"`
}

type item struct {
	proxyItem
	source    string
	published time.Time
}

// NewFactory returns a sources.Factory for the rss driver.
func NewFactory() sources.Factory {
	return func(cfg config.SourceConfig, deps sources.Dependencies) (sources.DataSource, error) {
		if cfg.ID == "" {
			return nil, errors.New("source id must not be empty")
		}
		settings, err := parseSettings(cfg)
		if err != nil {
			return nil, err
		}
		proxy := cfg.Endpoint
		if proxy == "" {
			proxy = defaultProxy
		}
		return &Source{
			Base:     sources.NewBase(cfg),
			title:    sources.PanelTitle(cfg, cfg.ID),
			proxy:    proxy,
			settings: settings,
			deps:     deps,
			now:      deps.Clock(),
			logger:   deps.Logger.With().Str("source", cfg.ID).Logger(),
		}, nil
	}
}

// Source renders one feed, or several merged feeds, as a news panel.
type Source struct {
	sources.Base
	title    string
	proxy    string
	settings resolvedSettings
	deps     sources.Dependencies
	now      func() time.Time
	logger   zerolog.Logger
}

// Live implements sources.DataSource.
func (s *Source) Live() bool { return true }

// Invoke implements sources.DataSource.
func (s *Source) Invoke(ctx context.Context) sources.Outcome {
	var items []item
	if s.settings.merge {
		items = s.fetchMerged(ctx)
	} else {
		fetched, err := s.fetchFeed(ctx, s.settings.feeds[0])
		if errors.Is(err, sources.ErrEmpty) {
			return sources.Failure(s.settings.emptyReason, err)
		}
		if err != nil {
			return sources.Failure("Error Feed", err)
		}
		items = fetched
	}
	items = s.filter(items)
	if len(items) > s.settings.limit {
		items = items[:s.settings.limit]
	}
	if len(items) == 0 {
		return sources.Failure(s.settings.emptyReason, fmt.Errorf("rss: %w", sources.ErrEmpty))
	}

	now := s.now()
	panel := sources.Panel{Title: s.title}
	for _, it := range items {
		row := sources.Row{
			Title: it.Title,
			Link:  it.Link,
			Time:  it.published,
		}
		if s.settings.titleLength > 0 {
			row.Title = format.Truncate(it.Title, s.settings.titleLength)
		}
		if !it.published.IsZero() {
			row.Meta = format.TimeAgo(it.published, now)
		}
		if s.settings.merge {
			row.Detail = it.source
		}
		panel.Rows = append(panel.Rows, row)
	}
	return sources.Success(panel)
}

// fetchMerged fetches every feed concurrently, waits for all of them and
// merges whatever arrived, newest first. Failed feeds contribute nothing.
func (s *Source) fetchMerged(ctx context.Context) []item {
	results := make([][]item, len(s.settings.feeds))
	var wg sync.WaitGroup
	for i, feed := range s.settings.feeds {
		wg.Add(1)
		go func(i int, feed Feed) {
			defer wg.Done()
			fetched, err := s.fetchFeed(ctx, feed)
			if err != nil {
				s.logger.Debug().Err(err).Str("feed", feed.URL).Msg("feed skipped")
				return
			}
			results[i] = fetched
		}(i, feed)
	}
	wg.Wait()

	var merged []item
	for _, r := range results {
		merged = append(merged, r...)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].published.After(merged[j].published)
	})
	return merged
}

func (s *Source) fetchFeed(ctx context.Context, feed Feed) ([]item, error) {
	var resp proxyResponse
	err := fetch.GetJSON(ctx, s.deps.Client(), fetch.Request{
		URL:       s.proxy,
		Query:     url.Values{"rss_url": {feed.URL}},
		UserAgent: s.deps.UserAgent,
		BodyLimit: s.deps.BodyLimit,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("rss %s: %w", feed.URL, err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("rss %s: %w: proxy status %q %s", feed.URL, sources.ErrEmpty, resp.Status, resp.Message)
	}
	items := make([]item, 0, len(resp.Items))
	for _, raw := range resp.Items {
		items = append(items, item{
			proxyItem: raw,
			source:    feed.Source,
			published: parsePubDate(raw.PubDate),
		})
	}
	return items, nil
}

func (s *Source) filter(items []item) []item {
	if s.settings.filter == nil {
		return items
	}
	now := s.now()
	kept := items[:0:0]
	for _, it := range items {
		ok, err := matches(s.settings.filter, it, now)
		if err != nil {
			s.logger.Debug().Err(err).Str("title", it.Title).Msg("filter evaluation failed")
			continue
		}
		if ok {
			kept = append(kept, it)
		}
	}
	return kept
}

func matches(program *vm.Program, it item, now time.Time) (bool, error) {
	env := map[string]interface{}{
		"title":      it.Title,
		"link":       it.Link,
		"author":     it.Author,
		"source":     it.source,
		"categories": it.Categories,
		"age_hours":  now.Sub(it.published).Hours(),
	}
	out, err := vm.Run(program, env)
	if err != nil {
		return false, err
	}
	ok, _ := out.(bool)
	return ok, nil
}

var pubDateLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	time.RFC3339,
}

// parsePubDate reads the proxy's UTC timestamp; unknown layouts yield zero.
func parsePubDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range pubDateLayouts {
		if ts, err := time.Parse(layout, raw); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}
