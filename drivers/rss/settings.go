package rss

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/timzifer/colint/config"
)

const (
	defaultProxy       = "https://api.rss2json.com/v1/api.json"
	defaultSingleLimit = 5
	defaultMergedLimit = 8
)

// Feed is one RSS document fetched through the proxy.
type Feed struct {
	URL    string `yaml:"url"`
	Source string `yaml:"source,omitempty"`
}

// Settings describes the configuration accepted via driver_settings. A
// single feed keeps the proxy order; several feeds are merged newest first.
type Settings struct {
	Feed        string `yaml:"feed,omitempty"`
	Source      string `yaml:"source,omitempty"`
	Feeds       []Feed `yaml:"feeds,omitempty"`
	Limit       int    `yaml:"limit,omitempty"`
	TitleLength int    `yaml:"title_length,omitempty"`
	Filter      string `yaml:"filter,omitempty"`
	EmptyReason string `yaml:"empty_reason,omitempty"`
}

type resolvedSettings struct {
	feeds       []Feed
	merge       bool
	limit       int
	titleLength int
	filter      *vm.Program
	emptyReason string
}

func parseSettings(cfg config.SourceConfig) (resolvedSettings, error) {
	var settings Settings
	if err := cfg.DecodeSettings(&settings); err != nil {
		return resolvedSettings{}, err
	}
	resolved := resolvedSettings{
		feeds:       append([]Feed(nil), settings.Feeds...),
		titleLength: settings.TitleLength,
		emptyReason: settings.EmptyReason,
	}
	if settings.Feed != "" {
		if len(settings.Feeds) > 0 {
			return resolvedSettings{}, fmt.Errorf("source %s: feed and feeds are mutually exclusive", cfg.ID)
		}
		resolved.feeds = []Feed{{URL: settings.Feed, Source: settings.Source}}
	}
	if len(resolved.feeds) == 0 {
		return resolvedSettings{}, fmt.Errorf("source %s: no feed configured", cfg.ID)
	}
	for i, feed := range resolved.feeds {
		if strings.TrimSpace(feed.URL) == "" {
			return resolvedSettings{}, fmt.Errorf("source %s: feed %d has no url", cfg.ID, i)
		}
		if feed.Source == "" {
			resolved.feeds[i].Source = cfg.Name
		}
	}
	resolved.merge = len(resolved.feeds) > 1
	switch {
	case settings.Limit < 0:
		return resolvedSettings{}, fmt.Errorf("source %s: limit must not be negative", cfg.ID)
	case settings.Limit > 0:
		resolved.limit = settings.Limit
	case resolved.merge:
		resolved.limit = defaultMergedLimit
	default:
		resolved.limit = defaultSingleLimit
	}
	if resolved.titleLength < 0 {
		return resolvedSettings{}, fmt.Errorf("source %s: title_length must not be negative", cfg.ID)
	}
	if resolved.emptyReason == "" {
		resolved.emptyReason = "Sin datos"
	}
	if filter := strings.TrimSpace(settings.Filter); filter != "" {
		program, err := expr.Compile(filter, expr.Env(map[string]interface{}{}), expr.AllowUndefinedVariables(), expr.AsBool())
		if err != nil {
			return resolvedSettings{}, fmt.Errorf("source %s: compile filter: %w", cfg.ID, err)
		}
		resolved.filter = program
	}
	return resolved, nil
}
