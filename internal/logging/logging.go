package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/grafana/loki-client-go/loki"
	"github.com/prometheus/common/model"
	"github.com/rs/zerolog"

	"github.com/timzifer/colint/config"
)

const defaultApp = "colint"

// Setup creates the dashboard logger. Every entry carries the dashboard name;
// the same name becomes the Loki "app" label unless one is configured. The
// returned cleanup function flushes and stops the optional Loki client.
func Setup(name string, cfg config.LoggingConfig) (zerolog.Logger, func(), error) {
	level, err := parseLevel(cfg.Level, zerolog.InfoLevel)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("parse log level: %w", err)
	}
	for _, component := range sortedKeys(cfg.Components) {
		if _, err := parseLevel(cfg.Components[component], level); err != nil {
			return zerolog.Logger{}, nil, fmt.Errorf("parse log level of component %s: %w", component, err)
		}
	}

	var stdout io.Writer = os.Stdout
	if strings.EqualFold(cfg.Format, "text") {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	writers := []io.Writer{stdout}
	cleanup := func() {}

	if cfg.Loki.Enabled {
		lokiWriter, closer, err := newLokiWriter(cfg.Loki, appLabel(name))
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		writers = append(writers, lokiWriter)
		cleanup = closer
	}

	ctx := zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp()
	if name = strings.TrimSpace(name); name != "" {
		ctx = ctx.Str("dashboard", name)
	}
	return ctx.Logger().Level(level), cleanup, nil
}

// Component scopes logger to a named component and applies the level
// configured for it under logging.components. Levels were checked by Setup;
// an unparsable override keeps the inherited level.
func Component(logger zerolog.Logger, cfg config.LoggingConfig, name string) zerolog.Logger {
	scoped := logger.With().Str("component", name).Logger()
	raw, ok := cfg.Components[name]
	if !ok {
		return scoped
	}
	level, err := parseLevel(raw, logger.GetLevel())
	if err != nil {
		return scoped
	}
	return scoped.Level(level)
}

// Source scopes logger to one data source.
func Source(logger zerolog.Logger, src config.SourceConfig) zerolog.Logger {
	cadence := src.Cadence
	if cadence == "" {
		cadence = config.CadenceGlobal
	}
	return logger.With().
		Str("source", src.ID).
		Str("driver", src.Driver).
		Str("cadence", string(cadence)).
		Logger()
}

func parseLevel(raw string, fallback zerolog.Level) (zerolog.Level, error) {
	if strings.TrimSpace(raw) == "" {
		return fallback, nil
	}
	return zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
}

// appLabel turns the dashboard name into a Loki label value.
func appLabel(name string) string {
	label := strings.ToLower(strings.Join(strings.Fields(name), "-"))
	if label == "" {
		return defaultApp
	}
	return label
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func lokiLabels(cfg config.LokiConfig, app string) model.LabelSet {
	labels := model.LabelSet{}
	for k, v := range cfg.Labels {
		labels[model.LabelName(k)] = model.LabelValue(v)
	}
	if _, ok := labels["app"]; !ok {
		labels["app"] = model.LabelValue(app)
	}
	return labels
}

func newLokiWriter(cfg config.LokiConfig, app string) (io.Writer, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("loki url is required")
	}
	labels := lokiLabels(cfg, app)
	if err := labels.Validate(); err != nil {
		return nil, nil, fmt.Errorf("loki labels: %w", err)
	}
	lokiCfg, err := loki.NewDefaultConfig(cfg.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("prepare loki config: %w", err)
	}
	client, err := loki.New(lokiCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("create loki client: %w", err)
	}
	return &lokiWriter{client: client, labels: labels}, client.Stop, nil
}

type lokiWriter struct {
	client *loki.Client
	labels model.LabelSet
}

func (l *lokiWriter) Write(p []byte) (int, error) {
	entry := strings.TrimSpace(string(p))
	if entry == "" {
		return len(p), nil
	}
	err := l.client.Handle(l.labels, time.Now(), entry)
	return len(p), err
}
