package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling from strings.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses duration strings like "5s" or "1m".
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return fmt.Errorf("duration value node is nil")
	}
	var raw string
	if err := value.Decode(&raw); err != nil {
		return fmt.Errorf("decode duration: %w", err)
	}
	if raw == "" {
		d.Duration = 0
		return nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	d.Duration = dur
	return nil
}

// MarshalYAML renders the duration as a string.
func (d Duration) MarshalYAML() (interface{}, error) {
	return d.Duration.String(), nil
}

// Cadence selects the timer that re-invokes a source.
type Cadence string

const (
	// CadenceGlobal sources are refreshed only by full passes.
	CadenceGlobal Cadence = "global"
	// CadenceFast sources are additionally refreshed by the fast timer (volatile prices).
	CadenceFast Cadence = "fast"
	// CadenceMedium sources are additionally refreshed by the medium timer (positional data).
	CadenceMedium Cadence = "medium"
)

// Cadences lists the known cadence classes in scheduling order.
func Cadences() []Cadence {
	return []Cadence{CadenceGlobal, CadenceFast, CadenceMedium}
}

// Valid reports whether the cadence is one of the known classes.
func (c Cadence) Valid() bool {
	switch c {
	case CadenceGlobal, CadenceFast, CadenceMedium:
		return true
	default:
		return false
	}
}

// ModuleReference captures metadata about the configuration source that defined an entry.
type ModuleReference struct {
	File        string `json:"file,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// ModuleInclude describes a referenced configuration module.
type ModuleInclude struct {
	Path        string
	Name        string
	Description string
}

// UnmarshalYAML allows module includes to be declared either as scalar strings or structured objects.
func (m *ModuleInclude) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return errors.New("module include node is nil")
	}
	switch value.Kind {
	case yaml.ScalarNode:
		var path string
		if err := value.Decode(&path); err != nil {
			return fmt.Errorf("decode module path: %w", err)
		}
		m.Path = strings.TrimSpace(path)
		return nil
	case yaml.MappingNode:
		type rawModule struct {
			Path        string `yaml:"path"`
			Name        string `yaml:"name"`
			Description string `yaml:"description"`
		}
		var raw rawModule
		if err := value.Decode(&raw); err != nil {
			return fmt.Errorf("decode module include: %w", err)
		}
		if raw.Path == "" {
			return errors.New("module include missing path")
		}
		m.Path = raw.Path
		m.Name = raw.Name
		m.Description = raw.Description
		return nil
	default:
		return fmt.Errorf("unsupported module include node kind %d", value.Kind)
	}
}

// SourceConfig describes one dashboard panel and the upstream that feeds it.
type SourceConfig struct {
	ID             string          `yaml:"id"`
	Name           string          `yaml:"name,omitempty"`
	Icon           string          `yaml:"icon,omitempty"`
	Driver         string          `yaml:"driver"`
	Cadence        Cadence         `yaml:"cadence,omitempty"`
	Endpoint       string          `yaml:"endpoint,omitempty"`
	Timeout        Duration        `yaml:"timeout,omitempty"`
	MaxBodyBytes   int64           `yaml:"max_body_bytes,omitempty"`
	Disable        bool            `yaml:"disable,omitempty"`
	DriverSettings yaml.Node       `yaml:"driver_settings,omitempty"`
	Source         ModuleReference `yaml:"-"`
}

// DecodeSettings decodes the raw driver_settings node into target. A missing
// node leaves target untouched so drivers can pre-populate defaults.
func (s SourceConfig) DecodeSettings(target interface{}) error {
	if s.DriverSettings.Kind == 0 {
		return nil
	}
	if err := s.DriverSettings.Decode(target); err != nil {
		return fmt.Errorf("source %s: decode driver_settings: %w", s.ID, err)
	}
	return nil
}

// IntervalConfig holds the periods of the three refresh timers.
type IntervalConfig struct {
	Global Duration `yaml:"global,omitempty"`
	Fast   Duration `yaml:"fast,omitempty"`
	Medium Duration `yaml:"medium,omitempty"`
}

// SchedulerConfig tunes the interval timers.
type SchedulerConfig struct {
	// AllowOverlap lets a tick start a new invocation while the previous one of
	// the same timer is still running.
	AllowOverlap bool `yaml:"allow_overlap,omitempty"`
}

// HTTPConfig configures the shared upstream HTTP client.
type HTTPConfig struct {
	Timeout      Duration `yaml:"timeout,omitempty"`
	UserAgent    string   `yaml:"user_agent,omitempty"`
	MaxBodyBytes int64    `yaml:"max_body_bytes,omitempty"`
}

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
	// Components overrides the level per component (scheduler, sink,
	// live_view, websocket, mqtt).
	Components map[string]string `yaml:"components,omitempty"`
}

// TelemetryConfig configures runtime telemetry exporters.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
}

// LiveViewConfig configures the embedded dashboard server.
type LiveViewConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen,omitempty"`
}

// MQTTPublishConfig configures the optional MQTT health publisher.
type MQTTPublishConfig struct {
	Enabled        bool                   `yaml:"enabled"`
	Broker         string                 `yaml:"broker"`
	ClientID       string                 `yaml:"client_id,omitempty"`
	Username       string                 `yaml:"username,omitempty"`
	Password       string                 `yaml:"password,omitempty"`
	Topic          string                 `yaml:"topic,omitempty"`
	QoS            byte                   `yaml:"qos,omitempty"`
	Retain         bool                   `yaml:"retain,omitempty"`
	PanelTopics    bool                   `yaml:"panel_topics,omitempty"`
	ConnectTimeout Duration               `yaml:"connect_timeout,omitempty"`
	KeepAlive      Duration               `yaml:"keep_alive,omitempty"`
	HomeAssistant  HomeAssistantDiscovery `yaml:"home_assistant"`
}

// HomeAssistantDiscovery announces the health tally as Home Assistant sensors.
type HomeAssistantDiscovery struct {
	Enabled bool   `yaml:"enabled"`
	Prefix  string `yaml:"prefix,omitempty"`
	Device  string `yaml:"device,omitempty"`
}

// PublishConfig groups the outbound presentation sinks.
type PublishConfig struct {
	MQTT MQTTPublishConfig `yaml:"mqtt"`
}

// Config is the root configuration structure for the dashboard.
type Config struct {
	Name        string          `yaml:"name,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Intervals   IntervalConfig  `yaml:"intervals"`
	Scheduler   SchedulerConfig `yaml:"scheduler"`
	HTTP        HTTPConfig      `yaml:"http"`
	Logging     LoggingConfig   `yaml:"logging"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
	LiveView    LiveViewConfig  `yaml:"live_view"`
	Publish     PublishConfig   `yaml:"publish"`
	Modules     []ModuleInclude `yaml:"modules"`
	Sources     []SourceConfig  `yaml:"sources"`
	HotReload   bool            `yaml:"hot_reload,omitempty"`
	Source      ModuleReference `yaml:"-"`
}

const (
	defaultGlobalInterval = 180 * time.Second
	defaultFastInterval   = 30 * time.Second
	defaultMediumInterval = 45 * time.Second
	defaultHTTPTimeout    = 10 * time.Second
	defaultMaxBodyBytes   = 2 << 20
	defaultLiveViewListen = ":18080"
)

// Load reads and decodes the configuration file (or directory) from disk.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path must not be empty")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("stat config path: %w", err)
	}

	visited := make(map[string]struct{})
	var cfg *Config
	if info.IsDir() {
		cfg, err = loadDir(abs, visited)
	} else {
		cfg, err = loadFile(abs, visited)
	}
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes a single YAML document without resolving module includes.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if len(cfg.Modules) > 0 {
		return nil, errors.New("module includes require loading from a file")
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks identifiers and cadence classes and rejects duplicates.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config must not be nil")
	}
	seen := make(map[string]string, len(cfg.Sources))
	for i := range cfg.Sources {
		src := &cfg.Sources[i]
		if err := ensureIdentifier(src.ID, "source"); err != nil {
			return err
		}
		if prev, ok := seen[src.ID]; ok {
			return fmt.Errorf("source %s declared twice (%s and %s)", src.ID, prev, describeFile(src.Source))
		}
		seen[src.ID] = describeFile(src.Source)
		if strings.TrimSpace(src.Driver) == "" {
			return fmt.Errorf("source %s: driver is required", src.ID)
		}
		if src.Cadence == "" {
			src.Cadence = CadenceGlobal
		}
		if !src.Cadence.Valid() {
			return fmt.Errorf("source %s: unknown cadence %q", src.ID, src.Cadence)
		}
		if src.Timeout.Duration < 0 {
			return fmt.Errorf("source %s: timeout must not be negative", src.ID)
		}
	}
	for name, d := range map[string]Duration{"global": cfg.Intervals.Global, "fast": cfg.Intervals.Fast, "medium": cfg.Intervals.Medium} {
		if d.Duration < 0 {
			return fmt.Errorf("interval %s must not be negative", name)
		}
	}
	if cfg.Publish.MQTT.Enabled && strings.TrimSpace(cfg.Publish.MQTT.Broker) == "" {
		return errors.New("publish.mqtt: broker is required when enabled")
	}
	return nil
}

// Interval returns the timer period configured for a cadence class.
func (c *Config) Interval(cadence Cadence) time.Duration {
	if c == nil {
		c = &Config{}
	}
	switch cadence {
	case CadenceFast:
		if c.Intervals.Fast.Duration > 0 {
			return c.Intervals.Fast.Duration
		}
		return defaultFastInterval
	case CadenceMedium:
		if c.Intervals.Medium.Duration > 0 {
			return c.Intervals.Medium.Duration
		}
		return defaultMediumInterval
	default:
		if c.Intervals.Global.Duration > 0 {
			return c.Intervals.Global.Duration
		}
		return defaultGlobalInterval
	}
}

// RequestTimeout returns the upstream timeout for a source, falling back to the shared HTTP timeout.
func (c *Config) RequestTimeout(src SourceConfig) time.Duration {
	if src.Timeout.Duration > 0 {
		return src.Timeout.Duration
	}
	if c != nil && c.HTTP.Timeout.Duration > 0 {
		return c.HTTP.Timeout.Duration
	}
	return defaultHTTPTimeout
}

// BodyLimit returns the maximum number of response bytes a source may read.
func (c *Config) BodyLimit(src SourceConfig) int64 {
	if src.MaxBodyBytes > 0 {
		return src.MaxBodyBytes
	}
	if c != nil && c.HTTP.MaxBodyBytes > 0 {
		return c.HTTP.MaxBodyBytes
	}
	return defaultMaxBodyBytes
}

// LiveViewListen returns the configured live view address.
func (c *Config) LiveViewListen() string {
	if c == nil || strings.TrimSpace(c.LiveView.Listen) == "" {
		return defaultLiveViewListen
	}
	return c.LiveView.Listen
}

func loadFile(path string, visited map[string]struct{}) (*Config, error) {
	if _, ok := visited[path]; ok {
		return nil, fmt.Errorf("config include cycle detected at %s", path)
	}
	visited[path] = struct{}{}
	defer delete(visited, path)

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	var document yaml.Node
	if err := yaml.Unmarshal(raw, &document); err != nil {
		return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
	}
	if len(document.Content) == 0 || document.Content[0] == nil {
		return nil, fmt.Errorf("config %s is empty", path)
	}
	root := document.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("config %s: top-level YAML document must be a mapping", path)
	}

	var cfg Config
	if err := root.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg.setSource(ModuleReference{File: path, Name: cfg.Name, Description: cfg.Description})

	modules := cfg.Modules
	cfg.Modules = nil

	baseDir := filepath.Dir(path)
	for _, module := range modules {
		if module.Path == "" {
			continue
		}
		modulePath := module.Path
		if !filepath.IsAbs(modulePath) {
			modulePath = filepath.Join(baseDir, module.Path)
		}
		info, err := os.Stat(modulePath)
		if err != nil {
			return nil, fmt.Errorf("load module %s: %w", module.Path, err)
		}
		var child *Config
		if info.IsDir() {
			child, err = loadDir(modulePath, visited)
		} else {
			child, err = loadFile(modulePath, visited)
		}
		if err != nil {
			return nil, fmt.Errorf("load module %s: %w", module.Path, err)
		}
		if child == nil {
			continue
		}
		child.applyModuleMetadata(ModuleReference{
			Name:        firstNonEmpty(module.Name, child.Source.Name),
			Description: firstNonEmpty(module.Description, child.Source.Description),
		})
		mergeConfig(&cfg, child)
	}
	return &cfg, nil
}

func loadDir(path string, visited map[string]struct{}) (*Config, error) {
	if _, ok := visited[path]; ok {
		return nil, fmt.Errorf("config include cycle detected at %s", path)
	}
	visited[path] = struct{}{}
	defer delete(visited, path)

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read config dir %s: %w", path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	result := &Config{}
	result.setSource(ModuleReference{File: path})
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		child, err := loadFile(filepath.Join(path, entry.Name()), visited)
		if err != nil {
			return nil, err
		}
		mergeConfig(result, child)
	}
	return result, nil
}

func ensureIdentifier(value, kind string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s identifier must not be empty", kind)
	}
	if trimmed != value {
		return fmt.Errorf("%s %q must not contain surrounding whitespace", kind, value)
	}
	for idx, r := range trimmed {
		if idx == 0 && unicode.IsDigit(r) {
			return fmt.Errorf("%s %q must not start with a digit", kind, trimmed)
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-') {
			return fmt.Errorf("%s %q contains invalid character %q", kind, trimmed, r)
		}
	}
	return nil
}

func mergeConfig(dst, src *Config) {
	if dst == nil || src == nil {
		return
	}
	if src.Intervals.Global.Duration != 0 {
		dst.Intervals.Global = src.Intervals.Global
	}
	if src.Intervals.Fast.Duration != 0 {
		dst.Intervals.Fast = src.Intervals.Fast
	}
	if src.Intervals.Medium.Duration != 0 {
		dst.Intervals.Medium = src.Intervals.Medium
	}
	if src.Scheduler.AllowOverlap {
		dst.Scheduler.AllowOverlap = true
	}
	if src.HTTP.Timeout.Duration != 0 {
		dst.HTTP.Timeout = src.HTTP.Timeout
	}
	if src.HTTP.UserAgent != "" {
		dst.HTTP.UserAgent = src.HTTP.UserAgent
	}
	if src.HTTP.MaxBodyBytes != 0 {
		dst.HTTP.MaxBodyBytes = src.HTTP.MaxBodyBytes
	}
	if src.Logging.Level != "" {
		dst.Logging.Level = src.Logging.Level
	}
	if src.Logging.Format != "" {
		dst.Logging.Format = src.Logging.Format
	}
	if src.Logging.Loki.Enabled || src.Logging.Loki.URL != "" || len(src.Logging.Loki.Labels) > 0 {
		dst.Logging.Loki = src.Logging.Loki
	}
	if src.Telemetry.Enabled || src.Telemetry.Provider != "" {
		dst.Telemetry = src.Telemetry
	}
	if src.LiveView.Enabled || src.LiveView.Listen != "" {
		dst.LiveView = src.LiveView
	}
	if src.Publish.MQTT.Enabled || src.Publish.MQTT.Broker != "" {
		dst.Publish.MQTT = src.Publish.MQTT
	}
	if src.HotReload {
		dst.HotReload = true
	}
	dst.Sources = append(dst.Sources, src.Sources...)
}

func (c *Config) setSource(meta ModuleReference) {
	if c == nil {
		return
	}
	if meta.Name == "" {
		meta.Name = c.Name
	}
	if meta.Description == "" {
		meta.Description = c.Description
	}
	c.Source = meta
	for i := range c.Sources {
		c.Sources[i].Source = mergeInitialSource(c.Sources[i].Source, meta)
	}
}

func (c *Config) applyModuleMetadata(meta ModuleReference) {
	if c == nil {
		return
	}
	c.Source = mergeModuleOverride(c.Source, meta)
	for i := range c.Sources {
		c.Sources[i].Source = mergeModuleOverride(c.Sources[i].Source, meta)
	}
}

func mergeInitialSource(child, meta ModuleReference) ModuleReference {
	if child.File == "" && meta.File != "" {
		child.File = meta.File
	}
	if child.Name == "" && meta.Name != "" {
		child.Name = meta.Name
	}
	if child.Description == "" && meta.Description != "" {
		child.Description = meta.Description
	}
	return child
}

func mergeModuleOverride(base, override ModuleReference) ModuleReference {
	if override.File != "" {
		base.File = override.File
	}
	if override.Name != "" {
		base.Name = override.Name
	}
	if override.Description != "" {
		base.Description = override.Description
	}
	return base
}

func describeFile(ref ModuleReference) string {
	if ref.File == "" {
		return "<inline>"
	}
	return ref.File
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}
