package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/timzifer/colint/config"
	"github.com/timzifer/colint/drivers/bundle"
	"github.com/timzifer/colint/drivers/mqtt"
	"github.com/timzifer/colint/internal/logging"
	"github.com/timzifer/colint/internal/reload"
	"github.com/timzifer/colint/service"
	"github.com/timzifer/colint/telemetry"
)

type runOptions struct {
	liveView       bool
	liveViewListen string
}

func main() {
	cfgPath := flag.String("config", "configs/colint.yaml", "Path to configuration file")
	configCheck := flag.Bool("config-check", false, "Validate configuration and exit")
	once := flag.Bool("once", false, "Run a single full pass, print the panels and exit")
	liveView := flag.Bool("live-view", false, "Enable live view web interface")
	liveViewListen := flag.String("live-view-listen", "", "Live view listen address (default :18080)")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	if *configCheck {
		os.Exit(executeConfigCheck(cfg))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if *once {
		os.Exit(executeOnce(ctx, cfg))
	}

	opts := runOptions{
		liveView:       *liveView || cfg.LiveView.Enabled,
		liveViewListen: *liveViewListen,
	}

	collector, err := newTelemetryCollector(cfg.Telemetry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "telemetry disabled: %v\n", err)
		collector = telemetry.Noop()
	}

	if cfg.HotReload {
		if err := runWithHotReload(ctx, *cfgPath, cfg, opts, collector); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			log.Fatal().Err(err).Msg("service stopped")
		}
		return
	}

	logger, cleanup, err := logging.Setup(cfg.Name, cfg.Logging)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to setup logger")
	}
	defer cleanup()
	log.Logger = logger

	srv, err := buildService(cfg, logger, collector)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create service")
	}
	defer srv.Close()

	if opts.liveView {
		if err := srv.EnableLiveView(liveViewAddress(cfg, opts)); err != nil {
			logger.Fatal().Err(err).Msg("failed to start live view")
		}
	}

	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal().Err(err).Msg("service stopped with error")
	}
}

// buildService wires the bundled drivers and the configured sinks into a new
// service instance.
func buildService(cfg *config.Config, logger zerolog.Logger, collector telemetry.Collector) (*service.Service, error) {
	opts := bundle.Options()
	opts = append(opts, service.WithSink(service.NewLogSink(logging.Component(logger, cfg.Logging, "sink"))))
	if cfg.Publish.MQTT.Enabled {
		publisher, err := mqtt.NewPublisher(cfg.Publish.MQTT, logging.Component(logger, cfg.Logging, "mqtt"))
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
		opts = append(opts, service.WithSink(publisher))
	}
	srv, err := service.New(cfg, logger, opts...)
	if err != nil {
		return nil, err
	}
	srv.SetTelemetry(collector)
	return srv, nil
}

func liveViewAddress(cfg *config.Config, opts runOptions) string {
	if listen := strings.TrimSpace(opts.liveViewListen); listen != "" {
		return listen
	}
	return cfg.LiveViewListen()
}

func executeConfigCheck(cfg *config.Config) int {
	if err := service.Validate(cfg, zerolog.Nop(), bundle.Options()...); err != nil {
		fmt.Fprintf(os.Stderr, "configuration invalid: %v\n", err)
		return 1
	}

	if len(cfg.Sources) == 0 {
		fmt.Println("No sources configured.")
		return 0
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tDRIVER\tCADENCE\tTIMEOUT\tSTATUS\tMODULE")
	for _, src := range cfg.Sources {
		cadence := src.Cadence
		if cadence == "" {
			cadence = config.CadenceGlobal
		}
		status := "enabled"
		if src.Disable {
			status = "disabled"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n", src.ID, src.Driver, cadence, cfg.RequestTimeout(src), status, describeModule(src.Source))
	}
	_ = w.Flush()

	fmt.Println()
	for _, cadence := range config.Cadences() {
		fmt.Printf("Timer %-6s every %s\n", cadence, cfg.Interval(cadence))
	}
	fmt.Println()
	fmt.Println("Configuration check completed successfully.")
	return 0
}

func executeOnce(ctx context.Context, cfg *config.Config) int {
	logger, cleanup, err := logging.Setup(cfg.Name, cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to setup logger: %v\n", err)
		return 1
	}
	defer cleanup()

	srv, err := service.New(cfg, logger, bundle.Options()...)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create service: %v\n", err)
		return 1
	}
	defer srv.Close()

	tally := srv.RunFullPass(ctx)
	if ctx.Err() != nil {
		return 1
	}

	for _, panel := range srv.Panels() {
		fmt.Printf("[%s] %s (%s)\n", panel.Status, panel.Name, panel.ID)
		if panel.Status == service.PanelError {
			fmt.Printf("    %s\n", panel.Reason)
			continue
		}
		for _, row := range panel.Content.Rows {
			line := row.Title
			if row.Value != "" {
				line += "  " + row.Value
			}
			if row.Change != "" {
				line += "  " + row.Change
			}
			if row.Meta != "" {
				line += "  (" + row.Meta + ")"
			}
			fmt.Printf("    %s\n", line)
		}
	}
	fmt.Printf("\nFuentes activas: %s (en vivo %d) in %s\n", tally.Ratio(), tally.Live, tally.Duration.Round(time.Millisecond))
	return 0
}

func runWithHotReload(ctx context.Context, cfgPath string, initialCfg *config.Config, opts runOptions, collector telemetry.Collector) error {
	if collector == nil {
		collector = telemetry.Noop()
	}
	watcher, err := reload.NewWatcher(cfgPath, initialCfg)
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	cfg := initialCfg
	for {
		logger, cleanup, err := logging.Setup(cfg.Name, cfg.Logging)
		if err != nil {
			return err
		}
		log.Logger = logger

		srv, err := buildService(cfg, logger, collector)
		if err != nil {
			cleanup()
			return err
		}

		if opts.liveView {
			if err := srv.EnableLiveView(liveViewAddress(cfg, opts)); err != nil {
				srv.Close()
				cleanup()
				return err
			}
		}

		runCtx, cancelRun := context.WithCancel(ctx)
		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Run(runCtx)
		}()

		var changed []string

	loop:
		for {
			select {
			case <-ctx.Done():
				cancelRun()
				if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
					srv.Close()
					cleanup()
					return err
				}
				srv.Close()
				cleanup()
				return ctx.Err()
			case err := <-errCh:
				cancelRun()
				srv.Close()
				cleanup()
				return err
			case <-ticker.C:
				changes, err := watcher.Check()
				if err != nil {
					logger.Error().Err(err).Msg("failed to check configuration changes")
					continue
				}
				if len(changes) == 0 {
					continue
				}
				newCfg, err := config.Load(cfgPath)
				if err != nil {
					logger.Error().Err(err).Msg("failed to reload configuration")
					continue
				}
				if err := service.Validate(newCfg, logger, bundle.Options()...); err != nil {
					logger.Error().Err(err).Msg("reloaded configuration invalid")
					continue
				}
				cancelRun()
				if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
					logger.Error().Err(err).Msg("service stopped during reload")
				}
				srv.Close()
				cleanup()
				if err := watcher.Update(cfgPath, newCfg); err != nil {
					logger.Error().Err(err).Msg("failed to update watcher state")
				}
				changed = changes
				cfg = newCfg
				break loop
			}
		}

		for _, file := range changed {
			collector.IncHotReload(file)
		}
	}
}

func newTelemetryCollector(cfg config.TelemetryConfig) (telemetry.Collector, error) {
	if !cfg.Enabled {
		return telemetry.Noop(), nil
	}
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	switch provider {
	case "", "prometheus":
		collector, err := telemetry.NewPrometheusCollector(nil)
		if err != nil {
			return nil, err
		}
		return collector, nil
	default:
		return telemetry.Noop(), fmt.Errorf("unsupported telemetry provider %q", cfg.Provider)
	}
}

func describeModule(ref config.ModuleReference) string {
	name := strings.TrimSpace(ref.Name)
	file := strings.TrimSpace(ref.File)
	desc := strings.TrimSpace(ref.Description)

	label := ""
	if name != "" && file != "" {
		label = fmt.Sprintf("%s (%s)", name, file)
	} else if name != "" {
		label = name
	} else if file != "" {
		label = file
	}
	if desc != "" {
		if label != "" {
			label = fmt.Sprintf("%s: %s", label, desc)
		} else {
			label = desc
		}
	}
	return label
}
