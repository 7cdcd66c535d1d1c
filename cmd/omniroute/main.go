// Package main is the entry point of the omniroute router.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/fd1az/omniroute/business/blockchain"
	"github.com/fd1az/omniroute/business/pricing"
	"github.com/fd1az/omniroute/business/routing"
	routingDI "github.com/fd1az/omniroute/business/routing/di"
	"github.com/fd1az/omniroute/business/routing/domain"
	"github.com/fd1az/omniroute/internal/apm"
	"github.com/fd1az/omniroute/internal/config"
	"github.com/fd1az/omniroute/internal/logger"
	"github.com/fd1az/omniroute/internal/metrics"
	"github.com/fd1az/omniroute/internal/monolith"
	"github.com/fd1az/omniroute/pkg/ui"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

const usage = `usage: omniroute <command> [flags]

commands:
  serve   run the HTTP API, health and metrics endpoints
  quote   price one request and print the best route
  watch   re-quote a request on an interval in a terminal dashboard

run "omniroute <command> -h" for the flags of a command.
`

// commonFlags are accepted by every command.
type commonFlags struct {
	configPath string
	topology   string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.configPath, "config", "", "Path to configuration file")
	fs.StringVar(&c.topology, "topology", "", "Path to the routing topology file (overrides routing.topology_file)")
}

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	// Setup context with cancellation on shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var err error
	switch cmd, args := os.Args[1], os.Args[2:]; cmd {
	case "-version", "--version", "version":
		fmt.Printf("omniroute %s (commit: %s, built: %s)\n", version, commit, buildDate)
		return
	case "serve":
		err = runServe(ctx, args)
	case "quote":
		err = runQuote(ctx, args)
	case "watch":
		err = runWatch(ctx, args)
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usage)
		os.Exit(2)
	}

	if err != nil && !errors.Is(err, flag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c commonFlags) (*config.Config, error) {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if c.topology != "" {
		cfg.Routing.TopologyFile = c.topology
	}
	return cfg, nil
}

// app holds the started monolith and its telemetry.
type app struct {
	mono   *monolith.App
	log    *logger.Logger
	traces apm.TraceProvider
}

// start builds the container and starts every module in dependency order.
func start(ctx context.Context, cfg *config.Config, log *logger.Logger, serve bool) (*app, error) {
	traces, err := apm.NewTraceProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		return nil, fmt.Errorf("failed to init tracing: %w", err)
	}

	mono := monolith.New(cfg, log, version)
	modules := []monolith.Module{
		&blockchain.Module{}, // ledger clients, used by routing adapters
		&pricing.Module{},    // USD reference
		&routing.Module{Serve: serve},
	}

	if err := mono.RegisterModules(modules...); err != nil {
		_ = traces.Stop()
		return nil, fmt.Errorf("failed to register modules: %w", err)
	}
	if err := startModules(ctx, mono, modules); err != nil {
		_ = mono.Close()
		_ = traces.Stop()
		return nil, err
	}
	return &app{mono: mono, log: log, traces: traces}, nil
}

// startModules turns factory panics (bad topology, bad addresses) into
// errors.
func startModules(ctx context.Context, mono *monolith.App, modules []monolith.Module) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to start modules: %v", r)
		}
	}()
	if err := mono.StartModules(ctx, modules...); err != nil {
		return fmt.Errorf("failed to start modules: %w", err)
	}
	return nil
}

func (a *app) close() {
	_ = a.mono.Close()
	if err := a.traces.Stop(); err != nil {
		a.log.Warn(context.Background(), "trace provider shutdown", "error", err)
	}
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	var common commonFlags
	common.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(common)
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)
	log.Info(ctx, "starting omniroute",
		"version", version,
		"environment", cfg.App.Environment,
	)

	var prom *metrics.PromServer
	if cfg.Telemetry.Enabled {
		mp, err := metrics.NewMetricProvider(
			metrics.WithServiceName(cfg.Telemetry.ServiceName),
			metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
		)
		if err != nil {
			return fmt.Errorf("failed to init metrics: %w", err)
		}
		defer mp.Shutdown(context.Background())

		port := cfg.Telemetry.PrometheusPort
		if port == 0 {
			port = 9090
		}
		prom = metrics.ServePrometheusMetrics(mp, log, metrics.WithPort(strconv.Itoa(port)))
	}

	a, err := start(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.mono.Health().Start(); err != nil {
		log.Warn(ctx, "failed to start health server", "error", err)
	}

	log.Info(ctx, "all modules started", "checks", a.mono.Health().Names())
	<-ctx.Done()
	log.Info(context.Background(), "shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.mono.Health().Stop(shutdownCtx); err != nil {
		log.Warn(shutdownCtx, "health server shutdown", "error", err)
	}
	if prom != nil {
		_ = prom.Stop(shutdownCtx)
	}
	return nil
}

func runQuote(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	var (
		common commonFlags
		req    requestFlags
	)
	common.register(fs)
	req.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(common)
	if err != nil {
		return err
	}
	log := logger.New(os.Stderr, logger.LevelWarn, cfg.App.Name, nil)

	a, err := start(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.close()

	request, err := req.build(a.mono.AssetRegistry(), cfg.Routing.DefaultSlippageBps, time.Now())
	if err != nil {
		return err
	}

	res, err := routingDI.GetDispatcher(a.mono.Services()).RouteExactIn(ctx, request)
	if err != nil {
		return err
	}
	fmt.Println(ui.RenderQuote(res))
	return nil
}

func runWatch(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	var (
		common   commonFlags
		req      requestFlags
		interval time.Duration
		history  int
	)
	common.register(fs)
	req.register(fs)
	fs.DurationVar(&interval, "interval", 15*time.Second, "Time between quotes")
	fs.IntVar(&history, "history", 12, "Quotes kept in the history panel")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(common)
	if err != nil {
		return err
	}
	// the dashboard owns the terminal
	log := logger.New(io.Discard, logger.ParseLevel(cfg.App.LogLevel), cfg.App.Name, nil)

	a, err := start(ctx, cfg, log, false)
	if err != nil {
		return err
	}
	defer a.close()

	registry := a.mono.AssetRegistry()
	first, err := req.build(registry, cfg.Routing.DefaultSlippageBps, time.Now())
	if err != nil {
		return err
	}

	dispatcher := routingDI.GetDispatcher(a.mono.Services())
	quote := func(ctx context.Context) (*domain.QuoteResult, error) {
		// deadlines are relative to each round
		request, err := req.build(registry, cfg.Routing.DefaultSlippageBps, time.Now())
		if err != nil {
			return nil, err
		}
		return dispatcher.RouteExactIn(ctx, request)
	}
	health := a.mono.Health()
	status := func(ctx context.Context) []ui.StatusMsg {
		st := health.Run(ctx)
		out := make([]ui.StatusMsg, 0, len(st.Checks))
		for name, c := range st.Checks {
			out = append(out, ui.StatusMsg{Name: name, Healthy: c.Healthy, Message: c.Message})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
		return out
	}

	return ui.Run(ctx, ui.New(ui.Config{
		Title:       title(first),
		Interval:    interval,
		Timeout:     cfg.Routing.RouteTimeout + cfg.Routing.ProviderTimeout,
		HistorySize: history,
	}, quote, status))
}
