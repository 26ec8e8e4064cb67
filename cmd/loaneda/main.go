package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"github.com/guillermoBallester/loaneda/internal/adapter/chart"
	"github.com/guillermoBallester/loaneda/internal/adapter/csvfile"
	"github.com/guillermoBallester/loaneda/internal/adapter/postgres"
	"github.com/guillermoBallester/loaneda/internal/adapter/xlsx"
	"github.com/guillermoBallester/loaneda/internal/audit"
	"github.com/guillermoBallester/loaneda/internal/config"
	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/guillermoBallester/loaneda/internal/core/service"
	"github.com/guillermoBallester/loaneda/internal/plan"
	"github.com/guillermoBallester/loaneda/internal/telemetry"
	"go.opentelemetry.io/otel/trace"
)

var version = "dev"

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	root := newRootCmd(&cli{})
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app is everything a subcommand needs once configuration is resolved.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	pipeline *service.Pipeline
	closers  []func(context.Context) error
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](ctx); err != nil {
			a.logger.Warn("shutdown", slog.String("error", err.Error()))
		}
	}
}

// setup loads config and the plan, then wires adapters into a pipeline.
func setup(ctx context.Context, o config.Overrides) (*app, error) {
	cfg, err := config.Load(o)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	// Logs go to stderr so command output stays clean.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	logger.Info("starting loaneda",
		slog.String("version", version),
		slog.String("log_level", cfg.LogLevel.String()),
		slog.String("database", redactDSN(cfg.DatabaseURL)),
		slog.String("source_table", cfg.SourceTable),
		slog.String("query_timeout", cfg.QueryTimeout.String()),
		slog.String("checkpoint_dir", cfg.CheckpointDir),
	)

	a := &app{cfg: cfg, logger: logger}

	p := plan.Default()
	if cfg.PlanFile != "" {
		p, err = plan.LoadFromFile(cfg.PlanFile)
		if err != nil {
			return nil, fmt.Errorf("loading plan: %w", err)
		}
		logger.Info("plan loaded", slog.String("file", cfg.PlanFile))
	} else if err := plan.Resolve(p); err != nil {
		return nil, fmt.Errorf("resolving default plan: %w", err)
	}

	// Observability (optional).
	var tracer trace.Tracer
	var inst port.Instrumentation
	if cfg.OTelEnabled {
		provider, err := telemetry.Init(ctx, telemetry.Options{
			ServiceName: "loaneda",
			Version:     version,
			Exporter:    cfg.OTelExporter,
		})
		if err != nil {
			return nil, fmt.Errorf("initializing telemetry: %w", err)
		}
		a.closers = append(a.closers, provider.Shutdown)
		tracer = provider.Tracer()
		inst = telemetry.NewInstruments()
		logger.Info("opentelemetry enabled", slog.String("exporter", cfg.OTelExporter))
	} else {
		tracer = telemetry.NoopTracer()
		inst = telemetry.NoopInstruments()
	}

	// Audit log (optional).
	var auditor port.StageAuditor = port.NoopAuditor{}
	if cfg.AuditLog != "" {
		fa, err := audit.NewFileAuditor(cfg.AuditLog)
		if err != nil {
			a.close(ctx)
			return nil, fmt.Errorf("opening audit log: %w", err)
		}
		auditor = fa
		a.closers = append(a.closers, func(context.Context) error { return fa.Close() })
		logger.Info("audit log enabled", slog.String("path", cfg.AuditLog))
	}

	// Charts (optional).
	var renderer port.Renderer = port.NoopRenderer{}
	if cfg.ChartDir != "" {
		renderer = chart.NewRenderer(cfg.ChartDir, logger)
	}

	// Adapters
	loader := postgres.NewLoader(cfg.DatabaseURL, cfg.QueryTimeout)
	store := csvfile.NewStore()
	reports := xlsx.NewWriter()

	a.pipeline = service.NewPipeline(p, loader, store, renderer, reports, auditor, logger, tracer, inst)
	return a, nil
}

// redactDSN replaces the password in a connection URL for logging.
func redactDSN(dsn string) string {
	if dsn == "" {
		return ""
	}
	u, err := url.Parse(dsn)
	if err != nil {
		return "***"
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
