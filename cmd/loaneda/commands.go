package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/guillermoBallester/loaneda/internal/config"
	"github.com/guillermoBallester/loaneda/internal/core/port"
	"github.com/guillermoBallester/loaneda/internal/core/service"
	"github.com/spf13/cobra"
)

// cli holds raw flag values. Only flags the user changed become overrides.
type cli struct {
	databaseURL     string
	credentialsFile string
	sourceTable     string
	queryTimeout    time.Duration
	planFile        string
	checkpointDir   string
	chartDir        string
	reportFile      string
	logLevel        string
	auditLog        string
	otel            bool
	otelExporter    string
}

func newRootCmd(c *cli) *cobra.Command {
	root := &cobra.Command{
		Use:           "loaneda",
		Short:         "Extract, profile, clean and analyse the loan payments dataset",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	f := root.PersistentFlags()
	f.StringVar(&c.databaseURL, "database-url", "", "PostgreSQL connection URL (overrides DATABASE_URL)")
	f.StringVar(&c.credentialsFile, "credentials-file", "", "YAML file with RDS_HOST, RDS_PORT, RDS_USER, RDS_PASSWORD, RDS_DATABASE")
	f.StringVar(&c.sourceTable, "source-table", "", "relation to extract (default loan_payments)")
	f.DurationVar(&c.queryTimeout, "query-timeout", 0, "extraction statement timeout")
	f.StringVar(&c.planFile, "plan-file", "", "YAML plan with column lists and thresholds")
	f.StringVar(&c.checkpointDir, "checkpoint-dir", "", "directory for CSV checkpoints")
	f.StringVar(&c.chartDir, "chart-dir", "", "directory for PNG charts, empty disables charts")
	f.StringVar(&c.reportFile, "report-file", "", "Excel workbook to write, empty disables it")
	f.StringVar(&c.logLevel, "log-level", "", "debug, info, warn or error")
	f.StringVar(&c.auditLog, "audit-log", "", "append one NDJSON line per stage to this file")
	f.BoolVar(&c.otel, "otel", false, "enable OpenTelemetry tracing and metrics")
	f.StringVar(&c.otelExporter, "otel-exporter", "", "otlp or stdout")

	root.AddCommand(
		newExtractCmd(c),
		newProfileCmd(c),
		newCleanCmd(c),
		newMetricsCmd(c),
		newRunCmd(c),
	)
	return root
}

// overrides converts changed flags into config overrides.
func (c *cli) overrides(cmd *cobra.Command) config.Overrides {
	f := cmd.Flags()
	o := config.Overrides{OTelEnabled: c.otel}
	str := func(name string, v string) *string {
		if f.Changed(name) {
			return &v
		}
		return nil
	}
	o.DatabaseURL = str("database-url", c.databaseURL)
	o.CredentialsFile = str("credentials-file", c.credentialsFile)
	o.SourceTable = str("source-table", c.sourceTable)
	o.PlanFile = str("plan-file", c.planFile)
	o.CheckpointDir = str("checkpoint-dir", c.checkpointDir)
	o.ChartDir = str("chart-dir", c.chartDir)
	o.ReportFile = str("report-file", c.reportFile)
	o.LogLevel = str("log-level", c.logLevel)
	o.AuditLog = str("audit-log", c.auditLog)
	o.OTelExporter = str("otel-exporter", c.otelExporter)
	if f.Changed("query-timeout") {
		d := c.queryTimeout
		o.QueryTimeout = &d
	}
	return o
}

// parseFlags parses global flags only, for inspection.
func parseFlags(args []string) (config.Overrides, error) {
	c := &cli{}
	root := newRootCmd(c)
	if err := root.ParseFlags(args); err != nil {
		return config.Overrides{}, err
	}
	return c.overrides(root), nil
}

// withApp resolves configuration and runs fn with a wired pipeline.
func (c *cli) withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	a, err := setup(ctx, c.overrides(cmd))
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	return fn(ctx, a)
}

func checkpointPath(a *app, input, name string) string {
	if input != "" {
		return input
	}
	return filepath.Join(a.cfg.CheckpointDir, name)
}

func newExtractCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "extract",
		Short: "Extract the source relation, normalize types and write the transformed checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.cfg.RequireDatabase(); err != nil {
					return err
				}
				_, _, err := a.pipeline.Extract(ctx, a.cfg.SourceTable, a.cfg.CheckpointDir)
				return err
			})
		},
	}
}

func newProfileCmd(c *cli) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Profile a checkpoint and write the quality sheet of the report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.pipeline.Load(ctx, checkpointPath(a, input, service.TransformedCheckpoint))
				if err != nil {
					return err
				}
				q := a.pipeline.Profile(ctx, t)
				return a.pipeline.WriteReport(ctx, a.cfg.ReportFile, port.Report{Quality: q})
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "checkpoint to read (default <checkpoint-dir>/"+service.TransformedCheckpoint+")")
	return cmd
}

func newCleanCmd(c *cli) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Run the cleaning stages on the transformed checkpoint and write the cleaned checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.pipeline.Load(ctx, checkpointPath(a, input, service.TransformedCheckpoint))
				if err != nil {
					return err
				}
				quality := a.pipeline.Profile(ctx, t)
				cleaned, stages, err := a.pipeline.Clean(ctx, t)
				if err != nil {
					return err
				}
				out := filepath.Join(a.cfg.CheckpointDir, service.CleanedCheckpoint)
				if err := a.pipeline.SaveCheckpoint(ctx, cleaned, out); err != nil {
					return err
				}
				return a.pipeline.WriteReport(ctx, a.cfg.ReportFile, port.Report{Quality: quality, Stages: stages})
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "checkpoint to read (default <checkpoint-dir>/"+service.TransformedCheckpoint+")")
	return cmd
}

func newMetricsCmd(c *cli) *cobra.Command {
	var input string
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Compute recovery, loss and risk metrics from the transformed checkpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				t, err := a.pipeline.Load(ctx, checkpointPath(a, input, service.TransformedCheckpoint))
				if err != nil {
					return err
				}
				repaired, stages, err := a.pipeline.Repair(ctx, t)
				if err != nil {
					return err
				}
				m, err := a.pipeline.Metrics(ctx, repaired)
				if err != nil {
					return err
				}
				return a.pipeline.WriteReport(ctx, a.cfg.ReportFile, port.Report{
					Quality: service.Profile(repaired),
					Stages:  stages,
					Metrics: &m,
				})
			})
		},
	}
	cmd.Flags().StringVar(&input, "input", "", "checkpoint to read (default <checkpoint-dir>/"+service.TransformedCheckpoint+")")
	return cmd
}

func newRunCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run every step: extract, normalize, profile, clean, metrics and report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.withApp(cmd, func(ctx context.Context, a *app) error {
				if err := a.cfg.RequireDatabase(); err != nil {
					return err
				}
				err := a.pipeline.Run(ctx, service.RunOptions{
					Relation:      a.cfg.SourceTable,
					CheckpointDir: a.cfg.CheckpointDir,
					ReportFile:    a.cfg.ReportFile,
				})
				if err != nil {
					return fmt.Errorf("run %s: %w", a.pipeline.RunID(), err)
				}
				return nil
			})
		},
	}
}
