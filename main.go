package main

import (
	"context"
	dbsql "database/sql"
	"dbmetrics/collector"
	"dbmetrics/config"
	"dbmetrics/logger"
	"dbmetrics/metrics"
	"dbmetrics/plugin"
	"dbmetrics/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
)

const version = "0.2.0"

// dependencies opens the two external connections of a run
type dependencies struct {
	openDB     func(ctx context.Context, log *logger.Logger, backend string, cfg config.DbConnectionConfig) (*dbsql.DB, error)
	openWriter func(ctx context.Context, log *logger.Logger, cfg config.RunConfig) (metrics.PointWriter, error)
}

func defaultDependencies() dependencies {
	return dependencies{
		openDB:     sql.Connect,
		openWriter: openWriter,
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := realMain(ctx, os.Args, os.Stdout, defaultDependencies())
	stop()
	os.Exit(code)
}

// realMain runs one check and returns the plugin exit code. Exactly one
// status line is written to stdout.
func realMain(ctx context.Context, args []string, stdout io.Writer, deps dependencies) int {
	program, flags := args[0], args[1:]

	cfg, err := config.Load(program, flags)
	if errors.Is(err, flag.ErrHelp) {
		config.Usage(stdout, program, flags)
		return 0
	}
	if err != nil {
		return plugin.Report(stdout, plugin.Wrap(plugin.StageConfig, err), "")
	}

	log, err := logger.NewByConfig(cfg.Log)
	if err != nil {
		return plugin.Report(stdout, plugin.Wrap(plugin.StageConfig, fmt.Errorf("error while initializing log: %w", err)), "")
	}
	defer log.Close()

	log = log.With("run_id", uuid.NewString(), "backend", cfg.Backend)
	slog.SetDefault(log.Logger)

	log.Info(ctx, "Check started", "version", version, "target", cfg.Target, "dry_run", cfg.DryRun)

	err = run(ctx, cfg, log, deps)
	if err != nil {
		log.Error(ctx, err, "Check failed", "stage", plugin.StageOf(err))
	} else {
		log.Info(ctx, "Check finished", "target", cfg.Target)
	}

	return plugin.Report(stdout, err, fmt.Sprintf("%s Metrics for %s", cfg.Variant.Label, cfg.Target))
}

// run performs Connect -> (query -> emit)* and returns a *plugin.RunError on failure
func run(ctx context.Context, cfg config.RunConfig, log *logger.Logger, deps dependencies) error {
	queries, err := collector.Queries(cfg.Backend)
	if err != nil {
		return plugin.Wrap(plugin.StageConfig, err)
	}

	db, err := deps.openDB(ctx, log, cfg.Backend, cfg.Database)
	if err != nil {
		return plugin.Wrap(plugin.StageConnect, err)
	}
	defer db.Close()

	writer, err := deps.openWriter(ctx, log, cfg)
	if err != nil {
		return plugin.Wrap(plugin.StageMetricsStore, err)
	}
	defer writer.Close()

	emitter := metrics.NewEmitter(writer, cfg.Hostname, cfg.HostGroup, log)
	return collector.New(db, emitter, queries, log).Run(ctx)
}

// openWriter returns the line protocol printer in dry-run mode and a
// pinged InfluxDB client otherwise
func openWriter(ctx context.Context, log *logger.Logger, cfg config.RunConfig) (metrics.PointWriter, error) {
	if cfg.DryRun {
		log.Info(ctx, "Dry run, points are printed to stderr")
		return metrics.NewLineWriter(os.Stderr), nil
	}

	writer, err := metrics.NewInfluxWriter(cfg.Influx)
	if err != nil {
		return nil, err
	}
	if err := writer.Ping(ctx); err != nil {
		writer.Close()
		return nil, err
	}

	log.Info(ctx, "Connected to InfluxDB", "url", cfg.Influx.InfluxURL(), "database", cfg.Influx.DbName)
	return writer, nil
}
