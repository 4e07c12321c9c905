// Command relfetch is a debugging CLI around the batch fetch library: it
// loads an entity mapping, selects a set of root rows and prefetches the
// requested relationship paths, printing the populated graph as JSON.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"relfetch/config"
	"relfetch/fetch"
	"relfetch/internal/logging"
	"relfetch/internal/observability"
	"relfetch/orm"
	"relfetch/planner"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Version is set at build time via -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("relfetch error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run() error {
	table := pflag.String("table", "", "Root table to select entities from")
	paths := pflag.StringSlice("path", nil, "Relationship path to prefetch (repeatable, dotted for multi-hop)")
	backrefs := pflag.Bool("backrefs", false, "Also populate inverse relationships on fetched children")
	limit := pflag.Uint64("limit", 100, "Maximum number of root rows to select (0 = all)")
	showVersion := pflag.Bool("version", false, "Print version and exit")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if *showVersion {
		fmt.Printf("relfetch %s\n", Version)
		return nil
	}
	if *table == "" {
		return fmt.Errorf("no root table given: set --table")
	}

	logger := logging.NewLogger(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	})
	slog.SetDefault(logger.Logger)

	reg, err := config.LoadMapping(cfg.MappingFile)
	if err != nil {
		return err
	}

	ctx := context.Background()

	if cfg.Observability.MetricsEnabled {
		mp, err := observability.InitMeterProvider(observability.Config{
			ServiceName:    cfg.Observability.ServiceName,
			ServiceVersion: Version,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize metrics: %w", err)
		}
		defer func() { _ = mp.Shutdown(ctx, logger.Logger) }()
	}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	session := orm.NewSession(orm.NewStandardExecutor(db), reg, logger.Logger)

	rootTable, err := reg.Table(*table)
	if err != nil {
		return err
	}
	plan, err := planner.Roots(rootTable, *limit)
	if err != nil {
		return err
	}
	entities, err := session.Query(ctx, rootTable, plan)
	if err != nil {
		return fmt.Errorf("failed to select %s rows: %w", *table, err)
	}
	logger.Info("selected root entities",
		slog.String("table", *table),
		slog.Int("count", len(entities)),
	)

	if err := fetch.BatchFetch(ctx, session, entities, buildSpecs(*paths, *backrefs)...); err != nil {
		return fmt.Errorf("batch fetch failed: %w", err)
	}

	out := make([]map[string]any, len(entities))
	for i, entity := range entities {
		out[i] = entity.Export()
	}
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(out); err != nil {
		return err
	}

	if cfg.Observability.MetricsEnabled {
		dumpMetrics(logger)
	}
	return nil
}

// buildSpecs turns the --path flag values into fetch specifiers, wrapping
// each one for backref population when requested.
func buildSpecs(paths []string, backrefs bool) []any {
	specs := make([]any, len(paths))
	for i, path := range paths {
		if backrefs {
			specs[i] = fetch.WithBackrefs(path)
		} else {
			specs[i] = path
		}
	}
	return specs
}

// dumpMetrics logs the gathered fetch metrics so one-shot runs still show
// what the batch saved.
func dumpMetrics(logger *logging.Logger) {
	families, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		logger.Warn("failed to gather metrics", slog.String("error", err.Error()))
		return
	}
	for _, family := range families {
		if !strings.HasPrefix(family.GetName(), "relfetch_") {
			continue
		}
		for _, m := range family.GetMetric() {
			switch {
			case m.GetCounter() != nil:
				logger.Info("metric",
					slog.String("name", family.GetName()),
					slog.Float64("value", m.GetCounter().GetValue()),
				)
			case m.GetHistogram() != nil:
				logger.Info("metric",
					slog.String("name", family.GetName()),
					slog.Uint64("count", m.GetHistogram().GetSampleCount()),
					slog.Float64("sum", m.GetHistogram().GetSampleSum()),
				)
			}
		}
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*sql.DB, error) {
	var db *sql.DB
	var err error
	if cfg.Observability.MetricsEnabled {
		db, err = otelsql.Open("mysql", cfg.Database.DSN(),
			otelsql.WithAttributes(semconv.DBSystemMySQL))
		if err == nil {
			if _, statsErr := otelsql.RegisterDBStatsMetrics(db,
				otelsql.WithAttributes(semconv.DBSystemMySQL)); statsErr != nil {
				logger.Warn("failed to register DB stats metrics",
					slog.String("error", statsErr.Error()))
			}
		}
	} else {
		db, err = sql.Open("mysql", cfg.Database.DSN())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.Database.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Database.Pool.MaxLifetime)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}
