package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/banknovo/poolbench/bench"
	"github.com/banknovo/poolbench/dialect"
	"github.com/banknovo/poolbench/internal/logging"
	"github.com/banknovo/poolbench/metrics"
)

// Scenario names accepted by --scenarios.
const (
	scenarioDirect  = "direct"
	scenarioPool    = "pool"
	scenarioPgxPool = "pgxpool"
)

func newRunCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the benchmark scenarios in order",
		Example: `  poolbench run
  poolbench run --driver mysql --port 3306 --user root --database test
  poolbench run --driver sqlite --database ./bench.db --count 1000 --verify`,
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := loadConfig(configFile, cmd.Flags())
			if err != nil {
				return err
			}

			log, err := logging.New(v.GetString(cfgKeyLogLevel), v.GetString(cfgKeyLogFormat))
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return run(ctx, runOptions{
				config:      benchConfig(v),
				scenarios:   v.GetStringSlice(cfgKeyScenarios),
				verify:      v.GetBool(cfgKeyVerify),
				metricsFile: v.GetString(cfgKeyMetricsFile),
				out:         cmd.OutOrStdout(),
			}, log)
		},
	}

	def := bench.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file (yaml, json or toml)")
	f.String("driver", def.Endpoint.Driver, "database driver: postgres, mysql or sqlite")
	f.String("host", def.Endpoint.Host, "database host")
	f.Int("port", def.Endpoint.Port, "database port")
	f.String("user", def.Endpoint.User, "database user")
	f.String("password", def.Endpoint.Password, "database password")
	f.String("database", def.Endpoint.Database, "database name, or file path for sqlite")
	f.String("table", def.Table, "scratch table name")
	f.Int("count", def.InsertCount, "inserts per scenario")
	f.Int("pool-size", def.MaxPoolSize, "maximum pool size")
	f.StringSlice("scenarios", defaultScenarios, "scenarios to run in order: direct, pool, pgxpool")
	f.Bool("verify", false, "count stored rows before dropping the scratch table")
	f.String("metrics-file", "", "write Prometheus metrics to this file after the run")
	f.String("log-level", "info", "log level: debug, info, warn or error")
	f.String("log-format", "console", "log format: console or json")
	return cmd
}

type runOptions struct {
	config      bench.Config
	scenarios   []string
	verify      bool
	metricsFile string
	out         io.Writer
}

func run(ctx context.Context, opts runOptions, log *zap.Logger) error {
	target, err := bench.NewTarget(opts.config)
	if err != nil {
		return err
	}
	scenarios, err := buildScenarios(opts.scenarios, target, log)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	recorder, err := metrics.NewRecorder(reg)
	if err != nil {
		return err
	}

	log.Info("starting benchmark",
		zap.String("endpoint", opts.config.Endpoint.String()),
		zap.Int("count", opts.config.InsertCount),
		zap.Int("pool_size", opts.config.MaxPoolSize),
		zap.Strings("scenarios", opts.scenarios),
	)

	r := &bench.Runner{
		Fixture:  bench.NewFixture(target, log),
		Reporter: bench.Reporters{bench.LogReporter{Log: log}, recorder},
		Verify:   opts.verify,
		Log:      log,
	}
	summaries, runErr := r.Run(ctx, scenarios...)

	if opts.metricsFile != "" {
		if err := metrics.WriteFile(opts.metricsFile, reg); err != nil {
			log.Error("write metrics file", zap.String("path", opts.metricsFile), zap.Error(err))
		}
	}
	if len(summaries) > 0 {
		printSummaries(opts.out, summaries)
	}
	return runErr
}

// buildScenarios maps names to scenarios in the order given. Names may also
// be comma-separated within one element, as they arrive from the environment.
func buildScenarios(names []string, target *bench.Target, log *zap.Logger) ([]bench.Scenario, error) {
	var out []bench.Scenario
	for _, entry := range names {
		for _, name := range strings.Split(entry, ",") {
			switch strings.ToLower(strings.TrimSpace(name)) {
			case "":
				continue
			case scenarioDirect:
				out = append(out, bench.NewDirect(target, log))
			case scenarioPool:
				out = append(out, bench.NewPooled(target, log))
			case scenarioPgxPool:
				if target.Dialect.Name() != dialect.Postgres {
					return nil, fmt.Errorf("%w: %s needs postgres, have %s", bench.ErrUnsupported, scenarioPgxPool, target.Dialect.Name())
				}
				out = append(out, bench.NewPgxPooled(target, log))
			default:
				return nil, fmt.Errorf("unknown scenario %q: want %s, %s or %s", name, scenarioDirect, scenarioPool, scenarioPgxPool)
			}
		}
	}
	if len(out) == 0 {
		return nil, errors.New("no scenarios selected")
	}
	return out, nil
}

func printSummaries(w io.Writer, summaries []bench.Summary) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SCENARIO\tELAPSED\tSUCCEEDED\tFAILED\tSTORED")
	for _, s := range summaries {
		stored := "-"
		if s.Stored >= 0 {
			stored = fmt.Sprint(s.Stored)
		}
		fmt.Fprintf(tw, "%s\t%dms\t%d\t%d\t%s\n", s.Scenario, s.Elapsed.Milliseconds(), s.Succeeded, s.Failed, stored)
	}
	_ = tw.Flush()
}
