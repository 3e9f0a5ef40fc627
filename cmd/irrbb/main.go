package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/quantrisk/irrbb/internal/application/pipeline"
	irrbbhttp "github.com/quantrisk/irrbb/internal/interfaces/http"
	irrbbio "github.com/quantrisk/irrbb/internal/io"
	applog "github.com/quantrisk/irrbb/internal/log"
	"github.com/quantrisk/irrbb/internal/metrics"
	"github.com/quantrisk/irrbb/internal/persistence"
	"github.com/quantrisk/irrbb/internal/persistence/postgres"
)

var (
	flagPositions   string
	flagAssumptions string
	flagMarket      string
	flagScenarios   string
	flagFormat      string
	flagVerbose     bool
	flagJSONLogs    bool
	flagDSN         string
	flagOut         string

	flagServeHost string
	flagServePort int
)

// rootCmd is the base command for the irrbb CLI
var rootCmd = &cobra.Command{
	Use:   "irrbb",
	Short: "Banking-book interest-rate risk valuation engine",
	Long: `irrbb values a banking-book portfolio under the Basel interest-rate
shock scenarios: it builds the discount curve, projects contractual and
behavioral cash flows, and reports EVE sensitivity against Tier-1 capital.`,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("irrbb - banking-book interest-rate risk valuation")
		fmt.Println("Use 'irrbb run --positions portfolio.csv' to value a portfolio")
	},
}

// runCmd values the portfolio under every configured scenario
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full valuation: baseline plus all shock scenarios",
	Long: `Run the baseline valuation and every configured shock scenario, then
print the EVE delta report.

Example usage:
  irrbb run --positions portfolio.csv                 # Table report
  irrbb run --positions portfolio.csv --format=json   # JSON report
  irrbb run --positions portfolio.csv --dsn=$PG_DSN   # Persist the run`,
	RunE: runValuation,
}

// gapCmd prints the baseline repricing-gap table
var gapCmd = &cobra.Command{
	Use:   "gap",
	Short: "Print the baseline repricing-gap table",
	RunE:  runGap,
}

// curveCmd prints the baseline or a shocked discount curve
var curveCmd = &cobra.Command{
	Use:   "curve [scenario]",
	Short: "Print the discount curve, optionally under a named shock scenario",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCurve,
}

// serveCmd runs a valuation and serves the results over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a valuation and expose the results on a read-only HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(runCmd, gapCmd, curveCmd, serveCmd)

	for _, cmd := range []*cobra.Command{runCmd, gapCmd, curveCmd, serveCmd} {
		cmd.Flags().StringVar(&flagPositions, "positions", "positions.csv", "Path to the portfolio CSV")
		cmd.Flags().StringVar(&flagAssumptions, "assumptions", "config/assumptions.yaml", "Path to the assumptions file")
		cmd.Flags().StringVar(&flagMarket, "market", "config/market.yaml", "Path to the market-rates file")
		cmd.Flags().StringVar(&flagScenarios, "scenarios", "config/scenarios.yaml", "Path to the shock-scenarios file")
		cmd.Flags().BoolVar(&flagVerbose, "verbose", false, "Enable debug logging")
		cmd.Flags().BoolVar(&flagJSONLogs, "json-logs", false, "Emit structured JSON logs instead of console output")
	}
	runCmd.Flags().StringVar(&flagFormat, "format", "table", "Output format: table, json, csv")
	gapCmd.Flags().StringVar(&flagFormat, "format", "table", "Output format: table, json, csv")
	runCmd.Flags().StringVar(&flagOut, "out", "", "Also write the full report as JSON to this path (atomic)")
	runCmd.Flags().StringVar(&flagDSN, "dsn", "", "PostgreSQL DSN for persisting run results (optional)")
	serveCmd.Flags().StringVar(&flagDSN, "dsn", "", "PostgreSQL DSN for persisting run results (optional)")
	serveCmd.Flags().StringVar(&flagServeHost, "host", "127.0.0.1", "Listen address")
	serveCmd.Flags().IntVar(&flagServePort, "port", 8080, "Listen port")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if flagVerbose {
		level = zerolog.DebugLevel
	}
	return applog.Setup(os.Stderr, level, flagJSONLogs)
}

func runValuation(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	engine, assumptions, positions, err := buildEngine(logger)
	if err != nil {
		return err
	}

	progress := applog.NewProgress(logger, "scenarios", len(engine.Scenarios))
	engine.OnScenario = progress.Step
	report, err := engine.Run(cmd.Context(), positions, assumptions.Tier1Capital)
	if err != nil {
		return err
	}
	progress.Finish()

	if flagDSN != "" {
		if err := persistRun(cmd.Context(), logger, report, assumptions.Tier1Capital); err != nil {
			return err
		}
	}
	if flagOut != "" {
		if err := irrbbio.WriteJSONAtomic(flagOut, report); err != nil {
			return err
		}
		logger.Info().Str("path", flagOut).Msg("report written")
	}
	return outputReport(report, flagFormat)
}

func runGap(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	engine, _, positions, err := buildEngine(logger)
	if err != nil {
		return err
	}
	baseline, err := engine.RunBaseline(cmd.Context(), positions)
	if err != nil {
		return err
	}
	return outputGap(baseline, flagFormat)
}

func runCurve(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	engine, _, _, err := buildEngine(logger)
	if err != nil {
		return err
	}
	return outputCurve(engine, args)
}

func runServe(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	engine, assumptions, positions, err := buildEngine(logger)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()
	engine.Metrics = reg

	report, err := engine.Run(cmd.Context(), positions, assumptions.Tier1Capital)
	if err != nil {
		return err
	}

	var store irrbbhttp.ReportStore
	if flagDSN != "" {
		repo, err := openRunStore(cmd.Context(), logger, report, assumptions.Tier1Capital)
		if err != nil {
			return err
		}
		store = repo
	} else {
		mem := irrbbhttp.NewMemoryStore()
		mem.Record(report, assumptions.Tier1Capital)
		store = mem
	}

	cfg := irrbbhttp.DefaultServerConfig()
	cfg.Host = flagServeHost
	cfg.Port = flagServePort
	server, err := irrbbhttp.NewServer(cfg, store, reg, logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- server.Start() }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-stop:
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(ctx)
}

// persistRun saves one finished run to PostgreSQL.
func persistRun(ctx context.Context, logger zerolog.Logger, report *pipeline.RunReport, tier1 float64) error {
	_, err := openRunStore(ctx, logger, report, tier1)
	return err
}

// openRunStore connects to PostgreSQL, ensures the schema, and saves the
// report. The returned repo stays open for serving.
func openRunStore(ctx context.Context, logger zerolog.Logger, report *pipeline.RunReport, tier1 float64) (persistence.RunsRepo, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", flagDSN)
	if err != nil {
		return nil, fmt.Errorf("connect run store: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	repo := postgres.NewRunsRepo(db, 10*time.Second)
	run, scenarios, gap := persistence.FromReport(report, tier1)
	if err := repo.SaveRun(ctx, run, scenarios, gap); err != nil {
		return nil, err
	}
	logger.Info().Str("run_id", run.RunID).Msg("run persisted")
	return repo, nil
}
