package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/nao1215/packagebot/internal/config"
	"github.com/nao1215/packagebot/internal/database"
	"github.com/nao1215/packagebot/internal/log"
	"github.com/nao1215/packagebot/internal/metadata"
	"github.com/nao1215/packagebot/internal/metrics"
	"github.com/nao1215/packagebot/internal/model"
	"github.com/nao1215/packagebot/internal/pipeline"
	"github.com/nao1215/packagebot/internal/report"
	"github.com/nao1215/packagebot/internal/tracing"
	"github.com/nao1215/packagebot/internal/wiki"
)

// errRunIncomplete is returned when the run finished but some pages failed.
var errRunIncomplete = errors.New("run finished with failed pages")

// scanRoot is the tree root inside the billy filesystem rooted at the tree.
const scanRoot = "/"

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [user] [password] [tree] [endpoint]",
		Short: "Harvest the package tree and create missing wiki pages",
		Long: `Run logs in to the wiki, parses every metadata.xml below the tree and creates
a page for each category and package that does not exist yet.

A directory directly below the tree root is a category; anything deeper is
a package of the most recently seen category.

Credentials come from the positional arguments, the PACKAGEBOT_USER and
PACKAGEBOT_PASSWORD environment variables or a .env file, in that order.

Examples:
  # Publish /usr/portage to docs.funtoo.org with four workers
  packagebot run Packagebot secret -j 4

  # Use another tree and wiki, credentials from the environment
  PACKAGEBOT_USER=bot PACKAGEBOT_PASSWORD=secret packagebot run "" "" ./tree https://wiki.example.org

  # Write a Markdown summary and Prometheus metrics
  packagebot run --markdown -o report.md --metrics-file packagebot.prom`,
		Args: cobra.MaximumNArgs(4),
		RunE: runRunCmd,
	}

	cmd.Flags().IntP("jobs", "j", config.DefaultJobs, "Number of workers parsing metadata")
	cmd.Flags().String("strategy", config.DefaultStrategy, "Work distribution: queue or partition")
	cmd.Flags().String("useragent", config.DefaultUserAgent, "User-Agent header for wiki requests")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout, "Timeout for each wiki request")
	cmd.Flags().String("proxy", "", "SOCKS5 proxy for wiki traffic (host:port)")
	cmd.Flags().Int("title-window", config.DefaultTitleWindow, "Titles remembered by the duplicate guard")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .packagebot in current or home directory)")
	cmd.Flags().String("env-file", config.DefaultEnvFile, "dotenv file with wiki credentials")

	cmd.Flags().BoolP("json", "J", false, "Output JSON report (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false, "Output Markdown report (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "", "Write report to the given file instead of stdout")

	cmd.Flags().Bool("no-history", false, "Do not record this run in the history database")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics in text format to this file")
	cmd.Flags().Bool("trace", false, "Enable OpenTelemetry tracing (stdout unless OTEL_EXPORTER_OTLP_ENDPOINT is set)")

	return cmd
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.New(cmd.ErrOrStderr(), log.Options{Verbose: cfg.Verbose})
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runPublish(ctx, cfg, cmd.OutOrStdout(), logger)
}

// buildConfig layers defaults, the config file, flags, positional
// arguments and finally the environment for missing credentials.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	path := config.FindConfigFile(cfg.ConfigFilePath)
	switch {
	case path != "":
		cf, err := config.LoadConfigFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
		cf.Apply(cfg)
	case cfg.ConfigFilePath != "":
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
	}

	if flags.Changed("jobs") {
		if cfg.Jobs, err = flags.GetInt("jobs"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("strategy") {
		if cfg.Strategy, err = flags.GetString("strategy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("useragent") {
		if cfg.UserAgent, err = flags.GetString("useragent"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("proxy") {
		if cfg.Proxy, err = flags.GetString("proxy"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("title-window") {
		if cfg.TitleWindow, err = flags.GetInt("title-window"); err != nil {
			return nil, err
		}
	}

	if cfg.EnvFile, err = flags.GetString("env-file"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	if noHistory {
		cfg.SaveHistory = false
	}
	if cfg.MetricsFile, err = flags.GetString("metrics-file"); err != nil {
		return nil, err
	}
	if cfg.Trace, err = flags.GetBool("trace"); err != nil {
		return nil, err
	}
	cfg.Verbose = getVerboseFlag(cmd)

	// Positional arguments: user, password, tree, endpoint. Empty strings
	// keep the lower-precedence value.
	targets := []*string{&cfg.User, &cfg.Password, &cfg.Tree, &cfg.Endpoint}
	for i, arg := range args {
		if arg != "" {
			*targets[i] = arg
		}
	}

	if err := config.LoadEnvFile(cfg.EnvFile); err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	return cfg, nil
}

// runPublish wires the wiki client, the worker pool and the pipeline steps
// and executes one run.
func runPublish(ctx context.Context, cfg *config.Config, out io.Writer, logger *slog.Logger) error {
	traceCfg := tracing.DefaultConfig()
	traceCfg.ServiceVersion = getVersion()
	traceCfg.Enabled = traceCfg.Enabled || cfg.Trace
	shutdown, err := tracing.Setup(ctx, traceCfg)
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			logger.Warn("failed to flush traces", "error", err)
		}
	}()

	strategy, err := pipeline.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}

	client, err := wiki.NewClient(cfg.WikiConfig(), wiki.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create wiki client: %w", err)
	}

	tree := osfs.New(cfg.Tree)
	pool := pipeline.NewPool(metadata.NewLoader(tree),
		pipeline.WithWorkers(cfg.Jobs),
		pipeline.WithStrategy(strategy),
		pipeline.WithPoolLogger(logger),
	)

	p := pipeline.New(pipeline.WithLogger(logger))
	p.AddSteps(
		pipeline.NewLoginStep(client, cfg.User, cfg.Password),
		pipeline.NewHarvestStep(tree, scanRoot, pool, pipeline.WithHarvestLogger(logger)),
		pipeline.NewPublishStep(client,
			pipeline.WithPublishLogger(logger),
			pipeline.WithTitleWindow(cfg.TitleWindow),
		),
		pipeline.NewLogoutStep(client, logger),
	)

	runReport := model.NewRunReport(cfg.Tree, cfg.Endpoint)
	runReport.Workers = pool.Workers()
	runReport.Strategy = string(pool.Strategy())

	logger.Info("starting run",
		"tree", cfg.Tree,
		"endpoint", client.APIURL(),
		"jobs", cfg.Jobs,
		"strategy", cfg.Strategy,
	)
	runErr := p.Execute(ctx, runReport)

	if err := outputReport(cfg, out, runReport); err != nil {
		logger.Error("report failed", "error", err)
	}
	if cfg.SaveHistory {
		if err := saveRun(cfg.DBDir, runReport, logger); err != nil {
			logger.Error("failed to save run history", "error", err)
		}
	}
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error("failed to write metrics", "file", cfg.MetricsFile, "error", err)
		}
	}

	if runErr != nil {
		return runErr
	}
	if !runReport.Succeeded() {
		return errRunIncomplete
	}
	return nil
}

// outputReport writes the report in the configured format.
func outputReport(cfg *config.Config, stdout io.Writer, runReport *model.RunReport) error {
	output := stdout
	if cfg.ReportFile != "" {
		if dir := filepath.Dir(cfg.ReportFile); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create output directory: %w", err)
			}
		}
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	_, err := newReportWriter(cfg, output).Write(runReport)
	return err
}

func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.JSONReport:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	default:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	}
}

// saveRun records the run in the history database. The run context may
// already be cancelled, so the write uses its own context.
func saveRun(dir string, runReport *model.RunReport, logger *slog.Logger) error {
	db, err := database.Open(dir, database.DefaultOptions())
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := db.SaveRun(context.Background(), runReport)
	if err != nil {
		return err
	}
	logger.Info("run saved", "id", id, "db", db.Path())
	return nil
}
