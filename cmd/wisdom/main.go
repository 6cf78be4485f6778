package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/hpungsan/wisdom/internal/config"
	"github.com/hpungsan/wisdom/internal/db"
	"github.com/hpungsan/wisdom/internal/logging"
	"github.com/hpungsan/wisdom/internal/mcp"
	"github.com/hpungsan/wisdom/internal/metrics"
	"github.com/hpungsan/wisdom/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"classify": true, "drop": true, "attribute": true, "doc": true,
	"serve": true, "help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
  wisdom

  Attribution documents for narrative wisdom drops

  Usage: wisdom <command> [options]
         wisdom --help

  MCP server mode requires piped input.`)
}

func main() {
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}
	baseDir := filepath.Join(homeDir, ".wisdom")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = ""
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync() //nolint:errcheck

	if code := run(baseDir, cfg, logger); code != 0 {
		logger.Sync() //nolint:errcheck
		os.Exit(code)
	}
}

// run opens the store and dispatches to CLI or MCP mode. It returns the exit code.
func run(baseDir string, cfg *config.Config, logger *zap.Logger) int {
	database, err := db.Init(baseDir)
	if err != nil {
		logger.Error("failed to initialize database", zap.String("dir", baseDir), zap.Error(err))
		return 1
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		logger.Warn("unknown tools in disabled_tools", zap.Strings("tools", unknown))
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		logger.Warn("unknown types in disabled_types", zap.Strings("types", unknown))
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	engine := ops.NewEngine(database, ops.WithLogger(logger), ops.WithMetrics(m))

	if isCLIMode() {
		app := newCLIApp(&deps{
			db:       database,
			cfg:      cfg,
			engine:   engine,
			logger:   logger,
			gatherer: prometheus.DefaultGatherer,
		})
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			return 1
		}
		return 0
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'wisdom --help' for usage.\n")
		return 1
	}

	if err := mcp.Run(database, cfg, engine, Version); err != nil {
		logger.Error("MCP server stopped", zap.Error(err))
		return 1
	}
	return 0
}
