package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/emmett/voxnote/internal/bootstrap"
	"github.com/emmett/voxnote/internal/config"
	"github.com/emmett/voxnote/internal/server/mcp"
	"github.com/emmett/voxnote/internal/transcription"
	"github.com/emmett/voxnote/internal/transcription/vosk"
)

var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
	GitBranch = "unknown"
)

var (
	configFile   = flag.String("config", "", "Path to configuration file")
	modelName    = flag.String("model", "", "Use a specific offline model (default: vosk-model-small-en-us-0.15)")
	autoDownload = flag.Bool("auto-download", false, "Download the offline model if it is missing")
	showVersion  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Voxnote MCP v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if *modelName != "" {
		cfg.Transcription.Offline.Model = *modelName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "MCP server error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger, closer, err := bootstrap.NewLogger(cfg)
	if err != nil {
		return err
	}
	defer closer.Close()

	rt, err := bootstrap.Build(ctx, cfg, logger, bootstrap.Options{
		NewEngine:    func() transcription.Engine { return vosk.New() },
		AutoDownload: *autoDownload,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn().Err(err).Msg("shutdown incomplete")
		}
	}()

	monitorCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = rt.Run(monitorCtx) }()

	server := mcp.NewServer(mcp.Config{
		ServerName:    "voxnote",
		ServerVersion: fmt.Sprintf("%s (%s)", Version, GitCommit),
		Transcriber:   rt.Transcriber,
		Settings:      bootstrap.AppOptions(cfg).Settings,
		Catalog:       rt.Catalog,
	}, rt.Orchestrator, logger)

	return server.Run(ctx)
}
