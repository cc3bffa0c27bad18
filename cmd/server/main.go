package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/emmett/voxnote/internal/bootstrap"
	"github.com/emmett/voxnote/internal/config"
	grpcserver "github.com/emmett/voxnote/internal/server/grpc"
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
	port         = flag.Int("port", 0, "gRPC server port (default from config: 50051)")
	modelName    = flag.String("model", "", "Offline model name (default: vosk-model-small-en-us-0.15)")
	autoDownload = flag.Bool("auto-download", false, "Download the offline model if it is missing")
	showVersion  = flag.Bool("version", false, "Show version information")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("Voxnote gRPC Server v%s\n", Version)
		fmt.Printf("  Commit:  %s\n", GitCommit)
		fmt.Printf("  Branch:  %s\n", GitBranch)
		fmt.Printf("  Built:   %s\n", BuildTime)
		os.Exit(0)
	}

	fmt.Printf("Voxnote gRPC Server v%s (commit: %s)\n", Version, GitCommit)

	cfg, err := config.LoadWithFallback(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: Failed to load config: %v\n", err)
		cfg = config.DefaultConfig()
	}
	if *port != 0 {
		cfg.Server.GRPCPort = *port
	}
	if *modelName != "" {
		cfg.Transcription.Offline.Model = *modelName
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
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

	server := grpcserver.NewServer(grpcserver.Config{
		Host: cfg.Server.Host,
		Port: cfg.Server.GRPCPort,
	}, rt.Orchestrator, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rt.Run(gctx) })
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		fmt.Println("\nShutting down...")
		server.Stop()
		return nil
	})
	return g.Wait()
}
