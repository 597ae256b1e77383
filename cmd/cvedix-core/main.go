package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/cvedix/edge-ai-core/internal/httpapi"
	"github.com/cvedix/edge-ai-core/internal/instance"
	"github.com/cvedix/edge-ai-core/internal/nodefactory"
	"github.com/cvedix/edge-ai-core/internal/nodepool"
	"github.com/cvedix/edge-ai-core/internal/pipeline"
	"github.com/cvedix/edge-ai-core/internal/platform"
	"github.com/cvedix/edge-ai-core/internal/securt"
	"github.com/cvedix/edge-ai-core/internal/solution"
	"github.com/cvedix/edge-ai-core/internal/stats"
	"github.com/cvedix/edge-ai-core/internal/sysconfig"
)

// Version information (set at build time with -ldflags).
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:     "cvedix-core",
	Short:   "Edge AI pipeline control plane",
	Long:    "cvedix-core orchestrates video analytics pipelines: instance lifecycle, node pool management, and the SecuRT analytics facade.",
	Version: Version,
	Run: func(cmd *cobra.Command, args []string) {
		runServer()
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("cvedix-core %s\n", Version)
		if BuildTime != "unknown" {
			fmt.Printf("Built: %s\n", BuildTime)
		}
		if GitCommit != "unknown" {
			fmt.Printf("Commit: %s\n", GitCommit)
		}
	},
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration and exit",
	Run: func(cmd *cobra.Command, args []string) {
		store, err := sysconfig.New(dataRootPath("config.json"))
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
			os.Exit(1)
		}
		tree, _ := store.Get("")
		fmt.Printf("%+v\n", tree)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func dataRootPath(name string) string {
	root := os.Getenv("CVEDIX_DATA_ROOT")
	if root == "" {
		root = "./cvedix_data"
	}
	return filepath.Join(root, name)
}

func runServer() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	config, err := sysconfig.New(dataRootPath("config.json"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	if err := config.Watch(func() {
		log.Info().Msg("configuration reloaded from disk")
	}); err != nil {
		log.Warn().Err(err).Msg("failed to start config watcher, live reload disabled")
	}

	probe := platform.New()
	log.Info().Str("platform", string(probe.DetectPlatform())).Str("host_role", probe.HostRole()).Msg("platform probed")

	pool := nodepool.New()
	pool.SeedDefaults()
	nodesSnapshotPath := dataRootPath("nodes.json")
	if err := pool.LoadSnapshot(nodesSnapshotPath); err != nil {
		log.Warn().Err(err).Msg("failed to load node pool snapshot, starting empty")
	}

	solutions := solution.NewRegistry()
	for _, sol := range solution.DefaultSolutions() {
		solutions.Register(sol)
	}

	factory := nodefactory.New(config, probe)
	builder := pipeline.New(solutions, pool, factory)
	collector := stats.NewCollector()
	engine := nodefactory.NewInProcessEngine()
	registry := instance.NewRegistry()
	instances := instance.NewManager(registry, builder, config, engine, collector)
	securtMgr := securt.NewManager(instances)

	stats.InitMetrics()

	server := httpapi.NewServer(instances, config, pool, securtMgr)
	webCfg := config.GetWebServerConfig()
	addr := fmt.Sprintf("%s:%d", webCfg.IPAddress, webCfg.Port)
	httpSrv := httpapi.NewHTTPServer(addr, server.Handler())

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: ":9090", Handler: metricsMux, ReadTimeout: 5 * time.Second, WriteTimeout: 10 * time.Second}

	go func() {
		log.Info().Str("addr", addr).Msg("control plane listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("control plane server stopped unexpectedly")
		}
	}()
	go func() {
		log.Info().Str("addr", metricsSrv.Addr).Msg("metrics endpoint listening")
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn().Err(err).Msg("metrics server stopped unexpectedly")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	log.Info().Msg("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("control plane server did not shut down cleanly")
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("metrics server did not shut down cleanly")
	}
	if err := pool.SaveSnapshot(nodesSnapshotPath); err != nil {
		log.Warn().Err(err).Msg("failed to persist node pool snapshot on shutdown")
	}

	log.Info().Msg("shutdown complete")
}
