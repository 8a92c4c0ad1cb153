// Package main provides the notechain CLI.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"notechain/internal/config"
	"notechain/internal/handler"
	"notechain/internal/hub"
	"notechain/internal/logger"
	"notechain/internal/metrics"
	"notechain/internal/repository/sqlite"
	"notechain/internal/service"
	"notechain/internal/vault"
	"notechain/internal/watcher"
)

// Version is the current notechain version
var Version = "0.3.1"

var (
	cfgPath    string
	vaultPath  string
	listenAddr string
)

var rootCmd = &cobra.Command{
	Use:     "notechain",
	Short:   "Notechain - relationship graphs over markdown note chains",
	Long:    `Notechain watches a vault of markdown notes, maintains the parent/child relationship graph declared in their frontmatter, and serves chain queries over HTTP and SSE.`,
	Version: Version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the daemon: build the graph, watch the vault, serve the API",
	RunE:  runServe,
}

var rebuildCmd = &cobra.Command{
	Use:   "rebuild",
	Short: "Scan the vault once, print graph stats, and exit",
	RunE:  runRebuild,
}

var chainCmd = &cobra.Command{
	Use:   "chain <note>",
	Short: "Resolve and print the full chain through a note",
	Long: `Resolve the chain through a note and print it oldest first.

The note may be a vault-relative path or a bare note name:

  notechain chain projects/roadmap.md
  notechain chain roadmap`,
	Args: cobra.ExactArgs(1),
	RunE: runChain,
}

func loadConfig() (*config.Config, string, error) {
	var cfg *config.Config
	var loaded string
	var err error
	if cfgPath != "" {
		cfg, loaded, err = config.LoadFromPath(cfgPath)
	} else {
		cfg, loaded, err = config.Load()
	}
	if err != nil {
		return nil, loaded, err
	}
	if vaultPath != "" {
		cfg.Vault = vaultPath
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	return cfg, loaded, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, loaded, err := loadConfig()
	if err != nil {
		return err
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	if loaded != "" {
		log.Info().Str("config", loaded).Msg("config loaded")
	}

	v, err := vault.Open(cfg.Vault)
	if err != nil {
		return fmt.Errorf("open vault: %w", err)
	}

	var snap service.Snapshot
	if cfg.Database != "" {
		repo, err := sqlite.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("open database: %w", err)
		}
		defer repo.Close()
		log.Info().Str("database", cfg.Database).Msg("snapshot database opened")
		snap = repo
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	bus := service.NewEventBus()
	sseHub := hub.New(log)
	go sseHub.Run()

	// Bridge service events to connected SSE clients.
	events := make(chan service.Event, 100)
	bus.Subscribe(events)
	go func() {
		for event := range events {
			sseHub.Broadcast(event)
		}
	}()

	m := metrics.New()
	svc := service.New(service.Options{
		Vault:        v,
		ParentField:  cfg.ParentField,
		CreatedField: cfg.CreatedField,
		Bus:          bus,
		Snapshot:     snap,
		Log:          log,
		Metrics:      m,
	})

	// Warm start from the snapshot so queries work while the first
	// full scan runs.
	if err := svc.LoadSnapshot(ctx); err != nil {
		log.Warn().Err(err).Msg("snapshot load failed, starting cold")
	}

	go func() {
		if err := svc.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("service stopped")
		}
	}()

	go func() {
		if _, err := svc.Rebuild(ctx); err != nil {
			log.Error().Err(err).Msg("initial rebuild failed")
		}
	}()

	w := watcher.New(v, watcher.Handler{
		OnUpdate: func(path string) {
			if err := svc.UpdateNote(ctx, path); err != nil {
				log.Error().Err(err).Str("note", path).Msg("update failed")
			}
		},
		OnDelete: func(path string) {
			if err := svc.DeleteNote(ctx, path); err != nil {
				log.Error().Err(err).Str("note", path).Msg("delete failed")
			}
		},
		OnRename: func(oldPath, newPath string) {
			if err := svc.RenameNote(ctx, oldPath, newPath); err != nil {
				log.Error().Err(err).Str("note", newPath).Msg("rename failed")
			}
		},
	}, log).WithDebounce(cfg.Debounce.Duration())
	go func() {
		if err := w.Watch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("watcher stopped")
		}
	}()

	mux := http.NewServeMux()
	handler.NewChainHandler(svc, log).Register(mux)
	mux.Handle("GET /events", sseHub)
	mux.Handle("GET /metrics", promhttp.Handler())

	server := &http.Server{
		Addr: cfg.Listen,
		Handler: handler.Chain(mux,
			handler.Recover(log),
			handler.CORS,
			handler.Logger(log),
			handler.Measure(m),
		),
		// SSE connections stay open, so no write timeout.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.Listen).Str("vault", v.Root()).Msg("server listening")
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	return nil
}

func runRebuild(cmd *cobra.Command, args []string) error {
	svc, ctx, cancel, err := offlineService()
	if err != nil {
		return err
	}
	defer cancel()

	stats, err := svc.Rebuild(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("notes:        %d\n", stats.Notes)
	fmt.Printf("edges:        %d\n", stats.Edges)
	fmt.Printf("placeholders: %d\n", stats.Placeholders)
	return nil
}

func runChain(cmd *cobra.Command, args []string) error {
	svc, ctx, cancel, err := offlineService()
	if err != nil {
		return err
	}
	defer cancel()

	if _, err := svc.Rebuild(ctx); err != nil {
		return err
	}
	view, err := svc.Chain(args[0])
	if err != nil {
		return err
	}

	for _, p := range view.Prev {
		fmt.Printf("  %s\n", p)
	}
	fmt.Printf("* %s\n", view.Note)
	for _, n := range view.Next {
		fmt.Printf("  %s\n", n)
	}
	for _, b := range view.Branches {
		fmt.Printf("branch at %s:", b.At)
		for _, n := range b.Notes {
			fmt.Printf(" %s", n)
		}
		fmt.Println()
	}
	return nil
}

// offlineService builds a Chainkeeper for one-shot commands: no
// snapshot, no watcher, logging to stderr at the configured level.
func offlineService() (*service.Chainkeeper, context.Context, context.CancelFunc, error) {
	cfg, _, err := loadConfig()
	if err != nil {
		return nil, nil, nil, err
	}
	v, err := vault.Open(cfg.Vault)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open vault: %w", err)
	}

	log := logger.New(logger.Config{Level: "warn"})
	svc := service.New(service.Options{
		Vault:        v,
		ParentField:  cfg.ParentField,
		CreatedField: cfg.CreatedField,
		Log:          log,
	})
	ctx, cancel := context.WithCancel(context.Background())
	go svc.Run(ctx)
	return svc, ctx, cancel, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&vaultPath, "vault", "", "Vault directory (overrides config)")
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "HTTP listen address (overrides config)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rebuildCmd)
	rootCmd.AddCommand(chainCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
