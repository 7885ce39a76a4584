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

	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/prince4597/society-management-software-sub001/internal/config"
	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/mockserver"
)

func main() {
	configPath := flag.StringP("config", "c", "console.yaml", "Path to the config file")
	listen := flag.String("listen", "", "Listen address (overrides config)")
	tick := flag.Duration("tick", 0, "Demo event interval (overrides config)")
	maxConns := flag.Int("max-conns", 0, "Websocket connection limit, 0 for unlimited")
	logLevel := flag.String("log-level", "", "Log level: debug, info, warn, error")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: load config: %v\n", err)
		os.Exit(1)
	}
	if *listen != "" {
		cfg.Mock.Listen = *listen
	}
	if *tick > 0 {
		cfg.Mock.TickInterval = *tick
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	// The mock has no UI, so it logs to stderr.
	log, err := logging.New(cfg.Log.Level, "")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *maxConns, log); err != nil {
		log.Error("mock backend failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, maxConns int, log *zap.Logger) error {
	accounts, err := mockserver.NewAccounts(cfg.Mock.Users)
	if err != nil {
		return fmt.Errorf("seed accounts: %w", err)
	}
	broadcaster := mockserver.NewBroadcaster(cfg.Routes.SuperRole, maxConns, log)
	defer broadcaster.Close()

	srv := mockserver.NewServer(accounts, mockserver.NewTokens(), broadcaster, log)
	feed := mockserver.NewFeed(broadcaster, accounts, cfg.Mock.TickInterval, log)

	httpSrv := &http.Server{
		Addr:              cfg.Mock.Listen,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("mock backend listening", zap.String("addr", cfg.Mock.Listen))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return feed.Run(ctx)
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
