package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nikhil/bankbridge/internal/aggregator"
	"github.com/nikhil/bankbridge/internal/config"
	"github.com/nikhil/bankbridge/internal/graph"
	"github.com/nikhil/bankbridge/internal/logging"
	"github.com/nikhil/bankbridge/internal/server"
	"github.com/nikhil/bankbridge/internal/service"
	"github.com/nikhil/bankbridge/internal/store"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.Logging)

	graphClient, err := graph.NewNeo4jClient(ctx, graph.Options{
		URI:            cfg.Graph.URI,
		Database:       cfg.Graph.Database,
		Username:       cfg.Graph.Username,
		Password:       cfg.Graph.Password,
		MaxConnections: cfg.Graph.MaxConnections,
	})
	if err != nil {
		logger.Error("failed to create graph client", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := graphClient.Close(context.Background()); err != nil {
			logger.Warn("closing graph client failed", "error", err)
		}
	}()

	aggClient, err := aggregator.NewHTTPClient(aggregator.Options{
		BaseURL:        cfg.Aggregator.BaseURL,
		ClientID:       cfg.Aggregator.ClientID,
		Secret:         cfg.Aggregator.Secret,
		RequestTimeout: cfg.Aggregator.RequestTimeout,
	})
	if err != nil {
		logger.Error("failed to create aggregator client", "error", err)
		os.Exit(1)
	}

	st := store.New(graphClient)
	transactionService := service.NewTransactionService(aggClient, st, logger)
	accountService := service.NewAccountService(st, aggClient, transactionService, logger, cfg.Aggregator.MaxFanout)
	transferService := service.NewTransferService(aggClient, st, logger)

	apiHandlers := server.NewAPIHandlers(logger, accountService, transferService)

	router := server.NewRouter(logger, server.RouterDependencies{
		Health:           server.StoreHealthService{Store: st},
		API:              apiHandlers,
		AllowedOrigins:   parseAllowedOrigins(cfg.HTTP.AllowedOriginsCSV),
		AllowCredentials: true,
	})

	srv := server.New(logger, cfg.HTTP, router)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received shutdown signal", "signal", sig.String())
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("server stopped unexpectedly", "error", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func parseAllowedOrigins(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	var origins []string
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin == "" {
			continue
		}
		origins = append(origins, origin)
	}
	return origins
}
