package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ledgerbi/internal/amqp"
	"ledgerbi/internal/backend"
	"ledgerbi/internal/cli"
	"ledgerbi/internal/config"
	apphttp "ledgerbi/internal/http"
	"ledgerbi/internal/log"
	"ledgerbi/internal/search"
	"ledgerbi/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	store := cli.OpenBackend(context.Background(), logger, cfg)
	os.Exit(run(context.Background(), logger, cfg, store))
}

// run serves until parent is cancelled, a shutdown signal arrives or the
// listener fails, and returns the process exit code. The store and the AMQP
// connection are closed before it returns.
func run(parent context.Context, logger *log.Logger, cfg *config.Config, store *backend.Result) int {
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close ledger store", log.FieldError, err)
		}
	}()

	index := search.NewIndex(store.Store, logger.WithComponent(log.ComponentSearch))

	var client *amqp.Client
	if cfg.AMQPEnabled() {
		var err error
		client, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
		if err != nil {
			logger.Error("Failed to initialize AMQP client",
				log.NewFields().WithError(err).WithErrorType(log.ErrorTypeNetwork).ToSlice()...)
			return 1
		}
		defer client.Close()
	}

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Options{
		Store:          store.Store,
		Index:          index,
		Debounce:       cfg.SearchDebounce,
		SessionTTL:     cfg.SearchSessionTTL,
		SessionMax:     cfg.SearchSessionMax,
		RateLimit:      cfg.SearchRateLimit,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger.WithComponent(log.ComponentHTTP),
	})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.RequestTimeout + 5*time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	serverErr := make(chan error, 1)
	parent, stop := context.WithCancel(parent)
	defer stop()

	ctx, done := cli.GracefulShutdown(parent, logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
	})

	// Warm the index in the background; searches wait on the same load.
	go func() {
		if err := index.EnsureLoaded(ctx); err != nil {
			logger.Warn("Initial index load failed, retrying on first search", log.FieldError, err)
		}
	}()

	if client != nil {
		reloader := worker.NewReloadWorker(index, logger.WithComponent(log.ComponentWorker))
		go func() {
			if err := reloader.Run(ctx, client); err != nil {
				logger.Error("Index reload consumer stopped", log.FieldError, err)
			}
		}()
	} else {
		logger.Info("AMQP disabled - index reloads only on restart")
	}

	go func() {
		logger.Info("Starting ledgerbi server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		stop()
		<-done
		return 1
	case <-ctx.Done():
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
	return 0
}
