package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"slicemeow/internal/logger"
	"slicemeow/internal/server"
	"slicemeow/internal/store"
	synchub "slicemeow/internal/sync"
	"slicemeow/pkg/utils"
)

func main() {
	cfg, err := utils.Load(os.Getenv("SLICEMEOW_CONFIG"))
	if err != nil {
		panic(err)
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := store.Open(startCtx, cfg.Store)
	cancelStart()
	if err != nil {
		log.Fatal("store open failed", zap.Error(err), zap.String("driver", cfg.Store.Driver))
	}
	defer backend.Close()

	hub := synchub.NewHub(log.Named("feed"))
	tcpSrv := synchub.NewServer(cfg.Server.TCPAddr, hub)

	router := server.NewRouter(server.Deps{
		Config:  cfg,
		Backend: backend,
		Hub:     hub,
		Log:     log,
	})

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := tcpSrv.Run(); err != nil {
			errCh <- err
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("http api listening", zap.String("addr", cfg.Server.HTTPAddr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	case err := <-errCh:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown error", zap.Error(err))
	}
	if err := tcpSrv.Close(); err != nil {
		log.Warn("tcp shutdown error", zap.Error(err))
	}
	hub.Close()

	wg.Wait()
	log.Info("servers stopped")
}
