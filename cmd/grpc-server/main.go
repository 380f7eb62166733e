package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"

	"slicemeow/internal/grpcserver"
	"slicemeow/internal/logger"
	"slicemeow/internal/store"
	"slicemeow/pkg/utils"
)

func main() {
	cfg, err := utils.Load(os.Getenv("SLICEMEOW_CONFIG"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	backend, err := store.Open(ctx, cfg.Store)
	cancel()
	if err != nil {
		log.Fatal("store open failed", zap.Error(err))
	}
	defer backend.Close()

	listener, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatal("grpc listen failed", zap.Error(err))
	}

	grpcServer := grpc.NewServer()
	grpcserver.RegisterCatalogServer(grpcServer, grpcserver.NewServer(backend, log.Named("grpc")))

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
		grpcServer.GracefulStop()
	}()

	log.Info("grpc server listening", zap.String("addr", cfg.Server.GRPCAddr))
	if err := grpcServer.Serve(listener); err != nil {
		log.Error("grpc server stopped", zap.Error(err))
	}
}
