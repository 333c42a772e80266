package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"examextractor/internal/artifacts"
	"examextractor/internal/common"
	"examextractor/internal/predictions"
	"examextractor/internal/store"
	"examextractor/internal/sweeper"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Storage
	db, err := store.Open(cfg.Storage.Path, cfg.Storage.BusyTimeout, nil)
	if err != nil {
		log.Fatalf("opening store: %v", err)
	}
	defer db.Close()

	extractionStore, err := artifacts.NewStore(db, nil)
	if err != nil {
		log.Fatalf("extraction store: %v", err)
	}
	predictionStore, err := predictions.NewStore(db, nil)
	if err != nil {
		log.Fatalf("prediction store: %v", err)
	}

	// GC: sweep at startup and, if configured, periodically.
	gc := sweeper.New(extractionStore, predictionStore, nil)
	go gc.Run(ctx, cfg.Cache.SweepInterval)

	// gRPC server
	grpcServer := grpc.NewServer()
	// Health service
	hs := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	// Reflection for grpcurl
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalf("listen: %v", err)
	}
	log.Infof("gRPC serving on %s", cfg.Server.GRPCAddr)

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")
	grpcServer.GracefulStop()
	fmt.Println("stopped.")
}
