package main

import (
	"context"
	"flag"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/reflection"

	"github.com/simaogato/tradejournal-backend/internal/adapter/docstore/memory"
	grpcadapter "github.com/simaogato/tradejournal-backend/internal/adapter/grpc"
	"github.com/simaogato/tradejournal-backend/internal/adapter/repository/postgres"
	"github.com/simaogato/tradejournal-backend/internal/adapter/repository/redis"
	"github.com/simaogato/tradejournal-backend/internal/adapter/session"
	"github.com/simaogato/tradejournal-backend/internal/config"
	"github.com/simaogato/tradejournal-backend/internal/domain"
	"github.com/simaogato/tradejournal-backend/internal/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()

	// 1. Load configuration and logging
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logCloser, err := logger.Setup(cfg.Log.Options())
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logCloser.Close()

	// 2. Open the document backend
	ctx := context.Background()
	store, closeStore, err := openBackend(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open %s backend: %v", cfg.Store.Backend, err)
	}
	defer closeStore()
	logger.Info("Document backend: %s", cfg.Store.Backend)

	// 3. Session tokens
	issuer, err := session.NewIssuer(cfg.JWT.Secret, cfg.JWT.TTL())
	if err != nil {
		log.Fatalf("Failed to create token issuer: %v", err)
	}

	// 4. Start gRPC Server
	grpcServer := grpclib.NewServer(append(grpcadapter.ServerOptions(),
		grpclib.UnaryInterceptor(grpcadapter.AuthInterceptor(issuer, grpcadapter.SignInAnonymouslyMethod)),
		grpclib.StreamInterceptor(grpcadapter.StreamAuthInterceptor(issuer)),
	)...)

	grpcadapter.RegisterDocumentStoreServer(grpcServer, grpcadapter.NewServer(store, issuer))
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.Server.GRPCAddr, err)
	}

	// Start server in a goroutine
	go func() {
		logger.Info("gRPC server listening on %s", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			log.Fatalf("Failed to serve gRPC server: %v", err)
		}
	}()

	// Graceful shutdown
	waitForShutdown(grpcServer)
}

// openBackend returns the configured document store and a function releasing it
func openBackend(ctx context.Context, cfg *config.Config) (domain.DocumentStore, func(), error) {
	switch cfg.Store.Backend {
	case config.BackendPostgres:
		// Give a freshly started Postgres container a moment
		time.Sleep(2 * time.Second)

		db, err := postgres.NewDB(cfg.Database.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, nil, err
		}
		repo, err := postgres.NewDocumentRepository(db)
		if err != nil {
			db.Close()
			return nil, nil, err
		}
		return repo, func() {
			repo.Close()
			db.Close()
		}, nil

	case config.BackendRedis:
		client, err := redis.NewClient(ctx, redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		repo, err := redis.NewDocumentRepository(ctx, client)
		if err != nil {
			client.Close()
			return nil, nil, err
		}
		return repo, func() {
			repo.Close()
			client.Close()
		}, nil

	default:
		return memory.NewStore(), func() {}, nil
	}
}

// waitForShutdown waits for SIGTERM or SIGINT and gracefully shuts down the server
func waitForShutdown(grpcServer *grpclib.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	logger.Info("Received signal: %v. Shutting down gracefully...", sig)

	grpcServer.GracefulStop()
	logger.Info("gRPC server stopped")
}
