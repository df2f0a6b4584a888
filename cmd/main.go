package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	httpctx "github.com/contactbook/contactbook-server/internal/api/http/context"
	"github.com/contactbook/contactbook-server/internal/api/http/handler"
	"github.com/contactbook/contactbook-server/internal/api/http/middleware"
	"github.com/contactbook/contactbook-server/internal/api/http/router"
	httpServer "github.com/contactbook/contactbook-server/internal/api/http/server"
	"github.com/contactbook/contactbook-server/internal/config"
	"github.com/contactbook/contactbook-server/internal/logger"
	"github.com/contactbook/contactbook-server/internal/mailer"
	"github.com/contactbook/contactbook-server/internal/model"
	"github.com/contactbook/contactbook-server/internal/password"
	"github.com/contactbook/contactbook-server/internal/repository/postgres"
	redisrepo "github.com/contactbook/contactbook-server/internal/repository/redis"
	"github.com/contactbook/contactbook-server/internal/server"
	"github.com/contactbook/contactbook-server/internal/service"
	storage "github.com/contactbook/contactbook-server/internal/storage/minio"
	"github.com/contactbook/contactbook-server/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	db, err := postgres.NewConnection(ctx, cfg.Database.DSN)
	if err != nil {
		logger.Fatal("failed to initialize database", "error", err)
	}
	defer db.Close()

	redisClient, err := redisrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal("failed to connect to redis", "error", err)
	}
	defer redisClient.Close()

	userRepo := postgres.NewUserRepository(db)
	revocationRepo := redisrepo.NewRevocationRepository(redisClient)
	rateCacheRepo := redisrepo.NewRateCacheRepository(redisClient)

	tokenManager := token.NewJWT(cfg.JWT.Secret, cfg.JWT.PreviousSecret, token.TTLConfig{
		Access:  cfg.JWT.AccessTTL,
		Refresh: cfg.JWT.RefreshTTL,
		Email:   cfg.JWT.EmailTTL,
	})
	hasher := password.NewHasher(0)
	smtpMailer := mailer.NewSMTP(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From, cfg.SMTP.BaseURL)

	minioClient, err := minio.New(cfg.Storage.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: cfg.Storage.UseSSL,
	})
	if err != nil {
		logger.Fatal("failed to create minio client", "error", err)
	}
	storageClient, err := storage.NewClient(ctx, minioClient, cfg.Storage.Bucket)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	sessionService := service.NewSession(userRepo, revocationRepo, tokenManager, hasher, smtpMailer, cfg.StoreTimeout, logger)
	userService := service.NewUser(userRepo, storageClient, cfg.StoreTimeout, logger)
	rateLimitService := service.NewRateLimit(rateCacheRepo, cfg.StoreTimeout, logger)
	ctxMgr := httpctx.NewManager()

	r := router.New(
		handler.NewAuth(sessionService, logger),
		handler.NewUser(userService, ctxMgr, logger),
		middleware.NewAuthenticate(sessionService, ctxMgr, logger),
		middleware.NewRateLimit(rateLimitService, ctxMgr, logger),
		middleware.NewLogging(logger),
		router.Limits{
			Auth: model.RouteLimit{Max: cfg.RateLimit.AuthMax, Window: cfg.RateLimit.AuthWindow},
			API:  model.RouteLimit{Max: cfg.RateLimit.APIMax, Window: cfg.RateLimit.APIWindow},
		},
	)
	srv := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port))

	var sl model.SecurityLayer

	if cfg.HTTP.EnableHTTPS {
		sl = server.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = server.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		err := s.Start(sl)
		if err != nil {
			logger.Error("failed to start server", "error", err)
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
