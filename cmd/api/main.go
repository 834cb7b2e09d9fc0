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

	"github.com/joho/godotenv"

	"github.com/go-api-community/internal/config"
	"github.com/go-api-community/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-api-community/internal/infrastructure/jwt"
	"github.com/go-api-community/internal/infrastructure/postgres"
	s3infra "github.com/go-api-community/internal/infrastructure/s3"
	"github.com/go-api-community/internal/infrastructure/smtp"
	"github.com/go-api-community/internal/logging"
	transporthttp "github.com/go-api-community/internal/transport/http"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	logging.Init(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if envErr != nil {
		logging.Info().Msg("no .env file found, reading from environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("load aws config")
	}

	// Bootstrap the identity tables (creates them if they don't exist).
	dynamoClient := dynamo.NewClient(awsCfg, cfg)
	dynamo.BootstrapIdentity(ctx, dynamoClient, cfg.DynamoTables)

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("jwt provider")
	}

	s3Store := s3infra.NewStore(s3infra.NewClient(awsCfg, cfg), cfg.S3BucketName)
	if err := s3Store.EnsureBucket(ctx); err != nil {
		logging.Warn().Err(err).Str("bucket", cfg.S3BucketName).Msg("media bucket not available")
	}

	mailer := smtp.NewBreakerMailer(smtp.NewMailer(cfg), smtp.BreakerSettings{
		MaxFailures: cfg.MailerBreakerFailures,
		Timeout:     cfg.MailerBreakerTimeout,
	})

	deps := &transporthttp.Deps{
		UserRepo:         dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users),
		VerificationRepo: dynamo.NewVerificationRepo(dynamoClient, cfg.DynamoTables.UserVerifications),
		ObjectStore:      s3Store,
		Mailer:           mailer,
		JWTProvider:      jwtProvider,
	}

	switch cfg.ContentStore {
	case config.StorePostgres:
		pool, err := postgres.NewPool(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			logging.Fatal().Err(err).Msg("connect postgres")
		}
		defer pool.Close()
		if err := postgres.Migrate(ctx, pool); err != nil {
			logging.Fatal().Err(err).Msg("migrate postgres")
		}
		deps.PostRepo = postgres.NewPostRepo(pool)
		deps.CommentRepo = postgres.NewCommentRepo(pool)
		deps.EngagementRepo = postgres.NewEngagementRepo(pool)
	case config.StoreDynamo:
		dynamo.BootstrapContent(ctx, dynamoClient, cfg.DynamoTables)
		t := cfg.DynamoTables
		deps.PostRepo = dynamo.NewPostRepo(dynamoClient, t.Posts, t.PostTags)
		deps.CommentRepo = dynamo.NewCommentRepo(dynamoClient, t.Comments, t.Posts)
		deps.EngagementRepo = dynamo.NewEngagementRepo(dynamoClient, t.ViewedPosts, t.SavedPosts)
	default:
		logging.Fatal().Str("content_store", cfg.ContentStore).Msg("unknown CONTENT_STORE")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(ctx, cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logging.Info().Str("port", cfg.AppPort).Str("env", cfg.AppEnv).Str("content_store", cfg.ContentStore).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("server error")
			stop()
		}
	}()

	<-ctx.Done()

	logging.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("forced shutdown")
		os.Exit(1)
	}
	logging.Info().Msg("server stopped")
}
