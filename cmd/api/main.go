package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"regexp"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/user/digest-service/internal/adapter/articlepage"
	"github.com/user/digest-service/internal/adapter/chromedp_browser"
	"github.com/user/digest-service/internal/adapter/dataforseo"
	"github.com/user/digest-service/internal/adapter/gnews"
	"github.com/user/digest-service/internal/adapter/llm"
	"github.com/user/digest-service/internal/adapter/postgres"
	redis_adapter "github.com/user/digest-service/internal/adapter/redis"
	"github.com/user/digest-service/internal/adapter/reddit"
	"github.com/user/digest-service/internal/adapter/sendgrid"
	"github.com/user/digest-service/internal/delivery/http/handler"
	"github.com/user/digest-service/internal/delivery/http/router"
	"github.com/user/digest-service/internal/entity"
	"github.com/user/digest-service/internal/repository"
	"github.com/user/digest-service/internal/usecase"
	"github.com/user/digest-service/pkg/config"
	"github.com/user/digest-service/pkg/logger"
)

func main() {
	// --- Configuration ---
	if err := godotenv.Load(); err != nil {
		// A missing .env file is normal outside local development.
		slog.Debug("no .env file loaded", "error", err)
	}
	cfg := config.Load()

	// --- Logger ---
	logLevel := slog.LevelInfo
	if cfg.LogLevel == "debug" {
		logLevel = slog.LevelDebug
	}
	logger.Init(os.Stdout, logLevel)
	slog.Info("Logger initialized", "level", logLevel.String())

	ctx := context.Background()

	// --- Digest archive (PostgreSQL) ---
	var blobs repository.BlobStore
	if cfg.ArchiveEnabled {
		pgConnString := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
			cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresDB)
		dbpool, err := pgxpool.New(ctx, pgConnString)
		if err != nil {
			slog.Error("Unable to connect to database", "error", err)
			os.Exit(1)
		}
		defer dbpool.Close()
		slog.Info("PostgreSQL connection pool established")
		blobs = postgres.NewDigestArchive(dbpool, cfg.ArchiveBaseURL)
	}

	// --- Token cache (Redis) ---
	var tokens repository.TokenCache
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			slog.Warn("Unable to connect to Redis, tokens will be refreshed on every run", "error", err)
		} else {
			slog.Info("Redis connection established")
			tokens = redis_adapter.NewTokenCache(rdb)
		}
	}

	// --- Retrieval pipeline ---
	var feed repository.FeedRepository = gnews.NewFeedRepo(cfg.FeedBaseURL, cfg.FeedFetchTimeout)
	if cfg.InternationalFeed {
		feed = gnews.NewMultiCountryFeed(feed, cfg.InternationalCountries)
	}

	var search repository.SearchRepository
	if cfg.SearchAPILogin != "" && cfg.SearchAPIPassword != "" {
		search = dataforseo.NewSearchRepo(cfg.SearchAPIURL, cfg.SearchAPILogin, cfg.SearchAPIPassword, 60*time.Second)
		slog.Info("Search API configured, browser resolution will be skipped")
	}

	indirectionPattern := regexp.MustCompile(cfg.ResolverIndirectionPattern)
	consentHostPattern := regexp.MustCompile(cfg.ResolverConsentHostPattern)
	launcher := chromedp_browser.NewLauncher(chromedp_browser.Config{
		Headless:            cfg.ResolverHeadless,
		UserAgent:           cfg.ResolverUserAgent,
		NavigationTimeout:   cfg.ResolverNavigationTimeout,
		FinalURLTimeout:     cfg.ResolverFinalURLTimeout,
		ConsentClickTimeout: cfg.ResolverConsentClickTimeout,
		IndirectionPattern:  indirectionPattern,
		ConsentHostPattern:  consentHostPattern,
		ConsentSelectors:    cfg.ResolverConsentSelectors,
	})
	resolver := usecase.NewResolver(launcher, usecase.ResolverConfig{
		IndirectionPattern: indirectionPattern,
		ConsentHostPattern: consentHostPattern,
	})

	fetcher := articlepage.NewFetcher(cfg.ExtractRequestTimeout, cfg.ExtractUserAgent, cfg.ExtractReferer)
	extractor := usecase.NewExtractor(fetcher, cfg.ExtractWorkers, cfg.ExtractMinTextLength)
	retrieval := usecase.NewRetrieval(feed, search, resolver, extractor)

	// --- Synthesis and distribution ---
	completion := llm.NewClient(cfg.CompletionEndpoint, cfg.CompletionModel, cfg.CompletionAPIKey, cfg.CompletionTimeout)

	var mail repository.MailSender
	if cfg.EmailEnabled {
		mail = sendgrid.NewSender(cfg.SendGridAPIKey, cfg.SenderEmail, 30*time.Second)
	}

	var forum repository.ForumPoster
	if cfg.ForumEnabled {
		forum = reddit.NewPoster(cfg.RedditClientID, cfg.RedditClientSecret, cfg.RedditRefreshToken, cfg.RedditUserAgent, tokens, 30*time.Second)
	}

	digest := usecase.NewDigest(retrieval, completion, blobs, mail, forum, usecase.DigestOptions{
		EmailRecipients:  cfg.EmailRecipients,
		FromNameTemplate: cfg.FromNameTemplate,
		ForumSubreddit:   cfg.ForumSubreddit,
		ForumFlairID:     cfg.ForumFlairID,
		SaveIntermediate: cfg.SaveIntermediate,
		ExportsDir:       cfg.ExportsDir,
	})

	// --- HTTP Server ---
	defaultQuery := entity.FeedQuery{
		Term:         cfg.QueryTerm,
		DaysBack:     cfg.DaysToLookBack,
		LanguageCode: cfg.LanguageCode,
		CountryCode:  cfg.CountryCode,
		LocationCode: cfg.LocationCode,
	}
	apiHandler := handler.NewHandler(digest, defaultQuery)
	httpRouter := router.New(apiHandler, cfg.APIKey)

	server := &http.Server{
		Addr:        ":" + cfg.ServerPort,
		Handler:     httpRouter,
		ReadTimeout: 10 * time.Second,
		// Digest runs drive a browser and multiple completions; the write
		// timeout has to cover a full run.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Could not listen on port", "port", cfg.ServerPort, "error", err)
			stop()
		}
	}()

	<-shutdownCtx.Done()
	slog.Info("Shutting down server")
	gracefulCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(gracefulCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
	}
}
