package main

import (
	"context"
	"database/sql"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/MichalMitros/evend-publisher/cmd/publisher/config"
	"github.com/MichalMitros/evend-publisher/internal/decoder"
	"github.com/MichalMitros/evend-publisher/internal/fetcher"
	"github.com/MichalMitros/evend-publisher/internal/handler"
	"github.com/MichalMitros/evend-publisher/internal/launcher"
	"github.com/MichalMitros/evend-publisher/internal/platform/checkpoint"
	"github.com/MichalMitros/evend-publisher/internal/platform/chrome"
	"github.com/MichalMitros/evend-publisher/internal/platform/joblog"
	"github.com/MichalMitros/evend-publisher/internal/platform/queue"
	"github.com/MichalMitros/evend-publisher/internal/platform/rabbitmq"
	"github.com/MichalMitros/evend-publisher/internal/platform/session"
	"github.com/MichalMitros/evend-publisher/internal/platform/storage"
	"github.com/MichalMitros/evend-publisher/internal/publisher"
	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	// UserAgent is user agent header value used when fetching listing images.
	UserAgent = "evend-publisher/0.1.0"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logger.Fatal().
			Err(err).
			Msg("can't load .env file")
	}

	var cfg config.Config
	if err := env.Parse(&cfg); err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't parse env variables")
	}

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't parse log level")
	}
	logger = logger.Level(level)

	site, err := config.LoadSite(cfg.SelectorsFile, publisher.DefaultSite())
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't load e-Vend selectors")
	}

	uploadDir := filepath.Join(cfg.DataDir, "uploads")
	logDir := filepath.Join(cfg.DataDir, "logs")
	imageDir := filepath.Join(cfg.DataDir, "images")
	for _, dir := range []string{cfg.DataDir, uploadDir, logDir, imageDir} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			logger.Fatal().
				Err(err).
				Str("dir", dir).
				Msg("can't create data directory")
		}
	}

	pgDB, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().
			Err(err).
			Msg("can't open Postgres connection")
	}
	pg := storage.NewPostgres(pgDB)

	admission := queue.New(filepath.Join(cfg.DataDir, "queue.json"), &logger,
		queue.WithArticleCost(cfg.Queue.ArticleCost),
		queue.WithStaleAfter(cfg.Queue.StaleAfter),
	)
	jobLog := joblog.New(logDir, &logger, joblog.WithMaxBytes(cfg.LogMaxBytes))
	browsers := chrome.NewFactory(chrome.Options{
		Headless: cfg.Chrome.Headless,
		ExecPath: cfg.Chrome.Path,
	}, &logger)

	pubCfg := cfg.PublisherConfig(site)
	pubCfg.TempDir = imageDir

	pub := publisher.NewPublisher(publisher.Deps{
		Decoder:     decoder.Decoder{},
		Queue:       admission,
		Checkpoints: checkpoint.New(cfg.DataDir, &logger),
		Sessions:    session.New(cfg.DataDir, &logger, session.WithMaxAge(cfg.SessionMaxAge)),
		Browsers: publisher.BrowserFactoryFunc(func(ctx context.Context) (publisher.Browser, error) {
			browser, err := browsers.NewBrowser(ctx)
			if err != nil {
				return nil, err
			}
			return browser, nil
		}),
		Fetcher: fetcher.NewFetcher(&http.Client{Timeout: cfg.ImageTimeout}, UserAgent, fetcher.DefaultMaxBytes),
		Storage: pg,
		JobLog:  jobLog,
	}, pubCfg, &logger)

	lnch := launcher.New(ctx, pub, decoder.Decoder{}, pg, jobLog, cfg.LauncherLimits(), &logger)

	var (
		amqpConnection *amqp.Connection
		conn           *rabbitmq.RabbitMQ
	)
	if cfg.RabbitMQ.URL != "" {
		amqpConnection, err = amqp.Dial(cfg.RabbitMQ.URL)
		if err != nil {
			logger.Fatal().
				Err(err).
				Msg("can't open RabbitMQ connection")
		}

		conn, err = rabbitmq.NewRabbitMQ(amqpConnection, cfg.RabbitMQ.Exchange)
		if err != nil {
			logger.Fatal().
				Err(err).
				Msg("can't open RabbitMQ channel")
		}

		if err := conn.DeclareQueue(cfg.RabbitMQ.Queue, cfg.RabbitMQ.RoutingKey); err != nil {
			logger.Fatal().
				Err(err).
				Msg("can't declare RabbitMQ queue")
		}

		// start consuming and handling messages
		han := handler.NewHandler(conn, lnch, &logger)
		if err := han.Start(ctx, cfg.RabbitMQ.Queue); err != nil {
			logger.Fatal().
				Err(err).
				Msg("can't start consuming")
		}
	}

	httpHandler := handler.NewHTTPHandler(
		lnch,
		jobLog,
		admission,
		pg,
		uploadDir,
		cfg.HTTP.MaxUploadBytes,
		&logger,
	)
	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           httpHandler.Router(),
		ReadHeaderTimeout: cfg.HTTP.Timeout,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	logger.Info().
		Str("addr", cfg.HTTP.Addr).
		Bool("rabbitmq", conn != nil).
		Msg("e-Vend publisher up and running")

	// handle graceful shutdown and context cancellation
	termChan := make(chan os.Signal, 1)
	signal.Notify(termChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-termChan:
	case <-groupCtx.Done():
	}
	cancel()

	logger.Info().Msg("graceful shutdown start")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().
			Err(err).
			Msg("can't shut down HTTP server")
	}

	if err := group.Wait(); err != nil {
		logger.Error().
			Err(err).
			Msg("HTTP server failed")
	}

	// wait for consumer and running jobs to finish
	if conn != nil {
		<-conn.Done()
	}
	lnch.Wait()

	if err := pgDB.Close(); err != nil {
		logger.Error().
			Err(err).
			Msg("can't close Postgres connection")
	}

	if amqpConnection != nil {
		if err := amqpConnection.Close(); err != nil {
			logger.Error().
				Err(err).
				Msg("can't close RabbitMQ connection")
		}
	}

	logger.Info().Msg("graceful shutdown successful")
}
