package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/syslog"
	"net/http"
	"os"
	"os/signal"
	"path"
	"syscall"
	"time"

	"github.com/etherlabsio/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sys/unix"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/egp-tools/egp-rewriter/internal/batch"
	"github.com/egp-tools/egp-rewriter/internal/config"
	"github.com/egp-tools/egp-rewriter/internal/mapping"
	"github.com/egp-tools/egp-rewriter/internal/metrics"
	"github.com/egp-tools/egp-rewriter/internal/transformer"
)

var (
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

var (
	configPath = flag.String("config", "", "Config file path")
)

func main() {
	flag.Parse()
	cfg, err := config.ReadFromFile(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msgf("failed to read config")
	}

	logger := initLogger(cfg)
	logger.Info().Msgf("starting egp-rewriter %s, commit %s, built at %s", version, commit, buildDate)

	rules, problems, err := mapping.Load(cfg.Rewrite.MappingFile)
	if err != nil {
		logger.Fatal().Err(err).Str("file", cfg.Rewrite.MappingFile).Msg("could not load mapping table")
	}
	for _, p := range problems {
		logger.Warn().Int("entry", p.Index).Str("reason", p.Reason).Msg("skipping mapping entry")
	}
	if len(rules) == 0 {
		logger.Fatal().Str("file", cfg.Rewrite.MappingFile).Msg("mapping table holds no usable rules")
	}
	logger.Info().Int("rules", len(rules)).Msg("mapping table loaded")

	metrics.Init()

	registry := transformer.NewRegistry(logger)
	registry.Register(transformer.NewEGP(logger))

	runner, err := batch.NewRunner(cfg, registry, rules, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not set up batch runner")
	}

	if cfg.App.ListenAddr != "" {
		go serveHTTP(cfg, logger)
	}

	if cfg.Rewrite.Watch.Enabled {
		runWatch(runner, logger)
		return
	}

	summary, err := runner.Run()
	if err != nil {
		logger.Fatal().Err(err).Msg("batch run failed")
	}

	logSummary(logger, summary)

	if summary.Failed > 0 {
		os.Exit(1)
	}
}

func runWatch(runner *batch.Runner, logger zerolog.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-interrupt
		logger.Info().Msgf("received system signal: %s. Shutting down watcher", sig)
		cancel()
	}()

	if err := runner.Watch(ctx); err != nil {
		logger.Fatal().Err(err).Msg("watch loop failed")
	}
}

func logSummary(logger zerolog.Logger, summary *batch.Summary) {
	logger.Info().
		Int("processed", summary.Processed).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Int("rewrites", summary.Rewrites).
		Msg("batch finished")

	for _, fr := range summary.Files {
		if fr.Result.Success {
			logger.Info().
				Str("file", fr.Name).
				Int("rewrites", fr.Result.Rewrites).
				Msg("ok")
		} else {
			logger.Error().
				Str("file", fr.Name).
				Str("error", fr.Result.Error).
				Msg("failed")
		}
	}
}

func serveHTTP(cfg *config.Config, logger zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/health", healthcheck.Handler(
		healthcheck.WithTimeout(5*time.Second),
		healthcheck.WithChecker("input_dir", healthcheck.CheckerFunc(func(_ context.Context) error {
			_, err := os.Stat(cfg.Rewrite.InputDir)
			return err
		})),
		healthcheck.WithChecker("mapping_file", healthcheck.CheckerFunc(func(_ context.Context) error {
			_, err := os.Stat(cfg.Rewrite.MappingFile)
			return err
		})),
	))

	logger.Info().Str("addr", cfg.App.ListenAddr).Msg("serving health and metrics")

	if err := http.ListenAndServe(cfg.App.ListenAddr, mux); err != nil {
		logger.Err(err).Msg("http listener stopped")
	}
}

func initLogger(cfg *config.Config) zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	loggingCfg := cfg.App.Logging

	logLevel, err := zerolog.ParseLevel(loggingCfg.Level)
	if err != nil {
		log.Warn().Msgf("unknown Level string: '%s', defaulting to InfoLevel", loggingCfg.Level)
		logLevel = zerolog.InfoLevel
	}

	writers := make([]io.Writer, 0, 1)
	writers = append(writers, os.Stdout)

	if loggingCfg.SysLogEnabled {
		w, err := syslog.New(syslog.LOG_INFO, "egp-rewriter")
		if err != nil {
			log.Warn().Err(err).Msg("unable to connect to the system log daemon")
		} else {
			writers = append(writers, zerolog.SyslogLevelWriter(w))
		}
	}

	if loggingCfg.FileLoggingEnabled {
		w, err := newRollingLogFile(&loggingCfg)
		if err != nil {
			log.Warn().Err(err).Msg("unable to init file logger")
		} else {
			writers = append(writers, w)
		}
	}

	var baseLogger zerolog.Logger
	if len(writers) == 1 {
		baseLogger = zerolog.New(writers[0])
	} else {
		baseLogger = zerolog.New(zerolog.MultiLevelWriter(writers...))
	}

	return baseLogger.Level(logLevel).With().Timestamp().Logger()
}

func newRollingLogFile(cfg *config.Logging) (io.Writer, error) {
	dir := path.Dir(cfg.Filename)
	if unix.Access(dir, unix.W_OK) != nil {
		return nil, fmt.Errorf("no permissions to write logs to dir: %s", dir)
	}

	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxBackups: cfg.MaxBackups,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
	}, nil
}
