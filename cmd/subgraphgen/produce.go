package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subgraphgen/config"
	"subgraphgen/internal/generator"
	inputredis "subgraphgen/internal/input/redis"
	"subgraphgen/internal/logger"
	"subgraphgen/internal/metrics"
	"subgraphgen/internal/output/payloadfile"
	"subgraphgen/internal/output/payloadhttp"
	"subgraphgen/internal/output/payloadredis"
	"subgraphgen/internal/pipeline"
	"subgraphgen/internal/rules"
	"subgraphgen/internal/serialization"
)

const defaultConfigName = "subgraphgen.yml"

func newProduceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "produce [config]",
		Short: "Consume events from Redis and emit subgraph payloads",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configArg := ""
			if len(args) > 0 {
				configArg = args[0]
			}
			return runProducer(cmd.Context(), findConfigFile(configArg))
		},
	}
}

func findConfigFile(configArg string) string {
	if configArg != "" {
		if _, err := os.Stat(configArg); err == nil {
			return configArg
		}
		log.Printf("Warning: config file not found at %s, trying default locations", configArg)
	}

	if _, err := os.Stat(defaultConfigName); err == nil {
		return defaultConfigName
	}

	exePath, err := os.Executable()
	if err == nil {
		path := filepath.Join(filepath.Dir(exePath), defaultConfigName)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return defaultConfigName
}

func runProducer(parent context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	c := cfg.SubgraphGen

	if err := logger.Init(c.Logging.Enabled, c.Logging.Level, c.Logging.File, c.Logging.Console); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.Infof("subgraphgen %s starting", version)
	logger.Infof("Config loaded from: %s", configPath)

	serializer, err := serialization.NewSubgraphSerializer()
	if err != nil {
		return fmt.Errorf("create serializer: %w", err)
	}

	consumer, err := inputredis.NewConsumer(inputredis.Config{
		Addr:         c.Input.Redis.Addr,
		Password:     c.Input.Redis.Password,
		DB:           c.Input.Redis.DB,
		Key:          c.Input.Redis.Key,
		BlockTimeout: c.Input.Redis.BlockTimeout,
	})
	if err != nil {
		return fmt.Errorf("create redis consumer: %w", err)
	}

	engine, err := loadRules(c.Rules)
	if err != nil {
		consumer.Close()
		return err
	}

	writer, err := newPayloadWriter(c.Output)
	if err != nil {
		consumer.Close()
		return err
	}

	var deadLetter pipeline.RawWriter
	if c.DeadLetter.Enabled {
		w, err := newRedisWriter(c.DeadLetter.Redis)
		if err != nil {
			writer.Close()
			consumer.Close()
			return fmt.Errorf("create dead letter writer: %w", err)
		}
		deadLetter = w
		logger.Infof("Dead letter: redis (%s/%s)", c.DeadLetter.Redis.Addr, c.DeadLetter.Redis.Key)
	}

	reg := metrics.NewRegistry()
	processor := pipeline.NewProcessor(generator.New(engine), serializer, c.Pipeline.Workers, reg)
	pipe := pipeline.NewRedisSubgraphPipeline(
		consumer,
		processor,
		writer,
		deadLetter,
		reg,
		c.Pipeline.BatchSize,
		c.Pipeline.FlushInterval,
	)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var metricsServer *http.Server
	if c.Metrics.Enabled {
		metricsServer = startMetricsServer(c.Metrics.Listen, reg)
	}

	done := make(chan error, 1)
	go func() { done <- pipe.Run(ctx) }()

	<-ctx.Done()
	logger.Infof("Shutting down")
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		logger.Errorf("Pipeline error: %v", err)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("Error stopping metrics server: %v", err)
		}
		cancel()
	}

	if err := pipe.Close(); err != nil {
		logger.Errorf("Error closing pipeline: %v", err)
	}

	logger.Infof("subgraphgen stopped")
	return nil
}

// loadRules returns a nil engine when tagging is off or no rule loaded.
func loadRules(cfg config.RulesConfig) (rules.Engine, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	path := strings.TrimSpace(cfg.Path)
	engine, stats, err := rules.NewSigmaEngine(path)
	if err != nil {
		return nil, fmt.Errorf("load sigma rules from %s: %w", path, err)
	}
	logger.Infof("Sigma rules loaded: loaded=%d skipped_complex=%d skipped_datasource=%d skipped_invalid=%d files=%d",
		stats.Loaded,
		stats.SkippedComplex,
		stats.SkippedDatasource,
		stats.SkippedInvalid,
		stats.TotalFiles,
	)
	if stats.Loaded == 0 {
		logger.Warnf("No compatible Sigma rules loaded; tagging is effectively disabled")
		return nil, nil
	}
	return engine, nil
}

func newPayloadWriter(cfg config.OutputConfig) (pipeline.PayloadWriter, error) {
	switch cfg.Mode {
	case "file":
		w, err := payloadfile.NewWriter(cfg.File.Dir)
		if err != nil {
			return nil, fmt.Errorf("create payload file writer: %w", err)
		}
		logger.Infof("Output mode: file (%s)", cfg.File.Dir)
		return w, nil
	case "http":
		w, err := payloadhttp.NewWriter(payloadhttp.Config{
			URL:     cfg.HTTP.URL,
			Timeout: cfg.HTTP.Timeout,
			Headers: cfg.HTTP.Headers,
		})
		if err != nil {
			return nil, fmt.Errorf("create payload HTTP writer: %w", err)
		}
		logger.Infof("Output mode: http (%s)", cfg.HTTP.URL)
		return w, nil
	case "redis":
		w, err := newRedisWriter(cfg.Redis)
		if err != nil {
			return nil, fmt.Errorf("create payload redis writer: %w", err)
		}
		logger.Infof("Output mode: redis (%s/%s)", cfg.Redis.Addr, cfg.Redis.Key)
		return w, nil
	default:
		return nil, fmt.Errorf("unknown output mode: %s", cfg.Mode)
	}
}

func newRedisWriter(cfg config.RedisConfig) (*payloadredis.Writer, error) {
	return payloadredis.NewWriter(payloadredis.Config{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		Key:      cfg.Key,
	})
}

func startMetricsServer(addr string, reg *metrics.Registry) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", reg.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("Metrics server error: %v", err)
		}
	}()
	logger.Infof("Metrics listening on %s/metrics", addr)
	return srv
}
