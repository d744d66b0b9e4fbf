package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"github.com/cognicore/artspect/internal/explorer"
	"github.com/cognicore/artspect/pkg/artspect/cache"
	"github.com/cognicore/artspect/pkg/artspect/config"
	"github.com/cognicore/artspect/pkg/artspect/dataset"
	"github.com/cognicore/artspect/pkg/artspect/pipeline"
	"github.com/cognicore/artspect/pkg/artspect/ratelimit"
)

func main() {
	var (
		configPath = flag.String("config", "", "Config file (required)")
		inputPath  = flag.String("input", "", "Input CSV (overrides config)")
		outputPath = flag.String("output", "", "Output CSV (overrides config)")
	)
	flag.Parse()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if *configPath == "" {
		logger.Fatal("--config required")
	}
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}
	stage := cfg.Fetch
	if *inputPath != "" {
		stage.Input = *inputPath
	}
	if *outputPath != "" {
		stage.Output = *outputPath
	}
	if err := stage.Validate(); err != nil {
		logger.Fatal("bad fetch config", zap.Error(err))
	}
	if err := cfg.Explorer.Validate(); err != nil {
		logger.Fatal("bad explorer config", zap.Error(err))
	}

	ctx := context.Background()

	records, err := dataset.ReadRecords(stage.Input, false)
	if err != nil {
		logger.Fatal("failed to read input", zap.Error(err))
	}
	logger.Info("loaded records", zap.Int("count", len(records)), zap.String("input", stage.Input))

	var processed map[string]struct{}
	if stage.SkipProcessed {
		if processed, err = dataset.LoadProcessed(stage.Output); err != nil {
			logger.Fatal("failed to load progress", zap.Error(err))
		}
		logger.Info("resuming", zap.Int("already_processed", len(processed)))
	}

	limiter, err := ratelimit.New(stage.RatePerSecond)
	if err != nil {
		logger.Fatal("bad rate", zap.Error(err))
	}

	var adapter pipeline.Adapter = &explorer.Client{
		BaseURL: cfg.Explorer.BaseURL,
		APIKey:  config.APIKey(cfg.Explorer.APIKeyEnv),
	}
	if stage.Cache != "" {
		c, err := cache.Open(ctx, stage.Cache)
		if err != nil {
			logger.Fatal("failed to open cache", zap.Error(err))
		}
		defer c.Close()
		adapter = &cache.Adapter{Cache: c, Next: adapter, Log: logger}
	}

	sink, err := dataset.OpenFetchSink(stage.Output)
	if err != nil {
		logger.Fatal("failed to open output", zap.Error(err))
	}
	defer sink.Close()

	p := pipeline.New(
		pipeline.Options{SkipProcessed: stage.SkipProcessed},
		limiter,
		&pipeline.Retrier{Adapter: adapter, MaxAttempts: stage.MaxAttempts, Log: logger},
		sink,
		logger,
	)
	if _, err := p.Run(ctx, records, processed); err != nil {
		logger.Fatal("run aborted", zap.Error(err))
	}
}
