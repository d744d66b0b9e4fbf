package main

import (
	"context"
	"flag"

	"go.uber.org/zap"

	"github.com/cognicore/artspect/internal/llm"
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
	stage := cfg.Classify
	if *inputPath != "" {
		stage.Input = *inputPath
	}
	if *outputPath != "" {
		stage.Output = *outputPath
	}
	if err := stage.Validate(); err != nil {
		logger.Fatal("bad classify config", zap.Error(err))
	}
	if err := cfg.LLM.Validate(); err != nil {
		logger.Fatal("bad llm config", zap.Error(err))
	}

	ctx := context.Background()

	records, err := dataset.ReadRecords(stage.Input, true)
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

	client := &llm.Client{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  config.APIKey(cfg.LLM.APIKeyEnv),
		Model:   cfg.LLM.Model,
		Prompts: llm.PromptTemplates{System: cfg.LLM.SystemPrompt, User: cfg.LLM.UserPrompt},
		Log:     logger,
	}

	sink, err := dataset.OpenClassifySink(stage.Output)
	if err != nil {
		logger.Fatal("failed to open output", zap.Error(err))
	}
	defer sink.Close()

	p := pipeline.New(
		pipeline.Options{
			SkipProcessed: stage.SkipProcessed,
			MinCodeLength: stage.MinCodeLength,
			DedupeCode:    true,
		},
		limiter,
		&pipeline.Retrier{Adapter: client, MaxAttempts: stage.MaxAttempts, Log: logger},
		sink,
		logger,
	)
	if _, err := p.Run(ctx, records, processed); err != nil {
		logger.Fatal("run aborted", zap.Error(err))
	}
}
