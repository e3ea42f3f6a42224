package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spacesedan/danmakuflow/config"
	"github.com/spacesedan/danmakuflow/internal/export"
	"github.com/spacesedan/danmakuflow/internal/logging"
	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/normalizer"
	"github.com/spacesedan/danmakuflow/internal/pipeline"
	"github.com/spacesedan/danmakuflow/internal/sentiment"
	"github.com/spacesedan/danmakuflow/internal/sources"
)

func main() {
	os.Exit(run())
}

func run() int {
	defaultEnv := os.Getenv("APP_ENV")
	if defaultEnv == "" {
		defaultEnv = "dev"
	}
	env := flag.String("env", defaultEnv, "environment whose config/envs/.env.<env> file is loaded")
	input := flag.String("input", "", "input .csv or .xlsx file, overrides INPUT_PATH")
	outDir := flag.String("out", "", "output directory, overrides OUTPUT_DIR")
	flag.Parse()

	config.LoadEnv(*env)

	cfg, err := config.Load()
	logging.InitLogger(logging.Options{Level: cfg.Logging.Level, File: cfg.Logging.File})
	if err != nil {
		slog.Error("[Main] Failed to load config", slog.String("error", err.Error()))
		return 1
	}
	if *input != "" {
		cfg.Input.Path = *input
	}
	if *outDir != "" {
		cfg.Output.Dir = *outDir
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("[Main] Invalid config", slog.String("error", err.Error()))
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := sources.Load(cfg.Input.Path, sources.Options{
		TextColumn: cfg.Input.TextColumn,
		IDColumn:   cfg.Input.IDColumn,
		Sheet:      cfg.Input.Sheet,
	})
	if err != nil {
		slog.Error("[Main] Failed to read input", slog.String("error", err.Error()))
		return 1
	}

	var cl closers
	defer cl.Close()

	sinks := openSinks(ctx, cfg, &cl)
	p := pipeline.New(
		pipeline.Options{
			Normalizer: normalizer.Options{
				MinLength:  cfg.Analysis.MinLength,
				NormalForm: cfg.Analysis.NormalForm,
			},
			KeywordsTopK:  cfg.Analysis.KeywordsTopK,
			FrequencyTopN: cfg.Analysis.FrequencyTop,
			Workers:       cfg.Analysis.Workers,
			Sentiment: sentiment.Options{
				MaxTokens: cfg.Sentiment.MaxTokens,
				Workers:   cfg.Sentiment.Workers,
			},
		},
		lexiconLoader(cfg),
		segmenterLoader(cfg, &cl),
		modelLoader(cfg, &cl),
		sinks...,
	)

	res, summary := p.Run(ctx, records)

	files := listFiles(sinks)
	report := reportData(res, summary, files)
	readBackReport(ctx, sinks, res.RunID, &report)
	if paths, err := export.WriteReport(cfg.Output.Dir, report); err != nil {
		slog.Error("[Main] Failed to write report", slog.String("error", err.Error()))
	} else {
		files = append(files, paths...)
	}

	metrics := export.NewStageMetrics()
	metrics.Observe(summary)
	metrics.ObserveLabels(res.Sentiment.Counts())
	if path, err := metrics.WriteTextfile(cfg.Output.Dir); err != nil {
		slog.Error("[Main] Failed to write metrics", slog.String("error", err.Error()))
	} else {
		files = append(files, path)
	}

	for _, st := range summary.Stages {
		slog.Info("[Main] Stage summary",
			slog.String("stage", st.Stage),
			slog.String("status", string(st.Status)),
			slog.Int("items", st.Items),
			slog.Int("skipped", st.Skipped),
			slog.Duration("duration", st.Duration))
	}
	for _, f := range files {
		slog.Info("[Main] Generated file", slog.String("path", f))
	}

	if st, _ := summary.Stage(pipeline.StageNormalize); st.Status != models.StageOK {
		return 1
	}
	return 0
}

func reportData(res *pipeline.Result, summary models.RunSummary, files []string) export.ReportData {
	ok := func(stage string) bool {
		st, _ := summary.Stage(stage)
		return st.Status == models.StageOK
	}
	return export.ReportData{
		Summary:    summary,
		Comments:   len(res.Comments),
		Keywords:   res.Keywords,
		TopWords:   res.TopWords,
		Sentiment:  res.Sentiment.Counts(),
		Files:      files,
		KeywordsOK: ok(pipeline.StageKeywords),
		WordsOK:    ok(pipeline.StageFrequency),
		LabelsOK:   ok(pipeline.StageSentiment),
	}
}
