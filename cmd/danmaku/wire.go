package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spacesedan/danmakuflow/config"
	"github.com/spacesedan/danmakuflow/internal/clients"
	"github.com/spacesedan/danmakuflow/internal/clients/kafka_client"
	"github.com/spacesedan/danmakuflow/internal/db"
	"github.com/spacesedan/danmakuflow/internal/export"
	"github.com/spacesedan/danmakuflow/internal/internalerr"
	"github.com/spacesedan/danmakuflow/internal/lexicon"
	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/pipeline"
	"github.com/spacesedan/danmakuflow/internal/segmenter"
	"github.com/spacesedan/danmakuflow/internal/sentiment"
)

// closers collects resources opened while wiring so main can release them
// in reverse order.
type closers []io.Closer

func (c *closers) add(x io.Closer) {
	*c = append(*c, x)
}

func (c *closers) Close() {
	for i := len(*c) - 1; i >= 0; i-- {
		if err := (*c)[i].Close(); err != nil {
			slog.Warn("[Main] Close failed", slog.String("error", err.Error()))
		}
	}
}

// fileLister is implemented by sinks that write local files.
type fileLister interface {
	Files() []string
}

// runStore is implemented by sinks that can read a finished run back.
type runStore interface {
	LabelCounts(ctx context.Context, runID string) (map[models.SentimentLabel]int, error)
	TopWords(ctx context.Context, runID string, n int) ([]models.WordCount, error)
}

// readBackReport replaces the report's label counts and top words with what
// the first run store persisted, so the report shows stored data.
func readBackReport(ctx context.Context, sinks []pipeline.Sink, runID string, report *export.ReportData) {
	for _, s := range sinks {
		store, ok := s.(runStore)
		if !ok {
			continue
		}
		if report.LabelsOK {
			if counts, err := store.LabelCounts(ctx, runID); err != nil {
				slog.Warn("[Main] Failed to read label counts back", slog.String("sink", s.Name()), slog.String("error", err.Error()))
			} else if len(counts) > 0 {
				report.Sentiment = counts
			}
		}
		if report.WordsOK {
			if words, err := store.TopWords(ctx, runID, len(report.TopWords)); err != nil {
				slog.Warn("[Main] Failed to read top words back", slog.String("sink", s.Name()), slog.String("error", err.Error()))
			} else if len(words) > 0 {
				report.TopWords = words
			}
		}
		return
	}
}

// openSinks builds every enabled sink. A sink that cannot be opened is
// logged and left out so the run still produces the other outputs.
func openSinks(ctx context.Context, cfg config.Config, cl *closers) []pipeline.Sink {
	var sinks []pipeline.Sink

	if cfg.SinkEnabled("csv") {
		sinks = append(sinks, export.NewCSVSink(cfg.Output.Dir, cfg.Input.TextColumn))
	}
	if cfg.SinkEnabled("xlsx") {
		sinks = append(sinks, export.NewXLSXSink(cfg.Output.Dir))
	}
	if cfg.SinkEnabled("sqlite") {
		store, err := db.OpenSQLite(ctx, cfg.SQLitePath())
		if err != nil {
			slog.Error("[Main] Failed to open SQLite store", slog.String("error", err.Error()))
		} else {
			cl.add(store)
			sinks = append(sinks, store)
		}
	}
	if cfg.SinkEnabled("dynamodb") {
		client, err := clients.GetDynamoDBClient(ctx, clients.AWSOptions{
			Region:   cfg.Sinks.AWSRegion,
			Endpoint: cfg.Sinks.AWSEndpoint,
		})
		if err != nil {
			slog.Error("[Main] Failed to create DynamoDB client", slog.String("error", err.Error()))
		} else {
			sinks = append(sinks, db.NewDynamoSentimentSink(client, cfg.Sinks.DynamoTable))
		}
	}
	if cfg.SinkEnabled("kafka") {
		kcfg := kafka_client.NewKafkaConfig(cfg.Sinks.KafkaBroker, cfg.Sinks.KafkaTopic, cfg.Sinks.KafkaTimeout)
		producer, err := kafka_client.NewProducer(ctx, kcfg)
		if err != nil {
			slog.Error("[Main] Failed to create Kafka producer", slog.String("error", err.Error()))
		} else {
			cl.add(producer)
			sinks = append(sinks, export.NewKafkaSink(producer, producer.Topic()))
		}
	}

	names := make([]string, len(sinks))
	for i, s := range sinks {
		names[i] = s.Name()
	}
	slog.Info("[Main] Sinks ready", slog.String("sinks", strings.Join(names, ",")))
	return sinks
}

func lexiconLoader(cfg config.Config) pipeline.LexiconLoader {
	return func(context.Context) (*lexicon.Lexicon, error) {
		lex, err := lexicon.Load(cfg.Lexicon.UserDict, cfg.Lexicon.Stopwords)
		if err != nil {
			return nil, err
		}
		st := lex.Stats()
		slog.Info("[Main] Lexicon loaded",
			slog.Int("dict_entries", st.DictEntries),
			slog.Int("stopwords", st.Stopwords))
		return lex, nil
	}
}

func segmenterLoader(cfg config.Config, cl *closers) pipeline.SegmenterLoader {
	return func(context.Context) (segmenter.Segmenter, error) {
		seg, err := segmenter.NewJieba(cfg.Lexicon.JiebaDictDir)
		if err != nil {
			return nil, err
		}
		cl.add(seg)
		return seg, nil
	}
}

// modelLoader builds the configured backend and, when a Valkey address is
// set, wraps it with the logits cache. A cache that cannot be reached is
// skipped rather than failing the stage.
func modelLoader(cfg config.Config, cl *closers) sentiment.ModelLoader {
	return func(ctx context.Context) (sentiment.Model, error) {
		sc := cfg.Sentiment

		var (
			model   sentiment.Model
			modelID string
		)
		switch sc.Backend {
		case "vader":
			model, modelID = sentiment.NewVaderModel(), "vader"
		case "remote":
			if sc.Endpoint == "" {
				return nil, internalerr.Configuration("sentiment endpoint", errors.New("SENTIMENT_ENDPOINT is empty"))
			}
			model, modelID = sentiment.NewRemoteModel(clients.NewInferenceClient(sc.Endpoint, sc.Timeout)), "remote:"+sc.Endpoint
		case "hugot", "":
			hm, err := sentiment.NewHugotModel(sentiment.HugotOptions{
				ModelName:     sc.ModelName,
				ModelDir:      sc.ModelDir,
				ModelPath:     sc.ModelPath,
				OnnxFilename:  sc.OnnxFilename,
				Runtime:       sc.Runtime,
				OrtLibrary:    sc.OrtLibrary,
				Download:      sc.Download,
				NegativeLabel: sc.NegativeLabel,
				PositiveLabel: sc.PositiveLabel,
			})
			if err != nil {
				return nil, err
			}
			cl.add(hm)
			modelID = sc.ModelName
			if sc.ModelPath != "" {
				modelID = sc.ModelPath
			}
			model = hm
		default:
			return nil, internalerr.Configuration("sentiment backend", fmt.Errorf("unknown backend %q", sc.Backend))
		}

		if sc.CacheAddress == "" {
			return model, nil
		}
		cache, err := clients.InitValkey(clients.ValkeyOptions{
			Address:  sc.CacheAddress,
			Password: sc.CachePassword,
			TLS:      sc.CacheTLS,
			TTL:      sc.CacheTTL,
		})
		if err != nil {
			slog.Warn("[Main] Sentiment cache unavailable, continuing without it",
				slog.String("error", err.Error()))
			return model, nil
		}
		cl.add(cache)
		return sentiment.NewCachedModel(model, cache, modelID), nil
	}
}

func listFiles(sinks []pipeline.Sink) []string {
	var files []string
	for _, s := range sinks {
		if fl, ok := s.(fileLister); ok {
			files = append(files, fl.Files()...)
		}
	}
	return files
}
