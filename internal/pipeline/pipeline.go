// Package pipeline runs the analysis stages over one batch of records and
// hands each stage's output to the configured sinks.
//
// Stages run in the order normalize, tokenize, frequency, keywords,
// sentiment. A failing stage only takes down the stages that read its
// output; sentiment reads the normalized comments directly and still runs
// when segmentation is broken.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/spacesedan/danmakuflow/internal/frequency"
	"github.com/spacesedan/danmakuflow/internal/internalerr"
	"github.com/spacesedan/danmakuflow/internal/keywords"
	"github.com/spacesedan/danmakuflow/internal/lexicon"
	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/normalizer"
	"github.com/spacesedan/danmakuflow/internal/segmenter"
	"github.com/spacesedan/danmakuflow/internal/sentiment"
	"github.com/spacesedan/danmakuflow/internal/tokenizer"
)

const (
	StageNormalize = "normalize"
	StageTokenize  = "tokenize"
	StageFrequency = "frequency"
	StageKeywords  = "keywords"
	StageSentiment = "sentiment"
)

type (
	LexiconLoader   func(ctx context.Context) (*lexicon.Lexicon, error)
	SegmenterLoader func(ctx context.Context) (segmenter.Segmenter, error)
)

type Options struct {
	Normalizer    normalizer.Options
	KeywordsTopK  int
	FrequencyTopN int
	Workers       int
	Sentiment     sentiment.Options
}

type Pipeline struct {
	opts      Options
	lexicon   *lazy[*lexicon.Lexicon]
	segmenter *lazy[segmenter.Segmenter]
	model     *lazy[sentiment.Model]
	sinks     []Sink
}

// New wires the stages. The loaders run on first use; the segmenter loader
// receives the user dictionary right after it is built, before any text is
// segmented.
func New(opts Options, loadLexicon LexiconLoader, loadSegmenter SegmenterLoader, loadModel sentiment.ModelLoader, sinks ...Sink) *Pipeline {
	if opts.KeywordsTopK <= 0 {
		opts.KeywordsTopK = keywords.DefaultTopK
	}
	if opts.FrequencyTopN <= 0 {
		opts.FrequencyTopN = frequency.DefaultTopN
	}

	p := &Pipeline{opts: opts, sinks: sinks}
	p.lexicon = newLazy(func(ctx context.Context) (*lexicon.Lexicon, error) {
		return loadLexicon(ctx)
	})
	p.segmenter = newLazy(func(ctx context.Context) (segmenter.Segmenter, error) {
		lex, err := p.lexicon.get(ctx)
		if err != nil {
			return nil, err
		}
		seg, err := loadSegmenter(ctx)
		if err != nil {
			return nil, err
		}
		lex.Register(seg)
		return seg, nil
	})
	p.model = newLazy(func(ctx context.Context) (sentiment.Model, error) {
		return loadModel(ctx)
	})
	return p
}

// Result carries every stage's output. Fields of stages that did not finish
// are left at their zero value.
type Result struct {
	RunID     string
	Comments  []models.Comment
	Tokens    tokenizer.Result
	Frequency *frequency.Table
	TopWords  []models.WordCount
	Keywords  []models.KeywordEntry
	Sentiment sentiment.Batch
	Errors    []error
}

type stageOutput struct {
	items   int
	skipped int
	// deliver hands the finished output to the sinks.
	deliver func(ctx context.Context) map[string]string
}

// Run executes all stages. It never returns an error: failures are recorded
// per stage in the summary and in Result.Errors as *internalerr.StageError.
func (p *Pipeline) Run(ctx context.Context, records []models.RawRecord) (*Result, models.RunSummary) {
	res := &Result{RunID: ulid.Make().String()}
	summary := models.RunSummary{RunID: res.RunID}

	slog.Info("[Pipeline] Starting run",
		slog.String("run_id", res.RunID),
		slog.Int("records", len(records)))

	normalized := p.stage(ctx, res, &summary, StageNormalize, nil, func(ctx context.Context) (stageOutput, error) {
		res.Comments = normalizer.New(p.opts.Normalizer).Normalize(records)
		return stageOutput{items: len(res.Comments), skipped: len(records) - len(res.Comments)}, nil
	})

	tokenized := p.stage(ctx, res, &summary, StageTokenize, []bool{normalized}, func(ctx context.Context) (stageOutput, error) {
		lex, err := p.lexicon.get(ctx)
		if err != nil {
			return stageOutput{}, err
		}
		seg, err := p.segmenter.get(ctx)
		if err != nil {
			return stageOutput{}, err
		}
		tr, err := tokenizer.New(seg, lex, p.opts.Workers).SegmentAll(ctx, res.Comments)
		if err != nil {
			return stageOutput{}, err
		}
		res.Tokens = tr
		return stageOutput{
			items:   len(tr.Sequences),
			skipped: tr.Skipped(),
			deliver: func(ctx context.Context) map[string]string {
				return deliver(ctx, p.sinks, func(ctx context.Context, w TokenWriter) error {
					return w.WriteTokens(ctx, res.RunID, tr.Sequences)
				})
			},
		}, nil
	})

	p.stage(ctx, res, &summary, StageFrequency, []bool{tokenized}, func(ctx context.Context) (stageOutput, error) {
		table, err := frequency.CountParallel(ctx, res.Tokens.Sequences, p.opts.Workers)
		if err != nil {
			return stageOutput{}, err
		}
		if table.Total() != res.Tokens.TotalTokens() {
			return stageOutput{}, fmt.Errorf("counted %d tokens, tokenizer emitted %d", table.Total(), res.Tokens.TotalTokens())
		}
		res.Frequency = table
		all := table.Sorted()
		res.TopWords = table.Top(p.opts.FrequencyTopN)
		return stageOutput{
			items: len(all),
			deliver: func(ctx context.Context) map[string]string {
				return deliver(ctx, p.sinks, func(ctx context.Context, w FrequencyWriter) error {
					return w.WriteFrequencies(ctx, res.RunID, all, res.TopWords)
				})
			},
		}, nil
	})

	p.stage(ctx, res, &summary, StageKeywords, []bool{tokenized}, func(ctx context.Context) (stageOutput, error) {
		seg, err := p.segmenter.get(ctx)
		if err != nil {
			return stageOutput{}, err
		}
		res.Keywords = keywords.New(seg).ExtractTopK(keywords.JoinCorpus(res.Tokens.Sequences), p.opts.KeywordsTopK)
		return stageOutput{
			items: len(res.Keywords),
			deliver: func(ctx context.Context) map[string]string {
				return deliver(ctx, p.sinks, func(ctx context.Context, w KeywordWriter) error {
					return w.WriteKeywords(ctx, res.RunID, res.Keywords)
				})
			},
		}, nil
	})

	p.stage(ctx, res, &summary, StageSentiment, []bool{normalized}, func(ctx context.Context) (stageOutput, error) {
		model, err := p.model.get(ctx)
		if err != nil {
			return stageOutput{}, err
		}
		batch, err := sentiment.NewClassifier(model, p.opts.Sentiment).ClassifyAll(ctx, res.Comments)
		if err != nil {
			return stageOutput{}, err
		}
		res.Sentiment = batch
		return stageOutput{
			items:   len(batch.Results) - batch.Failed,
			skipped: batch.Failed,
			deliver: func(ctx context.Context) map[string]string {
				return deliver(ctx, p.sinks, func(ctx context.Context, w SentimentWriter) error {
					return w.WriteSentiment(ctx, res.RunID, res.Comments, batch.Results)
				})
			},
		}, nil
	})

	slog.Info("[Pipeline] Run finished",
		slog.String("run_id", res.RunID),
		slog.Any("failed_stages", summary.Failed()))
	return res, summary
}

// stage runs fn unless a dependency did not finish, recovering panics and
// recording the outcome. It reports whether the stage finished.
func (p *Pipeline) stage(ctx context.Context, res *Result, summary *models.RunSummary, name string, deps []bool, fn func(ctx context.Context) (stageOutput, error)) (ok bool) {
	report := models.StageReport{Stage: name}
	start := time.Now()
	defer func() {
		report.Duration = time.Since(start)
		summary.Stages = append(summary.Stages, report)
	}()

	for _, dep := range deps {
		if !dep {
			report.Status = models.StageSkipped
			slog.Warn("[Pipeline] Skipping stage, an upstream stage did not finish",
				slog.String("stage", name))
			return false
		}
	}

	out, err := runRecovered(ctx, fn)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		stageErr := &internalerr.StageError{Stage: name, Err: err}
		res.Errors = append(res.Errors, stageErr)
		report.Status = models.StageFailed
		report.Error = err.Error()
		slog.Error("[Pipeline] Stage failed",
			slog.String("stage", name),
			slog.String("error", err.Error()))
		return false
	}

	report.Status = models.StageOK
	report.Items = out.items
	report.Skipped = out.skipped
	if out.deliver != nil {
		report.SinkErrors = out.deliver(ctx)
	}
	slog.Info("[Pipeline] Stage finished",
		slog.String("stage", name),
		slog.Int("items", out.items),
		slog.Int("skipped", out.skipped),
		slog.Duration("elapsed", time.Since(start)))
	return true
}

func runRecovered(ctx context.Context, fn func(ctx context.Context) (stageOutput, error)) (out stageOutput, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = stageOutput{}, internalerr.FromPanic(internalerr.ErrStage, r)
		}
	}()
	return fn(ctx)
}

// deliver calls write for every sink implementing W. Sink failures are
// returned by sink name and do not fail the stage.
func deliver[W Sink](ctx context.Context, sinks []Sink, write func(ctx context.Context, w W) error) map[string]string {
	var errs map[string]string
	for _, s := range sinks {
		w, ok := s.(W)
		if !ok {
			continue
		}
		if err := safeWrite(ctx, w, write); err != nil {
			if errs == nil {
				errs = map[string]string{}
			}
			errs[s.Name()] = err.Error()
			slog.Error("[Pipeline] Sink write failed",
				slog.String("sink", s.Name()),
				slog.String("error", err.Error()))
		}
	}
	return errs
}

func safeWrite[W Sink](ctx context.Context, w W, write func(ctx context.Context, w W) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	return write(ctx, w)
}
