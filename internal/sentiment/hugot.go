package sentiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
	"github.com/knights-analytics/hugot/options"
	"github.com/knights-analytics/hugot/pipelines"

	"github.com/spacesedan/danmakuflow/internal/internalerr"
)

// minProbability keeps log-space logits finite when a class scores zero.
const minProbability = 1e-12

type HugotOptions struct {
	ModelName     string
	ModelDir      string
	ModelPath     string
	OnnxFilename  string
	Runtime       string
	OrtLibrary    string
	Download      bool
	NegativeLabel string
	PositiveLabel string
}

// HugotModel runs an ONNX text classification model through hugot. The
// pipeline reports per class probabilities, which are turned back into
// log-space logits so the classifier's softmax reproduces them.
type HugotModel struct {
	session  *hugot.Session
	pipeline *pipelines.TextClassificationPipeline
	negLabel string
	posLabel string
}

// NewHugotModel resolves the model directory, downloading the model when it is
// missing and downloads are allowed, then starts a session and pipeline. Every
// failure wraps ErrConfiguration.
func NewHugotModel(opts HugotOptions) (*HugotModel, error) {
	modelPath, err := resolveModelPath(opts)
	if err != nil {
		return nil, err
	}

	session, err := newSession(opts)
	if err != nil {
		return nil, internalerr.Configuration("hugot session", err)
	}

	config := hugot.TextClassificationConfig{
		ModelPath:    modelPath,
		Name:         "danmakuSentimentPipeline",
		OnnxFilename: opts.OnnxFilename,
		Options: []hugot.TextClassificationOption{
			pipelines.WithSoftmax(),
			pipelines.WithMultiLabel(),
		},
	}
	pipeline, err := hugot.NewPipeline(session, config)
	if err != nil {
		session.Destroy()
		return nil, internalerr.Configuration("sentiment model "+modelPath, err)
	}

	slog.Info("[HugotModel] Sentiment pipeline ready",
		slog.String("model_path", modelPath),
		slog.String("runtime", runtimeName(opts.Runtime)))

	return &HugotModel{
		session:  session,
		pipeline: pipeline,
		negLabel: opts.NegativeLabel,
		posLabel: opts.PositiveLabel,
	}, nil
}

func runtimeName(runtime string) string {
	if strings.EqualFold(runtime, "go") {
		return "go"
	}
	return "ort"
}

func newSession(opts HugotOptions) (*hugot.Session, error) {
	if runtimeName(opts.Runtime) == "go" {
		return hugot.NewGoSession()
	}
	if opts.OrtLibrary != "" {
		return hugot.NewORTSession(options.WithOnnxLibraryPath(opts.OrtLibrary))
	}
	return hugot.NewORTSession()
}

func resolveModelPath(opts HugotOptions) (string, error) {
	if opts.ModelPath != "" {
		if _, err := os.Stat(opts.ModelPath); err != nil {
			return "", internalerr.Configuration("sentiment model "+opts.ModelPath, err)
		}
		return opts.ModelPath, nil
	}
	if opts.ModelName == "" {
		return "", internalerr.Configuration("sentiment model", fmt.Errorf("neither model path nor model name is set"))
	}

	modelPath := filepath.Join(opts.ModelDir, strings.ReplaceAll(opts.ModelName, "/", "_"))
	if _, err := os.Stat(modelPath); err == nil {
		slog.Info("[HugotModel] Using existing model", slog.String("path", modelPath))
		return modelPath, nil
	}
	if !opts.Download {
		return "", internalerr.Configuration("sentiment model "+modelPath, os.ErrNotExist)
	}

	if err := os.MkdirAll(opts.ModelDir, os.ModePerm); err != nil {
		return "", internalerr.Configuration("model dir "+opts.ModelDir, err)
	}

	slog.Info("[HugotModel] Model not found, downloading...", slog.String("model", opts.ModelName))
	downloaded, err := hugot.DownloadModel(opts.ModelName, opts.ModelDir, hugot.NewDownloadOptions())
	if err != nil {
		return "", internalerr.Configuration("download "+opts.ModelName, err)
	}
	slog.Info("[HugotModel] Model downloaded successfully", slog.String("path", downloaded))
	return downloaded, nil
}

func (m *HugotModel) Logits(_ context.Context, text string) ([]float64, error) {
	out, err := m.pipeline.RunPipeline([]string{text})
	if err != nil {
		return nil, err
	}
	if len(out.ClassificationOutputs) != 1 {
		return nil, fmt.Errorf("expected 1 classification output, got %d", len(out.ClassificationOutputs))
	}

	classes := out.ClassificationOutputs[0]
	labels := make([]string, len(classes))
	probs := make([]float64, len(classes))
	for i, c := range classes {
		labels[i] = c.Label
		probs[i] = float64(c.Score)
	}

	neg, pos, err := pickClasses(labels, probs, m.negLabel, m.posLabel)
	if err != nil {
		return nil, err
	}
	return []float64{logProb(neg), logProb(pos)}, nil
}

func logProb(p float64) float64 {
	return math.Log(math.Max(p, minProbability))
}

// pickClasses finds the negative and positive probabilities. Configured label
// names win; otherwise labels starting with "neg"/"pos" or LABEL_0/LABEL_1
// are recognised; otherwise a two-class output is read positionally.
func pickClasses(labels []string, probs []float64, negLabel, posLabel string) (float64, float64, error) {
	negIdx, posIdx := -1, -1
	for i, l := range labels {
		switch {
		case negLabel != "" && strings.EqualFold(l, negLabel):
			negIdx = i
		case posLabel != "" && strings.EqualFold(l, posLabel):
			posIdx = i
		}
	}
	if (negLabel != "" && negIdx < 0) || (posLabel != "" && posIdx < 0) {
		return 0, 0, fmt.Errorf("labels %q/%q not found in model output %v", negLabel, posLabel, labels)
	}

	// An unconfigured side is resolved by label prefix, then by the
	// remaining position of a two-class head.
	for i, l := range labels {
		if i == negIdx || i == posIdx {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(l))
		switch {
		case negIdx < 0 && (strings.HasPrefix(lower, "neg") || lower == "label_0"):
			negIdx = i
		case posIdx < 0 && (strings.HasPrefix(lower, "pos") || lower == "label_1"):
			posIdx = i
		}
	}
	if len(probs) == 2 {
		switch {
		case negIdx < 0 && posIdx < 0:
			negIdx, posIdx = 0, 1
		case negIdx < 0:
			negIdx = 1 - posIdx
		case posIdx < 0:
			posIdx = 1 - negIdx
		}
	}

	if negIdx < 0 || posIdx < 0 || negIdx >= len(probs) || posIdx >= len(probs) {
		return 0, 0, fmt.Errorf("cannot resolve negative/positive classes in %v", labels)
	}
	return probs[negIdx], probs[posIdx], nil
}

func (m *HugotModel) Close() error {
	if m.session == nil {
		return nil
	}
	return m.session.Destroy()
}
