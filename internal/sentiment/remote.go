package sentiment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/spacesedan/danmakuflow/internal/models"
)

// InferenceService is a hosted classifier answering a label with the
// probability of that label.
type InferenceService interface {
	GetBatchedSentimentAnalysis(ctx context.Context, input models.InferenceBatchRequest) (models.InferenceBatchResponse, error)
}

// RemoteModel delegates the forward pass to an InferenceService. The service
// only reports the winning label's probability; the other class gets the
// complement.
type RemoteModel struct {
	svc InferenceService
}

func NewRemoteModel(svc InferenceService) *RemoteModel {
	return &RemoteModel{svc: svc}
}

func (m *RemoteModel) Logits(ctx context.Context, text string) ([]float64, error) {
	resp, err := m.svc.GetBatchedSentimentAnalysis(ctx, models.InferenceBatchRequest{{ContentID: "0", Text: text}})
	if err != nil {
		return nil, err
	}
	if len(resp) != 1 {
		return nil, fmt.Errorf("expected 1 inference result, got %d", len(resp))
	}

	p := resp[0].Confidence
	if math.IsNaN(p) || p < 0 || p > 1 {
		return nil, fmt.Errorf("confidence %v out of range", p)
	}

	var neg, pos float64
	switch label := strings.ToLower(resp[0].SentimentLabel); {
	case strings.HasPrefix(label, "pos"):
		neg, pos = 1-p, p
	case strings.HasPrefix(label, "neg"):
		neg, pos = p, 1-p
	default:
		return nil, fmt.Errorf("unexpected label %q", resp[0].SentimentLabel)
	}
	return []float64{logProb(neg), logProb(pos)}, nil
}
