package models

type (
	InferenceBatchRequest []InferenceRequest
	InferenceRequest      struct {
		ContentID string `json:"content_id"`
		Text      string `json:"text"`
	}
)

type (
	InferenceBatchResponse []InferenceResponse
	InferenceResponse      struct {
		ContentID      string  `json:"content_id"`
		SentimentLabel string  `json:"sentiment_label"`
		Confidence     float64 `json:"confidence"`
	}
)
