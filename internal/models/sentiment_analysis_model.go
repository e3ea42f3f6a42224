package models

type SentimentLabel string

const (
	LabelPositive SentimentLabel = "positive"
	LabelNegative SentimentLabel = "negative"
	LabelUnknown  SentimentLabel = "unknown"
)

// SentimentResult is the per comment classification. Confidence is nil
// exactly when Label is LabelUnknown.
type SentimentResult struct {
	CommentID  string         `json:"comment_id" dynamodbav:"comment_id"`
	Label      SentimentLabel `json:"label" dynamodbav:"label"`
	Confidence *float64       `json:"confidence,omitempty" dynamodbav:"confidence,omitempty"`
}

func UnknownSentiment(commentID string) SentimentResult {
	return SentimentResult{CommentID: commentID, Label: LabelUnknown}
}
