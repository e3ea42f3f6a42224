package db

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/spacesedan/danmakuflow/internal/models"
	"github.com/spacesedan/danmakuflow/internal/utils"
)

const (
	DEFAULT_SENTIMENT_TABLE = "DanmakuSentiment"
	MAX_DYNAMO_BATCH        = 25
	MAX_UNPROCESSED_RETRIES = 3
	SENTIMENT_TTL           = 7 * 24 * time.Hour
)

// BatchWriter is the part of the DynamoDB client the sink uses.
type BatchWriter interface {
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

// DynamoSentimentSink writes sentiment results in batches of 25, retrying
// unprocessed items with backoff.
type DynamoSentimentSink struct {
	client  BatchWriter
	table   string
	backoff time.Duration
}

func NewDynamoSentimentSink(client BatchWriter, table string) *DynamoSentimentSink {
	if table == "" {
		table = DEFAULT_SENTIMENT_TABLE
	}
	return &DynamoSentimentSink{client: client, table: table, backoff: 500 * time.Millisecond}
}

func (d *DynamoSentimentSink) Name() string { return "dynamodb" }

type sentimentItem struct {
	RunID string `dynamodbav:"run_id"`
	models.SentimentResult
	Text      string `dynamodbav:"text"`
	CreatedAt int64  `dynamodbav:"created_at"`
	TTL       int64  `dynamodbav:"ttl"`
}

func (d *DynamoSentimentSink) WriteSentiment(ctx context.Context, runID string, comments []models.Comment, results []models.SentimentResult) error {
	if len(comments) != len(results) {
		return fmt.Errorf("[DynamoDB] %d comments but %d sentiment results", len(comments), len(results))
	}

	now := time.Now()
	buffer := utils.NewBatchBuffer[types.WriteRequest](MAX_DYNAMO_BATCH)
	for i, result := range results {
		item, err := attributevalue.MarshalMap(sentimentItem{
			RunID:           runID,
			SentimentResult: result,
			Text:            comments[i].Text,
			CreatedAt:       now.Unix(),
			TTL:             now.Add(SENTIMENT_TTL).Unix(),
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] marshal sentiment %s: %w", result.CommentID, err)
		}
		buffer.Add(types.WriteRequest{PutRequest: &types.PutRequest{Item: item}})

		if buffer.Full() {
			buffer.LogBatchProcessing("dynamodb sentiment")
			if err := d.flush(ctx, buffer.GetAndClear()); err != nil {
				return err
			}
		}
	}
	if buffer.HasData() {
		buffer.LogBatchProcessing("dynamodb sentiment")
		if err := d.flush(ctx, buffer.GetAndClear()); err != nil {
			return err
		}
	}

	slog.Info("[DynamoDB] Successfully stored sentiment results",
		slog.String("table", d.table),
		slog.Int("count", len(results)))
	return nil
}

func (d *DynamoSentimentSink) flush(ctx context.Context, writeRequests []types.WriteRequest) error {
	out, err := d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
		RequestItems: map[string][]types.WriteRequest{d.table: writeRequests},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] Failed to batch write sentiment results: %w", err)
	}

	retryCount := 0
	backoff := d.backoff
	for len(out.UnprocessedItems) > 0 && retryCount < MAX_UNPROCESSED_RETRIES {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2

		slog.Warn("[DynamoDB] Retrying unprocessed sentiment items...",
			slog.Int("attempt", retryCount+1),
			slog.Int("remaining", len(out.UnprocessedItems[d.table])))

		out, err = d.client.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: out.UnprocessedItems,
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] Retry error %w", err)
		}
		retryCount++
	}

	if remaining := len(out.UnprocessedItems[d.table]); remaining > 0 {
		return fmt.Errorf("[DynamoDB] %d sentiment items failed after retries", remaining)
	}
	return nil
}
