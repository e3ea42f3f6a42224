package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/spacesedan/danmakuflow/internal/models"
)

// InferenceClient talks to a hosted sentiment service that accepts batches of
// {content_id, text} and answers with a label and confidence per item.
type InferenceClient struct {
	Client   *http.Client
	Endpoint string
	backoff  time.Duration
}

func NewInferenceClient(endpoint string, timeout time.Duration) *InferenceClient {
	slog.Info("[InferenceClient] Initializing Client",
		slog.String("endpoint", endpoint),
		slog.Duration("timeout", timeout))
	return &InferenceClient{
		Client:   &http.Client{Timeout: timeout},
		Endpoint: endpoint,
		backoff:  INITIAL_BACKOFF,
	}
}

// DoWithRetry retries transport errors and 5xx answers with exponential
// backoff. The request body must be replayable through GetBody.
func (h *InferenceClient) DoWithRetry(ctx context.Context, req *http.Request) (*http.Response, error) {
	var resp *http.Response
	var err error
	backoff := h.backoff

	for attempt := 0; attempt < MAX_RETRIES; attempt++ {
		if attempt > 0 && req.GetBody != nil {
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return nil, bodyErr
			}
			req.Body = body
		}

		resp, err = h.Client.Do(req)
		if err == nil && resp.StatusCode < 500 {
			return resp, nil
		}

		msg := errMsg(err, resp)
		if resp != nil {
			resp.Body.Close()
		}

		slog.Warn("[InferenceClient] Request failed, will retry",
			slog.Int("attempt", attempt+1),
			slog.String("error", msg))

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, MAX_BACKOFF)
	}

	if err == nil {
		err = fmt.Errorf("service unavailable after %d attempts", MAX_RETRIES)
	}
	return nil, err
}

func (h *InferenceClient) GetBatchedSentimentAnalysis(ctx context.Context, input models.InferenceBatchRequest) (models.InferenceBatchResponse, error) {
	var result models.InferenceBatchResponse
	start := time.Now()

	if err := h.postJSON(ctx, h.Endpoint, input, &result); err != nil {
		slog.Error("[InferenceClient] Sentiment Analysis request failed",
			slog.Duration("elapsed", time.Since(start)))
		return result, err
	}

	slog.Debug("[InferenceClient] Sentiment Analysis request successful",
		slog.Int("items", len(input)),
		slog.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (h *InferenceClient) postJSON(ctx context.Context, endpoint string, input any, output any) error {
	body, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("failed to marshal input: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", USER_AGENT)

	resp, err := h.DoWithRetry(ctx, req)
	if err != nil {
		slog.Error("[InferenceClient] Failed request after retries",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()))
		return fmt.Errorf("request failed after retries: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return fmt.Errorf("service answered %d: %s", resp.StatusCode, preview(respBody))
	}

	if err := json.Unmarshal(respBody, output); err != nil {
		slog.Error("[InferenceClient] Failed to unmarshal response",
			slog.String("endpoint", endpoint),
			slog.String("error", err.Error()),
			slog.String("raw_response", preview(respBody)),
			slog.Int("raw_response_length", len(respBody)))
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return nil
}

func preview(respBody []byte) string {
	raw := string(respBody)
	if len(raw) > 50 {
		raw = raw[:50]
	}
	return raw
}

func errMsg(err error, resp *http.Response) string {
	if err != nil {
		return err.Error()
	}
	if resp != nil {
		return fmt.Sprintf("status code %d", resp.StatusCode)
	}
	return "unknown error"
}
