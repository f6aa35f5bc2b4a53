package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/castora/creatormatch-go/internal/constants"
	"github.com/castora/creatormatch-go/internal/domain"
	"github.com/castora/creatormatch-go/pkg/errors"
	"go.uber.org/zap"
)

// Client posts finished discovery results back to the platform over HTTP.
type Client struct {
	resultURL  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(resultURL string, logger *zap.Logger) *Client {
	return &Client{
		resultURL: resultURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (c *Client) SendResult(ctx context.Context, result *DiscoverResult) error {
	if err := c.doRequest(ctx, "POST", c.resultURL, result, nil); err != nil {
		c.logger.Error("Failed to send discovery result",
			zap.Error(err),
			zap.String("request_id", result.RequestID),
		)
		return err
	}

	return nil
}

// SendFailure reports a job that could not produce matches. The platform
// treats an empty match list with an error string as a retryable failure.
func (c *Client) SendFailure(ctx context.Context, requestID, workerID string, jobErr error) error {
	result := &DiscoverResult{
		RequestID: requestID,
		WorkerID:  workerID,
		Matches:   []domain.ScoredMatch{},
		Error:     jobErr.Error(),
	}

	if err := c.doRequest(ctx, "POST", c.resultURL, result, nil); err != nil {
		c.logger.Error("Failed to send failure report",
			zap.Error(err),
			zap.String("request_id", requestID),
		)
		return err
	}

	return nil
}

// doRequest posts one JSON payload. Transport errors, 5xx responses and 429
// are retried with exponential backoff; other client errors fail
// immediately since retrying a rejected payload cannot help.
func (c *Client) doRequest(ctx context.Context, method, url string, reqBody, respBody any) error {
	var jsonData []byte
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return errors.NewAPIError("failed to marshal request", 400, map[string]any{
				"url": url,
			}).WithCause(err)
		}
		jsonData = data
	}

	var lastErr error

	for attempt := 0; attempt < constants.RetryConfig.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := retryDelay(attempt - 1)
			c.logger.Warn("Retrying gateway request",
				zap.Int("attempt", attempt+1),
				zap.Duration("delay", delay),
			)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		var bodyReader io.Reader
		if jsonData != nil {
			bodyReader = bytes.NewReader(jsonData)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return errors.NewAPIError("failed to create request", 500, map[string]any{
				"url": url,
			}).WithCause(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = errors.NewAPIError("request failed", 500, map[string]any{
				"url": url,
			}).WithCause(err)
			continue
		}

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			lastErr = errors.NewAPIError(
				fmt.Sprintf("gateway API error: %s", resp.Status),
				resp.StatusCode,
				map[string]any{
					"url":  url,
					"body": string(bodyBytes),
				},
			)
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			bodyBytes, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return errors.NewAPIError(
				fmt.Sprintf("gateway API error: %s", resp.Status),
				resp.StatusCode,
				map[string]any{
					"url":  url,
					"body": string(bodyBytes),
				},
			)
		}

		if respBody != nil {
			if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
				resp.Body.Close()
				return errors.NewAPIError("failed to decode response", 500, map[string]any{
					"url": url,
				}).WithCause(err)
			}
		}
		resp.Body.Close()

		return nil
	}

	return lastErr
}

// retryDelay backs off exponentially with random jitter so sibling workers
// reporting at the same moment do not hit a recovering gateway in step.
func retryDelay(attempt int) time.Duration {
	base := constants.RetryConfig.BaseDelay * time.Duration(math.Pow(2, float64(attempt)))
	jitter := time.Duration(rand.Float64() * float64(constants.RetryConfig.Jitter))
	return base + jitter
}
