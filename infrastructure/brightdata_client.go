// infrastructure/brightdata_client.go
package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/vitovidale/video-notes-service/domain"
)

// BrightDataClient triggers dataset collections whose results are delivered to our webhook.
type BrightDataClient struct {
	BaseURL   string
	APIToken  string
	DatasetID string
	HTTP      *http.Client
	Logger    *zap.Logger
}

func NewBrightDataClient(baseURL, apiToken, datasetID string, timeout time.Duration, logger *zap.Logger) *BrightDataClient {
	return &BrightDataClient{
		BaseURL:   strings.TrimRight(baseURL, "/"),
		APIToken:  apiToken,
		DatasetID: datasetID,
		HTTP:      &http.Client{Timeout: timeout},
		Logger:    logger,
	}
}

type triggerInput struct {
	URL string `json:"url"`
}

type triggerResponse struct {
	SnapshotID string `json:"snapshot_id"`
}

type providerErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// TriggerExtraction starts transcript collection for one video and returns the snapshot id.
func (c *BrightDataClient) TriggerExtraction(ctx context.Context, req domain.ExtractionRequest) (string, error) {
	if c.APIToken == "" || c.DatasetID == "" {
		return "", fmt.Errorf("%w: bright data token or dataset id not configured", domain.ErrProviderUnavailable)
	}

	params := url.Values{}
	params.Set("dataset_id", c.DatasetID)
	params.Set("endpoint", req.CallbackURL)
	params.Set("format", "json")
	params.Set("uncompressed_webhook", "true")
	if req.AuthToken != "" {
		params.Set("auth_header", "Bearer "+req.AuthToken)
	}
	if req.NotifyURL != "" {
		params.Set("notify", req.NotifyURL)
	}

	body, err := json.Marshal([]triggerInput{{URL: req.VideoURL}})
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/trigger?"+params.Encode(), bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.APIToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(httpReq)
	if err != nil {
		c.Logger.Error("bright data trigger failed", zap.String("video_url", req.VideoURL), zap.Error(err))
		return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", domain.ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		perr := &domain.ProviderError{Status: resp.StatusCode, Message: providerMessage(respBody)}
		c.Logger.Warn("bright data rejected trigger",
			zap.String("video_url", req.VideoURL),
			zap.Int("status", resp.StatusCode),
			zap.String("message", perr.Message))
		if resp.StatusCode >= 500 {
			return "", fmt.Errorf("%w: %v", domain.ErrProviderUnavailable, perr)
		}
		return "", perr
	}

	var out triggerResponse
	if err := json.Unmarshal(respBody, &out); err != nil || out.SnapshotID == "" {
		return "", &domain.ProviderError{Status: resp.StatusCode, Message: "response carried no snapshot_id"}
	}
	c.Logger.Info("bright data extraction triggered",
		zap.String("video_url", req.VideoURL),
		zap.String("snapshot_id", out.SnapshotID))
	return out.SnapshotID, nil
}

func providerMessage(body []byte) string {
	var e providerErrorBody
	if json.Unmarshal(body, &e) == nil {
		if e.Message != "" {
			return e.Message
		}
		if e.Error != "" {
			return e.Error
		}
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "empty response"
	}
	return msg
}
