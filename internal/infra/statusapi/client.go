package statusapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/EduardoJoao/pos-fase5-processor/internal/domain/port"
)

// Client reports job status transitions to the owning service with
// PUT {base}/videos/{videoId}/status.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
	}
}

type statusBody struct {
	Status          string  `json:"status"`
	VideoZipKey     *string `json:"videoZipKey"`
	VideoZipKeySize *string `json:"videoZipKeySize"`
	ErrorMessage    string  `json:"errorMessage"`
}

func (c *Client) ReportStatus(ctx context.Context, clientID, videoID string, update port.StatusUpdate) error {
	body := statusBody{
		Status:       string(update.Status),
		ErrorMessage: update.ErrorMessage,
	}
	if update.ArchiveKey != "" {
		body.VideoZipKey = &update.ArchiveKey
	}
	if update.ArchiveSize != "" {
		body.VideoZipKeySize = &update.ArchiveSize
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode status body: %w", err)
	}

	url := fmt.Sprintf("%s/videos/%s/status", c.baseURL, videoID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build status request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("idClient", clientID)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("put status: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("status api returned %s", resp.Status)
	}

	c.logger.Debug("status reported",
		zap.String("video_id", videoID),
		zap.String("status", string(update.Status)),
	)
	return nil
}
