package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	config "github.com/maheshrc27/socialflow/configs"
	"github.com/maheshrc27/socialflow/internal/transfer"
)

const aiRequestTimeout = 30 * time.Second

var ErrAIUnavailable = errors.New("ai service unavailable")

// AIClient talks to the external analysis service that turns collected
// competitor data into narrative insights. Callers treat any error as a
// signal to fall back to locally computed insights.
type AIClient interface {
	AnalyzeCompetitors(ctx context.Context, payload *transfer.AIAnalysisPayload) (*transfer.AIInsights, error)
}

type aiClient struct {
	cfg    config.AIService
	client *http.Client
}

func NewAIClient(cfg config.AIService) AIClient {
	return &aiClient{
		cfg: cfg,
		client: &http.Client{
			Timeout: aiRequestTimeout,
		},
	}
}

func (c *aiClient) AnalyzeCompetitors(ctx context.Context, payload *transfer.AIAnalysisPayload) (*transfer.AIInsights, error) {
	if c.cfg.BaseURL == "" {
		return nil, ErrAIUnavailable
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/api/v1/competitor-analysis", strings.TrimSuffix(c.cfg.BaseURL, "/"))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: %v", ErrAIUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 500))
		slog.Info(fmt.Sprintf("ai service returned %d: %s", resp.StatusCode, string(data)))
		return nil, fmt.Errorf("%w: status %d", ErrAIUnavailable, resp.StatusCode)
	}

	var insights transfer.AIInsights
	if err := json.NewDecoder(resp.Body).Decode(&insights); err != nil {
		slog.Info(err.Error())
		return nil, fmt.Errorf("%w: bad response: %v", ErrAIUnavailable, err)
	}

	return &insights, nil
}
