// Package baseline fetches prerecorded run baselines from the run-history
// service for solo ghost sessions.
package baseline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/runbattle/internal/config"
	"github.com/yourusername/runbattle/internal/models"
)

// Client talks to the run-history HTTP API.
type Client struct {
	http    *retryablehttp.Client
	baseURL string
	apiKey  string
	logger  *logrus.Logger
}

// baselineResponse is the wire shape of GET /runs/{id}/baseline.
type baselineResponse struct {
	RunID           uuid.UUID `json:"run_id"`
	TargetDistanceM float64   `json:"target_distance_m"`
	AvgPaceSecPerKm float64   `json:"avg_pace_sec_per_km"`
	Checkpoints     []struct {
		DistanceM float64 `json:"distance_m"`
		ElapsedMs int64   `json:"elapsed_ms"`
	} `json:"checkpoints"`
}

// NewClient creates a run-history client with retries.
func NewClient(cfg *config.BaselineConfig, logger *logrus.Logger) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient.Timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	retryClient.RetryMax = cfg.MaxRetries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second

	// Don't log verbose retry info
	retryClient.Logger = log.New(io.Discard, "", 0)

	return &Client{
		http:    retryClient,
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		logger:  logger,
	}
}

// FetchBaseline retrieves the ghost baseline for a recorded run. Returns
// models.ErrBaselineNotFound when the run does not exist or carries no
// baseline.
func (c *Client) FetchBaseline(ctx context.Context, runID uuid.UUID) (*models.GhostBaseline, error) {
	url := fmt.Sprintf("%s/runs/%s/baseline", c.baseURL, runID)

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build baseline request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("baseline request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, models.ErrBaselineNotFound
	default:
		return nil, fmt.Errorf("baseline request returned status %d", resp.StatusCode)
	}

	var body baselineResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode baseline response: %w", err)
	}

	baseline := &models.GhostBaseline{
		RunID:           body.RunID,
		TargetDistanceM: body.TargetDistanceM,
		AvgPaceSecPerKm: body.AvgPaceSecPerKm,
		Checkpoints:     make([]models.GhostCheckpoint, 0, len(body.Checkpoints)),
	}
	for _, cp := range body.Checkpoints {
		baseline.Checkpoints = append(baseline.Checkpoints, models.GhostCheckpoint{
			DistanceM: cp.DistanceM,
			ElapsedMs: cp.ElapsedMs,
		})
	}

	// Interpolation requires checkpoints ordered by distance.
	sort.Slice(baseline.Checkpoints, func(i, j int) bool {
		return baseline.Checkpoints[i].DistanceM < baseline.Checkpoints[j].DistanceM
	})

	c.logger.WithFields(logrus.Fields{
		"run_id":      runID,
		"checkpoints": len(baseline.Checkpoints),
	}).Debug("Fetched ghost baseline")

	return baseline, nil
}
