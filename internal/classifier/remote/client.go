// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

/*
Package remote implements a recommend.Classifier backed by an external model
server, for deployments where the crop model is trained and served outside
this process.

Wire protocol (JSON):

	GET  {base}/model    -> {"name": "rf", "version": 3, "labels": ["Bajra", ...]}
	POST {base}/predict  <- {"features": [10 numbers], "feature_names": [...]}
	                     -> {"probabilities": {"Wheat": 0.71, ...}}

Calls are rate limited client-side and wrapped in a circuit breaker so a slow
or failing model server cannot stall the API.
*/
package remote

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/logging"
	"github.com/tomtom215/agrosense/internal/metrics"
)

// Config configures the remote classifier client.
type Config struct {
	// BaseURL is the model server root (e.g., http://models:9000).
	BaseURL string

	// APIKey is sent as a bearer token when set.
	APIKey string

	// Timeout bounds each HTTP request.
	Timeout time.Duration

	// RateLimit is the maximum request rate per second. Zero disables limiting.
	RateLimit float64

	// Burst is the limiter burst size.
	Burst int

	// BreakerTimeout is how long the breaker stays open before probing.
	BreakerTimeout time.Duration
}

// modelInfo is the /model response.
type modelInfo struct {
	Name    string   `json:"name"`
	Version int      `json:"version"`
	Labels  []string `json:"labels"`
}

type predictRequest struct {
	Features     []float64 `json:"features"`
	FeatureNames []string  `json:"feature_names"`
}

type predictResponse struct {
	Probabilities map[string]float64 `json:"probabilities"`
}

// ErrNoLabels is returned when the model server reports no labels.
var ErrNoLabels = errors.New("model server returned no labels")

// Client is a remote classifier. It is safe for concurrent use.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cb         *gobreaker.CircuitBreaker[[]byte]
	name       string

	mu   sync.RWMutex
	info modelInfo
}

// NewClient creates a client. Call Refresh before use to load model labels.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	cbName := "remote-classifier"
	metrics.CircuitBreakerState.WithLabelValues(cbName).Set(0)

	cb := gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        cbName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     cfg.BreakerTimeout,

		// Opens when failure rate >= 60% with minimum 10 requests
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().
					Uint32("failures", counts.TotalFailures).
					Float64("failure_rate", failureRatio*100).
					Msg("[CIRCUIT BREAKER] Opening remote classifier circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("[CIRCUIT BREAKER] Remote classifier state transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
		cb:         cb,
		name:       cbName,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// Name returns the remote model name, prefixed with "remote:".
func (c *Client) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info.Name == "" {
		return "remote"
	}
	return "remote:" + c.info.Name
}

// Labels returns the labels reported by the last Refresh, or nil before the
// first successful Refresh.
func (c *Client) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.info.Labels) == 0 {
		return nil
	}
	out := make([]string, len(c.info.Labels))
	copy(out, c.info.Labels)
	return out
}

// Ready reports whether a Refresh has succeeded.
func (c *Client) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.info.Labels) > 0
}

// Version returns the model version reported by the last Refresh.
func (c *Client) Version() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.info.Version
}

// Refresh reloads model metadata (name, version, labels) from the server.
func (c *Client) Refresh(ctx context.Context) error {
	body, err := c.execute(ctx, http.MethodGet, "/model", nil)
	if err != nil {
		return fmt.Errorf("fetch model info: %w", err)
	}

	var info modelInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return fmt.Errorf("decode model info: %w", err)
	}
	if len(info.Labels) == 0 {
		return ErrNoLabels
	}

	c.mu.Lock()
	c.info = info
	c.mu.Unlock()
	return nil
}

// PredictProba sends one observation vector to the model server.
func (c *Client) PredictProba(ctx context.Context, features [crop.NumFeatures]float64) (map[string]float64, error) {
	payload, err := json.Marshal(predictRequest{
		Features:     features[:],
		FeatureNames: crop.FeatureNames[:],
	})
	if err != nil {
		return nil, fmt.Errorf("encode predict request: %w", err)
	}

	body, err := c.execute(ctx, http.MethodPost, "/predict", payload)
	if err != nil {
		return nil, fmt.Errorf("remote predict: %w", err)
	}

	var resp predictResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	if resp.Probabilities == nil {
		return nil, errors.New("remote predict: response has no probabilities")
	}
	return resp.Probabilities, nil
}

// execute waits for the limiter, then performs the request through the breaker.
func (c *Client) execute(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := c.cb.Execute(func() ([]byte, error) {
		return c.do(ctx, method, path, payload)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "rejected").Inc()
		} else {
			metrics.CircuitBreakerRequests.WithLabelValues(c.name, "failure").Inc()
		}
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(c.name, "success").Inc()
	return body, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	var reqBody io.Reader = http.NoBody
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
