// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

package recommend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/agrosense/internal/crop"
	"github.com/tomtom215/agrosense/internal/metrics"
)

// Engine ranks and explains crop recommendations.
// It is safe for concurrent use.
type Engine struct {
	config *Config
	logger zerolog.Logger
	table  *crop.Table

	// Active model, swapped on retraining
	classifier Classifier
	clsMu      sync.RWMutex

	// Counters
	requestCount  atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	errorCount    atomic.Int64
	unknownLabels atomic.Int64

	// Cache (simple in-memory, cleared on model swap)
	cache   map[string]cacheEntry
	cacheMu sync.RWMutex
}

// cacheEntry holds a cached recommendation response.
type cacheEntry struct {
	response  *Response
	expiresAt time.Time
}

// NewEngine creates a new recommendation engine over table.
// A classifier must be set with SetClassifier before Recommend succeeds.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg *Config, table *crop.Table, logger zerolog.Logger) (*Engine, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if table == nil {
		return nil, errors.New("crop table is required")
	}

	return &Engine{
		config: cfg.Clone(),
		logger: logger.With().Str("component", "recommend").Logger(),
		table:  table,
		cache:  make(map[string]cacheEntry),
	}, nil
}

// Table returns the crop reference table.
func (e *Engine) Table() *crop.Table {
	return e.table
}

// SetClassifier installs a model and clears the response cache.
func (e *Engine) SetClassifier(c Classifier) {
	e.clsMu.Lock()
	e.classifier = c
	e.clsMu.Unlock()

	e.clearCache()

	if c != nil {
		e.logger.Info().
			Str("classifier", c.Name()).
			Int("version", c.Version()).
			Int("labels", len(c.Labels())).
			Msg("classifier installed")
	}
}

// Classifier returns the active model, or nil.
func (e *Engine) Classifier() Classifier {
	e.clsMu.RLock()
	defer e.clsMu.RUnlock()
	return e.classifier
}

// Ready reports whether the active model can serve predictions. A classifier
// implementing Readier is ready only once it reports so.
func (e *Engine) Ready() bool {
	cls := e.Classifier()
	if cls == nil {
		return false
	}
	if r, ok := cls.(Readier); ok {
		return r.Ready()
	}
	return true
}

// Recommend validates the request, derives the observation context, queries
// the classifier and returns the top K explained entries.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) Recommend(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	e.requestCount.Add(1)

	req = e.prepareRequest(req)
	logger := e.logger.With().Str("request_id", req.RequestID).Logger()

	obs, err := crop.Derive(req.Measurements)
	if err != nil {
		metrics.RecordRecommendation("invalid", time.Since(start))
		logger.Debug().Err(err).Msg("rejected recommendation request")
		return nil, &ValidationError{Err: err}
	}

	cls := e.Classifier()
	if cls == nil {
		e.errorCount.Add(1)
		metrics.RecordRecommendation("error", time.Since(start))
		return nil, ErrNoClassifier
	}

	key := e.cacheKey(obs, req.K, cls)
	if resp := e.tryGetCachedResponse(key, req, start); resp != nil {
		metrics.RecordRecommendation("success", time.Since(start))
		return resp, nil
	}

	dist, err := e.predict(ctx, cls, obs)
	if err != nil {
		e.errorCount.Add(1)
		metrics.RecordRecommendation("error", time.Since(start))
		logger.Warn().Err(err).Str("classifier", cls.Name()).Msg("classifier prediction failed")
		return nil, fmt.Errorf("predict: %w", err)
	}

	entries, skipped := rank(dist, cls.Labels(), e.table, req.K)
	if skipped > 0 {
		e.unknownLabels.Add(int64(skipped))
		metrics.RecommendUnknownLabels.Add(float64(skipped))
		logger.Debug().Int("skipped", skipped).Msg("classifier labels missing from crop table")
	}
	Annotate(entries, obs, e.table)

	resp := &Response{
		Entries: entries,
		Context: Context{
			Observation: obs,
			SeasonName:  obs.Season.String(),
			SoilName:    obs.Soil.String(),
		},
		Metadata: ResponseMetadata{
			RequestID:     req.RequestID,
			Classifier:    cls.Name(),
			ModelVersion:  cls.Version(),
			SkippedLabels: skipped,
			Timestamp:     time.Now(),
		},
	}
	if e.config.SoilAdvice {
		resp.Advice = SoilAdvice(req.Measurements)
	}
	resp.Metadata.LatencyMS = time.Since(start).Milliseconds()

	e.storeCache(key, resp)

	for i := range entries {
		metrics.RecordTier(string(entries[i].Tier))
	}
	metrics.RecordRecommendation("success", time.Since(start))

	logger.Debug().
		Str("season", resp.Context.SeasonName).
		Str("soil", resp.Context.SoilName).
		Int("returned", len(entries)).
		Int64("latency_ms", resp.Metadata.LatencyMS).
		Msg("recommendation complete")

	return resp, nil
}

// ExplainCrop validates m and explains the named crop against it.
func (e *Engine) ExplainCrop(m crop.Measurements, name string) (crop.Observation, []Verdict, error) {
	obs, err := crop.Derive(m)
	if err != nil {
		return crop.Observation{}, nil, &ValidationError{Err: err}
	}
	p, err := e.table.Get(name)
	if err != nil {
		return obs, nil, err
	}
	return obs, Explain(obs, p), nil
}

// prepareRequest applies defaults and generates request ID if needed.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) prepareRequest(req Request) Request {
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	if req.K <= 0 {
		req.K = e.config.Limits.DefaultK
	}
	if req.K > e.config.Limits.MaxK {
		req.K = e.config.Limits.MaxK
	}
	return req
}

// predict calls the classifier with the configured timeout.
func (e *Engine) predict(ctx context.Context, cls Classifier, obs crop.Observation) (map[string]float64, error) {
	if e.config.Limits.PredictTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Limits.PredictTimeout)
		defer cancel()
	}
	return cls.PredictProba(ctx, obs.Features())
}

// GetMetrics returns engine counters.
func (e *Engine) GetMetrics() Metrics {
	return Metrics{
		RequestCount:  e.requestCount.Load(),
		CacheHits:     e.cacheHits.Load(),
		CacheMisses:   e.cacheMisses.Load(),
		ErrorCount:    e.errorCount.Load(),
		UnknownLabels: e.unknownLabels.Load(),
	}
}

// cacheKey identifies a response by observation, K and model.
func (e *Engine) cacheKey(obs crop.Observation, k int, cls Classifier) string {
	return fmt.Sprintf("rec:%s:%d:%d:%v", cls.Name(), cls.Version(), k, obs.Features())
}

// tryGetCachedResponse returns a copy of a cached response stamped with the
// current request ID, or nil.
//
//nolint:gocritic // hugeParam: req passed by value for immutability
func (e *Engine) tryGetCachedResponse(key string, req Request, start time.Time) *Response {
	if !e.config.Cache.Enabled {
		return nil
	}

	e.cacheMu.RLock()
	entry, ok := e.cache[key]
	e.cacheMu.RUnlock()

	if !ok || time.Now().After(entry.expiresAt) {
		e.cacheMisses.Add(1)
		metrics.RecommendCacheMisses.Inc()
		return nil
	}

	e.cacheHits.Add(1)
	metrics.RecommendCacheHits.Inc()

	resp := cloneResponse(entry.response)
	resp.Metadata.RequestID = req.RequestID
	resp.Metadata.CacheHit = true
	resp.Metadata.LatencyMS = time.Since(start).Milliseconds()
	resp.Metadata.Timestamp = time.Now()
	return resp
}

// cloneResponse copies resp including its slices, so callers of Recommend
// never share memory with the cache.
func cloneResponse(resp *Response) *Response {
	out := *resp
	out.Entries = slices.Clone(resp.Entries)
	for i := range out.Entries {
		out.Entries[i].Explanations = slices.Clone(resp.Entries[i].Explanations)
	}
	out.Advice = slices.Clone(resp.Advice)
	return &out
}

// storeCache stores a copy of resp. Cached entries are never mutated.
func (e *Engine) storeCache(key string, resp *Response) {
	if !e.config.Cache.Enabled {
		return
	}

	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()

	if len(e.cache) >= e.config.Cache.MaxEntries {
		e.evictExpiredLocked()
		if len(e.cache) >= e.config.Cache.MaxEntries {
			e.cache = make(map[string]cacheEntry)
		}
	}

	e.cache[key] = cacheEntry{
		response:  cloneResponse(resp),
		expiresAt: time.Now().Add(e.config.Cache.TTL),
	}
}

// evictExpiredLocked removes expired entries. Must be called with cacheMu held.
func (e *Engine) evictExpiredLocked() {
	now := time.Now()
	for k, v := range e.cache {
		if now.After(v.expiresAt) {
			delete(e.cache, k)
		}
	}
}

// clearCache removes all cached entries.
func (e *Engine) clearCache() {
	e.cacheMu.Lock()
	defer e.cacheMu.Unlock()
	e.cache = make(map[string]cacheEntry)
}
