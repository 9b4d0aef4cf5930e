// Agrosense - Crop Recommendation and Agronomic Feature Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/agrosense

// Package history keeps a BadgerDB log of served recommendations so a
// response can be fetched again by request ID.
//
// Keys:
//
//	rec:{request_id}            JSON Record
//	ts:{unix_nanos}:{request_id} request ID, for newest-first listing
//
// Both keys carry the configured TTL; Badger drops them on expiry.
package history

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/agrosense/internal/metrics"
	"github.com/tomtom215/agrosense/internal/recommend"
)

const (
	recordPrefix = "rec:"
	timePrefix   = "ts:"

	// DefaultRecentLimit is used when Recent is called with limit <= 0.
	DefaultRecentLimit = 20
)

var (
	// ErrNotFound is returned for an unknown or expired request ID.
	ErrNotFound = errors.New("recommendation not found")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("history store is closed")

	// ErrEmptyID is returned when a record has no request ID.
	ErrEmptyID = errors.New("request ID cannot be empty")
)

// Config configures the history store.
type Config struct {
	// Dir is the Badger directory. Ignored when InMemory is set.
	Dir string

	// InMemory keeps everything in memory (tests, ephemeral deployments).
	InMemory bool

	// TTL expires records after this long. Zero keeps them forever.
	TTL time.Duration

	// GCInterval runs value log GC periodically. Zero disables it.
	GCInterval time.Duration
}

// Record is one served recommendation.
type Record struct {
	ID         string              `json:"id"`
	RecordedAt time.Time           `json:"recorded_at"`
	Response   *recommend.Response `json:"response"`
}

// Store is the Badger-backed history.
type Store struct {
	db     *badger.DB
	cfg    Config
	logger zerolog.Logger

	now func() time.Time

	mu     sync.RWMutex
	closed bool

	stopGC chan struct{}
	gcDone chan struct{}
}

// Open opens the history store.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(cfg Config, logger zerolog.Logger) (*Store, error) {
	if !cfg.InMemory && cfg.Dir == "" {
		return nil, errors.New("history directory is required")
	}

	opts := badger.DefaultOptions(cfg.Dir)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open history store: %w", err)
	}

	s := &Store{
		db:     db,
		cfg:    cfg,
		logger: logger.With().Str("component", "history").Logger(),
		now:    time.Now,
	}
	if cfg.GCInterval > 0 && !cfg.InMemory {
		s.stopGC = make(chan struct{})
		s.gcDone = make(chan struct{})
		go s.gcLoop()
	}

	s.logger.Info().Str("dir", cfg.Dir).Bool("in_memory", cfg.InMemory).Dur("ttl", cfg.TTL).Msg("History store opened")
	return s, nil
}

// Record stores resp under its request ID.
func (s *Store) Record(ctx context.Context, resp *recommend.Response) (err error) {
	defer func() { metrics.RecordHistoryWrite(err) }()

	if resp == nil || resp.Metadata.RequestID == "" {
		return ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}

	now := s.now().UTC()
	rec := Record{ID: resp.Metadata.RequestID, RecordedAt: now, Response: resp}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	return s.db.Update(func(txn *badger.Txn) error {
		if err := txn.SetEntry(s.entry([]byte(recordPrefix+rec.ID), data)); err != nil {
			return fmt.Errorf("set record: %w", err)
		}
		if err := txn.SetEntry(s.entry(timeKey(now, rec.ID), []byte(rec.ID))); err != nil {
			return fmt.Errorf("set time index: %w", err)
		}
		return nil
	})
}

func (s *Store) entry(key, value []byte) *badger.Entry {
	e := badger.NewEntry(key, value)
	if s.cfg.TTL > 0 {
		e = e.WithTTL(s.cfg.TTL)
	}
	return e
}

// timeKey sorts lexicographically by time; nanos are zero-padded to 20 digits.
func timeKey(t time.Time, id string) []byte {
	return []byte(fmt.Sprintf("%s%020d:%s", timePrefix, t.UnixNano(), id))
}

// Get returns the record for a request ID.
func (s *Store) Get(ctx context.Context, id string) (*Record, error) {
	if id == "" {
		return nil, ErrEmptyID
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var rec Record
	err := s.db.View(func(txn *badger.Txn) error {
		return getRecord(txn, id, &rec)
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func getRecord(txn *badger.Txn, id string, rec *Record) error {
	item, err := txn.Get([]byte(recordPrefix + id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("get record: %w", err)
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, rec)
	})
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	records := make([]Record, 0, limit)
	seen := make(map[string]struct{}, limit)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = []byte(timePrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		// Reverse iteration starts at the largest key <= seek.
		seek := []byte(timePrefix + strings.Repeat("9", 20) + ";")
		for it.Seek(seek); it.ValidForPrefix(opts.Prefix) && len(records) < limit; it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var id string
			if err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			}); err != nil {
				return err
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}

			var rec Record
			if err := getRecord(txn, id, &rec); err != nil {
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list recent records: %w", err)
	}
	return records, nil
}

// Count returns the number of live records.
func (s *Store) Count() (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return 0, ErrClosed
	}

	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = []byte(recordPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (s *Store) gcLoop() {
	defer close(s.gcDone)
	ticker := time.NewTicker(s.cfg.GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopGC:
			return
		case <-ticker.C:
			if err := s.RunGC(); err != nil {
				s.logger.Warn().Err(err).Msg("History value log GC failed")
			}
		}
	}
}

// RunGC reclaims value log space until Badger reports nothing to rewrite.
func (s *Store) RunGC() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	if s.cfg.InMemory {
		return nil
	}
	for {
		err := s.db.RunValueLogGC(0.5)
		if errors.Is(err, badger.ErrNoRewrite) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("run GC: %w", err)
		}
	}
}

// Close stops background GC and closes the database.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.stopGC != nil {
		close(s.stopGC)
		<-s.gcDone
	}
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close history store: %w", err)
	}
	return nil
}
