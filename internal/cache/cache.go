// Package cache keeps the synthesized dataset in a persistent key-value store
// and falls back to fresh synthesis whenever the cached copy is missing or
// unusable.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/castlemilk/demobank/internal/bank"
	"github.com/castlemilk/demobank/internal/store"
)

// Storage keys.
const (
	KeyDataset     = "demobank.dataset"
	KeyInitialized = "demobank.initialized"
)

// envelopeVersion is bumped when the envelope or dataset encoding changes.
// Payloads with another version are discarded and resynthesized.
const envelopeVersion = 1

type meta struct {
	Storage   string    `json:"storage"`
	Version   int       `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

type envelope struct {
	Meta    meta          `json:"_meta"`
	Dataset *bank.Dataset `json:"dataset"`
}

// Synthesizer produces a new dataset.
type Synthesizer func() (*bank.Dataset, error)

// LoadResult is the outcome of Load.
type LoadResult struct {
	Dataset *bank.Dataset
	// FirstRun is true when neither a cached dataset nor the initialized
	// flag existed, i.e. the app has never been set up against this store.
	FirstRun bool
	// FromCache is true when Dataset was decoded from the store.
	FromCache bool
}

// DatasetCache loads, refreshes and clears the cached dataset.
type DatasetCache struct {
	store      store.Store
	synthesize Synthesizer
	log        zerolog.Logger
	now        func() time.Time
}

// Option configures a DatasetCache.
type Option func(*DatasetCache)

// WithLogger sets the logger used for recovered failures.
func WithLogger(log zerolog.Logger) Option {
	return func(c *DatasetCache) {
		c.log = log
	}
}

// WithClock overrides the clock used to stamp envelopes.
func WithClock(now func() time.Time) Option {
	return func(c *DatasetCache) {
		c.now = now
	}
}

// New returns a cache over s that calls synthesize on a miss.
func New(s store.Store, synthesize Synthesizer, opts ...Option) *DatasetCache {
	c := &DatasetCache{
		store:      s,
		synthesize: synthesize,
		log:        zerolog.Nop(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the cached dataset, or synthesizes and persists a new one.
// Corrupt payloads and store failures are logged and recovered from; only a
// synthesis failure is returned.
func (c *DatasetCache) Load(ctx context.Context) (LoadResult, error) {
	initialized := c.initialized(ctx)

	if ds, ok := c.read(ctx); ok {
		if !initialized {
			c.markInitialized(ctx)
		}
		c.log.Debug().Int64("seed", ds.Seed).Msg("dataset cache hit")
		return LoadResult{Dataset: ds, FromCache: true}, nil
	}

	result := LoadResult{FirstRun: !initialized}
	ds, err := c.generate(ctx)
	if err != nil {
		return result, err
	}
	if result.FirstRun {
		c.log.Info().Int64("seed", ds.Seed).Msg("first run: synthesized default dataset")
	}
	result.Dataset = ds
	return result, nil
}

// Refresh discards the cached dataset and persists a freshly synthesized one.
func (c *DatasetCache) Refresh(ctx context.Context) (*bank.Dataset, error) {
	if err := c.store.Delete(ctx, KeyDataset); err != nil {
		c.log.Warn().Err(writeError("evict", KeyDataset, err)).Msg("refresh: evict failed, overwriting")
	}
	ds, err := c.generate(ctx)
	if err != nil {
		return nil, err
	}
	c.log.Info().Int64("seed", ds.Seed).Msg("dataset refreshed")
	return ds, nil
}

// Clear evicts the cached dataset without synthesizing a new one. The
// initialized flag is kept, so the next Load is not a first run.
func (c *DatasetCache) Clear(ctx context.Context) error {
	if err := c.store.Delete(ctx, KeyDataset); err != nil {
		cerr := writeError("evict", KeyDataset, err)
		c.log.Warn().Err(cerr).Msg("clear failed")
		return cerr
	}
	c.log.Info().Msg("dataset cache cleared")
	return nil
}

// generate synthesizes, persists and marks the store initialized. Write
// failures are logged; the in-memory dataset is returned regardless.
func (c *DatasetCache) generate(ctx context.Context) (*bank.Dataset, error) {
	ds, err := c.synthesize()
	if err != nil {
		return nil, fmt.Errorf("synthesize dataset: %w", err)
	}
	if err := c.write(ctx, ds); err != nil {
		c.log.Warn().Err(err).Msg("dataset not persisted; continuing in memory")
	}
	c.markInitialized(ctx)
	return ds, nil
}

// read decodes the cached dataset. Any failure is logged and reported as a
// miss; unusable payloads are evicted.
func (c *DatasetCache) read(ctx context.Context) (*bank.Dataset, bool) {
	raw, err := c.store.Get(ctx, KeyDataset)
	if errors.Is(err, store.ErrNotFound) {
		return nil, false
	}
	if err != nil {
		c.log.Warn().Err(readError("get", KeyDataset, err)).Msg("dataset cache unreadable")
		return nil, false
	}

	ds, err := decode(raw)
	if err != nil {
		c.log.Warn().Err(readError("decode", KeyDataset, err)).Int("bytes", len(raw)).Msg("discarding corrupt dataset cache")
		if err := c.store.Delete(ctx, KeyDataset); err != nil {
			c.log.Warn().Err(writeError("evict", KeyDataset, err)).Msg("corrupt dataset cache not evicted")
		}
		return nil, false
	}
	return ds, true
}

func decode(raw []byte) (*bank.Dataset, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, err
	}
	if env.Meta.Version != envelopeVersion {
		return nil, fmt.Errorf("envelope version %d, want %d", env.Meta.Version, envelopeVersion)
	}
	if env.Dataset == nil {
		return nil, errors.New("envelope has no dataset")
	}
	if env.Dataset.Version != bank.DatasetVersion {
		return nil, fmt.Errorf("dataset version %d, want %d", env.Dataset.Version, bank.DatasetVersion)
	}
	if err := bank.Validate(env.Dataset); err != nil {
		return nil, fmt.Errorf("invalid dataset: %w", err)
	}
	return env.Dataset, nil
}

func (c *DatasetCache) write(ctx context.Context, ds *bank.Dataset) error {
	raw, err := json.Marshal(envelope{
		Meta: meta{
			Storage:   "demobank_cache",
			Version:   envelopeVersion,
			Timestamp: c.now().UTC(),
		},
		Dataset: ds,
	})
	if err != nil {
		return writeError("encode", KeyDataset, err)
	}
	if err := c.store.Set(ctx, KeyDataset, raw); err != nil {
		return writeError("set", KeyDataset, err)
	}
	return nil
}

// initialized reports whether the initialized flag is present. Read errors
// other than not-found count as initialized so a flaky store never replays
// onboarding.
func (c *DatasetCache) initialized(ctx context.Context) bool {
	_, err := c.store.Get(ctx, KeyInitialized)
	if errors.Is(err, store.ErrNotFound) {
		return false
	}
	if err != nil {
		c.log.Warn().Err(readError("get", KeyInitialized, err)).Msg("initialized flag unreadable")
	}
	return true
}

func (c *DatasetCache) markInitialized(ctx context.Context) {
	if err := c.store.Set(ctx, KeyInitialized, []byte("true")); err != nil {
		c.log.Warn().Err(writeError("set", KeyInitialized, err)).Msg("initialized flag not persisted")
	}
}
