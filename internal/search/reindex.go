package search

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/castlemilk/demobank/internal/bank"
)

// Indexer writes a dataset's transactions to a search index.
type Indexer interface {
	Index(ctx context.Context, ds *bank.Dataset) (int, error)
}

// Reindexer pushes each new dataset to an Indexer once. Datasets are
// identified by seed and generation time.
type Reindexer struct {
	indexer Indexer
	log     zerolog.Logger
	timeout time.Duration

	mu   sync.Mutex
	last string
	wg   sync.WaitGroup
}

// NewReindexer returns a Reindexer over idx.
func NewReindexer(idx Indexer, log zerolog.Logger) *Reindexer {
	return &Reindexer{indexer: idx, log: log, timeout: 2 * time.Minute}
}

// Observe indexes ds in the background if it differs from the last dataset
// seen. Nil datasets are ignored.
func (r *Reindexer) Observe(ds *bank.Dataset) {
	if ds == nil {
		return
	}
	key := datasetTag(ds)

	r.mu.Lock()
	if key == r.last {
		r.mu.Unlock()
		return
	}
	r.last = key
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if _, err := r.indexer.Index(ctx, ds); err != nil {
			r.log.Error().Err(err).Int64("seed", ds.Seed).Msg("reindex failed")
		}
	}()
}

// Wait blocks until in-flight indexing finishes.
func (r *Reindexer) Wait() {
	r.wg.Wait()
}
