package loader

import (
	"context"
	"sync"

	"hermannm.dev/datasetquery/db"
)

// Lazy is a backend handle that loads its dataset on the first query, so that a query answered
// from the result cache never downloads the dataset. The load is attempted at most once; a failed
// load is returned to every later query.
type Lazy struct {
	loader *Loader
	key    string

	lock    sync.Mutex
	loaded  bool
	backend db.Backend
	err     error
}

func (loader *Loader) Lazy(key string) *Lazy {
	return &Lazy{loader: loader, key: key}
}

func (lazy *Lazy) load(ctx context.Context) (db.Backend, error) {
	lazy.lock.Lock()
	defer lazy.lock.Unlock()

	if !lazy.loaded {
		lazy.backend, lazy.err = lazy.loader.Load(ctx, lazy.key)
		lazy.loaded = true
	}
	return lazy.backend, lazy.err
}

// Loaded returns the loaded backend, or nil if no query has loaded it yet.
func (lazy *Lazy) Loaded() db.Backend {
	lazy.lock.Lock()
	defer lazy.lock.Unlock()
	return lazy.backend
}

// Kind returns 0 (an invalid kind) until the dataset is loaded.
func (lazy *Lazy) Kind() db.BackendKind {
	if backend := lazy.Loaded(); backend != nil {
		return backend.Kind()
	}
	return 0
}

// RowCount returns 0 until the dataset is loaded.
func (lazy *Lazy) RowCount() int {
	if backend := lazy.Loaded(); backend != nil {
		return backend.RowCount()
	}
	return 0
}

func (lazy *Lazy) Filter(ctx context.Context, filters []db.FilterSpec) (db.RawResult, error) {
	backend, err := lazy.load(ctx)
	if err != nil {
		return db.RawResult{}, err
	}
	return backend.Filter(ctx, filters)
}

func (lazy *Lazy) Aggregate(
	ctx context.Context,
	filters []db.FilterSpec,
	groupBy db.GroupBySpec,
) (db.RawResult, error) {
	backend, err := lazy.load(ctx)
	if err != nil {
		return db.RawResult{}, err
	}
	return backend.Aggregate(ctx, filters, groupBy)
}

func (lazy *Lazy) Trend(
	ctx context.Context,
	filters []db.FilterSpec,
	trend db.TrendSpec,
) (db.RawResult, error) {
	backend, err := lazy.load(ctx)
	if err != nil {
		return db.RawResult{}, err
	}
	return backend.Trend(ctx, filters, trend)
}

func (lazy *Lazy) Compare(
	ctx context.Context,
	filters []db.FilterSpec,
	compare db.CompareSpec,
) (db.RawResult, error) {
	backend, err := lazy.load(ctx)
	if err != nil {
		return db.RawResult{}, err
	}
	return backend.Compare(ctx, filters, compare)
}

func (lazy *Lazy) Correlate(
	ctx context.Context,
	filters []db.FilterSpec,
	correlate db.CorrelateSpec,
) (db.RawResult, error) {
	backend, err := lazy.load(ctx)
	if err != nil {
		return db.RawResult{}, err
	}
	return backend.Correlate(ctx, filters, correlate)
}

// Close closes the loaded backend, if any. A handle that was never queried has nothing to close.
func (lazy *Lazy) Close() error {
	lazy.lock.Lock()
	defer lazy.lock.Unlock()

	if lazy.backend == nil {
		lazy.loaded = true
		return nil
	}
	return lazy.backend.Close()
}
