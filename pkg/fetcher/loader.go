package fetcher

import (
	"context"
	"errors"
	"sync"

	"github.com/arnavshah/compliance-api-go/pkg/models"
)

// ErrSuperseded is returned by a load that a newer load for the same key replaced
var ErrSuperseded = errors.New("load superseded by a newer request")

// RangeFetcher fetches the reports of a date range
type RangeFetcher interface {
	FetchRange(ctx context.Context, rng models.DateRange, q Query) (RangeResult, error)
}

type generation struct {
	id     uint64
	cancel context.CancelFunc
}

// Loader runs range loads tagged with a generation per caller key. Starting
// a load cancels the caller's previous one, and a load whose generation is no
// longer current returns ErrSuperseded instead of its result.
type Loader struct {
	fetcher RangeFetcher

	mu      sync.Mutex
	seq     uint64
	current map[string]*generation
}

// NewLoader wraps a RangeFetcher
func NewLoader(f RangeFetcher) *Loader {
	return &Loader{fetcher: f, current: make(map[string]*generation)}
}

// Load fetches rng for the caller identified by key. An empty key runs the
// fetch untracked: it neither supersedes nor can be superseded.
func (l *Loader) Load(ctx context.Context, key string, rng models.DateRange, q Query) (RangeResult, error) {
	if key == "" {
		return l.fetcher.FetchRange(ctx, rng, q)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	l.mu.Lock()
	l.seq++
	id := l.seq
	if prev, ok := l.current[key]; ok {
		prev.cancel()
	}
	l.current[key] = &generation{id: id, cancel: cancel}
	l.mu.Unlock()

	res, err := l.fetcher.FetchRange(ctx, rng, q)

	l.mu.Lock()
	cur, ok := l.current[key]
	stale := !ok || cur.id != id
	if !stale {
		delete(l.current, key)
	}
	l.mu.Unlock()

	if stale {
		return RangeResult{}, ErrSuperseded
	}
	return res, err
}

// InFlight reports how many callers have a load running
func (l *Loader) InFlight() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.current)
}
