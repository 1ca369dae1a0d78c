package middleware

import (
	"context"
	"sync"
	"sync/atomic"

	"ShredPull/internal/domain/models"
	domrepo "ShredPull/internal/domain/repository"
)

// Stream labels used in drop accounting.
const (
	StreamEntries = "entries"
	StreamErrors  = "errors"
)

// DefaultCapacity is the per-branch queue bound.
const DefaultCapacity = 2000

// BranchStats is a snapshot of one branch's delivery counters.
type BranchStats struct {
	Branch    string `json:"branch"`
	Stream    string `json:"stream"`
	Delivered uint64 `json:"delivered"`
	Dropped   uint64 `json:"dropped"`
}

type branch[T any] struct {
	name      string
	ch        chan T
	delivered atomic.Uint64
	dropped   atomic.Uint64
}

// Fanout copies every item from one upstream channel onto a bounded channel
// per branch. Delivery is best effort: a full branch loses the item and the
// loss is counted, so a slow consumer never holds up the others or the
// upstream producer.
type Fanout[T any] struct {
	stream   string
	in       <-chan T
	branches []*branch[T]
	metrics  domrepo.Metrics
}

// NewFanout builds one branch per name, in order. A capacity below 1 falls
// back to DefaultCapacity.
func NewFanout[T any](stream string, in <-chan T, capacity int, names []string, metrics domrepo.Metrics) *Fanout[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	f := &Fanout[T]{stream: stream, in: in, metrics: metrics}
	for _, n := range names {
		f.branches = append(f.branches, &branch[T]{name: n, ch: make(chan T, capacity)})
	}
	return f
}

// Out returns the receive side of the named branch, or nil.
func (f *Fanout[T]) Out(name string) <-chan T {
	for _, b := range f.branches {
		if b.name == name {
			return b.ch
		}
	}
	return nil
}

// Run forwards until upstream is closed or ctx is done, then closes every
// branch channel so consumers can drain what was queued.
func (f *Fanout[T]) Run(ctx context.Context) {
	defer func() {
		for _, b := range f.branches {
			close(b.ch)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case v, ok := <-f.in:
			if !ok {
				return
			}
			f.offer(v)
		}
	}
}

func (f *Fanout[T]) offer(v T) {
	for _, b := range f.branches {
		select {
		case b.ch <- v:
			b.delivered.Add(1)
		default:
			b.dropped.Add(1)
			if f.metrics != nil {
				f.metrics.RecordDrop(b.name, f.stream)
			}
		}
	}
}

// Stats returns counters for every branch in construction order.
func (f *Fanout[T]) Stats() []BranchStats {
	out := make([]BranchStats, 0, len(f.branches))
	for _, b := range f.branches {
		out = append(out, BranchStats{
			Branch:    b.name,
			Stream:    f.stream,
			Delivered: b.delivered.Load(),
			Dropped:   b.dropped.Load(),
		})
	}
	return out
}

// Router fans both stage outputs, entry batches and error notes, out to the
// same set of named branches.
type Router struct {
	Entries *Fanout[*models.EntryBatch]
	Errors  *Fanout[models.ErrorNote]
}

// NewRouter builds a router with one branch per name on each stream.
func NewRouter(entries <-chan *models.EntryBatch, errs <-chan models.ErrorNote, capacity int, names []string, metrics domrepo.Metrics) *Router {
	return &Router{
		Entries: NewFanout(StreamEntries, entries, capacity, names, metrics),
		Errors:  NewFanout(StreamErrors, errs, capacity, names, metrics),
	}
}

// Branch returns the entry and error channels for one pipeline.
func (r *Router) Branch(name string) (<-chan *models.EntryBatch, <-chan models.ErrorNote) {
	return r.Entries.Out(name), r.Errors.Out(name)
}

// Run forwards both streams and returns once both upstreams are closed or
// ctx is done.
func (r *Router) Run(ctx context.Context) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r.Entries.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		r.Errors.Run(ctx)
	}()
	wg.Wait()
}

// Stats returns entry branch counters followed by error branch counters.
func (r *Router) Stats() []BranchStats {
	return append(r.Entries.Stats(), r.Errors.Stats()...)
}
