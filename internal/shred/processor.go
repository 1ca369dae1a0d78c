package shred

import (
	"context"
	"fmt"
	"time"

	"ShredPull/internal/domain/models"
)

const (
	// DefaultMaxSlotLag bounds how far behind the newest slot a slot may fall
	// before its partial state is discarded.
	DefaultMaxSlotLag = 64
	// DefaultMaxSlotJump is the largest distance from the newest slot a
	// single shred may sit at. Shreds further away are outliers.
	DefaultMaxSlotJump = 1024
	// DefaultReanchorAfter is how many shreds confirm the newest slot, and
	// how many clustered outliers it takes to move a confirmed one.
	DefaultReanchorAfter = 16
	// MaxDataShredsPerSlot caps data shred indices within one slot.
	MaxDataShredsPerSlot = 32768
)

type slotState struct {
	next     uint32              // first data index not yet deshredded
	data     map[uint32][]byte   // pending payloads by index
	complete map[uint32]struct{} // pending DATA_COMPLETE boundaries
	last     int64               // index flagged LAST_IN_SLOT, -1 if unseen
}

func newSlotState() *slotState {
	return &slotState{
		data:     make(map[uint32][]byte),
		complete: make(map[uint32]struct{}),
		last:     -1,
	}
}

// boundary returns the smallest pending DATA_COMPLETE index at or after next.
func (s *slotState) boundary() (uint32, bool) {
	var (
		best  uint32
		found bool
	)
	for idx := range s.complete {
		if idx >= s.next && (!found || idx < best) {
			best, found = idx, true
		}
	}
	return best, found
}

// Processor is the default reconstruction stage. It assembles consecutive
// data shreds up to each DATA_COMPLETE boundary and decodes the result as
// an entry batch. Coding shreds are counted but not used for recovery.
//
// A Processor is not safe for concurrent use; the reconstruction adapter
// serializes every call.
type Processor struct {
	entries       chan<- *models.EntryBatch
	errs          chan<- models.ErrorNote
	maxSlotLag    uint64
	maxSlotJump   uint64
	reanchorAfter int
	now           func() time.Time

	slots    map[uint64]*slotState
	anchored bool
	support  int // admitted shreds near the anchor, capped at reanchorAfter
	// outliers clustered around cand, waiting to move HighestSlot
	cand     uint64
	candHits int
	m        models.StageMetrics
}

type Option func(*Processor)

// WithMaxSlotLag sets how many slots behind the newest are kept.
func WithMaxSlotLag(n uint64) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxSlotLag = n
		}
	}
}

// WithMaxSlotJump sets how far from the newest slot a shred is still
// trusted. Values below the slot lag are raised to it.
func WithMaxSlotJump(n uint64) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxSlotJump = n
		}
	}
}

// WithReanchorAfter sets how many clustered outliers move the newest slot.
func WithReanchorAfter(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.reanchorAfter = n
		}
	}
}

// WithClock overrides the ReceivedAt clock.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a stage that emits on entries and errs.
func NewProcessor(entries chan<- *models.EntryBatch, errs chan<- models.ErrorNote, opts ...Option) *Processor {
	p := &Processor{
		entries:    entries,
		errs:       errs,
		maxSlotLag:    DefaultMaxSlotLag,
		maxSlotJump:   DefaultMaxSlotJump,
		reanchorAfter: DefaultReanchorAfter,
		now:           time.Now,
		slots:         make(map[uint64]*slotState),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.maxSlotJump < p.maxSlotLag {
		p.maxSlotJump = p.maxSlotLag
	}
	return p
}

// Collect ingests one packet. Emission blocks on full output channels until
// ctx is done, which is how backpressure reaches the adapter.
func (p *Processor) Collect(ctx context.Context, packet models.Packet) {
	p.m.PacketsReceived++
	p.m.BytesReceived += uint64(len(packet))

	h, err := ParseHeader(packet)
	if err != nil {
		p.m.InvalidShreds++
		return
	}
	if h.Kind == KindCode {
		p.m.CodeShreds++
		return
	}
	p.m.DataShreds++
	if h.Index >= MaxDataShredsPerSlot {
		p.m.InvalidShreds++
		return
	}
	if !p.admit(h.Slot) {
		return
	}

	s, ok := p.slots[h.Slot]
	if !ok {
		s = newSlotState()
		p.slots[h.Slot] = s
	}
	if _, dup := s.data[h.Index]; dup || h.Index < s.next {
		p.m.DuplicateShreds++
		return
	}

	s.data[h.Index] = Payload(packet, h)
	if h.DataComplete() {
		s.complete[h.Index] = struct{}{}
	}
	if h.LastInSlot() {
		s.last = int64(h.Index)
	}

	p.drain(ctx, h.Slot, s)
}

// drain deshreds every run that is now contiguous up to its boundary.
func (p *Processor) drain(ctx context.Context, slot uint64, s *slotState) {
	for {
		end, ok := s.boundary()
		if !ok {
			return
		}
		size := 0
		for i := s.next; i <= end; i++ {
			d, ok := s.data[i]
			if !ok {
				return
			}
			size += len(d)
		}

		start := s.next
		buf := make([]byte, 0, size)
		for i := start; i <= end; i++ {
			buf = append(buf, s.data[i]...)
			delete(s.data, i)
		}
		delete(s.complete, end)
		s.next = end + 1

		entries, err := DecodeEntries(buf)
		if err != nil {
			p.m.DecodeErrors++
			p.emitError(ctx, models.ErrorNote{
				Slot:   slot,
				Reason: fmt.Sprintf("slot %d shreds %d-%d: %v", slot, start, end, err),
			})
		} else {
			batch := &models.EntryBatch{
				Slot:       slot,
				StartIndex: start,
				EndIndex:   end,
				Entries:    entries,
				ReceivedAt: p.now(),
			}
			p.m.BatchesEmitted++
			p.m.EntriesEmitted += uint64(len(entries))
			p.m.TxsEmitted += uint64(batch.TxCount())
			p.emitBatch(ctx, batch)
		}

		if s.last >= 0 && int64(s.next) > s.last {
			delete(p.slots, slot)
			return
		}
	}
}

// admit tracks the newest slot and reports whether a data shred of slot
// should be kept. The newest slot is provisional until reanchorAfter shreds
// land near it; a provisional anchor follows any far shred. Once confirmed,
// a shred more than maxSlotJump away is an outlier and only moves the anchor
// when reanchorAfter outliers agree on where the chain is.
func (p *Processor) admit(slot uint64) bool {
	hi := p.m.HighestSlot
	far := slot > hi && slot-hi > p.maxSlotJump || slot < hi && hi-slot > p.maxSlotJump
	switch {
	case !p.anchored, far && p.support < p.reanchorAfter:
		p.anchor(slot, 0)
	case far:
		return p.outlier(slot)
	case slot > hi:
		p.m.HighestSlot = slot
		p.prune()
	case hi-slot > p.maxSlotLag:
		p.m.StaleShreds++
		return false
	}
	if p.support < p.reanchorAfter {
		p.support++
	}
	p.cand, p.candHits = 0, 0
	return true
}

func (p *Processor) outlier(slot uint64) bool {
	p.m.OutlierShreds++
	if p.candHits > 0 && distance(slot, p.cand) <= p.maxSlotLag {
		p.candHits++
		if slot > p.cand {
			p.cand = slot
		}
	} else {
		p.cand, p.candHits = slot, 1
	}
	if p.candHits < p.reanchorAfter {
		return false
	}
	p.anchor(p.cand, p.reanchorAfter)
	return p.m.HighestSlot-slot <= p.maxSlotLag
}

func (p *Processor) anchor(slot uint64, support int) {
	p.anchored = true
	p.m.HighestSlot = slot
	p.support = support
	p.cand, p.candHits = 0, 0
	p.prune()
}

// prune drops slots outside the lag window, including any above the newest
// slot after it moved back.
func (p *Processor) prune() {
	hi := p.m.HighestSlot
	for slot := range p.slots {
		if slot > hi || hi-slot > p.maxSlotLag {
			delete(p.slots, slot)
		}
	}
}

func distance(a, b uint64) uint64 {
	if a > b {
		return a - b
	}
	return b - a
}

func (p *Processor) emitBatch(ctx context.Context, b *models.EntryBatch) {
	select {
	case p.entries <- b:
	case <-ctx.Done():
	}
}

func (p *Processor) emitError(ctx context.Context, e models.ErrorNote) {
	select {
	case p.errs <- e:
	case <-ctx.Done():
	}
}

// Metrics returns a copy of the counters. It does not touch slot state.
func (p *Processor) Metrics() models.StageMetrics {
	m := p.m
	m.SlotsTracked = len(p.slots)
	return m
}
