package strategy

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"ShredPull/internal/domain/models"
	drepo "ShredPull/internal/domain/repository"
)

var ErrNotInitialized = errors.New("pools state not initialized")

type poolStat struct {
	pool     models.Pool
	lastSlot uint64
	hits     uint64
}

// PoolsState is the arbitrage pipeline's view of tracked pools. It is
// loaded once and afterwards only touched by its own pipeline.
type PoolsState struct {
	source drepo.PoolSource

	mu          sync.RWMutex
	pools       map[string]*poolStat
	initialized bool
}

func NewPoolsState(source drepo.PoolSource) *PoolsState {
	return &PoolsState{source: source, pools: make(map[string]*poolStat)}
}

// Initialize loads the pool registry. Calling it again is a no-op.
func (s *PoolsState) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.initialized {
		return nil
	}
	if s.source == nil {
		s.initialized = true
		return nil
	}
	pools, err := s.source.LoadPools(ctx)
	if err != nil {
		return fmt.Errorf("load pools: %w", err)
	}
	for _, p := range pools {
		if p.Address == "" {
			continue
		}
		s.pools[p.Address] = &poolStat{pool: p}
	}
	s.initialized = true
	return nil
}

func (s *PoolsState) Initialized() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.initialized
}

func (s *PoolsState) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pools)
}

func (s *PoolsState) Tracked(addr string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.pools[addr]
	return ok
}

// Touch records that addr was seen in slot.
func (s *PoolsState) Touch(addr string, slot uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.pools[addr]; ok {
		p.hits++
		if slot > p.lastSlot {
			p.lastSlot = slot
		}
	}
}

// LastSeen returns the newest slot addr was touched in.
func (s *PoolsState) LastSeen(addr string) (uint64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.pools[addr]
	if !ok || p.hits == 0 {
		return 0, false
	}
	return p.lastSlot, true
}
