// Package strategy holds the detectors behind each strategy pipeline.
package strategy

import (
	"context"

	"ShredPull/internal/domain/models"
)

// DefaultMinPools is how many tracked pools a transaction must touch to be
// reported as an arbitrage candidate.
const DefaultMinPools = 2

// ArbDetector flags transactions routing through several tracked pools.
type ArbDetector struct {
	state    *PoolsState
	minPools int
}

func NewArbDetector(state *PoolsState, minPools int) *ArbDetector {
	if minPools < 1 {
		minPools = DefaultMinPools
	}
	return &ArbDetector{state: state, minPools: minPools}
}

func (d *ArbDetector) Name() string { return models.StrategyArb }

func (d *ArbDetector) Detect(_ context.Context, b *models.EntryBatch) []models.Signature {
	if d.state.Len() == 0 {
		return nil
	}
	var out []models.Signature
	for i := range b.Entries {
		for j := range b.Entries[i].Transactions {
			tx := &b.Entries[i].Transactions[j]
			hits := 0
			seen := make(map[string]struct{}, 4)
			for _, k := range tx.AccountKeys {
				if _, dup := seen[k]; dup || !d.state.Tracked(k) {
					continue
				}
				seen[k] = struct{}{}
				d.state.Touch(k, b.Slot)
				hits++
			}
			if hits >= d.minPools {
				if sig := tx.FirstSignature(); sig != "" {
					out = append(out, models.Signature(sig))
				}
			}
		}
	}
	return out
}
