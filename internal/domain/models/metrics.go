package models

import "fmt"

// StageMetrics is a point-in-time copy of the reconstruction stage counters.
type StageMetrics struct {
	PacketsReceived uint64 `json:"packets_received"`
	BytesReceived   uint64 `json:"bytes_received"`
	DataShreds      uint64 `json:"data_shreds"`
	CodeShreds      uint64 `json:"code_shreds"`
	InvalidShreds   uint64 `json:"invalid_shreds"`
	DuplicateShreds uint64 `json:"duplicate_shreds"`
	StaleShreds     uint64 `json:"stale_shreds"`
	OutlierShreds   uint64 `json:"outlier_shreds"`
	BatchesEmitted  uint64 `json:"batches_emitted"`
	EntriesEmitted  uint64 `json:"entries_emitted"`
	TxsEmitted      uint64 `json:"txs_emitted"`
	DecodeErrors    uint64 `json:"decode_errors"`
	SlotsTracked    int    `json:"slots_tracked"`
	HighestSlot     uint64 `json:"highest_slot"`
}

func (m StageMetrics) String() string {
	return fmt.Sprintf(
		"packets=%d bytes=%d data=%d code=%d invalid=%d dup=%d stale=%d outlier=%d batches=%d entries=%d txs=%d decode_errors=%d slots=%d highest_slot=%d",
		m.PacketsReceived, m.BytesReceived, m.DataShreds, m.CodeShreds, m.InvalidShreds,
		m.DuplicateShreds, m.StaleShreds, m.OutlierShreds, m.BatchesEmitted, m.EntriesEmitted, m.TxsEmitted, m.DecodeErrors,
		m.SlotsTracked, m.HighestSlot,
	)
}

// Pool is a tracked liquidity pool for the arbitrage strategy.
type Pool struct {
	Address string `json:"address"`
	Name    string `json:"name,omitempty"`
}
