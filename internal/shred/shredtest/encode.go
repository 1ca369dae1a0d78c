// Package shredtest builds wire-format shreds and entry payloads for tests.
package shredtest

import (
	"encoding/binary"

	"ShredPull/internal/domain/models"
	"ShredPull/internal/shred"
)

const (
	offVariant      = 64
	offSlot         = 65
	offIndex        = 73
	offVersion      = 77
	offFECSet       = 79
	offParentOffset = 83
	offFlags        = 85
	offSize         = 86
	dataHeaderSize  = 88
	codeHeaderSize  = 89

	// MaxDataPayload is what fits in one data shred datagram.
	MaxDataPayload = models.MaxPacketSize - dataHeaderSize
)

// Tx is a transaction to encode. Signature is 64 bytes, keys 32 bytes each.
type Tx struct {
	Signature    []byte
	AccountKeys  [][]byte
	Blockhash    []byte
	Instructions []models.Instruction
	V0           bool
}

type Entry struct {
	NumHashes uint64
	Hash      []byte
	Txs       []Tx
}

// Key returns a 32 byte key filled with seed.
func Key(seed byte) []byte { return fill(32, seed) }

// Sig returns a 64 byte signature filled with seed.
func Sig(seed byte) []byte { return fill(64, seed) }

func fill(n int, b byte) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

func compactU16(buf []byte, v int) []byte {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v == 0 {
			return append(buf, b)
		}
		buf = append(buf, b|0x80)
	}
}

func u64(buf []byte, v uint64) []byte {
	return binary.LittleEndian.AppendUint64(buf, v)
}

func pad(b []byte, n int) []byte {
	if len(b) == n {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

// EncodeTx serializes a versioned transaction.
func EncodeTx(buf []byte, tx Tx) []byte {
	buf = compactU16(buf, 1)
	buf = append(buf, pad(tx.Signature, 64)...)
	if tx.V0 {
		buf = append(buf, 0x80)
	}
	buf = append(buf, 1, 0, 0)
	buf = compactU16(buf, len(tx.AccountKeys))
	for _, k := range tx.AccountKeys {
		buf = append(buf, pad(k, 32)...)
	}
	buf = append(buf, pad(tx.Blockhash, 32)...)
	buf = compactU16(buf, len(tx.Instructions))
	for _, ix := range tx.Instructions {
		buf = append(buf, ix.ProgramIDIndex)
		buf = compactU16(buf, len(ix.Accounts))
		buf = append(buf, ix.Accounts...)
		buf = compactU16(buf, len(ix.Data))
		buf = append(buf, ix.Data...)
	}
	if tx.V0 {
		buf = compactU16(buf, 0)
	}
	return buf
}

// EncodeEntries serializes entries as a bincode Vec<Entry>.
func EncodeEntries(entries []Entry) []byte {
	buf := u64(nil, uint64(len(entries)))
	for _, e := range entries {
		buf = u64(buf, e.NumHashes)
		buf = append(buf, pad(e.Hash, 32)...)
		buf = u64(buf, uint64(len(e.Txs)))
		for _, tx := range e.Txs {
			buf = EncodeTx(buf, tx)
		}
	}
	return buf
}

// DataShred builds a legacy data shred carrying payload.
func DataShred(slot uint64, index uint32, flags byte, payload []byte) []byte {
	size := dataHeaderSize + len(payload)
	pkt := make([]byte, size)
	pkt[offVariant] = shred.VariantLegacyData
	binary.LittleEndian.PutUint64(pkt[offSlot:], slot)
	binary.LittleEndian.PutUint32(pkt[offIndex:], index)
	binary.LittleEndian.PutUint16(pkt[offVersion:], 1)
	binary.LittleEndian.PutUint32(pkt[offFECSet:], index)
	binary.LittleEndian.PutUint16(pkt[offParentOffset:], 1)
	pkt[offFlags] = flags
	binary.LittleEndian.PutUint16(pkt[offSize:], uint16(size))
	copy(pkt[dataHeaderSize:], payload)
	return pkt
}

// CodeShred builds a legacy coding shred with an empty body.
func CodeShred(slot uint64, index uint32) []byte {
	pkt := make([]byte, codeHeaderSize)
	pkt[offVariant] = shred.VariantLegacyCode
	binary.LittleEndian.PutUint64(pkt[offSlot:], slot)
	binary.LittleEndian.PutUint32(pkt[offIndex:], index)
	return pkt
}

// Split cuts payload into data shreds of at most chunk bytes starting at
// index start. The final shred carries flags.
func Split(slot uint64, start uint32, payload []byte, chunk int, flags byte) [][]byte {
	if chunk <= 0 || chunk > MaxDataPayload {
		chunk = MaxDataPayload
	}
	var out [][]byte
	idx := start
	for off := 0; off < len(payload) || off == 0; off += chunk {
		end := off + chunk
		if end > len(payload) {
			end = len(payload)
		}
		var f byte
		if end == len(payload) {
			f = flags
		}
		out = append(out, DataShred(slot, idx, f, payload[off:end]))
		idx++
		if end == len(payload) {
			break
		}
	}
	return out
}
