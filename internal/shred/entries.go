package shred

import (
	"encoding/binary"
	"errors"
	"fmt"

	"ShredPull/internal/domain/models"

	"github.com/mr-tron/base58"
)

const (
	hashSize   = 32
	pubkeySize = 32

	// num_hashes + hash + transaction count
	minEntrySize = 8 + hashSize + 8
	// signature count + header + key count + blockhash + instruction count
	minTxSize = 1 + 3 + 1 + hashSize + 1
	// program index + account and data length prefixes
	minInstructionSize = 3
	// table key + writable and readonly length prefixes
	minLookupSize = pubkeySize + 2
)

var ErrTruncated = errors.New("entries: truncated input")

// reader walks a bincode buffer and latches the first error.
type reader struct {
	b   []byte
	off int
	err error
}

func (r *reader) remaining() int { return len(r.b) - r.off }

func (r *reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > r.remaining() {
		r.fail(fmt.Errorf("%w: need %d at offset %d, have %d", ErrTruncated, n, r.off, r.remaining()))
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *reader) u8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) peek() (uint8, bool) {
	if r.err != nil || r.remaining() < 1 {
		return 0, false
	}
	return r.b[r.off], true
}

func (r *reader) u64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

// compactU16 reads the short_vec length prefix: 7 bits per byte, at most 3 bytes.
func (r *reader) compactU16() int {
	v := 0
	for i := 0; i < 3; i++ {
		b := r.u8()
		if r.err != nil {
			return 0
		}
		v |= int(b&0x7f) << (7 * i)
		if b&0x80 == 0 {
			return v
		}
	}
	r.fail(fmt.Errorf("entries: compact-u16 overflow at offset %d", r.off))
	return 0
}

// count reads a u64 length and rejects values the remaining input cannot hold.
func (r *reader) count(minElem int) int {
	n := r.u64()
	if r.err != nil {
		return 0
	}
	if n > uint64(r.remaining()/minElem) {
		r.fail(fmt.Errorf("%w: length %d exceeds remaining input", ErrTruncated, n))
		return 0
	}
	return int(n)
}

// shortCount reads a short_vec length and rejects values the remaining
// input cannot hold.
func (r *reader) shortCount(minElem int) int {
	n := r.compactU16()
	if r.err != nil {
		return 0
	}
	if n > r.remaining()/minElem {
		r.fail(fmt.Errorf("%w: short_vec length %d exceeds remaining input", ErrTruncated, n))
		return 0
	}
	return n
}

func (r *reader) key() string {
	b := r.take(pubkeySize)
	if b == nil {
		return ""
	}
	return base58.Encode(b)
}

func (r *reader) shortBytes() []byte {
	n := r.compactU16()
	return r.take(n)
}

// DecodeEntries decodes a deshredded payload: a bincode Vec<Entry>.
func DecodeEntries(b []byte) ([]models.Entry, error) {
	r := &reader{b: b}
	n := r.count(minEntrySize)
	entries := make([]models.Entry, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		var e models.Entry
		e.NumHashes = r.u64()
		if h := r.take(hashSize); h != nil {
			e.Hash = base58.Encode(h)
		}
		txCount := r.count(minTxSize)
		e.Transactions = make([]models.Transaction, 0, txCount)
		for j := 0; j < txCount && r.err == nil; j++ {
			e.Transactions = append(e.Transactions, decodeTransaction(r))
		}
		entries = append(entries, e)
	}
	if r.err != nil {
		return nil, r.err
	}
	return entries, nil
}

func decodeTransaction(r *reader) models.Transaction {
	var tx models.Transaction

	sigs := r.shortCount(signatureSize)
	tx.Signatures = make([]string, 0, sigs)
	for i := 0; i < sigs && r.err == nil; i++ {
		if s := r.take(signatureSize); s != nil {
			tx.Signatures = append(tx.Signatures, base58.Encode(s))
		}
	}

	tx.Version = -1
	if p, ok := r.peek(); ok && p&0x80 != 0 {
		r.off++
		tx.Version = int(p & 0x7f)
		if tx.Version != 0 {
			r.fail(fmt.Errorf("entries: unsupported message version %d", tx.Version))
			return tx
		}
	}

	r.take(3) // message header

	keys := r.shortCount(pubkeySize)
	tx.AccountKeys = make([]string, 0, keys)
	for i := 0; i < keys && r.err == nil; i++ {
		tx.AccountKeys = append(tx.AccountKeys, r.key())
	}
	if h := r.take(hashSize); h != nil {
		tx.RecentBlockhash = base58.Encode(h)
	}

	ixs := r.shortCount(minInstructionSize)
	tx.Instructions = make([]models.Instruction, 0, ixs)
	for i := 0; i < ixs && r.err == nil; i++ {
		var ix models.Instruction
		ix.ProgramIDIndex = r.u8()
		ix.Accounts = r.shortBytes()
		ix.Data = r.shortBytes()
		tx.Instructions = append(tx.Instructions, ix)
	}

	if tx.Version == 0 {
		lookups := r.shortCount(minLookupSize)
		for i := 0; i < lookups && r.err == nil; i++ {
			var lt models.LookupTable
			lt.AccountKey = r.key()
			lt.WritableIndexes = r.shortBytes()
			lt.ReadonlyIndexes = r.shortBytes()
			tx.LookupTables = append(tx.LookupTables, lt)
		}
	}
	return tx
}
