package models

import "time"

// MaxPacketSize is the largest shred payload carried in one datagram:
// 1280 byte IPv6 minimum MTU minus the 40 byte IPv6 and 8 byte UDP headers.
const MaxPacketSize = 1280 - 40 - 8

// Packet is one received datagram, copied out of the socket buffer.
type Packet []byte

// Instruction is a compiled instruction inside a transaction message.
type Instruction struct {
	ProgramIDIndex uint8
	Accounts       []uint8
	Data           []byte
}

// LookupTable is a v0 address table lookup. Resolving it needs account
// state, so only the table key and index counts survive decoding.
type LookupTable struct {
	AccountKey      string
	WritableIndexes []uint8
	ReadonlyIndexes []uint8
}

// Transaction is a decoded versioned transaction. Signatures and keys are
// base58 strings.
type Transaction struct {
	Signatures      []string
	Version         int // -1 for legacy
	AccountKeys     []string
	RecentBlockhash string
	Instructions    []Instruction
	LookupTables    []LookupTable
}

// ProgramID returns the account key invoked by ix, or "" if the index falls
// into lookup-table territory.
func (t *Transaction) ProgramID(ix Instruction) string {
	if int(ix.ProgramIDIndex) >= len(t.AccountKeys) {
		return ""
	}
	return t.AccountKeys[ix.ProgramIDIndex]
}

// HasAccount reports whether key appears among the static account keys.
func (t *Transaction) HasAccount(key string) bool {
	for _, k := range t.AccountKeys {
		if k == key {
			return true
		}
	}
	return false
}

// FirstSignature returns the fee payer signature, which identifies the transaction.
func (t *Transaction) FirstSignature() string {
	if len(t.Signatures) == 0 {
		return ""
	}
	return t.Signatures[0]
}

// Entry is a PoH entry with its transactions.
type Entry struct {
	NumHashes    uint64
	Hash         string
	Transactions []Transaction
}

// EntryBatch is the unit the reconstruction stage emits: every entry
// deshredded from one completed run of data shreds. It is handed out by
// pointer and must not be mutated once emitted, since the fan-out router
// gives the same pointer to several pipelines.
type EntryBatch struct {
	Slot       uint64
	StartIndex uint32
	EndIndex   uint32
	Entries    []Entry
	ReceivedAt time.Time
}

// TxCount returns the number of transactions across all entries.
func (b *EntryBatch) TxCount() int {
	n := 0
	for i := range b.Entries {
		n += len(b.Entries[i].Transactions)
	}
	return n
}

// ErrorNote describes a reconstruction failure.
type ErrorNote struct {
	Slot   uint64
	Reason string
}

func (e ErrorNote) String() string {
	return e.Reason
}
