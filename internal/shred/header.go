package shred

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Byte layout of a shred as it travels over turbine. All integers are
// little endian.
const (
	signatureSize    = 64
	offVariant       = 64
	offSlot          = 65
	offIndex         = 73
	offVersion       = 77
	offFECSet        = 79
	commonHeaderSize = 83

	offParentOffset = 83
	offFlags        = 85
	offSize         = 86
	dataHeaderSize  = 88

	codeHeaderSize = 89
)

// Data shred flags.
const (
	FlagDataComplete = 0x40
	FlagLastInSlot   = 0xC0
	TickMask         = 0x3F
)

// Variant bytes. Merkle variants carry the proof size in the low nibble.
const (
	VariantLegacyCode = 0x5A
	VariantLegacyData = 0xA5
)

type Kind uint8

const (
	KindData Kind = iota
	KindCode
)

func (k Kind) String() string {
	if k == KindCode {
		return "code"
	}
	return "data"
}

var (
	ErrTooShort       = errors.New("shred: packet shorter than header")
	ErrUnknownVariant = errors.New("shred: unknown variant")
	ErrBadSize        = errors.New("shred: size field out of range")
)

// Header is the parsed common header plus, for data shreds, the data header.
type Header struct {
	Signature    [signatureSize]byte
	Variant      byte
	Kind         Kind
	Slot         uint64
	Index        uint32
	Version      uint16
	FECSetIndex  uint32
	ParentOffset uint16
	Flags        byte
	Size         uint16
}

func (h Header) DataComplete() bool { return h.Flags&FlagDataComplete != 0 }

func (h Header) LastInSlot() bool { return h.Flags&FlagLastInSlot == FlagLastInSlot }

// ParentSlot is only meaningful on data shreds.
func (h Header) ParentSlot() uint64 { return h.Slot - uint64(h.ParentOffset) }

func kindOf(v byte) (Kind, bool) {
	switch v {
	case VariantLegacyData:
		return KindData, true
	case VariantLegacyCode:
		return KindCode, true
	}
	switch v & 0xF0 {
	case 0x80, 0x90, 0xB0:
		return KindData, true
	case 0x40, 0x60, 0x70:
		return KindCode, true
	}
	return 0, false
}

// ParseHeader decodes the headers of packet without copying it.
func ParseHeader(packet []byte) (Header, error) {
	var h Header
	if len(packet) < commonHeaderSize {
		return h, ErrTooShort
	}
	copy(h.Signature[:], packet[:signatureSize])
	h.Variant = packet[offVariant]
	kind, ok := kindOf(h.Variant)
	if !ok {
		return h, fmt.Errorf("%w: 0x%02x", ErrUnknownVariant, h.Variant)
	}
	h.Kind = kind
	h.Slot = binary.LittleEndian.Uint64(packet[offSlot:])
	h.Index = binary.LittleEndian.Uint32(packet[offIndex:])
	h.Version = binary.LittleEndian.Uint16(packet[offVersion:])
	h.FECSetIndex = binary.LittleEndian.Uint32(packet[offFECSet:])

	if kind == KindCode {
		if len(packet) < codeHeaderSize {
			return h, ErrTooShort
		}
		return h, nil
	}

	if len(packet) < dataHeaderSize {
		return h, ErrTooShort
	}
	h.ParentOffset = binary.LittleEndian.Uint16(packet[offParentOffset:])
	h.Flags = packet[offFlags]
	h.Size = binary.LittleEndian.Uint16(packet[offSize:])
	if int(h.Size) < dataHeaderSize || int(h.Size) > len(packet) {
		return h, fmt.Errorf("%w: size=%d len=%d", ErrBadSize, h.Size, len(packet))
	}
	return h, nil
}

// Payload returns the entry bytes carried by a data shred.
func Payload(packet []byte, h Header) []byte {
	return packet[dataHeaderSize:h.Size]
}
