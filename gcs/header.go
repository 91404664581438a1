package gcs

import (
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/rpcpool/gcstool/internal/gcshash"
)

// Magic is the fixed 4-byte prefix of every GCS file.
var Magic = [4]byte{'G', 'C', 'S', '1'}

// HeaderSize is the fixed size, in bytes, of the header described in
// spec.md §6. The additive metadata block and integrity digest (§4.6
// of SPEC_FULL.md) live after the payload and index, not in this
// fixed region.
const HeaderSize = 64

// DefaultIndexLog2Granularity is log2(1024): one anchor per 1024
// encoded gaps, the stride spec.md §9 recommends as a balance between
// anchor-table overhead and per-query decode work.
const DefaultIndexLog2Granularity = 10

// Header holds the fixed, self-describing fields of a GCS file.
type Header struct {
	HashID               gcshash.ID
	IndexLog2Granularity uint8
	NItems               uint64 // m, the number of codes actually encoded
	P                    uint64
	N                    uint64
	PayloadBitLen        uint64
	IndexEntryCount      uint64
	IndexOffset          uint64
	PayloadOffset        uint64
}

// Granularity returns the number of encoded gaps between anchors.
func (h *Header) Granularity() uint64 {
	return uint64(1) << h.IndexLog2Granularity
}

// RemainderWidth returns ceil(log2(P)), the Rice remainder width.
func (h *Header) RemainderWidth() uint8 {
	return uint8(bits.Len64(h.P - 1))
}

// Encode serializes the header to exactly HeaderSize bytes.
func (h *Header) Encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic[:])
	buf[4] = byte(h.HashID)
	buf[5] = h.IndexLog2Granularity
	// buf[6:8] reserved, left zero.
	binary.LittleEndian.PutUint64(buf[8:16], h.NItems)
	binary.LittleEndian.PutUint64(buf[16:24], h.P)
	binary.LittleEndian.PutUint64(buf[24:32], h.N)
	binary.LittleEndian.PutUint64(buf[32:40], h.PayloadBitLen)
	binary.LittleEndian.PutUint64(buf[40:48], h.IndexEntryCount)
	binary.LittleEndian.PutUint64(buf[48:56], h.IndexOffset)
	binary.LittleEndian.PutUint64(buf[56:64], h.PayloadOffset)
	return buf
}

// DecodeHeader parses a HeaderSize-byte buffer into a Header,
// validating the magic and the hash identity.
func DecodeHeader(buf []byte) (*Header, error) {
	if len(buf) < HeaderSize {
		return nil, fmt.Errorf("%w: header is %d bytes, need %d", ErrTruncated, len(buf), HeaderSize)
	}
	if [4]byte(buf[0:4]) != Magic {
		return nil, fmt.Errorf("%w: got %q", ErrBadMagic, buf[0:4])
	}
	h := &Header{
		HashID:               gcshash.ID(buf[4]),
		IndexLog2Granularity: buf[5],
		NItems:               binary.LittleEndian.Uint64(buf[8:16]),
		P:                    binary.LittleEndian.Uint64(buf[16:24]),
		N:                    binary.LittleEndian.Uint64(buf[24:32]),
		PayloadBitLen:        binary.LittleEndian.Uint64(buf[32:40]),
		IndexEntryCount:      binary.LittleEndian.Uint64(buf[40:48]),
		IndexOffset:          binary.LittleEndian.Uint64(buf[48:56]),
		PayloadOffset:        binary.LittleEndian.Uint64(buf[56:64]),
	}
	if !h.HashID.Valid() {
		return nil, fmt.Errorf("%w: id %d", ErrUnsupportedHash, h.HashID)
	}
	if h.P < 2 {
		return nil, fmt.Errorf("%w: p=%d must be >= 2", ErrInconsistentIndex, h.P)
	}
	return h, nil
}
