package gcs

import (
	"encoding/binary"
	"fmt"
	"sort"
)

// IndexEntrySize is the on-disk size of one sparse-index anchor: two
// little-endian uint64 fields, cumulative value and bit offset.
const IndexEntrySize = 16

// anchor is one entry of the sparse index: after decoding count*Granularity
// Rice codes and summing their gaps, the running total equals Value, and
// the bit reader sits at BitOffset ready to decode the next code.
type anchor struct {
	Value     uint64
	BitOffset uint64
}

// index is the in-memory form of a file's sparse anchor table, sorted
// ascending by Value (spec.md §4.5: anchors are sampled in encounter
// order, which is already ascending since the gap stream is monotone).
type index struct {
	entries []anchor
}

// encodeIndex serializes anchors in ascending order, 16 bytes each.
func encodeIndex(anchors []anchor) []byte {
	buf := make([]byte, len(anchors)*IndexEntrySize)
	for i, a := range anchors {
		off := i * IndexEntrySize
		binary.LittleEndian.PutUint64(buf[off:off+8], a.Value)
		binary.LittleEndian.PutUint64(buf[off+8:off+16], a.BitOffset)
	}
	return buf
}

// decodeIndex parses a buffer of count anchors and validates that their
// Value and BitOffset sequences are both non-decreasing: a GCS index that
// ever regresses cannot be the product of a monotone gap stream and would
// cause Contains to seek backwards into already-consumed bits.
func decodeIndex(buf []byte, count uint64) (*index, error) {
	want := count * IndexEntrySize
	if uint64(len(buf)) < want {
		return nil, fmt.Errorf("%w: index is %d bytes, need %d", ErrTruncated, len(buf), want)
	}
	entries := make([]anchor, count)
	var prevValue, prevOffset uint64
	for i := uint64(0); i < count; i++ {
		off := i * IndexEntrySize
		v := binary.LittleEndian.Uint64(buf[off : off+8])
		b := binary.LittleEndian.Uint64(buf[off+8 : off+16])
		if i > 0 && (v < prevValue || b < prevOffset) {
			return nil, fmt.Errorf("%w: anchor %d is not monotone", ErrInconsistentIndex, i)
		}
		entries[i] = anchor{Value: v, BitOffset: b}
		prevValue, prevOffset = v, b
	}
	return &index{entries: entries}, nil
}

// floor returns the last anchor whose Value is <= target, and whether one
// exists. When none exists the caller must start decoding from the
// beginning of the payload (running total 0, bit offset 0).
func (ix *index) floor(target uint64) (anchor, bool) {
	n := len(ix.entries)
	// sort.Search finds the first index for which the predicate holds;
	// entries are ascending by Value, so the first entry with
	// Value > target sits one past the anchor we want.
	i := sort.Search(n, func(i int) bool {
		return ix.entries[i].Value > target
	})
	if i == 0 {
		return anchor{}, false
	}
	return ix.entries[i-1], true
}
