// Package rice implements the Rice (Golomb, power-of-two-adjacent)
// code used to pack the sorted gap stream of a GCS file: a unary
// quotient followed by a fixed-width remainder. The shape of the
// encode/decode loop is grounded on EXCCoin/exccd's gcs.go, generalized
// from that code's power-of-two-only divisor (shift/mask arithmetic)
// to an arbitrary divisor p >= 2 (division/modulo arithmetic).
package rice

import (
	"fmt"
	"math/bits"

	"github.com/rpcpool/gcstool/internal/bitio"
)

// RemainderWidth returns ceil(log2(p)), the number of bits used for
// the remainder field. p must be >= 2.
func RemainderWidth(p uint64) uint8 {
	if p < 2 {
		panic(fmt.Sprintf("rice: p must be >= 2, got %d", p))
	}
	// ceil(log2(p)): bits.Len64(p-1) is floor(log2(p-1))+1, which
	// equals ceil(log2(p)) for p > 1.
	return uint8(bits.Len64(p - 1))
}

// Encode writes the Rice code for g (a non-negative gap) to w, using
// divisor p and remainder width already computed via RemainderWidth.
func Encode(w *bitio.Writer, g, p uint64, width uint8) {
	q := g / p
	r := g % p
	for ; q > 0; q-- {
		w.WriteBit(1)
	}
	w.WriteBit(0)
	w.WriteBits(r, width)
}

// Decode reads one Rice code from r and returns the decoded value.
func Decode(r *bitio.Reader, p uint64, width uint8) (uint64, error) {
	q, err := r.ReadUnary()
	if err != nil {
		return 0, err
	}
	rem, err := r.ReadBits(width)
	if err != nil {
		return 0, err
	}
	return q*p + rem, nil
}
