// Package gcshash reduces an arbitrary byte string to a bucket value
// in [0, N) under one of a fixed set of hash identities. The identity
// used at build time is recorded in the file header and must be used
// again at query time: hashing is otherwise unremarkable, so the only
// contract that matters is "same identity in, same bucket out".
package gcshash

import (
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"github.com/aead/siphash"
)

// ID identifies which hash function produced a GCS file's buckets.
type ID uint8

const (
	// SHA1Trunc64 truncates a SHA-1 digest to its first 8 bytes, read
	// as a big-endian uint64.
	SHA1Trunc64 ID = 0
	// SipHash24 is SipHash-2-4 keyed with an all-zero 128-bit key.
	SipHash24 ID = 1
)

func (id ID) String() string {
	switch id {
	case SHA1Trunc64:
		return "sha1-trunc64"
	case SipHash24:
		return "siphash-2-4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(id))
	}
}

// Valid reports whether id names a hash function this package knows
// how to compute.
func (id ID) Valid() bool {
	switch id {
	case SHA1Trunc64, SipHash24:
		return true
	default:
		return false
	}
}

// zeroKey is the fixed SipHash key. The spec requires only that build
// and query agree, not that the key be secret, so a fixed key keeps
// the file format self-contained: no key material to distribute.
var zeroKey [siphash.KeySize]byte

// Sum64 hashes item under the given identity. It panics if id is not
// Valid; callers must validate the identity (e.g. from a file header)
// before hashing.
func Sum64(id ID, item []byte) uint64 {
	switch id {
	case SHA1Trunc64:
		sum := sha1.Sum(item)
		return binary.BigEndian.Uint64(sum[:8])
	case SipHash24:
		return siphash.Sum64(item, &zeroKey)
	default:
		panic(fmt.Sprintf("gcshash: unknown hash id %d", uint8(id)))
	}
}

// Bucket reduces item to a bucket in [0, N) using the given hash
// identity. N must be > 0.
func Bucket(id ID, item []byte, n uint64) uint64 {
	if n == 0 {
		panic("gcshash: N must be > 0")
	}
	return Sum64(id, item) % n
}
