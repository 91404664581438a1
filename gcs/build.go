package gcs

import (
	"encoding/binary"
	"fmt"
	"os"
	"sort"

	"github.com/cespare/xxhash/v2"

	"github.com/rpcpool/gcstool/internal/bitio"
	"github.com/rpcpool/gcstool/internal/errchain"
	"github.com/rpcpool/gcstool/internal/gcshash"
	"github.com/rpcpool/gcstool/internal/indexmeta"
	"github.com/rpcpool/gcstool/internal/rice"
)

// Config controls how a Builder reduces items to buckets and packs them.
type Config struct {
	HashID gcshash.ID
	// P is the Golomb/Rice divisor: the false-positive rate is 1/P.
	P uint64
	// IndexLog2Granularity is log2 of the number of encoded gaps between
	// sparse-index anchors. Zero means DefaultIndexLog2Granularity.
	IndexLog2Granularity uint8
	// MaxItems caps the number of items a Builder will accept before
	// Put starts returning ErrOutOfMemory. Zero means unbounded.
	MaxItems uint64
}

func (c Config) granularity() uint64 {
	return uint64(1) << c.indexLog2Granularity()
}

func (c Config) indexLog2Granularity() uint8 {
	if c.IndexLog2Granularity == 0 {
		return DefaultIndexLog2Granularity
	}
	return c.IndexLog2Granularity
}

// Builder accumulates items in memory and, on Seal, sorts, dedups, and
// Rice-encodes them into a complete GCS file. It mirrors the teacher's
// draft-header-then-rewrite sealing idiom: the header is written as a
// zeroed stub, the payload, index, metadata block and trailing integrity
// digest are written after it, and only then is the real header written
// back over the stub at offset 0.
type Builder struct {
	cfg    Config
	hashes []uint64
}

// NewBuilder returns a Builder ready to accept items.
func NewBuilder(cfg Config) (*Builder, error) {
	if cfg.P < 2 {
		return nil, fmt.Errorf("gcs: P must be >= 2, got %d", cfg.P)
	}
	if !cfg.HashID.Valid() {
		return nil, fmt.Errorf("%w: id %d", ErrUnsupportedHash, cfg.HashID)
	}
	return &Builder{cfg: cfg}, nil
}

// Put hashes item and queues it for inclusion. The final bucket space N
// is not known until Seal, since N = m*P depends on m, the number of
// distinct hashes actually seen (spec.md §9's resolved Open Question);
// Put therefore records the raw hash sum, and dedup plus the modulo
// reduction to a bucket both happen in Seal.
func (b *Builder) Put(item []byte) error {
	return b.PutHash(gcshash.Sum64(b.cfg.HashID, item))
}

// PutHash queues an already-computed hash, skipping the gcshash.Sum64
// call Put would otherwise make. It exists for callers that hash items
// themselves across a worker pool (cmd/gcstool's create command) and
// only need Builder to dedup/reduce/encode the results.
func (b *Builder) PutHash(hash uint64) error {
	if b.cfg.MaxItems > 0 && uint64(len(b.hashes)) >= b.cfg.MaxItems {
		return fmt.Errorf("%w: limit is %d items", ErrOutOfMemory, b.cfg.MaxItems)
	}
	b.hashes = append(b.hashes, hash)
	return nil
}

// Len returns the number of items queued so far.
func (b *Builder) Len() int {
	return len(b.hashes)
}

// Stats summarizes a completed build.
type Stats struct {
	ItemsIn   int    // items passed to Put
	ItemsOut  uint64 // m, items actually encoded after dedup
	N         uint64
	FileBytes int64
}

// Seal dedups the queued hashes, reduces and sorts them into buckets,
// Rice-encodes the gap stream, samples sparse-index anchors, and writes
// the complete file to path. meta may be nil to omit the optional
// build-metadata block.
func (b *Builder) Seal(path string, meta *indexmeta.Meta) (*Stats, error) {
	if len(b.hashes) == 0 {
		return nil, ErrEmptySet
	}

	// Dedup happens here, on the full-width hash values, before the
	// modulo-N reduction below — not as a second pass over the sorted
	// buckets. This is what keeps m (the count N is derived from) equal
	// to the number of codes actually written to the payload: a
	// collision introduced later, by the reduction itself, is encoded
	// as a legitimate zero-length gap rather than removed.
	seen := make(map[uint64]struct{}, len(b.hashes))
	unique := b.hashes[:0:0]
	for _, h := range b.hashes {
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		unique = append(unique, h)
	}

	m := uint64(len(unique))
	n := m * b.cfg.P
	buckets := make([]uint64, m)
	for i, h := range unique {
		buckets[i] = h % n
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i] < buckets[j] })

	width := rice.RemainderWidth(b.cfg.P)
	granularity := b.cfg.granularity()

	bw := bitio.NewWriter()
	var anchors []anchor
	var running uint64
	for i, v := range buckets {
		// i==0 is the implicit (0, 0) anchor spec.md §6 says is never
		// written; the first on-disk anchor covers k=granularity.
		if i > 0 && uint64(i)%granularity == 0 {
			anchors = append(anchors, anchor{Value: running, BitOffset: bw.BitPosition()})
		}
		rice.Encode(bw, v-running, b.cfg.P, width)
		running = v
	}
	payloadBitLen := bw.BitPosition()
	payload := bw.Flush()

	var metaBlock []byte
	if meta != nil {
		block, err := meta.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("gcs: marshal metadata: %w", err)
		}
		metaBlock = block
	}
	indexBlock := encodeIndex(anchors)

	header := &Header{
		HashID:               b.cfg.HashID,
		IndexLog2Granularity: b.cfg.indexLog2Granularity(),
		NItems:               m,
		P:                    b.cfg.P,
		N:                    n,
		PayloadBitLen:        payloadBitLen,
		IndexEntryCount:      uint64(len(anchors)),
		IndexOffset:          uint64(HeaderSize + len(payload)),
		PayloadOffset:        uint64(HeaderSize),
	}
	headerBytes := header.Encode()

	metaBlockLenBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(metaBlockLenBytes, uint64(len(metaBlock)))

	digest := xxhash.New()
	digest.Write(headerBytes)
	digest.Write(payload)
	digest.Write(indexBlock)
	digest.Write(metaBlockLenBytes)
	digest.Write(metaBlock)
	digestBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(digestBytes, digest.Sum64())

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	defer f.Close()

	// Stub header first, matching the teacher's "draft then rewrite"
	// sealing idiom, even though every field is already known here: it
	// keeps the write order identical to a streaming builder that
	// doesn't buffer the whole payload in memory, which is the shape
	// a future incremental Builder would need.
	chain := errchain.New()
	chain.Thenf("write stub header", func() error {
		_, err := f.Write(make([]byte, HeaderSize))
		return err
	})
	chain.Thenf("write payload", func() error {
		_, err := f.Write(payload)
		return err
	})
	chain.Thenf("write index", func() error {
		_, err := f.Write(indexBlock)
		return err
	})
	chain.Thenf("write metadata length", func() error {
		_, err := f.Write(metaBlockLenBytes)
		return err
	})
	chain.Thenf("write metadata block", func() error {
		if len(metaBlock) == 0 {
			return nil
		}
		_, err := f.Write(metaBlock)
		return err
	})
	chain.Thenf("write digest", func() error {
		_, err := f.Write(digestBytes)
		return err
	})
	chain.Thenf("write final header", func() error {
		_, err := f.WriteAt(headerBytes, 0)
		return err
	})
	chain.Thenf("sync", f.Sync)
	if err := chain.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}

	return &Stats{
		ItemsIn:   len(b.hashes),
		ItemsOut:  header.NItems,
		N:         n,
		FileBytes: info.Size(),
	}, nil
}
