package gcs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/exp/mmap"
	"golang.org/x/sys/unix"

	"github.com/rpcpool/gcstool/internal/bitio"
	"github.com/rpcpool/gcstool/internal/gcshash"
	"github.com/rpcpool/gcstool/internal/indexmeta"
	"github.com/rpcpool/gcstool/internal/rice"
)

// Reader answers membership queries against an opened GCS file. A Reader
// is safe for concurrent use by multiple goroutines: Contains only reads,
// never mutates, its backing store.
type Reader struct {
	header *Header
	index  *index
	meta   *indexmeta.Meta
	width  uint8

	closer io.Closer // nil if the caller supplied their own ReaderAt

	payload []byte // copied out of the backing store once at open time; Contains never touches the backing store again
}

// Open memory-maps path and opens it for querying, hinting the kernel
// that access will be random (spec.md §5: queries scatter across the
// payload, unlike a build's sequential write). The hint is advisory only
// and is issued through a short-lived *os.File handle, since the mmap
// package does not expose the descriptor behind its ReaderAt.
func Open(path string) (*Reader, error) {
	if f, err := os.Open(path); err == nil {
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
		f.Close()
	}

	ra, err := mmap.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	r, err := OpenReader(ra, int64(ra.Len()))
	if err != nil {
		ra.Close()
		return nil, err
	}
	r.closer = ra
	return r, nil
}

// OpenReader builds a Reader over any io.ReaderAt of the given size, with
// no assumption about the backing store (file, mmap, in-memory buffer).
// This is the backend-agnostic entry point other packages should use when
// they already hold an open handle.
func OpenReader(ra io.ReaderAt, size int64) (*Reader, error) {
	type fileDescriptor interface {
		Fd() uintptr
	}
	if f, ok := ra.(fileDescriptor); ok {
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
	}
	if size < HeaderSize {
		return nil, fmt.Errorf("%w: file is %d bytes, need at least %d", ErrTruncated, size, HeaderSize)
	}
	headerBuf := make([]byte, HeaderSize)
	if _, err := ra.ReadAt(headerBuf, 0); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	h, err := DecodeHeader(headerBuf)
	if err != nil {
		return nil, err
	}

	payloadLen := int64(h.IndexOffset) - int64(h.PayloadOffset)
	if payloadLen < 0 {
		return nil, fmt.Errorf("%w: payload offset %d after index offset %d", ErrInconsistentIndex, h.PayloadOffset, h.IndexOffset)
	}
	indexLen := int64(h.IndexEntryCount) * IndexEntrySize
	indexEnd := int64(h.IndexOffset) + indexLen
	if indexEnd > size {
		return nil, fmt.Errorf("%w: index runs past end of file", ErrTruncated)
	}

	payload := make([]byte, payloadLen)
	if payloadLen > 0 {
		if _, err := ra.ReadAt(payload, int64(h.PayloadOffset)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
		}
	}
	indexBuf := make([]byte, indexLen)
	if indexLen > 0 {
		if _, err := ra.ReadAt(indexBuf, int64(h.IndexOffset)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
		}
	}
	ix, err := decodeIndex(indexBuf, h.IndexEntryCount)
	if err != nil {
		return nil, err
	}
	// Walk the payload once: each anchor must equal the running total and
	// bit position reached after its granularity-aligned code, below N.
	br := bitio.NewReader(payload)
	var running uint64
	for i, a := range ix.entries {
		for j := uint64(0); j < h.Granularity(); j++ {
			gap, err := rice.Decode(br, h.P, h.RemainderWidth())
			if err != nil {
				return nil, fmt.Errorf("%w: anchor %d points past the payload", ErrInconsistentIndex, i)
			}
			running += gap
		}
		if a.Value >= h.N || a.Value != running || a.BitOffset != br.BitPosition() {
			return nil, fmt.Errorf("%w: anchor %d disagrees with the payload", ErrInconsistentIndex, i)
		}
	}

	// Immediately after the index comes an 8-byte meta_block_len (0 if
	// the build-metadata block is absent), then that many bytes of
	// indexmeta wire format, then the trailing 8-byte digest.
	const lenFieldSize = 8
	const digestSize = 8
	lenBuf := make([]byte, lenFieldSize)
	if _, err := ra.ReadAt(lenBuf, indexEnd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	metaBlockLen := int64(binary.LittleEndian.Uint64(lenBuf))
	if metaBlockLen < 0 {
		return nil, fmt.Errorf("%w: negative meta_block_len", ErrInconsistentIndex)
	}
	metaStart := indexEnd + lenFieldSize
	metaEnd := metaStart + metaBlockLen
	digestStart := metaEnd
	if digestStart+digestSize > size {
		return nil, fmt.Errorf("%w: file too short for metadata block and integrity digest", ErrTruncated)
	}
	var meta *indexmeta.Meta
	if metaBlockLen > 0 {
		metaBuf := make([]byte, metaBlockLen)
		if _, err := ra.ReadAt(metaBuf, metaStart); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
		}
		meta = &indexmeta.Meta{}
		if err := meta.UnmarshalBinary(metaBuf); err != nil {
			return nil, fmt.Errorf("%w: metadata block: %v", ErrInconsistentIndex, err)
		}
	}

	digestBuf := make([]byte, digestSize)
	if _, err := ra.ReadAt(digestBuf, digestStart); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
	}
	wantDigest := binary.LittleEndian.Uint64(digestBuf)
	if err := verifyDigest(ra, digestStart, wantDigest); err != nil {
		return nil, err
	}

	return &Reader{
		header:  h,
		index:   ix,
		meta:    meta,
		width:   h.RemainderWidth(),
		payload: payload,
	}, nil
}

func verifyDigest(ra io.ReaderAt, contentLen int64, want uint64) error {
	h := xxhash.New()
	const chunk = 1 << 16
	buf := make([]byte, chunk)
	var off int64
	for off < contentLen {
		n := int64(chunk)
		if contentLen-off < n {
			n = contentLen - off
		}
		if _, err := ra.ReadAt(buf[:n], off); err != nil {
			return fmt.Errorf("%w: %v", ErrIOFailure, err)
		}
		h.Write(buf[:n])
		off += n
	}
	if h.Sum64() != want {
		return fmt.Errorf("%w: integrity digest mismatch", ErrInconsistentIndex)
	}
	return nil
}

// Close releases the Reader's resources. It is a no-op if the Reader was
// built with OpenReader over a caller-owned io.ReaderAt.
func (r *Reader) Close() error {
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

// Header returns the file's decoded header fields.
func (r *Reader) Header() Header {
	return *r.header
}

// Meta returns the file's optional build-metadata block, or nil if none
// was written.
func (r *Reader) Meta() *indexmeta.Meta {
	return r.meta
}

// Contains reports whether item is (probably) a member of the set. A
// false return is certain; for an item that was never added, a true
// return (a false positive) occurs with probability about 1/P (spec.md
// §3's false-positive guarantee). Contains is a
// total function: any byte string, including ones that look nothing like
// whatever was used to build the set, is a valid probe.
func (r *Reader) Contains(item []byte) bool {
	target := gcshash.Bucket(r.header.HashID, item, r.header.N)

	var running, bitPos uint64
	// sentinel marks the always-present leading anchor (value 0, offset
	// 0): it records the cumulative total *before* any code has been
	// decoded, not a genuine member, so unlike every other anchor its
	// Value cannot be trusted as a match on its own.
	sentinel := true
	if a, ok := r.index.floor(target); ok {
		running, bitPos = a.Value, a.BitOffset
		sentinel = running == 0 && bitPos == 0
	}
	if running == target && !sentinel {
		return true
	}

	br := bitio.NewReader(r.payload)
	br.SeekBits(bitPos)
	for {
		if br.BitPosition() >= br.Len() {
			return false
		}
		gap, err := rice.Decode(br, r.header.P, r.width)
		if err != nil {
			return false
		}
		running += gap
		if running == target {
			return true
		}
		if running > target {
			return false
		}
	}
}
