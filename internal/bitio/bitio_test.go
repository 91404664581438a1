package bitio

import "testing"

func TestWriteReadBitsRoundTrip(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b101, 3)
	w.WriteBits(0xDEADBEEF, 32)
	w.WriteBits(0, 5)
	w.WriteBit(1)
	total := w.BitPosition()
	data := w.Flush()

	r := NewReader(data)
	v, err := r.ReadBits(3)
	if err != nil || v != 0b101 {
		t.Fatalf("got %d, %v, want 5, nil", v, err)
	}
	v, err = r.ReadBits(32)
	if err != nil || v != 0xDEADBEEF {
		t.Fatalf("got %#x, %v, want 0xDEADBEEF, nil", v, err)
	}
	v, err = r.ReadBits(5)
	if err != nil || v != 0 {
		t.Fatalf("got %d, %v, want 0, nil", v, err)
	}
	v, err = r.ReadBits(1)
	if err != nil || v != 1 {
		t.Fatalf("got %d, %v, want 1, nil", v, err)
	}
	if total != 3+32+5+1 {
		t.Fatalf("bit position mismatch: %d", total)
	}
}

func TestReadBitsTruncated(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b11, 2)
	data := w.Flush()

	r := NewReader(data)
	// The flushed byte holds 8 readable bits (2 written, 6 padding), so
	// asking for 9 runs past the end of the buffer.
	if _, err := r.ReadBits(9); err != ErrTruncated {
		t.Fatalf("expected ErrTruncated, got %v", err)
	}
}

func TestReadUnaryAcrossBytes(t *testing.T) {
	w := NewWriter()
	// 20 ones then a zero: spans more than two bytes.
	for i := 0; i < 20; i++ {
		w.WriteBit(1)
	}
	w.WriteBit(0)
	w.WriteBits(0b101, 3)
	data := w.Flush()

	r := NewReader(data)
	q, err := r.ReadUnary()
	if err != nil || q != 20 {
		t.Fatalf("got %d, %v, want 20, nil", q, err)
	}
	rem, err := r.ReadBits(3)
	if err != nil || rem != 0b101 {
		t.Fatalf("got %d, %v, want 5, nil", rem, err)
	}
}

func TestReadUnaryTerminatedByPadding(t *testing.T) {
	w := NewWriter()
	w.WriteBit(1)
	w.WriteBit(1)
	data := w.Flush() // 0b11000000: two ones, then zero padding -> not truncated
	r := NewReader(data)
	// Two explicit ones, then the first padding zero bit terminates the
	// run well inside the buffer.
	q, err := r.ReadUnary()
	if err != nil || q != 2 {
		t.Fatalf("got %d, %v, want 2, nil", q, err)
	}
}

func TestSeekBits(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0xAB, 8)
	w.WriteBits(0xCD, 8)
	data := w.Flush()

	r := NewReader(data)
	r.SeekBits(8)
	v, err := r.ReadBits(8)
	if err != nil || v != 0xCD {
		t.Fatalf("got %#x, %v, want 0xCD, nil", v, err)
	}

	r.SeekBits(0)
	v, err = r.ReadBits(16)
	if err != nil || v != 0xABCD {
		t.Fatalf("got %#x, %v, want 0xABCD, nil", v, err)
	}
}

func TestBitPositionBeforeFlushExcludesPadding(t *testing.T) {
	w := NewWriter()
	w.WriteBits(0b1, 1)
	unpadded := w.BitPosition()
	data := w.Flush()
	if unpadded != 1 {
		t.Fatalf("unpadded bit count = %d, want 1", unpadded)
	}
	if len(data) != 1 {
		t.Fatalf("flushed data length = %d, want 1 (zero-padded)", len(data))
	}
}
