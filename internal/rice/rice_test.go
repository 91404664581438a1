package rice

import (
	"testing"

	"github.com/rpcpool/gcstool/internal/bitio"
)

func TestRemainderWidth(t *testing.T) {
	cases := []struct {
		p    uint64
		want uint8
	}{
		{2, 1},
		{3, 2},
		{4, 2},
		{8, 3},
		{1000, 10},
		{1024, 10},
	}
	for _, c := range cases {
		if got := RemainderWidth(c.p); got != c.want {
			t.Errorf("RemainderWidth(%d) = %d, want %d", c.p, got, c.want)
		}
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	const p = 1000
	width := RemainderWidth(p)
	gaps := []uint64{0, 1, 5, 999, 1000, 1001, 5000, 123456}

	w := bitio.NewWriter()
	for _, g := range gaps {
		Encode(w, g, p, width)
	}
	data := w.Flush()

	r := bitio.NewReader(data)
	for _, want := range gaps {
		got, err := Decode(r, p, width)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got != want {
			t.Fatalf("Decode() = %d, want %d", got, want)
		}
	}
}

func TestEncodeZeroGap(t *testing.T) {
	const p = 64
	width := RemainderWidth(p)
	w := bitio.NewWriter()
	Encode(w, 0, p, width)
	if got := w.BitPosition(); got != uint64(width)+1 {
		t.Fatalf("bit length for zero gap = %d, want %d", got, width+1)
	}
}

func TestLargeUnaryRun(t *testing.T) {
	const p = 64
	width := RemainderWidth(p)
	// A gap of 5*p forces a unary run of 5 ones, and stacking several
	// such gaps forces the run to straddle byte boundaries.
	gaps := []uint64{5 * p, 5 * p, 5 * p, 5*p + 7}

	w := bitio.NewWriter()
	for _, g := range gaps {
		Encode(w, g, p, width)
	}
	data := w.Flush()
	if len(data) < 3 {
		t.Fatalf("expected the run to span several bytes, got %d bytes", len(data))
	}

	r := bitio.NewReader(data)
	for _, want := range gaps {
		got, err := Decode(r, p, width)
		if err != nil || got != want {
			t.Fatalf("Decode() = %d, %v, want %d, nil", got, err, want)
		}
	}
}

func TestRemainderWidthPanicsBelowTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for p < 2")
		}
	}()
	RemainderWidth(1)
}
