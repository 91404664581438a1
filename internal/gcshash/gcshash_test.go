package gcshash

import "testing"

func TestDeterministic(t *testing.T) {
	for _, id := range []ID{SHA1Trunc64, SipHash24} {
		a := Sum64(id, []byte("hello"))
		b := Sum64(id, []byte("hello"))
		if a != b {
			t.Fatalf("%s: Sum64 not deterministic: %d != %d", id, a, b)
		}
	}
}

func TestDistinctInputsLikelyDistinct(t *testing.T) {
	for _, id := range []ID{SHA1Trunc64, SipHash24} {
		a := Sum64(id, []byte("a"))
		b := Sum64(id, []byte("b"))
		if a == b {
			t.Fatalf("%s: distinct inputs hashed to the same value (suspicious, not impossible)", id)
		}
	}
}

func TestBucketRange(t *testing.T) {
	const n = 997
	for i := 0; i < 10000; i++ {
		item := []byte{byte(i), byte(i >> 8)}
		v := Bucket(SipHash24, item, n)
		if v >= n {
			t.Fatalf("bucket %d out of range [0, %d)", v, n)
		}
	}
}

func TestValid(t *testing.T) {
	if !SHA1Trunc64.Valid() || !SipHash24.Valid() {
		t.Fatal("expected known identities to be valid")
	}
	if ID(2).Valid() {
		t.Fatal("expected unknown identity to be invalid")
	}
}

func TestBucketPanicsOnUnknownID(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for unknown hash id")
		}
	}()
	Bucket(ID(99), []byte("x"), 10)
}
