package snac

import (
	"reflect"
	"testing"
)

const (
	testBase     = 128266
	testAlphabet = 4096
)

// testCode builds deterministic code streams with n frames.
func testCode(n int) Code {
	code := Code{
		L1: make([]int, n),
		L2: make([]int, 2*n),
		L3: make([]int, 4*n),
	}
	for i := range code.L1 {
		code.L1[i] = (i*37 + 11) % testAlphabet
	}
	for i := range code.L2 {
		code.L2[i] = (i*101 + 7) % testAlphabet
	}
	for i := range code.L3 {
		code.L3[i] = (i*211 + 3) % testAlphabet
	}
	return code
}

func TestPackUnpackRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 2, 5, 64} {
		code := testCode(n)
		tokens, err := Pack(code, testBase, testAlphabet)
		if err != nil {
			t.Fatalf("n=%d pack: %v", n, err)
		}
		if len(tokens) != n*FrameSize {
			t.Fatalf("n=%d token count = %d, want %d", n, len(tokens), n*FrameSize)
		}
		decoded, dropped := Unpack(tokens, testBase, testAlphabet)
		if dropped != 0 {
			t.Fatalf("n=%d dropped %d tokens from a clean stream", n, dropped)
		}
		if !reflect.DeepEqual(code, decoded) {
			t.Fatalf("n=%d round trip mismatch:\n got %+v\nwant %+v", n, decoded, code)
		}
	}
}

func TestUnpackSlotMapping(t *testing.T) {
	// One frame with a distinct value per slot, each at its slot offset.
	tokens := []int{
		testBase + 0*testAlphabet + 10,
		testBase + 1*testAlphabet + 20,
		testBase + 2*testAlphabet + 30,
		testBase + 3*testAlphabet + 40,
		testBase + 4*testAlphabet + 50,
		testBase + 5*testAlphabet + 60,
		testBase + 6*testAlphabet + 70,
	}
	code, dropped := Unpack(tokens, testBase, testAlphabet)
	if dropped != 0 {
		t.Fatalf("dropped = %d", dropped)
	}
	if !reflect.DeepEqual(code.L1, []int{10}) {
		t.Fatalf("L1 = %v", code.L1)
	}
	if !reflect.DeepEqual(code.L2, []int{20, 50}) {
		t.Fatalf("L2 = %v", code.L2)
	}
	if !reflect.DeepEqual(code.L3, []int{30, 40, 60, 70}) {
		t.Fatalf("L3 = %v", code.L3)
	}
}

func TestUnpackLengthCoupling(t *testing.T) {
	code := testCode(9)
	tokens, err := Pack(code, testBase, testAlphabet)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	decoded, _ := Unpack(tokens, testBase, testAlphabet)
	if len(decoded.L2) != 2*len(decoded.L1) || len(decoded.L3) != 4*len(decoded.L1) {
		t.Fatalf("coupling broken: L1=%d L2=%d L3=%d", len(decoded.L1), len(decoded.L2), len(decoded.L3))
	}
	if decoded.Frames() != 9 {
		t.Fatalf("Frames() = %d", decoded.Frames())
	}
}

func TestUnpackExcludesOutOfRangeTokens(t *testing.T) {
	frame, err := Pack(testCode(1), testBase, testAlphabet)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	// Interleave garbage around one valid frame: ids below base and at or
	// beyond the top of slot 6's range.
	tokens := append([]int{5, testBase - 1}, frame...)
	tokens = append(tokens, testBase+FrameSize*testAlphabet, 999999)

	code, dropped := Unpack(tokens, testBase, testAlphabet)
	if dropped != 4 {
		t.Fatalf("dropped = %d, want 4", dropped)
	}
	if code.Frames() != 1 {
		t.Fatalf("frames = %d, want 1", code.Frames())
	}
}

func TestUnpackAllTokensBelowBase(t *testing.T) {
	tokens := []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14}
	code, dropped := Unpack(tokens, testBase, testAlphabet)
	if !code.Empty() {
		t.Fatalf("expected empty code, got %d frames", code.Frames())
	}
	if len(code.L1) != 0 || len(code.L2) != 0 || len(code.L3) != 0 {
		t.Fatalf("expected empty streams: %+v", code)
	}
	if dropped != len(tokens) {
		t.Fatalf("dropped = %d, want %d", dropped, len(tokens))
	}
}

func TestUnpackDiscardsPartialFrame(t *testing.T) {
	code := testCode(2)
	tokens, err := Pack(code, testBase, testAlphabet)
	if err != nil {
		t.Fatalf("pack: %v", err)
	}
	// Truncate mid-frame: the three leftover tokens are normal truncation,
	// not an anomaly.
	truncated := tokens[:FrameSize+3]
	decoded, dropped := Unpack(truncated, testBase, testAlphabet)
	if dropped != 0 {
		t.Fatalf("dropped = %d, want 0", dropped)
	}
	if decoded.Frames() != 1 {
		t.Fatalf("frames = %d, want 1", decoded.Frames())
	}
	want := Code{L1: code.L1[:1], L2: code.L2[:2], L3: code.L3[:4]}
	if !reflect.DeepEqual(decoded, want) {
		t.Fatalf("mismatch:\n got %+v\nwant %+v", decoded, want)
	}
}

func TestUnpackEmptyInput(t *testing.T) {
	code, dropped := Unpack(nil, testBase, testAlphabet)
	if !code.Empty() || dropped != 0 {
		t.Fatalf("unexpected result: %+v dropped=%d", code, dropped)
	}
}

func TestPackRejectsMismatchedLengths(t *testing.T) {
	code := Code{L1: []int{1}, L2: []int{2}, L3: []int{3, 4, 5, 6}}
	if _, err := Pack(code, testBase, testAlphabet); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestPackRejectsOutOfRangeValues(t *testing.T) {
	code := testCode(1)
	code.L3[2] = testAlphabet
	if _, err := Pack(code, testBase, testAlphabet); err == nil {
		t.Fatal("expected error for out-of-range value")
	}
}
