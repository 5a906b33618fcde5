// Package snac converts the speech model's flat token stream into the
// three-level hierarchical codes the waveform decoder consumes, and back.
//
// The model emits audio as runs of seven consecutive tokens per frame.
// Each slot within a frame carries one code value, offset into a shared
// token id space so that slot j of any frame occupies the id range
// [base+j*alphabet, base+(j+1)*alphabet). The slot layout interleaves the
// three levels:
//
//	slot 0 -> L1[i]
//	slot 1 -> L2[2i]
//	slot 2 -> L3[4i]
//	slot 3 -> L3[4i+1]
//	slot 4 -> L2[2i+1]
//	slot 5 -> L3[4i+2]
//	slot 6 -> L3[4i+3]
//
// so one L1 code governs two L2 codes and four L3 codes.
package snac

import "fmt"

// FrameSize is the number of consecutive tokens that form one frame.
const FrameSize = 7

// Code holds the three coupled code streams for a chunk of audio.
// A well-formed Code has len(L2) == 2*len(L1) and len(L3) == 4*len(L1),
// with every value in [0, alphabet).
type Code struct {
	L1 []int
	L2 []int
	L3 []int
}

// Frames returns the number of complete frames the code represents.
func (c Code) Frames() int {
	return len(c.L1)
}

// Empty reports whether the code carries no frames.
func (c Code) Empty() bool {
	return len(c.L1) == 0
}

// Unpack converts a flat token stream into hierarchical codes. Tokens
// outside [base, base+7*alphabet) are excluded before frame assembly and
// returned as the dropped count; a large dropped count means the model
// degenerated into emitting something other than audio codes. A trailing
// partial frame is discarded, not padded.
func Unpack(tokens []int, base, alphabet int) (Code, int) {
	if alphabet <= 0 {
		return Code{}, len(tokens)
	}
	limit := base + FrameSize*alphabet

	valid := make([]int, 0, len(tokens))
	for _, tok := range tokens {
		if tok >= base && tok < limit {
			valid = append(valid, tok)
		}
	}
	dropped := len(tokens) - len(valid)

	frames := len(valid) / FrameSize
	code := Code{
		L1: make([]int, 0, frames),
		L2: make([]int, 0, 2*frames),
		L3: make([]int, 0, 4*frames),
	}
	for i := 0; i < frames; i++ {
		f := valid[i*FrameSize : (i+1)*FrameSize]
		code.L1 = append(code.L1, (f[0]-base)%alphabet)
		code.L2 = append(code.L2, (f[1]-base)%alphabet, (f[4]-base)%alphabet)
		code.L3 = append(code.L3, (f[2]-base)%alphabet, (f[3]-base)%alphabet, (f[5]-base)%alphabet, (f[6]-base)%alphabet)
	}
	return code, dropped
}

// Pack is the inverse of Unpack: it flattens hierarchical codes into the
// frame token stream, placing each value at its slot's canonical id
// offset. It exists for round-trip verification and for the stub engine
// used in development and tests.
func Pack(code Code, base, alphabet int) ([]int, error) {
	n := len(code.L1)
	if len(code.L2) != 2*n || len(code.L3) != 4*n {
		return nil, fmt.Errorf("mismatched code lengths: L1=%d L2=%d L3=%d", n, len(code.L2), len(code.L3))
	}
	if alphabet <= 0 {
		return nil, fmt.Errorf("invalid alphabet size %d", alphabet)
	}
	checkValue := func(level string, v int) error {
		if v < 0 || v >= alphabet {
			return fmt.Errorf("%s value %d outside [0, %d)", level, v, alphabet)
		}
		return nil
	}

	tokens := make([]int, 0, n*FrameSize)
	for i := 0; i < n; i++ {
		slots := [FrameSize]int{
			code.L1[i],
			code.L2[2*i],
			code.L3[4*i],
			code.L3[4*i+1],
			code.L2[2*i+1],
			code.L3[4*i+2],
			code.L3[4*i+3],
		}
		levels := [FrameSize]string{"L1", "L2", "L3", "L3", "L2", "L3", "L3"}
		for slot, v := range slots {
			if err := checkValue(levels[slot], v); err != nil {
				return nil, fmt.Errorf("frame %d: %w", i, err)
			}
			tokens = append(tokens, base+slot*alphabet+v)
		}
	}
	return tokens, nil
}
