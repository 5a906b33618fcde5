package chunker

import (
	"fmt"
	"reflect"
	"strings"
	"testing"
)

func chunkTexts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, ch := range chunks {
		out[i] = ch.Text
	}
	return out
}

func TestSplitPreservesWordSequence(t *testing.T) {
	texts := []string{
		"One sentence only.",
		"First sentence here. Second sentence follows! Third asks a question? Fourth trails off…",
		"Hard-wrapped lines\nbelong to one paragraph.\n\nA second paragraph starts after a blank line.",
		`"Stop!" he shouted. Nobody moved, though the alarm kept ringing; the hall stayed still.`,
		"Mr. Smith met Dr. Jones at noon. They argued about the economy, then parted.",
		"A voice said <laugh> that it was over <sigh> and left.",
	}
	for _, maxWords := range []int{3, 7, 70} {
		for _, text := range texts {
			chunks := Split(text, maxWords, 350)
			got := strings.Fields(strings.Join(chunkTexts(chunks), " "))
			want := strings.Fields(text)
			if !reflect.DeepEqual(got, want) {
				t.Fatalf("maxWords=%d word sequence changed for %q:\n got %v\nwant %v", maxWords, text, got, want)
			}
		}
	}
}

func TestSplitRespectsLimits(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 200; i++ {
		fmt.Fprintf(&b, "word%d", i)
		switch {
		case i%17 == 16:
			b.WriteString(". ")
		case i%5 == 4:
			b.WriteString(", ")
		default:
			b.WriteString(" ")
		}
	}
	text := strings.TrimSpace(b.String())

	for _, maxWords := range []int{5, 12, 70} {
		for _, maxChars := range []int{40, 120, 350} {
			chunks := Split(text, maxWords, maxChars)
			if len(chunks) == 0 {
				t.Fatalf("maxWords=%d maxChars=%d produced no chunks", maxWords, maxChars)
			}
			for _, ch := range chunks {
				if ch.Index >= len(chunks) {
					t.Fatalf("chunk index %d out of range", ch.Index)
				}
				if ch.Words > maxWords {
					t.Fatalf("maxWords=%d maxChars=%d chunk %d has %d words: %q", maxWords, maxChars, ch.Index, ch.Words, ch.Text)
				}
				if ch.Chars > maxChars {
					// Only a single unsplittable word may exceed the
					// character limit, and this corpus has none.
					t.Fatalf("maxWords=%d maxChars=%d chunk %d has %d chars: %q", maxWords, maxChars, ch.Index, ch.Chars, ch.Text)
				}
			}
		}
	}
}

func TestSplitOversizedSentenceScenario(t *testing.T) {
	var a strings.Builder
	for i := 0; i < 30; i++ {
		if i > 0 {
			a.WriteString(" ")
		}
		fmt.Fprintf(&a, "Alpha%d", i)
	}
	a.WriteString(".")

	var bb strings.Builder
	for i := 0; i < 80; i++ {
		if i > 0 {
			bb.WriteString(" ")
		}
		fmt.Fprintf(&bb, "Bravo%d", i)
		if i%10 == 9 && i < 79 {
			bb.WriteString(",")
		}
	}
	bb.WriteString(".")

	text := a.String() + " " + bb.String()
	chunks := Split(text, 70, 300)

	if len(chunks) < 3 {
		t.Fatalf("expected the 80-word sentence to split, got %d chunks: %v", len(chunks), chunkTexts(chunks))
	}
	if chunks[0].Words != 30 {
		t.Fatalf("first chunk should hold the 30-word sentence, has %d words", chunks[0].Words)
	}
	totalWords := 0
	for i, ch := range chunks {
		if ch.Index != i {
			t.Fatalf("chunk %d has index %d", i, ch.Index)
		}
		if ch.Words > 70 {
			t.Fatalf("chunk %d has %d words", i, ch.Words)
		}
		if ch.Chars > 300 {
			t.Fatalf("chunk %d has %d chars", i, ch.Chars)
		}
		totalWords += ch.Words
	}
	if totalWords != 110 {
		t.Fatalf("total words = %d, want 110", totalWords)
	}
}

func TestSplitGroupsWholeSentences(t *testing.T) {
	text := "One two. Three four. Five six. Seven eight."
	chunks := Split(text, 4, 350)
	want := []string{"One two. Three four.", "Five six. Seven eight."}
	if got := chunkTexts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %q, want %q", got, want)
	}
}

func TestSplitFallsBackToClauses(t *testing.T) {
	text := "aa bb cc, dd ee ff; gg hh ii."
	chunks := Split(text, 3, 350)
	want := []string{"aa bb cc,", "dd ee ff;", "gg hh ii."}
	if got := chunkTexts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %q, want %q", got, want)
	}
}

func TestSplitKeepsAbbreviationsJoined(t *testing.T) {
	text := "Dr. Jones said hello. She left."
	chunks := Split(text, 2, 350)
	want := []string{"Dr. Jones", "said hello.", "She left."}
	if got := chunkTexts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %q, want %q", got, want)
	}
}

func TestSplitRespectsCharLimit(t *testing.T) {
	sentence := "This sentence is thirty chars."
	text := strings.TrimSpace(strings.Repeat(sentence+" ", 4))
	chunks := Split(text, 100, 61)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d: %q", len(chunks), chunkTexts(chunks))
	}
	for i, ch := range chunks {
		if ch.Chars != 61 {
			t.Fatalf("chunk %d chars = %d, want 61", i, ch.Chars)
		}
		if ch.Words != 10 {
			t.Fatalf("chunk %d words = %d, want 10", i, ch.Words)
		}
	}
}

func TestSplitExcludesMarkersFromCounts(t *testing.T) {
	chunks := Split("Hello <laugh> world.", 70, 350)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Words != 2 {
		t.Fatalf("words = %d, want 2", chunks[0].Words)
	}
	if chunks[0].Chars != 13 {
		t.Fatalf("chars = %d, want 13", chunks[0].Chars)
	}

	// A marker glued to punctuation still hides the marker runes.
	chunks = Split("Hello <laugh>, world.", 70, 350)
	if chunks[0].Words != 3 {
		t.Fatalf("words = %d, want 3", chunks[0].Words)
	}
	if chunks[0].Chars != 14 {
		t.Fatalf("chars = %d, want 14", chunks[0].Chars)
	}
}

func TestSplitKeepsMarkersAtomic(t *testing.T) {
	text := "alpha <laugh> beta gamma <sigh> delta epsilon zeta"
	chunks := Split(text, 2, 350)
	want := []string{"alpha <laugh> beta", "gamma <sigh> delta", "epsilon zeta"}
	if got := chunkTexts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %q, want %q", got, want)
	}
	for _, ch := range chunks {
		if strings.Count(ch.Text, "<") != strings.Count(ch.Text, ">") {
			t.Fatalf("marker split across chunks: %q", ch.Text)
		}
	}
}

func TestSplitOverlongWordEmittedAlone(t *testing.T) {
	long := strings.Repeat("x", 400)
	text := "Short intro. " + long + " short tail."
	chunks := Split(text, 70, 350)
	want := []string{"Short intro.", long, "short tail."}
	if got := chunkTexts(chunks); !reflect.DeepEqual(got, want) {
		t.Fatalf("chunks = %q, want %q", got, chunkTexts(chunks))
	}
	if chunks[1].Chars != 400 {
		t.Fatalf("overlong chunk chars = %d, want 400", chunks[1].Chars)
	}
}

func TestSplitEmptyInput(t *testing.T) {
	if chunks := Split("", 70, 350); len(chunks) != 0 {
		t.Fatalf("expected no chunks for empty input, got %d", len(chunks))
	}
	if chunks := Split("  \n\t  ", 70, 350); len(chunks) != 0 {
		t.Fatalf("expected no chunks for whitespace input, got %d", len(chunks))
	}
}

func TestSplitPreservesInteriorWhitespace(t *testing.T) {
	text := "Para one ends here.\n\nPara two starts now."
	chunks := Split(text, 70, 350)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text {
		t.Fatalf("text altered:\n got %q\nwant %q", chunks[0].Text, text)
	}
	if chunks[0].Chars != 41 {
		t.Fatalf("chars = %d, want 41", chunks[0].Chars)
	}
}
