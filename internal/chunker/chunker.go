// Package chunker splits chapter text into bounded synthesis units. The
// speech model loses coherence on long inputs, so each chunk must stay
// within both a word budget and a character budget; the splitter prefers
// sentence boundaries, falls back to clause boundaries, and hard-splits
// at word boundaries only when a single clause still exceeds the limits.
//
// Chunk text is cut as exact substrings of the input: joining all chunks
// with single spaces reproduces the chapter text with only the
// whitespace at chunk boundaries collapsed. Splitting is total — no
// input produces an error.
package chunker

import (
	"math"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Chunk is one bounded unit of chapter text. Index is the chunk's
// zero-based position within the chapter. Words and Chars exclude inline
// annotation markers.
type Chunk struct {
	Index int
	Text  string
	Words int
	Chars int
}

// Split cuts text into ordered chunks whose word and character counts
// stay within maxWords and maxChars. A single word longer than maxChars
// is emitted as its own over-long chunk rather than corrupted; a
// non-positive limit disables that constraint. Whitespace-only input
// yields no chunks.
func Split(text string, maxWords, maxChars int) []Chunk {
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return nil
	}
	if maxWords <= 0 {
		maxWords = math.MaxInt
	}
	if maxChars <= 0 {
		maxChars = math.MaxInt
	}

	c := newCounter(tokens)
	sentences := splitSentences(text, tokens)
	ranges := accumulate(c, sentences, maxWords, maxChars, func(sentence span) []span {
		clauses := splitClauses(text, tokens, sentence)
		return accumulate(c, clauses, maxWords, maxChars, func(clause span) []span {
			return accumulate(c, singles(clause), maxWords, maxChars, nil)
		})
	})

	chunks := make([]Chunk, 0, len(ranges))
	for i, r := range ranges {
		words, chars := c.count(r.start, r.end)
		chunks = append(chunks, Chunk{
			Index: i,
			Text:  text[tokens[r.start].startByte:tokens[r.end-1].endByte],
			Words: words,
			Chars: chars,
		})
	}
	return chunks
}

// span is a half-open token index range.
type span struct {
	start, end int
}

// accumulate greedily merges consecutive parts into ranges that satisfy
// both limits. A part that alone exceeds a limit is handed to oversize
// for finer splitting; a nil oversize emits the part as-is, which is how
// an unsplittable over-long word escapes the character limit.
func accumulate(c *counter, parts []span, maxWords, maxChars int, oversize func(span) []span) []span {
	var out []span
	var cur span
	hasCur := false
	flush := func() {
		if hasCur {
			out = append(out, cur)
			hasCur = false
		}
	}
	for _, part := range parts {
		words, chars := c.count(part.start, part.end)
		if words > maxWords || chars > maxChars {
			flush()
			if oversize != nil {
				out = append(out, oversize(part)...)
			} else {
				out = append(out, part)
			}
			continue
		}
		if !hasCur {
			cur, hasCur = part, true
			continue
		}
		if mergedWords, mergedChars := c.count(cur.start, part.end); mergedWords > maxWords || mergedChars > maxChars {
			flush()
			cur, hasCur = part, true
		} else {
			cur.end = part.end
		}
	}
	flush()
	return out
}

func singles(s span) []span {
	out := make([]span, 0, s.end-s.start)
	for i := s.start; i < s.end; i++ {
		out = append(out, span{start: i, end: i + 1})
	}
	return out
}

// sentenceClosers are quote and bracket runes that may trail terminal
// punctuation.
const sentenceClosers = "\"')]»”’"

// abbreviations that end with a period without ending a sentence.
var abbreviations = map[string]struct{}{
	"mr.": {}, "mrs.": {}, "ms.": {}, "dr.": {}, "prof.": {}, "rev.": {},
	"st.": {}, "mt.": {}, "ft.": {}, "jr.": {}, "sr.": {}, "vs.": {},
	"etc.": {}, "e.g.": {}, "i.e.": {}, "cf.": {}, "al.": {},
	"no.": {}, "vol.": {}, "ch.": {}, "pp.": {}, "p.": {},
	"gen.": {}, "col.": {}, "lt.": {}, "sgt.": {}, "capt.": {}, "cpl.": {},
}

func splitSentences(text string, tokens []token) []span {
	var out []span
	start := 0
	for i := range tokens {
		if sentenceEnd(text, tokens, i) {
			out = append(out, span{start: start, end: i + 1})
			start = i + 1
		}
	}
	if start < len(tokens) {
		out = append(out, span{start: start, end: len(tokens)})
	}
	return out
}

// sentenceEnd reports whether the token at i closes a sentence. The
// rules are deliberately conservative: a wrong merge or split only
// shifts chunk boundaries, never loses text.
func sentenceEnd(text string, tokens []token, i int) bool {
	raw := text[tokens[i].startByte:tokens[i].endByte]
	core := strings.TrimRight(raw, sentenceClosers)
	if core == "" {
		core = raw
	}
	last, _ := utf8.DecodeLastRuneInString(core)
	switch last {
	case '!', '?', '…', '。', '！', '？':
	case '.':
		if _, ok := abbreviations[strings.ToLower(core)]; ok {
			return false
		}
		if isInitial(core) && i+1 < len(tokens) {
			return false
		}
	default:
		return false
	}
	// A following lowercase word means the sentence continues: dialogue
	// attribution after a quoted exclamation, or a mid-sentence ellipsis.
	if i+1 < len(tokens) {
		next, _ := utf8.DecodeRuneInString(text[tokens[i+1].startByte:])
		if unicode.IsLower(next) {
			return false
		}
	}
	return true
}

// isInitial matches single-letter name initials like the J. in
// "J. R. R. Tolkien". I and A are excluded because they are far more
// often the last word of a sentence.
func isInitial(core string) bool {
	if utf8.RuneCountInString(core) != 2 {
		return false
	}
	first, _ := utf8.DecodeRuneInString(core)
	return unicode.IsUpper(first) && first != 'I' && first != 'A'
}

func splitClauses(text string, tokens []token, s span) []span {
	var out []span
	start := s.start
	for i := s.start; i < s.end; i++ {
		if clauseEnd(text, tokens, i) {
			out = append(out, span{start: start, end: i + 1})
			start = i + 1
		}
	}
	if start < s.end {
		out = append(out, span{start: start, end: s.end})
	}
	return out
}

func clauseEnd(text string, tokens []token, i int) bool {
	raw := text[tokens[i].startByte:tokens[i].endByte]
	core := strings.TrimRight(raw, sentenceClosers)
	if core == "" {
		core = raw
	}
	last, _ := utf8.DecodeLastRuneInString(core)
	return last == ',' || last == ';' || last == '，' || last == '；'
}
