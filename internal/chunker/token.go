package chunker

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// markerPattern matches inline annotation tags like <laugh> or <sigh_2>
// that steer the speech model's delivery. They ride along inside chunk
// text but are invisible to the word and character limits.
var markerPattern = regexp.MustCompile(`<[A-Za-z][A-Za-z0-9_]*>`)

// token is a maximal run of non-whitespace text, addressed by byte and
// rune offsets into the source so chunk text can be cut as exact
// substrings.
type token struct {
	startByte int
	endByte   int
	startRune int
	endRune   int
	words     int // 0 for a standalone annotation marker, else 1
	hidden    int // runes of embedded annotation markers
}

func tokenize(text string) []token {
	var tokens []token
	byteIdx, runeIdx := 0, 0
	for byteIdx < len(text) {
		r, size := utf8.DecodeRuneInString(text[byteIdx:])
		if unicode.IsSpace(r) {
			byteIdx += size
			runeIdx++
			continue
		}
		tok := token{startByte: byteIdx, startRune: runeIdx}
		for byteIdx < len(text) {
			r, size := utf8.DecodeRuneInString(text[byteIdx:])
			if unicode.IsSpace(r) {
				break
			}
			byteIdx += size
			runeIdx++
		}
		tok.endByte = byteIdx
		tok.endRune = runeIdx
		raw := text[tok.startByte:tok.endByte]
		tok.hidden = markerRunes(raw)
		if isMarkerOnly(raw) {
			tok.words = 0
		} else {
			tok.words = 1
		}
		tokens = append(tokens, tok)
	}
	return tokens
}

func markerRunes(s string) int {
	if !strings.Contains(s, "<") {
		return 0
	}
	total := 0
	for _, m := range markerPattern.FindAllString(s, -1) {
		total += utf8.RuneCountInString(m)
	}
	return total
}

func isMarkerOnly(s string) bool {
	loc := markerPattern.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

// counter answers word and character counts for token spans in constant
// time via prefix sums.
type counter struct {
	tokens []token
	words  []int
	hidden []int
}

func newCounter(tokens []token) *counter {
	words := make([]int, len(tokens)+1)
	hidden := make([]int, len(tokens)+1)
	for i, tok := range tokens {
		words[i+1] = words[i] + tok.words
		hidden[i+1] = hidden[i] + tok.hidden
	}
	return &counter{tokens: tokens, words: words, hidden: hidden}
}

// count returns the word and character counts for the span covering
// tokens [a, b). Characters are measured over the original text span, so
// interior whitespace counts exactly as it will appear in the chunk;
// annotation marker runes are excluded from both counts.
func (c *counter) count(a, b int) (words, chars int) {
	if b <= a {
		return 0, 0
	}
	words = c.words[b] - c.words[a]
	chars = (c.tokens[b-1].endRune - c.tokens[a].startRune) - (c.hidden[b] - c.hidden[a])
	return words, chars
}
