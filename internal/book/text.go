package book

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"
)

const (
	chapterNumberPattern = `(?:\d{1,4}|[ivxlcdm]{1,9}|one|two|three|four|five|six|seven|eight|nine|ten|eleven|twelve|thirteen|fourteen|fifteen|sixteen|seventeen|eighteen|nineteen|twenty(?:-(?:one|two|three|four|five|six|seven|eight|nine))?|thirty|forty|fifty)`
	headingTailPattern   = `(?:\s*[:.\-—–]\s*\S.{0,50}|\s*\.?)?`
)

var (
	markdownHeading = regexp.MustCompile(`^(#{1,2})\s+(.+?)\s*#*\s*$`)

	// chapterHeadingLine recognises the heading conventions plain-text
	// books use: "CHAPTER VII", "Chapter 3: The Visit", "Part Two",
	// "Prologue", and so on. Matched against a single trimmed line that
	// follows a blank line. The chapter word must be followed by a digit,
	// roman numeral, or spelled number so prose sentences that happen to
	// start with "Part" or "Book" do not split the text.
	chapterHeadingLine = regexp.MustCompile(`(?i)^(?:(?:chapter|part|book)\s+` + chapterNumberPattern + headingTailPattern + `|(?:prologue|epilogue|introduction|preface|foreword|afterword|interlude)` + headingTailPattern + `)$`)

	markdownImage     = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	markdownLink      = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	markdownEmphasis  = regexp.MustCompile(`\*{1,3}([^*\n]+)\*{1,3}`)
	markdownUnderline = regexp.MustCompile(`(^|[^\w])_{1,3}([^_\n]+)_{1,3}`)
	markdownCode      = regexp.MustCompile("`([^`\n]+)`")
	markdownHeadMark  = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	markdownRule      = regexp.MustCompile(`(?m)^[ \t]*(?:[-*_][ \t]*){3,}$`)
	markdownQuote     = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	markdownBullet    = regexp.MustCompile(`(?m)^[ \t]*(?:[-*+]|\d+[.)])[ \t]+`)
)

// section is a chapter candidate produced by the splitters before
// normalization decides whether it carries any narration text.
type section struct {
	title string
	body  string
}

// LoadText reads a plain-text or Markdown book. Markdown level-one and
// level-two headings become chapter boundaries; plain text falls back to
// recognising conventional "Chapter N" heading lines. Input with no
// recognisable structure loads as a single chapter.
func LoadText(name string) (*Book, error) {
	raw, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read book: %w", err)
	}
	text := normalizeSource(raw)

	var sections []section
	if isMarkdownExt(name) {
		sections = splitMarkdownChapters(text)
		for i := range sections {
			sections[i].body = stripMarkdownInline(sections[i].body)
		}
	} else {
		sections = splitHeadingChapters(text)
	}

	bk := &Book{Title: fallbackTitle(name)}
	for _, sec := range sections {
		body := normalizeText(sec.body)
		if body == "" {
			continue
		}
		title := collapseSpace(sec.title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", len(bk.Chapters)+1)
		}
		bk.Chapters = append(bk.Chapters, Chapter{Title: title, Text: body})
	}
	if len(bk.Chapters) == 0 {
		return nil, errNoChapters
	}
	return bk, nil
}

func isMarkdownExt(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".md") || strings.HasSuffix(lower, ".markdown")
}

// normalizeSource strips the UTF-8 BOM, unifies line endings, replaces
// invalid byte sequences, and blanks whitespace-only lines so paragraph
// detection sees clean breaks.
func normalizeSource(raw []byte) string {
	text := string(raw)
	text = strings.TrimPrefix(text, "\uFEFF")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			lines[i] = ""
		}
	}
	return strings.Join(lines, "\n")
}

func splitMarkdownChapters(text string) []section {
	var sections []section
	current := section{}
	var body strings.Builder
	flush := func() {
		current.body = body.String()
		sections = appendSection(sections, current)
		body.Reset()
	}

	inFence := false
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if inFence {
			// Code blocks are not narration.
			continue
		}
		if m := markdownHeading.FindStringSubmatch(line); m != nil {
			flush()
			current = section{title: m[2]}
			body.WriteString(m[2])
			body.WriteString("\n\n")
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
	}
	flush()
	return sections
}

func splitHeadingChapters(text string) []section {
	var sections []section
	current := section{}
	var body strings.Builder
	flush := func() {
		current.body = body.String()
		sections = appendSection(sections, current)
		body.Reset()
	}

	prevBlank := true
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if prevBlank && trimmed != "" && len(trimmed) <= 80 && chapterHeadingLine.MatchString(trimmed) {
			flush()
			current = section{title: trimmed}
			body.WriteString(trimmed)
			body.WriteString("\n\n")
			prevBlank = false
			continue
		}
		body.WriteString(line)
		body.WriteString("\n")
		prevBlank = trimmed == ""
	}
	flush()
	return sections
}

func appendSection(sections []section, sec section) []section {
	if strings.TrimSpace(sec.body) == "" && sec.title == "" {
		return sections
	}
	return append(sections, sec)
}

func stripMarkdownInline(body string) string {
	body = markdownImage.ReplaceAllString(body, "$1")
	body = markdownLink.ReplaceAllString(body, "$1")
	body = markdownEmphasis.ReplaceAllString(body, "$1")
	body = markdownUnderline.ReplaceAllString(body, "$1$2")
	body = markdownCode.ReplaceAllString(body, "$1")
	body = markdownHeadMark.ReplaceAllString(body, "")
	body = markdownRule.ReplaceAllString(body, "")
	body = markdownQuote.ReplaceAllString(body, "")
	body = markdownBullet.ReplaceAllString(body, "")
	return body
}
