package book

import (
	"encoding/json"
	"slices"
	"strings"
)

// PlanVersion identifies the chunk plan schema written by the planner.
const PlanVersion = 1

// Plan captures the chunk layout shared between the planning, synthesis,
// export, and organizing stages. It is persisted on the queue item so
// later stages and API clients can reconstruct chapter structure without
// reloading the source book.
type Plan struct {
	Version  int           `json:"version"`
	Title    string        `json:"title"`
	Author   string        `json:"author,omitempty"`
	Language string        `json:"language,omitempty"`
	Voice    string        `json:"voice"`
	MaxWords int           `json:"max_words"`
	MaxChars int           `json:"max_chars"`
	Chapters []ChapterPlan `json:"chapters,omitempty"`
}

// ChapterPlan describes one chapter and its chunk sequence. Index is the
// chapter's one-based position in the book.
type ChapterPlan struct {
	Index  int         `json:"index"`
	Title  string      `json:"title"`
	Chunks []ChunkPlan `json:"chunks,omitempty"`
}

// ChunkPlan is a single synthesis unit. Index is the chunk's zero-based
// position across the whole book; positions within a chapter follow
// slice order.
type ChunkPlan struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
	Words int    `json:"words"`
	Chars int    `json:"chars"`
}

// ParsePlan loads a chunk plan from JSON, returning an empty plan on
// blank input.
func ParsePlan(raw string) (Plan, error) {
	var plan Plan
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return plan, nil
	}
	if err := json.Unmarshal([]byte(raw), &plan); err != nil {
		return Plan{}, err
	}
	plan.Chapters = slices.Clone(plan.Chapters)
	for idx := range plan.Chapters {
		plan.Chapters[idx].Chunks = slices.Clone(plan.Chapters[idx].Chunks)
	}
	return plan, nil
}

// Encode serialises the plan to JSON.
func (p Plan) Encode() (string, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ChunkCount returns the number of chunks across all chapters.
func (p Plan) ChunkCount() int {
	total := 0
	for _, ch := range p.Chapters {
		total += len(ch.Chunks)
	}
	return total
}

// WordCount returns the number of words across all chunks.
func (p Plan) WordCount() int {
	total := 0
	for _, ch := range p.Chapters {
		for _, chunk := range ch.Chunks {
			total += chunk.Words
		}
	}
	return total
}

// ChapterByIndex returns a pointer to the chapter at the given one-based
// book position.
func (p *Plan) ChapterByIndex(index int) *ChapterPlan {
	if p == nil {
		return nil
	}
	for idx := range p.Chapters {
		if p.Chapters[idx].Index == index {
			return &p.Chapters[idx]
		}
	}
	return nil
}

// AllChunks returns every chunk in book order.
func (p Plan) AllChunks() []ChunkPlan {
	out := make([]ChunkPlan, 0, p.ChunkCount())
	for _, ch := range p.Chapters {
		out = append(out, ch.Chunks...)
	}
	return out
}
