// Package planner runs the chunk planning stage for queue items.
//
// It loads the book source, resolves the narrator voice, splits every chapter
// into synthesis-sized chunks, and persists the resulting plan on the queue
// item as JSON. Later stages treat that plan as the single source of truth for
// chunk text, ordering, and chapter boundaries, so the planner assigns global
// chunk indices exactly once and never renumbers them.
//
// Planning is pure CPU plus a single file read; failures are validation
// problems with the source material rather than external tool errors.
package planner
