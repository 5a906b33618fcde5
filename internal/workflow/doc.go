// Package workflow advances queue items through the configured processing
// stages.
//
// The Manager polls the queue, reclaims stale work via heartbeats, and feeds
// items into registered stage handlers (planner, synthesizer, exporter,
// organizer) while capturing progress and failure metadata. It also aggregates
// queue stats, calls stage health checks, and emits queue-level notifications
// when processing starts or completes.
//
// The workflow runs two independent lanes: intake (parsing and chunk planning)
// and synthesis (narration, export, library organization). Each lane polls for
// items matching its statuses and processes them independently, so planning of
// book B can proceed while book A occupies the speech engine.
//
// Add new lifecycle stages by extending StageSet, updating the queue status
// enums, and teaching the manager how to transition items; this package is the
// authoritative home for that coordination logic.
package workflow
