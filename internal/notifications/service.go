package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"lector/internal/config"
)

const userAgent = "Lector/0.1.0"

// Event identifies a workflow milestone worth telling the user about.
type Event string

const (
	EventBookDetected          Event = "book_detected"
	EventPlanCompleted         Event = "plan_completed"
	EventSynthesisStarted      Event = "synthesis_started"
	EventSynthesisCompleted    Event = "synthesis_completed"
	EventExportCompleted       Event = "export_completed"
	EventOrganizationCompleted Event = "organization_completed"
	EventProcessingCompleted   Event = "processing_completed"
	EventQueueStarted          Event = "queue_started"
	EventQueueCompleted        Event = "queue_completed"
	EventReview                Event = "review"
	EventError                 Event = "error"
	EventTest                  Event = "test"
)

// Payload carries the per-event message fields. Missing keys render as
// generic placeholders rather than failing.
type Payload map[string]string

// Service is the notification surface stage handlers depend on. Publish
// never blocks the workflow on notification problems beyond the HTTP
// timeout; callers treat errors as log-and-continue.
type Service interface {
	Publish(ctx context.Context, event Event, payload Payload) error
}

// NewService builds a notification service backed by ntfy when a topic
// is configured, a noop otherwise.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dedup := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second
	return &ntfyService{
		endpoint:      topic,
		client:        &http.Client{Timeout: timeout},
		enabled:       eventToggles(cfg),
		queueMinItems: cfg.Notifications.QueueMinItems,
		dedupWindow:   dedup,
		recent:        make(map[string]time.Time),
		now:           time.Now,
	}
}

func eventToggles(cfg *config.Config) map[Event]bool {
	n := cfg.Notifications
	return map[Event]bool{
		EventBookDetected:          n.Queue,
		EventPlanCompleted:         n.Plan,
		EventSynthesisStarted:      n.Synthesis,
		EventSynthesisCompleted:    n.Synthesis,
		EventExportCompleted:       n.Export,
		EventOrganizationCompleted: n.Organization,
		EventProcessingCompleted:   n.Organization,
		EventQueueStarted:          n.Queue,
		EventQueueCompleted:        n.Queue,
		EventReview:                n.Review,
		EventError:                 n.Errors,
		EventTest:                  true,
	}
}

type message struct {
	title    string
	body     string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	enabled       map[Event]bool
	queueMinItems int
	dedupWindow   time.Duration
	now           func() time.Time

	mu     sync.Mutex
	recent map[string]time.Time
}

func (n *ntfyService) Publish(ctx context.Context, event Event, payload Payload) error {
	if !n.enabled[event] {
		return nil
	}
	if n.suppressSmallQueue(event, payload) {
		return nil
	}
	msg, ok := render(event, payload)
	if !ok {
		return nil
	}
	if n.duplicate(event, msg.body) {
		return nil
	}
	return n.send(ctx, msg)
}

// suppressSmallQueue drops queue chatter for tiny batches; a single book
// dropped in the inbox does not need start/finish bookends.
func (n *ntfyService) suppressSmallQueue(event Event, payload Payload) bool {
	if n.queueMinItems <= 0 {
		return false
	}
	var count int
	switch event {
	case EventQueueStarted:
		count = payloadInt(payload, "count")
	case EventQueueCompleted:
		count = payloadInt(payload, "processed") + payloadInt(payload, "failed")
	default:
		return false
	}
	return count < n.queueMinItems
}

func (n *ntfyService) duplicate(event Event, body string) bool {
	if n.dedupWindow <= 0 {
		return false
	}
	key := string(event) + "\n" + body
	now := n.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.recent[key]; ok && now.Sub(last) < n.dedupWindow {
		return true
	}
	for k, at := range n.recent {
		if now.Sub(at) >= n.dedupWindow {
			delete(n.recent, k)
		}
	}
	n.recent[key] = now
	return false
}

func render(event Event, payload Payload) (message, bool) {
	title := payloadField(payload, "title", "Unknown Book")
	switch event {
	case EventBookDetected:
		return message{
			title: "Lector - Book Detected",
			body:  fmt.Sprintf("📚 Book detected: %s", title),
			tags:  []string{"lector", "book", "detected"},
		}, true
	case EventPlanCompleted:
		body := fmt.Sprintf("📝 Planned: %s", title)
		if chapters, chunks := payloadInt(payload, "chapters"), payloadInt(payload, "chunks"); chapters > 0 && chunks > 0 {
			body = fmt.Sprintf("%s (%d chapters, %d chunks)", body, chapters, chunks)
		}
		return message{
			title: "Lector - Planned",
			body:  body,
			tags:  []string{"lector", "plan", "completed"},
		}, true
	case EventSynthesisStarted:
		return message{
			title: "Lector - Narration Started",
			body:  fmt.Sprintf("Started narrating: %s", title),
			tags:  []string{"lector", "synthesis", "started"},
		}, true
	case EventSynthesisCompleted:
		body := fmt.Sprintf("🎙️ Narration complete: %s", title)
		if degraded := payloadInt(payload, "degraded"); degraded > 0 {
			body = fmt.Sprintf("%s (%d degraded chunks)", body, degraded)
		}
		return message{
			title: "Lector - Narrated",
			body:  body,
			tags:  []string{"lector", "synthesis", "completed"},
		}, true
	case EventExportCompleted:
		return message{
			title: "Lector - Exported",
			body:  fmt.Sprintf("📦 Export complete: %s", title),
			tags:  []string{"lector", "export", "completed"},
		}, true
	case EventOrganizationCompleted:
		body := fmt.Sprintf("Added to library: %s", title)
		if finalFile := strings.TrimSpace(payload["finalFile"]); finalFile != "" {
			body = fmt.Sprintf("%s\nFile: %s", body, finalFile)
		}
		return message{
			title: "Lector - Library Updated",
			body:  body,
			tags:  []string{"lector", "library", "added"},
		}, true
	case EventProcessingCompleted:
		return message{
			title:    "Lector - Complete",
			body:     fmt.Sprintf("✅ Ready to listen: %s", title),
			tags:     []string{"lector", "workflow", "completed"},
			priority: "high",
		}, true
	case EventQueueStarted:
		return message{
			title: "Lector - Queue Started",
			body:  fmt.Sprintf("Started processing queue with %d items", payloadInt(payload, "count")),
			tags:  []string{"lector", "queue", "started"},
		}, true
	case EventQueueCompleted:
		processed := payloadInt(payload, "processed")
		failed := payloadInt(payload, "failed")
		duration := strings.TrimSpace(payload["duration"])
		if duration == "" {
			duration = "0s"
		}
		if failed == 0 {
			return message{
				title: "Lector - Queue Complete",
				body:  fmt.Sprintf("Queue processing complete: %d items processed in %s", processed, duration),
				tags:  []string{"lector", "queue", "completed"},
			}, true
		}
		return message{
			title: "Lector - Queue Complete (with errors)",
			body:  fmt.Sprintf("Queue processing complete: %d succeeded, %d failed in %s", processed, failed, duration),
			tags:  []string{"lector", "queue", "completed"},
		}, true
	case EventReview:
		body := fmt.Sprintf("Manual review required: %s", title)
		if reason := strings.TrimSpace(payload["reason"]); reason != "" {
			body = fmt.Sprintf("%s\nReason: %s", body, reason)
		}
		return message{
			title: "Lector - Review Needed",
			body:  body,
			tags:  []string{"lector", "review", "attention"},
		}, true
	case EventError:
		var builder strings.Builder
		builder.WriteString("❌ Error")
		if contextLabel := strings.TrimSpace(payload["context"]); contextLabel != "" {
			builder.WriteString(" with ")
			builder.WriteString(contextLabel)
		}
		builder.WriteString(": ")
		if detail := strings.TrimSpace(payload["error"]); detail != "" {
			builder.WriteString(detail)
		} else {
			builder.WriteString("unknown")
		}
		return message{
			title:    "Lector - Error",
			body:     builder.String(),
			tags:     []string{"lector", "error", "alert"},
			priority: "high",
		}, true
	case EventTest:
		return message{
			title:    "Lector - Test",
			body:     "🧪 Notification system test",
			tags:     []string{"lector", "test"},
			priority: "low",
		}, true
	}
	return message{}, false
}

func payloadField(payload Payload, key, fallback string) string {
	if value := strings.TrimSpace(payload[key]); value != "" {
		return value
	}
	return fallback
}

func payloadInt(payload Payload, key string) int {
	value, err := strconv.Atoi(strings.TrimSpace(payload[key]))
	if err != nil {
		return 0
	}
	return value
}

func (n *ntfyService) send(ctx context.Context, msg message) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(msg.body))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if msg.title != "" {
		req.Header.Set("Title", msg.title)
	}
	if len(msg.tags) > 0 {
		req.Header.Set("Tags", strings.Join(msg.tags, ","))
	}
	if msg.priority != "" && msg.priority != "default" {
		req.Header.Set("Priority", msg.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) Publish(context.Context, Event, Payload) error { return nil }
