package services_test

import (
	"errors"
	"testing"

	"lector/internal/queue"
	"lector/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("model refused input")
	err := services.Wrap(services.ErrExternalTool, "synthesis", "generate", "chunk 12", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to survive wrapping, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected cause to survive wrapping, got %v", err)
	}
	want := "external tool failure: synthesis: generate: chunk 12: model refused input"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestWrapWithoutCause(t *testing.T) {
	err := services.Wrap(services.ErrValidation, "plan", "load", "no chapters found", nil)
	want := "validation failure: plan: load: no chapters found"
	if err.Error() != want {
		t.Fatalf("unexpected message:\n got %q\nwant %q", err.Error(), want)
	}
}

func TestWrapBareMarker(t *testing.T) {
	err := services.Wrap(services.ErrTimeout, "", "", "", nil)
	if !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout marker, got %v", err)
	}
	if err.Error() != services.ErrTimeout.Error() {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestFailureStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status queue.Status
	}{
		{"validation routes to review", services.Wrap(services.ErrValidation, "plan", "chunk", "empty chapter", nil), queue.StatusReview},
		{"configuration routes to review", services.Wrap(services.ErrConfiguration, "export", "prepare", "bad container", nil), queue.StatusReview},
		{"not found routes to review", services.Wrap(services.ErrNotFound, "plan", "open", "missing source", nil), queue.StatusReview},
		{"external tool routes to failed", services.Wrap(services.ErrExternalTool, "synthesis", "generate", "engine exited", nil), queue.StatusFailed},
		{"timeout routes to failed", services.Wrap(services.ErrTimeout, "export", "mux", "ffmpeg stalled", nil), queue.StatusFailed},
		{"plain error routes to failed", errors.New("boom"), queue.StatusFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.FailureStatus(tc.err); got != tc.status {
				t.Fatalf("FailureStatus(%v) = %s, want %s", tc.err, got, tc.status)
			}
		})
	}
}

func TestDetailsClassification(t *testing.T) {
	err := services.Wrap(services.ErrConfiguration, "export", "prepare", "unknown container", nil)
	d := services.Details(err)
	if d.Kind != services.KindConfiguration {
		t.Fatalf("kind = %s, want %s", d.Kind, services.KindConfiguration)
	}
	if d.Message == "" || d.Hint == "" {
		t.Fatalf("expected message and hint, got %+v", d)
	}
	if d.Cause == nil {
		t.Fatal("expected cause to be retained")
	}
}

func TestDetailsNil(t *testing.T) {
	d := services.Details(nil)
	if d.Kind != services.KindUnknown {
		t.Fatalf("kind = %s, want %s", d.Kind, services.KindUnknown)
	}
	if d.Message != "" || d.Hint != "" || d.Cause != nil {
		t.Fatalf("expected zero details, got %+v", d)
	}
}

func TestClassifyPrefersSpecificMarkers(t *testing.T) {
	err := services.Wrap(services.ErrTransient, "synthesis", "generate", "engine busy", services.ErrExternalTool)
	if got := services.Classify(err); got != services.KindTransient {
		t.Fatalf("Classify = %s, want %s", got, services.KindTransient)
	}
}
