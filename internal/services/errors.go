package services

import (
	"errors"
	"fmt"
	"strings"

	"lector/internal/queue"
)

// Marker errors classify stage failures so the workflow manager can decide
// whether an item should retry, fail, or land in review.
var (
	// ErrExternalTool marks failures caused by an external binary or sidecar
	// process (ffmpeg, the synthesis engine, ffprobe).
	ErrExternalTool = errors.New("external tool failure")

	// ErrValidation marks failures caused by invalid or unusable input data.
	ErrValidation = errors.New("validation failure")

	// ErrConfiguration marks failures caused by bad or missing configuration.
	ErrConfiguration = errors.New("configuration failure")

	// ErrNotFound marks failures caused by missing files or queue records.
	ErrNotFound = errors.New("not found")

	// ErrTimeout marks failures caused by an operation exceeding its deadline.
	ErrTimeout = errors.New("timeout")

	// ErrTransient marks failures that are likely to succeed on retry.
	ErrTransient = errors.New("transient failure")
)

// ErrorKind is a stable string form of the failure classification, suitable
// for structured logs and persisted review reasons.
type ErrorKind string

const (
	KindExternalTool  ErrorKind = "external_tool"
	KindValidation    ErrorKind = "validation"
	KindConfiguration ErrorKind = "configuration"
	KindNotFound      ErrorKind = "not_found"
	KindTimeout       ErrorKind = "timeout"
	KindTransient     ErrorKind = "transient"
	KindUnknown       ErrorKind = "unknown"
)

// ErrorDetails is the flattened view of a classified error used when
// persisting failure information on a queue item.
type ErrorDetails struct {
	Kind    ErrorKind
	Message string
	Hint    string
	Cause   error
}

// Wrap annotates err with stage and operation context while preserving the
// classification marker for errors.Is checks. Any of stage, operation, and
// message may be empty.
func Wrap(marker error, stage, operation, message string, err error) error {
	parts := make([]string, 0, 3)
	if stage != "" {
		parts = append(parts, stage)
	}
	if operation != "" {
		parts = append(parts, operation)
	}
	if message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	switch {
	case err != nil && detail != "":
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	case err != nil:
		return fmt.Errorf("%w: %w", marker, err)
	case detail != "":
		return fmt.Errorf("%w: %s", marker, detail)
	default:
		return marker
	}
}

// Details flattens err into its classification, display message, and an
// operator hint. The zero ErrorDetails is returned for nil errors.
func Details(err error) ErrorDetails {
	if err == nil {
		return ErrorDetails{Kind: KindUnknown}
	}
	d := ErrorDetails{
		Kind:    Classify(err),
		Message: err.Error(),
		Cause:   err,
	}
	switch d.Kind {
	case KindExternalTool:
		d.Hint = "check the tool's log output and verify the binary is installed"
	case KindValidation:
		d.Hint = "inspect the source file; it may be malformed or unsupported"
	case KindConfiguration:
		d.Hint = "review the configuration file for invalid or missing values"
	case KindNotFound:
		d.Hint = "verify the referenced file or record still exists"
	case KindTimeout:
		d.Hint = "the operation exceeded its deadline; retry or raise the limit"
	}
	return d
}

// Classify reports the ErrorKind for err based on its marker.
func Classify(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrTransient):
		return KindTransient
	case errors.Is(err, ErrExternalTool):
		return KindExternalTool
	default:
		return KindUnknown
	}
}

// FailureStatus maps a classified error to the queue status the owning item
// should transition into. Validation, configuration, and not-found failures
// need operator attention and land in review; everything else is failed.
func FailureStatus(err error) queue.Status {
	switch {
	case errors.Is(err, ErrValidation), errors.Is(err, ErrConfiguration), errors.Is(err, ErrNotFound):
		return queue.StatusReview
	default:
		return queue.StatusFailed
	}
}
