// Package logstream drives the `lector logs` command. Lines come from the
// daemon's LogTail RPC when lectord is up; otherwise the CLI reads the shared
// log file directly with the same tail semantics.
package logstream

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"lector/internal/ipc"
	"lector/internal/logs"
)

// ErrNoLogSource reports that neither a daemon connection nor a log file path
// was available.
var ErrNoLogSource = errors.New("no daemon connection and no log file configured")

// TailClient captures the IPC log tail contract used for daemon-backed streaming.
type TailClient interface {
	LogTail(req ipc.LogTailRequest) (*ipc.LogTailResponse, error)
}

// Options controls stream behavior.
type Options struct {
	Lines  int
	Follow bool
}

// Stream emits log lines from the daemon when a client is available, falling
// back to tailing logPath directly. It returns true when at least one line was
// emitted.
func Stream(ctx context.Context, client TailClient, logPath string, opts Options, onLine func(string)) (bool, error) {
	if client != nil {
		return streamDaemon(ctx, client, opts, onLine)
	}
	if strings.TrimSpace(logPath) == "" {
		return false, ErrNoLogSource
	}
	return streamFile(ctx, logPath, opts, onLine)
}

func streamDaemon(ctx context.Context, client TailClient, opts Options, onLine func(string)) (bool, error) {
	initialLimit := opts.Lines
	if initialLimit < 0 {
		initialLimit = 0
	}
	initialOffset := int64(-1)
	if initialLimit == 0 {
		initialOffset = 0
	}

	offset := initialOffset
	limit := initialLimit
	printed := false
	for {
		resp, err := client.LogTail(ipc.LogTailRequest{
			Offset:     offset,
			Limit:      limit,
			Follow:     opts.Follow,
			WaitMillis: 1000,
		})
		if err != nil {
			return printed, fmt.Errorf("tail logs: %w", err)
		}
		if resp == nil {
			return printed, errors.New("log tail response missing")
		}
		for _, line := range resp.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = resp.Offset
		limit = 0
		if !opts.Follow {
			return printed, nil
		}
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}

func streamFile(ctx context.Context, path string, opts Options, onLine func(string)) (bool, error) {
	offset := int64(-1)
	limit := opts.Lines
	if limit < 0 {
		limit = 0
	}
	if limit == 0 {
		offset = 0
	}

	printed := false
	for {
		wait := time.Duration(0)
		if opts.Follow {
			wait = time.Second
		}
		result, err := logs.Tail(ctx, path, logs.TailOptions{
			Offset: offset,
			Limit:  limit,
			Follow: opts.Follow,
			Wait:   wait,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return printed, nil
			}
			return printed, fmt.Errorf("tail log file: %w", err)
		}
		for _, line := range result.Lines {
			if onLine != nil {
				onLine(line)
			}
			printed = true
		}
		offset = result.Offset
		limit = 0
		if !opts.Follow {
			return printed, nil
		}
		select {
		case <-ctx.Done():
			return printed, nil
		default:
		}
	}
}
