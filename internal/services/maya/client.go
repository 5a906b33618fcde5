package maya

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os/exec"
	"strings"
	"sync"
	"time"

	"log/slog"

	"lector/internal/logging"
	"lector/internal/snac"
)

var commandContext = exec.CommandContext

// Info captures the capabilities the engine reports during its handshake.
type Info struct {
	Model              string `json:"model"`
	SampleRate         int    `json:"sample_rate"`
	TokenBase          int    `json:"token_base"`
	AlphabetSize       int    `json:"alphabet_size"`
	ConcurrencySafe    bool   `json:"concurrency_safe"`
	SupportsStateReset bool   `json:"supports_state_reset"`
}

// GenerateRequest carries the prompt and sampling parameters for one
// generation call. Seed fully determines sampling, so identical requests
// reproduce identical token streams.
type GenerateRequest struct {
	Prompt            string  `json:"prompt"`
	Seed              int64   `json:"seed"`
	MaxTokens         int     `json:"max_tokens"`
	Temperature       float64 `json:"temperature"`
	TopP              float64 `json:"top_p"`
	RepetitionPenalty float64 `json:"repetition_penalty"`
}

// Engine is the inference surface the synthesis stage drives.
type Engine interface {
	Info() Info
	Generate(ctx context.Context, req GenerateRequest) ([]int, error)
	Reset(ctx context.Context) error
}

// Decoder converts hierarchical token codes into PCM samples, returning
// the samples and their rate.
type Decoder interface {
	Decode(ctx context.Context, code snac.Code) ([]float32, int, error)
}

// RemoteError is a failure the engine reported for a single request while
// the sidecar process itself kept running. Callers may retry these.
type RemoteError struct {
	Op      string
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("maya %s: %s", e.Op, e.Message)
}

const (
	opGenerate = "generate"
	opDecode   = "decode"
	opReset    = "reset"
	opPing     = "ping"

	eventReady = "ready"
	eventLog   = "log"

	defaultStartupTimeout = 2 * time.Minute
	shutdownGrace         = 5 * time.Second
	stderrTailLines       = 40

	// Decode responses carry a whole chunk of PCM in one line.
	maxFrameBytes = 64 * 1024 * 1024
)

type wireRequest struct {
	ID     int64            `json:"id"`
	Op     string           `json:"op"`
	Params *GenerateRequest `json:"params,omitempty"`
	Code   *wireCode        `json:"code,omitempty"`
}

type wireCode struct {
	L1 []int `json:"l1"`
	L2 []int `json:"l2"`
	L3 []int `json:"l3"`
}

// wireFrame is every line the engine writes: the ready handshake, log
// events, and id-matched responses.
type wireFrame struct {
	ID      int64  `json:"id"`
	Event   string `json:"event"`
	Tokens  []int  `json:"tokens"`
	Audio   string `json:"audio"`
	Error   string `json:"error"`
	Level   string `json:"level"`
	Message string `json:"message"`
	Info
}

// Option configures the sidecar launch.
type Option func(*Sidecar)

// WithModelDir points the engine at a model directory instead of its
// built-in default.
func WithModelDir(dir string) Option {
	return func(s *Sidecar) {
		s.modelDir = strings.TrimSpace(dir)
	}
}

// WithStartupTimeout bounds how long Start waits for the model to load.
func WithStartupTimeout(d time.Duration) Option {
	return func(s *Sidecar) {
		if d > 0 {
			s.startupTimeout = d
		}
	}
}

// WithLogger routes engine log events through the supplied logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Sidecar) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// Sidecar owns one running engine process and serializes request writes
// to it. Responses are matched to callers by request id, so concurrent
// Generate calls are safe whenever the engine declares them safe.
type Sidecar struct {
	binary         string
	modelDir       string
	startupTimeout time.Duration
	logger         *slog.Logger

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stderr *tailBuffer

	writeMu sync.Mutex
	enc     *json.Encoder

	mu      sync.Mutex
	pending map[int64]chan wireFrame
	nextID  int64
	exitErr error

	info Info
	done chan struct{}

	closeOnce sync.Once
	closeErr  error
}

var (
	_ Engine  = (*Sidecar)(nil)
	_ Decoder = (*Sidecar)(nil)
)

// Start launches the engine binary and waits for its ready handshake.
// The context bounds the whole sidecar lifetime: cancelling it kills the
// process.
func Start(ctx context.Context, binary string, opts ...Option) (*Sidecar, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("engine binary required")
	}
	s := &Sidecar{
		binary:         binary,
		startupTimeout: defaultStartupTimeout,
		logger:         logging.NewNop(),
		stderr:         newTailBuffer(stderrTailLines),
		pending:        make(map[int64]chan wireFrame),
		done:           make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	args := []string{"serve", "--json"}
	if s.modelDir != "" {
		args = append(args, "--model-dir", s.modelDir)
	}
	cmd := commandContext(ctx, binary, args...) //nolint:gosec
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start engine: %w", err)
	}
	s.cmd = cmd
	s.stdin = stdin
	s.enc = json.NewEncoder(stdin)

	stderrDone := make(chan struct{})
	go func() {
		defer close(stderrDone)
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			s.stderr.Append(scanner.Text())
		}
	}()

	ready := make(chan Info, 1)
	go s.readLoop(stdout, stderrDone, ready)

	select {
	case info := <-ready:
		if info.SampleRate <= 0 || info.AlphabetSize <= 0 {
			_ = s.Close()
			return nil, fmt.Errorf("engine handshake missing token parameters: %+v", info)
		}
		s.info = info
		return s, nil
	case <-s.done:
		return nil, fmt.Errorf("engine exited before ready: %w", s.exitError())
	case <-time.After(s.startupTimeout):
		_ = s.Close()
		return nil, fmt.Errorf("engine not ready after %s", s.startupTimeout)
	case <-ctx.Done():
		_ = s.Close()
		return nil, ctx.Err()
	}
}

// Info returns the capabilities from the engine handshake.
func (s *Sidecar) Info() Info {
	return s.info
}

// Generate produces a token stream for the given request.
func (s *Sidecar) Generate(ctx context.Context, req GenerateRequest) ([]int, error) {
	frame, err := s.call(ctx, wireRequest{Op: opGenerate, Params: &req})
	if err != nil {
		return nil, err
	}
	return frame.Tokens, nil
}

// Reset asks the engine to drop cached sampler state so the next
// generation starts clean. Engines that do not support state reset treat
// this as a no-op without a round trip.
func (s *Sidecar) Reset(ctx context.Context) error {
	if !s.info.SupportsStateReset {
		return nil
	}
	_, err := s.call(ctx, wireRequest{Op: opReset})
	return err
}

// Decode converts hierarchical codes into PCM samples via the engine's
// neural decoder. Audio travels as base64-wrapped little-endian float32.
func (s *Sidecar) Decode(ctx context.Context, code snac.Code) ([]float32, int, error) {
	frame, err := s.call(ctx, wireRequest{Op: opDecode, Code: &wireCode{L1: code.L1, L2: code.L2, L3: code.L3}})
	if err != nil {
		return nil, 0, err
	}
	samples, err := decodeSamples(frame.Audio)
	if err != nil {
		return nil, 0, fmt.Errorf("decode engine audio: %w", err)
	}
	rate := frame.SampleRate
	if rate <= 0 {
		rate = s.info.SampleRate
	}
	return samples, rate, nil
}

// Ping verifies the engine is still serving requests.
func (s *Sidecar) Ping(ctx context.Context) error {
	_, err := s.call(ctx, wireRequest{Op: opPing})
	return err
}

// StderrTail returns the most recent engine stderr lines for diagnostics.
func (s *Sidecar) StderrTail() string {
	return s.stderr.Tail()
}

// Close shuts the engine down by closing its stdin and waits briefly for
// a clean exit before killing the process.
func (s *Sidecar) Close() error {
	s.closeOnce.Do(func() {
		_ = s.stdin.Close()
		select {
		case <-s.done:
		case <-time.After(shutdownGrace):
			if s.cmd.Process != nil {
				_ = s.cmd.Process.Kill()
			}
			<-s.done
			s.closeErr = errors.New("engine did not exit after stdin close; killed")
		}
	})
	return s.closeErr
}

func (s *Sidecar) call(ctx context.Context, req wireRequest) (wireFrame, error) {
	ch := make(chan wireFrame, 1)
	s.mu.Lock()
	s.nextID++
	req.ID = s.nextID
	s.pending[req.ID] = ch
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, req.ID)
		s.mu.Unlock()
	}()

	s.writeMu.Lock()
	err := s.enc.Encode(req)
	s.writeMu.Unlock()
	if err != nil {
		select {
		case <-s.done:
			return wireFrame{}, s.exitError()
		default:
		}
		return wireFrame{}, fmt.Errorf("write engine request: %w", err)
	}

	select {
	case frame := <-ch:
		if frame.Error != "" {
			return wireFrame{}, &RemoteError{Op: req.Op, Message: frame.Error}
		}
		return frame, nil
	case <-s.done:
		return wireFrame{}, s.exitError()
	case <-ctx.Done():
		return wireFrame{}, ctx.Err()
	}
}

func (s *Sidecar) readLoop(stdout io.Reader, stderrDone <-chan struct{}, ready chan<- Info) {
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), maxFrameBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var frame wireFrame
		if err := json.Unmarshal(line, &frame); err != nil {
			s.logger.Debug("ignoring unparseable engine output", logging.String("line", truncateLine(string(line))))
			continue
		}
		switch {
		case frame.Event == eventReady:
			select {
			case ready <- frame.Info:
			default:
			}
		case frame.Event == eventLog:
			s.logEvent(frame)
		case frame.ID != 0:
			s.mu.Lock()
			pending := s.pending[frame.ID]
			s.mu.Unlock()
			if pending != nil {
				pending <- frame
			}
		}
	}
	scanErr := scanner.Err()
	<-stderrDone
	waitErr := s.cmd.Wait()

	s.mu.Lock()
	switch {
	case waitErr != nil:
		s.exitErr = fmt.Errorf("engine exited: %w", waitErr)
	case scanErr != nil:
		s.exitErr = fmt.Errorf("read engine output: %w", scanErr)
	default:
		s.exitErr = errors.New("engine exited")
	}
	s.mu.Unlock()
	close(s.done)
}

func (s *Sidecar) exitError() error {
	s.mu.Lock()
	err := s.exitErr
	s.mu.Unlock()
	if err == nil {
		err = errors.New("engine exited")
	}
	if tail := s.stderr.Tail(); tail != "" {
		return fmt.Errorf("%w\nengine stderr:\n%s", err, tail)
	}
	return err
}

func (s *Sidecar) logEvent(frame wireFrame) {
	message := strings.TrimSpace(frame.Message)
	if message == "" {
		return
	}
	attrs := []any{logging.String(logging.FieldComponent, "maya")}
	switch strings.ToLower(strings.TrimSpace(frame.Level)) {
	case "error":
		s.logger.Error(message, attrs...)
	case "warning", "warn":
		s.logger.Warn(message, attrs...)
	case "debug":
		s.logger.Debug(message, attrs...)
	default:
		s.logger.Info(message, attrs...)
	}
}

func decodeSamples(payload string) ([]float32, error) {
	if payload == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, err
	}
	if len(raw)%4 != 0 {
		return nil, fmt.Errorf("audio payload length %d is not a float32 multiple", len(raw))
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		samples[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return samples, nil
}

// EncodeSamples is the inverse of the decode wire format, used by fakes
// and the preview cache to fabricate engine audio payloads.
func EncodeSamples(samples []float32) string {
	raw := make([]byte, len(samples)*4)
	for i, sample := range samples {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(sample))
	}
	return base64.StdEncoding.EncodeToString(raw)
}

func truncateLine(line string) string {
	const max = 200
	if len(line) <= max {
		return line
	}
	return line[:max] + "..."
}

type tailBuffer struct {
	mu    sync.Mutex
	lines []string
	max   int
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (b *tailBuffer) Append(line string) {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) Tail() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
