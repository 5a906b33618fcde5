package export

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"lector/internal/assemble"
)

// SpoolName is the filename the synthesis stage writes inside its staging
// audio directory.
const SpoolName = "narration.pcm"

// Spool files hold mono float32 little-endian PCM with no header. The
// synthesis stage streams samples in as chunks are delivered; export reads
// them back sequentially to build the final container, so a whole book
// never sits in memory at once.

const spoolBlockSamples = 32 * 1024

// SpoolWriter appends PCM samples to a spool file. It implements
// assemble.Sink so the assembler can stream audio straight to disk.
type SpoolWriter struct {
	path    string
	f       *os.File
	w       *bufio.Writer
	scratch []byte
	samples int64
	closed  bool
}

var _ assemble.Sink = (*SpoolWriter)(nil)

// CreateSpool creates (or truncates) a spool file, making parent
// directories as needed.
func CreateSpool(path string) (*SpoolWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create spool: %w", err)
	}
	return &SpoolWriter{
		path:    path,
		f:       f,
		w:       bufio.NewWriterSize(f, 1<<20),
		scratch: make([]byte, 4*spoolBlockSamples),
	}, nil
}

// Write appends samples to the spool. The chapter id is part of the sink
// contract but irrelevant here: the spool is one continuous stream and
// chapter boundaries live in the timeline.
func (s *SpoolWriter) Write(_ int, samples []float32) error {
	if s.closed {
		return fmt.Errorf("spool %s is closed", s.path)
	}
	for len(samples) > 0 {
		n := len(samples)
		if n > spoolBlockSamples {
			n = spoolBlockSamples
		}
		block := s.scratch[:4*n]
		for i, sample := range samples[:n] {
			binary.LittleEndian.PutUint32(block[4*i:], math.Float32bits(sample))
		}
		if _, err := s.w.Write(block); err != nil {
			return fmt.Errorf("write spool: %w", err)
		}
		s.samples += int64(n)
		samples = samples[n:]
	}
	return nil
}

// Finalize flushes and closes the spool. The timelines are part of the
// sink contract; the spool itself carries no metadata.
func (s *SpoolWriter) Finalize(_ []assemble.ChapterTimeline, _ float64) error {
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("flush spool: %w", err)
	}
	if err := s.f.Sync(); err != nil {
		return fmt.Errorf("sync spool: %w", err)
	}
	if err := s.f.Close(); err != nil {
		return fmt.Errorf("close spool: %w", err)
	}
	return nil
}

// Close releases the spool file without flushing buffered samples. Error
// paths use it so a failed run does not leave file handles open.
func (s *SpoolWriter) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.f.Close()
}

// Samples returns how many samples have been written so far.
func (s *SpoolWriter) Samples() int64 {
	return s.samples
}

// Path returns the spool file location.
func (s *SpoolWriter) Path() string {
	return s.path
}

// SpoolReader streams samples back out of a spool file.
type SpoolReader struct {
	f       *os.File
	r       *bufio.Reader
	scratch []byte
}

// OpenSpool opens a spool file for sequential reading.
func OpenSpool(path string) (*SpoolReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open spool: %w", err)
	}
	return &SpoolReader{
		f:       f,
		r:       bufio.NewReaderSize(f, 1<<20),
		scratch: make([]byte, 4*spoolBlockSamples),
	}, nil
}

// Read fills dst with the next samples from the spool. It returns the
// number of samples read; io.EOF signals a clean end of the stream.
func (s *SpoolReader) Read(dst []float32) (int, error) {
	if len(dst) == 0 {
		return 0, nil
	}
	want := 4 * len(dst)
	if want > len(s.scratch) {
		want = len(s.scratch)
	}
	n, err := io.ReadFull(s.r, s.scratch[:want])
	if n%4 != 0 {
		return 0, fmt.Errorf("spool truncated mid-sample (%d trailing bytes)", n%4)
	}
	count := n / 4
	for i := 0; i < count; i++ {
		dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(s.scratch[4*i:]))
	}
	switch err {
	case nil:
		return count, nil
	case io.ErrUnexpectedEOF:
		return count, nil
	case io.EOF:
		return 0, io.EOF
	default:
		return count, fmt.Errorf("read spool: %w", err)
	}
}

// Close closes the underlying file.
func (s *SpoolReader) Close() error {
	return s.f.Close()
}

// SpoolSamples returns the sample count stored in a spool file.
func SpoolSamples(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if info.Size()%4 != 0 {
		return 0, fmt.Errorf("spool %s has partial sample (%d bytes)", path, info.Size())
	}
	return info.Size() / 4, nil
}
