package apqos

// source.go holds the PacketSource interface and the trace backed sources

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

var (
	// ErrMalformedLine is returned for a trace line without a numeric arrival time and size
	ErrMalformedLine = errors.New("malformed trace line")

	// ErrTraceOpen is returned when a trace file cannot be opened or read
	ErrTraceOpen = errors.New("cannot read trace")
)

// MaxTraceLine is the longest trace line, in bytes, a TraceReader accepts
const MaxTraceLine = 1 << 20

// PacketSource yields packet records in non-decreasing arrival order.
// Next returns io.EOF after the last record
type PacketSource interface {
	Next() (PacketRecord, error)
}

// SourceFactory opens a fresh PacketSource, once per run
type SourceFactory func() (PacketSource, error)

// SliceSource replays records held in memory
type SliceSource struct {
	recs []PacketRecord
	idx  int
}

// CreateSliceSource is a constructor.  The slice is not copied and must not be modified while in use
func CreateSliceSource(recs []PacketRecord) *SliceSource {
	return &SliceSource{recs: recs}
}

func (ss *SliceSource) Next() (PacketRecord, error) {
	if ss.idx >= len(ss.recs) {
		return PacketRecord{}, io.EOF
	}
	rec := ss.recs[ss.idx]
	ss.idx += 1
	return rec, nil
}

// SliceFactory returns a factory handing out independent replays of recs
func SliceFactory(recs []PacketRecord) SourceFactory {
	return func() (PacketSource, error) {
		return CreateSliceSource(recs), nil
	}
}

// TraceReader parses whitespace delimited trace lines: arrival time in
// seconds then size in bytes, any further tokens ignored
type TraceReader struct {
	scanner *bufio.Scanner
	lineNo  int
	closer  io.Closer
}

// CreateTraceReader is a constructor
func CreateTraceReader(r io.Reader) *TraceReader {
	tr := new(TraceReader)
	tr.scanner = bufio.NewScanner(r)
	tr.scanner.Buffer(make([]byte, 0, 4096), MaxTraceLine)
	if c, ok := r.(io.Closer); ok {
		tr.closer = c
	}
	return tr
}

// OpenTrace opens the trace file at path
func OpenTrace(path string) (*TraceReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrTraceOpen, path, err)
	}
	return CreateTraceReader(f), nil
}

// TraceFactory returns a factory that reopens the trace at path for every run
func TraceFactory(path string) SourceFactory {
	return func() (PacketSource, error) {
		tr, err := OpenTrace(path)
		if err != nil {
			return nil, err
		}
		return tr, nil
	}
}

// Next parses the next non-blank line
func (tr *TraceReader) Next() (PacketRecord, error) {
	for tr.scanner.Scan() {
		tr.lineNo += 1
		fields := strings.Fields(tr.scanner.Text())
		if len(fields) == 0 {
			continue
		}
		return parseTraceFields(fields, tr.lineNo)
	}
	err := tr.scanner.Err()
	if errors.Is(err, bufio.ErrTooLong) {
		return PacketRecord{}, fmt.Errorf("%w %d: longer than %d bytes", ErrMalformedLine, tr.lineNo+1, MaxTraceLine)
	}
	if err != nil {
		return PacketRecord{}, fmt.Errorf("%w: %w", ErrTraceOpen, err)
	}
	return PacketRecord{}, io.EOF
}

// Close releases the underlying file, if there is one
func (tr *TraceReader) Close() error {
	if tr.closer == nil {
		return nil
	}
	return tr.closer.Close()
}

func parseTraceFields(fields []string, lineNo int) (PacketRecord, error) {
	if len(fields) < 2 {
		return PacketRecord{}, fmt.Errorf("%w %d: want arrival time and size, got %q", ErrMalformedLine, lineNo, strings.Join(fields, " "))
	}
	arrival, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || arrival < 0 {
		return PacketRecord{}, fmt.Errorf("%w %d: arrival time %q", ErrMalformedLine, lineNo, fields[0])
	}
	size, err := strconv.Atoi(fields[1])
	if err != nil || size < 0 {
		return PacketRecord{}, fmt.Errorf("%w %d: size %q", ErrMalformedLine, lineNo, fields[1])
	}
	return PacketRecord{ArrivalTime: arrival, SizeBytes: size}, nil
}

// LoadTrace reads every record of the trace at path into memory.  A
// malformed line ends the trace, as it would end a run reading the file
func LoadTrace(path string) ([]PacketRecord, error) {
	tr, err := OpenTrace(path)
	if err != nil {
		return nil, err
	}
	defer tr.Close()

	recs := make([]PacketRecord, 0)
	for {
		rec, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return recs, nil
		}
		if errors.Is(err, ErrMalformedLine) {
			return recs, err
		}
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
}
