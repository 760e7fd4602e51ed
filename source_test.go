package apqos

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceReader(t *testing.T) {
	trace := "0.000000 1024 extra tokens\n\n  0.250000\t20\n1.5 0\n"
	tr := CreateTraceReader(strings.NewReader(trace))

	want := []PacketRecord{{0.0, 1024}, {0.25, 20}, {1.5, 0}}
	for _, w := range want {
		rec, err := tr.Next()
		require.NoError(t, err)
		assert.Equal(t, w, rec)
	}
	_, err := tr.Next()
	assert.ErrorIs(t, err, io.EOF)
	assert.NoError(t, tr.Close())
}

func TestTraceReaderMalformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"one token", "0.5"},
		{"bad time", "abc 10"},
		{"bad size", "0.5 ten"},
		{"negative size", "0.5 -3"},
		{"negative time", "-0.5 3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := CreateTraceReader(strings.NewReader("0.1 10\n" + tt.line + "\n"))
			_, err := tr.Next()
			require.NoError(t, err)
			_, err = tr.Next()
			assert.ErrorIs(t, err, ErrMalformedLine)
			assert.Contains(t, err.Error(), "line 2")
		})
	}
}

func writeTrace(t *testing.T, body string) string {
	t.Helper()
	name := filepath.Join(t.TempDir(), "trace.txt")
	require.NoError(t, os.WriteFile(name, []byte(body), 0o644))
	return name
}

func TestOpenAndLoadTrace(t *testing.T) {
	name := writeTrace(t, "0.0 100\n0.001 200\n")

	recs, err := LoadTrace(name)
	require.NoError(t, err)
	assert.Equal(t, []PacketRecord{{0.0, 100}, {0.001, 200}}, recs)

	src, err := TraceFactory(name)()
	require.NoError(t, err)
	rec, err := src.Next()
	require.NoError(t, err)
	assert.Equal(t, 100, rec.SizeBytes)
	require.NoError(t, src.(io.Closer).Close())
}

func TestLoadTraceStopsAtMalformedLine(t *testing.T) {
	name := writeTrace(t, "0.0 100\nnot a packet\n0.002 300\n")

	recs, err := LoadTrace(name)
	assert.ErrorIs(t, err, ErrMalformedLine)
	assert.Equal(t, []PacketRecord{{0.0, 100}}, recs)
}

func TestMissingTrace(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "absent.txt")

	_, err := OpenTrace(missing)
	assert.ErrorIs(t, err, ErrTraceOpen)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	_, err = LoadTrace(missing)
	assert.ErrorIs(t, err, ErrTraceOpen)

	src, err := TraceFactory(missing)()
	assert.Nil(t, src)
	assert.ErrorIs(t, err, ErrTraceOpen)
}

func TestSliceFactoryReplays(t *testing.T) {
	open := SliceFactory([]PacketRecord{{0, 1}, {0, 2}})
	for i := 0; i < 2; i++ {
		src, err := open()
		require.NoError(t, err)
		rec, err := src.Next()
		require.NoError(t, err)
		assert.Equal(t, 1, rec.SizeBytes)
	}
}

func TestTraceReaderLongLines(t *testing.T) {
	wide := "0.5 100 " + strings.Repeat("x", 100_000)
	tr := CreateTraceReader(strings.NewReader(wide + "\n"))
	rec, err := tr.Next()
	require.NoError(t, err)
	assert.Equal(t, PacketRecord{ArrivalTime: 0.5, SizeBytes: 100}, rec)

	tooWide := "0.6 100 " + strings.Repeat("x", MaxTraceLine)
	tr = CreateTraceReader(strings.NewReader("0.1 10\n" + tooWide + "\n0.7 10\n"))
	_, err = tr.Next()
	require.NoError(t, err)
	_, err = tr.Next()
	assert.ErrorIs(t, err, ErrMalformedLine)
	assert.NotErrorIs(t, err, ErrTraceOpen)
	assert.Contains(t, err.Error(), "line 2")
}
