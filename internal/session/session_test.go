package session

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roman-kulish/bbl-analyzer/internal/diag"
)

var delim = []byte("H Product:Blackbox flight data recorder by Nicholas Sherlock\n")

func buildLog(bodies ...int) []byte {
	var buf bytes.Buffer
	for i, n := range bodies {
		buf.Write(delim)
		buf.Write(bytes.Repeat([]byte{byte(i + 1)}, n))
	}
	return buf.Bytes()
}

func TestSplit(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "LOG00007.BFL")
	raw := &RawLog{Path: logPath, Data: buildLog(600, 100)}

	var c diag.Collector
	s := NewSplitter(WithMinSessionBytes(500), WithReporter(&c), WithScratchName("scratch"))

	sessions, err := s.Split(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, sessions, 1)

	got := sessions[0]
	assert.Equal(t, 1, got.Index)
	assert.Equal(t, int64(0), got.Offset)
	assert.Equal(t, int64(len(delim)+600), got.End)
	assert.Equal(t, int64(len(delim)+600), got.Size)
	assert.Equal(t, filepath.Join(dir, "scratch", "LOG00007_temp1.BFL"), got.Path)

	data, err := os.ReadFile(got.Path)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, delim))
	assert.Equal(t, raw.Data[got.Offset:got.End], data)

	// leading empty piece and the short trailing session
	assert.Equal(t, 2, c.Count(diag.SessionTooSmall))
	for _, i := range []int{0, 2} {
		_, err := os.Stat(s.ScratchPath(logPath, i))
		assert.True(t, errors.Is(err, os.ErrNotExist), "candidate %d scratch file should be removed", i)
	}
}

func TestSplitOrderedNonOverlapping(t *testing.T) {
	raw := &RawLog{Path: filepath.Join(t.TempDir(), "multi.bbl"), Data: buildLog(700, 300, 900, 501)}

	var c diag.Collector
	s := NewSplitter(WithMinSessionBytes(600), WithReporter(&c))

	sessions, err := s.Split(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	prevEnd := int64(-1)
	for _, sess := range sessions {
		assert.Greater(t, sess.Size, int64(600))
		assert.GreaterOrEqual(t, sess.Offset, prevEnd)
		prevEnd = sess.End
	}
	assert.Equal(t, []int{1, 3}, []int{sessions[0].Index, sessions[1].Index})

	for _, w := range c.Warnings() {
		assert.Equal(t, diag.SessionTooSmall, w.Kind)
	}
	assert.Equal(t, 3, c.Count(diag.SessionTooSmall))
}

func TestSplitThresholdIsExclusive(t *testing.T) {
	raw := &RawLog{Path: filepath.Join(t.TempDir(), "edge.bbl"), Data: buildLog(100)}
	threshold := int64(len(delim) + 100)

	sessions, err := NewSplitter(WithMinSessionBytes(threshold)).Split(context.Background(), raw)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	sessions, err = NewSplitter(WithMinSessionBytes(threshold - 1)).Split(context.Background(), raw)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestSplitMalformed(t *testing.T) {
	raw := &RawLog{Path: "no-newline.bbl", Data: []byte("H Product:Blackbox without newline")}

	_, err := NewSplitter().Split(context.Background(), raw)

	var mErr *MalformedLogError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, "no-newline.bbl", mErr.Path)
	assert.Equal(t, len(raw.Data), mErr.Size)
}

func TestCleanup(t *testing.T) {
	raw := &RawLog{Path: filepath.Join(t.TempDir(), "c.bbl"), Data: buildLog(50, 60)}
	s := NewSplitter(WithMinSessionBytes(100))

	sessions, err := s.Split(context.Background(), raw)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	require.NoError(t, s.Cleanup(sessions))
	for _, sess := range sessions {
		_, err := os.Stat(sess.Path)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	}
}
