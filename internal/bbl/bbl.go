// Package bbl is the boundary to the blackbox frame decoder. A Decoder turns
// one session file into header metadata, a field name list and typed frames;
// Table is the column view the rest of the pipeline reads from.
package bbl

import (
	"context"
)

// MaxFields is the number of leading fields kept from every frame.
const MaxFields = 42

// FrameType is the frame tag as written in the log.
type FrameType byte

const (
	FrameIntra   FrameType = 'I'
	FrameInter   FrameType = 'P'
	FrameGPS     FrameType = 'G'
	FrameGPSHome FrameType = 'H'
	FrameSlow    FrameType = 'S'
	FrameEvent   FrameType = 'E'
)

func (t FrameType) String() string {
	switch t {
	case FrameIntra:
		return "intra"
	case FrameInter:
		return "inter"
	case FrameGPS:
		return "gps"
	case FrameGPSHome:
		return "gps_home"
	case FrameSlow:
		return "slow"
	case FrameEvent:
		return "event"
	default:
		return "unknown"
	}
}

// IsGPS reports whether frames of this type carry GPS data.
func (t FrameType) IsGPS() bool {
	return t == FrameGPS || t == FrameGPSHome
}

// Frame is one decoded record. Values are ordered like Log.FieldNames.
type Frame struct {
	Type   FrameType
	Values []float64
}

// Log is the decoded content of one session file.
type Log struct {
	Headers    map[string]string
	FieldNames []string
	Frames     []Frame
}

// Decoder decodes a single session file.
type Decoder interface {
	Decode(ctx context.Context, path string) (*Log, error)
}

// DecoderFunc adapts a function to the Decoder interface.
type DecoderFunc func(ctx context.Context, path string) (*Log, error)

func (f DecoderFunc) Decode(ctx context.Context, path string) (*Log, error) {
	return f(ctx, path)
}

// Table is a column oriented view of a Log restricted to the first
// MaxFields fields and to non GPS frames.
type Table struct {
	fields []string
	index  map[string]int
	rows   [][]float64
}

// NewTable builds a Table from a decoded log. Short frames are padded with
// zeros so every row has one value per field.
func NewTable(l *Log) *Table {
	fields := l.FieldNames
	if len(fields) > MaxFields {
		fields = fields[:MaxFields]
	}

	t := &Table{
		fields: append([]string(nil), fields...),
		index:  make(map[string]int, len(fields)),
	}
	for i, name := range t.fields {
		if _, ok := t.index[name]; !ok {
			t.index[name] = i
		}
	}

	for _, f := range l.Frames {
		if f.Type.IsGPS() {
			continue
		}
		row := make([]float64, len(t.fields))
		copy(row, f.Values)
		t.rows = append(t.rows, row)
	}

	return t
}

// Len returns the number of frames.
func (t *Table) Len() int {
	return len(t.rows)
}

// Fields returns the retained field names.
func (t *Table) Fields() []string {
	return t.fields
}

// Column returns a copy of the named field across all frames.
func (t *Table) Column(name string) ([]float64, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}

	col := make([]float64, len(t.rows))
	for r, row := range t.rows {
		col[r] = row[i]
	}
	return col, true
}
