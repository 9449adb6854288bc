package diag

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorConcurrent(t *testing.T) {
	var c Collector
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			kind := MissingChannel
			if i%2 == 0 {
				kind = DegenerateAnalysis
			}
			c.Warn(Warning{Kind: kind, Session: i})
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.Warnings(), 50)
	assert.Equal(t, 25, c.Count(MissingChannel))
	assert.Equal(t, 25, c.Count(DegenerateAnalysis))
}

func TestBindAndMulti(t *testing.T) {
	var a, b Collector
	r := Bind(Multi(&a, &b), 3)
	r.Warn(Warning{Kind: DecodeFailure, Session: NoSession, Message: "boom"})

	require.Len(t, a.Warnings(), 1)
	require.Len(t, b.Warnings(), 1)
	assert.Equal(t, 3, a.Warnings()[0].Session)
	assert.Equal(t, 3, b.Warnings()[0].Session)
}

func TestLogReporter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	NewLogReporter(logger).Warn(Warning{
		Kind:    MissingChannel,
		Session: 2,
		Subject: "gyro[1]",
		Message: "channel not found, using zeros",
		Err:     errors.New("absent"),
	})

	out := buf.String()
	for _, want := range []string{"level=WARN", "kind=missing_channel", "session=2", "subject=gyro[1]", "error=absent"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %q does not contain %q", out, want)
		}
	}
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: HeaderValue, Subject: "rollPID", Message: "not a number"}
	assert.Equal(t, "header_value: rollPID: not a number", w.String())

	w.Subject = ""
	assert.Equal(t, "header_value: not a number", w.String())
}
