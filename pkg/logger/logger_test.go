package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var m map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &m))
		out = append(out, m)
	}
	return out
}

func TestLogger_FiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	log := New(Options{Output: &buf, Level: LevelWarn})

	log.Info("hidden")
	log.Warn("shown", PostID("p1"))

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 1)
	assert.Equal(t, "WARN", lines[0]["level"])
	assert.Equal(t, "shown", lines[0]["message"])
	assert.Equal(t, "p1", lines[0]["fields"].(map[string]any)["post_id"])
}

func TestLogger_WithKeepsParentFields(t *testing.T) {
	var buf bytes.Buffer
	base := New(Options{Output: &buf, Level: LevelDebug})
	child := base.With(Component("grievances")).WithRequestID("req-1")

	child.Error("update failed", Err(errors.New("boom")), UserID("u1"))
	base.Debug("plain")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	fields := lines[0]["fields"].(map[string]any)
	assert.Equal(t, "grievances", fields["component"])
	assert.Equal(t, "req-1", fields[RequestIDKey])
	assert.Equal(t, "boom", fields["error"])
	assert.Nil(t, lines[1]["fields"])
}

func TestContextRoundTrip(t *testing.T) {
	log := Nop()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
	assert.NotNil(t, FromContext(context.Background()))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelWarn, ParseLevel(" warning "))
	assert.Equal(t, LevelError, ParseLevel("ERROR"))
	assert.Equal(t, LevelInfo, ParseLevel("nonsense"))
}
