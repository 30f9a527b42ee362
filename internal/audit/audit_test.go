package audit

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, line string) Event {
	t.Helper()
	require.True(t, strings.HasPrefix(line, "AUDIT: "))
	var ev Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "AUDIT: ")), &ev))
	return ev
}

func TestLogger(t *testing.T) {
	t.Run("ledger event", func(t *testing.T) {
		var buf bytes.Buffer
		NewLoggerTo(&buf).LogLedger("u1", "o1", "order_refund", "5", "10")

		ev := decodeLine(t, strings.TrimSpace(buf.String()))
		assert.Equal(t, "LEDGER", ev.EventType)
		assert.Equal(t, "u1", ev.UID)
		assert.Equal(t, "o1", ev.OrderID)
		assert.Equal(t, "5", ev.Amount)
		assert.False(t, ev.Timestamp.IsZero())
	})

	t.Run("superseded pricing version", func(t *testing.T) {
		var buf bytes.Buffer
		NewLoggerTo(&buf).LogPricing("ig_likes", "owner", 3, 4, false)

		ev := decodeLine(t, strings.TrimSpace(buf.String()))
		details := ev.Details.(map[string]any)
		assert.Equal(t, float64(3), details["superseded_version"])
		assert.Equal(t, float64(4), details["version"])
		assert.Equal(t, false, details["version_checked"])
	})

	t.Run("ignored and error events", func(t *testing.T) {
		var buf bytes.Buffer
		l := NewLoggerTo(&buf)
		l.LogIgnored("REFUND", "o1", "already refunded")
		l.LogError("o2", "approve", errors.New("boom"))

		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		require.Len(t, lines, 2)
		assert.Equal(t, "IGNORED_REFUND", decodeLine(t, lines[0]).EventType)
		assert.Equal(t, "NOOP", decodeLine(t, lines[0]).Status)
		assert.Equal(t, "FAILED", decodeLine(t, lines[1]).Status)
	})

	t.Run("nil logger is a no-op", func(t *testing.T) {
		var l *Logger
		assert.NotPanics(t, func() { l.LogInventory("p", "restock", 1) })
	})
}
