package log

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("quiet text", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		logger := New(&buf, false, false)
		logger.Info("hidden")
		logger.Warn("shown", "fwhm", 3.5)
		out := buf.String()
		assert.NotContains(t, out, "hidden")
		assert.Contains(t, out, "msg=shown")
		assert.Contains(t, out, "fwhm=3.5")
	})

	t.Run("verbose text", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		New(&buf, true, false).Debug("skipping source", "x", 10)
		assert.Contains(t, buf.String(), "level=DEBUG")
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		New(&buf, false, true).Error("failed", "count", 2)

		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec))
		assert.Equal(t, "failed", rec["msg"])
		assert.Equal(t, "ERROR", rec["level"])
		assert.Equal(t, 2.0, rec["count"])
	})
}

func TestDiscard(t *testing.T) {
	t.Parallel()

	logger := Discard()
	assert.False(t, logger.Enabled(t.Context(), slog.LevelError))
	logger.Error("dropped")
}
