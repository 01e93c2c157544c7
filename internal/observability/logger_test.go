package observability

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vatnor/runway-selector/internal/config"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARN"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("info"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "info", "json")

	logger.Debug("hidden")
	logger.Info("decision", "icao", "ENGM", "kind", "AUTO")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "decision", rec["msg"])
	assert.Equal(t, "ENGM", rec["icao"])
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, "debug", "text")

	logger.Debug("fetching", "icao", "ENZV")

	assert.Contains(t, buf.String(), "msg=fetching")
	assert.Contains(t, buf.String(), "icao=ENZV")
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rwyselect.log")
	logger := NewLogger(&config.Config{LogLevel: "info", LogFormat: "json", LogFile: path})

	logger.Info("written to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "written to file")
}

func TestNewMetricsForTesting(t *testing.T) {
	m := NewMetricsForTesting()
	m.Decisions.WithLabelValues("AUTO").Inc()
	m.Decisions.WithLabelValues("AUTO").Inc()
	m.ManualReasons.WithLabelValues("fog").Inc()

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("AUTO")), 0)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.ManualReasons.WithLabelValues("fog")), 0)
}
