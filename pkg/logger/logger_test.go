package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/toprank/pkg/config"
)

func decodeEntry(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), "log output: %s", buf.String())
	return entry
}

func TestNewWithWriter_SetsLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"info", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			l := NewWithWriter(&config.Config{Env: "development", LogLevel: tt.level, LogFormat: "json"}, &buf)
			require.NotNil(t, l)
			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		input string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"DEBUG", zerolog.DebugLevel},
		{"warning", zerolog.WarnLevel},
		{"fatal", zerolog.FatalLevel},
		{" trace ", zerolog.TraceLevel},
		{"invalid", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, parseLogLevel(tt.input))
		})
	}
}

func TestJSONOutputCarriesEnv(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&config.Config{Env: "staging", LogLevel: "debug", LogFormat: "json"}, &buf)

	l.Info("ranking completed")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "staging", entry["env"])
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "ranking completed", entry["message"])
}

func TestWithFieldsAndModule(t *testing.T) {
	var buf bytes.Buffer
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	l := &Logger{zlog: zerolog.New(&buf)}

	l.Module("selection").WithFields(map[string]interface{}{
		"symbol": "AAPL",
		"sharpe": 1.5,
	}).Debug("metrics computed")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "selection", entry["module"])
	assert.Equal(t, "AAPL", entry["symbol"])
	assert.Equal(t, 1.5, entry["sharpe"])
	assert.Equal(t, "debug", entry["level"])
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{zlog: zerolog.New(&buf)}

	l.WithError(errors.New("provider unavailable")).Error("fetch failed")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "provider unavailable", entry["error"])
	assert.Equal(t, "fetch failed", entry["message"])
}

func TestConsoleFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&config.Config{Env: "development", LogLevel: "info", LogFormat: "console"}, &buf)

	l.Infof("selected %d stocks", 5)

	assert.Contains(t, buf.String(), "selected 5 stocks")
}

func TestNop(t *testing.T) {
	// must not panic
	Nop().WithField("k", "v").Warn("discarded")
}

type ticker string

func (t ticker) String() string { return string(t) }

func TestForSymbolAndRun(t *testing.T) {
	var buf bytes.Buffer
	l := &Logger{zlog: zerolog.New(&buf)}

	l.ForSymbol(ticker("JNJ")).ForRun(ticker("7f1c")).Info("ranked")

	entry := decodeEntry(t, &buf)
	assert.Equal(t, "JNJ", entry["symbol"])
	assert.Equal(t, "7f1c", entry["run_id"])
}
