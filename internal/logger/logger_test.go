package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"wmstudio/internal/config"
)

func TestFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wm.log")
	var console bytes.Buffer
	lg, err := build(config.Log{Level: "debug", File: path, MaxSize: 1}, false, &console)
	assert.NoError(t, err)

	lg.Debug("dmsg", zap.String("source", "a.jpg"))
	lg.Info("imsg")
	_ = lg.Sync()

	data, err := os.ReadFile(path)
	assert.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `"msg":"dmsg"`)
	assert.Contains(t, out, `"source":"a.jpg"`)
	assert.Contains(t, out, `"level":"INFO"`)
	assert.Empty(t, console.String())
}

func TestDevLoggerWritesConsole(t *testing.T) {
	var console bytes.Buffer
	lg, err := build(config.Log{Level: "info"}, true, &console)
	assert.NoError(t, err)

	lg.Debug("hidden")
	lg.Warn("shown")
	_ = lg.Sync()

	out := console.String()
	assert.Contains(t, out, "shown")
	assert.Contains(t, out, "[WARN]")
	assert.NotContains(t, out, "hidden")
}

func TestDefaultLoggerOnlyWarnings(t *testing.T) {
	var console bytes.Buffer
	lg, err := build(config.Log{Level: "debug"}, false, &console)
	assert.NoError(t, err)

	lg.Info("quiet")
	lg.Error("loud")
	_ = lg.Sync()

	out := console.String()
	assert.False(t, strings.Contains(out, "quiet"))
	assert.Contains(t, out, "loud")
}

func TestBadLevel(t *testing.T) {
	_, err := New(config.Log{Level: "chatty"}, false)
	assert.Error(t, err)
}
