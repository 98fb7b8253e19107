package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOutput(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log := Logger("test")
	log.Info("test message", "key", "value")

	output := buf.String()
	assert.Contains(t, output, "test message")
	assert.Contains(t, output, "key=value")
	assert.Contains(t, output, "subsystem=test")
	assert.Contains(t, output, "level=info")
}

// TestSetOutput_ExistingLogger 已创建的 logger 在切换输出后也写入新目标
func TestSetOutput_ExistingLogger(t *testing.T) {
	log := Logger("test2")

	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log.Info("after switch", "key", "value")
	assert.Contains(t, buf.String(), "after switch")
}

// TestLogger_Cached 同一子系统返回同一实例
func TestLogger_Cached(t *testing.T) {
	assert.Same(t, Logger("cached"), Logger("cached"))
}

// TestSetLevel 动态调整级别
func TestSetLevel(t *testing.T) {
	buf := &bytes.Buffer{}
	SetOutput(buf)
	defer SetOutput(os.Stderr)

	log := Logger("leveltest").With("conn", "c1")
	log.Debug("hidden")
	assert.NotContains(t, buf.String(), "hidden")

	SetLevel("leveltest", slog.LevelDebug)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "conn=c1")
}

// TestParseConfig 测试环境变量解析
func TestParseConfig(t *testing.T) {
	env := map[string]string{
		EnvLogLevel:     "security=debug, transport.tcp=error ,warn",
		EnvLogFormat:    "JSON",
		EnvLogAddSource: "1",
	}
	cfg := parseConfig(func(k string) string { return env[k] })

	require.NotNil(t, cfg)
	assert.Equal(t, slog.LevelWarn, cfg.DefaultLevel)
	assert.Equal(t, FormatJSON, cfg.Format)
	assert.True(t, cfg.AddSource)

	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("security"))
	assert.Equal(t, slog.LevelDebug, cfg.LevelForSubsystem("security.tls"))
	assert.Equal(t, slog.LevelError, cfg.LevelForSubsystem("transport.tcp"))
	assert.Equal(t, slog.LevelWarn, cfg.LevelForSubsystem("transport.secure"))
}

// TestParseConfig_Defaults 未设置环境变量时的默认值
func TestParseConfig_Defaults(t *testing.T) {
	cfg := parseConfig(func(string) string { return "" })
	assert.Equal(t, slog.LevelInfo, cfg.DefaultLevel)
	assert.Equal(t, FormatText, cfg.Format)
	assert.False(t, cfg.AddSource)
}

func TestDiscard(t *testing.T) {
	log := Discard()
	assert.False(t, log.Enabled(context.Background(), slog.LevelError))
}
