package app

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type published struct {
	mu    sync.Mutex
	texts []string
}

func (p *published) set(text string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.texts = append(p.texts, text)
}

func (p *published) snapshot() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.texts...)
}

func TestLogPanelKeepsNewestLines(t *testing.T) {
	var out published
	panel := newLogPanel(2, time.Hour, out.set)

	n, err := panel.Write([]byte("first\n\n  second  \nthird\n"))
	require.NoError(t, err)
	assert.Equal(t, 24, n)
	assert.Empty(t, out.snapshot())

	require.NoError(t, panel.Sync())
	assert.Equal(t, []string{"second\nthird"}, out.snapshot())
}

func TestLogPanelCoalescesBursts(t *testing.T) {
	var out published
	panel := newLogPanel(10, 20*time.Millisecond, out.set)
	for _, line := range []string{"a\n", "b\n", "c\n"} {
		_, err := panel.Write([]byte(line))
		require.NoError(t, err)
	}

	assert.Eventually(t, func() bool { return len(out.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, []string{"a\nb\nc"}, out.snapshot())
}

func TestTeeLoggerWritesBothCores(t *testing.T) {
	var out published
	core, logs := observer.New(zapcore.DebugLevel)
	panel := newLogPanel(10, time.Hour, out.set)
	logger := newTeeLogger(core, panel, zapcore.InfoLevel)

	logger.Info("classified", zap.String("session", "abc"))
	logger.Debug("hidden from panel")
	require.NoError(t, logger.Sync())

	assert.Equal(t, 2, logs.Len())
	texts := out.snapshot()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "classified")
	assert.Contains(t, texts[0], `"session": "abc"`)
	assert.NotContains(t, texts[0], "hidden")
}

func TestTeeLoggerWithoutBase(t *testing.T) {
	var out published
	panel := newLogPanel(10, time.Hour, out.set)
	logger := newTeeLogger(nil, panel, zapcore.WarnLevel)
	logger.Info("dropped")
	logger.Warn("kept")
	require.NoError(t, logger.Sync())

	texts := out.snapshot()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "kept")
	assert.NotContains(t, texts[0], "dropped")
}
