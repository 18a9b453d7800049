package app

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logPanel is the zap sink behind the playground's log view. It keeps the
// newest limit lines and publishes them at most once per delay.
type logPanel struct {
	limit   int
	delay   time.Duration
	publish func(string)

	mu      sync.Mutex
	lines   []string
	pending *time.Timer
}

func newLogPanel(limit int, delay time.Duration, publish func(string)) *logPanel {
	return &logPanel{limit: limit, delay: delay, publish: publish}
}

func (p *logPanel) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, line := range strings.Split(string(b), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			p.lines = append(p.lines, line)
		}
	}
	if over := len(p.lines) - p.limit; over > 0 {
		p.lines = append(p.lines[:0], p.lines[over:]...)
	}
	if p.pending == nil {
		p.pending = time.AfterFunc(p.delay, p.flush)
	}
	return len(b), nil
}

// Sync publishes buffered lines immediately.
func (p *logPanel) Sync() error {
	p.flush()
	return nil
}

func (p *logPanel) flush() {
	p.mu.Lock()
	if p.pending != nil {
		p.pending.Stop()
		p.pending = nil
	}
	text := strings.Join(p.lines, "\n")
	p.mu.Unlock()
	p.publish(text)
}

// newTeeLogger writes to base and, as short console lines, to panel.
func newTeeLogger(base zapcore.Core, panel zapcore.WriteSyncer, level zapcore.LevelEnabler) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	enc.CallerKey = ""
	ui := zapcore.NewCore(zapcore.NewConsoleEncoder(enc), panel, level)
	if base == nil {
		return zap.New(ui)
	}
	return zap.New(zapcore.NewTee(base, ui))
}
