package main

import (
	"bytes"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// logInterceptor keeps the last log lines in memory, so that they can be
// shown inside the dashboard instead of garbling the terminal.
type logInterceptor struct {
	keep     int
	messages []string
	mtx      sync.Mutex
}

func (li *logInterceptor) Write(p []byte) (n int, err error) {
	li.mtx.Lock()
	for _, line := range strings.Split(string(bytes.TrimSpace(p)), "\n") {
		li.messages = append(li.messages, line)
	}
	if li.keep > 0 {
		li.truncate()
	}
	li.mtx.Unlock()

	return len(p), nil
}

func (li *logInterceptor) Sync() error {
	return nil
}

func (li *logInterceptor) truncate() {
	if delta := len(li.messages) - li.keep; delta > 0 {
		li.messages = li.messages[delta:]
	}
}

// Messages returns a copy of the kept lines.
func (li *logInterceptor) Messages() []string {
	li.mtx.Lock()
	defer li.mtx.Unlock()
	return append([]string(nil), li.messages...)
}

// core returns a zap core writing human readable lines into li.
func (li *logInterceptor) core(level zapcore.LevelEnabler) zapcore.Core {
	encoder := zap.NewDevelopmentEncoderConfig()
	encoder.TimeKey = ""
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoder), li, level)
}

func interceptLog(keep int) *logInterceptor {
	return &logInterceptor{keep: keep}
}
