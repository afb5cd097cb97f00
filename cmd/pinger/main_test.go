package main

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/digineo/go-pinger/monitor"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestLogInterceptorKeepsLastLines(t *testing.T) {
	assert := assert.New(t)
	li := interceptLog(3)

	for i := 0; i < 5; i++ {
		fmt.Fprintf(li, "line %d\n", i)
	}
	assert.Equal([]string{"line 2", "line 3", "line 4"}, li.Messages())

	li.Write([]byte("a\nb\n"))
	assert.Equal([]string{"line 4", "a", "b"}, li.Messages())
}

func TestLogInterceptorCore(t *testing.T) {
	li := interceptLog(0)
	logger := zap.New(li.core(zapcore.DebugLevel))
	logger.Info("hello")

	msgs := li.Messages()
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "hello")
	assert.Contains(t, msgs[0], "INFO")
}

func TestTimestamp(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("12.50ms", ts(12500*time.Microsecond))
	assert.Equal("2s", ts(2*time.Second))
	assert.Equal("5µs", ts(5*time.Microsecond))
}

func TestProbeRounds(t *testing.T) {
	assert := assert.New(t)

	up := monitor.NewTarget("up.example", "Up")
	down := monitor.NewTarget("down.example", "")
	off := monitor.NewTarget("off.example", "")
	off.Enabled = false
	targets := []monitor.Target{up, down, off}

	calls := make(chan string, 10)
	prober := monitor.ProberFunc(func(_ context.Context, t monitor.Target) monitor.Result {
		calls <- t.Host
		if t.Host == "up.example" {
			return monitor.Success(t.ID, 20*time.Millisecond)
		}
		return monitor.Failure(t.ID, "Request timeout")
	})

	batch, history := probeRounds(context.Background(), prober, targets, 2, time.Millisecond)
	assert.Len(batch, 2)
	assert.Len(calls, 4)
	assert.True(batch[up.ID].Success)
	assert.False(batch[down.ID].Success)

	m := history.Metrics(down.ID)
	require.NotNil(t, m)
	assert.Equal(2, m.PacketsSent)
	assert.Equal(2, m.PacketsLost)

	var buf bytes.Buffer
	cmd := &cobra.Command{}
	cmd.SetOut(&buf)
	printResults(cmd, targets, batch, history)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(lines[1], "Up")
	assert.Contains(lines[1], "20ms")
	assert.Contains(lines[1], "0.0%")
	assert.Contains(lines[2], "down.example")
	assert.Contains(lines[2], "Request timeout")
	assert.Contains(lines[2], "100.0%")
	assert.NotContains(buf.String(), "off.example")
}
