package monitor

import (
	"context"
	"errors"
	"math"
	"os/exec"
	"regexp"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// latencyPattern matches "time=12.3 ms", "time<1ms" and the like. Decimal
// commas are accepted for localized output.
var latencyPattern = regexp.MustCompile(`(?i)time\s*[=<]\s*(\d+(?:[.,]\d+)?)\s*ms`)

// ExecProber probes targets by running the system ping utility.
type ExecProber struct {
	command string
	timeout time.Duration
	goos    string
	run     func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// NewExecProber creates a prober running command (default "ping").
func NewExecProber(command string, timeout time.Duration) *ExecProber {
	if command == "" {
		command = "ping"
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &ExecProber{
		command: command,
		timeout: timeout,
		goos:    runtime.GOOS,
		run:     runCommand,
	}
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Probe implements Prober.
func (p *ExecProber) Probe(ctx context.Context, t Target) Result {
	// leave the utility some room to report its own timeout
	ctx, cancel := context.WithTimeout(ctx, p.timeout+500*time.Millisecond)
	defer cancel()

	start := time.Now()
	output, err := p.run(ctx, p.command, p.args(t.Host)...)
	elapsed := time.Since(start)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return Failure(t.ID, "Host unreachable")
		}
		return Failure(t.ID, err.Error())
	}

	latency, found := ParseLatency(string(output))
	if !found {
		log.Infof("no latency in output of %s %s, using elapsed time %v", p.command, t.Host, elapsed)
		latency = elapsed
	}
	return Success(t.ID, latency)
}

// args builds a single echo request with a reply timeout. The unit of -W
// differs between platforms.
func (p *ExecProber) args(host string) []string {
	switch p.goos {
	case "darwin", "freebsd":
		return []string{"-c", "1", "-W", strconv.FormatInt(p.timeout.Milliseconds(), 10), host}
	case "linux":
		secs := int64((p.timeout + time.Second - 1) / time.Second)
		return []string{"-c", "1", "-W", strconv.FormatInt(secs, 10), host}
	default:
		return []string{"-c", "1", host}
	}
}

// ParseLatency extracts the round trip time from ping output.
func ParseLatency(output string) (time.Duration, bool) {
	m := latencyPattern.FindStringSubmatch(output)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(strings.Replace(m[1], ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return time.Duration(math.Round(value * float64(time.Millisecond))), true
}
