package ping

import (
	"context"
	"net"
	"sync/atomic"
	"time"
)

// Ping sends a single ICMP echo request and waits for the reply.
func (pinger *Pinger) Ping(remote *net.IPAddr) error {
	_, err := pinger.PingContext(context.Background(), remote)
	return err
}

// PingContext sends a single ICMP echo request and returns the round trip
// time once the reply arrives. It gives up after Pinger.Timeout or when
// ctx is done, whichever comes first. There are no retries.
func (pinger *Pinger) PingContext(ctx context.Context, remote *net.IPAddr) (time.Duration, error) {
	seq := uint16(atomic.AddUint32(&sequence, 1))
	req := newRequest()

	pinger.payloadMu.RLock()
	data := pinger.payload
	pinger.payloadMu.RUnlock()

	// enqueue in currently running requests
	pinger.mtx.Lock()
	pinger.requests[seq] = req
	pinger.mtx.Unlock()

	// dequeue request, a late reply is dropped by process()
	defer func() {
		pinger.mtx.Lock()
		delete(pinger.requests, seq)
		pinger.mtx.Unlock()
	}()

	// start measurement (tStop is set in the receiving end)
	req.tStart = time.Now()

	if err := pinger.conn.WriteTo(remote, int(seq), data); err != nil {
		return 0, err
	}

	timeout := pinger.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-req.wait:
		if req.result != nil {
			return 0, req.result
		}
		return req.roundTripTime(), nil
	case <-timer.C:
		return 0, &timeoutError{}
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}
