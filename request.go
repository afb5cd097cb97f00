package ping

import "time"

// A request is a currently running ICMP echo request waiting for an answer.
type request struct {
	wait   chan struct{}
	result error

	tStart time.Time // when was this packet sent?
	tStop  time.Time // when did we receive the reply?
}

func newRequest() *request {
	return &request{wait: make(chan struct{})}
}

// respond is responsible for finishing this request. It takes an error
// as failure reason and the receive timestamp of the reply.
func (req *request) respond(err error, tRecv *time.Time) {
	req.result = err
	if tRecv != nil {
		req.tStop = *tRecv
	} else {
		req.tStop = time.Now()
	}
	close(req.wait)
}

func (req *request) roundTripTime() time.Duration {
	if req.tStop.Before(req.tStart) {
		return 0
	}
	return req.tStop.Sub(req.tStart)
}
