package ping

import (
	"net"
	"time"

	"golang.org/x/net/icmp"
)

// process will finish a currently running Echo Request, if the body is
// an ICMP Echo reply to a request from us.
func (pinger *Pinger) process(body *icmp.Echo, icmpError error, addr net.IPAddr, tRecv *time.Time) {
	seq := uint16(body.Seq)

	// search for existing running echo request, the first answer wins
	pinger.mtx.Lock()
	req := pinger.requests[seq]
	if req != nil {
		delete(pinger.requests, seq)
	}
	pinger.mtx.Unlock()

	if req == nil {
		log.Infof("dropping unexpected reply from %v (seq=%d)", addr.IP, seq)
		return
	}
	req.respond(icmpError, tRecv)
}
