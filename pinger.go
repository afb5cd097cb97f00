package ping

import (
	"sync"
	"time"

	"github.com/digineo/go-pinger/internal"
)

// DefaultTimeout is the time a single echo request waits for its reply.
const DefaultTimeout = time.Second

// sequence number for this process
var sequence uint32

// Pinger is a instance for ICMP echo requests
type Pinger struct {
	Timeout time.Duration // timeout per request

	conn      internal.Conn
	requests  map[uint16]*request // currently running requests
	mtx       sync.Mutex          // lock for the requests map
	payload   internal.Payload
	payloadMu sync.RWMutex
}

// New creates a new Pinger. This will open the ICMP sockets and start the
// receiving logic. An empty bind address disables that address family.
// Without privileges, datagram ICMP sockets are used (on Linux this needs
// net.ipv4.ping_group_range to include the current group). You'll need
// to call Close() to cleanup.
func New(bind4, bind6 string, privileged bool) (*Pinger, error) {
	pinger := &Pinger{
		Timeout:  DefaultTimeout,
		requests: make(map[uint16]*request),
	}
	pinger.conn.Privileged = privileged
	pinger.conn.Receiver = pinger.process

	if err := pinger.conn.Open(bind4, bind6); err != nil {
		return nil, err
	}
	return pinger, nil
}

// Close will close the ICMP sockets.
func (pinger *Pinger) Close() {
	pinger.conn.Close()
}

// SetPayloadSize resizes the random payload appended to every request.
func (pinger *Pinger) SetPayloadSize(size uint16) {
	pinger.payloadMu.Lock()
	pinger.payload.Resize(size)
	pinger.payloadMu.Unlock()
}

// PayloadSize returns the current payload size.
func (pinger *Pinger) PayloadSize() uint16 {
	pinger.payloadMu.RLock()
	defer pinger.payloadMu.RUnlock()
	return uint16(len(pinger.payload))
}
