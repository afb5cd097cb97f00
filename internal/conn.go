package internal

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

const (
	// ProtocolICMP is the number of the Internet Control Message Protocol
	// (see golang.org/x/net/internal/iana.ProtocolICMP)
	ProtocolICMP = 1

	// ProtocolICMPv6 is the IPv6 Next Header value for ICMPv6
	// see golang.org/x/net/internal/iana.ProtocolIPv6ICMP
	ProtocolICMPv6 = 58
)

var (
	errNotBound = errors.New("need at least one bind address")

	// ErrSocketMissing is returned by WriteTo when no socket for the
	// address family of the destination has been opened.
	ErrSocketMissing = errors.New("socket missing")

	id = os.Getpid() & 0xffff
)

// Receiver is called for every echo reply (icmpError == nil, tRecv set) and
// for every destination unreachable message quoting one of our echo
// requests (icmpError != nil, tRecv == nil).
type Receiver func(body *icmp.Echo, icmpError error, addr net.IPAddr, tRecv *time.Time)

// Conn wraps the IPv4 and IPv6 ICMP sockets. Unprivileged connections use
// datagram ICMP sockets ("udp4"/"udp6"), privileged ones raw sockets.
type Conn struct {
	Receiver   Receiver
	Privileged bool

	conn4 net.PacketConn
	conn6 net.PacketConn
	done  chan struct{}
}

// Open binds the sockets and starts the receiving goroutines. An empty
// bind address skips that address family. You'll need to call Close() to
// cleanup.
func (c *Conn) Open(bind4, bind6 string) error {
	network4, network6 := "udp4", "udp6"
	if c.Privileged {
		network4, network6 = "ip4:icmp", "ip6:ipv6-icmp"
	}

	conn4, err := connectICMP(network4, bind4)
	if err != nil {
		return fmt.Errorf("listen %s on %q: %w", network4, bind4, err)
	}

	conn6, err := connectICMP(network6, bind6)
	if err != nil {
		if conn4 != nil {
			conn4.Close()
		}
		return fmt.Errorf("listen %s on %q: %w", network6, bind6, err)
	}

	if conn4 == nil && conn6 == nil {
		return errNotBound
	}

	// avoid storing typed nil pointers in the interface fields
	if conn4 != nil {
		c.conn4 = conn4
	}
	if conn6 != nil {
		c.conn6 = conn6
	}

	c.done = make(chan struct{}, 2)
	if c.conn4 != nil {
		go c.receiver(ProtocolICMP, c.conn4)
	}
	if c.conn6 != nil {
		go c.receiver(ProtocolICMPv6, c.conn6)
	}

	return nil
}

// Close closes both sockets and waits for the receivers to return.
func (c *Conn) Close() {
	n := 0
	if c.conn4 != nil {
		c.conn4.Close()
		c.conn4 = nil
		n++
	}
	if c.conn6 != nil {
		c.conn6.Close()
		c.conn6 = nil
		n++
	}
	for ; n > 0 && c.done != nil; n-- {
		<-c.done
	}
}

// receiver listens on the socket and hands every parsed reply to the
// Receiver.
func (c *Conn) receiver(proto int, conn net.PacketConn) {
	defer func() { c.done <- struct{}{} }()

	rb := make([]byte, 1500)
	for {
		n, source, err := conn.ReadFrom(rb)
		if err != nil {
			if netErr, ok := err.(net.Error); ok && netErr.Timeout() {
				continue
			}
			return // socket gone
		}
		tRecv := time.Now()

		var addr net.IPAddr
		switch a := source.(type) {
		case *net.UDPAddr:
			addr.IP = a.IP
			addr.Zone = a.Zone
		case *net.IPAddr:
			addr = *a
		}

		echo, icmpErr, ok := ParseReply(proto, rb[:n])
		if !ok {
			continue
		}
		if icmpErr != nil {
			c.Receiver(echo, icmpErr, addr, nil)
		} else {
			c.Receiver(echo, nil, addr, &tRecv)
		}
	}
}

// ParseReply evaluates a received ICMP message. For an echo reply it
// returns the echo body. For a destination unreachable message it returns
// the quoted echo request together with an error describing the message
// type. ok is false for anything else.
func ParseReply(proto int, b []byte) (echo *icmp.Echo, icmpError error, ok bool) {
	m, err := icmp.ParseMessage(proto, b)
	if err != nil {
		return nil, nil, false
	}

	switch m.Type {
	case ipv4.ICMPTypeEchoReply, ipv6.ICMPTypeEchoReply:
		echo, ok = m.Body.(*icmp.Echo)
		return echo, nil, ok && echo != nil

	case ipv4.ICMPTypeDestinationUnreachable, ipv6.ICMPTypeDestinationUnreachable:
		body, isUnreach := m.Body.(*icmp.DstUnreach)
		if !isUnreach || body == nil {
			return nil, nil, false
		}

		var quoted []byte
		switch proto {
		case ProtocolICMP:
			hdr, err := ipv4.ParseHeader(body.Data)
			if err != nil || hdr.Len > len(body.Data) {
				return nil, nil, false
			}
			quoted = body.Data[hdr.Len:]
		case ProtocolICMPv6:
			// the header itself is not needed, but a parse error means garbage
			if _, err := ipv6.ParseHeader(body.Data); err != nil {
				return nil, nil, false
			}
			quoted = body.Data[ipv6.HeaderLen:]
		default:
			return nil, nil, false
		}

		msg, err := icmp.ParseMessage(proto, quoted)
		if err != nil {
			return nil, nil, false
		}
		echo, isEcho := msg.Body.(*icmp.Echo)
		if !isEcho || echo == nil {
			Logger.Infof("expected *icmp.Echo, got %#v", msg)
			return nil, nil, false
		}
		return echo, fmt.Errorf("%v", m.Type), true
	}

	return nil, nil, false
}

// WriteTo marshals an echo request with the given sequence number and
// payload and sends it to addr.
func (c *Conn) WriteTo(addr *net.IPAddr, seq int, data []byte) error {
	echo := icmp.Echo{
		Seq:  seq,
		Data: data,
	}
	msg := icmp.Message{
		Code: 0,
		Body: &echo,
	}

	var conn net.PacketConn
	if addr.IP.To4() != nil {
		msg.Type = ipv4.ICMPTypeEcho
		conn = c.conn4
	} else {
		msg.Type = ipv6.ICMPTypeEchoRequest
		conn = c.conn6
	}
	if conn == nil {
		return ErrSocketMissing
	}

	// datagram sockets get their identifier assigned by the kernel
	if c.Privileged {
		echo.ID = id
	}

	wb, err := msg.Marshal(nil)
	if err != nil {
		return err
	}

	var dst net.Addr = addr
	if !c.Privileged {
		dst = &net.UDPAddr{IP: addr.IP, Zone: addr.Zone}
	}
	_, err = conn.WriteTo(wb, dst)
	return err
}

// connectICMP opens a new ICMP connection, if network and address are not empty.
func connectICMP(network, address string) (*icmp.PacketConn, error) {
	if network == "" || address == "" {
		return nil, nil
	}

	return icmp.ListenPacket(network, address)
}
