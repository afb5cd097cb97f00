package internal

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

func marshal(t *testing.T, typ icmp.Type, body icmp.MessageBody) []byte {
	t.Helper()
	b, err := (&icmp.Message{Type: typ, Code: 0, Body: body}).Marshal(nil)
	require.NoError(t, err)
	return b
}

func TestParseReplyEcho(t *testing.T) {
	assert := assert.New(t)

	b := marshal(t, ipv4.ICMPTypeEchoReply, &icmp.Echo{ID: 7, Seq: 42, Data: []byte("abc")})

	echo, icmpErr, ok := ParseReply(ProtocolICMP, b)
	assert.True(ok)
	assert.NoError(icmpErr)
	assert.Equal(42, echo.Seq)
	assert.Equal([]byte("abc"), echo.Data)
}

func TestParseReplyIgnoresRequests(t *testing.T) {
	b := marshal(t, ipv4.ICMPTypeEcho, &icmp.Echo{Seq: 1})

	_, _, ok := ParseReply(ProtocolICMP, b)
	assert.False(t, ok)
}

func TestParseReplyGarbage(t *testing.T) {
	_, _, ok := ParseReply(ProtocolICMP, []byte{0x01})
	assert.False(t, ok)
}

func TestParseReplyDestinationUnreachable(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	request := marshal(t, ipv4.ICMPTypeEcho, &icmp.Echo{ID: 7, Seq: 99, Data: []byte("payload!")})
	hdr := ipv4.Header{
		Version:  ipv4.Version,
		Len:      ipv4.HeaderLen,
		TotalLen: ipv4.HeaderLen + len(request),
		TTL:      64,
		Protocol: ProtocolICMP,
		Src:      net.IPv4(192, 0, 2, 10),
		Dst:      net.IPv4(192, 0, 2, 1),
	}
	hb, err := hdr.Marshal()
	require.NoError(err)

	b := marshal(t, ipv4.ICMPTypeDestinationUnreachable, &icmp.DstUnreach{Data: append(hb, request...)})

	echo, icmpErr, ok := ParseReply(ProtocolICMP, b)
	require.True(ok)
	assert.Equal(99, echo.Seq)
	assert.EqualError(icmpErr, ipv4.ICMPTypeDestinationUnreachable.String())
}

func TestParseReplyEchoV6(t *testing.T) {
	b := marshal(t, ipv6.ICMPTypeEchoReply, &icmp.Echo{Seq: 3})

	echo, icmpErr, ok := ParseReply(ProtocolICMPv6, b)
	assert.True(t, ok)
	assert.NoError(t, icmpErr)
	assert.Equal(t, 3, echo.Seq)
}

func TestWriteToWithoutSocket(t *testing.T) {
	var c Conn
	err := c.WriteTo(&net.IPAddr{IP: net.ParseIP("::1")}, 1, nil)
	assert.ErrorIs(t, err, ErrSocketMissing)
}

func TestPayloadResize(t *testing.T) {
	var p Payload
	p.Resize(16)
	assert.Len(t, p, 16)
	p.Resize(0)
	assert.Len(t, p, 0)
}
