package monitor

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultProbeTimeout bounds a single probe.
const DefaultProbeTimeout = time.Second

// Prober performs a single reachability check. Implementations never
// fail: every problem is reported as a failed Result.
type Prober interface {
	Probe(ctx context.Context, t Target) Result
}

// ProberFunc adapts a function to the Prober interface.
type ProberFunc func(ctx context.Context, t Target) Result

// Probe implements Prober.
func (f ProberFunc) Probe(ctx context.Context, t Target) Result {
	return f(ctx, t)
}

// Echoer sends one ICMP echo request and returns the round trip time.
// *ping.Pinger implements it.
type Echoer interface {
	PingContext(ctx context.Context, remote *net.IPAddr) (time.Duration, error)
}

// ICMPProber probes targets with native ICMP echo requests.
type ICMPProber struct {
	echoer   Echoer
	resolver *Resolver
	timeout  time.Duration
}

// NewICMPProber creates a prober on top of an Echoer. A nil resolver
// selects one with the default cache TTL.
func NewICMPProber(echoer Echoer, resolver *Resolver, timeout time.Duration) *ICMPProber {
	if resolver == nil {
		resolver = NewResolver(DefaultResolveTTL)
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &ICMPProber{
		echoer:   echoer,
		resolver: resolver,
		timeout:  timeout,
	}
}

// Probe implements Prober. The latency is the round trip time measured by
// the socket reader.
func (p *ICMPProber) Probe(ctx context.Context, t Target) Result {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	addr, err := p.resolver.Resolve(ctx, t.Host)
	if err != nil {
		return Failure(t.ID, fmt.Sprintf("resolve %s: %v", t.Host, err))
	}

	rtt, err := p.echoer.PingContext(ctx, addr)
	if err != nil {
		if isTimeout(err) {
			return Failure(t.ID, "Request timeout")
		}
		return Failure(t.ID, err.Error())
	}
	return Success(t.ID, rtt)
}

func isTimeout(err error) bool {
	if err == context.DeadlineExceeded {
		return true
	}
	netErr, isNet := err.(net.Error)
	return isNet && netErr.Timeout()
}

// DefaultResolveTTL is how long host name lookups are cached.
const DefaultResolveTTL = 30 * time.Second

// Resolver resolves host names to IP addresses and caches the answers.
type Resolver struct {
	cache  *cache.Cache
	lookup func(ctx context.Context, host string) ([]net.IPAddr, error)
}

// NewResolver creates a resolver caching lookups for ttl.
func NewResolver(ttl time.Duration) *Resolver {
	return &Resolver{
		cache:  cache.New(ttl, 2*ttl),
		lookup: net.DefaultResolver.LookupIPAddr,
	}
}

// Resolve returns the address of host, preferring IPv4. IP literals are
// returned without a lookup.
func (r *Resolver) Resolve(ctx context.Context, host string) (*net.IPAddr, error) {
	if ip := net.ParseIP(host); ip != nil {
		return &net.IPAddr{IP: ip}, nil
	}
	if cached, found := r.cache.Get(host); found {
		addr := cached.(net.IPAddr)
		return &addr, nil
	}

	addrs, err := r.lookup(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(addrs) == 0 {
		return nil, fmt.Errorf("no addresses found")
	}

	addr := addrs[0]
	for _, a := range addrs {
		if a.IP.To4() != nil {
			addr = a
			break
		}
	}
	r.cache.Set(host, addr, cache.DefaultExpiration)
	return &addr, nil
}
