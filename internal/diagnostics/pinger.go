package diagnostics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"
)

// Pinger measures round-trip time to a host.
type Pinger interface {
	Ping(ctx context.Context, addr string) (time.Duration, error)
}

// DefaultPinger tries an ICMP echo and falls back to a TCP handshake where
// unprivileged ICMP sockets are unavailable.
func DefaultPinger() Pinger {
	return Chain{NewICMPPinger(), NewTCPPinger()}
}

// Chain tries each pinger in order until one succeeds or ctx ends.
type Chain []Pinger

func (c Chain) Ping(ctx context.Context, addr string) (time.Duration, error) {
	var errs []error
	for _, p := range c {
		rtt, err := p.Ping(ctx, addr)
		if err == nil {
			return rtt, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return 0, errors.Join(errs...)
}

// ICMPPinger sends one echo request over an unprivileged ICMP datagram
// socket.
type ICMPPinger struct {
	id  int
	seq atomic.Uint32
}

func NewICMPPinger() *ICMPPinger {
	return &ICMPPinger{id: os.Getpid() & 0xffff}
}

func (p *ICMPPinger) Ping(ctx context.Context, addr string) (time.Duration, error) {
	ip, err := resolveIPv4(ctx, addr)
	if err != nil {
		return 0, err
	}
	conn, err := icmp.ListenPacket("udp4", "0.0.0.0")
	if err != nil {
		return 0, fmt.Errorf("icmp socket: %w", err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()
	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}

	seq := int(p.seq.Add(1) & 0xffff)
	msg := icmp.Message{
		Type: ipv4.ICMPTypeEcho,
		Code: 0,
		Body: &icmp.Echo{ID: p.id, Seq: seq, Data: []byte("netwatch")},
	}
	b, err := msg.Marshal(nil)
	if err != nil {
		return 0, err
	}

	start := time.Now()
	if _, err := conn.WriteTo(b, &net.UDPAddr{IP: ip}); err != nil {
		return 0, fmt.Errorf("icmp send: %w", err)
	}

	buf := make([]byte, 1500)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if cerr := ctx.Err(); cerr != nil {
				return 0, cerr
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				return 0, context.DeadlineExceeded
			}
			return 0, fmt.Errorf("icmp receive: %w", err)
		}
		rm, err := icmp.ParseMessage(ipv4.ICMPTypeEchoReply.Protocol(), buf[:n])
		if err != nil || rm.Type != ipv4.ICMPTypeEchoReply {
			continue
		}
		// The kernel rewrites the echo ID on datagram sockets, so match on
		// sequence only.
		if echo, ok := rm.Body.(*icmp.Echo); ok && echo.Seq == seq {
			return time.Since(start), nil
		}
	}
}

func resolveIPv4(ctx context.Context, addr string) (net.IP, error) {
	if ip := net.ParseIP(addr); ip != nil {
		if v4 := ip.To4(); v4 != nil {
			return v4, nil
		}
		return nil, fmt.Errorf("icmp: %s is not IPv4", addr)
	}
	ips, err := net.DefaultResolver.LookupIP(ctx, "ip4", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResolutionFailure, err)
	}
	return ips[0], nil
}

// TCPPinger times a TCP handshake. A refused connection still proves the
// host answered, so it counts as reachable.
type TCPPinger struct {
	Ports []string
}

func NewTCPPinger() *TCPPinger {
	return &TCPPinger{Ports: []string{"443", "80"}}
}

func (p *TCPPinger) Ping(ctx context.Context, addr string) (time.Duration, error) {
	var d net.Dialer
	var lastErr error
	for _, port := range p.Ports {
		start := time.Now()
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(addr, port))
		rtt := time.Since(start)
		if err == nil {
			conn.Close()
			return rtt, nil
		}
		if errors.Is(err, syscall.ECONNREFUSED) {
			return rtt, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	if lastErr == nil {
		lastErr = errors.New("tcp ping: no ports configured")
	}
	return 0, lastErr
}
