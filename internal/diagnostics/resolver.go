package diagnostics

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"
)

// DefaultResolvConf is where the system nameservers are listed.
const DefaultResolvConf = "/etc/resolv.conf"

// Resolver measures DNS resolution latency for a domain.
type Resolver interface {
	Resolve(ctx context.Context, domain string) ([]string, time.Duration, error)
}

// DNSResolver queries nameservers directly so the measured latency is the
// server's, not a local cache's. Without servers it falls back to the
// system resolver.
type DNSResolver struct {
	Servers  []string
	client   *dns.Client
	fallback *net.Resolver
}

// NewDNSResolver loads nameservers from resolvConf. A missing or unreadable
// file leaves the resolver on the system fallback.
func NewDNSResolver(resolvConf string) *DNSResolver {
	r := &DNSResolver{client: &dns.Client{Net: "udp"}, fallback: net.DefaultResolver}
	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return r
	}
	for _, s := range cfg.Servers {
		r.Servers = append(r.Servers, net.JoinHostPort(s, cfg.Port))
	}
	return r
}

// NewDNSResolverWith queries the given host:port servers.
func NewDNSResolverWith(servers ...string) *DNSResolver {
	return &DNSResolver{Servers: servers, client: &dns.Client{Net: "udp"}, fallback: net.DefaultResolver}
}

func (r *DNSResolver) Resolve(ctx context.Context, domain string) ([]string, time.Duration, error) {
	if len(r.Servers) == 0 {
		start := time.Now()
		addrs, err := r.fallback.LookupHost(ctx, domain)
		if err != nil {
			return nil, 0, fmt.Errorf("%w: %s: %v", ErrResolutionFailure, domain, err)
		}
		return addrs, time.Since(start), nil
	}

	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(domain), dns.TypeA)
	m.RecursionDesired = true

	var lastErr error
	for _, srv := range r.Servers {
		in, rtt, err := r.client.ExchangeContext(ctx, m, srv)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, 0, ctx.Err()
			}
			continue
		}
		if in.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("%w: %s: %s from %s", ErrResolutionFailure, domain, dns.RcodeToString[in.Rcode], srv)
			continue
		}
		var addrs []string
		for _, rr := range in.Answer {
			switch v := rr.(type) {
			case *dns.A:
				addrs = append(addrs, v.A.String())
			case *dns.CNAME:
				addrs = append(addrs, v.Target)
			}
		}
		if len(addrs) == 0 {
			lastErr = fmt.Errorf("%w: %s: no answers from %s", ErrResolutionFailure, domain, srv)
			continue
		}
		return addrs, rtt, nil
	}
	return nil, 0, lastErr
}
