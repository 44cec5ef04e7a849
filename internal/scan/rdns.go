package scan

import (
	"context"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/rs/zerolog"
)

const (
	rdnsTimeout       = 2 * time.Second
	defaultResolvConf = "/etc/resolv.conf"
	fallbackResolver  = "127.0.0.1:53"
)

// Resolver answers reverse DNS queries against the system resolver.
type Resolver struct {
	client *dns.Client
	server string
}

// NewResolver creates a resolver using the first nameserver from
// resolv.conf. An empty path uses the system default.
func NewResolver(resolvConfPath string) *Resolver {
	if resolvConfPath == "" {
		resolvConfPath = defaultResolvConf
	}

	server := fallbackResolver

	if conf, err := dns.ClientConfigFromFile(resolvConfPath); err == nil && len(conf.Servers) > 0 {
		server = conf.Servers[0] + ":" + conf.Port
	}

	return &Resolver{
		client: &dns.Client{Timeout: rdnsTimeout},
		server: server,
	}
}

// LookupPTR resolves an IP to a hostname. Returns "" when the address
// has no PTR record or the query fails.
func (r *Resolver) LookupPTR(ctx context.Context, ip string) string {
	arpa, err := dns.ReverseAddr(ip)
	if err != nil {
		return ""
	}

	msg := new(dns.Msg)
	msg.SetQuestion(arpa, dns.TypePTR)
	msg.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, msg, r.server)
	if err != nil || resp == nil || resp.Rcode != dns.RcodeSuccess {
		return ""
	}

	for _, rr := range resp.Answer {
		if ptr, ok := rr.(*dns.PTR); ok {
			return strings.TrimSuffix(ptr.Ptr, ".")
		}
	}

	return ""
}

// ptrResolver is the part of Resolver the decorator needs.
type ptrResolver interface {
	LookupPTR(ctx context.Context, ip string) string
}

// RDNSDecorator fills missing hostnames on scan results that carry an IP.
type RDNSDecorator struct {
	resolver ptrResolver
}

// NewRDNSDecorator creates a reverse DNS decorator.
func NewRDNSDecorator(resolver ptrResolver) *RDNSDecorator {
	return &RDNSDecorator{resolver: resolver}
}

// Decorate resolves hostnames for results with an IP and no hostname.
func (d *RDNSDecorator) Decorate(ctx context.Context, results []*Result) ([]*Result, error) {
	logger := zerolog.Ctx(ctx)

	decorated := make([]*Result, 0, len(results))

	for _, r := range results {
		clone := *r

		if clone.Hostname == "" && clone.IP != "" {
			if hostname := d.resolver.LookupPTR(ctx, clone.IP); hostname != "" {
				clone.Hostname = hostname

				logger.Debug().
					Str("ip", clone.IP).
					Str("hostname", hostname).
					Msg("reverse dns resolved")
			}
		}

		decorated = append(decorated, &clone)
	}

	return decorated, nil
}
