package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog/log"
)

// publicDNS are servers raced when the system resolver cannot find the broker.
var publicDNS = []string{
	"1.1.1.1",              // Cloudflare
	"1.0.0.1",              // Cloudflare
	"2606:4700:4700::1111", // Cloudflare
	"8.8.8.8",              // Google
	"8.8.4.4",              // Google
	"2001:4860:4860::8888", // Google
	"9.9.9.9",              // Quad9
	"149.112.112.112",      // Quad9
	"208.67.222.222",       // Cisco OpenDNS
}

// Resolver resolves broker hostnames, falling back to a race across public
// resolvers when the local one fails (captive or broken resolvers on phones).
type Resolver struct {
	Servers      []string
	LocalTimeout time.Duration
	RaceTimeout  time.Duration

	// lookup is swapped out in tests.
	lookup func(ctx context.Context, host, server string) ([]string, error)
}

// NewResolver returns a Resolver using the built-in public server list.
func NewResolver() *Resolver {
	return &Resolver{
		Servers:      publicDNS,
		LocalTimeout: time.Second,
		RaceTimeout:  2 * time.Second,
		lookup:       lookupHost,
	}
}

// Lookup resolves a hostname to a single IP address. IP literals are returned
// as-is.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	localCtx, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ips, err := r.lookup(localCtx, host, "")
	cancel()
	if err == nil {
		if ip, ok := preferIPv4(ips); ok {
			return ip, nil
		}
	}

	log.Debug().Str("module", "dns").Str("host", host).Err(err).Msg("local lookup failed, racing public resolvers")
	return r.race(ctx, host)
}

func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RaceTimeout)
	defer cancel()

	results := make(chan result, len(r.Servers))
	for _, server := range r.Servers {
		go func(server string) {
			ips, err := r.lookup(ctx, host, server)
			if err != nil {
				results <- result{err: err}
				return
			}
			ip, ok := preferIPv4(ips)
			if !ok {
				results <- result{err: errors.New("no IPs returned")}
				return
			}
			results <- result{ip: ip}
		}(server)
	}

	failures := 0
	for range r.Servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("dns lookup for %s timed out during public DNS race", host)
		}
	}

	return "", fmt.Errorf("failed to resolve %s: all %d public DNS servers failed", host, failures)
}

// lookupHost queries server, or the system resolver when server is empty.
func lookupHost(ctx context.Context, host, server string) ([]string, error) {
	r := &net.Resolver{}
	if server != "" {
		r.PreferGo = true
		r.Dial = func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		}
	}
	return r.LookupHost(ctx, host)
}

func preferIPv4(ips []string) (string, bool) {
	if len(ips) == 0 {
		return "", false
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, true
		}
	}
	return ips[0], true
}
