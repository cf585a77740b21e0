package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// Public resolvers raced when the system resolver cannot answer.
var fallbackResolvers = []string{
	"1.1.1.1",
	"1.0.0.1",
	"8.8.8.8",
	"8.8.4.4",
	"9.9.9.9",
	"149.112.112.112",
	"208.67.222.222",
	"208.67.220.220",
}

var (
	systemTimeout   = time.Second
	fallbackTimeout = 2 * time.Second
)

// DialContext resolves the host of addr with Lookup and dials the result.
// It has the signature of net.Dialer.DialContext so it can back websocket
// and HTTP clients alike.
func DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// Lookup resolves host to a single address, preferring IPv4. IP literals are
// returned unchanged. The system resolver is tried first; if it fails the
// public resolvers are raced.
func Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	sysCtx, cancel := context.WithTimeout(ctx, systemTimeout)
	ip, err := resolve(sysCtx, &net.Resolver{}, host)
	cancel()
	if err == nil {
		return ip, nil
	}

	return race(ctx, host)
}

func race(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, fallbackTimeout)
	defer cancel()

	results := make(chan result, len(fallbackResolvers))
	for _, server := range fallbackResolvers {
		go func(server string) {
			ip, err := resolve(ctx, via(server), host)
			results <- result{ip: ip, err: err}
		}(server)
	}

	for range fallbackResolvers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("resolving %s: %w", host, ctx.Err())
		}
	}
	return "", fmt.Errorf("resolving %s: all %d fallback resolvers failed", host, len(fallbackResolvers))
}

// via returns a resolver pinned to one DNS server.
func via(server string) *net.Resolver {
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}
}

func resolve(ctx context.Context, r *net.Resolver, host string) (string, error) {
	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", errors.New("no addresses found")
	}
	for _, ip := range ips {
		if parsed := net.ParseIP(ip); parsed != nil && parsed.To4() != nil {
			return ip, nil
		}
	}
	return ips[0], nil
}
