package tlsutil

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/dnscache"
)

const (
	defaultDialTimeout = 10 * time.Second
	defaultKeepAlive   = 30 * time.Second
)

// CachingDialer resolves hostnames through a dnscache.Resolver so the handful of
// tracker calls made per finding do not each pay for a DNS round trip.
type CachingDialer struct {
	resolver *dnscache.Resolver
	dialer   *net.Dialer
}

// NewCachingDialer returns a dialer with its own resolver cache.
func NewCachingDialer(timeout time.Duration) *CachingDialer {
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}
	return &CachingDialer{
		resolver: &dnscache.Resolver{},
		dialer: &net.Dialer{
			Timeout:   timeout,
			KeepAlive: defaultKeepAlive,
		},
	}
}

// DialContext resolves the host of address through the cache and dials each
// returned IP until one connects.
func (d *CachingDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(address)
	if err != nil {
		return nil, err
	}

	ips, err := d.resolver.LookupHost(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, &net.DNSError{
			Err:  "no IP addresses found",
			Name: host,
		}
	}

	var errs []error
	for _, ip := range ips {
		conn, err := d.dialer.DialContext(ctx, network, net.JoinHostPort(ip, port))
		if err == nil {
			return conn, nil
		}
		errs = append(errs, err)
		if ctx.Err() != nil {
			break
		}
	}
	return nil, errors.Join(errs...)
}
