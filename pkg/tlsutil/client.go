package tlsutil

import (
	"crypto/tls"
	"net/http"
	"time"
)

// DefaultTimeout applies when ClientOptions.Timeout is unset.
const DefaultTimeout = 60 * time.Second

// ClientOptions describes how to reach a tracker host.
type ClientOptions struct {
	VerifySSL   bool
	Fingerprint string
	Timeout     time.Duration
}

// NewHTTPClient creates an HTTP client with the TLS mode selected by opts:
// fingerprint pinning when a fingerprint is set, no verification when VerifySSL
// is false, system roots otherwise.
func NewHTTPClient(opts ClientOptions) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		MaxIdleConns:          10,
		MaxIdleConnsPerHost:   2,
		IdleConnTimeout:       90 * time.Second,
		DialContext:           NewCachingDialer(defaultDialTimeout).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: timeout,
		ExpectContinueTimeout: 1 * time.Second,
	}

	switch {
	case opts.Fingerprint != "":
		transport.TLSClientConfig = FingerprintVerifier(opts.Fingerprint)
	case !opts.VerifySSL:
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
