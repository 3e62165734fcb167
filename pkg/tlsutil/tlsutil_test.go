package tlsutil

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTLSServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestNormalizeFingerprint(t *testing.T) {
	assert.Equal(t, "abcdef01", NormalizeFingerprint(" AB:CD:EF:01 "))
}

func TestNewHTTPClientPinsFingerprint(t *testing.T) {
	srv := newTLSServer(t)
	fingerprint := Fingerprint(srv.Certificate().Raw)

	// Colon-separated uppercase form is accepted.
	var pairs []string
	for i := 0; i < len(fingerprint); i += 2 {
		pairs = append(pairs, strings.ToUpper(fingerprint[i:i+2]))
	}

	client := NewHTTPClient(ClientOptions{VerifySSL: true, Fingerprint: strings.Join(pairs, ":"), Timeout: 5 * time.Second})
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestNewHTTPClientRejectsWrongFingerprint(t *testing.T) {
	srv := newTLSServer(t)

	client := NewHTTPClient(ClientOptions{Fingerprint: strings.Repeat("0", 64), Timeout: 5 * time.Second})
	_, err := client.Get(srv.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fingerprint mismatch")
}

func TestNewHTTPClientVerifyModes(t *testing.T) {
	srv := newTLSServer(t)

	insecure := NewHTTPClient(ClientOptions{VerifySSL: false, Timeout: 5 * time.Second})
	resp, err := insecure.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	// httptest certificates are not in the system roots.
	secure := NewHTTPClient(ClientOptions{VerifySSL: true, Timeout: 5 * time.Second})
	_, err = secure.Get(srv.URL)
	assert.Error(t, err)
}

func TestNewHTTPClientDefaultTimeout(t *testing.T) {
	client := NewHTTPClient(ClientOptions{})
	assert.Equal(t, DefaultTimeout, client.Timeout)
}

func TestCachingDialer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err == nil {
			conn.Close()
		}
	}()

	dialer := NewCachingDialer(time.Second)
	conn, err := dialer.DialContext(context.Background(), "tcp", ln.Addr().String())
	require.NoError(t, err)
	conn.Close()

	_, err = dialer.DialContext(context.Background(), "tcp", "missing-port")
	assert.Error(t, err)
}
