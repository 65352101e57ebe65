package scanner

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"log/slog"
	"math/big"
	"net"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// generateTestCert builds a self-signed certificate for test servers.
func generateTestCert(t *testing.T, subject pkix.Name, notBefore, notAfter time.Time, keyUsage x509.KeyUsage) ([]byte, *ecdsa.PrivateKey) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(time.Now().UnixNano()),
		Subject:      subject,
		NotBefore:    notBefore,
		NotAfter:     notAfter,
		KeyUsage:     keyUsage,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	return der, key
}

// startTLSServer serves TLS handshakes with the given certificate on a
// loopback port and returns that port.
func startTLSServer(t *testing.T, der []byte, key *ecdsa.PrivateKey) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	tlsLn := tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key}},
	})

	go func() {
		for {
			conn, err := tlsLn.Accept()
			if err != nil {
				return
			}
			go func(c net.Conn) {
				c.(*tls.Conn).Handshake()
				c.Close()
			}(conn)
		}
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

// startSilentServer accepts TCP connections and never speaks, leaving TLS
// clients hanging mid-handshake.
func startSilentServer(t *testing.T) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	var mu sync.Mutex
	var held []net.Conn
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			held = append(held, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		ln.Close()
		mu.Lock()
		for _, c := range held {
			c.Close()
		}
		mu.Unlock()
	})

	return ln.Addr().(*net.TCPAddr).Port
}

func TestCertScanner_Probe_Success(t *testing.T) {
	notBefore := time.Now().Add(-time.Hour)
	notAfter := time.Now().Add(90 * 24 * time.Hour)
	der, key := generateTestCert(t, pkix.Name{CommonName: "probe.test"}, notBefore, notAfter, x509.KeyUsageDigitalSignature)
	port := startTLSServer(t, der, key)

	scanner := NewCertScanner(newTestLogger(), &Config{Timeout: 2 * time.Second})

	res, err := scanner.Probe(context.Background(), "127.0.0.1", port)
	require.NoError(t, err)
	require.NotNil(t, res)

	assert.Equal(t, "127.0.0.1", res.Host)
	assert.Equal(t, port, res.Port)
	assert.Equal(t, der, res.RawCert)
	assert.Contains(t, res.PeerSubject, "CN=probe.test")
	assert.WithinDuration(t, notBefore, res.PeerNotBefore, 2*time.Second)
	assert.WithinDuration(t, notAfter, res.PeerNotAfter, 2*time.Second)
}

func TestCertScanner_Probe_ConnectionRefused(t *testing.T) {
	// Grab a port and close it again so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	scanner := NewCertScanner(newTestLogger(), &Config{Timeout: 2 * time.Second})

	res, err := scanner.Probe(context.Background(), "127.0.0.1", port)
	assert.Nil(t, res)

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, FailureConnection, probeErr.Kind)
	assert.Equal(t, "127.0.0.1", probeErr.Host)
	assert.Equal(t, port, probeErr.Port)
	assert.NotEmpty(t, probeErr.Reason)
}

func TestCertScanner_Probe_HandshakeTimeout(t *testing.T) {
	port := startSilentServer(t)

	scanner := NewCertScanner(newTestLogger(), &Config{
		Timeout:  300 * time.Millisecond,
		Watchdog: 5 * time.Second,
	})

	start := time.Now()
	res, err := scanner.Probe(context.Background(), "127.0.0.1", port)
	elapsed := time.Since(start)

	assert.Nil(t, res)
	assert.Less(t, elapsed, 2*time.Second)

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, FailureTimeout, probeErr.Kind)
	assert.Contains(t, probeErr.Reason, "timed out")
}

func TestCertScanner_Probe_WatchdogStalled(t *testing.T) {
	port := startSilentServer(t)

	// Watchdog below the handshake timeout so it fires first
	scanner := NewCertScanner(newTestLogger(), &Config{
		Timeout:  5 * time.Second,
		Watchdog: 150 * time.Millisecond,
	})

	start := time.Now()
	res, err := scanner.Probe(context.Background(), "127.0.0.1", port)
	elapsed := time.Since(start)

	assert.Nil(t, res)
	assert.Less(t, elapsed, 2*time.Second)

	var probeErr *ProbeError
	require.ErrorAs(t, err, &probeErr)
	assert.Equal(t, FailureStalled, probeErr.Kind)
	assert.Contains(t, probeErr.Reason, "did not resolve")
}

func TestProbeError_Message(t *testing.T) {
	err := &ProbeError{Kind: FailureTimeout, Host: "example.com", Port: 443, Reason: "connection to example.com:443 timed out after 10s"}
	assert.Equal(t, "timeout: connection to example.com:443 timed out after 10s", err.Error())
}
