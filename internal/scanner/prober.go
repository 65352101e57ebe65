package scanner

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"
)

// ProbeResult is the output of a successful handshake: the leaf's DER
// bytes plus the handshake-parsed fields the decoder falls back to.
type ProbeResult struct {
	Host    string
	Port    int
	RawCert []byte

	PeerSubject   string
	PeerIssuer    string
	PeerNotBefore time.Time
	PeerNotAfter  time.Time
}

// Probe connects to host:port, completes a TLS handshake accepting any
// certificate, and returns the peer's leaf. The dial and handshake share
// one timeout; a hard watchdog force-aborts a probe stuck past it so no
// caller ever waits unbounded.
func (s *CertScanner) Probe(ctx context.Context, host string, port int) (*ProbeResult, error) {
	type outcome struct {
		res *ProbeResult
		err error
	}

	done := make(chan outcome, 1)
	go func() {
		res, err := s.dialLeaf(ctx, host, port)
		done <- outcome{res, err}
	}()

	watchdog := time.NewTimer(s.watchdog)
	defer watchdog.Stop()

	select {
	case out := <-done:
		return out.res, out.err
	case <-watchdog.C:
		s.logger.Warn("probe stalled, aborting", "host", host, "port", port, "watchdog", s.watchdog)
		return nil, &ProbeError{
			Kind:   FailureStalled,
			Host:   host,
			Port:   port,
			Reason: fmt.Sprintf("handshake with %s did not resolve within %s", net.JoinHostPort(host, strconv.Itoa(port)), s.watchdog),
		}
	}
}

// dialLeaf does the actual connect + handshake + leaf extraction. The
// connection is closed on every exit path; only extracted data leaves.
func (s *CertScanner) dialLeaf(ctx context.Context, host string, port int) (*ProbeResult, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	hctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{
			Timeout: s.timeout,
		},
		Config: &tls.Config{
			ServerName:         host,
			InsecureSkipVerify: true, // We want to probe even invalid certs
		},
	}

	netConn, err := dialer.DialContext(hctx, "tcp", addr)
	if err != nil {
		return nil, s.classifyDialError(host, port, err)
	}

	conn := netConn.(*tls.Conn)
	defer conn.Close()

	state := conn.ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return nil, &ProbeError{
			Kind:   FailureNoCertificate,
			Host:   host,
			Port:   port,
			Reason: fmt.Sprintf("peer %s presented no certificates", addr),
		}
	}

	leaf := state.PeerCertificates[0]
	return &ProbeResult{
		Host:          host,
		Port:          port,
		RawCert:       leaf.Raw,
		PeerSubject:   leaf.Subject.String(),
		PeerIssuer:    leaf.Issuer.String(),
		PeerNotBefore: leaf.NotBefore,
		PeerNotAfter:  leaf.NotAfter,
	}, nil
}

// classifyDialError maps socket and deadline failures onto the probe
// failure taxonomy.
func (s *CertScanner) classifyDialError(host string, port int, err error) *ProbeError {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	if errors.Is(err, context.DeadlineExceeded) {
		return &ProbeError{
			Kind:   FailureTimeout,
			Host:   host,
			Port:   port,
			Reason: fmt.Sprintf("connection to %s timed out after %s", addr, s.timeout),
			Err:    err,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ProbeError{
			Kind:   FailureTimeout,
			Host:   host,
			Port:   port,
			Reason: fmt.Sprintf("connection to %s timed out after %s", addr, s.timeout),
			Err:    err,
		}
	}

	return &ProbeError{
		Kind:   FailureConnection,
		Host:   host,
		Port:   port,
		Reason: err.Error(),
		Err:    err,
	}
}
