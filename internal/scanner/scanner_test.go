package scanner

import (
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lena/certscope/internal/database/models"
)

func TestNewCertScanner_Defaults(t *testing.T) {
	scanner := NewCertScanner(newTestLogger(), nil)
	require.NotNil(t, scanner)

	assert.Equal(t, 10*time.Second, scanner.timeout)
	assert.Equal(t, 15*time.Second, scanner.watchdog)
	assert.Equal(t, 10, scanner.concurrency)
	assert.Equal(t, DefaultWarningDays, scanner.warningDays)
}

func TestNewCertScanner_WatchdogTracksTimeout(t *testing.T) {
	scanner := NewCertScanner(newTestLogger(), &Config{Timeout: 2 * time.Second})

	assert.Equal(t, 2*time.Second, scanner.timeout)
	assert.Equal(t, 7*time.Second, scanner.watchdog)
}

func TestNewCertScanner_CustomConfig(t *testing.T) {
	scanner := NewCertScanner(newTestLogger(), &Config{
		Timeout:     4 * time.Second,
		Watchdog:    30 * time.Second,
		Concurrency: 25,
		WarningDays: 14,
	})

	assert.Equal(t, 4*time.Second, scanner.timeout)
	assert.Equal(t, 30*time.Second, scanner.watchdog)
	assert.Equal(t, 25, scanner.concurrency)
	assert.Equal(t, 14, scanner.warningDays)
}

func TestCertScanner_ScanTarget_Statuses(t *testing.T) {
	base := time.Now()

	tests := []struct {
		name       string
		notBefore  time.Time
		notAfter   time.Time
		wantStatus models.CertStatus
		wantDays   int
	}{
		{"healthy", base.Add(-time.Hour), base.Add(90*24*time.Hour + time.Hour), models.CertStatusValid, 90},
		{"expiring soon", base.Add(-time.Hour), base.Add(5*24*time.Hour + time.Hour), models.CertStatusWarning, 5},
		{"already expired", base.Add(-100 * 24 * time.Hour), base.Add(-36 * time.Hour), models.CertStatusExpired, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			der, key := generateTestCert(t, pkix.Name{CommonName: "scan.test"}, tt.notBefore, tt.notAfter, x509.KeyUsageDigitalSignature)
			port := startTLSServer(t, der, key)

			scanner := NewCertScanner(newTestLogger(), &Config{
				Timeout: 2 * time.Second,
				Now:     func() time.Time { return base },
			})

			record := scanner.ScanTarget(context.Background(), "127.0.0.1", port)

			assert.Equal(t, "127.0.0.1", record.Host)
			assert.Equal(t, port, record.Port)
			assert.Equal(t, tt.wantStatus, record.Status)
			assert.Equal(t, tt.wantDays, record.DaysRemaining)
			assert.Equal(t, "scan.test", record.CommonName)
			assert.Equal(t, "CN=scan.test", record.Subject)
			assert.True(t, record.SelfSigned)
			assert.Equal(t, Fingerprint(der), record.Fingerprint)
			assert.Empty(t, record.Error)
			assert.True(t, record.LastScanned.Equal(base))
			require.NotNil(t, record.ValidTo)
			assert.WithinDuration(t, tt.notAfter, *record.ValidTo, 2*time.Second)
		})
	}
}

func TestCertScanner_ScanTarget_ErrorRecord(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	base := time.Now()
	scanner := NewCertScanner(newTestLogger(), &Config{
		Timeout: time.Second,
		Now:     func() time.Time { return base },
	})

	record := scanner.ScanTarget(context.Background(), "127.0.0.1", port)

	assert.Equal(t, "127.0.0.1", record.Host)
	assert.Equal(t, port, record.Port)
	assert.Equal(t, models.CertStatusError, record.Status)
	assert.Contains(t, record.Error, "connection_error")
	assert.True(t, record.LastScanned.Equal(base))
	assert.Nil(t, record.ValidFrom)
	assert.Nil(t, record.ValidTo)
	assert.Empty(t, record.Fingerprint)
}

func TestCertScanner_Scan_MixedBatch(t *testing.T) {
	der, key := generateTestCert(t, pkix.Name{CommonName: "batch.test"},
		time.Now().Add(-time.Hour), time.Now().Add(90*24*time.Hour), x509.KeyUsageDigitalSignature)
	goodPort := startTLSServer(t, der, key)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	deadPort := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	scanner := NewCertScanner(newTestLogger(), &Config{Timeout: 2 * time.Second})

	records := scanner.Scan(context.Background(), []string{"127.0.0.1"}, []int{goodPort, deadPort})

	// One record per host:port pair, failures included
	require.Len(t, records, 2)

	byPort := make(map[int]models.Certificate, len(records))
	for _, r := range records {
		byPort[r.Port] = r
	}

	good := byPort[goodPort]
	assert.Equal(t, models.CertStatusValid, good.Status)
	assert.Equal(t, "batch.test", good.CommonName)

	dead := byPort[deadPort]
	assert.Equal(t, models.CertStatusError, dead.Status)
	assert.NotEmpty(t, dead.Error)
}

func TestCertScanner_Scan_Concurrency(t *testing.T) {
	der, key := generateTestCert(t, pkix.Name{CommonName: "pool.test"},
		time.Now().Add(-time.Hour), time.Now().Add(90*24*time.Hour), x509.KeyUsageDigitalSignature)

	ports := make([]int, 4)
	for i := range ports {
		ports[i] = startTLSServer(t, der, key)
	}

	// Pool smaller than the target count to exercise the semaphore
	scanner := NewCertScanner(newTestLogger(), &Config{
		Timeout:     2 * time.Second,
		Concurrency: 2,
	})

	records := scanner.Scan(context.Background(), []string{"127.0.0.1"}, ports)

	require.Len(t, records, 4)
	for _, r := range records {
		assert.Equal(t, models.CertStatusValid, r.Status)
		assert.Equal(t, Fingerprint(der), r.Fingerprint)
	}
}

func TestCertScanner_Scan_ContextCancellation(t *testing.T) {
	scanner := NewCertScanner(newTestLogger(), &Config{Timeout: 5 * time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	records := scanner.Scan(ctx, []string{"127.0.0.1"}, []int{443, 8443})
	elapsed := time.Since(start)

	assert.Less(t, elapsed, time.Second)
	assert.Empty(t, records)
}

func TestAssembleRecord_DecoderWins(t *testing.T) {
	now := time.Now()
	probe := &ProbeResult{
		Host:          "merge.test",
		Port:          443,
		RawCert:       []byte("raw bytes"),
		PeerSubject:   "CN=handshake",
		PeerIssuer:    "CN=handshake-issuer",
		PeerNotBefore: now.Add(-2 * time.Hour),
		PeerNotAfter:  now.Add(time.Hour),
	}
	fields := &DecodedFields{
		Subject:            "CN=decoded",
		Issuer:             "CN=decoded-issuer",
		CommonName:         "decoded",
		Organization:       "Decoded Org",
		ValidFrom:          now.Add(-3 * time.Hour),
		ValidTo:            now.Add(48 * time.Hour),
		SignatureAlgorithm: "ECDSA-with-SHA256",
		KeyUsage:           []string{"Digital Signature"},
	}

	record := assembleRecord(probe, fields, now)

	assert.Equal(t, "CN=decoded", record.Subject)
	assert.Equal(t, "CN=decoded-issuer", record.Issuer)
	assert.Equal(t, "decoded", record.CommonName)
	assert.Equal(t, "Decoded Org", record.Organization)
	require.NotNil(t, record.ValidTo)
	assert.True(t, record.ValidTo.Equal(now.Add(48*time.Hour)))
	assert.Equal(t, "ECDSA-with-SHA256", record.SignatureAlgorithm)
	assert.Equal(t, []string{"Digital Signature"}, record.KeyUsage)
	assert.Equal(t, Fingerprint([]byte("raw bytes")), record.Fingerprint)
}

func TestAssembleRecord_HandshakeFallback(t *testing.T) {
	now := time.Now()
	probe := &ProbeResult{
		Host:          "merge.test",
		Port:          443,
		RawCert:       []byte("raw bytes"),
		PeerSubject:   "CN=handshake",
		PeerIssuer:    "CN=handshake-issuer",
		PeerNotBefore: now.Add(-2 * time.Hour),
		PeerNotAfter:  now.Add(time.Hour),
	}

	// No decoded fields at all, the handshake view carries the record
	record := assembleRecord(probe, nil, now)

	assert.Equal(t, "CN=handshake", record.Subject)
	assert.Equal(t, "CN=handshake-issuer", record.Issuer)
	assert.Empty(t, record.CommonName)
	require.NotNil(t, record.ValidFrom)
	assert.True(t, record.ValidFrom.Equal(now.Add(-2*time.Hour)))
	require.NotNil(t, record.ValidTo)
	assert.True(t, record.ValidTo.Equal(now.Add(time.Hour)))
	assert.Equal(t, Fingerprint([]byte("raw bytes")), record.Fingerprint)
}

func TestParsePortList_SinglePort(t *testing.T) {
	ports, err := ParsePortList("443")
	require.NoError(t, err)
	assert.Equal(t, []int{443}, ports)
}

func TestParsePortList_MultiplePorts(t *testing.T) {
	ports, err := ParsePortList("443,8443,9443")
	require.NoError(t, err)
	assert.Equal(t, []int{443, 8443, 9443}, ports)
}

func TestParsePortList_Range(t *testing.T) {
	ports, err := ParsePortList("8440-8445")
	require.NoError(t, err)
	assert.Equal(t, []int{8440, 8441, 8442, 8443, 8444, 8445}, ports)
}

func TestParsePortList_MixedFormat(t *testing.T) {
	ports, err := ParsePortList("443,8440-8443")
	require.NoError(t, err)
	assert.Equal(t, []int{443, 8440, 8441, 8442, 8443}, ports)
}

func TestParsePortList_Deduplication(t *testing.T) {
	ports, err := ParsePortList("443,443,8443,443")
	require.NoError(t, err)
	assert.Equal(t, []int{443, 8443}, ports)
}

func TestParsePortList_EmptyReturnsDefaults(t *testing.T) {
	ports, err := ParsePortList("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPorts, ports)
}

func TestParsePortList_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"reversed range", "9000-8000"},
		{"port too high", "443,70000"},
		{"port too low", "0"},
		{"negative port", "-1"},
		{"invalid number", "abc"},
		{"incomplete range", "8000-"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParsePortList(tt.input)
			assert.Error(t, err)
		})
	}
}

func TestParsePortList_WhitespaceHandling(t *testing.T) {
	ports, err := ParsePortList("  443 , 8443  ")
	require.NoError(t, err)
	assert.Equal(t, []int{443, 8443}, ports)
}

func TestValidateHosts(t *testing.T) {
	assert.NoError(t, ValidateHosts([]string{"example.com", "10.0.0.1"}))

	assert.Error(t, ValidateHosts(nil))
	assert.Error(t, ValidateHosts([]string{}))
	assert.Error(t, ValidateHosts([]string{"example.com", ""}))
	assert.Error(t, ValidateHosts([]string{"bad host"}))

	err := ValidateHosts([]string{"10.0.0.0/24"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CIDR")
}

func TestValidatePorts(t *testing.T) {
	assert.NoError(t, ValidatePorts([]int{443, 8443}))

	assert.Error(t, ValidatePorts(nil))
	assert.Error(t, ValidatePorts([]int{}))
	assert.Error(t, ValidatePorts([]int{0}))
	assert.Error(t, ValidatePorts([]int{443, 70000}))
}
