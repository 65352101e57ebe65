package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lena/certscope/internal/database/models"
)

// DefaultPorts are the TLS ports scanned when no port list is given.
var DefaultPorts = []int{443, 465, 636, 993, 995, 8443}

// CertScanner probes TLS endpoints and turns their leaf certificates into
// classified records.
type CertScanner struct {
	logger      *slog.Logger
	timeout     time.Duration
	watchdog    time.Duration
	concurrency int
	warningDays int
	now         func() time.Time
}

// Config configures the scanner behavior. Watchdog is the hard abort
// boundary for a whole probe; left zero it defaults to Timeout plus slack.
type Config struct {
	Timeout     time.Duration
	Watchdog    time.Duration
	Concurrency int
	WarningDays int
	Now         func() time.Time
}

// NewCertScanner creates a scanner instance with conservative defaults.
func NewCertScanner(logger *slog.Logger, cfg *Config) *CertScanner {
	timeout := 10 * time.Second
	watchdog := time.Duration(0)
	concurrency := 10
	warningDays := DefaultWarningDays
	now := time.Now

	if cfg != nil {
		if cfg.Timeout > 0 {
			timeout = cfg.Timeout
		}
		if cfg.Watchdog > 0 {
			watchdog = cfg.Watchdog
		}
		if cfg.Concurrency > 0 {
			concurrency = cfg.Concurrency
		}
		if cfg.WarningDays > 0 {
			warningDays = cfg.WarningDays
		}
		if cfg.Now != nil {
			now = cfg.Now
		}
	}
	if watchdog <= 0 {
		watchdog = timeout + 5*time.Second
	}

	return &CertScanner{
		logger:      logger,
		timeout:     timeout,
		watchdog:    watchdog,
		concurrency: concurrency,
		warningDays: warningDays,
		now:         now,
	}
}

// Scan fans the hosts x ports cross-product through Probe, decode, and
// classification, hosts outer, ports inner. Every pair yields exactly one
// record; a failed target becomes an error-status record and the rest of
// the batch carries on. Records arrive in completion order, not input
// order. Cancelling ctx stops dispatching new pairs.
func (s *CertScanner) Scan(ctx context.Context, hosts []string, ports []int) []models.Certificate {
	total := len(hosts) * len(ports)
	results := make([]models.Certificate, 0, total)
	var mu sync.Mutex
	var wg sync.WaitGroup

	// Semaphore for concurrency control
	sem := make(chan struct{}, s.concurrency)

dispatch:
	for _, host := range hosts {
		for _, port := range ports {
			if ctx.Err() != nil {
				break dispatch
			}
			select {
			case <-ctx.Done():
				break dispatch
			case sem <- struct{}{}:
			}

			wg.Add(1)
			go func(h string, p int) {
				defer wg.Done()
				defer func() { <-sem }()

				record := s.ScanTarget(ctx, h, p)

				mu.Lock()
				results = append(results, record)
				mu.Unlock()
			}(host, port)
		}
	}

	wg.Wait()

	s.logger.Info("batch scan complete", "targets", total, "records", len(results))
	return results
}

// ScanTarget probes one host:port and assembles its record. Probe and
// decode failures surface as error-status records, never as errors.
func (s *CertScanner) ScanTarget(ctx context.Context, host string, port int) models.Certificate {
	now := s.now()

	probe, err := s.Probe(ctx, host, port)
	if err != nil {
		s.logger.Debug("probe failed", "host", host, "port", port, "error", err)
		return models.Certificate{
			Host:        host,
			Port:        port,
			Status:      models.CertStatusError,
			Error:       err.Error(),
			LastScanned: now,
		}
	}

	fields, decodeErr := DecodeCertificate(probe.RawCert)
	record := assembleRecord(probe, fields, now)

	if decodeErr != nil {
		s.logger.Debug("decode failed, keeping handshake fields", "host", host, "port", port, "error", decodeErr)
		record.Status = models.CertStatusError
		record.Error = decodeErr.Error()
		return record
	}

	cls := Classify(*record.ValidTo, record.Issuer, record.Subject, now, s.warningDays)
	record.Status = cls.Status
	record.DaysRemaining = cls.DaysRemaining
	record.SelfSigned = cls.SelfSigned
	return record
}

// assembleRecord merges decoded fields over the probe's handshake-derived
// fields. Decoder values win; handshake values only fill gaps, never the
// reverse.
func assembleRecord(probe *ProbeResult, fields *DecodedFields, now time.Time) models.Certificate {
	record := models.Certificate{
		Host:        probe.Host,
		Port:        probe.Port,
		Subject:     probe.PeerSubject,
		Issuer:      probe.PeerIssuer,
		Fingerprint: Fingerprint(probe.RawCert),
		KeyUsage:    []string{},
		LastScanned: now,
	}
	if !probe.PeerNotBefore.IsZero() {
		t := probe.PeerNotBefore
		record.ValidFrom = &t
	}
	if !probe.PeerNotAfter.IsZero() {
		t := probe.PeerNotAfter
		record.ValidTo = &t
	}

	if fields == nil {
		return record
	}

	if fields.Subject != "" {
		record.Subject = fields.Subject
	}
	if fields.Issuer != "" {
		record.Issuer = fields.Issuer
	}
	record.CommonName = fields.CommonName
	record.Organization = fields.Organization
	if !fields.ValidFrom.IsZero() {
		t := fields.ValidFrom
		record.ValidFrom = &t
	}
	if !fields.ValidTo.IsZero() {
		t := fields.ValidTo
		record.ValidTo = &t
	}
	record.SignatureAlgorithm = fields.SignatureAlgorithm
	record.KeyUsage = fields.KeyUsage

	return record
}

// ParsePortList parses a port specification string into a list of ports.
// Supports formats: "443", "443,8443", "8400-8500", "443,9000-9100".
// An empty spec falls back to DefaultPorts.
func ParsePortList(spec string) ([]int, error) {
	if spec == "" {
		ports := make([]int, len(DefaultPorts))
		copy(ports, DefaultPorts)
		return ports, nil
	}

	var ports []int
	seen := make(map[int]bool)

	parts := strings.Split(spec, ",")
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		if strings.Contains(part, "-") {
			// Range: "8400-8500"
			rangeParts := strings.Split(part, "-")
			if len(rangeParts) != 2 {
				return nil, fmt.Errorf("invalid port range: %s", part)
			}

			start, err := strconv.Atoi(strings.TrimSpace(rangeParts[0]))
			if err != nil {
				return nil, fmt.Errorf("invalid port number: %s", rangeParts[0])
			}

			end, err := strconv.Atoi(strings.TrimSpace(rangeParts[1]))
			if err != nil {
				return nil, fmt.Errorf("invalid port number: %s", rangeParts[1])
			}

			if start > end || start < 1 || end > 65535 {
				return nil, fmt.Errorf("invalid port range: %d-%d", start, end)
			}

			for p := start; p <= end; p++ {
				if !seen[p] {
					ports = append(ports, p)
					seen[p] = true
				}
			}
		} else {
			// Single port
			port, err := strconv.Atoi(part)
			if err != nil {
				return nil, fmt.Errorf("invalid port number: %s", part)
			}
			if port < 1 || port > 65535 {
				return nil, fmt.Errorf("port out of range: %d", port)
			}
			if !seen[port] {
				ports = append(ports, port)
				seen[port] = true
			}
		}
	}

	return ports, nil
}

// ValidateHosts rejects empty host lists and entries that are not plain
// hostnames or IPs. CIDR blocks are refused outright instead of being
// probed as literal names.
func ValidateHosts(hosts []string) error {
	if len(hosts) == 0 {
		return errors.New("at least one host is required")
	}
	for _, h := range hosts {
		trimmed := strings.TrimSpace(h)
		if trimmed == "" {
			return errors.New("host entries cannot be empty")
		}
		if strings.Contains(trimmed, "/") {
			return fmt.Errorf("host %q: CIDR notation is not supported, list hosts individually", trimmed)
		}
		if strings.ContainsAny(trimmed, " \t") {
			return fmt.Errorf("host %q contains whitespace", trimmed)
		}
	}
	return nil
}

// ValidatePorts rejects empty port lists and out-of-range entries.
func ValidatePorts(ports []int) error {
	if len(ports) == 0 {
		return errors.New("at least one port is required")
	}
	for _, p := range ports {
		if p < 1 || p > 65535 {
			return fmt.Errorf("port out of range: %d", p)
		}
	}
	return nil
}
