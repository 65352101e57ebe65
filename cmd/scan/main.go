package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/lena/certscope/internal/database/models"
	"github.com/lena/certscope/internal/scanner"
)

// scanResult is the CLI output shape, free of persistence bookkeeping.
type scanResult struct {
	Host          string     `json:"host"`
	Port          int        `json:"port"`
	Status        string     `json:"status"`
	DaysRemaining int        `json:"days_remaining"`
	CommonName    string     `json:"common_name,omitempty"`
	Issuer        string     `json:"issuer,omitempty"`
	ValidFrom     *time.Time `json:"valid_from,omitempty"`
	ValidTo       *time.Time `json:"valid_to,omitempty"`
	Fingerprint   string     `json:"fingerprint,omitempty"`
	SelfSigned    bool       `json:"self_signed"`
	Error         string     `json:"error,omitempty"`
}

func main() {
	var (
		hostsFlag   = flag.String("hosts", "", "comma-separated hosts to scan (required)")
		portsFlag   = flag.String("ports", "", "ports to scan, e.g. \"443,8443\" or \"8400-8500\" (default: common TLS ports)")
		timeout     = flag.Int("timeout", 10, "per-target connect+handshake timeout in seconds")
		concurrency = flag.Int("concurrency", 10, "max targets probed at once")
		warningDays = flag.Int("warning-days", scanner.DefaultWarningDays, "days-remaining threshold for the warning status")
		jsonOut     = flag.Bool("json", false, "print results as JSON instead of a table")
		verbose     = flag.Bool("v", false, "log each probe")
	)
	flag.Parse()

	if *hostsFlag == "" {
		fmt.Fprintln(os.Stderr, "error: -hosts is required")
		flag.Usage()
		os.Exit(1)
	}

	hosts := splitHosts(*hostsFlag)
	if err := scanner.ValidateHosts(hosts); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ports, err := scanner.ParsePortList(*portsFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	certScanner := scanner.NewCertScanner(logger, &scanner.Config{
		Timeout:     time.Duration(*timeout) * time.Second,
		Concurrency: *concurrency,
		WarningDays: *warningDays,
	})

	records := certScanner.Scan(context.Background(), hosts, ports)
	results := toResults(records)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(results); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	printTable(results)
}

func splitHosts(s string) []string {
	var hosts []string
	for _, h := range strings.Split(s, ",") {
		if h = strings.TrimSpace(h); h != "" {
			hosts = append(hosts, h)
		}
	}
	return hosts
}

func toResults(records []models.Certificate) []scanResult {
	results := make([]scanResult, len(records))
	for i, r := range records {
		results[i] = scanResult{
			Host:          r.Host,
			Port:          r.Port,
			Status:        string(r.Status),
			DaysRemaining: r.DaysRemaining,
			CommonName:    r.CommonName,
			Issuer:        r.Issuer,
			ValidFrom:     r.ValidFrom,
			ValidTo:       r.ValidTo,
			Fingerprint:   r.Fingerprint,
			SelfSigned:    r.SelfSigned,
			Error:         r.Error,
		}
	}
	return results
}

func printTable(results []scanResult) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "HOST\tPORT\tSTATUS\tDAYS\tEXPIRES\tCOMMON NAME\tERROR")

	for _, r := range results {
		expires := "-"
		if r.ValidTo != nil {
			expires = r.ValidTo.Format("2006-01-02")
		}
		days := "-"
		if r.Status != string(models.CertStatusError) {
			days = fmt.Sprintf("%d", r.DaysRemaining)
		}
		cn := r.CommonName
		if cn == "" {
			cn = "-"
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			r.Host, r.Port, r.Status, days, expires, cn, r.Error)
	}

	w.Flush()
}
