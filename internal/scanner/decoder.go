package scanner

import (
	"crypto/sha256"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

// DecodedFields is the normalized view of one parsed certificate.
type DecodedFields struct {
	Subject            string
	Issuer             string
	CommonName         string
	Organization       string
	ValidFrom          time.Time
	ValidTo            time.Time
	SignatureAlgorithm string
	KeyUsage           []string
	Fingerprint        string
}

// dnShortNames maps DN attribute OIDs to their conventional short names.
var dnShortNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.9":                    "STREET",
	"2.5.4.5":                    "SERIALNUMBER",
	"2.5.4.17":                   "POSTALCODE",
	"0.9.2342.19200300.100.1.25": "DC",
	"0.9.2342.19200300.100.1.1":  "UID",
	"1.2.840.113549.1.9.1":       "EMAILADDRESS",
}

var (
	oidCommonName   = asn1.ObjectIdentifier{2, 5, 4, 3}
	oidOrganization = asn1.ObjectIdentifier{2, 5, 4, 10}
)

// signatureAlgorithmNames is the fixed display-name table. Algorithms the
// parser does not recognize are reported by their raw identifier instead.
var signatureAlgorithmNames = map[x509.SignatureAlgorithm]string{
	x509.MD2WithRSA:       "MD2-with-RSA",
	x509.MD5WithRSA:       "MD5-with-RSA",
	x509.SHA1WithRSA:      "SHA1-with-RSA",
	x509.SHA256WithRSA:    "SHA256-with-RSA",
	x509.SHA384WithRSA:    "SHA384-with-RSA",
	x509.SHA512WithRSA:    "SHA512-with-RSA",
	x509.SHA256WithRSAPSS: "SHA256-with-RSA-PSS",
	x509.SHA384WithRSAPSS: "SHA384-with-RSA-PSS",
	x509.SHA512WithRSAPSS: "SHA512-with-RSA-PSS",
	x509.DSAWithSHA1:      "DSA-with-SHA1",
	x509.DSAWithSHA256:    "DSA-with-SHA256",
	x509.ECDSAWithSHA1:    "ECDSA-with-SHA1",
	x509.ECDSAWithSHA256:  "ECDSA-with-SHA256",
	x509.ECDSAWithSHA384:  "ECDSA-with-SHA384",
	x509.ECDSAWithSHA512:  "ECDSA-with-SHA512",
	x509.PureEd25519:      "Ed25519",
}

// keyUsageLabels lists the key-usage bits in their extension bit order.
var keyUsageLabels = []struct {
	bit   x509.KeyUsage
	label string
}{
	{x509.KeyUsageDigitalSignature, "Digital Signature"},
	{x509.KeyUsageContentCommitment, "Non-Repudiation"},
	{x509.KeyUsageKeyEncipherment, "Key Encipherment"},
	{x509.KeyUsageDataEncipherment, "Data Encipherment"},
	{x509.KeyUsageKeyAgreement, "Key Agreement"},
	{x509.KeyUsageCertSign, "Certificate Signing"},
	{x509.KeyUsageCRLSign, "CRL Signing"},
}

// DecodeCertificate parses DER-encoded certificate bytes into normalized
// fields. Pure, no I/O. Malformed input returns a DecodeError; callers keep
// the target alive with the probe's fallback fields.
func DecodeCertificate(raw []byte) (*DecodedFields, error) {
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		return nil, &DecodeError{Err: err}
	}

	return &DecodedFields{
		Subject:            FormatDN(cert.Subject),
		Issuer:             FormatDN(cert.Issuer),
		CommonName:         firstAttribute(cert.Subject, oidCommonName),
		Organization:       firstAttribute(cert.Subject, oidOrganization),
		ValidFrom:          cert.NotBefore,
		ValidTo:            cert.NotAfter,
		SignatureAlgorithm: signatureAlgorithmName(cert),
		KeyUsage:           keyUsageList(cert.KeyUsage),
		Fingerprint:        Fingerprint(raw),
	}, nil
}

// FormatDN renders a distinguished name as ShortName=Value pairs in
// certificate order. A DN with no attributes renders as Unknown.
func FormatDN(name pkix.Name) string {
	if len(name.Names) == 0 {
		return "Unknown"
	}

	parts := make([]string, 0, len(name.Names))
	for _, atv := range name.Names {
		short, ok := dnShortNames[atv.Type.String()]
		if !ok {
			short = atv.Type.String()
		}
		parts = append(parts, fmt.Sprintf("%s=%v", short, atv.Value))
	}
	return strings.Join(parts, ", ")
}

// firstAttribute returns the first value of the given attribute type in
// DN order, or empty when the attribute is absent.
func firstAttribute(name pkix.Name, oid asn1.ObjectIdentifier) string {
	for _, atv := range name.Names {
		if atv.Type.Equal(oid) {
			if s, ok := atv.Value.(string); ok {
				return s
			}
		}
	}
	return ""
}

func signatureAlgorithmName(cert *x509.Certificate) string {
	if name, ok := signatureAlgorithmNames[cert.SignatureAlgorithm]; ok {
		return name
	}

	// Unrecognized algorithm: report the identifier from the signed
	// envelope verbatim rather than dropping it.
	var envelope struct {
		TBS       asn1.RawValue
		Algorithm pkix.AlgorithmIdentifier
		Signature asn1.BitString
	}
	if _, err := asn1.Unmarshal(cert.Raw, &envelope); err == nil && len(envelope.Algorithm.Algorithm) > 0 {
		return "OID: " + envelope.Algorithm.Algorithm.String()
	}
	return "OID: " + cert.SignatureAlgorithm.String()
}

func keyUsageList(usage x509.KeyUsage) []string {
	labels := make([]string, 0, len(keyUsageLabels))
	for _, ku := range keyUsageLabels {
		if usage&ku.bit != 0 {
			labels = append(labels, ku.label)
		}
	}
	return labels
}

// Fingerprint renders the SHA-256 digest of DER bytes as lower-case hex
// pairs joined by colons.
func Fingerprint(raw []byte) string {
	sum := sha256.Sum256(raw)
	hexed := hex.EncodeToString(sum[:])

	pairs := make([]string, 0, len(hexed)/2)
	for i := 0; i < len(hexed); i += 2 {
		pairs = append(pairs, hexed[i:i+2])
	}
	return strings.Join(pairs, ":")
}
