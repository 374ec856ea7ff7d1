package sign

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"strings"
	"time"

	"software.sslmate.com/src/go-pkcs12"
)

// CertificateInfo carries the display fields of one certificate bag.
type CertificateInfo struct {
	Subject   string    `json:"subject"`
	Issuer    string    `json:"issuer"`
	NotBefore time.Time `json:"validFrom"`
	NotAfter  time.Time `json:"validTo"`
}

// InspectionResult is a metadata-only view of a PKCS#12 container.
// Private key material is counted, never exposed.
type InspectionResult struct {
	CertificateCount int               `json:"certificateCount"`
	PrivateKeyCount  int               `json:"privateKeyCount"`
	Certificates     []CertificateInfo `json:"certificates"`
}

// Inspect attempts a best-effort PKCS#12 decode of container with the
// supplied password. Authentication failures and structural decode
// failures are indistinguishable from the container format alone, so
// both collapse into ErrWrongPasswordOrMalformed. No signing, no
// network I/O.
func Inspect(container []byte, password string) (*InspectionResult, error) {
	if len(container) == 0 {
		return nil, ErrNoCertificateContainer
	}

	blocks, err := pkcs12.ToPEM(container, password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrWrongPasswordOrMalformed, err)
	}

	result := &InspectionResult{}
	for _, block := range blocks {
		switch block.Type {
		case "CERTIFICATE":
			result.CertificateCount++
			cert, err := x509.ParseCertificate(block.Bytes)
			if err != nil {
				// Count the bag even when the certificate itself
				// does not parse.
				continue
			}
			result.Certificates = append(result.Certificates, CertificateInfo{
				Subject:   renderName(cert.Subject),
				Issuer:    renderName(cert.Issuer),
				NotBefore: cert.NotBefore,
				NotAfter:  cert.NotAfter,
			})
		case "PRIVATE KEY", "RSA PRIVATE KEY", "EC PRIVATE KEY":
			result.PrivateKeyCount++
		}
	}

	return result, nil
}

// attributeShortNames maps the common X.500 attribute OIDs to their
// short names. Unknown attributes render as their dotted OID.
var attributeShortNames = map[string]string{
	"2.5.4.3":                    "CN",
	"2.5.4.5":                    "serialNumber",
	"2.5.4.6":                    "C",
	"2.5.4.7":                    "L",
	"2.5.4.8":                    "ST",
	"2.5.4.9":                    "street",
	"2.5.4.10":                   "O",
	"2.5.4.11":                   "OU",
	"2.5.4.17":                   "postalCode",
	"0.9.2342.19200300.100.1.25": "DC",
	"1.2.840.113549.1.9.1":       "emailAddress",
}

// renderName joins a distinguished name as comma-separated
// shortName=value pairs in the attribute order stored in the container.
func renderName(name pkix.Name) string {
	parts := make([]string, 0, len(name.Names))
	for _, attr := range name.Names {
		short, ok := attributeShortNames[attr.Type.String()]
		if !ok {
			short = attr.Type.String()
		}
		parts = append(parts, fmt.Sprintf("%s=%v", short, attr.Value))
	}
	return strings.Join(parts, ", ")
}
