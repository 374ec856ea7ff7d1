package sign

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"software.sslmate.com/src/go-pkcs12"
)

// makeTestP12 builds a container holding exactly one certificate and
// one private key.
func makeTestP12(t *testing.T, password string) []byte {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	template := &x509.Certificate{
		SerialNumber: big.NewInt(42),
		Subject: pkix.Name{
			CommonName:   "Test Signer",
			Organization: []string{"DGSIGNER Test"},
			Country:      []string{"IN"},
		},
		NotBefore: time.Now().Add(-time.Hour),
		NotAfter:  time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	data, err := pkcs12.LegacyDES.Encode(key, cert, nil, password)
	require.NoError(t, err)
	return data
}

func TestInspect(t *testing.T) {
	container := makeTestP12(t, "secret")

	result, err := Inspect(container, "secret")
	require.NoError(t, err)

	assert.Equal(t, 1, result.CertificateCount)
	assert.Equal(t, 1, result.PrivateKeyCount)
	require.Len(t, result.Certificates, 1)

	info := result.Certificates[0]
	assert.NotEmpty(t, info.Subject)
	assert.NotEmpty(t, info.Issuer)
	assert.Contains(t, info.Subject, "CN=Test Signer")
	assert.Contains(t, info.Subject, "O=DGSIGNER Test")
	assert.True(t, info.NotAfter.After(info.NotBefore))
}

func TestInspect_WrongPassword(t *testing.T) {
	container := makeTestP12(t, "secret")

	_, err := Inspect(container, "wrong")
	if !errors.Is(err, ErrWrongPasswordOrMalformed) {
		t.Errorf("Inspect error = %v, want ErrWrongPasswordOrMalformed", err)
	}
}

func TestInspect_MalformedContainer(t *testing.T) {
	// Structural failure and wrong password are reported as the same
	// combined error.
	_, err := Inspect([]byte("garbage bytes, not PKCS#12"), "secret")
	if !errors.Is(err, ErrWrongPasswordOrMalformed) {
		t.Errorf("Inspect error = %v, want ErrWrongPasswordOrMalformed", err)
	}
}

func TestInspect_EmptyContainer(t *testing.T) {
	_, err := Inspect(nil, "secret")
	assert.ErrorIs(t, err, ErrNoCertificateContainer)
}

func TestRenderName_AttributeOrder(t *testing.T) {
	name := pkix.Name{
		Names: []pkix.AttributeTypeAndValue{
			{Type: []int{2, 5, 4, 6}, Value: "IN"},
			{Type: []int{2, 5, 4, 10}, Value: "Example Org"},
			{Type: []int{2, 5, 4, 3}, Value: "Signer"},
		},
	}
	got := renderName(name)
	want := "C=IN, O=Example Org, CN=Signer"
	if got != want {
		t.Errorf("renderName() = %q, want %q", got, want)
	}
}

func TestRenderName_UnknownOID(t *testing.T) {
	name := pkix.Name{
		Names: []pkix.AttributeTypeAndValue{
			{Type: []int{1, 2, 3, 4, 5}, Value: "x"},
		},
	}
	if got := renderName(name); got != "1.2.3.4.5=x" {
		t.Errorf("renderName() = %q, want OID fallback", got)
	}
}
