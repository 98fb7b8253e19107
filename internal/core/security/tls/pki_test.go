package tls

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              测试证书
// ============================================================================

var serialCounter atomic.Int64

// testCert 测试证书与私钥
type testCert struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
}

// certOpts 证书参数
type certOpts struct {
	cn        string
	dns       []string
	isCA      bool
	notBefore time.Time
	notAfter  time.Time
}

// issue 由 parent 签发证书，parent 为 nil 时自签名
func issue(t *testing.T, opts certOpts, parent *testCert) *testCert {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	if opts.notBefore.IsZero() {
		opts.notBefore = time.Now().Add(-time.Hour)
	}
	if opts.notAfter.IsZero() {
		opts.notAfter = time.Now().Add(24 * time.Hour)
	}

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(serialCounter.Add(1)),
		Subject:               pkix.Name{CommonName: opts.cn},
		DNSNames:              opts.dns,
		NotBefore:             opts.notBefore,
		NotAfter:              opts.notAfter,
		BasicConstraintsValid: true,
		IsCA:                  opts.isCA,
	}
	if opts.isCA {
		tmpl.KeyUsage = x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature
	} else {
		tmpl.KeyUsage = x509.KeyUsageDigitalSignature
		tmpl.ExtKeyUsage = []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth}
		tmpl.IPAddresses = []net.IP{net.IPv4(127, 0, 0, 1)}
	}

	signer, signerKey := tmpl, key
	if parent != nil {
		signer, signerKey = parent.cert, parent.key
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, signer, &key.PublicKey, signerKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)
	return &testCert{cert: cert, key: key}
}

func newCA(t *testing.T, cn string) *testCert {
	return issue(t, certOpts{cn: cn, isCA: true}, nil)
}

func newLeaf(t *testing.T, cn string, parent *testCert) *testCert {
	return issue(t, certOpts{cn: cn, dns: []string{cn}}, parent)
}

func (c *testCert) certPEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.cert.Raw})
}

func (c *testCert) keyPEM(t *testing.T) []byte {
	t.Helper()
	der, err := x509.MarshalECPrivateKey(c.key)
	require.NoError(t, err)
	return pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: der})
}

// writeFile 将多个 PEM 块写入临时目录
func writeFile(t *testing.T, dir, name string, blocks ...[]byte) string {
	t.Helper()
	var data []byte
	for _, b := range blocks {
		data = append(data, b...)
	}
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// identity 写出证书链（叶子在前）与私钥，返回参数
func identity(t *testing.T, role types.Role, leaf *testCert, chain ...*testCert) Params {
	t.Helper()
	dir := t.TempDir()

	blocks := [][]byte{leaf.certPEM()}
	for _, c := range chain {
		blocks = append(blocks, c.certPEM())
	}
	p := DefaultParams(role)
	p.CertificateFile = writeFile(t, dir, "cert.pem", blocks...)
	p.PrivateKeyFile = writeFile(t, dir, "key.pem", leaf.keyPEM(t))
	return p
}

// trust 写出信任库文件
func trust(t *testing.T, cas ...*testCert) string {
	t.Helper()
	blocks := make([][]byte, 0, len(cas))
	for _, c := range cas {
		blocks = append(blocks, c.certPEM())
	}
	return writeFile(t, t.TempDir(), "ca.pem", blocks...)
}

func verifyOpts(roots *x509.CertPool) x509.VerifyOptions {
	return x509.VerifyOptions{Roots: roots, KeyUsages: []x509.ExtKeyUsage{x509.ExtKeyUsageAny}}
}
