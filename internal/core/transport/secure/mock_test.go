package secure

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dep2p/go-netssl/internal/core/netaddr"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	transportif "github.com/dep2p/go-netssl/pkg/interfaces/transport"
	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              mockPlain
// ============================================================================

// mockPlain 记录调用次数的普通监听套接字
type mockPlain struct {
	binds   atomic.Int32
	listens atomic.Int32
	accepts atomic.Int32
	closes  atomic.Int32
	fd      atomic.Int32

	AcceptFunc func(timeout time.Duration) (net.Conn, netaddr.Address, error)
}

var _ transportif.PlainListener = (*mockPlain)(nil)

func newMockPlain() *mockPlain {
	m := &mockPlain{}
	m.fd.Store(-1)
	return m
}

func (m *mockPlain) Bind(netaddr.Address, bool) error {
	m.binds.Add(1)
	m.fd.Store(7)
	return nil
}

func (m *mockPlain) Listen(int) error {
	m.listens.Add(1)
	m.fd.Store(8)
	return nil
}

func (m *mockPlain) AcceptConnection(timeout time.Duration) (net.Conn, netaddr.Address, error) {
	m.accepts.Add(1)
	if m.AcceptFunc != nil {
		return m.AcceptFunc(timeout)
	}
	return nil, netaddr.Address{}, types.ErrTimedOut
}

func (m *mockPlain) Close() error {
	m.closes.Add(1)
	m.fd.Store(-1)
	return nil
}

func (m *mockPlain) Fd() int {
	return int(m.fd.Load())
}

func (m *mockPlain) Address() netaddr.Address {
	return netaddr.MustParse("127.0.0.1:4433")
}

// calls 返回除 Close 外的调用总数
func (m *mockPlain) calls() int32 {
	return m.binds.Load() + m.listens.Load() + m.accepts.Load()
}

// ============================================================================
//                              证书辅助
// ============================================================================

// serverContext 生成自签名证书并构建服务端上下文
func serverContext(t *testing.T) (*tlsimpl.Context, *x509.CertPool) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "localhost"},
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	leaf, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{{Certificate: [][]byte{der}, PrivateKey: key, Leaf: leaf}},
	}
	ctx, err := tlsimpl.NewStaticContext(tlsimpl.Params{Role: types.RoleServer}, cfg)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(leaf)
	return ctx, pool
}

// clientConfig 信任 pool 的客户端配置
func clientConfig(pool *x509.CertPool) *tls.Config {
	return &tls.Config{
		MinVersion: tls.VersionTLS12,
		RootCAs:    pool,
		ServerName: "localhost",
	}
}
