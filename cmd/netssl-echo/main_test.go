package main

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"io"
	"math/big"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeConfig 写入自签名身份与引用它的 TOML 配置
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		IPAddresses:  []net.IP{net.IPv4(127, 0, 0, 1)},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	pemPath := filepath.Join(dir, "server.pem")
	data := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	data = append(data, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER})...)
	require.NoError(t, os.WriteFile(pemPath, data, 0o600))

	doc := fmt.Sprintf(`[server]
certificateFile = %q
verificationMode = "none"

[server.privateKeyPassphraseHandler]
name = "KeyFileHandler"

[server.invalidCertificateHandler]
name = "RejectCertificateHandler"
`, pemPath)
	cfgPath := filepath.Join(dir, "netssl.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(doc), 0o600))
	return cfgPath
}

// TestServe_Echo 启动服务，回显数据并暴露指标
func TestServe_Echo(t *testing.T) {
	cfg := &settings{
		Listen:           "127.0.0.1:0",
		ConfigFile:       writeConfig(t),
		HandshakeTimeout: 2 * time.Second,
		IdleTimeout:      time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, reg, err := start(ctx, cfg)
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- serve(ctx, app, reg, cfg) }()

	conn, err := tls.Dial("tcp", app.Listener().Address().String(), &tls.Config{
		InsecureSkipVerify: true, //nolint:gosec // 自签名测试证书
	})
	require.NoError(t, err)

	_, err = conn.Write([]byte("ping"))
	require.NoError(t, err)
	buf := make([]byte, 4)
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(buf))
	require.NoError(t, conn.Close())

	rec := httptest.NewRecorder()
	metricsMux(reg).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "netssl_accepted_connections_total 1")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

// TestStart_MissingCertificate 配置缺少证书时启动失败
func TestStart_MissingCertificate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.toml")
	require.NoError(t, os.WriteFile(path, []byte("[server]\nverificationMode = \"none\"\n"), 0o600))

	_, _, err := start(context.Background(), &settings{Listen: "127.0.0.1:0", ConfigFile: path})
	assert.Error(t, err)
}

// TestRun_Version 输出版本后返回
func TestRun_Version(t *testing.T) {
	assert.NoError(t, run([]string{"-version"}))
}

// TestRun_BadFlag 非法参数报错
func TestRun_BadFlag(t *testing.T) {
	assert.Error(t, run([]string{"-no-such-flag"}))
}
