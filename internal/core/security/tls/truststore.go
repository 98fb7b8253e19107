package tls

import (
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"
)

// LoadTrustStore 构建信任库
//
// loadDefaults 为 true 时从系统信任根开始；location 可以是 PEM 文件或目录，
// 目录中不含 PEM 证书的文件被跳过。
func LoadTrustStore(location string, loadDefaults bool) (*x509.CertPool, error) {
	pool := x509.NewCertPool()
	if loadDefaults {
		sys, err := x509.SystemCertPool()
		if err != nil {
			log.Warn("加载系统信任根失败", "err", err)
		} else {
			pool = sys
		}
	}

	if location == "" {
		return pool, nil
	}

	info, err := os.Stat(location)
	if err != nil {
		return nil, fmt.Errorf("trust store: %w", err)
	}

	if !info.IsDir() {
		data, err := os.ReadFile(location)
		if err != nil {
			return nil, fmt.Errorf("trust store: %w", err)
		}
		if !pool.AppendCertsFromPEM(data) {
			return nil, fmt.Errorf("trust store %s: %w", location, ErrNoCertificate)
		}
		return pool, nil
	}

	entries, err := os.ReadDir(location)
	if err != nil {
		return nil, fmt.Errorf("trust store: %w", err)
	}
	loaded := 0
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(location, e.Name()))
		if err != nil {
			log.Debug("跳过无法读取的信任库文件", "file", e.Name(), "err", err)
			continue
		}
		if pool.AppendCertsFromPEM(data) {
			loaded++
		}
	}
	log.Debug("信任库目录已加载", "dir", location, "files", loaded)
	return pool, nil
}
