package tls

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ============================================================================
//                              证书链
// ============================================================================

// LoadCertificateChain 读取 PEM 文件中的全部证书，第一个为叶子证书
func LoadCertificateChain(path string) ([]*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read certificate file: %w", err)
	}
	return ParseCertificateChain(data)
}

// ParseCertificateChain 解析 PEM 数据中的全部证书
func ParseCertificateChain(data []byte) ([]*x509.Certificate, error) {
	var chain []*x509.Certificate
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			break
		}
		if block.Type != "CERTIFICATE" {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			return nil, fmt.Errorf("parse certificate: %w", err)
		}
		chain = append(chain, cert)
	}
	if len(chain) == 0 {
		return nil, ErrNoCertificate
	}
	return chain, nil
}

// ============================================================================
//                              私钥
// ============================================================================

// LoadPrivateKey 读取 PEM 文件中的第一个私钥
//
// 私钥加密时调用 passphrase 获取口令，passphrase 可以为 nil。
func LoadPrivateKey(path string, passphrase func() []byte) (crypto.Signer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read private key file: %w", err)
	}
	return ParsePrivateKey(data, passphrase)
}

// ParsePrivateKey 解析 PEM 数据中的第一个私钥
func ParsePrivateKey(data []byte, passphrase func() []byte) (crypto.Signer, error) {
	block := findKeyBlock(data)
	if block == nil {
		return nil, ErrNoPrivateKey
	}

	der := block.Bytes
	switch {
	case block.Type == "ENCRYPTED PRIVATE KEY":
		var err error
		der, err = decryptPKCS8(der, askPassphrase(passphrase))
		if err != nil {
			return nil, err
		}
	//nolint:staticcheck // 传统加密 PEM 仍广泛用于 OpenSSL 生成的私钥
	case x509.IsEncryptedPEMBlock(block):
		var err error
		der, err = x509.DecryptPEMBlock(block, askPassphrase(passphrase)) //nolint:staticcheck
		if err != nil {
			if errors.Is(err, x509.IncorrectPasswordError) {
				return nil, ErrIncorrectPassphrase
			}
			return nil, fmt.Errorf("decrypt private key: %w", err)
		}
	}

	return parseKeyDER(der)
}

// findKeyBlock 查找第一个私钥块
func findKeyBlock(data []byte) *pem.Block {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil
		}
		if strings.HasSuffix(block.Type, "PRIVATE KEY") {
			return block
		}
	}
}

func askPassphrase(passphrase func() []byte) []byte {
	if passphrase == nil {
		return nil
	}
	return passphrase()
}

// parseKeyDER 依次尝试 PKCS#1、PKCS#8、SEC1
func parseKeyDER(der []byte) (crypto.Signer, error) {
	if key, err := x509.ParsePKCS1PrivateKey(der); err == nil {
		return key, nil
	}
	if key, err := x509.ParsePKCS8PrivateKey(der); err == nil {
		switch k := key.(type) {
		case *rsa.PrivateKey:
			return k, nil
		case *ecdsa.PrivateKey:
			return k, nil
		case ed25519.PrivateKey:
			return k, nil
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnsupportedKey, key)
		}
	}
	if key, err := x509.ParseECPrivateKey(der); err == nil {
		return key, nil
	}
	return nil, ErrUnsupportedKey
}

// keyMatches 私钥是否与证书公钥匹配
func keyMatches(cert *x509.Certificate, key crypto.Signer) bool {
	pub, ok := cert.PublicKey.(interface{ Equal(crypto.PublicKey) bool })
	return ok && pub.Equal(key.Public())
}
