package tls

import (
	"errors"
	"fmt"

	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
)

// TLS 相关错误
var (
	// ErrNoCertificate 文件中没有证书
	ErrNoCertificate = errors.New("tls: no certificate found")

	// ErrNoPrivateKey 文件中没有私钥
	ErrNoPrivateKey = errors.New("tls: no private key found")

	// ErrKeyMismatch 私钥与证书公钥不匹配
	ErrKeyMismatch = errors.New("tls: private key does not match certificate")

	// ErrIncorrectPassphrase 私钥口令错误
	ErrIncorrectPassphrase = errors.New("tls: incorrect private key passphrase")

	// ErrUnsupportedKey 不支持的私钥格式或算法
	ErrUnsupportedKey = errors.New("tls: unsupported private key")

	// ErrCertificateRejected 对端证书被拒绝
	ErrCertificateRejected = errors.New("tls: peer certificate rejected")
)

// VerificationError 对端证书验证失败且未被覆盖
type VerificationError struct {
	Code   securityif.ErrorCode
	Depth  int
	Reason string
}

func (e *VerificationError) Error() string {
	return fmt.Sprintf("%s: %s at depth %d: %s", ErrCertificateRejected, e.Code, e.Depth, e.Reason)
}

// Is 使 errors.Is(err, ErrCertificateRejected) 成立
func (e *VerificationError) Is(target error) bool {
	return target == ErrCertificateRejected
}
