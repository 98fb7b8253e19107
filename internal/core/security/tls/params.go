package tls

import (
	"github.com/dep2p/go-netssl/internal/config"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

// Params 安全上下文参数
type Params struct {
	// Role 上下文角色
	Role types.Role

	// PrivateKeyFile 私钥文件（PEM）
	PrivateKeyFile string

	// CertificateFile 证书文件（PEM，可包含中间证书）
	CertificateFile string

	// CALocation 信任库，PEM 文件或包含 PEM 文件的目录
	CALocation string

	// VerificationMode 验证模式
	VerificationMode types.VerificationMode

	// VerificationDepth 验证深度，叶子证书之上允许的最大证书数
	VerificationDepth int

	// LoadDefaultCAs 是否加载系统信任根
	LoadDefaultCAs bool

	// CipherList OpenSSL 风格的加密套件列表
	CipherList string
}

// DefaultParams 返回角色的默认参数
func DefaultParams(role types.Role) Params {
	return Params{
		Role:              role,
		VerificationMode:  config.DefaultVerificationMode,
		VerificationDepth: config.DefaultVerificationDepth,
		LoadDefaultCAs:    config.DefaultLoadDefaultCAFile,
		CipherList:        config.DefaultCipherList,
	}
}

// Validate 校验参数
//
// 私钥与证书来源都为空时返回 *types.ConfigError。
func (p Params) Validate() error {
	if !p.Role.Valid() {
		return types.NewConfigError("role", "invalid role %d", int(p.Role))
	}
	if p.PrivateKeyFile == "" && p.CertificateFile == "" {
		return types.NewConfigError(config.KeyPrivateKeyFile,
			"%s context requires %s or %s", p.Role, config.KeyPrivateKeyFile, config.KeyCertificateFile)
	}
	if p.VerificationDepth < 0 {
		return types.NewConfigError(config.KeyVerificationDepth,
			"must not be negative, got %d", p.VerificationDepth)
	}
	return nil
}

// withDefaults 互相补齐证书与私钥路径
func (p Params) withDefaults() Params {
	if p.CertificateFile == "" {
		p.CertificateFile = p.PrivateKeyFile
	}
	if p.PrivateKeyFile == "" {
		p.PrivateKeyFile = p.CertificateFile
	}
	if p.CipherList == "" {
		p.CipherList = config.DefaultCipherList
	}
	return p
}

// Hooks 引擎回调
type Hooks struct {
	// Passphrase 需要私钥口令时调用，返回值按缓冲区容量截断
	Passphrase func(role types.Role) string

	// Verify 对端证书验证失败时调用，返回 true 表示接受
	Verify func(args *securityif.VerificationErrorArgs) bool
}

// passphrase 调用口令回调
func (h Hooks) passphrase(role types.Role) []byte {
	if h.Passphrase == nil {
		return nil
	}
	return passphraseBuffer(h.Passphrase(role))
}

// verify 调用验证回调，未设置时拒绝
func (h Hooks) verify(args *securityif.VerificationErrorArgs) bool {
	if h.Verify == nil {
		return false
	}
	return h.Verify(args)
}

// PassphraseBufferSize 口令缓冲区容量（含结尾零字节）
const PassphraseBufferSize = 1024

// passphraseBuffer 将口令复制进固定容量缓冲区，最多 PassphraseBufferSize-1 字节
func passphraseBuffer(s string) []byte {
	buf := make([]byte, PassphraseBufferSize)
	n := copy(buf[:PassphraseBufferSize-1], s)
	return buf[:n]
}
