package config

import "github.com/dep2p/go-netssl/pkg/types"

// 安全层配置键（相对于角色前缀 "server." / "client."）
const (
	KeyPrivateKeyFile     = "privateKeyFile"
	KeyCertificateFile    = "certificateFile"
	KeyCALocation         = "caConfig"
	KeyVerificationMode   = "verificationMode"
	KeyVerificationDepth  = "verificationDepth"
	KeyLoadDefaultCAFile  = "loadDefaultCAFile"
	KeyCipherList         = "cypherList"
	KeyPassphraseHandler  = "privateKeyPassphraseHandler.name"
	KeyPassphraseOptions  = "privateKeyPassphraseHandler.options."
	KeyCertificateHandler = "invalidCertificateHandler.name"
)

// 缺省值
const (
	DefaultVerificationMode   = types.VerifyStrict
	DefaultVerificationDepth  = 9
	DefaultLoadDefaultCAFile  = false
	DefaultCipherList         = "ALL:!ADH:!LOW:!EXP:!MD5:@STRENGTH"
	DefaultPassphraseHandler  = "KeyConsoleHandler"
	DefaultCertificateHandler = "ConsoleCertificateHandler"
)

// RolePrefix 返回角色的配置键前缀
//
// namespace 非空时前缀为 "<namespace>.<role>."，否则为 "<role>."。
func RolePrefix(namespace string, role types.Role) string {
	if namespace == "" {
		return role.String() + "."
	}
	return namespace + "." + role.String() + "."
}
