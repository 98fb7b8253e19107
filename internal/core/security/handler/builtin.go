package handler

import (
	"fmt"
	"strings"

	"github.com/dep2p/go-netssl/internal/config"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

// 内置处理器名称
const (
	KeyConsoleHandlerName         = "KeyConsoleHandler"
	KeyFileHandlerName            = "KeyFileHandler"
	ConsoleCertificateHandlerName = "ConsoleCertificateHandler"
	AcceptCertificateHandlerName  = "AcceptCertificateHandler"
	RejectCertificateHandlerName  = "RejectCertificateHandler"
)

// KeyPassword KeyFileHandler 读取口令的选项键（相对于角色前缀）
const KeyPassword = config.KeyPassphraseOptions + "password"

// PassphrasePrompt 控制台口令提示
const PassphrasePrompt = "Enter private key passphrase: "

// AcceptPrompt 控制台证书确认提示
const AcceptPrompt = "Accept the certificate (y,n)? "

// RegisterBuiltins 注册全部内置处理器
func RegisterBuiltins(pp *PassphraseRegistry, cert *CertificateRegistry) {
	if pp != nil {
		pp.Register(KeyConsoleHandlerName, NewKeyConsoleHandler)
		pp.Register(KeyFileHandlerName, NewKeyFileHandler)
	}
	if cert != nil {
		cert.Register(ConsoleCertificateHandlerName, NewConsoleCertificateHandler)
		cert.Register(AcceptCertificateHandlerName, NewAcceptCertificateHandler)
		cert.Register(RejectCertificateHandlerName, NewRejectCertificateHandler)
	}
}

// consoleOf 返回环境中的控制台，未设置时使用标准输入输出
func consoleOf(env Env) Console {
	if env.Console != nil {
		return env.Console
	}
	return NewStdConsole(nil, nil)
}

// ============================================================================
//                              口令处理器
// ============================================================================

// KeyConsoleHandler 从控制台读取私钥口令
type KeyConsoleHandler struct {
	role    types.Role
	console Console
}

// NewKeyConsoleHandler 创建控制台口令处理器
func NewKeyConsoleHandler(env Env) (securityif.PassphraseHandler, error) {
	return &KeyConsoleHandler{role: env.Role, console: consoleOf(env)}, nil
}

// OnPrivateKeyRequested 提示用户输入口令
func (h *KeyConsoleHandler) OnPrivateKeyRequested(args *securityif.PassphraseArgs) {
	if args.Role != h.role {
		return
	}
	pass, err := h.console.ReadPassword(PassphrasePrompt)
	if err != nil {
		log.Warn("读取口令失败", "role", h.role, "err", err)
		return
	}
	args.Passphrase = pass
}

// Close 无资源需要释放
func (h *KeyConsoleHandler) Close() error { return nil }

// KeyFileHandler 从配置读取私钥口令
type KeyFileHandler struct {
	role     types.Role
	password string
}

// NewKeyFileHandler 创建配置口令处理器，读取 <prefix>privateKeyPassphraseHandler.options.password
func NewKeyFileHandler(env Env) (securityif.PassphraseHandler, error) {
	h := &KeyFileHandler{role: env.Role}
	if env.Config != nil {
		h.password = env.Config.GetString(env.Key(KeyPassword), "")
	}
	if h.password == "" {
		log.Debug("未配置私钥口令", "role", env.Role, "key", env.Key(KeyPassword))
	}
	return h, nil
}

// OnPrivateKeyRequested 填入配置的口令
func (h *KeyFileHandler) OnPrivateKeyRequested(args *securityif.PassphraseArgs) {
	if args.Role != h.role {
		return
	}
	args.Passphrase = h.password
}

// Close 清除内存中的口令
func (h *KeyFileHandler) Close() error {
	h.password = ""
	return nil
}

// ============================================================================
//                              证书处理器
// ============================================================================

// ConsoleCertificateHandler 在控制台询问是否接受证书
type ConsoleCertificateHandler struct {
	role    types.Role
	console Console
}

// NewConsoleCertificateHandler 创建控制台证书处理器
func NewConsoleCertificateHandler(env Env) (securityif.CertificateHandler, error) {
	return &ConsoleCertificateHandler{role: env.Role, console: consoleOf(env)}, nil
}

// OnInvalidCertificate 打印证书摘要并询问用户
func (h *ConsoleCertificateHandler) OnInvalidCertificate(args *securityif.VerificationErrorArgs) {
	if args.Role != h.role {
		return
	}

	h.console.Printf("%s", Describe(args))
	answer, err := h.console.ReadLine(AcceptPrompt)
	if err != nil {
		log.Warn("读取确认失败", "role", h.role, "err", err)
		args.SetIgnoreError(false)
		return
	}
	answer = strings.TrimSpace(answer)
	args.SetIgnoreError(answer != "" && (answer[0] == 'y' || answer[0] == 'Y'))
}

// Close 无资源需要释放
func (h *ConsoleCertificateHandler) Close() error { return nil }

// Describe 生成验证失败的可读摘要
func Describe(args *securityif.VerificationErrorArgs) string {
	var b strings.Builder
	b.WriteString("WARNING: Certificate verification failed\n")
	b.WriteString("----------------------------------------\n")
	if c := args.Certificate; c != nil {
		fmt.Fprintf(&b, "Issuer Name:  %s\n", c.Issuer.String())
		fmt.Fprintf(&b, "Subject Name: %s\n", c.Subject.String())
		fmt.Fprintf(&b, "Valid From:   %s\n", c.NotBefore.UTC().Format("2006-01-02 15:04:05 MST"))
		fmt.Fprintf(&b, "Expires On:   %s\n", c.NotAfter.UTC().Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Fprintf(&b, "\nThe certificate yielded the error: %s (%s)\n", args.Reason, args.Code)
	fmt.Fprintf(&b, "The error occurred in the certificate chain at position %d\n", args.Depth)
	return b.String()
}

// AcceptCertificateHandler 接受所有证书错误
//
// 仅适用于测试或完全受控的网络。
type AcceptCertificateHandler struct {
	role types.Role
}

// NewAcceptCertificateHandler 创建接受处理器
func NewAcceptCertificateHandler(env Env) (securityif.CertificateHandler, error) {
	log.Warn("证书验证错误将被全部忽略", "role", env.Role)
	return &AcceptCertificateHandler{role: env.Role}, nil
}

// OnInvalidCertificate 设置忽略错误
func (h *AcceptCertificateHandler) OnInvalidCertificate(args *securityif.VerificationErrorArgs) {
	if args.Role != h.role {
		return
	}
	args.SetIgnoreError(true)
}

// Close 无资源需要释放
func (h *AcceptCertificateHandler) Close() error { return nil }

// RejectCertificateHandler 拒绝所有证书错误
type RejectCertificateHandler struct {
	role types.Role
}

// NewRejectCertificateHandler 创建拒绝处理器
func NewRejectCertificateHandler(env Env) (securityif.CertificateHandler, error) {
	return &RejectCertificateHandler{role: env.Role}, nil
}

// OnInvalidCertificate 明确拒绝
func (h *RejectCertificateHandler) OnInvalidCertificate(args *securityif.VerificationErrorArgs) {
	if args.Role != h.role {
		return
	}
	args.SetIgnoreError(false)
}

// Close 无资源需要释放
func (h *RejectCertificateHandler) Close() error { return nil }
