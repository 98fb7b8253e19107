package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"

	"github.com/benbjohnson/clock"

	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

// verifier 对端证书验证器
//
// 每个验证错误交给 Hooks.Verify，被接受则继续后续检查，否则握手失败。
type verifier struct {
	role  types.Role
	mode  types.VerificationMode
	depth int
	roots *x509.CertPool
	clock clock.Clock
	hooks Hooks
}

// verifyConnection 作为 tls.Config.VerifyConnection 使用
func (v *verifier) verifyConnection(cs tls.ConnectionState) error {
	certs := cs.PeerCertificates
	if len(certs) == 0 {
		if v.role.IsServer() {
			// 服务端 strict 模式下 crypto/tls 已要求客户端证书
			return nil
		}
		return v.fail(&securityif.VerificationErrorArgs{
			Role:   v.role,
			Code:   securityif.CodeNoCertificate,
			Reason: "peer did not present a certificate",
		})
	}

	usage := x509.ExtKeyUsageServerAuth
	if v.role.IsServer() {
		usage = x509.ExtKeyUsageClientAuth
	}
	intermediates := x509.NewCertPool()
	for _, c := range certs[1:] {
		intermediates.AddCert(c)
	}

	chains, err := certs[0].Verify(x509.VerifyOptions{
		Roots:         v.roots,
		Intermediates: intermediates,
		CurrentTime:   v.clock.Now(),
		KeyUsages:     []x509.ExtKeyUsage{usage},
	})
	if err != nil {
		if ferr := v.fail(classify(v.role, err, certs, v.clock)); ferr != nil {
			return ferr
		}
	} else if shortest := shortestChain(chains); len(shortest)-1 > v.depth {
		at := v.depth + 1
		if ferr := v.fail(&securityif.VerificationErrorArgs{
			Role:        v.role,
			Certificate: shortest[at],
			Depth:       at,
			Code:        securityif.CodeChainTooLong,
			Reason:      fmt.Sprintf("certificate chain length %d exceeds verification depth %d", len(shortest), v.depth),
		}); ferr != nil {
			return ferr
		}
	}

	if !v.role.IsServer() && cs.ServerName != "" {
		if err := certs[0].VerifyHostname(cs.ServerName); err != nil {
			return v.fail(&securityif.VerificationErrorArgs{
				Role:        v.role,
				Certificate: certs[0],
				Depth:       0,
				Code:        securityif.CodeHostnameMismatch,
				Reason:      err.Error(),
			})
		}
	}
	return nil
}

// fail 分发验证错误，被接受时返回 nil
func (v *verifier) fail(args *securityif.VerificationErrorArgs) error {
	if v.hooks.verify(args) {
		log.Debug("证书验证错误已被处理器接受",
			"role", v.role,
			"code", args.Code,
			"depth", args.Depth,
			"subject", args.Subject())
		return nil
	}
	log.Debug("证书验证失败",
		"role", v.role,
		"code", args.Code,
		"depth", args.Depth,
		"reason", args.Reason)
	return &VerificationError{Code: args.Code, Depth: args.Depth, Reason: args.Reason}
}

// classify 将 x509 验证错误映射为 {证书, 深度, 错误码, 原因}
func classify(role types.Role, err error, certs []*x509.Certificate, clk clock.Clock) *securityif.VerificationErrorArgs {
	args := &securityif.VerificationErrorArgs{
		Role:        role,
		Certificate: certs[0],
		Code:        securityif.CodeUnknown,
		Reason:      err.Error(),
	}

	var (
		unknown  x509.UnknownAuthorityError
		invalid  x509.CertificateInvalidError
		hostname x509.HostnameError
	)
	switch {
	case errors.As(err, &unknown):
		args.Code = securityif.CodeUnknownAuthority
		args.Depth = len(certs) - 1
		args.Certificate = certs[args.Depth]
	case errors.As(err, &invalid):
		args.Depth = depthOf(invalid.Cert, certs)
		if invalid.Cert != nil {
			args.Certificate = invalid.Cert
		}
		switch invalid.Reason {
		case x509.Expired:
			args.Code = securityif.CodeExpired
			if args.Certificate != nil && clk.Now().Before(args.Certificate.NotBefore) {
				args.Code = securityif.CodeNotYetValid
			}
		case x509.NotAuthorizedToSign, x509.CANotAuthorizedForThisName, x509.CANotAuthorizedForExtKeyUsage:
			args.Code = securityif.CodeNotAuthorizedToSign
		case x509.IncompatibleUsage:
			args.Code = securityif.CodeIncompatibleUsage
		case x509.TooManyIntermediates, x509.TooManyConstraints:
			args.Code = securityif.CodeChainTooLong
		}
	case errors.As(err, &hostname):
		args.Code = securityif.CodeHostnameMismatch
	}
	return args
}

// depthOf 返回证书在对端链中的位置，找不到时为 0
func depthOf(cert *x509.Certificate, certs []*x509.Certificate) int {
	if cert == nil {
		return 0
	}
	for i, c := range certs {
		if c.Equal(cert) {
			return i
		}
	}
	return 0
}

func shortestChain(chains [][]*x509.Certificate) []*x509.Certificate {
	var best []*x509.Certificate
	for _, c := range chains {
		if best == nil || len(c) < len(best) {
			best = c
		}
	}
	return best
}
