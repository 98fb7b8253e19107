// Package tls 实现安全上下文与基于 crypto/tls 的 TLS 引擎
//
// Context 持有一个角色（server/client）的 TLS 配置：证书链、私钥、信任库、
// 验证模式、验证深度和加密套件策略。构建完成后只读，可被任意多个套接字共享。
//
// # 验证模式
//
//	模式          服务端                           客户端
//	none          不请求客户端证书                 不验证服务端证书
//	relaxed       请求，提供则验证                 完整验证
//	strict        必须提供并验证                   完整验证
//	strict-once   请求，提供则验证（仅首次握手）   完整验证
//
// 证书验证由引擎自行完成（而非交给 crypto/tls），每个验证错误以
// {证书, 深度, 错误码, 原因} 交给 Hooks.Verify 决定是否接受。
//
// # 私钥
//
// 支持 PKCS#1、SEC1、PKCS#8 私钥，以及加密的传统 PEM（Proc-Type: 4,ENCRYPTED）
// 和 PKCS#8 ENCRYPTED PRIVATE KEY（PBES2/PBKDF2，AES-CBC 或 3DES）。
// 口令通过 Hooks.Passphrase 获取，截断到 PassphraseBufferSize-1 字节。
//
// # 加密套件
//
// cypherList 使用 OpenSSL 风格语法，见 ParseCipherList。只影响 TLS 1.2，
// TLS 1.3 套件由 crypto/tls 固定。
package tls
