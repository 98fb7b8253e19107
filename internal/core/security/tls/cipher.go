package tls

import (
	"crypto/tls"
	"sort"
	"strings"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              套件表
// ============================================================================

// suite 一个 TLS 1.2 加密套件及其 OpenSSL 分类
type suite struct {
	id       uint16
	openssl  string
	bits     int
	tags     []string
	insecure bool
}

// has 是否带有指定分类标签
func (s *suite) has(tag string) bool {
	for _, t := range s.tags {
		if t == tag {
			return true
		}
	}
	return false
}

// 分类标签与 OpenSSL 别名保持一致
var suites = []*suite{
	{id: tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384, openssl: "ECDHE-ECDSA-AES256-GCM-SHA384", bits: 256,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "ECDSA", "aECDSA", "AES", "AES256", "AESGCM", "SHA384", "HIGH"}},
	{id: tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384, openssl: "ECDHE-RSA-AES256-GCM-SHA384", bits: 256,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "AES", "AES256", "AESGCM", "SHA384", "HIGH"}},
	{id: tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256, openssl: "ECDHE-ECDSA-CHACHA20-POLY1305", bits: 256,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "ECDSA", "aECDSA", "CHACHA20", "SHA256", "HIGH"}},
	{id: tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256, openssl: "ECDHE-RSA-CHACHA20-POLY1305", bits: 256,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "CHACHA20", "SHA256", "HIGH"}},
	{id: tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256, openssl: "ECDHE-ECDSA-AES128-GCM-SHA256", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "ECDSA", "aECDSA", "AES", "AES128", "AESGCM", "SHA256", "HIGH"}},
	{id: tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256, openssl: "ECDHE-RSA-AES128-GCM-SHA256", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "AES", "AES128", "AESGCM", "SHA256", "HIGH"}},
	{id: tls.TLS_ECDHE_ECDSA_WITH_AES_256_CBC_SHA, openssl: "ECDHE-ECDSA-AES256-SHA", bits: 256,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "ECDSA", "aECDSA", "AES", "AES256", "SHA1", "SHA", "HIGH"}},
	{id: tls.TLS_ECDHE_RSA_WITH_AES_256_CBC_SHA, openssl: "ECDHE-RSA-AES256-SHA", bits: 256,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "AES", "AES256", "SHA1", "SHA", "HIGH"}},
	{id: tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA, openssl: "ECDHE-ECDSA-AES128-SHA", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "ECDSA", "aECDSA", "AES", "AES128", "SHA1", "SHA", "HIGH"}},
	{id: tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA, openssl: "ECDHE-RSA-AES128-SHA", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "AES", "AES128", "SHA1", "SHA", "HIGH"}},
	{id: tls.TLS_ECDHE_ECDSA_WITH_AES_128_CBC_SHA256, openssl: "ECDHE-ECDSA-AES128-SHA256", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "ECDSA", "aECDSA", "AES", "AES128", "SHA256", "HIGH"}},
	{id: tls.TLS_ECDHE_RSA_WITH_AES_128_CBC_SHA256, openssl: "ECDHE-RSA-AES128-SHA256", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "AES", "AES128", "SHA256", "HIGH"}},
	{id: tls.TLS_RSA_WITH_AES_256_GCM_SHA384, openssl: "AES256-GCM-SHA384", bits: 256,
		tags: []string{"kRSA", "RSA", "aRSA", "AES", "AES256", "AESGCM", "SHA384", "HIGH"}},
	{id: tls.TLS_RSA_WITH_AES_128_GCM_SHA256, openssl: "AES128-GCM-SHA256", bits: 128,
		tags: []string{"kRSA", "RSA", "aRSA", "AES", "AES128", "AESGCM", "SHA256", "HIGH"}},
	{id: tls.TLS_RSA_WITH_AES_256_CBC_SHA, openssl: "AES256-SHA", bits: 256,
		tags: []string{"kRSA", "RSA", "aRSA", "AES", "AES256", "SHA1", "SHA", "HIGH"}},
	{id: tls.TLS_RSA_WITH_AES_128_CBC_SHA, openssl: "AES128-SHA", bits: 128,
		tags: []string{"kRSA", "RSA", "aRSA", "AES", "AES128", "SHA1", "SHA", "HIGH"}},
	{id: tls.TLS_RSA_WITH_AES_128_CBC_SHA256, openssl: "AES128-SHA256", bits: 128,
		tags: []string{"kRSA", "RSA", "aRSA", "AES", "AES128", "SHA256", "HIGH"}},
	{id: tls.TLS_ECDHE_RSA_WITH_3DES_EDE_CBC_SHA, openssl: "ECDHE-RSA-DES-CBC3-SHA", bits: 112,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "3DES", "SHA1", "SHA", "MEDIUM"}},
	{id: tls.TLS_RSA_WITH_3DES_EDE_CBC_SHA, openssl: "DES-CBC3-SHA", bits: 112,
		tags: []string{"kRSA", "RSA", "aRSA", "3DES", "SHA1", "SHA", "MEDIUM"}},
	{id: tls.TLS_ECDHE_ECDSA_WITH_RC4_128_SHA, openssl: "ECDHE-ECDSA-RC4-SHA", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "ECDSA", "aECDSA", "RC4", "SHA1", "SHA", "MEDIUM"}},
	{id: tls.TLS_ECDHE_RSA_WITH_RC4_128_SHA, openssl: "ECDHE-RSA-RC4-SHA", bits: 128,
		tags: []string{"ECDHE", "EECDH", "kEECDH", "RSA", "aRSA", "RC4", "SHA1", "SHA", "MEDIUM"}},
	{id: tls.TLS_RSA_WITH_RC4_128_SHA, openssl: "RC4-SHA", bits: 128,
		tags: []string{"kRSA", "RSA", "aRSA", "RC4", "SHA1", "SHA", "MEDIUM"}},
}

// byName Go 与 OpenSSL 名称索引
var byName = map[string]*suite{}

func init() {
	insecure := make(map[uint16]bool)
	for _, s := range tls.InsecureCipherSuites() {
		insecure[s.ID] = true
	}
	for _, s := range suites {
		s.insecure = insecure[s.id]
		byName[s.openssl] = s
		byName[tls.CipherSuiteName(s.id)] = s
	}
}

// ============================================================================
//                              列表解析
// ============================================================================

// ParseCipherList 解析 OpenSSL 风格的加密套件列表
//
// 以 ':'、','、';' 或空格分隔，从左到右处理：
//
//	X           追加匹配 X 的套件
//	+X          将已选中且匹配 X 的套件移到末尾
//	-X          从当前列表删除，之后仍可再加入
//	!X          永久删除
//	@STRENGTH   按密钥强度从高到低稳定排序
//
// X 可以是 ALL、DEFAULT、分类别名（HIGH、AESGCM、ECDHE、RSA 等）、
// OpenSSL 或 Go 的套件名，也可以用 '+' 连接多个别名表示交集（如 ECDHE+AESGCM）。
// ALL 与 DEFAULT 不包含 crypto/tls 视为不安全的套件，这些套件只能显式选择。
// 无法识别的别名被忽略。结果为空时返回 cypherList 键的 *types.ConfigError。
func ParseCipherList(list string) ([]uint16, error) {
	var (
		selected []*suite
		killed   = make(map[uint16]bool)
	)

	contains := func(s *suite) bool {
		for _, x := range selected {
			if x == s {
				return true
			}
		}
		return false
	}
	remove := func(match func(*suite) bool) {
		kept := selected[:0]
		for _, s := range selected {
			if !match(s) {
				kept = append(kept, s)
			}
		}
		selected = kept
	}

	for _, tok := range splitCipherList(list) {
		if strings.EqualFold(tok, "@STRENGTH") {
			sort.SliceStable(selected, func(i, j int) bool { return selected[i].bits > selected[j].bits })
			continue
		}
		if strings.HasPrefix(tok, "@") {
			continue
		}

		op := byte(0)
		if tok[0] == '!' || tok[0] == '-' || tok[0] == '+' {
			op, tok = tok[0], tok[1:]
		}
		match := matcher(tok)
		if match == nil {
			log.Debug("忽略未知的加密套件别名", "alias", tok)
			continue
		}

		switch op {
		case '!':
			for _, s := range suites {
				if match(s) {
					killed[s.id] = true
				}
			}
			remove(match)
		case '-':
			remove(match)
		case '+':
			var moved []*suite
			for _, s := range selected {
				if match(s) {
					moved = append(moved, s)
				}
			}
			remove(match)
			selected = append(selected, moved...)
		default:
			for _, s := range suites {
				if match(s) && !killed[s.id] && !contains(s) {
					selected = append(selected, s)
				}
			}
		}
	}

	if len(selected) == 0 {
		return nil, types.NewConfigError(config.KeyCipherList, "no usable cipher suites in %q", list)
	}

	ids := make([]uint16, len(selected))
	for i, s := range selected {
		ids[i] = s.id
	}
	return ids, nil
}

// splitCipherList 拆分列表
func splitCipherList(list string) []string {
	return strings.FieldsFunc(list, func(r rune) bool {
		return r == ':' || r == ',' || r == ';' || r == ' '
	})
}

// matcher 返回别名的匹配函数，无法识别时返回 nil
func matcher(alias string) func(*suite) bool {
	if s, ok := byName[alias]; ok {
		return func(x *suite) bool { return x == s }
	}

	parts := strings.Split(alias, "+")
	preds := make([]func(*suite) bool, 0, len(parts))
	for _, p := range parts {
		pred := category(p)
		if pred == nil {
			return nil
		}
		preds = append(preds, pred)
	}
	return func(s *suite) bool {
		for _, pred := range preds {
			if !pred(s) {
				return false
			}
		}
		return true
	}
}

// category 返回分类别名的匹配函数
func category(alias string) func(*suite) bool {
	switch strings.ToUpper(alias) {
	case "ALL", "COMPLEMENTOFDEFAULT":
		return func(s *suite) bool { return !s.insecure }
	case "DEFAULT":
		return func(s *suite) bool { return !s.insecure && s.has("HIGH") }
	case "SHA1", "SHA":
		return func(s *suite) bool { return s.has("SHA1") }
	// crypto/tls 不提供的分类，匹配空集
	case "LOW", "EXP", "EXPORT", "ANULL", "ADH", "AECDH", "ENULL", "NULL", "MD5", "DES", "DSS", "PSK", "SRP", "CAMELLIA", "IDEA", "SEED":
		return func(*suite) bool { return false }
	}
	for _, s := range suites {
		if s.has(alias) {
			return func(x *suite) bool { return x.has(alias) }
		}
	}
	return nil
}

// CipherSuiteNames 返回套件 ID 对应的 Go 名称
func CipherSuiteNames(ids []uint16) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = tls.CipherSuiteName(id)
	}
	return names
}
