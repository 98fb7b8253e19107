// Package config 提供键值式配置存储
//
// 安全层按 "server." / "client." 前缀读取配置键，例如：
//
//	server.privateKeyFile = /etc/netssl/server.key
//	server.verificationMode = relaxed
//	client.invalidCertificateHandler.name = AcceptCertificateHandler
//
// Store 只提供带默认值的类型化读取；来源可以是内存 MapStore、
// 多层叠加的 Layered，或由 JSON/TOML/YAML 文件展平得到的 MapStore。
package config

import (
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/dep2p/go-netssl/pkg/types"
)

// Store 只读配置存储
type Store interface {
	// Has 是否存在该键
	Has(key string) bool

	// GetString 读取字符串，不存在时返回 def
	GetString(key, def string) string

	// GetInt 读取整数，不存在时返回 def；值不是整数时返回 ConfigError
	GetInt(key string, def int) (int, error)

	// GetBool 读取布尔值，不存在时返回 def；值无法识别时返回 ConfigError
	GetBool(key string, def bool) (bool, error)
}

// lookupFunc 原始字符串查找
type lookupFunc func(key string) (string, bool)

// ============================================================================
//                              MapStore
// ============================================================================

// MapStore 基于内存 map 的配置存储，并发安全
type MapStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// 确保实现接口
var _ Store = (*MapStore)(nil)

// NewMapStore 创建配置存储，values 会被复制
func NewMapStore(values map[string]string) *MapStore {
	s := &MapStore{values: make(map[string]string, len(values))}
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

// Set 设置配置值
func (s *MapStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Delete 删除配置键
func (s *MapStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Keys 返回排序后的所有键
func (s *MapStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *MapStore) lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Has 是否存在该键
func (s *MapStore) Has(key string) bool {
	_, ok := s.lookup(key)
	return ok
}

// GetString 读取字符串
func (s *MapStore) GetString(key, def string) string {
	return getString(s.lookup, key, def)
}

// GetInt 读取整数
func (s *MapStore) GetInt(key string, def int) (int, error) {
	return getInt(s.lookup, key, def)
}

// GetBool 读取布尔值
func (s *MapStore) GetBool(key string, def bool) (bool, error) {
	return getBool(s.lookup, key, def)
}

// ============================================================================
//                              类型化读取
// ============================================================================

func getString(lookup lookupFunc, key, def string) string {
	if v, ok := lookup(key); ok {
		return v
	}
	return def
}

func getInt(lookup lookupFunc, key string, def int) (int, error) {
	v, ok := lookup(key)
	if !ok {
		return def, nil
	}
	v = strings.TrimSpace(v)
	// 支持 0x 前缀的十六进制
	n, err := strconv.ParseInt(v, 0, 0)
	if err != nil {
		return def, types.NewConfigError(key, "not a valid integer: %q", v)
	}
	return int(n), nil
}

func getBool(lookup lookupFunc, key string, def bool) (bool, error) {
	v, ok := lookup(key)
	if !ok {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "yes", "on", "1":
		return true, nil
	case "false", "no", "off", "0":
		return false, nil
	default:
		return def, types.NewConfigError(key, "not a valid boolean: %q", v)
	}
}

// SplitList 拆分逗号分隔的列表值，去除空白与空项
func SplitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
