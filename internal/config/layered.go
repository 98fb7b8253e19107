package config

import "sync"

// Layered 多层叠加配置
//
// 按添加顺序查找，第一个包含该键的层生效。
// 典型用法：命令行覆盖层 → 配置文件层 → 默认值层。
type Layered struct {
	mu     sync.RWMutex
	layers []Store
}

// 确保实现接口
var _ Store = (*Layered)(nil)

// NewLayered 创建叠加配置，layers 按优先级从高到低排列
func NewLayered(layers ...Store) *Layered {
	l := &Layered{}
	for _, s := range layers {
		if s != nil {
			l.layers = append(l.layers, s)
		}
	}
	return l
}

// Push 追加一个最低优先级的层
func (l *Layered) Push(s Store) {
	if s == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.layers = append(l.layers, s)
}

// Prepend 插入一个最高优先级的层
func (l *Layered) Prepend(s Store) {
	if s == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.layers = append([]Store{s}, l.layers...)
}

// find 返回第一个包含 key 的层
func (l *Layered) find(key string) Store {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, s := range l.layers {
		if s.Has(key) {
			return s
		}
	}
	return nil
}

// Has 是否存在该键
func (l *Layered) Has(key string) bool {
	return l.find(key) != nil
}

// GetString 读取字符串
func (l *Layered) GetString(key, def string) string {
	if s := l.find(key); s != nil {
		return s.GetString(key, def)
	}
	return def
}

// GetInt 读取整数
func (l *Layered) GetInt(key string, def int) (int, error) {
	if s := l.find(key); s != nil {
		return s.GetInt(key, def)
	}
	return def, nil
}

// GetBool 读取布尔值
func (l *Layered) GetBool(key string, def bool) (bool, error) {
	if s := l.find(key); s != nil {
		return s.GetBool(key, def)
	}
	return def, nil
}

// ============================================================================
//                              Prefixed
// ============================================================================

// Prefixed 为所有键加上固定前缀的视图
//
//	Prefixed(store, "openSSL").GetString("server.privateKeyFile", "")
//	// 读取 "openSSL.server.privateKeyFile"
func Prefixed(s Store, prefix string) Store {
	if prefix == "" {
		return s
	}
	return &prefixed{inner: s, prefix: prefix + "."}
}

type prefixed struct {
	inner  Store
	prefix string
}

func (p *prefixed) Has(key string) bool { return p.inner.Has(p.prefix + key) }

func (p *prefixed) GetString(key, def string) string {
	return p.inner.GetString(p.prefix+key, def)
}

func (p *prefixed) GetInt(key string, def int) (int, error) {
	return p.inner.GetInt(p.prefix+key, def)
}

func (p *prefixed) GetBool(key string, def bool) (bool, error) {
	return p.inner.GetBool(p.prefix+key, def)
}
