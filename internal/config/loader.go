package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/dep2p/go-netssl/internal/util/logger"
)

var log = logger.Logger("config")

// ============================================================================
//                              文件加载
// ============================================================================

// LoadFile 按扩展名加载配置文件
//
// 支持 .json、.toml、.yaml/.yml，嵌套结构展平为点分键：
//
//	{"server": {"privateKeyPassphraseHandler": {"name": "KeyFileHandler"}}}
//	// => server.privateKeyPassphraseHandler.name = KeyFileHandler
func LoadFile(path string) (*MapStore, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var store *MapStore
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		store, err = LoadJSON(bytes.NewReader(data))
	case ".toml":
		store, err = LoadTOML(bytes.NewReader(data))
	case ".yaml", ".yml":
		store, err = LoadYAML(bytes.NewReader(data))
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	log.Debug("配置文件已加载", "path", path, "keys", len(store.values))
	return store, nil
}

// LoadJSON 从 JSON 文档加载配置
func LoadJSON(r io.Reader) (*MapStore, error) {
	var doc map[string]any
	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return fromDocument(doc), nil
}

// LoadTOML 从 TOML 文档加载配置
func LoadTOML(r io.Reader) (*MapStore, error) {
	var doc map[string]any
	if _, err := toml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	return fromDocument(doc), nil
}

// LoadYAML 从 YAML 文档加载配置
func LoadYAML(r io.Reader) (*MapStore, error) {
	var doc map[string]any
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if err == io.EOF {
			return NewMapStore(nil), nil
		}
		return nil, err
	}
	return fromDocument(doc), nil
}

// fromDocument 将嵌套文档展平为 MapStore
func fromDocument(doc map[string]any) *MapStore {
	values := make(map[string]string)
	flatten("", doc, values)
	return &MapStore{values: values}
}

func flatten(prefix string, v any, out map[string]string) {
	join := func(k string) string {
		if prefix == "" {
			return k
		}
		return prefix + "." + k
	}

	switch val := v.(type) {
	case map[string]any:
		for k, child := range val {
			flatten(join(k), child, out)
		}
	case map[any]any:
		for k, child := range val {
			flatten(join(fmt.Sprint(k)), child, out)
		}
	case []any:
		parts := make([]string, 0, len(val))
		for i, child := range val {
			flatten(join(strconv.Itoa(i)), child, out)
			parts = append(parts, scalarString(child))
		}
		// 列表同时以逗号连接的形式保存，便于 cypherList 之类的键直接使用
		if prefix != "" {
			out[prefix] = strings.Join(parts, ",")
		}
	default:
		if prefix != "" {
			out[prefix] = scalarString(val)
		}
	}
}

func scalarString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprint(val)
	}
}
