package config

import (
	"errors"
	"strings"

	"github.com/dep2p/go-netssl/pkg/types"
)

// ValidationErrors 多个配置校验错误
type ValidationErrors []*types.ConfigError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// Is 使 errors.Is(err, types.ErrConfiguration) 成立
func (e ValidationErrors) Is(target error) bool {
	return target == types.ErrConfiguration && len(e) > 0
}

// HasErrors 是否有错误
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator 安全配置校验器
//
// 管理器在首次使用某角色时才读取配置；Validator 用于启动时提前发现
// 配置文件中的错误，一次性报告所有问题。
type Validator struct {
	store     Store
	namespace string
	errors    ValidationErrors
}

// NewValidator 创建校验器
func NewValidator(store Store, namespace string) *Validator {
	return &Validator{store: store, namespace: namespace}
}

// addError 添加错误
func (v *Validator) addError(err error) {
	var ce *types.ConfigError
	if errors.As(err, &ce) {
		v.errors = append(v.errors, ce)
		return
	}
	v.errors = append(v.errors, types.NewConfigError("", "%v", err))
}

// Errors 返回所有错误
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

// ValidateRole 校验某角色的配置
//
// requireKeyMaterial 为 true 时要求私钥或证书至少配置一项。
func (v *Validator) ValidateRole(role types.Role, requireKeyMaterial bool) {
	prefix := RolePrefix(v.namespace, role)

	if requireKeyMaterial {
		key := v.store.GetString(prefix+KeyPrivateKeyFile, "")
		cert := v.store.GetString(prefix+KeyCertificateFile, key)
		if key == "" && cert == "" {
			v.addError(types.NewConfigError(prefix+KeyCertificateFile, "no certificate file has been specified"))
		}
	}

	if v.store.Has(prefix + KeyVerificationMode) {
		mode := v.store.GetString(prefix+KeyVerificationMode, "")
		if _, ok := types.ParseVerificationMode(mode); !ok {
			v.addError(types.NewConfigError(prefix+KeyVerificationMode, "unknown verification mode %q", mode))
		}
	}

	depth, err := v.store.GetInt(prefix+KeyVerificationDepth, DefaultVerificationDepth)
	if err != nil {
		v.addError(err)
	} else if depth < 0 {
		v.addError(types.NewConfigError(prefix+KeyVerificationDepth, "must not be negative: %d", depth))
	}

	if _, err := v.store.GetBool(prefix+KeyLoadDefaultCAFile, DefaultLoadDefaultCAFile); err != nil {
		v.addError(err)
	}
}

// Validate 校验两个角色的安全配置
//
// 服务端必须配置密钥材料；客户端可以只做验证而不提供证书，
// 但若配置了 client 相关键则同样校验其取值。
func Validate(store Store, namespace string) error {
	v := NewValidator(store, namespace)
	v.ValidateRole(types.RoleServer, true)
	v.ValidateRole(types.RoleClient, false)
	if v.errors.HasErrors() {
		return v.errors
	}
	return nil
}
