package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dep2p/go-netssl/pkg/types"
)

// Namespace 指标命名空间
const Namespace = "netssl"

// Metrics 安全层 Prometheus 指标
type Metrics struct {
	ContextsInitialized  *prometheus.CounterVec
	ContextInitFailures  *prometheus.CounterVec
	VerificationErrors   *prometheus.CounterVec
	VerificationOverride *prometheus.CounterVec
	Handshakes           *prometheus.CounterVec
	AcceptedConnections  prometheus.Counter
	AcceptErrors         *prometheus.CounterVec

	registry prometheus.Registerer
}

// New 在给定注册表上创建指标，reg 为 nil 时使用独立的新注册表
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		ContextsInitialized: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "contexts_initialized_total",
				Help:      "Total number of default security contexts created",
			},
			[]string{"role"},
		),
		ContextInitFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "context_init_failures_total",
				Help:      "Total number of failed default security context initializations",
			},
			[]string{"role"},
		),
		VerificationErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "verification_errors_total",
				Help:      "Total number of certificate verification failures",
			},
			[]string{"role"},
		),
		VerificationOverride: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "verification_overrides_total",
				Help:      "Total number of verification failures accepted by a handler",
			},
			[]string{"role"},
		),
		Handshakes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "handshakes_total",
				Help:      "Total number of TLS handshakes",
			},
			[]string{"role", "result"},
		),
		AcceptedConnections: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "accepted_connections_total",
				Help:      "Total number of connections accepted by secure listeners",
			},
		),
		AcceptErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "accept_errors_total",
				Help:      "Total number of accept failures on secure listeners",
			},
			[]string{"kind"},
		),
		registry: reg,
	}
}

// Registerer 返回指标所在注册表
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return nil
	}
	return m.registry
}

// ContextInitialized 记录上下文创建成功
func (m *Metrics) ContextInitialized(role types.Role) {
	if m == nil {
		return
	}
	m.ContextsInitialized.WithLabelValues(role.String()).Inc()
}

// ContextFailed 记录上下文创建失败
func (m *Metrics) ContextFailed(role types.Role) {
	if m == nil {
		return
	}
	m.ContextInitFailures.WithLabelValues(role.String()).Inc()
}

// Verification 记录一次证书验证失败及是否被覆盖
func (m *Metrics) Verification(role types.Role, overridden bool) {
	if m == nil {
		return
	}
	m.VerificationErrors.WithLabelValues(role.String()).Inc()
	if overridden {
		m.VerificationOverride.WithLabelValues(role.String()).Inc()
	}
}

// Handshake 记录一次握手结果
func (m *Metrics) Handshake(role types.Role, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.Handshakes.WithLabelValues(role.String(), result).Inc()
}

// Accepted 记录一次成功接受
func (m *Metrics) Accepted() {
	if m == nil {
		return
	}
	m.AcceptedConnections.Inc()
}

// AcceptFailed 记录一次接受失败，kind 取 timeout、closed、rate_limited、error
func (m *Metrics) AcceptFailed(kind string) {
	if m == nil {
		return
	}
	m.AcceptErrors.WithLabelValues(kind).Inc()
}
