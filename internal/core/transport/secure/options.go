package secure

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/dep2p/go-netssl/internal/core/metrics"
	pkgif "github.com/dep2p/go-netssl/pkg/interfaces"
)

// Option 监听套接字选项
type Option func(*options)

type options struct {
	limiter          *rate.Limiter
	metrics          *metrics.Metrics
	bus              pkgif.EventBus
	reporter         metrics.Reporter
	handshakeTimeout time.Duration
}

// WithAcceptLimiter 限制接受连接的速率
func WithAcceptLimiter(l *rate.Limiter) Option {
	return func(o *options) {
		o.limiter = l
	}
}

// WithAcceptRate 按每秒 r 个、突发 burst 个限制接受速率
func WithAcceptRate(r float64, burst int) Option {
	return WithAcceptLimiter(rate.NewLimiter(rate.Limit(r), burst))
}

// WithMetrics 记录接受与握手指标
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEventBus 接受连接时发布 types.EvtConnectionAccepted
func WithEventBus(bus pkgif.EventBus) Option {
	return func(o *options) {
		o.bus = bus
	}
}

// WithReporter 统计已接受连接上的流量
func WithReporter(r metrics.Reporter) Option {
	return func(o *options) {
		o.reporter = r
	}
}

// WithHandshakeTimeout 设置握手超时，仅在调用方上下文没有截止时间时生效
func WithHandshakeTimeout(d time.Duration) Option {
	return func(o *options) {
		o.handshakeTimeout = d
	}
}
