package metrics

import (
	"sync/atomic"

	"github.com/benbjohnson/clock"
)

// Stats 流量统计快照
type Stats struct {
	TotalIn  int64   // 总入站字节
	TotalOut int64   // 总出站字节
	RateIn   float64 // 入站速率（字节/秒）
	RateOut  float64 // 出站速率（字节/秒）
}

// Reporter 记录安全连接上的流量
type Reporter interface {
	// LogSent 记录发送字节数
	LogSent(int64)

	// LogRecv 记录接收字节数
	LogRecv(int64)

	// Totals 返回流量快照
	Totals() Stats
}

// TrafficCounter 流量计数器
type TrafficCounter struct {
	totalIn  atomic.Int64
	totalOut atomic.Int64

	inRate  *RateMeter
	outRate *RateMeter
}

// 确保实现接口
var _ Reporter = (*TrafficCounter)(nil)

// NewTrafficCounter 创建流量计数器
func NewTrafficCounter() *TrafficCounter {
	return NewTrafficCounterWithClock(clock.New())
}

// NewTrafficCounterWithClock 使用指定时钟创建流量计数器
func NewTrafficCounterWithClock(clk clock.Clock) *TrafficCounter {
	return &TrafficCounter{
		inRate:  NewRateMeterWithClock(clk),
		outRate: NewRateMeterWithClock(clk),
	}
}

// LogSent 记录发送字节数
func (t *TrafficCounter) LogSent(n int64) {
	if t == nil || n <= 0 {
		return
	}
	t.totalOut.Add(n)
	t.outRate.Add(n)
}

// LogRecv 记录接收字节数
func (t *TrafficCounter) LogRecv(n int64) {
	if t == nil || n <= 0 {
		return
	}
	t.totalIn.Add(n)
	t.inRate.Add(n)
}

// Totals 返回流量快照
func (t *TrafficCounter) Totals() Stats {
	if t == nil {
		return Stats{}
	}
	return Stats{
		TotalIn:  t.totalIn.Load(),
		TotalOut: t.totalOut.Load(),
		RateIn:   t.inRate.Rate(),
		RateOut:  t.outRate.Rate(),
	}
}

// Reset 重置所有统计
func (t *TrafficCounter) Reset() {
	t.totalIn.Store(0)
	t.totalOut.Store(0)
	t.inRate.Reset()
	t.outRate.Reset()
}
