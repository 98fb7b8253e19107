// Package metrics 提供安全传输层的监控指标
//
// 包含两部分：
//   - Metrics：Prometheus 计数器，记录上下文初始化、证书验证、握手和接受连接
//   - TrafficCounter：安全连接上的收发字节统计与滑动窗口速率
//
// # 快速开始
//
//	reg := prometheus.NewRegistry()
//	m := metrics.New(reg)
//	m.ContextInitialized(types.RoleServer)
//
//	traffic := metrics.NewTrafficCounter()
//	traffic.LogSent(1024)
//	stats := traffic.Totals()
//
// 所有类型并发安全。nil *Metrics 上的方法为空操作。
package metrics
