// Package transport 组装安全监听套接字的 Fx 模块
//
// 子包 tcp 提供普通套接字，子包 secure 提供安全监听套接字。
// 本包从配置读取监听参数，用 SecurityManager 的服务端默认上下文
// 创建 secure.Listener，并在应用启动时绑定与监听、停止时关闭。
//
// # 配置键
//
//	listener.address            监听地址字面量，如 0.0.0.0:8443
//	listener.reuseAddress       是否设置 SO_REUSEADDR，默认 true
//	listener.backlog            监听队列长度，默认 64
//	listener.acceptRate         每秒允许接受的连接数，0 表示不限速
//	listener.acceptBurst        限速突发量，默认等于 acceptRate
//	listener.handshakeTimeoutMs 握手超时（毫秒），默认 10000
package transport
