// Package secure 实现安全监听套接字
//
// Listener 把普通监听套接字与服务端安全上下文组合在一起：
// 接受到的每个连接都包装为尚未握手的 StreamSocket，
// 由调用方调用 Handshake 完成 TLS 服务端握手。
// 监听套接字上无意义的收发、数据报与连接操作一律返回 *types.UnsupportedError，
// 不会触及底层套接字。
//
// # 使用示例
//
//	ctx, err := manager.DefaultContext(context.Background(), types.RoleServer)
//	if err != nil {
//	    return err
//	}
//
//	ln, err := secure.New(ctx, secure.WithMetrics(m))
//	if err != nil {
//	    return err
//	}
//	defer ln.Close()
//
//	_ = ln.Bind(netaddr.MustParse("0.0.0.0:8443"), true)
//	_ = ln.Listen(64)
//
//	var peer netaddr.Address
//	conn, err := ln.AcceptConnection(0, &peer)
//	if err != nil {
//	    return err
//	}
//	if err := conn.Handshake(context.Background()); err != nil {
//	    conn.Close()
//	}
//
// Serve 封装了接受、握手与分发的循环。
package secure
