// Package tcp 提供普通 TCP 套接字
//
// ServerSocket 是监听套接字原语，按 Bind → Listen → AcceptConnection 的顺序使用，
// 安全监听套接字在其之上完成 TLS 握手。StreamSocket 是已建立连接的字节流包装，
// 客户端通过 Dial 获得。
//
// # 使用示例
//
//	sock := tcp.NewServerSocket()
//	defer sock.Close()
//
//	if err := sock.Bind(netaddr.MustParse("127.0.0.1:0"), true); err != nil {
//	    return err
//	}
//	if err := sock.Listen(64); err != nil {
//	    return err
//	}
//
//	conn, peer, err := sock.AcceptConnection(5 * time.Second)
//	if errors.Is(err, types.ErrTimedOut) {
//	    // 超时
//	}
//
// 在 unix 平台上 Bind 直接创建描述符并设置 SO_REUSEADDR，
// 其他平台在 Listen 时才创建监听器。
package tcp
