// Package netssl 提供 TLS 监听套接字与安全上下文管理
//
// go-netssl 把网络端点地址、按角色缓存的安全上下文以及只接受 TLS 连接的
// 监听套接字组合在一起，配置沿用 "server." / "client." 前缀的键值方式。
//
// # 核心概念
//
//   - Address：IP + 端口的不可变端点地址，可从字面量或主机名解析得到
//   - Manager：按角色惰性构建并缓存默认安全上下文，分发口令与证书验证事件
//   - Listener：安全监听套接字，接受的连接在握手后才交给用户代码
//
// # 快速开始
//
//	ln, err := netssl.Listen(ctx, "0.0.0.0:8443",
//	    netssl.WithSettings(map[string]string{
//	        "server.certificateFile":                  "server.pem",
//	        "server.privateKeyPassphraseHandler.name": "KeyFileHandler",
//	        "server.verificationMode":                 "none",
//	    }),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ln.Close()
//
//	err = ln.Serve(ctx, netssl.HandlerFunc(func(ctx context.Context, s *netssl.StreamSocket) {
//	    io.Copy(s, s)
//	}))
//
// # 应用模式
//
// New 使用 Fx 组装全部模块（配置、事件总线、指标、解析器、安全管理器、监听套接字），
// 适合需要完整生命周期管理的服务：
//
//	app, err := netssl.New(
//	    netssl.WithConfigFile("netssl.yaml"),
//	    netssl.WithListenAddress("0.0.0.0:8443"),
//	)
//	if err := app.Start(ctx); err != nil {
//	    log.Fatal(err)
//	}
//	defer app.Stop(context.Background())
//
// # 文件组织
//
//   - netssl.go：地址、管理器与监听的便捷函数
//   - fx.go：Fx 应用组装
//   - options.go：配置选项
//   - errors.go：错误定义
//   - types.go：类型别名
package netssl
