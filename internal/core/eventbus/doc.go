// Package eventbus 实现进程内事件总线
//
// 用于安全层的异步通知：默认上下文就绪、证书验证失败、
// 安全监听套接字接受连接等。发射不会阻塞调用方，
// 订阅者缓冲区满时事件被丢弃并记录警告。
//
// # 快速开始
//
//	bus := eventbus.NewBus()
//
//	sub, _ := bus.Subscribe(new(types.EvtVerificationFailed))
//	defer sub.Close()
//
//	go func() {
//	    for evt := range sub.Out() {
//	        e := evt.(types.EvtVerificationFailed)
//	        // 处理事件
//	    }
//	}()
//
//	em, _ := bus.Emitter(new(types.EvtVerificationFailed))
//	defer em.Close()
//	em.Emit(types.EvtVerificationFailed{...})
package eventbus
