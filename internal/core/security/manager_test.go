package security

import (
	"context"
	"crypto/tls"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/dep2p/go-netssl/internal/config"
	"github.com/dep2p/go-netssl/internal/core/eventbus"
	"github.com/dep2p/go-netssl/internal/core/metrics"
	"github.com/dep2p/go-netssl/internal/core/security/handler"
	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

// nonInteractive 使用非交互处理器的服务端与客户端配置
func nonInteractive(extra map[string]string) *config.MapStore {
	values := map[string]string{
		"server.privateKeyFile":                   "/etc/netssl/server.pem",
		"server.privateKeyPassphraseHandler.name": handler.KeyFileHandlerName,
		"server.invalidCertificateHandler.name":   handler.RejectCertificateHandlerName,
		"client.privateKeyFile":                   "/etc/netssl/client.pem",
		"client.privateKeyPassphraseHandler.name": handler.KeyFileHandlerName,
		"client.invalidCertificateHandler.name":   handler.AcceptCertificateHandlerName,
	}
	for k, v := range extra {
		values[k] = v
	}
	return config.NewMapStore(values)
}

func newTestManager(t *testing.T, engine *mockEngine, store config.Store, opts ...Option) *Manager {
	t.Helper()
	opts = append([]Option{WithConfig(store), WithEngine(engine)}, opts...)
	m := NewManager(opts...)
	t.Cleanup(func() { _ = m.Shutdown() })
	return m
}

// ============================================================================
//                              默认上下文
// ============================================================================

// TestManager_DefaultContext_Concurrent 并发首次调用只构建一次
func TestManager_DefaultContext_Concurrent(t *testing.T) {
	engine := &mockEngine{delay: 50 * time.Millisecond}
	m := newTestManager(t, engine, nonInteractive(nil))

	const n = 16
	var (
		wg      sync.WaitGroup
		results [n]*tlsimpl.Context
		errs    [n]error
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.DefaultContext(context.Background(), types.RoleServer)
		}(i)
	}
	wg.Wait()

	for i := 0; i < n; i++ {
		require.NoError(t, errs[i])
		assert.Same(t, results[0], results[i])
	}
	assert.Equal(t, int32(1), engine.calls.Load())
	assert.Equal(t, StateReady, m.State(types.RoleServer))
	assert.Equal(t, StateUnconfigured, m.State(types.RoleClient))

	again, err := m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)
	assert.Same(t, results[0], again)
	assert.Equal(t, int32(1), engine.calls.Load())
}

// TestManager_DefaultContext_SharedError 并发等待者得到同一个错误，失败不缓存
func TestManager_DefaultContext_SharedError(t *testing.T) {
	boom := errors.New("engine exploded")
	var fail = true
	var mu sync.Mutex
	engine := &mockEngine{delay: 50 * time.Millisecond}
	engine.NewContextFunc = func(p tlsimpl.Params, _ tlsimpl.Hooks) (*tlsimpl.Context, error) {
		mu.Lock()
		defer mu.Unlock()
		if fail {
			return nil, types.NewEngineError("new context", boom)
		}
		return tlsimpl.NewStaticContext(p, &tls.Config{MinVersion: tls.VersionTLS12})
	}
	m := newTestManager(t, engine, nonInteractive(nil))

	var wg sync.WaitGroup
	errs := make([]error, 8)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.DefaultContext(context.Background(), types.RoleClient)
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.ErrorIs(t, err, boom)
		assert.ErrorIs(t, err, types.ErrEngine)
	}
	assert.Equal(t, int32(1), engine.calls.Load())
	assert.Equal(t, StateConfiguring, m.State(types.RoleClient), "handlers stay installed")

	mu.Lock()
	fail = false
	mu.Unlock()

	_, err := m.DefaultContext(context.Background(), types.RoleClient)
	require.NoError(t, err)
	assert.Equal(t, int32(2), engine.calls.Load())
	assert.Equal(t, StateReady, m.State(types.RoleClient))
}

// TestManager_DefaultContext_Params 配置键映射到上下文参数
func TestManager_DefaultContext_Params(t *testing.T) {
	engine := &mockEngine{}
	store := config.NewMapStore(map[string]string{
		"openSSL.client.privateKeyFile":                   "/keys/client.key",
		"openSSL.client.caConfig":                         "/keys/ca",
		"openSSL.client.verificationMode":                 "relaxed",
		"openSSL.client.verificationDepth":                "3",
		"openSSL.client.loadDefaultCAFile":                "true",
		"openSSL.client.cypherList":                       "HIGH",
		"openSSL.client.privateKeyPassphraseHandler.name": handler.KeyFileHandlerName,
		"openSSL.client.invalidCertificateHandler.name":   handler.RejectCertificateHandlerName,
	})
	m := newTestManager(t, engine, store, WithConfigPrefix("openSSL"))

	_, err := m.DefaultContext(context.Background(), types.RoleClient)
	require.NoError(t, err)

	p := engine.lastParams()
	assert.Equal(t, types.RoleClient, p.Role)
	assert.Equal(t, "/keys/client.key", p.PrivateKeyFile)
	assert.Equal(t, "/keys/client.key", p.CertificateFile)
	assert.Equal(t, "/keys/ca", p.CALocation)
	assert.Equal(t, types.VerifyRelaxed, p.VerificationMode)
	assert.Equal(t, 3, p.VerificationDepth)
	assert.True(t, p.LoadDefaultCAs)
	assert.Equal(t, "HIGH", p.CipherList)
}

// TestManager_DefaultContext_Defaults 未配置的键使用默认值
func TestManager_DefaultContext_Defaults(t *testing.T) {
	engine := &mockEngine{}
	m := newTestManager(t, engine, config.NewMapStore(map[string]string{
		"server.certificateFile":                  "/keys/server.pem",
		"server.privateKeyPassphraseHandler.name": handler.KeyFileHandlerName,
		"server.invalidCertificateHandler.name":   handler.RejectCertificateHandlerName,
	}))

	_, err := m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)

	p := engine.lastParams()
	assert.Equal(t, "", p.PrivateKeyFile)
	assert.Equal(t, "/keys/server.pem", p.CertificateFile)
	assert.Equal(t, types.VerifyStrict, p.VerificationMode)
	assert.Equal(t, config.DefaultVerificationDepth, p.VerificationDepth)
	assert.False(t, p.LoadDefaultCAs)
	assert.Equal(t, config.DefaultCipherList, p.CipherList)
}

// TestManager_DefaultContext_ConfigErrors 配置错误
func TestManager_DefaultContext_ConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		store *config.MapStore
		key   string
		state State
	}{
		{
			name:  "no key material",
			store: config.NewMapStore(map[string]string{"server.caConfig": "/ca"}),
			key:   "server.certificateFile",
			state: StateUnconfigured,
		},
		{
			name:  "unknown verification mode",
			store: nonInteractive(map[string]string{"server.verificationMode": "paranoid"}),
			key:   "server.verificationMode",
			state: StateUnconfigured,
		},
		{
			name:  "empty verification mode",
			store: nonInteractive(map[string]string{"server.verificationMode": ""}),
			key:   "server.verificationMode",
			state: StateUnconfigured,
		},
		{
			name:  "malformed depth",
			store: nonInteractive(map[string]string{"server.verificationDepth": "deep"}),
			key:   "server.verificationDepth",
			state: StateUnconfigured,
		},
		{
			name:  "malformed flag",
			store: nonInteractive(map[string]string{"server.loadDefaultCAFile": "perhaps"}),
			key:   "server.loadDefaultCAFile",
			state: StateUnconfigured,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &mockEngine{}
			m := newTestManager(t, engine, tt.store)

			_, err := m.DefaultContext(context.Background(), types.RoleServer)
			require.Error(t, err)
			assert.ErrorIs(t, err, types.ErrConfiguration)

			var cerr *types.ConfigError
			require.ErrorAs(t, err, &cerr)
			assert.Equal(t, tt.key, cerr.Key)
			assert.Equal(t, int32(0), engine.calls.Load())
			assert.Equal(t, tt.state, m.State(types.RoleServer))
		})
	}
}

// TestManager_UnknownHandler 未注册的处理器名称
func TestManager_UnknownHandler(t *testing.T) {
	engine := &mockEngine{}
	m := newTestManager(t, engine, nonInteractive(map[string]string{
		"server.invalidCertificateHandler.name": "NoSuchHandler",
	}))

	_, err := m.DefaultContext(context.Background(), types.RoleServer)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrUnknownHandler)
	assert.Contains(t, err.Error(), "NoSuchHandler")
	assert.Equal(t, int32(0), engine.calls.Load())

	_, err = m.CertificateHandler(context.Background(), types.RoleServer)
	assert.ErrorIs(t, err, types.ErrUnknownHandler)

	m.CertificateRegistry().Register("NoSuchHandler", handler.NewRejectCertificateHandler)
	_, err = m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)
}

// TestManager_InvalidRole 非法角色
func TestManager_InvalidRole(t *testing.T) {
	m := newTestManager(t, &mockEngine{}, nonInteractive(nil))

	_, err := m.DefaultContext(context.Background(), types.Role(9))
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = m.PassphraseHandler(context.Background(), types.Role(9))
	assert.ErrorIs(t, err, ErrInvalidRole)
	assert.Equal(t, StateUnconfigured, m.State(types.Role(9)))
}

// TestManager_ContextCanceled 等待者放弃，构建继续完成
func TestManager_ContextCanceled(t *testing.T) {
	engine := &mockEngine{delay: 200 * time.Millisecond}
	m := newTestManager(t, engine, nonInteractive(nil))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := m.DefaultContext(ctx, types.RoleServer)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c, err := m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)
	assert.NotNil(t, c)
	assert.Equal(t, int32(1), engine.calls.Load())
}

// ============================================================================
//                              处理器
// ============================================================================

// TestManager_HandlersConcurrent 处理器只创建一次
func TestManager_HandlersConcurrent(t *testing.T) {
	m := newTestManager(t, &mockEngine{}, config.NewMapStore(map[string]string{
		"client.privateKeyPassphraseHandler.name": "Counting",
	}))

	count := 0
	var mu sync.Mutex
	m.PassphraseRegistry().Register("Counting", func(env handler.Env) (securityif.PassphraseHandler, error) {
		mu.Lock()
		count++
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		return &mockPassphraseHandler{role: env.Role}, nil
	})

	var wg sync.WaitGroup
	handlers := make([]securityif.PassphraseHandler, 10)
	for i := range handlers {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := m.PassphraseHandler(context.Background(), types.RoleClient)
			assert.NoError(t, err)
			handlers[i] = h
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, count)
	for _, h := range handlers {
		assert.Same(t, handlers[0], h)
	}
	assert.Equal(t, StateConfiguring, m.State(types.RoleClient))
	assert.Equal(t, 1, m.PrivateKeyPassphrase.Len())
}

// TestManager_Passphrase 口令回调经由事件获取
func TestManager_Passphrase(t *testing.T) {
	engine := &mockEngine{}
	m := newTestManager(t, engine, nonInteractive(map[string]string{
		"server." + handler.KeyPassword: "server-secret",
	}))

	_, err := m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)

	hooks := engine.lastHooks()
	assert.Equal(t, "server-secret", hooks.Passphrase(types.RoleServer))
	assert.Equal(t, "", hooks.Passphrase(types.RoleClient), "no client handler yet")

	m.PrivateKeyPassphrase.Clear()
	assert.Equal(t, "", hooks.Passphrase(types.RoleServer))
}

// TestManager_VerifyOverride 最后一次设置决定是否接受
func TestManager_VerifyOverride(t *testing.T) {
	m := newTestManager(t, &mockEngine{}, nonInteractive(nil))
	args := func() *securityif.VerificationErrorArgs {
		return &securityif.VerificationErrorArgs{Role: types.RoleServer, Code: securityif.CodeUnknownAuthority}
	}

	t.Run("no subscribers rejects", func(t *testing.T) {
		a := args()
		a.SetIgnoreError(true)
		assert.False(t, m.verify(a))
	})

	t.Run("last write wins", func(t *testing.T) {
		first := &mockCertificateHandler{role: types.RoleServer, ignore: true}
		second := &mockCertificateHandler{role: types.RoleServer, ignore: false}
		u1 := m.ServerVerificationError.Subscribe(first.OnInvalidCertificate)
		u2 := m.ServerVerificationError.Subscribe(second.OnInvalidCertificate)
		assert.False(t, m.verify(args()))
		u1()
		u2()

		u1 = m.ServerVerificationError.Subscribe(second.OnInvalidCertificate)
		u2 = m.ServerVerificationError.Subscribe(first.OnInvalidCertificate)
		assert.True(t, m.verify(args()))
		u1()
		u2()
	})

	t.Run("role events are separate", func(t *testing.T) {
		client := &mockCertificateHandler{role: types.RoleClient, ignore: true}
		unsub := m.ClientVerificationError.Subscribe(client.OnInvalidCertificate)
		defer unsub()

		assert.False(t, m.verify(args()))
		assert.Equal(t, int32(0), client.calls.Load())

		a := args()
		a.Role = types.RoleClient
		assert.True(t, m.verify(a))
		assert.Equal(t, int32(1), client.calls.Load())
	})

	t.Run("configured handlers", func(t *testing.T) {
		_, err := m.DefaultContext(context.Background(), types.RoleServer)
		require.NoError(t, err)
		_, err = m.DefaultContext(context.Background(), types.RoleClient)
		require.NoError(t, err)

		assert.False(t, m.verify(args()), "server uses RejectCertificateHandler")
		a := args()
		a.Role = types.RoleClient
		assert.True(t, m.verify(a), "client uses AcceptCertificateHandler")
	})
}

// ============================================================================
//                              显式初始化与关闭
// ============================================================================

// TestManager_Initialize 显式设置处理器与上下文
func TestManager_Initialize(t *testing.T) {
	engine := &mockEngine{}
	m := newTestManager(t, engine, config.NewMapStore(nil))

	ctx := mustStaticContext(t, types.RoleServer)
	pp := &mockPassphraseHandler{role: types.RoleServer, passphrase: "one"}
	cert := &mockCertificateHandler{role: types.RoleServer, ignore: true}
	require.NoError(t, m.Initialize(types.RoleServer, pp, cert, ctx))
	assert.Equal(t, StateReady, m.State(types.RoleServer))

	got, err := m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)
	assert.Same(t, ctx, got)
	assert.Equal(t, int32(0), engine.calls.Load())

	h, err := m.PassphraseHandler(context.Background(), types.RoleServer)
	require.NoError(t, err)
	assert.Same(t, pp, h)
	assert.Equal(t, "one", m.requestPassphrase(types.RoleServer))

	// 替换处理器，旧处理器取消订阅并关闭
	pp2 := &mockPassphraseHandler{role: types.RoleServer, passphrase: "two", closeErr: errors.New("close failed")}
	require.NoError(t, m.Initialize(types.RoleServer, pp2, nil, nil))
	assert.True(t, pp.closed.Load())
	assert.Equal(t, "two", m.requestPassphrase(types.RoleServer))
	assert.Equal(t, int32(1), pp.calls.Load())
	assert.Equal(t, 1, m.PrivateKeyPassphrase.Len())
	assert.Equal(t, 1, m.ServerVerificationError.Len())

	err = m.Initialize(types.RoleServer, &mockPassphraseHandler{role: types.RoleServer}, nil, nil)
	assert.EqualError(t, err, "close failed")

	err = m.Initialize(types.RoleClient, nil, nil, ctx)
	assert.ErrorIs(t, err, ErrInvalidRole)
}

// TestManager_Shutdown 关闭顺序与重新使用
func TestManager_Shutdown(t *testing.T) {
	engine := &mockEngine{}
	m := newTestManager(t, engine, nonInteractive(nil))

	_, err := m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)

	pp := &mockPassphraseHandler{role: types.RoleClient, closeErr: errors.New("pp")}
	cert := &mockCertificateHandler{role: types.RoleClient, closeErr: errors.New("cert")}
	require.NoError(t, m.Initialize(types.RoleClient, pp, cert, nil))
	assert.Equal(t, StateConfiguring, m.State(types.RoleClient))

	err = m.Shutdown()
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 2)
	assert.True(t, pp.closed.Load())
	assert.True(t, cert.closed.Load())

	assert.Equal(t, 0, m.PrivateKeyPassphrase.Len())
	assert.Equal(t, 0, m.ServerVerificationError.Len())
	assert.Equal(t, 0, m.ClientVerificationError.Len())
	for _, role := range types.Roles {
		assert.Equal(t, StateUnconfigured, m.State(role))
	}

	require.NoError(t, m.Shutdown())

	_, err = m.DefaultContext(context.Background(), types.RoleServer)
	require.NoError(t, err)
	assert.Equal(t, int32(2), engine.calls.Load())
}

// TestManager_Notifications 指标与总线通知
func TestManager_Notifications(t *testing.T) {
	bus := eventbus.NewBus()
	met := metrics.New(prometheus.NewRegistry())

	ready, err := bus.Subscribe(new(types.EvtContextReady))
	require.NoError(t, err)
	defer ready.Close()
	failed, err := bus.Subscribe(new(types.EvtVerificationFailed))
	require.NoError(t, err)
	defer failed.Close()

	m := newTestManager(t, &mockEngine{}, nonInteractive(nil), WithEventBus(bus), WithMetrics(met))

	_, err = m.DefaultContext(context.Background(), types.RoleClient)
	require.NoError(t, err)

	select {
	case evt := <-ready.Out():
		e := evt.(types.EvtContextReady)
		assert.Equal(t, types.RoleClient, e.Role)
		assert.Equal(t, types.VerifyStrict, e.Mode)
		assert.Equal(t, types.EventTypeContextReady, e.Type())
	case <-time.After(time.Second):
		t.Fatal("context ready not published")
	}

	assert.True(t, m.verify(&securityif.VerificationErrorArgs{Role: types.RoleClient, Code: securityif.CodeExpired, Depth: 0}))
	select {
	case evt := <-failed.Out():
		e := evt.(types.EvtVerificationFailed)
		assert.True(t, e.Overridden)
		assert.Equal(t, int(securityif.CodeExpired), e.Code)
	case <-time.After(time.Second):
		t.Fatal("verification failure not published")
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(met.ContextsInitialized.WithLabelValues("client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.VerificationErrors.WithLabelValues("client")))
	assert.Equal(t, 1.0, testutil.ToFloat64(met.VerificationOverride.WithLabelValues("client")))

	_, err = NewManager(WithConfig(config.NewMapStore(nil)), WithMetrics(met)).DefaultContext(context.Background(), types.RoleServer)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(met.ContextInitFailures.WithLabelValues("server")))
}

// TestDefault 进程级默认管理器
func TestDefault(t *testing.T) {
	t.Cleanup(func() { _ = ResetDefault() })

	a := Default()
	assert.Same(t, a, Default())

	require.NoError(t, ResetDefault())
	b := Default()
	assert.NotSame(t, a, b)

	custom := NewManager()
	assert.Same(t, b, SetDefault(custom))
	assert.Same(t, custom, Default())
}
