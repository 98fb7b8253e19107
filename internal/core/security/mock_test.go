package security

import (
	"crypto/tls"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	tlsimpl "github.com/dep2p/go-netssl/internal/core/security/tls"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

// ============================================================================
//                              mockEngine
// ============================================================================

// mockEngine 记录调用的 TLS 引擎
type mockEngine struct {
	mu    sync.Mutex
	calls atomic.Int32
	delay time.Duration

	params []tlsimpl.Params
	hooks  tlsimpl.Hooks

	// NewContextFunc 覆盖默认行为
	NewContextFunc func(params tlsimpl.Params, hooks tlsimpl.Hooks) (*tlsimpl.Context, error)
}

func (e *mockEngine) NewContext(params tlsimpl.Params, hooks tlsimpl.Hooks) (*tlsimpl.Context, error) {
	e.calls.Add(1)
	e.mu.Lock()
	e.params = append(e.params, params)
	e.hooks = hooks
	e.mu.Unlock()

	if e.delay > 0 {
		time.Sleep(e.delay)
	}
	if e.NewContextFunc != nil {
		return e.NewContextFunc(params, hooks)
	}
	return tlsimpl.NewStaticContext(params, &tls.Config{MinVersion: tls.VersionTLS12})
}

func (e *mockEngine) lastParams() tlsimpl.Params {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params[len(e.params)-1]
}

func (e *mockEngine) lastHooks() tlsimpl.Hooks {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hooks
}

// ============================================================================
//                              mock 处理器
// ============================================================================

// mockPassphraseHandler 返回固定口令
type mockPassphraseHandler struct {
	role       types.Role
	passphrase string
	calls      atomic.Int32
	closed     atomic.Bool
	closeErr   error
}

func (h *mockPassphraseHandler) OnPrivateKeyRequested(args *securityif.PassphraseArgs) {
	if args.Role != h.role {
		return
	}
	h.calls.Add(1)
	args.Passphrase = h.passphrase
}

func (h *mockPassphraseHandler) Close() error {
	h.closed.Store(true)
	return h.closeErr
}

// mockCertificateHandler 以固定决定处理验证错误
type mockCertificateHandler struct {
	role     types.Role
	ignore   bool
	calls    atomic.Int32
	closed   atomic.Bool
	closeErr error
}

func (h *mockCertificateHandler) OnInvalidCertificate(args *securityif.VerificationErrorArgs) {
	if args.Role != h.role {
		return
	}
	h.calls.Add(1)
	args.SetIgnoreError(h.ignore)
}

func (h *mockCertificateHandler) Close() error {
	h.closed.Store(true)
	return h.closeErr
}

func mustStaticContext(t *testing.T, role types.Role) *tlsimpl.Context {
	t.Helper()
	ctx, err := tlsimpl.NewStaticContext(tlsimpl.DefaultParams(role), &tls.Config{MinVersion: tls.VersionTLS12})
	require.NoError(t, err)
	return ctx
}
