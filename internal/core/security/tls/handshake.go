package tls

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/dep2p/go-netssl/pkg/types"
)

// DefaultHandshakeTimeout ctx 无截止时间时的握手超时
const DefaultHandshakeTimeout = 10 * time.Second

// Handshake 执行 TLS 握手
//
// 截止时间取自 ctx，否则使用 DefaultHandshakeTimeout。
// 超时返回包装 types.ErrTimedOut 的错误，其余失败包装为 *types.EngineError，
// 证书被拒绝时可通过 errors.As 取得 *VerificationError。
func Handshake(ctx context.Context, conn *tls.Conn) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultHandshakeTimeout)
		defer cancel()
	}

	err := conn.HandshakeContext(ctx)
	if err == nil {
		return nil
	}

	if isTimeout(err) || ctx.Err() != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return fmt.Errorf("tls handshake: %w", ctx.Err())
		}
		return fmt.Errorf("tls handshake: %w", types.ErrTimedOut)
	}
	return types.NewEngineError("handshake", err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
