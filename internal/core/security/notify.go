package security

import (
	"go.uber.org/multierr"

	pkgif "github.com/dep2p/go-netssl/pkg/interfaces"
	securityif "github.com/dep2p/go-netssl/pkg/interfaces/security"
	"github.com/dep2p/go-netssl/pkg/types"
)

// notifier 在事件总线上发布管理器通知，总线为 nil 时不发布
type notifier struct {
	ready        pkgif.Emitter
	failed       pkgif.Emitter
	verification pkgif.Emitter
}

func newNotifier(bus pkgif.EventBus) *notifier {
	n := &notifier{}
	if bus == nil {
		return n
	}

	var err error
	if n.ready, err = bus.Emitter(new(types.EvtContextReady), pkgif.Stateful()); err != nil {
		log.Warn("创建事件发射器失败", "event", types.EventTypeContextReady, "err", err)
	}
	if n.failed, err = bus.Emitter(new(types.EvtContextFailed)); err != nil {
		log.Warn("创建事件发射器失败", "event", types.EventTypeContextFailed, "err", err)
	}
	if n.verification, err = bus.Emitter(new(types.EvtVerificationFailed)); err != nil {
		log.Warn("创建事件发射器失败", "event", types.EventTypeVerificationFailed, "err", err)
	}
	return n
}

func (n *notifier) emit(em pkgif.Emitter, evt any) {
	if em == nil {
		return
	}
	if err := em.Emit(evt); err != nil {
		log.Debug("事件发布失败", "err", err)
	}
}

func (n *notifier) contextReady(role types.Role, mode types.VerificationMode) {
	n.emit(n.ready, types.EvtContextReady{
		BaseEvent: types.NewBaseEvent(types.EventTypeContextReady),
		Role:      role,
		Mode:      mode,
	})
}

func (n *notifier) contextFailed(role types.Role, err error) {
	n.emit(n.failed, types.EvtContextFailed{
		BaseEvent: types.NewBaseEvent(types.EventTypeContextFailed),
		Role:      role,
		Err:       err,
	})
}

func (n *notifier) verificationFailed(args *securityif.VerificationErrorArgs, accepted bool) {
	n.emit(n.verification, types.EvtVerificationFailed{
		BaseEvent:  types.NewBaseEvent(types.EventTypeVerificationFailed),
		Role:       args.Role,
		Subject:    args.Subject(),
		Depth:      args.Depth,
		Code:       int(args.Code),
		Reason:     args.Reason,
		Overridden: accepted,
	})
}

func (n *notifier) close() error {
	var errs error
	for _, em := range []pkgif.Emitter{n.ready, n.failed, n.verification} {
		if em != nil {
			errs = multierr.Append(errs, em.Close())
		}
	}
	return errs
}
