package types

import (
	"errors"
	"testing"
	"time"
)

func TestBaseEvent(t *testing.T) {
	evt := NewBaseEvent("test_event")

	if evt.Type() != "test_event" {
		t.Errorf("Type() = %q, want %q", evt.Type(), "test_event")
	}
	if evt.Timestamp().IsZero() {
		t.Error("Timestamp() is zero")
	}
	if time.Since(evt.Timestamp()) > time.Second {
		t.Error("Timestamp() is too old")
	}
}

func TestEvtContextReady(t *testing.T) {
	evt := EvtContextReady{
		BaseEvent: NewBaseEvent(EventTypeContextReady),
		Role:      RoleServer,
		Mode:      VerifyRelaxed,
	}

	var e Event = evt
	if e.Type() != EventTypeContextReady {
		t.Errorf("Type() = %q", e.Type())
	}
	if evt.Role != RoleServer || evt.Mode != VerifyRelaxed {
		t.Errorf("unexpected payload %+v", evt)
	}
}

func TestEvtContextFailed(t *testing.T) {
	cause := errors.New("boom")
	evt := EvtContextFailed{
		BaseEvent: NewBaseEvent(EventTypeContextFailed),
		Role:      RoleClient,
		Err:       cause,
	}

	if evt.Type() != EventTypeContextFailed {
		t.Errorf("Type() = %q", evt.Type())
	}
	if !errors.Is(evt.Err, cause) {
		t.Errorf("Err = %v", evt.Err)
	}
}

func TestEvtVerificationFailed(t *testing.T) {
	evt := EvtVerificationFailed{
		BaseEvent:  NewBaseEvent(EventTypeVerificationFailed),
		Role:       RoleClient,
		Subject:    "CN=peer",
		Depth:      1,
		Code:       20,
		Reason:     "unknown authority",
		Overridden: true,
	}

	if evt.Type() != EventTypeVerificationFailed {
		t.Errorf("Type() = %q", evt.Type())
	}
	if evt.Depth != 1 || !evt.Overridden {
		t.Errorf("unexpected payload %+v", evt)
	}
}

func TestEvtConnectionAccepted(t *testing.T) {
	evt := EvtConnectionAccepted{
		BaseEvent: NewBaseEvent(EventTypeConnectionAccepted),
		ConnID:    "c1",
		Peer:      "127.0.0.1:5000",
	}

	if evt.Type() != EventTypeConnectionAccepted {
		t.Errorf("Type() = %q", evt.Type())
	}
	if evt.Peer != "127.0.0.1:5000" {
		t.Errorf("Peer = %q", evt.Peer)
	}
}

func TestEventTypeConstants(t *testing.T) {
	types := []string{
		EventTypeContextReady,
		EventTypeContextFailed,
		EventTypeVerificationFailed,
		EventTypeConnectionAccepted,
	}

	seen := make(map[string]bool)
	for _, et := range types {
		if et == "" {
			t.Error("empty event type constant")
		}
		if seen[et] {
			t.Errorf("duplicate event type %q", et)
		}
		seen[et] = true
	}
}
