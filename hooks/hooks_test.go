package hooks

import (
	"testing"

	"freediameterd/diammsg"
)

func TestRegistryCallsOnlyMatchingMask(t *testing.T) {
	r := NewRegistry()

	var sentSeen, receivedSeen int
	r.Register([]HookType{MessageSent}, func(t HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *PerMessageData, regdata interface{}) {
		sentSeen++
	}, nil)
	r.Register([]HookType{MessageReceived, MessageDropped}, func(t HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *PerMessageData, regdata interface{}) {
		receivedSeen++
	}, nil)

	r.Call(MessageReceived, nil, "peer1", nil, nil)
	r.Call(MessageDropped, nil, "peer1", "reason", nil)
	r.Call(MessageSent, nil, "peer1", nil, nil)

	if sentSeen != 1 {
		t.Errorf("expected the MessageSent callback to run once, ran %d times", sentSeen)
	}
	if receivedSeen != 2 {
		t.Errorf("expected the MessageReceived/MessageDropped callback to run twice, ran %d times", receivedSeen)
	}
}

func TestRegistryPassesRegdataAndOther(t *testing.T) {
	r := NewRegistry()

	var gotRegdata, gotOther interface{}
	r.Register([]HookType{PeerDisconnected}, func(t HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *PerMessageData, regdata interface{}) {
		gotOther = other
		gotRegdata = regdata
	}, "extension-name")

	r.Call(PeerDisconnected, nil, "peer1", "connection reset", nil)

	if gotRegdata != "extension-name" {
		t.Errorf("expected regdata to be passed through, got %v", gotRegdata)
	}
	if gotOther != "connection reset" {
		t.Errorf("expected other to be passed through, got %v", gotOther)
	}
}

func TestPerMessageDataLazyInitAndDestroy(t *testing.T) {
	finiCalls := 0
	h := RegisterHandle(func() interface{} { return 0 }, func(v interface{}) { finiCalls++ })

	pmd := NewPerMessageData()

	if v := pmd.Get(h); v != 0 {
		t.Fatalf("expected lazily-initialized value 0, got %v", v)
	}

	pmd.Set(h, 42)
	if v := pmd.Get(h); v != 42 {
		t.Errorf("expected Set to overwrite the slot, got %v", v)
	}

	pmd.Destroy()
	if finiCalls != 1 {
		t.Errorf("expected Fini to run exactly once on Destroy, ran %d times", finiCalls)
	}
}

func TestPerMessageDataUntouchedHandleSkipsFini(t *testing.T) {
	finiCalls := 0
	h := RegisterHandle(func() interface{} { return nil }, func(v interface{}) { finiCalls++ })

	pmd := NewPerMessageData()
	pmd.Destroy() // h never touched on this message

	if finiCalls != 0 {
		t.Errorf("expected Fini not to run for an untouched handle, ran %d times", finiCalls)
	}
}

func TestRegisterAndFireTrigger(t *testing.T) {
	fired := 0
	RegisterTrigger(99, func(value int) { fired++ })

	FireTrigger(99)
	FireTrigger(1) // different value, should not match

	if fired != 1 {
		t.Errorf("expected the trigger callback to fire once, fired %d times", fired)
	}
}
