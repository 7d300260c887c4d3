// Package hooks implements the extension hook registry, per-message data
// slots and plugin ABI: a small registry guarded by a single rwlock,
// with callbacks invoked synchronously on the calling goroutine.
package hooks

import (
	"fmt"
	"sync"

	"freediameterd/config"
	"freediameterd/diammsg"
)

// HookType enumerates the lifecycle events extensions may subscribe to.
type HookType int

const (
	MessageReceived HookType = iota
	MessageSent
	MessageRoutedLocally
	MessageRoutedForward
	MessageDropped
	PeerConnected
	PeerDisconnected
	Trigger
)

func (t HookType) String() string {
	switch t {
	case MessageReceived:
		return "MessageReceived"
	case MessageSent:
		return "MessageSent"
	case MessageRoutedLocally:
		return "MessageRoutedLocally"
	case MessageRoutedForward:
		return "MessageRoutedForward"
	case MessageDropped:
		return "MessageDropped"
	case PeerConnected:
		return "PeerConnected"
	case PeerDisconnected:
		return "PeerDisconnected"
	case Trigger:
		return "Trigger"
	default:
		return "Unknown"
	}
}

// HookCallback is invoked for every hook type in its registration mask.
// msg and peer may be nil depending on the event (e.g. Trigger events
// carry neither). other carries event-specific extra data (the
// Disconnect-Cause for PeerDisconnected, the signal value for Trigger).
type HookCallback func(t HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *PerMessageData, regdata interface{})

type registration struct {
	mask     map[HookType]bool
	callback HookCallback
	regdata  interface{}
}

// Registry holds all registered hook callbacks for one process. A process
// normally uses the package-level default registry via Register/Call, but
// tests may construct their own.
type Registry struct {
	mu            sync.RWMutex
	registrations []registration
}

func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a callback invoked for every HookType in mask.
func (r *Registry) Register(mask []HookType, cb HookCallback, regdata interface{}) {
	m := make(map[HookType]bool, len(mask))
	for _, t := range mask {
		m[t] = true
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.registrations = append(r.registrations, registration{mask: m, callback: cb, regdata: regdata})
}

// Call invokes every registered callback whose mask matches t.
func (r *Registry) Call(t HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *PerMessageData) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, reg := range r.registrations {
		if reg.mask[t] {
			reg.callback(t, msg, peerIdentity, other, pmd, reg.regdata)
		}
	}
}

// Default is the process-wide hook registry used by the core unless a
// component is explicitly handed a different one (tests mostly).
var Default = NewRegistry()

// Register is a convenience wrapping Default.Register.
func Register(mask []HookType, cb HookCallback, regdata interface{}) {
	Default.Register(mask, cb, regdata)
}

// Call is a convenience wrapping Default.Call.
func Call(t HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *PerMessageData) {
	Default.Call(t, msg, peerIdentity, other, pmd)
}

///////////////////////////////////////////////////////////////////////////
// Per-message data (pmd)
///////////////////////////////////////////////////////////////////////////

// HandleID identifies a registered per-message-data slot.
type HandleID int

// PMDHandle describes how to lazily initialize and eventually dispose of
// one per-message-data slot.
type PMDHandle struct {
	ID   HandleID
	Init func() interface{}
	Fini func(interface{})
}

var (
	handlesMu   sync.Mutex
	nextHandle  HandleID = 1
	handleTable          = make(map[HandleID]PMDHandle)
)

// RegisterHandle allocates a new per-message-data handle with the given
// init/fini hooks, mirroring the plugin ABI's dictionary/hook registration
// surface.
func RegisterHandle(init func() interface{}, fini func(interface{})) PMDHandle {
	handlesMu.Lock()
	defer handlesMu.Unlock()

	h := PMDHandle{ID: nextHandle, Init: init, Fini: fini}
	handleTable[h.ID] = h
	nextHandle++
	return h
}

// PerMessageData is the opaque keyed map attached to every message as it
// flows through the core. Entries
// are created lazily the first time a handle is touched.
type PerMessageData struct {
	mu   sync.Mutex
	data map[HandleID]interface{}
}

func NewPerMessageData() *PerMessageData {
	return &PerMessageData{data: make(map[HandleID]interface{})}
}

// Get returns the slot for h, calling h.Init the first time it's touched
// on this message.
func (p *PerMessageData) Get(h PMDHandle) interface{} {
	p.mu.Lock()
	defer p.mu.Unlock()

	v, ok := p.data[h.ID]
	if !ok {
		if h.Init != nil {
			v = h.Init()
		}
		p.data[h.ID] = v
	}
	return v
}

// Set overwrites the slot for h.
func (p *PerMessageData) Set(h PMDHandle, v interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.data[h.ID] = v
}

// Destroy runs each touched slot's Fini callback. Called when the message
// is freed (answered, dropped, or delivered and discarded).
func (p *PerMessageData) Destroy() {
	p.mu.Lock()
	defer p.mu.Unlock()

	handlesMu.Lock()
	defer handlesMu.Unlock()

	for id, v := range p.data {
		if h, ok := handleTable[id]; ok && h.Fini != nil {
			h.Fini(v)
		}
	}
	p.data = nil
}

///////////////////////////////////////////////////////////////////////////
// Plugin ABI
///////////////////////////////////////////////////////////////////////////

// Extension is the stable surface a loaded plugin sees.
// §6's "dictionary search/create, message create/send, hook register,
// routing-in/out/fwd register, dispatch register, peer enumerate, event
// queue post". Concrete routing/dispatch registration lives in the
// router package; Extension only carries what every plugin needs
// regardless of whether it touches routing.
type Extension struct {
	ConfigInstanceName string
	Hooks              *Registry
}

// EntryFunc is the signature every plugin .so must export as
// `fd_ext_entry`: called once at load time with the extension's own
// configuration string.
type EntryFunc func(ext *Extension, conf string) error

// FiniFunc is the optional `fd_ext_fini` symbol called at unload.
type FiniFunc func()

// LoadedExtension tracks one loaded plugin for TriggerSignal / shutdown.
type LoadedExtension struct {
	Name  string
	Fini  FiniFunc
	trig  map[int][]func(int)
	trigM sync.Mutex
}

var (
	extMu   sync.Mutex
	loaded  []*LoadedExtension
)

// Load registers a plugin by calling its entry point, mirroring
// `fd_ext_entry(conf) -> int`. Real .so loading is
// out of the core's scope: this models the ABI contract the
// core exposes, exercised in-process by the audit-log extension that
// cmd/freediameterd registers through it.
func Load(name string, entry EntryFunc, fini FiniFunc, ext *Extension, conf string) error {
	if err := entry(ext, conf); err != nil {
		return fmt.Errorf("extension %s failed to load: %w", name, err)
	}

	extMu.Lock()
	defer extMu.Unlock()
	loaded = append(loaded, &LoadedExtension{Name: name, Fini: fini, trig: make(map[int][]func(int))})
	return nil
}

// UnloadAll calls Fini on every loaded extension, in reverse load order.
func UnloadAll() {
	extMu.Lock()
	defer extMu.Unlock()

	for i := len(loaded) - 1; i >= 0; i-- {
		if loaded[i].Fini != nil {
			loaded[i].Fini()
		}
	}
	loaded = nil
}

// RegisterTrigger binds a callback to a signal-driven trigger value
//: signalling the process with the
// configured signal enqueues a Trigger event carrying the value, and
// the main event loop dispatches to every callback registered for it.
func RegisterTrigger(value int, cb func(value int)) {
	Register([]HookType{Trigger}, func(t HookType, msg *diammsg.DiameterMessage, peerIdentity string, other interface{}, pmd *PerMessageData, regdata interface{}) {
		if v, ok := other.(int); ok && v == value {
			cb(v)
		}
	}, nil)
}

// FireTrigger delivers a Trigger event for the given signal-bound value
// synchronously to every matching callback. It is invoked by the main event loop after translating an OS signal (SIGUSR2
// by default) into process state, never from signal
// context itself.
func FireTrigger(value int) {
	Call(Trigger, nil, "", value, nil)
}

// LogDrop is a small shared helper used by router/peer to report a
// MessageDropped hook alongside the wide-logger message-outcome record
//.
func LogDrop(msg *diammsg.DiameterMessage, reason string) {
	Call(MessageDropped, msg, "", reason, nil)
	config.GetLogger().Debugf("message dropped: %s", reason)
}
