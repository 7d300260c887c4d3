// Package watchdog implements the RFC 3539 failover state layer (DWR/DWA
// keepalives and DPR/DPA disconnect) on top of the peer PSM, pulled out
// into a reusable timer object so the SUSPECT/REOPEN states become
// explicit instead of a bare retry counter.
package watchdog

import (
	"time"

	"freediameterd/config"
	"freediameterd/diammsg"
)

// DefaultTw is used when a peer's configured watchdog interval is zero.
const DefaultTw = 30 * time.Second

// ReopenRoundTrips is the number of successful DWR/DWA exchanges required
// before a REOPEN peer is promoted back to OPEN.
const ReopenRoundTrips = 3

// Timer tracks the watchdog clock for a single peer link. It does not
// itself own a goroutine; the owning peer's event loop ticks it and
// reacts to the returned Action.
type Timer struct {
	interval       time.Duration
	ticker         *time.Ticker
	outstanding    int
	reopenProgress int
}

// NewTimer builds a Timer for the configured interval (falls back to
// DefaultTw when intervalMillis is 0) but does not start ticking; call
// Start once the peer reaches OPEN.
func NewTimer(intervalMillis int) *Timer {
	interval := DefaultTw
	if intervalMillis > 0 {
		interval = time.Duration(intervalMillis) * time.Millisecond
	}
	return &Timer{interval: interval}
}

// Start begins (or restarts) the ticker. Safe to call again after Stop.
func (t *Timer) Start() <-chan time.Time {
	if t.ticker != nil {
		t.ticker.Stop()
	}
	t.ticker = time.NewTicker(t.interval)
	return t.ticker.C
}

// Stop halts the ticker; the Timer may be reused via Start.
func (t *Timer) Stop() {
	if t.ticker != nil {
		t.ticker.Stop()
	}
}

// Action tells the PSM what to do in response to a watchdog event.
type Action int

const (
	// ActionSendDWR: tick elapsed while OPEN with no outstanding DWR;
	// send one and arm the SUSPECT threshold.
	ActionSendDWR Action = iota
	// ActionSuspect: a DWR went unanswered for one full interval; move
	// to SUSPECT and send a second DWR.
	ActionSuspect
	// ActionConnectionError: two consecutive Tw intervals elapsed
	// without a DWA; the connection must be torn down.
	ActionConnectionError
)

// OnTick is called each time the ticker fires while the peer is OPEN or
// SUSPECT. It returns what the PSM should do next.
func (t *Timer) OnTick() Action {
	t.outstanding++
	switch t.outstanding {
	case 1:
		return ActionSendDWR
	case 2:
		return ActionSuspect
	default:
		return ActionConnectionError
	}
}

// OnDWA resets the outstanding-DWR counter: the link is healthy again.
// It also advances (and reports completion of) the REOPEN round-trip
// count when called while the peer is in REOPEN.
func (t *Timer) OnDWA(inReopen bool) (reopenComplete bool) {
	t.outstanding = 0
	if !inReopen {
		t.reopenProgress = 0
		return false
	}

	t.reopenProgress++
	if t.reopenProgress >= ReopenRoundTrips {
		t.reopenProgress = 0
		return true
	}
	return false
}

// BuildDWR constructs a Device-Watchdog-Request, stamping Origin-Host/
// Realm and Origin-State-Id.
func BuildDWR(ci *config.PolicyConfigurationManager) (*diammsg.DiameterMessage, error) {
	dwr, err := diammsg.NewDiameterRequest("Base", "Device-Watchdog")
	if err != nil {
		return nil, err
	}
	dwr.AddOriginAVPs(ci)
	dwr.Add("Origin-State-Id", 1)
	return dwr, nil
}

// BuildDWA answers a received DWR with Result-Code DIAMETER_SUCCESS and
// Origin-State-Id: reply DWA with
// Origin-State-Id").
func BuildDWA(request *diammsg.DiameterMessage, ci *config.PolicyConfigurationManager) *diammsg.DiameterMessage {
	dwa := diammsg.NewDiameterAnswer(request)
	dwa.AddOriginAVPs(ci)
	dwa.Add("Result-Code", diammsg.DIAMETER_SUCCESS)
	dwa.Add("Origin-State-Id", 1)
	return dwa
}

// DisconnectCause enumerates the standard Disconnect-Cause values used in
// DPR.
type DisconnectCause int64

const (
	CauseRebooting        DisconnectCause = 0
	CauseBusy             DisconnectCause = 1
	CauseDoNotWantToTalk  DisconnectCause = 2
)

// BuildDPR constructs a Disconnect-Peer-Request with the given cause.
func BuildDPR(ci *config.PolicyConfigurationManager, cause DisconnectCause) (*diammsg.DiameterMessage, error) {
	dpr, err := diammsg.NewDiameterRequest("Base", "Disconnect-Peer")
	if err != nil {
		return nil, err
	}
	dpr.AddOriginAVPs(ci)
	dpr.Add("Disconnect-Cause", int64(cause))
	return dpr, nil
}

// BuildDPA answers a received DPR, echoing back success.
func BuildDPA(request *diammsg.DiameterMessage, ci *config.PolicyConfigurationManager) *diammsg.DiameterMessage {
	dpa := diammsg.NewDiameterAnswer(request)
	dpa.AddOriginAVPs(ci)
	dpa.Add("Result-Code", diammsg.DIAMETER_SUCCESS)
	return dpa
}

// ClosingGraceDelay is the fixed short interval a peer spends in
// CLOSING_GRACE after DPR/DPA before moving to CLOSED or ZOMBIE
//.
func ClosingGraceDelay(tcSeconds int) time.Duration {
	if tcSeconds <= 0 {
		tcSeconds = 30
	}
	return 2 * time.Duration(tcSeconds) * time.Second
}
