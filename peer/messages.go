package peer

import (
	"time"

	"freediameterd/capability"
	"freediameterd/diammsg"
	"freediameterd/transport"
)

// Output events (posted to the router's control channel)

// PeerDownEvent signals that the Peer's PSM goroutine has exited and the
// object should be recycled. Error is nil for a clean/expected shutdown.
type PeerDownEvent struct {
	Sender *Peer
	Error  error
}

// PeerUpEvent signals CER/CEA completed and the peer reached OPEN/OPEN_NEW.
// The router must check there is no other Peer for the same identity
//.
type PeerUpEvent struct {
	Sender       *Peer
	DiameterHost string
}

// Internal (self-posted) messages driving PSM transitions

type peerUpMsg struct {
	DiameterHost string
	OpenNew      bool
}

// EgressDiameterMsg carries a message from the application (or the
// router's forwarding stage) down to the wire. RChan is nil for
// base-application traffic (CER/CEA/DWR/DWA/DPR/DPA) and for answers.
type EgressDiameterMsg struct {
	Message *diammsg.DiameterMessage
	RChan   chan interface{}
	Timeout time.Duration
}

// IngressDiameterMsg carries a fully parsed message received from the
// wire, posted by the read loop.
type IngressDiameterMsg struct {
	Message *diammsg.DiameterMessage
}

// CancelRequestMsg cancels an outstanding request by hbh id (timeout or
// explicit cancellation); Reason distinguishes the two for logging.
type CancelRequestMsg struct {
	HopByHopId uint32
	Reason     error
}

type peerCloseCommandMsg struct{}

// terminateMsg triggers the graceful TERMINATE path:
// send DPR if OPEN/REOPEN/SUSPECT, wait briefly for DPA, then ZOMBIE.
type terminateMsg struct {
	Cause int64
}

type connectionEstablishedMsg struct {
	Cnx *transport.Cnx
}

type connectionErrorMsg struct {
	Error error
}

type readEOFMsg struct{}

type readErrorMsg struct {
	Error error
}

type writeErrorMsg struct {
	Error error
}

type watchdogTickMsg struct{}

// electionCandidateMsg is posted by the router when an incoming
// connection carries a CER from the same Origin-Host as a peer that is
// itself mid-connect: the candidate connection and
// its CER are stashed until the outgoing attempt resolves one way or the
// other, at which point election decides the winner.
type electionCandidateMsg struct {
	Cnx *transport.Cnx
	CER *diammsg.DiameterMessage
	Caps *capability.PeerCapabilities
}

// reconnectTickMsg fires the Tc timer while CLOSED, triggering a new
// connection attempt.
type reconnectTickMsg struct{}

// closingGraceElapsedMsg fires once the fixed CLOSING_GRACE delay passes.
type closingGraceElapsedMsg struct{}
