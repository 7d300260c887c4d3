package peer

// State is one of the thirteen PSM states of the peer state machine. Stable
// states are marked with a trailing asterisk in the spec prose; we don't
// encode that distinction in the type, only in comments, since nothing in
// the PSM branches on stability directly.
type State int

const (
	// NEW: created, PSM goroutine not yet running.
	StateNew State = iota
	// CLOSED: no connection; will re-attempt after Tc.
	StateClosed
	// WAITCNXACK: outgoing TCP/SCTP connect in progress.
	StateWaitCnxAck
	// WAITCNXACK_ELEC: outgoing connect still in progress AND a CER
	// arrived on an incoming connection from the same peer.
	StateWaitCnxAckElection
	// WAITCEA: CER sent, awaiting CEA.
	StateWaitCEA
	// OPEN_HANDSHAKE: TLS handshake in progress (transient, for debug).
	StateOpenHandshake
	// OPEN: fully up.
	StateOpen
	// OPEN_NEW: same as OPEN but the peer has just sent CEA and forces
	// ordered first message on all streams (send DWR, wait any reply).
	StateOpenNew
	// SUSPECT: a DWR was sent and Tw elapsed without DWA.
	StateSuspect
	// REOPEN: connection re-established, needs 3 DWR/DWA round-trips
	// before OPEN again.
	StateReopen
	// CLOSING: DPR sent or received; draining.
	StateClosing
	// CLOSING_GRACE: short delay after DPR/DPA for in-flight messages.
	StateClosingGrace
	// ZOMBIE: PSM goroutine exited; must be restarted or peer deleted.
	StateZombie
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateClosed:
		return "CLOSED"
	case StateWaitCnxAck:
		return "WAITCNXACK"
	case StateWaitCnxAckElection:
		return "WAITCNXACK_ELEC"
	case StateWaitCEA:
		return "WAITCEA"
	case StateOpenHandshake:
		return "OPEN_HANDSHAKE"
	case StateOpen:
		return "OPEN"
	case StateOpenNew:
		return "OPEN_NEW"
	case StateSuspect:
		return "SUSPECT"
	case StateReopen:
		return "REOPEN"
	case StateClosing:
		return "CLOSING"
	case StateClosingGrace:
		return "CLOSING_GRACE"
	case StateZombie:
		return "ZOMBIE"
	default:
		return "UNKNOWN"
	}
}

// IsOpen reports whether the state is one of the two "fully up" variants
// eligible to receive application traffic and routing-out candidacy
//.
func (s State) IsOpen() bool {
	return s == StateOpen || s == StateOpenNew
}
