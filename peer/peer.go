// Package peer implements the per-peer object and state machine:
// identity, capability cache, sent-request table, hop-by-hop counter,
// outgoing queue, and the full thirteen-state PSM
// (NEW/CLOSED/WAITCNXACK/WAITCNXACK_ELEC/WAITCEA/OPEN_HANDSHAKE/OPEN/
// OPEN_NEW/SUSPECT/REOPEN/CLOSING/CLOSING_GRACE/ZOMBIE). One goroutine
// owns all mutable state per peer and communicates by posting typed
// messages to its own buffered channel, wired to the
// capability/watchdog/transport packages for the handshake, keepalive
// and connection-context concerns.
package peer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"freediameterd/capability"
	"freediameterd/config"
	"freediameterd/diammsg"
	"freediameterd/metrics"
	"freediameterd/transport"
	"freediameterd/watchdog"
)

const eventLoopCapacity = 100

// MessageHandler is invoked for every non-base-application request
// received from this peer. Returning an error causes an
// UNABLE_TO_COMPLY answer to be sent in its place.
type MessageHandler func(request *diammsg.DiameterMessage) (*diammsg.DiameterMessage, error)

// RerouteFunc re-enters the router's routing-out stage for a message
// this peer could not deliver because its connection died, handing back
// the original caller's response channel so routing-out's eventual
// answer (or DIAMETER_UNABLE_TO_DELIVER) still reaches whoever is
// waiting on it.
type RerouteFunc func(msg *diammsg.DiameterMessage, rc chan interface{}, timeout time.Duration)

// Peer is the actor owning one Diameter signalling association. All
// mutable fields below the State field are touched only from the event
// loop goroutine; State is additionally read from other goroutines
// (the router's accept path, for election decisions) via atomic loads.
type Peer struct {
	ci         *config.PolicyConfigurationManager
	PeerConfig config.DiameterPeer

	// localIdentity is this node's own DiameterIdentity, used for
	// election and CER/CEA stamping.
	localIdentity string

	state atomic.Int32

	eventLoopChannel      chan interface{}
	readLoopDoneChannel   chan bool
	routerControlChannel  chan interface{}

	cnx           *transport.Cnx
	electionCnx   *transport.Cnx // receiver slot held during election
	pendingCER    *diammsg.DiameterMessage
	pendingCaps   *capability.PeerCapabilities

	cancel context.CancelFunc

	sentRequests *SentRequestTable
	hbhCounter   uint32

	handler  MessageHandler
	rerouter RerouteFunc

	watchdogTimer *watchdog.Timer
	tcTimer       *time.Timer
	graceTimer    *time.Timer

	wg sync.WaitGroup
}

// State returns the peer's current PSM state. Safe to call from any
// goroutine.
func (dp *Peer) State() State {
	return State(dp.state.Load())
}

func (dp *Peer) setState(s State) {
	dp.state.Store(int32(s))
}

// NewActivePeer creates a Peer that will itself initiate the TCP/SCTP
// connection and the CER/CEA handshake.
func NewActivePeer(configInstanceName string, rc chan interface{}, peerConfig config.DiameterPeer, handler MessageHandler) *Peer {
	ci := config.GetPolicyConfigInstance(configInstanceName)

	dp := &Peer{
		ci:                   ci,
		PeerConfig:           peerConfig,
		localIdentity:        ci.DiameterServerConf().DiameterHost,
		eventLoopChannel:     make(chan interface{}, eventLoopCapacity),
		routerControlChannel: rc,
		sentRequests:         NewSentRequestTable(),
		handler:              handler,
		watchdogTimer:        watchdog.NewTimer(peerConfig.WatchdogIntervalMillis),
	}
	dp.setState(StateNew)
	dp.sentRequests.OnTimeout = dp.onSentRequestTimeout

	config.GetLogger().Debugf("creating active diameter peer for %s", peerConfig.DiameterHost)

	timeout := peerConfig.ConnectionTimeoutMillis
	if timeout == 0 {
		timeout = 5000
	}

	dp.setState(StateWaitCnxAck)
	dp.wg.Add(1)
	go dp.connect(timeout, peerConfig.IPAddress, peerConfig.Port)

	go dp.eventLoop()

	return dp
}

// NewPassivePeer creates a Peer over an already-accepted connection. The
// caller (router) has typically already read and parsed the inbound
// CER; pass it via Admit once the event loop is running, or nil to have
// the peer wait for it to arrive off the wire the ordinary way.
func NewPassivePeer(configInstanceName string, rc chan interface{}, cnx *transport.Cnx, handler MessageHandler) *Peer {
	ci := config.GetPolicyConfigInstance(configInstanceName)

	dp := &Peer{
		ci:                   ci,
		localIdentity:        ci.DiameterServerConf().DiameterHost,
		eventLoopChannel:     make(chan interface{}, eventLoopCapacity),
		routerControlChannel: rc,
		cnx:                  cnx,
		sentRequests:         NewSentRequestTable(),
		handler:              handler,
	}
	dp.setState(StateClosed)
	dp.sentRequests.OnTimeout = dp.onSentRequestTimeout

	config.GetLogger().Debugf("creating passive diameter peer for %s", cnx.RemoteAddr().String())

	dp.readLoopDoneChannel = make(chan bool, 1)
	go dp.readLoop(dp.readLoopDoneChannel)
	go dp.eventLoop()

	return dp
}

// SetRerouter wires the callback failover uses to re-post outstanding
// requests into the router's routing-out stage instead of just erroring
// out their response channel. The router calls this right after
// constructing the peer.
func (dp *Peer) SetRerouter(r RerouteFunc) {
	dp.rerouter = r
}

// Admit feeds a CER already read off the wire (by the router, which had
// to peek it to decide peer identity) directly into the event loop, so
// the peer doesn't redundantly wait for it again.
func (dp *Peer) Admit(cer *diammsg.DiameterMessage, peerConfig config.DiameterPeer) {
	dp.eventLoopChannel <- IngressDiameterMsg{Message: cer}
	dp.PeerConfig = peerConfig
}

// PostElectionCandidate hands a competing incoming connection + CER to a
// peer that is itself mid-connect (WAITCNXACK) or awaiting CEA
// (WAITCEA): election runs immediately, or is
// deferred until the outgoing attempt resolves.
func (dp *Peer) PostElectionCandidate(cnx *transport.Cnx, cer *diammsg.DiameterMessage, caps *capability.PeerCapabilities) {
	dp.eventLoopChannel <- electionCandidateMsg{Cnx: cnx, CER: cer, Caps: caps}
}

// SetDown terminates the Peer's connection and event loop; a
// PeerDownEvent will eventually be posted to the router's control
// channel.
func (dp *Peer) SetDown() {
	dp.eventLoopChannel <- peerCloseCommandMsg{}
}

// Terminate runs the graceful TERMINATE path: send DPR
// if OPEN/REOPEN/SUSPECT, wait briefly for DPA, then ZOMBIE.
func (dp *Peer) Terminate(cause int64) {
	dp.eventLoopChannel <- terminateMsg{Cause: cause}
}

// Close waits for the read loop and in-flight handlers to finish, then
// closes the event loop channel. Call only after a PeerDownEvent.
func (dp *Peer) Close() {
	if dp.readLoopDoneChannel != nil {
		<-dp.readLoopDoneChannel
	}
	dp.wg.Wait()
	close(dp.eventLoopChannel)

	config.GetLogger().Debugf("%s closed", dp.PeerConfig.DiameterHost)
}

///////////////////////////////////////////////////////////////////////////
// Event loop
///////////////////////////////////////////////////////////////////////////

func (dp *Peer) eventLoop() {
	logger := config.GetLogger()

	defer func() {
		dp.watchdogTimer.Stop()
		if dp.tcTimer != nil {
			dp.tcTimer.Stop()
		}
		if dp.graceTimer != nil {
			dp.graceTimer.Stop()
		}
		if dp.cnx != nil {
			dp.cnx.Close()
		}
	}()

	var watchdogC <-chan time.Time
	var tcC <-chan time.Time
	var graceC <-chan time.Time

	for {
		select {
		case <-watchdogC:
			dp.onWatchdogTick()

		case <-tcC:
			tcC = nil
			dp.reconnect()

		case <-graceC:
			graceC = nil
			dp.onClosingGraceElapsed()

		case in, ok := <-dp.eventLoopChannel:
			if !ok {
				return
			}

			switch v := in.(type) {

			case connectionEstablishedMsg:
				dp.onConnectionEstablished(v)
				if dp.State() == StateWaitCEA {
					watchdogC = nil
				}

			case connectionErrorMsg:
				logger.Errorf("connection error %s", v.Error)
				dp.failover(v.Error)
				tcC = dp.armTcTimer()

			case readEOFMsg:
				if dp.State().IsOpen() || dp.State() == StateSuspect || dp.State() == StateReopen {
					logger.Errorf("connection terminated by remote peer %s", dp.PeerConfig.DiameterHost)
				} else {
					logger.Debugf("connection terminated by remote peer %s", dp.PeerConfig.DiameterHost)
				}
				dp.failover(nil)
				tcC = dp.armTcTimer()

			case readErrorMsg:
				logger.Errorf("connection read error %v with remote peer %s", v.Error, dp.PeerConfig.DiameterHost)
				dp.failover(v.Error)
				tcC = dp.armTcTimer()

			case writeErrorMsg:
				logger.Errorf("write error %s with remote peer %s", v.Error, dp.PeerConfig.DiameterHost)
				dp.failover(v.Error)
				tcC = dp.armTcTimer()

			case peerUpMsg:
				if v.OpenNew {
					dp.setState(StateOpenNew)
				} else {
					dp.setState(StateOpen)
				}
				dp.routerControlChannel <- PeerUpEvent{Sender: dp, DiameterHost: v.DiameterHost}
				watchdogC = dp.watchdogTimer.Start()

			case electionCandidateMsg:
				dp.onElectionCandidate(v)

			case peerCloseCommandMsg:
				logger.Debug("processing close command")
				dp.doClose()
				return

			case terminateMsg:
				dp.onTerminate(v.Cause)
				graceC = dp.graceTimer.C

			case EgressDiameterMsg:
				dp.onEgress(v)

			case IngressDiameterMsg:
				dp.onIngress(v)
				if graceC == nil && dp.graceTimer != nil && dp.State() == StateClosingGrace {
					graceC = dp.graceTimer.C
				}

			case CancelRequestMsg:
				dp.onCancelRequest(v)
			}
		}
	}
}

///////////////////////////////////////////////////////////////////////////
// Connection establishment, election
///////////////////////////////////////////////////////////////////////////

func (dp *Peer) connect(connTimeoutMillis int, ipAddress string, port int) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(time.Duration(connTimeoutMillis)*time.Millisecond))
	dp.cancel = cancel
	defer func() {
		cancel()
		dp.wg.Done()
	}()

	proto := transport.ProtoTCP
	if dp.PeerConfig.UseSCTP {
		proto = transport.ProtoSCTP
	}

	endpoints := []transport.Endpoint{{Addr: net.ParseIP(ipAddress), Port: port, Configured: true, Primary: true}}
	cnx, err := transport.Connect(ctx, endpoints, port, proto, time.Duration(connTimeoutMillis)*time.Millisecond)
	if err != nil {
		dp.eventLoopChannel <- connectionErrorMsg{err}
		return
	}
	dp.eventLoopChannel <- connectionEstablishedMsg{Cnx: cnx}
}

func (dp *Peer) onConnectionEstablished(v connectionEstablishedMsg) {
	config.GetLogger().Debugf("connection established with %s", v.Cnx.RemoteAddr().String())

	dp.cnx = v.Cnx
	dp.readLoopDoneChannel = make(chan bool, 1)
	go dp.readLoop(dp.readLoopDoneChannel)

	if dp.State() == StateWaitCnxAckElection {
		// An election candidate arrived while we were still
		// connecting; resolve it now that we have our own cnx.
		dp.resolvePendingWithOwnConnection()
		return
	}

	dp.setState(StateWaitCEA)

	cer, err := capability.BuildCER(dp.ci, dp.PeerConfig, dp.cnx.IsTLS())
	if err != nil {
		panic("could not build CER")
	}
	dp.eventLoopChannel <- EgressDiameterMsg{Message: cer}
}

// onElectionCandidate implements the WAITCNXACK -> WAITCNXACK_ELEC ->
// (connect resolves) flow: an incoming CER arrived for our identity
// while our own connect was still in flight; it is stashed until the
// outgoing attempt resolves, at which point election runs.
func (dp *Peer) onElectionCandidate(v electionCandidateMsg) {
	switch dp.State() {
	case StateWaitCnxAck:
		// Stash; resolved once our own connect attempt completes.
		dp.electionCnx = v.Cnx
		dp.setState(StateWaitCnxAckElection)
		dp.pendingCER = v.CER
		dp.pendingCaps = v.Caps

	case StateWaitCnxAckElection, StateWaitCEA:
		dp.runElection(v.Cnx, v.CER, v.Caps)

	default:
		// Any other state: reply DIAMETER_UNABLE_TO_COMPLY and discard.
		cea := capability.BuildCEA(v.CER, dp.ci, dp.PeerConfig, diammsg.DIAMETER_UNABLE_TO_COMPLY, v.Cnx.IsTLS())
		cea.WriteTo(v.Cnx.Writer)
		v.Cnx.Writer.Flush()
		v.Cnx.Close()
	}
}

func (dp *Peer) resolvePendingWithOwnConnection() {
	dp.runElection(dp.electionCnx, dp.pendingCER, dp.pendingCaps)
	dp.electionCnx = nil
	dp.pendingCER = nil
	dp.pendingCaps = nil
}

// runElection implements the election rule: the side whose own
// DiameterIdentity compares lexicographically smaller (case-insensitive)
// wins and keeps its initiated connection; the loser closes its own and
// adopts the incoming one.
func (dp *Peer) runElection(candidateCnx *transport.Cnx, cer *diammsg.DiameterMessage, caps *capability.PeerCapabilities) {
	if capability.WinsElection(dp.localIdentity, caps.OriginHost) {
		config.GetLogger().Infof("won election against %s, keeping own connection", caps.OriginHost)
		cea := capability.BuildCEA(cer, dp.ci, dp.PeerConfig, diammsg.DIAMETER_ELECTION_LOST, candidateCnx.IsTLS())
		cea.WriteTo(candidateCnx.Writer)
		candidateCnx.Writer.Flush()
		candidateCnx.Close()

		if dp.State() == StateWaitCnxAckElection {
			dp.setState(StateWaitCEA)
			cerOut, err := capability.BuildCER(dp.ci, dp.PeerConfig, dp.cnx.IsTLS())
			if err == nil {
				dp.eventLoopChannel <- EgressDiameterMsg{Message: cerOut}
			}
		}
		return
	}

	config.GetLogger().Infof("lost election against %s, adopting incoming connection", caps.OriginHost)

	// Abandon our own attempt.
	if dp.cancel != nil {
		dp.cancel()
	}
	if dp.cnx != nil {
		dp.cnx.Close()
	}

	dp.cnx = candidateCnx
	dp.readLoopDoneChannel = make(chan bool, 1)
	go dp.readLoop(dp.readLoopDoneChannel)

	dp.processCER(cer, caps)
}

///////////////////////////////////////////////////////////////////////////
// CER/CEA processing
///////////////////////////////////////////////////////////////////////////

func (dp *Peer) processCER(request *diammsg.DiameterMessage, caps *capability.PeerCapabilities) {
	serverConf := dp.ci.DiameterServerConf()

	if dp.PeerConfig.DiameterHost == "" {
		// Passive peer not yet bound to a configured identity: look one
		// up by the Origin-Host just presented, and validate the source
		// address falls in its configured network.
		peerConfig, found := dp.ci.PeersConf()[caps.OriginHost]
		if !found {
			config.GetLogger().Errorf("unknown peer %s", caps.OriginHost)
			dp.sendCEAAndClose(request, diammsg.DIAMETER_UNKNOWN_PEER, false)
			return
		}
		if tcpAddr, ok := dp.cnx.RemoteAddr().(*net.TCPAddr); ok {
			if !dp.ci.PeersConf().ValidateIncomingAddress(caps.OriginHost, tcpAddr.IP) {
				config.GetLogger().Errorf("invalid origin address for peer %s", caps.OriginHost)
				dp.sendCEAAndClose(request, diammsg.DIAMETER_UNKNOWN_PEER, false)
				return
			}
		}
		dp.PeerConfig = peerConfig
	} else if !capability.ValidateOriginHost(caps, dp.PeerConfig.DiameterHost) {
		dp.sendCEAAndClose(request, diammsg.DIAMETER_UNKNOWN_PEER, false)
		return
	}

	common := capability.CommonApplications(dp.PeerConfig, serverConf.IsRelay, caps)
	if !serverConf.IsRelay && len(common) == 0 {
		dp.sendCEAAndClose(request, diammsg.DIAMETER_NO_COMMON_APPLICATION, false)
		return
	}

	mode, ok := capability.NegotiateSecurity(dp.PeerConfig.RequireTLS, dp.cnx.IsTLS(), caps.InbandSecurity)
	if !ok {
		dp.sendCEAAndClose(request, diammsg.DIAMETER_NO_COMMON_SECURITY, false)
		return
	}

	cea := capability.BuildCEA(request, dp.ci, dp.PeerConfig, diammsg.DIAMETER_SUCCESS, dp.cnx.IsTLS())
	dp.eventLoopChannel <- EgressDiameterMsg{Message: cea}

	openNew := dp.cnx.Proto() == transport.ProtoSCTP

	if mode == capability.SecurityInbandOld {
		dp.setState(StateOpenHandshake)
		// TLS credential wiring is out of this core's scope beyond the
		// handshake call itself; callers needing it
		// supply a *tls.Config through the connection's Handshake.
	}

	dp.eventLoopChannel <- peerUpMsg{DiameterHost: caps.OriginHost, OpenNew: openNew}
}

func (dp *Peer) sendCEAAndClose(request *diammsg.DiameterMessage, resultCode int, alreadyTLS bool) {
	cea := capability.BuildCEA(request, dp.ci, dp.PeerConfig, resultCode, alreadyTLS)
	cea.WriteTo(dp.cnx.Writer)
	dp.cnx.Writer.Flush()
	dp.eventLoopChannel <- peerCloseCommandMsg{}
}

///////////////////////////////////////////////////////////////////////////
// Watchdog
///////////////////////////////////////////////////////////////////////////

func (dp *Peer) onWatchdogTick() {
	switch watchdog.Action(dp.watchdogTimer.OnTick()) {
	case watchdog.ActionSendDWR:
		dp.sendDWR()
	case watchdog.ActionSuspect:
		dp.setState(StateSuspect)
		dp.sendDWR()
	case watchdog.ActionConnectionError:
		config.GetLogger().Errorf("two consecutive watchdog intervals without DWA from %s", dp.PeerConfig.DiameterHost)
		dp.failover(fmt.Errorf("watchdog timeout"))
	}
}

func (dp *Peer) sendDWR() {
	dwr, err := watchdog.BuildDWR(dp.ci)
	if err != nil {
		return
	}
	dp.eventLoopChannel <- EgressDiameterMsg{Message: dwr}
}

///////////////////////////////////////////////////////////////////////////
// Ingress / egress
///////////////////////////////////////////////////////////////////////////

func (dp *Peer) onEgress(v EgressDiameterMsg) {
	if !dp.State().IsOpen() && dp.State() != StateWaitCEA && dp.State() != StateOpenHandshake && dp.State() != StateReopen && dp.State() != StateSuspect && dp.State() != StateClosing {
		config.GetLogger().Errorf("%s message was not sent because peer state is %s", v.Message.CommandName, dp.State())
		if v.RChan != nil {
			v.RChan <- fmt.Errorf("peer not open")
		}
		return
	}

	if v.Message.IsRequest && v.Message.ApplicationId != 0 {
		// Own the hbh id for this link: save the caller's hbh, overwrite with ours.
		restoreHbh := v.Message.HopByHopId
		v.Message.HopByHopId = dp.nextHbh()
		if _, exists := dp.sentRequests.Get(v.Message.HopByHopId); exists {
			if v.RChan != nil {
				v.RChan <- fmt.Errorf("duplicated HopByHopId")
			}
			return
		}

		key := metrics.PeerDiameterMetricFromMessage(dp.PeerConfig.DiameterHost, v.Message)
		timeout := v.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		dp.sentRequests.Put(v.Message.HopByHopId, v.Message, restoreHbh, timeout, v.RChan, key)
	}

	_, err := v.Message.WriteTo(dp.cnx.Writer)
	if err == nil {
		err = dp.cnx.Writer.Flush()
	}
	if err != nil {
		if entry, ok := dp.sentRequests.Remove(v.Message.HopByHopId); ok && entry.rchan != nil {
			entry.rchan <- err
		}
		dp.eventLoopChannel <- writeErrorMsg{err}
		return
	}

	if v.Message.IsRequest {
		metrics.PushPeerDiameterRequestSent(dp.PeerConfig.DiameterHost, v.Message)
	} else {
		metrics.PushPeerDiameterAnswerSent(dp.PeerConfig.DiameterHost, v.Message)
	}
}

func (dp *Peer) onIngress(v IngressDiameterMsg) {
	config.GetLogger().Debugf("<- receiving message %s", v.Message)

	if v.Message.ApplicationId == 0 {
		dp.onBaseIngress(v.Message)
		return
	}

	if v.Message.IsRequest {
		metrics.PushPeerDiameterRequestReceived(dp.PeerConfig.DiameterHost, v.Message)
		dp.wg.Add(1)
		go func() {
			defer dp.wg.Done()
			resp, err := dp.handler(v.Message)
			if err != nil {
				config.GetLogger().Error(err)
				errorResp := diammsg.NewDiameterAnswer(v.Message)
				errorResp.AddOriginAVPs(dp.ci)
				errorResp.Add("Result-Code", diammsg.DIAMETER_UNABLE_TO_COMPLY)
				dp.eventLoopChannel <- EgressDiameterMsg{Message: errorResp}
			} else {
				dp.eventLoopChannel <- EgressDiameterMsg{Message: resp}
			}
		}()
		return
	}

	// Answer: restore the caller's original hbh before delivery
	//.
	metrics.PushPeerDiameterAnswerReceived(dp.PeerConfig.DiameterHost, v.Message)

	entry, ok := dp.sentRequests.Remove(v.Message.HopByHopId)
	if !ok {
		metrics.PushPeerDiameterAnswerStalled(dp.PeerConfig.DiameterHost, v.Message)
		config.GetLogger().Errorf("stalled diameter answer: %v", *v.Message)
		return
	}

	v.Message.HopByHopId = entry.restoreHbh
	if entry.rchan != nil {
		entry.rchan <- v.Message
	}
}

func (dp *Peer) onBaseIngress(msg *diammsg.DiameterMessage) {
	switch msg.CommandName {
	case "Capabilities-Exchange":
		dp.onBaseCapabilitiesExchange(msg)
	case "Device-Watchdog":
		dp.onBaseWatchdog(msg)
	case "Disconnect-Peer":
		dp.onBaseDisconnect(msg)
	default:
		config.GetLogger().Warnf("command %d for base application not handled by PSM", msg.CommandCode)
	}
}

func (dp *Peer) onBaseCapabilitiesExchange(msg *diammsg.DiameterMessage) {
	if msg.IsRequest {
		caps, err := capability.ParseCER(msg)
		if err != nil {
			config.GetLogger().Errorf("bad CER: %s", err)
			dp.eventLoopChannel <- peerCloseCommandMsg{}
			return
		}
		dp.processCER(msg, caps)
		return
	}

	// CEA received: we are the initiator.
	doDisconnect := true
	originHostAVP, err := msg.GetAVP("Origin-Host")
	if err != nil {
		config.GetLogger().Errorf("error getting Origin-Host: %s", err)
	} else if dp.PeerConfig.DiameterHost != "" && !strings.EqualFold(originHostAVP.GetString(), dp.PeerConfig.DiameterHost) {
		config.GetLogger().Errorf("CEA Origin-Host mismatch: got %s expected %s", originHostAVP.GetString(), dp.PeerConfig.DiameterHost)
	} else if msg.GetResultCode() != diammsg.DIAMETER_SUCCESS {
		config.GetLogger().Errorf("CEA returned Result-Code %d", msg.GetResultCode())
	} else {
		doDisconnect = false
	}

	if doDisconnect {
		dp.eventLoopChannel <- peerCloseCommandMsg{}
		return
	}

	openNew := dp.cnx.Proto() == transport.ProtoSCTP
	dp.eventLoopChannel <- peerUpMsg{DiameterHost: dp.PeerConfig.DiameterHost, OpenNew: openNew}
}

func (dp *Peer) onBaseWatchdog(msg *diammsg.DiameterMessage) {
	if msg.IsRequest {
		dwa := watchdog.BuildDWA(msg, dp.ci)
		dp.eventLoopChannel <- EgressDiameterMsg{Message: dwa}
		return
	}

	if msg.GetResultCode() != diammsg.DIAMETER_SUCCESS {
		config.GetLogger().Errorf("bad result code in DWA: %d", msg.GetResultCode())
		dp.failover(fmt.Errorf("bad DWA result code"))
		return
	}

	reopenComplete := dp.watchdogTimer.OnDWA(dp.State() == StateReopen)
	if dp.State() == StateSuspect {
		dp.setState(StateOpen)
	}
	if reopenComplete {
		dp.setState(StateOpen)
	}
}

func (dp *Peer) onBaseDisconnect(msg *diammsg.DiameterMessage) {
	if msg.IsRequest {
		dpa := watchdog.BuildDPA(msg, dp.ci)
		dp.eventLoopChannel <- EgressDiameterMsg{Message: dpa}
		dp.setState(StateClosing)
		dp.graceTimer = time.NewTimer(watchdog.ClosingGraceDelay(dp.PeerConfig.ConnectionTimeoutMillis / 1000))
		dp.setState(StateClosingGrace)
		return
	}
	// DPA received in response to our own DPR.
	dp.setState(StateClosingGrace)
	dp.graceTimer = time.NewTimer(watchdog.ClosingGraceDelay(dp.PeerConfig.ConnectionTimeoutMillis / 1000))
}

func (dp *Peer) onClosingGraceElapsed() {
	if dp.PeerConfig.Persistent {
		dp.setState(StateClosed)
		dp.eventLoopChannel <- peerCloseCommandMsg{}
	} else {
		dp.setState(StateZombie)
		dp.eventLoopChannel <- peerCloseCommandMsg{}
	}
}

func (dp *Peer) onTerminate(cause int64) {
	if dp.State().IsOpen() || dp.State() == StateSuspect || dp.State() == StateReopen {
		dpr, err := watchdog.BuildDPR(dp.ci, watchdog.DisconnectCause(cause))
		if err == nil {
			dp.eventLoopChannel <- EgressDiameterMsg{Message: dpr}
		}
		dp.setState(StateClosing)
	}
	dp.graceTimer = time.NewTimer(watchdog.ClosingGraceDelay(3))
}

func (dp *Peer) onCancelRequest(v CancelRequestMsg) {
	entry, ok := dp.sentRequests.Remove(v.HopByHopId)
	if !ok {
		config.GetLogger().Errorf("attempt to cancel a non-existing request with hbh %d", v.HopByHopId)
		return
	}
	if entry.rchan != nil {
		entry.rchan <- v.Reason
	}
	metrics.PushPeerDiameterRequestTimeout(dp.PeerConfig.DiameterHost, entry.metricKey)
}

// onSentRequestTimeout runs on the sent-request table's own expiry
// goroutine;
// it re-posts into the peer's event loop rather than touching peer state
// directly.
func (dp *Peer) onSentRequestTimeout(entry *sentRequestEntry) {
	dp.eventLoopChannel <- CancelRequestMsg{HopByHopId: entry.hbhId, Reason: fmt.Errorf("timeout")}
}

///////////////////////////////////////////////////////////////////////////
// Failover, reconnection, teardown
///////////////////////////////////////////////////////////////////////////

// failover implements the failover conservation rule:
// §8 "Failover conservation": every outstanding request is re-posted
// with its T flag set rather than simply answered with a local error,
// so routing-out gets a chance to pick the next-best candidate peer. A
// peer with no rerouter wired (none of the router's peers should reach
// this state in practice) falls back to delivering a plain error to the
// caller, as before.
func (dp *Peer) failover(cause error) {
	dp.watchdogTimer.Stop()

	for _, entry := range dp.sentRequests.Drain() {
		if entry.rchan == nil {
			continue
		}
		if dp.rerouter != nil {
			entry.message.HopByHopId = entry.restoreHbh
			entry.message.IsRetransmission = true

			var timeout time.Duration
			if !entry.deadline.IsZero() {
				if remaining := time.Until(entry.deadline); remaining > 0 {
					timeout = remaining
				}
			}
			dp.rerouter(entry.message, entry.rchan, timeout)
			continue
		}

		if cause != nil {
			entry.rchan <- fmt.Errorf("peer connection lost: %w", cause)
		} else {
			entry.rchan <- fmt.Errorf("peer connection lost")
		}
	}

	if dp.PeerConfig.Persistent {
		dp.setState(StateClosed)
	} else {
		dp.setState(StateZombie)
		dp.eventLoopChannel <- peerCloseCommandMsg{}
	}
}

func (dp *Peer) armTcTimer() <-chan time.Time {
	if dp.State() != StateClosed || dp.PeerConfig.ConnectionPolicy != "active" {
		return nil
	}
	tc := dp.PeerConfig.ConnectionTimeoutMillis
	if tc == 0 {
		tc = 30000
	}
	dp.tcTimer = time.NewTimer(time.Duration(tc) * time.Millisecond)
	return dp.tcTimer.C
}

func (dp *Peer) reconnect() {
	if dp.State() != StateClosed {
		return
	}
	dp.setState(StateWaitCnxAck)
	timeout := dp.PeerConfig.ConnectionTimeoutMillis
	if timeout == 0 {
		timeout = 5000
	}
	dp.wg.Add(1)
	go dp.connect(timeout, dp.PeerConfig.IPAddress, dp.PeerConfig.Port)
}

func (dp *Peer) doClose() {
	dp.setState(StateZombie)

	if dp.cancel != nil {
		dp.cancel()
	}
	if dp.cnx != nil {
		dp.cnx.Close()
	}

	for _, entry := range dp.sentRequests.Drain() {
		if entry.rchan != nil {
			entry.rchan <- fmt.Errorf("request cancelled due to peer down")
		}
	}

	dp.routerControlChannel <- PeerDownEvent{Sender: dp}
}

func (dp *Peer) nextHbh() uint32 {
	return atomic.AddUint32(&dp.hbhCounter, 1)
}

///////////////////////////////////////////////////////////////////////////
// Read loop
///////////////////////////////////////////////////////////////////////////

func (dp *Peer) readLoop(ch chan bool) {
	for {
		dm := diammsg.DiameterMessage{}
		_, err := dm.ReadFrom(dp.cnx.Reader)
		if err != nil {
			if err.Error() == "EOF" {
				dp.eventLoopChannel <- readEOFMsg{}
			} else {
				dp.eventLoopChannel <- readErrorMsg{err}
			}
			break
		}
		dp.eventLoopChannel <- IngressDiameterMsg{Message: &dm}
	}
	close(ch)
}

///////////////////////////////////////////////////////////////////////////
// Synchronous request/answer helpers (used by the router and handlers)
///////////////////////////////////////////////////////////////////////////

// DiameterExchangeWithChannel sends a request and delivers the answer or
// error to rc, which is closed by nobody here: the caller owns it (the
// sentRequest bookkeeping delivers exactly one value and leaves the
// channel open so the router may re-route failover messages without a
// reallocation).
func (dp *Peer) DiameterExchangeWithChannel(dm *diammsg.DiameterMessage, timeout time.Duration, rc chan interface{}) {
	if cap(rc) < 1 {
		panic("using an unbuffered response channel")
	}

	dp.wg.Add(1)
	defer dp.wg.Done()

	if dm.ApplicationId == 0 {
		rc <- fmt.Errorf("should not use this method to send a Base Application message")
		return
	}
	if !dp.State().IsOpen() {
		rc <- fmt.Errorf("tried to send a diameter request in a non engaged peer, state is %s", dp.State())
		return
	}
	if !dm.IsRequest {
		rc <- fmt.Errorf("diameter message is not a request")
		return
	}

	dp.eventLoopChannel <- EgressDiameterMsg{Message: dm, RChan: rc, Timeout: timeout}
}

// DiameterExhangeWithAnswer sends a request and blocks for the answer or
// error (timeout or network error).
func (dp *Peer) DiameterExhangeWithAnswer(dm *diammsg.DiameterMessage, timeout time.Duration) (*diammsg.DiameterMessage, error) {
	responseChannel := make(chan interface{}, 1)
	dp.DiameterExchangeWithChannel(dm, timeout, responseChannel)

	switch v := (<-responseChannel).(type) {
	case error:
		return nil, v
	case *diammsg.DiameterMessage:
		return v, nil
	}
	panic("unreachable code in DiameterExhangeWithAnswer")
}

// DiameterRequestWithAnswerAsync sends the message and invokes handler
// with the eventual answer or error on a fresh goroutine.
func (dp *Peer) DiameterRequestWithAnswerAsync(dm *diammsg.DiameterMessage, timeout time.Duration, handler func(resp *diammsg.DiameterMessage, e error)) {
	go func() {
		handler(dp.DiameterExhangeWithAnswer(dm, timeout))
	}()
}

// tstForceSocketError closes the underlying connection out from under the
// read/write loops, for use by tests simulating an unexpected network
// failure.
func (dp *Peer) tstForceSocketError() {
	if dp.cnx != nil {
		dp.cnx.Close()
	}
}

// tstSendDisconnectPeer triggers the graceful TERMINATE path, for tests
// exercising the DPR/DPA flow.
func (dp *Peer) tstSendDisconnectPeer() {
	dp.Terminate(int64(watchdog.CauseRebooting))
}
