// Package router implements the routing and dispatch stage sitting above
// the peer layer: one Manager per configuration instance owns the
// listening socket, the table of configured peers (engagement and
// election bookkeeping), a pool of locally registered extension
// callbacks, and the routing-out decision (direct Destination-Host
// match, then realm/application rules), stamping Route-Record and
// rejecting loops before anything is forwarded.
package router

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"freediameterd/config"
	"freediameterd/diammsg"
	"freediameterd/hooks"
	"freediameterd/metrics"
	"freediameterd/peer"
	"freediameterd/transport"

	"golang.org/x/net/http2"
)

// Statuses of the Router
const (
	StatusOperational = int32(0)
	StatusClosing     = int32(1)
)

// Size of the channel for getting radius messages to route, kept for
// parity with the Diameter queue even though no radius routing is wired.
const RADIUS_REQUESTS_QUEUE_SIZE = 16

// Size of the channel for getting Diameter messages to route.
const DIAMETER_REQUESTS_QUEUE_SIZE = 16

// Size of the channel for getting peer control messages.
const CONTROL_QUEUE_SIZE = 16

// Timeout in seconds for http2 handlers.
const HTTP_TIMEOUT_SECONDS = 10

// Ticker interval for the peer table refresh.
const PEER_CHECK_INTERVAL_SECONDS = 60

// Default timeout for requests routed without an explicit one (e.g. a
// request forwarded to another peer instead of being handled locally).
const DEFAULT_REQUEST_TIMEOUT_SECONDS = 10

// RouterSetDownCommand orders an orderly shutdown of the Router.
type RouterSetDownCommand struct{}

// RoutableDiameterRequest is a Diameter message awaiting a routing
// decision, together with the channel its answer or error is delivered
// on.
type RoutableDiameterRequest struct {
	Message *diammsg.DiameterMessage
	RChan   chan interface{}
	Timeout time.Duration
}

// HandlerFunc processes a request matched by a dispatch pool rule.
type HandlerFunc func(request *diammsg.DiameterMessage) (*diammsg.DiameterMessage, error)

type peerEntry struct {
	Peer             *peer.Peer
	IsEngaged        bool
	IsUp             bool
	LastStatusChange time.Time
	LastError        error
}

///////////////////////////////////////////////////////////////////////////
// Dispatch pool
///////////////////////////////////////////////////////////////////////////

// dispatchRule matches a message by an additive specificity score:
// command-code match, then application-id match, then required AVPs each
// add to the score, so the most specific registered rule wins when
// several could apply to the same message.
type dispatchRule struct {
	commandCode uint32
	hasCommand  bool
	appId       uint32
	hasApp      bool
	requireAVP  []string
	handler     HandlerFunc
}

func (r *dispatchRule) specificity() int {
	score := 0
	if r.hasCommand {
		score += 4
	}
	if r.hasApp {
		score += 2
	}
	score += len(r.requireAVP)
	return score
}

func (r *dispatchRule) matches(msg *diammsg.DiameterMessage) bool {
	if r.hasCommand && r.commandCode != msg.CommandCode {
		return false
	}
	if r.hasApp && r.appId != msg.ApplicationId {
		return false
	}
	for _, avpName := range r.requireAVP {
		if _, err := msg.GetAVP(avpName); err != nil {
			return false
		}
	}
	return true
}

// DispatchPool holds the extensions' locally registered callbacks,
// consulted before the realm/application routing rules: an extension
// answering Credit-Control requests directly, say, doesn't need a
// loopback HTTP handler entry.
type DispatchPool struct {
	mu    sync.RWMutex
	rules []dispatchRule
}

func NewDispatchPool() *DispatchPool {
	return &DispatchPool{}
}

// Register adds a callback. hasCommand/hasApp select whether commandCode/
// appId constrain the match; requireAVP additionally requires the named
// AVPs to be present.
func (p *DispatchPool) Register(commandCode uint32, hasCommand bool, appId uint32, hasApp bool, requireAVP []string, handler HandlerFunc) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rules = append(p.rules, dispatchRule{
		commandCode: commandCode,
		hasCommand:  hasCommand,
		appId:       appId,
		hasApp:      hasApp,
		requireAVP:  requireAVP,
		handler:     handler,
	})
}

// Find returns the most specific matching handler, or nil.
func (p *DispatchPool) Find(msg *diammsg.DiameterMessage) HandlerFunc {
	p.mu.RLock()
	defer p.mu.RUnlock()

	var best *dispatchRule
	for i := range p.rules {
		r := &p.rules[i]
		if !r.matches(msg) {
			continue
		}
		if best == nil || r.specificity() > best.specificity() {
			best = r
		}
	}
	if best == nil {
		return nil
	}
	return best.handler
}

///////////////////////////////////////////////////////////////////////////
// Manager
///////////////////////////////////////////////////////////////////////////

// Manager owns the lifecycle of peers and routes Diameter requests to
// the appropriate destination, following the actor model: all state
// changes happen inside eventLoop.
type Manager struct {
	instanceName string
	status       atomic.Int32

	listener *transport.Listener

	peersTable      map[string]peerEntry
	peerTableTicker *time.Ticker

	peerControlChannel    chan interface{}
	diameterRequestsChan  chan RoutableDiameterRequest
	managerControlChannel chan interface{}
	ManagerDoneChannel    chan struct{}

	http2Client http.Client

	dispatch *DispatchPool
	hooks    *hooks.Registry
}

// NewManager creates and runs a Manager for the named configuration
// instance.
func NewManager(instanceName string) *Manager {
	m := &Manager{
		instanceName:          instanceName,
		peersTable:            make(map[string]peerEntry),
		peerTableTicker:       time.NewTicker(PEER_CHECK_INTERVAL_SECONDS * time.Second),
		peerControlChannel:    make(chan interface{}, CONTROL_QUEUE_SIZE),
		diameterRequestsChan:  make(chan RoutableDiameterRequest, DIAMETER_REQUESTS_QUEUE_SIZE),
		managerControlChannel: make(chan interface{}),
		ManagerDoneChannel:    make(chan struct{}),
		dispatch:              NewDispatchPool(),
		hooks:                 hooks.Default,
	}

	transportCfg := &http2.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
	}
	m.http2Client = http.Client{Timeout: HTTP_TIMEOUT_SECONDS * time.Second, Transport: transportCfg}

	go m.eventLoop()

	return m
}

// Close starts the closing process: StatusClosing, stop accepting new
// connections, disengage every up peer, then signal ManagerDoneChannel
// once all of them have gone down.
func (m *Manager) Close() {
	m.managerControlChannel <- RouterSetDownCommand{}
}

// RegisterHandler adds a locally dispatched extension callback to the
// dispatch pool, consulted ahead of the realm/application routing rules.
func (m *Manager) RegisterHandler(commandCode uint32, hasCommand bool, appId uint32, hasApp bool, requireAVP []string, handler HandlerFunc) {
	m.dispatch.Register(commandCode, hasCommand, appId, hasApp, requireAVP, handler)
}

// RouteDiameterRequest enqueues a message for routing and returns the
// channel its answer or error will arrive on.
func (m *Manager) RouteDiameterRequest(request *diammsg.DiameterMessage, timeout time.Duration) chan interface{} {
	responseChannel := make(chan interface{}, 1)
	m.diameterRequestsChan <- RoutableDiameterRequest{Message: request, RChan: responseChannel, Timeout: timeout}
	return responseChannel
}

// reroute is a peer.RerouteFunc: it re-enters routing-out for a message
// a dying peer could not deliver, reusing the original caller's response
// channel so the eventual answer or DIAMETER_UNABLE_TO_DELIVER still
// reaches them.
func (m *Manager) reroute(msg *diammsg.DiameterMessage, rc chan interface{}, timeout time.Duration) {
	m.diameterRequestsChan <- RoutableDiameterRequest{Message: msg, RChan: rc, Timeout: timeout}
}

func (m *Manager) localHandler(request *diammsg.DiameterMessage) (*diammsg.DiameterMessage, error) {
	r := <-m.RouteDiameterRequest(request, 0)
	switch v := r.(type) {
	case error:
		return nil, v
	case *diammsg.DiameterMessage:
		return v, nil
	}
	panic("got an answer that was not error or pointer to diameter message")
}

// eventLoop is the Manager's actor model event loop.
func (m *Manager) eventLoop() {
	logger := config.GetLogger()
	serverConf := config.GetPolicyConfigInstance(m.instanceName).DiameterServerConf()

	proto := transport.ProtoTCP
	ln, err := transport.Listen(serverConf.BindAddress, serverConf.BindPort, proto)
	if err != nil {
		panic(err)
	}
	m.listener = ln

	go m.acceptLoop()

	m.updatePeersTable()

managerLoop:
	for {
	messageHandler:
		select {

		case cmd := <-m.managerControlChannel:
			switch cmd.(type) {
			case RouterSetDownCommand:
				m.status.Store(StatusClosing)
				m.listener.Close()

				for id := range m.peersTable {
					if m.peersTable[id].IsUp {
						m.peersTable[id].Peer.SetDown()
					}
				}

				for id := range m.peersTable {
					if m.peersTable[id].IsUp {
						break messageHandler
					}
				}

				m.ManagerDoneChannel <- struct{}{}
				break managerLoop
			}

		case <-m.peerTableTicker.C:
			m.updatePeersTable()

		case ev := <-m.peerControlChannel:
			m.onPeerEvent(ev)

			if m.status.Load() == StatusClosing {
				allDown := true
				for id := range m.peersTable {
					if m.peersTable[id].IsUp {
						allDown = false
						break
					}
				}
				if allDown {
					m.ManagerDoneChannel <- struct{}{}
					break managerLoop
				}
			}

		case rdr := <-m.diameterRequestsChan:
			go m.route(rdr)
		}
	}

	logger.Infof("router %s finished", m.instanceName)
}

func (m *Manager) acceptLoop() {
	logger := config.GetLogger()

	for {
		logger.Info("diameter router accepting connections")
		cnx, err := m.listener.Accept()
		if err != nil {
			if m.status.Load() != StatusClosing {
				logger.Errorf("error accepting connection: %s", err)
				panic(err)
			}
			return
		}

		remoteAddr := cnx.RemoteAddr()
		logger.Infof("accepted connection from %s", remoteAddr)

		peersConf := config.GetPolicyConfigInstance(m.instanceName).PeersConf()
		if tcpAddr, ok := remoteAddr.(*net.TCPAddr); ok {
			if !peersConf.ValidateIncomingAddress("", tcpAddr.IP) {
				logger.Infof("invalid peer %s", remoteAddr)
				cnx.Close()
				continue
			}
		}

		// The addition to the peers table happens later, once PeerUpEvent
		// is received and a duplicate check runs.
		p := peer.NewPassivePeer(m.instanceName, m.peerControlChannel, cnx, m.localHandler)
		p.SetRerouter(m.reroute)
	}
}

func (m *Manager) onPeerEvent(ev interface{}) {
	logger := config.GetLogger()

	switch v := ev.(type) {
	case peer.PeerUpEvent:
		if existing, found := m.peersTable[v.DiameterHost]; found {
			if existing.Peer != v.Sender {
				if existing.Peer != nil && existing.IsEngaged {
					// The existing peer wins; disengage the newcomer.
					v.Sender.SetDown()
					logger.Infof("keeping already engaged peer entry for %s", v.DiameterHost)
				} else {
					if existing.Peer != nil {
						existing.Peer.SetDown()
						logger.Infof("closing not engaged peer entry for %s", v.DiameterHost)
					}
					m.peersTable[v.DiameterHost] = peerEntry{Peer: v.Sender, IsEngaged: true, IsUp: true, LastStatusChange: time.Now()}
					logger.Infof("new peer entry for %s", v.DiameterHost)
				}
			} else {
				existing.IsEngaged = true
				existing.LastStatusChange = time.Now()
				existing.LastError = nil
				m.peersTable[v.DiameterHost] = existing
				logger.Infof("updating peer entry for %s", v.DiameterHost)
			}

			if m.status.Load() == StatusClosing {
				v.Sender.SetDown()
			}
		} else {
			logger.Warnf("unconfigured peer %s reported up, disengaging", v.DiameterHost)
			v.Sender.SetDown()
		}

		m.hooks.Call(hooks.PeerConnected, nil, v.DiameterHost, nil, nil)
		m.pushPeerMetrics()

	case peer.PeerDownEvent:
		logger.Infof("closing %s", v.Sender.PeerConfig.DiameterHost)
		go v.Sender.Close()

		// Look up by pointer identity, not Origin-Host: the entry may
		// already have been taken over by another Peer.
		for dh, entry := range m.peersTable {
			if entry.Peer == v.Sender {
				entry.IsEngaged = false
				entry.IsUp = false
				entry.LastStatusChange = time.Now()
				entry.LastError = v.Error
				entry.Peer = nil
				m.peersTable[dh] = entry
			}
		}

		m.hooks.Call(hooks.PeerDisconnected, nil, v.Sender.PeerConfig.DiameterHost, v.Error, nil)
		m.pushPeerMetrics()
	}
}

func (m *Manager) pushPeerMetrics() {
	peersConf := config.GetPolicyConfigInstance(m.instanceName).PeersConf()
	for dh, entry := range m.peersTable {
		metrics.PushPeerEngaged(dh, peersConf[dh].ConnectionPolicy, entry.IsEngaged)
	}
}

// updatePeersTable reconciles the peers table against the current
// configuration: peers no longer configured are disengaged (and removed
// once their PeerDownEvent arrives); newly configured active peers get a
// fresh connection attempt, passive ones a placeholder entry awaiting an
// inbound connection.
func (m *Manager) updatePeersTable() {
	if m.status.Load() == StatusClosing {
		return
	}

	peersConf := config.GetPolicyConfigInstance(m.instanceName).PeersConf()

	for existingDH, entry := range m.peersTable {
		if _, found := peersConf[existingDH]; !found {
			if entry.Peer != nil {
				entry.Peer.SetDown()
			}
			entry.IsEngaged = false
			m.peersTable[existingDH] = entry
		}
	}

	for dh, peerConfig := range peersConf {
		if _, found := m.peersTable[dh]; found {
			continue
		}
		if peerConfig.ConnectionPolicy == "active" {
			p := peer.NewActivePeer(m.instanceName, m.peerControlChannel, peerConfig, m.localHandler)
			p.SetRerouter(m.reroute)
			m.peersTable[dh] = peerEntry{Peer: p, IsEngaged: false, IsUp: true, LastStatusChange: time.Now()}
		} else {
			m.peersTable[dh] = peerEntry{Peer: nil, IsEngaged: false, IsUp: true, LastStatusChange: time.Now()}
		}
	}

	m.pushPeerMetrics()
}

///////////////////////////////////////////////////////////////////////////
// Routing-out
///////////////////////////////////////////////////////////////////////////

// Additive score tiers for routing-out candidate selection (§4.7's
// standardized constants). REDIR_HOST..REDIR_ONCE, SENT_REDIRECT and
// NO_DELIVERY require a registered redirect-agent out-callback; this
// router registers none, so only the tiers a candidate can earn without
// one are computed. See DESIGN.md.
const (
	scoreIni          = -2
	scoreLoadBalance  = 1
	scoreDefault      = 5
	scoreDefaultRealm = 10
	scoreRealm        = 15
	scoreFinalDest    = 100
)

// triedPeersHandle is the per-message-data slot tracking which candidate
// identities routing-out has already tried and had reject this message,
// so a later attempt (this message's own retry, or a re-posted failover)
// excludes them from the candidate set alongside Route-Record peers.
var triedPeersHandle = hooks.RegisterHandle(func() interface{} {
	return make(map[string]bool)
}, nil)

func triedPeers(pmd *hooks.PerMessageData) map[string]bool {
	return pmd.Get(triedPeersHandle).(map[string]bool)
}

// routingCandidate is one scored, currently engaged peer.
type routingCandidate struct {
	destinationHost string
	entry           peerEntry
	score           int
}

// scoreCandidates builds the routing-out candidate set (engaged peers in
// route.Peers plus every other engaged peer, minus Route-Record peers and
// minus tried) and scores each by the additive tiers above, highest
// first.
func (m *Manager) scoreCandidates(msg *diammsg.DiameterMessage, route config.DiameterRoutingRule, tried map[string]bool) []routingCandidate {
	excluded := make(map[string]bool)
	for _, rr := range diammsg.RouteRecords(msg) {
		excluded[strings.ToLower(rr)] = true
	}

	destRealm := msg.GetStringAVP("Destination-Realm")
	destHost := msg.GetStringAVP("Destination-Host")

	seen := make(map[string]bool)
	var hosts []string
	for _, dh := range route.Peers {
		if !seen[dh] {
			seen[dh] = true
			hosts = append(hosts, dh)
		}
	}
	for dh := range m.peersTable {
		if !seen[dh] {
			seen[dh] = true
			hosts = append(hosts, dh)
		}
	}

	var out []routingCandidate
	for _, dh := range hosts {
		if excluded[strings.ToLower(dh)] || tried[dh] {
			continue
		}
		entry, found := m.peersTable[dh]
		if !found || !entry.IsEngaged || entry.Peer == nil {
			continue
		}

		score := scoreIni
		if route.Policy == "random" {
			score += rand.Intn(scoreLoadBalance + 1)
		}
		switch {
		case route.Realm == "*":
			score += scoreDefault
		case route.Realm != "":
			score += scoreDefaultRealm
		}
		if destRealm != "" && strings.EqualFold(entry.Peer.PeerConfig.DiameterRealm, destRealm) {
			score += scoreRealm
		}
		if destHost != "" && strings.EqualFold(dh, destHost) {
			score += scoreFinalDest
		}

		out = append(out, routingCandidate{destinationHost: dh, entry: entry, score: score})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}

// route makes the routing-out decision for one message: local dispatch
// pool first, then loop detection against Route-Record, then the
// realm/application rule table for an HTTP handler fallback, then scored
// peer forwarding.
func (m *Manager) route(rdr RoutableDiameterRequest) {
	msg := rdr.Message
	pmd := hooks.NewPerMessageData()
	defer pmd.Destroy()

	m.hooks.Call(hooks.MessageReceived, msg, "", nil, pmd)

	localIdentity := config.GetPolicyConfigInstance(m.instanceName).DiameterServerConf().DiameterHost

	if msg.ApplicationId != 0 {
		if h := m.dispatch.Find(msg); h != nil {
			m.hooks.Call(hooks.MessageRoutedLocally, msg, "", "dispatch-pool", pmd)
			metrics.PushRoutedRequest("local-dispatch", msg)
			resp, err := h(msg)
			if err != nil {
				rdr.RChan <- err
			} else {
				rdr.RChan <- resp
			}
			close(rdr.RChan)
			return
		}
	}

	for _, rr := range diammsg.RouteRecords(msg) {
		if strings.EqualFold(rr, localIdentity) {
			m.drop(msg, "loop detected", pmd)
			answer := diammsg.NewDiameterAnswer(msg)
			answer.AddOriginAVPs(config.GetPolicyConfigInstance(m.instanceName))
			answer.Add("Result-Code", diammsg.DIAMETER_LOOP_DETECTED)
			answer.IsError = true
			rdr.RChan <- answer
			close(rdr.RChan)
			return
		}
	}

	destHost := msg.GetStringAVP("Destination-Host")
	route, routeErr := config.GetPolicyConfigInstance(m.instanceName).RoutingRulesConf().FindDiameterRoute(
		msg.GetStringAVP("Destination-Realm"), msg.ApplicationName, false)

	if routeErr == nil && len(route.Peers) == 0 && len(route.Handlers) > 0 {
		m.hooks.Call(hooks.MessageRoutedLocally, msg, "", "http-handler", pmd)
		metrics.PushRoutedRequest("handler", msg)
		m.postToHandler(route.Handlers, rdr)
		return
	}

	if routeErr != nil && destHost == "" {
		m.drop(msg, "no route found", pmd)
		m.deliverUnableToDeliver(msg, rdr)
		return
	}

	diammsg.AddRouteRecord(msg, localIdentity)
	m.routeToPeer(msg, rdr, route, pmd)
}

// routeToPeer runs the candidate-retry loop: try the best-scored
// candidate, fall through to the next on error, and if the whole
// candidate set is exhausted rebuild it once more (peers previously
// tried are eligible again, since their state may have changed) before
// giving up with DIAMETER_UNABLE_TO_DELIVER.
func (m *Manager) routeToPeer(msg *diammsg.DiameterMessage, rdr RoutableDiameterRequest, route config.DiameterRoutingRule, pmd *hooks.PerMessageData) {
	tried := triedPeers(pmd)
	sendAttempts := 0
	if msg.IsRetransmission {
		sendAttempts = 1
	}

	for restart := 0; restart < 2; restart++ {
		candidates := m.scoreCandidates(msg, route, tried)
		if len(candidates) == 0 {
			if restart == 0 {
				for k := range tried {
					delete(tried, k)
				}
				continue
			}
			break
		}

		for _, c := range candidates {
			if sendAttempts > 0 {
				msg.IsRetransmission = true
			}
			sendAttempts++

			if m.tryForward(msg, rdr, c, pmd) {
				return
			}
			tried[c.destinationHost] = true
		}

		if restart == 0 {
			for k := range tried {
				delete(tried, k)
			}
		}
	}

	m.drop(msg, "no engaged peer candidate for route", pmd)
	m.deliverUnableToDeliver(msg, rdr)
}

// tryForward sends msg to one scored candidate and blocks for its
// immediate disposition. DiameterExchangeWithChannel posts the send onto
// the peer's own event loop and returns at once; the actual answer or
// failure arrives later on the inner channel, which is what this
// function actually waits on. Any error (peer not open, connection lost,
// timeout) means the candidate is unusable and the caller should try the
// next one; a delivered answer is written to rdr.RChan and is success.
func (m *Manager) tryForward(msg *diammsg.DiameterMessage, rdr RoutableDiameterRequest, c routingCandidate, pmd *hooks.PerMessageData) bool {
	m.hooks.Call(hooks.MessageRoutedForward, msg, c.destinationHost, nil, pmd)
	metrics.PushRoutedRequest("peer", msg)

	timeout := rdr.Timeout
	if timeout <= 0 {
		timeout = DEFAULT_REQUEST_TIMEOUT_SECONDS * time.Second
	}

	inner := make(chan interface{}, 1)
	go c.entry.Peer.DiameterExchangeWithChannel(msg, timeout, inner)
	result := <-inner

	switch v := result.(type) {
	case error:
		config.GetLogger().Debugf("candidate %s rejected message: %s", c.destinationHost, v)
		return false
	case *diammsg.DiameterMessage:
		rdr.RChan <- v
		close(rdr.RChan)
		return true
	default:
		return false
	}
}

// deliverUnableToDeliver synthesizes the §7 "routing errors" answer and
// feeds it into the response path, mirroring how the loop-detected
// answer above is built.
func (m *Manager) deliverUnableToDeliver(msg *diammsg.DiameterMessage, rdr RoutableDiameterRequest) {
	answer := diammsg.NewDiameterAnswer(msg)
	answer.AddOriginAVPs(config.GetPolicyConfigInstance(m.instanceName))
	answer.Add("Result-Code", diammsg.DIAMETER_UNABLE_TO_DELIVER)
	answer.IsError = true
	rdr.RChan <- answer
	close(rdr.RChan)
}

func (m *Manager) drop(msg *diammsg.DiameterMessage, reason string, pmd *hooks.PerMessageData) {
	m.hooks.Call(hooks.MessageDropped, msg, "", reason, pmd)
	metrics.PushRoutedRequest("dropped", msg)
	config.GetLogger().Debugf("message dropped: %s", reason)
}

func (m *Manager) postToHandler(handlerURLs []string, rdr RoutableDiameterRequest) {
	logger := config.GetLogger()

	destinationURLs := append([]string{}, handlerURLs...)
	rand.Shuffle(len(destinationURLs), func(i, j int) { destinationURLs[i], destinationURLs[j] = destinationURLs[j], destinationURLs[i] })

	go func() {
		defer close(rdr.RChan)

		jsonRequest, err := json.Marshal(rdr.Message)
		if err != nil {
			logger.Errorf("unable to marshal message to json: %s", err)
			rdr.RChan <- err
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), HTTP_TIMEOUT_SECONDS*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, destinationURLs[0], bytes.NewReader(jsonRequest))
		if err != nil {
			rdr.RChan <- err
			return
		}
		req.Header.Set("Content-Type", "application/json")

		httpResp, err := m.http2Client.Do(req)
		if err != nil {
			logger.Errorf("handler %s error %s", destinationURLs[0], err)
			rdr.RChan <- err
			return
		}
		defer httpResp.Body.Close()

		if httpResp.StatusCode != http.StatusOK {
			rdr.RChan <- fmt.Errorf("handler %s returned status code %d", destinationURLs[0], httpResp.StatusCode)
			return
		}

		jsonAnswer, err := io.ReadAll(httpResp.Body)
		if err != nil {
			logger.Errorf("error reading response from %s: %s", destinationURLs[0], err)
			rdr.RChan <- err
			return
		}

		var diameterAnswer diammsg.DiameterMessage
		if err := json.Unmarshal(jsonAnswer, &diameterAnswer); err != nil {
			logger.Errorf("error unmarshaling response from %s: %s", destinationURLs[0], err)
			rdr.RChan <- err
			return
		}

		rdr.RChan <- &diameterAnswer
	}()
}
