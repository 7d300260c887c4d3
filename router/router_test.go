package router

import (
	"testing"

	"freediameterd/config"
	"freediameterd/diamdict"
	"freediameterd/diammsg"
	"freediameterd/hooks"
	"freediameterd/peer"
)

// strAVP builds a UTF8String-typed AVP directly, without going through
// the global dictionary, so these tests don't depend on a bootstrap
// fixture being present.
func strAVP(name, value string) diammsg.DiameterAVP {
	return diammsg.DiameterAVP{
		Name:     name,
		Value:    value,
		DictItem: &diamdict.AVPDictItem{Name: name, DiameterType: diamdict.UTF8String},
	}
}

func fakePeer(host, realm string) *peer.Peer {
	return &peer.Peer{PeerConfig: config.DiameterPeer{DiameterHost: host, DiameterRealm: realm}}
}

func TestScoreCandidatesPrefersMatchingRealm(t *testing.T) {
	m := &Manager{peersTable: map[string]peerEntry{
		"p1.example.net": {Peer: fakePeer("p1.example.net", "example.net"), IsEngaged: true},
		"p2.example.net": {Peer: fakePeer("p2.example.net", "other.net"), IsEngaged: true},
		"p3.example.net": {Peer: fakePeer("p3.example.net", "example.net"), IsEngaged: false},
	}}

	msg := &diammsg.DiameterMessage{IsRequest: true, AVPs: []diammsg.DiameterAVP{strAVP("Destination-Realm", "example.net")}}
	route := config.DiameterRoutingRule{Realm: "example.net", Peers: []string{"p1.example.net", "p2.example.net"}}

	candidates := m.scoreCandidates(msg, route, map[string]bool{})
	if len(candidates) != 2 {
		t.Fatalf("expected 2 engaged candidates (p3 not engaged), got %d: %+v", len(candidates), candidates)
	}
	if candidates[0].destinationHost != "p1.example.net" {
		t.Errorf("expected p1 (matching realm) to score highest, got %s", candidates[0].destinationHost)
	}
}

func TestScoreCandidatesDestinationHostWinsOnFinalDest(t *testing.T) {
	m := &Manager{peersTable: map[string]peerEntry{
		"p1.example.net": {Peer: fakePeer("p1.example.net", "example.net"), IsEngaged: true},
		"p2.example.net": {Peer: fakePeer("p2.example.net", "example.net"), IsEngaged: true},
	}}

	msg := &diammsg.DiameterMessage{IsRequest: true, AVPs: []diammsg.DiameterAVP{
		strAVP("Destination-Realm", "example.net"),
		strAVP("Destination-Host", "p2.example.net"),
	}}

	candidates := m.scoreCandidates(msg, config.DiameterRoutingRule{}, map[string]bool{})
	if len(candidates) == 0 || candidates[0].destinationHost != "p2.example.net" {
		t.Fatalf("expected Destination-Host match p2 to win on FINALDEST, got %+v", candidates)
	}
}

func TestScoreCandidatesExcludesRouteRecordAndTried(t *testing.T) {
	m := &Manager{peersTable: map[string]peerEntry{
		"p1.example.net": {Peer: fakePeer("p1.example.net", "example.net"), IsEngaged: true},
		"p2.example.net": {Peer: fakePeer("p2.example.net", "example.net"), IsEngaged: true},
	}}

	msg := &diammsg.DiameterMessage{IsRequest: true, AVPs: []diammsg.DiameterAVP{strAVP("Route-Record", "p1.example.net")}}

	candidates := m.scoreCandidates(msg, config.DiameterRoutingRule{}, map[string]bool{"p2.example.net": true})
	if len(candidates) != 0 {
		t.Errorf("expected no candidates (p1 in Route-Record, p2 already tried), got %+v", candidates)
	}
}

func TestTriedPeersIsPerMessagePersistent(t *testing.T) {
	pmd := hooks.NewPerMessageData()
	defer pmd.Destroy()

	tried := triedPeers(pmd)
	tried["p1.example.net"] = true

	if !triedPeers(pmd)["p1.example.net"] {
		t.Errorf("expected the tried-peers slot to persist across Get calls on the same pmd")
	}

	other := hooks.NewPerMessageData()
	defer other.Destroy()
	if triedPeers(other)["p1.example.net"] {
		t.Errorf("expected a fresh PerMessageData to start with no tried peers")
	}
}

func TestDispatchPoolFindsMostSpecificRule(t *testing.T) {
	pool := NewDispatchPool()

	genericCalled := false
	specificCalled := false

	pool.Register(0, false, 4, true, nil, func(m *diammsg.DiameterMessage) (*diammsg.DiameterMessage, error) {
		genericCalled = true
		return nil, nil
	})
	pool.Register(272, true, 4, true, []string{"Session-Id"}, func(m *diammsg.DiameterMessage) (*diammsg.DiameterMessage, error) {
		specificCalled = true
		return nil, nil
	})

	msg := &diammsg.DiameterMessage{
		CommandCode:   272,
		ApplicationId: 4,
		AVPs:          []diammsg.DiameterAVP{{Name: "Session-Id"}},
	}

	h := pool.Find(msg)
	if h == nil {
		t.Fatal("expected a matching handler")
	}
	if _, err := h(msg); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if !specificCalled || genericCalled {
		t.Errorf("expected the more specific rule to be chosen: specific=%t generic=%t", specificCalled, genericCalled)
	}
}

func TestDispatchPoolNoMatch(t *testing.T) {
	pool := NewDispatchPool()
	pool.Register(272, true, 4, true, nil, func(m *diammsg.DiameterMessage) (*diammsg.DiameterMessage, error) {
		return nil, nil
	})

	msg := &diammsg.DiameterMessage{CommandCode: 280, ApplicationId: 4}
	if h := pool.Find(msg); h != nil {
		t.Errorf("expected no handler for a non-matching command code")
	}
}
