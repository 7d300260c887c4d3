// Package metrics exposes per-peer Diameter counters to Prometheus.
//
// It mirrors the aggregation-key shape of instrumentation.DiameterMetricKey
// but reports through github.com/prometheus/client_golang instead of the
// in-memory query server, since these counters are meant to be scraped
// rather than queried in process.
package metrics

import (
	"freediameterd/diammsg"

	"github.com/prometheus/client_golang/prometheus"
)

// PeerDiameterMetricKey identifies one peer/command/application combination
// for counter purposes.
type PeerDiameterMetricKey struct {
	Peer string
	OH   string
	OR   string
	DH   string
	DR   string
	AP   string
	CM   string
}

// PeerDiameterMetricFromMessage builds the aggregation key for a message
// exchanged with the named peer.
func PeerDiameterMetricFromMessage(peerName string, message *diammsg.DiameterMessage) PeerDiameterMetricKey {
	return PeerDiameterMetricKey{
		Peer: peerName,
		OH:   message.GetStringAVP("Origin-Host"),
		OR:   message.GetStringAVP("Origin-Realm"),
		DH:   message.GetStringAVP("Destination-Host"),
		DR:   message.GetStringAVP("Destination-Realm"),
		AP:   message.ApplicationName,
		CM:   message.CommandName,
	}
}

var peerMetricLabels = []string{"peer", "origin_host", "origin_realm", "destination_host", "destination_realm", "application", "command"}

func labelValues(key PeerDiameterMetricKey) prometheus.Labels {
	return prometheus.Labels{
		"peer":               key.Peer,
		"origin_host":        key.OH,
		"origin_realm":       key.OR,
		"destination_host":   key.DH,
		"destination_realm":  key.DR,
		"application":        key.AP,
		"command":            key.CM,
	}
}

var (
	peerRequestsSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diameter_peer_requests_sent_total",
		Help: "Diameter requests sent to a peer.",
	}, peerMetricLabels)

	peerAnswersSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diameter_peer_answers_sent_total",
		Help: "Diameter answers sent to a peer.",
	}, peerMetricLabels)

	peerRequestsReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diameter_peer_requests_received_total",
		Help: "Diameter requests received from a peer.",
	}, peerMetricLabels)

	peerAnswersReceived = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diameter_peer_answers_received_total",
		Help: "Diameter answers received from a peer.",
	}, peerMetricLabels)

	peerAnswersStalled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diameter_peer_answers_stalled_total",
		Help: "Diameter answers received after the request had already timed out.",
	}, peerMetricLabels)

	peerRequestsTimeout = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "diameter_peer_requests_timeout_total",
		Help: "Diameter requests that timed out waiting for an answer.",
	}, peerMetricLabels)
)

func init() {
	prometheus.MustRegister(
		peerRequestsSent,
		peerAnswersSent,
		peerRequestsReceived,
		peerAnswersReceived,
		peerAnswersStalled,
		peerRequestsTimeout,
	)
}

// PushPeerDiameterRequestSent records a request sent out to a peer.
func PushPeerDiameterRequestSent(peerName string, message *diammsg.DiameterMessage) {
	peerRequestsSent.With(labelValues(PeerDiameterMetricFromMessage(peerName, message))).Inc()
}

// PushPeerDiameterAnswerSent records an answer sent out to a peer.
func PushPeerDiameterAnswerSent(peerName string, message *diammsg.DiameterMessage) {
	peerAnswersSent.With(labelValues(PeerDiameterMetricFromMessage(peerName, message))).Inc()
}

// PushPeerDiameterRequestReceived records a request received from a peer.
func PushPeerDiameterRequestReceived(peerName string, message *diammsg.DiameterMessage) {
	peerRequestsReceived.With(labelValues(PeerDiameterMetricFromMessage(peerName, message))).Inc()
}

// PushPeerDiameterAnswerReceived records an answer received from a peer.
func PushPeerDiameterAnswerReceived(peerName string, message *diammsg.DiameterMessage) {
	peerAnswersReceived.With(labelValues(PeerDiameterMetricFromMessage(peerName, message))).Inc()
}

// PushPeerDiameterAnswerStalled records an answer that arrived after its
// request had already timed out.
func PushPeerDiameterAnswerStalled(peerName string, message *diammsg.DiameterMessage) {
	peerAnswersStalled.With(labelValues(PeerDiameterMetricFromMessage(peerName, message))).Inc()
}

// PushPeerDiameterRequestTimeout records a request for which no answer
// arrived before the timer expired.
func PushPeerDiameterRequestTimeout(peerName string, key PeerDiameterMetricKey) {
	peerRequestsTimeout.With(labelValues(key)).Inc()
}
