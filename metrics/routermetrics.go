// Router-level counters: complements peermetrics.go with the
// routing-stage outcomes (dropped, routed locally, routed forward) and a
// gauge for current peer engagement, reported the same way through
// github.com/prometheus/client_golang.
package metrics

import (
	"freediameterd/diammsg"

	"github.com/prometheus/client_golang/prometheus"
)

var peerEngaged = prometheus.NewGaugeVec(prometheus.GaugeOpts{
	Name: "diameter_peer_engaged",
	Help: "1 if the peer connection is currently engaged (PSM reached OPEN/OPEN_NEW), 0 otherwise.",
}, []string{"diameter_host", "connection_policy"})

var routedRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "diameter_router_requests_total",
	Help: "Diameter requests handled by the router, by outcome.",
}, []string{"outcome", "application", "command"})

func init() {
	prometheus.MustRegister(peerEngaged, routedRequests)
}

// PushPeerEngaged records whether a configured peer is currently engaged.
func PushPeerEngaged(diameterHost, connectionPolicy string, engaged bool) {
	v := 0.0
	if engaged {
		v = 1.0
	}
	peerEngaged.WithLabelValues(diameterHost, connectionPolicy).Set(v)
}

// PushRoutedRequest records one routing decision for a message: outcome
// is one of "local-dispatch", "peer", "handler", "dropped".
func PushRoutedRequest(outcome string, message *diammsg.DiameterMessage) {
	routedRequests.WithLabelValues(outcome, message.ApplicationName, message.CommandName).Inc()
}
