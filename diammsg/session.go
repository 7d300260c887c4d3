package diammsg

import (
	"crypto/rand"
	"fmt"
	"freediameterd/config"
)

// NewSessionId adds a Session-Id AVP as the first child of the message,
// formatted as "<Origin-Host>;<high32-of-monotonic>;<low32-of-monotonic>;<random>[;opt]"
// for Session-Id.
func NewSessionId(dm *DiameterMessage, ci *config.PolicyConfigurationManager, opt string) *DiameterMessage {
	high, low := monotonicHalves()

	var randomPart [4]byte
	rand.Read(randomPart[:])

	sessionId := fmt.Sprintf("%s;%d;%d;%x", ci.DiameterServerConf().DiameterHost, high, low, randomPart)
	if opt != "" {
		sessionId = sessionId + ";" + opt
	}

	sessionAVP, err := NewAVP("Session-Id", sessionId)
	if err != nil {
		return dm
	}

	// Insert as first child
	dm.AVPs = append([]DiameterAVP{*sessionAVP}, dm.AVPs...)
	return dm
}

var monotonicCounter uint64

func monotonicHalves() (uint32, uint32) {
	v := nextMonotonic()
	return uint32(v >> 32), uint32(v)
}

func nextMonotonic() uint64 {
	monotonicCounter++
	return monotonicCounter
}

// AddRouteRecord appends a Route-Record AVP identifying the peer this
// message was received from, used by routing-in to avoid forwarding
// loops.
func AddRouteRecord(dm *DiameterMessage, incomingPeerIdentity string) *DiameterMessage {
	dm.Add("Route-Record", incomingPeerIdentity)
	return dm
}

// RouteRecords returns the (possibly empty) list of identities already
// traversed by this message.
func RouteRecords(dm *DiameterMessage) []string {
	avps := dm.GetAllAVP("Route-Record")
	records := make([]string, 0, len(avps))
	for i := range avps {
		records = append(records, avps[i].GetString())
	}
	return records
}
