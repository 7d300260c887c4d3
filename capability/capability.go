// Package capability implements Capabilities-Exchange (CER/CEA) building,
// parsing, validation and election: the full CER/CEA contract
// (application overlap, security negotiation, election) on top of a
// single-peer attribute-stamping helper.
package capability

import (
	"fmt"
	"strings"

	"freediameterd/config"
	"freediameterd/diammsg"
)

// SecurityMode records whether TLS is negotiated in-band (old method, on
// the same connection right after CEA) or was already active before CER
// was ever sent ("new" method, on a separate port).
type SecurityMode int

const (
	SecurityNone SecurityMode = iota
	SecurityInbandOld
	SecurityAlreadyTLS
)

// PeerCapabilities is the runtime info learned from a peer's CER/CEA
//.
type PeerCapabilities struct {
	OriginHost       string
	OriginRealm      string
	HostIPAddresses  []string
	VendorId         int64
	ProductName      string
	FirmwareRevision int64
	OriginStateId    int64
	AuthApplications []uint32
	AcctApplications []uint32
	SupportedVendors []uint32
	InbandSecurity   []int64
}

// BuildCER constructs a Capabilities-Exchange-Request for the given peer
// configuration: Origin-Host/Realm, a Host-IP-Address for the configured
// bind address (omitted when it is empty or 0.0.0.0),
// Vendor-Id/Product-Name/Firmware-Revision, one
// Auth-Application-Id/Acct-Application-Id per locally supported
// application, and Inband-Security-Id when TLS isn't already active on
// this connection.
func BuildCER(ci *config.PolicyConfigurationManager, peer config.DiameterPeer, alreadyTLS bool) (*diammsg.DiameterMessage, error) {
	cer, err := diammsg.NewDiameterRequest("Base", "Capabilities-Exchange")
	if err != nil {
		return nil, fmt.Errorf("could not build CER: %w", err)
	}
	cer.AddOriginAVPs(ci)
	stampCapabilities(cer, ci, peer, alreadyTLS)
	return cer, nil
}

// BuildCEA constructs the Capabilities-Exchange-Answer for a received
// CER, stamping the given Result-Code.
func BuildCEA(request *diammsg.DiameterMessage, ci *config.PolicyConfigurationManager, peer config.DiameterPeer, resultCode int, alreadyTLS bool) *diammsg.DiameterMessage {
	cea := diammsg.NewDiameterAnswer(request)
	cea.AddOriginAVPs(ci)
	cea.Add("Result-Code", resultCode)
	if resultCode >= 3000 {
		cea.IsError = true
	}
	stampCapabilities(cea, ci, peer, alreadyTLS)
	return cea
}

func stampCapabilities(msg *diammsg.DiameterMessage, ci *config.PolicyConfigurationManager, peer config.DiameterPeer, alreadyTLS bool) {
	serverConf := ci.DiameterServerConf()

	if serverConf.BindAddress != "" && serverConf.BindAddress != "0.0.0.0" {
		msg.Add("Host-IP-Address", serverConf.BindAddress)
	}
	msg.Add("Vendor-Id", serverConf.VendorId)
	msg.Add("Product-Name", serverConf.ProductName)
	msg.Add("Firmware-Revision", serverConf.FirmwareRevision)
	msg.Add("Origin-State-Id", 1)

	for _, appId := range peer.AuthApplications {
		msg.Add("Auth-Application-Id", appId)
	}
	for _, appId := range peer.AcctApplications {
		msg.Add("Acct-Application-Id", appId)
	}
	if serverConf.IsRelay {
		msg.Add("Auth-Application-Id", uint32(0xffffffff))
		msg.Add("Acct-Application-Id", uint32(0xffffffff))
	}

	if !alreadyTLS {
		// NO_INBAND_SECURITY and TLS are both always offered.
		msg.Add("Inband-Security-Id", 0)
		msg.Add("Inband-Security-Id", 1)
	}
}

// ParseCER extracts PeerCapabilities out of a received CER/CEA, enforcing
// single-occurrence AVPs (single occurrence for
// Origin-Realm, Vendor-Id, Product-Name, Origin-State-Id,
// Firmware-Revision). Unknown vendor-specific AVPs are ignored by
// construction (we only read what we look for).
func ParseCER(msg *diammsg.DiameterMessage) (*PeerCapabilities, error) {
	originHostAVP, err := msg.GetAVP("Origin-Host")
	if err != nil {
		return nil, fmt.Errorf("CER/CEA missing Origin-Host: %w", err)
	}
	for _, name := range []string{"Origin-Realm", "Vendor-Id", "Product-Name", "Origin-State-Id", "Firmware-Revision"} {
		if len(msg.GetAllAVP(name)) > 1 {
			return nil, fmt.Errorf("CER/CEA carries more than one %s", name)
		}
	}

	caps := &PeerCapabilities{
		OriginHost:       originHostAVP.GetString(),
		OriginRealm:      msg.GetStringAVP("Origin-Realm"),
		VendorId:         msg.GetIntAVP("Vendor-Id"),
		ProductName:      msg.GetStringAVP("Product-Name"),
		FirmwareRevision: msg.GetIntAVP("Firmware-Revision"),
		OriginStateId:    msg.GetIntAVP("Origin-State-Id"),
	}

	for _, avp := range msg.GetAllAVP("Host-IP-Address") {
		caps.HostIPAddresses = append(caps.HostIPAddresses, avp.GetString())
	}
	for _, avp := range msg.GetAllAVP("Auth-Application-Id") {
		caps.AuthApplications = append(caps.AuthApplications, uint32(avp.GetInt()))
	}
	for _, avp := range msg.GetAllAVP("Acct-Application-Id") {
		caps.AcctApplications = append(caps.AcctApplications, uint32(avp.GetInt()))
	}
	for _, avp := range msg.GetAllAVP("Supported-Vendor-Id") {
		caps.SupportedVendors = append(caps.SupportedVendors, uint32(avp.GetInt()))
	}
	for _, avp := range msg.GetAllAVP("Inband-Security-Id") {
		caps.InbandSecurity = append(caps.InbandSecurity, avp.GetInt())
	}

	return caps, nil
}

// ValidateOriginHost checks that the Origin-Host in a CER matches the
// configured identity of the peer we believe we're talking to
// (case-insensitive DiameterIdentity compare).
func ValidateOriginHost(caps *PeerCapabilities, expectedIdentity string) bool {
	if expectedIdentity == "" {
		return true
	}
	return strings.EqualFold(caps.OriginHost, expectedIdentity)
}

// CommonApplications computes the intersection of locally supported and
// peer-advertised applications (auth ∪ acct). A local relay matches any
// peer application.
func CommonApplications(local config.DiameterPeer, localIsRelay bool, remote *PeerCapabilities) []uint32 {
	if localIsRelay {
		out := append([]uint32{}, remote.AuthApplications...)
		out = append(out, remote.AcctApplications...)
		return out
	}

	localSet := make(map[uint32]bool)
	for _, a := range local.AuthApplications {
		localSet[a] = true
	}
	for _, a := range local.AcctApplications {
		localSet[a] = true
	}

	var common []uint32
	for _, a := range remote.AuthApplications {
		if localSet[a] {
			common = append(common, a)
		}
	}
	for _, a := range remote.AcctApplications {
		if localSet[a] {
			common = append(common, a)
		}
	}
	return common
}

// NegotiateSecurity decides the security mode to use given local policy
// and the peer's advertised Inband-Security-Id values.
// alreadyTLS is true when this connection is already running over TLS
// (the "new" separate-port method); in that case no further negotiation
// happens. ok is false when DIAMETER_NO_COMMON_SECURITY must be returned.
func NegotiateSecurity(requireTLS bool, alreadyTLS bool, remoteInband []int64) (mode SecurityMode, ok bool) {
	if alreadyTLS {
		return SecurityAlreadyTLS, true
	}

	remoteOffersTLS := false
	remoteOffersClear := false
	for _, v := range remoteInband {
		switch v {
		case 1:
			remoteOffersTLS = true
		case 0:
			remoteOffersClear = true
		}
	}

	if requireTLS {
		if remoteOffersTLS {
			return SecurityInbandOld, true
		}
		return SecurityNone, false
	}

	if remoteOffersClear || len(remoteInband) == 0 {
		return SecurityNone, true
	}
	if remoteOffersTLS {
		return SecurityInbandOld, true
	}
	return SecurityNone, false
}

// WinsElection reports whether the local identity wins a simultaneous
// CER election against the remote identity: the side whose DiameterIdentity
// compares lexicographically smaller, case-insensitive, keeps its
// initiated connection.
func WinsElection(localIdentity, remoteIdentity string) bool {
	return strings.ToLower(localIdentity) < strings.ToLower(remoteIdentity)
}
