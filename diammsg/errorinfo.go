package diammsg

import "freediameterd/config"

// Additional symbolic Result-Codes used by the ABNF validator and the
// capability/watchdog/routing layers. The base set lives in diameterMessage.go.
const (
	DIAMETER_MISSING_AVP                 = 5005
	DIAMETER_AVP_UNSUPPORTED             = 5001
	DIAMETER_AVP_OCCURS_TOO_MANY_TIMES   = 5009
	DIAMETER_AVP_NOT_ALLOWED             = 5008
	DIAMETER_INVALID_AVP_VALUE           = 5014
	DIAMETER_NO_COMMON_APPLICATION       = 5010
	DIAMETER_NO_COMMON_SECURITY          = 5017
	DIAMETER_ELECTION_LOST               = 4003
	DIAMETER_UNABLE_TO_DELIVER           = 3002
	DIAMETER_APPLICATION_UNSUPPORTED     = 3007
)

// ErrorInfo ("pei": protocol error info) carries enough context for the
// caller to build a Diameter error answer out of a codec or ABNF failure.
// It never itself generates output; NewErrorAnswer and ParseOrError do.
type ErrorInfo struct {
	// Result-Code value, e.g. DIAMETER_MISSING_AVP
	ErrCode int
	// Optional human readable explanation for Error-Message
	Message string
	// Offending AVP, copied into Failed-AVP if non-nil
	FailedAVP *DiameterAVP
}

func (e *ErrorInfo) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return "diameter protocol error"
}

// RescodeSetMode controls which extra AVPs RescodeSet stamps alongside
// Result-Code.
type RescodeSetMode int

const (
	// RescodeBasic sets only Result-Code.
	RescodeBasic RescodeSetMode = iota
	// RescodeWithMessage also sets Error-Message when provided.
	RescodeWithMessage
	// RescodeWithOriginHost also sets Error-Reporting-Host.
	RescodeWithOriginHost
)

// RescodeSet stamps Result-Code (and, depending on mode, Error-Message /
// Error-Reporting-Host / Failed-AVP) on an answer message.
func RescodeSet(answer *DiameterMessage, resultCode int, humanMessage string, failedAVP *DiameterAVP, mode RescodeSetMode, ci *config.PolicyConfigurationManager) *DiameterMessage {
	answer.Add("Result-Code", resultCode)
	if resultCode >= 3000 {
		answer.IsError = true
	}

	if mode == RescodeWithMessage && humanMessage != "" {
		answer.Add("Error-Message", humanMessage)
	}
	if mode == RescodeWithOriginHost && ci != nil {
		answer.Add("Error-Reporting-Host", ci.DiameterServerConf().DiameterHost)
	}
	if failedAVP != nil {
		failedAVPHolder, err := NewAVP("Failed-AVP", nil)
		if err == nil {
			failedAVPHolder.AddAVP(*failedAVP)
			answer.AddAVP(failedAVPHolder)
		}
	}

	return answer
}

// NewErrorAnswer builds a full Diameter answer to `request` from an
// ErrorInfo, setting the E bit and Result-Code/Error-Message/Failed-AVP
// as appropriate. ParseOrError uses it to build its error answer.
func NewErrorAnswer(request *DiameterMessage, ei *ErrorInfo, ci *config.PolicyConfigurationManager) *DiameterMessage {
	answer := NewDiameterAnswer(request)
	answer.AddOriginAVPs(ci)
	RescodeSet(answer, ei.ErrCode, ei.Message, ei.FailedAVP, RescodeWithMessage, ci)
	return answer
}

// ParseOrError ABNF-validates an already decoded message against the
// dictionary. It returns nil if the message conforms, or a ready-to-send
// error answer built by NewErrorAnswer; the caller should send that answer
// and drop the original.
func ParseOrError(msg *DiameterMessage, ci *config.PolicyConfigurationManager) (errorAnswer *DiameterMessage) {
	if ei := msg.ValidateABNF(ci); ei != nil {
		return NewErrorAnswer(msg, ei, ci)
	}
	return nil
}
