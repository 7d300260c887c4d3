package handler

import (
	"encoding/json"

	"freediameterd/config"
	"freediameterd/diammsg"
	"freediameterd/radiuscodec"
)

// The most basic handler ever. Returns an empty response to the received message
func EmptyDiameterHandler(request *diammsg.DiameterMessage) (*diammsg.DiameterMessage, error) {
	hl := config.NewHandlerLogger()
	l := hl.L

	defer func(l *config.HandlerLogger) {
		l.WriteLog()
	}(hl)

	l.Infof("%s", "Starting EmptyDiameterHandler")
	l.Infof("%s %s", "request", request)

	response := diammsg.NewDiameterAnswer(request)
	response.Add("Result-Code", diammsg.DIAMETER_SUCCESS)

	l.Infof("%s %s", "response", response)

	return response, nil
}

// The most basic handler ever. Returns an empty response to the received message
func EmptyRadiusHandler(request *radiuscodec.RadiusPacket) (*radiuscodec.RadiusPacket, error) {
	hl := config.NewHandlerLogger()

	defer func(l *config.HandlerLogger) {
		l.WriteLog()
	}(hl)

	resp := radiuscodec.NewRadiusResponse(request, true)

	return resp, nil
}

// Used to test all possible attribute types
func TestRadiusAttributesHandler(request *radiuscodec.RadiusPacket) (*radiuscodec.RadiusPacket, error) {
	hl := config.NewHandlerLogger()
	l := hl.L

	defer func(l *config.HandlerLogger) {
		l.WriteLog()
	}(hl)

	// Print the password
	pwd := request.GetPasswordStringAVP("User-Password")
	l.Infof("Password: <%s>", pwd)

	// Print all received attributes
	for _, avp := range request.AVPs {
		l.Info(avp.Name, avp.GetTaggedString())
	}

	// Reply with one attribute of each type
	// The Test-SaltedOctetsAttribute contains the length as the first byte, since
	// in Nokia AAA this VSA is "salted-password" type
	jAVPs := `
				[
					{"Test-OctetsAttribute": "0102030405060708090a0b"},
					{"Test-StringAttribute": "stringvalue"},
					{"Test-IntegerAttribute": "Zero"},
					{"Test-IntegerAttribute": "1"},
					{"Test-IntegerAttribute": 1},
					{"Test-AddressAttribute": "127.0.0.1"},
					{"Test-TimeAttribute": "1966-11-26T03:34:08 UTC"},
					{"Test-IPv6AddressAttribute": "bebe:cafe::0"},
					{"Test-IPv6PrefixAttribute": "bebe:cafe:cccc::0/64"},
					{"Test-InterfaceIdAttribute": "00aabbccddeeff11"},
					{"Test-TaggedStringAttribute": "mystring:1"},
					{"Test-Integer64Attribute": 999999999999},
					{"Test-SaltedOctetsAttribute": "0F313233343536373839616263646566"},
					{"Test-TaggedSaltedOctetsAttribute": "0F313233343536373839616263646566:1"},
					{"User-Name":"MyUserName"}
				]
				`

	resp := radiuscodec.NewRadiusResponse(request, true)

	var responseAVPs []radiuscodec.RadiusAVP
	err := json.Unmarshal([]byte(jAVPs), &responseAVPs)
	if err != nil {
		l.Errorf("%s", err.Error())
	}

	for _, avp := range responseAVPs {
		resp.AddAVP(&avp)
	}

	return resp, nil
}
