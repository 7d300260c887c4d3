package handler

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"freediameterd/config"
	"freediameterd/diammsg"
	"io/ioutil"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"golang.org/x/net/http2"
)

var jDiameterMessage = `
	{
		"IsRequest": true,
		"IsProxyable": false,
		"IsError": false,
		"IsRetransmission": false,
		"CommandCode": 2000,
		"ApplicationId": 1000,
		"avps":[
			{
			  "testvendor-myTestAllGrouped": [
  				{"testvendor-myOctetString": "0102030405060708090a0b"},
  				{"testvendor-myInteger32": -99},
  				{"testvendor-myInteger64": -99},
  				{"testvendor-myUnsigned32": 99},
  				{"testvendor-myUnsigned64": 99},
  				{"testvendor-myFloat32": 99.9},
  				{"testvendor-myFloat64": 99.9},
  				{"testvendor-myAddress": "1.2.3.4"},
  				{"testvendor-myTime": "1966-11-26T03:34:08 UTC"},
  				{"testvendor-myString": "Hello, world!"},
  				{"testvendor-myDiameterIdentity": "Diameter@identity"},
  				{"testvendor-myDiameterURI": "Diameter@URI"},
  				{"testvendor-myIPFilterRule": "allow all"},
  				{"testvendor-myIPv4Address": "4.5.6.7"},
  				{"testvendor-myIPv6Address": "bebe:cafe::0"},
  				{"testvendor-myIPv6Prefix": "bebe:cafe::0/128"},
  				{"testvendor-myEnumerated": "two"}
			  ]
			}
		]
	}
	`

func TestMain(m *testing.M) {

	// Initialize the Config Object as done in main.go
	bootstrapFile := "resources/searchRules.json"
	instanceName := "testServer"
	config.InitHandlerConfigInstance(bootstrapFile, instanceName, true)

	// TODO: Needed to generate answers with origin diameter server name
	config.InitPolicyConfigInstance(bootstrapFile, instanceName, false)

	// Execute the tests and exit
	os.Exit(m.Run())
}

func TestBasicHandler(t *testing.T) {

	handler := NewHandler("testServer")
	go handler.Run()

	time.Sleep(200 * time.Millisecond)

	transCfg := &http2.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, // ignore expired SSL certificates
	}

	// Create an http client with timeout and http2 transport
	client := http.Client{Timeout: 2 * time.Second, Transport: transCfg}

	// resp, err := client.Get("https://127.0.0.1:8080/diameterRequest")
	httpResp, err := client.Post("https://127.0.0.1:8080/diameterRequest", "application/json", strings.NewReader(jDiameterMessage))
	if err != nil {
		fmt.Printf("Error %s", err)
		return
	}
	defer httpResp.Body.Close()

	jsonAnswer, err := ioutil.ReadAll(httpResp.Body)
	if err != nil {
		t.Fatalf("error reading response %s", err)
	}

	// Unserialize to Diameter Message
	var diameterAnswer diammsg.DiameterMessage
	err = json.Unmarshal(jsonAnswer, &diameterAnswer)
	if err != nil {
		t.Errorf("unmarshal error for diameter message: %s", err)
	}

	fmt.Println(diameterAnswer)
}
