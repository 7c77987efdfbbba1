// MIT License
//
// (C) Copyright [2022-2025] Hewlett Packard Enterprise Development LP
//
// Permission is hereby granted, free of charge, to any person obtaining a
// copy of this software and associated documentation files (the "Software"),
// to deal in the Software without restriction, including without limitation
// the rights to use, copy, modify, merge, publish, distribute, sublicense,
// and/or sell copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included
// in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
// THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package hsm

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	base "github.com/Cray-HPE/hms-base/v2"
	"github.com/Cray-HPE/hms-certs/pkg/hms_certs"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type Models_TS struct {
	suite.Suite
	svcClient *hms_certs.HTTPClientPair
	server    *httptest.Server
	queries   [][]string
}

var glogger = logrus.New()

func (suite *Models_TS) SetupTest() {
	var err error
	suite.svcClient, err = hms_certs.CreateRetryableHTTPClientPair("", 10, 1, 1)
	suite.Require().NoError(err, "ERROR creating retryable client pair")

	suite.queries = nil
	mux := http.NewServeMux()
	mux.HandleFunc(hsmLivenessPath, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc(hsmStateComponentsQueryPath, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var q CompQuery
		json.Unmarshal(body, &q)
		suite.queries = append(suite.queries, q.ComponentIDs)
		rsp := base.ComponentArray{}
		for _, id := range q.ComponentIDs {
			switch id {
			case "x1000c0s0b0n0":
				rsp.Components = append(rsp.Components,
					&base.Component{ID: id, Type: "Node", State: "Ready"})
			case "x1000c0s1b0n0":
				rsp.Components = append(rsp.Components,
					&base.Component{ID: id, Type: "Node", State: string(base.StateEmpty)})
			}
		}
		json.NewEncoder(w).Encode(rsp)
	})
	mux.HandleFunc(hsmInventoryComponentEndpointPath, func(w http.ResponseWriter, r *http.Request) {
		ids := r.URL.Query()["id"]
		suite.queries = append(suite.queries, ids)
		type cep struct {
			ID             string `json:"ID"`
			RfEndpointFQDN string `json:"RedfishEndpointFQDN"`
		}
		var eps []cep
		for _, id := range ids {
			eps = append(eps, cep{ID: id, RfEndpointFQDN: id + ".hmn"})
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"ComponentEndpoints": eps})
	})
	suite.server = httptest.NewServer(mux)
}

func (suite *Models_TS) TearDownTest() {
	suite.server.Close()
}

func (suite *Models_TS) newHSM(maxQuery int) *HSMv2 {
	glb := HSM_GLOBALS{SvcName: "HSMLayerTest", Logger: glogger,
		LockEnabled: false, SMUrl: suite.server.URL,
		SVCHttpClient: suite.svcClient, MaxComponentQuery: maxQuery}
	HSM := &HSMv2{}
	err := HSM.Init(&glb)
	suite.Require().NoError(err, "ERROR calling Init()")
	return HSM
}

func (suite *Models_TS) TestInit() {
	glb := HSM_GLOBALS{SvcName: "HSMLayerTest", Logger: glogger,
		LockEnabled: false, SMUrl: "http://blah/blah",
		SVCHttpClient: suite.svcClient}
	HSM := &HSMv2{}
	err := HSM.Init(&glb)
	suite.Assert().Equal(nil, err, "ERROR calling Init(): %v", err)
	suite.Assert().Equal(500, HSM.HSMGlobals.MaxComponentQuery)

	//Try error stuff

	glb2 := glb
	glb2.SMUrl = ""
	err = HSM.Init(&glb2)
	suite.Assert().NotEqual(nil, err, "ERROR Init(1) should have failed, did not.")

	glb2 = glb
	glb2.SVCHttpClient = nil
	err = HSM.Init(&glb2)
	suite.Assert().NotEqual(nil, err, "ERROR Init(2) should have failed, did not.")
}

func (suite *Models_TS) TestPing() {
	HSM := suite.newHSM(0)
	suite.Assert().NoError(HSM.Ping())

	//A real state manager, if one is configured.
	smURL := os.Getenv("SMS_SERVER")
	if smURL == "" {
		return
	}
	glb := HSM.HSMGlobals
	glb.SMUrl = smURL
	live := &HSMv2{}
	suite.Require().NoError(live.Init(&glb))
	suite.Assert().NoError(live.Ping(), "Ping() of %s failed", smURL)
}

func (suite *Models_TS) TestPresence() {
	HSM := suite.newHSM(0)
	xnames := []string{"x1000c0s0b0n0", "x1000c0s1b0n0", "x1000c0s2b0n0"}
	pmap, err := HSM.GetPresence(xnames)
	suite.Require().NoError(err)
	suite.Require().Len(pmap, 3)
	suite.True(pmap["x1000c0s0b0n0"].Present)
	suite.Equal("Ready", pmap["x1000c0s0b0n0"].State)
	suite.False(pmap["x1000c0s1b0n0"].Present, "Empty is not present")
	suite.False(pmap["x1000c0s2b0n0"].Present, "unknown to HSM")
	suite.Equal([][]string{xnames}, suite.queries)
}

func (suite *Models_TS) TestComponentFQDNsChunked() {
	HSM := suite.newHSM(2)
	xnames := []string{"x1000c0s0b0", "x1000c0s1b0", "x1000c0s2b0"}
	fqdns, err := HSM.GetComponentFQDNs(xnames)
	suite.Require().NoError(err)
	suite.Equal("x1000c0s1b0.hmn", fqdns["x1000c0s1b0"])
	suite.Len(fqdns, 3)
	suite.Equal([][]string{{"x1000c0s0b0", "x1000c0s1b0"}, {"x1000c0s2b0"}}, suite.queries)
}

func (suite *Models_TS) TestBadStatus() {
	HSM := suite.newHSM(0)
	HSM.HSMGlobals.SMUrl = suite.server.URL + "/nope"
	_, err := HSM.GetStateComponents([]string{"x1000c0s0b0n0"})
	suite.Error(err)
}

func (suite *Models_TS) TestReservationsDisabled() {
	HSM := suite.newHSM(0)
	got, err := HSM.ReserveComponents([]ReservationData{{XName: "x1000c0s0"}})
	suite.NoError(err)
	suite.Empty(got)
	held, err := HSM.ReleaseComponents([]ReservationData{{XName: "x1000c0s0"}})
	suite.NoError(err)
	suite.Empty(held)
}

func Test_Stuff(t *testing.T) {
	glogger.SetLevel(logrus.PanicLevel)
	suite.Run(t, new(Models_TS))
}
