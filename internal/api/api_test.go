/*
 * MIT License
 *
 * (C) Copyright [2025] Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
 * THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
 * OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
 * ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
 * OTHER DEALINGS IN THE SOFTWARE.
 */

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Cray-HPE/hms-hpi/internal/domain"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/stretchr/testify/suite"
)

type API_TS struct {
	suite.Suite
	hsmServer *httptest.Server
	server    *httptest.Server
}

func (suite *API_TS) SetupSuite() {
	suite.hsmServer = setupGlobals(&suite.Suite)
	suite.server = httptest.NewServer(NewRouter())
}

func (suite *API_TS) TearDownSuite() {
	suite.server.Close()
	suite.hsmServer.Close()
}

func (suite *API_TS) do(method, path string, body interface{}, out interface{}) int {
	var pld *bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			pld = bytes.NewBufferString(b)
		default:
			data, err := json.Marshal(body)
			suite.Require().NoError(err)
			pld = bytes.NewBuffer(data)
		}
	}
	var rdata []byte
	var scode int
	var err error
	if pld == nil {
		rdata, scode, err = doHTTP(suite.server.URL+path, method, nil)
	} else {
		rdata, scode, err = doHTTP(suite.server.URL+path, method, pld)
	}
	suite.Require().NoError(err, "%s %s", method, path)
	if out != nil && len(rdata) > 0 {
		suite.Require().NoError(json.Unmarshal(rdata, out), "body: %s", string(rdata))
	}
	return scode
}

func (suite *API_TS) TestIndexAndVersion() {
	var paths []string
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/", nil, &paths))
	suite.Contains(paths, "GET /rpt")

	var vrsp model.VersionResponse
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/v1/version", nil, &vrsp))
	suite.Equal(domain.Version(), vrsp.Version)

	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/metrics", nil, nil))
}

func (suite *API_TS) TestTables() {
	var di model.DomainInfo
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/v1/domain", nil, &di))
	suite.Equal(uint32(11), di.DomainID)
	suite.Equal("x3000c0", di.Tag)

	var rpt model.RptResponse
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/rpt", nil, &rpt))
	suite.Require().Len(rpt.Resources, 2)
	suite.Equal("x3000c0s1", rpt.Resources[1].Entry.Location)

	var rdr model.RdrResponse
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/rpt/1/rdr", nil, &rdr))
	suite.Require().Len(rdr.Instruments, 1)
	suite.Equal("Inlet", rdr.Instruments[0].Name)

	var prob model.Problem7807
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodGet, "/rpt/abc/rdr", nil, &prob))
	suite.Equal(http.StatusNotFound, suite.do(http.MethodGet, "/rpt/9/rdr", nil, &prob))
	suite.Equal(http.StatusNotFound, prob.Status)

	var drt model.DrtResponse
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/drt", nil, &drt))
	suite.Empty(drt.Entries)

	var dump model.DomainDump
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/dump", nil, &dump))
	suite.Equal([]model.ResourceID{1}, dump.EventLogResources)
}

func (suite *API_TS) TestAlarms() {
	simHandler(&suite.Suite).Set("inlet", "95")
	domain.GLOB.Poller.Cycle(context.Background())

	var dat model.DatResponse
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/dat", nil, &dat))
	suite.Require().Len(dat.Alarms, 1)
	id := dat.Alarms[0].AlarmID
	suite.Equal(model.SeverityCritical, dat.Alarms[0].Severity)

	var a model.Alarm
	suite.Equal(http.StatusOK, suite.do(http.MethodPost, fmt.Sprintf("/dat/%d/ack", id), nil, &a))
	suite.True(a.Acknowledged)

	suite.Equal(http.StatusNoContent, suite.do(http.MethodDelete, fmt.Sprintf("/dat/%d", id), nil, nil))
	suite.Equal(http.StatusNotFound, suite.do(http.MethodDelete, fmt.Sprintf("/dat/%d", id), nil, nil))
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPost, "/dat/x/ack", nil, nil))
}

func (suite *API_TS) TestHotSwap() {
	var rt model.HotSwapRuntime
	scode := suite.do(http.MethodPost, "/rpt/2/hotswap", model.HotSwapRequest{Action: "extract"}, &rt)
	suite.Require().Equal(http.StatusOK, scode)
	suite.Equal(model.HotSwapExtractionPending, rt.State)

	suite.Equal(http.StatusBadRequest,
		suite.do(http.MethodPost, "/rpt/2/hotswap", model.HotSwapRequest{Action: "extract"}, nil),
		"already extracting")
	suite.Equal(http.StatusBadRequest,
		suite.do(http.MethodPost, "/rpt/2/hotswap", model.HotSwapRequest{Action: "bogus"}, nil))
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPost, "/rpt/2/hotswap", "{nope", nil))
	suite.Equal(http.StatusNotFound,
		suite.do(http.MethodPost, "/rpt/7/hotswap", model.HotSwapRequest{Action: "insert"}, nil))

	var ier model.InjectEventResponse
	scode = suite.do(http.MethodPost, "/handlers/1/events",
		model.InjectEventRequest{ResourceID: 2, HotSwap: true, Code: "ON", Asserted: true}, &ier)
	suite.Require().Equal(http.StatusOK, scode)
	suite.Require().Len(ier.Events, 1)
	suite.Equal(model.HotSwapActive.Bit(), ier.Events[0].State)

	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPost, "/handlers/1/events",
		model.InjectEventRequest{ResourceID: 2, HotSwap: true}, nil), "code required")
}

func (suite *API_TS) TestPluginsAndHandlers() {
	var plugins []domain.PluginInfo
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/plugins", nil, &plugins))
	suite.Require().Len(plugins, 1)
	suite.Equal("sim", plugins[0].Name)

	suite.Equal(http.StatusCreated, suite.do(http.MethodPost, "/plugins", model.PluginLoadRequest{Name: "snmp"}, nil))
	suite.Equal(http.StatusConflict, suite.do(http.MethodPost, "/plugins", model.PluginLoadRequest{Name: "snmp"}, nil))
	suite.Equal(http.StatusNotFound, suite.do(http.MethodPost, "/plugins", model.PluginLoadRequest{Name: "ipmi"}, nil))
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPost, "/plugins", model.PluginLoadRequest{}, nil))
	suite.Equal(http.StatusNoContent, suite.do(http.MethodDelete, "/plugins/snmp", nil, nil))
	suite.Equal(http.StatusConflict, suite.do(http.MethodDelete, "/plugins/sim", nil, nil))

	var hi domain.HandlerInfo
	scode := suite.do(http.MethodPost, "/handlers", map[string]string{"plugin": "sim", "name": "sim9"}, &hi)
	suite.Require().Equal(http.StatusCreated, scode)
	path := fmt.Sprintf("/handlers/%d", hi.ID)

	var got domain.HandlerInfo
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, path, nil, &got))
	suite.Equal("sim9", got.Name)

	var all []domain.HandlerInfo
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/handlers", nil, &all))
	suite.Len(all, 2)

	suite.Equal(http.StatusNoContent, suite.do(http.MethodDelete, path, nil, nil))
	suite.Equal(http.StatusNotFound, suite.do(http.MethodGet, path, nil, nil))
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPost, "/handlers", map[string]string{"name": "x"}, nil))
}

func (suite *API_TS) TestParams() {
	var p model.Param
	suite.Equal(http.StatusOK, suite.do(http.MethodPut, "/params/pollInterval", model.Param{Value: "10s"}, &p))
	suite.Equal("10s", p.Value)
	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/v1/params/userAlarmLimit", nil, &p))
	suite.Equal("10", p.Value)
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodPut, "/params/pollInterval", model.Param{Value: "soon"}, nil))
	suite.Equal(http.StatusNotFound, suite.do(http.MethodGet, "/params/nope", nil, nil))
	suite.True(strings.HasPrefix(domain.GLOB.Poller.Interval().String(), "10"))
}

func Test_API(t *testing.T) {
	suite.Run(t, new(API_TS))
}
