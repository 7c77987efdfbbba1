//go:build pprof

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
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"
)

type PProf_TS struct {
	suite.Suite
	server *httptest.Server
}

func (suite *PProf_TS) SetupSuite() {
	suite.server = httptest.NewServer(NewRouter())
}

func (suite *PProf_TS) TearDownSuite() {
	suite.server.Close()
}

func (suite *PProf_TS) TestProfilesListedInIndex() {
	resp, err := http.Get(suite.server.URL + "/")
	suite.Require().NoError(err)
	defer resp.Body.Close()

	var index []string
	suite.Require().NoError(json.NewDecoder(resp.Body).Decode(&index))
	suite.Contains(index, "GET /v1/debug/pprof/")
	for _, name := range pprofProfiles {
		suite.Contains(index, "GET /v1/debug/pprof/"+name)
	}
	suite.Contains(index, "GET /version")
}

func (suite *PProf_TS) TestGoroutineProfile() {
	resp, err := http.Get(suite.server.URL + "/v1/debug/pprof/goroutine?debug=1")
	suite.Require().NoError(err)
	defer resp.Body.Close()
	suite.Equal(http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	suite.Require().NoError(err)
	suite.Contains(string(body), "goroutine profile:")
}

func TestPProfSuite(t *testing.T) {
	suite.Run(t, new(PProf_TS))
}
