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

package redfish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/backend"
	trsapi "github.com/Cray-HPE/hms-trs-app-api/v3/pkg/trs_http_api"
	"github.com/Cray-HPE/hms-xname/xnametypes"
	"github.com/sirupsen/logrus"
)

// Sampler reads BMC sensors over Redfish.  Instruments are addressed
// "<bmc xname>/<redfish path>#<sensor>", e.g.
// "x1000c0s0b0/redfish/v1/Chassis/Node0/Thermal#CPU0".  One GET is issued
// per distinct path per cycle, fanned out through TRS.
type Sampler struct {
	Tloc    trsapi.TrsAPI
	Deps    backend.Deps
	Timeout time.Duration
	Scheme  string
	Logger  *logrus.Logger

	fqdns map[string]string
}

func New(name string, params map[string]string, deps backend.Deps) (backend.Sampler, error) {
	if deps.RFTloc == nil {
		return nil, fmt.Errorf("handler '%s': redfish plugin needs a task runner", name)
	}
	timeout, err := backend.ParamInt(params, "timeout", 30)
	if err != nil {
		return nil, fmt.Errorf("handler '%s': %w", name, err)
	}
	scheme := params["scheme"]
	if scheme == "" {
		scheme = "https"
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Sampler{Tloc: deps.RFTloc, Deps: deps, Timeout: time.Duration(timeout) * time.Second,
		Scheme: scheme, Logger: logger, fqdns: map[string]string{}}, nil
}

type target struct {
	bmc  string
	path string
	refs []backend.Ref
}

func splitTarget(addr string) (bmc, path, sensor string, err error) {
	where, sensor := backend.SplitAddress(addr)
	ix := strings.Index(where, "/")
	if ix <= 0 {
		return "", "", "", fmt.Errorf("%w: '%s'", backend.ErrBadAddress, addr)
	}
	bmc = xnametypes.NormalizeHMSCompID(where[:ix])
	if !xnametypes.IsHMSCompIDValid(bmc) {
		return "", "", "", fmt.Errorf("%w: bad xname in '%s'", backend.ErrBadAddress, addr)
	}
	return bmc, where[ix:], sensor, nil
}

// Resolve BMC FQDNs through HSM, once per BMC.  A BMC HSM does not know is
// addressed by its xname.
func (s *Sampler) resolve(bmcs []string) {
	var unknown []string
	for _, b := range bmcs {
		if _, ok := s.fqdns[b]; !ok {
			unknown = append(unknown, b)
		}
	}
	if len(unknown) == 0 {
		return
	}
	if s.Deps.HSM != nil {
		found, err := s.Deps.HSM.GetComponentFQDNs(unknown)
		if err != nil {
			s.Logger.Warnf("Can't get BMC FQDNs from HSM: %v", err)
			return
		}
		for k, v := range found {
			s.fqdns[k] = v
		}
	}
	for _, b := range unknown {
		if _, ok := s.fqdns[b]; !ok {
			s.fqdns[b] = b
		}
	}
}

func (s *Sampler) Sample(ctx context.Context, refs []backend.Ref) ([]backend.Sample, error) {
	var out []backend.Sample
	targets := make(map[string]*target)
	var order []string
	for _, ref := range refs {
		bmc, path, _, err := splitTarget(ref.Address)
		if err != nil {
			out = append(out, backend.Sample{Ref: ref, Err: err})
			continue
		}
		key := bmc + path
		t, ok := targets[key]
		if !ok {
			t = &target{bmc: bmc, path: path}
			targets[key] = t
			order = append(order, key)
		}
		t.refs = append(t.refs, ref)
	}
	if len(order) == 0 {
		return out, nil
	}

	var bmcs []string
	seen := map[string]bool{}
	for _, key := range order {
		if b := targets[key].bmc; !seen[b] {
			seen[b] = true
			bmcs = append(bmcs, b)
		}
	}
	s.resolve(bmcs)

	hashKey := http.CanonicalHeaderKey("HPI-Target")
	sourceTL := trsapi.HttpTask{Timeout: s.Timeout}
	taskList := s.Tloc.CreateTaskList(&sourceTL, len(order))
	activeTasks := 0

	for ix, key := range order {
		t := targets[key]
		url := s.Scheme + "://" + s.fqdns[t.bmc] + t.path
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			taskList[ix].Ignore = true
			for _, ref := range t.refs {
				out = append(out, backend.Sample{Ref: ref, Err: err})
			}
			continue
		}
		if s.Deps.Creds != nil {
			user, pw, cerr := s.Deps.Creds.GetControllerCredentials(t.bmc)
			if cerr != nil {
				s.Logger.Warnf("No credentials for %s: %v", t.bmc, cerr)
			} else {
				req.SetBasicAuth(user, pw)
			}
		}
		req.Header.Set("Accept", "*/*")
		//Carry the target key so responses can be matched up.
		req.Header.Add(hashKey, key)
		taskList[ix].Request = req
		activeTasks++
	}

	if activeTasks == 0 {
		return out, nil
	}

	rchan, err := s.Tloc.Launch(&taskList)
	if err != nil {
		return out, fmt.Errorf("TRS Launch() error: %v", err)
	}
	defer s.Tloc.Close(&taskList)

	for nDone := 0; nDone < activeTasks; nDone++ {
		var task *trsapi.HttpTask
		select {
		case task = <-rchan:
		case <-ctx.Done():
			s.Tloc.Cancel(&taskList)
			return out, ctx.Err()
		}
		key := task.Request.Header.Get(hashKey)
		t, ok := targets[key]
		if !ok {
			s.Logger.Errorf("INTERNAL ERROR: target not found in task headers, can't process response.")
			continue
		}
		body, rerr := taskBody(task)
		if rerr != nil {
			for _, ref := range t.refs {
				out = append(out, backend.Sample{Ref: ref, Err: rerr})
			}
			continue
		}
		p, perr := parsePayload(body)
		for _, ref := range t.refs {
			if perr != nil {
				out = append(out, backend.Sample{Ref: ref, Err: perr})
				continue
			}
			_, _, sensor, _ := splitTarget(ref.Address)
			in, ierr := p.input(ref, sensor)
			if ierr != nil {
				out = append(out, backend.Sample{Ref: ref, Err: ierr})
				continue
			}
			out = append(out, backend.Sample{Ref: ref, Input: in})
		}
	}
	return out, nil
}

// Return the HTTP status code from a completed TRS task.  No response and
// no error is a 204; no response with an error is a 500.
func getStatusCode(tp *trsapi.HttpTask) int {
	if tp.Request.Response != nil {
		return tp.Request.Response.StatusCode
	}
	if tp.Err != nil && *tp.Err != nil {
		return http.StatusInternalServerError
	}
	return http.StatusNoContent
}

func taskBody(task *trsapi.HttpTask) ([]byte, error) {
	code := getStatusCode(task)
	if task.Request.Response == nil {
		var terr error
		if task.Err != nil {
			terr = *task.Err
		}
		return nil, fmt.Errorf("no response from '%s' (%d): %v", task.Request.URL.String(), code, terr)
	}
	body, err := io.ReadAll(task.Request.Response.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body for '%s': %v", task.Request.URL.String(), err)
	}
	if code < 200 || code > 299 {
		return nil, fmt.Errorf("bad response code from '%s': %d", task.Request.URL.String(), code)
	}
	return body, nil
}

func (s *Sampler) Close() error { return nil }
