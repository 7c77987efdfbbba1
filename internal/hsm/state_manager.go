// MIT License
// 
// (C) Copyright [2022] Hewlett Packard Enterprise Development LP
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
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	base "github.com/Cray-HPE/hms-base/v2"
	"github.com/Cray-HPE/hms-hpi/internal/logger"
	"github.com/Cray-HPE/hms-smd/v2/pkg/sm"
	reservation "github.com/Cray-HPE/hms-smd/v2/pkg/service-reservations"
	"github.com/sirupsen/logrus"
)

const (
	hsmLivenessPath                   = "/hsm/v2/service/liveness"
	hsmStateComponentsQueryPath       = "/hsm/v2/State/Components/Query"
	hsmInventoryComponentEndpointPath = "/hsm/v2/Inventory/ComponentEndpoints"
)

//For some reason this is not defined in the HSM code base...

type CompQuery struct {
	ComponentIDs []string `json:"ComponentIDs"`
}

func (b *HSMv2) Init(globals *HSM_GLOBALS) error {
	b.HSMGlobals = HSM_GLOBALS{}
	b.HSMGlobals = *globals

	if b.HSMGlobals.Logger == nil {
		//Set up logger with defaults.
		b.HSMGlobals.Logger = logrus.New()
	}

	svcName := b.HSMGlobals.SvcName
	if svcName == "" {
		svcName = "HPI"
	}

	//Make sure certain things are set up

	if b.HSMGlobals.SVCHttpClient == nil {
		return fmt.Errorf("ERROR: no microservice HTTP client is present.")
	}
	if b.HSMGlobals.SMUrl == "" {
		return fmt.Errorf("ERROR: no State Manager base URL is present.")
	}
	if b.HSMGlobals.MaxComponentQuery == 0 {
		b.HSMGlobals.MaxComponentQuery = 500
		b.HSMGlobals.Logger.Infof("Max component query length set to %d xnames.",
			b.HSMGlobals.MaxComponentQuery)
	}

	if b.HSMGlobals.LockEnabled && b.HSMGlobals.Reservation == nil {
		//Enable HSM component reservation, and set up the reservation
		//service's own logger.

		logy := logrus.New()
		logy.SetLevel(logger.ParseLevel(os.Getenv("SERVICE_RESERVATION_VERBOSITY"),
			logrus.ErrorLevel))
		Formatter := new(logrus.TextFormatter)
		Formatter.TimestampFormat = "2006-01-02T15:04:05.999999999Z07:00"
		Formatter.FullTimestamp = true
		logy.SetFormatter(Formatter)

		b.HSMGlobals.Reservation = &reservation.Production{}
		b.HSMGlobals.Reservation.InitInstance(b.HSMGlobals.SMUrl, "", 1, logy, svcName)
	}

	return nil
}

func addAuth(req *http.Request) {
	tokstr := os.Getenv("TOKEN")
	if tokstr != "" {
		req.Header.Add("Authorization", fmt.Sprintf("Bearer %s", tokstr))
		req.Header.Add("Content-Type", "application/json")
	}
}

// Perform an HSM request and return the body of a 2xx response.
func (b *HSMv2) doRequest(method, smurl string, body []byte, timeout time.Duration) ([]byte, error) {
	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewBuffer(body)
	}
	req, err := http.NewRequest(method, smurl, rdr)
	if err != nil {
		return nil, fmt.Errorf("ERROR creating HTTP request for '%s': %v", smurl, err)
	}
	addAuth(req)
	base.SetHTTPUserAgent(req, b.HSMGlobals.SvcName)

	reqContext, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	req = req.WithContext(reqContext)

	rsp, rsperr := b.HSMGlobals.SVCHttpClient.Do(req)
	if rsperr != nil {
		return nil, fmt.Errorf("Error in http request '%s': %v", smurl, rsperr)
	}
	defer rsp.Body.Close()

	rbody, bderr := io.ReadAll(rsp.Body)
	if bderr != nil {
		return nil, fmt.Errorf("Error reading response body for '%s': %v", smurl, bderr)
	}
	if rsp.StatusCode < 200 || rsp.StatusCode > 299 {
		return nil, fmt.Errorf("Bad response code from '%s': %d", smurl, rsp.StatusCode)
	}
	return rbody, nil
}

func (b *HSMv2) Ping() error {
	_, err := b.doRequest(http.MethodGet, b.HSMGlobals.SMUrl+hsmLivenessPath, nil, 5*time.Second)
	if err != nil {
		b.HSMGlobals.Logger.Error(err)
	}
	return err
}

//Take a list of components and (maybe) deputy keys.  For each component
//that has a deputy key, it is considered locked/reserved.  If there is no
//deputy key, then it will be locked/reserved here.

func (b *HSMv2) ReserveComponents(compList []ReservationData) ([]ReservationData, error) {
	if !b.HSMGlobals.LockEnabled {
		return []ReservationData{}, nil
	}

	//Separate the components with deputy keys from the ones without.

	depList := []ReservationData{}
	freeList := []ReservationData{}
	for _, comp := range compList {
		if (comp.DeputyKey == "") || (comp.ReservationKey != "") {
			freeList = append(freeList, comp)
		} else {
			depList = append(depList, comp)
		}
	}

	//First check the components with deputy keys.  Those are considered
	//already locked/reserved.  If any deputy keys are invalid, fail the
	//whole operation.

	if len(depList) > 0 {
		err := b.CheckDeputyKeys(depList)
		if err != nil {
			return []ReservationData{}, fmt.Errorf("Error checking deputy keys: %w", err)
		}
		var bad []error
		for _, comp := range depList {
			if comp.Error != nil {
				b.HSMGlobals.Logger.Errorf("Deputy key for '%s' check failed: %v.",
					comp.XName, comp.Error)
				bad = append(bad, comp.Error)
			}
		}
		if len(bad) > 0 {
			return []ReservationData{}, fmt.Errorf("Deputy key(s) were invalid: %w", errors.Join(bad...))
		}
	}

	//Acquire the reservations for the items that don't have deputy keys.

	var aquireList []string
	for _, comp := range freeList {
		if !b.HSMGlobals.Reservation.Check([]string{comp.XName}) {
			aquireList = append(aquireList, comp.XName)
		}
	}
	if len(aquireList) > 0 {
		err := b.HSMGlobals.Reservation.Aquire(aquireList)
		if err != nil {
			return freeList, fmt.Errorf("Error aquiring reservations: %w", err)
		}
	}

	status := b.HSMGlobals.Reservation.Status()
	for ix := range freeList {
		rsv, ok := status[freeList[ix].XName]
		freeList[ix].ReservationOwner = true
		if ok {
			freeList[ix].ReservationKey = rsv.ReservationKey
			freeList[ix].DeputyKey = rsv.DeputyKey
			freeList[ix].ExpirationTime = rsv.Expiration.Format(time.RFC3339)
		}
	}

	//We are returning the list of components for which we got a reservation
	//as a convenience to the caller so they don't have to plow through the
	//entire component list to find the ones they need.

	return freeList, nil
}

// Check each component's deputy key for validity.  Any error results in
// all components being considered invalid (this would be for some sort of
// SM commmunication error).  Otherwise, each item in the list is checked
// and if it is not valid, it's Error field is set.
//
// NOTE: not having a deputy key associated with a component is not an error.
// This func is only checking non-nil keys for validity.

func (b *HSMv2) CheckDeputyKeys(compList []ReservationData) error {
	var keyList []reservation.Key
	cmap := make(map[string]*ReservationData)

	for ix, comp := range compList {
		cmap[comp.XName] = &compList[ix]
		keyList = append(keyList, reservation.Key{ID: comp.XName, Key: comp.DeputyKey})
	}

	checkList, cerr := b.HSMGlobals.Reservation.ValidateDeputyKeys(keyList)
	if cerr != nil {
		return fmt.Errorf("Error in deputy key check: %w", cerr)
	}

	for _, comp := range checkList.Success {
		if rd, ok := cmap[comp.ID]; ok {
			rd.ExpirationTime = comp.ExpirationTime
			rd.Error = nil
		}
	}
	for _, comp := range checkList.Failure {
		if rd, ok := cmap[comp.ID]; ok {
			rd.ExpirationTime = ""
			rd.Error = errors.New(comp.Reason)
		}
	}
	return nil
}

//The passed-in list should only contain components that don't have a
//deputy key.  Returns the components still reserved by us afterwards.

func (b *HSMv2) ReleaseComponents(compList []ReservationData) ([]ReservationData, error) {
	if !b.HSMGlobals.LockEnabled {
		return []ReservationData{}, nil
	}

	var clearList []string
	for _, comp := range compList {
		if b.HSMGlobals.Reservation.Check([]string{comp.XName}) {
			clearList = append(clearList, comp.XName)
		}
	}
	if len(clearList) > 0 {
		err := b.HSMGlobals.Reservation.Release(clearList)
		if err != nil {
			return compList, err
		}
	}

	var held []ReservationData
	for ix := range compList {
		if b.HSMGlobals.Reservation.Check([]string{compList[ix].XName}) {
			held = append(held, compList[ix])
			continue
		}
		compList[ix].ReservationKey = ""
		compList[ix].DeputyKey = ""
		compList[ix].ExpirationTime = ""
		compList[ix].Error = nil
	}
	return held, nil
}

func (b *HSMv2) GetStateComponents(xnames []string) (base.ComponentArray, error) {
	var queryData CompQuery
	var retData base.ComponentArray

	smurl := b.HSMGlobals.SMUrl + hsmStateComponentsQueryPath
	queryData.ComponentIDs = xnames
	ba, baerr := json.Marshal(&queryData)
	if baerr != nil {
		return retData, fmt.Errorf("Error marshalling HSM component query data: %v",
			baerr)
	}

	body, err := b.doRequest(http.MethodPost, smurl, ba, 40*time.Second)
	if err != nil {
		return retData, err
	}
	err = json.Unmarshal(body, &retData)
	if err != nil {
		return retData, fmt.Errorf("Error unmarshalling response body for '%s': %v",
			smurl, err)
	}
	return retData, nil
}

// Get the presence of the given components.  A component HSM does not
// know about, or knows only as Empty, is not present.
func (b *HSMv2) GetPresence(xnames []string) (map[string]ComponentPresence, error) {
	pmap := make(map[string]ComponentPresence, len(xnames))
	for _, xn := range xnames {
		pmap[xn] = ComponentPresence{ID: xn}
	}
	comps, err := b.GetStateComponents(xnames)
	if err != nil {
		return pmap, err
	}
	for _, comp := range comps.Components {
		if comp == nil {
			continue
		}
		pmap[comp.ID] = ComponentPresence{
			ID:      comp.ID,
			Type:    comp.Type,
			State:   comp.State,
			Present: comp.State != "" && comp.State != string(base.StateEmpty),
		}
	}
	return pmap, nil
}

// Get the Redfish endpoint FQDN of each of the given controllers.
// Queries are sliced into MaxComponentQuery sized chunks.
func (b *HSMv2) GetComponentFQDNs(xnames []string) (map[string]string, error) {
	fqdns := make(map[string]string)

	for start := 0; start < len(xnames); start += b.HSMGlobals.MaxComponentQuery {
		end := start + b.HSMGlobals.MaxComponentQuery
		if end > len(xnames) {
			end = len(xnames)
		}
		urlSuffix := ""
		for _, xn := range xnames[start:end] {
			urlSuffix = urlSuffix + "&id=" + xn
		}
		smurl := b.HSMGlobals.SMUrl + hsmInventoryComponentEndpointPath +
			"?" + strings.TrimLeft(urlSuffix, "&")

		body, err := b.doRequest(http.MethodGet, smurl, nil, 40*time.Second)
		if err != nil {
			return fqdns, err
		}
		var jdata sm.ComponentEndpointArray
		err = json.Unmarshal(body, &jdata)
		if err != nil {
			return fqdns, fmt.Errorf("Error unmarshalling response body for '%s': %v",
				smurl, err)
		}
		for _, comp := range jdata.ComponentEndpoints {
			if comp.RfEndpointFQDN == "" {
				continue
			}
			fqdns[comp.ID] = comp.RfEndpointFQDN
		}
	}
	return fqdns, nil
}
