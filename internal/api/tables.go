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
	"net/http"
	"strings"

	"github.com/Cray-HPE/hms-hpi/internal/domain"
	"github.com/Cray-HPE/hms-hpi/internal/model"
)

// The API layer is responsible for Json Unmarshaling and Marshaling,
// creating the correct parameter types, validating the parameters by schema
// and calling the domain layer.  Whether a resource or alarm actually exists
// is for the domain layer to decide.

// GetDomain - returns the domain descriptor
func GetDomain(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetDomainInfo(req.Context()))
}

// GetDrt - returns a consistent snapshot of the domain reference table
func GetDrt(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetDrt(req.Context()))
}

// GetRpt - returns a consistent snapshot of the resource table, each
// resource with its instruments
func GetRpt(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetRpt(req.Context()))
}

// GetRdr - returns the instrument list of one resource
func GetRdr(w http.ResponseWriter, req *http.Request) {
	pb := GetIDFromVars("resourceID", req)
	if pb.IsError {
		WriteHeaders(w, pb)
		return
	}
	WriteHeaders(w, domain.GetRdr(req.Context(), model.ResourceID(pb.Obj.(uint32))))
}

// GetDat - returns a consistent snapshot of the alarm table
func GetDat(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetDat(req.Context()))
}

// DeleteAlarm - removes one alarm
func DeleteAlarm(w http.ResponseWriter, req *http.Request) {
	pb := GetIDFromVars("alarmID", req)
	if pb.IsError {
		WriteHeaders(w, pb)
		return
	}
	WriteHeaders(w, domain.DeleteAlarm(model.AlarmID(pb.Obj.(uint32))))
}

// AckAlarm - acknowledges one alarm
func AckAlarm(w http.ResponseWriter, req *http.Request) {
	pb := GetIDFromVars("alarmID", req)
	if pb.IsError {
		WriteHeaders(w, pb)
		return
	}
	WriteHeaders(w, domain.AckAlarm(model.AlarmID(pb.Obj.(uint32))))
}

// GetDump - returns a dump of every table.  ?stored=true returns the last
// dump written to storage by whichever instance is polling.
func GetDump(w http.ResponseWriter, req *http.Request) {
	stored := strings.EqualFold(req.URL.Query().Get("stored"), "true")
	WriteHeaders(w, domain.GetDump(req.Context(), stored))
}

// PostHotSwap - operator extract/insert request on a FRU
func PostHotSwap(w http.ResponseWriter, req *http.Request) {
	pb := GetIDFromVars("resourceID", req)
	if pb.IsError {
		WriteHeaders(w, pb)
		return
	}
	var hsr model.HotSwapRequest
	if bad := decodeBody(w, req, &hsr); bad != nil {
		return
	}
	WriteHeaders(w, domain.RequestHotSwap(req.Context(), model.ResourceID(pb.Obj.(uint32)), hsr))
}
