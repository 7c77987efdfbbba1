// MIT License
// 
// (C) Copyright [2022-2023] Hewlett Packard Enterprise Development LP
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
	base "github.com/Cray-HPE/hms-base/v2"
	"github.com/Cray-HPE/hms-certs/pkg/hms_certs"
	reservation "github.com/Cray-HPE/hms-smd/v2/pkg/service-reservations"
	"github.com/sirupsen/logrus"
)

type HSM_GLOBALS struct {
	SvcName           string
	Logger            *logrus.Logger
	Reservation       *reservation.Production
	Running           *bool
	LockEnabled       bool
	SMUrl             string
	SVCHttpClient     *hms_certs.HTTPClientPair
	MaxComponentQuery int
}

// Operator hot-swap actions reserve the FRU in HSM for the duration of the
// action.  A caller may hold a deputy key from its own reservation, in
// which case we only validate it.  Otherwise we take the reservation
// ourselves and must release it when the action is done.  A non-empty
// ReservationKey means we own the reservation.

type ReservationData struct {
	XName            string
	ReservationOwner bool   //true == we got the rsv, not just using deputy key
	ReservationKey   string //only valid if we had to get the reservation
	ExpirationTime   string //Ditto.
	DeputyKey        string //Can be empty, filled in when getting reservation
	Error            error
}

// Presence of one component as HSM sees it.
type ComponentPresence struct {
	ID      string
	Type    string
	State   string
	Present bool
}

type HSMProvider interface {
	Init(globals *HSM_GLOBALS) error
	Ping() error
	ReserveComponents(compList []ReservationData) ([]ReservationData, error)
	CheckDeputyKeys(compList []ReservationData) error
	ReleaseComponents(compList []ReservationData) ([]ReservationData, error)
	GetStateComponents(xnames []string) (base.ComponentArray, error)
	GetPresence(xnames []string) (map[string]ComponentPresence, error)
	GetComponentFQDNs(xnames []string) (map[string]string, error)
}

type HSMv2 struct {
	HSMGlobals HSM_GLOBALS
}
