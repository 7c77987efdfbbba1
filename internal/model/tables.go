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

package model

import (
	"fmt"
	"time"

	"github.com/Cray-HPE/hms-xname/xnametypes"
)

// TableKind names one of the three domain tables a client can snapshot.
type TableKind int

const (
	TableResourcePresence TableKind = iota // RPT
	TableDomainReference                   // DRT
	TableAlarm                             // DAT
)

func (k TableKind) String() string {
	switch k {
	case TableResourcePresence:
		return "RPT"
	case TableDomainReference:
		return "DRT"
	case TableAlarm:
		return "DAT"
	}
	return fmt.Sprintf("TableKind(%d)", int(k))
}

// EntryID is a table cursor. FirstEntry starts a walk, LastEntry is
// returned as the "next" cursor of the final entry.
type EntryID uint32

const (
	FirstEntry EntryID = 0x00000000
	LastEntry  EntryID = 0xFFFFFFFF
)

type ResourceID = EntryID
type AlarmID = EntryID

// DomainInfo is the domain descriptor. Its update counters are the
// optimistic-concurrency tokens of the snapshot protocol.
type DomainInfo struct {
	DomainID           uint32    `json:"domainID"`
	Tag                string    `json:"tag"`
	RptUpdateCount     uint32    `json:"rptUpdateCount"`
	RptUpdateTimestamp time.Time `json:"rptUpdateTimestamp"`
	DrtUpdateCount     uint32    `json:"drtUpdateCount"`
	DrtUpdateTimestamp time.Time `json:"drtUpdateTimestamp"`
	DatUpdateCount     uint32    `json:"datUpdateCount"`
	DatUpdateTimestamp time.Time `json:"datUpdateTimestamp"`
	ActiveAlarms       int       `json:"activeAlarms"`
	CriticalAlarms     int       `json:"criticalAlarms"`
	MajorAlarms        int       `json:"majorAlarms"`
	MinorAlarms        int       `json:"minorAlarms"`
	DatUserAlarmLimit  int       `json:"datUserAlarmLimit"`
	DatOverflow        bool      `json:"datOverflow"`
}

// Counter returns the update counter belonging to the given table.
func (d DomainInfo) Counter(kind TableKind) uint32 {
	switch kind {
	case TableResourcePresence:
		return d.RptUpdateCount
	case TableDomainReference:
		return d.DrtUpdateCount
	case TableAlarm:
		return d.DatUpdateCount
	}
	return 0
}

type Capability uint32

const (
	CapResource Capability = 1 << iota
	CapFRU
	CapSensor
	CapControl
	CapInventory
	CapWatchdog
	CapAnnunciator
	CapEventLog
	CapPowerControl
	CapResetControl
	CapManagedHotSwap
	CapAggregateStatus
	CapRDR
)

func (c Capability) Has(bits Capability) bool { return c&bits == bits }

type Severity int

const (
	SeverityCritical Severity = iota
	SeverityMajor
	SeverityMinor
	SeverityInformational
	SeverityOK
	SeverityDebug Severity = 0xF0
)

var severityNames = map[Severity]string{
	SeverityCritical:      "Critical",
	SeverityMajor:         "Major",
	SeverityMinor:         "Minor",
	SeverityInformational: "Informational",
	SeverityOK:            "OK",
	SeverityDebug:         "Debug",
}

func (s Severity) String() string {
	if n, ok := severityNames[s]; ok {
		return n
	}
	return fmt.Sprintf("Severity(%d)", int(s))
}

// ResourceEntry is one row of the resource presence table.
type ResourceEntry struct {
	ResourceID   ResourceID `json:"resourceID"`
	Location     string     `json:"location"`
	Tag          string     `json:"tag"`
	Capabilities Capability `json:"capabilities"`
	HotSwapCaps  Capability `json:"hotSwapCapabilities"`
	Severity     Severity   `json:"severity"`
	Failed       bool       `json:"failed"`
}

// Validate checks the entity location is a well formed HMS component id.
func (r ResourceEntry) Validate() error {
	if r.Location == "" {
		return nil
	}
	if !xnametypes.IsHMSCompIDValid(r.Location) {
		return fmt.Errorf("invalid resource location '%s'", r.Location)
	}
	return nil
}

// LocationType is the HMS component type of the resource location.
func (r ResourceEntry) LocationType() xnametypes.HMSType {
	return xnametypes.GetHMSType(r.Location)
}

type InstrumentType int

const (
	InstrumentSensor InstrumentType = iota
	InstrumentControl
	InstrumentInventory
	InstrumentWatchdog
	InstrumentAnnunciator
)

func (t InstrumentType) String() string {
	switch t {
	case InstrumentSensor:
		return "Sensor"
	case InstrumentControl:
		return "Control"
	case InstrumentInventory:
		return "Inventory"
	case InstrumentWatchdog:
		return "Watchdog"
	case InstrumentAnnunciator:
		return "Annunciator"
	}
	return fmt.Sprintf("InstrumentType(%d)", int(t))
}

// InstrumentEntry is one resource data record.
type InstrumentEntry struct {
	RecordID EntryID        `json:"recordID"`
	Type     InstrumentType `json:"type"`
	Num      uint32         `json:"num"`
	Name     string         `json:"name"`
	Profile  string         `json:"profile,omitempty"`
}

// Resource is a resource entry together with its instrument list, as
// produced by a nested RPT snapshot.
type Resource struct {
	Entry                 ResourceEntry     `json:"entry"`
	InstrumentUpdateCount uint32            `json:"instrumentUpdateCount"`
	Instruments           []InstrumentEntry `json:"instruments"`
}

type DrtEntry struct {
	EntryID  EntryID `json:"entryID"`
	DomainID uint32  `json:"domainID"`
	IsPeer   bool    `json:"isPeer"`
}

// InstrumentRef addresses one instrument of one resource.
type InstrumentRef struct {
	ResourceID ResourceID `json:"resourceID"`
	Num        uint32     `json:"num"`
}

func (r InstrumentRef) String() string {
	return fmt.Sprintf("%d/%d", r.ResourceID, r.Num)
}

type Alarm struct {
	AlarmID       AlarmID        `json:"alarmID"`
	Severity      Severity       `json:"severity"`
	Timestamp     time.Time      `json:"timestamp"`
	Instrument    *InstrumentRef `json:"instrument,omitempty"`
	Condition     string         `json:"condition"`
	State         EventState     `json:"state"`
	RecoveryState *EventState    `json:"recoveryState,omitempty"`
	Acknowledged  bool           `json:"acknowledged"`
}
