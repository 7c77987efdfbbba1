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

import "time"

type ReadingType int

const (
	ReadingAnalog ReadingType = iota
	ReadingDiscrete
)

// RangeRule maps an analog reading onto a state. Any non-empty subset of
// the bounds may be set; Min and Max are inclusive, Nominal must match
// exactly.
type RangeRule struct {
	State   EventState `json:"state"`
	Min     *Reading   `json:"min,omitempty"`
	Max     *Reading   `json:"max,omitempty"`
	Nominal *Reading   `json:"nominal,omitempty"`
}

// EventRule maps a vendor event code in one direction onto a target state.
type EventRule struct {
	Code              string      `json:"code"`
	Asserted          bool        `json:"asserted"`
	State             EventState  `json:"state"`
	Recovery          *EventState `json:"recovery,omitempty"`
	AutoState         *EventState `json:"autoState,omitempty"`
	Failure           bool        `json:"failure,omitempty"`
	FailureUnexpected bool        `json:"failureUnexpected,omitempty"`
	Description       string      `json:"description,omitempty"`
}

// InstrumentProfile is the immutable vendor description of how to read
// one instrument. Profiles are shared by reference between instruments.
type InstrumentProfile struct {
	Name            string      `json:"name"`
	ReadingType     ReadingType `json:"readingType"`
	NumericKind     NumericKind `json:"numericKind"`
	HotSwap         bool        `json:"hotSwap,omitempty"`
	SupportedStates EventState  `json:"supportedStates"`
	AssertMask      EventState  `json:"assertMask"`
	DeassertMask    EventState  `json:"deassertMask"`
	RangeRules      []RangeRule `json:"rangeRules,omitempty"`
	EventRules      []EventRule `json:"eventRules,omitempty"`
}

// LookupEventRule returns the first rule for code in the given direction.
func (p *InstrumentProfile) LookupEventRule(code string, asserted bool) (*EventRule, bool) {
	for ix := range p.EventRules {
		r := &p.EventRules[ix]
		if r.Code == code && r.Asserted == asserted {
			return r, true
		}
	}
	return nil, false
}

// InstrumentState is the mutable runtime state of a single instrument.
type InstrumentState struct {
	Instrument    InstrumentRef `json:"instrument"`
	State         EventState    `json:"state"`
	Enabled       bool          `json:"enabled"`
	EventsEnabled bool          `json:"eventsEnabled"`
}

// HotSwapRuntime is the mutable hot-swap state of a FRU resource.
// AutoTarget is only set while a synthetic transition is being applied.
type HotSwapRuntime struct {
	ResourceID ResourceID    `json:"resourceID"`
	State      HotSwapState  `json:"state"`
	Previous   HotSwapState  `json:"previous"`
	AutoTarget *HotSwapState `json:"autoTarget,omitempty"`
}

type EventSource int

const (
	EventSourceSensor EventSource = iota
	EventSourceHotSwap
	EventSourceOperator
	EventSourceUser
)

func (s EventSource) String() string {
	switch s {
	case EventSourceSensor:
		return "sensor"
	case EventSourceHotSwap:
		return "hotswap"
	case EventSourceOperator:
		return "operator"
	case EventSourceUser:
		return "user"
	}
	return "unknown"
}

// Event describes one net transition of one instrument.
type Event struct {
	ID                string        `json:"id"`
	Source            EventSource   `json:"source"`
	Instrument        InstrumentRef `json:"instrument"`
	Location          string        `json:"location,omitempty"`
	ReadingType       ReadingType   `json:"readingType"`
	Previous          EventState    `json:"previous"`
	State             EventState    `json:"state"`
	Asserted          bool          `json:"asserted"`
	Recovery          *EventState   `json:"recovery,omitempty"`
	Failure           bool          `json:"failure,omitempty"`
	FailureUnexpected bool          `json:"failureUnexpected,omitempty"`
	Description       string        `json:"description,omitempty"`
	Timestamp         time.Time     `json:"timestamp"`
}

// StateString names s in the vocabulary of the event's instrument. Hot-swap
// and operator events use hot-swap state names, discrete sensors use
// stateNN and analog sensors use threshold names.
func (ev Event) StateString(s EventState) string {
	switch {
	case ev.Source == EventSourceHotSwap || ev.Source == EventSourceOperator:
		if hs, ok := HotSwapStateFromBits(s); ok {
			return hs.String()
		}
		return s.Discrete()
	case ev.ReadingType == ReadingDiscrete:
		return s.Discrete()
	}
	return s.String()
}
