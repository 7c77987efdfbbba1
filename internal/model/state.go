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
	"strconv"
	"strings"
)

// EventState is a bit set of canonical instrument states.
type EventState uint16

const EventStateUnspecified EventState = 0

// Threshold states, in the order IPMI reports lower/upper non-critical,
// critical and non-recoverable crossings.
const (
	StateLowerMinor EventState = 1 << iota
	StateLowerMajor
	StateLowerCrit
	StateUpperMinor
	StateUpperMajor
	StateUpperCrit
)

// Generic discrete states share the bit space with the threshold states.
const (
	State00 EventState = 1 << iota
	State01
	State02
	State03
	State04
	State05
	State06
	State07
	State08
	State09
	State10
	State11
	State12
	State13
	State14
)

var thresholdNames = []struct {
	bit  EventState
	name string
}{
	{StateLowerMinor, "lower-minor"},
	{StateLowerMajor, "lower-major"},
	{StateLowerCrit, "lower-crit"},
	{StateUpperMinor, "upper-minor"},
	{StateUpperMajor, "upper-major"},
	{StateUpperCrit, "upper-crit"},
}

// ParseEventState accepts a threshold name, "unspecified", a generic state
// name (state00..state14) or a '|' separated combination of those.
func ParseEventState(s string) (EventState, error) {
	var es EventState
	for _, part := range strings.Split(s, "|") {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" || p == "unspecified" {
			continue
		}
		found := false
		for _, tn := range thresholdNames {
			if tn.name == p {
				es |= tn.bit
				found = true
				break
			}
		}
		if !found {
			var n int
			if _, err := fmt.Sscanf(p, "state%d", &n); err != nil || n < 0 || n > 14 {
				return 0, fmt.Errorf("unknown event state '%s'", part)
			}
			es |= EventState(1) << uint(n)
		}
	}
	return es, nil
}

func (e EventState) String() string {
	if e == EventStateUnspecified {
		return "unspecified"
	}
	var parts []string
	for _, tn := range thresholdNames {
		if e&tn.bit != 0 {
			parts = append(parts, tn.name)
		}
	}
	if e&^(StateUpperCrit<<1-1) != 0 {
		parts = append(parts, fmt.Sprintf("0x%04x", uint16(e&^(StateUpperCrit<<1-1))))
	}
	return strings.Join(parts, "|")
}

// Discrete renders the set with generic state names.
func (e EventState) Discrete() string {
	if e == EventStateUnspecified {
		return "unspecified"
	}
	var parts []string
	for n := 0; n < 16; n++ {
		if e&(EventState(1)<<uint(n)) != 0 {
			parts = append(parts, fmt.Sprintf("state%02d", n))
		}
	}
	return strings.Join(parts, "|")
}

func (e *EventState) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	es, err := ParseEventState(s)
	if err != nil {
		n, nerr := strconv.ParseUint(strings.TrimSpace(s), 0, 16)
		if nerr != nil {
			return err
		}
		es = EventState(n)
	}
	*e = es
	return nil
}

// HotSwapState is the managed hot-swap state of a FRU resource.
type HotSwapState int

const (
	HotSwapNotPresent HotSwapState = iota
	HotSwapInsertionPending
	HotSwapActive
	HotSwapExtractionPending
	HotSwapInactive
)

var hotSwapNames = []string{
	"not-present",
	"insertion-pending",
	"active",
	"extraction-pending",
	"inactive",
}

func (h HotSwapState) String() string {
	if h >= 0 && int(h) < len(hotSwapNames) {
		return hotSwapNames[h]
	}
	return fmt.Sprintf("HotSwapState(%d)", int(h))
}

func ParseHotSwapState(s string) (HotSwapState, error) {
	for ix, n := range hotSwapNames {
		if strings.EqualFold(n, strings.TrimSpace(s)) {
			return HotSwapState(ix), nil
		}
	}
	return HotSwapNotPresent, fmt.Errorf("unknown hot-swap state '%s'", s)
}

// Bit maps a hot-swap state onto the event-state bit space so that the
// same masks gate hot-swap transitions.
func (h HotSwapState) Bit() EventState {
	return State00 << uint(h)
}

// HotSwapStateFromBits recovers the hot-swap state from a single-bit event
// state. ok is false unless exactly one hot-swap bit is set.
func HotSwapStateFromBits(es EventState) (HotSwapState, bool) {
	for ix := range hotSwapNames {
		if es == HotSwapState(ix).Bit() {
			return HotSwapState(ix), true
		}
	}
	return HotSwapNotPresent, false
}

// HotSwapStateBits is every bit a hot-swap state can occupy.
const HotSwapStateBits = State00 | State01 | State02 | State03 | State04

// NumericKind tags the native type of an analog reading.
type NumericKind int

const (
	NumericInt64 NumericKind = iota
	NumericUint64
	NumericFloat64
)

func (k NumericKind) String() string {
	switch k {
	case NumericInt64:
		return "int64"
	case NumericUint64:
		return "uint64"
	case NumericFloat64:
		return "float64"
	}
	return fmt.Sprintf("NumericKind(%d)", int(k))
}

func ParseNumericKind(s string) (NumericKind, error) {
	switch strings.ToLower(s) {
	case "int64", "int":
		return NumericInt64, nil
	case "uint64", "uint":
		return NumericUint64, nil
	case "float64", "float":
		return NumericFloat64, nil
	}
	return NumericInt64, fmt.Errorf("unknown numeric kind '%s'", s)
}

// Reading is a typed analog value. Values of different kinds never compare.
type Reading struct {
	Kind  NumericKind `json:"kind"`
	Int   int64       `json:"int,omitempty"`
	Uint  uint64      `json:"uint,omitempty"`
	Float float64     `json:"float,omitempty"`
}

func IntReading(v int64) Reading     { return Reading{Kind: NumericInt64, Int: v} }
func UintReading(v uint64) Reading   { return Reading{Kind: NumericUint64, Uint: v} }
func FloatReading(v float64) Reading { return Reading{Kind: NumericFloat64, Float: v} }

// Compare returns -1, 0 or 1. ok is false when the kinds differ.
func (r Reading) Compare(o Reading) (cmp int, ok bool) {
	if r.Kind != o.Kind {
		return 0, false
	}
	switch r.Kind {
	case NumericInt64:
		return order(r.Int < o.Int, r.Int > o.Int), true
	case NumericUint64:
		return order(r.Uint < o.Uint, r.Uint > o.Uint), true
	case NumericFloat64:
		if r.Float != r.Float || o.Float != o.Float {
			return 0, false
		}
		return order(r.Float < o.Float, r.Float > o.Float), true
	}
	return 0, false
}

func order(less, greater bool) int {
	if less {
		return -1
	}
	if greater {
		return 1
	}
	return 0
}

func (r Reading) String() string {
	switch r.Kind {
	case NumericInt64:
		return fmt.Sprintf("%d", r.Int)
	case NumericUint64:
		return fmt.Sprintf("%d", r.Uint)
	case NumericFloat64:
		return fmt.Sprintf("%g", r.Float)
	}
	return "?"
}
