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
	"math"
	"testing"

	"github.com/stretchr/testify/suite"
)

type StateTS struct {
	suite.Suite
}

func (suite *StateTS) TestParseEventState() {
	es, err := ParseEventState("upper-major")
	suite.Require().NoError(err)
	suite.Equal(StateUpperMajor, es)

	es, err = ParseEventState("lower-minor | upper-crit")
	suite.Require().NoError(err)
	suite.Equal(StateLowerMinor|StateUpperCrit, es)

	es, err = ParseEventState("unspecified")
	suite.Require().NoError(err)
	suite.Equal(EventStateUnspecified, es)

	es, err = ParseEventState("state14")
	suite.Require().NoError(err)
	suite.Equal(State14, es)

	_, err = ParseEventState("sideways")
	suite.Error(err)
	_, err = ParseEventState("state15")
	suite.Error(err)
}

func (suite *StateTS) TestEventStateString() {
	suite.Equal("unspecified", EventStateUnspecified.String())
	suite.Equal("upper-major", StateUpperMajor.String())
	suite.Equal("lower-crit|upper-minor", (StateLowerCrit | StateUpperMinor).String())
	suite.Equal("0x0100", State08.String())
}

func (suite *StateTS) TestEventStateNames() {
	suite.Equal("state00|state03", (State00 | State03).Discrete())
	suite.Equal("unspecified", EventStateUnspecified.Discrete())

	hs := Event{Source: EventSourceHotSwap}
	suite.Equal("not-present", hs.StateString(HotSwapNotPresent.Bit()))
	suite.Equal("insertion-pending", hs.StateString(HotSwapInsertionPending.Bit()))
	suite.Equal("state00|state02", hs.StateString(State00|State02), "not a single hot-swap state")
	op := Event{Source: EventSourceOperator}
	suite.Equal("extraction-pending", op.StateString(HotSwapExtractionPending.Bit()))

	discrete := Event{Source: EventSourceSensor, ReadingType: ReadingDiscrete}
	suite.Equal("state01", discrete.StateString(State01))
	analog := Event{Source: EventSourceSensor, ReadingType: ReadingAnalog}
	suite.Equal("lower-major", analog.StateString(StateLowerMajor))
}

func (suite *StateTS) TestHotSwapBits() {
	for hs := HotSwapNotPresent; hs <= HotSwapInactive; hs++ {
		got, ok := HotSwapStateFromBits(hs.Bit())
		suite.True(ok, "state %s", hs)
		suite.Equal(hs, got)
		suite.NotZero(hs.Bit() & HotSwapStateBits)
	}
	_, ok := HotSwapStateFromBits(HotSwapActive.Bit() | HotSwapInactive.Bit())
	suite.False(ok)

	hs, err := ParseHotSwapState("Insertion-Pending")
	suite.Require().NoError(err)
	suite.Equal(HotSwapInsertionPending, hs)
	_, err = ParseHotSwapState("gone")
	suite.Error(err)
}

func (suite *StateTS) TestReadingCompare() {
	c, ok := FloatReading(39.0).Compare(FloatReading(39.0))
	suite.True(ok)
	suite.Equal(0, c)

	c, ok = IntReading(-4).Compare(IntReading(7))
	suite.True(ok)
	suite.Equal(-1, c)

	c, ok = UintReading(9).Compare(UintReading(3))
	suite.True(ok)
	suite.Equal(1, c)

	_, ok = IntReading(39).Compare(FloatReading(39))
	suite.False(ok, "no cross-kind comparison")

	_, ok = FloatReading(math.NaN()).Compare(FloatReading(1))
	suite.False(ok)
}

func (suite *StateTS) TestLookupEventRule() {
	p := InstrumentProfile{EventRules: []EventRule{
		{Code: "0x0A", Asserted: true, State: StateUpperMajor},
		{Code: "0x0A", Asserted: false, State: EventStateUnspecified},
	}}
	r, ok := p.LookupEventRule("0x0A", false)
	suite.True(ok)
	suite.Equal(EventStateUnspecified, r.State)
	_, ok = p.LookupEventRule("0x0B", true)
	suite.False(ok)
}

func (suite *StateTS) TestResourceLocation() {
	r := ResourceEntry{Location: "x0c0s0b0n0"}
	suite.NoError(r.Validate())
	r.Location = "bogus"
	suite.Error(r.Validate())
}

func TestStateSuite(t *testing.T) {
	suite.Run(t, new(StateTS))
}
