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

package profile

import (
	"testing"

	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/stretchr/testify/suite"
)

type ConfigTS struct {
	suite.Suite
}

func (suite *ConfigTS) TestLoadExampleConfig() {
	cfg, err := Load("../../configs/bladecenter.yaml")
	suite.Require().NoError(err)

	suite.Equal(uint32(1), cfg.Domain.ID)
	suite.Equal(64, cfg.Domain.UserAlarmLimit)
	suite.Equal([]uint32{2}, cfg.Domain.Peers)
	suite.Len(cfg.Handlers, 4)
	suite.Require().Len(cfg.Resources, 2)

	amb, ok := cfg.Profiles.Get("ambient-temp")
	suite.Require().True(ok)
	suite.Equal(model.ReadingAnalog, amb.ReadingType)
	suite.Equal(model.NumericFloat64, amb.NumericKind)
	suite.Require().Len(amb.RangeRules, 3)
	suite.Equal(model.StateUpperMajor, amb.RangeRules[1].State)
	suite.Equal(model.FloatReading(39.0), *amb.RangeRules[1].Min)
	st, ok := interp.MatchRange(amb.RangeRules, model.FloatReading(39.0))
	suite.True(ok)
	suite.Equal(model.StateUpperMajor, st)
	st, _ = interp.MatchRange(amb.RangeRules, model.FloatReading(38.5))
	suite.Equal(model.EventStateUnspecified, st)

	hs, ok := cfg.Profiles.Get("blade-hotswap")
	suite.Require().True(ok)
	suite.True(hs.HotSwap)
	r, ok := hs.LookupEventRule("0x0E00A000", true)
	suite.Require().True(ok)
	suite.Equal(model.HotSwapInsertionPending.Bit(), r.State)
	suite.Require().NotNil(r.AutoState)
	suite.Equal(model.HotSwapActive.Bit(), *r.AutoState)

	psu, ok := cfg.Profiles.Get("psu-status")
	suite.Require().True(ok)
	r, ok = psu.LookupEventRule("0x08216000", true)
	suite.Require().True(ok)
	suite.True(r.Failure)
	suite.Require().NotNil(r.Recovery)
	suite.Equal(model.State00, *r.Recovery)

	chassis := cfg.Resources[0]
	suite.True(chassis.Entry.Capabilities.Has(model.CapEventLog | model.CapRDR | model.CapSensor))
	suite.Equal(model.SeverityCritical, chassis.Entry.Severity)
	suite.Len(chassis.Instruments, 3)
	suite.Equal("mm0", chassis.Instruments[0].Binding.Handler)
	suite.True(chassis.Instruments[0].EventsEnabled)

	blade := cfg.Resources[1]
	suite.Require().NotNil(blade.HotSwap)
	suite.Equal(model.HotSwapNotPresent, blade.HotSwap.Initial)
	suite.True(blade.Entry.Capabilities.Has(model.CapManagedHotSwap | model.CapFRU))
}

func (suite *ConfigTS) TestParseErrors() {
	cases := map[string]string{
		"empty range rule": `
profiles:
  - name: t
    reading: analog
    numeric: float
    supported: upper-major
    ranges:
      - state: upper-major
`,
		"min above max": `
profiles:
  - name: t
    reading: analog
    numeric: int
    supported: upper-major
    ranges:
      - state: upper-major
        min: 10
        max: 5
`,
		"bad bound": `
profiles:
  - name: t
    reading: analog
    numeric: int
    supported: upper-major
    ranges:
      - state: upper-major
        min: 39.5
`,
		"shadowed rule": `
profiles:
  - name: t
    reading: analog
    numeric: int
    supported: upper-major|upper-crit
    ranges:
      - state: upper-major
        min: 10
      - state: upper-crit
        min: 20
        max: 30
`,
		"contradictory event rules": `
profiles:
  - name: t
    supported: state01|state02
    events:
      - code: "0x1"
        state: state01
      - code: "0x1"
        state: state02
`,
		"unsupported mask": `
profiles:
  - name: t
    supported: state01
    assertMask: state02
`,
		"auto on plain profile": `
profiles:
  - name: t
    supported: state01|state02
    events:
      - code: "0x1"
        state: state01
        auto: active
`,
		"unknown handler": `
profiles:
  - name: t
    supported: state01
resources:
  - id: 3
    instruments:
      - num: 1
        profile: t
        handler: nope
`,
		"reserved resource id": `
resources:
  - id: 0
`,
		"bad location": `
resources:
  - id: 4
    location: bogus
`,
		"unknown profile": `
resources:
  - id: 4
    instruments:
      - num: 1
        profile: missing
`,
	}
	for name, doc := range cases {
		_, err := Parse([]byte(doc))
		suite.Error(err, name)
	}
}

func (suite *ConfigTS) TestValidateKindMismatch() {
	bad := model.FloatReading(1)
	p := &model.InstrumentProfile{
		Name:        "k",
		ReadingType: model.ReadingAnalog,
		NumericKind: model.NumericInt64,
		RangeRules:  []model.RangeRule{{Min: &bad}},
	}
	suite.ErrorIs(Validate(p), ErrInvalidProfile)
}

func (suite *ConfigTS) TestOverlapSameStateAllowed() {
	lo, hi := model.IntReading(10), model.IntReading(20)
	p := &model.InstrumentProfile{
		Name:            "o",
		ReadingType:     model.ReadingAnalog,
		NumericKind:     model.NumericInt64,
		SupportedStates: model.StateUpperMajor,
		RangeRules: []model.RangeRule{
			{State: model.StateUpperMajor, Min: &lo},
			{State: model.StateUpperMajor, Min: &lo, Max: &hi},
		},
	}
	suite.NoError(Validate(p))
	_, err := NewSet(p, p)
	suite.Error(err, "duplicate names")
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTS))
}
