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

package backend

import (
	"context"
	"errors"
	"testing"

	base "github.com/Cray-HPE/hms-base/v2"
	"github.com/Cray-HPE/hms-hpi/internal/hsm"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type presenceHSM struct {
	hsm.HSMv2
	present map[string]bool
	err     error
}

func (p *presenceHSM) GetPresence(xnames []string) (map[string]hsm.ComponentPresence, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := map[string]hsm.ComponentPresence{}
	for _, x := range xnames {
		state := string(base.StateEmpty)
		if p.present[x] {
			state = "Ready"
		}
		out[x] = hsm.ComponentPresence{ID: x, State: state, Present: p.present[x]}
	}
	return out, nil
}

type Backend_TS struct {
	suite.Suite
}

func (suite *Backend_TS) TestConversions() {
	r, err := ParseReading(model.NumericFloat64, "+27.50 Centigrade")
	suite.Require().NoError(err)
	suite.Equal(model.FloatReading(27.5), r)

	r, err = ParseReading(model.NumericUint64, "4200 RPM")
	suite.Require().NoError(err)
	suite.Equal(model.UintReading(4200), r)

	r, err = ParseReading(model.NumericInt64, "-3")
	suite.Require().NoError(err)
	suite.Equal(model.IntReading(-3), r)

	_, err = ParseReading(model.NumericInt64, "39.5")
	suite.ErrorIs(err, ErrKindMismatch)

	_, err = ParseReading(model.NumericFloat64, "N/A")
	suite.ErrorIs(err, ErrNoValue)

	_, err = FloatReading(model.NumericUint64, -1)
	suite.ErrorIs(err, ErrKindMismatch)

	where, what := SplitAddress("x1/redfish/v1/Thermal#CPU0")
	suite.Equal("x1/redfish/v1/Thermal", where)
	suite.Equal("CPU0", what)
	where, what = SplitAddress(".1.3.6")
	suite.Equal(".1.3.6", where)
	suite.Equal("", what)

	n, err := ParamInt(map[string]string{"n": "7"}, "n", 1)
	suite.NoError(err)
	suite.Equal(7, n)
	n, err = ParamInt(nil, "n", 1)
	suite.NoError(err)
	suite.Equal(1, n)
	_, err = ParamInt(map[string]string{"n": "x"}, "n", 1)
	suite.Error(err)
}

func (suite *Backend_TS) TestSim() {
	s, err := NewSim("sim0", map[string]string{"fan1": "4200"}, Deps{})
	suite.Require().NoError(err)
	sim := s.(*Sim)

	fan := Ref{Instrument: model.InstrumentRef{ResourceID: 1, Num: 3}, Address: "fan1",
		Kind: model.NumericUint64}
	psu := Ref{Instrument: model.InstrumentRef{ResourceID: 1, Num: 2}, Address: "psu1",
		ReadingType: model.ReadingDiscrete}

	samples, err := sim.Sample(context.Background(), []Ref{fan, psu})
	suite.Require().NoError(err)
	suite.Require().Len(samples, 1)
	suite.Equal(model.UintReading(4200), *samples[0].Input.Reading)

	sim.SetEvent("psu1", "0x08200000", true)
	samples, _ = sim.Sample(context.Background(), []Ref{psu})
	suite.Require().Len(samples, 1)
	suite.Equal("0x08200000", samples[0].Input.Code)
	samples, _ = sim.Sample(context.Background(), []Ref{psu})
	suite.Len(samples, 0, "events are reported once")

	boom := errors.New("boom")
	sim.Fail("fan1", boom)
	samples, _ = sim.Sample(context.Background(), []Ref{fan})
	suite.Require().Len(samples, 1)
	suite.ErrorIs(samples[0].Err, boom)

	sim.Set("fan1", "900")
	samples, _ = sim.Sample(context.Background(), []Ref{fan})
	suite.Require().Len(samples, 1)
	suite.Equal(model.UintReading(900), *samples[0].Input.Reading)
	suite.NoError(sim.Close())
}

func (suite *Backend_TS) TestPresence() {
	_, err := NewPresence("presence", nil, Deps{})
	suite.Error(err, "no HSM")

	fake := &presenceHSM{present: map[string]bool{"x1000c0s0b0n0": false}}
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	s, err := NewPresence("presence", nil, Deps{HSM: fake, Logger: logger})
	suite.Require().NoError(err)

	blade := Ref{Instrument: model.InstrumentRef{ResourceID: 2}, HotSwap: true,
		Address: "x1000c0s0b0n0"}

	samples, err := s.Sample(context.Background(), []Ref{blade})
	suite.Require().NoError(err)
	suite.Require().Len(samples, 1)
	suite.Equal(DefaultPresenceCode, samples[0].Input.Code)
	suite.False(samples[0].Input.Asserted)

	samples, _ = s.Sample(context.Background(), []Ref{blade})
	suite.Len(samples, 0, "unchanged presence is not reported")

	fake.present["x1000c0s0b0n0"] = true
	samples, _ = s.Sample(context.Background(), []Ref{blade})
	suite.Require().Len(samples, 1)
	suite.True(samples[0].Input.Asserted)

	fake.err = errors.New("HSM down")
	_, err = s.Sample(context.Background(), []Ref{blade})
	suite.Error(err)
}

func TestBackendSuite(t *testing.T) {
	suite.Run(t, new(Backend_TS))
}
