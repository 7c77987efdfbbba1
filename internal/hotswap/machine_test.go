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

package hotswap

import (
	"testing"

	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type MachineTS struct {
	suite.Suite
	m *Machine
}

func hsp(s model.HotSwapState) *model.EventState {
	b := s.Bit()
	return &b
}

func bladeProfile() *model.InstrumentProfile {
	return &model.InstrumentProfile{
		Name:            "blade-hotswap",
		ReadingType:     model.ReadingDiscrete,
		HotSwap:         true,
		SupportedStates: model.HotSwapStateBits,
		AssertMask:      model.HotSwapStateBits,
		DeassertMask:    model.HotSwapStateBits,
		EventRules: []model.EventRule{
			{Code: "0x0E00A000", Asserted: true, State: model.HotSwapInsertionPending.Bit(),
				AutoState: hsp(model.HotSwapActive), Description: "blade installed"},
			{Code: "0x0E00A000", Asserted: false, State: model.HotSwapNotPresent.Bit(),
				Failure: true, FailureUnexpected: true, Description: "blade removed"},
			{Code: "0x0E008000", Asserted: true, State: model.HotSwapInactive.Bit(),
				Description: "blade powered off"},
			{Code: "0x0E00FFFF", Asserted: true, State: model.StateUpperCrit | model.State00},
		},
	}
}

func inst() model.InstrumentState {
	return model.InstrumentState{
		Instrument:    model.InstrumentRef{ResourceID: 12, Num: 0},
		Enabled:       true,
		EventsEnabled: true,
	}
}

func (suite *MachineTS) SetupTest() {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	suite.m = New(interp.New(logger), logger)
}

func (suite *MachineTS) TestInsertionAutoActivates() {
	rt := model.HotSwapRuntime{ResourceID: 12, State: model.HotSwapNotPresent}
	res := suite.m.Process(bladeProfile(), rt, inst(), interp.EventInput("0x0E00A000", true))

	suite.Require().Len(res.Transitions, 2)
	t0, t1 := res.Transitions[0], res.Transitions[1]
	suite.Equal(model.HotSwapNotPresent, t0.From)
	suite.Equal(model.HotSwapInsertionPending, t0.To)
	suite.False(t0.Synthetic)
	suite.Equal(model.HotSwapInsertionPending, t1.From)
	suite.Equal(model.HotSwapActive, t1.To)
	suite.True(t1.Synthetic)

	suite.Equal(model.HotSwapActive, res.Runtime.State)
	suite.Equal(model.HotSwapInsertionPending, res.Runtime.Previous)
	suite.Nil(res.Runtime.AutoTarget)

	evs := res.Events()
	suite.Require().Len(evs, 2)
	suite.Equal(model.HotSwapNotPresent.Bit(), evs[0].Previous)
	suite.Equal(model.HotSwapInsertionPending.Bit(), evs[0].State)
	suite.Equal(model.HotSwapActive.Bit(), evs[1].State)
	suite.Equal(model.EventSourceHotSwap, evs[1].Source)
}

func (suite *MachineTS) TestAutoTransitionCarriesRecovery() {
	p := bladeProfile()
	p.EventRules[0].Recovery = hsp(model.HotSwapActive)
	rt := model.HotSwapRuntime{ResourceID: 12, State: model.HotSwapNotPresent}

	res := suite.m.Process(p, rt, inst(), interp.EventInput("0x0E00A000", true))
	evs := res.Events()
	suite.Require().Len(evs, 2)
	for ix, ev := range evs {
		suite.Require().NotNil(ev.Recovery, "event %d", ix)
		suite.Equal(model.HotSwapActive.Bit(), *ev.Recovery, "event %d", ix)
		suite.False(ev.Failure)
	}
	suite.Equal(model.HotSwapInsertionPending.Bit(), evs[0].State)
	suite.Equal(model.HotSwapActive.Bit(), evs[1].State)

	// With only insertion-pending in the mask the synthetic step is silent.
	p.AssertMask = model.HotSwapInsertionPending.Bit()
	p.DeassertMask = 0
	res = suite.m.Process(p, rt, inst(), interp.EventInput("0x0E00A000", true))
	suite.Require().Len(res.Transitions, 2)
	evs = res.Events()
	suite.Require().Len(evs, 1)
	suite.Equal(model.HotSwapInsertionPending.Bit(), evs[0].State)
	suite.Require().NotNil(evs[0].Recovery)
	suite.Equal(model.HotSwapActive.Bit(), *evs[0].Recovery)
	suite.Equal(model.HotSwapActive, res.Runtime.State)
}

func (suite *MachineTS) TestMaskGatesEachTransition() {
	p := bladeProfile()
	// Only the arrival in active is announced.
	p.AssertMask = model.HotSwapActive.Bit()
	p.DeassertMask = 0
	rt := model.HotSwapRuntime{ResourceID: 12, State: model.HotSwapNotPresent}
	res := suite.m.Process(p, rt, inst(), interp.EventInput("0x0E00A000", true))
	suite.Require().Len(res.Transitions, 2)
	suite.Nil(res.Transitions[0].Event)
	suite.NotNil(res.Transitions[1].Event)
	suite.Equal(model.HotSwapActive, res.Runtime.State)
}

func (suite *MachineTS) TestDisabledRecordsTransitions() {
	in := inst()
	in.EventsEnabled = false
	rt := model.HotSwapRuntime{ResourceID: 12, State: model.HotSwapNotPresent}
	res := suite.m.Process(bladeProfile(), rt, in, interp.EventInput("0x0E00A000", true))
	suite.Len(res.Transitions, 2)
	suite.Empty(res.Events())
	suite.Equal(model.HotSwapActive, res.Runtime.State)
}

func (suite *MachineTS) TestSurpriseRemovalKeepsFailure() {
	rt := model.HotSwapRuntime{ResourceID: 12, State: model.HotSwapActive}
	res := suite.m.Process(bladeProfile(), rt, inst(), interp.EventInput("0x0E00A000", false))
	suite.Require().Len(res.Transitions, 1)
	ev := res.Transitions[0].Event
	suite.Require().NotNil(ev)
	suite.True(ev.Failure)
	suite.True(ev.FailureUnexpected)
	suite.Equal(model.HotSwapNotPresent, res.Runtime.State)
}

func (suite *MachineTS) TestUnknownCodeAndSameState() {
	rt := model.HotSwapRuntime{ResourceID: 12, State: model.HotSwapActive}
	res := suite.m.Process(bladeProfile(), rt, inst(), interp.EventInput("0xFFFF", true))
	suite.Empty(res.Transitions)
	suite.Equal(rt, res.Runtime)

	rt.State = model.HotSwapInactive
	res = suite.m.Process(bladeProfile(), rt, inst(), interp.EventInput("0x0E008000", true))
	suite.Empty(res.Transitions, "already inactive")

	res = suite.m.Process(bladeProfile(), rt, inst(), interp.EventInput("0x0E00FFFF", true))
	suite.Empty(res.Transitions, "multi-bit target is rejected")

	res = suite.m.Process(bladeProfile(), rt, inst(), interp.AnalogInput(model.IntReading(1)))
	suite.Empty(res.Transitions)
}

func (suite *MachineTS) TestOperatorRequests() {
	p := bladeProfile()
	rt := model.HotSwapRuntime{ResourceID: 12, State: model.HotSwapActive}
	res, err := suite.m.RequestExtraction(p, rt, inst())
	suite.Require().NoError(err)
	suite.Equal(model.HotSwapExtractionPending, res.Runtime.State)
	evs := res.Events()
	suite.Require().Len(evs, 1)
	suite.Equal(model.EventSourceOperator, evs[0].Source)
	suite.False(evs[0].Failure)

	_, err = suite.m.RequestInsertion(p, rt, inst())
	suite.ErrorIs(err, ErrInvalidRequest)

	rt.State = model.HotSwapInactive
	res, err = suite.m.RequestInsertion(p, rt, inst())
	suite.Require().NoError(err)
	suite.Equal(model.HotSwapInsertionPending, res.Runtime.State)
}

func (suite *MachineTS) TestValidTransitions() {
	suite.True(ValidTransition(model.HotSwapNotPresent, model.HotSwapInsertionPending))
	suite.True(ValidTransition(model.HotSwapNotPresent, model.HotSwapActive))
	suite.True(ValidTransition(model.HotSwapActive, model.HotSwapInactive))
	suite.True(ValidTransition(model.HotSwapExtractionPending, model.HotSwapNotPresent))
	suite.False(ValidTransition(model.HotSwapInsertionPending, model.HotSwapExtractionPending))
	suite.False(ValidTransition(model.HotSwapActive, model.HotSwapInsertionPending))
}

func TestMachineSuite(t *testing.T) {
	suite.Run(t, new(MachineTS))
}
