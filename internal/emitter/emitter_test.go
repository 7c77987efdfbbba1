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

package emitter

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

type memAlarms struct {
	alarms []model.Alarm
	nextID model.AlarmID
	limit  int
	over   bool
}

func (m *memAlarms) Alarms() []model.Alarm { return m.alarms }

func (m *memAlarms) AddAlarm(a model.Alarm) (model.Alarm, error) {
	if m.limit > 0 && len(m.alarms) >= m.limit {
		m.over = true
		return a, ErrAlarmTableFull
	}
	m.nextID++
	a.AlarmID = m.nextID
	m.alarms = append(m.alarms, a)
	return a, nil
}

func (m *memAlarms) RemoveAlarms(ids []model.AlarmID) error {
	var keep []model.Alarm
	for _, a := range m.alarms {
		drop := false
		for _, id := range ids {
			if a.AlarmID == id {
				drop = true
			}
		}
		if !drop {
			keep = append(keep, a)
		}
	}
	m.alarms = keep
	return nil
}

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	if f.err != nil {
		return f.err
	}
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return nil
}

type EmitterTS struct {
	suite.Suite
	logger *logrus.Logger
	ctx    context.Context
}

func (suite *EmitterTS) SetupTest() {
	suite.logger = logrus.New()
	suite.logger.SetLevel(logrus.PanicLevel)
	suite.ctx = context.Background()
}

var inlet = model.InstrumentRef{ResourceID: 1, Num: 1}

func sensorEvent(prev, state model.EventState, asserted bool) model.Event {
	return model.Event{
		ID:         "e",
		Source:     model.EventSourceSensor,
		Instrument: inlet,
		Previous:   prev,
		State:      state,
		Asserted:   asserted,
		Timestamp:  time.Unix(1700000000, 0),
	}
}

func (suite *EmitterTS) TestDefaultSeverity() {
	ev := sensorEvent(0, model.StateUpperMajor, true)
	suite.Equal(model.SeverityMajor, DefaultSeverity(ev))
	ev.State = model.StateUpperMajor | model.StateUpperCrit
	suite.Equal(model.SeverityCritical, DefaultSeverity(ev))
	ev.Previous = model.StateUpperCrit
	ev.State = model.StateUpperCrit | model.StateUpperMinor
	suite.Equal(model.SeverityMinor, DefaultSeverity(ev), "only newly set bits count")
	ev.Failure = true
	suite.Equal(model.SeverityMajor, DefaultSeverity(ev))
	ev.FailureUnexpected = true
	suite.Equal(model.SeverityCritical, DefaultSeverity(ev))

	hs := model.Event{Source: model.EventSourceHotSwap, State: model.HotSwapActive.Bit(), Asserted: true}
	suite.Equal(model.SeverityInformational, DefaultSeverity(hs))
}

func (suite *EmitterTS) TestDiscreteStatesAreNotThresholds() {
	// state01, state02 and state05 share bits with lower-major, lower-crit
	// and upper-crit.
	for _, st := range []model.EventState{model.State01, model.State02, model.State03,
		model.State05} {
		ev := sensorEvent(model.State00, st, true)
		ev.ReadingType = model.ReadingDiscrete
		suite.Equal(model.SeverityInformational, DefaultSeverity(ev), st.Discrete())
	}

	lost := sensorEvent(model.State00, model.State01, true)
	lost.ReadingType = model.ReadingDiscrete
	lost.Description = "Power supply input lost"
	tbl := &memAlarms{}
	sink := NewAlarmSink(tbl, nil, suite.logger)
	suite.Require().NoError(sink.Emit(suite.ctx, lost))
	suite.Empty(tbl.alarms)

	lost.Failure = true
	suite.Equal(model.SeverityMajor, DefaultSeverity(lost))
}

func (suite *EmitterTS) TestConditionNamesStates() {
	ev := sensorEvent(0, model.State02, true)
	ev.ReadingType = model.ReadingDiscrete
	suite.Equal("1/1 entered state02", condition(ev))

	ev = sensorEvent(0, model.StateUpperCrit, true)
	suite.Equal("1/1 entered upper-crit", condition(ev))

	ev.Source = model.EventSourceHotSwap
	ev.State = model.HotSwapInsertionPending.Bit()
	suite.Equal("1/1 entered insertion-pending", condition(ev))
}

func (suite *EmitterTS) TestRaiseAndRecover() {
	tbl := &memAlarms{}
	sink := NewAlarmSink(tbl, nil, suite.logger)

	rec := model.State00
	ev := sensorEvent(model.State00, model.State02, true)
	ev.Failure = true
	ev.Recovery = &rec
	ev.Description = "Power supply failed"
	suite.Require().NoError(sink.Emit(suite.ctx, ev))
	suite.Require().Len(tbl.alarms, 1)
	a := tbl.alarms[0]
	suite.Equal(model.SeverityMajor, a.Severity)
	suite.Equal("Power supply failed", a.Condition)
	suite.Equal(inlet, *a.Instrument)
	suite.Require().NotNil(a.RecoveryState)
	suite.Equal(model.State00, *a.RecoveryState)

	// Same condition again does not stack.
	suite.Require().NoError(sink.Emit(suite.ctx, ev))
	suite.Len(tbl.alarms, 1)

	back := sensorEvent(model.State02, model.State00, false)
	suite.Require().NoError(sink.Emit(suite.ctx, back))
	suite.Empty(tbl.alarms)
}

func (suite *EmitterTS) TestThresholdClearsWithoutRecoveryState() {
	tbl := &memAlarms{}
	sink := NewAlarmSink(tbl, nil, suite.logger)
	suite.Require().NoError(sink.Emit(suite.ctx, sensorEvent(0, model.StateUpperMajor, true)))
	suite.Require().Len(tbl.alarms, 1)

	other := sensorEvent(model.StateUpperMajor, 0, false)
	other.Instrument.Num = 2
	suite.Require().NoError(sink.Emit(suite.ctx, other))
	suite.Len(tbl.alarms, 1, "other instrument")

	suite.Require().NoError(sink.Emit(suite.ctx, sensorEvent(model.StateUpperMajor, 0, false)))
	suite.Empty(tbl.alarms)
}

func (suite *EmitterTS) TestInformationalRaisesNothing() {
	tbl := &memAlarms{}
	sink := NewAlarmSink(tbl, nil, suite.logger)
	suite.Require().NoError(sink.Emit(suite.ctx, sensorEvent(0, model.State08, true)))
	suite.Empty(tbl.alarms)
}

func (suite *EmitterTS) TestOverflow() {
	tbl := &memAlarms{limit: 1}
	sink := NewAlarmSink(tbl, nil, suite.logger)
	suite.Require().NoError(sink.Emit(suite.ctx, sensorEvent(0, model.StateUpperMajor, true)))
	ev := sensorEvent(0, model.StateLowerCrit, true)
	ev.Instrument.Num = 9
	suite.NoError(sink.Emit(suite.ctx, ev))
	suite.Len(tbl.alarms, 1)
	suite.True(tbl.over)
}

func (suite *EmitterTS) TestNATSSubjectAndPayload() {
	pub := &fakePublisher{}
	n := NewNATSEmitter(pub, "", suite.logger)
	ev := sensorEvent(0, model.StateUpperCrit, true)
	suite.Require().NoError(n.Emit(suite.ctx, ev))
	suite.Equal([]string{"hpi.events.1"}, pub.subjects)

	var got model.Event
	suite.Require().NoError(json.Unmarshal(pub.payloads[0], &got))
	suite.Equal(ev.State, got.State)
	suite.Equal(ev.Instrument, got.Instrument)

	pub.err = errors.New("no responders")
	suite.Error(n.Emit(suite.ctx, ev))
}

func (suite *EmitterTS) TestMultiDeliversPastFailures() {
	var seen int
	boom := errors.New("boom")
	m := Multi{
		EmitterFunc(func(context.Context, model.Event) error { return boom }),
		NewLogEmitter(suite.logger),
		EmitterFunc(func(context.Context, model.Event) error { seen++; return nil }),
	}
	err := m.Emit(suite.ctx, sensorEvent(0, model.StateUpperMinor, true))
	suite.ErrorIs(err, boom)
	suite.Equal(1, seen)
}

func TestEmitterSuite(t *testing.T) {
	suite.Run(t, new(EmitterTS))
}
