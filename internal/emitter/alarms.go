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
	"errors"
	"fmt"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/sirupsen/logrus"
)

// ErrAlarmTableFull is returned by an AlarmTable that is at its user alarm
// limit. The table records the overflow in its domain descriptor.
var ErrAlarmTableFull = errors.New("alarm table full")

// AlarmTable is the domain alarm table as seen by the alarm sink.
type AlarmTable interface {
	Alarms() []model.Alarm
	// AddAlarm assigns the alarm id and timestamp and stores the alarm.
	AddAlarm(a model.Alarm) (model.Alarm, error)
	RemoveAlarms(ids []model.AlarmID) error
}

// SeverityPolicy decides how severe the condition an event reports is.
type SeverityPolicy func(ev model.Event) model.Severity

const (
	critBits  = model.StateLowerCrit | model.StateUpperCrit
	majorBits = model.StateLowerMajor | model.StateUpperMajor
	minorBits = model.StateLowerMinor | model.StateUpperMinor
)

// DefaultSeverity ranks failures first, then the threshold bits an analog
// event newly set. Discrete, hot-swap and operator events only count
// through their failure flags since their states are not thresholds.
func DefaultSeverity(ev model.Event) model.Severity {
	switch {
	case ev.FailureUnexpected:
		return model.SeverityCritical
	case ev.Failure:
		return model.SeverityMajor
	}
	if ev.Source != model.EventSourceSensor && ev.Source != model.EventSourceUser {
		return model.SeverityInformational
	}
	if ev.ReadingType != model.ReadingAnalog {
		return model.SeverityInformational
	}
	set := ev.State &^ ev.Previous
	switch {
	case set&critBits != 0:
		return model.SeverityCritical
	case set&majorBits != 0:
		return model.SeverityMajor
	case set&minorBits != 0:
		return model.SeverityMinor
	}
	return model.SeverityInformational
}

// Resolves reports whether ev clears alarm a. An alarm with a recovery
// state clears when its instrument reaches exactly that state; one without
// clears once none of the states it was raised for remain.
func Resolves(a model.Alarm, ev model.Event) bool {
	if a.Instrument == nil || *a.Instrument != ev.Instrument {
		return false
	}
	if a.RecoveryState != nil {
		return *a.RecoveryState == ev.State
	}
	return !ev.Asserted && ev.State&a.State == 0
}

// AlarmSink maintains the domain alarm table from the event stream.
type AlarmSink struct {
	Table  AlarmTable
	Policy SeverityPolicy
	Logger *logrus.Logger
}

func NewAlarmSink(table AlarmTable, policy SeverityPolicy, logger *logrus.Logger) *AlarmSink {
	if policy == nil {
		policy = DefaultSeverity
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &AlarmSink{Table: table, Policy: policy, Logger: logger}
}

func (s *AlarmSink) Emit(ctx context.Context, ev model.Event) error {
	var resolved []model.AlarmID
	duplicate := false
	for _, a := range s.Table.Alarms() {
		if Resolves(a, ev) {
			resolved = append(resolved, a.AlarmID)
			continue
		}
		if a.Instrument != nil && *a.Instrument == ev.Instrument && a.State == ev.State {
			duplicate = true
		}
	}
	if len(resolved) > 0 {
		if err := s.Table.RemoveAlarms(resolved); err != nil {
			count("alarm", err)
			return fmt.Errorf("failed to resolve alarms %v: %w", resolved, err)
		}
		s.Logger.WithFields(logrus.Fields{"instrument": ev.Instrument.String(),
			"alarms": resolved}).Info("Alarms resolved")
	}

	sev := s.Policy(ev)
	if !ev.Asserted || duplicate || sev >= model.SeverityInformational {
		count("alarm", nil)
		return nil
	}
	ref := ev.Instrument
	a := model.Alarm{
		Severity:   sev,
		Timestamp:  ev.Timestamp,
		Instrument: &ref,
		Condition:  condition(ev),
		State:      ev.State,
	}
	if ev.Recovery != nil {
		rs := *ev.Recovery
		a.RecoveryState = &rs
	}
	added, err := s.Table.AddAlarm(a)
	if errors.Is(err, ErrAlarmTableFull) {
		s.Logger.Warnf("Alarm table full, dropping %s alarm for %s", sev, ref.String())
		count("alarm", err)
		return nil
	}
	count("alarm", err)
	if err != nil {
		return fmt.Errorf("failed to raise alarm for %s: %w", ref.String(), err)
	}
	s.Logger.WithFields(logrus.Fields{"alarm": added.AlarmID, "severity": sev.String(),
		"instrument": ref.String()}).Info("Alarm raised")
	return nil
}

func condition(ev model.Event) string {
	if ev.Description != "" {
		return ev.Description
	}
	return fmt.Sprintf("%s entered %s", ev.Instrument.String(), ev.StateString(ev.State))
}
