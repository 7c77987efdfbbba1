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

package interp

import (
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Input is one raw value from a backend: either an analog reading or a
// vendor event code with its direction.
type Input struct {
	Reading  *model.Reading
	Code     string
	Asserted bool
}

func AnalogInput(r model.Reading) Input {
	return Input{Reading: &r}
}

func EventInput(code string, asserted bool) Input {
	return Input{Code: code, Asserted: asserted}
}

func (in Input) IsEvent() bool { return in.Reading == nil }

var (
	inputsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpi_interp_inputs_total",
		Help: "Raw inputs interpreted, by input kind and whether a rule matched",
	}, []string{"kind", "result"})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpi_interp_transitions_total",
		Help: "State transitions by outcome (emitted, masked, disabled)",
	}, []string{"outcome"})
)

// Engine turns raw inputs into canonical instrument states and events.
// It holds no per-instrument state of its own.
type Engine struct {
	Logger *logrus.Logger
	Now    func() time.Time
}

func New(logger *logrus.Logger) *Engine {
	if logger == nil {
		logger = logrus.New()
	}
	return &Engine{Logger: logger, Now: time.Now}
}

// MatchRange returns the state of the first rule the reading satisfies.
func MatchRange(rules []model.RangeRule, r model.Reading) (model.EventState, bool) {
	for ix := range rules {
		if rangeMatches(&rules[ix], r) {
			return rules[ix].State, true
		}
	}
	return model.EventStateUnspecified, false
}

func rangeMatches(rr *model.RangeRule, r model.Reading) bool {
	if rr.Min == nil && rr.Max == nil && rr.Nominal == nil {
		return false
	}
	if rr.Min != nil {
		c, ok := r.Compare(*rr.Min)
		if !ok || c < 0 {
			return false
		}
	}
	if rr.Max != nil {
		c, ok := r.Compare(*rr.Max)
		if !ok || c > 0 {
			return false
		}
	}
	// Nominal only selects when it is the sole bound.
	if rr.Nominal != nil && rr.Min == nil && rr.Max == nil {
		c, ok := r.Compare(*rr.Nominal)
		if !ok || c != 0 {
			return false
		}
	}
	return true
}

// Interpret resolves in against the profile and returns the instrument's
// next state and the event describing the change, if one is due.
func (e *Engine) Interpret(p *model.InstrumentProfile, prev model.InstrumentState,
	in Input) (model.InstrumentState, *model.Event) {
	next := prev
	var rule *model.EventRule

	if in.IsEvent() {
		r, ok := p.LookupEventRule(in.Code, in.Asserted)
		if !ok {
			inputsTotal.WithLabelValues("event", "unmatched").Inc()
			e.Logger.WithFields(logrus.Fields{"instrument": prev.Instrument.String(),
				"profile": p.Name, "code": in.Code, "asserted": in.Asserted}).
				Debug("No event rule for code, ignoring")
			return prev, nil
		}
		inputsTotal.WithLabelValues("event", "matched").Inc()
		rule = r
		next.State = r.State
	} else {
		st, ok := MatchRange(p.RangeRules, *in.Reading)
		if ok {
			inputsTotal.WithLabelValues("analog", "matched").Inc()
		} else {
			inputsTotal.WithLabelValues("analog", "unmatched").Inc()
			e.Logger.WithFields(logrus.Fields{"instrument": prev.Instrument.String(),
				"profile": p.Name, "reading": in.Reading.String()}).
				Trace("Reading matched no range rule")
		}
		next.State = st
	}

	return next, e.Gate(p, prev, next.State, rule, model.EventSourceSensor)
}

// Gate applies the profile's masks and the instrument's enables to the
// change prev.State -> newState. A 0->1 bit counts only if it is in the
// assertion mask and a 1->0 bit only if it is in the de-assertion mask.
// At most one event describes the whole net change.
func (e *Engine) Gate(p *model.InstrumentProfile, prev model.InstrumentState,
	newState model.EventState, rule *model.EventRule, src model.EventSource) *model.Event {
	changed := prev.State ^ newState
	rising := changed & newState & p.AssertMask
	falling := changed & prev.State & p.DeassertMask
	if rising == 0 && falling == 0 {
		if changed != 0 {
			eventsTotal.WithLabelValues("masked").Inc()
		}
		return nil
	}
	if !prev.Enabled || !prev.EventsEnabled {
		eventsTotal.WithLabelValues("disabled").Inc()
		return nil
	}
	eventsTotal.WithLabelValues("emitted").Inc()

	ev := &model.Event{
		ID:          uuid.New().String(),
		Source:      src,
		Instrument:  prev.Instrument,
		Previous:    prev.State,
		State:       newState,
		Asserted:    rising != 0,
		ReadingType: p.ReadingType,
		Timestamp:   e.Now(),
	}
	if rule != nil {
		if rule.Recovery != nil {
			rs := *rule.Recovery
			ev.Recovery = &rs
		}
		ev.Failure = rule.Failure
		ev.FailureUnexpected = rule.FailureUnexpected
		ev.Description = rule.Description
	}
	return ev
}
