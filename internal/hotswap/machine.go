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
	"errors"
	"fmt"

	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/sirupsen/logrus"
)

var ErrInvalidRequest = errors.New("hot-swap action not valid in current state")

// Transition is one recorded hot-swap state change. Event is nil when the
// masks or enables suppressed notification.
type Transition struct {
	From      model.HotSwapState `json:"from"`
	To        model.HotSwapState `json:"to"`
	Synthetic bool               `json:"synthetic"`
	Event     *model.Event       `json:"event,omitempty"`
}

type Result struct {
	Runtime     model.HotSwapRuntime
	Transitions []Transition
}

// Events returns the non-suppressed events in transition order.
func (r Result) Events() []*model.Event {
	var evs []*model.Event
	for _, t := range r.Transitions {
		if t.Event != nil {
			evs = append(evs, t.Event)
		}
	}
	return evs
}

var validEdges = map[model.HotSwapState][]model.HotSwapState{
	model.HotSwapNotPresent: {model.HotSwapInsertionPending, model.HotSwapActive,
		model.HotSwapInactive},
	model.HotSwapInsertionPending: {model.HotSwapActive, model.HotSwapInactive,
		model.HotSwapNotPresent},
	model.HotSwapActive: {model.HotSwapExtractionPending, model.HotSwapInactive,
		model.HotSwapNotPresent},
	model.HotSwapExtractionPending: {model.HotSwapNotPresent, model.HotSwapInactive,
		model.HotSwapActive},
	model.HotSwapInactive: {model.HotSwapInsertionPending, model.HotSwapActive,
		model.HotSwapNotPresent},
}

func ValidTransition(from, to model.HotSwapState) bool {
	for _, s := range validEdges[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Machine drives the hot-swap state of FRU resources from the same event
// rules that drive sensors. A rule's AutoState adds a second, synthetic
// transition in the same call.
type Machine struct {
	Engine *interp.Engine
	Logger *logrus.Logger
}

func New(engine *interp.Engine, logger *logrus.Logger) *Machine {
	if logger == nil {
		logger = logrus.New()
	}
	if engine == nil {
		engine = interp.New(logger)
	}
	return &Machine{Engine: engine, Logger: logger}
}

// Process resolves a raw hot-swap event for one resource. inst supplies
// the instrument reference and enable flags used for notification.
func (m *Machine) Process(p *model.InstrumentProfile, rt model.HotSwapRuntime,
	inst model.InstrumentState, in interp.Input) Result {
	res := Result{Runtime: rt}
	if !in.IsEvent() {
		m.Logger.Warnf("Hot-swap instrument %s given an analog reading, ignoring",
			inst.Instrument.String())
		return res
	}
	rule, ok := p.LookupEventRule(in.Code, in.Asserted)
	if !ok {
		m.Logger.WithFields(logrus.Fields{"resource": rt.ResourceID, "code": in.Code}).
			Debug("No hot-swap rule for code, ignoring")
		return res
	}
	target, ok := model.HotSwapStateFromBits(rule.State)
	if !ok {
		m.Logger.Errorf("Hot-swap rule %s of profile %s has no single hot-swap target (%s)",
			rule.Code, p.Name, rule.State)
		return res
	}
	m.apply(&res, p, inst, target, rule, model.EventSourceHotSwap, false)

	if rule.AutoState != nil {
		auto, ok := model.HotSwapStateFromBits(*rule.AutoState)
		if !ok {
			m.Logger.Errorf("Hot-swap rule %s of profile %s has an invalid auto state (%s)",
				rule.Code, p.Name, *rule.AutoState)
			return res
		}
		res.Runtime.AutoTarget = &auto
		m.apply(&res, p, inst, auto, rule, model.EventSourceHotSwap, true)
		res.Runtime.AutoTarget = nil
	}
	return res
}

func (m *Machine) apply(res *Result, p *model.InstrumentProfile, inst model.InstrumentState,
	to model.HotSwapState, rule *model.EventRule, src model.EventSource, synthetic bool) {
	from := res.Runtime.State
	if from == to {
		return
	}
	if !ValidTransition(from, to) {
		m.Logger.WithFields(logrus.Fields{"resource": res.Runtime.ResourceID,
			"from": from.String(), "to": to.String()}).
			Warn("Hardware reported an out-of-cycle hot-swap transition")
	}
	prev := inst
	prev.State = from.Bit()
	ev := m.Engine.Gate(p, prev, to.Bit(), rule, src)

	res.Runtime.Previous = from
	res.Runtime.State = to
	res.Transitions = append(res.Transitions, Transition{
		From: from, To: to, Synthetic: synthetic, Event: ev,
	})
}

func (m *Machine) request(p *model.InstrumentProfile, rt model.HotSwapRuntime,
	inst model.InstrumentState, from, to model.HotSwapState) (Result, error) {
	res := Result{Runtime: rt}
	if rt.State != from {
		return res, fmt.Errorf("%w: resource %d is %s, need %s", ErrInvalidRequest,
			rt.ResourceID, rt.State, from)
	}
	m.apply(&res, p, inst, to, nil, model.EventSourceOperator, false)
	return res, nil
}

// RequestExtraction is an operator asking to pull an active FRU.
func (m *Machine) RequestExtraction(p *model.InstrumentProfile, rt model.HotSwapRuntime,
	inst model.InstrumentState) (Result, error) {
	return m.request(p, rt, inst, model.HotSwapActive, model.HotSwapExtractionPending)
}

// RequestInsertion is an operator asking to bring an inactive FRU back.
func (m *Machine) RequestInsertion(p *model.InstrumentProfile, rt model.HotSwapRuntime,
	inst model.InstrumentState) (Result, error) {
	return m.request(p, rt, inst, model.HotSwapInactive, model.HotSwapInsertionPending)
}
