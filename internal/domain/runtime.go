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

package domain

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cray-HPE/hms-hpi/internal/backend"
	"github.com/Cray-HPE/hms-hpi/internal/hotswap"
	"github.com/Cray-HPE/hms-hpi/internal/hsm"
	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/sirupsen/logrus"
)

// Apply interprets one batch of samples and emits the resulting events in
// sample order.  Unreadable instruments keep their last state.
func (d *Domain) Apply(ctx context.Context, samples []backend.Sample) []model.Event {
	d.procMu.Lock()
	var events []model.Event
	for _, s := range samples {
		if s.Err != nil {
			d.Logger.WithFields(logrus.Fields{"instrument": s.Ref.Instrument.String(),
				"address": s.Ref.Address}).Warnf("Can't read instrument: %v", s.Err)
			continue
		}
		events = append(events, d.process(s.Ref, s.Input)...)
	}
	d.procMu.Unlock()

	d.emit(ctx, events)
	return events
}

func (d *Domain) emit(ctx context.Context, events []model.Event) {
	for _, ev := range events {
		if err := d.Emitter.Emit(ctx, ev); err != nil {
			d.Logger.Errorf("Can't deliver event %s: %v", ev.ID, err)
		}
	}
}

// process must be called with procMu held.
func (d *Domain) process(ref backend.Ref, in interp.Input) []model.Event {
	res, ok := d.resources[ref.Instrument.ResourceID]
	if !ok {
		d.Logger.Warnf("Sample for unknown resource %d dropped", ref.Instrument.ResourceID)
		return nil
	}
	if ref.HotSwap {
		if res.fru == nil {
			d.Logger.Warnf("Hot-swap sample for resource %d which is not a FRU", ref.Instrument.ResourceID)
			return nil
		}
		var rule *model.EventRule
		if in.IsEvent() {
			rule, _ = res.fru.profile.LookupEventRule(in.Code, in.Asserted)
		}
		result := d.HotSwap.Process(res.fru.profile, res.fru.rt, res.fruInstrument(), in)
		return d.commitHotSwap(res, result, rule)
	}

	inst, ok := res.instruments[ref.Instrument.Num]
	if !ok {
		d.Logger.Warnf("Sample for unknown instrument %s dropped", ref.Instrument.String())
		return nil
	}
	if res.fru != nil && res.fru.rt.State == model.HotSwapNotPresent {
		return nil
	}
	next, ev := d.Engine.Interpret(inst.profile, inst.state, in)
	inst.state = next
	if ev == nil {
		return nil
	}
	ev.Location = res.cfg.Entry.Location
	return []model.Event{*ev}
}

func (r *resource) fruInstrument() model.InstrumentState {
	return model.InstrumentState{
		Instrument:    model.InstrumentRef{ResourceID: r.cfg.Entry.ResourceID, Num: HotSwapInstrumentNum},
		State:         r.fru.rt.State.Bit(),
		Enabled:       true,
		EventsEnabled: r.fru.events,
	}
}

// commitHotSwap publishes a hot-swap result: the FRU's RPT entry, its RDR
// (emptied while the FRU is not present) and the persisted state.
func (d *Domain) commitHotSwap(res *resource, result hotswap.Result, rule *model.EventRule) []model.Event {
	if len(result.Transitions) == 0 {
		return nil
	}
	from := res.fru.rt.State
	res.fru.rt = result.Runtime
	to := res.fru.rt.State
	rid := res.cfg.Entry.ResourceID
	loc := res.cfg.Entry.Location

	_, err := d.rpt.Update(rid, func(e *model.ResourceEntry) bool {
		failed := e.Failed
		switch {
		case to == model.HotSwapNotPresent && rule != nil && rule.Failure:
			failed = true
		case to == model.HotSwapActive:
			failed = rule != nil && rule.Failure
		}
		changed := failed != e.Failed
		e.Failed = failed
		return changed
	})
	if err != nil {
		d.Logger.Errorf("Can't update RPT entry %d: %v", rid, err)
	}

	if from != to && (from == model.HotSwapNotPresent || to == model.HotSwapNotPresent) {
		entries := res.entries
		if to == model.HotSwapNotPresent {
			entries = nil
			for _, inst := range res.instruments {
				inst.state.State = model.EventStateUnspecified
			}
		}
		if s, serr := d.rdr(rid); serr == nil {
			if rerr := s.Replace(entries); rerr != nil {
				d.Logger.Errorf("Can't rebuild RDR of resource %d: %v", rid, rerr)
			}
		}
	}

	if d.DSP != nil && loc != "" {
		if serr := d.DSP.StoreHotSwapState(loc, res.fru.rt); serr != nil {
			d.Logger.Errorf("Can't persist hot-swap state of %s: %v", loc, serr)
		}
	}

	d.Logger.WithFields(logrus.Fields{"resource": rid, "location": loc,
		"from": from.String(), "to": to.String(), "transitions": len(result.Transitions)}).
		Info("Hot-swap state changed")

	var events []model.Event
	for _, ev := range result.Events() {
		ev.Location = loc
		events = append(events, *ev)
	}
	return events
}

// HotSwapState returns the current hot-swap state of a FRU resource.
func (d *Domain) HotSwapState(rid model.ResourceID) (model.HotSwapRuntime, error) {
	d.procMu.Lock()
	defer d.procMu.Unlock()
	res, ok := d.resources[rid]
	if !ok {
		return model.HotSwapRuntime{}, fmt.Errorf("%w: %d", ErrNoResource, rid)
	}
	if res.fru == nil {
		return model.HotSwapRuntime{}, fmt.Errorf("%w: %d", ErrNotHotSwap, rid)
	}
	return res.fru.rt, nil
}

// InstrumentState returns the runtime state of one instrument.
func (d *Domain) InstrumentState(ref model.InstrumentRef) (model.InstrumentState, error) {
	d.procMu.Lock()
	defer d.procMu.Unlock()
	res, ok := d.resources[ref.ResourceID]
	if !ok {
		return model.InstrumentState{}, fmt.Errorf("%w: %d", ErrNoResource, ref.ResourceID)
	}
	inst, ok := res.instruments[ref.Num]
	if !ok {
		return model.InstrumentState{}, fmt.Errorf("instrument %s: %w", ref.String(), ErrNotBound)
	}
	return inst.state, nil
}

// FindRef looks up the sampling reference of an instrument (or, with
// hotSwap set, of a FRU's hot-swap state).
func (d *Domain) FindRef(ref model.InstrumentRef, hotSwap bool) (string, backend.Ref, error) {
	for handler, refs := range d.refs {
		for _, r := range refs {
			if r.HotSwap == hotSwap && r.Instrument.ResourceID == ref.ResourceID &&
				(hotSwap || r.Instrument.Num == ref.Num) {
				return handler, r, nil
			}
		}
	}
	if _, ok := d.resources[ref.ResourceID]; !ok {
		return "", backend.Ref{}, fmt.Errorf("%w: %d", ErrNoResource, ref.ResourceID)
	}
	return "", backend.Ref{}, fmt.Errorf("instrument %s: %w", ref.String(), ErrNotBound)
}

// RequestHotSwap carries out an operator extract or insert action on a FRU.
// The FRU is reserved in HSM for the duration of the action unless the
// caller supplies a deputy key of its own reservation.
func (d *Domain) RequestHotSwap(ctx context.Context, rid model.ResourceID, action, deputyKey string) (model.HotSwapRuntime, error) {
	d.procMu.Lock()
	res, ok := d.resources[rid]
	if !ok {
		d.procMu.Unlock()
		return model.HotSwapRuntime{}, fmt.Errorf("%w: %d", ErrNoResource, rid)
	}
	if res.fru == nil {
		d.procMu.Unlock()
		return model.HotSwapRuntime{}, fmt.Errorf("%w: %d", ErrNotHotSwap, rid)
	}

	var request func(*model.InstrumentProfile, model.HotSwapRuntime, model.InstrumentState) (hotswap.Result, error)
	switch action {
	case "extract":
		request = d.HotSwap.RequestExtraction
	case "insert":
		request = d.HotSwap.RequestInsertion
	default:
		d.procMu.Unlock()
		return model.HotSwapRuntime{}, fmt.Errorf("%w: '%s'", ErrBadAction, action)
	}

	rsv, err := d.reserve(res.cfg.Entry.Location, deputyKey)
	if err != nil {
		d.procMu.Unlock()
		return model.HotSwapRuntime{}, err
	}
	defer d.release(rsv)

	result, err := request(res.fru.profile, res.fru.rt, res.fruInstrument())
	if err != nil {
		d.procMu.Unlock()
		return res.fru.rt, err
	}
	events := d.commitHotSwap(res, result, nil)
	rt := res.fru.rt
	d.procMu.Unlock()

	d.emit(ctx, events)
	return rt, nil
}

func (d *Domain) reserve(location, deputyKey string) ([]hsm.ReservationData, error) {
	if d.HSM == nil || location == "" {
		return nil, nil
	}
	list := []hsm.ReservationData{{XName: location, DeputyKey: deputyKey}}
	if deputyKey != "" {
		if err := d.HSM.CheckDeputyKeys(list); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrReservation, err)
		}
		return nil, nil
	}
	got, err := d.HSM.ReserveComponents(list)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrReservation, err)
	}
	for _, r := range got {
		if r.Error != nil {
			d.release(got)
			return nil, fmt.Errorf("%w: %s: %v", ErrReservation, r.XName, r.Error)
		}
	}
	return got, nil
}

func (d *Domain) release(rsv []hsm.ReservationData) {
	var owned []hsm.ReservationData
	for _, r := range rsv {
		if r.ReservationOwner {
			owned = append(owned, r)
		}
	}
	if len(owned) == 0 {
		return
	}
	if _, err := d.HSM.ReleaseComponents(owned); err != nil {
		d.Logger.Errorf("Can't release reservation of %s: %v", owned[0].XName, err)
	}
}

// IsBadRequest reports whether err was caused by the caller's input rather
// than by the service.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadAction) || errors.Is(err, hotswap.ErrInvalidRequest) ||
		errors.Is(err, ErrNotHotSwap)
}
