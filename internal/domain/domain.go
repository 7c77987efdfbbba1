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
	"sync"
	"sync/atomic"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/backend"
	"github.com/Cray-HPE/hms-hpi/internal/emitter"
	"github.com/Cray-HPE/hms-hpi/internal/hotswap"
	"github.com/Cray-HPE/hms-hpi/internal/hsm"
	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/Cray-HPE/hms-hpi/internal/profile"
	"github.com/Cray-HPE/hms-hpi/internal/snapshot"
	"github.com/Cray-HPE/hms-hpi/internal/storage"
	"github.com/Cray-HPE/hms-hpi/internal/tablestore"
	"github.com/sirupsen/logrus"
)

// HotSwapInstrumentNum is the instrument number hot-swap events of a FRU
// are reported under.
const HotSwapInstrumentNum uint32 = 0xFFFFFFFF

var (
	ErrNoResource  = errors.New("no such resource")
	ErrNoAlarm     = errors.New("no such alarm")
	ErrNotHotSwap  = errors.New("resource is not hot-swappable")
	ErrBadAction   = errors.New("unknown hot-swap action")
	ErrReservation = errors.New("component reservation failed")
	ErrNotBound    = errors.New("instrument is not bound to handler")
)

type rdrMap map[model.ResourceID]*tablestore.Store[model.InstrumentEntry]

type instrument struct {
	cfg     profile.InstrumentConfig
	profile *model.InstrumentProfile
	state   model.InstrumentState
}

type fru struct {
	profile *model.InstrumentProfile
	binding profile.Binding
	rt      model.HotSwapRuntime
	events  bool
}

type resource struct {
	cfg         profile.ResourceConfig
	entries     []model.InstrumentEntry
	instruments map[uint32]*instrument
	fru         *fru
}

// Options are the collaborators of a Domain.  All are optional.
type Options struct {
	Logger  *logrus.Logger
	DSP     storage.StorageProvider
	HSM     hsm.HSMProvider
	Emitter emitter.Emitter
}

// Domain holds the RPT, DRT and DAT of one management domain and the
// runtime state of its instruments.  Tables are read without locks through
// the snapshot.Source methods; all processing of raw input is serialized.
type Domain struct {
	ID      uint32
	Tag     string
	Logger  *logrus.Logger
	DSP     storage.StorageProvider
	HSM     hsm.HSMProvider
	Emitter emitter.Emitter

	Profiles *profile.Set
	Reader   *snapshot.Reader
	Engine   *interp.Engine
	HotSwap  *hotswap.Machine

	drt  *tablestore.Store[model.DrtEntry]
	rpt  *tablestore.Store[model.ResourceEntry]
	dat  *tablestore.Store[model.Alarm]
	rdrs atomic.Pointer[rdrMap]

	alarmMu    sync.Mutex
	nextAlarm  model.AlarmID
	alarmLimit atomic.Int64
	overflow   atomic.Bool

	procMu    sync.Mutex
	resources map[model.ResourceID]*resource
	refs      map[string][]backend.Ref
}

// New builds a domain from its configuration.  Alarms and hot-swap states
// persisted by an earlier instance are restored from DSP.
func New(cfg *profile.Config, opts Options) (*Domain, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logrus.New()
	}
	d := &Domain{
		ID:        cfg.Domain.ID,
		Tag:       cfg.Domain.Tag,
		Logger:    logger,
		DSP:       opts.DSP,
		HSM:       opts.HSM,
		Emitter:   opts.Emitter,
		Profiles:  cfg.Profiles,
		drt:       tablestore.New(func(e model.DrtEntry) model.EntryID { return e.EntryID }),
		rpt:       tablestore.New(func(e model.ResourceEntry) model.EntryID { return e.ResourceID }),
		dat:       tablestore.New(func(a model.Alarm) model.EntryID { return a.AlarmID }),
		nextAlarm: 1,
		resources: map[model.ResourceID]*resource{},
		refs:      map[string][]backend.Ref{},
	}
	d.Engine = interp.New(logger)
	d.HotSwap = hotswap.New(d.Engine, logger)
	d.Reader = snapshot.NewReader(d, logger)
	d.alarmLimit.Store(int64(cfg.Domain.UserAlarmLimit))
	if d.Emitter == nil {
		d.Emitter = emitter.NewLogEmitter(logger)
	}

	var drt []model.DrtEntry
	for ix, peer := range cfg.Domain.Peers {
		drt = append(drt, model.DrtEntry{EntryID: model.EntryID(ix + 1), DomainID: peer, IsPeer: true})
	}
	if err := d.drt.Replace(drt); err != nil {
		return nil, fmt.Errorf("building DRT: %w", err)
	}

	rdrs := rdrMap{}
	var rpt []model.ResourceEntry
	for _, rc := range cfg.Resources {
		res, err := d.buildResource(rc)
		if err != nil {
			return nil, err
		}
		d.resources[rc.Entry.ResourceID] = res
		store := tablestore.New(func(e model.InstrumentEntry) model.EntryID { return e.RecordID })
		entries := res.entries
		if res.fru != nil && res.fru.rt.State == model.HotSwapNotPresent {
			entries = nil
		}
		if err := store.Replace(entries); err != nil {
			return nil, fmt.Errorf("building RDR of resource %d: %w", rc.Entry.ResourceID, err)
		}
		rdrs[rc.Entry.ResourceID] = store
		rpt = append(rpt, rc.Entry)
	}
	d.rdrs.Store(&rdrs)
	if err := d.rpt.Replace(rpt); err != nil {
		return nil, fmt.Errorf("building RPT: %w", err)
	}

	d.restoreAlarms()
	return d, nil
}

func (d *Domain) buildResource(rc profile.ResourceConfig) (*resource, error) {
	rid := rc.Entry.ResourceID
	res := &resource{cfg: rc, instruments: map[uint32]*instrument{}}
	// Hot-swap state is sampled ahead of the FRU's instruments.
	if rc.HotSwap != nil {
		p, _ := d.Profiles.Get(rc.HotSwap.Profile)
		f := &fru{profile: p, binding: rc.HotSwap.Binding, events: true,
			rt: model.HotSwapRuntime{ResourceID: rid, State: rc.HotSwap.Initial,
				Previous: rc.HotSwap.Initial}}
		if d.DSP != nil && rc.Entry.Location != "" {
			saved, err := d.DSP.GetHotSwapState(rc.Entry.Location)
			if err == nil {
				saved.ResourceID = rid
				saved.AutoTarget = nil
				f.rt = saved
				d.Logger.Infof("Restored hot-swap state of %s: %s", rc.Entry.Location, saved.State)
			} else if !errors.Is(err, storage.ErrNotExist) {
				d.Logger.Warnf("Can't restore hot-swap state of %s: %v", rc.Entry.Location, err)
			}
		}
		res.fru = f
		if f.binding.Handler != "" {
			d.refs[f.binding.Handler] = append(d.refs[f.binding.Handler], backend.Ref{
				Instrument:  model.InstrumentRef{ResourceID: rid, Num: HotSwapInstrumentNum},
				HotSwap:     true,
				Location:    rc.Entry.Location,
				Address:     f.binding.Address,
				ReadingType: model.ReadingDiscrete,
			})
		}
	}
	for _, ic := range rc.Instruments {
		res.entries = append(res.entries, ic.Entry)
		if ic.Entry.Profile == "" {
			continue
		}
		p, _ := d.Profiles.Get(ic.Entry.Profile)
		ref := model.InstrumentRef{ResourceID: rid, Num: ic.Entry.Num}
		res.instruments[ic.Entry.Num] = &instrument{
			cfg:     ic,
			profile: p,
			state: model.InstrumentState{Instrument: ref, Enabled: ic.Enabled,
				EventsEnabled: ic.EventsEnabled},
		}
		if ic.Binding.Handler != "" {
			d.refs[ic.Binding.Handler] = append(d.refs[ic.Binding.Handler], backend.Ref{
				Instrument:  ref,
				Location:    rc.Entry.Location,
				Address:     ic.Binding.Address,
				ReadingType: p.ReadingType,
				Kind:        p.NumericKind,
			})
		}
	}

	return res, nil
}

func (d *Domain) restoreAlarms() {
	if d.DSP == nil {
		return
	}
	alarms, err := d.DSP.GetAllAlarms(d.ID)
	if err != nil {
		d.Logger.Warnf("Can't restore alarms of domain %d: %v", d.ID, err)
		return
	}
	if len(alarms) == 0 {
		return
	}
	for _, a := range alarms {
		if a.AlarmID >= d.nextAlarm {
			d.nextAlarm = a.AlarmID + 1
		}
	}
	if err := d.dat.Replace(alarms); err != nil {
		d.Logger.Errorf("Can't restore alarms of domain %d: %v", d.ID, err)
		return
	}
	d.Logger.Infof("Restored %d alarms of domain %d", len(alarms), d.ID)
}

// Refs returns the instruments each handler samples, by handler name.
func (d *Domain) Refs() map[string][]backend.Ref {
	return d.refs
}

////// snapshot.Source //////

func (d *Domain) DomainInfo(ctx context.Context) (model.DomainInfo, error) {
	di := model.DomainInfo{
		DomainID:          d.ID,
		Tag:               d.Tag,
		DatUserAlarmLimit: int(d.alarmLimit.Load()),
		DatOverflow:       d.overflow.Load(),
	}
	di.RptUpdateCount, di.RptUpdateTimestamp = d.rpt.Counter()
	di.DrtUpdateCount, di.DrtUpdateTimestamp = d.drt.Counter()
	di.DatUpdateCount, di.DatUpdateTimestamp = d.dat.Counter()
	for _, a := range d.dat.Entries() {
		di.ActiveAlarms++
		switch a.Severity {
		case model.SeverityCritical:
			di.CriticalAlarms++
		case model.SeverityMajor:
			di.MajorAlarms++
		case model.SeverityMinor:
			di.MinorAlarms++
		}
	}
	return di, nil
}

func (d *Domain) DrtEntry(ctx context.Context, cursor model.EntryID) (model.DrtEntry, model.EntryID, error) {
	return d.drt.Next(cursor)
}

func (d *Domain) RptEntry(ctx context.Context, cursor model.EntryID) (model.ResourceEntry, model.EntryID, error) {
	return d.rpt.Next(cursor)
}

func (d *Domain) rdr(rid model.ResourceID) (*tablestore.Store[model.InstrumentEntry], error) {
	s, ok := (*d.rdrs.Load())[rid]
	if !ok {
		return nil, fmt.Errorf("resource %d: %w", rid, tablestore.ErrNotPresent)
	}
	return s, nil
}

func (d *Domain) RdrEntry(ctx context.Context, rid model.ResourceID, cursor model.EntryID) (model.InstrumentEntry, model.EntryID, error) {
	s, err := d.rdr(rid)
	if err != nil {
		return model.InstrumentEntry{}, model.LastEntry, err
	}
	return s.Next(cursor)
}

func (d *Domain) RdrUpdateCount(ctx context.Context, rid model.ResourceID) (uint32, error) {
	s, err := d.rdr(rid)
	if err != nil {
		return 0, err
	}
	c, _ := s.Counter()
	return c, nil
}

func (d *Domain) AlarmEntry(ctx context.Context, cursor model.EntryID) (model.Alarm, model.EntryID, error) {
	return d.dat.Next(cursor)
}

////// emitter.AlarmTable //////

func (d *Domain) Alarms() []model.Alarm {
	return d.dat.Entries()
}

func (d *Domain) AddAlarm(a model.Alarm) (model.Alarm, error) {
	d.alarmMu.Lock()
	defer d.alarmMu.Unlock()

	if limit := d.alarmLimit.Load(); limit > 0 && int64(d.dat.Len()) >= limit {
		if !d.overflow.Swap(true) {
			d.Logger.Warnf("Alarm table of domain %d overflowed at %d alarms", d.ID, limit)
		}
		return a, emitter.ErrAlarmTableFull
	}
	a.AlarmID = d.nextAlarm
	d.nextAlarm++
	if d.nextAlarm == model.LastEntry {
		d.nextAlarm = 1
	}
	if a.Timestamp.IsZero() {
		a.Timestamp = time.Now()
	}
	if err := d.dat.Upsert(a); err != nil {
		return a, err
	}
	if d.DSP != nil {
		if err := d.DSP.StoreAlarm(d.ID, a); err != nil {
			d.Logger.Errorf("Can't persist alarm %d: %v", a.AlarmID, err)
		}
	}
	return a, nil
}

func (d *Domain) RemoveAlarms(ids []model.AlarmID) error {
	d.alarmMu.Lock()
	defer d.alarmMu.Unlock()

	drop := make(map[model.AlarmID]bool, len(ids))
	for _, id := range ids {
		drop[id] = true
	}
	err := d.dat.Mutate(func(entries []model.Alarm) ([]model.Alarm, bool) {
		kept := entries[:0]
		for _, a := range entries {
			if !drop[a.AlarmID] {
				kept = append(kept, a)
			}
		}
		return kept, len(kept) != len(entries)
	})
	if err != nil {
		return err
	}
	if d.DSP != nil {
		for _, id := range ids {
			if derr := d.DSP.DeleteAlarm(d.ID, id); derr != nil {
				d.Logger.Errorf("Can't delete persisted alarm %d: %v", id, derr)
			}
		}
	}
	if limit := d.alarmLimit.Load(); limit <= 0 || int64(d.dat.Len()) < limit {
		d.overflow.Store(false)
	}
	return nil
}

// DeleteAlarm removes one alarm by id.
func (d *Domain) DeleteAlarm(id model.AlarmID) error {
	if _, ok := d.dat.Get(id); !ok {
		return fmt.Errorf("%w: %d", ErrNoAlarm, id)
	}
	return d.RemoveAlarms([]model.AlarmID{id})
}

// AckAlarm marks an alarm acknowledged.
func (d *Domain) AckAlarm(id model.AlarmID) (model.Alarm, error) {
	d.alarmMu.Lock()
	defer d.alarmMu.Unlock()

	var acked model.Alarm
	found, err := d.dat.Update(id, func(a *model.Alarm) bool {
		changed := !a.Acknowledged
		a.Acknowledged = true
		acked = *a
		return changed
	})
	if err != nil {
		return acked, err
	}
	if !found {
		return acked, fmt.Errorf("%w: %d", ErrNoAlarm, id)
	}
	if d.DSP != nil {
		if serr := d.DSP.StoreAlarm(d.ID, acked); serr != nil {
			d.Logger.Errorf("Can't persist alarm %d: %v", id, serr)
		}
	}
	return acked, nil
}

// SetUserAlarmLimit changes the DAT capacity.  Zero means unlimited.
func (d *Domain) SetUserAlarmLimit(limit int) {
	d.alarmMu.Lock()
	defer d.alarmMu.Unlock()
	d.alarmLimit.Store(int64(limit))
	if limit <= 0 || d.dat.Len() < limit {
		d.overflow.Store(false)
	}
}

func (d *Domain) UserAlarmLimit() int {
	return int(d.alarmLimit.Load())
}
