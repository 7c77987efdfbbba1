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
	"sort"
	"sync"

	"github.com/Cray-HPE/hms-hpi/internal/backend"
	"github.com/Cray-HPE/hms-hpi/internal/backend/redfish"
	"github.com/Cray-HPE/hms-hpi/internal/backend/snmp"
	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/Cray-HPE/hms-hpi/internal/profile"
	"github.com/sirupsen/logrus"
)

const (
	VersionMajor = 1
	VersionMinor = 2
	VersionPatch = 0
)

var (
	ErrNoPlugin      = errors.New("no such plugin")
	ErrPluginLoaded  = errors.New("plugin already loaded")
	ErrPluginInUse   = errors.New("plugin is in use by handlers")
	ErrNoHandler     = errors.New("no such handler")
	ErrHandlerExists = errors.New("handler name already in use")
	ErrNoPluginParam = errors.New("handler config needs a plugin")
)

// Version packs the service version the way HPI clients expect it.
func Version() uint64 {
	return uint64(VersionMajor)<<48 | uint64(VersionMinor)<<32 | uint64(VersionPatch)<<16
}

// StaticPlugins are the backends compiled into the service.
func StaticPlugins() map[string]backend.Factory {
	return map[string]backend.Factory{
		"snmp":    snmp.New,
		"redfish": redfish.New,
		"hsm":     backend.NewPresence,
		"sim":     backend.NewSim,
	}
}

type PluginInfo struct {
	Name     string `json:"name"`
	Loaded   bool   `json:"loaded"`
	RefCount int    `json:"refCount"`
}

type HandlerInfo struct {
	ID          uint32            `json:"id"`
	Name        string            `json:"name"`
	Plugin      string            `json:"plugin"`
	Params      map[string]string `json:"params,omitempty"`
	Instruments int               `json:"instruments"`
}

type handler struct {
	info    HandlerInfo
	sampler backend.Sampler

	// Counts Sample calls in progress; Close waits for them.
	inflight sync.WaitGroup
}

// Registry tracks the loaded backend plugins and the handlers created from
// them.  A plugin stays loaded while any handler uses it.
type Registry struct {
	Logger *logrus.Logger
	Deps   backend.Deps
	Domain *Domain

	mu        sync.RWMutex
	factories map[string]backend.Factory
	loaded    map[string]int
	handlers  map[uint32]*handler
	byName    map[string]uint32
	nextID    uint32
}

func NewRegistry(dom *Domain, factories map[string]backend.Factory, deps backend.Deps) *Registry {
	logger := deps.Logger
	if logger == nil {
		logger = dom.Logger
		deps.Logger = logger
	}
	return &Registry{
		Logger:    logger,
		Deps:      deps,
		Domain:    dom,
		factories: factories,
		loaded:    map[string]int{},
		handlers:  map[uint32]*handler{},
		byName:    map[string]uint32{},
		nextID:    1,
	}
}

////// Plugins //////

func (r *Registry) LoadPlugin(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(name)
}

func (r *Registry) load(name string) error {
	if _, ok := r.factories[name]; !ok {
		return fmt.Errorf("%w: '%s'", ErrNoPlugin, name)
	}
	if _, ok := r.loaded[name]; ok {
		return fmt.Errorf("%w: '%s'", ErrPluginLoaded, name)
	}
	r.loaded[name] = 0
	r.Logger.Infof("Loaded plugin %s", name)
	return nil
}

func (r *Registry) UnloadPlugin(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs, ok := r.loaded[name]
	if !ok {
		return fmt.Errorf("%w: '%s'", ErrNoPlugin, name)
	}
	if refs > 0 {
		return fmt.Errorf("%w: '%s' (%d)", ErrPluginInUse, name, refs)
	}
	delete(r.loaded, name)
	r.Logger.Infof("Unloaded plugin %s", name)
	return nil
}

func (r *Registry) PluginInfo(name string) (PluginInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if _, ok := r.factories[name]; !ok {
		return PluginInfo{}, fmt.Errorf("%w: '%s'", ErrNoPlugin, name)
	}
	refs, loaded := r.loaded[name]
	return PluginInfo{Name: name, Loaded: loaded, RefCount: refs}, nil
}

// NextPlugin walks the loaded plugins in name order.  An empty name starts
// the walk; an empty result ends it.
func (r *Registry) NextPlugin(name string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for n := range r.loaded {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		if n > name {
			return n
		}
	}
	return ""
}

func (r *Registry) Plugins() []PluginInfo {
	var infos []PluginInfo
	for n := r.NextPlugin(""); n != ""; n = r.NextPlugin(n) {
		if pi, err := r.PluginInfo(n); err == nil {
			infos = append(infos, pi)
		}
	}
	return infos
}

////// Handlers //////

// CreateHandler builds a handler from its configuration, loading its plugin
// first if needed.
func (r *Registry) CreateHandler(hc profile.HandlerConfig) (HandlerInfo, error) {
	if hc.Plugin == "" {
		return HandlerInfo{}, ErrNoPluginParam
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if hc.Name == "" {
		hc.Name = fmt.Sprintf("%s%d", hc.Plugin, r.nextID)
	}
	if _, ok := r.byName[hc.Name]; ok {
		return HandlerInfo{}, fmt.Errorf("%w: '%s'", ErrHandlerExists, hc.Name)
	}
	if _, ok := r.loaded[hc.Plugin]; !ok {
		if err := r.load(hc.Plugin); err != nil {
			return HandlerInfo{}, err
		}
	}
	sampler, err := r.factories[hc.Plugin](hc.Name, hc.Params, r.Deps)
	if err != nil {
		return HandlerInfo{}, fmt.Errorf("creating handler '%s': %w", hc.Name, err)
	}

	id := r.nextID
	r.nextID++
	h := &handler{
		info: HandlerInfo{ID: id, Name: hc.Name, Plugin: hc.Plugin, Params: hc.Params,
			Instruments: len(r.Domain.Refs()[hc.Name])},
		sampler: sampler,
	}
	r.handlers[id] = h
	r.byName[hc.Name] = id
	r.loaded[hc.Plugin]++
	r.Logger.WithFields(logrus.Fields{"id": id, "name": hc.Name, "plugin": hc.Plugin,
		"instruments": h.info.Instruments}).Info("Created handler")
	return h.info, nil
}

func (r *Registry) DestroyHandler(id uint32) error {
	r.mu.Lock()
	h, ok := r.handlers[id]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrNoHandler, id)
	}
	delete(r.handlers, id)
	delete(r.byName, h.info.Name)
	r.loaded[h.info.Plugin]--
	r.mu.Unlock()

	h.inflight.Wait()
	r.Logger.Infof("Destroyed handler %d (%s)", id, h.info.Name)
	return h.sampler.Close()
}

func (r *Registry) HandlerInfo(id uint32) (HandlerInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	if !ok {
		return HandlerInfo{}, fmt.Errorf("%w: %d", ErrNoHandler, id)
	}
	return h.info, nil
}

// NextHandler walks handlers in id order.  Zero starts the walk and is
// returned at the end.
func (r *Registry) NextHandler(id uint32) uint32 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	next := uint32(0)
	for hid := range r.handlers {
		if hid > id && (next == 0 || hid < next) {
			next = hid
		}
	}
	return next
}

func (r *Registry) Handlers() []HandlerInfo {
	var infos []HandlerInfo
	for id := r.NextHandler(0); id != 0; id = r.NextHandler(id) {
		if hi, err := r.HandlerInfo(id); err == nil {
			infos = append(infos, hi)
		}
	}
	return infos
}

// Sampler returns the sampler of a handler, for tests and diagnostics.
func (r *Registry) Sampler(id uint32) (backend.Sampler, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.handlers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrNoHandler, id)
	}
	return h.sampler, nil
}

// Sample reads every handler concurrently and returns the samples in
// handler id order.  A handler destroyed meanwhile is closed only after its
// Sample call returns.
func (r *Registry) Sample(ctx context.Context) []backend.Sample {
	refs := r.Domain.Refs()

	r.mu.RLock()
	var hs []*handler
	for id := uint32(0); ; {
		next := uint32(0)
		for hid := range r.handlers {
			if hid > id && (next == 0 || hid < next) {
				next = hid
			}
		}
		if next == 0 {
			break
		}
		h := r.handlers[next]
		if len(refs[h.info.Name]) > 0 {
			h.inflight.Add(1)
			hs = append(hs, h)
		}
		id = next
	}
	r.mu.RUnlock()

	results := make([][]backend.Sample, len(hs))
	var wg sync.WaitGroup
	for ix, h := range hs {
		wg.Add(1)
		go func(ix int, h *handler, hrefs []backend.Ref) {
			defer wg.Done()
			defer h.inflight.Done()
			samples, err := h.sampler.Sample(ctx, hrefs)
			if err != nil {
				r.Logger.Errorf("Handler %s failed to sample: %v", h.info.Name, err)
				sampleErrors.WithLabelValues(h.info.Name).Inc()
			}
			results[ix] = samples
		}(ix, h, refs[h.info.Name])
	}
	wg.Wait()

	var all []backend.Sample
	for _, s := range results {
		all = append(all, s...)
	}
	return all
}

// InjectEvent pushes a raw event code through the engine as if handler id
// had reported it for the given instrument.
func (r *Registry) InjectEvent(ctx context.Context, id uint32, ref model.InstrumentRef,
	hotSwap bool, code string, asserted bool) ([]model.Event, error) {
	hi, err := r.HandlerInfo(id)
	if err != nil {
		return nil, err
	}
	hname, bref, err := r.Domain.FindRef(ref, hotSwap)
	if err != nil {
		return nil, err
	}
	if hname != hi.Name {
		return nil, fmt.Errorf("instrument %s: %w '%s'", ref.String(), ErrNotBound, hi.Name)
	}
	r.Logger.WithFields(logrus.Fields{"handler": hi.Name, "instrument": ref.String(),
		"code": code, "asserted": asserted}).Info("Injecting event")
	return r.Domain.Apply(ctx, []backend.Sample{{Ref: bref, Input: interp.EventInput(code, asserted)}}), nil
}

// Close destroys every handler.
func (r *Registry) Close() {
	for id := r.NextHandler(0); id != 0; id = r.NextHandler(0) {
		if err := r.DestroyHandler(id); err != nil {
			r.Logger.Warnf("Closing handler %d: %v", id, err)
		}
	}
}
