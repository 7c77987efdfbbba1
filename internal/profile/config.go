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
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"gopkg.in/yaml.v3"
)

// Set is the immutable collection of instrument profiles of a domain.
type Set struct {
	profiles map[string]*model.InstrumentProfile
}

func NewSet(profiles ...*model.InstrumentProfile) (*Set, error) {
	s := &Set{profiles: map[string]*model.InstrumentProfile{}}
	for _, p := range profiles {
		if err := Validate(p); err != nil {
			return nil, err
		}
		if _, dup := s.profiles[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate profile name '%s'", ErrInvalidProfile, p.Name)
		}
		s.profiles[p.Name] = p
	}
	return s, nil
}

func (s *Set) Get(name string) (*model.InstrumentProfile, bool) {
	p, ok := s.profiles[name]
	return p, ok
}

func (s *Set) Names() []string {
	names := make([]string, 0, len(s.profiles))
	for n := range s.profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Binding ties an instrument to the handler that samples it and the
// handler-specific address (an OID, a Redfish path, ...).
type Binding struct {
	Handler string `yaml:"handler"`
	Address string `yaml:"address"`
}

type InstrumentConfig struct {
	Entry         model.InstrumentEntry
	Binding       Binding
	Enabled       bool
	EventsEnabled bool
}

type HotSwapConfig struct {
	Profile string
	Initial model.HotSwapState
	Binding Binding
}

type ResourceConfig struct {
	Entry       model.ResourceEntry
	HotSwap     *HotSwapConfig
	Instruments []InstrumentConfig
}

type HandlerConfig struct {
	Name   string
	Plugin string
	Params map[string]string
}

type DomainConfig struct {
	ID             uint32
	Tag            string
	UserAlarmLimit int
	Peers          []uint32
}

// Config is a fully validated domain description.
type Config struct {
	Domain    DomainConfig
	Profiles  *Set
	Resources []ResourceConfig
	Handlers  []HandlerConfig
}

////// YAML document //////

type bound struct {
	raw string
}

func (b *bound) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: bound must be a scalar", value.Line)
	}
	b.raw = value.Value
	return nil
}

func (b *bound) reading(kind model.NumericKind) (*model.Reading, error) {
	if b == nil {
		return nil, nil
	}
	var r model.Reading
	var err error
	switch kind {
	case model.NumericInt64:
		var v int64
		v, err = strconv.ParseInt(b.raw, 0, 64)
		r = model.IntReading(v)
	case model.NumericUint64:
		var v uint64
		v, err = strconv.ParseUint(b.raw, 0, 64)
		r = model.UintReading(v)
	case model.NumericFloat64:
		var v float64
		v, err = strconv.ParseFloat(b.raw, 64)
		r = model.FloatReading(v)
	}
	if err != nil {
		return nil, fmt.Errorf("bound '%s' is not a %s: %v", b.raw, kind, err)
	}
	return &r, nil
}

type rangeDoc struct {
	State   model.EventState `yaml:"state"`
	Min     *bound           `yaml:"min"`
	Max     *bound           `yaml:"max"`
	Nominal *bound           `yaml:"nominal"`
}

type eventDoc struct {
	Code              string            `yaml:"code"`
	Asserted          *bool             `yaml:"asserted"`
	State             model.EventState  `yaml:"state"`
	HotSwap           string            `yaml:"hotswap"`
	Auto              string            `yaml:"auto"`
	Recovery          *model.EventState `yaml:"recovery"`
	Failure           bool              `yaml:"failure"`
	FailureUnexpected bool              `yaml:"failureUnexpected"`
	Description       string            `yaml:"description"`
}

type profileDoc struct {
	Name         string           `yaml:"name"`
	Reading      string           `yaml:"reading"`
	Numeric      string           `yaml:"numeric"`
	HotSwap      bool             `yaml:"hotswap"`
	Supported    model.EventState `yaml:"supported"`
	AssertMask   model.EventState `yaml:"assertMask"`
	DeassertMask model.EventState `yaml:"deassertMask"`
	Ranges       []rangeDoc       `yaml:"ranges"`
	Events       []eventDoc       `yaml:"events"`
}

type instrumentDoc struct {
	Num           uint32 `yaml:"num"`
	Type          string `yaml:"type"`
	Name          string `yaml:"name"`
	Profile       string `yaml:"profile"`
	Handler       string `yaml:"handler"`
	Address       string `yaml:"address"`
	Enabled       *bool  `yaml:"enabled"`
	EventsEnabled *bool  `yaml:"eventsEnabled"`
}

type hotSwapDoc struct {
	Profile string `yaml:"profile"`
	Initial string `yaml:"initial"`
	Handler string `yaml:"handler"`
	Address string `yaml:"address"`
}

type resourceDoc struct {
	ID           uint32          `yaml:"id"`
	Location     string          `yaml:"location"`
	Tag          string          `yaml:"tag"`
	Capabilities []string        `yaml:"capabilities"`
	Severity     string          `yaml:"severity"`
	HotSwap      *hotSwapDoc     `yaml:"hotswap"`
	Instruments  []instrumentDoc `yaml:"instruments"`
}

type handlerDoc struct {
	Name   string            `yaml:"name"`
	Plugin string            `yaml:"plugin"`
	Params map[string]string `yaml:"params"`
}

type document struct {
	Domain struct {
		ID             uint32   `yaml:"id"`
		Tag            string   `yaml:"tag"`
		UserAlarmLimit int      `yaml:"userAlarmLimit"`
		Peers          []uint32 `yaml:"peers"`
	} `yaml:"domain"`
	Profiles  []profileDoc  `yaml:"profiles"`
	Resources []resourceDoc `yaml:"resources"`
	Handlers  []handlerDoc  `yaml:"handlers"`
}

var capabilityNames = map[string]model.Capability{
	"resource":         model.CapResource,
	"fru":              model.CapFRU,
	"sensor":           model.CapSensor,
	"control":          model.CapControl,
	"inventory":        model.CapInventory,
	"watchdog":         model.CapWatchdog,
	"annunciator":      model.CapAnnunciator,
	"event-log":        model.CapEventLog,
	"power":            model.CapPowerControl,
	"reset":            model.CapResetControl,
	"managed-hotswap":  model.CapManagedHotSwap,
	"aggregate-status": model.CapAggregateStatus,
}

var instrumentTypes = map[string]model.InstrumentType{
	"":            model.InstrumentSensor,
	"sensor":      model.InstrumentSensor,
	"control":     model.InstrumentControl,
	"inventory":   model.InstrumentInventory,
	"watchdog":    model.InstrumentWatchdog,
	"annunciator": model.InstrumentAnnunciator,
}

var severities = map[string]model.Severity{
	"":              model.SeverityInformational,
	"critical":      model.SeverityCritical,
	"major":         model.SeverityMajor,
	"minor":         model.SeverityMinor,
	"informational": model.SeverityInformational,
	"ok":            model.SeverityOK,
	"debug":         model.SeverityDebug,
}

func (d *profileDoc) build() (*model.InstrumentProfile, error) {
	p := &model.InstrumentProfile{
		Name:            d.Name,
		HotSwap:         d.HotSwap,
		SupportedStates: d.Supported,
		AssertMask:      d.AssertMask,
		DeassertMask:    d.DeassertMask,
	}
	switch strings.ToLower(d.Reading) {
	case "analog":
		p.ReadingType = model.ReadingAnalog
	case "", "discrete":
		p.ReadingType = model.ReadingDiscrete
	default:
		return nil, fmt.Errorf("profile '%s': unknown reading type '%s'", d.Name, d.Reading)
	}
	if d.HotSwap {
		p.SupportedStates |= model.HotSwapStateBits
	}
	if d.Numeric != "" {
		nk, err := model.ParseNumericKind(d.Numeric)
		if err != nil {
			return nil, fmt.Errorf("profile '%s': %v", d.Name, err)
		}
		p.NumericKind = nk
	}
	for ix, rd := range d.Ranges {
		rr := model.RangeRule{State: rd.State}
		var err error
		if rr.Min, err = rd.Min.reading(p.NumericKind); err != nil {
			return nil, fmt.Errorf("profile '%s' range %d: %v", d.Name, ix, err)
		}
		if rr.Max, err = rd.Max.reading(p.NumericKind); err != nil {
			return nil, fmt.Errorf("profile '%s' range %d: %v", d.Name, ix, err)
		}
		if rr.Nominal, err = rd.Nominal.reading(p.NumericKind); err != nil {
			return nil, fmt.Errorf("profile '%s' range %d: %v", d.Name, ix, err)
		}
		p.RangeRules = append(p.RangeRules, rr)
	}
	for ix, ed := range d.Events {
		er := model.EventRule{
			Code:              ed.Code,
			Asserted:          ed.Asserted == nil || *ed.Asserted,
			State:             ed.State,
			Recovery:          ed.Recovery,
			Failure:           ed.Failure,
			FailureUnexpected: ed.FailureUnexpected,
			Description:       ed.Description,
		}
		if ed.HotSwap != "" {
			hs, err := model.ParseHotSwapState(ed.HotSwap)
			if err != nil {
				return nil, fmt.Errorf("profile '%s' event %d: %v", d.Name, ix, err)
			}
			er.State = hs.Bit()
		}
		if ed.Auto != "" {
			hs, err := model.ParseHotSwapState(ed.Auto)
			if err != nil {
				return nil, fmt.Errorf("profile '%s' event %d: %v", d.Name, ix, err)
			}
			b := hs.Bit()
			er.AutoState = &b
		}
		p.EventRules = append(p.EventRules, er)
	}
	return p, nil
}

func boolOr(b *bool, dflt bool) bool {
	if b == nil {
		return dflt
	}
	return *b
}

func (d *resourceDoc) build(profiles *Set) (ResourceConfig, error) {
	rc := ResourceConfig{Entry: model.ResourceEntry{
		ResourceID: model.ResourceID(d.ID),
		Location:   d.Location,
		Tag:        d.Tag,
	}}
	if d.ID == 0 || model.EntryID(d.ID) == model.LastEntry {
		return rc, fmt.Errorf("resource '%s': id %d is reserved", d.Tag, d.ID)
	}
	if err := rc.Entry.Validate(); err != nil {
		return rc, fmt.Errorf("resource %d: %v", d.ID, err)
	}
	sev, ok := severities[strings.ToLower(d.Severity)]
	if !ok {
		return rc, fmt.Errorf("resource %d: unknown severity '%s'", d.ID, d.Severity)
	}
	rc.Entry.Severity = sev
	rc.Entry.Capabilities = model.CapResource
	for _, c := range d.Capabilities {
		bit, ok := capabilityNames[strings.ToLower(c)]
		if !ok {
			return rc, fmt.Errorf("resource %d: unknown capability '%s'", d.ID, c)
		}
		rc.Entry.Capabilities |= bit
	}

	if d.HotSwap != nil {
		p, ok := profiles.Get(d.HotSwap.Profile)
		if !ok || !p.HotSwap {
			return rc, fmt.Errorf("resource %d: '%s' is not a hot-swap profile", d.ID, d.HotSwap.Profile)
		}
		initial := model.HotSwapActive
		if d.HotSwap.Initial != "" {
			var err error
			if initial, err = model.ParseHotSwapState(d.HotSwap.Initial); err != nil {
				return rc, fmt.Errorf("resource %d: %v", d.ID, err)
			}
		}
		rc.HotSwap = &HotSwapConfig{
			Profile: d.HotSwap.Profile,
			Initial: initial,
			Binding: Binding{Handler: d.HotSwap.Handler, Address: d.HotSwap.Address},
		}
		rc.Entry.Capabilities |= model.CapFRU | model.CapManagedHotSwap
	}

	nums := map[uint32]bool{}
	for _, id := range d.Instruments {
		if nums[id.Num] {
			return rc, fmt.Errorf("resource %d: duplicate instrument %d", d.ID, id.Num)
		}
		nums[id.Num] = true
		it, ok := instrumentTypes[strings.ToLower(id.Type)]
		if !ok {
			return rc, fmt.Errorf("resource %d: unknown instrument type '%s'", d.ID, id.Type)
		}
		if id.Profile != "" {
			if _, ok := profiles.Get(id.Profile); !ok {
				return rc, fmt.Errorf("resource %d instrument %d: unknown profile '%s'",
					d.ID, id.Num, id.Profile)
			}
		}
		rc.Instruments = append(rc.Instruments, InstrumentConfig{
			Entry: model.InstrumentEntry{
				RecordID: model.EntryID(id.Num + 1),
				Type:     it,
				Num:      id.Num,
				Name:     id.Name,
				Profile:  id.Profile,
			},
			Binding:       Binding{Handler: id.Handler, Address: id.Address},
			Enabled:       boolOr(id.Enabled, true),
			EventsEnabled: boolOr(id.EventsEnabled, true),
		})
		switch it {
		case model.InstrumentSensor:
			rc.Entry.Capabilities |= model.CapSensor
		case model.InstrumentControl:
			rc.Entry.Capabilities |= model.CapControl
		case model.InstrumentInventory:
			rc.Entry.Capabilities |= model.CapInventory
		case model.InstrumentWatchdog:
			rc.Entry.Capabilities |= model.CapWatchdog
		case model.InstrumentAnnunciator:
			rc.Entry.Capabilities |= model.CapAnnunciator
		}
	}
	if len(rc.Instruments) > 0 {
		rc.Entry.Capabilities |= model.CapRDR
	}
	return rc, nil
}

// Parse decodes and validates a domain description.
func Parse(data []byte) (*Config, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing domain config: %w", err)
	}

	var profs []*model.InstrumentProfile
	for ix := range doc.Profiles {
		p, err := doc.Profiles[ix].build()
		if err != nil {
			return nil, err
		}
		profs = append(profs, p)
	}
	set, err := NewSet(profs...)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Domain: DomainConfig{
			ID:             doc.Domain.ID,
			Tag:            doc.Domain.Tag,
			UserAlarmLimit: doc.Domain.UserAlarmLimit,
			Peers:          doc.Domain.Peers,
		},
		Profiles: set,
	}

	handlers := map[string]bool{}
	for _, hd := range doc.Handlers {
		if hd.Name == "" || hd.Plugin == "" {
			return nil, fmt.Errorf("handler entries need a name and a plugin")
		}
		if handlers[hd.Name] {
			return nil, fmt.Errorf("duplicate handler '%s'", hd.Name)
		}
		handlers[hd.Name] = true
		cfg.Handlers = append(cfg.Handlers, HandlerConfig{Name: hd.Name, Plugin: hd.Plugin,
			Params: hd.Params})
	}

	ids := map[uint32]bool{}
	for ix := range doc.Resources {
		rc, err := doc.Resources[ix].build(set)
		if err != nil {
			return nil, err
		}
		if ids[doc.Resources[ix].ID] {
			return nil, fmt.Errorf("duplicate resource id %d", doc.Resources[ix].ID)
		}
		ids[doc.Resources[ix].ID] = true
		if rc.HotSwap != nil && rc.HotSwap.Binding.Handler != "" && !handlers[rc.HotSwap.Binding.Handler] {
			return nil, fmt.Errorf("resource %d: unknown handler '%s'", rc.Entry.ResourceID,
				rc.HotSwap.Binding.Handler)
		}
		for _, ic := range rc.Instruments {
			if ic.Binding.Handler != "" && !handlers[ic.Binding.Handler] {
				return nil, fmt.Errorf("resource %d instrument %d: unknown handler '%s'",
					rc.Entry.ResourceID, ic.Entry.Num, ic.Binding.Handler)
			}
		}
		cfg.Resources = append(cfg.Resources, rc)
	}
	return cfg, nil
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain config: %w", err)
	}
	return Parse(data)
}
