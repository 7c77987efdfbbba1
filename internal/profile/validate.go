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
	"errors"
	"fmt"
	"reflect"

	"github.com/Cray-HPE/hms-hpi/internal/model"
)

var ErrInvalidProfile = errors.New("invalid instrument profile")

func invalid(p *model.InstrumentProfile, format string, args ...interface{}) error {
	return fmt.Errorf("%w '%s': %s", ErrInvalidProfile, p.Name, fmt.Sprintf(format, args...))
}

// Validate rejects profiles the engine cannot interpret unambiguously.
// The engine itself never re-checks a profile.
func Validate(p *model.InstrumentProfile) error {
	if p.Name == "" {
		return fmt.Errorf("%w: profile has no name", ErrInvalidProfile)
	}
	sup := p.SupportedStates
	if p.AssertMask&^sup != 0 {
		return invalid(p, "assert mask %s outside supported states", p.AssertMask&^sup)
	}
	if p.DeassertMask&^sup != 0 {
		return invalid(p, "deassert mask %s outside supported states", p.DeassertMask&^sup)
	}

	switch p.ReadingType {
	case model.ReadingAnalog:
		if len(p.RangeRules) == 0 {
			return invalid(p, "analog profile without range rules")
		}
	case model.ReadingDiscrete:
		if len(p.RangeRules) != 0 {
			return invalid(p, "discrete profile with range rules")
		}
	default:
		return invalid(p, "unknown reading type %d", p.ReadingType)
	}

	for ix := range p.RangeRules {
		if err := validateRange(p, ix); err != nil {
			return err
		}
	}

	seen := map[string]int{}
	for ix := range p.EventRules {
		r := &p.EventRules[ix]
		if r.Code == "" {
			return invalid(p, "event rule %d has no code", ix)
		}
		key := fmt.Sprintf("%s/%t", r.Code, r.Asserted)
		if prior, dup := seen[key]; dup {
			if !reflect.DeepEqual(p.EventRules[prior], *r) {
				return invalid(p, "event rules %d and %d give code %s contradictory meanings",
					prior, ix, r.Code)
			}
			continue
		}
		seen[key] = ix
		if r.State&^sup != 0 {
			return invalid(p, "event rule %s targets unsupported state %s", r.Code, r.State&^sup)
		}
		if r.Recovery != nil && *r.Recovery&^sup != 0 {
			return invalid(p, "event rule %s recovers to unsupported state %s", r.Code, *r.Recovery)
		}
		if p.HotSwap {
			if _, ok := model.HotSwapStateFromBits(r.State); !ok {
				return invalid(p, "hot-swap rule %s must target exactly one hot-swap state", r.Code)
			}
			if r.AutoState != nil {
				if _, ok := model.HotSwapStateFromBits(*r.AutoState); !ok {
					return invalid(p, "hot-swap rule %s has an invalid auto state", r.Code)
				}
			}
		} else if r.AutoState != nil {
			return invalid(p, "event rule %s has an auto state on a non hot-swap profile", r.Code)
		}
	}
	return nil
}

func validateRange(p *model.InstrumentProfile, ix int) error {
	rr := &p.RangeRules[ix]
	if rr.Min == nil && rr.Max == nil && rr.Nominal == nil {
		return invalid(p, "range rule %d has no bounds", ix)
	}
	if rr.State&^p.SupportedStates != 0 {
		return invalid(p, "range rule %d targets unsupported state %s", ix, rr.State)
	}
	for _, b := range []*model.Reading{rr.Min, rr.Max, rr.Nominal} {
		if b != nil && b.Kind != p.NumericKind {
			return invalid(p, "range rule %d bound is %s, profile reads %s", ix, b.Kind, p.NumericKind)
		}
	}
	if rr.Min != nil && rr.Max != nil {
		if c, _ := rr.Min.Compare(*rr.Max); c > 0 {
			return invalid(p, "range rule %d has min above max", ix)
		}
	}

	lo, hi := interval(rr)
	for jx := 0; jx < ix; jx++ {
		prior := &p.RangeRules[jx]
		if prior.State == rr.State {
			continue
		}
		plo, phi := interval(prior)
		if below(plo, lo) && above(phi, hi) {
			return invalid(p, "range rule %d can never match, rule %d covers it with state %s",
				ix, jx, prior.State)
		}
	}
	return nil
}

// interval returns the closed interval a rule selects; nil ends are open.
func interval(rr *model.RangeRule) (lo, hi *model.Reading) {
	if rr.Min == nil && rr.Max == nil {
		return rr.Nominal, rr.Nominal
	}
	return rr.Min, rr.Max
}

// below reports a <= b where a nil a is minus infinity.
func below(a, b *model.Reading) bool {
	if a == nil {
		return true
	}
	if b == nil {
		return false
	}
	c, ok := a.Compare(*b)
	return ok && c <= 0
}

// above reports a >= b where a nil a is plus infinity.
func above(a, b *model.Reading) bool {
	if a == nil {
		return true
	}
	if b == nil {
		return false
	}
	c, ok := a.Compare(*b)
	return ok && c >= 0
}
