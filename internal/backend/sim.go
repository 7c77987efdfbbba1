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

package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/Cray-HPE/hms-hpi/internal/interp"
)

// Sim is a handler with no hardware behind it. Values are set through
// Set/SetEvent (or the initial params, "address: value") and reported on
// every sample.  Events are reported once.
type Sim struct {
	mu      sync.Mutex
	values  map[string]string
	pending map[string]interp.Input
	errs    map[string]error
}

func NewSim(name string, params map[string]string, deps Deps) (Sampler, error) {
	s := &Sim{values: map[string]string{}, pending: map[string]interp.Input{},
		errs: map[string]error{}}
	for k, v := range params {
		s.values[k] = v
	}
	return s, nil
}

// Set sets the analog value reported for address.
func (s *Sim) Set(address, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[address] = value
	delete(s.errs, address)
}

// SetEvent queues an event code for address; it is reported by the next
// sample only.
func (s *Sim) SetEvent(address, code string, asserted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[address] = interp.EventInput(code, asserted)
}

// Fail makes the address unreadable until it is Set again.
func (s *Sim) Fail(address string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errs[address] = err
}

func (s *Sim) Sample(ctx context.Context, refs []Ref) ([]Sample, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Sample
	for _, ref := range refs {
		if err, ok := s.errs[ref.Address]; ok {
			out = append(out, Sample{Ref: ref, Err: err})
			continue
		}
		if in, ok := s.pending[ref.Address]; ok {
			delete(s.pending, ref.Address)
			out = append(out, Sample{Ref: ref, Input: in})
			continue
		}
		v, ok := s.values[ref.Address]
		if !ok || ref.HotSwap {
			continue
		}
		r, err := ParseReading(ref.Kind, v)
		if err != nil {
			out = append(out, Sample{Ref: ref, Err: fmt.Errorf("sim %s: %w", ref.Address, err)})
			continue
		}
		out = append(out, Sample{Ref: ref, Input: interp.AnalogInput(r)})
	}
	return out, nil
}

func (s *Sim) Close() error { return nil }
