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

	"github.com/Cray-HPE/hms-hpi/internal/hsm"
	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/sirupsen/logrus"
)

// DefaultPresenceCode is the event code a presence handler reports for a
// FRU, asserted when HSM sees it populated and deasserted when it is Empty
// or unknown.
const DefaultPresenceCode = "0x0E00A000"

// Presence derives FRU hot-swap events from HSM component state.  The ref
// address is the xname to check.  An event is only reported when the
// presence of a component changes (or on the first sample).
type Presence struct {
	HSM    hsm.HSMProvider
	Code   string
	Logger *logrus.Logger

	last map[string]bool
}

func NewPresence(name string, params map[string]string, deps Deps) (Sampler, error) {
	if deps.HSM == nil {
		return nil, fmt.Errorf("handler '%s': presence plugin needs HSM", name)
	}
	code := params["code"]
	if code == "" {
		code = DefaultPresenceCode
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Presence{HSM: deps.HSM, Code: code, Logger: logger, last: map[string]bool{}}, nil
}

func (p *Presence) Sample(ctx context.Context, refs []Ref) ([]Sample, error) {
	var xnames []string
	for _, ref := range refs {
		if ref.Address != "" {
			xnames = append(xnames, ref.Address)
		}
	}
	if len(xnames) == 0 {
		return nil, nil
	}
	pmap, err := p.HSM.GetPresence(xnames)
	if err != nil {
		return nil, fmt.Errorf("presence query failed: %w", err)
	}

	var out []Sample
	for _, ref := range refs {
		cp, ok := pmap[ref.Address]
		if !ok {
			continue
		}
		prev, seen := p.last[ref.Address]
		if seen && prev == cp.Present {
			continue
		}
		p.last[ref.Address] = cp.Present
		p.Logger.WithFields(logrus.Fields{"xname": ref.Address, "state": cp.State,
			"present": cp.Present}).Debug("Presence changed")
		out = append(out, Sample{Ref: ref, Input: interp.EventInput(p.Code, cp.Present)})
	}
	return out, nil
}

func (p *Presence) Close() error { return nil }
