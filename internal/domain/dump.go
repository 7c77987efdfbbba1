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
	"fmt"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/model"
)

// Dump composes a consistent snapshot of every table into one document.
// The descriptor is the one the alarm table was read under, which is the
// last of the three.
func (d *Domain) Dump(ctx context.Context) (model.DomainDump, error) {
	dump := model.DomainDump{Generated: time.Now()}

	drt, _, err := d.Reader.FetchDrt(ctx)
	if err != nil {
		return dump, fmt.Errorf("dumping DRT: %w", err)
	}
	resources, _, err := d.Reader.FetchResources(ctx)
	if err != nil {
		return dump, fmt.Errorf("dumping RPT: %w", err)
	}
	alarms, di, err := d.Reader.FetchDat(ctx)
	if err != nil {
		return dump, fmt.Errorf("dumping DAT: %w", err)
	}
	dump.Drt = drt
	dump.Resources = resources
	dump.Alarms = alarms
	dump.Domain = di

	for _, res := range resources {
		if res.Entry.Capabilities.Has(model.CapEventLog) {
			dump.EventLogResources = append(dump.EventLogResources, res.Entry.ResourceID)
		}
		if res.Entry.Capabilities.Has(model.CapManagedHotSwap) {
			rt, herr := d.HotSwapState(res.Entry.ResourceID)
			if herr != nil {
				continue
			}
			if dump.HotSwap == nil {
				dump.HotSwap = map[model.ResourceID]model.HotSwapState{}
			}
			dump.HotSwap[res.Entry.ResourceID] = rt.State
		}
	}
	return dump, nil
}

// StoreDump takes a dump and writes it to storage.
func (d *Domain) StoreDump(ctx context.Context) (model.DomainDump, error) {
	dump, err := d.Dump(ctx)
	if err != nil {
		return dump, err
	}
	if d.DSP == nil {
		return dump, nil
	}
	if err = d.DSP.StoreDump(dump); err != nil {
		return dump, fmt.Errorf("storing dump of domain %d: %w", d.ID, err)
	}
	return dump, nil
}
