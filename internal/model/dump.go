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

package model

import "time"

// DomainDump is a consistent copy of every table of a domain, each taken
// with its own snapshot and paired with the descriptor it was read under.
type DomainDump struct {
	Generated time.Time  `json:"generated"`
	Domain    DomainInfo `json:"domain"`
	Drt       []DrtEntry `json:"drt"`
	Resources []Resource `json:"rpt"`
	Alarms    []Alarm    `json:"dat"`
	// Resources that keep an event log of their own.
	EventLogResources []ResourceID `json:"eventLogResources,omitempty"`
	// Hot-swap state of every managed FRU, by resource id.
	HotSwap map[ResourceID]HotSwapState `json:"hotSwap,omitempty"`
}
