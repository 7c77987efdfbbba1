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

// Request and response bodies of the REST surface.

type DrtResponse struct {
	Domain  DomainInfo `json:"domain"`
	Entries []DrtEntry `json:"entries"`
}

type RptResponse struct {
	Domain    DomainInfo `json:"domain"`
	Resources []Resource `json:"resources"`
}

type RdrResponse struct {
	ResourceID  ResourceID        `json:"resourceID"`
	UpdateCount uint32            `json:"updateCount"`
	Instruments []InstrumentEntry `json:"instruments"`
}

type DatResponse struct {
	Domain DomainInfo `json:"domain"`
	Alarms []Alarm    `json:"alarms"`
}

type HotSwapRequest struct {
	Action    string `json:"action"`
	DeputyKey string `json:"deputyKey,omitempty"`
}

type PluginLoadRequest struct {
	Name string `json:"name"`
}

// InjectEventRequest asks a handler to report a raw event code as if it
// had read it from hardware.
type InjectEventRequest struct {
	ResourceID ResourceID `json:"resourceID"`
	Num        uint32     `json:"num"`
	HotSwap    bool       `json:"hotSwap,omitempty"`
	Code       string     `json:"code"`
	Asserted   bool       `json:"asserted"`
}

type InjectEventResponse struct {
	Events []Event `json:"events"`
}

type Param struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type VersionResponse struct {
	Version uint64 `json:"version"`
	String  string `json:"versionString"`
}
