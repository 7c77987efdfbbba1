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

package redfish

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Cray-HPE/hms-hpi/internal/backend"
	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
)

// Redfish sensor payloads.  Thermal and Power carry member arrays; a
// standalone Sensor resource carries a top-level Reading.

type Status struct {
	State  string `json:"State,omitempty"`
	Health string `json:"Health,omitempty"`
}

type member struct {
	MemberID       string      `json:"MemberId"`
	Name           string      `json:"Name"`
	Reading        interface{} `json:"Reading"`
	ReadingCelsius interface{} `json:"ReadingCelsius"`
	ReadingVolts   interface{} `json:"ReadingVolts"`
	Status         Status      `json:"Status"`
}

func (m *member) value() interface{} {
	switch {
	case m.ReadingCelsius != nil:
		return m.ReadingCelsius
	case m.ReadingVolts != nil:
		return m.ReadingVolts
	}
	return m.Reading
}

type payload struct {
	ID            string      `json:"Id"`
	Name          string      `json:"Name"`
	Reading       interface{} `json:"Reading"`
	Status        Status      `json:"Status"`
	Temperatures  []member    `json:"Temperatures"`
	Fans          []member    `json:"Fans"`
	Voltages      []member    `json:"Voltages"`
	PowerSupplies []member    `json:"PowerSupplies"`
}

func (p *payload) find(sensor string) (*member, bool) {
	for _, list := range [][]member{p.Temperatures, p.Fans, p.Voltages, p.PowerSupplies} {
		for ix := range list {
			if strings.EqualFold(list[ix].Name, sensor) || list[ix].MemberID == sensor {
				return &list[ix], true
			}
		}
	}
	return nil, false
}

func parsePayload(body []byte) (*payload, error) {
	var p payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("bad Redfish sensor payload: %w", err)
	}
	return &p, nil
}

// input extracts the value ref asks for.  Analog refs take the member's
// reading; discrete refs report the member's Health as the event code.
func (p *payload) input(ref backend.Ref, sensor string) (interp.Input, error) {
	val, status := p.Reading, p.Status
	if sensor != "" {
		m, ok := p.find(sensor)
		if !ok {
			return interp.Input{}, fmt.Errorf("%w: sensor '%s'", backend.ErrNoValue, sensor)
		}
		val, status = m.value(), m.Status
	}

	if ref.ReadingType == model.ReadingDiscrete || ref.HotSwap {
		if status.Health == "" {
			return interp.Input{}, fmt.Errorf("%w: no health for '%s'", backend.ErrNoValue, sensor)
		}
		return interp.EventInput(status.Health, true), nil
	}

	var r model.Reading
	var err error
	switch v := val.(type) {
	case float64:
		r, err = backend.FloatReading(ref.Kind, v)
	case string:
		r, err = backend.ParseReading(ref.Kind, v)
	case nil:
		return interp.Input{}, fmt.Errorf("%w: '%s' has no reading", backend.ErrNoValue, sensor)
	default:
		return interp.Input{}, fmt.Errorf("%w: unexpected reading %v", backend.ErrNoValue, v)
	}
	if err != nil {
		return interp.Input{}, err
	}
	return interp.AnalogInput(r), nil
}
