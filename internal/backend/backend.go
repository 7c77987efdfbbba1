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
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/Cray-HPE/hms-hpi/internal/credstore"
	"github.com/Cray-HPE/hms-hpi/internal/hsm"
	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	trsapi "github.com/Cray-HPE/hms-trs-app-api/v3/pkg/trs_http_api"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoValue      = errors.New("no value for address")
	ErrBadAddress   = errors.New("malformed instrument address")
	ErrKindMismatch = errors.New("value does not fit the instrument's numeric kind")
)

// Ref identifies one instrument (or one FRU's hot-swap state) that a
// handler samples, together with what the engine expects back.
type Ref struct {
	Instrument  model.InstrumentRef
	HotSwap     bool
	Location    string
	Address     string
	ReadingType model.ReadingType
	Kind        model.NumericKind
}

// Sample is one raw value read by a handler. Err is set instead of Input
// when that one instrument could not be read.
type Sample struct {
	Ref   Ref
	Input interp.Input
	Err   error
}

// Sampler reads raw instrument values from one piece of hardware.  Refs
// with nothing new to report may be left out of the result.
type Sampler interface {
	Sample(ctx context.Context, refs []Ref) ([]Sample, error)
	Close() error
}

// Deps are the shared service handles a plugin may use to build a handler.
type Deps struct {
	SvcName string
	Logger  *logrus.Logger
	HSM     hsm.HSMProvider
	Creds   credstore.CredStoreProvider
	RFTloc  trsapi.TrsAPI
}

// Factory creates a handler of one plugin from its configuration params.
type Factory func(name string, params map[string]string, deps Deps) (Sampler, error)

// SplitAddress splits "where#what" addresses. what is empty if there is no
// '#'.
func SplitAddress(addr string) (string, string) {
	ix := strings.LastIndex(addr, "#")
	if ix < 0 {
		return addr, ""
	}
	return addr[:ix], addr[ix+1:]
}

// FloatReading converts a hardware value to a reading of the given kind.
// Integer kinds only take whole numbers.
func FloatReading(kind model.NumericKind, v float64) (model.Reading, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Reading{}, fmt.Errorf("%w: %v", ErrKindMismatch, v)
	}
	switch kind {
	case model.NumericFloat64:
		return model.FloatReading(v), nil
	case model.NumericInt64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return model.Reading{}, fmt.Errorf("%w: %v is not an int64", ErrKindMismatch, v)
		}
		return model.IntReading(int64(v)), nil
	case model.NumericUint64:
		if v != math.Trunc(v) || v < 0 || v >= math.MaxUint64 {
			return model.Reading{}, fmt.Errorf("%w: %v is not a uint64", ErrKindMismatch, v)
		}
		return model.UintReading(uint64(v)), nil
	}
	return model.Reading{}, fmt.Errorf("%w: unknown kind %s", ErrKindMismatch, kind)
}

// ParseReading reads a leading number out of a hardware string such as
// "+27.50 Centigrade" or "4200 RPM".
func ParseReading(kind model.NumericKind, s string) (model.Reading, error) {
	field := strings.TrimSpace(s)
	if ix := strings.IndexAny(field, " \t"); ix > 0 {
		field = field[:ix]
	}
	field = strings.TrimPrefix(field, "+")
	switch kind {
	case model.NumericInt64:
		v, err := strconv.ParseInt(field, 0, 64)
		if err == nil {
			return model.IntReading(v), nil
		}
	case model.NumericUint64:
		v, err := strconv.ParseUint(field, 0, 64)
		if err == nil {
			return model.UintReading(v), nil
		}
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return model.Reading{}, fmt.Errorf("%w: '%s'", ErrNoValue, s)
	}
	return FloatReading(kind, f)
}

// ParamInt returns the integer param name, or dflt if it is absent.
func ParamInt(params map[string]string, name string, dflt int) (int, error) {
	s, ok := params[name]
	if !ok || s == "" {
		return dflt, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return dflt, fmt.Errorf("param '%s': %v", name, err)
	}
	return v, nil
}
