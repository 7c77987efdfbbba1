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

package snmp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/backend"
	"github.com/Cray-HPE/hms-hpi/internal/interp"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/gosnmp/gosnmp"
	"github.com/sirupsen/logrus"
)

var (
	ErrNoSuchObject     = errors.New("SNMP NoSuchObject")
	ErrNoSuchInstance   = errors.New("SNMP NoSuchInstance")
	ErrUnsupportedType  = errors.New("unsupported SNMP type")
	ErrTargetHostNeeded = errors.New("target host is required")
)

// Sampler polls a blade-center management module over SNMP.
//
// Analog instruments are addressed by OID.  Discrete instruments are
// addressed "OID#code": a non-zero value asserts the vendor event code, zero
// de-asserts it.  A discrete OID without a code reports its integer value
// as the code, always asserted.
type Sampler struct {
	Client Client
	Logger *logrus.Logger
	host   string
}

func New(name string, params map[string]string, deps backend.Deps) (backend.Sampler, error) {
	t, err := targetFromParams(params)
	if err != nil {
		return nil, fmt.Errorf("handler '%s': %w", name, err)
	}
	logger := deps.Logger
	if logger == nil {
		logger = logrus.New()
	}
	return &Sampler{Client: newSession(t), Logger: logger, host: t.Host}, nil
}

func targetFromParams(params map[string]string) (Target, error) {
	t := Target{
		Host:      params["host"],
		Port:      161,
		Community: params["community"],
		Version:   gosnmp.Version2c,
		Timeout:   5 * time.Second,
		Retries:   3,
	}
	if t.Host == "" {
		return t, ErrTargetHostNeeded
	}
	if t.Community == "" {
		t.Community = "public"
	}
	if p := params["port"]; p != "" {
		v, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return t, fmt.Errorf("bad port '%s': %v", p, err)
		}
		t.Port = uint16(v)
	}
	if s := params["timeout"]; s != "" {
		d, err := time.ParseDuration(s)
		if err != nil {
			return t, fmt.Errorf("bad timeout '%s': %v", s, err)
		}
		t.Timeout = d
	}
	retries, err := backend.ParamInt(params, "retries", t.Retries)
	if err != nil {
		return t, err
	}
	t.Retries = retries
	switch params["version"] {
	case "", "2c":
	case "1":
		t.Version = gosnmp.Version1
	default:
		return t, fmt.Errorf("unsupported SNMP version '%s'", params["version"])
	}
	return t, nil
}

func normalizeOID(oid string) string {
	if !strings.HasPrefix(oid, ".") {
		return "." + oid
	}
	return oid
}

func (s *Sampler) Sample(ctx context.Context, refs []backend.Ref) ([]backend.Sample, error) {
	byOID := make(map[string][]backend.Ref)
	var oids []string
	for _, ref := range refs {
		oid, _ := backend.SplitAddress(ref.Address)
		if oid == "" {
			continue
		}
		oid = normalizeOID(oid)
		if _, ok := byOID[oid]; !ok {
			oids = append(oids, oid)
		}
		byOID[oid] = append(byOID[oid], ref)
	}
	if len(oids) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pdus, err := s.Client.Get(oids)
	if err != nil {
		return nil, err
	}

	var out []backend.Sample
	for _, pdu := range pdus {
		for _, ref := range byOID[normalizeOID(pdu.Name)] {
			in, cerr := convert(ref, pdu)
			if cerr != nil {
				s.Logger.WithFields(logrus.Fields{"host": s.host, "oid": pdu.Name}).
					Debugf("Can't convert SNMP value: %v", cerr)
				out = append(out, backend.Sample{Ref: ref, Err: cerr})
				continue
			}
			out = append(out, backend.Sample{Ref: ref, Input: in})
		}
	}
	return out, nil
}

func (s *Sampler) Close() error {
	return s.Client.Close()
}

// convert turns one PDU into engine input for ref.
func convert(ref backend.Ref, pdu gosnmp.SnmpPDU) (interp.Input, error) {
	switch pdu.Type {
	case gosnmp.NoSuchObject:
		return interp.Input{}, ErrNoSuchObject
	case gosnmp.NoSuchInstance:
		return interp.Input{}, ErrNoSuchInstance
	}

	if ref.ReadingType == model.ReadingDiscrete || ref.HotSwap {
		_, code := backend.SplitAddress(ref.Address)
		n, isNum, err := number(pdu)
		if err != nil {
			return interp.Input{}, err
		}
		if code != "" {
			if isNum {
				return interp.EventInput(code, n.Sign() != 0), nil
			}
			str := strings.TrimSpace(text(pdu))
			return interp.EventInput(code, str != "" && str != "0"), nil
		}
		if !isNum {
			return interp.EventInput(strings.TrimSpace(text(pdu)), true), nil
		}
		code, err := eventCode(n)
		if err != nil {
			return interp.Input{}, err
		}
		return interp.EventInput(code, true), nil
	}

	switch pdu.Type {
	case gosnmp.OctetString:
		r, err := backend.ParseReading(ref.Kind, text(pdu))
		if err != nil {
			return interp.Input{}, err
		}
		return interp.AnalogInput(r), nil
	case gosnmp.OpaqueFloat:
		r, err := backend.FloatReading(ref.Kind, float64(pdu.Value.(float32)))
		if err != nil {
			return interp.Input{}, err
		}
		return interp.AnalogInput(r), nil
	case gosnmp.OpaqueDouble:
		r, err := backend.FloatReading(ref.Kind, pdu.Value.(float64))
		if err != nil {
			return interp.Input{}, err
		}
		return interp.AnalogInput(r), nil
	}

	n, isNum, err := number(pdu)
	if err != nil {
		return interp.Input{}, err
	}
	if !isNum {
		return interp.Input{}, fmt.Errorf("%w: %v", ErrUnsupportedType, pdu.Type)
	}
	switch ref.Kind {
	case model.NumericInt64:
		if !n.IsInt64() {
			return interp.Input{}, fmt.Errorf("%w: %s", backend.ErrKindMismatch, n.String())
		}
		return interp.AnalogInput(model.IntReading(n.Int64())), nil
	case model.NumericUint64:
		if !n.IsUint64() {
			return interp.Input{}, fmt.Errorf("%w: %s", backend.ErrKindMismatch, n.String())
		}
		return interp.AnalogInput(model.UintReading(n.Uint64())), nil
	}
	f, _ := new(big.Float).SetInt(n).Float64()
	return interp.AnalogInput(model.FloatReading(f)), nil
}

func number(pdu gosnmp.SnmpPDU) (*big.Int, bool, error) {
	switch pdu.Type {
	case gosnmp.Integer, gosnmp.Counter32, gosnmp.Gauge32, gosnmp.Counter64,
		gosnmp.Uinteger32, gosnmp.TimeTicks:
		return gosnmp.ToBigInt(pdu.Value), true, nil
	case gosnmp.OctetString:
		return nil, false, nil
	}
	return nil, false, fmt.Errorf("%w: %v", ErrUnsupportedType, pdu.Type)
}

// eventCode formats a numeric event value as a 32-bit code. Negative
// Integer32 values keep their two's complement bits.
func eventCode(n *big.Int) (string, error) {
	if !n.IsInt64() || n.Int64() < math.MinInt32 || n.Int64() > math.MaxUint32 {
		return "", fmt.Errorf("%w: event code %s is wider than 32 bits", backend.ErrKindMismatch, n)
	}
	return fmt.Sprintf("0x%08X", uint32(n.Int64())), nil
}

func text(pdu gosnmp.SnmpPDU) string {
	if b, ok := pdu.Value.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", pdu.Value)
}
