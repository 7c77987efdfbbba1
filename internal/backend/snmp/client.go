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
	"fmt"
	"sync"
	"time"

	"github.com/gosnmp/gosnmp"
)

// Client is the part of an SNMP session the sampler needs.
type Client interface {
	Get(oids []string) ([]gosnmp.SnmpPDU, error)
	Close() error
}

// SNMPError wraps an SNMP failure with the operation and target.
type SNMPError struct {
	Op      string
	Target  string
	Wrapped error
}

func (e *SNMPError) Error() string {
	return fmt.Sprintf("SNMP %s failed for target %s: %v", e.Op, e.Target, e.Wrapped)
}

func (e *SNMPError) Unwrap() error { return e.Wrapped }

type Target struct {
	Host      string
	Port      uint16
	Community string
	Version   gosnmp.SnmpVersion
	Timeout   time.Duration
	Retries   int
}

// session is a gosnmp connection that reconnects after any failure.
type session struct {
	mu        sync.Mutex
	client    *gosnmp.GoSNMP
	target    Target
	connected bool
}

func newSession(t Target) *session {
	return &session{target: t, client: &gosnmp.GoSNMP{
		Target:             t.Host,
		Port:               t.Port,
		Community:          t.Community,
		Version:            t.Version,
		Timeout:            t.Timeout,
		Retries:            t.Retries,
		ExponentialTimeout: true,
		MaxOids:            gosnmp.MaxOids,
	}}
}

func (s *session) Get(oids []string) ([]gosnmp.SnmpPDU, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.connected {
		if err := s.client.Connect(); err != nil {
			return nil, &SNMPError{Op: "connect", Target: s.target.Host, Wrapped: err}
		}
		s.connected = true
	}

	var pdus []gosnmp.SnmpPDU
	for i := 0; i < len(oids); i += gosnmp.MaxOids {
		end := i + gosnmp.MaxOids
		if end > len(oids) {
			end = len(oids)
		}
		result, err := s.client.Get(oids[i:end])
		if err != nil {
			s.client.Conn.Close()
			s.connected = false
			return nil, &SNMPError{Op: "get", Target: s.target.Host, Wrapped: err}
		}
		pdus = append(pdus, result.Variables...)
	}
	return pdus, nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.connected {
		return nil
	}
	s.connected = false
	return s.client.Conn.Close()
}
