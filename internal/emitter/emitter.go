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

package emitter

import (
	"context"
	"errors"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Emitter delivers instrument events to a consumer. Emit is called from the
// poller goroutine and must not block for long.
type Emitter interface {
	Emit(ctx context.Context, ev model.Event) error
}

// EmitterFunc adapts a function to the Emitter interface.
type EmitterFunc func(ctx context.Context, ev model.Event) error

func (f EmitterFunc) Emit(ctx context.Context, ev model.Event) error { return f(ctx, ev) }

var emitted = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "hpi_events_emitted_total",
	Help: "Events handed to each sink, by result",
}, []string{"sink", "result"})

func count(sink string, err error) {
	if err != nil {
		emitted.WithLabelValues(sink, "error").Inc()
		return
	}
	emitted.WithLabelValues(sink, "ok").Inc()
}

// Multi fans an event out to every sink. A failing sink does not keep the
// event from the others; all errors are returned joined.
type Multi []Emitter

func (m Multi) Emit(ctx context.Context, ev model.Event) error {
	var errs []error
	for _, e := range m {
		if err := e.Emit(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogEmitter writes every event to a logrus logger.
type LogEmitter struct {
	Logger *logrus.Logger
}

func NewLogEmitter(logger *logrus.Logger) *LogEmitter {
	if logger == nil {
		logger = logrus.New()
	}
	return &LogEmitter{Logger: logger}
}

func (l *LogEmitter) Emit(ctx context.Context, ev model.Event) error {
	fields := logrus.Fields{
		"id":         ev.ID,
		"source":     ev.Source.String(),
		"instrument": ev.Instrument.String(),
		"previous":   ev.StateString(ev.Previous),
		"state":      ev.StateString(ev.State),
		"asserted":   ev.Asserted,
	}
	if ev.Location != "" {
		fields["location"] = ev.Location
	}
	if ev.Recovery != nil {
		fields["recovery"] = ev.StateString(*ev.Recovery)
	}
	entry := l.Logger.WithFields(fields)
	switch {
	case ev.FailureUnexpected:
		entry.Errorf("Unexpected failure: %s", ev.Description)
	case ev.Failure:
		entry.Warnf("Failure: %s", ev.Description)
	default:
		entry.Infof("Event: %s", ev.Description)
	}
	count("log", nil)
	return nil
}
