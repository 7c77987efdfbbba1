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

package snapshot

import (
	"context"
	"errors"
	"fmt"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/Cray-HPE/hms-hpi/internal/tablestore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// ErrNotPresent ends a table walk. Sources return it (or wrap it) when a
// cursor addresses no entry.
var ErrNotPresent = tablestore.ErrNotPresent

// ErrAttemptsExhausted is returned when a bounded reader gives up because
// the table kept changing underneath it.
var ErrAttemptsExhausted = errors.New("snapshot attempts exhausted")

// Source is the raw, cursor-addressed view of a domain's tables.
type Source interface {
	DomainInfo(ctx context.Context) (model.DomainInfo, error)
	DrtEntry(ctx context.Context, cursor model.EntryID) (model.DrtEntry, model.EntryID, error)
	RptEntry(ctx context.Context, cursor model.EntryID) (model.ResourceEntry, model.EntryID, error)
	RdrEntry(ctx context.Context, rid model.ResourceID, cursor model.EntryID) (model.InstrumentEntry, model.EntryID, error)
	RdrUpdateCount(ctx context.Context, rid model.ResourceID) (uint32, error)
	AlarmEntry(ctx context.Context, cursor model.EntryID) (model.Alarm, model.EntryID, error)
}

// SourceFault is a hard failure of the source while reading a table.
type SourceFault struct {
	Table    model.TableKind
	Op       string
	Cursor   model.EntryID
	Resource *model.ResourceID
	Err      error
}

func (f *SourceFault) Error() string {
	if f.Resource != nil {
		return fmt.Sprintf("%s snapshot of resource %d failed during %s at cursor 0x%08x: %v",
			f.Table, *f.Resource, f.Op, uint32(f.Cursor), f.Err)
	}
	return fmt.Sprintf("%s snapshot failed during %s at cursor 0x%08x: %v",
		f.Table, f.Op, uint32(f.Cursor), f.Err)
}

func (f *SourceFault) Unwrap() error { return f.Err }

var (
	snapshotAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpi_snapshot_attempts_total",
		Help: "Snapshot attempts by table",
	}, []string{"table"})

	snapshotRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpi_snapshot_retries_total",
		Help: "Snapshot attempts discarded because the table changed",
	}, []string{"table"})

	snapshotFaults = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpi_snapshot_faults_total",
		Help: "Snapshots aborted by a source fault",
	}, []string{"table"})
)

// Reader produces consistent copies of a domain's tables without locking
// them, retrying whenever the table's update counter moved during a walk.
type Reader struct {
	Source Source
	Logger *logrus.Logger

	// MaxAttempts bounds the retries of one snapshot. Zero retries until
	// the table holds still long enough to be read.
	MaxAttempts int

	// OnAttempt, if set, is called at the start of every attempt.
	OnAttempt func(table model.TableKind, attempt int)
}

func NewReader(src Source, logger *logrus.Logger) *Reader {
	if logger == nil {
		logger = logrus.New()
	}
	return &Reader{Source: src, Logger: logger}
}

// errTorn marks an attempt that observed a concurrent change through some
// other path than its own counter, e.g. a resource vanishing between its
// RPT entry and its instrument list.
var errTorn = errors.New("torn read")

// table describes one walkable table for Snapshot.
type table[T, D any] struct {
	kind     model.TableKind
	resource *model.ResourceID
	describe func(ctx context.Context) (D, uint32, error)
	next     func(ctx context.Context, cursor model.EntryID) (T, model.EntryID, error)
	visit    func(ctx context.Context, e *T) error
}

func (r *Reader) fault(kind model.TableKind, op string, cursor model.EntryID,
	rid *model.ResourceID, err error) error {
	snapshotFaults.WithLabelValues(kind.String()).Inc()
	r.Logger.WithFields(logrus.Fields{"table": kind.String(), "op": op,
		"cursor": uint32(cursor)}).Errorf("Snapshot aborted: %v", err)
	return &SourceFault{Table: kind, Op: op, Cursor: cursor, Resource: rid, Err: err}
}

func snapshot[T, D any](ctx context.Context, r *Reader, t table[T, D]) ([]T, D, error) {
	var zero D
	label := t.kind.String()

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, zero, err
		}
		if r.MaxAttempts > 0 && attempt > r.MaxAttempts {
			return nil, zero, fmt.Errorf("%w: %s after %d attempts",
				ErrAttemptsExhausted, label, r.MaxAttempts)
		}
		if attempt > 1 {
			snapshotRetries.WithLabelValues(label).Inc()
		}
		snapshotAttempts.WithLabelValues(label).Inc()
		if r.OnAttempt != nil {
			r.OnAttempt(t.kind, attempt)
		}

		desc, before, err := t.describe(ctx)
		if err != nil {
			if t.resource != nil && errors.Is(err, ErrNotPresent) {
				return nil, zero, fmt.Errorf("resource %d: %w", *t.resource, err)
			}
			return nil, zero, r.fault(t.kind, "descriptor read", model.FirstEntry, t.resource, err)
		}

		entries := []T{}
		torn := false
		cursor := model.FirstEntry
		for cursor != model.LastEntry {
			e, next, err := t.next(ctx, cursor)
			if errors.Is(err, ErrNotPresent) {
				break
			}
			if err != nil {
				return nil, zero, r.fault(t.kind, "entry read", cursor, t.resource, err)
			}
			if t.visit != nil {
				if verr := t.visit(ctx, &e); verr != nil {
					if errors.Is(verr, errTorn) {
						torn = true
						break
					}
					return nil, zero, verr
				}
			}
			entries = append(entries, e)
			cursor = next
		}

		if !torn {
			_, after, err := t.describe(ctx)
			if err != nil {
				if t.resource != nil && errors.Is(err, ErrNotPresent) {
					return nil, zero, fmt.Errorf("resource %d: %w", *t.resource, err)
				}
				return nil, zero, r.fault(t.kind, "descriptor re-read", cursor, t.resource, err)
			}
			if after == before {
				return entries, desc, nil
			}
		}
		r.Logger.WithFields(logrus.Fields{"table": label, "attempt": attempt}).
			Debug("Table changed during snapshot, retrying")
	}
}

func (r *Reader) domainTable(kind model.TableKind) func(ctx context.Context) (model.DomainInfo, uint32, error) {
	return func(ctx context.Context) (model.DomainInfo, uint32, error) {
		di, err := r.Source.DomainInfo(ctx)
		if err != nil {
			return di, 0, err
		}
		return di, di.Counter(kind), nil
	}
}

// FetchDrt returns a consistent copy of the domain reference table and the
// descriptor it is consistent with.
func (r *Reader) FetchDrt(ctx context.Context) ([]model.DrtEntry, model.DomainInfo, error) {
	return snapshot(ctx, r, table[model.DrtEntry, model.DomainInfo]{
		kind:     model.TableDomainReference,
		describe: r.domainTable(model.TableDomainReference),
		next:     r.Source.DrtEntry,
	})
}

// FetchDat returns a consistent copy of the alarm table.
func (r *Reader) FetchDat(ctx context.Context) ([]model.Alarm, model.DomainInfo, error) {
	return snapshot(ctx, r, table[model.Alarm, model.DomainInfo]{
		kind:     model.TableAlarm,
		describe: r.domainTable(model.TableAlarm),
		next:     r.Source.AlarmEntry,
	})
}

// FetchInstruments returns a consistent copy of one resource's instrument
// list and the instrument update counter it matches.
func (r *Reader) FetchInstruments(ctx context.Context, rid model.ResourceID) ([]model.InstrumentEntry, uint32, error) {
	res := rid
	return snapshot(ctx, r, table[model.InstrumentEntry, uint32]{
		kind:     model.TableResourcePresence,
		resource: &res,
		describe: func(ctx context.Context) (uint32, uint32, error) {
			c, err := r.Source.RdrUpdateCount(ctx, rid)
			return c, c, err
		},
		next: func(ctx context.Context, cursor model.EntryID) (model.InstrumentEntry, model.EntryID, error) {
			return r.Source.RdrEntry(ctx, rid, cursor)
		},
	})
}

// FetchResources returns a consistent copy of the resource table. Every
// resource that carries instruments is returned with its own consistent
// instrument list.
func (r *Reader) FetchResources(ctx context.Context) ([]model.Resource, model.DomainInfo, error) {
	next := func(ctx context.Context, cursor model.EntryID) (model.Resource, model.EntryID, error) {
		e, n, err := r.Source.RptEntry(ctx, cursor)
		return model.Resource{Entry: e, Instruments: []model.InstrumentEntry{}}, n, err
	}
	visit := func(ctx context.Context, res *model.Resource) error {
		if !res.Entry.Capabilities.Has(model.CapRDR) {
			return nil
		}
		instr, count, err := r.FetchInstruments(ctx, res.Entry.ResourceID)
		if err != nil {
			var sf *SourceFault
			if !errors.As(err, &sf) && errors.Is(err, ErrNotPresent) {
				return errTorn
			}
			return err
		}
		res.Instruments = instr
		res.InstrumentUpdateCount = count
		return nil
	}
	return snapshot(ctx, r, table[model.Resource, model.DomainInfo]{
		kind:     model.TableResourcePresence,
		describe: r.domainTable(model.TableResourcePresence),
		next:     next,
		visit:    visit,
	})
}
