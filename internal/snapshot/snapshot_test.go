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
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/Cray-HPE/hms-hpi/internal/tablestore"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
)

// fakeSource serves tables held in table stores and lets a test interfere
// with a walk in progress.
type fakeSource struct {
	drt *tablestore.Store[model.DrtEntry]
	rpt *tablestore.Store[model.ResourceEntry]
	dat *tablestore.Store[model.Alarm]
	rdr map[model.ResourceID]*tablestore.Store[model.InstrumentEntry]

	mu       sync.Mutex
	onNext   func(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error
	onCount  func(rid model.ResourceID)
	descErr  error
	rdrReads int
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		drt: tablestore.New(func(e model.DrtEntry) model.EntryID { return e.EntryID }),
		rpt: tablestore.New(func(e model.ResourceEntry) model.EntryID { return e.ResourceID }),
		dat: tablestore.New(func(e model.Alarm) model.EntryID { return e.AlarmID }),
		rdr: map[model.ResourceID]*tablestore.Store[model.InstrumentEntry]{},
	}
}

func (f *fakeSource) addResource(rid model.ResourceID, instruments ...uint32) {
	caps := model.CapResource
	if len(instruments) > 0 {
		caps |= model.CapRDR | model.CapSensor
	}
	f.rpt.Upsert(model.ResourceEntry{ResourceID: rid, Capabilities: caps})
	st := tablestore.New(func(e model.InstrumentEntry) model.EntryID { return e.RecordID })
	for _, n := range instruments {
		st.Upsert(model.InstrumentEntry{RecordID: model.EntryID(n), Num: n})
	}
	f.mu.Lock()
	f.rdr[rid] = st
	f.mu.Unlock()
}

func (f *fakeSource) removeResource(rid model.ResourceID) {
	f.mu.Lock()
	delete(f.rdr, rid)
	f.mu.Unlock()
	f.rpt.Delete(rid)
}

func (f *fakeSource) hook(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error {
	f.mu.Lock()
	h := f.onNext
	f.mu.Unlock()
	if h != nil {
		return h(kind, rid, cursor)
	}
	return nil
}

func (f *fakeSource) DomainInfo(ctx context.Context) (model.DomainInfo, error) {
	if f.descErr != nil {
		return model.DomainInfo{}, f.descErr
	}
	var di model.DomainInfo
	di.RptUpdateCount, di.RptUpdateTimestamp = f.rpt.Counter()
	di.DrtUpdateCount, di.DrtUpdateTimestamp = f.drt.Counter()
	di.DatUpdateCount, di.DatUpdateTimestamp = f.dat.Counter()
	return di, nil
}

func (f *fakeSource) DrtEntry(ctx context.Context, cursor model.EntryID) (model.DrtEntry, model.EntryID, error) {
	if err := f.hook(model.TableDomainReference, nil, cursor); err != nil {
		return model.DrtEntry{}, model.LastEntry, err
	}
	return f.drt.Next(cursor)
}

func (f *fakeSource) RptEntry(ctx context.Context, cursor model.EntryID) (model.ResourceEntry, model.EntryID, error) {
	if err := f.hook(model.TableResourcePresence, nil, cursor); err != nil {
		return model.ResourceEntry{}, model.LastEntry, err
	}
	return f.rpt.Next(cursor)
}

func (f *fakeSource) rdrStore(rid model.ResourceID) (*tablestore.Store[model.InstrumentEntry], bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.rdr[rid]
	return st, ok
}

func (f *fakeSource) RdrEntry(ctx context.Context, rid model.ResourceID, cursor model.EntryID) (model.InstrumentEntry, model.EntryID, error) {
	if err := f.hook(model.TableResourcePresence, &rid, cursor); err != nil {
		return model.InstrumentEntry{}, model.LastEntry, err
	}
	st, ok := f.rdrStore(rid)
	if !ok {
		return model.InstrumentEntry{}, model.LastEntry, ErrNotPresent
	}
	return st.Next(cursor)
}

func (f *fakeSource) RdrUpdateCount(ctx context.Context, rid model.ResourceID) (uint32, error) {
	f.mu.Lock()
	f.rdrReads++
	h := f.onCount
	f.mu.Unlock()
	if h != nil {
		h(rid)
	}
	st, ok := f.rdrStore(rid)
	if !ok {
		return 0, ErrNotPresent
	}
	c, _ := st.Counter()
	return c, nil
}

func (f *fakeSource) AlarmEntry(ctx context.Context, cursor model.EntryID) (model.Alarm, model.EntryID, error) {
	if err := f.hook(model.TableAlarm, nil, cursor); err != nil {
		return model.Alarm{}, model.LastEntry, err
	}
	return f.dat.Next(cursor)
}

type SnapshotTS struct {
	suite.Suite
	src      *fakeSource
	reader   *Reader
	attempts map[model.TableKind]int
}

func (suite *SnapshotTS) SetupTest() {
	suite.src = newFakeSource()
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	suite.reader = NewReader(suite.src, logger)
	suite.attempts = map[model.TableKind]int{}
	suite.reader.OnAttempt = func(kind model.TableKind, attempt int) {
		suite.attempts[kind]++
	}
}

func (suite *SnapshotTS) TestEmptyTables() {
	drt, _, err := suite.reader.FetchDrt(context.Background())
	suite.Require().NoError(err)
	suite.NotNil(drt)
	suite.Len(drt, 0)

	dat, _, err := suite.reader.FetchDat(context.Background())
	suite.Require().NoError(err)
	suite.Len(dat, 0)

	rpt, _, err := suite.reader.FetchResources(context.Background())
	suite.Require().NoError(err)
	suite.Len(rpt, 0)
}

func (suite *SnapshotTS) TestQuiescentSingleAttempt() {
	for id := model.EntryID(1); id <= 4; id++ {
		suite.src.drt.Upsert(model.DrtEntry{EntryID: id, DomainID: uint32(id)})
	}
	drt, di, err := suite.reader.FetchDrt(context.Background())
	suite.Require().NoError(err)
	suite.Len(drt, 4)
	suite.Equal(uint32(4), di.DrtUpdateCount)
	suite.Equal(1, suite.attempts[model.TableDomainReference])
}

func (suite *SnapshotTS) TestMutationDuringWalkRetries() {
	for id := model.EntryID(1); id <= 3; id++ {
		suite.src.drt.Upsert(model.DrtEntry{EntryID: id})
	}
	var once sync.Once
	suite.src.onNext = func(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error {
		if cursor == 2 {
			once.Do(func() {
				suite.src.drt.Delete(1)
				suite.src.drt.Upsert(model.DrtEntry{EntryID: 7})
			})
		}
		return nil
	}
	drt, di, err := suite.reader.FetchDrt(context.Background())
	suite.Require().NoError(err)
	suite.Equal(2, suite.attempts[model.TableDomainReference])
	suite.Equal([]model.DrtEntry{{EntryID: 2}, {EntryID: 3}, {EntryID: 7}}, drt)
	c, _ := suite.src.drt.Counter()
	suite.Equal(c, di.DrtUpdateCount)
}

func (suite *SnapshotTS) TestEntryFaultAborts() {
	for id := model.AlarmID(1); id <= 3; id++ {
		suite.src.dat.Upsert(model.Alarm{AlarmID: id})
	}
	boom := errors.New("bus timeout")
	suite.src.onNext = func(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error {
		if cursor == 2 {
			return boom
		}
		return nil
	}
	dat, _, err := suite.reader.FetchDat(context.Background())
	suite.Nil(dat)
	var sf *SourceFault
	suite.Require().True(errors.As(err, &sf))
	suite.Equal(model.TableAlarm, sf.Table)
	suite.Equal(model.EntryID(2), sf.Cursor)
	suite.ErrorIs(err, boom)
	suite.Equal(1, suite.attempts[model.TableAlarm], "faults are not retried")
}

func (suite *SnapshotTS) TestDescriptorFaultAborts() {
	suite.src.descErr = errors.New("no domain")
	_, _, err := suite.reader.FetchDrt(context.Background())
	var sf *SourceFault
	suite.Require().True(errors.As(err, &sf))
	suite.Equal("descriptor read", sf.Op)
	suite.Equal(model.TableDomainReference, sf.Table)
}

func (suite *SnapshotTS) TestMaxAttempts() {
	suite.src.drt.Upsert(model.DrtEntry{EntryID: 1})
	n := uint32(100)
	suite.src.onNext = func(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error {
		n++
		suite.src.drt.Upsert(model.DrtEntry{EntryID: 1, DomainID: n})
		return nil
	}
	suite.reader.MaxAttempts = 3
	_, _, err := suite.reader.FetchDrt(context.Background())
	suite.ErrorIs(err, ErrAttemptsExhausted)
	suite.Equal(3, suite.attempts[model.TableDomainReference])
}

func (suite *SnapshotTS) TestCancelledContext() {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := suite.reader.FetchDrt(ctx)
	suite.ErrorIs(err, context.Canceled)
}

func (suite *SnapshotTS) TestNestedInstruments() {
	suite.src.addResource(1, 1, 2, 3)
	suite.src.addResource(2)
	suite.src.addResource(3, 10)

	rpt, di, err := suite.reader.FetchResources(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(rpt, 3)
	suite.Len(rpt[0].Instruments, 3)
	suite.Len(rpt[1].Instruments, 0)
	suite.Len(rpt[2].Instruments, 1)
	suite.Equal(uint32(3), rpt[0].InstrumentUpdateCount)
	suite.Equal(uint32(3), di.RptUpdateCount)
	suite.Equal(2, suite.src.rdrReads/2, "two instrument lists, two counter reads each")
}

func (suite *SnapshotTS) TestNestedInstrumentListChanges() {
	suite.src.addResource(1, 1, 2, 3)
	var once sync.Once
	suite.src.onNext = func(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error {
		if rid != nil && cursor == 2 {
			once.Do(func() {
				st, _ := suite.src.rdrStore(1)
				st.Upsert(model.InstrumentEntry{RecordID: 4, Num: 4})
			})
		}
		return nil
	}
	rpt, _, err := suite.reader.FetchResources(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(rpt, 1)
	suite.Len(rpt[0].Instruments, 4)
	suite.Equal(uint32(4), rpt[0].InstrumentUpdateCount)
}

func (suite *SnapshotTS) TestResourceVanishesMidWalk() {
	suite.src.addResource(1, 1)
	suite.src.addResource(2, 1)
	var once sync.Once
	suite.src.onNext = func(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error {
		if rid == nil && kind == model.TableResourcePresence && cursor == 2 {
			once.Do(func() { suite.src.removeResource(2) })
		}
		return nil
	}
	rpt, _, err := suite.reader.FetchResources(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(rpt, 1)
	suite.Equal(model.ResourceID(1), rpt[0].Entry.ResourceID)
}

func (suite *SnapshotTS) TestResourceVanishesBeforeInstruments() {
	suite.src.addResource(1, 1)
	suite.src.addResource(2, 1)
	var once sync.Once
	suite.src.onCount = func(rid model.ResourceID) {
		if rid == 2 {
			once.Do(func() { suite.src.removeResource(2) })
		}
	}
	rpt, _, err := suite.reader.FetchResources(context.Background())
	suite.Require().NoError(err)
	suite.Require().Len(rpt, 1)
	suite.Equal(model.ResourceID(1), rpt[0].Entry.ResourceID)
	suite.Equal(5, suite.attempts[model.TableResourcePresence],
		"two outer attempts plus three nested instrument attempts")
}

func (suite *SnapshotTS) TestInstrumentsOfMissingResource() {
	_, _, err := suite.reader.FetchInstruments(context.Background(), 99)
	suite.ErrorIs(err, ErrNotPresent)
	var sf *SourceFault
	suite.False(errors.As(err, &sf))
}

func (suite *SnapshotTS) TestNestedFaultCarriesResource() {
	suite.src.addResource(5, 1, 2)
	boom := errors.New("i2c nak")
	suite.src.onNext = func(kind model.TableKind, rid *model.ResourceID, cursor model.EntryID) error {
		if rid != nil && cursor == 2 {
			return boom
		}
		return nil
	}
	rpt, _, err := suite.reader.FetchResources(context.Background())
	suite.Nil(rpt)
	var sf *SourceFault
	suite.Require().True(errors.As(err, &sf))
	suite.Require().NotNil(sf.Resource)
	suite.Equal(model.ResourceID(5), *sf.Resource)
	suite.ErrorIs(err, boom)
}

// A writer keeps rewriting the table with entries that all carry the same
// generation number. Every snapshot must come from a single generation.
func (suite *SnapshotTS) TestNeverTorn() {
	const width = 8
	const generations = 500
	var done atomic.Bool
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer done.Store(true)
		for g := uint32(1); g <= generations; g++ {
			entries := make([]model.DrtEntry, width)
			for ix := range entries {
				entries[ix] = model.DrtEntry{EntryID: model.EntryID(ix + 1), DomainID: g}
			}
			suite.src.drt.Replace(entries)
		}
	}()

	reader := NewReader(suite.src, suite.reader.Logger)
	for !done.Load() {
		drt, di, err := reader.FetchDrt(context.Background())
		suite.Require().NoError(err)
		if len(drt) == 0 {
			continue
		}
		suite.Require().Len(drt, width)
		for _, e := range drt {
			suite.Require().Equal(drt[0].DomainID, e.DomainID, "torn snapshot")
		}
		suite.Require().Equal(drt[0].DomainID, di.DrtUpdateCount)
	}
	wg.Wait()
}

func TestSnapshotSuite(t *testing.T) {
	suite.Run(t, new(SnapshotTS))
}
