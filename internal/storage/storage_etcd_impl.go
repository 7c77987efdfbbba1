// MIT License
//
// (C) Copyright [2022-2023] Hewlett Packard Enterprise Development LP
//
// Permission is hereby granted, free of charge, to any person obtaining a
// copy of this software and associated documentation files (the "Software"),
// to deal in the Software without restriction, including without limitation
// the rights to use, copy, modify, merge, publish, distribute, sublicense,
// and/or sell copies of the Software, and to permit persons to whom the
// Software is furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included
// in all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL
// THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR
// OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE,
// ARISING FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR
// OTHER DEALINGS IN THE SOFTWARE.

package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	hmetcd "github.com/Cray-HPE/hms-hmetcd"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/Cray-HPE/hms-xname/xnametypes"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// This file contains interface functions for the ETCD implementation of HPI
// storage.   It will also be used for the in-memory implementation, indirectly,
// since the HMS ETCD package already provides both ETCD and in-memory
// implementations.

const (
	kvUrlMemDefault    = "mem:"
	kvUrlDefault       = kvUrlMemDefault //Default to in-memory implementation
	kvRetriesDefault   = 5
	keyPrefix          = "/hpi/"
	keySegPollerMaster = "/pollermaster"
	keySegAlarm        = "/alarm"
	keySegHotSwap      = "/hotswap"
	keySegDump         = "/dump"
	keyMin             = " "
	keyMax             = "~"
)

type ETCDStorage struct {
	Logger   *logrus.Logger
	mutex    *sync.Mutex
	kvHandle hmetcd.Kvi
}

func (e *ETCDStorage) fixUpKey(k string) string {
	key := k
	if !strings.HasPrefix(k, keyPrefix) {
		key = keyPrefix
		if strings.HasPrefix(k, "/") {
			key += k[1:]
		} else {
			key += k
		}
	}
	return key
}

////// ETCD /////

func (e *ETCDStorage) kvStore(key string, val interface{}) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	data, err := json.Marshal(val)
	if err == nil {
		realKey := e.fixUpKey(key)
		err = e.kvHandle.Store(realKey, string(data))
	}
	return err
}

func (e *ETCDStorage) kvGet(key string, val interface{}) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	realKey := e.fixUpKey(key)
	v, exists, err := e.kvHandle.Get(realKey)
	if exists {
		// We have a key, so val is valid.
		err = json.Unmarshal([]byte(v), val)
	} else if err == nil {
		// No key and no error.  We will return this condition as an error
		err = fmt.Errorf("Key %s %w", key, ErrNotExist)
	}
	return err
}

// Fetch all values whose key starts with the given prefix segment.
func (e *ETCDStorage) kvGetRange(prefix string) ([]hmetcd.Kvi_KV, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	k := e.fixUpKey(prefix)
	return e.kvHandle.GetRange(k+keyMin, k+keyMax)
}

// if a key doesnt exist, etcd doesn't return an error
func (e *ETCDStorage) kvDelete(key string) error {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	realKey := e.fixUpKey(key)
	e.Logger.Trace("delete" + realKey)
	return e.kvHandle.Delete(realKey)
}

// Do an atomic Test-And-Set operation
func (e *ETCDStorage) kvTAS(key string, testVal interface{}, setVal interface{}) (bool, error) {
	e.mutex.Lock()
	defer e.mutex.Unlock()
	tdata, err := json.Marshal(testVal)
	if err != nil {
		return false, err
	}
	sdata, err := json.Marshal(setVal)
	if err != nil {
		return false, err
	}
	realKey := e.fixUpKey(key)
	ok, err := e.kvHandle.TAS(realKey, string(tdata), string(sdata))
	return ok, err
}

func (e *ETCDStorage) Init(Logger *logrus.Logger) error {
	var kverr error

	if Logger == nil {
		e.Logger = logrus.New()
	} else {
		e.Logger = Logger
	}

	e.mutex = &sync.Mutex{}
	retries := kvRetriesDefault
	host, hostExists := os.LookupEnv("ETCD_HOST")
	if !hostExists {
		e.kvHandle = nil
		return fmt.Errorf("No ETCD HOST specified, can't open ETCD.")
	}
	port, portExists := os.LookupEnv("ETCD_PORT")
	if !portExists {
		e.kvHandle = nil
		return fmt.Errorf("No ETCD PORT specified, can't open ETCD.")
	}

	kvURL := fmt.Sprintf("http://%s:%s", host, port)
	e.Logger.Info(kvURL)

	etcOK := false
	for ix := 1; ix <= retries; ix++ {
		e.kvHandle, kverr = hmetcd.Open(kvURL, "")
		if kverr != nil {
			e.Logger.Error("ERROR opening connection to ETCD (attempt ", ix, "):", kverr)
		} else {
			etcOK = true
			e.Logger.Info("ETCD connection succeeded.")
			break
		}
	}
	if !etcOK {
		e.kvHandle = nil
		return fmt.Errorf("ETCD connection attempts exhausted, can't connect.")
	}
	return nil
}

func (e *ETCDStorage) Ping() error {
	e.Logger.Debug("ETCD PING")
	key := fmt.Sprintf("/ping/%s", uuid.New().String())
	err := e.kvStore(key, "")
	if err == nil {
		err = e.kvDelete(key)
	}
	return err
}

///////////////////////
// Poller mastership
///////////////////////

func pollerMasterKey(domainID uint32) string {
	return fmt.Sprintf("%s/%d", keySegPollerMaster, domainID)
}

func (e *ETCDStorage) GetPollerMaster(domainID uint32) (time.Time, error) {
	var lastUpdated time.Time
	err := e.kvGet(pollerMasterKey(domainID), &lastUpdated)
	if err != nil {
		e.Logger.Debug(err)
	}
	return lastUpdated, err
}

func (e *ETCDStorage) StorePollerMaster(domainID uint32, now time.Time) error {
	err := e.kvStore(pollerMasterKey(domainID), now)
	if err != nil {
		e.Logger.Error(err)
	}
	return err
}

func (e *ETCDStorage) TASPollerMaster(domainID uint32, now time.Time, testVal time.Time) (bool, error) {
	ok, err := e.kvTAS(pollerMasterKey(domainID), testVal, now)
	if err != nil {
		e.Logger.Error(err)
	}
	return ok, err
}

///////////////////////
// Alarms
///////////////////////

// Alarm ids are zero padded so a range read comes back in id order.
func alarmKey(domainID uint32, id model.AlarmID) string {
	return fmt.Sprintf("%s/%d/%08x", keySegAlarm, domainID, uint32(id))
}

func validAlarmID(id model.AlarmID) error {
	if id == model.FirstEntry || id == model.LastEntry {
		return fmt.Errorf("Error: alarm id 0x%08x is reserved.", uint32(id))
	}
	return nil
}

func (e *ETCDStorage) StoreAlarm(domainID uint32, a model.Alarm) error {
	if err := validAlarmID(a.AlarmID); err != nil {
		return err
	}
	err := e.kvStore(alarmKey(domainID, a.AlarmID), a)
	if err != nil {
		e.Logger.Error(err)
	}
	return err
}

func (e *ETCDStorage) DeleteAlarm(domainID uint32, id model.AlarmID) error {
	if err := validAlarmID(id); err != nil {
		return err
	}
	err := e.kvDelete(alarmKey(domainID, id))
	if err != nil {
		e.Logger.Error(err)
	}
	return err
}

func (e *ETCDStorage) GetAlarm(domainID uint32, id model.AlarmID) (model.Alarm, error) {
	var a model.Alarm
	if err := validAlarmID(id); err != nil {
		return a, err
	}
	err := e.kvGet(alarmKey(domainID, id), &a)
	if err != nil {
		e.Logger.Debug(err)
	}
	return a, err
}

func (e *ETCDStorage) GetAllAlarms(domainID uint32) ([]model.Alarm, error) {
	var alarms []model.Alarm
	kvl, err := e.kvGetRange(fmt.Sprintf("%s/%d/", keySegAlarm, domainID))
	if err != nil {
		e.Logger.Error(err)
		return alarms, err
	}
	for _, kv := range kvl {
		var a model.Alarm
		err = json.Unmarshal([]byte(kv.Value), &a)
		if err != nil {
			e.Logger.Error(err)
		} else {
			alarms = append(alarms, a)
		}
	}
	sort.Slice(alarms, func(i, j int) bool { return alarms[i].AlarmID < alarms[j].AlarmID })
	return alarms, nil
}

///////////////////////
// Hot-swap state
///////////////////////

func (e *ETCDStorage) StoreHotSwapState(location string, rt model.HotSwapRuntime) error {
	if !(xnametypes.IsHMSCompIDValid(location)) {
		return fmt.Errorf("Error parsing '%s': invalid xname format.", location)
	}
	key := fmt.Sprintf("%s/%s", keySegHotSwap, xnametypes.NormalizeHMSCompID(location))
	err := e.kvStore(key, rt)
	if err != nil {
		e.Logger.Error(err)
	}
	return err
}

func (e *ETCDStorage) GetHotSwapState(location string) (model.HotSwapRuntime, error) {
	var rt model.HotSwapRuntime
	if !(xnametypes.IsHMSCompIDValid(location)) {
		return rt, fmt.Errorf("Error parsing '%s': invalid xname format.", location)
	}
	key := fmt.Sprintf("%s/%s", keySegHotSwap, xnametypes.NormalizeHMSCompID(location))
	err := e.kvGet(key, &rt)
	if err != nil {
		e.Logger.Debug(err)
	}
	return rt, err
}

func (e *ETCDStorage) DeleteHotSwapState(location string) error {
	if !(xnametypes.IsHMSCompIDValid(location)) {
		return fmt.Errorf("Error parsing '%s': invalid xname format.", location)
	}
	key := fmt.Sprintf("%s/%s", keySegHotSwap, xnametypes.NormalizeHMSCompID(location))
	err := e.kvDelete(key)
	if err != nil {
		e.Logger.Error(err)
	}
	return err
}

///////////////////////
// Domain dump
///////////////////////

func (e *ETCDStorage) StoreDump(d model.DomainDump) error {
	key := fmt.Sprintf("%s/%d", keySegDump, d.Domain.DomainID)
	err := e.kvStore(key, d)
	if err != nil {
		e.Logger.Error(err)
	}
	return err
}

func (e *ETCDStorage) GetDump(domainID uint32) (model.DomainDump, error) {
	var d model.DomainDump
	key := fmt.Sprintf("%s/%d", keySegDump, domainID)
	err := e.kvGet(key, &d)
	if err != nil {
		e.Logger.Debug(err)
	}
	return d, err
}
