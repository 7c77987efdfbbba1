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

package domain

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/emitter"
	"github.com/Cray-HPE/hms-hpi/internal/logger"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/Cray-HPE/hms-hpi/internal/profile"
	"github.com/Cray-HPE/hms-hpi/internal/snapshot"
	"github.com/Cray-HPE/hms-hpi/internal/storage"
	"github.com/Cray-HPE/hms-hpi/internal/tablestore"
)

// The functions below back the REST API.  Each returns a Passback holding
// either the response object or an RFC 7807 problem.

const (
	ParamPollInterval   = "pollInterval"
	ParamLogLevel       = "logLevel"
	ParamUserAlarmLimit = "userAlarmLimit"
)

var ErrNoParam = errors.New("no such parameter")

func statusOf(err error) int {
	var sf *snapshot.SourceFault
	switch {
	case errors.As(err, &sf):
		return http.StatusInternalServerError
	case errors.Is(err, ErrNoResource), errors.Is(err, ErrNoAlarm),
		errors.Is(err, ErrNoPlugin), errors.Is(err, ErrNoHandler),
		errors.Is(err, ErrNoParam), errors.Is(err, tablestore.ErrNotPresent),
		errors.Is(err, storage.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, ErrPluginInUse), errors.Is(err, ErrPluginLoaded),
		errors.Is(err, ErrHandlerExists), errors.Is(err, ErrReservation):
		return http.StatusConflict
	case IsBadRequest(err), errors.Is(err, ErrNotBound), errors.Is(err, ErrNoPluginParam):
		return http.StatusBadRequest
	case errors.Is(err, emitter.ErrAlarmTableFull):
		return http.StatusInsufficientStorage
	}
	return http.StatusInternalServerError
}

func failed(err error) model.Passback {
	return model.BuildErrorPassback(statusOf(err), err)
}

////// Tables //////

func GetDomainInfo(ctx context.Context) (pb model.Passback) {
	di, err := GLOB.Domain.DomainInfo(ctx)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, di)
}

func GetDrt(ctx context.Context) (pb model.Passback) {
	entries, di, err := GLOB.Domain.Reader.FetchDrt(ctx)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, model.DrtResponse{Domain: di, Entries: nonNil(entries)})
}

func GetRpt(ctx context.Context) (pb model.Passback) {
	resources, di, err := GLOB.Domain.Reader.FetchResources(ctx)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, model.RptResponse{Domain: di, Resources: nonNil(resources)})
}

func GetRdr(ctx context.Context, rid model.ResourceID) (pb model.Passback) {
	instr, count, err := GLOB.Domain.Reader.FetchInstruments(ctx, rid)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK,
		model.RdrResponse{ResourceID: rid, UpdateCount: count, Instruments: nonNil(instr)})
}

func GetDat(ctx context.Context) (pb model.Passback) {
	alarms, di, err := GLOB.Domain.Reader.FetchDat(ctx)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, model.DatResponse{Domain: di, Alarms: nonNil(alarms)})
}

// GetDump returns a fresh dump, or with stored set the last one any
// instance wrote to storage.
func GetDump(ctx context.Context, stored bool) (pb model.Passback) {
	if stored {
		if GLOB.DSP == nil {
			return failed(fmt.Errorf("dump of domain %d: %w", GLOB.Domain.ID, storage.ErrNotExist))
		}
		dump, err := GLOB.DSP.GetDump(GLOB.Domain.ID)
		if err != nil {
			return failed(err)
		}
		return model.BuildSuccessPassback(http.StatusOK, dump)
	}
	dump, err := GLOB.Domain.Dump(ctx)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, dump)
}

func AckAlarm(id model.AlarmID) (pb model.Passback) {
	a, err := GLOB.Domain.AckAlarm(id)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, a)
}

func DeleteAlarm(id model.AlarmID) (pb model.Passback) {
	if err := GLOB.Domain.DeleteAlarm(id); err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusNoContent, nil)
}

func RequestHotSwap(ctx context.Context, rid model.ResourceID, req model.HotSwapRequest) (pb model.Passback) {
	rt, err := GLOB.Domain.RequestHotSwap(ctx, rid, req.Action, req.DeputyKey)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, rt)
}

////// Registry //////

func GetPlugins() (pb model.Passback) {
	return model.BuildSuccessPassback(http.StatusOK, nonNil(GLOB.Registry.Plugins()))
}

func LoadPlugin(name string) (pb model.Passback) {
	if err := GLOB.Registry.LoadPlugin(name); err != nil {
		return failed(err)
	}
	pi, err := GLOB.Registry.PluginInfo(name)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusCreated, pi)
}

func UnloadPlugin(name string) (pb model.Passback) {
	if err := GLOB.Registry.UnloadPlugin(name); err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusNoContent, nil)
}

func GetHandlers() (pb model.Passback) {
	return model.BuildSuccessPassback(http.StatusOK, nonNil(GLOB.Registry.Handlers()))
}

func GetHandler(id uint32) (pb model.Passback) {
	hi, err := GLOB.Registry.HandlerInfo(id)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, hi)
}

// CreateHandler takes a flat config map.  "plugin" is required, "name" is
// optional; everything else is passed to the plugin.
func CreateHandler(config map[string]string) (pb model.Passback) {
	hc := profile.HandlerConfig{Params: map[string]string{}}
	for k, v := range config {
		switch k {
		case "plugin":
			hc.Plugin = v
		case "name":
			hc.Name = v
		default:
			hc.Params[k] = v
		}
	}
	hi, err := GLOB.Registry.CreateHandler(hc)
	if err != nil {
		if statusOf(err) == http.StatusInternalServerError {
			return model.BuildErrorPassback(http.StatusBadRequest, err)
		}
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusCreated, hi)
}

func DestroyHandler(id uint32) (pb model.Passback) {
	if err := GLOB.Registry.DestroyHandler(id); err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusNoContent, nil)
}

func InjectEvent(ctx context.Context, id uint32, req model.InjectEventRequest) (pb model.Passback) {
	if req.Code == "" {
		return model.BuildErrorPassback(http.StatusBadRequest, errors.New("event code is required"))
	}
	ref := model.InstrumentRef{ResourceID: req.ResourceID, Num: req.Num}
	events, err := GLOB.Registry.InjectEvent(ctx, id, ref, req.HotSwap, req.Code, req.Asserted)
	if err != nil {
		return failed(err)
	}
	return model.BuildSuccessPassback(http.StatusOK, model.InjectEventResponse{Events: nonNil(events)})
}

func GetVersion() (pb model.Passback) {
	return model.BuildSuccessPassback(http.StatusOK, model.VersionResponse{
		Version: Version(),
		String:  fmt.Sprintf("%d.%d.%d", VersionMajor, VersionMinor, VersionPatch),
	})
}

////// Parameters //////

func GetParam(name string) (pb model.Passback) {
	var val string
	switch name {
	case ParamPollInterval:
		val = GLOB.Poller.Interval().String()
	case ParamLogLevel:
		val = GLOB.Domain.Logger.GetLevel().String()
	case ParamUserAlarmLimit:
		val = strconv.Itoa(GLOB.Domain.UserAlarmLimit())
	default:
		return failed(fmt.Errorf("%w: '%s'", ErrNoParam, name))
	}
	return model.BuildSuccessPassback(http.StatusOK, model.Param{Name: name, Value: val})
}

func SetParam(name, value string) (pb model.Passback) {
	switch name {
	case ParamPollInterval:
		d, err := time.ParseDuration(value)
		if err != nil {
			secs, aerr := strconv.Atoi(value)
			if aerr != nil {
				return model.BuildErrorPassback(http.StatusBadRequest,
					fmt.Errorf("bad poll interval '%s': %w", value, err))
			}
			d = time.Duration(secs) * time.Second
		}
		if err = GLOB.Poller.SetInterval(d); err != nil {
			return model.BuildErrorPassback(http.StatusBadRequest, err)
		}
	case ParamLogLevel:
		lvl := logger.ParseLevel(value, 0xFF)
		if lvl == 0xFF {
			return model.BuildErrorPassback(http.StatusBadRequest,
				fmt.Errorf("unknown log level '%s'", value))
		}
		GLOB.Domain.Logger.SetLevel(lvl)
	case ParamUserAlarmLimit:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return model.BuildErrorPassback(http.StatusBadRequest,
				fmt.Errorf("bad alarm limit '%s'", value))
		}
		GLOB.Domain.SetUserAlarmLimit(n)
	default:
		return failed(fmt.Errorf("%w: '%s'", ErrNoParam, name))
	}
	return GetParam(name)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
