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

package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/Cray-HPE/hms-hpi/internal/domain"
	"github.com/Cray-HPE/hms-hpi/internal/logger"
	"github.com/Cray-HPE/hms-hpi/internal/model"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// GetVersion - returns the packed service version
func GetVersion(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetVersion())
}

// GetPlugins - lists the loaded plugins
func GetPlugins(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetPlugins())
}

// PostPlugin - loads a plugin
func PostPlugin(w http.ResponseWriter, req *http.Request) {
	var plr model.PluginLoadRequest
	if bad := decodeBody(w, req, &plr); bad != nil {
		return
	}
	if plr.Name == "" {
		err := errors.New("plugin name is required")
		pb := model.BuildErrorPassback(http.StatusBadRequest, err)
		logger.Log.WithFields(logrus.Fields{"ERROR": err, "HttpStatusCode": pb.StatusCode}).Error("Missing plugin name")
		WriteHeaders(w, pb)
		return
	}
	pb := domain.LoadPlugin(plr.Name)
	if !pb.IsError {
		WriteHeadersWithLocation(w, pb, "../plugins/"+plr.Name)
		return
	}
	WriteHeaders(w, pb)
}

// DeletePlugin - unloads a plugin no handler uses
func DeletePlugin(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.UnloadPlugin(mux.Vars(req)["name"]))
}

// GetHandlers - lists handlers
func GetHandlers(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetHandlers())
}

// PostHandler - creates a handler from a flat config map
func PostHandler(w http.ResponseWriter, req *http.Request) {
	config := map[string]string{}
	if bad := decodeBody(w, req, &config); bad != nil {
		return
	}
	pb := domain.CreateHandler(config)
	if !pb.IsError {
		WriteHeadersWithLocation(w, pb, fmt.Sprintf("../handlers/%d", pb.Obj.(domain.HandlerInfo).ID))
		return
	}
	WriteHeaders(w, pb)
}

// GetHandlerID - returns one handler
func GetHandlerID(w http.ResponseWriter, req *http.Request) {
	pb := GetIDFromVars("handlerID", req)
	if pb.IsError {
		WriteHeaders(w, pb)
		return
	}
	WriteHeaders(w, domain.GetHandler(pb.Obj.(uint32)))
}

// DeleteHandlerID - destroys a handler
func DeleteHandlerID(w http.ResponseWriter, req *http.Request) {
	pb := GetIDFromVars("handlerID", req)
	if pb.IsError {
		WriteHeaders(w, pb)
		return
	}
	WriteHeaders(w, domain.DestroyHandler(pb.Obj.(uint32)))
}

// PostHandlerEvent - injects a raw event code through a handler
func PostHandlerEvent(w http.ResponseWriter, req *http.Request) {
	pb := GetIDFromVars("handlerID", req)
	if pb.IsError {
		WriteHeaders(w, pb)
		return
	}
	var ier model.InjectEventRequest
	if bad := decodeBody(w, req, &ier); bad != nil {
		return
	}
	WriteHeaders(w, domain.InjectEvent(req.Context(), pb.Obj.(uint32), ier))
}

// GetParam - returns a global parameter
func GetParam(w http.ResponseWriter, req *http.Request) {
	WriteHeaders(w, domain.GetParam(mux.Vars(req)["name"]))
}

// PutParam - sets a global parameter
func PutParam(w http.ResponseWriter, req *http.Request) {
	var p model.Param
	if bad := decodeBody(w, req, &p); bad != nil {
		return
	}
	WriteHeaders(w, domain.SetParam(mux.Vars(req)["name"], p.Value))
}
