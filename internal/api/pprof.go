// This file contains the code to enable pprof profiling in HPI. It is only
// included in the build when the 'pprof' build tag is set in the Dockerfile.
//
//go:build pprof

/*
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
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
)

const pprofBase = "/v1/debug/pprof"

// Runtime profiles served through pprof.Handler. The index, cmdline,
// profile, symbol and trace endpoints have handlers of their own.
var pprofProfiles = []string{
	"allocs",
	"block",
	"goroutine",
	"heap",
	"mutex",
	"threadcreate",
}

// RegisterPProfHandlers mounts the profiling endpoints under
// /v1/debug/pprof and lists them in the route index.
func RegisterPProfHandlers(router *mux.Router) {
	add := func(path string, h http.Handler) {
		routeIndex = append(routeIndex, "GET "+path)
		router.Handle(path, Logger(h, "GetPProf"))
	}

	add(pprofBase+"/", http.HandlerFunc(pprof.Index))
	add(pprofBase+"/cmdline", http.HandlerFunc(pprof.Cmdline))
	add(pprofBase+"/profile", http.HandlerFunc(pprof.Profile)) // CPU, 30s unless ?seconds=
	add(pprofBase+"/symbol", http.HandlerFunc(pprof.Symbol))
	add(pprofBase+"/trace", http.HandlerFunc(pprof.Trace)) // 1s unless ?seconds=

	for _, name := range pprofProfiles {
		add(pprofBase+"/"+name, pprof.Handler(name))
	}
}
