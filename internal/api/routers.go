/*
 * (C) Copyright [2021-2025] Hewlett Packard Enterprise Development LP
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
	"sort"
	"strings"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/logger"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Route - struct containing name,method, pattern and handlerFunction to invoke.
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// Routes - a collection of Route
type Routes []Route

// Logger - used for logging what methods were invoked and how long they took to complete
func Logger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		inner.ServeHTTP(w, r)

		if name == "GetLiveness" ||
			name == "GetReadiness" ||
			name == "GetHealth" ||
			name == "GetMetrics" ||
			name == "GetPProf" {
			logger.Log.Debugf(
				"%s %s %s %s",
				r.Method,
				r.RequestURI,
				name,
				time.Since(start),
			)
		} else {
			logger.Log.Printf(
				"%s %s %s %s",
				r.Method,
				r.RequestURI,
				name,
				time.Since(start),
			)
		}
	})
}

// NewRouter - create a new mux Router; and initializes it with the routes
func NewRouter() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	routeIndex = nil
	for _, route := range routes {
		routeIndex = append(routeIndex, route.Method+" "+route.Pattern)
		var handler http.Handler = route.HandlerFunc
		handler = Logger(handler, route.Name)

		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(handler)

		// With v1
		router.
			Methods(route.Method).
			Path("/v1" + route.Pattern).
			Name(route.Name).
			Handler(handler)
	}

	// If the 'pprof' build tag is set, then we will register pprof handlers,
	// otherwise this function is stubbed and will do nothing.
	RegisterPProfHandlers(router)

	sort.Strings(routeIndex)
	return router
}

// Filled in by NewRouter, served by Index.
var routeIndex []string

// Index lists the API's routes.
func Index(w http.ResponseWriter, req *http.Request) {
	w.Header().Add("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	WriteJSON(w, routeIndex)
}

// GetMetrics serves the Prometheus registry.
func GetMetrics(w http.ResponseWriter, req *http.Request) {
	promhttp.Handler().ServeHTTP(w, req)
}

var routes = Routes{

	Route{
		"Index",
		"GET",
		"/",
		Index,
	},
	Route{
		"GetVersion",
		strings.ToUpper("get"),
		"/version",
		GetVersion,
	},
	// Domain tables
	Route{
		"GetDomain",
		strings.ToUpper("get"),
		"/domain",
		GetDomain,
	},
	Route{
		"GetDrt",
		strings.ToUpper("get"),
		"/drt",
		GetDrt,
	},
	Route{
		"GetRpt",
		strings.ToUpper("get"),
		"/rpt",
		GetRpt,
	},
	Route{
		"GetRdr",
		strings.ToUpper("get"),
		"/rpt/{resourceID}/rdr",
		GetRdr,
	},
	Route{
		"PostHotSwap",
		strings.ToUpper("post"),
		"/rpt/{resourceID}/hotswap",
		PostHotSwap,
	},
	Route{
		"GetDat",
		strings.ToUpper("get"),
		"/dat",
		GetDat,
	},
	Route{
		"DeleteAlarm",
		strings.ToUpper("delete"),
		"/dat/{alarmID}",
		DeleteAlarm,
	},
	Route{
		"AckAlarm",
		strings.ToUpper("post"),
		"/dat/{alarmID}/ack",
		AckAlarm,
	},
	Route{
		"GetDump",
		strings.ToUpper("get"),
		"/dump",
		GetDump,
	},
	// Plugins and handlers
	Route{
		"GetPlugins",
		strings.ToUpper("get"),
		"/plugins",
		GetPlugins,
	},
	Route{
		"PostPlugin",
		strings.ToUpper("post"),
		"/plugins",
		PostPlugin,
	},
	Route{
		"DeletePlugin",
		strings.ToUpper("delete"),
		"/plugins/{name}",
		DeletePlugin,
	},
	Route{
		"GetHandlers",
		strings.ToUpper("get"),
		"/handlers",
		GetHandlers,
	},
	Route{
		"PostHandler",
		strings.ToUpper("post"),
		"/handlers",
		PostHandler,
	},
	Route{
		"GetHandlerID",
		strings.ToUpper("get"),
		"/handlers/{handlerID}",
		GetHandlerID,
	},
	Route{
		"DeleteHandlerID",
		strings.ToUpper("delete"),
		"/handlers/{handlerID}",
		DeleteHandlerID,
	},
	Route{
		"PostHandlerEvent",
		strings.ToUpper("post"),
		"/handlers/{handlerID}/events",
		PostHandlerEvent,
	},
	// Global parameters
	Route{
		"GetParam",
		strings.ToUpper("get"),
		"/params/{name}",
		GetParam,
	},
	Route{
		"PutParam",
		strings.ToUpper("put"),
		"/params/{name}",
		PutParam,
	},
	Route{
		"GetLiveness",
		strings.ToUpper("get"),
		"/liveness",
		GetLiveness,
	},
	Route{
		"GetReadiness",
		strings.ToUpper("get"),
		"/readiness",
		GetReadiness,
	},
	Route{
		"GetHealth",
		strings.ToUpper("get"),
		"/health",
		GetHealth,
	},
	Route{
		"GetMetrics",
		strings.ToUpper("get"),
		"/metrics",
		GetMetrics,
	},
}
