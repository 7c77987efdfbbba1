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

package credstore

import (
	"sync"
	"time"

	compcredentials "github.com/Cray-HPE/hms-compcredentials"
	"github.com/sirupsen/logrus"
)

type CREDSTORE_GLOBALS struct {
	SvcName           string
	Logger            *logrus.Logger
	Running           *bool
	VaultKeypath      string
	CredCacheDuration int //seconds

	credStore      *compcredentials.CompCredStore
	credStoreReady bool
	credsCacheMap  map[string]CompCredCached
	cacheMutex     *sync.Mutex
}

type CompCredCached struct {
	User   string
	Pw     string
	Expire time.Time
}

type CredStoreProvider interface {
	Init(globals *CREDSTORE_GLOBALS)
	IsReady() bool
	GetCredentials(xname string) (string, string, error)
	GetControllerCredentials(xname string) (string, string, error)
}

type VAULTv0 struct {
	CredStoreGlobals CREDSTORE_GLOBALS
}

// StaticCreds hands out one set of credentials for every controller. Used
// when Vault is disabled.
type StaticCreds struct {
	User string
	Pw   string
}
