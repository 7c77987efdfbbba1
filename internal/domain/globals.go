/*
 * MIT License
 *
 * (C) Copyright [2022-2023] Hewlett Packard Enterprise Development LP
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
	"github.com/Cray-HPE/hms-hpi/internal/backend"
	"github.com/Cray-HPE/hms-hpi/internal/credstore"
	"github.com/Cray-HPE/hms-hpi/internal/hsm"
	"github.com/Cray-HPE/hms-hpi/internal/storage"
	trsapi "github.com/Cray-HPE/hms-trs-app-api/v3/pkg/trs_http_api"
	"github.com/sirupsen/logrus"
)

var GLOB *DOMAIN_GLOBALS

func Init(glob *DOMAIN_GLOBALS) {
	GLOB = glob
}

type DOMAIN_GLOBALS struct {
	SvcName      string
	Running      *bool
	DSP          storage.StorageProvider
	DistLock     storage.DistributedLockProvider
	HSM          hsm.HSMProvider
	VaultEnabled bool
	CS           credstore.CredStoreProvider
	RFTloc       trsapi.TrsAPI
	Domain       *Domain
	Registry     *Registry
	Poller       *Poller
}

func (g *DOMAIN_GLOBALS) NewGlobals(svcName string, running *bool,
	dsp storage.StorageProvider, distLock storage.DistributedLockProvider,
	hsmHandle hsm.HSMProvider, vaultEnabled bool,
	credStore credstore.CredStoreProvider, tlocRF trsapi.TrsAPI) {
	g.SvcName = svcName
	g.Running = running
	g.DSP = dsp
	g.DistLock = distLock
	g.HSM = hsmHandle
	g.VaultEnabled = vaultEnabled
	g.CS = credStore
	g.RFTloc = tlocRF
}

// BackendDeps are the service handles plugins build their handlers from.
func (g *DOMAIN_GLOBALS) BackendDeps(logger *logrus.Logger) backend.Deps {
	return backend.Deps{
		SvcName: g.SvcName,
		Logger:  logger,
		HSM:     g.HSM,
		Creds:   g.CS,
		RFTloc:  g.RFTloc,
	}
}
