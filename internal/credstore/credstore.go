// MIT License
// 
// (C) Copyright [2022] Hewlett Packard Enterprise Development LP
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

package credstore

import (
	"errors"
	"sync"
	"time"

	compcredentials "github.com/Cray-HPE/hms-compcredentials"
	securestorage "github.com/Cray-HPE/hms-securestorage"
	"github.com/Cray-HPE/hms-xname/xnametypes"
	"github.com/sirupsen/logrus"
)

func (b *VAULTv0) Init(globals *CREDSTORE_GLOBALS) {
	b.CredStoreGlobals = CREDSTORE_GLOBALS{}
	b.CredStoreGlobals = *globals

	if b.CredStoreGlobals.Logger == nil {
		// Set up logger with defaults.
		b.CredStoreGlobals.Logger = logrus.New()
	}
	if b.CredStoreGlobals.VaultKeypath == "" {
		b.CredStoreGlobals.VaultKeypath = "secret/hms-creds"
	}

	b.CredStoreGlobals.credsCacheMap = make(map[string]CompCredCached)
	b.CredStoreGlobals.cacheMutex = &sync.Mutex{}
	b.CredStoreGlobals.credStoreReady = false
	for b.CredStoreGlobals.Running == nil || *b.CredStoreGlobals.Running {
		if secureStorage, err := securestorage.NewVaultAdapter(""); err != nil {
			b.CredStoreGlobals.Logger.Errorf("Unable to connect to Vault, err: %s! Trying again in 1 second...", err)
			time.Sleep(1 * time.Second)
		} else {
			b.CredStoreGlobals.Logger.Info("Connected to Vault.")

			b.CredStoreGlobals.credStore = compcredentials.NewCompCredStore(b.CredStoreGlobals.VaultKeypath, secureStorage)
			b.CredStoreGlobals.credStoreReady = true
			return
		}
	}
}

func (b *VAULTv0) IsReady() bool {
	return b.CredStoreGlobals.credStoreReady
}

// Get the credentials for a specified xname. Vault is only consulted when
// the credentials are unknown or have been cached for too long.
func (b *VAULTv0) GetCredentials(xname string) (user string, pw string, err error) {
	if xnametypes.GetHMSType(xname) == xnametypes.HMSTypeInvalid {
		err = errors.New("Invalid xname for GetCredentials(), " + xname)
		return
	}

	b.CredStoreGlobals.cacheMutex.Lock()
	creds, ok := b.CredStoreGlobals.credsCacheMap[xname]
	b.CredStoreGlobals.cacheMutex.Unlock()
	if ok && creds.Expire.After(time.Now()) {
		return creds.User, creds.Pw, nil
	}

	if !b.CredStoreGlobals.credStoreReady {
		err = errors.New("Credentials store not ready")
		return
	}
	credentials, credErr := b.CredStoreGlobals.credStore.GetCompCred(xname)
	if credErr != nil {
		err = credErr
		return
	}
	user = credentials.Username
	pw = credentials.Password
	expire := time.Duration(b.CredStoreGlobals.CredCacheDuration) * time.Second

	b.CredStoreGlobals.cacheMutex.Lock()
	b.CredStoreGlobals.credsCacheMap[xname] = CompCredCached{
		User:   user,
		Pw:     pw,
		Expire: time.Now().Add(expire),
	}
	b.CredStoreGlobals.cacheMutex.Unlock()
	return
}

// ControllerOf walks up the xname hierarchy to the nearest controller
// (BMC).  If there is none, the xname itself is returned.
func ControllerOf(xname string) (string, error) {
	if xnametypes.GetHMSType(xname) == xnametypes.HMSTypeInvalid {
		return "", errors.New("Invalid xname, " + xname)
	}
	id := xname
	for {
		compType := xnametypes.GetHMSType(id)
		if compType == xnametypes.HMSTypeInvalid {
			return xname, nil
		}
		if xnametypes.IsHMSTypeController(compType) {
			return id, nil
		}
		id = xnametypes.GetHMSCompParent(id)
	}
}

// Get the credentials for the controller of a specified xname. Only
// controller credentials are cached, so fewer vault calls are needed.
func (b *VAULTv0) GetControllerCredentials(xname string) (user string, pw string, err error) {
	id, cerr := ControllerOf(xname)
	if cerr != nil {
		err = errors.New("Invalid xname for GetControllerCredentials(), " + xname)
		return
	}
	return b.GetCredentials(id)
}

func (s *StaticCreds) Init(globals *CREDSTORE_GLOBALS) {}

func (s *StaticCreds) IsReady() bool { return true }

func (s *StaticCreds) GetCredentials(xname string) (string, string, error) {
	return s.User, s.Pw, nil
}

func (s *StaticCreds) GetControllerCredentials(xname string) (string, string, error) {
	return s.User, s.Pw, nil
}
