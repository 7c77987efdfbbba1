/*
 * MIT License
 *
 * (C) Copyright [2021-2025] Hewlett Packard Enterprise Development LP
 *
 * Permission is hereby granted, free of charge, to any person obtaining a
 * copy of this software and associated documentation files (the "Software"),
 * to deal in the Software without restriction, including without limitation
 * the rights to use, copy, modify, merge, publish, distribute, sublicense,
 * and/or sell copies of the Software, and to permit persons to whom the
 * Software is furnished to do so, subject to the following conditions:
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
 *
 */

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	base "github.com/Cray-HPE/hms-base/v2"
	"github.com/Cray-HPE/hms-certs/pkg/hms_certs"
	"github.com/Cray-HPE/hms-hpi/internal/api"
	"github.com/Cray-HPE/hms-hpi/internal/credstore"
	"github.com/Cray-HPE/hms-hpi/internal/domain"
	"github.com/Cray-HPE/hms-hpi/internal/emitter"
	"github.com/Cray-HPE/hms-hpi/internal/hsm"
	"github.com/Cray-HPE/hms-hpi/internal/logger"
	"github.com/Cray-HPE/hms-hpi/internal/profile"
	"github.com/Cray-HPE/hms-hpi/internal/storage"
	trsapi "github.com/Cray-HPE/hms-trs-app-api/v3/pkg/trs_http_api"
	"github.com/namsral/flag"
	"github.com/sirupsen/logrus"
)

// Default Port to use
const defaultPORT = "28009"

const defaultSMSServer = "https://api-gw-service-nmn/apis/smd"

const defaultConfigFile = "/etc/hms-hpi/domain.yaml"

const (
	dfltMaxHTTPRetries = 5
	dfltMaxHTTPTimeout = 40
	dfltMaxHTTPBackoff = 8
)

var (
	Running                          = true
	restSrv             *http.Server = nil
	waitGroup           sync.WaitGroup
	rfClient, svcClient *hms_certs.HTTPClientPair
	TLOC_rf             trsapi.TrsAPI
	caURI               string
	rfClientLock        *sync.RWMutex = &sync.RWMutex{}
	serviceName         string
	DSP                 storage.StorageProvider
	HSM                 hsm.HSMProvider
	CS                  credstore.CredStoreProvider
	DLOCK               storage.DistributedLockProvider
)

func main() {

	var err error
	logger.Init()

	serviceName, err = base.GetServiceInstanceName()
	if err != nil {
		serviceName = "HPI"
		logger.Log.Errorf("Can't get service instance name, using %s", serviceName)
	}

	logger.Log.Info("Service/Instance name: " + serviceName)

	var VaultEnabled bool
	var VaultKeypath string
	var StateManagerServer string
	var configFile string
	var port string
	var natsURL, natsSubject string
	var bmcUser, bmcPassword string
	var hsmlockEnabled bool = true
	var runPoller bool = true
	var credCacheDuration int = 600 //In seconds. 10 mins?
	var pollInterval int = 10

	///////////////////////////////
	//ENVIRONMENT PARSING
	//////////////////////////////

	flag.StringVar(&StateManagerServer, "sms_server", defaultSMSServer, "SMS Server")
	flag.StringVar(&configFile, "domain_config", defaultConfigFile, "Domain description (YAML)")
	flag.StringVar(&port, "port", defaultPORT, "REST API port")

	flag.BoolVar(&runPoller, "run_poller", runPoller, "run the poll loop; false runs API only")
	flag.BoolVar(&hsmlockEnabled, "hsmlock_enabled", true, "Use HSM Locking")
	flag.BoolVar(&VaultEnabled, "vault_enabled", true, "Should vault be used for credentials?")
	flag.StringVar(&VaultKeypath, "vault_keypath", "secret/hms-creds",
		"Keypath for Vault credentials.")
	flag.IntVar(&credCacheDuration, "cred_cache_duration", 600,
		"Duration in seconds to cache vault credentials.")
	flag.StringVar(&bmcUser, "bmc_user", "", "BMC user when vault is disabled")
	flag.StringVar(&bmcPassword, "bmc_password", "", "BMC password when vault is disabled")
	flag.IntVar(&pollInterval, "poll_interval", pollInterval, "Seconds between poll cycles")
	flag.StringVar(&natsURL, "nats_url", "", "NATS server to publish events to; empty disables")
	flag.StringVar(&natsSubject, "nats_subject", emitter.DefaultSubject, "NATS subject prefix for events")

	flag.Parse()

	logger.Log.Info("SMS Server: " + StateManagerServer)
	logger.Log.Info("Domain config: " + configFile)
	logger.Log.Info("HSM Lock Enabled: ", hsmlockEnabled)
	logger.Log.Info("Vault Enabled: ", VaultEnabled)
	logger.Log.Info("Poll interval: ", pollInterval)
	logger.Log.SetReportCaller(true)

	///////////////////////////////
	//CONFIGURATION
	//////////////////////////////

	cfg, err := profile.Load(configFile)
	if err != nil {
		logger.Log.Fatalf("Can't load domain config: %v", err)
	}

	//INITIALIZE TRS

	trsLogger := logrus.New()
	trsLogger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	trsLogger.SetLevel(logrus.ErrorLevel)
	trsLogger.SetReportCaller(true)

	var envstr string
	envstr = os.Getenv("TRS_IMPLEMENTATION")

	if envstr == "REMOTE" {
		workerSec := &trsapi.TRSHTTPRemote{}
		workerSec.Logger = trsLogger
		TLOC_rf = workerSec
	} else {
		workerSec := &trsapi.TRSHTTPLocal{}
		workerSec.Logger = trsLogger
		TLOC_rf = workerSec
	}

	envstr = os.Getenv("HPI_CA_URI")
	if envstr != "" {
		caURI = envstr
	}
	//These are for debugging/testing
	envstr = os.Getenv("HPI_CA_PKI_URL")
	if envstr != "" {
		logger.Log.Infof("Using CA PKI URL: '%s'", envstr)
		hms_certs.ConfigParams.VaultCAUrl = envstr
	}
	envstr = os.Getenv("HPI_VAULT_PKI_URL")
	if envstr != "" {
		logger.Log.Infof("Using VAULT PKI URL: '%s'", envstr)
		hms_certs.ConfigParams.VaultPKIUrl = envstr
	}
	envstr = os.Getenv("HPI_VAULT_JWT_FILE")
	if envstr != "" {
		logger.Log.Infof("Using Vault JWT file: '%s'", envstr)
		hms_certs.ConfigParams.VaultJWTFile = envstr
	}
	envstr = os.Getenv("HPI_LOG_INSECURE_FAILOVER")
	if envstr != "" {
		yn, _ := strconv.ParseBool(envstr)
		if !yn {
			logger.Log.Infof("Not logging Redfish insecure failovers.")
			hms_certs.ConfigParams.LogInsecureFailover = false
		}
	}

	TLOC_rf.Init(serviceName, trsLogger)
	rfClient, _ = hms_certs.CreateRetryableHTTPClientPair("", dfltMaxHTTPTimeout, dfltMaxHTTPRetries, dfltMaxHTTPBackoff)
	svcClient, _ = hms_certs.CreateRetryableHTTPClientPair("", dfltMaxHTTPTimeout, dfltMaxHTTPRetries, dfltMaxHTTPBackoff)

	//STORAGE/DISTLOCK CONFIGURATION
	envstr = os.Getenv("STORAGE")
	if envstr == "ETCD" {
		DSP = &storage.ETCDStorage{Logger: logger.Log}
		logger.Log.Info("Storage Provider: ETCD")
		DLOCK = &storage.ETCDLockProvider{}
		logger.Log.Info("Distributed Lock Provider: ETCD")
	} else {
		DSP = &storage.MEMStorage{Logger: logger.Log}
		logger.Log.Info("Storage Provider: In Memory")
		DLOCK = &storage.MEMLockProvider{}
		logger.Log.Info("Distributed Lock Provider: In Memory")
	}
	if err = DSP.Init(logger.Log); err != nil {
		logger.Log.Fatalf("Can't initialize storage: %v", err)
	}
	if err = DLOCK.Init(logger.Log); err != nil {
		logger.Log.Fatalf("Can't initialize distributed lock: %v", err)
	}

	//Hardware State Manager CONFIGURATION
	HSM = &hsm.HSMv2{}
	hsmGlob := hsm.HSM_GLOBALS{
		SvcName:       serviceName,
		Logger:        logger.Log,
		Running:       &Running,
		LockEnabled:   hsmlockEnabled,
		SMUrl:         StateManagerServer,
		SVCHttpClient: svcClient,
	}
	if err = HSM.Init(&hsmGlob); err != nil {
		logger.Log.Errorf("HSM init failed: %v", err)
	}

	//Vault CONFIGURATION
	if VaultEnabled {
		CS = &credstore.VAULTv0{}
		credStoreGlob := credstore.CREDSTORE_GLOBALS{
			SvcName:           serviceName,
			Logger:            logger.Log,
			Running:           &Running,
			VaultKeypath:      VaultKeypath,
			CredCacheDuration: credCacheDuration,
		}
		CS.Init(&credStoreGlob)
	} else {
		CS = &credstore.StaticCreds{User: bmcUser, Pw: bmcPassword}
	}

	//DOMAIN CONFIGURATION
	var domainGlobals domain.DOMAIN_GLOBALS
	domainGlobals.NewGlobals(serviceName, &Running, DSP, DLOCK, HSM, VaultEnabled, CS, TLOC_rf)

	dom, err := domain.New(cfg, domain.Options{Logger: logger.Log, DSP: DSP, HSM: HSM})
	if err != nil {
		logger.Log.Fatalf("Can't build domain %d: %v", cfg.Domain.ID, err)
	}
	sinks := emitter.Multi{
		emitter.NewLogEmitter(logger.Log),
		emitter.NewAlarmSink(dom, nil, logger.Log),
	}
	var natsEmitter *emitter.NATSEmitter
	if natsURL != "" {
		natsEmitter, err = emitter.ConnectNATS(natsURL, natsSubject, serviceName, logger.Log)
		if err != nil {
			logger.Log.Errorf("Events will not be published: %v", err)
		} else {
			sinks = append(sinks, natsEmitter)
		}
	}
	dom.Emitter = sinks

	reg := domain.NewRegistry(dom, domain.StaticPlugins(), domainGlobals.BackendDeps(logger.Log))
	for _, hc := range cfg.Handlers {
		if _, err = reg.CreateHandler(hc); err != nil {
			logger.Log.Errorf("Handler '%s' not created: %v", hc.Name, err)
		}
	}

	envstr = os.Getenv("HPI_POLL_INTERVAL")
	if envstr != "" {
		tps, err := strconv.Atoi(envstr)
		if err != nil {
			logger.Log.Errorf("Invalid value of HPI_POLL_INTERVAL, defaulting to %d",
				pollInterval)
		} else {
			pollInterval = tps
		}
	}
	poller, err := domain.NewPoller(dom, reg, DSP, DLOCK, time.Duration(pollInterval)*time.Second)
	if err != nil {
		logger.Log.Fatalf("Can't create poller: %v", err)
	}
	envstr = os.Getenv("HPI_DISTLOCK_TIMEOUT")
	if envstr != "" {
		tps, err := strconv.Atoi(envstr)
		if err != nil {
			logger.Log.Errorf("Invalid value of HPI_DISTLOCK_TIMEOUT, defaulting to %s",
				poller.DistLockMaxTime)
		} else {
			poller.DistLockMaxTime = time.Duration(tps) * time.Second
		}
	}
	envstr = os.Getenv("HPI_DUMP_EVERY")
	if envstr != "" {
		n, err := strconv.Atoi(envstr)
		if err != nil || n < 0 {
			logger.Log.Errorf("Invalid value of HPI_DUMP_EVERY, defaulting to %d", poller.DumpEvery)
		} else {
			poller.DumpEvery = n
		}
	}

	domainGlobals.Domain = dom
	domainGlobals.Registry = reg
	domainGlobals.Poller = poller

	//Wait for vault PKI to respond for CA bundle.  Once this happens,
	//update the Redfish task runner.  This goroutine runs forever checking
	//if the CA trust bundle has changed.

	go func() {
		if caURI != "" {
			var err error
			var caChain string
			var prevCaChain string

			tdelay := time.Duration(0)
			for Running {
				time.Sleep(tdelay)
				tdelay = 3 * time.Second

				caChain, err = hms_certs.FetchCAChain(caURI)
				if err != nil {
					logger.Log.Errorf("Error fetching CA chain from Vault PKI: %v, retrying...",
						err)
					continue
				}

				//If chain hasn't changed, do nothing, expand retry time.

				if caChain == prevCaChain {
					tdelay = 10 * time.Second
					continue
				}

				logger.Log.Infof("CA trust chain has changed, re-doing Redfish HTTP transports.")
				rfClient, err = hms_certs.CreateRetryableHTTPClientPair(caURI, dfltMaxHTTPTimeout, dfltMaxHTTPRetries, dfltMaxHTTPBackoff)
				if err != nil {
					logger.Log.Errorf("Error creating TLS-verified transport: %v, retrying...",
						err)
					continue
				}
				rfClientLock.Lock()
				tchain := hms_certs.NewlineToTuple(caChain)
				secInfo := trsapi.TRSHTTPLocalSecurity{CACertBundleData: tchain}
				err = TLOC_rf.SetSecurity(secInfo)
				rfClientLock.Unlock()
				if err != nil {
					logger.Log.Errorf("Error setting TLOC security info: %v, retrying...",
						err)
					continue
				}
				logger.Log.Info("TRS CA security updated.")
				prevCaChain = caChain
			}
		}
	}()

	///////////////////////////////
	//INITIALIZATION
	//////////////////////////////
	domain.Init(&domainGlobals)

	ctx, cancel := context.WithCancel(context.Background())

	///////////////////////////////
	//SIGNAL HANDLING
	//////////////////////////////

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	idleConnsClosed := make(chan struct{})
	go func() {
		<-c
		Running = false

		poller.Stop()
		cancel()
		reg.Close()
		if natsEmitter != nil {
			natsEmitter.Close()
		}

		if restSrv != nil {
			if err := restSrv.Shutdown(context.Background()); err != nil {
				logger.Log.Panic("ERROR: Unable to stop REST server!")
			}
		}

		close(idleConnsClosed)
	}()

	///////////////////////
	// START
	///////////////////////

	if runPoller {
		logger.Log.Info("Starting poll loop")
		poller.Start(ctx)
	} else {
		logger.Log.Info("NOT starting poll loop")
	}
	//Rest Server
	waitGroup.Add(1)
	doRest(port)

	//////////////////////
	// WAIT FOR GOD
	/////////////////////

	waitGroup.Wait()
	logger.Log.Info("HTTP server shutdown, waiting for idle connection to close...")
	<-idleConnsClosed
	logger.Log.Info("Done. Exiting.")
}

func doRest(serverPort string) {

	logger.Log.Info("**RUNNING -- Listening on " + serverPort)

	srv := &http.Server{Addr: ":" + serverPort}
	router := api.NewRouter()

	http.Handle("/", router)

	go func() {
		defer waitGroup.Done()
		if err := srv.ListenAndServe(); err != nil {
			// Cannot panic because this is probably just a graceful shutdown.
			logger.Log.Error(err)
			logger.Log.Info("REST server shutdown.")
		}
	}()

	logger.Log.Info("REST server started on port " + serverPort)
	restSrv = srv
}
