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
	"sync"
	"time"

	"github.com/Cray-HPE/hms-hpi/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// Backend polling.  The general flow:
//
// o Only one service instance polls a domain at a time.  Mastership is a
//   timestamp lease in storage, taken under the distributed lock and kept
//   alive by TAS'ing it every masterInterval.
// o Each cycle the master samples all handlers concurrently, then applies
//   the samples to the domain in handler order.  The engine and hot-swap
//   machine only ever run from here (or from an operator action, serialized
//   with this by the domain).
// o Every dumpEvery cycles a domain dump is written to storage so that any
//   instance can serve it.

var (
	cyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpi_poller_cycles_total",
		Help: "Poll cycles run, by whether this instance was master",
	}, []string{"master"})

	cycleSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hpi_poller_cycle_seconds",
		Help:    "Duration of a master poll cycle",
		Buckets: prometheus.DefBuckets,
	})

	sampleErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hpi_poller_sample_errors_total",
		Help: "Handler sample calls that failed outright",
	}, []string{"handler"})

	eventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hpi_poller_events_total",
		Help: "Events produced by poll cycles",
	})
)

type Poller struct {
	Domain   *Domain
	Registry *Registry
	Logger   *logrus.Logger
	DSP      storage.StorageProvider
	DistLock storage.DistributedLockProvider

	DistLockMaxTime time.Duration
	MasterInterval  time.Duration
	DumpEvery       int

	mu       sync.Mutex
	interval time.Duration
	isMaster bool
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	cycles   int
}

// NewPoller creates a stopped poller.  Without storage or a distributed lock
// the poller is always master.
func NewPoller(dom *Domain, reg *Registry, dsp storage.StorageProvider,
	distLock storage.DistributedLockProvider, interval time.Duration) (*Poller, error) {
	if interval < time.Second {
		return nil, fmt.Errorf("ERROR: poll interval must be >= 1 second.")
	}
	return &Poller{
		Domain:          dom,
		Registry:        reg,
		Logger:          dom.Logger,
		DSP:             dsp,
		DistLock:        distLock,
		DistLockMaxTime: 60 * time.Second,
		MasterInterval:  15 * time.Second,
		DumpEvery:       10,
		interval:        interval,
	}, nil
}

func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval changes the polling interval on the fly.
func (p *Poller) SetInterval(d time.Duration) error {
	if d < time.Second {
		return fmt.Errorf("ERROR: poll interval must be >= 1 second.")
	}
	p.mu.Lock()
	p.interval = d
	p.mu.Unlock()
	return nil
}

func (p *Poller) IsMaster() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isMaster
}

func (p *Poller) setMaster(m bool) {
	p.mu.Lock()
	p.isMaster = m
	p.mu.Unlock()
}

// Start runs the poll loop until Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	p.running = true
	p.mu.Unlock()

	go p.run(ctx)
}

// Stop ends the poll loop and waits for the current cycle to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	p.cancel()
	done := p.done
	p.mu.Unlock()
	<-done
}

func (p *Poller) run(ctx context.Context) {
	defer close(p.done)
	p.Logger.Infof("Poller started for domain %d, interval %s", p.Domain.ID, p.Interval())
	for {
		select {
		case <-ctx.Done():
			p.setMaster(false)
			p.Logger.Infof("Poller stopped for domain %d", p.Domain.ID)
			return
		case <-time.After(p.Interval()):
		}

		if !p.IsMaster() {
			p.setMaster(p.becomeMaster(ctx))
		}
		if !p.IsMaster() {
			cyclesTotal.WithLabelValues("false").Inc()
			continue
		}
		p.Cycle(ctx)
	}
}

// Cycle samples every handler once and applies the results.
func (p *Poller) Cycle(ctx context.Context) {
	start := time.Now()
	samples := p.Registry.Sample(ctx)
	if ctx.Err() != nil {
		return
	}
	events := p.Domain.Apply(ctx, samples)
	eventsTotal.Add(float64(len(events)))
	cyclesTotal.WithLabelValues("true").Inc()
	cycleSeconds.Observe(time.Since(start).Seconds())

	p.Logger.WithFields(logrus.Fields{"samples": len(samples), "events": len(events)}).
		Trace("Poll cycle done")

	p.cycles++
	if p.DSP != nil && p.DumpEvery > 0 && p.cycles%p.DumpEvery == 0 {
		if _, err := p.Domain.StoreDump(ctx); err != nil {
			p.Logger.Errorf("Can't store domain dump: %v", err)
		}
	}
}

// Checks the poller master lease in storage.  If it has not been refreshed
// for a while, attempt to become the new master.
func (p *Poller) becomeMaster(ctx context.Context) bool {
	if p.DSP == nil || p.DistLock == nil {
		return true
	}
	lockErr := p.DistLock.DistributedTimedLock(p.DistLockMaxTime)
	if lockErr != nil {
		// Someone else is already doing this check.
		return false
	}
	defer func() {
		if unlockErr := p.DistLock.Unlock(); unlockErr != nil {
			p.Logger.Errorf("ERROR releasing distributed lock: %v", unlockErr)
		}
	}()

	domainID := p.Domain.ID
	now := time.Now()
	lastUpdated, err := p.DSP.GetPollerMaster(domainID)
	if err != nil {
		if !errors.Is(err, storage.ErrNotExist) {
			p.Logger.Errorf("ERROR getting poller master of domain %d: %v", domainID, err)
			return false
		}
		// First master.
		if err = p.DSP.StorePollerMaster(domainID, now); err != nil {
			p.Logger.Errorf("ERROR while trying to become poller master: %v", err)
			return false
		}
	} else {
		// Previous master still alive?
		if lastUpdated.Add(p.MasterInterval * 3).After(now) {
			return false
		}
		success, err := p.DSP.TASPollerMaster(domainID, now, lastUpdated)
		if err != nil {
			p.Logger.Errorf("ERROR while trying to become poller master: %v", err)
			return false
		}
		if !success {
			return false
		}
	}

	p.Logger.Infof("Became poller master of domain %d", domainID)
	go p.keepMaster(ctx, now)
	return true
}

func (p *Poller) keepMaster(ctx context.Context, lastUpdated time.Time) {
	keepAlive := time.NewTicker(p.MasterInterval)
	defer keepAlive.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-keepAlive.C:
			now := time.Now()
			success, err := p.DSP.TASPollerMaster(p.Domain.ID, now, lastUpdated)
			if err != nil {
				p.Logger.Errorf("ERROR while trying to refresh poller master: %v", err)
				continue
			}
			if !success {
				p.Logger.Infof("Lost poller master of domain %d", p.Domain.ID)
				p.setMaster(false)
				return
			}
			lastUpdated = now
		}
	}
}
