package feed

import (
	"log"
	"sync"
	"time"
)

// MinPollingInterval is the minimum allowed background refresh interval.
const MinPollingInterval = time.Minute

// Poller refreshes the active category in the background.
type Poller struct {
	ctrl     *Controller
	interval time.Duration
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewPoller creates a background poller. Intervals below
// MinPollingInterval are raised to it.
func NewPoller(ctrl *Controller, interval time.Duration) *Poller {
	if interval < MinPollingInterval {
		interval = MinPollingInterval
	}
	return &Poller{
		ctrl:     ctrl,
		interval: interval,
		stopChan: make(chan struct{}),
	}
}

// Interval returns the effective refresh interval.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins the polling loop. The first refresh happens one interval
// after Start; the initial load is the feed screen's job.
func (p *Poller) Start() {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		log.Printf("Poller: refreshing active category every %s", p.interval)
		for {
			select {
			case <-p.stopChan:
				return
			case <-time.After(p.interval):
			}
			p.ctrl.RefreshInBackground()
		}
	}()
}

// Stop stops the poller gracefully.
func (p *Poller) Stop() {
	close(p.stopChan)
	p.wg.Wait()
}
