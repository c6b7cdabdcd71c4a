//Package janitor prunes expired quality cache rows on a fixed interval
//for as long as a long-running command keeps the store open.
package janitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chris-pikul/go-streamkeeper/db"
	"github.com/chris-pikul/go-streamkeeper/log"
)

//Cleaner is the part of the store the janitor needs
type Cleaner interface {
	CleanQualityCache(opts db.CleanOptions) (int64, error)
}

//Event describes the outcome of one sweep
type Event struct {
	Time    time.Time
	Removed int64
	Err     error
}

func (e Event) String() string {
	if e.Err != nil {
		return fmt.Sprintf("%s cache sweep failed: %v", e.Time.Format(time.RFC3339), e.Err)
	}
	return fmt.Sprintf("%s cache sweep removed %d expired qualities", e.Time.Format(time.RFC3339), e.Removed)
}

//Listener receives every sweep event
type Listener func(Event)

//ErrInterval the sweep interval is zero or negative
var ErrInterval = errors.New("cache sweep interval must be positive")

//Janitor runs the global, expired-only cache cleaning periodically
type Janitor struct {
	store    Cleaner
	interval time.Duration

	lock       sync.Mutex
	listeners  map[int]Listener
	listenerID int
}

//New returns a janitor sweeping store every interval
func New(store Cleaner, interval time.Duration) *Janitor {
	return &Janitor{
		store:      store,
		interval:   interval,
		listeners:  make(map[int]Listener),
		listenerID: 1,
	}
}

//AddListener registers a callback for sweep events
//and returns an integer handle for de-registration
func (j *Janitor) AddListener(l Listener) int {
	j.lock.Lock()
	defer j.lock.Unlock()

	id := j.listenerID
	j.listenerID++
	j.listeners[id] = l

	return id
}

//RemoveListener removes a previously registered listener by its handle
func (j *Janitor) RemoveListener(handle int) {
	j.lock.Lock()
	defer j.lock.Unlock()

	delete(j.listeners, handle)
}

//SweepNow runs one sweep immediately and broadcasts the result
func (j *Janitor) SweepNow() Event {
	removed, err := j.store.CleanQualityCache(db.CleanOptions{})
	evt := Event{Time: time.Now(), Removed: removed, Err: err}

	if err != nil {
		log.Err("failed to sweep quality cache", err)
	} else if removed > 0 {
		log.Infof("swept %d expired quality cache rows", removed)
	}

	j.broadcast(evt)
	return evt
}

//Run sweeps every interval until ctx is done. Sweep failures are
//reported to listeners and do not stop the loop.
func (j *Janitor) Run(ctx context.Context) error {
	if j.interval <= 0 {
		return ErrInterval
	}

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	log.WithField("interval", j.interval).Debug("cache janitor started")
	for {
		select {
		case <-ctx.Done():
			log.Debug("cache janitor stopped")
			return nil
		case <-ticker.C:
			j.SweepNow()
		}
	}
}

//broadcast calls listeners outside the lock so they may add or remove listeners
func (j *Janitor) broadcast(evt Event) {
	j.lock.Lock()
	listeners := make([]Listener, 0, len(j.listeners))
	for _, l := range j.listeners {
		listeners = append(listeners, l)
	}
	j.lock.Unlock()

	for _, l := range listeners {
		l(evt)
	}
}
