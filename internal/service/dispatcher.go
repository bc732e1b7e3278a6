package service

import (
	"context"
	"sync"
	"time"

	"healthathome/internal/entity"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Dispatcher sends lifecycle emails after the triggering state change has
// been persisted. Delivery is at-most-once: failures are logged and never
// propagated, and a send whose dispatch generation has already been seen
// for a principal is dropped so a retried mutation cannot double-send.
type Dispatcher struct {
	Notifier Notifier
	Logger   *logrus.Logger
	Timeout  time.Duration
	// Retention bounds how long the last dispatched generation is remembered
	// per principal. The generation bump committed with the state change is
	// the durable guard; the map only dedupes close-together retries, so
	// stale entries can be dropped instead of growing for the process
	// lifetime.
	Retention time.Duration
	// Sync makes Dispatch block until delivery finishes. Tests use it;
	// production dispatch is fire-and-forget.
	Sync bool

	mu   sync.Mutex
	seen map[uuid.UUID]seenGeneration
}

type seenGeneration struct {
	generation int64
	at         time.Time
}

func NewDispatcher(notifier Notifier, logger *logrus.Logger) *Dispatcher {
	return &Dispatcher{
		Notifier:  notifier,
		Logger:    logger,
		Timeout:   15 * time.Second,
		Retention: time.Hour,
		seen:      map[uuid.UUID]seenGeneration{},
	}
}

func (d *Dispatcher) Dispatch(principal *entity.Principal, template Template, merge map[string]string) {
	if d == nil || d.Notifier == nil || principal == nil {
		return
	}
	if !d.claim(principal.ID, principal.Account.DispatchGeneration) {
		return
	}

	if d.Sync {
		d.send(principal, template, merge)
		return
	}
	go d.send(principal, template, merge)
}

func (d *Dispatcher) claim(id uuid.UUID, generation int64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.seen == nil {
		d.seen = map[uuid.UUID]seenGeneration{}
	}
	now := time.Now()
	d.evictStale(now)
	if entry, ok := d.seen[id]; ok && generation <= entry.generation {
		return false
	}
	d.seen[id] = seenGeneration{generation: generation, at: now}
	return true
}

func (d *Dispatcher) evictStale(now time.Time) {
	retention := d.Retention
	if retention == 0 {
		retention = time.Hour
	}
	for id, entry := range d.seen {
		if now.Sub(entry.at) > retention {
			delete(d.seen, id)
		}
	}
}

func (d *Dispatcher) send(principal *entity.Principal, template Template, merge map[string]string) {
	timeout := d.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := d.Notifier.Send(ctx, principal, template, merge); err != nil {
		if d.Logger != nil {
			d.Logger.WithFields(logrus.Fields{
				"principal": principal.ID,
				"kind":      principal.Kind,
				"template":  template,
			}).WithError(err).Error("email dispatch failed")
		}
		return
	}
	if d.Logger != nil {
		d.Logger.WithFields(logrus.Fields{
			"principal": principal.ID,
			"kind":      principal.Kind,
			"template":  template,
		}).Info("email dispatched")
	}
}
