// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"sync"
	"sync/atomic"

	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/metrics"
)

// SubscriptionBuffer is the per-subscriber channel capacity.
const SubscriptionBuffer = 256

const dropLogEvery = 100

// bus fans events out to subscribers without ever blocking the publisher.
// Progress is delivered best-effort. A subscriber whose buffer is full when
// any other event arrives is evicted: its channel is closed, so it sees the
// end of the stream rather than a gap in job lifecycles.
type bus struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool

	drops atomic.Uint64
}

func newBus() *bus {
	return &bus{subs: make(map[*Subscription]struct{})}
}

// Subscription receives scheduler events in publish order per job.
type Subscription struct {
	b    *bus
	ch   chan Event
	done chan struct{}

	// mu is held shared by senders and exclusively by close so the channel
	// is never closed under a sender.
	mu       sync.RWMutex
	closed   bool
	stopOnce sync.Once
}

// C returns the event channel. It is closed when the subscription ends.
func (s *Subscription) C() <-chan Event { return s.ch }

// Close ends the subscription. It is safe to call more than once.
func (s *Subscription) Close() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.b.mu.Lock()
		delete(s.b.subs, s)
		s.b.mu.Unlock()

		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
	})
}

func (b *bus) subscribe(ctx context.Context) *Subscription {
	s := &Subscription{
		b:    b,
		ch:   make(chan Event, SubscriptionBuffer),
		done: make(chan struct{}),
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		s.Close()
		return s
	}
	b.subs[s] = struct{}{}
	b.mu.Unlock()

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				s.Close()
			case <-s.done:
			}
		}()
	}
	return s
}

func (b *bus) publish(ev Event) {
	b.mu.RLock()
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.RUnlock()

	_, bestEffort := ev.(ProgressEvent)
	for _, s := range subs {
		if s.send(ev) {
			continue
		}
		if bestEffort {
			b.recordDrop(ev, "subscriber_full")
			continue
		}
		s.Close()
		b.recordDrop(ev, "subscriber_evicted")
		xlog.L().Warn().
			Str(xlog.FieldEvent, ev.Kind()).
			Msg("queue subscriber evicted: buffer full")
	}
}

// send delivers ev without blocking. It reports false only when the buffer
// is full; a closed subscription counts as delivered.
func (s *Subscription) send(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- ev:
		return true
	default:
		return false
	}
}

func (b *bus) recordDrop(ev Event, reason string) {
	metrics.IncBusDrop(ev.Kind(), reason)
	if count := b.drops.Add(1); count%dropLogEvery == 1 {
		xlog.L().Warn().
			Str(xlog.FieldEvent, ev.Kind()).
			Str("reason", reason).
			Uint64("dropped", count).
			Msg("queue event dropped")
	}
}

func (b *bus) close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*Subscription, 0, len(b.subs))
	for s := range b.subs {
		subs = append(subs, s)
	}
	b.mu.Unlock()

	for _, s := range subs {
		s.Close()
	}
}
