// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/ytdlq/internal/metrics"
)

func TestBus_ProgressDroppedWhenSubscriberFull(t *testing.T) {
	b := newBus()
	sub := b.subscribe(context.Background())
	t.Cleanup(sub.Close)

	for i := 0; i < SubscriptionBuffer; i++ {
		b.publish(ProgressEvent{JobID: "a", Percent: float64(i)})
	}

	before := testutil.ToFloat64(metrics.BusDroppedTotal.WithLabelValues("progress", "subscriber_full"))
	b.publish(ProgressEvent{JobID: "a", Percent: 99})
	after := testutil.ToFloat64(metrics.BusDroppedTotal.WithLabelValues("progress", "subscriber_full"))
	assert.Equal(t, before+1, after)
	assert.Len(t, sub.C(), SubscriptionBuffer)
}

func TestBus_FullSubscriberEvictedOnLifecycleEvent(t *testing.T) {
	b := newBus()
	stalled := b.subscribe(context.Background())
	live := b.subscribe(context.Background())
	t.Cleanup(stalled.Close)
	t.Cleanup(live.Close)

	for i := 0; i < SubscriptionBuffer; i++ {
		b.publish(JobAddedEvent{})
		<-live.C()
	}

	before := testutil.ToFloat64(metrics.BusDroppedTotal.WithLabelValues("job_completed", "subscriber_evicted"))
	done := make(chan struct{})
	go func() {
		defer close(done)
		b.publish(JobCompletedEvent{})
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publisher blocked on a full subscriber")
	}
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.BusDroppedTotal.WithLabelValues("job_completed", "subscriber_evicted")))

	// the live subscriber still gets the event
	select {
	case ev := <-live.C():
		assert.Equal(t, JobCompletedEvent{}, ev)
	case <-time.After(time.Second):
		t.Fatal("event not delivered to live subscriber")
	}

	// the stalled one drains its backlog, then sees the end of the stream
	n := 0
	for range stalled.C() {
		n++
	}
	assert.Equal(t, SubscriptionBuffer, n)
}

func TestBus_TerminalEventDelivered(t *testing.T) {
	b := newBus()
	sub := b.subscribe(context.Background())
	t.Cleanup(sub.Close)

	b.publish(QueueCompletedEvent{Completed: 2})
	select {
	case ev := <-sub.C():
		assert.Equal(t, QueueCompletedEvent{Completed: 2}, ev)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_PublishAfterSubscriptionClosed(t *testing.T) {
	b := newBus()
	sub := b.subscribe(context.Background())
	sub.Close()
	sub.Close()

	b.publish(JobFailedEvent{})
	_, ok := <-sub.C()
	assert.False(t, ok)
}

func TestBus_SubscriptionEndsWithContext(t *testing.T) {
	b := newBus()
	ctx, cancel := context.WithCancel(context.Background())
	sub := b.subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		select {
		case _, ok := <-sub.C():
			return !ok
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)

	b.publish(QueueCompletedEvent{})
}

func TestBus_SubscribeAfterClose(t *testing.T) {
	b := newBus()
	b.close()

	sub := b.subscribe(context.Background())
	_, ok := <-sub.C()
	assert.False(t, ok)
}
