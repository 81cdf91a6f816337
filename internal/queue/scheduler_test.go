// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package queue_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/ManuGH/ytdlq/internal/download"
	"github.com/ManuGH/ytdlq/internal/download/downloadtest"
	"github.com/ManuGH/ytdlq/internal/ladder"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/queue"
)

const (
	timeout = 2 * time.Second
	quiet   = 50 * time.Millisecond
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fetchFunc func(ctx context.Context, src *media.Source) error

func (f fetchFunc) Fetch(ctx context.Context, src *media.Source) error { return f(ctx, src) }

func newScheduler(t *testing.T, maxConcurrent int, fetcher queue.Fetcher) (*queue.Scheduler, *downloadtest.Runner) {
	t.Helper()
	runner := downloadtest.NewRunner()
	s, err := queue.New(queue.Config{
		MaxConcurrent: maxConcurrent,
		TargetDir:     t.TempDir(),
		Fetcher:       fetcher,
		Runner:        runner,
		ProbeGrace:    10 * time.Millisecond,
		StopGrace:     time.Second,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		assert.NoError(t, s.Close(ctx))
	})
	return s, runner
}

func clip(n int) *media.Source {
	return media.NewFetchedSource(fmt.Sprintf("https://example.com/watch?v=%d", n), media.Metadata{
		Title: fmt.Sprintf("Clip %d", n),
		Ladder: ladder.Ladder{
			{Height: 720, FormatID: "22", Ext: "mp4", NativeCombined: true},
			{Height: 480, FormatID: "135", Ext: "mp4", NeedsMerging: true, BestAudioFormatID: "140"},
		},
	})
}

func add(t *testing.T, s *queue.Scheduler, src *media.Source) string {
	t.Helper()
	id, err := s.Add(context.Background(), src, nil)
	require.NoError(t, err)
	return id
}

func next(t *testing.T, r *downloadtest.Runner) *downloadtest.Handle {
	t.Helper()
	h := r.Next(timeout)
	require.NotNil(t, h, "expected a spawn")
	return h
}

// await reads events until match returns true and returns everything seen.
func await(t *testing.T, sub *queue.Subscription, match func(queue.Event) bool) []queue.Event {
	t.Helper()
	var seen []queue.Event
	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-sub.C():
			require.True(t, ok, "subscription closed early")
			seen = append(seen, ev)
			if match(ev) {
				return seen
			}
		case <-deadline:
			t.Fatalf("timed out; saw %d events", len(seen))
		}
	}
}

func isDrained(ev queue.Event) bool {
	_, ok := ev.(queue.QueueCompletedEvent)
	return ok
}

func TestScheduler_FreedSlotStartsNextPending(t *testing.T) {
	s, runner := newScheduler(t, 2, nil)
	a, b, c := clip(1), clip(2), clip(3)

	add(t, s, a)
	add(t, s, b)
	add(t, s, c)

	ha, hb := next(t, runner), next(t, runner)
	assert.Equal(t, a.URL(), ha.Inv.URL)
	assert.Equal(t, b.URL(), hb.Inv.URL)
	assert.Nil(t, runner.Next(quiet), "third job must wait for a slot")

	st := s.Status()
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 2, st.Active)

	ha.Succeed()
	hc := next(t, runner)
	assert.Equal(t, c.URL(), hc.Inv.URL)

	hb.Succeed()
	hc.Succeed()
	require.Eventually(t, func() bool { return s.Status().Completed == 3 }, timeout, 5*time.Millisecond)
}

func TestScheduler_NeverExceedsCapacity(t *testing.T) {
	s, runner := newScheduler(t, 2, nil)
	sub := s.Subscribe(context.Background())

	const n = 6
	for i := 0; i < n; i++ {
		add(t, s, clip(i))
	}

	for i := 0; i < n; i++ {
		h := next(t, runner)
		assert.LessOrEqual(t, s.Status().Active, 2)
		h.Stdout("[download]  50.0% of 1.00MiB")
		h.Succeed()
	}

	seen := await(t, sub, isDrained)
	drained := seen[len(seen)-1].(queue.QueueCompletedEvent)
	assert.Equal(t, n, drained.Completed)
	assert.Zero(t, drained.Failed)
	assert.Equal(t, n, runner.Starts())

	for _, ev := range seen[:len(seen)-1] {
		assert.False(t, isDrained(ev), "queue completed more than once")
	}
}

func TestScheduler_PerJobEventOrder(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)
	sub := s.Subscribe(context.Background())

	id := add(t, s, clip(1))
	h := next(t, runner)
	h.Stdout("[download]  10.0% of 1.00MiB")
	h.Stdout("[download]  90.0% of 1.00MiB")
	h.Succeed()

	var kinds []string
	for _, ev := range await(t, sub, isDrained) {
		kinds = append(kinds, ev.Kind())
	}
	assert.Equal(t, []string{"job_added", "job_started", "progress", "progress", "job_completed", "queue_completed"}, kinds)

	job, ok := s.Job(id)
	require.True(t, ok)
	assert.Equal(t, download.StateCompleted, job.State)
	assert.Equal(t, float64(100), job.Percent)
}

func TestScheduler_RemovePendingNeverSpawns(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)
	sub := s.Subscribe(context.Background())

	add(t, s, clip(1))
	b := add(t, s, clip(2))
	ha := next(t, runner)

	require.True(t, s.Remove(b))
	assert.False(t, s.Remove(b), "second remove is a no-op")

	ha.Succeed()
	seen := await(t, sub, isDrained)

	assert.Equal(t, 1, runner.Starts())
	job, ok := s.Job(b)
	require.True(t, ok)
	assert.Equal(t, download.StateCancelled, job.State)

	var removed []queue.JobRemovedEvent
	for _, ev := range seen {
		if r, ok := ev.(queue.JobRemovedEvent); ok {
			removed = append(removed, r)
		}
	}
	require.Len(t, removed, 1)
	assert.Equal(t, b, removed[0].Job.ID)
	assert.False(t, removed[0].WasActive)
}

func TestScheduler_RemoveActiveNeverCompletes(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)
	sub := s.Subscribe(context.Background())

	a := add(t, s, clip(1))
	h := next(t, runner)

	require.True(t, s.Remove(a))
	seen := await(t, sub, func(ev queue.Event) bool {
		_, ok := ev.(queue.JobRemovedEvent)
		return ok
	})

	for _, ev := range seen {
		assert.NotEqual(t, "job_completed", ev.Kind())
		assert.NotEqual(t, "job_failed", ev.Kind())
	}
	assert.True(t, seen[len(seen)-1].(queue.JobRemovedEvent).WasActive)
	assert.Len(t, h.StopCalls(), 1)

	job, _ := s.Job(a)
	assert.Equal(t, download.StateCancelled, job.State)
	assert.Equal(t, 1, s.Status().Removed)
	assert.False(t, s.Remove("missing"))
}

func TestScheduler_FailureIsContained(t *testing.T) {
	s, runner := newScheduler(t, 2, nil)
	sub := s.Subscribe(context.Background())

	a := add(t, s, clip(1))
	add(t, s, clip(2))
	ha, hb := next(t, runner), next(t, runner)

	ha.Stderr("ERROR: [youtube] abc: Video unavailable")
	hb.Succeed()

	seen := await(t, sub, isDrained)
	assert.Equal(t, queue.QueueCompletedEvent{Completed: 1, Failed: 1}, seen[len(seen)-1])

	var failed *queue.JobFailedEvent
	for _, ev := range seen {
		if f, ok := ev.(queue.JobFailedEvent); ok {
			failed = &f
		}
	}
	require.NotNil(t, failed)
	assert.Equal(t, a, failed.Job.ID)
	var dfe *download.DownloadFailedError
	require.ErrorAs(t, failed.Err, &dfe)
	assert.Contains(t, dfe.Detail, "Video unavailable")
}

func TestScheduler_StalledSubscriberDoesNotBlock(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)
	stalled := s.Subscribe(context.Background())
	t.Cleanup(stalled.Close)

	n := queue.SubscriptionBuffer + 50
	added := make(chan error, 1)
	go func() {
		for i := 0; i < n; i++ {
			if _, err := s.Add(context.Background(), clip(i), nil); err != nil {
				added <- err
				return
			}
		}
		added <- nil
	}()
	select {
	case err := <-added:
		require.NoError(t, err)
	case <-time.After(timeout):
		t.Fatalf("Add blocked behind a subscriber that never reads; status=%+v", s.Status())
	}

	// jobs still retire and free their slot
	next(t, runner).Succeed()
	next(t, runner)
	require.Eventually(t, func() bool { return s.Status().Completed == 1 }, timeout, 5*time.Millisecond)

	live := s.Subscribe(context.Background())
	t.Cleanup(live.Close)
	add(t, s, clip(n))
	await(t, live, func(ev queue.Event) bool {
		_, ok := ev.(queue.JobAddedEvent)
		return ok
	})
}

func TestScheduler_PauseResume(t *testing.T) {
	s, runner := newScheduler(t, 2, nil)

	s.Pause()
	add(t, s, clip(1))
	assert.Nil(t, runner.Next(quiet))
	assert.True(t, s.Status().Paused)
	assert.Equal(t, 1, s.Status().Pending)

	s.Resume()
	h := next(t, runner)
	assert.False(t, s.Status().Paused)
	h.Succeed()
}

func TestScheduler_Clear(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)

	add(t, s, clip(1))
	add(t, s, clip(2))
	h := next(t, runner)

	s.Clear()
	st := s.Status()
	assert.Zero(t, st.Pending)
	assert.Zero(t, st.Active)
	assert.Equal(t, 2, st.Removed)
	assert.Len(t, h.StopCalls(), 1)
	assert.Nil(t, runner.Next(quiet))
	assert.Equal(t, 1, runner.Starts())
}

func TestScheduler_SetMaxConcurrent(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)

	for i := 0; i < 3; i++ {
		add(t, s, clip(i))
	}
	h1 := next(t, runner)
	require.NoError(t, s.SetMaxConcurrent(3))
	h2, h3 := next(t, runner), next(t, runner)

	assert.ErrorIs(t, s.SetMaxConcurrent(0), queue.ErrInvalidConcurrency)
	assert.Equal(t, 3, s.Status().MaxConcurrent)

	for _, h := range []*downloadtest.Handle{h1, h2, h3} {
		h.Succeed()
	}
}

func TestScheduler_SelectorPicksQuality(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)

	id, err := s.Add(context.Background(), clip(1), queue.ByHeight(480))
	require.NoError(t, err)
	h := next(t, runner)
	assert.Contains(t, h.Inv.Format, "135+140")

	job, _ := s.Job(id)
	assert.Equal(t, 480, job.Quality.Height)
	h.Succeed()
}

func TestScheduler_SelectorMissFallsBackToBest(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)

	id, err := s.Add(context.Background(), clip(1), queue.ByHeight(2160))
	require.NoError(t, err)
	next(t, runner).Succeed()

	job, _ := s.Job(id)
	assert.Equal(t, 720, job.Quality.Height)
}

func TestScheduler_NoQuality(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)

	src := media.NewFetchedSource("https://example.com/empty", media.Metadata{Title: "Empty"})
	_, err := s.Add(context.Background(), src, nil)
	assert.ErrorIs(t, err, queue.ErrNoQuality)
	assert.Zero(t, runner.Starts())
	assert.Empty(t, s.Jobs())
}

func TestScheduler_FetchErrorPropagates(t *testing.T) {
	wantErr := &media.ExtractionError{URL: "https://example.com/x", Detail: "Unsupported URL"}
	s, runner := newScheduler(t, 1, fetchFunc(func(context.Context, *media.Source) error {
		return wantErr
	}))

	_, err := s.Add(context.Background(), media.NewSource("https://example.com/x"), nil)
	var ee *media.ExtractionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "Unsupported URL", ee.Detail)
	assert.Zero(t, runner.Starts())
}

func TestScheduler_UnfetchedSourceWithoutFetcher(t *testing.T) {
	s, _ := newScheduler(t, 1, nil)

	_, err := s.Add(context.Background(), media.NewSource("https://example.com/x"), nil)
	assert.ErrorIs(t, err, media.ErrNotFetched)
}

func TestScheduler_JobsOldestFirst(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)

	a := add(t, s, clip(1))
	b := add(t, s, clip(2))
	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, a, jobs[0].ID)
	assert.Equal(t, b, jobs[1].ID)

	_, ok := s.Job("missing")
	assert.False(t, ok)
	_, ok = s.Diagnostics("missing")
	assert.False(t, ok)

	next(t, runner).Succeed()
	next(t, runner).Succeed()
}

func TestScheduler_ClosedRejectsAdd(t *testing.T) {
	s, runner := newScheduler(t, 1, nil)
	sub := s.Subscribe(context.Background())

	add(t, s, clip(1))
	h := next(t, runner)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	require.NoError(t, s.Close(ctx))
	assert.Len(t, h.StopCalls(), 1)

	_, err := s.Add(context.Background(), clip(2), nil)
	assert.True(t, errors.Is(err, queue.ErrClosed))

	// drain until the subscription is closed
	deadline := time.After(timeout)
	for {
		select {
		case _, ok := <-sub.C():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("subscription not closed")
		}
	}
}

func TestNew_Validation(t *testing.T) {
	_, err := queue.New(queue.Config{})
	assert.Error(t, err)

	_, err = queue.New(queue.Config{Runner: downloadtest.NewRunner(), MaxConcurrent: -1})
	assert.ErrorIs(t, err, queue.ErrInvalidConcurrency)
}
