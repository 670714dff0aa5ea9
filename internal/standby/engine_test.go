package standby

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbus-retail/kioskd/internal/model"
)

// morning pins the validity/day-part clock; rotation timing still runs on
// the real clock at millisecond scale.
func morning() time.Time {
	return time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)
}

func startEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	if opts.Clock == nil {
		opts.Clock = morning
	}
	e := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { e.Run(ctx); close(done) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return e
}

func amPlaylist(items ...model.MediaItem) model.PlaylistData {
	return model.PlaylistData{Campaigns: []model.Campaign{{ID: "c", Name: "c", AM: items}}}
}

func timedImage(id string, seconds float64) model.MediaItem {
	item := imageItem(id)
	item.Duration = &seconds
	return item
}

// one AM image with its own duration and no videos: the main index advances
// by exactly one when the duration elapses, while the side index holds until
// its own interval comes around.
func TestImageDurationDrivesMainPane(t *testing.T) {
	e := startEngine(t, Options{SideInterval: time.Hour})

	e.SetPlaylist(amPlaylist(timedImage("img", 0.3)))

	snap := e.snapshotNow()
	require.NotNil(t, snap.view.Main)
	assert.Equal(t, "img", snap.view.Main.ID)
	assert.Equal(t, 0, snap.mainIndex)

	time.Sleep(450 * time.Millisecond)
	snap = e.snapshotNow()
	assert.Equal(t, 1, snap.mainIndex, "main index advances exactly once per duration")
	assert.Equal(t, 0, snap.sideIndex, "side interval has not elapsed")
}

// with at least one video in the pool, no duration timer may fire; only
// VideoEnded/VideoError advances the main pane.
func TestVideoPrecedenceOverDurationTimer(t *testing.T) {
	e := startEngine(t, Options{DefaultImageDuration: 50 * time.Millisecond, SideInterval: time.Hour})

	e.SetPlaylist(amPlaylist(videoItem("v1"), videoItem("v2"), timedImage("img", 0.05)))

	time.Sleep(200 * time.Millisecond)
	snap := e.snapshotNow()
	assert.Equal(t, 0, snap.mainIndex, "no timer may advance a video-driven pane")
	assert.Equal(t, "v1", snap.view.Main.ID)

	e.VideoEnded()
	snap = e.snapshotNow()
	assert.Equal(t, 1, snap.mainIndex)
	assert.Equal(t, "v2", snap.view.Main.ID)

	e.VideoError()
	snap = e.snapshotNow()
	assert.Equal(t, 2, snap.mainIndex)
	assert.Equal(t, "v1", snap.view.Main.ID)
}

// shrinking a pool resets both counters instead of reusing the stale index
// against the new modulus.
func TestIndexResetOnPoolResize(t *testing.T) {
	e := startEngine(t, Options{SideInterval: time.Hour})

	var eight []model.MediaItem
	for _, id := range []string{"a", "b", "c", "d", "e", "f", "g", "h"} {
		eight = append(eight, videoItem(id))
	}
	e.SetPlaylist(amPlaylist(eight...))

	for i := 0; i < 5; i++ {
		e.VideoEnded()
	}
	snap := e.snapshotNow()
	require.Equal(t, 5, snap.mainIndex)
	require.Equal(t, "f", snap.view.Main.ID)

	e.SetPlaylist(amPlaylist(videoItem("x"), videoItem("y"), videoItem("z")))
	snap = e.snapshotNow()
	assert.Equal(t, 0, snap.mainIndex, "reset, not 5 mod 3")
	assert.Equal(t, "x", snap.view.Main.ID)
}

// the side pane rotates on its fixed interval regardless of what the main
// pane is doing.
func TestSidePaneIndependence(t *testing.T) {
	e := startEngine(t, Options{SideInterval: 100 * time.Millisecond})

	e.SetPlaylist(amPlaylist(videoItem("v"), timedImage("i1", 60), timedImage("i2", 60)))

	assert.Eventually(t, func() bool { return e.snapshotNow().sideIndex >= 2 },
		2*time.Second, 10*time.Millisecond)
	snap := e.snapshotNow()
	assert.Equal(t, 0, snap.mainIndex, "main pane is mid-video, untouched by side rotation")
}

func TestInactiveSuspendsRotation(t *testing.T) {
	e := startEngine(t, Options{SideInterval: 50 * time.Millisecond})

	e.SetPlaylist(amPlaylist(timedImage("i1", 0.05), timedImage("i2", 0.05)))
	e.SetActive(false)

	snap := e.snapshotNow()
	base := snap.mainIndex

	time.Sleep(250 * time.Millisecond)
	snap = e.snapshotNow()
	assert.False(t, snap.view.Active)
	assert.Equal(t, base, snap.mainIndex, "main timer cancelled while inactive")
	assert.Equal(t, 0, snap.sideIndex, "side ticker cancelled while inactive")

	e.SetActive(true)
	assert.Eventually(t, func() bool { return e.snapshotNow().sideIndex > 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestPlaceholderFallbackView(t *testing.T) {
	e := startEngine(t, Options{SideInterval: time.Hour})

	ph := imageItem("ph")
	e.SetPlaylist(model.PlaylistData{PlaceHolder: &ph})
	view := e.CurrentView()
	assert.True(t, view.Placeholder)
	require.NotNil(t, view.Main)
	assert.Equal(t, "ph", view.Main.ID)

	e.SetPlaylist(model.PlaylistData{})
	view = e.CurrentView()
	assert.False(t, view.Placeholder)
	assert.Nil(t, view.Main)
}

func TestSubscribersSeeOnlyChanges(t *testing.T) {
	e := startEngine(t, Options{SideInterval: time.Hour})

	_, ch, cancel := e.Subscribe()
	defer cancel()

	pl := amPlaylist(imageItem("i1"), imageItem("i2"))
	e.SetPlaylist(pl)

	select {
	case view := <-ch:
		assert.Equal(t, "i1", view.Main.ID)
	case <-time.After(time.Second):
		t.Fatal("expected a view after first publish")
	}

	// structurally identical publish must not produce a second view
	e.SetPlaylist(pl)
	select {
	case view := <-ch:
		t.Fatalf("unexpected view update: %+v", view)
	case <-time.After(100 * time.Millisecond):
	}

	// cancel twice is fine
	cancel()
	cancel()
}

// commands arriving after the run loop stopped must not block the caller;
// a renderer event or snapshot request can race shutdown.
func TestCommandsAfterShutdownDoNotBlock(t *testing.T) {
	e := New(Options{Clock: morning})
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	cancel()
	<-e.done

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		// more sends than the command buffer holds
		for i := 0; i < 64; i++ {
			e.SetPlaylist(amPlaylist(imageItem("late")))
			e.VideoEnded()
		}
		e.SetActive(false)
		assert.Equal(t, View{}, e.CurrentView())
	}()

	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("command against a stopped engine blocked")
	}
}
