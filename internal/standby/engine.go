// Package standby rotates the idle-mode signage panes. All state lives
// inside one goroutine; everything external - playlist publishes, renderer
// events, the active flag - arrives as a typed command on one channel, so
// there is no scattered mutation and never more than one main-pane
// advancement mechanism armed at a time.
package standby

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nimbus-retail/kioskd/internal/deepequal"
	"github.com/nimbus-retail/kioskd/internal/model"
)

type Options struct {
	// SideInterval is the fixed side-pane rotation period.
	SideInterval time.Duration
	// DefaultImageDuration applies to images without their own duration.
	DefaultImageDuration time.Duration
	// RevalidateInterval re-runs the wall-clock validity filter so day-part
	// flips and expiring windows take effect between playlist publishes.
	RevalidateInterval time.Duration
	// Clock is the wall clock; tests pin it.
	Clock func() time.Time
}

func (o Options) withDefaults() Options {
	if o.SideInterval <= 0 {
		o.SideInterval = 8 * time.Second
	}
	if o.DefaultImageDuration <= 0 {
		o.DefaultImageDuration = 10 * time.Second
	}
	if o.RevalidateInterval <= 0 {
		o.RevalidateInterval = 60 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o
}

type cmdKind int

const (
	cmdSetPlaylist cmdKind = iota
	cmdSetActive
	cmdVideoDone
	cmdSnapshot
)

type command struct {
	kind     cmdKind
	playlist model.PlaylistData
	active   bool
	reason   string
	reply    chan snapshot
}

type snapshot struct {
	view      View
	mainIndex int
	sideIndex int
}

type Engine struct {
	opts Options
	cmds chan command
	done chan struct{}

	subMu sync.Mutex
	subs  map[uuid.UUID]chan View
}

func New(opts Options) *Engine {
	return &Engine{
		opts: opts.withDefaults(),
		cmds: make(chan command, 16),
		done: make(chan struct{}),
		subs: make(map[uuid.UUID]chan View),
	}
}

// send enqueues a command unless Run has already exited; late callers (a
// renderer event racing shutdown) drop the command instead of blocking.
func (e *Engine) send(cmd command) bool {
	select {
	case e.cmds <- cmd:
		return true
	case <-e.done:
		return false
	}
}

// SetPlaylist replaces the content set wholesale.
func (e *Engine) SetPlaylist(pl model.PlaylistData) {
	e.send(command{kind: cmdSetPlaylist, playlist: pl})
}

// SetActive gates both rotation timers; while false they are fully
// cancelled, not merely paused.
func (e *Engine) SetActive(active bool) {
	e.send(command{kind: cmdSetActive, active: active})
}

// VideoEnded advances the main pane after a video finished playing.
func (e *Engine) VideoEnded() {
	e.send(command{kind: cmdVideoDone, reason: "ended"})
}

// VideoError advances past a video the renderer could not play.
func (e *Engine) VideoError() {
	e.send(command{kind: cmdVideoDone, reason: "error"})
}

// CurrentView returns the selection the renderer should be showing now.
func (e *Engine) CurrentView() View {
	return e.snapshotNow().view
}

func (e *Engine) snapshotNow() snapshot {
	reply := make(chan snapshot, 1)
	if !e.send(command{kind: cmdSnapshot, reply: reply}) {
		return snapshot{}
	}
	select {
	case s := <-reply:
		return s
	case <-e.done:
		return snapshot{}
	}
}

// Subscribe registers a view listener. The returned cancel is idempotent.
func (e *Engine) Subscribe() (uuid.UUID, <-chan View, func()) {
	id := uuid.New()
	ch := make(chan View, 8)

	e.subMu.Lock()
	e.subs[id] = ch
	e.subMu.Unlock()

	cancel := func() {
		e.subMu.Lock()
		defer e.subMu.Unlock()
		if _, ok := e.subs[id]; ok {
			delete(e.subs, id)
			close(ch)
		}
	}
	return id, ch, cancel
}

func (e *Engine) broadcast(view View) {
	e.subMu.Lock()
	defer e.subMu.Unlock()
	for id, ch := range e.subs {
		select {
		case ch <- view:
		default:
			// slow consumer: drop it rather than stall the scheduler
			delete(e.subs, id)
			close(ch)
		}
	}
}

// Run owns all rotation state until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) {
	defer close(e.done)
	var (
		pl                   model.PlaylistData
		videos, images       []model.MediaItem
		mainIndex, sideIndex int
		active               = true
		lastView             View
		haveView             bool
	)

	var mainTimer *time.Timer
	var sideTicker *time.Ticker

	stopMain := func() {
		if mainTimer != nil {
			mainTimer.Stop()
			mainTimer = nil
		}
	}
	stopSide := func() {
		if sideTicker != nil {
			sideTicker.Stop()
			sideTicker = nil
		}
	}

	// The duration timer is armed only for an image-driven main pane; when
	// videos exist, VideoEnded/VideoError is the sole advancement mechanism.
	armMain := func() {
		stopMain()
		if active && len(videos) == 0 && len(images) > 0 {
			item := images[mainIndex%len(images)]
			mainTimer = time.NewTimer(item.DisplayDuration(e.opts.DefaultImageDuration))
		}
	}
	armSide := func() {
		stopSide()
		if active && len(images) > 0 {
			sideTicker = time.NewTicker(e.opts.SideInterval)
		}
	}

	emit := func() {
		view := buildView(videos, images, pl.PlaceHolder, mainIndex, sideIndex, active)
		if haveView && deepequal.Equal(lastView, view) {
			return
		}
		lastView, haveView = view, true
		e.broadcast(view)
	}

	recompute := func(now time.Time) {
		v, i := SplitPools(ValidItems(pl, now))
		resized := len(v) != len(videos) || len(i) != len(images)
		videos, images = v, i
		if resized {
			// a stale index against a resized pool could skip or repeat
			// items unpredictably
			mainIndex, sideIndex = 0, 0
			armMain()
			armSide()
		}
		emit()
	}

	revalidate := time.NewTicker(e.opts.RevalidateInterval)
	defer revalidate.Stop()
	defer stopMain()
	defer stopSide()

	for {
		var mainC <-chan time.Time
		if mainTimer != nil {
			mainC = mainTimer.C
		}
		var sideC <-chan time.Time
		if sideTicker != nil {
			sideC = sideTicker.C
		}

		select {
		case <-ctx.Done():
			return

		case cmd := <-e.cmds:
			switch cmd.kind {
			case cmdSetPlaylist:
				pl = cmd.playlist
				recompute(e.opts.Clock())

			case cmdSetActive:
				if cmd.active == active {
					continue
				}
				active = cmd.active
				log.Info().Bool("active", active).Msg("standby active flag changed")
				armMain()
				armSide()
				emit()

			case cmdVideoDone:
				if !active || len(videos) == 0 {
					continue
				}
				log.Debug().Str("reason", cmd.reason).Msg("video finished, advancing main pane")
				mainIndex++
				emit()

			case cmdSnapshot:
				cmd.reply <- snapshot{
					view:      buildView(videos, images, pl.PlaceHolder, mainIndex, sideIndex, active),
					mainIndex: mainIndex,
					sideIndex: sideIndex,
				}
			}

		case <-mainC:
			mainIndex++
			armMain()
			emit()

		case <-sideC:
			sideIndex++
			emit()

		case <-revalidate.C:
			recompute(e.opts.Clock())
		}
	}
}
