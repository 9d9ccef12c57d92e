package hostsim

import (
	"context"
	"errors"
	"time"

	"scrapworks.ai/internal/host"
)

var ErrStopped = errors.New("world stopped")

// maxCatchUp bounds how many times one timer fires in a single step.
const maxCatchUp = 8

type timer struct {
	interval  time.Duration
	next      time.Time
	fn        func()
	destroyed bool
}

func (t *timer) Destroy()        { t.destroyed = true }
func (t *timer) Destroyed() bool { return t.destroyed }

// Every arms a recurring timer on the world clock.
func (w *World) Every(interval time.Duration, fn func()) host.Timer {
	if interval <= 0 {
		interval = w.FrameInterval()
	}
	t := &timer{interval: interval, next: w.now.Add(interval), fn: fn}
	w.timers = append(w.timers, t)
	return t
}

// Run drives the world from a frame ticker until ctx is done or Stop is called.
// Requests arriving between frames are applied at the start of the next frame.
func (w *World) Run(ctx context.Context) error {
	interval := w.FrameInterval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	w.Initialize()

	var pendingSpawns []spawnReq
	var pendingKills []host.EntityID
	pendingSave := false

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.stop:
			return nil
		case req := <-w.spawn:
			pendingSpawns = append(pendingSpawns, req)
		case id := <-w.kill:
			pendingKills = append(pendingKills, id)
		case fn := <-w.exec:
			fn()
		case <-w.save:
			pendingSave = true
		case <-ticker.C:
			for _, req := range pendingSpawns {
				w.Spawn(req.e)
				if req.done != nil {
					close(req.done)
				}
			}
			for _, id := range pendingKills {
				w.Kill(id)
			}
			if pendingSave {
				w.Save()
			}
			w.Step(interval)
			pendingSpawns = pendingSpawns[:0]
			pendingKills = pendingKills[:0]
			pendingSave = false
		}
	}
}

// Stop ends Run. It must be called at most once.
func (w *World) Stop() { close(w.stop) }

// Step advances the world clock by dt: OnFrame hooks run first, then every timer
// that came due.
func (w *World) Step(dt time.Duration) {
	w.frame++
	w.now = w.now.Add(dt)

	for _, h := range w.hooks {
		h.OnFrame()
	}

	// Timers armed by a callback wait for the next step.
	due := w.timers
	for _, t := range due {
		for n := 0; n < maxCatchUp && !t.destroyed && !t.next.After(w.now); n++ {
			t.next = t.next.Add(t.interval)
			t.fn()
		}
		if !t.destroyed && !t.next.After(w.now) {
			// too far behind; skip the missed periods
			t.next = w.now.Add(t.interval)
		}
	}

	live := w.timers[:0]
	for _, t := range w.timers {
		if !t.destroyed {
			live = append(live, t)
		}
	}
	for i := len(live); i < len(w.timers); i++ {
		w.timers[i] = nil
	}
	w.timers = live
}

// Advance steps frame by frame until d has elapsed.
func (w *World) Advance(d time.Duration) {
	frame := w.FrameInterval()
	for d > 0 {
		step := min(frame, d)
		w.Step(step)
		d -= step
	}
}

// ActiveTimers counts armed timers.
func (w *World) ActiveTimers() int {
	n := 0
	for _, t := range w.timers {
		if !t.destroyed {
			n++
		}
	}
	return n
}

// Submit runs fn on the loop goroutine and waits for it to finish.
func (w *World) Submit(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	wrapped := func() {
		defer close(done)
		fn()
	}
	select {
	case w.exec <- wrapped:
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-w.stop:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestSpawn queues e for the next frame and returns a channel closed once it is
// in the world.
func (w *World) RequestSpawn(e host.Entity) <-chan struct{} {
	done := make(chan struct{})
	select {
	case w.spawn <- spawnReq{e: e, done: done}:
	case <-w.stop:
	}
	return done
}

func (w *World) RequestKill(id host.EntityID) {
	select {
	case w.kill <- id:
	case <-w.stop:
	}
}

// RequestSave asks for a save on the next frame. Repeated requests coalesce.
func (w *World) RequestSave() {
	select {
	case w.save <- struct{}{}:
	default:
	}
}
