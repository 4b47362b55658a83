// Package watchdog implements the per-match liveness sweep: a single
// shared scheduler ticking over every registered match, rather than one
// goroutine per match — the shape of vimsent-L3's runMatchLoop (one ticker
// driving tryCreateMatch/detectServerTimeouts over the whole server
// instead of per-entity timers).
package watchdog

import (
	"time"

	"github.com/vimsent/chessd/internal/logging"
	"github.com/vimsent/chessd/internal/match"
	"github.com/vimsent/chessd/internal/rules"
)

const (
	tickInterval = 1 * time.Second

	HeartbeatTimeout    = 15 * time.Second
	DisconnectGrace     = 3 * time.Second
	DisconnectTimeout   = 60 * time.Second
)

// Notifier delivers an outcome message to a seat's session. internal/match
// holds an opaque SessionKey; Notify receives that key back so the caller
// (internal/session) can resolve it to a live connection without
// internal/watchdog importing internal/session.
type Notifier interface {
	Notify(sessionKey any, message string)
	// HeartbeatAge reports how long it has been since sessionKey's
	// transport last produced a byte, and whether the key still
	// identifies a live transport at all (false once the session's
	// worker has already torn down the connection).
	HeartbeatAge(sessionKey any) (age time.Duration, live bool)
	// Close half-closes sessionKey's transport so a worker goroutine
	// blocked reading from it wakes with an error instead of leaking.
	Close(sessionKey any)
}

// Counter is the global player census; forfeits decrement it once per
// forfeited seat.
type Counter interface {
	Release()
}

// Watchdog owns the shared ticker and the registry it sweeps.
type Watchdog struct {
	registry *match.Registry
	notifier Notifier
	counter  Counter
	log      *logging.Logger

	stop chan struct{}
	done chan struct{}
}

// New constructs a Watchdog. Call Run to start its ticking goroutine.
func New(registry *match.Registry, notifier Notifier, counter Counter, log *logging.Logger) *Watchdog {
	return &Watchdog{
		registry: registry,
		notifier: notifier,
		counter:  counter,
		log:      log,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Run ticks every second until Stop is called or ctx-like stop fires. It
// is meant to be run as one long-lived goroutine supervised alongside the
// accept loop by an errgroup.
func (w *Watchdog) Run() {
	defer close(w.done)
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stop:
			return
		}
	}
}

// Stop requests the watchdog goroutine to exit and blocks until it has.
func (w *Watchdog) Stop() {
	close(w.stop)
	<-w.done
}

func (w *Watchdog) sweep() {
	now := time.Now()
	for _, m := range w.registry.All() {
		w.tick(m, now)
	}
}

// tick applies the watchdog's steps, in order, to one match.
func (w *Watchdog) tick(m *match.Match, now time.Time) {
	m.Lock()
	defer m.Unlock()

	if m.Finished {
		if m.ReleaseWatchdogRef() {
			w.registry.Unregister(m)
		}
		return
	}

	if w.turnTimeout(m, now) {
		return
	}
	w.zombieCheck(m, now)
	w.graceToPause(m, now)
	w.finalDisconnect(m, now)
}

func (w *Watchdog) turnTimeout(m *match.Match, now time.Time) (finished bool) {
	if m.IsPaused || m.LastMoveTime.IsZero() {
		return false
	}
	if now.Sub(m.LastMoveTime) < m.TurnTimeout {
		return false
	}
	m.Forfeit()
	mover := m.SeatFor(m.Turn)
	opponent := m.SeatFor(m.Turn.Other())
	w.notifier.Notify(mover.SessionKey, "TOUT")
	w.notifier.Notify(opponent.SessionKey, "OPP_TOUT")
	return true
}

func (w *Watchdog) zombieCheck(m *match.Match, now time.Time) {
	for _, c := range [2]rules.Color{rules.White, rules.Black} {
		seat := m.SeatFor(c)
		if seat.State != match.SeatConnected {
			continue
		}
		age, live := w.notifier.HeartbeatAge(seat.SessionKey)
		if !live || age <= HeartbeatTimeout {
			continue
		}
		seat.State = match.SeatDisconnected
		seat.DisconnectTime = now
		w.notifier.Close(seat.SessionKey)
	}
}

func (w *Watchdog) graceToPause(m *match.Match, now time.Time) {
	for _, c := range [2]rules.Color{rules.White, rules.Black} {
		seat := m.SeatFor(c)
		if seat.State != match.SeatDisconnected || m.IsPaused {
			continue
		}
		if now.Sub(seat.DisconnectTime) <= DisconnectGrace {
			continue
		}
		m.Pause()
		opponent := m.SeatFor(c.Other())
		w.notifier.Notify(opponent.SessionKey, "WAIT_CONN")
		return
	}
}

// finalDisconnect mirrors game.c's match_watchdog final-disconnect branch:
// each seat is checked independently against DisconnectTimeout, so a
// simultaneous double-disconnect forfeits and releases both. The
// surviving opponent (if any) is notified once.
func (w *Watchdog) finalDisconnect(m *match.Match, now time.Time) {
	whiteTimedOut := seatTimedOut(&m.White, now)
	blackTimedOut := seatTimedOut(&m.Black, now)
	if !whiteTimedOut && !blackTimedOut {
		return
	}

	m.Forfeit()

	var survivor *match.Seat
	switch {
	case whiteTimedOut && !blackTimedOut:
		survivor = &m.Black
	case blackTimedOut && !whiteTimedOut:
		survivor = &m.White
	}
	if survivor != nil && survivor.State != match.SeatEmpty {
		w.notifier.Notify(survivor.SessionKey, "OPP_EXT")
	}

	if whiteTimedOut {
		w.counter.Release()
		m.ReleaseRef()
		m.White = match.Seat{}
	}
	if blackTimedOut {
		w.counter.Release()
		m.ReleaseRef()
		m.Black = match.Seat{}
	}
}

func seatTimedOut(seat *match.Seat, now time.Time) bool {
	return seat.State == match.SeatDisconnected && now.Sub(seat.DisconnectTime) > DisconnectTimeout
}
