// Package match implements the room/match entity: the chess state of one
// game plus the bookkeeping (clock, refcount, seats) the session FSM and
// watchdog operate on. Grounded on original_source/server/src/match.c for
// the field set and locking discipline, and on vimsent-L3/matchmaker's
// map+mutex struct idiom for the registry in registry.go.
package match

import (
	"sync"
	"time"

	"github.com/vimsent/chessd/internal/rules"
)

// DefaultTurnTimeout is the per-match clock budget.
const DefaultTurnTimeout = 180 * time.Second

// SeatState replaces game.c's "socket sentinel" pointer trick: rather than
// overloading a nil/sentinel transport handle to mean "never joined" vs
// "disconnected", each seat carries an explicit state so the zero value of
// Seat is unambiguous and transport ownership lives one layer up, in the
// session.
type SeatState int

const (
	// SeatEmpty: no session has ever occupied this seat.
	SeatEmpty SeatState = iota
	// SeatConnected: a session holds the seat with a live transport.
	SeatConnected
	// SeatDisconnected: the session holding the seat lost its transport;
	// the seat is reserved for reconnection by (name, id).
	SeatDisconnected
)

// Seat is one of the two colored slots in a match.
type Seat struct {
	State SeatState

	// Name and SessionID together are the reconnection key (name, id).
	Name      string
	SessionID string

	// SessionKey identifies the current occupying session to callers
	// (internal/session), without match importing the session package.
	// It is opaque to match: callers compare it for identity, never
	// dereference it.
	SessionKey any

	DisconnectTime time.Time
}

func (s *Seat) occupied() bool {
	return s.State != SeatEmpty
}

// Match owns one game's chess state, clock, and seats. All fields below
// the mutex must only be touched while holding it; the watchdog, the
// registry, and session handlers for either seat all reach into the same
// Match concurrently.
type Match struct {
	mu sync.Mutex

	ID int

	White Seat
	Black Seat

	Turn rules.Color

	Position rules.Position
	Moves    []string

	Finished bool

	// DrawOfferedBy holds the color that made a standing offer, or
	// rules.NoColor if none is outstanding.
	DrawOfferedBy rules.Color

	// LastMoveTime is the wall-clock start of the current turn; the zero
	// time means paused.
	LastMoveTime time.Time
	// ElapsedAtPause is the turn-clock consumption banked before a pause.
	ElapsedAtPause time.Duration
	IsPaused       bool

	TurnTimeout time.Duration

	// Refs is the liveness holder count: host + the shared watchdog at
	// creation (2), +1 per join, decremented by releasers. The match is
	// destroyed the instant this reaches zero.
	Refs int

	// watchdogReleased guards the shared watchdog's single reference so
	// repeated sweeps over an already-finished match release it only once.
	watchdogReleased bool
}

// New returns a freshly initialized match with the host seated as White.
// Refs starts at 2: one for the host, one for the shared watchdog sweep
// that begins covering this match as soon as it is registered.
func New(id int, hostName, hostSessionID string, hostKey any) *Match {
	m := &Match{
		ID:            id,
		Position:      rules.NewPosition(),
		Turn:          rules.White,
		TurnTimeout:   DefaultTurnTimeout,
		Refs:          1,
		DrawOfferedBy: rules.NoColor,
	}
	m.White = Seat{
		State:      SeatConnected,
		Name:       hostName,
		SessionID:  hostSessionID,
		SessionKey: hostKey,
	}
	m.AddRef() // the shared watchdog holds the second reference from creation
	return m
}

// Lock and Unlock expose the match mutex directly to callers that need to
// hold it across several of the operations below (e.g. the session FSM's
// MV handler, which must apply the move, append history, and flip the
// turn as one atomic unit).
func (m *Match) Lock()   { m.mu.Lock() }
func (m *Match) Unlock() { m.mu.Unlock() }

// AddRef increments the liveness holder count. Must be called under Lock.
func (m *Match) AddRef() { m.Refs++ }

// ReleaseRef decrements the liveness holder count and reports whether
// this was the last holder (refs reached zero). Must be called under
// Lock; the caller is responsible for actually destroying the match
// (unregistering it) when this returns true.
func (m *Match) ReleaseRef() bool {
	m.Refs--
	return m.Refs <= 0
}

// ReleaseWatchdogRef releases the shared watchdog's single reference
// exactly once: safe to call on every sweep of a finished match, since
// only the first call actually decrements Refs. Must be called under Lock.
func (m *Match) ReleaseWatchdogRef() bool {
	if m.watchdogReleased {
		return false
	}
	m.watchdogReleased = true
	return m.ReleaseRef()
}

// Join seats black. Must be called under Lock. Fails if the match is
// finished or black is already occupied.
func (m *Match) Join(name, sessionID string, key any) bool {
	if m.Finished || m.Black.occupied() {
		return false
	}
	m.Black = Seat{State: SeatConnected, Name: name, SessionID: sessionID, SessionKey: key}
	m.LastMoveTime = time.Now()
	m.Refs++
	return true
}

// AppendMove records a move in algebraic form. Geometric growth (initial
// capacity 8) is exactly what Go's append already does once the slice is
// seeded with that capacity, so there is no manual doubling to write —
// unlike the original's explicit realloc, the runtime's growth policy
// satisfies the same requirement. Must be called under Lock.
func (m *Match) AppendMove(mv string) {
	if m.Moves == nil {
		m.Moves = make([]string, 0, 8)
	}
	m.Moves = append(m.Moves, mv)
}

// SeatFor returns a pointer to the seat belonging to color.
func (m *Match) SeatFor(c rules.Color) *Seat {
	if c == rules.White {
		return &m.White
	}
	return &m.Black
}

// OpponentOf returns the color of the other seat.
func OpponentOf(c rules.Color) rules.Color {
	return c.Other()
}

// Open reports whether this match can still accept a joining opponent:
// not finished and black unseated. Must be called under Lock (or a
// snapshot read is acceptable for the registry's best-effort LIST).
func (m *Match) Open() bool {
	return !m.Finished && m.Black.State == SeatEmpty
}

// RemainingTime computes max(0, timeout - elapsed), where elapsed is
// ElapsedAtPause while paused, else wall-clock since LastMoveTime, else
// zero if the clock never started. Must be called under Lock.
func (m *Match) RemainingTime() time.Duration {
	var elapsed time.Duration
	switch {
	case m.IsPaused:
		elapsed = m.ElapsedAtPause
	case !m.LastMoveTime.IsZero():
		elapsed = time.Since(m.LastMoveTime)
	default:
		elapsed = 0
	}
	remaining := m.TurnTimeout - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}

// TryResume restores the clock after both seats have live transports
// again, per match_try_resume. Must be called under Lock.
func (m *Match) TryResume() bool {
	if !m.IsPaused {
		return false
	}
	if m.White.State != SeatConnected || m.Black.State != SeatConnected {
		return false
	}
	m.LastMoveTime = time.Now().Add(-m.ElapsedAtPause)
	m.ElapsedAtPause = 0
	m.IsPaused = false
	return true
}

// Pause freezes the clock, banking the elapsed time so RemainingTime
// stays continuous across the pause. Must be called under Lock.
func (m *Match) Pause() {
	if !m.LastMoveTime.IsZero() {
		m.ElapsedAtPause = time.Since(m.LastMoveTime)
	}
	m.LastMoveTime = time.Time{}
	m.IsPaused = true
}

// ResetClock starts the turn clock fresh, used after every successful MV.
// Must be called under Lock.
func (m *Match) ResetClock() {
	m.LastMoveTime = time.Now()
	m.ElapsedAtPause = 0
	m.IsPaused = false
}

// LeaveByClient implements match_leave_by_client: a graceful, clean exit
// (game over, resign, stalemate acknowledged). Clears the caller's seat,
// decrements refs, and reports whether this released the last reference.
// Must be called under Lock.
func (m *Match) LeaveByClient(c rules.Color) bool {
	*m.SeatFor(c) = Seat{}
	return m.ReleaseRef()
}

// ReleaseAfterClient implements match_release_after_client: called from
// the session cleanup path when a session's worker is exiting. If the
// match is already finished this behaves like LeaveByClient. Otherwise
// the seat is NOT cleared — it is marked disconnected so a later HELLO
// with the same (name, id) can reclaim it — and refs is NOT decremented.
// Returns persisted=true when the seat was preserved (caller must not
// free anything seat-identifying), persisted=false when LeaveByClient's
// regime was taken (seat is gone, ref was released). Must be called
// under Lock.
func (m *Match) ReleaseAfterClient(c rules.Color, now time.Time) (destroyedLast, persisted bool) {
	if m.Finished {
		return m.LeaveByClient(c), false
	}
	seat := m.SeatFor(c)
	seat.State = SeatDisconnected
	seat.DisconnectTime = now
	seat.SessionKey = nil
	return false, true
}

// Forfeit marks the match finished due to watchdog action (timeout or
// final disconnect). Must be called under Lock.
func (m *Match) Forfeit() {
	m.Finished = true
}
