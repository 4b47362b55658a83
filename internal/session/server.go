package session

import (
	"errors"
	"net"
	"time"

	"github.com/vimsent/chessd/internal/logging"
	"github.com/vimsent/chessd/internal/match"
	"github.com/vimsent/chessd/internal/players"
	"github.com/vimsent/chessd/internal/rules"
)

var errRateLimited = errors.New("session: inbound line rate exceeded")

// Server bundles the shared, struct-held dependencies every session needs:
// the room registry, the global admission counter, the configured room
// cap, and the logger. Nothing here is a package-level global: every
// dependency is explicitly constructed and passed in, rather than reached
// for as a singleton.
type Server struct {
	Registry *match.Registry
	Counter  *players.Counter
	MaxRooms int

	log *logging.Logger
}

// NewServer constructs a Server. log must not be nil.
func NewServer(registry *match.Registry, counter *players.Counter, maxRooms int, log *logging.Logger) *Server {
	return &Server{Registry: registry, Counter: counter, MaxRooms: maxRooms, log: log}
}

// Accept spawns one Session goroutine per accepted connection on ln,
// returning only when ln.Accept fails (typically because the listener
// was closed by the caller during shutdown).
func (srv *Server) Accept(ln net.Listener) error {
	for {
		conn, err := ln.Accept()
		if err != nil {
			return err
		}
		s := newSession(conn, srv)
		go s.Run()
	}
}

// Notify implements watchdog.Notifier: sessionKey is always the *Session
// that occupied the seat at the time it was stored, stashed there
// directly by the session FSM (internal/match never imports
// internal/session, so it can only pass this key through opaquely).
func (srv *Server) Notify(sessionKey any, message string) {
	s, ok := sessionKey.(*Session)
	if !ok || s == nil {
		return
	}
	s.deliverAsync(message)
}

// HeartbeatAge implements watchdog.Notifier.
func (srv *Server) HeartbeatAge(sessionKey any) (time.Duration, bool) {
	s, ok := sessionKey.(*Session)
	if !ok || s == nil {
		return 0, false
	}
	return s.heartbeatAge()
}

// Close implements watchdog.Notifier: half-closes sessionKey's transport
// so a worker goroutine blocked reading from it wakes with an error.
func (srv *Server) Close(sessionKey any) {
	s, ok := sessionKey.(*Session)
	if !ok || s == nil {
		return
	}
	s.closeRead()
}

// FindReconnectSeat scans the registry for a seat matching (name, id)
// whose session has gone sentinel (SeatDisconnected), the handshake's
// reconnection rule. Returns the match and color to adopt, or ok=false if
// no such seat exists.
func (srv *Server) FindReconnectSeat(name, id string) (m *match.Match, color rules.Color, ok bool) {
	for _, cand := range srv.Registry.All() {
		cand.Lock()
		if cand.White.State == match.SeatDisconnected && cand.White.Name == name && cand.White.SessionID == id {
			cand.Unlock()
			return cand, rules.White, true
		}
		if cand.Black.State == match.SeatDisconnected && cand.Black.Name == name && cand.Black.SessionID == id {
			cand.Unlock()
			return cand, rules.Black, true
		}
		cand.Unlock()
	}
	return nil, rules.NoColor, false
}
