package session

import (
	"strconv"
	"strings"

	"github.com/vimsent/chessd/internal/match"
	"github.com/vimsent/chessd/internal/protocol"
	"github.com/vimsent/chessd/internal/rules"
)

// runLobby implements the Lobby state: LIST, NEW, JOIN <id>, EXT.
func (s *Session) runLobby() bool {
	line, ok, err := s.readLine()
	if err != nil {
		if err == errRateLimited {
			return !s.protocolError("rate limit exceeded")
		}
		return false
	}
	if !ok {
		return false
	}
	if protocol.IsHeartbeat(line) {
		return s.Send(protocol.Pong) == nil
	}
	if protocol.IsAck(line) {
		return true // acks are never themselves acknowledged
	}

	ack := protocol.AckForCommand(line)
	_ = s.SendAck(ack)

	switch {
	case line == "LIST":
		return s.handleList()
	case line == "NEW":
		return s.handleNew()
	case strings.HasPrefix(line, "JOIN "):
		return s.handleJoin(strings.TrimPrefix(line, "JOIN "))
	case line == "EXT":
		return false
	default:
		return !s.protocolError("unknown command in lobby")
	}
}

func (s *Session) handleList() bool {
	return s.Sendf("ROOMLIST %s", s.srv.Registry.ListOpen()) == nil
}

func (s *Session) handleNew() bool {
	if s.srv.MaxRooms >= 0 && s.srv.Registry.Count() >= s.srv.MaxRooms {
		_ = s.Sendf("ERR Server room limit reached")
		return true
	}
	m := match.New(0, s.Name, s.ID, s)
	id := s.srv.Registry.Register(m)
	s.Match = m
	s.Color = rules.White

	s.State = StateWaiting
	return s.Sendf("WAITING Room %d", id) == nil
}

func (s *Session) handleJoin(arg string) bool {
	id, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return !s.protocolError("malformed room id")
	}
	m, ok := s.srv.Registry.FindOpen(id)
	if !ok {
		_ = s.Sendf("ERR no such open room")
		return true
	}

	m.Lock()
	joined := m.Join(s.Name, s.ID, s)
	hostName := m.White.Name
	m.Unlock()
	if !joined {
		_ = s.Sendf("ERR no such open room")
		return true
	}

	s.Match = m
	s.Color = rules.Black
	s.Paired = true
	s.State = StateGame

	if err := s.Sendf("START %s black", hostName); err != nil {
		return false
	}
	// The host's own Waiting-state loop observes the seat fill (via the
	// match lock) and drives its own transition to Game; this goroutine
	// only pushes the notification, never the host Session's fields.
	if hostKey, ok := m.White.SessionKey.(*Session); ok && hostKey != nil {
		hostKey.deliverAsync("START " + s.Name + " white")
	}

	m.Lock()
	remaining := m.RemainingTime()
	m.Unlock()
	_ = s.Sendf("TIME %d", int(remaining.Seconds()))
	if hostKey, ok := m.White.SessionKey.(*Session); ok && hostKey != nil {
		hostKey.deliverAsync("TIME " + strconv.Itoa(int(remaining.Seconds())))
	}
	return true
}
