package session

import (
	"strconv"
	"strings"
	"time"

	"github.com/vimsent/chessd/internal/match"
	"github.com/vimsent/chessd/internal/protocol"
	"github.com/vimsent/chessd/internal/rules"
)

// runHandshake implements the Handshake state: send WELCOME, read one
// HELLO line, then either reconnect into an existing seat or admit a new
// player into the Lobby. Returns false if the connection should be torn
// down without entering the FSM loop.
func (s *Session) runHandshake() bool {
	if err := s.Send("WELCOME"); err != nil {
		return false
	}

	line, ok, err := s.readLineHandshake()
	if err != nil || !ok {
		return false
	}

	name, id, ok := parseHello(line)
	if !ok {
		_ = s.SendAck(protocol.AckGenericError)
		_ = s.Sendf("ERR malformed HELLO")
		return false
	}

	if m, color, found := s.srv.FindReconnectSeat(name, id); found {
		s.reconnect(m, color, name, id)
		return true
	}

	if !s.srv.Counter.TryAdmit() {
		_ = s.Send("FULL")
		return false
	}
	s.IsCounted = true
	s.Name = name
	s.ID = id
	_ = s.SendAck(protocol.AckHello)
	s.State = StateLobby
	return true
}

// readLineHandshake is a thin wrapper so handshake errors surface the
// same framing-vs-protocol distinction as the later states, without the
// rate limiter (a single HELLO cannot flood anything).
func (s *Session) readLineHandshake() (string, bool, error) {
	line, ok, err := s.in.ReadLine()
	if err != nil || !ok {
		return line, ok, err
	}
	s.touchHeartbeat()
	return line, true, nil
}

func parseHello(line string) (name, id string, ok bool) {
	const prefix = "HELLO "
	if !strings.HasPrefix(line, prefix) {
		return "", "", false
	}
	fields := strings.Fields(line[len(prefix):])
	if len(fields) != 2 {
		return "", "", false
	}
	return fields[0], fields[1], true
}

// reconnect adopts the disconnected seat: restores identity and color,
// tries to resume the match clock, notifies both sides, replays history,
// and transitions to Waiting or Game depending on whether the opponent
// has joined yet.
func (s *Session) reconnect(m *match.Match, color rules.Color, name, id string) {
	s.Name = name
	s.ID = id
	s.Color = color
	s.Match = m
	s.IsCounted = true // the seat already held a census slot; this session resumes holding it

	m.Lock()
	seat := m.SeatFor(s.Color)
	seat.State = match.SeatConnected
	seat.SessionKey = s
	seat.DisconnectTime = time.Time{}
	m.TryResume()

	oppColor := s.Color.Other()
	oppSeat := m.SeatFor(oppColor)
	history := append([]string(nil), m.Moves...)
	remaining := m.RemainingTime()
	var oppKey any
	if oppSeat.State == match.SeatConnected {
		oppKey = oppSeat.SessionKey
	}
	joined := m.Black.State != match.SeatEmpty
	m.Unlock()

	_ = s.SendAck(protocol.AckHello)
	_ = s.Sendf("RESUME %s %s", oppSeat.Name, colorName(s.Color))
	if other, ok := oppKey.(*Session); ok && other != nil {
		other.deliverAsync("OPP_RESUME " + name + " " + colorName(oppColor))
	}
	_ = s.Sendf("HISTORY %s", historyString(history))
	_ = s.Sendf("TIME %d", int(remaining.Seconds()))
	if other, ok := oppKey.(*Session); ok && other != nil {
		other.deliverAsync("TIME " + strconv.Itoa(int(remaining.Seconds())))
	}

	if joined {
		s.State = StateGame
	} else {
		s.State = StateWaiting
	}
}

func historyString(moves []string) string {
	if len(moves) == 0 {
		return "EMPTY"
	}
	return strings.Join(moves, " ")
}
