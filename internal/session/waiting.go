package session

import (
	"net"
	"time"

	"github.com/vimsent/chessd/internal/match"
	"github.com/vimsent/chessd/internal/protocol"
	"github.com/vimsent/chessd/internal/rules"
)

// waitingPollInterval bounds how long the host's non-blocking read can
// block before it re-checks whether an opponent has joined.
const waitingPollInterval = 250 * time.Millisecond

// runWaiting implements the Waiting state: the host only, reading
// occasional input without blocking the pairing check, answering PING,
// accepting EXT to cancel the room, and transitioning to Game once the
// match's black seat fills.
func (s *Session) runWaiting() bool {
	for {
		if s.pairedNow() {
			s.Paired = true
			s.State = StateGame
			return true
		}

		_ = s.conn.SetReadDeadline(time.Now().Add(waitingPollInterval))
		line, ok, err := s.in.ReadLine()
		_ = s.conn.SetReadDeadline(time.Time{})

		if err != nil {
			if ne, isNet := err.(net.Error); isNet && ne.Timeout() {
				continue
			}
			return false
		}
		if !ok {
			return false
		}
		s.touchHeartbeat()
		if !s.limiter.Allow() {
			if s.protocolError("rate limit exceeded") {
				return false
			}
			continue
		}

		if protocol.IsHeartbeat(line) {
			if s.Send(protocol.Pong) != nil {
				return false
			}
			continue
		}
		if protocol.IsAck(line) {
			continue
		}

		ack := protocol.AckForCommand(line)
		_ = s.SendAck(ack)

		if line == "EXT" {
			s.cancelRoom()
			s.State = StateLobby
			return true
		}
		if !s.protocolError("unexpected command while waiting") {
			continue
		}
		return false
	}
}

func (s *Session) pairedNow() bool {
	if s.Match == nil {
		return false
	}
	m := s.Match
	m.Lock()
	joined := m.Black.State != match.SeatEmpty
	m.Unlock()
	return joined
}

// cancelRoom destroys the still-open room the host created, per the
// Waiting state's EXT handling.
func (s *Session) cancelRoom() {
	if s.Match == nil {
		return
	}
	m := s.Match
	m.Lock()
	destroyed := m.LeaveByClient(s.Color)
	m.Unlock()
	if destroyed {
		s.srv.Registry.Unregister(m)
	}
	s.Match = nil
	s.Color = rules.NoColor
}
