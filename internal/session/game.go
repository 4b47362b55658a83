package session

import (
	"strconv"
	"strings"

	"github.com/vimsent/chessd/internal/protocol"
	"github.com/vimsent/chessd/internal/rules"
)

// runGame implements the Game state: MV, RES, DRW_OFF, DRW_ACC, DRW_DEC,
// EXT, driving the match to completion or handing off back to Lobby once
// `finished` is observed.
func (s *Session) runGame() bool {
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
		return true
	}

	ack := protocol.AckForCommand(line)
	_ = s.SendAck(ack)

	var kicked bool
	switch {
	case strings.HasPrefix(line, "MV "):
		kicked = s.handleMove(strings.TrimPrefix(line, "MV "))
	case line == "RES":
		s.handleResign()
	case line == "DRW_OFF":
		kicked = s.handleDrawOffer()
	case line == "DRW_ACC":
		kicked = s.handleDrawAccept()
	case line == "DRW_DEC":
		kicked = s.handleDrawDecline()
	case line == "EXT":
		s.handleExtGame()
	default:
		kicked = s.protocolError("unknown command in game")
	}
	if kicked {
		return false
	}
	return s.leaveFinishedMatch()
}

// leaveFinishedMatch checks whether the match has become finished (by
// this handler's own action or by another goroutine, e.g. the watchdog)
// and if so runs match_leave_by_client and returns to Lobby.
func (s *Session) leaveFinishedMatch() bool {
	m := s.Match
	if m == nil {
		return true
	}
	m.Lock()
	finished := m.Finished
	m.Unlock()
	if !finished {
		return true
	}

	m.Lock()
	destroyed := m.LeaveByClient(s.Color)
	m.Unlock()
	if destroyed {
		s.srv.Registry.Unregister(m)
	}
	s.Match = nil
	s.Color = rules.NoColor
	s.Paired = false
	s.State = StateLobby
	return true
}

func (s *Session) handleMove(arg string) (kicked bool) {
	m := s.Match
	src, dst, promo, parsed := rules.ParseMove(strings.TrimSpace(arg))

	m.Lock()
	if m.Finished {
		m.Unlock()
		return false
	}
	wrongTurn := m.Turn != s.Color
	illegal := !wrongTurn && (!parsed || !rules.IsLegalMoveBasic(&m.Position, s.Color, src, dst))
	exposesCheck := !wrongTurn && !illegal && rules.MoveLeavesInCheck(&m.Position, s.Color, src, dst)
	if wrongTurn || illegal || exposesCheck {
		m.Unlock()
		switch {
		case wrongTurn:
			return s.protocolError("not your turn")
		case illegal:
			return s.protocolError("illegal move")
		default:
			return s.protocolError("move leaves own king in check")
		}
	}

	mv := rules.ApplyMove(&m.Position, src, dst, promo)
	m.AppendMove(mv)
	m.Turn = s.Color.Other()
	m.ResetClock()

	opp := m.SeatFor(s.Color.Other())
	oppSession, _ := opp.SessionKey.(*Session)

	_ = s.Send("OK_MV")
	if oppSession != nil {
		oppSession.deliverAsync("OPP_MV " + mv)
	}

	check, checkmate, stalemate := rules.Result(&m.Position, m.Turn)
	remaining := m.RemainingTime()

	switch {
	case checkmate:
		m.Forfeit()
		_ = s.Send("WIN_CHKM")
		if oppSession != nil {
			oppSession.deliverAsync("CHKM")
		}
	case stalemate:
		m.Forfeit()
		_ = s.Send("SM")
		if oppSession != nil {
			oppSession.deliverAsync("SM")
		}
	case check:
		// Only the mover observes CHK: it announces "your move delivered
		// check", not "you are in check" — the side now in check is the
		// opponent, who next attempts a move and finds it constrained.
		_ = s.Send("CHK")
	}

	_ = s.Sendf("TIME %d", int(remaining.Seconds()))
	if oppSession != nil {
		oppSession.deliverAsync("TIME " + strconv.Itoa(int(remaining.Seconds())))
	}
	m.Unlock()
	return false
}

func (s *Session) handleResign() {
	m := s.Match
	m.Lock()
	if m.Finished {
		m.Unlock()
		return
	}
	m.Forfeit()
	opp := m.SeatFor(s.Color.Other())
	oppSession, _ := opp.SessionKey.(*Session)
	m.Unlock()

	_ = s.Send("RES")
	if oppSession != nil {
		oppSession.deliverAsync("OPP_RES")
	}
}

func (s *Session) handleDrawOffer() (kicked bool) {
	m := s.Match
	m.Lock()
	if m.Finished {
		m.Unlock()
		return false
	}
	m.DrawOfferedBy = s.Color
	opp := m.SeatFor(s.Color.Other())
	oppSession, _ := opp.SessionKey.(*Session)
	m.Unlock()

	if oppSession != nil {
		oppSession.deliverAsync("DRW_OFF")
	}
	return false
}

func (s *Session) handleDrawAccept() (kicked bool) {
	m := s.Match
	m.Lock()
	standing := m.DrawOfferedBy == s.Color.Other()
	if !standing {
		m.Unlock()
		return s.protocolError("no standing draw offer")
	}
	m.Forfeit()
	m.DrawOfferedBy = rules.NoColor
	opp := m.SeatFor(s.Color.Other())
	oppSession, _ := opp.SessionKey.(*Session)
	m.Unlock()

	_ = s.Send("DRW_ACD")
	if oppSession != nil {
		oppSession.deliverAsync("DRW_ACD")
	}
	return false
}

func (s *Session) handleDrawDecline() (kicked bool) {
	m := s.Match
	m.Lock()
	standing := m.DrawOfferedBy == s.Color.Other()
	if !standing {
		m.Unlock()
		return s.protocolError("no standing draw offer")
	}
	m.DrawOfferedBy = rules.NoColor
	opp := m.SeatFor(s.Color.Other())
	oppSession, _ := opp.SessionKey.(*Session)
	m.Unlock()

	if oppSession != nil {
		oppSession.deliverAsync("DRW_DCD")
	}
	return false
}

func (s *Session) handleExtGame() {
	m := s.Match
	m.Lock()
	if !m.Finished {
		m.Forfeit()
	}
	opp := m.SeatFor(s.Color.Other())
	oppSession, _ := opp.SessionKey.(*Session)
	m.Unlock()

	if oppSession != nil {
		oppSession.deliverAsync("OPP_EXT")
	}
}
