package session

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vimsent/chessd/internal/match"
	"github.com/vimsent/chessd/internal/rules"
)

func newGamePair(t *testing.T, srv *Server) (white, black *Session, whiteConn, blackConn net.Conn) {
	t.Helper()
	white, whiteConn = newPipeSession(t, srv)
	black, blackConn = newPipeSession(t, srv)

	m := match.New(0, "Alice", "id-a", white)
	srv.Registry.Register(m)
	m.Lock()
	m.Join("Bob", "id-b", black)
	m.Unlock()

	white.Name, white.ID, white.Color, white.Match, white.State = "Alice", "id-a", rules.White, m, StateGame
	black.Name, black.ID, black.Color, black.Match, black.State = "Bob", "id-b", rules.Black, m, StateGame
	return white, black, whiteConn, blackConn
}

func TestHandleMoveBroadcastsAndSwitchesTurn(t *testing.T) {
	srv := newTestServer()
	white, black, whiteConn, blackConn := newGamePair(t, srv)
	defer whiteConn.Close()
	defer blackConn.Close()

	done := make(chan bool, 1)
	go func() { done <- white.runGame() }()

	writeLine(t, whiteConn, "MV e2e4")
	require.Contains(t, readLine(t, whiteConn), "19") // move received ack
	require.Contains(t, readLine(t, whiteConn), "OK_MV")
	// net.Pipe is unbuffered: read each line in the order the server writes it.
	require.Contains(t, readLine(t, blackConn), "OPP_MV e2e4")
	require.Contains(t, readLine(t, whiteConn), "TIME")
	require.Contains(t, readLine(t, blackConn), "TIME")

	<-done
	require.Equal(t, rules.Black, white.Match.Turn)
}

func TestHandleMoveRejectsWrongTurn(t *testing.T) {
	srv := newTestServer()
	white, black, whiteConn, blackConn := newGamePair(t, srv)
	defer whiteConn.Close()
	defer blackConn.Close()
	_ = white

	go black.runGame()
	writeLine(t, blackConn, "MV e7e5")
	require.Contains(t, readLine(t, blackConn), "19")
	require.Contains(t, readLine(t, blackConn), "ERR")
}

func TestHandleResignEndsMatch(t *testing.T) {
	srv := newTestServer()
	white, black, whiteConn, blackConn := newGamePair(t, srv)
	defer whiteConn.Close()
	defer blackConn.Close()

	m := white.Match
	done := make(chan bool, 1)
	go func() { done <- white.runGame() }()
	writeLine(t, whiteConn, "RES")
	require.Contains(t, readLine(t, whiteConn), "23")
	require.Contains(t, readLine(t, whiteConn), "RES")
	require.Contains(t, readLine(t, blackConn), "OPP_RES")
	<-done

	m.Lock()
	finished := m.Finished
	m.Unlock()
	require.True(t, finished)
	_ = black
}
