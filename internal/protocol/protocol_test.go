package protocol

import (
	"bufio"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAckForCommandMatchesClosedTable(t *testing.T) {
	cases := map[string]Ack{
		"HELLO Alice id-a": AckHello,
		"LIST":             AckListReceived,
		"NEW":              AckNewRoomReceived,
		"JOIN 1":           AckJoinReceived,
		"MV e2e4":          AckMoveReceived,
		"RES":              AckResignReceived,
		"DRW_OFF":          AckDrawOfferReceived,
		"DRW_ACC":          AckDrawAcceptReceived,
		"DRW_DEC":          AckDrawDeclineReceived,
		"EXT":              AckExitReceived,
		"BOGUS":            AckGeneric,
	}
	for line, want := range cases {
		require.Equal(t, want, AckForCommand(line), line)
	}
}

func TestAckForCommandRequiresWordBoundary(t *testing.T) {
	// "NEWCOMMAND" must not match the NEW prefix.
	require.Equal(t, AckGeneric, AckForCommand("NEWCOMMAND"))
	require.Equal(t, AckGeneric, AckForCommand("RESIGNATION"))
}

func TestReadLineTrimsCRLF(t *testing.T) {
	r := NewReader(bufio.NewReader(strings.NewReader("HELLO Alice id-a\r\nLIST\n")))

	line, ok, err := r.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "HELLO Alice id-a", line)

	line, ok, err = r.ReadLine()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "LIST", line)

	_, ok, err = r.ReadLine()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestReadLineTooLong(t *testing.T) {
	huge := strings.Repeat("a", MaxCommandLine+1) + "\n"
	r := NewReader(bufio.NewReader(strings.NewReader(huge)))
	_, _, err := r.ReadLine()
	require.ErrorIs(t, err, ErrLineTooLong)
}

func TestIsHeartbeatAndAck(t *testing.T) {
	require.True(t, IsHeartbeat("PING"))
	require.False(t, IsHeartbeat("PNG"))
	require.True(t, IsAck("18"))
	require.True(t, IsAck("99"))
	require.False(t, IsAck("HELLO"))
	require.False(t, IsAck("1"))
}
