package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPieceKindAndColor(t *testing.T) {
	require.Equal(t, KindKnight, WKnight.Kind())
	require.Equal(t, KindKnight, BKnight.Kind())
	require.Equal(t, White, WKnight.Color())
	require.Equal(t, Black, BKnight.Color())
	require.Equal(t, NoColor, Empty.Color())
}

func TestForColorRoundTrip(t *testing.T) {
	require.Equal(t, WRook, ForColor(White, KindRook))
	require.Equal(t, BRook, ForColor(Black, KindRook))
}

func TestNewBoardFindKing(t *testing.T) {
	b := NewBoard()
	wk, ok := b.FindKing(White)
	require.True(t, ok)
	require.Equal(t, Square{7, 4}, wk)

	bk, ok := b.FindKing(Black)
	require.True(t, ok)
	require.Equal(t, Square{0, 4}, bk)
}

func TestNewPositionCastlingRights(t *testing.T) {
	pos := NewPosition()
	require.True(t, pos.WhiteCastleKingside)
	require.True(t, pos.WhiteCastleQueenside)
	require.True(t, pos.BlackCastleKingside)
	require.True(t, pos.BlackCastleQueenside)
	require.False(t, pos.EnPassantSet)
}
