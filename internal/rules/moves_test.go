package rules

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseFormatRoundTrip(t *testing.T) {
	for r1 := 0; r1 < 8; r1++ {
		for c1 := 0; c1 < 8; c1++ {
			for r2 := 0; r2 < 8; r2++ {
				for c2 := 0; c2 < 8; c2++ {
					src := Square{r1, c1}
					dst := Square{r2, c2}
					s := FormatMove(src, dst)
					gotSrc, gotDst, promo, ok := ParseMove(s)
					require.True(t, ok, s)
					require.Equal(t, src, gotSrc, s)
					require.Equal(t, dst, gotDst, s)
					require.Equal(t, byte(0), promo)
				}
			}
		}
	}
}

func TestParseMoveRejectsGarbage(t *testing.T) {
	for _, bad := range []string{"", "e2e", "z2e4", "e9e4", "e2e4qq", "e2-4"} {
		_, _, _, ok := ParseMove(bad)
		require.False(t, ok, bad)
	}
}

func TestParseMoveKnownSquares(t *testing.T) {
	src, dst, _, ok := ParseMove("e2e4")
	require.True(t, ok)
	require.Equal(t, Square{6, 4}, src)
	require.Equal(t, Square{4, 4}, dst)
}

func TestPawnDoubleStepSetsEnPassant(t *testing.T) {
	pos := NewPosition()
	src, dst, _, _ := ParseMove("e2e4")
	ApplyMove(&pos, src, dst, 0)
	require.True(t, pos.EnPassantSet)
	require.Equal(t, Square{5, 4}, pos.EnPassant)
}

func TestEnPassantCaptureAndExpiry(t *testing.T) {
	pos := NewPosition()
	mv := func(s string) {
		src, dst, promo, ok := ParseMove(s)
		require.True(t, ok, s)
		ApplyMove(&pos, src, dst, promo)
	}
	mv("e2e4")
	mv("a7a6")
	mv("e4e5")
	mv("d7d5") // black double step beside white pawn on e5

	require.True(t, pos.EnPassantSet)
	src, dst, _, _ := ParseMove("e5d6")
	require.True(t, IsLegalMoveBasic(&pos, White, src, dst))
	ApplyMove(&pos, src, dst, 0)

	require.Equal(t, Empty, pos.Board.At(Square{3, 3})) // captured black pawn gone (d5)
	require.False(t, pos.EnPassantSet)                  // target cleared after the capturing move
}

func TestCastlingKingsideRequiresClearPathAndSafety(t *testing.T) {
	pos := NewPosition()
	// Clear f1/g1 for White kingside castling.
	pos.Board.set(Square{7, 5}, Empty)
	pos.Board.set(Square{7, 6}, Empty)

	src := Square{7, 4}
	dst := Square{7, 6}
	require.True(t, IsLegalMoveBasic(&pos, White, src, dst))

	// Put a black rook on the f-file, attacking the path square f1; the
	// black f-pawn, the black bishop and the white f-pawn must also be
	// cleared so nothing blocks the file.
	pos2 := pos
	pos2.Board.set(Square{1, 5}, Empty)
	pos2.Board.set(Square{6, 5}, Empty)
	pos2.Board.set(Square{0, 5}, BRook)
	require.False(t, IsLegalMoveBasic(&pos2, White, src, dst))
}

func TestCastlingRightsRevokedOnRookCapture(t *testing.T) {
	pos := NewPosition()
	// Clear everything between black rook on a8 and white rook on a1's file
	// isn't realistic; instead directly place an attacker able to capture
	// the a1 rook and verify right revocation semantics via direct capture.
	pos.Board.set(Square{7, 0}, WRook)
	pos.Board.set(Square{6, 0}, Empty)
	pos.Board.set(Square{0, 0}, Empty)
	pos.Board.set(Square{1, 0}, BRook)

	require.True(t, pos.WhiteCastleQueenside)
	src := Square{1, 0}
	dst := Square{7, 0}
	ApplyMove(&pos, src, dst, 0)
	require.False(t, pos.WhiteCastleQueenside)
}

func TestPromotionDefaultsToQueen(t *testing.T) {
	pos := NewPosition()
	pos.Board = emptyBoard()
	pos.Board.set(Square{7, 4}, WKing)
	pos.Board.set(Square{0, 4}, BKing)
	pos.Board.set(Square{1, 0}, WPawn)

	ApplyMove(&pos, Square{1, 0}, Square{0, 0}, 0)
	require.Equal(t, WQueen, pos.Board.At(Square{0, 0}))
}

func TestPromotionToKnight(t *testing.T) {
	pos := NewPosition()
	pos.Board = emptyBoard()
	pos.Board.set(Square{7, 4}, WKing)
	pos.Board.set(Square{0, 4}, BKing)
	pos.Board.set(Square{1, 0}, WPawn)

	ApplyMove(&pos, Square{1, 0}, Square{0, 0}, 'n')
	require.Equal(t, WKnight, pos.Board.At(Square{0, 0}))
}

func TestPromotionParseIsCaseInsensitive(t *testing.T) {
	_, _, promo, ok := ParseMove("a7a8R")
	require.True(t, ok)
	require.Equal(t, byte('r'), promo)

	_, _, promo, ok = ParseMove("a7a8n")
	require.True(t, ok)
	require.Equal(t, byte('n'), promo)
}

func TestMoveLeavesInCheckRejectsPinnedPiece(t *testing.T) {
	pos := NewPosition()
	pos.Board = emptyBoard()
	pos.Board.set(Square{7, 4}, WKing)
	pos.Board.set(Square{6, 4}, WRook)
	pos.Board.set(Square{0, 4}, BRook)
	pos.Board.set(Square{0, 0}, BKing)

	// Moving the pinned rook sideways would expose the king.
	require.True(t, MoveLeavesInCheck(&pos, White, Square{6, 4}, Square{6, 0}))
	// Moving it forward along the pin line is fine.
	require.False(t, MoveLeavesInCheck(&pos, White, Square{6, 4}, Square{1, 4}))
}

func TestScholarsMateCheckmate(t *testing.T) {
	pos := NewPosition()
	mv := func(s string) {
		src, dst, promo, ok := ParseMove(s)
		require.True(t, ok, s)
		ApplyMove(&pos, src, dst, promo)
	}
	mv("e2e4")
	mv("e7e5")
	mv("d1h5")
	mv("b8c6")
	mv("f1c4")
	mv("g8f6") // blunder, allows Qxf7#
	mv("h5f7")

	check, mate, stale := Result(&pos, Black)
	require.True(t, check)
	require.True(t, mate)
	require.False(t, stale)
}

func TestStalemateNoLegalMoveNoCheck(t *testing.T) {
	pos := NewPosition()
	pos.Board = emptyBoard()
	// Classic stalemate: black king a8, white king b6, white queen c7 style
	// corner trap with black to move and not in check.
	pos.Board.set(Square{0, 0}, BKing)
	pos.Board.set(Square{2, 1}, WKing)
	pos.Board.set(Square{1, 2}, WQueen)

	check, mate, stale := Result(&pos, Black)
	require.False(t, check)
	require.False(t, mate)
	require.True(t, stale)
}

func TestHasAnyLegalMoveTrueAtStart(t *testing.T) {
	pos := NewPosition()
	require.True(t, HasAnyLegalMove(&pos, White))
	require.True(t, HasAnyLegalMove(&pos, Black))
}
