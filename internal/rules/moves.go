package rules

import "fmt"

// IsLegalMoveBasic checks that a move is pseudo-legal: bounds, ownership,
// piece geometry, pawn special cases, and castling availability — but not
// whether it leaves the mover's own king in check (see MoveLeavesInCheck).
// Grounded on game.c's is_legal_move_basic, with one deliberate deviation:
// castling here also requires the king not be in check, not pass through
// an attacked square, and not land on an attacked square. The original
// engine omits that check; this one does not.
func IsLegalMoveBasic(pos *Position, color Color, src, dst Square) bool {
	if !src.InBounds() || !dst.InBounds() || src == dst {
		return false
	}
	b := &pos.Board
	moving := b.At(src)
	if moving == Empty || moving.Color() != color {
		return false
	}
	target := b.At(dst)
	if target != Empty && target.Color() == color {
		return false
	}

	kind := moving.Kind()
	if kind == KindPawn {
		return isLegalPawnMove(pos, color, src, dst)
	}
	if kind == KindKing && abs(dst.Col-src.Col) == 2 && src.Row == dst.Row {
		return isLegalCastle(pos, color, src, dst)
	}
	return pieceCanReach(b, kind, src, dst)
}

func isLegalPawnMove(pos *Position, color Color, src, dst Square) bool {
	b := &pos.Board
	forward := -1 // White advances toward row 0
	startRow := 6
	if color == Black {
		forward = 1
		startRow = 1
	}
	dr := dst.Row - src.Row
	dc := dst.Col - src.Col

	// Straight advance, no capture.
	if dc == 0 {
		if dr == forward && b.At(dst) == Empty {
			return true
		}
		if dr == 2*forward && src.Row == startRow && b.At(dst) == Empty {
			mid := Square{src.Row + forward, src.Col}
			return b.At(mid) == Empty
		}
		return false
	}

	// Diagonal: ordinary capture or en passant.
	if abs(dc) == 1 && dr == forward {
		if target := b.At(dst); target != Empty && target.Color() != color {
			return true
		}
		if pos.EnPassantSet && dst == pos.EnPassant {
			return true
		}
		return false
	}
	return false
}

func isLegalCastle(pos *Position, color Color, src, dst Square) bool {
	kingside := dst.Col > src.Col
	var right bool
	switch {
	case color == White && kingside:
		right = pos.WhiteCastleKingside
	case color == White && !kingside:
		right = pos.WhiteCastleQueenside
	case color == Black && kingside:
		right = pos.BlackCastleKingside
	default:
		right = pos.BlackCastleQueenside
	}
	if !right {
		return false
	}

	row := src.Row
	rookCol := 7
	if !kingside {
		rookCol = 0
	}
	b := &pos.Board
	if b[row][rookCol] != ForColor(color, KindRook) {
		return false
	}

	// Squares between king and rook must be empty.
	lo, hi := src.Col, rookCol
	if lo > hi {
		lo, hi = hi, lo
	}
	for c := lo + 1; c < hi; c++ {
		if b[row][c] != Empty {
			return false
		}
	}

	// King must not start, pass through, or land in check.
	step := 1
	if !kingside {
		step = -1
	}
	enemy := color.Other()
	for c := src.Col; c != dst.Col+step; c += step {
		if IsSquareAttacked(b, Square{row, c}, enemy) {
			return false
		}
	}
	return true
}

// MoveLeavesInCheck reports whether making this move would leave color's
// own king in check. Simulates the move on a copy of the board (copying a
// fixed [8][8]Piece array is cheap) rather than mutate-and-revert in
// place, matching the original's simulate-then-undo semantics without its
// need for manual rollback bookkeeping.
func MoveLeavesInCheck(pos *Position, color Color, src, dst Square) bool {
	sim := *pos
	applyBoardOnly(&sim, src, dst)
	return IsInCheck(sim.Board, color)
}

// applyBoardOnly performs the piece-movement side effects of a move
// (relocation, en-passant capture removal, castling rook relocation)
// without touching castling-rights bookkeeping or producing a move
// string. Used both by MoveLeavesInCheck's simulation and by ApplyMove.
func applyBoardOnly(pos *Position, src, dst Square) {
	b := &pos.Board
	moving := b.At(src)
	kind := moving.Kind()
	color := moving.Color()

	if kind == KindPawn && pos.EnPassantSet && dst == pos.EnPassant && src.Col != dst.Col && b.At(dst) == Empty {
		// The captured pawn stands beside src, not on dst: same rank as
		// the capturing pawn started from, same file as the destination.
		b.set(Square{src.Row, dst.Col}, Empty)
	}

	b.set(dst, moving)
	b.set(src, Empty)

	if kind == KindKing && abs(dst.Col-src.Col) == 2 {
		row := src.Row
		if dst.Col > src.Col {
			rook := b.At(Square{row, 7})
			b.set(Square{row, 5}, rook)
			b.set(Square{row, 7}, Empty)
		} else {
			rook := b.At(Square{row, 0})
			b.set(Square{row, 3}, rook)
			b.set(Square{row, 0}, Empty)
		}
	}
	_ = color
}

// ApplyMove commits src->dst to pos: relocates the piece, resolves
// en-passant captures, relocates the castling rook, updates castling
// rights, sets or clears the en-passant target, and applies promo (which
// must be one of 'q','r','b','n', defaulting to queen for any other
// value, including 0) when a pawn reaches the back rank. Returns the
// canonical move string for history logging, with the promoted piece's
// lowercase letter appended when a promotion happened. Grounded on game.c's
// apply_move, with one deliberate deviation: castling rights are also
// revoked when a rook is captured on its original square, which the
// original engine does not do.
func ApplyMove(pos *Position, src, dst Square, promo byte) string {
	b := &pos.Board
	moving := b.At(src)
	color := moving.Color()
	kind := moving.Kind()
	captured := b.At(dst)

	wasDoubleStep := kind == KindPawn && abs(dst.Row-src.Row) == 2

	applyBoardOnly(pos, src, dst)

	promoSuffix := ""
	if kind == KindPawn {
		backRank := 0
		if color == Black {
			backRank = 7
		}
		if dst.Row == backRank {
			pk := promoKind(promo)
			pos.Board.set(dst, ForColor(color, pk))
			promoSuffix = ForColor(Black, pk).String() // lowercase letter
		}
	}

	revokeCastlingRights(pos, color, kind, src)
	if captured != Empty {
		revokeCastlingRightsOnCapture(pos, captured, dst)
	}

	pos.EnPassantSet = false
	if wasDoubleStep {
		midRow := (src.Row + dst.Row) / 2
		pos.EnPassant = Square{midRow, src.Col}
		pos.EnPassantSet = true
	}

	return FormatMove(src, dst) + promoSuffix
}

func promoKind(promo byte) int {
	switch promo {
	case 'r':
		return KindRook
	case 'b':
		return KindBishop
	case 'n':
		return KindKnight
	default:
		return KindQueen
	}
}

func revokeCastlingRights(pos *Position, color Color, kind int, src Square) {
	if kind == KindKing {
		if color == White {
			pos.WhiteCastleKingside = false
			pos.WhiteCastleQueenside = false
		} else {
			pos.BlackCastleKingside = false
			pos.BlackCastleQueenside = false
		}
		return
	}
	if kind != KindRook {
		return
	}
	revokeRookRight(pos, color, src)
}

// revokeCastlingRightsOnCapture clears the relevant right when a rook is
// captured on its original square, regardless of what piece captured it.
func revokeCastlingRightsOnCapture(pos *Position, captured Piece, at Square) {
	if captured.Kind() != KindRook {
		return
	}
	revokeRookRight(pos, captured.Color(), at)
}

func revokeRookRight(pos *Position, color Color, sq Square) {
	if color == White && sq.Row == 7 {
		switch sq.Col {
		case 0:
			pos.WhiteCastleQueenside = false
		case 7:
			pos.WhiteCastleKingside = false
		}
	}
	if color == Black && sq.Row == 0 {
		switch sq.Col {
		case 0:
			pos.BlackCastleQueenside = false
		case 7:
			pos.BlackCastleKingside = false
		}
	}
}

// HasAnyLegalMove reports whether color has at least one move that is both
// pseudo-legal and does not leave its own king in check. Brute force over
// all src/dst pairs, matching game.c's has_any_legal_move.
func HasAnyLegalMove(pos *Position, color Color) bool {
	for sr := 0; sr < 8; sr++ {
		for sc := 0; sc < 8; sc++ {
			src := Square{sr, sc}
			if pos.Board.At(src).Color() != color {
				continue
			}
			for dr := 0; dr < 8; dr++ {
				for dc := 0; dc < 8; dc++ {
					dst := Square{dr, dc}
					if !IsLegalMoveBasic(pos, color, src, dst) {
						continue
					}
					if !MoveLeavesInCheck(pos, color, src, dst) {
						return true
					}
				}
			}
		}
	}
	return false
}

// Result reports the check/checkmate/stalemate status for the side to
// move. Checkmate and stalemate are mutually exclusive and both imply no
// legal move exists; they differ only in whether the side to move is
// currently in check.
func Result(pos *Position, sideToMove Color) (check, checkmate, stalemate bool) {
	check = IsInCheck(pos.Board, sideToMove)
	if HasAnyLegalMove(pos, sideToMove) {
		return check, false, false
	}
	if check {
		return true, true, false
	}
	return false, false, true
}

// ParseMove decodes a four-character coordinate move such as "e2e4" into
// source and destination squares, plus an optional fifth promotion
// character. Mirrors game.c's parse_move: file a-h maps to column 0-7,
// rank 1-8 maps to row 7-0 (rank 1 is row 7, White's back rank).
func ParseMove(s string) (src, dst Square, promo byte, ok bool) {
	if len(s) != 4 && len(s) != 5 {
		return Square{}, Square{}, 0, false
	}
	c1, r1, c2, r2 := s[0], s[1], s[2], s[3]
	if c1 < 'a' || c1 > 'h' || c2 < 'a' || c2 > 'h' {
		return Square{}, Square{}, 0, false
	}
	if r1 < '1' || r1 > '8' || r2 < '1' || r2 > '8' {
		return Square{}, Square{}, 0, false
	}
	src = Square{Row: 8 - int(r1-'0'), Col: int(c1 - 'a')}
	dst = Square{Row: 8 - int(r2-'0'), Col: int(c2 - 'a')}
	if len(s) == 5 {
		promo = s[4]
		if promo >= 'A' && promo <= 'Z' {
			promo += 'a' - 'A'
		}
	}
	return src, dst, promo, true
}

// FormatMove is the inverse of ParseMove's coordinate mapping (promotion
// suffix is appended separately by the caller when needed).
func FormatMove(src, dst Square) string {
	return fmt.Sprintf("%c%c%c%c",
		'a'+src.Col, '0'+(8-src.Row),
		'a'+dst.Col, '0'+(8-dst.Row))
}
