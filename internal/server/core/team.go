package core

import (
	"fmt"
	"strings"
)

// Team identifies a side. OUR pieces advance toward higher rows, OPPONENT toward lower.
type Team int

const (
	TeamNone Team = iota
	TeamOur
	TeamOpponent
)

func (t Team) String() string {
	switch t {
	case TeamOur:
		return "our"
	case TeamOpponent:
		return "opponent"
	default:
		return "-"
	}
}

// Opposite returns the other team; TeamNone stays TeamNone
func Opposite(t Team) Team {
	switch t {
	case TeamOur:
		return TeamOpponent
	case TeamOpponent:
		return TeamOur
	default:
		return TeamNone
	}
}

func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "our":
		return TeamOur, nil
	case "opponent":
		return TeamOpponent, nil
	default:
		return TeamNone, fmt.Errorf("unknown team %q", s)
	}
}

type PieceType int

const (
	Pawn PieceType = iota + 1
	Knight
	Bishop
	Rook
	Queen
	King
)

var pieceNames = map[PieceType]string{
	Pawn:   "PAWN",
	Knight: "KNIGHT",
	Bishop: "BISHOP",
	Rook:   "ROOK",
	Queen:  "QUEEN",
	King:   "KING",
}

var pieceLetters = map[PieceType]byte{
	Pawn:   'p',
	Knight: 'n',
	Bishop: 'b',
	Rook:   'r',
	Queen:  'q',
	King:   'k',
}

func (p PieceType) String() string {
	if name, ok := pieceNames[p]; ok {
		return name
	}
	return "UNKNOWN"
}

// Letter returns the lower-case single letter for the piece type, 0 if unknown
func (p PieceType) Letter() byte {
	return pieceLetters[p]
}

// IsPromotionTarget reports whether a pawn may be promoted to this type
func (p PieceType) IsPromotionTarget() bool {
	return p == Knight || p == Bishop || p == Rook || p == Queen
}

// ParsePieceType accepts full names in any case or a single letter
func ParsePieceType(s string) (PieceType, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if len(s) == 1 {
		if pt, ok := PieceTypeFromLetter(s[0]); ok {
			return pt, nil
		}
	}
	for pt, name := range pieceNames {
		if name == s {
			return pt, nil
		}
	}
	return 0, fmt.Errorf("unknown piece type %q", s)
}

// PieceTypeFromLetter maps a letter of either case to a piece type
func PieceTypeFromLetter(c byte) (PieceType, bool) {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	for pt, l := range pieceLetters {
		if l == c {
			return pt, true
		}
	}
	return 0, false
}
