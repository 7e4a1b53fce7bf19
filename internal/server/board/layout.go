package board

import (
	"fmt"
	"strconv"
	"strings"

	"arcadechess/internal/server/core"
)

// StartingLayout is the encoded form of NewGame()
const StartingLayout = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR 0 -"

// Encode renders the board as "<placement> <totalTurns> <enPassant>". Placement lists
// rows 7 down to 0 separated by '/', OUR pieces upper case, digits for empty runs.
// The en-passant field is the flagged pawn's cell as "x,y" or "-".
func (b *Board) Encode() string {
	var grid [Size][Size]byte
	ep := "-"
	for _, p := range b.pieces {
		grid[p.Position.Y][p.Position.X] = p.letter()
		if p.EnPassant {
			ep = fmt.Sprintf("%d,%d", p.Position.X, p.Position.Y)
		}
	}

	var sb strings.Builder
	for y := Size - 1; y >= 0; y-- {
		empty := 0
		for x := 0; x < Size; x++ {
			if grid[y][x] == 0 {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(grid[y][x])
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if y > 0 {
			sb.WriteByte('/')
		}
	}
	fmt.Fprintf(&sb, " %d %s", b.totalTurns, ep)
	return sb.String()
}

// ParseLayout is the inverse of Encode. The turn and en-passant fields are optional.
// Pawns off their start row are marked as moved.
func ParseLayout(layout string) (*Board, error) {
	parts := strings.Fields(layout)
	if len(parts) == 0 || len(parts) > 3 {
		return nil, fmt.Errorf("invalid layout: expected 1-3 fields, got %d", len(parts))
	}

	rows := strings.Split(parts[0], "/")
	if len(rows) != Size {
		return nil, fmt.Errorf("invalid layout: expected %d rows, got %d", Size, len(rows))
	}

	var pieces []Piece
	for r, row := range rows {
		y := Size - 1 - r
		x := 0
		for i := 0; i < len(row); i++ {
			ch := row[i]
			if ch >= '1' && ch <= '8' {
				x += int(ch - '0')
				continue
			}
			if x >= Size {
				return nil, fmt.Errorf("invalid layout: row %d overflows", y)
			}
			pt, ok := core.PieceTypeFromLetter(ch)
			if !ok {
				return nil, fmt.Errorf("invalid layout: unknown piece %q", ch)
			}
			team := core.TeamOpponent
			if ch >= 'A' && ch <= 'Z' {
				team = core.TeamOur
			}
			pos := NewPosition(x, y)
			p := NewPiece(pos, pt, team, false)
			if p.IsPawn() {
				p.HasMoved = y != PawnStartRow(team)
			}
			pieces = append(pieces, p)
			x++
		}
		if x != Size {
			return nil, fmt.Errorf("invalid layout: row %d has %d cells", y, x)
		}
	}

	turns := 0
	if len(parts) > 1 {
		n, err := strconv.Atoi(parts[1])
		if err != nil || n < 0 {
			return nil, fmt.Errorf("invalid layout: turn count %q", parts[1])
		}
		turns = n
	}

	if len(parts) > 2 && parts[2] != "-" {
		pos, err := ParsePosition(parts[2])
		if err != nil {
			return nil, fmt.Errorf("invalid layout: %w", err)
		}
		found := false
		for i := range pieces {
			if pieces[i].Position.SamePosition(pos) && pieces[i].IsPawn() {
				pieces[i].EnPassant = true
				found = true
			}
		}
		if !found {
			return nil, fmt.Errorf("invalid layout: no pawn at en passant cell %s", pos)
		}
	}

	return NewBoard(pieces, turns)
}

// ParsePosition accepts "x,y" or "(x,y)" and requires an on-board cell
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(s), "("), ")")
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return Position{}, fmt.Errorf("cell %q must be x,y", s)
	}
	x, err := strconv.Atoi(strings.TrimSpace(xs))
	if err != nil {
		return Position{}, fmt.Errorf("cell %q: bad x", s)
	}
	y, err := strconv.Atoi(strings.TrimSpace(ys))
	if err != nil {
		return Position{}, fmt.Errorf("cell %q: bad y", s)
	}
	pos := NewPosition(x, y)
	if !pos.OnBoard() {
		return Position{}, fmt.Errorf("cell %s off board", pos)
	}
	return pos, nil
}

// ToASCII creates an ASCII representation of the board, row 7 on top
func (b *Board) ToASCII() string {
	var grid [Size][Size]byte
	for _, p := range b.pieces {
		grid[p.Position.Y][p.Position.X] = p.letter()
	}

	var sb strings.Builder
	sb.WriteString("  0 1 2 3 4 5 6 7\n")
	for y := Size - 1; y >= 0; y-- {
		sb.WriteString(fmt.Sprintf("%d ", y))
		for x := 0; x < Size; x++ {
			if grid[y][x] == 0 {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", grid[y][x]))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", y))
	}
	sb.WriteString("  0 1 2 3 4 5 6 7")

	return sb.String()
}
