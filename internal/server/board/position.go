package board

import "fmt"

// Size is the board edge length
const Size = 8

// Position is a board cell. X is the file, Y the row; OUR home row is 0.
type Position struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func NewPosition(x, y int) Position {
	return Position{X: x, Y: y}
}

func (p Position) Clone() Position {
	return Position{X: p.X, Y: p.Y}
}

func (p Position) SamePosition(o Position) bool {
	return p.X == o.X && p.Y == o.Y
}

// OnBoard reports whether both coordinates are within 0-7
func (p Position) OnBoard() bool {
	return p.X >= 0 && p.X < Size && p.Y >= 0 && p.Y < Size
}

// Clamp pulls each coordinate into the 0-7 range
func (p Position) Clamp() Position {
	return Position{X: clamp(p.X), Y: clamp(p.Y)}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

func (p Position) offset(dx, dy int) Position {
	return Position{X: p.X + dx, Y: p.Y + dy}
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v >= Size {
		return Size - 1
	}
	return v
}
