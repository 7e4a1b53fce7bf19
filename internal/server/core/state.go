package core

type State int

const (
	StateOngoing   State = iota
	StatePending         // Proposer is working on an opponent move
	StatePromotion       // Our pawn reached the last rank and waits for a piece choice
	StateOurWins
	StateOpponentWins
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StatePromotion:
		return "promotion"
	case StateOurWins:
		return "our wins"
	case StateOpponentWins:
		return "opponent wins"
	case StateOngoing:
		return "ongoing"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether the game has been decided
func (s State) IsTerminal() bool {
	return s == StateOurWins || s == StateOpponentWins
}

// WinState maps a winning team to its terminal state
func WinState(t Team) State {
	switch t {
	case TeamOur:
		return StateOurWins
	case TeamOpponent:
		return StateOpponentWins
	default:
		return StateOngoing
	}
}
