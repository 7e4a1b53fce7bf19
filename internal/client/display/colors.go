package display

// Terminal color codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
)

// Prompt returns a colored prompt string
func Prompt(text string) string {
	return Yellow + text + " > " + Reset
}

// ColorForState highlights decided and waiting games
func ColorForState(state string) string {
	switch state {
	case "our wins":
		return Green + state + Reset
	case "opponent wins":
		return Red + state + Reset
	case "pending", "promotion":
		return Magenta + state + Reset
	default:
		return state
	}
}
