package display

import (
	"fmt"
	"io"
	"strings"
)

// RenderBoard colors the server's ASCII board: upper case is our team, lower case the opponent
func RenderBoard(w io.Writer, asciiBoard string) {
	for _, line := range strings.Split(asciiBoard, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		var sb strings.Builder
		for _, char := range line {
			switch {
			case char >= 'A' && char <= 'Z':
				sb.WriteString(Blue + string(char) + Reset)
			case char >= 'a' && char <= 'z':
				sb.WriteString(Red + string(char) + Reset)
			case char >= '0' && char <= '9':
				sb.WriteString(Cyan + string(char) + Reset)
			default:
				sb.WriteRune(char)
			}
		}
		fmt.Fprintln(w, sb.String())
	}
}

// ColorForTeam returns a colored team name
func ColorForTeam(team string) string {
	switch team {
	case "our":
		return Blue + "Our" + Reset
	case "opponent":
		return Red + "Opponent" + Reset
	default:
		return team
	}
}
