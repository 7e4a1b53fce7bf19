package commands

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// terminalPrompter reads plain input from stdin and secrets without echo
func terminalPrompter(out io.Writer) Prompter {
	reader := bufio.NewReader(os.Stdin)
	return func(prompt string, secret bool) (string, error) {
		fmt.Fprint(out, prompt)
		if secret {
			fd := int(os.Stdin.Fd())
			if term.IsTerminal(fd) {
				b, err := term.ReadPassword(fd)
				fmt.Fprintln(out)
				if err != nil {
					return "", err
				}
				return string(b), nil
			}
		}
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimSpace(line), nil
	}
}
