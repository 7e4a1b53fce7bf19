// Package commands implements the REPL commands of the debug client.
package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"arcadechess/internal/client/display"
	"arcadechess/internal/client/session"
)

// ErrExit is returned by the exit command; the REPL stops on it
var ErrExit = errors.New("exit requested")

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Group       string
	Handler     func(*session.Session, []string) error
}

// Prompter reads a line of input; secret input is not echoed
type Prompter func(prompt string, secret bool) (string, error)

// Registry manages command registration and execution
type Registry struct {
	session  *session.Session
	commands map[string]*Command
	ordered  []*Command
	out      io.Writer
	prompt   Prompter
}

const (
	groupGame = "Game Commands"
	groupAuth = "Auth Commands"
	groupUtil = "Utility Commands"
)

func NewRegistry(s *session.Session, out io.Writer, prompt Prompter) *Registry {
	if out == nil {
		out = os.Stdout
	}
	if prompt == nil {
		prompt = terminalPrompter(out)
	}
	s.Client.Out = out

	r := &Registry{
		session:  s,
		commands: make(map[string]*Command),
		out:      out,
		prompt:   prompt,
	}

	r.registerGameCommands()
	r.registerAuthCommands()
	r.registerDebugCommands()

	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Group:       groupUtil,
		Handler:     r.helpHandler,
	})
	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Group:       groupUtil,
		Handler: func(*session.Session, []string) error {
			return ErrExit
		},
	})

	return r
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
	r.ordered = append(r.ordered, cmd)
}

// Execute runs one input line. Errors are printed; only ErrExit is returned.
func (r *Registry) Execute(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd, exists := r.commands[parts[0]]
	if !exists {
		r.printf("%sUnknown command: %s%s\n", display.Red, parts[0], display.Reset)
		r.printf("Type 'help' for available commands\n")
		return nil
	}

	r.session.Client.SetVerbose(r.session.Verbose)

	err := cmd.Handler(r.session, parts[1:])
	if errors.Is(err, ErrExit) {
		r.printf("%sGoodbye!%s\n", display.Cyan, display.Reset)
		return err
	}
	if err != nil {
		r.printf("%sError: %s%s\n", display.Red, err.Error(), display.Reset)
	}
	return nil
}

func (r *Registry) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

func (r *Registry) helpHandler(_ *session.Session, args []string) error {
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		r.printf("\n%s%s%s - %s\n", display.Cyan, cmd.Name, display.Reset, cmd.Description)
		if cmd.ShortName != "" {
			r.printf("Short form: %s%s%s\n", display.Cyan, cmd.ShortName, display.Reset)
		}
		r.printf("Usage: %s\n", cmd.Usage)
		return nil
	}

	groups := make(map[string][]*Command)
	for _, cmd := range r.ordered {
		groups[cmd.Group] = append(groups[cmd.Group], cmd)
	}

	r.printf("\n%sAvailable Commands:%s\n", display.Cyan, display.Reset)
	for _, group := range []string{groupGame, groupAuth, groupUtil} {
		cmds := groups[group]
		sort.SliceStable(cmds, func(i, j int) bool { return cmds[i].Name < cmds[j].Name })

		r.printf("\n%s%s:%s\n", display.Yellow, group, display.Reset)
		for _, cmd := range cmds {
			shortPart := "    "
			if cmd.ShortName != "" {
				shortPart = fmt.Sprintf("[%s%s%s] ", display.Cyan, cmd.ShortName, display.Reset)
			}
			r.printf("  %s%-10s %s\n", shortPart, cmd.Name, cmd.Description)
		}
	}

	r.printf("\nType 'help <command>' for detailed usage\n")
	r.printf("Add '-v' to any command for verbose output\n")
	return nil
}

// requireGame returns the current game ID or an instructive error
func requireGame(s *session.Session) (string, error) {
	if s.CurrentGame == "" {
		return "", fmt.Errorf("no current game, use 'new' or 'join <gameId>'")
	}
	return s.CurrentGame, nil
}
