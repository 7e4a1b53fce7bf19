package commands

import (
	"fmt"
	"strings"
	"time"

	"arcadechess/internal/client/display"
	"arcadechess/internal/client/session"
)

func (r *Registry) registerDebugCommands() {
	cmds := []*Command{
		{
			Name:        "health",
			ShortName:   ".",
			Description: "Check server health",
			Usage:       "health",
			Handler:     r.healthHandler,
		},
		{
			Name:        "url",
			ShortName:   "/",
			Description: "Show or set API base URL",
			Usage:       "url [apiUrl]",
			Handler:     r.urlHandler,
		},
		{
			Name:        "raw",
			ShortName:   ":",
			Description: "Send raw API request",
			Usage:       "raw <method> <path> [json-body]",
			Handler:     r.rawRequestHandler,
		},
		{
			Name:        "clear",
			ShortName:   "-",
			Description: "Clear screen",
			Usage:       "clear",
			Handler: func(*session.Session, []string) error {
				r.printf("\033[H\033[2J")
				return nil
			},
		},
	}
	for _, cmd := range cmds {
		cmd.Group = groupUtil
		r.Register(cmd)
	}
}

func (r *Registry) healthHandler(s *session.Session, _ []string) error {
	resp, err := s.Client.Health()
	if err != nil {
		return err
	}

	r.printf("%sServer Health:%s\n", display.Cyan, display.Reset)
	r.printf("  Status:          %s\n", resp.Status)
	r.printf("  Time:            %s\n", time.Unix(resp.Time, 0).Format("2006-01-02 15:04:05"))
	r.printf("  Storage:         %s\n", resp.Storage)
	r.printf("  Computer games:  %d\n", resp.ComputerGames)
	return nil
}

func (r *Registry) urlHandler(s *session.Session, args []string) error {
	if len(args) == 0 {
		r.printf("Current API URL: %s\n", s.APIBaseURL)
		return nil
	}

	url := args[0]
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = "http://" + url
	}
	s.SetAPIBaseURL(url)

	r.printf("%sAPI URL set to: %s%s\n", display.Cyan, s.APIBaseURL, display.Reset)
	return nil
}

func (r *Registry) rawRequestHandler(s *session.Session, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: raw <method> <path> [json-body]")
	}
	// Raw responses are only useful with the body shown
	verbose := s.Client.Verbose
	s.Client.SetVerbose(true)
	defer s.Client.SetVerbose(verbose)

	return s.Client.RawRequest(args[0], args[1], strings.Join(args[2:], " "))
}
