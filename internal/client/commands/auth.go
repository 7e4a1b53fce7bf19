package commands

import (
	"fmt"

	"arcadechess/internal/client/display"
	"arcadechess/internal/client/session"
)

func (r *Registry) registerAuthCommands() {
	cmds := []*Command{
		{
			Name:        "register",
			ShortName:   "r",
			Description: "Register a new user",
			Usage:       "register [username] [email]",
			Handler:     r.registerHandler,
		},
		{
			Name:        "login",
			ShortName:   "l",
			Description: "Login with credentials",
			Usage:       "login [username|email]",
			Handler:     r.loginHandler,
		},
		{
			Name:        "logout",
			ShortName:   "o",
			Description: "End the server session and clear credentials",
			Usage:       "logout",
			Handler:     r.logoutHandler,
		},
		{
			Name:        "whoami",
			ShortName:   "i",
			Description: "Show current user",
			Usage:       "whoami",
			Handler:     r.whoamiHandler,
		},
	}
	for _, cmd := range cmds {
		cmd.Group = groupAuth
		r.Register(cmd)
	}
}

// argOrPrompt returns args[i] or asks for it
func (r *Registry) argOrPrompt(args []string, i int, prompt string) (string, error) {
	if i < len(args) {
		return args[i], nil
	}
	return r.prompt(display.Yellow+prompt+display.Reset, false)
}

func (r *Registry) registerHandler(s *session.Session, args []string) error {
	username, err := r.argOrPrompt(args, 0, "Username: ")
	if err != nil {
		return err
	}
	if username == "" {
		return fmt.Errorf("username required")
	}
	email, err := r.argOrPrompt(args, 1, "Email (optional): ")
	if err != nil {
		return err
	}

	password, err := r.prompt(display.Yellow+"Password: "+display.Reset, true)
	if err != nil {
		return err
	}
	confirm, err := r.prompt(display.Yellow+"Confirm password: "+display.Reset, true)
	if err != nil {
		return err
	}
	if password != confirm {
		return fmt.Errorf("passwords do not match")
	}

	resp, err := s.Client.Register(username, password, email)
	if err != nil {
		return err
	}

	s.SetAuth(resp.UserID, resp.Username, resp.Token)
	r.printf("%sRegistered and logged in as %s%s\n", display.Green, resp.Username, display.Reset)
	r.printf("User ID: %s\n", resp.UserID)
	return nil
}

func (r *Registry) loginHandler(s *session.Session, args []string) error {
	identifier, err := r.argOrPrompt(args, 0, "Username or email: ")
	if err != nil {
		return err
	}
	if identifier == "" {
		return fmt.Errorf("username or email required")
	}

	password, err := r.prompt(display.Yellow+"Password: "+display.Reset, true)
	if err != nil {
		return err
	}

	resp, err := s.Client.Login(identifier, password)
	if err != nil {
		return err
	}

	s.SetAuth(resp.UserID, resp.Username, resp.Token)
	r.printf("%sLogged in as %s%s\n", display.Green, resp.Username, display.Reset)
	r.printf("Token expires: %s\n", resp.ExpiresAt.Local().Format("2006-01-02 15:04:05"))
	return nil
}

func (r *Registry) logoutHandler(s *session.Session, _ []string) error {
	if s.AuthToken == "" {
		r.printf("%sNot logged in%s\n", display.Yellow, display.Reset)
		return nil
	}

	// Credentials are dropped locally even if the server call fails
	err := s.Client.Logout()
	s.ClearAuth()
	if err != nil {
		return err
	}
	r.printf("%sLogged out%s\n", display.Green, display.Reset)
	return nil
}

func (r *Registry) whoamiHandler(s *session.Session, _ []string) error {
	if s.AuthToken == "" {
		r.printf("%sNot logged in (anonymous)%s\n", display.Yellow, display.Reset)
		return nil
	}

	user, err := s.Client.GetCurrentUser()
	if err != nil {
		return err
	}

	r.printf("%sUser:%s     %s\n", display.Cyan, display.Reset, user.Username)
	r.printf("%sID:%s       %s\n", display.Cyan, display.Reset, user.UserID)
	r.printf("%sAccount:%s  %s\n", display.Cyan, display.Reset, user.AccountType)
	if user.Email != "" {
		r.printf("%sEmail:%s    %s\n", display.Cyan, display.Reset, user.Email)
	}
	if user.ExpiresAt != nil {
		r.printf("%sExpires:%s  %s\n", display.Cyan, display.Reset, user.ExpiresAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}
