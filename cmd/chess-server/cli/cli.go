// Package cli implements the "db" maintenance commands of the server binary.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"arcadechess/internal/server/service"
	"arcadechess/internal/server/storage"

	"github.com/google/uuid"
	"github.com/lixenwraith/auth"
	"golang.org/x/term"
)

const minPasswordLength = 8

// Run is the entry point for the db sub-commands
func Run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, moves, user")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:], out)
	case "delete":
		return runDelete(args[1:], out)
	case "query":
		return runQuery(args[1:], out)
	case "moves":
		return runMoves(args[1:], out)
	case "user":
		if len(args) < 2 {
			return fmt.Errorf("user subcommand required: add, delete, set-password, set-email, promote, list")
		}
		return runUser(args[1], args[2:], out)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func runUser(subcommand string, args []string, out io.Writer) error {
	switch subcommand {
	case "add":
		return runUserAdd(args, out)
	case "delete":
		return runUserDelete(args, out)
	case "set-password":
		return runUserSetPassword(args, out)
	case "set-email":
		return runUserSetEmail(args, out)
	case "promote":
		return runUserPromote(args, out)
	case "list":
		return runUserList(args, out)
	default:
		return fmt.Errorf("unknown user subcommand: %s", subcommand)
	}
}

// command is a flag set that always carries -path
type command struct {
	fs   *flag.FlagSet
	path *string
}

func newCommand(name string) *command {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	return &command{
		fs:   fs,
		path: fs.String("path", "", "Database file path (required)"),
	}
}

func (c *command) parse(args []string) error {
	if err := c.fs.Parse(args); err != nil {
		return err
	}
	if *c.path == "" {
		return fmt.Errorf("database path required")
	}
	return nil
}

func (c *command) open() (*storage.Store, error) {
	store, err := storage.NewStore(*c.path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runInit(args []string, out io.Writer) error {
	cmd := newCommand("init")
	if err := cmd.parse(args); err != nil {
		return err
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Fprintf(out, "Database initialized at: %s\n", *cmd.path)
	return nil
}

func runDelete(args []string, out io.Writer) error {
	cmd := newCommand("delete")
	if err := cmd.parse(args); err != nil {
		return err
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Fprintf(out, "Database deleted: %s\n", *cmd.path)
	return nil
}

func runQuery(args []string, out io.Writer) error {
	cmd := newCommand("query")
	gameID := cmd.fs.String("gameId", "", "Game ID to filter (optional, * for all)")
	playerID := cmd.fs.String("playerId", "", "Player ID to filter (optional, * for all)")
	if err := cmd.parse(args); err != nil {
		return err
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	games, err := store.QueryGames(*gameID, *playerID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(games) == 0 {
		fmt.Fprintln(out, "No games found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "Game ID\tOur Player\tOpponent\tProposer\tStart Time")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, g := range games {
		proposer := g.OpponentProposer
		if proposer == "" {
			proposer = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s (T%d)\t%s\t%s\n",
			short(g.GameID),
			short(g.OurPlayerID),
			short(g.OpponentPlayerID), g.OpponentType,
			proposer,
			g.StartTimeUTC.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nFound %d game(s)\n", len(games))
	return nil
}

func runMoves(args []string, out io.Writer) error {
	cmd := newCommand("moves")
	gameID := cmd.fs.String("gameId", "", "Game ID (required)")
	if err := cmd.parse(args); err != nil {
		return err
	}
	if *gameID == "" {
		return fmt.Errorf("game ID required")
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	moves, err := store.QueryMoves(*gameID)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(moves) == 0 {
		fmt.Fprintln(out, "No moves found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tTeam\tMove\tLayout After")
	for _, m := range moves {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", m.MoveNumber, m.Team, m.MoveText, m.LayoutAfterMove)
	}
	return w.Flush()
}

// readPassword returns the flag value or prompts on the terminal
func readPassword(flagValue string, interactive bool) (string, error) {
	password := flagValue
	if interactive {
		if flagValue != "" {
			return "", fmt.Errorf("cannot use -interactive with -password")
		}
		fmt.Fprint(os.Stderr, "Enter password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		password = string(pwBytes)
	}

	if password == "" {
		return "", fmt.Errorf("password required: use -password or -interactive")
	}
	if len(password) < minPasswordLength {
		return "", fmt.Errorf("password must be at least %d characters", minPasswordLength)
	}
	return password, nil
}

func runUserAdd(args []string, out io.Writer) error {
	cmd := newCommand("user add")
	username := cmd.fs.String("username", "", "Username (required)")
	email := cmd.fs.String("email", "", "Email address (optional)")
	password := cmd.fs.String("password", "", "Password")
	hash := cmd.fs.String("hash", "", "Pre-computed password hash")
	interactive := cmd.fs.Bool("interactive", false, "Interactive password prompt")
	temp := cmd.fs.Bool("temp", false, "Create as temporary user (default: permanent)")
	if err := cmd.parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("username required")
	}

	passwordHash := *hash
	if passwordHash != "" {
		if *password != "" || *interactive {
			return fmt.Errorf("cannot combine -hash with -password or -interactive")
		}
	} else {
		pw, err := readPassword(*password, *interactive)
		if err != nil {
			return err
		}
		if passwordHash, err = auth.HashPassword(pw); err != nil {
			return fmt.Errorf("failed to hash password: %w", err)
		}
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	now := time.Now().UTC()
	record := storage.UserRecord{
		UserID:       uuid.New().String(),
		Username:     strings.ToLower(*username),
		Email:        strings.ToLower(*email),
		PasswordHash: passwordHash,
		AccountType:  storage.AccountPermanent,
		CreatedAt:    now,
	}
	if *temp {
		expires := now.Add(service.TempUserTTL)
		record.AccountType = storage.AccountTemp
		record.ExpiresAt = &expires
	}

	if err := store.CreateUser(record); err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(out, "User created: %s (%s, %s)\n", record.Username, record.UserID, record.AccountType)
	return nil
}

// lookupUser resolves -username or -id to a stored user
func lookupUser(store *storage.Store, username, userID string) (*storage.UserRecord, error) {
	switch {
	case username != "" && userID != "":
		return nil, fmt.Errorf("specify either -username or -id, not both")
	case userID != "":
		return store.GetUserByID(userID)
	case username != "":
		return store.GetUserByUsername(username)
	default:
		return nil, fmt.Errorf("either -username or -id required")
	}
}

func runUserDelete(args []string, out io.Writer) error {
	cmd := newCommand("user delete")
	username := cmd.fs.String("username", "", "Username to delete")
	userID := cmd.fs.String("id", "", "User ID to delete")
	if err := cmd.parse(args); err != nil {
		return err
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := lookupUser(store, *username, *userID)
	if err != nil {
		return userError(err)
	}
	if err := store.DeleteUserByID(user.UserID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Fprintf(out, "User deleted: %s\n", user.Username)
	return nil
}

func runUserSetPassword(args []string, out io.Writer) error {
	cmd := newCommand("user set-password")
	username := cmd.fs.String("username", "", "Username (required)")
	password := cmd.fs.String("password", "", "New password")
	interactive := cmd.fs.Bool("interactive", false, "Interactive password prompt")
	if err := cmd.parse(args); err != nil {
		return err
	}

	pw, err := readPassword(*password, *interactive)
	if err != nil {
		return err
	}
	passwordHash, err := auth.HashPassword(pw)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := lookupUser(store, *username, "")
	if err != nil {
		return userError(err)
	}
	if err := store.UpdateUserPassword(user.UserID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	// Existing logins must not survive a password change
	if err := store.DeleteSessionByUserID(user.UserID); err != nil {
		return fmt.Errorf("failed to close sessions: %w", err)
	}

	fmt.Fprintf(out, "Password updated for: %s\n", user.Username)
	return nil
}

func runUserSetEmail(args []string, out io.Writer) error {
	cmd := newCommand("user set-email")
	username := cmd.fs.String("username", "", "Username (required)")
	email := cmd.fs.String("email", "", "New email address (empty clears it)")
	if err := cmd.parse(args); err != nil {
		return err
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := lookupUser(store, *username, "")
	if err != nil {
		return userError(err)
	}
	if err := store.UpdateUserEmail(user.UserID, strings.ToLower(*email)); err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}

	fmt.Fprintf(out, "Email updated for: %s\n", user.Username)
	return nil
}

func runUserPromote(args []string, out io.Writer) error {
	cmd := newCommand("user promote")
	username := cmd.fs.String("username", "", "Username (required)")
	if err := cmd.parse(args); err != nil {
		return err
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := lookupUser(store, *username, "")
	if err != nil {
		return userError(err)
	}
	if err := store.PromoteToPermanent(user.UserID); err != nil {
		return fmt.Errorf("failed to promote user: %w", err)
	}

	fmt.Fprintf(out, "User is now permanent: %s\n", user.Username)
	return nil
}

func runUserList(args []string, out io.Writer) error {
	cmd := newCommand("user list")
	if err := cmd.parse(args); err != nil {
		return err
	}

	store, err := cmd.open()
	if err != nil {
		return err
	}
	defer store.Close()

	users, err := store.GetAllUsers()
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(users) == 0 {
		fmt.Fprintln(out, "No users found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "User ID\tUsername\tType\tEmail\tCreated\tExpires\tLast Login")
	fmt.Fprintln(w, strings.Repeat("-", 120))
	for _, u := range users {
		email := u.Email
		if email == "" {
			email = "(none)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			short(u.UserID),
			u.Username,
			u.AccountType,
			email,
			u.CreatedAt.Format("2006-01-02 15:04"),
			formatOptionalTime(u.ExpiresAt),
			formatOptionalTime(u.LastLoginAt),
		)
	}
	w.Flush()

	fmt.Fprintf(out, "\nTotal users: %d\n", len(users))
	return nil
}

func userError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("user not found")
	}
	return err
}

func formatOptionalTime(t *time.Time) string {
	if t == nil {
		return "never"
	}
	return t.Format("2006-01-02 15:04")
}

// short truncates ids for table output
func short(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
