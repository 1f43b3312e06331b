package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/good-yellow-bee/peervote/internal/session"
)

var (
	loginEmail         string
	loginPasswordStdin bool
)

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store the access token",
	Long: `Sign in with your email and password.

The password is prompted interactively so it does not end up in shell
history. The access token is stored locally and sent with every later
command until you run 'peervote logout'.

Examples:
  peervote login --email alice@example.com

  # Non-interactive
  echo "$PASSWORD" | peervote login --email alice@example.com --password-stdin`,
	RunE: runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newAppContext(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer app.Close()

		if err := app.Client.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
		return nil
	},
}

// storedKey describes one local store entry without exposing its value.
type storedKey struct {
	Key       string    `json:"key"`
	Bytes     int       `json:"bytes"`
	UpdatedAt time.Time `json:"updated_at"`
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in identity",
	Long: `Show what the stored access token says about you.

The token is decoded locally; the server is not contacted. With --verbose
the keys held in the local store are listed too (values are not printed).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newAppContext(cmd.Context(), cmd.ErrOrStderr())
		if err != nil {
			return err
		}
		defer app.Close()

		token, ok := app.Session.Get()
		if !ok {
			return fmt.Errorf("not signed in; run `peervote login` first")
		}
		id, err := session.Inspect(token)
		if err != nil {
			return err
		}

		var stored []storedKey
		if IsVerbose() {
			entries, err := app.Storage.KV().List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list local store: %w", err)
			}
			for _, e := range entries {
				stored = append(stored, storedKey{Key: e.Key, Bytes: len(e.Value), UpdatedAt: e.UpdatedAt})
			}
		}

		out := cmd.OutOrStdout()
		if GetOutput() == "json" {
			doc := map[string]any{
				"user_id":    id.UserID,
				"token_type": id.TokenType,
				"issued_at":  id.IssuedAt,
				"expires_at": id.ExpiresAt,
				"expired":    id.Expired(time.Now()),
				"api_url":    app.Config.API.URL,
			}
			if stored != nil {
				doc["stored"] = stored
			}
			return printJSON(out, doc)
		}

		fmt.Fprintf(out, "User ID:  %s\n", id.UserID)
		fmt.Fprintf(out, "API:      %s\n", app.Config.API.URL)
		if !id.ExpiresAt.IsZero() {
			state := "valid"
			if id.Expired(time.Now()) {
				state = "expired"
			}
			fmt.Fprintf(out, "Expires:  %s (%s)\n", id.ExpiresAt.Local().Format("2006-01-02 15:04:05"), state)
		}
		if stored != nil {
			fmt.Fprintf(out, "\nLocal store: %s\n", app.Storage.Path())
			for _, k := range stored {
				fmt.Fprintf(out, "  %-20s %6d bytes  %s\n", k.Key, k.Bytes, k.UpdatedAt.Local().Format("2006-01-02 15:04:05"))
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(whoamiCmd)

	loginCmd.Flags().StringVarP(&loginEmail, "email", "e", "", "account email (prompted if omitted)")
	loginCmd.Flags().BoolVar(&loginPasswordStdin, "password-stdin", false, "read the password from stdin")
}

func runLogin(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	reader := bufio.NewReader(stdin)

	email := strings.TrimSpace(loginEmail)
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := readLine(reader)
		if err != nil {
			return fmt.Errorf("read email: %w", err)
		}
		email = line
	}
	if email == "" {
		return fmt.Errorf("email is required")
	}

	var password string
	var err error
	if loginPasswordStdin {
		password, err = readLine(reader)
	} else {
		password, err = promptPassword(out, reader, "Password: ")
	}
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	if password == "" {
		return fmt.Errorf("password is required")
	}

	app, err := newAppContext(cmd.Context(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer app.Close()

	if _, err := app.Client.Login(cmd.Context(), email, password); err != nil {
		return err
	}
	fmt.Fprintf(out, "Signed in as %s.\n", email)
	return nil
}

// promptPassword prompts for a password without echoing to the terminal.
func promptPassword(out io.Writer, reader *bufio.Reader, prompt string) (string, error) {
	fmt.Fprint(out, prompt)

	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		passwordBytes, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(out)
		if err != nil {
			return "", err
		}
		return string(passwordBytes), nil
	}

	// Fallback for non-terminal input (e.g., piped input)
	return readLine(reader)
}

func readLine(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil && (err != io.EOF || line == "") {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
