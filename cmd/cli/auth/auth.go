package auth

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/crucial707/hci-account/cmd/cli/apiclient"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Test seams for the terminal.
var (
	readPassword = term.ReadPassword
	isTerminal   = func() bool { return term.IsTerminal(int(os.Stdin.Fd())) }
)

type userResponse struct {
	ID    int    `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// InitAuth registers signup, login and forgot-password on the root command.
func InitAuth(rootCmd *cobra.Command) {
	rootCmd.AddCommand(signupCmd(), loginCmd(), forgotPasswordCmd())
}

// ==========================
// Signup
// ==========================
func signupCmd() *cobra.Command {
	var name, email, password string

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Long:  "Create an account with a name, email and password. The password is prompted for when --password is not given.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if name == "" || email == "" {
				return fmt.Errorf("--name and --email are required")
			}
			pw, err := passwordOrPrompt(cmd, password)
			if err != nil {
				return err
			}

			var out userResponse
			payload := map[string]string{"name": name, "email": email, "password": pw}
			if err := apiclient.New().PostJSON("/auth/signup", payload, &out); err != nil {
				return fmt.Errorf("signup failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Account created: %s <%s> (id %d)\n", out.Name, out.Email, out.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

// ==========================
// Login
// ==========================
func loginCmd() *cobra.Command {
	var email, password string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Check credentials against the account API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}
			pw, err := passwordOrPrompt(cmd, password)
			if err != nil {
				return err
			}

			var out userResponse
			payload := map[string]string{"email": email, "password": pw}
			if err := apiclient.New().PostJSON("/auth/login", payload, &out); err != nil {
				return fmt.Errorf("login failed: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s <%s> (id %d)\n", out.Name, out.Email, out.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted when omitted)")
	return cmd
}

// ==========================
// Forgot Password
// ==========================
func forgotPasswordCmd() *cobra.Command {
	var email string

	cmd := &cobra.Command{
		Use:   "forgot-password",
		Short: "Request a password reset link",
		RunE: func(cmd *cobra.Command, args []string) error {
			if email == "" {
				return fmt.Errorf("--email is required")
			}

			var out struct {
				Message string `json:"message"`
			}
			if err := apiclient.New().PostJSON("/auth/forgot-password", map[string]string{"email": email}, &out); err != nil {
				return fmt.Errorf("forgot-password failed: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), out.Message)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address")
	return cmd
}

// passwordOrPrompt returns flagValue when set. Otherwise it reads the password from the
// terminal without echo, or one line from the command's stdin when that is not a terminal.
func passwordOrPrompt(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}

	if isTerminal() {
		fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		pw, err := readPassword(int(os.Stdin.Fd()))
		fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", err
		}
		return string(pw), nil
	}

	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read password: %w", err)
	}
	pw := strings.TrimRight(line, "\r\n")
	if pw == "" {
		return "", fmt.Errorf("password is required")
	}
	return pw, nil
}
