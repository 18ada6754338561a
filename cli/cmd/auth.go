// ABOUTME: Account commands for the artfolio CLI
// ABOUTME: login, signup, logout, whoami and refresh over the locally stored credentials

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/markalston/artfolio-web/cli/internal/client"
	"github.com/markalston/artfolio-web/cli/internal/tui/styles"
	"github.com/markalston/artfolio-web/services"
	"github.com/spf13/cobra"
)

// credentials are what login and signup send.
type credentials struct {
	Username string
	Email    string
	Password string
}

func (c credentials) complete(signup bool) bool {
	return c.Email != "" && c.Password != "" && (!signup || c.Username != "")
}

var loginCreds, signupCreds credentials

// promptCredentials fills in missing values with an interactive form.
var promptCredentials = func(c *credentials, signup bool) error {
	var fields []huh.Field
	if signup {
		fields = append(fields, huh.NewInput().
			Title("Username").
			Value(&c.Username).
			Validate(services.ValidateUsername))
	}
	fields = append(fields,
		huh.NewInput().Title("Email").Value(&c.Email),
		huh.NewInput().Title("Password").EchoMode(huh.EchoModePassword).Value(&c.Password),
	)
	return huh.NewForm(huh.NewGroup(fields...)).Run()
}

// runCommand gives fn a signal-aware context and exits with its code.
func runCommand(fn func(ctx context.Context, w io.Writer) int) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	exitCode := fn(ctx, os.Stdout)
	cancel()
	if exitCode != exitOK {
		closeLog()
		os.Exit(exitCode)
	}
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in and store credentials",
	Long:  `Sign in with email and password. Missing values are asked for interactively.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(func(ctx context.Context, w io.Writer) int {
			return runLogin(ctx, w, loginCreds)
		})
	},
}

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create an account and sign in",
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(func(ctx context.Context, w io.Writer) int {
			return runSignup(ctx, w, signupCreds)
		})
	},
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Forget stored credentials",
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(runLogout)
	},
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the signed-in profile and access token expiry",
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(runWhoami)
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Exchange the refresh token for a new access token",
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(runRefresh)
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginCreds.Email, "email", "", "Account email")
	loginCmd.Flags().StringVar(&loginCreds.Password, "password", "", "Account password")

	signupCmd.Flags().StringVar(&signupCreds.Username, "username", "", "Username")
	signupCmd.Flags().StringVar(&signupCreds.Email, "email", "", "Account email")
	signupCmd.Flags().StringVar(&signupCreds.Password, "password", "", "Account password")

	rootCmd.AddCommand(loginCmd, signupCmd, logoutCmd, whoamiCmd, refreshCmd)
}

// runLogin signs in and returns the exit code
func runLogin(ctx context.Context, w io.Writer, creds credentials) int {
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}
	if !creds.complete(false) {
		if err := promptCredentials(&creds, false); err != nil {
			return fail(w, err)
		}
	}

	sess, err := c.Login(ctx, strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		return fail(w, err)
	}
	fmt.Fprintln(w, formatSession("Logged in", sess))
	return exitOK
}

// runSignup registers, signs in and returns the exit code
func runSignup(ctx context.Context, w io.Writer, creds credentials) int {
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}
	if !creds.complete(true) {
		if err := promptCredentials(&creds, true); err != nil {
			return fail(w, err)
		}
	}

	sess, err := c.Signup(ctx, strings.TrimSpace(creds.Username), strings.TrimSpace(creds.Email), creds.Password)
	if err != nil {
		return fail(w, err)
	}
	fmt.Fprintln(w, formatSession("Account created, logged in", sess))
	return exitOK
}

func formatSession(verb string, sess *services.Session) string {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(map[string]interface{}{
			"username":      sess.Username,
			"authenticated": sess.Authenticated(),
		}, "", "  ")
		return string(data)
	}
	return fmt.Sprintf("%s as %s", verb, sess.Username)
}

// runLogout always succeeds
func runLogout(ctx context.Context, w io.Writer) int {
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}
	c.Logout(ctx)
	if IsJSONOutput() {
		fmt.Fprintln(w, `{"logged_out": true}`)
	} else {
		fmt.Fprintln(w, "Logged out")
	}
	return exitOK
}

// runWhoami prints the profile and returns the exit code
func runWhoami(ctx context.Context, w io.Writer) int {
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}
	id, err := c.Whoami(ctx)
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatWhoamiJSON(c.BaseURL(), id))
	} else {
		fmt.Fprintln(w, formatWhoamiHuman(c.BaseURL(), id))
	}
	return exitOK
}

// formatWhoamiHuman formats the identity for human readability
func formatWhoamiHuman(url string, id *client.Identity) string {
	u := id.User
	lines := []string{
		styles.Field("Username:", u.Username),
		styles.Field("Name:", u.DisplayName()),
		styles.Field("Email:", u.Email),
		styles.Field("Artist:", yesNo(u.IsArtist)),
	}
	if !id.ExpiresAt.IsZero() {
		lines = append(lines, styles.Field("Token:", fmt.Sprintf("expires in %s (%s)",
			id.ExpiresIn.Round(time.Second), id.ExpiresAt.Local().Format("15:04:05"))))
	}
	lines = append(lines, styles.Field("Backend:", url))
	return strings.Join(lines, "\n")
}

// formatWhoamiJSON formats the identity as JSON
func formatWhoamiJSON(url string, id *client.Identity) string {
	output := map[string]interface{}{
		"backend":   url,
		"username":  id.User.Username,
		"email":     id.User.Email,
		"full_name": id.User.FullName,
		"is_artist": id.User.IsArtist,
	}
	if !id.ExpiresAt.IsZero() {
		output["access_token_expires_at"] = id.ExpiresAt.UTC().Format(time.RFC3339)
		output["access_token_expires_in"] = int(id.ExpiresIn.Seconds())
	}
	data, _ := json.MarshalIndent(output, "", "  ")
	return string(data)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// runRefresh renews the access token and returns the exit code
func runRefresh(ctx context.Context, w io.Writer) int {
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}
	if err := c.Refresh(ctx); err != nil {
		return fail(w, err)
	}
	if IsJSONOutput() {
		fmt.Fprintln(w, `{"refreshed": true}`)
	} else {
		fmt.Fprintln(w, "Session refreshed")
	}
	return exitOK
}
