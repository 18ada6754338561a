// ABOUTME: Root command for the artfolio CLI
// ABOUTME: Global flags, API URL and config dir resolution, exit codes and error output

package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/markalston/artfolio-web/cli/internal/client"
	"github.com/markalston/artfolio-web/cli/internal/debuglog"
	"github.com/markalston/artfolio-web/services"
	"github.com/markalston/artfolio-web/store"
	"github.com/spf13/cobra"
)

var (
	apiURL     string
	jsonOutput bool
	configDir  string

	closeLog = func() {}
)

const defaultAPIURL = services.DefaultAPIBaseURL

// Exit codes
const (
	exitOK     = 0
	exitFailed = 1 // the request was refused: bad input, bad credentials, not signed in
	exitError  = 2 // the backend could not be reached or failed
)

// rootCmd is the base command
var rootCmd = &cobra.Command{
	Use:   "artfolio",
	Short: "Terminal client for ArtFolio",
	Long: `artfolio signs in to an ArtFolio backend, browses and searches the
artwork feed, and uploads new artworks from the terminal.

Credentials are kept in $XDG_CONFIG_HOME/artfolio/credentials.json and
diagnostics are written to debug.log in the same directory.

Environment Variables:
  ARTFOLIO_API_URL  Backend API URL (default: ` + defaultAPIURL + `)
  LOG_LEVEL         debug.log level: debug, info, warn, error (default: info)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir, err := GetConfigDir()
		if err != nil {
			return err
		}
		closeLog, err = debuglog.Init(dir)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "", "Backend API URL (overrides ARTFOLIO_API_URL)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output JSON instead of human-readable text")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory for credentials and debug.log (default $XDG_CONFIG_HOME/artfolio)")
}

// GetAPIURL returns the API URL from flag, env, or default (in priority order)
func GetAPIURL() string {
	if apiURL != "" {
		return apiURL
	}
	if envURL := os.Getenv("ARTFOLIO_API_URL"); envURL != "" {
		return envURL
	}
	return defaultAPIURL
}

// GetConfigDir returns the --config-dir flag or the default config dir.
func GetConfigDir() (string, error) {
	if configDir != "" {
		return configDir, nil
	}
	return store.DefaultDir()
}

// IsJSONOutput returns whether JSON output is requested
func IsJSONOutput() bool {
	return jsonOutput
}

func newClient() (*client.Client, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return nil, err
	}
	return client.New(GetAPIURL(), dir)
}

// exitCodeFor tells refusals apart from failures to reach the backend.
func exitCodeFor(err error) int {
	var fields services.FieldErrors
	switch {
	case err == nil:
		return exitOK
	case errors.As(err, &fields):
		return exitFailed
	}
	switch services.KindOf(err) {
	case services.KindNotAuthenticated, services.KindNoRefreshToken, services.KindValidationFailed:
		return exitFailed
	}
	if status := services.StatusOf(err); status >= 400 && status < 500 {
		return exitFailed
	}
	return exitError
}

// errorText is the one line shown for err. Backend errors show their
// user-facing message; local errors show themselves.
func errorText(err error) string {
	var fields services.FieldErrors
	switch {
	case errors.As(err, &fields):
		return fields.Error()
	case errors.Is(err, services.ErrNotAuthenticated), errors.Is(err, services.ErrNoRefreshToken):
		return "Not logged in. Run `artfolio login` first."
	case services.KindOf(err) != "":
		return services.UserMessage(err)
	default:
		return err.Error()
	}
}

// fail prints err and returns its exit code.
func fail(w io.Writer, err error) int {
	fmt.Fprintf(w, "Error: %s\n", errorText(err))
	return exitCodeFor(err)
}
