// ABOUTME: Feed command for the artfolio CLI
// ABOUTME: Opens the interactive feed browser and keeps the session fresh while it runs

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/markalston/artfolio-web/cli/internal/tui"
	"github.com/markalston/artfolio-web/services"
	"github.com/spf13/cobra"
)

var (
	feedQuery           string
	feedRefreshInterval time.Duration
)

// runProgram runs a bubbletea model on the terminal. Tests replace it.
var runProgram = func(ctx context.Context, m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
	return err
}

var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Browse the artwork feed interactively",
	Long: `Browse artworks newest first. Pages load as you scroll; if one fails,
press r to retry it. When signed in, the session is refreshed in the
background for as long as the browser is open.`,
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(func(ctx context.Context, w io.Writer) int {
			return runFeed(ctx, w, feedQuery, feedRefreshInterval)
		})
	},
}

func init() {
	feedCmd.Flags().StringVarP(&feedQuery, "query", "q", "", "Only show artworks matching this search")
	feedCmd.Flags().DurationVar(&feedRefreshInterval, "refresh-interval", services.DefaultRefreshInterval, "How often to refresh the session while browsing")
	rootCmd.AddCommand(feedCmd)
}

// runFeed runs the browser until the user quits and returns the exit code
func runFeed(ctx context.Context, w io.Writer, query string, interval time.Duration) int {
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}

	if c.LoggedIn(ctx) {
		refresher := c.Refresher(interval)
		refresher.Start(ctx)
		defer refresher.Stop()
	}

	if err := runProgram(ctx, tui.NewFeed(ctx, c.Feed(query), query)); err != nil && ctx.Err() == nil {
		fmt.Fprintf(w, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}
