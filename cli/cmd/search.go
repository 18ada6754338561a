// ABOUTME: Search command for the artfolio CLI
// ABOUTME: Prints one page of artworks matching a query, as a table or JSON

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/markalston/artfolio-web/cli/internal/tui/styles"
	"github.com/markalston/artfolio-web/feed"
	"github.com/markalston/artfolio-web/models"
	"github.com/spf13/cobra"
)

var (
	searchSkip  int
	searchLimit int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search artworks by title or description",
	Long: `Search artworks by title or description and print one page of results.
Use --skip to page further. An empty query lists the newest artworks.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		runCommand(func(ctx context.Context, w io.Writer) int {
			return runSearch(ctx, w, query, searchSkip, searchLimit)
		})
	},
}

func init() {
	searchCmd.Flags().IntVar(&searchSkip, "skip", 0, "Number of results to skip")
	searchCmd.Flags().IntVar(&searchLimit, "limit", feed.Limit, "Maximum number of results")
	rootCmd.AddCommand(searchCmd)
}

// runSearch executes the search and returns exit code
func runSearch(ctx context.Context, w io.Writer, query string, skip, limit int) int {
	if skip < 0 || limit <= 0 {
		fmt.Fprintln(w, "Error: --skip must be 0 or more and --limit must be positive")
		return exitFailed
	}
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}
	items, err := c.Search(ctx, strings.TrimSpace(query), skip, limit)
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatSearchJSON(items))
	} else {
		fmt.Fprint(w, formatSearchHuman(items))
	}
	return exitOK
}

// formatSearchHuman formats results as a table
func formatSearchHuman(items []models.Artwork) string {
	if len(items) == 0 {
		return "No artworks found.\n"
	}
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(styles.Muted)).
		Headers("ID", "TITLE", "ARTIST", "CREATED")
	for _, a := range items {
		t.Row(a.ID, a.Title, a.Owner.Username, a.CreatedAt.Format("2006-01-02"))
	}
	return t.Render() + "\n"
}

// formatSearchJSON formats results as a JSON array
func formatSearchJSON(items []models.Artwork) string {
	if items == nil {
		items = []models.Artwork{}
	}
	data, _ := json.MarshalIndent(items, "", "  ")
	return string(data)
}
