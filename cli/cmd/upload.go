// ABOUTME: Upload command for the artfolio CLI
// ABOUTME: Posts a local image as a new artwork owned by the signed-in user

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/markalston/artfolio-web/models"
	"github.com/spf13/cobra"
)

var (
	uploadTitle       string
	uploadDescription string
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload an image as a new artwork",
	Long: `Upload a JPEG, PNG, GIF or WebP image of at most 5MB as a new artwork.
The title defaults to the file name.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runCommand(func(ctx context.Context, w io.Writer) int {
			return runUpload(ctx, w, args[0], uploadTitle, uploadDescription)
		})
	},
}

func init() {
	uploadCmd.Flags().StringVar(&uploadTitle, "title", "", "Artwork title (default: file name)")
	uploadCmd.Flags().StringVar(&uploadDescription, "description", "", "Artwork description")
	rootCmd.AddCommand(uploadCmd)
}

// runUpload uploads path and returns the exit code
func runUpload(ctx context.Context, w io.Writer, path, title, description string) int {
	if title == "" {
		base := filepath.Base(path)
		title = strings.TrimSuffix(base, filepath.Ext(base))
	}
	c, err := newClient()
	if err != nil {
		return fail(w, err)
	}
	a, err := c.Upload(ctx, path, strings.TrimSpace(title), strings.TrimSpace(description))
	if err != nil {
		return fail(w, err)
	}

	if IsJSONOutput() {
		fmt.Fprintln(w, formatUploadJSON(a))
	} else {
		fmt.Fprintln(w, formatUploadHuman(a))
	}
	return exitOK
}

// formatUploadHuman formats the created artwork for human readability
func formatUploadHuman(a *models.Artwork) string {
	return fmt.Sprintf("Uploaded %q (id %s)\nImage: %s", a.Title, a.ID, a.ImageURL)
}

// formatUploadJSON formats the created artwork as JSON
func formatUploadJSON(a *models.Artwork) string {
	data, _ := json.MarshalIndent(a, "", "  ")
	return string(data)
}
