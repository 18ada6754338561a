// ABOUTME: Entry point for the artfolio CLI
// ABOUTME: Terminal client for signing in, browsing the feed and uploading artworks

package main

import (
	"os"

	"github.com/markalston/artfolio-web/cli/cmd"
)

func main() {
	// Cobra already printed the error.
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
