// ABOUTME: Runs the in-memory fake backend for local development
// ABOUTME: Seeds a demo account and a few pages of artworks so the feed has something to load

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/markalston/artfolio-web/logger"
	"github.com/markalston/artfolio-web/mockapi"
)

func main() {
	logger.Init("mock-backend")

	addr := ":8000"
	if len(os.Args) > 1 {
		addr = os.Args[1]
	}
	accessTTL := 30 * time.Minute
	if len(os.Args) > 2 {
		d, err := time.ParseDuration(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Usage: %s [addr] [access-token-ttl]\n", os.Args[0])
			os.Exit(1)
		}
		accessTTL = d
	}

	b := mockapi.New(mockapi.WithAccessTTL(accessTTL))
	b.AddUser("demo", "demo@example.com", "demo123")
	b.AddUser("mira", "mira@example.com", "mira123")
	b.SeedArtworks("demo", 30)
	b.SeedArtworks("mira", 15)

	slog.Info("Mock backend listening",
		"addr", addr,
		"api", "http://localhost"+addr+mockapi.Prefix,
		"access_ttl", accessTTL,
		"login", "demo@example.com / demo123",
	)
	if err := http.ListenAndServe(addr, b); err != nil {
		slog.Error("Mock backend failed", "error", err)
		os.Exit(1)
	}
}
