package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kosarica/price-service/internal/fetch"
	"github.com/kosarica/price-service/internal/storage"
)

// discoverCmd generalizes the teacher's adapter-Discover step (scanning a
// chain's site for filenames) to this repo's single-feed-URL model (spec
// §4.1): fetch the URL through the same cache-aware Fetcher the scheduler
// uses, and report where the bytes came from.
var discoverCmd = &cobra.Command{
	Use:     "discover <feedURL>",
	Short:   "Fetch a feed URL through the cache and report its size/source",
	Example: "  price-service discover https://merchant.example.com/feed.xml",
	Args:    cobra.ExactArgs(1),
	RunE:    runDiscover,
}

func init() {
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, args []string) error {
	feedURL := args[0]

	st, err := storage.NewLocalStorage(cfg.Storage.BasePath)
	if err != nil {
		return fmt.Errorf("init feed cache storage: %w", err)
	}
	fetcher := fetch.New(st, fetch.Config{CacheTTL: cfg.Fetch.CacheTTL, Timeout: cfg.Fetch.Timeout})

	body, source, err := fetcher.Get(cmd.Context(), feedURL)
	if err != nil {
		return fmt.Errorf("fetch %s: %w", feedURL, err)
	}

	fmt.Printf("url:    %s\n", feedURL)
	fmt.Printf("source: %s\n", source)
	fmt.Printf("bytes:  %d\n", len(body))
	return nil
}
