package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kosarica/price-service/internal/fetch"
	"github.com/kosarica/price-service/internal/normalize"
	"github.com/kosarica/price-service/internal/storage"
)

// parseCmd generalizes the teacher's chain-adapter `parse <file>` command:
// fetch a feed URL (or read it off disk with --local) and run it through
// the XML Normalizer (spec §4.2), reporting record/warning counts and a
// sample of the dropped rows instead of a chain-specific row dump.
var parseCmd = &cobra.Command{
	Use:     "parse <feedURL>",
	Short:   "Fetch and normalize a feed, reporting record and warning counts",
	Example: "  price-service parse https://merchant.example.com/feed.xml",
	Args:    cobra.ExactArgs(1),
	RunE:    runParse,
}

var parseLocal bool

func init() {
	rootCmd.AddCommand(parseCmd)
	parseCmd.Flags().BoolVar(&parseLocal, "local", false, "treat the argument as a local file path instead of a URL")
}

func runParse(cmd *cobra.Command, args []string) error {
	target := args[0]

	var body []byte
	if parseLocal {
		content, err := os.ReadFile(target)
		if err != nil {
			return fmt.Errorf("read %s: %w", target, err)
		}
		body = content
	} else {
		st, err := storage.NewLocalStorage(cfg.Storage.BasePath)
		if err != nil {
			return fmt.Errorf("init feed cache storage: %w", err)
		}
		fetcher := fetch.New(st, fetch.Config{CacheTTL: cfg.Fetch.CacheTTL, Timeout: cfg.Fetch.Timeout})
		fetched, _, err := fetcher.Get(cmd.Context(), target)
		if err != nil {
			return fmt.Errorf("fetch %s: %w", target, err)
		}
		body = fetched
	}

	records, warnings := normalize.Normalize(body)

	fmt.Printf("records:  %d\n", len(records))
	fmt.Printf("warnings: %d\n", len(warnings))

	if len(warnings) > 0 {
		fmt.Println("\nFirst warnings:")
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
		fmt.Fprintln(w, "INDEX\tTITLE\tREASON")
		for i, wn := range warnings {
			if i >= 10 {
				break
			}
			fmt.Fprintf(w, "%d\t%s\t%s\n", wn.Index, wn.Title, wn.Reason)
		}
		w.Flush()
		if len(warnings) > 10 {
			fmt.Printf("... and %d more\n", len(warnings)-10)
		}
	}

	return nil
}
