package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/sheetvault/sheetvault/client"
)

// printResult renders a value according to the global format flag.
func printResult(v any) error {
	switch flagFmt {
	case "table":
		return printTable(v)
	default:
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// printTable renders the common list shapes as columns; everything else
// falls back to JSON.
func printTable(v any) error {
	page, ok := v.(*client.VersionPage)
	if !ok {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SEQ\tID\tAUTHOR\tCREATED\tCHANGES")
	for _, rec := range page.Items {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\n",
			rec.Version.SequenceNumber,
			rec.Version.ID,
			rec.Version.AuthorID,
			rec.Version.CreatedAt.Format("2006-01-02 15:04:05"),
			len(rec.Changes),
		)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("page %d/%d, %d total\n",
		page.Pagination.CurrentPage, page.Pagination.TotalPages, page.Pagination.TotalItems)
	return nil
}
