package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/hitoshi/storefront/internal/model"
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeEntries(cmd *cobra.Command, jsonOut bool, entries []model.SavedEntry) error {
	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), map[string][]model.SavedEntry{"savedDesigns": entries})
	}
	if len(entries) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "no saved designs")
		return nil
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPRODUCT\tNAME\tPRICE\tSAVED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			e.ID, e.ProductID, e.Item.Name, e.Item.Price, e.SavedAt.UTC().Format(time.RFC3339))
	}
	return tw.Flush()
}

func writeDesigns(cmd *cobra.Command, jsonOut bool, designs []model.CatalogItem) error {
	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), map[string][]model.CatalogItem{"designs": designs})
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tNAME\tPRICE\tCATEGORIES")
	for _, d := range designs {
		categories := make([]string, len(d.Categories))
		for i, c := range d.Categories {
			categories[i] = string(c)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.ProductID, d.Name, d.Price, strings.Join(categories, ","))
	}
	return tw.Flush()
}
