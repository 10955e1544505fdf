package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hitoshi/storefront/internal/model"
)

func newListCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved designs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.setup(cmd); err != nil {
				return err
			}
			ctx, cancel := st.withTimeout(cmd)
			defer cancel()

			s := st.synchronizer()
			if err := s.Load(ctx, st.userID); err != nil {
				return writeCommandError(cmd, err)
			}
			return writeEntries(cmd, st.jsonOut, s.Entries())
		},
	}
}

func newSaveCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "save <productId>",
		Short: "Save a catalog design",
		Long:  "Save a catalog design. Saving a product that is already saved returns the existing entry.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.setup(cmd); err != nil {
				return err
			}
			ctx, cancel := st.withTimeout(cmd)
			defer cancel()

			// 1. カタログから保存対象のスナップショットを取得
			designs, err := st.backend.ListDesigns(ctx)
			if err != nil {
				return writeCommandError(cmd, fmt.Errorf("failed to load catalog: %w", err))
			}
			item, ok := findDesign(designs, args[0])
			if !ok {
				return writeCommandError(cmd, fmt.Errorf("design not found: %s", args[0]))
			}

			// 2. 保存して手元の一覧に反映
			s := st.synchronizer()
			if err := s.Load(ctx, st.userID); err != nil {
				return writeCommandError(cmd, err)
			}
			entryID, err := s.Save(ctx, st.userID, item)
			if err != nil {
				return writeCommandError(cmd, err)
			}
			s.AddOptimistic(item, entryID)

			if st.jsonOut {
				return writeJSON(cmd.OutOrStdout(), map[string]string{
					"id":        entryID,
					"productId": item.ProductID,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "saved %s as %s\n", item.ProductID, entryID)
			return nil
		},
	}
}

func newRemoveCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Remove a saved design by entry id",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.setup(cmd); err != nil {
				return err
			}
			ctx, cancel := st.withTimeout(cmd)
			defer cancel()

			entryID := args[0]
			s := st.synchronizer()
			if err := s.Load(ctx, st.userID); err != nil {
				return writeCommandError(cmd, err)
			}
			if !containsEntry(s.Entries(), entryID) {
				fmt.Fprintf(cmd.OutOrStdout(), "not saved: %s\n", entryID)
				return nil
			}

			if err := s.Remove(ctx, st.userID, entryID); err != nil {
				return writeCommandError(cmd, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", entryID)
			return nil
		},
	}
}

func newDesignsCmd(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "designs",
		Short: "List catalog designs that can be saved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := st.setup(cmd); err != nil {
				return err
			}
			ctx, cancel := st.withTimeout(cmd)
			defer cancel()

			designs, err := st.backend.ListDesigns(ctx)
			if err != nil {
				return writeCommandError(cmd, fmt.Errorf("failed to load catalog: %w", err))
			}
			return writeDesigns(cmd, st.jsonOut, designs)
		},
	}
}

func findDesign(designs []model.CatalogItem, productID string) (model.CatalogItem, bool) {
	for _, d := range designs {
		if d.ProductID == productID {
			return d, true
		}
	}
	return model.CatalogItem{}, false
}

func containsEntry(entries []model.SavedEntry, entryID string) bool {
	for _, e := range entries {
		if e.ID == entryID {
			return true
		}
	}
	return false
}
