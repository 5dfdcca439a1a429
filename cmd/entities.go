package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mailsync/internal/model"
)

var (
	entitiesEmail string
	entitiesLimit int
)

var entitiesCmd = &cobra.Command{
	Use:   "entities",
	Short: "List reconciled sender entities",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("store"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return err
		}

		if entitiesEmail != "" {
			entity, err := st.GetEntityByEmail(ctx, entitiesEmail)
			if err != nil {
				return eris.Wrap(err, "entities")
			}
			if entity == nil {
				fmt.Fprintf(os.Stderr, "No entity found for %s.\n", entitiesEmail)
				return nil
			}
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(entity)
		}

		entities, err := st.ListEntities(ctx, entitiesLimit)
		if err != nil {
			return eris.Wrap(err, "entities")
		}
		if len(entities) == 0 {
			fmt.Fprintln(os.Stderr, "No entities found.")
			return nil
		}

		formatEntityList(os.Stdout, entities)
		return nil
	},
}

func init() {
	entitiesCmd.Flags().StringVar(&entitiesEmail, "email", "", "show the single entity with this email")
	entitiesCmd.Flags().IntVar(&entitiesLimit, "limit", 50, "max number of entities to display")
	rootCmd.AddCommand(entitiesCmd)
}

// formatEntityList writes a tabular list of entities to w.
func formatEntityList(out io.Writer, entities []model.Entity) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tEMAIL\tNAME\tCOMPANY\tPHONE\tPOSITION\tCATEGORY")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t-------\t-----\t--------\t--------")

	for _, e := range entities {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(e.ID),
			e.Email,
			e.Name,
			e.Company,
			e.Phone,
			e.Position,
			truncateText(e.Category, 40),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// truncateText shortens a string to max runes for table display.
func truncateText(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
