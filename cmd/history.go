package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/mailsync/internal/model"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List processed mail history",
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

		records, err := st.ListMailRecords(ctx, historyLimit)
		if err != nil {
			return eris.Wrap(err, "history")
		}
		if len(records) == 0 {
			fmt.Fprintln(os.Stderr, "No mail records found.")
			return nil
		}

		formatHistoryList(os.Stdout, records)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "max number of records to display")
	rootCmd.AddCommand(historyCmd)
}

// formatHistoryList writes a tabular list of mail records to w.
func formatHistoryList(out io.Writer, records []model.MailRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tRECEIVED\tTITLE\tSUMMARY")
	_, _ = fmt.Fprintln(w, "--\t--------\t-----\t-------")

	for _, r := range records {
		received := ""
		if r.ReceivedDate != nil {
			received = r.ReceivedDate.Format("2006-01-02 15:04")
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			received,
			truncateText(r.Title, 30),
			truncateText(r.SummarizedContent, 60),
		)
	}
	_ = w.Flush()
}
