package record

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
	"notekeeper/internal/domain/record"
)

var listStatus string

var listCmd = &cobra.Command{
	Use:   "list <notes|people|todos>",
	Short: "List records of a table",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		table, err := parseTable(args[0])
		if err != nil {
			return err
		}

		var status *record.Status
		if listStatus != "" {
			st := record.Status(listStatus)
			switch st {
			case record.StatusPending, record.StatusSynced, record.StatusConflict:
			default:
				return fmt.Errorf("unknown status %q (want pending, synced or conflict)", listStatus)
			}
			status = &st
		}

		records, err := app.Records().List(cmd.Context(), table, status)
		if err != nil {
			return fmt.Errorf("list records: %w", err)
		}
		if records == nil {
			records = []*record.Record{}
		}

		return output.Print(cmd, records, func(w io.Writer) {
			printRecordsTable(w, records)
		})
	},
}

func printRecordsTable(out io.Writer, records []*record.Record) {
	if len(records) == 0 {
		fmt.Fprintln(out, "No records found")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "ID\tTitle\tStatus\tVersion\tModified\t\n")
	fmt.Fprintf(w, "---\t---\t---\t---\t---\t\n")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t\n",
			rec.ID,
			truncate(title(rec), 30),
			rec.Status,
			rec.Version,
			rec.LastModifiedLocally.Local().Format(time.DateTime),
		)
	}
	_ = w.Flush()
	fmt.Fprintf(out, "\nTotal: %d\n", len(records))
}

func init() {
	listCmd.Flags().StringVar(&listStatus, "status", "", "filter by sync status (pending, synced, conflict)")
}
