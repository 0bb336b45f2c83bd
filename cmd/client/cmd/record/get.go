package record

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
)

var getCmd = &cobra.Command{
	Use:   "get <notes|people|todos> <id>",
	Short: "Show a record",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		table, err := parseTable(args[0])
		if err != nil {
			return err
		}

		rec, err := app.Records().Get(cmd.Context(), table, args[1])
		if err != nil {
			return fmt.Errorf("get record: %w", err)
		}

		return output.Print(cmd, rec, func(w io.Writer) {
			printRecord(w, rec)
		})
	},
}
