package record

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
	"notekeeper/internal/domain/record"
)

var updatePayload payloadFlags

var updateCmd = &cobra.Command{
	Use:   "update <notes|people|todos> <id>",
	Short: "Replace the payload of a record",
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

		payload, err := updatePayload.build(table, cmd.InOrStdin())
		if err != nil {
			return err
		}

		rec, err := app.Records().Update(cmd.Context(), table, args[1], payload)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}

		return output.Print(cmd, rec, func(w io.Writer) {
			output.Success(w, "Record updated")
			if rec.Status == record.StatusConflict {
				output.Warn(w, "The record is in conflict; resolve it to publish this edit")
			}
			printRecord(w, rec)
		})
	},
}

func init() {
	updatePayload.register(updateCmd)
}
