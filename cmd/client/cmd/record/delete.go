package record

import (
	"fmt"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <notes|people|todos> <id>",
	Aliases: []string{"rm"},
	Short:   "Delete a record",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		table, err := parseTable(args[0])
		if err != nil {
			return err
		}

		if err := app.Records().Delete(cmd.Context(), table, args[1]); err != nil {
			return fmt.Errorf("delete record: %w", err)
		}
		output.Success(cmd.OutOrStdout(), "Record %s deleted", args[1])
		return nil
	},
}
