package record

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
)

var createPayload payloadFlags

var createCmd = &cobra.Command{
	Use:   "create <notes|people|todos>",
	Short: "Create a record",
	Long: `Create a record from per-field flags or a JSON payload.

Examples:
  notekeeper record create notes --title Plan --content "first draft"
  notekeeper record create people --name Ada --email ada@example.com
  notekeeper record create todos --data '{"title":"buy milk"}'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		table, err := parseTable(args[0])
		if err != nil {
			return err
		}

		payload, err := createPayload.build(table, cmd.InOrStdin())
		if err != nil {
			return err
		}

		rec, err := app.Records().Create(cmd.Context(), table, payload)
		if err != nil {
			return fmt.Errorf("create record: %w", err)
		}

		return output.Print(cmd, rec, func(w io.Writer) {
			output.Success(w, "Record created")
			printRecord(w, rec)
		})
	},
}

func init() {
	createPayload.register(createCmd)
}
