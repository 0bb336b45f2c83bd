package sync

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
	"notekeeper/internal/domain/record"
	syncdomain "notekeeper/internal/domain/sync"
)

var (
	strategy   string
	mergedJSON string
	mergedFile string
)

var ConflictCmd = &cobra.Command{
	Use:   "conflict",
	Short: "Resolve or dismiss sync conflicts",
}

var listConflictsCmd = &cobra.Command{
	Use:   "list",
	Short: "List unresolved conflicts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		return listConflicts(cmd, app)
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <conflict-id>",
	Short: "Resolve a conflict",
	Long: `Resolves a conflict with one of three strategies:

  keep_local   push the local version over the server copy
  keep_remote  replace the local record with the server copy
  merge        push a merged payload given with --payload or --file`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		st, err := syncdomain.ParseStrategy(strategy)
		if err != nil {
			return fmt.Errorf("%w: %q", err, strategy)
		}
		res := syncdomain.Resolution{Strategy: st}
		if st == syncdomain.Merge {
			if res.Merged, err = readMerged(); err != nil {
				return err
			}
		}

		rec, err := app.Sync().ResolveConflict(cmd.Context(), args[0], res)
		if err != nil {
			var ce *syncdomain.ConflictError
			if errors.As(err, &ce) {
				return errors.New("the server changed again while resolving, run sync and resolve the new conflict")
			}
			return fmt.Errorf("resolve conflict: %w", err)
		}

		return output.Print(cmd, rec, func(w io.Writer) {
			output.Success(w, "Conflict %s resolved with %s", args[0], st)
			printRecordLine(w, rec)
		})
	},
}

var dismissCmd = &cobra.Command{
	Use:   "dismiss <conflict-id>",
	Short: "Close a conflict without resolving it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		if err := app.Sync().DismissConflict(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("dismiss conflict: %w", err)
		}
		output.Success(cmd.OutOrStdout(), "Conflict %s dismissed", args[0])
		return nil
	},
}

func readMerged() (json.RawMessage, error) {
	raw := []byte(mergedJSON)
	if mergedFile != "" {
		var err error
		if raw, err = os.ReadFile(mergedFile); err != nil {
			return nil, fmt.Errorf("read merged payload: %w", err)
		}
	}
	if len(raw) == 0 {
		return nil, syncdomain.ErrMergePayloadRequired
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: merged payload is not JSON", record.ErrInvalidPayload)
	}
	return raw, nil
}

func printRecordLine(w io.Writer, rec *record.Record) {
	output.Field(w, "Record", fmt.Sprintf("%s/%s", rec.Table, rec.ID))
	output.Field(w, "Status", rec.Status)
	output.Field(w, "Version", rec.Version)
}

func init() {
	resolveCmd.Flags().StringVarP(&strategy, "strategy", "s", string(syncdomain.KeepLocal), "keep_local, keep_remote or merge")
	resolveCmd.Flags().StringVarP(&mergedJSON, "payload", "p", "", "merged payload as JSON")
	resolveCmd.Flags().StringVarP(&mergedFile, "file", "f", "", "read the merged payload from a file")

	ConflictCmd.AddCommand(listConflictsCmd)
	ConflictCmd.AddCommand(resolveCmd)
	ConflictCmd.AddCommand(dismissCmd)
}
