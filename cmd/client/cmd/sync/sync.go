package sync

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
	syncdomain "notekeeper/internal/domain/sync"
)

const maxShownErrors = 3

var (
	syncStatus    bool
	showConflicts bool
	resetCache    bool
	assumeYes     bool
	discardSeq    int64
)

var SyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Synchronize the local cache with the server",
	Long: `Runs one sync pass: pulls remote changes, pushes pending records and
replays the offline queue in order.

With --status, --conflicts, --reset or --discard-failed it inspects or
maintains the sync state instead.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		switch {
		case syncStatus:
			return showSyncStatus(cmd, app)
		case showConflicts:
			return listConflicts(cmd, app)
		case resetCache:
			return resetSync(cmd, app)
		case discardSeq > 0:
			if err := app.Sync().DiscardFailed(cmd.Context(), discardSeq); err != nil {
				return fmt.Errorf("discard failed operation: %w", err)
			}
			output.Success(cmd.OutOrStdout(), "Failed operation %d discarded", discardSeq)
			return nil
		}

		return runSync(cmd, app)
	},
}

func runSync(cmd *cobra.Command, app *client.App) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	text := !output.JSON(cmd)

	if text {
		output.Header(w, "Sync")
		fmt.Fprintln(w, "Checking server connection...")
	}
	if !app.Connectivity().Check(ctx) {
		return fmt.Errorf("server %s is unreachable, changes stay queued", app.Config().ServerURL())
	}

	result, err := app.Sync().SyncAll(ctx)
	if err != nil {
		if errors.Is(err, syncdomain.ErrSyncInProgress) {
			return errors.New("another sync pass is running")
		}
		return fmt.Errorf("sync: %w", err)
	}

	return output.Print(cmd, result, func(w io.Writer) {
		printResult(w, result)
	})
}

func printResult(w io.Writer, result *syncdomain.Result) {
	fmt.Fprintln(w)
	if result.Success {
		output.Success(w, "Sync completed")
	} else {
		output.Warn(w, "Sync completed with errors")
	}
	output.Field(w, "Duration", result.Duration.Round(time.Millisecond))
	output.Field(w, "Synced", result.Synced)
	output.Field(w, "Failed", result.Failed)

	if result.Conflicts > 0 {
		output.Field(w, "Conflicts", result.Conflicts)
		output.Faint(w, "  Run 'notekeeper sync --conflicts' to review them")
	}

	for i, msg := range result.Errors {
		if i == maxShownErrors {
			output.Faint(w, "  ... and %d more", len(result.Errors)-maxShownErrors)
			break
		}
		output.Fail(w, "%s", msg)
	}
}

func showSyncStatus(cmd *cobra.Command, app *client.App) error {
	ctx := cmd.Context()
	online := app.Connectivity().Check(ctx)

	status, err := app.Sync().Status(ctx)
	if err != nil {
		return fmt.Errorf("sync status: %w", err)
	}

	type statusView struct {
		*syncdomain.Status
		Online   bool          `json:"online"`
		AutoSync bool          `json:"auto_sync"`
		Interval time.Duration `json:"interval"`
	}
	view := statusView{
		Status:   status,
		Online:   online,
		AutoSync: app.AutoSync().Enabled(),
		Interval: app.AutoSync().Interval(),
	}

	return output.Print(cmd, view, func(w io.Writer) {
		output.Header(w, "Sync status")
		output.Field(w, "State", status.State)
		if status.LastSync.IsZero() {
			output.Field(w, "Last sync", "never")
		} else {
			output.Field(w, "Last sync", status.LastSync.Local().Format(time.DateTime))
		}
		output.Field(w, "Conflicts", len(status.Conflicts))
		output.Field(w, "Failed operations", len(status.FailedOperations))
		output.Field(w, "Auto-sync", fmt.Sprintf("%v (every %v)", view.AutoSync, view.Interval))

		fmt.Fprintln(w)
		for _, meta := range status.Tables {
			output.Field(w, string(meta.Table), fmt.Sprintf("%d records, %d pending", meta.TotalRecords, meta.PendingChanges))
		}

		for _, item := range status.FailedOperations {
			output.Fail(w, "#%d %s %s/%s after %d attempts", item.Seq, item.Operation, item.Table, item.RecordID, item.RetryCount)
		}

		fmt.Fprintln(w)
		if online {
			output.Success(w, "Server %s reachable", app.Config().ServerURL())
		} else {
			output.Fail(w, "Server %s unreachable", app.Config().ServerURL())
		}
	})
}

func resetSync(cmd *cobra.Command, app *client.App) error {
	if !assumeYes {
		if !output.IsTerminal(os.Stdin) {
			return errors.New("--reset discards unsynced changes, pass --yes to confirm")
		}
		fmt.Fprint(cmd.OutOrStdout(), "This discards every unsynced change. Type 'yes' to continue: ")
		var answer string
		_, _ = fmt.Fscanln(cmd.InOrStdin(), &answer)
		if answer != "yes" {
			return errors.New("reset aborted")
		}
	}
	if err := app.Sync().Reset(cmd.Context()); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	output.Success(cmd.OutOrStdout(), "Local cache cleared, the next sync starts from scratch")
	return nil
}

func listConflicts(cmd *cobra.Command, app *client.App) error {
	conflicts, err := app.Sync().Conflicts(cmd.Context())
	if err != nil {
		return fmt.Errorf("list conflicts: %w", err)
	}
	if conflicts == nil {
		conflicts = []*syncdomain.Conflict{}
	}

	return output.Print(cmd, conflicts, func(w io.Writer) {
		printConflicts(w, conflicts)
	})
}

func printConflicts(w io.Writer, conflicts []*syncdomain.Conflict) {
	if len(conflicts) == 0 {
		output.Success(w, "No unresolved conflicts")
		return
	}
	output.Header(w, "Conflicts (%d)", len(conflicts))
	for _, c := range conflicts {
		fmt.Fprintln(w)
		output.Field(w, "ID", c.ID)
		output.Field(w, "Record", fmt.Sprintf("%s/%s", c.Table, c.Local.ID))
		output.Field(w, "Reason", c.Reason)
		output.Field(w, "Detected", c.DetectedAt.Local().Format(time.DateTime))
		output.Field(w, "Local", string(c.Local.Payload))
		output.Field(w, "Remote", string(c.Remote.Payload))
	}
	fmt.Fprintln(w)
	output.Faint(w, "Resolve with 'notekeeper conflict resolve <id> --strategy keep_local|keep_remote|merge'")
}

func init() {
	SyncCmd.Flags().BoolVar(&syncStatus, "status", false, "show sync status")
	SyncCmd.Flags().BoolVar(&showConflicts, "conflicts", false, "list unresolved conflicts")
	SyncCmd.Flags().BoolVar(&resetCache, "reset", false, "clear the local cache, queue and sync tokens")
	SyncCmd.Flags().BoolVarP(&assumeYes, "yes", "y", false, "do not ask for confirmation")
	SyncCmd.Flags().Int64Var(&discardSeq, "discard-failed", 0, "drop a failed queue operation by sequence number")
}
