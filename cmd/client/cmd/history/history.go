package history

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
	"notekeeper/internal/domain/history"
	"notekeeper/internal/domain/record"
)

var (
	description string
	oldFile     string
	newFile     string
)

// HistoryCmd groups the note version history commands.
var HistoryCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"versions"},
	Short:   "Browse, diff and restore note versions",
}

var listCmd = &cobra.Command{
	Use:   "list <note-id>",
	Short: "List the versions of a note, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		versions, err := app.History().ListVersions(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("list versions: %w", err)
		}
		if versions == nil {
			versions = []*history.Version{}
		}

		return output.Print(cmd, versions, func(w io.Writer) {
			if len(versions) == 0 {
				fmt.Fprintln(w, "No versions recorded")
				return
			}
			for _, v := range versions {
				fmt.Fprintf(w, "v%-4d %s  %-12s %s\n",
					v.Number, v.CreatedAt.Local().Format(time.DateTime), v.Author, v.Description)
			}
		})
	},
}

var showCmd = &cobra.Command{
	Use:   "show <note-id> <version>",
	Short: "Print the content of one version",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		number, err := parseVersion(args[1])
		if err != nil {
			return err
		}
		v, err := app.History().GetVersion(cmd.Context(), args[0], number)
		if err != nil {
			return fmt.Errorf("get version: %w", err)
		}

		return output.Print(cmd, v, func(w io.Writer) {
			output.Faint(w, "v%d by %s at %s", v.Number, v.Author, v.CreatedAt.Local().Format(time.DateTime))
			fmt.Fprintln(w, v.Content)
		})
	},
}

var snapshotCmd = &cobra.Command{
	Use:   "snapshot <note-id>",
	Short: "Record the current note content as a new version",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		rec, err := app.Records().Get(cmd.Context(), record.TableNotes, args[0])
		if err != nil {
			return fmt.Errorf("get note: %w", err)
		}
		note, err := record.Decode[record.Note](rec.Payload)
		if err != nil {
			return err
		}

		v, err := app.History().CreateVersion(cmd.Context(), args[0], note.Content, description)
		if err != nil {
			return fmt.Errorf("create version: %w", err)
		}
		return output.Print(cmd, v, func(w io.Writer) {
			output.Success(w, "Saved version %d", v.Number)
		})
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore <note-id> <version>",
	Short: "Restore a note to an earlier version",
	Long: `Restore writes the content of the chosen version back into the note and
records it as a new version. Existing versions are kept.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}
		number, err := parseVersion(args[1])
		if err != nil {
			return err
		}
		v, err := app.History().RestoreVersion(cmd.Context(), args[0], number)
		if err != nil {
			return fmt.Errorf("restore version: %w", err)
		}
		return output.Print(cmd, v, func(w io.Writer) {
			output.Success(w, "Restored version %d as version %d", number, v.Number)
		})
	},
}

var diffCmd = &cobra.Command{
	Use:   "diff [<note-id> <from> <to>]",
	Short: "Show a line diff between two versions or two files",
	Long: `Diff compares two stored versions of a note, or two files given with
--old and --new. Lines are compared by position.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if oldFile != "" || newFile != "" {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(3)(cmd, args)
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		var lines []history.DiffLine
		if len(args) == 3 {
			from, err := parseVersion(args[1])
			if err != nil {
				return err
			}
			to, err := parseVersion(args[2])
			if err != nil {
				return err
			}
			if lines, err = app.History().DiffVersions(cmd.Context(), args[0], from, to); err != nil {
				return fmt.Errorf("diff versions: %w", err)
			}
		} else {
			oldText, err := readText(oldFile)
			if err != nil {
				return err
			}
			newText, err := readText(newFile)
			if err != nil {
				return err
			}
			lines = history.GenerateDiff(oldText, newText)
		}
		if lines == nil {
			lines = []history.DiffLine{}
		}

		return output.Print(cmd, lines, func(w io.Writer) {
			printDiff(w, lines)
		})
	},
}

func printDiff(w io.Writer, lines []history.DiffLine) {
	if len(lines) == 0 {
		fmt.Fprintln(w, "No differences")
		return
	}
	added := color.New(color.FgGreen)
	removed := color.New(color.FgRed)
	for _, l := range lines {
		switch l.Type {
		case history.Added:
			added.Fprintf(w, "+%4d %s\n", l.Line, l.Content)
		case history.Removed:
			removed.Fprintf(w, "-%4d %s\n", l.Line, l.Content)
		}
	}
}

func readText(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(b), nil
}

func parseVersion(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("%w: %q", history.ErrVersionNotFound, s)
	}
	return n, nil
}

func init() {
	snapshotCmd.Flags().StringVarP(&description, "description", "d", "Manual snapshot", "version description")
	diffCmd.Flags().StringVar(&oldFile, "old", "", "old text file")
	diffCmd.Flags().StringVar(&newFile, "new", "", "new text file")

	HistoryCmd.AddCommand(listCmd)
	HistoryCmd.AddCommand(showCmd)
	HistoryCmd.AddCommand(snapshotCmd)
	HistoryCmd.AddCommand(restoreCmd)
	HistoryCmd.AddCommand(diffCmd)
}
