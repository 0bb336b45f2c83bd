package collab

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/app/client"
	"notekeeper/internal/domain/presence"
)

var CollabCmd = &cobra.Command{
	Use:   "collab",
	Short: "Real-time collaboration on notes",
}

var watchCmd = &cobra.Command{
	Use:   "watch <note-id>",
	Short: "Join a note's collaboration session and print activity",
	Long: `Watch connects to the collaboration server for a note and prints who
joins and leaves, cursor moves, content changes and conflicts until
interrupted. Dropped connections are retried with backoff.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := client.FromContext(cmd.Context())
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sess, err := app.Presence().Open(ctx, args[0])
		if err != nil {
			return fmt.Errorf("join note %s: %w", args[0], err)
		}
		defer app.Presence().Close(args[0])

		return watch(ctx, cmd, sess)
	},
}

func watch(ctx context.Context, cmd *cobra.Command, sess *presence.Session) error {
	w := cmd.OutOrStdout()
	asJSON := output.JSON(cmd)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-sess.Done():
			return fmt.Errorf("collaboration session for %s ended", sess.NoteID())
		case ev, ok := <-sess.Events():
			if !ok {
				return fmt.Errorf("collaboration session for %s ended", sess.NoteID())
			}
			if asJSON {
				if err := output.WriteJSON(w, eventView(ev)); err != nil {
					return err
				}
				continue
			}
			printEvent(w, ev)
			if ev.Type == presence.EventPersistentDisconnect {
				return fmt.Errorf("gave up reconnecting: %w", ev.Err)
			}
		}
	}
}

type event struct {
	Type        presence.EventType       `json:"type"`
	NoteID      string                   `json:"note_id"`
	At          time.Time                `json:"at"`
	State       presence.State           `json:"state,omitempty"`
	Participant *presence.Participant    `json:"participant,omitempty"`
	Cursor      *presence.Cursor         `json:"cursor,omitempty"`
	Change      *presence.ContentChange  `json:"change,omitempty"`
	Conflict    *presence.ConflictNotice `json:"conflict,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

func eventView(ev presence.Event) event {
	v := event{
		Type:        ev.Type,
		NoteID:      ev.NoteID,
		At:          ev.At,
		State:       ev.State,
		Participant: ev.Participant,
		Cursor:      ev.Cursor,
		Change:      ev.Change,
		Conflict:    ev.Conflict,
	}
	if ev.Err != nil {
		v.Error = ev.Err.Error()
	}
	return v
}

func printEvent(w io.Writer, ev presence.Event) {
	at := ev.At.Local().Format(time.TimeOnly)
	switch ev.Type {
	case presence.EventStateChanged:
		output.Faint(w, "%s connection %s", at, ev.State)
	case presence.EventUserJoined:
		output.Success(w, "%s %s joined", at, ev.Participant.UserID)
	case presence.EventUserLeft:
		output.Faint(w, "%s %s left", at, ev.Participant.UserID)
	case presence.EventCursor:
		fmt.Fprintf(w, "%s %s at %d:%d\n", at, ev.Cursor.UserID, ev.Cursor.Line, ev.Cursor.Column)
	case presence.EventContentChange:
		fmt.Fprintf(w, "%s %s edited the note (%d chars)\n", at, ev.Change.UserID, len(ev.Change.Content))
	case presence.EventConflictDetected:
		output.Warn(w, "%s conflict on %s/%s, run 'notekeeper sync --conflicts'", at, ev.Conflict.Table, ev.Conflict.RecordID)
	case presence.EventPersistentDisconnect:
		output.Fail(w, "%s disconnected: %v", at, ev.Err)
	}
}

func init() {
	CollabCmd.AddCommand(watchCmd)
}
