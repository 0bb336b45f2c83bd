package record

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"notekeeper/cmd/client/cmd/output"
	"notekeeper/internal/domain/record"
)

// RecordCmd is the parent of every record command.
var RecordCmd = &cobra.Command{
	Use:   "record",
	Short: "Manage notes, people and todos",
	Long: `Create, inspect, edit and delete records in the local cache.

Every write succeeds locally. While the server is unreachable the change is
queued and replayed on the next sync.`,
}

// payloadFlags collects a record payload either as raw JSON (--data, --file)
// or from per-field flags.
type payloadFlags struct {
	data string
	file string

	title   string
	content string
	tags    []string
	name    string
	email   string
	phone   string
	company string
	notes   string
	done    bool
	due     string
	noteID  string
}

func (p *payloadFlags) register(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVar(&p.data, "data", "", "payload as JSON")
	fs.StringVar(&p.file, "file", "", "read the JSON payload from a file, - for stdin")

	fs.StringVar(&p.title, "title", "", "note or todo title")
	fs.StringVar(&p.content, "content", "", "note content")
	fs.StringSliceVar(&p.tags, "tag", nil, "note tag, repeatable")
	fs.StringVar(&p.name, "name", "", "person name")
	fs.StringVar(&p.email, "email", "", "person email")
	fs.StringVar(&p.phone, "phone", "", "person phone")
	fs.StringVar(&p.company, "company", "", "person company")
	fs.StringVar(&p.notes, "notes", "", "free-form notes about a person")
	fs.BoolVar(&p.done, "done", false, "mark a todo as done")
	fs.StringVar(&p.due, "due", "", "todo due date, RFC 3339 or YYYY-MM-DD")
	fs.StringVar(&p.noteID, "note", "", "id of the note a todo belongs to")
}

func (p *payloadFlags) build(table record.Table, in io.Reader) (json.RawMessage, error) {
	switch {
	case p.file == "-":
		return readJSON(in)
	case p.file != "":
		f, err := os.Open(p.file)
		if err != nil {
			return nil, fmt.Errorf("open payload: %w", err)
		}
		defer f.Close()
		return readJSON(f)
	case p.data != "":
		return readJSON(strings.NewReader(p.data))
	}

	switch table {
	case record.TableNotes:
		return record.Encode(record.Note{Title: p.title, Content: p.content, Tags: p.tags})
	case record.TablePeople:
		return record.Encode(record.Person{Name: p.name, Email: p.email, Phone: p.phone, Company: p.company, Notes: p.notes})
	case record.TableTodos:
		todo := record.Todo{Title: p.title, Done: p.done, NoteID: p.noteID}
		if p.due != "" {
			due, err := parseDue(p.due)
			if err != nil {
				return nil, err
			}
			todo.DueAt = &due
		}
		return record.Encode(todo)
	}
	return nil, fmt.Errorf("%w: %q", record.ErrUnknownTable, table)
}

func readJSON(r io.Reader) (json.RawMessage, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read payload: %w", err)
	}
	if !json.Valid(raw) {
		return nil, fmt.Errorf("%w: not valid JSON", record.ErrInvalidPayload)
	}
	return raw, nil
}

func parseDue(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(time.DateOnly, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: due date %q", record.ErrInvalidPayload, s)
	}
	return t.UTC(), nil
}

// title picks a human label out of a payload.
func title(rec *record.Record) string {
	var fields struct {
		Title string `json:"title"`
		Name  string `json:"name"`
	}
	_ = json.Unmarshal(rec.Payload, &fields)
	switch {
	case fields.Title != "":
		return fields.Title
	case fields.Name != "":
		return fields.Name
	}
	return "(untitled)"
}

func truncate(s string, length int) string {
	r := []rune(s)
	if len(r) <= length {
		return s
	}
	return string(r[:length-3]) + "..."
}

func printRecord(w io.Writer, rec *record.Record) {
	output.Field(w, "ID", rec.ID)
	serverID := "-"
	if rec.ServerID != nil {
		serverID = *rec.ServerID
	}
	output.Field(w, "Server ID", serverID)
	output.Field(w, "Table", rec.Table)
	output.Field(w, "Status", rec.Status)
	output.Field(w, "Version", rec.Version)
	output.Field(w, "Modified", rec.LastModifiedLocally.Local().Format(time.DateTime))

	var pretty any
	if err := json.Unmarshal(rec.Payload, &pretty); err == nil {
		fmt.Fprintln(w)
		_ = output.WriteJSON(w, pretty)
	}
}

func parseTable(arg string) (record.Table, error) {
	return record.ParseTable(strings.ToLower(arg))
}

func init() {
	RecordCmd.AddCommand(createCmd)
	RecordCmd.AddCommand(getCmd)
	RecordCmd.AddCommand(listCmd)
	RecordCmd.AddCommand(updateCmd)
	RecordCmd.AddCommand(deleteCmd)
}
