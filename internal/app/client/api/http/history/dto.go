package history

import "notekeeper/internal/domain/history"

type noteInput struct {
	NoteID string `path:"id" doc:"Local note id"`
}

type versionInput struct {
	NoteID  string `path:"id" doc:"Local note id"`
	Version int    `path:"version" minimum:"1" doc:"Version number"`
}

type createInput struct {
	NoteID string `path:"id" doc:"Local note id"`
	Body   createRequest
}

type createRequest struct {
	Content     string `json:"content" doc:"Note content to snapshot"`
	Description string `json:"description,omitempty" doc:"What changed"`
}

type versionOutput struct {
	Body *history.Version
}

type listOutput struct {
	Body []*history.Version
}

type diffInput struct {
	Body diffRequest
}

// diffRequest compares two stored versions when NoteID is set, otherwise the
// two texts.
type diffRequest struct {
	NoteID string `json:"note_id,omitempty" doc:"Diff stored versions of this note"`
	From   int    `json:"from,omitempty" doc:"Older version number"`
	To     int    `json:"to,omitempty" doc:"Newer version number"`
	Old    string `json:"old,omitempty" doc:"Old text when no note is given"`
	New    string `json:"new,omitempty" doc:"New text when no note is given"`
}

type diffOutput struct {
	Body diffResponse
}

type diffResponse struct {
	Lines   []history.DiffLine `json:"lines"`
	Added   int                `json:"added"`
	Removed int                `json:"removed"`
}
