package history

import "context"

// Repository stores the append-only version log.
type Repository interface {
	// AppendNoteVersion assigns v the next number for its note and stores it.
	AppendNoteVersion(ctx context.Context, v *Version) error
	// ListNoteVersions returns versions newest first.
	ListNoteVersions(ctx context.Context, noteID string) ([]*Version, error)
	GetNoteVersion(ctx context.Context, noteID string, number int) (*Version, error)
}

// NoteWriter updates the live note after a restore.
type NoteWriter interface {
	SetNoteContent(ctx context.Context, noteID, content string) error
}
