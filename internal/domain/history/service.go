package history

import (
	"context"
	"fmt"

	"golang.org/x/exp/slog"
)

// Servicer is the history surface exposed to the CLI and the local API.
type Servicer interface {
	CreateVersion(ctx context.Context, noteID, content, description string) (*Version, error)
	ListVersions(ctx context.Context, noteID string) ([]*Version, error)
	GetVersion(ctx context.Context, noteID string, number int) (*Version, error)
	RestoreVersion(ctx context.Context, noteID string, number int) (*Version, error)
	DiffVersions(ctx context.Context, noteID string, from, to int) ([]DiffLine, error)
}

type Service struct {
	repo   Repository
	notes  NoteWriter
	author string
	log    *slog.Logger
}

func NewService(repo Repository, notes NoteWriter, author string, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		notes:  notes,
		author: author,
		log:    log.With("component", "history_service"),
	}
}

func (s *Service) CreateVersion(ctx context.Context, noteID, content, description string) (*Version, error) {
	if noteID == "" {
		return nil, ErrEmptyNoteID
	}
	v := &Version{
		NoteID:      noteID,
		Content:     content,
		Author:      s.author,
		Description: description,
	}
	if err := s.repo.AppendNoteVersion(ctx, v); err != nil {
		return nil, fmt.Errorf("append version of %s: %w", noteID, err)
	}
	s.log.Debug("note version created", "note_id", noteID, "version", v.Number)
	return v, nil
}

func (s *Service) ListVersions(ctx context.Context, noteID string) ([]*Version, error) {
	if noteID == "" {
		return nil, ErrEmptyNoteID
	}
	return s.repo.ListNoteVersions(ctx, noteID)
}

func (s *Service) GetVersion(ctx context.Context, noteID string, number int) (*Version, error) {
	return s.repo.GetNoteVersion(ctx, noteID, number)
}

// RestoreVersion points the live note at version number and then appends a
// copy of it. History itself is never rewritten, and a note that cannot be
// updated gets no restore entry.
func (s *Service) RestoreVersion(ctx context.Context, noteID string, number int) (*Version, error) {
	old, err := s.repo.GetNoteVersion(ctx, noteID, number)
	if err != nil {
		return nil, err
	}

	if err := s.notes.SetNoteContent(ctx, noteID, old.Content); err != nil {
		return nil, fmt.Errorf("update note %s: %w", noteID, err)
	}
	v, err := s.CreateVersion(ctx, noteID, old.Content, fmt.Sprintf("Restored from version %d", number))
	if err != nil {
		return nil, err
	}

	s.log.Info("note version restored", "note_id", noteID, "from", number, "new_version", v.Number)
	return v, nil
}

// DiffVersions diffs two stored versions of a note.
func (s *Service) DiffVersions(ctx context.Context, noteID string, from, to int) ([]DiffLine, error) {
	a, err := s.repo.GetNoteVersion(ctx, noteID, from)
	if err != nil {
		return nil, err
	}
	b, err := s.repo.GetNoteVersion(ctx, noteID, to)
	if err != nil {
		return nil, err
	}
	return GenerateDiff(a.Content, b.Content), nil
}
