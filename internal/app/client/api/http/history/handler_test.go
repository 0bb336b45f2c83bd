package history

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/history"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) CreateVersion(ctx context.Context, noteID, content, description string) (*history.Version, error) {
	args := m.Called(ctx, noteID, content, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Version), args.Error(1)
}

func (m *MockService) ListVersions(ctx context.Context, noteID string) ([]*history.Version, error) {
	args := m.Called(ctx, noteID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*history.Version), args.Error(1)
}

func (m *MockService) GetVersion(ctx context.Context, noteID string, number int) (*history.Version, error) {
	args := m.Called(ctx, noteID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Version), args.Error(1)
}

func (m *MockService) RestoreVersion(ctx context.Context, noteID string, number int) (*history.Version, error) {
	args := m.Called(ctx, noteID, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*history.Version), args.Error(1)
}

func (m *MockService) DiffVersions(ctx context.Context, noteID string, from, to int) ([]history.DiffLine, error) {
	args := m.Called(ctx, noteID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]history.DiffLine), args.Error(1)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se))
	return se.GetStatus()
}

func TestHandler_list(t *testing.T) {
	svc := new(MockService)
	svc.On("ListVersions", mock.Anything, "n1").Return(nil, nil)
	h := NewHandler(svc, slog.Default(), nil)

	out, err := h.list(context.Background(), &noteInput{NoteID: "n1"})
	require.NoError(t, err)
	assert.NotNil(t, out.Body)
	assert.Empty(t, out.Body)
}

func TestHandler_restore(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		v := &history.Version{NoteID: "n1", Number: 4, Content: "old", Description: "Restored from version 2"}
		svc := new(MockService)
		svc.On("RestoreVersion", mock.Anything, "n1", 2).Return(v, nil)
		h := NewHandler(svc, slog.Default(), nil)

		out, err := h.restore(context.Background(), &versionInput{NoteID: "n1", Version: 2})
		require.NoError(t, err)
		assert.Equal(t, 4, out.Body.Number)
	})

	t.Run("unknown version", func(t *testing.T) {
		svc := new(MockService)
		svc.On("RestoreVersion", mock.Anything, "n1", 9).Return(nil, history.ErrVersionNotFound)
		h := NewHandler(svc, slog.Default(), nil)

		_, err := h.restore(context.Background(), &versionInput{NoteID: "n1", Version: 9})
		assert.Equal(t, http.StatusNotFound, statusOf(t, err))
	})
}

func TestHandler_diff(t *testing.T) {
	tests := []struct {
		name        string
		req         diffRequest
		setup       func(*MockService)
		wantAdded   int
		wantRemoved int
		wantStatus  int
	}{
		{
			name:        "raw texts",
			req:         diffRequest{Old: "a\nb", New: "a\nc\nd"},
			wantAdded:   2,
			wantRemoved: 1,
		},
		{
			name:      "identical texts",
			req:       diffRequest{Old: "same", New: "same"},
			wantAdded: 0,
		},
		{
			name: "stored versions",
			req:  diffRequest{NoteID: "n1", From: 1, To: 2},
			setup: func(m *MockService) {
				m.On("DiffVersions", mock.Anything, "n1", 1, 2).Return([]history.DiffLine{
					{Type: history.Removed, Line: 1, Content: "x"},
					{Type: history.Added, Line: 1, Content: "y"},
				}, nil)
			},
			wantAdded:   1,
			wantRemoved: 1,
		},
		{
			name:       "note without range",
			req:        diffRequest{NoteID: "n1"},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name: "missing version",
			req:  diffRequest{NoteID: "n1", From: 1, To: 5},
			setup: func(m *MockService) {
				m.On("DiffVersions", mock.Anything, "n1", 1, 5).Return(nil, history.ErrVersionNotFound)
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.setup != nil {
				tt.setup(svc)
			}
			h := NewHandler(svc, slog.Default(), nil)

			out, err := h.diff(context.Background(), &diffInput{Body: tt.req})

			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, out.Body.Lines)
			assert.Equal(t, tt.wantAdded, out.Body.Added)
			assert.Equal(t, tt.wantRemoved, out.Body.Removed)
		})
	}
}

func TestHandler_Routes(t *testing.T) {
	_, api := humatest.New(t)

	svc := new(MockService)
	svc.On("CreateVersion", mock.Anything, "n1", "hello", "manual").
		Return(&history.Version{NoteID: "n1", Number: 1, Content: "hello"}, nil)
	svc.On("GetVersion", mock.Anything, "n1", 1).
		Return(&history.Version{NoteID: "n1", Number: 1, Content: "hello"}, nil)
	NewHandler(svc, slog.Default(), nil).SetupRoutes(api)

	resp := api.Post("/api/v1/notes/n1/versions", map[string]any{"content": "hello", "description": "manual"})
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = api.Get("/api/v1/notes/n1/versions/1")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"content":"hello"`)

	resp = api.Get("/api/v1/notes/n1/versions/0")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code, "version numbers start at 1")

	svc.AssertExpectations(t)
}
