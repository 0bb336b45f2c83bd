package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/record"
)

type MockService struct {
	mock.Mock
}

func (m *MockService) Get(ctx context.Context, table record.Table, id string) (*record.Record, error) {
	args := m.Called(ctx, table, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) List(ctx context.Context, table record.Table, status *record.Status) ([]*record.Record, error) {
	args := m.Called(ctx, table, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*record.Record), args.Error(1)
}

func (m *MockService) Create(ctx context.Context, table record.Table, payload json.RawMessage) (*record.Record, error) {
	args := m.Called(ctx, table, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) Update(ctx context.Context, table record.Table, id string, payload json.RawMessage) (*record.Record, error) {
	args := m.Called(ctx, table, id, payload)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*record.Record), args.Error(1)
}

func (m *MockService) Delete(ctx context.Context, table record.Table, id string) error {
	return m.Called(ctx, table, id).Error(0)
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se huma.StatusError
	require.True(t, errors.As(err, &se))
	return se.GetStatus()
}

func TestHandler_list(t *testing.T) {
	pending := record.StatusPending

	t.Run("status filter", func(t *testing.T) {
		svc := new(MockService)
		svc.On("List", mock.Anything, record.TableTodos, &pending).
			Return([]*record.Record{{ID: "t1", Table: record.TableTodos, Status: pending}}, nil)
		h := NewHandler(svc, slog.Default(), nil)

		out, err := h.list(context.Background(), &tableInput{Table: "todos", Status: "pending"})
		require.NoError(t, err)
		require.Len(t, out.Body, 1)
		assert.Equal(t, "t1", out.Body[0].ID)
	})

	t.Run("no filter, no records", func(t *testing.T) {
		svc := new(MockService)
		svc.On("List", mock.Anything, record.TableNotes, (*record.Status)(nil)).Return(nil, nil)
		h := NewHandler(svc, slog.Default(), nil)

		out, err := h.list(context.Background(), &tableInput{Table: "notes"})
		require.NoError(t, err)
		assert.NotNil(t, out.Body)
	})

	t.Run("unknown table", func(t *testing.T) {
		h := NewHandler(new(MockService), slog.Default(), nil)

		_, err := h.list(context.Background(), &tableInput{Table: "cards"})
		assert.Equal(t, http.StatusUnprocessableEntity, statusOf(t, err))
	})
}

func TestHandler_create(t *testing.T) {
	payload := json.RawMessage(`{"name":"Ada"}`)

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "created"},
		{name: "invalid payload", err: fmt.Errorf("%w: person name is required", record.ErrInvalidPayload), wantStatus: http.StatusUnprocessableEntity},
		{name: "store failure", err: errors.New("disk full"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			svc := new(MockService)
			if tt.err != nil {
				svc.On("Create", mock.Anything, record.TablePeople, payload).Return(nil, tt.err)
			} else {
				svc.On("Create", mock.Anything, record.TablePeople, payload).
					Return(&record.Record{ID: "p1", Table: record.TablePeople, Payload: payload, Status: record.StatusPending}, nil)
			}
			h := NewHandler(svc, slog.Default(), nil)

			out, err := h.create(context.Background(), &createInput{Table: "people", Body: request{Payload: payload}})

			if tt.wantStatus != 0 {
				assert.Equal(t, tt.wantStatus, statusOf(t, err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "p1", out.Body.ID)
		})
	}
}

func TestHandler_updateAndDelete(t *testing.T) {
	svc := new(MockService)
	svc.On("Update", mock.Anything, record.TableNotes, "missing", mock.Anything).Return(nil, record.ErrNotFound)
	svc.On("Delete", mock.Anything, record.TableNotes, "n1").Return(nil)
	h := NewHandler(svc, slog.Default(), nil)
	ctx := context.Background()

	_, err := h.update(ctx, &updateInput{Table: "notes", ID: "missing", Body: request{Payload: json.RawMessage(`{"title":"x"}`)}})
	assert.Equal(t, http.StatusNotFound, statusOf(t, err))

	_, err = h.delete(ctx, &idInput{Table: "notes", ID: "n1"})
	assert.NoError(t, err)
	svc.AssertExpectations(t)
}

func TestHandler_Routes(t *testing.T) {
	_, api := humatest.New(t)

	svc := new(MockService)
	svc.On("Create", mock.Anything, record.TableTodos, mock.Anything).
		Return(&record.Record{ID: "t1", Table: record.TableTodos, Status: record.StatusPending}, nil)
	svc.On("Get", mock.Anything, record.TableTodos, "t1").
		Return(&record.Record{ID: "t1", Table: record.TableTodos, Status: record.StatusPending}, nil)
	svc.On("Delete", mock.Anything, record.TableTodos, "t1").Return(nil)
	NewHandler(svc, slog.Default(), nil).SetupRoutes(api)

	resp := api.Post("/api/v1/records/todos", map[string]any{"payload": map[string]any{"title": "buy milk"}})
	assert.Equal(t, http.StatusCreated, resp.Code)

	resp = api.Get("/api/v1/records/todos/t1")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `"sync_status":"pending"`)

	resp = api.Delete("/api/v1/records/todos/t1")
	assert.Equal(t, http.StatusNoContent, resp.Code)

	resp = api.Get("/api/v1/records/cards")
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)

	svc.AssertExpectations(t)
}
