package presence

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/record"
	syncdomain "notekeeper/internal/domain/sync"
)

type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu   sync.Mutex
	sent [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case d := <-c.in:
		return d, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) frames() []Envelope {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Envelope, 0, len(c.sent))
	for _, d := range c.sent {
		var env Envelope
		_ = json.Unmarshal(d, &env)
		out = append(out, env)
	}
	return out
}

func (c *fakeConn) push(t *testing.T, msgType string, data any) {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(Envelope{Type: msgType, Data: raw})
	require.NoError(t, err)
	c.in <- frame
}

type fakeDialer struct {
	mu    sync.Mutex
	calls int
	urls  []string
	dial  func(n int) (Conn, error)
}

func (d *fakeDialer) Dial(_ context.Context, url string, _ http.Header) (Conn, error) {
	d.mu.Lock()
	d.calls++
	n := d.calls
	d.urls = append(d.urls, url)
	d.mu.Unlock()
	return d.dial(n)
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type MockSink struct {
	mock.Mock
}

func (m *MockSink) ReportConflict(ctx context.Context, table record.Table, recordID string, remote syncdomain.RemoteRecord, reason string) error {
	args := m.Called(ctx, table, recordID, remote, reason)
	return args.Error(0)
}

func testConfig() Config {
	return Config{
		URL:    "ws://collab.test/ws",
		UserID: "u1",
		Backoff: Backoff{
			Base:        time.Millisecond,
			Max:         5 * time.Millisecond,
			Multiplier:  2,
			MaxAttempts: 3,
		},
	}
}

func waitFor(t *testing.T, events <-chan Event, want EventType) Event {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed before %s", want)
			if ev.Type == want {
				return ev
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func waitState(t *testing.T, events <-chan Event, want State) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed before state %s", want)
			if ev.Type == EventStateChanged && ev.State == want {
				return
			}
		case <-timeout:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func TestNewSession(t *testing.T) {
	_, err := NewSession(testConfig(), "", &fakeDialer{}, nil, slog.Default())
	assert.ErrorIs(t, err, ErrEmptyNoteID)

	cfg := testConfig()
	cfg.Token = "secret"
	s, err := NewSession(cfg, "n1", &fakeDialer{}, nil, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, "ws://collab.test/ws?note_id=n1&user_id=u1", s.url)
	assert.Equal(t, "Bearer secret", s.header.Get("Authorization"))
	assert.Equal(t, StateDisconnected, s.State())
}

func TestSession_GivesUpAfterMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{dial: func(int) (Conn, error) { return nil, errors.New("refused") }}
	s, err := NewSession(testConfig(), "n1", dialer, nil, slog.Default())
	require.NoError(t, err)

	require.NoError(t, s.Connect(context.Background()))
	ev := waitFor(t, s.Events(), EventPersistentDisconnect)
	assert.EqualError(t, ev.Err, "refused")
	assert.Equal(t, "n1", ev.NoteID)

	<-s.Done()
	assert.Equal(t, 3, dialer.count())
	assert.Equal(t, StateDisconnected, s.State())

	_, open := <-s.Events()
	assert.False(t, open)
	assert.ErrorIs(t, s.Connect(context.Background()), ErrAlreadyStarted)
}

func TestSession_ReconnectsAfterDrop(t *testing.T) {
	first, second := newFakeConn(), newFakeConn()
	dialer := &fakeDialer{dial: func(n int) (Conn, error) {
		switch n {
		case 1:
			return first, nil
		case 2:
			return nil, errors.New("blip")
		default:
			return second, nil
		}
	}}
	s, err := NewSession(testConfig(), "n1", dialer, nil, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	waitState(t, s.Events(), StateConnected)
	first.Close()
	waitState(t, s.Events(), StateDisconnected)
	waitState(t, s.Events(), StateConnected)

	assert.Equal(t, 3, dialer.count())
	require.NoError(t, s.SendCursor(1, 2))
	assert.Len(t, second.frames(), 1)
	assert.Empty(t, first.frames())
}

func TestSession_DroppedConnectionsCountTowardsMaxAttempts(t *testing.T) {
	dialer := &fakeDialer{dial: func(int) (Conn, error) {
		conn := newFakeConn()
		_ = conn.Close()
		return conn, nil
	}}
	cfg := testConfig()
	cfg.Backoff.Base = 20 * time.Millisecond
	cfg.Backoff.Max = 100 * time.Millisecond
	s, err := NewSession(cfg, "n1", dialer, nil, slog.Default())
	require.NoError(t, err)

	start := time.Now()
	require.NoError(t, s.Connect(context.Background()))
	ev := waitFor(t, s.Events(), EventPersistentDisconnect)
	<-s.Done()

	assert.Error(t, ev.Err)
	assert.Equal(t, 3, dialer.count())
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond, "waits 20ms then 40ms between attempts")
}

func TestSession_StableConnectionResetsAttempts(t *testing.T) {
	live := newFakeConn()
	dialer := &fakeDialer{dial: func(n int) (Conn, error) {
		if n > 5 {
			return live, nil
		}
		conn := newFakeConn()
		_ = conn.Close()
		return conn, nil
	}}
	s, err := NewSession(testConfig(), "n1", dialer, nil, slog.Default())
	require.NoError(t, err)

	// Every reading is a minute after the previous one, so each connection
	// counts as stable no matter how quickly it drops.
	var ticks atomic.Int64
	base := time.Now()
	s.now = func() time.Time { return base.Add(time.Duration(ticks.Add(1)) * time.Minute) }

	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()

	require.Eventually(t, func() bool {
		return dialer.count() == 6 && s.State() == StateConnected
	}, 2*time.Second, 5*time.Millisecond)
}

func TestSession_SendRequiresConnection(t *testing.T) {
	s, err := NewSession(testConfig(), "n1", &fakeDialer{}, nil, slog.Default())
	require.NoError(t, err)

	assert.ErrorIs(t, s.SendCursor(1, 1), ErrNotConnected)
	assert.ErrorIs(t, s.SendContentChange("x", 1), ErrNotConnected)
}

func TestSession_Send(t *testing.T) {
	conn := newFakeConn()
	s, err := NewSession(testConfig(), "n1", &fakeDialer{dial: func(int) (Conn, error) { return conn, nil }}, nil, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()
	waitState(t, s.Events(), StateConnected)

	require.NoError(t, s.SendCursor(3, 7))
	require.NoError(t, s.SendContentChange("hello", 4))

	frames := conn.frames()
	require.Len(t, frames, 2)
	assert.Equal(t, MessageCursor, frames[0].Type)
	assert.JSONEq(t, `{"user_id":"u1","line":3,"column":7}`, string(frames[0].Data))
	assert.Equal(t, MessageContentChange, frames[1].Type)
	assert.JSONEq(t, `{"user_id":"u1","content":"hello","version":4}`, string(frames[1].Data))
}

func TestSession_Dispatch(t *testing.T) {
	conn := newFakeConn()
	sink := new(MockSink)
	remote := syncdomain.RemoteRecord{ID: "srv-1", Payload: json.RawMessage(`{"title":"theirs"}`), Version: 4}
	sink.On("ReportConflict", mock.Anything, record.TableNotes, "n1", mock.MatchedBy(func(r syncdomain.RemoteRecord) bool {
		return r.ID == "srv-1" && r.Version == 4
	}), "edited elsewhere").Return(nil).Once()

	s, err := NewSession(testConfig(), "n1", &fakeDialer{dial: func(int) (Conn, error) { return conn, nil }}, sink, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	defer s.Disconnect()
	waitState(t, s.Events(), StateConnected)

	conn.in <- []byte(`not json`)
	conn.push(t, "mystery", map[string]string{})
	conn.in <- []byte(`{"type":"cursor","data":"oops"}`)

	conn.push(t, MessageUserJoined, Participant{UserID: "u2", Name: "Grace"})
	ev := waitFor(t, s.Events(), EventUserJoined)
	assert.Equal(t, "Grace", ev.Participant.Name)

	conn.push(t, MessageCursor, Cursor{UserID: "u2", Line: 4, Column: 1})
	ev = waitFor(t, s.Events(), EventCursor)
	assert.Equal(t, 4, ev.Cursor.Line)

	conn.push(t, MessageContentChange, ContentChange{UserID: "u2", Content: "abc"})
	ev = waitFor(t, s.Events(), EventContentChange)
	assert.Equal(t, "abc", ev.Change.Content)

	conn.push(t, MessageConflictDetected, ConflictNotice{Remote: remote, Reason: "edited elsewhere"})
	ev = waitFor(t, s.Events(), EventConflictDetected)
	assert.Equal(t, record.TableNotes, ev.Conflict.Table)
	assert.Equal(t, "n1", ev.Conflict.RecordID)

	conn.push(t, MessageUserLeft, Participant{UserID: "u2"})
	ev = waitFor(t, s.Events(), EventUserLeft)
	assert.Equal(t, "u2", ev.Participant.UserID)

	sink.AssertExpectations(t)
}

func TestSession_DisconnectStopsReconnecting(t *testing.T) {
	conn := newFakeConn()
	dialer := &fakeDialer{dial: func(int) (Conn, error) { return conn, nil }}
	s, err := NewSession(testConfig(), "n1", dialer, nil, slog.Default())
	require.NoError(t, err)
	require.NoError(t, s.Connect(context.Background()))
	waitState(t, s.Events(), StateConnected)

	s.Disconnect()

	select {
	case <-s.Done():
	default:
		t.Fatal("loop still running after Disconnect")
	}
	assert.Equal(t, StateDisconnected, s.State())
	assert.Equal(t, 1, dialer.count())
	assert.ErrorIs(t, s.SendCursor(0, 0), ErrNotConnected)

	s.Disconnect()
}

func TestService_OpenReusesLiveSession(t *testing.T) {
	dialer := &fakeDialer{dial: func(int) (Conn, error) { return newFakeConn(), nil }}
	svc := NewService(testConfig(), dialer, nil, slog.Default())

	ctx, cancel := context.WithCancel(context.Background())
	a, err := svc.Open(ctx, "n1")
	require.NoError(t, err)
	cancel()

	b, err := svc.Open(context.Background(), "n1")
	require.NoError(t, err)
	assert.Same(t, a, b)

	waitState(t, a.Events(), StateConnected)
	assert.Equal(t, StateConnected, a.State())

	_, err = svc.Open(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyNoteID)

	svc.CloseAll()
	<-a.Done()
	_, ok := svc.Session("n1")
	assert.False(t, ok)
}
