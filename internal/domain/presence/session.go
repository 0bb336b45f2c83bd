package presence

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"golang.org/x/exp/slog"

	"notekeeper/internal/domain/record"
	syncdomain "notekeeper/internal/domain/sync"
)

// ConflictSink receives conflicts announced by collaborators.
type ConflictSink interface {
	ReportConflict(ctx context.Context, table record.Table, recordID string, remote syncdomain.RemoteRecord, reason string) error
}

type handlerFunc func(ctx context.Context, data json.RawMessage) (Event, error)

// Session is the live channel for one open note. A Session is single use:
// after Disconnect or a persistent disconnect, open a new one.
type Session struct {
	noteID  string
	userID  string
	url     string
	header  http.Header
	dialer  Dialer
	sink    ConflictSink
	backoff Backoff
	log     *slog.Logger
	now     func() time.Time

	handlers map[string]handlerFunc
	events   chan Event
	done     chan struct{}

	mu      sync.Mutex
	state   State
	conn    Conn
	cancel  context.CancelFunc
	started bool
}

func NewSession(cfg Config, noteID string, dialer Dialer, sink ConflictSink, log *slog.Logger) (*Session, error) {
	if noteID == "" {
		return nil, ErrEmptyNoteID
	}
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse presence url: %w", err)
	}
	q := u.Query()
	q.Set("note_id", noteID)
	if cfg.UserID != "" {
		q.Set("user_id", cfg.UserID)
	}
	u.RawQuery = q.Encode()

	header := http.Header{}
	if cfg.Token != "" {
		header.Set("Authorization", "Bearer "+cfg.Token)
	}
	buf := cfg.EventBuffer
	if buf <= 0 {
		buf = 64
	}

	s := &Session{
		noteID:  noteID,
		userID:  cfg.UserID,
		url:     u.String(),
		header:  header,
		dialer:  dialer,
		sink:    sink,
		backoff: cfg.Backoff.normalize(),
		log:     log.With("component", "presence_session", "note_id", noteID),
		now:     time.Now,
		events:  make(chan Event, buf),
		done:    make(chan struct{}),
		state:   StateDisconnected,
	}
	s.handlers = map[string]handlerFunc{
		MessageUserJoined:       s.onUserJoined,
		MessageUserLeft:         s.onUserLeft,
		MessageCursor:           s.onCursor,
		MessageContentChange:    s.onContentChange,
		MessageConflictDetected: s.onConflict,
	}
	return s, nil
}

func (s *Session) NoteID() string { return s.noteID }

// Events is closed once the session stops for good.
func (s *Session) Events() <-chan Event { return s.events }

// Done is closed when the reconnect loop has exited.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Connect starts the connect/reconnect loop in the background.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return ErrAlreadyStarted
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx)
	return nil
}

// Disconnect stops reconnecting, closes the connection and waits for the
// loop to exit.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	if s.conn != nil {
		_ = s.conn.Close()
	}
	s.mu.Unlock()
	<-s.done
}

func (s *Session) SendCursor(line, column int) error {
	return s.send(MessageCursor, Cursor{UserID: s.userID, Line: line, Column: column})
}

func (s *Session) SendContentChange(content string, version int64) error {
	return s.send(MessageContentChange, ContentChange{UserID: s.userID, Content: content, Version: version})
}

func (s *Session) send(msgType string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", msgType, err)
	}
	frame, err := json.Marshal(Envelope{Type: msgType, Data: data})
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}

	s.mu.Lock()
	conn, state := s.conn, s.state
	s.mu.Unlock()
	if state != StateConnected || conn == nil {
		return ErrNotConnected
	}
	if err := conn.WriteMessage(frame); err != nil {
		return fmt.Errorf("send %s: %w", msgType, err)
	}
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)
	defer close(s.events)

	failures := 0
	for {
		s.setState(StateConnecting)
		conn, err := s.dialer.Dial(ctx, s.url, s.header)
		if err != nil {
			if ctx.Err() != nil {
				s.setState(StateDisconnected)
				return
			}
			s.log.Warn("presence dial failed", "attempt", failures+1, "error", err)
		} else {
			if !s.attach(ctx, conn) {
				s.setState(StateDisconnected)
				return
			}
			s.log.Info("presence connected")

			connectedAt := s.now()
			err = s.readLoop(ctx, conn)
			s.detach(conn)
			if ctx.Err() != nil {
				return
			}
			if s.now().Sub(connectedAt) >= s.backoff.StableAfter {
				failures = 0
			}
			s.log.Warn("presence connection lost", "error", err)
		}

		failures++
		if failures >= s.backoff.MaxAttempts {
			s.setState(StateDisconnected)
			s.log.Error("presence giving up", "attempts", failures)
			s.emit(Event{Type: EventPersistentDisconnect, State: StateDisconnected, Err: err})
			return
		}
		if !sleep(ctx, s.backoff.Delay(failures)) {
			s.setState(StateDisconnected)
			return
		}
	}
}

// attach publishes conn unless the session was cancelled while dialing.
func (s *Session) attach(ctx context.Context, conn Conn) bool {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		_ = conn.Close()
		return false
	}
	s.conn = conn
	s.state = StateConnected
	s.mu.Unlock()
	s.emit(Event{Type: EventStateChanged, State: StateConnected})
	return true
}

func (s *Session) detach(conn Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	_ = conn.Close()
	s.setState(StateDisconnected)
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	changed := s.state != st
	s.state = st
	s.mu.Unlock()
	if changed {
		s.emit(Event{Type: EventStateChanged, State: st})
	}
}

// emit never blocks the read loop.
func (s *Session) emit(ev Event) {
	ev.NoteID = s.noteID
	ev.At = s.now()
	select {
	case s.events <- ev:
	default:
		s.log.Warn("presence event dropped", "type", ev.Type)
	}
}

func (s *Session) readLoop(ctx context.Context, conn Conn) error {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		if err := s.dispatch(ctx, data); err != nil {
			s.log.Debug("presence message ignored", "error", err)
		}
	}
}

func (s *Session) dispatch(ctx context.Context, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	h, ok := s.handlers[env.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, env.Type)
	}
	ev, err := h(ctx, env.Data)
	if err != nil {
		return fmt.Errorf("%s: %w", env.Type, err)
	}
	s.emit(ev)
	return nil
}

func (s *Session) onUserJoined(_ context.Context, data json.RawMessage) (Event, error) {
	var p Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, err
	}
	return Event{Type: EventUserJoined, Participant: &p}, nil
}

func (s *Session) onUserLeft(_ context.Context, data json.RawMessage) (Event, error) {
	var p Participant
	if err := json.Unmarshal(data, &p); err != nil {
		return Event{}, err
	}
	return Event{Type: EventUserLeft, Participant: &p}, nil
}

func (s *Session) onCursor(_ context.Context, data json.RawMessage) (Event, error) {
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Event{}, err
	}
	return Event{Type: EventCursor, Cursor: &c}, nil
}

func (s *Session) onContentChange(_ context.Context, data json.RawMessage) (Event, error) {
	var c ContentChange
	if err := json.Unmarshal(data, &c); err != nil {
		return Event{}, err
	}
	return Event{Type: EventContentChange, Change: &c}, nil
}

// onConflict hands the conflict to the sync engine instead of resolving it.
func (s *Session) onConflict(ctx context.Context, data json.RawMessage) (Event, error) {
	var n ConflictNotice
	if err := json.Unmarshal(data, &n); err != nil {
		return Event{}, err
	}
	if n.Table == "" {
		n.Table = record.TableNotes
	}
	if _, err := record.ParseTable(string(n.Table)); err != nil {
		return Event{}, err
	}
	if n.RecordID == "" {
		n.RecordID = s.noteID
	}

	if s.sink != nil {
		if err := s.sink.ReportConflict(ctx, n.Table, n.RecordID, n.Remote, n.Reason); err != nil {
			s.log.Error("report conflict", "record_id", n.RecordID, "error", err)
		}
	}
	return Event{Type: EventConflictDetected, Conflict: &n}, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
