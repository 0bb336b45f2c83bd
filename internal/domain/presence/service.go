package presence

import (
	"context"
	"sync"

	"golang.org/x/exp/slog"
)

// Service keeps one Session per open note.
type Service struct {
	cfg    Config
	dialer Dialer
	sink   ConflictSink
	log    *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewService(cfg Config, dialer Dialer, sink ConflictSink, log *slog.Logger) *Service {
	return &Service{
		cfg:      cfg,
		dialer:   dialer,
		sink:     sink,
		log:      log.With("component", "presence_service"),
		sessions: make(map[string]*Session),
	}
}

// Open returns the live session for noteID, starting a new one when there is
// none or the previous one gave up. The session outlives ctx's cancellation;
// stop it with Close.
func (s *Service) Open(ctx context.Context, noteID string) (*Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[noteID]; ok {
		select {
		case <-sess.Done():
		default:
			return sess, nil
		}
	}

	sess, err := NewSession(s.cfg, noteID, s.dialer, s.sink, s.log)
	if err != nil {
		return nil, err
	}
	if err := sess.Connect(context.WithoutCancel(ctx)); err != nil {
		return nil, err
	}
	s.sessions[noteID] = sess
	s.log.Debug("presence session opened", "note_id", noteID)
	return sess, nil
}

func (s *Service) Session(noteID string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[noteID]
	return sess, ok
}

func (s *Service) Close(noteID string) {
	s.mu.Lock()
	sess, ok := s.sessions[noteID]
	delete(s.sessions, noteID)
	s.mu.Unlock()
	if ok {
		sess.Disconnect()
	}
}

func (s *Service) CloseAll() {
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*Session)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, sess := range sessions {
		sess := sess
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Disconnect()
		}()
	}
	wg.Wait()
}
