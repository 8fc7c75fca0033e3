package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"ballotbox/contexts/identity-access/access-guard/domain/entities"
	"ballotbox/contexts/identity-access/access-guard/ports"
)

// Store decides every increment under one mutex, which makes
// IncrementAttempt and ConsumeCode atomic for in-process callers.
type Store struct {
	mu      sync.Mutex
	windows map[string]entities.AttemptWindow
	codes   map[string]entities.VerificationCode

	clockMu sync.RWMutex
	offset  time.Duration
}

func NewStore() *Store {
	return &Store{
		windows: make(map[string]entities.AttemptWindow),
		codes:   make(map[string]entities.VerificationCode),
	}
}

// Advance moves the store clock forward.
func (s *Store) Advance(d time.Duration) {
	s.clockMu.Lock()
	defer s.clockMu.Unlock()
	s.offset += d
}

func (s *Store) Now() time.Time {
	s.clockMu.RLock()
	defer s.clockMu.RUnlock()
	return time.Now().UTC().Add(s.offset)
}

func (s *Store) IncrementAttempt(_ context.Context, subjectKey string, now time.Time, window time.Duration) (entities.AttemptWindow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subjectKey = strings.TrimSpace(subjectKey)
	current, ok := s.windows[subjectKey]
	if !ok {
		current = entities.AttemptWindow{SubjectKey: subjectKey}
	}
	next := current.Next(now, window)
	s.windows[subjectKey] = next
	return next, nil
}

func (s *Store) GetAttemptWindow(_ context.Context, subjectKey string) (entities.AttemptWindow, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	window, ok := s.windows[strings.TrimSpace(subjectKey)]
	return window, ok, nil
}

func (s *Store) DeleteLapsedWindows(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, window := range s.windows {
		if limit > 0 && deleted >= limit {
			break
		}
		if !window.ActiveAt(now) {
			delete(s.windows, key)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) PutCode(_ context.Context, code entities.VerificationCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	code.SubjectKey = strings.TrimSpace(code.SubjectKey)
	s.codes[code.SubjectKey] = code
	return nil
}

func (s *Store) GetCode(_ context.Context, subjectKey string) (entities.VerificationCode, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	code, ok := s.codes[strings.TrimSpace(subjectKey)]
	return code, ok, nil
}

func (s *Store) ConsumeCode(_ context.Context, subjectKey string, codeHash string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	subjectKey = strings.TrimSpace(subjectKey)
	code, ok := s.codes[subjectKey]
	if !ok || code.CodeHash != codeHash || code.ExpiredAt(now) {
		return false, nil
	}
	delete(s.codes, subjectKey)
	return true, nil
}

func (s *Store) DeleteExpiredCodes(_ context.Context, now time.Time, limit int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, code := range s.codes {
		if limit > 0 && deleted >= limit {
			break
		}
		if code.ExpiredAt(now) {
			delete(s.codes, key)
			deleted++
		}
	}
	return deleted, nil
}

var _ ports.AttemptStore = (*Store)(nil)
var _ ports.CodeStore = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
