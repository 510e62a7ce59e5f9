// Package stats holds session counters shared between the protocol driver
// and the UI, synchronised the same way the device info is: a mutex held
// only while copying fields, never across I/O.
package stats

import "sync"

// SessionStats accumulates counters over one flashing session.
type SessionStats struct {
	mu sync.RWMutex

	BytesRead    uint64
	BytesWritten uint64
	FramesSent   uint64
	Retries      uint64
	LastError    string
}

// SessionStatsSnapshot is a copy of SessionStats without its mutex, safe to
// hand to callers that shouldn't see internal synchronisation state.
type SessionStatsSnapshot struct {
	BytesRead    uint64
	BytesWritten uint64
	FramesSent   uint64
	Retries      uint64
	LastError    string
}

func (s *SessionStats) AddBytesRead(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BytesRead += n
}

func (s *SessionStats) AddBytesWritten(n uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.BytesWritten += n
}

func (s *SessionStats) IncFramesSent() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FramesSent++
}

func (s *SessionStats) IncRetries() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Retries++
}

func (s *SessionStats) SetLastError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		s.LastError = ""
		return
	}
	s.LastError = err.Error()
}

// Snapshot copies the current counters out from under the lock.
func (s *SessionStats) Snapshot() SessionStatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return SessionStatsSnapshot{
		BytesRead:    s.BytesRead,
		BytesWritten: s.BytesWritten,
		FramesSent:   s.FramesSent,
		Retries:      s.Retries,
		LastError:    s.LastError,
	}
}
