package upload

import (
	"sort"
	"sync"
)

// Session identifies one in-flight transfer. UploadID, PartSize and
// TotalParts are only set for multipart uploads.
type Session struct {
	FilePath   string
	BuildID    string
	ObjectKey  string
	UploadID   string
	PartSize   int64
	TotalParts int
}

// Multipart reports whether the session belongs to a multipart upload
func (s Session) Multipart() bool {
	return s.UploadID != ""
}

// registry tracks sessions past initiate, keyed by file path
type registry struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

func newRegistry() *registry {
	return &registry{sessions: make(map[string]Session)}
}

func (r *registry) add(s Session) {
	r.mu.Lock()
	r.sessions[s.FilePath] = s
	r.mu.Unlock()
}

func (r *registry) remove(filePath string) {
	r.mu.Lock()
	delete(r.sessions, filePath)
	r.mu.Unlock()
}

// take removes and returns the session for filePath. Only one caller gets it.
func (r *registry) take(filePath string) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[filePath]
	if ok {
		delete(r.sessions, filePath)
	}
	return s, ok
}

// snapshot returns the registered sessions ordered by file path
func (r *registry) snapshot() []Session {
	r.mu.RLock()
	sessions := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	r.mu.RUnlock()

	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].FilePath < sessions[j].FilePath
	})
	return sessions
}
