package chat

import "sync"

// Directory maps a user identity to its currently connected session.
// Last join wins: re-joining from a new connection supersedes the old
// binding, and the superseded connection's later disconnect must not evict
// the newer one. The reverse index makes unregister a direct delete instead
// of a scan over all entries.
type Directory struct {
	mu         sync.Mutex
	byIdentity map[string]*Session
	bySession  map[*Session]string
}

// NewDirectory creates an empty presence directory.
func NewDirectory() *Directory {
	return &Directory{
		byIdentity: make(map[string]*Session),
		bySession:  make(map[*Session]string),
	}
}

// Register binds identity to s, superseding any prior session bound to that
// identity. If s previously held a different identity, that binding is
// released first so no stale entry is left behind.
func (d *Directory) Register(identity string, s *Session) {
	if identity == "" || s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if old, ok := d.bySession[s]; ok && old != identity {
		if d.byIdentity[old] == s {
			delete(d.byIdentity, old)
		}
	}
	d.byIdentity[identity] = s
	d.bySession[s] = identity
}

// Resolve returns the session currently bound to identity. Absence is a
// normal outcome, not an error.
func (d *Directory) Resolve(identity string) (*Session, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s, ok := d.byIdentity[identity]
	return s, ok
}

// Unregister removes the binding owned by s, if s still owns it. A
// disconnect of an already-superseded session is a no-op.
func (d *Directory) Unregister(s *Session) {
	if s == nil {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	identity, ok := d.bySession[s]
	if !ok {
		return
	}
	delete(d.bySession, s)
	if d.byIdentity[identity] == s {
		delete(d.byIdentity, identity)
	}
}

// Online reports how many identities currently have a bound session.
func (d *Directory) Online() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.byIdentity)
}
