/*
	Copyright NetFoundry Inc.

	Licensed under the Apache License, Version 2.0 (the "License");
	you may not use this file except in compliance with the License.
	You may obtain a copy of the License at

	https://www.apache.org/licenses/LICENSE-2.0

	Unless required by applicable law or agreed to in writing, software
	distributed under the License is distributed on an "AS IS" BASIS,
	WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
	See the License for the specific language governing permissions and
	limitations under the License.
*/

package xmapper

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/text/language"
)

const (
	DefaultMaxSessions        = 10000
	DefaultSessionIdleTimeout = 30 * time.Minute
)

// Session is the per client state mappers may touch. The only state mapping needs is the locale.
type Session interface {
	ID() string
	Locale() language.Tag
	SetLocale(locale language.Tag)
}

// MemorySession is a Session held in process memory.
type MemorySession struct {
	id     string
	lock   sync.RWMutex
	locale language.Tag
}

var _ Session = &MemorySession{}

// NewMemorySession creates a session with an undetermined locale. An empty id is replaced by a random one.
func NewMemorySession(id string) *MemorySession {
	if id == "" {
		id = uuid.NewString()
	}
	return &MemorySession{id: id, locale: language.Und}
}

func (s *MemorySession) ID() string {
	return s.id
}

func (s *MemorySession) Locale() language.Tag {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.locale
}

func (s *MemorySession) SetLocale(locale language.Tag) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.locale = locale
}

// SessionStore hands out sessions by id.
type SessionStore interface {
	// Get returns the session for id, creating a new one (with a new id) when id is unknown.
	Get(id string) Session
}

// MemorySessionStore is an in-memory SessionStore. It holds at most a fixed number of sessions, evicting the least
// recently used one when full, and forgets sessions idle for longer than the idle timeout. DefaultLocale is applied
// to new sessions.
type MemorySessionStore struct {
	DefaultLocale language.Tag

	lock     sync.Mutex
	sessions *expirable.LRU[string, Session]
}

var _ SessionStore = &MemorySessionStore{}

// NewMemorySessionStore creates a store bounded by DefaultMaxSessions and DefaultSessionIdleTimeout.
func NewMemorySessionStore(defaultLocale language.Tag) *MemorySessionStore {
	return NewBoundedMemorySessionStore(defaultLocale, DefaultMaxSessions, DefaultSessionIdleTimeout)
}

// NewBoundedMemorySessionStore creates a store holding at most maxSessions sessions, each expiring after idleTimeout
// without being used. A non positive idleTimeout disables expiry.
func NewBoundedMemorySessionStore(defaultLocale language.Tag, maxSessions int, idleTimeout time.Duration) *MemorySessionStore {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}
	if idleTimeout < 0 {
		idleTimeout = 0
	}

	return &MemorySessionStore{
		DefaultLocale: defaultLocale,
		sessions:      expirable.NewLRU[string, Session](maxSessions, nil, idleTimeout),
	}
}

func (store *MemorySessionStore) Get(id string) Session {
	store.lock.Lock()
	defer store.lock.Unlock()

	if id != "" {
		if session, ok := store.sessions.Get(id); ok {
			// re-adding restarts the idle timeout
			store.sessions.Add(id, session)
			return session
		}
	}

	session := NewMemorySession("")
	session.SetLocale(store.DefaultLocale)
	store.sessions.Add(session.ID(), session)
	return session
}

// Len returns the number of sessions held.
func (store *MemorySessionStore) Len() int {
	return store.sessions.Len()
}
