package application

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/example/meeting-calendar/internal/links"
	"github.com/example/meeting-calendar/internal/persistence"
	"github.com/example/meeting-calendar/internal/scheduler"
)

// memoryStore is a BookingStore whose transactions are serialized and applied
// to a copy of the state, so a failed transaction leaves nothing behind.
type memoryStore struct {
	*memoryState
	txMu sync.Mutex

	// injectConflicts makes the next n commits fail as if another writer won.
	injectConflicts int
	commits         int
}

type memoryState struct {
	sessions  map[string]scheduler.Session
	blackouts map[string]scheduler.Blackout
	links     map[string]links.Link
}

func newMemoryStore() *memoryStore {
	return &memoryStore{memoryState: &memoryState{
		sessions:  make(map[string]scheduler.Session),
		blackouts: make(map[string]scheduler.Blackout),
		links:     make(map[string]links.Link),
	}}
}

func (m *memoryStore) WithinTx(ctx context.Context, fn func(tx BookingTx) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	working := m.memoryState.clone()
	if err := fn(working); err != nil {
		return err
	}
	if m.injectConflicts > 0 {
		m.injectConflicts--
		return persistence.ErrVersionConflict
	}
	m.memoryState = working
	m.commits++
	return nil
}

func (s *memoryState) clone() *memoryState {
	out := &memoryState{
		sessions:  make(map[string]scheduler.Session, len(s.sessions)),
		blackouts: make(map[string]scheduler.Blackout, len(s.blackouts)),
		links:     make(map[string]links.Link, len(s.links)),
	}
	for k, v := range s.sessions {
		out.sessions[k] = v
	}
	for k, v := range s.blackouts {
		out.blackouts[k] = v
	}
	for k, v := range s.links {
		out.links[k] = v
	}
	return out
}

func (s *memoryState) GetSession(ctx context.Context, id string) (scheduler.Session, error) {
	session, ok := s.sessions[id]
	if !ok {
		return scheduler.Session{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *memoryState) GetSessionByLinkID(ctx context.Context, linkID string) (scheduler.Session, error) {
	for _, session := range s.sessions {
		if session.LinkID == linkID {
			return session, nil
		}
	}
	return scheduler.Session{}, persistence.ErrNotFound
}

func (s *memoryState) ListSessions(ctx context.Context, query SessionQuery) ([]scheduler.Session, error) {
	excluded := scheduler.IDSet(query.ExcludeIDs...)
	var out []scheduler.Session
	for _, session := range s.sessions {
		if _, skip := excluded[session.ID]; skip {
			continue
		}
		if query.OwnerID != "" && session.OwnerID != query.OwnerID {
			continue
		}
		if query.ExcludeCancelled && session.Cancelled() {
			continue
		}
		if w := query.Overlapping; w != nil && !session.Range().OverlapsWindow(w.Start, w.End) {
			continue
		}
		if w := query.StartsWithin; w != nil {
			start := session.Range().Start()
			if start.Before(w.Start) || !start.Before(w.End) {
				continue
			}
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range().Start().Before(out[j].Range().Start())
	})
	return out, nil
}

func (s *memoryState) GetBlackout(ctx context.Context, id string) (scheduler.Blackout, error) {
	blackout, ok := s.blackouts[id]
	if !ok {
		return scheduler.Blackout{}, persistence.ErrNotFound
	}
	return blackout, nil
}

func (s *memoryState) ListBlackouts(ctx context.Context, query BlackoutQuery) ([]scheduler.Blackout, error) {
	excluded := scheduler.IDSet(query.ExcludeIDs...)
	var out []scheduler.Blackout
	for _, blackout := range s.blackouts {
		if _, skip := excluded[blackout.ID]; skip {
			continue
		}
		if w := query.Overlapping; w != nil && !blackout.Range().OverlapsWindow(w.Start, w.End) {
			continue
		}
		out = append(out, blackout)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Range().Start().Before(out[j].Range().Start())
	})
	return out, nil
}

func (s *memoryState) GetLink(ctx context.Context, id string) (links.Link, error) {
	link, ok := s.links[id]
	if !ok {
		return links.Link{}, persistence.ErrNotFound
	}
	return link, nil
}

func (s *memoryState) GetLinkByIdentifier(ctx context.Context, identifier string) (links.Link, error) {
	for _, link := range s.links {
		if link.Identifier == identifier {
			return link, nil
		}
	}
	return links.Link{}, persistence.ErrNotFound
}

// overlapsActive mirrors the store level backstop on active sessions.
func (s *memoryState) overlapsActive(session scheduler.Session) bool {
	if session.Cancelled() {
		return false
	}
	for _, other := range s.sessions {
		if other.ID != session.ID && !other.Cancelled() && other.Range().Overlaps(session.Range()) {
			return true
		}
	}
	for _, blackout := range s.blackouts {
		if blackout.Range().Overlaps(session.Range()) {
			return true
		}
	}
	return false
}

func (s *memoryState) InsertSession(ctx context.Context, session scheduler.Session) error {
	if _, exists := s.sessions[session.ID]; exists {
		return persistence.ErrDuplicate
	}
	if s.overlapsActive(session) {
		return persistence.ErrOverlap
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *memoryState) UpdateSession(ctx context.Context, session scheduler.Session, expectedVersion int64) error {
	stored, ok := s.sessions[session.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return persistence.ErrVersionConflict
	}
	s.sessions[session.ID] = session
	return nil
}

func (s *memoryState) InsertBlackout(ctx context.Context, blackout scheduler.Blackout) error {
	if _, exists := s.blackouts[blackout.ID]; exists {
		return persistence.ErrDuplicate
	}
	for _, other := range s.blackouts {
		if other.Range().Overlaps(blackout.Range()) {
			return persistence.ErrOverlap
		}
	}
	s.blackouts[blackout.ID] = blackout
	return nil
}

func (s *memoryState) UpdateBlackout(ctx context.Context, blackout scheduler.Blackout, expectedVersion int64) error {
	stored, ok := s.blackouts[blackout.ID]
	if !ok {
		return persistence.ErrNotFound
	}
	if stored.Version != expectedVersion {
		return persistence.ErrVersionConflict
	}
	s.blackouts[blackout.ID] = blackout
	return nil
}

func (s *memoryState) DeleteBlackout(ctx context.Context, id string) error {
	if _, ok := s.blackouts[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.blackouts, id)
	return nil
}

func (s *memoryState) InsertLink(ctx context.Context, link links.Link) error {
	for _, other := range s.links {
		if other.Identifier == link.Identifier {
			return persistence.ErrDuplicate
		}
	}
	s.links[link.ID] = link
	return nil
}

func (s *memoryState) UpdateLink(ctx context.Context, link links.Link) error {
	if _, ok := s.links[link.ID]; !ok {
		return persistence.ErrNotFound
	}
	s.links[link.ID] = link
	return nil
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(now time.Time) *testClock { return &testClock{now: now} }

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, event DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return p.err
}

func (p *recordingPublisher) types() []EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]EventType, 0, len(p.events))
	for _, event := range p.events {
		out = append(out, event.Type)
	}
	return out
}
