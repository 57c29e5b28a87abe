// Package memory is an in-process document store with the same atomicity rules as the
// Firestore adapters: every write either applies in full or not at all.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	adapterrepo "campusmart/internal/adapter/repository"
	"campusmart/internal/domain/entity"
)

type Store struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	messages      map[string]map[string]*entity.Message
	listings      map[string]*entity.Listing
	users         map[string]*entity.User

	clock    func() time.Time
	last     time.Time
	failNext error
	writes   int

	hookMu  sync.RWMutex
	hookSeq int
	hooks   []messageHook
}

type messageHook struct {
	id int
	fn func(entity.MessageChange)
}

func NewStore() *Store {
	return &Store{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string]map[string]*entity.Message),
		listings:      make(map[string]*entity.Listing),
		users:         make(map[string]*entity.User),
		clock:         time.Now,
	}
}

// SetClock replaces the time source. Timestamps stay strictly increasing regardless.
func (s *Store) SetClock(clock func() time.Time) {
	s.mu.Lock()
	s.clock = clock
	s.mu.Unlock()
}

// FailNextWrite makes the next write return err without applying anything.
func (s *Store) FailNextWrite(err error) {
	s.mu.Lock()
	s.failNext = err
	s.mu.Unlock()
}

// Writes reports how many writes have been committed.
func (s *Store) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// OnMessageUpdate registers fn to run after every committed change to an existing
// message. fn runs outside the store lock. The returned func unregisters it.
func (s *Store) OnMessageUpdate(fn func(entity.MessageChange)) func() {
	s.hookMu.Lock()
	s.hookSeq++
	id := s.hookSeq
	s.hooks = append(s.hooks, messageHook{id: id, fn: fn})
	s.hookMu.Unlock()

	return func() {
		s.hookMu.Lock()
		defer s.hookMu.Unlock()
		for i, h := range s.hooks {
			if h.id == id {
				s.hooks = append(s.hooks[:i:i], s.hooks[i+1:]...)
				return
			}
		}
	}
}

// PutListing seeds or replaces a listing.
func (s *Store) PutListing(l *entity.Listing) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *l
	s.listings[l.ID] = &cp
}

// PutUser seeds or replaces a user.
func (s *Store) PutUser(u *entity.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = cloneUser(u)
}

// tick returns a strictly increasing timestamp. Callers hold s.mu.
func (s *Store) tick() time.Time {
	now := s.clock().UTC()
	if !now.After(s.last) {
		now = s.last.Add(time.Microsecond)
	}
	s.last = now
	return now
}

// begin consumes an injected failure. Callers hold s.mu and call it after all reads
// and checks, right before mutating.
func (s *Store) begin() error {
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	s.writes++
	return nil
}

func (s *Store) emit(changes []entity.MessageChange) {
	if len(changes) == 0 {
		return
	}
	s.hookMu.RLock()
	hooks := append([]messageHook{}, s.hooks...)
	s.hookMu.RUnlock()
	for _, change := range changes {
		for _, h := range hooks {
			h.fn(change)
		}
	}
}

func newMessageID() string {
	return ulid.Make().String()
}

func cloneConversation(c *entity.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}
	cp := *c
	cp.Participants = append([]string(nil), c.Participants...)
	cp.UnreadCounts = make(map[string]int, len(c.UnreadCounts))
	for k, v := range c.UnreadCounts {
		cp.UnreadCounts[k] = v
	}
	cp.LastMessage = c.LastMessage.Clone()
	return &cp
}

func cloneUser(u *entity.User) *entity.User {
	cp := *u
	cp.LikedListings = append([]string{}, u.LikedListings...)
	cp.DeviceTokens = append([]string(nil), u.DeviceTokens...)
	return &cp
}

// Watch delivers message changes to fn until ctx is done. It mirrors the Firestore
// listener so the trigger worker can run against either store.
func (s *Store) Watch(ctx context.Context, fn func(entity.MessageChange)) error {
	changes := make(chan entity.MessageChange, 64)
	unregister := s.OnMessageUpdate(func(change entity.MessageChange) {
		select {
		case changes <- change:
		case <-ctx.Done():
		}
	})
	defer unregister()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case change := <-changes:
			fn(change)
		}
	}
}

// Repositories wires every repository over s.
func (s *Store) Repositories() *adapterrepo.Repositories {
	return &adapterrepo.Repositories{
		Chat:    NewChatRepository(s),
		Listing: NewListingRepository(s),
		User:    NewUserRepository(s),
		Like:    NewLikeRepository(s),
		Changes: s,
		Ping:    func(context.Context) error { return nil },
	}
}
