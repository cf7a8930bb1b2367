package service

import (
	"sync"

	"github.com/rs/zerolog"
)

// roomRegistry maps room names to the set of currently connected members.
// The registry mutex only guards the room map itself; each room carries its
// own lock so membership churn in one room never serializes another.
type roomRegistry struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry
	log   zerolog.Logger
}

type roomEntry struct {
	mu      sync.Mutex
	members map[*chatClient]struct{}
	// retired marks an entry removed from the map after its last member
	// left; a concurrent Add that still holds the stale pointer retries.
	retired bool
}

func newRoomRegistry(logger zerolog.Logger) *roomRegistry {
	return &roomRegistry{
		rooms: make(map[string]*roomEntry),
		log:   logger.With().Str("component", "room_registry").Logger(),
	}
}

// Add inserts the connection into the room's member set, creating the entry
// if absent. Adding an existing member is a no-op.
func (r *roomRegistry) Add(room string, client *chatClient) {
	for {
		r.mu.RLock()
		entry := r.rooms[room]
		r.mu.RUnlock()

		if entry == nil {
			r.mu.Lock()
			entry = r.rooms[room]
			if entry == nil {
				entry = &roomEntry{members: make(map[*chatClient]struct{})}
				r.rooms[room] = entry
			}
			r.mu.Unlock()
		}

		entry.mu.Lock()
		if entry.retired {
			entry.mu.Unlock()
			continue
		}
		entry.members[client] = struct{}{}
		entry.mu.Unlock()

		r.log.Debug().Str("room", room).Str("connection_id", client.id).Msg("member joined room")
		return
	}
}

// Remove drops the connection from the room's member set. Removing the last
// member deletes the room entry so the registry never retains empty rooms.
func (r *roomRegistry) Remove(room string, client *chatClient) {
	r.mu.RLock()
	entry := r.rooms[room]
	r.mu.RUnlock()
	if entry == nil {
		return
	}

	entry.mu.Lock()
	delete(entry.members, client)
	empty := len(entry.members) == 0
	entry.mu.Unlock()

	if !empty {
		return
	}

	r.mu.Lock()
	if current := r.rooms[room]; current == entry {
		entry.mu.Lock()
		if len(entry.members) == 0 {
			entry.retired = true
			delete(r.rooms, room)
		}
		entry.mu.Unlock()
	}
	r.mu.Unlock()

	r.log.Debug().Str("room", room).Str("connection_id", client.id).Msg("member left room")
}

// Members returns a snapshot of the room's member set. The snapshot may be
// stale by delivery time; a member disconnecting mid-broadcast is skipped,
// not an error.
func (r *roomRegistry) Members(room string) []*chatClient {
	r.mu.RLock()
	entry := r.rooms[room]
	r.mu.RUnlock()
	if entry == nil {
		return nil
	}

	entry.mu.Lock()
	members := make([]*chatClient, 0, len(entry.members))
	for client := range entry.members {
		members = append(members, client)
	}
	entry.mu.Unlock()

	return members
}

func (r *roomRegistry) roomCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// roomSequencer hands out one mutex per room key so persistence and broadcast
// of a message can be serialized within its room without a global lock.
// Entries are reference counted and dropped once unused.
type roomSequencer struct {
	mu    sync.Mutex
	locks map[string]*sequenceLock
}

type sequenceLock struct {
	mu   sync.Mutex
	refs int
}

func newRoomSequencer() *roomSequencer {
	return &roomSequencer{locks: make(map[string]*sequenceLock)}
}

// Lock acquires the room's sequencing mutex and returns its release func.
func (s *roomSequencer) Lock(room string) func() {
	s.mu.Lock()
	entry := s.locks[room]
	if entry == nil {
		entry = &sequenceLock{}
		s.locks[room] = entry
	}
	entry.refs++
	s.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		s.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(s.locks, room)
		}
		s.mu.Unlock()
	}
}
