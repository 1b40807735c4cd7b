package memory

import (
	"sync"
)

// MemStore tracks room membership. Rooms exist only implicitly: the first
// join creates the member set, removing the last member deletes it. Room
// names are arbitrary client-chosen tokens, nothing is validated or
// reserved.
type MemStore struct {
	mx     *sync.Mutex
	rooms  map[string]map[string]struct{} // room -> conn IDs
	joined map[string]map[string]struct{} // conn ID -> rooms
}

func NewMemStore() *MemStore {
	return &MemStore{
		mx:     &sync.Mutex{},
		rooms:  make(map[string]map[string]struct{}),
		joined: make(map[string]map[string]struct{}),
	}
}

// Join adds connID to the named room. Joining a room twice has no effect
// and is not an error.
func (ms *MemStore) Join(room string, connID string) {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	members, ok := ms.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		ms.rooms[room] = members
	}
	members[connID] = struct{}{}

	joined, ok := ms.joined[connID]
	if !ok {
		joined = make(map[string]struct{})
		ms.joined[connID] = joined
	}
	joined[room] = struct{}{}
}

// Members returns the current member IDs of a room. An unknown room yields
// an empty slice.
func (ms *MemStore) Members(room string) []string {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	members := make([]string, 0, len(ms.rooms[room]))
	for id := range ms.rooms[room] {
		members = append(members, id)
	}
	return members
}

// Disconnect removes connID from every room it joined and returns the
// rooms it was removed from. Emptied rooms are dropped from the table.
func (ms *MemStore) Disconnect(connID string) []string {
	ms.mx.Lock()
	defer ms.mx.Unlock()

	left := make([]string, 0, len(ms.joined[connID]))
	for room := range ms.joined[connID] {
		left = append(left, room)
		if members, ok := ms.rooms[room]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(ms.rooms, room)
			}
		}
	}
	delete(ms.joined, connID)
	return left
}
