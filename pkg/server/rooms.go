package server

import (
	"sort"
	"sync"
)

// roomSet tracks named broadcast groups and their member connections.
type roomSet struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
	bySID map[string]map[string]struct{}
}

func newRoomSet() *roomSet {
	return &roomSet{
		rooms: make(map[string]map[string]struct{}),
		bySID: make(map[string]map[string]struct{}),
	}
}

func (r *roomSet) enter(sid, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	members, ok := r.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		r.rooms[room] = members
	}
	members[sid] = struct{}{}

	joined, ok := r.bySID[sid]
	if !ok {
		joined = make(map[string]struct{})
		r.bySID[sid] = joined
	}
	joined[room] = struct{}{}
}

func (r *roomSet) leave(sid, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removeLocked(sid, room)
}

// leaveAll removes the connection from every room it joined.
func (r *roomSet) leaveAll(sid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.bySID[sid] {
		r.removeLocked(sid, room)
	}
}

func (r *roomSet) removeLocked(sid, room string) {
	if members, ok := r.rooms[room]; ok {
		delete(members, sid)
		if len(members) == 0 {
			delete(r.rooms, room)
		}
	}
	if joined, ok := r.bySID[sid]; ok {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.bySID, sid)
		}
	}
}

// members returns the connections in a room.
func (r *roomSet) members(room string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.rooms[room]))
	for sid := range r.rooms[room] {
		out = append(out, sid)
	}
	return out
}

// roomsOf returns the rooms a connection belongs to, sorted.
func (r *roomSet) roomsOf(sid string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.bySID[sid]))
	for room := range r.bySID[sid] {
		out = append(out, room)
	}
	sort.Strings(out)
	return out
}

// exists reports whether the room currently has members.
func (r *roomSet) exists(room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms[room]) > 0
}

// close removes every member from the room.
func (r *roomSet) close(room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for sid := range r.rooms[room] {
		if joined, ok := r.bySID[sid]; ok {
			delete(joined, room)
			if len(joined) == 0 {
				delete(r.bySID, sid)
			}
		}
	}
	delete(r.rooms, room)
}
