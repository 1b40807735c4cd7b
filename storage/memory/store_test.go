package memory

import (
	"sort"
	"testing"
)

func TestJoinAndMembers(t *testing.T) {
	ms := NewMemStore()

	ms.Join("orange", "a")
	ms.Join("orange", "b")
	ms.Join("orange", "b") // idempotent
	ms.Join("blue", "a")

	members := ms.Members("orange")
	sort.Strings(members)
	if len(members) != 2 || members[0] != "a" || members[1] != "b" {
		t.Errorf("unexpected members: %v", members)
	}

	if got := ms.Members("blue"); len(got) != 1 || got[0] != "a" {
		t.Errorf("unexpected members: %v", got)
	}
}

func TestMembersOfUnknownRoom(t *testing.T) {
	ms := NewMemStore()

	if got := ms.Members("nope"); len(got) != 0 {
		t.Errorf("expected no members, got %v", got)
	}
}

func TestDisconnectClearsAllRooms(t *testing.T) {
	ms := NewMemStore()

	ms.Join("orange", "a")
	ms.Join("blue", "a")
	ms.Join("orange", "b")

	left := ms.Disconnect("a")
	sort.Strings(left)
	if len(left) != 2 || left[0] != "blue" || left[1] != "orange" {
		t.Errorf("unexpected rooms left: %v", left)
	}

	if got := ms.Members("orange"); len(got) != 1 || got[0] != "b" {
		t.Errorf("unexpected members after disconnect: %v", got)
	}
	if got := ms.Members("blue"); len(got) != 0 {
		t.Errorf("expected empty room to be gone, got %v", got)
	}
}

func TestDisconnectUnknownConn(t *testing.T) {
	ms := NewMemStore()

	if left := ms.Disconnect("ghost"); len(left) != 0 {
		t.Errorf("expected no rooms, got %v", left)
	}
}

func TestEmptyRoomIsGarbageCollected(t *testing.T) {
	ms := NewMemStore()

	ms.Join("orange", "a")
	ms.Disconnect("a")
	ms.Join("orange", "b")

	if got := ms.Members("orange"); len(got) != 1 || got[0] != "b" {
		t.Errorf("unexpected members after recreate: %v", got)
	}
}
