package room

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/pixil98/go-testutil"
)

// scriptedCodes hands out codes in order, repeating the last one.
type scriptedCodes struct {
	codes []string
	calls int
}

func (s *scriptedCodes) Generate() string {
	i := min(s.calls, len(s.codes)-1)
	s.calls++
	return s.codes[i]
}

func newTestDirectory(codes ...string) *Directory {
	now := time.UnixMilli(1_700_000_000_000)
	next := 0
	return NewDirectory(
		WithCodeGenerator(&scriptedCodes{codes: codes}),
		WithClock(func() time.Time { return now }),
		WithRoomIDs(func(time.Time) string {
			next++
			return fmt.Sprintf("room-%d", next)
		}),
	)
}

func TestDirectory_CreateRoomMakesCreatorHost(t *testing.T) {
	d := newTestDirectory("ABC123")
	d.Connect("conn-a")

	res := d.CreateRoom("conn-a")

	testutil.AssertEqual(t, "code", res.Room.Code, "ABC123")
	testutil.AssertEqual(t, "is host", res.IsHost, true)
	testutil.AssertEqual(t, "created", res.Created, true)
	testutil.AssertEqual(t, "member count", len(res.Members), 1)
	testutil.AssertEqual(t, "player room", res.Player.RoomID, res.Room.ID)
	if res.Previous != nil {
		t.Error("expected no previous room")
	}
}

func TestDirectory_CreateRoomRetriesTakenCodes(t *testing.T) {
	d := newTestDirectory("AAAAAA", "AAAAAA", "BBBBBB")
	d.Connect("conn-a")
	d.Connect("conn-b")

	first := d.CreateRoom("conn-a")
	second := d.CreateRoom("conn-b")

	testutil.AssertEqual(t, "first code", first.Room.Code, "AAAAAA")
	testutil.AssertEqual(t, "second code", second.Room.Code, "BBBBBB")
}

func TestDirectory_JoinRoomByCode(t *testing.T) {
	tests := map[string]struct {
		code    string
		wantErr error
	}{
		"exact code":        {code: "ABC123"},
		"lower case":        {code: "abc123"},
		"padded":            {code: "  ABC123 "},
		"too short":         {code: "ABC12", wantErr: ErrInvalidCode},
		"too long":          {code: "ABC1234", wantErr: ErrInvalidCode},
		"empty":             {code: "", wantErr: ErrInvalidCode},
		"bad characters":    {code: "ABC-12", wantErr: ErrInvalidCode},
		"unregistered code": {code: "ZZZ999", wantErr: ErrRoomNotFound},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			d := newTestDirectory("ABC123")
			d.Connect("host")
			d.Connect("guest")
			d.CreateRoom("host")

			res, err := d.JoinRoomByCode("guest", tt.code)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected %v, got %v", tt.wantErr, err)
				}
				p, _ := d.Player("guest")
				testutil.AssertEqual(t, "guest room", p.RoomID, "")
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			testutil.AssertEqual(t, "is host", res.IsHost, false)
			testutil.AssertEqual(t, "member count", len(res.Members), 2)
			testutil.AssertEqual(t, "first member", res.Members[0].ID, "host")
			testutil.AssertEqual(t, "second member", res.Members[1].ID, "guest")
		})
	}
}

func TestDirectory_JoinUnregisteredCodesAlwaysNotFound(t *testing.T) {
	d := newTestDirectory("ABC123")
	d.Connect("guest")

	for _, code := range []string{"AAAAAA", "000000", "Z9Y8X7", "ABC124"} {
		_, err := d.JoinRoomByCode("guest", code)
		if !errors.Is(err, ErrRoomNotFound) {
			t.Errorf("code %s: expected ErrRoomNotFound, got %v", code, err)
		}
	}
}

func TestDirectory_JoinMovesPlayerOutOfPreviousRoom(t *testing.T) {
	d := newTestDirectory("AAAAAA", "BBBBBB")
	d.Connect("a")
	d.Connect("b")
	d.Connect("c")

	first := d.CreateRoom("a")
	if _, err := d.JoinRoomByCode("c", "AAAAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.CreateRoom("b")

	res, err := d.JoinRoomByCode("a", "BBBBBB")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.Previous == nil {
		t.Fatal("expected previous room")
	}
	testutil.AssertEqual(t, "previous room", res.Previous.RoomID, first.Room.ID)
	testutil.AssertEqual(t, "remaining", len(res.Previous.Remaining), 1)
	testutil.AssertEqual(t, "remaining id", res.Previous.Remaining[0].ID, "c")
	testutil.AssertEqual(t, "a is not host of b", res.IsHost, false)

	// c inherits host of the first room
	host, _ := d.Host(first.Room.ID)
	testutil.AssertEqual(t, "new host", host, "c")
}

func TestDirectory_RejoinSameRoomKeepsOrder(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	d.Connect("a")
	d.Connect("b")
	d.CreateRoom("a")
	if _, err := d.JoinRoomByCode("b", "AAAAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	res, err := d.JoinRoomByCode("a", "AAAAAA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	testutil.AssertEqual(t, "still host", res.IsHost, true)
	testutil.AssertEqual(t, "member count", len(res.Members), 2)
	if res.Previous != nil {
		t.Error("expected no previous room")
	}
}

func TestDirectory_HostTransfersToNextEarliest(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	for _, id := range []string{"a", "b", "c"} {
		d.Connect(id)
	}
	res := d.CreateRoom("a")
	d.JoinRoomByCode("b", "AAAAAA")
	d.JoinRoomByCode("c", "AAAAAA")

	lr, ok := d.Disconnect("a")
	if !ok {
		t.Fatal("expected disconnect to report the room")
	}
	testutil.AssertEqual(t, "left room", lr.RoomID, res.Room.ID)
	testutil.AssertEqual(t, "remaining", len(lr.Remaining), 2)
	testutil.AssertEqual(t, "was host", lr.WasHost, true)

	host, ok := d.Host(res.Room.ID)
	testutil.AssertEqual(t, "has host", ok, true)
	testutil.AssertEqual(t, "host", host, "b")

	lr, _ = d.Leave("b")
	testutil.AssertEqual(t, "b was host", lr.WasHost, true)
	host, _ = d.Host(res.Room.ID)
	testutil.AssertEqual(t, "host after leave", host, "c")
}

func TestDirectory_LeaveKeepsRoomAndCode(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	d.Connect("a")
	res := d.CreateRoom("a")

	lr, ok := d.Leave("a")
	testutil.AssertEqual(t, "left", ok, true)
	testutil.AssertEqual(t, "remaining", len(lr.Remaining), 0)

	_, exists := d.Player("a")
	testutil.AssertEqual(t, "player deleted", exists, false)

	rooms := d.Rooms()
	testutil.AssertEqual(t, "room kept", len(rooms), 1)
	testutil.AssertEqual(t, "code kept", rooms[0].RoomCode, "AAAAAA")
	testutil.AssertEqual(t, "no members", rooms[0].PlayerCount, 0)

	// a later join upserts the player again
	d.Connect("b")
	if _, err := d.JoinRoomByCode("a", "AAAAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	p, ok := d.Player("a")
	testutil.AssertEqual(t, "player upserted", ok, true)
	testutil.AssertEqual(t, "player room", p.RoomID, res.Room.ID)
}

func TestDirectory_LeaveWithoutRoom(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	d.Connect("a")

	_, ok := d.Leave("a")
	testutil.AssertEqual(t, "left", ok, false)

	_, ok = d.Disconnect("a")
	testutil.AssertEqual(t, "disconnect in room", ok, false)
	_, exists := d.Player("a")
	testutil.AssertEqual(t, "player deleted", exists, false)
}

func TestDirectory_QuickPlayFillsFirstRoomWithCapacity(t *testing.T) {
	d := newTestDirectory("AAAAAA", "BBBBBB", "CCCCCC")

	ids := []string{"p1", "p2", "p3", "p4", "p5"}
	var results []JoinResult
	for _, id := range ids {
		d.Connect(id)
		results = append(results, d.QuickPlay(id))
	}

	first := results[0].Room
	testutil.AssertEqual(t, "first created", results[0].Created, true)
	testutil.AssertEqual(t, "first quick play", first.QuickPlay, true)
	testutil.AssertEqual(t, "first host", results[0].IsHost, true)
	for i := 1; i < DefaultCapacity; i++ {
		testutil.AssertEqual(t, fmt.Sprintf("p%d room", i+1), results[i].Room.ID, first.ID)
		testutil.AssertEqual(t, fmt.Sprintf("p%d host", i+1), results[i].IsHost, false)
	}

	fifth := results[4]
	testutil.AssertEqual(t, "overflow created", fifth.Created, true)
	testutil.AssertEqual(t, "overflow code", fifth.Room.Code, "BBBBBB")
	testutil.AssertEqual(t, "overflow host", fifth.IsHost, true)
}

func TestDirectory_QuickPlayJoinsPrivateRoomsWithCapacity(t *testing.T) {
	d := newTestDirectory("AAAAAA", "BBBBBB")
	d.Connect("a")
	d.Connect("b")
	created := d.CreateRoom("a")

	res := d.QuickPlay("b")

	testutil.AssertEqual(t, "joined existing", res.Room.ID, created.Room.ID)
	testutil.AssertEqual(t, "created", res.Created, false)
}

func TestDirectory_QuickPlaySkipsCurrentRoom(t *testing.T) {
	d := newTestDirectory("AAAAAA", "BBBBBB")
	d.Connect("a")
	created := d.CreateRoom("a")

	res := d.QuickPlay("a")

	if res.Room.ID == created.Room.ID {
		t.Fatal("expected a different room")
	}
	if res.Previous == nil {
		t.Fatal("expected previous room")
	}
	testutil.AssertEqual(t, "previous", res.Previous.RoomID, created.Room.ID)
}

func TestDirectory_CapacityOption(t *testing.T) {
	d := NewDirectory(WithCapacity(2))
	for _, id := range []string{"a", "b", "c"} {
		d.Connect(id)
	}
	first := d.QuickPlay("a")
	second := d.QuickPlay("b")
	third := d.QuickPlay("c")

	testutil.AssertEqual(t, "second joins first", second.Room.ID, first.Room.ID)
	if third.Room.ID == first.Room.ID {
		t.Error("expected third player in a new room")
	}
	testutil.AssertEqual(t, "capacity", d.Capacity(), 2)
}

func TestDirectory_ResolveOrCreateRoom(t *testing.T) {
	d := newTestDirectory()

	r1 := d.ResolveOrCreateRoom("QPROOM")
	r2 := d.ResolveOrCreateRoom("QPROOM")

	testutil.AssertEqual(t, "same room", r1.ID, r2.ID)
	testutil.AssertEqual(t, "fresh wave", r1.state.Wave, 1)
	testutil.AssertEqual(t, "room count", len(d.Rooms()), 1)
}

func TestDirectory_UpdateTransform(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	d.Connect("a")
	d.Connect("b")

	_, ok := d.UpdateTransform("a", []byte(`{"x":1}`), nil, nil)
	testutil.AssertEqual(t, "roomless update", ok, false)

	d.CreateRoom("a")
	d.JoinRoomByCode("b", "AAAAAA")

	others, ok := d.UpdateTransform("a", []byte(`{"x":1}`), []byte(`{"y":2}`), nil)
	testutil.AssertEqual(t, "update", ok, true)
	testutil.AssertEqual(t, "others", len(others), 1)
	testutil.AssertEqual(t, "other id", others[0], "b")

	p, _ := d.Player("a")
	testutil.AssertEqual(t, "position", string(p.Position), `{"x":1}`)
	testutil.AssertEqual(t, "rotation", string(p.Rotation), `{"y":2}`)
}

func TestDirectory_WithPlayerRoom(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	d.Connect("a")
	d.Connect("b")

	called := d.WithPlayerRoom("a", func(*Scope) {})
	testutil.AssertEqual(t, "roomless", called, false)
	called = d.WithPlayerRoom("nobody", func(*Scope) {})
	testutil.AssertEqual(t, "unknown", called, false)

	d.CreateRoom("a")
	d.JoinRoomByCode("b", "AAAAAA")

	var scope Scope
	called = d.WithPlayerRoom("b", func(s *Scope) { scope = *s })
	testutil.AssertEqual(t, "called", called, true)
	testutil.AssertEqual(t, "player", scope.PlayerID, "b")
	testutil.AssertEqual(t, "host", scope.IsHost, false)
	testutil.AssertEqual(t, "members", len(scope.Members), 2)
	testutil.AssertEqual(t, "others", len(scope.Others()), 1)
	testutil.AssertEqual(t, "other", scope.Others()[0], "a")
}

func TestDirectory_ScopeResetKeepsMembership(t *testing.T) {
	d := NewDirectory(WithStartCoins(25), WithCodeGenerator(&scriptedCodes{codes: []string{"AAAAAA"}}))
	d.Connect("a")
	res := d.CreateRoom("a")

	d.WithPlayerRoom("a", func(s *Scope) {
		s.State.CompleteWave(50, 3, 1, 1, s.Now)
		s.State.SpawnEnemy(Enemy{ID: "e1"}, s.Now)
	})
	d.WithPlayerRoom("a", func(s *Scope) {
		s.Reset()
	})

	d.WithRoom(res.Room.ID, func(s *Scope) {
		testutil.AssertEqual(t, "wave", s.State.Wave, 1)
		testutil.AssertEqual(t, "coins", s.State.Coins, 25)
		testutil.AssertEqual(t, "enemies", len(s.State.Enemies), 0)
		testutil.AssertEqual(t, "members", len(s.Members), 1)
	})
}

func TestDirectory_PlayerNames(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	p := d.Connect("5f0c1e2d-abcd")

	testutil.AssertEqual(t, "name", p.Name, "Player abcd")
}

func TestDirectory_RoomsSummary(t *testing.T) {
	d := newTestDirectory("AAAAAA", "BBBBBB")
	d.Connect("a")
	d.Connect("b")
	d.CreateRoom("a")
	d.QuickPlay("b")

	rooms := d.Rooms()
	testutil.AssertEqual(t, "room count", len(rooms), 1)
	testutil.AssertEqual(t, "code", rooms[0].RoomCode, "AAAAAA")
	testutil.AssertEqual(t, "players", rooms[0].PlayerCount, 2)
	testutil.AssertEqual(t, "max", rooms[0].MaxPlayers, DefaultCapacity)
	testutil.AssertEqual(t, "wave", rooms[0].Wave, 1)
}

// countingStore wraps MemoryStore and counts writes.
type countingStore struct {
	*MemoryStore
	roomsAdded     int
	playersDeleted int
}

func (s *countingStore) AddRoom(r *Room) {
	s.roomsAdded++
	s.MemoryStore.AddRoom(r)
}

func (s *countingStore) DeletePlayer(connID string) {
	s.playersDeleted++
	s.MemoryStore.DeletePlayer(connID)
}

func TestDirectory_WithStore(t *testing.T) {
	store := &countingStore{MemoryStore: NewMemoryStore()}
	d := NewDirectory(
		WithStore(store),
		WithCodeGenerator(&scriptedCodes{codes: []string{"AAAAAA"}}),
	)
	d.Connect("a")
	d.Connect("b")

	res := d.CreateRoom("a")
	if _, err := d.JoinRoomByCode("b", "AAAAAA"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	d.Leave("b")

	testutil.AssertEqual(t, "rooms added", store.roomsAdded, 1)
	testutil.AssertEqual(t, "players deleted", store.playersDeleted, 1)

	id, ok := store.RoomIDByCode("AAAAAA")
	testutil.AssertEqual(t, "code registered", ok, true)
	testutil.AssertEqual(t, "room id", id, res.Room.ID)
	_, ok = store.Player("b")
	testutil.AssertEqual(t, "b removed from store", ok, false)
}

func TestDirectory_ScopeMembersMatchState(t *testing.T) {
	d := newTestDirectory("AAAAAA")
	d.Connect("host")
	d.CreateRoom("host")

	const joiners = 50
	var (
		wg sync.WaitGroup
		// appended only under the room lock
		seen []int
	)
	for i := 0; i < joiners; i++ {
		id := fmt.Sprintf("p%d", i)
		d.Connect(id)
		wg.Add(2)
		go func() {
			defer wg.Done()
			if _, err := d.JoinRoomByCode(id, "AAAAAA"); err != nil {
				t.Errorf("join %s: %v", id, err)
			}
		}()
		go func() {
			defer wg.Done()
			d.WithPlayerRoom("host", func(s *Scope) {
				seen = append(seen, len(s.Members))
			})
		}()
	}
	wg.Wait()

	testutil.AssertEqual(t, "scopes", len(seen), joiners)
	for i := 1; i < len(seen); i++ {
		if seen[i] < seen[i-1] {
			t.Errorf("member snapshot went backwards at %d: %v", i, seen)
			break
		}
	}
}
