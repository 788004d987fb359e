package room

import (
	"encoding/json"
	"sync"
	"time"
)

// Room is a shared gameplay session. Membership is owned by the Directory;
// the game state is guarded by the room's own lock.
type Room struct {
	ID        string
	Code      string
	QuickPlay bool
	CreatedAt time.Time

	// join order, guarded by Directory.mu
	members []string

	mu         sync.Mutex
	state      *GameState
	startCoins int
}

func newRoom(id, code string, quickPlay bool, startCoins int, now time.Time) *Room {
	return &Room{
		ID:         id,
		Code:       code,
		QuickPlay:  quickPlay,
		CreatedAt:  now,
		state:      NewGameState(startCoins, now),
		startCoins: startCoins,
	}
}

func (r *Room) indexOf(connID string) int {
	for i, id := range r.members {
		if id == connID {
			return i
		}
	}
	return -1
}

func (r *Room) removeMember(connID string) bool {
	i := r.indexOf(connID)
	if i < 0 {
		return false
	}
	r.members = append(r.members[:i], r.members[i+1:]...)
	return true
}

// Player is a connection's directory record.
type Player struct {
	ConnID string
	Name   string
	RoomID string

	Position       json.RawMessage
	Rotation       json.RawMessage
	CameraRotation json.RawMessage

	JoinedAt  time.Time
	UpdatedAt time.Time
}

// Scope is handed to callbacks running under a room's lock. Members is a
// snapshot taken when the scope was opened.
type Scope struct {
	PlayerID string
	Room     *Room
	State    *GameState
	Members  []string
	IsHost   bool
	Now      time.Time
}

// Others returns the members except the scope's player.
func (s *Scope) Others() []string {
	return without(s.Members, s.PlayerID)
}

// Reset replaces the room's game state with a fresh one.
func (s *Scope) Reset() *GameState {
	s.State = NewGameState(s.Room.startCoins, s.Now)
	s.Room.state = s.State
	return s.State
}

func without(ids []string, exclude string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != exclude {
			out = append(out, id)
		}
	}
	return out
}
