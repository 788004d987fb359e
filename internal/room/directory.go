package room

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hersh/towerrelay/internal/protocol"
)

const (
	DefaultCapacity   = 4
	DefaultStartCoins = 0
)

// JoinResult describes a completed create, join or quick-play.
type JoinResult struct {
	Room    *Room
	Player  Player
	IsHost  bool
	Created bool
	// Members in join order, the joining player included.
	Members []protocol.PlayerInfo
	// Previous is set when the player was moved out of another room.
	Previous *LeaveResult
}

// LeaveResult describes a player leaving a room.
type LeaveResult struct {
	PlayerID  string
	RoomID    string
	RoomCode  string
	QuickPlay bool
	// WasHost is set when the leaving player was the room's host.
	WasHost   bool
	Remaining []protocol.PlayerInfo
}

// RemainingIDs returns the ids of the members still in the room.
func (lr LeaveResult) RemainingIDs() []string {
	ids := make([]string, len(lr.Remaining))
	for i, p := range lr.Remaining {
		ids[i] = p.ID
	}
	return ids
}

// Directory is the session directory: players by connection, rooms by id and
// by code. All access goes through its methods.
type Directory struct {
	mu    sync.RWMutex
	store Store
	codes CodeGenerator

	capacity   int
	startCoins int
	now        func() time.Time
	newRoomID  func(now time.Time) string
}

func NewDirectory(opts ...DirectoryOpt) *Directory {
	d := &Directory{
		store:      NewMemoryStore(),
		codes:      NewRandomCodes(nil),
		capacity:   DefaultCapacity,
		startCoins: DefaultStartCoins,
		now:        time.Now,
		newRoomID: func(now time.Time) string {
			return fmt.Sprintf("room_%d_%s", now.UnixMilli(), uuid.NewString())
		},
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Capacity is the quick-play room size.
func (d *Directory) Capacity() int {
	return d.capacity
}

// Connect registers a roomless player for a new connection.
func (d *Directory) Connect(connID string) Player {
	d.mu.Lock()
	defer d.mu.Unlock()

	p := d.newPlayer(connID)
	d.store.PutPlayer(p)
	return *p
}

// Player returns a copy of the player record.
func (d *Directory) Player(connID string) (Player, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	p, ok := d.store.Player(connID)
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// ResolveOrCreateRoom returns the room registered under code, allocating one
// with a fresh game state if the code is unknown.
func (d *Directory) ResolveOrCreateRoom(code string) *Room {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, _ := d.resolveOrCreate(code, false)
	return r
}

// CreateRoom allocates a room under a new unique code and moves the player into it.
func (d *Directory) CreateRoom(connID string) JoinResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	r, created := d.resolveOrCreate(d.uniqueCode(), false)
	return d.join(connID, r, created)
}

// JoinRoomByCode moves the player into an existing room.
func (d *Directory) JoinRoomByCode(connID, code string) (JoinResult, error) {
	code = NormalizeCode(code)
	if !ValidCode(code) {
		return JoinResult{}, ErrInvalidCode
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	id, ok := d.store.RoomIDByCode(code)
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	r, ok := d.store.Room(id)
	if !ok {
		return JoinResult{}, ErrRoomNotFound
	}
	return d.join(connID, r, false), nil
}

// QuickPlay joins the first room, in creation order, that has room for another
// player. The player's current room is skipped. A new quick-play room is
// allocated when none fits.
func (d *Directory) QuickPlay(connID string) JoinResult {
	d.mu.Lock()
	defer d.mu.Unlock()

	var current string
	if p, ok := d.store.Player(connID); ok {
		current = p.RoomID
	}

	for _, r := range d.store.Rooms() {
		if r.ID != current && len(r.members) < d.capacity {
			return d.join(connID, r, false)
		}
	}

	r, created := d.resolveOrCreate(d.uniqueCode(), true)
	return d.join(connID, r, created)
}

// Leave removes the player from its room and from the directory. It reports
// false when the player was not in a room. The room itself is kept.
func (d *Directory) Leave(connID string) (LeaveResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.store.Player(connID)
	if !ok || p.RoomID == "" {
		return LeaveResult{}, false
	}

	lr, ok := d.detach(p)
	d.store.DeletePlayer(connID)
	return lr, ok
}

// Disconnect drops the player record of a closed connection. The result is
// only meaningful when the player was in a room.
func (d *Directory) Disconnect(connID string) (LeaveResult, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.store.Player(connID)
	if !ok {
		return LeaveResult{}, false
	}

	var (
		lr     LeaveResult
		inRoom bool
	)
	if p.RoomID != "" {
		lr, inRoom = d.detach(p)
	}
	d.store.DeletePlayer(connID)
	return lr, inRoom
}

// UpdateTransform stores the player's last reported transform and returns the
// other members of its room.
func (d *Directory) UpdateTransform(connID string, position, rotation, cameraRotation []byte) ([]string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	p, ok := d.store.Player(connID)
	if !ok || p.RoomID == "" {
		return nil, false
	}
	r, ok := d.store.Room(p.RoomID)
	if !ok {
		return nil, false
	}

	p.Position = position
	p.Rotation = rotation
	p.CameraRotation = cameraRotation
	p.UpdatedAt = d.now()

	return without(r.members, connID), true
}

// Host returns the earliest-joined member still present.
func (d *Directory) Host(roomID string) (string, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	r, ok := d.store.Room(roomID)
	if !ok || len(r.members) == 0 {
		return "", false
	}
	return r.members[0], true
}

// Rooms summarizes every registered room in creation order.
func (d *Directory) Rooms() []protocol.RoomInfo {
	type entry struct {
		room  *Room
		count int
	}

	d.mu.RLock()
	rooms := d.store.Rooms()
	entries := make([]entry, len(rooms))
	for i, r := range rooms {
		entries[i] = entry{room: r, count: len(r.members)}
	}
	d.mu.RUnlock()

	infos := make([]protocol.RoomInfo, 0, len(entries))
	for _, e := range entries {
		e.room.mu.Lock()
		wave := e.room.state.Wave
		e.room.mu.Unlock()

		infos = append(infos, protocol.RoomInfo{
			RoomCode:    e.room.Code,
			PlayerCount: e.count,
			MaxPlayers:  d.capacity,
			Wave:        wave,
			QuickPlay:   e.room.QuickPlay,
		})
	}
	return infos
}

// WithPlayerRoom runs fn under the lock of the player's room. It returns false,
// without calling fn, when the player or its room is unknown.
func (d *Directory) WithPlayerRoom(connID string, fn func(*Scope)) bool {
	d.mu.RLock()
	p, ok := d.store.Player(connID)
	if !ok || p.RoomID == "" {
		d.mu.RUnlock()
		return false
	}
	r, ok := d.store.Room(p.RoomID)
	if !ok {
		d.mu.RUnlock()
		return false
	}

	d.enter(r, connID, fn)
	return true
}

// WithRoom runs fn under the room's lock.
func (d *Directory) WithRoom(roomID string, fn func(*Scope)) bool {
	d.mu.RLock()
	r, ok := d.store.Room(roomID)
	if !ok {
		d.mu.RUnlock()
		return false
	}

	d.enter(r, "", fn)
	return true
}

// enter must be called with d.mu read-locked. The room lock is taken before
// d.mu is released, so the member snapshot matches the state fn sees.
func (d *Directory) enter(r *Room, connID string, fn func(*Scope)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	members := slices.Clone(r.members)
	d.mu.RUnlock()

	fn(&Scope{
		PlayerID: connID,
		Room:     r,
		State:    r.state,
		Members:  members,
		IsHost:   connID != "" && len(members) > 0 && members[0] == connID,
		Now:      d.now(),
	})
}

// resolveOrCreate must be called with d.mu held.
func (d *Directory) resolveOrCreate(code string, quickPlay bool) (*Room, bool) {
	if id, ok := d.store.RoomIDByCode(code); ok {
		if r, ok := d.store.Room(id); ok {
			return r, false
		}
	}

	now := d.now()
	r := newRoom(d.newRoomID(now), code, quickPlay, d.startCoins, now)
	d.store.AddRoom(r)
	return r, true
}

// uniqueCode must be called with d.mu held. There is no retry bound.
func (d *Directory) uniqueCode() string {
	for {
		code := d.codes.Generate()
		if _, taken := d.store.RoomIDByCode(code); !taken {
			return code
		}
	}
}

// join must be called with d.mu held.
func (d *Directory) join(connID string, r *Room, created bool) JoinResult {
	now := d.now()

	p, ok := d.store.Player(connID)
	if !ok {
		p = d.newPlayer(connID)
	}

	var prev *LeaveResult
	if p.RoomID != r.ID || r.indexOf(connID) < 0 {
		if p.RoomID != "" {
			if lr, ok := d.detach(p); ok {
				prev = &lr
			}
		}
		r.members = append(r.members, connID)
		p.RoomID = r.ID
		p.JoinedAt = now
	}
	p.UpdatedAt = now
	d.store.PutPlayer(p)

	return JoinResult{
		Room:     r,
		Player:   *p,
		IsHost:   r.members[0] == connID,
		Created:  created,
		Members:  d.infos(r.members),
		Previous: prev,
	}
}

// detach must be called with d.mu held.
func (d *Directory) detach(p *Player) (LeaveResult, bool) {
	roomID := p.RoomID
	p.RoomID = ""

	r, ok := d.store.Room(roomID)
	if !ok {
		return LeaveResult{}, false
	}
	wasHost := r.indexOf(p.ConnID) == 0
	if !r.removeMember(p.ConnID) {
		return LeaveResult{}, false
	}

	return LeaveResult{
		PlayerID:  p.ConnID,
		RoomID:    r.ID,
		RoomCode:  r.Code,
		QuickPlay: r.QuickPlay,
		WasHost:   wasHost,
		Remaining: d.infos(r.members),
	}, true
}

func (d *Directory) infos(ids []string) []protocol.PlayerInfo {
	infos := make([]protocol.PlayerInfo, 0, len(ids))
	for _, id := range ids {
		info := protocol.PlayerInfo{ID: id, Name: defaultName(id)}
		if p, ok := d.store.Player(id); ok {
			info.Name = p.Name
		}
		infos = append(infos, info)
	}
	return infos
}

func (d *Directory) newPlayer(connID string) *Player {
	return &Player{
		ConnID:    connID,
		Name:      defaultName(connID),
		UpdatedAt: d.now(),
	}
}

// defaultName mirrors the client's "Player xxxx" labels.
func defaultName(connID string) string {
	if len(connID) > 4 {
		return "Player " + connID[len(connID)-4:]
	}
	return "Player " + connID
}
