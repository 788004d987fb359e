package room

// Store holds the directory maps. Implementations need not be safe for
// concurrent use; the Directory serializes every call.
type Store interface {
	Room(id string) (*Room, bool)
	RoomIDByCode(code string) (string, bool)
	AddRoom(r *Room)
	// Rooms returns rooms in creation order.
	Rooms() []*Room

	Player(connID string) (*Player, bool)
	PutPlayer(p *Player)
	DeletePlayer(connID string)
}

// MemoryStore is the in-process Store. Rooms are never removed.
type MemoryStore struct {
	rooms   map[string]*Room
	codes   map[string]string
	order   []string
	players map[string]*Player
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rooms:   make(map[string]*Room),
		codes:   make(map[string]string),
		players: make(map[string]*Player),
	}
}

func (s *MemoryStore) Room(id string) (*Room, bool) {
	r, ok := s.rooms[id]
	return r, ok
}

func (s *MemoryStore) RoomIDByCode(code string) (string, bool) {
	id, ok := s.codes[code]
	return id, ok
}

func (s *MemoryStore) AddRoom(r *Room) {
	if _, exists := s.rooms[r.ID]; !exists {
		s.order = append(s.order, r.ID)
	}
	s.rooms[r.ID] = r
	s.codes[r.Code] = r.ID
}

func (s *MemoryStore) Rooms() []*Room {
	rooms := make([]*Room, 0, len(s.order))
	for _, id := range s.order {
		rooms = append(rooms, s.rooms[id])
	}
	return rooms
}

func (s *MemoryStore) Player(connID string) (*Player, bool) {
	p, ok := s.players[connID]
	return p, ok
}

func (s *MemoryStore) PutPlayer(p *Player) {
	s.players[p.ConnID] = p
}

func (s *MemoryStore) DeletePlayer(connID string) {
	delete(s.players, connID)
}
