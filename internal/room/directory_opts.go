package room

import "time"

type DirectoryOpt func(*Directory)

// WithStore replaces the in-memory store
func WithStore(s Store) DirectoryOpt {
	return func(d *Directory) {
		d.store = s
	}
}

// WithCodeGenerator sets the room code source
func WithCodeGenerator(g CodeGenerator) DirectoryOpt {
	return func(d *Directory) {
		d.codes = g
	}
}

// WithCapacity sets the quick-play room size
func WithCapacity(n int) DirectoryOpt {
	return func(d *Directory) {
		d.capacity = n
	}
}

// WithStartCoins sets the coin pool of new and reset rooms
func WithStartCoins(n int) DirectoryOpt {
	return func(d *Directory) {
		d.startCoins = n
	}
}

// WithClock sets the time source
func WithClock(now func() time.Time) DirectoryOpt {
	return func(d *Directory) {
		d.now = now
	}
}

// WithRoomIDs sets the room id generator
func WithRoomIDs(fn func(now time.Time) string) DirectoryOpt {
	return func(d *Directory) {
		d.newRoomID = fn
	}
}
