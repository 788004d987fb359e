package room

import (
	"encoding/json"
	"time"

	"github.com/hersh/towerrelay/internal/protocol"
)

const (
	MaxCoreHealth  = 100
	NextSpawnDelay = 4000 * time.Millisecond

	// Oldest projectiles are dropped past this many; clients own their physics.
	maxProjectiles = 512
)

// Enemy is a client-reported enemy. Descriptor keeps the payload as sent.
type Enemy struct {
	ID         string          `json:"id,omitempty"`
	Type       string          `json:"type,omitempty"`
	Position   json.RawMessage `json:"position,omitempty"`
	Health     float64         `json:"health"`
	MaxHealth  float64         `json:"maxHealth"`
	Speed      float64         `json:"speed"`
	Damage     float64         `json:"damage"`
	Radius     float64         `json:"radius"`
	Coins      int             `json:"coins"`
	SpawnedBy  string          `json:"spawnedBy"`
	SpawnedAt  int64           `json:"spawnedAt"`
	Descriptor json.RawMessage `json:"-"`
}

// Purchase is one entry of the shop log.
type Purchase struct {
	Type      string `json:"type"`
	Cost      int    `json:"cost"`
	PlayerID  string `json:"playerId"`
	Timestamp int64  `json:"timestamp"`
}

// GameState is the shared per-room gameplay record. It is not safe for
// concurrent use; the owning Room serializes access.
type GameState struct {
	Wave          int                   `json:"wave"`
	Coins         int                   `json:"coins"`
	CoreHealth    float64               `json:"coreHealth"`
	Enemies       []Enemy               `json:"enemies"`
	Projectiles   []protocol.Projectile `json:"projectiles"`
	ShopPurchases []Purchase            `json:"shopPurchases"`

	EnemiesToSpawn         int   `json:"enemiesToSpawn"`
	SpeedyEnemiesToSpawn   int   `json:"speedyEnemiesToSpawn"`
	SplitterEnemiesToSpawn int   `json:"splitterEnemiesToSpawn"`
	EnemiesSpawned         int   `json:"enemiesSpawned"`
	NextSpawnTime          int64 `json:"nextSpawnTime"`

	IsPaused  bool  `json:"isPaused"`
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// NewGameState returns the state a room starts with and returns to after gameOver.
func NewGameState(startCoins int, now time.Time) *GameState {
	ts := now.UnixMilli()
	return &GameState{
		Wave:          1,
		Coins:         startCoins,
		CoreHealth:    MaxCoreHealth,
		Enemies:       []Enemy{},
		Projectiles:   []protocol.Projectile{},
		ShopPurchases: []Purchase{},
		CreatedAt:     ts,
		UpdatedAt:     ts,
	}
}

func (gs *GameState) touch(now time.Time) {
	gs.UpdatedAt = now.UnixMilli()
}

// AddProjectile records a shot.
func (gs *GameState) AddProjectile(p protocol.Projectile, now time.Time) {
	gs.Projectiles = append(gs.Projectiles, p)
	if over := len(gs.Projectiles) - maxProjectiles; over > 0 {
		gs.Projectiles = append(gs.Projectiles[:0], gs.Projectiles[over:]...)
	}
	gs.touch(now)
}

// SpawnEnemy appends a client-reported enemy.
func (gs *GameState) SpawnEnemy(e Enemy, now time.Time) {
	gs.Enemies = append(gs.Enemies, e)
	gs.EnemiesSpawned++
	gs.touch(now)
}

// KillEnemy removes the enemy at index and credits coins to the pool. The
// removal is positional: a stale index removes whichever enemy sits there now.
// Coins are credited even when the index is out of range; negative rewards are
// ignored so the pool cannot go below zero.
func (gs *GameState) KillEnemy(index, coins int, now time.Time) (Enemy, bool) {
	var (
		removed Enemy
		ok      bool
	)
	if index >= 0 && index < len(gs.Enemies) {
		removed = gs.Enemies[index]
		gs.Enemies = append(gs.Enemies[:index], gs.Enemies[index+1:]...)
		ok = true
	}
	gs.Coins += max(coins, 0)
	gs.touch(now)
	return removed, ok
}

// DamageCore subtracts damage from the core, keeping health within [0, MaxCoreHealth].
func (gs *GameState) DamageCore(damage float64, now time.Time) float64 {
	gs.CoreHealth -= damage
	if gs.CoreHealth < 0 {
		gs.CoreHealth = 0
	}
	if gs.CoreHealth > MaxCoreHealth {
		gs.CoreHealth = MaxCoreHealth
	}
	gs.touch(now)
	return gs.CoreHealth
}

// CompleteWave advances the wave, pays the bonus and primes the spawn queue.
func (gs *GameState) CompleteWave(bonus, enemies, speedy, splitter int, now time.Time) {
	gs.Wave++
	gs.Coins += max(bonus, 0)
	gs.EnemiesToSpawn = enemies
	gs.SpeedyEnemiesToSpawn = speedy
	gs.SplitterEnemiesToSpawn = splitter
	gs.EnemiesSpawned = 0
	gs.NextSpawnTime = now.Add(NextSpawnDelay).UnixMilli()
	gs.touch(now)
}

// Purchase debits cost from the pool and logs it. The pool is left untouched on error.
func (gs *GameState) Purchase(kind string, cost int, playerID string, now time.Time) error {
	if cost < 0 {
		return ErrInvalidPurchase
	}
	if gs.Coins < cost {
		return ErrInsufficientFunds
	}
	gs.Coins -= cost
	gs.ShopPurchases = append(gs.ShopPurchases, Purchase{
		Type:      kind,
		Cost:      cost,
		PlayerID:  playerID,
		Timestamp: now.UnixMilli(),
	})
	gs.touch(now)
	return nil
}

// Sync overwrites the shared counters from a host report. Non-positive values
// keep the current value.
func (gs *GameState) Sync(coins int, coreHealth float64, wave int, now time.Time) {
	if coins > 0 {
		gs.Coins = coins
	}
	if coreHealth > 0 {
		gs.CoreHealth = min(coreHealth, MaxCoreHealth)
	}
	if wave > 0 {
		gs.Wave = wave
	}
	gs.touch(now)
}
