package room

import (
	"errors"
	"testing"
	"time"

	"github.com/hersh/towerrelay/internal/protocol"
	"github.com/pixil98/go-testutil"
)

var testNow = time.UnixMilli(1_700_000_000_000)

func TestNewGameState(t *testing.T) {
	gs := NewGameState(10, testNow)

	testutil.AssertEqual(t, "wave", gs.Wave, 1)
	testutil.AssertEqual(t, "coins", gs.Coins, 10)
	testutil.AssertEqual(t, "core health", gs.CoreHealth, 100.0)
	testutil.AssertEqual(t, "enemies", len(gs.Enemies), 0)
	testutil.AssertEqual(t, "projectiles", len(gs.Projectiles), 0)
	testutil.AssertEqual(t, "created", gs.CreatedAt, testNow.UnixMilli())
}

func TestGameState_DamageCoreClampsAtZero(t *testing.T) {
	tests := map[string]struct {
		hits []float64
		want float64
	}{
		"single hit":        {hits: []float64{30}, want: 70},
		"exact kill":        {hits: []float64{60, 40}, want: 0},
		"overkill":          {hits: []float64{80, 80, 80}, want: 0},
		"huge damage":       {hits: []float64{1e9}, want: 0},
		"negative capped":   {hits: []float64{-50}, want: 100},
		"heal after damage": {hits: []float64{50, -20}, want: 70},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			gs := NewGameState(0, testNow)
			var got float64
			for _, h := range tt.hits {
				got = gs.DamageCore(h, testNow)
				if got < 0 {
					t.Fatalf("core health went negative: %v", got)
				}
			}
			testutil.AssertEqual(t, "core health", got, tt.want)
			testutil.AssertEqual(t, "stored health", gs.CoreHealth, tt.want)
		})
	}
}

func TestGameState_Purchase(t *testing.T) {
	gs := NewGameState(150, testNow)

	err := gs.Purchase("turret", 150, "a", testNow)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.AssertEqual(t, "coins after purchase", gs.Coins, 0)
	testutil.AssertEqual(t, "log length", len(gs.ShopPurchases), 1)
	testutil.AssertEqual(t, "log type", gs.ShopPurchases[0].Type, "turret")
	testutil.AssertEqual(t, "log buyer", gs.ShopPurchases[0].PlayerID, "a")
	testutil.AssertEqual(t, "log time", gs.ShopPurchases[0].Timestamp, testNow.UnixMilli())

	err = gs.Purchase("turret", 1, "a", testNow)
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	testutil.AssertEqual(t, "coins unchanged", gs.Coins, 0)
	testutil.AssertEqual(t, "log unchanged", len(gs.ShopPurchases), 1)
}

func TestGameState_PurchaseRejectsNegativeCost(t *testing.T) {
	gs := NewGameState(5, testNow)

	err := gs.Purchase("refund", -100, "a", testNow)
	if !errors.Is(err, ErrInvalidPurchase) {
		t.Fatalf("expected ErrInvalidPurchase, got %v", err)
	}
	testutil.AssertEqual(t, "coins unchanged", gs.Coins, 5)
}

func TestGameState_KillEnemy(t *testing.T) {
	gs := NewGameState(0, testNow)
	for _, id := range []string{"e0", "e1", "e2"} {
		gs.SpawnEnemy(Enemy{ID: id}, testNow)
	}
	testutil.AssertEqual(t, "spawned", gs.EnemiesSpawned, 3)

	removed, ok := gs.KillEnemy(1, 10, testNow)
	testutil.AssertEqual(t, "removed", ok, true)
	testutil.AssertEqual(t, "removed id", removed.ID, "e1")
	testutil.AssertEqual(t, "coins", gs.Coins, 10)
	testutil.AssertEqual(t, "remaining", len(gs.Enemies), 2)
	testutil.AssertEqual(t, "shifted", gs.Enemies[1].ID, "e2")

	// A stale index removes whatever now sits there.
	removed, ok = gs.KillEnemy(1, 10, testNow)
	testutil.AssertEqual(t, "stale removed", ok, true)
	testutil.AssertEqual(t, "stale removed id", removed.ID, "e2")

	_, ok = gs.KillEnemy(5, 7, testNow)
	testutil.AssertEqual(t, "out of range", ok, false)
	testutil.AssertEqual(t, "coins still credited", gs.Coins, 27)

	gs.KillEnemy(0, -100, testNow)
	testutil.AssertEqual(t, "negative reward ignored", gs.Coins, 27)
}

func TestGameState_CompleteWave(t *testing.T) {
	gs := NewGameState(0, testNow)
	gs.SpawnEnemy(Enemy{}, testNow)

	gs.CompleteWave(40, 10, 2, 1, testNow)

	testutil.AssertEqual(t, "wave", gs.Wave, 2)
	testutil.AssertEqual(t, "coins", gs.Coins, 40)
	testutil.AssertEqual(t, "to spawn", gs.EnemiesToSpawn, 10)
	testutil.AssertEqual(t, "speedy", gs.SpeedyEnemiesToSpawn, 2)
	testutil.AssertEqual(t, "splitter", gs.SplitterEnemiesToSpawn, 1)
	testutil.AssertEqual(t, "spawned reset", gs.EnemiesSpawned, 0)
	testutil.AssertEqual(t, "next spawn", gs.NextSpawnTime, testNow.UnixMilli()+4000)
}

func TestGameState_AddProjectileCapsHistory(t *testing.T) {
	gs := NewGameState(0, testNow)
	for i := 0; i < maxProjectiles+10; i++ {
		gs.AddProjectile(protocol.Projectile{ID: string(rune('a' + i%26))}, testNow)
	}

	testutil.AssertEqual(t, "projectiles", len(gs.Projectiles), maxProjectiles)
}

func TestGameState_Sync(t *testing.T) {
	gs := NewGameState(30, testNow)

	gs.Sync(0, 0, 0, testNow)
	testutil.AssertEqual(t, "coins kept", gs.Coins, 30)
	testutil.AssertEqual(t, "health kept", gs.CoreHealth, 100.0)
	testutil.AssertEqual(t, "wave kept", gs.Wave, 1)

	gs.Sync(80, 55, 4, testNow)
	testutil.AssertEqual(t, "coins", gs.Coins, 80)
	testutil.AssertEqual(t, "health", gs.CoreHealth, 55.0)
	testutil.AssertEqual(t, "wave", gs.Wave, 4)

	gs.Sync(-5, 500, -1, testNow)
	testutil.AssertEqual(t, "negative coins ignored", gs.Coins, 80)
	testutil.AssertEqual(t, "health capped", gs.CoreHealth, 100.0)
	testutil.AssertEqual(t, "negative wave ignored", gs.Wave, 4)
}
