package relay

import (
	"encoding/json"

	"github.com/hersh/towerrelay/internal/protocol"
	"github.com/hersh/towerrelay/internal/room"
	"go.uber.org/zap"
)

func (h *Handler) updatePosition(connID string, p protocol.UpdatePositionPayload) {
	others, ok := h.dir.UpdateTransform(connID, p.Position, p.Rotation, p.CameraRotation)
	if !ok {
		return
	}
	h.send(others, protocol.Envelope{
		Type: protocol.MsgPlayerPosition,
		Payload: protocol.PlayerPositionPayload{
			PlayerID:       connID,
			Position:       p.Position,
			Rotation:       p.Rotation,
			CameraRotation: p.CameraRotation,
		},
	})
}

func (h *Handler) shoot(connID string, p protocol.ShootPayload) {
	h.inRoom(connID, protocol.MsgShoot, func(s *room.Scope) {
		projectile := protocol.Projectile{
			ID:          newProjectileID(connID, s.Now),
			OwnerID:     connID,
			Position:    p.Position,
			Velocity:    p.Velocity,
			Radius:      p.Radius,
			Mass:        p.Mass,
			AmmoType:    p.AmmoType,
			ChargeLevel: p.ChargeLevel,
			FiredAt:     s.Now.UnixMilli(),
		}
		s.State.AddProjectile(projectile, s.Now)

		h.send(s.Members, protocol.Envelope{
			Type:    protocol.MsgProjectileShot,
			Payload: protocol.ProjectileShotPayload{PlayerID: connID, Projectile: projectile},
		})
	})
}

func (h *Handler) enemyHit(connID string, p protocol.EnemyHitPayload) {
	h.inRoom(connID, protocol.MsgEnemyHit, func(s *room.Scope) {
		h.send(s.Members, protocol.Envelope{
			Type: protocol.MsgEnemyHit,
			Payload: protocol.EnemyHitBroadcast{
				PlayerID:   connID,
				EnemyIndex: p.EnemyIndex,
				Damage:     p.Damage,
			},
		})
	})
}

func (h *Handler) enemyKilled(connID string, p protocol.EnemyKilledPayload) {
	h.inRoom(connID, protocol.MsgEnemyKilled, func(s *room.Scope) {
		if _, ok := s.State.KillEnemy(p.EnemyIndex, p.Coins, s.Now); !ok {
			h.log.Debug("enemy index out of range",
				zap.String("conn", connID),
				zap.String("room", s.Room.Code),
				zap.Int("index", p.EnemyIndex),
			)
		}

		h.send(s.Members, protocol.Envelope{
			Type: protocol.MsgEnemyKilled,
			Payload: protocol.EnemyKilledBroadcast{
				PlayerID:   connID,
				EnemyIndex: p.EnemyIndex,
				EnemyID:    p.EnemyID,
				Coins:      p.Coins,
				TotalCoins: s.State.Coins,
				Position:   p.Position,
			},
		})
	})
}

func (h *Handler) coreHit(connID string, p protocol.CoreHitPayload) {
	h.inRoom(connID, protocol.MsgCoreHit, func(s *room.Scope) {
		health := s.State.DamageCore(p.Damage, s.Now)

		h.send(s.Members, protocol.Envelope{
			Type:    protocol.MsgCoreHit,
			Payload: protocol.CoreHitBroadcast{Damage: p.Damage, CoreHealth: health},
		})
	})
}

func (h *Handler) waveComplete(connID string, p protocol.WaveCompletePayload) {
	h.inRoom(connID, protocol.MsgWaveComplete, func(s *room.Scope) {
		s.State.CompleteWave(p.Bonus, p.EnemiesToSpawn, p.SpeedyEnemiesToSpawn, p.SplitterEnemiesToSpawn, s.Now)
		h.log.Info("wave complete", zap.String("room", s.Room.Code), zap.Int("wave", s.State.Wave))

		h.send(s.Members, protocol.Envelope{
			Type: protocol.MsgWaveComplete,
			Payload: protocol.WaveCompleteBroadcast{
				Wave:                   s.State.Wave,
				Bonus:                  p.Bonus,
				TotalCoins:             s.State.Coins,
				EnemiesToSpawn:         s.State.EnemiesToSpawn,
				SpeedyEnemiesToSpawn:   s.State.SpeedyEnemiesToSpawn,
				SplitterEnemiesToSpawn: s.State.SplitterEnemiesToSpawn,
				NextSpawnTime:          s.State.NextSpawnTime,
			},
		})
	})
}

// enemySpawned stores the enemy and relays the descriptor exactly as received.
func (h *Handler) enemySpawned(connID string, p protocol.EnemySpawnedPayload, raw json.RawMessage) {
	h.inRoom(connID, protocol.MsgEnemySpawned, func(s *room.Scope) {
		s.State.SpawnEnemy(room.Enemy{
			ID:         p.ID,
			Type:       p.Type,
			Position:   p.Position,
			Health:     p.Health,
			MaxHealth:  p.MaxHealth,
			Speed:      p.Speed,
			Damage:     p.Damage,
			Radius:     p.Radius,
			Coins:      p.Coins,
			SpawnedBy:  connID,
			SpawnedAt:  s.Now.UnixMilli(),
			Descriptor: raw,
		}, s.Now)

		h.send(s.Members, protocol.Envelope{Type: protocol.MsgEnemySpawned, Payload: raw})
	})
}

func (h *Handler) shopPurchase(connID string, p protocol.ShopPurchasePayload) {
	h.inRoom(connID, protocol.MsgShopPurchase, func(s *room.Scope) {
		if err := s.State.Purchase(p.Type, p.Cost, connID, s.Now); err != nil {
			h.log.Info("purchase rejected",
				zap.String("conn", connID),
				zap.String("room", s.Room.Code),
				zap.String("item", p.Type),
				zap.Int("cost", p.Cost),
				zap.Int("coins", s.State.Coins),
				zap.Error(err),
			)
			h.send([]string{connID}, protocol.Envelope{
				Type: protocol.MsgShopPurchaseFailed,
				Payload: protocol.ShopPurchaseFailedPayload{
					Reason:     room.Reason(err),
					Type:       p.Type,
					Cost:       p.Cost,
					TotalCoins: s.State.Coins,
				},
			})
			return
		}

		h.send(s.Members, protocol.Envelope{
			Type: protocol.MsgShopPurchase,
			Payload: protocol.ShopPurchaseBroadcast{
				PlayerID:   connID,
				Type:       p.Type,
				Cost:       p.Cost,
				TotalCoins: s.State.Coins,
			},
		})
	})
}

func (h *Handler) gameOver(connID string) {
	h.inRoom(connID, protocol.MsgGameOver, func(s *room.Scope) {
		h.log.Info("game over", zap.String("room", s.Room.Code), zap.Int("wave", s.State.Wave))
		state := s.Reset()

		h.send(s.Members, protocol.Envelope{
			Type:    protocol.MsgGameReset,
			Payload: protocol.GameResetPayload{GameState: state},
		})
	})
}

// gameStateSync applies a host report and mirrors the result to the others.
// Reports from non-hosts are ignored.
func (h *Handler) gameStateSync(connID string, p protocol.GameStateSyncPayload) {
	h.inRoom(connID, protocol.MsgGameStateSync, func(s *room.Scope) {
		if !s.IsHost {
			h.log.Debug("ignoring state sync from non-host", zap.String("conn", connID), zap.String("room", s.Room.Code))
			return
		}
		s.State.Sync(p.Coins, p.CoreHealth, p.Wave, s.Now)

		h.send(s.Others(), protocol.Envelope{Type: protocol.MsgGameState, Payload: s.State})
	})
}
