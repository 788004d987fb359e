package protocol

import (
	"encoding/json"
	"errors"
)

// MessageType identifies the kind of message sent over the wire.
type MessageType string

const (
	// Server -> Client messages
	MsgConnected          MessageType = "connected"
	MsgAck                MessageType = "ack"
	MsgGameState          MessageType = "gameState"
	MsgPlayerJoined       MessageType = "playerJoined"
	MsgPlayerLeft         MessageType = "playerLeft"
	MsgPlayerPosition     MessageType = "playerPosition"
	MsgProjectileShot     MessageType = "projectileShot"
	MsgShopPurchaseFailed MessageType = "shopPurchaseFailed"
	MsgGameReset          MessageType = "gameReset"
	MsgQuickPlayJoined    MessageType = "quickPlayJoined"
	MsgQuickPlayWaiting   MessageType = "quickPlayWaiting"
	MsgQuickPlayReady     MessageType = "quickPlayReady"

	// Client -> Server messages
	MsgCreateRoom     MessageType = "createRoom"
	MsgJoinRoomByCode MessageType = "joinRoomByCode"
	MsgJoinRoom       MessageType = "joinRoom"
	MsgQuickPlay      MessageType = "quickPlay"
	MsgLeaveRoom      MessageType = "leaveRoom"
	MsgUpdatePosition MessageType = "updatePosition"
	MsgShoot          MessageType = "shoot"
	MsgGameOver       MessageType = "gameOver"
	MsgGameStateSync  MessageType = "gameStateSync"

	// Both directions: the client reports, the server rebroadcasts under the same name.
	MsgEnemyHit     MessageType = "enemyHit"
	MsgEnemyKilled  MessageType = "enemyKilled"
	MsgCoreHit      MessageType = "coreHit"
	MsgWaveComplete MessageType = "waveComplete"
	MsgEnemySpawned MessageType = "enemySpawned"
	MsgShopPurchase MessageType = "shopPurchase"
)

// Envelope is the top-level wire format for all outbound messages.
type Envelope struct {
	Type    MessageType `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
	Ack     int64       `json:"ack,omitempty"`
}

// RawEnvelope is an envelope whose payload has not been decoded yet.
type RawEnvelope struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Ack     int64           `json:"ack,omitempty"`
}

var ErrMissingType = errors.New("message type is required")

// Decode parses a single wire frame.
func Decode(data []byte) (RawEnvelope, error) {
	var env RawEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, err
	}
	if env.Type == "" {
		return env, ErrMissingType
	}
	return env, nil
}

// Bind decodes the payload into target. An absent payload leaves target untouched.
func (e RawEnvelope) Bind(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	return json.Unmarshal(e.Payload, target)
}

// --- Server -> Client payloads ---

// ConnectedPayload is sent when a client first connects.
type ConnectedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PlayerInfo is one room member in join order.
type PlayerInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomJoinedAck answers createRoom, joinRoomByCode and quickPlay.
type RoomJoinedAck struct {
	Success     bool         `json:"success"`
	RoomCode    string       `json:"roomCode,omitempty"`
	IsHost      bool         `json:"isHost"`
	Reason      string       `json:"reason,omitempty"`
	PlayerCount int          `json:"playerCount,omitempty"`
	Players     []PlayerInfo `json:"players,omitempty"`
}

// PlayerJoinedPayload tells existing members about a new one.
type PlayerJoinedPayload struct {
	PlayerID string `json:"playerId"`
	Name     string `json:"name"`
}

// PlayerLeftPayload tells remaining members that someone left.
type PlayerLeftPayload struct {
	PlayerID string `json:"playerId"`
}

// PlayerPositionPayload relays a transform to the other members.
type PlayerPositionPayload struct {
	PlayerID       string          `json:"playerId"`
	Position       json.RawMessage `json:"position,omitempty"`
	Rotation       json.RawMessage `json:"rotation,omitempty"`
	CameraRotation json.RawMessage `json:"cameraRotation,omitempty"`
}

// ProjectileShotPayload carries the projectile recorded by the server.
type ProjectileShotPayload struct {
	PlayerID   string     `json:"playerId"`
	Projectile Projectile `json:"projectile"`
}

// Projectile is the projectile record kept in the room state.
type Projectile struct {
	ID          string          `json:"id"`
	OwnerID     string          `json:"ownerId"`
	Position    json.RawMessage `json:"position,omitempty"`
	Velocity    json.RawMessage `json:"velocity,omitempty"`
	Radius      float64         `json:"radius"`
	Mass        float64         `json:"mass"`
	AmmoType    string          `json:"ammoType,omitempty"`
	ChargeLevel float64         `json:"chargeLevel"`
	FiredAt     int64           `json:"firedAt"`
}

// EnemyHitBroadcast relays a hit to the room.
type EnemyHitBroadcast struct {
	PlayerID   string  `json:"playerId"`
	EnemyIndex int     `json:"enemyIndex"`
	Damage     float64 `json:"damage"`
}

// EnemyKilledBroadcast carries the kill and the updated coin pool.
type EnemyKilledBroadcast struct {
	PlayerID   string          `json:"playerId"`
	EnemyIndex int             `json:"enemyIndex"`
	EnemyID    string          `json:"enemyId,omitempty"`
	Coins      int             `json:"coins"`
	TotalCoins int             `json:"totalCoins"`
	Position   json.RawMessage `json:"position,omitempty"`
}

// CoreHitBroadcast carries the updated core health.
type CoreHitBroadcast struct {
	Damage     float64 `json:"damage"`
	CoreHealth float64 `json:"coreHealth"`
}

// WaveCompleteBroadcast carries the new wave and the spawn hints.
type WaveCompleteBroadcast struct {
	Wave                   int   `json:"wave"`
	Bonus                  int   `json:"bonus"`
	TotalCoins             int   `json:"totalCoins"`
	EnemiesToSpawn         int   `json:"enemiesToSpawn"`
	SpeedyEnemiesToSpawn   int   `json:"speedyEnemiesToSpawn"`
	SplitterEnemiesToSpawn int   `json:"splitterEnemiesToSpawn"`
	NextSpawnTime          int64 `json:"nextSpawnTime"`
}

// ShopPurchaseBroadcast is sent to the whole room after a successful purchase.
type ShopPurchaseBroadcast struct {
	PlayerID   string `json:"playerId"`
	Type       string `json:"type"`
	Cost       int    `json:"cost"`
	TotalCoins int    `json:"totalCoins"`
}

// ShopPurchaseFailedPayload is sent only to the buyer.
type ShopPurchaseFailedPayload struct {
	Reason     string `json:"reason"`
	Type       string `json:"type"`
	Cost       int    `json:"cost"`
	TotalCoins int    `json:"totalCoins"`
}

// GameResetPayload carries the fresh state after gameOver.
type GameResetPayload struct {
	GameState interface{} `json:"gameState"`
}

// QuickPlayWaitingPayload reports the quick-play room roster.
type QuickPlayWaitingPayload struct {
	PlayerCount int          `json:"playerCount"`
	Players     []PlayerInfo `json:"players"`
}

// --- Client -> Server payloads ---

// JoinRoomPayload is sent by a client to join an existing room.
type JoinRoomPayload struct {
	RoomCode string `json:"roomCode"`
}

// UpdatePositionPayload is the sender's current transform.
type UpdatePositionPayload struct {
	Position       json.RawMessage `json:"position"`
	Rotation       json.RawMessage `json:"rotation"`
	CameraRotation json.RawMessage `json:"cameraRotation"`
}

// ShootPayload describes a fired projectile.
type ShootPayload struct {
	Position    json.RawMessage `json:"position"`
	Velocity    json.RawMessage `json:"velocity"`
	Radius      float64         `json:"radius"`
	Mass        float64         `json:"mass"`
	AmmoType    string          `json:"ammoType"`
	ChargeLevel float64         `json:"chargeLevel"`
}

// EnemyHitPayload reports damage dealt to an enemy.
type EnemyHitPayload struct {
	EnemyIndex int     `json:"enemyIndex"`
	Damage     float64 `json:"damage"`
}

// EnemyKilledPayload reports a kill and its coin reward.
type EnemyKilledPayload struct {
	EnemyIndex int             `json:"enemyIndex"`
	EnemyID    string          `json:"enemyId"`
	Coins      int             `json:"coins"`
	Position   json.RawMessage `json:"position"`
}

// CoreHitPayload reports damage to the core.
type CoreHitPayload struct {
	Damage float64 `json:"damage"`
}

// WaveCompletePayload reports the end of a wave.
type WaveCompletePayload struct {
	Bonus                  int `json:"bonus"`
	EnemiesToSpawn         int `json:"enemiesToSpawn"`
	SpeedyEnemiesToSpawn   int `json:"speedyEnemiesToSpawn"`
	SplitterEnemiesToSpawn int `json:"splitterEnemiesToSpawn"`
}

// EnemySpawnedPayload is the subset of the enemy descriptor the server keeps.
// The descriptor itself is relayed verbatim.
type EnemySpawnedPayload struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Position  json.RawMessage `json:"position"`
	Health    float64         `json:"health"`
	MaxHealth float64         `json:"maxHealth"`
	Speed     float64         `json:"speed"`
	Damage    float64         `json:"damage"`
	Radius    float64         `json:"radius"`
	Coins     int             `json:"coins"`
}

// ShopPurchasePayload is a purchase request.
type ShopPurchasePayload struct {
	Type string `json:"type"`
	Cost int    `json:"cost"`
}

// GameStateSyncPayload lets the host overwrite the shared counters.
type GameStateSyncPayload struct {
	Coins      int     `json:"coins"`
	CoreHealth float64 `json:"coreHealth"`
	Wave       int     `json:"wave"`
}

// --- HTTP types ---

// RoomInfo describes a room in the list-rooms response.
type RoomInfo struct {
	RoomCode    string `json:"roomCode"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	Wave        int    `json:"wave"`
	QuickPlay   bool   `json:"quickPlay"`
}

// ListRoomsResponse is returned by GET /rooms.
type ListRoomsResponse struct {
	Rooms []RoomInfo `json:"rooms"`
}
