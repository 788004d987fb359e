package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hersh/towerrelay/internal/protocol"
	"github.com/hersh/towerrelay/internal/room"
	"go.uber.org/zap"
)

// quickPlayStartSize is the head count from which every quick-play join
// restarts the room's match so all clients begin from the same spawn state.
const quickPlayStartSize = 2

// Emitter delivers an encoded message to a set of connections.
type Emitter interface {
	Deliver(connIDs []string, data []byte) error
}

// Handler dispatches inbound events for every connection. Each event is handled
// to completion on the caller's goroutine.
type Handler struct {
	dir *room.Directory
	out Emitter
	log *zap.Logger
}

func NewHandler(dir *room.Directory, out Emitter, logger *zap.Logger) *Handler {
	return &Handler{
		dir: dir,
		out: out,
		log: logger,
	}
}

// Connect registers a new connection and tells it its id.
func (h *Handler) Connect(connID string) {
	p := h.dir.Connect(connID)
	h.log.Info("player connected", zap.String("conn", connID))

	h.send([]string{connID}, protocol.Envelope{
		Type:    protocol.MsgConnected,
		Payload: protocol.ConnectedPayload{PlayerID: p.ConnID, Name: p.Name},
	})
}

// Disconnect drops the connection's player and notifies its room.
func (h *Handler) Disconnect(connID string) {
	lr, ok := h.dir.Disconnect(connID)
	if !ok {
		h.log.Info("player disconnected (no room)", zap.String("conn", connID))
		return
	}
	h.log.Info("player disconnected", zap.String("conn", connID), zap.String("room", lr.RoomCode))
	h.notifyLeft(lr)
}

// Handle dispatches one inbound event. Errors are returned for payloads that
// cannot be decoded and for events arriving after ctx is done; gameplay events
// from roomless players are dropped.
func (h *Handler) Handle(ctx context.Context, connID string, env protocol.RawEnvelope) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("handling %s: %w", env.Type, err)
	}

	switch env.Type {
	case protocol.MsgCreateRoom:
		h.createRoom(connID, env.Ack)

	case protocol.MsgJoinRoomByCode, protocol.MsgJoinRoom:
		h.joinRoomByCode(connID, decodeRoomCode(env), env.Ack)

	case protocol.MsgQuickPlay:
		h.quickPlay(connID, env.Ack)

	case protocol.MsgLeaveRoom:
		h.leaveRoom(connID)

	case protocol.MsgUpdatePosition:
		var payload protocol.UpdatePositionPayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.updatePosition(connID, payload)

	case protocol.MsgShoot:
		var payload protocol.ShootPayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.shoot(connID, payload)

	case protocol.MsgEnemyHit:
		var payload protocol.EnemyHitPayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.enemyHit(connID, payload)

	case protocol.MsgEnemyKilled:
		var payload protocol.EnemyKilledPayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.enemyKilled(connID, payload)

	case protocol.MsgCoreHit:
		var payload protocol.CoreHitPayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.coreHit(connID, payload)

	case protocol.MsgWaveComplete:
		var payload protocol.WaveCompletePayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.waveComplete(connID, payload)

	case protocol.MsgEnemySpawned:
		var payload protocol.EnemySpawnedPayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.enemySpawned(connID, payload, env.Payload)

	case protocol.MsgShopPurchase:
		var payload protocol.ShopPurchasePayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.shopPurchase(connID, payload)

	case protocol.MsgGameOver:
		h.gameOver(connID)

	case protocol.MsgGameStateSync:
		var payload protocol.GameStateSyncPayload
		if err := env.Bind(&payload); err != nil {
			return fmt.Errorf("decoding %s: %w", env.Type, err)
		}
		h.gameStateSync(connID, payload)

	default:
		h.log.Debug("unknown message type", zap.String("conn", connID), zap.String("type", string(env.Type)))
	}

	return nil
}

// decodeRoomCode accepts either {"roomCode": "..."} or a bare string payload.
// Any other shape yields "", which the directory rejects as an invalid code.
func decodeRoomCode(env protocol.RawEnvelope) string {
	var code string
	if json.Unmarshal(env.Payload, &code) == nil {
		return code
	}
	var payload protocol.JoinRoomPayload
	if env.Bind(&payload) != nil {
		return ""
	}
	return payload.RoomCode
}

// --- Delivery helpers ---

func (h *Handler) encode(env protocol.Envelope) []byte {
	data, err := json.Marshal(env)
	if err != nil {
		h.log.Error("marshal error", zap.String("type", string(env.Type)), zap.Error(err))
		return nil
	}
	return data
}

func (h *Handler) deliver(targets []string, data []byte) {
	if len(targets) == 0 || data == nil {
		return
	}
	if err := h.out.Deliver(targets, data); err != nil {
		h.log.Warn("delivery failed", zap.Strings("targets", targets), zap.Error(err))
	}
}

func (h *Handler) send(targets []string, env protocol.Envelope) {
	h.deliver(targets, h.encode(env))
}

func (h *Handler) ack(connID string, ack int64, payload interface{}) {
	h.send([]string{connID}, protocol.Envelope{
		Type:    protocol.MsgAck,
		Ack:     ack,
		Payload: payload,
	})
}

// inRoom runs fn under the sender's room lock. Everything fn sends is
// delivered before the lock is released, so each member sees a room's
// broadcasts in the order its state changed. Events from players without a
// room are dropped.
func (h *Handler) inRoom(connID string, event protocol.MessageType, fn func(s *room.Scope)) {
	if !h.dir.WithPlayerRoom(connID, fn) {
		h.log.Debug("dropping event from player without room", zap.String("conn", connID), zap.String("type", string(event)))
	}
}

func playerIDs(infos []protocol.PlayerInfo) []string {
	ids := make([]string, len(infos))
	for i, p := range infos {
		ids[i] = p.ID
	}
	return ids
}

func newProjectileID(connID string, now time.Time) string {
	return fmt.Sprintf("%s_%d_%s", connID, now.UnixMilli(), uuid.NewString()[:8])
}
