package relay

import (
	"github.com/hersh/towerrelay/internal/protocol"
	"github.com/hersh/towerrelay/internal/room"
	"go.uber.org/zap"
)

func (h *Handler) createRoom(connID string, ack int64) {
	res := h.dir.CreateRoom(connID)
	h.log.Info("room created", zap.String("conn", connID), zap.String("room", res.Room.Code), zap.String("room_id", res.Room.ID))

	h.afterJoin(connID, ack, res)
}

func (h *Handler) joinRoomByCode(connID, code string, ack int64) {
	res, err := h.dir.JoinRoomByCode(connID, code)
	if err != nil {
		h.log.Info("join rejected", zap.String("conn", connID), zap.String("code", code), zap.Error(err))
		h.ack(connID, ack, protocol.RoomJoinedAck{
			Success:  false,
			RoomCode: room.NormalizeCode(code),
			Reason:   room.Reason(err),
		})
		return
	}
	h.log.Info("player joined room", zap.String("conn", connID), zap.String("room", res.Room.Code))

	h.afterJoin(connID, ack, res)
}

func (h *Handler) quickPlay(connID string, ack int64) {
	res := h.dir.QuickPlay(connID)
	h.log.Info("player quick played", zap.String("conn", connID), zap.String("room", res.Room.Code), zap.Int("players", len(res.Members)))

	h.afterJoin(connID, ack, res)
}

func (h *Handler) leaveRoom(connID string) {
	lr, ok := h.dir.Leave(connID)
	if !ok {
		return
	}
	h.log.Info("player left room", zap.String("conn", connID), zap.String("room", lr.RoomCode))
	h.notifyLeft(lr)
}

// afterJoin answers the joiner and brings the rest of the room up to date.
// It runs under the room lock so no gameplay broadcast lands between the
// snapshot and the join notifications.
func (h *Handler) afterJoin(connID string, ack int64, res room.JoinResult) {
	if res.Previous != nil {
		h.notifyLeft(*res.Previous)
	}

	reply := protocol.RoomJoinedAck{
		Success:     true,
		RoomCode:    res.Room.Code,
		IsHost:      res.IsHost,
		PlayerCount: len(res.Members),
		Players:     res.Members,
	}
	joiner := []string{connID}
	all := playerIDs(res.Members)
	others := make([]string, 0, len(all))
	for _, id := range all {
		if id != connID {
			others = append(others, id)
		}
	}

	h.dir.WithRoom(res.Room.ID, func(s *room.Scope) {
		h.ack(connID, ack, reply)
		h.send(joiner, protocol.Envelope{Type: protocol.MsgGameState, Payload: s.State})
		h.send(others, protocol.Envelope{
			Type:    protocol.MsgPlayerJoined,
			Payload: protocol.PlayerJoinedPayload{PlayerID: connID, Name: res.Player.Name},
		})

		if !res.Room.QuickPlay {
			return
		}
		h.send(joiner, protocol.Envelope{Type: protocol.MsgQuickPlayJoined, Payload: reply})
		h.send(all, protocol.Envelope{
			Type:    protocol.MsgQuickPlayWaiting,
			Payload: protocol.QuickPlayWaitingPayload{PlayerCount: len(res.Members), Players: res.Members},
		})
		if len(res.Members) < quickPlayStartSize {
			return
		}

		state := s.Reset()
		h.send(all, protocol.Envelope{Type: protocol.MsgGameState, Payload: state})
		h.send(all, protocol.Envelope{Type: protocol.MsgGameReset, Payload: protocol.GameResetPayload{GameState: state}})
		h.send(all, protocol.Envelope{Type: protocol.MsgQuickPlayReady})
		h.log.Info("quick play room ready", zap.String("room", res.Room.Code), zap.Int("players", len(res.Members)))
	})
}

func (h *Handler) notifyLeft(lr room.LeaveResult) {
	remaining := lr.RemainingIDs()

	h.dir.WithRoom(lr.RoomID, func(s *room.Scope) {
		h.send(remaining, protocol.Envelope{
			Type:    protocol.MsgPlayerLeft,
			Payload: protocol.PlayerLeftPayload{PlayerID: lr.PlayerID},
		})
		if lr.QuickPlay {
			h.send(remaining, protocol.Envelope{
				Type:    protocol.MsgQuickPlayWaiting,
				Payload: protocol.QuickPlayWaitingPayload{PlayerCount: len(lr.Remaining), Players: lr.Remaining},
			})
		}
	})

	if !lr.WasHost {
		return
	}
	if host, ok := h.dir.Host(lr.RoomID); ok {
		h.log.Info("host transferred", zap.String("room", lr.RoomCode), zap.String("from", lr.PlayerID), zap.String("to", host))
	}
}
