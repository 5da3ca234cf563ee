package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/auction-arena/cricket-auction-backend/internal/engine"
	"github.com/auction-arena/cricket-auction-backend/internal/registry"
	"github.com/auction-arena/cricket-auction-backend/internal/room"
	"github.com/auction-arena/cricket-auction-backend/pkg/types"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

// Handler upgrades a connection and relays commands to the registry/rooms.
// The stable user identity rides on the uid query param; it is what team
// state is keyed by, so a client that reconnects with the same uid resumes
// its team. A missing uid gets a generated one (returned in joinedRoom).
func Handler(reg *registry.Registry, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid := r.URL.Query().Get("uid")
		if uid == "" {
			uid = uuid.NewString()
		}

		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		connID := uuid.NewString()
		out := make(chan types.ServerMessage, outboxSize)
		log.Debug("client connected", zap.String("uid", uid), zap.String("conn", connID))
		defer log.Debug("client disconnected", zap.String("conn", connID))

		// Writer goroutine: rooms close the outbox on disconnect, shutdown,
		// or when a client is too slow, which ends the loop. The context
		// select covers a connection that never attached to a room.
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for {
				select {
				case msg, ok := <-out:
					if !ok {
						return
					}
					payload, err := json.Marshal(msg)
					if err != nil {
						continue
					}
					ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
					_ = conn.Write(ctx, websocket.MessageText, payload)
					cancel()
				case <-writeCtx.Done():
					return
				}
			}
		}()

		var cur *room.Room
		defer func() {
			if cur != nil {
				select {
				case cur.Inbox() <- room.Leave{ConnID: connID}:
				case <-cur.Done():
				}
			}
		}()

		sendErr := func(text string) {
			payload, _ := json.Marshal(types.ServerMessage{Type: "errorMessage", Error: text})
			ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
			_ = conn.Write(ctx, websocket.MessageText, payload)
			cancel()
		}

		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
					return
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				sendErr("bad json")
				continue
			}

			switch cm.Type {
			case "createRoom":
				reply := make(chan *room.Room, 1)
				reg.Inbox() <- registry.CreateRoom{
					HostID: uid, TeamName: cm.TeamName, Purse: cm.Purse, Reply: reply,
				}
				rm := <-reply
				detach(cur, connID)
				cur = rm
				rm.Inbox() <- room.Join{
					ConnID: connID, Identity: uid, TeamName: cm.TeamName, Created: true, Outbox: out,
				}

			case "joinRoom":
				reply := make(chan *room.Room, 1)
				reg.Inbox() <- registry.JoinRoom{RoomID: cm.RoomID, Identity: uid, Reply: reply}
				rm := <-reply
				if rm == nil {
					sendErr("room " + cm.RoomID + " not found")
					continue
				}
				detach(cur, connID)
				cur = rm
				rm.Inbox() <- room.Join{
					ConnID: connID, Identity: uid, TeamName: cm.TeamName, Outbox: out,
				}

			case "rejoinGame":
				var rm *room.Room
				reply := make(chan *room.Room, 1)
				if cm.RoomID != "" {
					reg.Inbox() <- registry.JoinRoom{RoomID: cm.RoomID, Identity: uid, Reply: reply}
				} else {
					reg.Inbox() <- registry.ResolveSession{Identity: uid, Reply: reply}
				}
				rm = <-reply
				if rm == nil {
					sendErr("no game to rejoin")
					continue
				}
				detach(cur, connID)
				cur = rm
				rm.Inbox() <- room.Join{
					ConnID: connID, Identity: uid, Rejoin: true, Outbox: out,
				}

			case "leaveRoom":
				if cur == nil {
					continue
				}
				// Rebind keeps the outbox usable for a later create/join on
				// this same connection.
				cur.Inbox() <- room.Leave{ConnID: connID, Rebind: true}
				reg.Inbox() <- registry.LeaveRoom{RoomID: cur.ID(), Identity: uid}
				cur = nil

			default:
				cmd, ok := toEngineCommand(cm, uid)
				if !ok {
					sendErr("unknown type " + cm.Type)
					continue
				}
				if cur == nil {
					sendErr("join a room first")
					continue
				}
				cur.Inbox() <- room.FromClient{Cmd: cmd}
			}
		}
	}
}

// detach drops the connection's registration with its previous room before
// it attaches elsewhere; the outbox stays open for the next room.
func detach(cur *room.Room, connID string) {
	if cur != nil {
		cur.Inbox() <- room.Leave{ConnID: connID, Rebind: true}
	}
}

func toEngineCommand(m types.ClientMessage, uid string) (engine.Command, bool) {
	switch m.Type {
	case "startAuction":
		return engine.Command{Type: engine.CmdStartAuction, TeamID: uid}, true
	case "placeBid":
		return engine.Command{Type: engine.CmdPlaceBid, TeamID: uid, Amount: m.Amount}, true
	case "skip":
		return engine.Command{Type: engine.CmdSkip, TeamID: uid}, true
	case "finishBiddingForMe":
		return engine.Command{Type: engine.CmdFinishBidding, TeamID: uid}, true
	case "submitLineup":
		return engine.Command{
			Type:          engine.CmdSubmitLineup,
			TeamID:        uid,
			PlayerIDs:     m.PlayerIDs,
			CaptainID:     m.CaptainID,
			ViceCaptainID: m.ViceCaptainID,
		}, true
	default:
		return engine.Command{}, false
	}
}
