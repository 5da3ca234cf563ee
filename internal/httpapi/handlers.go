package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/auction-arena/cricket-auction-backend/internal/registry"
	"github.com/auction-arena/cricket-auction-backend/internal/room"
)

// CreateRoom creates a room over plain HTTP; the host then connects to /ws
// with the returned host id and rejoins. The websocket createRoom command is
// the usual path, this one exists for clients that want the code up front.
func CreateRoom(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			HostID   string  `json:"host_id"`
			TeamName string  `json:"team_name"`
			Purse    float64 `json:"purse"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.TeamName == "" {
			http.Error(w, "team_name is required", http.StatusBadRequest)
			return
		}
		if req.HostID == "" {
			req.HostID = uuid.NewString()
		}

		reply := make(chan *room.Room, 1)
		reg.Inbox() <- registry.CreateRoom{
			HostID: req.HostID, TeamName: req.TeamName, Purse: req.Purse, Reply: reply,
		}
		rm := <-reply
		if rm == nil {
			http.Error(w, "failed to create room", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(struct {
			RoomID string `json:"room_id"`
			HostID string `json:"host_id"`
		}{RoomID: rm.ID(), HostID: req.HostID})
	}
}

// RoomInfo returns a redacted view for join screens.
func RoomInfo(reg *registry.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		reply := make(chan *room.Room, 1)
		reg.Inbox() <- registry.GetRoom{ID: id, Reply: reply}
		rm := <-reply
		if rm == nil {
			http.Error(w, "room not found", http.StatusNotFound)
			return
		}

		stateReply := make(chan room.View, 1)
		rm.Inbox() <- room.GetState{Reply: stateReply}
		view := <-stateReply

		teams := make([]string, 0, len(view.State.Order))
		for _, tid := range view.State.Order {
			if t := view.State.Teams[tid]; t != nil {
				teams = append(teams, t.Name)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(struct {
			RoomID    string   `json:"room_id"`
			Phase     string   `json:"phase"`
			Teams     []string `json:"teams"`
			PoolIndex int      `json:"pool_index"`
			PoolSize  int      `json:"pool_size"`
		}{
			RoomID:    id,
			Phase:     string(view.State.Phase),
			Teams:     teams,
			PoolIndex: view.State.Auction.Index,
			PoolSize:  len(view.State.Auction.Pool),
		})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
