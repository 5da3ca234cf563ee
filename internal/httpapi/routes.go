package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/auction-arena/cricket-auction-backend/internal/registry"
	"github.com/auction-arena/cricket-auction-backend/internal/ws"
)

func SetupRoutes(reg *registry.Registry, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Post("/rooms", CreateRoom(reg))
	r.Get("/rooms/{id}", RoomInfo(reg))
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(reg, log))
	return r
}
