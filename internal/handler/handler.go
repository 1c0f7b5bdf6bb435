// Package handler implements the HTTP and WebSocket endpoints of the
// gateway.
package handler

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"imagetrans/internal/blob"
	"imagetrans/internal/dispatch"
	"imagetrans/internal/domain/repositories"
	"imagetrans/internal/middleware"
	"imagetrans/internal/scrape"
)

// Handler carries the dependencies of all routes.
type Handler struct {
	dispatcher *dispatch.Dispatcher
	tasks      repositories.TaskRepository
	images     repositories.SourceImageRepository
	store      blob.Store
	twitter    *scrape.Twitter
	pixiv      *scrape.Pixiv
	secret     string
	upgrader   websocket.Upgrader
	log        *zap.Logger
}

// New creates the route handler. secret authenticates worker connections.
func New(
	dispatcher *dispatch.Dispatcher,
	tasks repositories.TaskRepository,
	images repositories.SourceImageRepository,
	store blob.Store,
	twitter *scrape.Twitter,
	pixiv *scrape.Pixiv,
	secret string,
	log *zap.Logger,
) *Handler {
	return &Handler{
		dispatcher: dispatcher,
		tasks:      tasks,
		images:     images,
		store:      store,
		twitter:    twitter,
		pixiv:      pixiv,
		secret:     secret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// Workers and other non-browser clients send no origin.
				return origin == "" || middleware.AllowedOrigin(origin)
			},
		},
		log: log,
	}
}
