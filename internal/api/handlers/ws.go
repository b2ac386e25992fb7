package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"

	apierrors "github.com/bigkaa/moviecatalog/internal/api/errors"
	"github.com/bigkaa/moviecatalog/internal/broadcast"
)

// WSHandler подключает WebSocket-клиентов к хабу.
// GET /ws?topic=/topic/movies&topic=... ; без topic — подписка на все топики.
type WSHandler struct {
	hub      *broadcast.Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewWSHandler создаёт обработчик. Принимаются соединения без Origin
// (не из браузера) и с Origin, равным allowedOrigin.
func NewWSHandler(hub *broadcast.Hub, allowedOrigin string, logger *slog.Logger) *WSHandler {
	return &WSHandler{
		hub: hub,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || origin == allowedOrigin
			},
		},
		logger: logger.With(slog.String("component", "ws_handler")),
	}
}

// ServeHTTP выполняет апгрейд соединения и регистрирует клиента.
func (h *WSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	topics := r.URL.Query()["topic"]
	for _, t := range topics {
		if !broadcast.IsTopic(t) {
			apierrors.ValidationError(w, "Неизвестный топик: "+t)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrader уже записал ответ с ошибкой
		h.logger.Warn("Ошибка апгрейда WebSocket",
			slog.String("remote_addr", r.RemoteAddr),
			slog.String("error", err.Error()),
		)
		return
	}

	client := broadcast.NewClient(h.hub, conn, topics)
	client.Start()
	h.logger.Debug("WebSocket-клиент подключён",
		slog.Uint64("client_id", client.ID()),
		slog.Any("topics", topics),
	)
}
