package handler

import (
	"net/http"

	"github.com/gorilla/websocket"

	"yolodemo/internal/logger"
	"yolodemo/internal/service"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// StreamHandler registers a viewer with the hub. The viewer receives its id
// in a hello message and passes it as "client" on uploads to watch frames
// arrive one by one.
func StreamHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		hub := manager.GetWebsocketService()
		id, ok := hub.Register(connection)
		if !ok {
			connection.Close()
			return
		}
		defer hub.Unregister(id)

		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Info("Viewer %s disconnected normally", id)
				} else {
					logger.Warning("Viewer %s disconnected: %v", id, err)
				}
				return
			}
		}
	}
}
