package web

import (
	"net/http"

	"github.com/gorilla/websocket"
)

// upgrader handles the status websocket. The dashboard is same-origin only,
// so any origin is accepted.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}
