package controllers

import (
	"net/http"
	"time"

	"renalscan/middlewares"
	"renalscan/services"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type RealtimeController struct {
	RT *services.RealtimeHub
}

// constructor
func NewRealtimeController(rt *services.RealtimeHub) *RealtimeController {
	return &RealtimeController{RT: rt}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // tighten behind ALB/CloudFront if needed
}

const pingEvery = 25 * time.Second

func (rc *RealtimeController) AlertsWS(c *gin.Context) {
	personID := middlewares.PersonID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := &services.WSClient{PersonID: personID, Conn: conn}
	rc.RT.Register(cl)

	done := make(chan struct{})
	defer func() {
		close(done)
		rc.RT.Unregister(cl)
	}()

	// WriteControl may run alongside the hub's writes
	go func() {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
					return
				}
			}
		}
	}()

	// read loop ends on client close/error
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
