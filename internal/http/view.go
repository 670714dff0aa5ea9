package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// rendererEvent is what the rendering layer reports back: video playback
// outcomes and standby visibility changes.
type rendererEvent struct {
	Type   string `json:"type"`
	Active *bool  `json:"active,omitempty"`
}

// viewSocket streams standby View snapshots to the renderer and consumes its
// playback events. One connection per renderer; a slow renderer is dropped
// by the engine rather than allowed to stall rotation.
func (s *Server) viewSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	id, views, cancel := s.engine.Subscribe()
	defer cancel()
	log.Info().Str("subscriber", id.String()).Msg("renderer connected")

	// current selection first so the renderer paints immediately, then the
	// change stream; the pump goroutine is the sole writer after this point
	if err := conn.WriteJSON(s.engine.CurrentView()); err != nil {
		return
	}
	go func() {
		for view := range views {
			if err := conn.WriteJSON(view); err != nil {
				return
			}
		}
	}()

	for {
		var event rendererEvent
		if err := conn.ReadJSON(&event); err != nil {
			log.Info().Str("subscriber", id.String()).Msg("renderer disconnected")
			return
		}
		switch event.Type {
		case "video_ended":
			s.engine.VideoEnded()
		case "video_error":
			s.engine.VideoError()
		case "standby":
			if event.Active != nil {
				s.engine.SetActive(*event.Active)
			}
		default:
			log.Debug().Str("type", event.Type).Msg("unknown renderer event")
		}
	}
}
