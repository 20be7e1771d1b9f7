package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/hoosierprep/sessiond/internal/session"
	ws "github.com/hoosierprep/sessiond/internal/websocket"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// WSHandler streams session mutations over a WebSocket so the rendering
// layer can answer, save, and submit without per-action HTTP round trips.
type WSHandler struct {
	store       *session.Store
	coordinator *session.Coordinator
	submitter   *session.Submitter
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(store *session.Store, coordinator *session.Coordinator, submitter *session.Submitter, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		store:       store,
		coordinator: coordinator,
		submitter:   submitter,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// SessionStream godoc
// WS /ws/v1/session/stream
// Upgrades to WebSocket for low-latency answer recording and submission.
func (h *WSHandler) SessionStream(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	h.log.Info().Msg("Stream connected")

	for {
		var msg ws.RequestPayload
		err := ws.ReadJSON(conn, &msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Warn().Err(err).Msg("Unexpected close")
			} else {
				h.log.Debug().Msg("Stream closed")
			}
			break
		}

		switch msg.Action {
		case ws.ActionAnswer:
			h.handleAnswer(conn, &msg)
		case ws.ActionSave:
			h.handleSave(conn)
		case ws.ActionSubmit:
			h.handleSubmit(conn, msg.APIKey)
		case ws.ActionPing:
			ws.WriteTyped(conn, ws.PongResponse{Event: ws.EventPong})
		default:
			h.log.Warn().Str("action", string(msg.Action)).Msg("Unknown action")
			ws.WriteError(conn, "unknown action: "+string(msg.Action))
		}
	}
}

func (h *WSHandler) handleAnswer(conn *websocket.Conn, msg *ws.RequestPayload) {
	if err := h.store.SetAnswer(msg.QuestionID, msg.Value); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	dirty, _, _ := h.store.GuardState()
	ws.WriteTyped(conn, ws.AckResponse{Event: ws.EventAck, Dirty: dirty})
}

func (h *WSHandler) handleSave(conn *websocket.Conn) {
	if err := h.coordinator.Save(context.Background()); err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	dirty, _, _ := h.store.GuardState()
	ws.WriteTyped(conn, ws.SavedResponse{Event: ws.EventSaved, Dirty: dirty})
}

func (h *WSHandler) handleSubmit(conn *websocket.Conn, apiKey string) {
	result, err := h.submitter.Submit(context.Background(), apiKey)
	if err != nil {
		ws.WriteError(conn, err.Error())
		return
	}

	ws.WriteTyped(conn, ws.GradedResponse{
		Event:     ws.EventGraded,
		AttemptID: result.AttemptID,
		ScorePct:  result.ScorePct,
	})
}
