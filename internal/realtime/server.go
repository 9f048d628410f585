package realtime

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/nimasrn/seva-booking/internal/model"
	"github.com/nimasrn/seva-booking/pkg/auth"
	"github.com/rs/zerolog/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

var tables = map[string]bool{
	"":                        true,
	"*":                       true,
	model.TableProfiles:       true,
	model.TableSevas:          true,
	model.TableDonors:         true,
	model.TablePaymentHistory: true,
	model.TableReferrals:      true,
}

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

type Handler struct {
	hub      *Hub
	tokens   TokenParser
	upgrader websocket.Upgrader
}

func NewHandler(hub *Hub, tokens TokenParser, origins []string) *Handler {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return &Handler{
		hub:    hub,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowed["*"] || allowed[origin]
			},
		},
	}
}

// SetupRouter builds the gin engine of the realtime binary.
func SetupRouter(h *Handler, origins []string) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger)
	router.Use(cors.New(corsConfig(origins)))

	router.GET("/health", h.Health)
	router.GET("/ws", h.Subscribe)
	return router
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods: []string{"GET", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Authorization"},
		MaxAge:       12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func requestLogger(c *gin.Context) {
	start := time.Now()
	c.Next()
	log.Info().
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Int("status", c.Writer.Status()).
		Dur("duration", time.Since(start)).
		Msg("Request processed")
}

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"clients": h.hub.ClientCount(),
	})
}

// Subscribe upgrades to a websocket that receives change events.
// Query: token (required), table, seva_id.
func (h *Handler) Subscribe(c *gin.Context) {
	claims, err := h.tokens.Parse(c.Query("token"))
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token", "kind": "authorization"})
		return
	}
	userID, _ := claims.UserID()

	table := c.Query("table")
	if !tables[table] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown table " + table, "kind": "validation"})
		return
	}
	var sevaID *uuid.UUID
	if v := c.Query("seva_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "seva_id must be a uuid", "kind": "validation"})
			return
		}
		sevaID = &id
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	sub := NewSubscriber(userID, table, sevaID)
	h.hub.Register(sub)
	defer sub.Close()
	log.Info().Str("user_id", userID.String()).Str("table", table).Msg("subscriber connected")

	go writePump(sub, conn)
	readPump(conn)
	log.Info().Str("user_id", userID.String()).Msg("subscriber disconnected")
}

func writePump(s *Subscriber, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-s.Send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// closed by the hub: ask the client to reconnect and re-fetch
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "resync"))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards client frames; it only exists to notice the close.
func readPump(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
