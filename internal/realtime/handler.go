// internal/realtime/handler.go
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/storefront/internal/cart"
	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/pricing"
	"github.com/javajoker/storefront/internal/store"
	"github.com/javajoker/storefront/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// Message is one pushed snapshot. Cart and wishlist carry decoded line items
// (and a quote for the cart); other collections carry their raw documents.
type Message struct {
	Collection string            `json:"collection"`
	Cart       *CartSnapshot     `json:"cart,omitempty"`
	Records    []json.RawMessage `json:"records,omitempty"`
	SentAt     time.Time         `json:"sent_at"`
}

type Handler struct {
	docs     store.DocumentStore
	engine   *pricing.Engine
	upgrader websocket.Upgrader
}

func NewHandler(docs store.DocumentStore, engine *pricing.Engine, allowedOrigins []string) *Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Handler{
		docs:   docs,
		engine: engine,
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

func knownCollection(name string) bool {
	for _, c := range store.Collections {
		if c == name {
			return true
		}
	}
	return false
}

// Stream upgrades the request and pushes the caller's collection until the
// client disconnects.
func (h *Handler) Stream(c *gin.Context) {
	userID, ok := utils.GetUserIDFromContext(c)
	if !ok {
		utils.UnauthorizedResponse(c, "")
		return
	}
	collection := c.Param("collection")
	if !knownCollection(collection) {
		utils.NotFoundResponse(c, "collection")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Debug("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	out := make(chan Message, 1)
	stop, err := h.subscribe(ctx, userID, collection, func(m Message) { offer(out, m) })
	if err != nil {
		logrus.WithError(err).WithField("user_id", userID).Error("Realtime subscription failed")
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscription failed"),
			time.Now().Add(writeWait))
		return
	}
	defer stop()

	go h.writeLoop(ctx, cancel, conn, out)

	// Clients only send pongs and close frames; the read loop notices
	// disconnects.
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (h *Handler) subscribe(ctx context.Context, userID, collection string, send func(Message)) (func(), error) {
	switch collection {
	case models.CollectionCart, models.CollectionWishlist:
		_, stop, err := WatchCart(ctx, h.docs, userID, cart.Kind(collection), h.engine, func(s CartSnapshot) {
			send(Message{Collection: collection, Cart: &s, SentAt: time.Now().UTC()})
		})
		return stop, err
	}

	push := func(records []store.Record) {
		raw := make([]json.RawMessage, 0, len(records))
		for _, r := range records {
			raw = append(raw, r.Data)
		}
		send(Message{Collection: collection, Records: raw, SentAt: time.Now().UTC()})
	}

	records, err := h.docs.GetCollection(ctx, userID, collection)
	if err != nil {
		return nil, models.WrapCollaborator("document store", "load "+collection, err)
	}
	push(records)

	stop, err := h.docs.Subscribe(ctx, userID, collection, push)
	if err != nil {
		return nil, models.WrapCollaborator("document store", "subscribe "+collection, err)
	}
	return stop, nil
}

func (h *Handler) writeLoop(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, out <-chan Message) {
	defer func() {
		cancel()
		conn.Close()
	}()
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		case msg := <-out:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

// offer keeps only the newest snapshot when the client falls behind; every
// message is a full snapshot, so skipped ones carry nothing extra.
func offer(out chan Message, m Message) {
	for {
		select {
		case out <- m:
			return
		default:
		}
		select {
		case <-out:
		default:
		}
	}
}
