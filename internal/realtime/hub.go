package realtime

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"

	"github.com/flowiq/scheduling-platform/internal/tenancy"
	"github.com/flowiq/scheduling-platform/pkg/logging"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// Hub bridges the redis slot feed onto websocket connections. Each
// connection subscribes to its tenant's channel; dashboards see booking
// state change without polling.
type Hub struct {
	client   *redis.Client
	upgrader websocket.Upgrader
	logger   *logging.Logger
}

// NewHub creates a websocket hub, or nil when redis is not configured.
func NewHub(client *redis.Client, allowedOrigins []string, logger *logging.Logger) *Hub {
	if client == nil {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	allow := make(map[string]struct{}, len(allowedOrigins))
	allowAny := false
	for _, origin := range allowedOrigins {
		if origin == "*" {
			allowAny = true
		}
		allow[origin] = struct{}{}
	}
	return &Hub{
		client: client,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" || allowAny {
					return true
				}
				_, ok := allow[origin]
				return ok
			},
		},
		logger: logger.Component("realtime.hub"),
	}
}

// ServeFeed upgrades the request and streams the tenant's slot events until
// the client goes away.
// GET /calendar/feed
func (h *Hub) ServeFeed(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenancy.FromContext(r.Context())
	if !ok {
		http.Error(w, `{"error": "tenant not resolved"}`, http.StatusInternalServerError)
		return
	}
	if !tc.Features.RealtimeFeed {
		http.Error(w, `{"error": "realtime feed not enabled for tenant"}`, http.StatusForbidden)
		return
	}

	sub, err := Subscribe(r.Context(), h.client, tc.TenantID)
	if err != nil {
		h.logger.Error("feed subscribe failed", "error", err, "tenant_id", tc.TenantID)
		http.Error(w, `{"error": "feed unavailable"}`, http.StatusServiceUnavailable)
		return
	}
	defer func() { _ = sub.Close() }()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		h.logger.Warn("websocket upgrade failed", "error", err, "tenant_id", tc.TenantID)
		return
	}
	defer func() { _ = conn.Close() }()

	h.logger.Info("feed subscriber connected", "tenant_id", tc.TenantID, "remote", r.RemoteAddr)

	// Reader goroutine: drains client frames and signals disconnect.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case msg, open := <-sub.Channel():
			if !open {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				h.logger.Debug("feed write failed", "error", err, "tenant_id", tc.TenantID)
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
