package server

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/metrics"
)

const (
	writeWait  = 5 * time.Second
	pingPeriod = 30 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

// Subscriber publishes processed frames.
type Subscriber interface {
	Subscribe() (<-chan app.Update, func())
}

// ResultsHandler streams frame results to websocket clients.
type ResultsHandler struct {
	source  Subscriber
	metrics *metrics.Manager
}

// NewResultsHandler creates a new ResultsHandler. metrics may be nil.
func NewResultsHandler(source Subscriber, m *metrics.Manager) *ResultsHandler {
	return &ResultsHandler{source: source, metrics: m}
}

// ServeHTTP upgrades the connection and forwards every update as JSON until
// the client goes away.
func (h *ResultsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("websocket upgrade error: %s", err)
		return
	}
	defer conn.Close()

	updates, cancel := h.source.Subscribe()
	defer cancel()

	if h.metrics != nil {
		h.metrics.GaugeWSClients.Inc()
		defer h.metrics.GaugeWSClients.Dec()
	}

	// The read loop only detects the client closing the connection.
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case u, ok := <-updates:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(u); err != nil {
				log.Debugf("websocket write: %s", err)
				return
			}
		}
	}
}
