package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fortuna/pythia/internal/service"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	queryTimeout   = 30 * time.Second
)

// Message types sent to clients.
const (
	TypePrediction = "prediction"
	TypeError      = "error"
)

// Envelope is every message sent to a client.
type Envelope struct {
	Type       string              `json:"type"`
	Prediction *service.Prediction `json:"prediction,omitempty"`
	Error      string              `json:"error,omitempty"`
	Kind       string              `json:"kind,omitempty"`
	Details    string              `json:"details,omitempty"`
}

// Client is one connection to /ws/predict
type Client struct {
	hub         *Hub
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{} // closed when writePump exits
	predictions *service.PredictionService
}

// readPump answers each incoming query in order
func (c *Client) readPump() {
	defer func() {
		c.hub.unregister(c)
		close(c.send)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warnf("WebSocket error: %v", err)
			}
			return
		}

		data, err := json.Marshal(c.handle(message))
		if err != nil {
			log.Errorf("Failed to marshal reply: %v", err)
			continue
		}
		select {
		case c.send <- data:
		case <-c.done:
			return
		}
	}
}

func (c *Client) handle(message []byte) Envelope {
	var q service.Query
	if err := json.Unmarshal(message, &q); err != nil {
		return Envelope{Type: TypeError, Error: "invalid query", Kind: "bad_request", Details: err.Error()}
	}

	ctx, cancel := context.WithTimeout(context.Background(), queryTimeout)
	defer cancel()

	pred, err := c.predictions.Predict(ctx, q)
	if err != nil {
		var qe *service.QueryError
		if errors.As(err, &qe) {
			env := Envelope{Type: TypeError, Error: qe.Kind.Error(), Kind: qe.Code()}
			if qe.Cause != nil {
				env.Details = qe.Cause.Error()
			}
			return env
		}
		return Envelope{Type: TypeError, Error: err.Error(), Kind: "internal"}
	}
	return Envelope{Type: TypePrediction, Prediction: pred}
}

// writePump delivers replies and keeps the connection alive
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		close(c.done)
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
