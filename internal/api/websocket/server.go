package websocket

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fortuna/pythia/internal/service"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server answers prediction queries over WebSocket
type Server struct {
	port        string
	server      *http.Server
	hub         *Hub
	predictions *service.PredictionService
}

// NewServer creates a new WebSocket server on port
func NewServer(port string, predictions *service.PredictionService) *Server {
	s := &Server{
		port:        port,
		hub:         NewHub(),
		predictions: predictions,
	}
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%s", port),
		Handler: s.Handler(),
	}
	return s
}

// Handler returns the WebSocket routes
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/predict", s.handlePredict)
	mux.HandleFunc("/ws/health", s.handleHealth)
	return mux
}

// Start starts the WebSocket server
func (s *Server) Start() error {
	log.Printf("WebSocket server listening on :%s", s.port)
	return s.server.ListenAndServe()
}

// handlePredict upgrades the connection and serves queries until the client leaves
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("Failed to upgrade connection: %v", err)
		return
	}

	client := &Client{
		hub:         s.hub,
		conn:        conn,
		send:        make(chan []byte, 16),
		done:        make(chan struct{}),
		predictions: s.predictions,
	}
	s.hub.register(client)

	// Start client goroutines
	go client.writePump()
	go client.readPump()
}

// handleHealth returns WebSocket server health status
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "healthy", "clients": %d}`, s.hub.ClientCount())
}

// Shutdown gracefully shuts down the server and closes open connections
func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.CloseAll()
	return s.server.Shutdown(ctx)
}

// shutdownGrace bounds how long a closing connection waits for its close frame.
const shutdownGrace = time.Second
