package websocket

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"yolodemo/internal/logger"
)

// Message types pushed to viewers.
const (
	MessageHello  = "hello"
	MessageNotice = "notice"
	MessageFrame  = "frame"
	MessageDone   = "done"
	MessageError  = "error"
)

// Message is the JSON envelope written to a viewer.
type Message struct {
	Type       string      `json:"type"`
	Client     string      `json:"client,omitempty"`
	Caption    string      `json:"caption,omitempty"`
	Frame      int         `json:"frame,omitempty"`
	Image      string      `json:"image,omitempty"`
	Detections interface{} `json:"detections,omitempty"`
	Passes     int         `json:"passes,omitempty"`
	Error      string      `json:"error,omitempty"`
}

type delivery struct {
	id      string
	payload []byte
	result  chan bool
}

// HubService keeps one connection per viewer, keyed by a generated id.
type HubService struct {
	clients    map[string]*websocket.Conn
	send       chan delivery
	register   chan registration
	unregister chan string
	done       chan struct{}
	stopOnce   sync.Once
	mutex      sync.RWMutex
	logger     *logger.Logger
}

type registration struct {
	conn *websocket.Conn
	id   chan string
}

func NewHubService(logger *logger.Logger) *HubService {
	return &HubService{
		clients:    make(map[string]*websocket.Conn),
		send:       make(chan delivery),
		register:   make(chan registration),
		unregister: make(chan string),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run processes registrations and deliveries until Stop is called.
func (h *HubService) Run() {
	for {
		select {
		case reg := <-h.register:
			id := uuid.NewString()
			h.mutex.Lock()
			h.clients[id] = reg.conn
			total := len(h.clients)
			h.mutex.Unlock()
			h.write(id, reg.conn, Message{Type: MessageHello, Client: id})
			h.logger.Info("Viewer %s connected. Total: %d", id, total)
			reg.id <- id

		case id := <-h.unregister:
			h.mutex.Lock()
			if conn, ok := h.clients[id]; ok {
				delete(h.clients, id)
				conn.Close()
			}
			total := len(h.clients)
			h.mutex.Unlock()
			h.logger.Info("Viewer %s disconnected. Total: %d", id, total)

		case d := <-h.send:
			h.mutex.RLock()
			conn, ok := h.clients[d.id]
			h.mutex.RUnlock()
			if !ok {
				d.result <- false
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, d.payload); err != nil {
				h.logger.Error("Error sending message to %s: %v", d.id, err)
				h.mutex.Lock()
				delete(h.clients, d.id)
				h.mutex.Unlock()
				conn.Close()
				d.result <- false
				continue
			}
			d.result <- true

		case <-h.done:
			h.mutex.Lock()
			for id, conn := range h.clients {
				conn.Close()
				delete(h.clients, id)
			}
			h.mutex.Unlock()
			return
		}
	}
}

// Stop ends Run and closes every connection.
func (h *HubService) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// Register adds conn, greets it with its id and returns that id.
func (h *HubService) Register(conn *websocket.Conn) (string, bool) {
	reg := registration{conn: conn, id: make(chan string, 1)}
	select {
	case h.register <- reg:
		return <-reg.id, true
	case <-h.done:
		return "", false
	}
}

func (h *HubService) Unregister(id string) {
	select {
	case h.unregister <- id:
	case <-h.done:
	}
}

// SendTo pushes msg to the viewer with the given id. Unknown ids are
// dropped and reported as false.
func (h *HubService) SendTo(id string, msg Message) bool {
	if id == "" {
		return false
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("Failed to encode %s message: %v", msg.Type, err)
		return false
	}

	d := delivery{id: id, payload: payload, result: make(chan bool, 1)}
	select {
	case h.send <- d:
		return <-d.result
	case <-h.done:
		return false
	}
}

// HasClient reports whether id is registered.
func (h *HubService) HasClient(id string) bool {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, ok := h.clients[id]
	return ok
}

func (h *HubService) GetClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *HubService) write(id string, conn *websocket.Conn, msg Message) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		h.logger.Error("Error greeting %s: %v", id, err)
	}
}
