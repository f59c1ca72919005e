package server

import (
	"log/slog"
	"sync"
)

// ReloadHub fans save notifications out to every viewer of one program.
type ReloadHub struct {
	pid       string
	clientsMu sync.Mutex
	clients   map[*WSReloadClient]struct{}
}

func NewReloadHub(pid string) *ReloadHub {
	return &ReloadHub{pid: pid, clients: make(map[*WSReloadClient]struct{})}
}

func (h *ReloadHub) AddClientConn(conn wsConn) *WSReloadClient {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	cl := NewWSReloadClient(conn, h)
	h.clients[cl] = struct{}{}
	return cl
}

func (h *ReloadHub) RemoveClientConn(c *WSReloadClient) {
	h.clientsMu.Lock()
	delete(h.clients, c)
	h.clientsMu.Unlock()
}

// BroadcastMessage queues msg for every client. A client whose queue is full
// is dropped.
func (h *ReloadHub) BroadcastMessage(kind int, msg []byte) {
	h.clientsMu.Lock()
	clients := make([]*WSReloadClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.Unlock()

	for _, c := range clients {
		if !c.enqueue(wsMessage{kind: kind, data: msg}) {
			slog.Warn("Client send channel full, dropping client", "pid", h.pid)
			c.Close()
		}
	}
}

func (h *ReloadHub) Len() int {
	h.clientsMu.Lock()
	defer h.clientsMu.Unlock()
	return len(h.clients)
}

func (h *ReloadHub) IsEmpty() bool {
	return h.Len() == 0
}

func (h *ReloadHub) Cleanup() {
	h.clientsMu.Lock()
	clients := make([]*WSReloadClient, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.clientsMu.Unlock()

	for _, client := range clients {
		client.Close()
	}
}
