package server

import (
	"log/slog"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/gofiber/contrib/websocket"

	"livecode/service"
)

type reloadMessage struct {
	Type string `json:"type"`
	Pid  string `json:"pid"`
}

type HubManager struct {
	mu   sync.Mutex
	hubs map[string]*ReloadHub
}

func NewHubManager() *HubManager {
	return &HubManager{hubs: make(map[string]*ReloadHub)}
}

func (m *HubManager) GetHub(pid string) *ReloadHub {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hub, exists := m.hubs[pid]; exists {
		return hub
	}
	return nil
}

// Join attaches conn to the hub for pid, creating the hub if needed. Lookup
// and attach happen under one lock so Leave can never drop a hub between them.
func (m *HubManager) Join(pid string, conn wsConn) *WSReloadClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	hub, exists := m.hubs[pid]
	if !exists {
		hub = NewReloadHub(pid)
		m.hubs[pid] = hub
		slog.Debug("Created new reload hub", "pid", pid)
	}
	return hub.AddClientConn(conn)
}

// Leave closes client and drops the hub for pid once its last viewer is gone.
func (m *HubManager) Leave(pid string, client *WSReloadClient) {
	client.Close()

	m.mu.Lock()
	defer m.mu.Unlock()
	hub, exists := m.hubs[pid]
	if !exists {
		return
	}
	if hub.IsEmpty() {
		delete(m.hubs, pid)
		slog.Debug("Cleaning up empty hub", "pid", pid)
	}
}

func (m *HubManager) ExistsHub(pid string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, exists := m.hubs[pid]
	return exists
}

// NotifySaved tells every viewer of pid to reload.
func (m *HubManager) NotifySaved(pid string) {
	hub := m.GetHub(pid)
	if hub == nil {
		return
	}
	msg, err := sonic.Marshal(reloadMessage{Type: "saved", Pid: pid})
	if err != nil {
		slog.Error("Failed to encode reload message", "pid", pid, "err", err)
		return
	}
	hub.BroadcastMessage(websocket.TextMessage, msg)
}

// Listen forwards save events from bus to the viewers of the saved program.
func (m *HubManager) Listen(bus *service.Bus) {
	bus.Subscribe(service.EventProgramSaved, func(e service.Event) {
		if e.Err != nil {
			return
		}
		m.NotifySaved(e.Pid)
	})
}

func (m *HubManager) CloseAll() {
	m.mu.Lock()
	hubs := make([]*ReloadHub, 0, len(m.hubs))
	for _, h := range m.hubs {
		hubs = append(hubs, h)
	}
	m.hubs = make(map[string]*ReloadHub)
	m.mu.Unlock()

	for _, h := range hubs {
		h.Cleanup()
	}
}
