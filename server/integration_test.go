package server

import (
	"context"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/fasthttp/websocket"

	"livecode/bridge"
	"livecode/service/stors/progstor"
)

// startServer runs the full app on a loopback port and returns its base URL.
func startServer(t *testing.T, env *testEnv) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen failed: %v", err)
	}
	go env.app.Listener(ln)
	t.Cleanup(func() { env.app.ShutdownWithTimeout(time.Second) })
	return "http://" + ln.Addr().String()
}

func TestBridgeAgainstServer(t *testing.T) {
	env := newTestEnv(t, nil)
	base := startServer(t, env)

	preview := bridge.NewFramePreview(nil)
	b := bridge.New(bridge.ProgramEndpoints{Base: base, ID: "starter"})
	h := b.Initialize(bridge.NewMemContainer("editor", "// loading", preview), 800)

	if r := b.Hydrate(context.Background(), h); !r.OK() {
		t.Fatalf("hydrate failed: %v", r.Err)
	}
	if got := h.Widget().Value(); got != progstor.StarterCode {
		t.Fatalf("expected starter code in buffer, got %q", got)
	}
	preview.Wait()
	if _, body, err := preview.Last(); err != nil || !strings.Contains(string(body), "/program/starter/script.js") {
		t.Fatalf("expected preview page to load, got %q (%v)", body, err)
	}

	h.Widget().SetValue("function setup() { createCanvas(10, 10); }")
	r := b.Commit(context.Background(), h)
	if !r.OK() {
		t.Fatalf("commit failed: %v", r.Err)
	}
	if r.Payload["status"] != "OK" {
		t.Fatalf("expected status OK, got %v", r.Payload)
	}
	if preview.Reloads() != 1 {
		t.Fatalf("expected 1 preview reload, got %d", preview.Reloads())
	}
	code, _ := env.repo.Load(context.Background(), "starter")
	if code != "function setup() { createCanvas(10, 10); }" {
		t.Fatalf("expected saved code, got %q", code)
	}
}

func TestBridgeSingletonAgainstServer(t *testing.T) {
	env := newTestEnv(t, nil)
	base := startServer(t, env)

	e, err := bridge.EndpointsFor("update", base, "")
	if err != nil {
		t.Fatalf("endpoints failed: %v", err)
	}
	b := bridge.New(e)
	h := b.Initialize(bridge.NewMemContainer("editor", "", nil), 800)
	if r := b.Hydrate(context.Background(), h); !r.OK() {
		t.Fatalf("hydrate failed: %v", r.Err)
	}
	h.Widget().SetValue("// edited")
	if r := b.Commit(context.Background(), h); !r.OK() {
		t.Fatalf("commit failed: %v", r.Err)
	}
	code, _ := env.repo.Load(context.Background(), env.repo.Default())
	if code != "// edited" {
		t.Fatalf("expected default program to be saved, got %q", code)
	}
}

func TestBridgeMissingProgramKeepsPlaceholder(t *testing.T) {
	env := newTestEnv(t, nil)
	base := startServer(t, env)

	b := bridge.New(bridge.ProgramEndpoints{Base: base, ID: "ghost"})
	h := b.Initialize(bridge.NewMemContainer("editor", "// loading", nil), 800)
	if r := b.Hydrate(context.Background(), h); r.OK() || r.Status != 404 {
		t.Fatalf("expected 404 failure, got status=%d err=%v", r.Status, r.Err)
	}
	if got := h.Widget().Value(); got != "// loading" {
		t.Fatalf("expected placeholder, got %q", got)
	}
}

func TestSaveNotifiesReloadSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	base := startServer(t, env)

	wsURL := "ws" + strings.TrimPrefix(base, "http") + "/ws/program/starter"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	defer conn.Close()
	waitFor(t, "viewer registration", func() bool {
		hub := env.srv.hubs.GetHub("starter")
		return hub != nil && hub.Len() == 1
	})

	b := bridge.New(bridge.ProgramEndpoints{Base: base, ID: "starter"})
	h := b.Initialize(bridge.NewMemContainer("editor", "// new", nil), 800)
	if r := b.Commit(context.Background(), h); !r.OK() {
		t.Fatalf("commit failed: %v", r.Err)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if string(msg) != `{"type":"saved","pid":"starter"}` {
		t.Fatalf("unexpected reload message %q", msg)
	}
}

func TestBridgeWithKeyAuth(t *testing.T) {
	cfg := testConfig()
	cfg.APIKeyAuth = true
	cfg.APIKeys = []string{"secret"}
	env := newTestEnv(t, cfg)
	base := startServer(t, env)
	eps := bridge.ProgramEndpoints{Base: base, ID: "starter"}

	anon := bridge.New(eps)
	h := anon.Initialize(bridge.NewMemContainer("editor", "// anon", nil), 800)
	if r := anon.Commit(context.Background(), h); r.OK() || r.Status != 401 {
		t.Fatalf("expected 401 without key, got status=%d err=%v", r.Status, r.Err)
	}

	keyed := bridge.New(eps, bridge.WithAPIKey("secret"))
	h = keyed.Initialize(bridge.NewMemContainer("editor", "// keyed", nil), 800)
	if r := keyed.Commit(context.Background(), h); !r.OK() {
		t.Fatalf("commit with key failed: %v", r.Err)
	}
	code, _ := env.repo.Load(context.Background(), "starter")
	if code != "// keyed" {
		t.Fatalf("expected keyed save to be stored, got %q", code)
	}
}
