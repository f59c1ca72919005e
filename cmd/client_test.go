package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"livecode/config"
)

func setupClient(t *testing.T, source string) (*httptest.Server, func() []string) {
	t.Helper()
	var (
		mu    sync.Mutex
		posts []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/program/sketch/script.js":
			io.WriteString(w, source)
		case r.Method == http.MethodPost && r.URL.Path == "/program/sketch":
			body, _ := io.ReadAll(r.Body)
			mu.Lock()
			posts = append(posts, string(body))
			mu.Unlock()
			w.Header().Set("Content-Type", "application/json")
			io.WriteString(w, `{"status": "OK"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	prev := config.C
	config.C = &config.Config{ServerURL: srv.URL, EndpointShape: config.EndpointShapeProgram, LogLevel: "error"}
	t.Cleanup(func() { config.C = prev })

	return srv, func() []string {
		mu.Lock()
		defer mu.Unlock()
		return append([]string(nil), posts...)
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	serverURL = ""
	// cobra only assigns a subcommand's context when it is nil, so clear the
	// one left over from a previous test's (now canceled) t.Context().
	for _, c := range rootCmd.Commands() {
		c.SetContext(nil)
	}
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.ExecuteContext(t.Context())
	return out.String(), err
}

func TestPullPrintsSource(t *testing.T) {
	setupClient(t, "let x = 1;")

	out, err := run(t, "pull", "sketch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "let x = 1;" {
		t.Fatalf("expected source on stdout, got %q", out)
	}
}

func TestPullMissingProgram(t *testing.T) {
	setupClient(t, "")

	if _, err := run(t, "pull", "other"); err == nil {
		t.Fatal("expected error for missing program")
	}
}

func TestPushSendsFile(t *testing.T) {
	_, posts := setupClient(t, "")
	path := filepath.Join(t.TempDir(), "sketch.js")
	if err := os.WriteFile(path, []byte("function f(){}"), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "push", "sketch", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasSuffix(strings.TrimSpace(out), "OK") {
		t.Fatalf("expected OK status, got %q", out)
	}
	got := posts()
	if len(got) != 1 || got[0] != "function f(){}" {
		t.Fatalf("expected one post with the file, got %q", got)
	}
}

func TestServerFlagOverridesConfig(t *testing.T) {
	srv, _ := setupClient(t, "from flag")
	config.C.ServerURL = "http://127.0.0.1:1"

	out, err := run(t, "pull", "sketch", "--server", srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "from flag" {
		t.Fatalf("expected source from flag server, got %q", out)
	}
}

func TestPushSendsConfiguredAPIKey(t *testing.T) {
	keys := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		keys <- r.Header.Get("X-API-Key")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"status": "OK"}`)
	}))
	defer srv.Close()

	prev := config.C
	config.C = &config.Config{ServerURL: srv.URL, EndpointShape: config.EndpointShapeProgram, APIKey: "secret", LogLevel: "error"}
	t.Cleanup(func() { config.C = prev })

	path := filepath.Join(t.TempDir(), "sketch.js")
	if err := os.WriteFile(path, []byte("// keyed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "push", "sketch", path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := <-keys; got != "secret" {
		t.Fatalf("expected configured api key, got %q", got)
	}
}
