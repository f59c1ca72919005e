package bridge

import "testing"

func TestProgramEndpoints(t *testing.T) {
	e := ProgramEndpoints{Base: "http://localhost:3333/", ID: "starter"}
	if got := e.SourceURL(); got != "http://localhost:3333/program/starter/script.js" {
		t.Fatalf("unexpected source url %q", got)
	}
	if got := e.DestinationURL(); got != "http://localhost:3333/program/starter" {
		t.Fatalf("unexpected destination url %q", got)
	}
	if got := e.PreviewURL(); got != "http://localhost:3333/program/starter/" {
		t.Fatalf("unexpected preview url %q", got)
	}
}

func TestEndpointsFor(t *testing.T) {
	tests := []struct {
		shape, base, pid string
		wantSource       string
		wantErr          bool
	}{
		{"program", "http://h", "p1", "http://h/program/p1/script.js", false},
		{"update", "http://h", "", "http://h/update/", false},
		{"program", "http://h", "", "", true},
		{"graphql", "http://h", "p1", "", true},
		{"program", "not a url", "p1", "", true},
	}
	for _, tt := range tests {
		e, err := EndpointsFor(tt.shape, tt.base, tt.pid)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("%s %q: expected error", tt.shape, tt.base)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s %q: unexpected error %v", tt.shape, tt.base, err)
		}
		if e.SourceURL() != tt.wantSource {
			t.Fatalf("expected %q, got %q", tt.wantSource, e.SourceURL())
		}
	}
}
