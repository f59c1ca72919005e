package server

import (
	"bytes"
	"fmt"
	"html/template"

	"livecode/webembed"
)

const (
	codeMirrorCDN = "https://cdnjs.cloudflare.com/ajax/libs/codemirror/5.65.7/"
	p5CDN         = "https://cdnjs.cloudflare.com/ajax/libs/p5.js/1.7.0/"
)

type editorPage struct {
	Pid            string
	CodeMirror     string
	SourceURL      string
	DestinationURL string
	PreviewURL     string
	KeyRequired    bool
}

type appPage struct {
	Pid        string
	P5         string
	ScriptURL  string
	SocketPath string
}

type pages struct {
	tmpl *template.Template
}

func loadPages() (*pages, error) {
	t, err := template.ParseFS(webembed.Templates, "*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse page templates: %w", err)
	}
	return &pages{tmpl: t}, nil
}

func (p *pages) render(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := p.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

func programEditorPage(pid string) editorPage {
	root := "/program/" + pid
	return editorPage{
		Pid:            pid,
		CodeMirror:     codeMirrorCDN,
		SourceURL:      root + "/script.js",
		DestinationURL: root,
		PreviewURL:     root + "/",
	}
}

func programAppPage(pid string) appPage {
	return appPage{
		Pid:        pid,
		P5:         p5CDN,
		ScriptURL:  "/program/" + pid + "/script.js",
		SocketPath: "/ws/program/" + pid,
	}
}

func singletonAppPage(pid string) appPage {
	return appPage{
		Pid:        pid,
		P5:         p5CDN,
		ScriptURL:  "/update/",
		SocketPath: "/ws/program/" + pid,
	}
}
