package bridge

import (
	"fmt"
	"net/url"
	"strings"

	"livecode/config"
)

// Endpoints names the three URLs a bridge talks to. All three share the
// origin of the configured base URL.
type Endpoints interface {
	SourceURL() string
	DestinationURL() string
	PreviewURL() string
}

// ProgramEndpoints addresses one program by id:
// GET {base}/program/{id}/script.js, POST {base}/program/{id}.
type ProgramEndpoints struct {
	Base string
	ID   string
}

func (e ProgramEndpoints) root() string {
	return strings.TrimRight(e.Base, "/") + "/program/" + url.PathEscape(e.ID)
}

func (e ProgramEndpoints) SourceURL() string      { return e.root() + "/script.js" }
func (e ProgramEndpoints) DestinationURL() string { return e.root() }
func (e ProgramEndpoints) PreviewURL() string     { return e.root() + "/" }

// SingletonEndpoints addresses the single program behind /update/.
type SingletonEndpoints struct {
	Base string
}

func (e SingletonEndpoints) SourceURL() string      { return strings.TrimRight(e.Base, "/") + "/update/" }
func (e SingletonEndpoints) DestinationURL() string { return strings.TrimRight(e.Base, "/") + "/update/" }
func (e SingletonEndpoints) PreviewURL() string     { return strings.TrimRight(e.Base, "/") + "/preview/" }

// EndpointsFor picks the endpoint shape by name. pid is ignored for the
// update shape.
func EndpointsFor(shape, base, pid string) (Endpoints, error) {
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid server url %q", base)
	}
	switch shape {
	case config.EndpointShapeProgram, "":
		if pid == "" {
			return nil, fmt.Errorf("program id is required for the %q endpoint shape", config.EndpointShapeProgram)
		}
		return ProgramEndpoints{Base: base, ID: pid}, nil
	case config.EndpointShapeUpdate:
		return SingletonEndpoints{Base: base}, nil
	default:
		return nil, fmt.Errorf("unknown endpoint shape %q", shape)
	}
}
