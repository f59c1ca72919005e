package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/pkg/sftp"

	"livecode/config"
	"livecode/service"
	"livecode/service/stors/progstor"
)

const programExt = ".js"

// ProgramFileHandler exposes programs as {pid}.js files in a flat root
// directory.
type ProgramFileHandler struct {
	repo progstor.Repo
	bus  *service.Bus
}

func NewProgramFileHandler(repo progstor.Repo, bus *service.Bus) *ProgramFileHandler {
	return &ProgramFileHandler{repo: repo, bus: bus}
}

func (h *ProgramFileHandler) Handlers() sftp.Handlers {
	return sftp.Handlers{FileGet: h, FilePut: h, FileCmd: h, FileList: h}
}

func pidFromPath(p string) (progstor.Pid, error) {
	name := path.Base(path.Clean("/" + p))
	if !strings.HasSuffix(name, programExt) {
		return "", fmt.Errorf("not a program file: %s", p)
	}
	return progstor.ParsePid(strings.TrimSuffix(name, programExt))
}

func isRoot(p string) bool {
	c := path.Clean("/" + p)
	return c == "/"
}

func (h *ProgramFileHandler) Fileread(r *sftp.Request) (io.ReaderAt, error) {
	pid, err := pidFromPath(r.Filepath)
	if err != nil {
		return nil, err
	}
	slog.Debug("SFTP read request", "path", r.Filepath)
	code, err := h.repo.Load(r.Context(), pid)
	if err != nil {
		if errors.Is(err, progstor.ErrNotFound) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	return strings.NewReader(code), nil
}

// Filewrite buffers the upload; the program is stored when the transfer
// closes.
func (h *ProgramFileHandler) Filewrite(r *sftp.Request) (io.WriterAt, error) {
	pid, err := pidFromPath(r.Filepath)
	if err != nil {
		return nil, err
	}
	slog.Debug("SFTP write request", "path", r.Filepath)
	return &programWriter{handler: h, pid: pid, req: r}, nil
}

// Filecmd accepts Setstat as a no-op so uploads that preserve times succeed.
func (h *ProgramFileHandler) Filecmd(r *sftp.Request) error {
	if r.Method == "Setstat" {
		return nil
	}
	return fmt.Errorf("unsupported command: %s", r.Method)
}

func (h *ProgramFileHandler) Filelist(r *sftp.Request) (sftp.ListerAt, error) {
	switch r.Method {
	case "List":
		if !isRoot(r.Filepath) {
			return nil, os.ErrNotExist
		}
		pids, err := h.repo.Search(r.Context(), "")
		if err != nil {
			return nil, err
		}
		infos := make(listerAt, 0, len(pids))
		for _, pid := range pids {
			code, err := h.repo.Load(r.Context(), pid)
			if err != nil {
				continue
			}
			infos = append(infos, programInfo{name: string(pid) + programExt, size: int64(len(code))})
		}
		return infos, nil
	case "Stat":
		if isRoot(r.Filepath) {
			return listerAt{programInfo{name: "/", dir: true}}, nil
		}
		pid, err := pidFromPath(r.Filepath)
		if err != nil {
			return nil, os.ErrNotExist
		}
		code, err := h.repo.Load(r.Context(), pid)
		if err != nil {
			return nil, os.ErrNotExist
		}
		return listerAt{programInfo{name: string(pid) + programExt, size: int64(len(code))}}, nil
	default:
		return nil, fmt.Errorf("unsupported list method: %s", r.Method)
	}
}

// programWriter collects an upload up to the program size limit. Only a
// transfer that completes without error is stored.
type programWriter struct {
	handler *ProgramFileHandler
	pid     progstor.Pid
	req     *sftp.Request

	mu     sync.Mutex
	buf    []byte
	failed error
}

var _ sftp.TransferError = (*programWriter)(nil)

func (w *programWriter) WriteAt(p []byte, off int64) (int, error) {
	end := off + int64(len(p))
	w.mu.Lock()
	defer w.mu.Unlock()
	if end > config.MaxProgramSize {
		slog.Warn("upload size exceeds limit", "offset", off, "length", len(p))
		w.failed = fmt.Errorf("upload exceeds max size of %d bytes", config.MaxProgramSize)
		return 0, w.failed
	}
	if int64(len(w.buf)) < end {
		w.buf = append(w.buf, make([]byte, end-int64(len(w.buf)))...)
	}
	copy(w.buf[off:], p)
	return len(p), nil
}

// TransferError is called when the session ends with the file still open.
func (w *programWriter) TransferError(err error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.failed == nil {
		w.failed = err
	}
}

func (w *programWriter) Close() error {
	w.mu.Lock()
	code := string(bytes.Clone(w.buf))
	failed := w.failed
	w.mu.Unlock()
	if failed != nil {
		slog.Warn("Discarding incomplete SFTP upload", "pid", w.pid, "err", failed)
		return nil
	}
	if err := w.handler.repo.Store(w.req.Context(), w.pid, code); err != nil {
		return fmt.Errorf("failed to store program: %w", err)
	}
	slog.Info("Program saved over SFTP", "pid", w.pid, "content_length", len(code))
	w.handler.bus.Publish(service.EventProgramSaved, string(w.pid), len(code), nil)
	return nil
}

type listerAt []os.FileInfo

func (l listerAt) ListAt(ls []os.FileInfo, offset int64) (int, error) {
	if offset >= int64(len(l)) {
		return 0, io.EOF
	}
	n := copy(ls, l[offset:])
	if n < len(ls) {
		return n, io.EOF
	}
	return n, nil
}

type programInfo struct {
	name string
	size int64
	dir  bool
}

func (i programInfo) Name() string { return i.name }
func (i programInfo) Size() int64  { return i.size }
func (i programInfo) Mode() os.FileMode {
	if i.dir {
		return os.ModeDir | 0o755
	}
	return 0o644
}
func (i programInfo) ModTime() time.Time { return time.Time{} }
func (i programInfo) IsDir() bool        { return i.dir }
func (i programInfo) Sys() any           { return nil }
