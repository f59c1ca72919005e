package progstor

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const programExt = ".js"

// DirRepo keeps one {pid}.js file per program.
type DirRepo struct {
	dir string
}

var _ Repo = (*DirRepo)(nil)

func NewDirRepo(dir string) (*DirRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create programs directory: %w", err)
	}
	r := &DirRepo{dir: dir}
	if err := seedDefault(context.Background(), r); err != nil {
		return nil, fmt.Errorf("failed to seed starter program: %w", err)
	}
	return r, nil
}

func (r *DirRepo) path(pid Pid) string {
	return filepath.Join(r.dir, string(pid)+programExt)
}

func (r *DirRepo) Default() Pid {
	return DefaultPid
}

func (r *DirRepo) Load(ctx context.Context, pid Pid) (string, error) {
	b, err := os.ReadFile(r.path(pid))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return string(b), nil
}

// Store writes through a temp file so readers never see a partial program.
func (r *DirRepo) Store(ctx context.Context, pid Pid, code string) error {
	tmp, err := os.CreateTemp(r.dir, "."+string(pid)+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(code); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), r.path(pid))
}

func (r *DirRepo) Search(ctx context.Context, query string) ([]Pid, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	all := make([]Pid, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, programExt) {
			continue
		}
		pid, err := ParsePid(strings.TrimSuffix(name, programExt))
		if err != nil {
			continue
		}
		all = append(all, pid)
	}
	return matchPids(all, query), nil
}

func (r *DirRepo) Close() error {
	return nil
}
