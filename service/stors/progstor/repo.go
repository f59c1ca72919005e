package progstor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"livecode/config"
)

var ErrNotFound = errors.New("program not found")

const (
	DefaultPid  Pid = "starter"
	searchLimit     = 20
)

const StarterCode = `function setup() {
  createCanvas(400, 400);
}

function draw() {
  background(220);
}
`

type Repo interface {
	Default() Pid
	Store(ctx context.Context, pid Pid, code string) error
	Load(ctx context.Context, pid Pid) (string, error)
	Search(ctx context.Context, query string) ([]Pid, error)
	Close() error
}

// Open builds the backend named by c.Storage and seeds the starter program.
func Open(c *config.Config) (Repo, error) {
	switch c.Storage {
	case config.StorageMemory, "":
		return NewMemRepo(), nil
	case config.StorageDir:
		return NewDirRepo(c.ProgramsDir)
	case config.StorageSQLite:
		return NewSQLiteRepo(c.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", c.Storage)
	}
}

func seedDefault(ctx context.Context, r Repo) error {
	if _, err := r.Load(ctx, r.Default()); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return err
		}
		return r.Store(ctx, r.Default(), StarterCode)
	}
	return nil
}

// matchPids returns the sorted ids containing query, capped at searchLimit.
func matchPids(all []Pid, query string) []Pid {
	res := make([]Pid, 0, len(all))
	for _, pid := range all {
		if strings.Contains(string(pid), query) {
			res = append(res, pid)
		}
	}
	sort.Slice(res, func(i, j int) bool { return res[i] < res[j] })
	if len(res) > searchLimit {
		res = res[:searchLimit]
	}
	return res
}
