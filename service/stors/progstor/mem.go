package progstor

import (
	"context"
	"sync"
)

type MemRepo struct {
	codes map[Pid]string
	mu    sync.RWMutex
}

var _ Repo = (*MemRepo)(nil)

func NewMemRepo() *MemRepo {
	return &MemRepo{
		codes: map[Pid]string{
			DefaultPid: StarterCode,
		},
	}
}

func (r *MemRepo) Default() Pid {
	return DefaultPid
}

func (r *MemRepo) Store(ctx context.Context, pid Pid, code string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes[pid] = code
	return nil
}

func (r *MemRepo) Load(ctx context.Context, pid Pid) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if c, ok := r.codes[pid]; ok {
		return c, nil
	}
	return "", ErrNotFound
}

func (r *MemRepo) Search(ctx context.Context, query string) ([]Pid, error) {
	r.mu.RLock()
	all := make([]Pid, 0, len(r.codes))
	for pid := range r.codes {
		all = append(all, pid)
	}
	r.mu.RUnlock()
	return matchPids(all, query), nil
}

func (r *MemRepo) Close() error {
	return nil
}
