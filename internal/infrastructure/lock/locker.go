package lock

import (
	"context"
	"sort"
	"sync"
)

// AccountLocker serializes balance mutations per account. Acquire blocks
// until every requested account lock is held and returns a release
// function. Implementations must acquire in ascending account-id order so
// two transfers targeting each other cannot deadlock.
type AccountLocker interface {
	Acquire(ctx context.Context, accountIDs ...int64) (release func(), err error)
}

// sortedUnique returns the ids in ascending order with duplicates dropped.
func sortedUnique(accountIDs []int64) []int64 {
	ids := make([]int64, 0, len(accountIDs))
	seen := make(map[int64]struct{}, len(accountIDs))
	for _, id := range accountIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// LocalLocker is an in-process AccountLocker backed by per-account
// mutexes. It is used by tests and single-instance deployments without
// Redis.
type LocalLocker struct {
	mu    sync.Mutex
	muxes map[int64]*sync.Mutex
}

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{muxes: make(map[int64]*sync.Mutex)}
}

func (l *LocalLocker) mutexFor(id int64) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.muxes[id]
	if !ok {
		m = &sync.Mutex{}
		l.muxes[id] = m
	}
	return m
}

func (l *LocalLocker) Acquire(ctx context.Context, accountIDs ...int64) (func(), error) {
	ids := sortedUnique(accountIDs)
	held := make([]*sync.Mutex, 0, len(ids))
	for _, id := range ids {
		m := l.mutexFor(id)
		m.Lock()
		held = append(held, m)
	}
	return func() {
		// release in reverse acquisition order
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}, nil
}
