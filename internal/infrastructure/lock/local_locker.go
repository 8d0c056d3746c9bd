package lock

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"referralhub/internal/errs"
	"referralhub/internal/ports"
)

// LocalLocker serializes callers inside one process. Ttl is ignored: the
// holder keeps the key until it releases it. A key's slot lives only while
// someone holds or waits for it.
type LocalLocker struct {
	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

var _ ports.Locker = (*LocalLocker)(nil)

func NewLocalLocker() *LocalLocker {
	return &LocalLocker{slots: make(map[string]*slot)}
}

func (l *LocalLocker) Obtain(ctx context.Context, key string, _ time.Duration) (func(), error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.New("lock key is required")
	}

	s := l.acquire(key)
	select {
	case s.ch <- struct{}{}:
	case <-ctx.Done():
		l.drop(key, s)
		return nil, errs.Wrap(ctx.Err(), "wait for lock")
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-s.ch
			l.drop(key, s)
		})
	}, nil
}

func (l *LocalLocker) acquire(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) drop(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()

	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.slots)
}
