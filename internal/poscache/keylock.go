package poscache

import "sync"

// frameLocks serializes cache writers per frame. A refresh holds its
// frame's lock from the record store read until the badger write, so an
// evict for the same frame either lands before the read (which then sees
// the frame gone) or after the write (and removes it).
//
// Purge takes the whole set exclusively; per-frame writers share it.
type frameLocks struct {
	all  sync.RWMutex
	mu   sync.Mutex
	held map[int64]*frameLock
}

type frameLock struct {
	sync.Mutex
	waiters int
}

// lock acquires frameID's lock and returns its release func.
func (l *frameLocks) lock(frameID int64) func() {
	l.all.RLock()

	l.mu.Lock()
	if l.held == nil {
		l.held = make(map[int64]*frameLock)
	}
	fl, ok := l.held[frameID]
	if !ok {
		fl = &frameLock{}
		l.held[frameID] = fl
	}
	fl.waiters++
	l.mu.Unlock()

	fl.Lock()
	return func() {
		fl.Unlock()
		l.mu.Lock()
		fl.waiters--
		if fl.waiters == 0 {
			delete(l.held, frameID)
		}
		l.mu.Unlock()
		l.all.RUnlock()
	}
}

// lockAll waits for every per-frame writer to finish and blocks new ones.
func (l *frameLocks) lockAll() func() {
	l.all.Lock()
	return l.all.Unlock
}
