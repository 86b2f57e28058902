package dpc

import "sync"

// dirLocks hands out one exclusive lock per directory path. Entries are
// reference counted and dropped once nobody holds or waits for them.
type dirLocks struct {
	mu    sync.Mutex
	locks map[string]*dirLock
}

type dirLock struct {
	mu   sync.Mutex
	refs int
}

func newDirLocks() *dirLocks {
	return &dirLocks{locks: make(map[string]*dirLock)}
}

// Lock blocks until path is free and returns the function releasing it.
func (l *dirLocks) Lock(path string) (unlock func()) {
	l.mu.Lock()
	dl, ok := l.locks[path]
	if !ok {
		dl = &dirLock{}
		l.locks[path] = dl
	}
	dl.refs++
	l.mu.Unlock()

	dl.mu.Lock()

	return func() {
		dl.mu.Unlock()

		l.mu.Lock()
		dl.refs--
		if dl.refs == 0 {
			delete(l.locks, path)
		}
		l.mu.Unlock()
	}
}

// held returns the number of paths currently locked or waited on.
func (l *dirLocks) held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
