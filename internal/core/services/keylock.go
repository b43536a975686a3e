package services

import (
	"hash/fnv"
	"sync"
)

// defaultLockStripes is the number of mutexes shared by all document prefixes.
const defaultLockStripes = 64

// keyLock serialises work on the same key using a fixed set of striped
// mutexes. Distinct keys may share a stripe.
type keyLock struct {
	stripes []sync.Mutex
}

func newKeyLock(stripes int) *keyLock {
	if stripes <= 0 {
		stripes = defaultLockStripes
	}
	return &keyLock{stripes: make([]sync.Mutex, stripes)}
}

// Lock acquires the stripe for key and returns its unlock function.
func (l *keyLock) Lock(key string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	m := &l.stripes[h.Sum32()%uint32(len(l.stripes))]
	m.Lock()
	return m.Unlock
}
