package worker

import "sync"

// conversationLocks serializes processing per (merchant number, customer
// phone) key inside one worker process. Cross-process races are absorbed by
// the store's unique indexes; this lock keeps the common single-node case
// strictly ordered.
type conversationLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newConversationLocks() *conversationLocks {
	return &conversationLocks{locks: make(map[string]*sync.Mutex)}
}

func (c *conversationLocks) lock(key string) func() {
	c.mu.Lock()
	m, ok := c.locks[key]
	if !ok {
		m = &sync.Mutex{}
		c.locks[key] = m
	}
	c.mu.Unlock()

	m.Lock()
	return m.Unlock
}
