package cache

import (
	"container/list"
	"sync"
	"time"
)

// memoryTier is a FIFO-bounded map. Entries expire at StoredAt+ttl and the
// oldest inserted entry is evicted first once maxItems is exceeded.
type memoryTier struct {
	mu       sync.Mutex
	maxItems int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
	now      func() time.Time
}

type memoryItem struct {
	key       string
	entry     *Entry
	expiresAt time.Time
}

func newMemoryTier(maxItems int, ttl time.Duration) *memoryTier {
	return &memoryTier{
		maxItems: maxItems,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
		now:      time.Now,
	}
}

func (m *memoryTier) get(key string) *Entry {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil
	}
	item := el.Value.(*memoryItem)
	if m.ttl > 0 && !m.now().Before(item.expiresAt) {
		m.removeElement(el)
		return nil
	}
	return item.entry.clone()
}

func (m *memoryTier) set(key string, entry *Entry) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.removeElement(el)
	}

	item := &memoryItem{key: key, entry: entry.clone(), expiresAt: entry.StoredAt.Add(m.ttl)}
	m.items[key] = m.order.PushBack(item)

	for m.maxItems > 0 && m.order.Len() > m.maxItems {
		m.removeElement(m.order.Front())
	}
}

func (m *memoryTier) delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.removeElement(el)
	}
}

func (m *memoryTier) clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.order.Init()
	m.items = make(map[string]*list.Element)
}

func (m *memoryTier) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *memoryTier) removeElement(el *list.Element) {
	m.order.Remove(el)
	delete(m.items, el.Value.(*memoryItem).key)
}
