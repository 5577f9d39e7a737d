// Package store holds knowledge packs for the lifetime of the process.
package store

import (
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/raphaelgruber/bookpack/internal/models"
)

// KnowledgeStore is a key-value cache of knowledge packs keyed by book id.
type KnowledgeStore interface {
	Get(bookID string) (*models.BookKnowledge, bool)
	Set(bookID string, k *models.BookKnowledge)
	Has(bookID string) bool
	Len() int
}

// New returns an unbounded map store when size <= 0, otherwise an LRU
// holding at most size packs, each expiring after ttl (0 = never).
func New(size int, ttl time.Duration) KnowledgeStore {
	if size <= 0 {
		return NewMemory()
	}
	return NewLRU(size, ttl)
}

// Memory is an unbounded in-memory store.
type Memory struct {
	mu    sync.RWMutex
	packs map[string]*models.BookKnowledge
}

// NewMemory creates an empty memory store.
func NewMemory() *Memory {
	return &Memory{packs: make(map[string]*models.BookKnowledge)}
}

func (m *Memory) Get(bookID string) (*models.BookKnowledge, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	k, ok := m.packs[bookID]
	return k, ok
}

func (m *Memory) Set(bookID string, k *models.BookKnowledge) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.packs[bookID] = k
}

func (m *Memory) Has(bookID string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.packs[bookID]
	return ok
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.packs)
}

// LRU is a bounded store evicting the least recently used pack.
type LRU struct {
	cache *expirable.LRU[string, *models.BookKnowledge]
}

// NewLRU creates a bounded store.
func NewLRU(size int, ttl time.Duration) *LRU {
	return &LRU{cache: expirable.NewLRU[string, *models.BookKnowledge](size, nil, ttl)}
}

func (l *LRU) Get(bookID string) (*models.BookKnowledge, bool) {
	return l.cache.Get(bookID)
}

func (l *LRU) Set(bookID string, k *models.BookKnowledge) {
	l.cache.Add(bookID, k)
}

func (l *LRU) Has(bookID string) bool {
	_, ok := l.cache.Peek(bookID)
	return ok
}

func (l *LRU) Len() int {
	return l.cache.Len()
}
