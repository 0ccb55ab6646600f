package testkit

import (
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/bloom/cidutil"
	"xdao.co/bloom/storage"
)

// Memory is a map-backed storage.CAS. It is safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
	puts   int
}

var _ storage.CAS = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{blocks: make(map[cid.Cid][]byte)}
}

func (m *Memory) Put(bytes []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA3512CID(bytes)
	if err != nil {
		return cid.Undef, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.puts++
	if _, ok := m.blocks[id]; !ok {
		m.blocks[id] = append([]byte(nil), bytes...)
	}
	return id, nil
}

func (m *Memory) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.blocks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *Memory) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.blocks[id]
	return ok
}

// Len returns the number of distinct blocks stored.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.blocks)
}

// Puts returns how many times Put has been called.
func (m *Memory) Puts() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.puts
}
