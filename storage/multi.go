package storage

import (
	"github.com/ipfs/go-cid"
)

// MultiCAS reads from several stores in a fixed order and writes to the first.
//
// The order of Adapters is the lookup order; callers supply it explicitly so
// resolution never depends on map iteration.
type MultiCAS struct {
	Adapters []CAS
}

var _ CAS = MultiCAS{}

func (m MultiCAS) Put(bytes []byte) (cid.Cid, error) {
	if len(m.Adapters) == 0 {
		return cid.Undef, ErrNoBackends
	}
	return m.Adapters[0].Put(bytes)
}

// Get returns the first hit. A non-NotFound error from any adapter stops the
// lookup.
func (m MultiCAS) Get(id cid.Cid) ([]byte, error) {
	for _, cas := range m.Adapters {
		b, err := cas.Get(id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiCAS) Has(id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(id) {
			return true
		}
	}
	return false
}
