package storage

import (
	"github.com/ipfs/go-cid"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/cidutil"
)

// NamedCAS pairs a store with the stable name it is reported under.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes every block to all backends and reads in order.
//
// A backend that answers Put with a CID other than the one derived from the
// bytes fails the write with ErrCIDMismatch.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = ReplicatingCAS{}

// PutAll writes bytes to every backend and returns the expected CID along with
// the CID each backend reported, keyed by backend name.
func (r ReplicatingCAS) PutAll(bytes []byte) (cid.Cid, map[string]cid.Cid, error) {
	want, err := cidutil.CIDv1RawSHA3512CID(bytes)
	if err != nil {
		return cid.Undef, nil, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-CAS-900", "derive cid", err)
	}
	if len(r.Backends) == 0 {
		return cid.Undef, nil, ErrNoBackends
	}

	out := make(map[string]cid.Cid, len(r.Backends))
	for _, b := range r.Backends {
		if b.CAS == nil {
			return cid.Undef, nil, bloomerr.New(bloomerr.KindStorage, "BLOOM-CAS-006", "storage: nil backend "+b.Name)
		}
		got, err := b.CAS.Put(bytes)
		if err != nil {
			return cid.Undef, out, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-CAS-007", "storage: put to "+b.Name, err)
		}
		out[b.Name] = got
		if got != want {
			return cid.Undef, out, ErrCIDMismatch
		}
	}
	return want, out, nil
}

func (r ReplicatingCAS) Put(bytes []byte) (cid.Cid, error) {
	id, _, err := r.PutAll(bytes)
	return id, err
}

func (r ReplicatingCAS) Get(id cid.Cid) ([]byte, error) {
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(id)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(id cid.Cid) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(id) {
			return true
		}
	}
	return false
}
