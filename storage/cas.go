// Package storage defines the content-addressed store that backs the Bloom
// archive, plus adapters that compose several stores.
package storage

import "github.com/ipfs/go-cid"

// CAS is a content-addressable block store.
//
// Contract:
// - Put is idempotent and returns the CIDv1 (raw, sha3-512) of the bytes written.
// - Stored blocks are immutable.
// - Get returns ErrNotFound when the CID is absent and never returns bytes
//   that do not hash to the requested CID.
type CAS interface {
	Put(bytes []byte) (cid.Cid, error)
	Get(id cid.Cid) ([]byte, error)
	Has(id cid.Cid) bool
}
