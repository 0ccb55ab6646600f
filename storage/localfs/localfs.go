// Package localfs is a directory-backed storage.CAS.
package localfs

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/cidutil"
	"xdao.co/bloom/storage"
)

// CAS stores each block as a read-only file named by its CID under a two
// character fan-out directory. It never touches the network.
type CAS struct {
	root string
}

var _ storage.CAS = (*CAS)(nil)

// New returns a store rooted at root, creating the directory if needed.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, bloomerr.New(bloomerr.KindConfig, "BLOOM-LFS-001", "localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-LFS-002", "localfs: create root", err)
	}
	return &CAS{root: root}, nil
}

// Root returns the store directory.
func (c *CAS) Root() string { return c.root }

func (c *CAS) Put(b []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA3512CID(b)
	if err != nil {
		return cid.Undef, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-LFS-900", "localfs: derive cid", err)
	}

	path := c.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return cid.Undef, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-LFS-003", "localfs: create fan-out directory", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := c.Get(id)
			if rerr != nil || !bytes.Equal(existing, b) {
				// An unreadable or corrupted block is never repaired in place.
				return cid.Undef, storage.ErrImmutable
			}
			return id, nil
		}
		return cid.Undef, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-LFS-004", "localfs: create block", err)
	}

	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-LFS-005", "localfs: write block", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return cid.Undef, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-LFS-005", "localfs: sync block", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return cid.Undef, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-LFS-005", "localfs: close block", err)
	}
	return id, nil
}

// Get reads the block and re-derives its CID before returning it.
func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(c.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-LFS-006", "localfs: read block", err)
	}
	got, err := cidutil.CIDv1RawSHA3512CID(b)
	if err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-LFS-900", "localfs: derive cid", err)
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return b, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *CAS) pathFor(id cid.Cid) string {
	s := id.String()
	if len(s) < 2 {
		return filepath.Join(c.root, s)
	}
	return filepath.Join(c.root, s[len(s)-2:], s)
}
