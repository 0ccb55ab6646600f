// Package ipfs is a storage.CAS over the local Kubo "ipfs" CLI.
//
// It operates on a local repository through "ipfs block" and needs no daemon.
// Blocks are written as CIDv1 raw with a sha3-512 multihash, the same CIDs
// every other backend derives, and every read is re-verified against its CID.
package ipfs

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/cidutil"
	"xdao.co/bloom/storage"
)

// CAS is a content-addressable store backed by the local Kubo "ipfs" CLI.
//
// Properties:
//   - Offline: works on the local repository; no daemon is required.
//   - Verified: bytes returned by Get always match the requested CID.
//   - Best-effort: depends on an external "ipfs" binary (configurable).
//
// CID contract: CIDv1 raw + sha3-512, matching cidutil.CIDv1RawSHA3512CID.
// Reachability through ipfs is not validity; the CID check is.
type CAS struct {
	bin string
	env []string
}

var _ storage.CAS = (*CAS)(nil)

// Options configures New.
type Options struct {
	// Bin is the ipfs binary. Defaults to "ipfs" on PATH.
	Bin string
	// RepoPath sets IPFS_PATH for the subprocess when non-empty.
	RepoPath string
	// Env replaces the subprocess environment. Nil inherits the process environment.
	Env []string
}

// New returns a CAS that runs opts.Bin. It does not check that the binary
// exists; the first Put, Get or Has reports that.
func New(opts Options) *CAS {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	env := opts.Env
	if opts.RepoPath != "" {
		if env == nil {
			env = os.Environ()
		}
		env = append(append([]string(nil), env...), "IPFS_PATH="+opts.RepoPath)
	}
	return &CAS{bin: bin, env: env}
}

// Put stores data with "ipfs block put" and fails with storage.ErrCIDMismatch
// if Kubo reports a different CID than the one derived locally.
func (c *CAS) Put(data []byte) (cid.Cid, error) {
	id, err := cidutil.CIDv1RawSHA3512CID(data)
	if err != nil {
		return cid.Undef, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-IPFS-900", "ipfs: derive cid", err)
	}

	out, err := c.run(data,
		"block", "put",
		"--quiet",
		"--cid-codec=raw",
		"--mhtype=sha3-512",
		"--mhlen=64",
	)
	if err != nil {
		return cid.Undef, err
	}
	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return cid.Undef, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-IPFS-002", "ipfs: unexpected block put output", err)
	}
	if got != id {
		return cid.Undef, storage.ErrCIDMismatch
	}
	return id, nil
}

func (c *CAS) Get(id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	out, err := c.run(nil, "block", "get", id.String())
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	got, err := cidutil.CIDv1RawSHA3512CID(out)
	if err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-IPFS-900", "ipfs: derive cid", err)
	}
	if got != id {
		return nil, storage.ErrCIDMismatch
	}
	return out, nil
}

func (c *CAS) Has(id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	_, err := c.run(nil, "block", "stat", id.String())
	return err == nil
}

func (c *CAS) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(c.bin, args...)
	if c.env != nil {
		cmd.Env = c.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		if s := strings.TrimSpace(string(ee.Stderr)); s != "" {
			return nil, bloomerr.New(bloomerr.KindStorage, "BLOOM-IPFS-001", "ipfs: "+s)
		}
	}
	return nil, bloomerr.Wrap(bloomerr.KindStorage, "BLOOM-IPFS-001", "ipfs: "+strings.Join(args[:2], " "), err)
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}
