package ipfs

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"

	"xdao.co/bloom/cidutil"
	"xdao.co/bloom/storage"
	"xdao.co/bloom/storage/casregistry"
	"xdao.co/bloom/storage/testkit"
)

// fakeIPFS mimics "ipfs block put|get|stat" for a single block. Put echoes
// $FAKE_CID rather than hashing.
const fakeIPFS = `#!/bin/sh
case "$1 $2" in
"block put") cat > "$FAKE_DIR/block"; echo "$FAKE_CID" ;;
"block get") if [ -f "$FAKE_DIR/block" ]; then cat "$FAKE_DIR/block"; else echo "Error: block not found" >&2; exit 1; fi ;;
"block stat") [ -f "$FAKE_DIR/block" ] || { echo "Error: block not found" >&2; exit 1; } ;;
*) echo "unexpected: $*" >&2; exit 2 ;;
esac
`

func newFake(t *testing.T, reportedCID string) *CAS {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake ipfs needs /bin/sh")
	}
	dir := t.TempDir()
	bin := filepath.Join(dir, "ipfs")
	if err := os.WriteFile(bin, []byte(fakeIPFS), 0o755); err != nil {
		t.Fatalf("write fake: %v", err)
	}
	env := append(os.Environ(), "FAKE_DIR="+dir, "FAKE_CID="+reportedCID)
	return New(Options{Bin: bin, Env: env})
}

func TestFake_PutGetHas(t *testing.T) {
	data := []byte("block via kubo")
	id, err := cidutil.CIDv1RawSHA3512CID(data)
	if err != nil {
		t.Fatal(err)
	}
	c := newFake(t, id.String())

	if c.Has(id) {
		t.Fatalf("Has before Put")
	}
	if _, err := c.Get(id); !storage.IsNotFound(err) {
		t.Fatalf("Get before Put: got %v want ErrNotFound", err)
	}
	got, err := c.Put(data)
	if err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if got != id {
		t.Fatalf("Put CID = %s want %s", got, id)
	}
	if !c.Has(id) {
		t.Fatalf("Has after Put")
	}
	b, err := c.Get(id)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(b) != string(data) {
		t.Fatalf("Get bytes mismatch")
	}
}

func TestFake_PutDetectsForeignCID(t *testing.T) {
	other, err := cidutil.CIDv1RawSHA3512CID([]byte("other"))
	if err != nil {
		t.Fatal(err)
	}
	c := newFake(t, other.String())
	if _, err := c.Put([]byte("data")); err != storage.ErrCIDMismatch {
		t.Fatalf("Put: got %v want ErrCIDMismatch", err)
	}
	// The fake now holds "data"; asking for it under another CID must fail closed.
	if _, err := c.Get(other); err != storage.ErrCIDMismatch {
		t.Fatalf("Get: got %v want ErrCIDMismatch", err)
	}
}

func TestNew_RepoPath(t *testing.T) {
	c := New(Options{RepoPath: "/tmp/repo", Env: []string{"A=1"}})
	if c.bin != "ipfs" {
		t.Fatalf("bin = %q", c.bin)
	}
	if len(c.env) != 2 || c.env[1] != "IPFS_PATH=/tmp/repo" {
		t.Fatalf("env = %v", c.env)
	}
}

func TestRegistry_Open(t *testing.T) {
	cas, _, err := casregistry.OpenWithConfig("ipfs", casregistry.UsageCLI, map[string]string{SettingBin: "/nonexistent/ipfs"})
	if err != nil {
		t.Fatalf("OpenWithConfig: %v", err)
	}
	if _, err := cas.Put([]byte("x")); err == nil {
		t.Fatalf("expected failure from a missing binary")
	}
}

// TestKubo_Conformance runs against a real Kubo install when one is available.
func TestKubo_Conformance(t *testing.T) {
	bin, err := exec.LookPath("ipfs")
	if err != nil {
		t.Skip("ipfs not on PATH")
	}
	repo := t.TempDir()
	initCmd := exec.Command(bin, "init", "--profile=test")
	initCmd.Env = append(os.Environ(), "IPFS_PATH="+repo)
	if out, err := initCmd.CombinedOutput(); err != nil {
		t.Skipf("ipfs init failed: %v: %s", err, out)
	}
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return New(Options{Bin: bin, RepoPath: repo})
	})
}
