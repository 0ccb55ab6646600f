// Package testkit holds the behavioural checks every storage.CAS backend must
// pass, and an in-memory store for tests of code layered on top of storage.
package testkit

import (
	"bytes"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/bloom/cidutil"
	"xdao.co/bloom/digest"
	"xdao.co/bloom/storage"
)

// NewCAS constructs a fresh, empty CAS for one test.
type NewCAS func(t *testing.T) storage.CAS

// RunCASConformance runs the shared backend checks against stores built by newCAS.
func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("hello, bloom archive")

		id, err := cas.Put(want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		wantID, err := cidutil.CIDv1RawSHA3512CID(want)
		if err != nil {
			t.Fatalf("CIDv1RawSHA3512CID failed: %v", err)
		}
		if id != wantID {
			t.Fatalf("Put CID mismatch: got %s want %s", id, wantID)
		}

		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
	})

	t.Run("CIDMatchesFingerprint", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("anchored artifact")
		id, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		fromHex, err := cidutil.FromHex(digest.Bytes(b))
		if err != nil {
			t.Fatalf("FromHex failed: %v", err)
		}
		if id != fromHex {
			t.Fatalf("CID %s does not follow from fingerprint (%s)", id, fromHex)
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")

		id1, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		id2, err := cas.Put(b)
		if err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
		if id1 != id2 {
			t.Fatalf("Put not idempotent: %s vs %s", id1, id2)
		}
	})

	t.Run("EmptyBlock", func(t *testing.T) {
		cas := newCAS(t)
		id, err := cas.Put(nil)
		if err != nil {
			t.Fatalf("Put(empty) failed: %v", err)
		}
		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get(empty) failed: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("Get(empty) returned %d bytes", len(got))
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id, err := cidutil.CIDv1RawSHA3512CID(b)
		if err != nil {
			t.Fatalf("CIDv1RawSHA3512CID failed: %v", err)
		}

		if cas.Has(id) {
			t.Fatalf("Has returned true for missing CID")
		}
		_, err = cas.Get(id)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if _, err := cas.Put(b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if cas.Has(undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Get(undef); err == nil {
			t.Fatalf("Get should fail for undefined CID")
		}
	})
}
