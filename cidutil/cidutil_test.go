package cidutil

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/bloom/digest"
)

func TestCIDv1RawSHA3512_MatchesMultihashSum(t *testing.T) {
	data := []byte("hello")
	id, err := CIDv1RawSHA3512CID(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA3512CID: %v", err)
	}
	sum, err := multihash.Sum(data, multihash.SHA3_512, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	want := cid.NewCidV1(cid.Raw, sum)
	if !id.Equals(want) {
		t.Fatalf("cid mismatch: got %s want %s", id, want)
	}
	if id.Prefix().Codec != cid.Raw || id.Version() != 1 {
		t.Fatalf("unexpected prefix %+v", id.Prefix())
	}
	if CIDv1RawSHA3512(data) != id.String() {
		t.Fatalf("string form mismatch")
	}
}

func TestFromHex_RoundTripsThroughHexDigest(t *testing.T) {
	data := []byte("anchor-me")
	hexDigest := digest.Bytes(data)

	id, err := FromHex(hexDigest)
	if err != nil {
		t.Fatalf("FromHex: %v", err)
	}
	direct, err := CIDv1RawSHA3512CID(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA3512CID: %v", err)
	}
	if !id.Equals(direct) {
		t.Fatalf("FromHex(%s) = %s, want %s", hexDigest, id, direct)
	}

	back, err := HexDigest(id)
	if err != nil {
		t.Fatalf("HexDigest: %v", err)
	}
	if back != hexDigest {
		t.Fatalf("HexDigest mismatch: got %s want %s", back, hexDigest)
	}
}

func TestFromHex_RejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "abc", "ZZ" + digest.Bytes(nil)[2:]} {
		if _, err := FromHex(in); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
}

func TestHexDigest_RejectsOtherMultihash(t *testing.T) {
	sum, err := multihash.Sum([]byte("x"), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	if _, err := HexDigest(cid.NewCidV1(cid.Raw, sum)); err == nil {
		t.Fatalf("expected error for sha2-256 cid")
	}
	if _, err := HexDigest(cid.Undef); err == nil {
		t.Fatalf("expected error for undefined cid")
	}
}
