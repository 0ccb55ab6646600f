// Package cidutil derives the content identifiers used by the Bloom archive.
//
// Every CID is CIDv1 with the "raw" multicodec and a sha3-512 multihash, so the
// CID of an anchored artifact follows directly from its fingerprint hash.
package cidutil

import (
	"encoding/hex"
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/bloom/digest"
)

// CIDv1RawSHA3512 returns the CID string for data, or "" if it cannot be built.
func CIDv1RawSHA3512(data []byte) string {
	id, err := CIDv1RawSHA3512CID(data)
	if err != nil {
		return ""
	}
	return id.String()
}

// CIDv1RawSHA3512CID returns the CIDv1 (raw + sha3-512) derived from data.
func CIDv1RawSHA3512CID(data []byte) (cid.Cid, error) {
	sum := digest.Sum(data)
	mh, err := multihash.Encode(sum[:], multihash.SHA3_512)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// FromHex builds the CID for content whose sha3-512 digest is hexDigest.
func FromHex(hexDigest string) (cid.Cid, error) {
	if !digest.ValidHex(hexDigest) {
		return cid.Undef, fmt.Errorf("cidutil: not a sha3-512 hex digest: %q", hexDigest)
	}
	raw, err := hex.DecodeString(hexDigest)
	if err != nil {
		return cid.Undef, err
	}
	mh, err := multihash.Encode(raw, multihash.SHA3_512)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// HexDigest returns the sha3-512 hex digest carried by id.
func HexDigest(id cid.Cid) (string, error) {
	if !id.Defined() {
		return "", fmt.Errorf("cidutil: undefined cid")
	}
	dec, err := multihash.Decode(id.Hash())
	if err != nil {
		return "", err
	}
	if dec.Code != multihash.SHA3_512 {
		return "", fmt.Errorf("cidutil: unsupported multihash %s", multihash.Codes[dec.Code])
	}
	return hex.EncodeToString(dec.Digest), nil
}
