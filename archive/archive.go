// Package archive keeps sealed envelopes and the artifacts they anchor in a
// content-addressed store.
//
// Envelopes are stored in canonical form (package canonical, seal member
// included), so the same envelope always lands on the same CID whatever layout
// it was read from, and every number keeps its literal.
// Artifacts are stored raw; because block CIDs use a sha3-512 multihash the
// CID of an anchored artifact follows from its fingerprint alone.
package archive

import (
	"github.com/ipfs/go-cid"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/canonical"
	"xdao.co/bloom/cidutil"
	"xdao.co/bloom/digest"
	"xdao.co/bloom/envelope"
	"xdao.co/bloom/storage"
)

// Archive wraps a store.
type Archive struct {
	cas storage.CAS
}

// New returns an archive over cas.
func New(cas storage.CAS) *Archive {
	return &Archive{cas: cas}
}

// CAS returns the underlying store.
func (a *Archive) CAS() storage.CAS { return a.cas }

// EnvelopeBytes returns the bytes PutEnvelope stores for e.
func EnvelopeBytes(e *envelope.Envelope) ([]byte, error) {
	if e == nil {
		return nil, bloomerr.New(bloomerr.KindInternal, "BLOOM-ARC-001", "nil envelope")
	}
	return canonical.Marshal(e.Members())
}

// PutEnvelope stores e and returns its CID. The envelope is stored as is; an
// unsealed or tampered envelope is archived faithfully and fails VerifyStored.
func (a *Archive) PutEnvelope(e *envelope.Envelope) (cid.Cid, error) {
	b, err := EnvelopeBytes(e)
	if err != nil {
		return cid.Undef, err
	}
	return a.cas.Put(b)
}

// GetEnvelope loads and parses the envelope stored at id.
func (a *Archive) GetEnvelope(id cid.Cid) (*envelope.Envelope, error) {
	b, err := a.cas.Get(id)
	if err != nil {
		return nil, err
	}
	return envelope.Parse(b)
}

// PutTarget stores artifact bytes and returns their CID.
func (a *Archive) PutTarget(content []byte) (cid.Cid, error) {
	return a.cas.Put(content)
}

// TargetCID derives the CID an artifact with fingerprint fp is stored under.
// Only fingerprints using digest.Algorithm map to a CID.
func TargetCID(fp envelope.Fingerprint) (cid.Cid, error) {
	if fp.Algorithm != digest.Algorithm {
		return cid.Undef, bloomerr.New(bloomerr.KindFingerprintAbsent, "BLOOM-ARC-002", "fingerprint algorithm "+fp.Algorithm+" has no CID mapping")
	}
	id, err := cidutil.FromHex(fp.Hash)
	if err != nil {
		return cid.Undef, bloomerr.Wrap(bloomerr.KindFingerprintMismatch, "BLOOM-ARC-003", "fingerprint hash is not a sha3-512 digest", err)
	}
	return id, nil
}

// VerifyStored verifies the envelope at id against the archived artifacts.
//
// Every supported fingerprint whose artifact is present in the store is
// checked; the first one that passes Verify wins. When none of the anchored
// artifacts is archived the report is the presence-only verification.
func (a *Archive) VerifyStored(id cid.Cid, allowEmpty bool) (envelope.Report, error) {
	e, err := a.GetEnvelope(id)
	if err != nil {
		return envelope.Report{}, err
	}

	var last envelope.Report
	tried := false
	for _, fp := range e.ExternalFingerprints {
		tid, err := TargetCID(fp)
		if err != nil || !a.cas.Has(tid) {
			continue
		}
		content, err := a.cas.Get(tid)
		if err != nil {
			return envelope.Report{}, err
		}
		tried = true
		last = envelope.Verify(e, envelope.VerifyOptions{
			TargetDigest: digest.Bytes(content),
			AllowEmpty:   allowEmpty,
		})
		if last.OK() || last.Outcome != envelope.OutcomeFingerprintInvalid {
			return last, nil
		}
	}
	if tried {
		return last, nil
	}
	return envelope.Verify(e, envelope.VerifyOptions{AllowEmpty: allowEmpty}), nil
}
