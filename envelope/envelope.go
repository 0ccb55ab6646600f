// Package envelope mints and verifies Bloom envelopes.
//
// An envelope binds an arbitrary payload and zero or more external file
// fingerprints under the Eternal Seal: the sha3-512 digest of the canonical
// form of every top-level member except the seal itself. Any change to the
// version, the payload or the fingerprint list after minting changes the
// recomputed seal.
//
// Seal integrity (CheckSeal) and fingerprint freshness
// (CheckExternalFingerprints) are independent checks; Verify runs both in a
// single pass and reports which one failed.
package envelope

import (
	"path/filepath"

	"xdao.co/bloom/canonical"
	"xdao.co/bloom/digest"
)

// Version is the schema tag written into every envelope built here.
// Verification does not reject other values.
const Version = "1.1"

const (
	fieldVersion      = "version"
	fieldPayload      = "payload"
	fieldFingerprints = "external_fingerprints"
	fieldSeal         = "eternal_seal"

	fpAlgorithm = "algorithm"
	fpHash      = "hash"
	fpTarget    = "target"
)

// Fingerprint is a claim that a named external artifact has a given digest.
// Target is a display label only and never takes part in comparisons.
// Extra holds members other tools attach to an entry (for example a size);
// they are kept and sealed but never checked.
type Fingerprint struct {
	Algorithm string         `json:"algorithm"`
	Hash      string         `json:"hash"`
	Target    string         `json:"target"`
	Extra     map[string]any `json:"-"`
}

// NewFingerprint returns a fingerprint for the supported algorithm.
func NewFingerprint(hash, target string) Fingerprint {
	return Fingerprint{Algorithm: digest.Algorithm, Hash: hash, Target: target}
}

// Anchor fingerprints the file at path. Target is the file's base name.
func Anchor(path string) (Fingerprint, error) {
	h, err := digest.File(path)
	if err != nil {
		return Fingerprint{}, err
	}
	return NewFingerprint(h, filepath.Base(path)), nil
}

func (f Fingerprint) supported() bool { return f.Algorithm == digest.Algorithm }

// Envelope is a sealed document.
//
// Payload holds values in the canonical data model (see package canonical).
// Extra carries top-level members this package does not interpret; they are
// serialized back and remain covered by the seal.
type Envelope struct {
	Version              string
	Payload              map[string]any
	ExternalFingerprints []Fingerprint
	EternalSeal          string
	Extra                map[string]any
}

// Build constructs a new envelope and mints its seal over the fully populated
// skeleton, fingerprints included. A nil payload becomes an empty mapping and
// nil fingerprints an empty list.
func Build(payload map[string]any, fingerprints []Fingerprint) (*Envelope, error) {
	p := map[string]any{}
	if payload != nil {
		n, err := canonical.FromAny(payload)
		if err != nil {
			return nil, err
		}
		p = n.(map[string]any)
	}
	fps := cloneFingerprints(fingerprints)
	if fps == nil {
		fps = []Fingerprint{}
	}

	e := &Envelope{
		Version:              Version,
		Payload:              p,
		ExternalFingerprints: fps,
	}
	seal, err := MintSeal(e)
	if err != nil {
		return nil, err
	}
	e.EternalSeal = seal
	return e, nil
}

// Clone returns a deep copy of e.
func (e *Envelope) Clone() *Envelope {
	if e == nil {
		return nil
	}
	out := &Envelope{
		Version:              e.Version,
		EternalSeal:          e.EternalSeal,
		ExternalFingerprints: cloneFingerprints(e.ExternalFingerprints),
		Payload:              cloneMap(e.Payload),
		Extra:                cloneMap(e.Extra),
	}
	return out
}

// Members returns the envelope as a generic top-level mapping, the shape the
// seal is computed over. The seal member is present only when set.
func (e *Envelope) Members() map[string]any {
	m := make(map[string]any, len(e.Extra)+4)
	for k, v := range e.Extra {
		m[k] = v
	}
	m[fieldVersion] = e.Version
	if e.Payload == nil {
		m[fieldPayload] = map[string]any{}
	} else {
		m[fieldPayload] = e.Payload
	}
	fps := make([]any, 0, len(e.ExternalFingerprints))
	for _, f := range e.ExternalFingerprints {
		m := make(map[string]any, len(f.Extra)+3)
		for k, v := range f.Extra {
			m[k] = v
		}
		m[fpAlgorithm] = f.Algorithm
		m[fpHash] = f.Hash
		m[fpTarget] = f.Target
		fps = append(fps, m)
	}
	m[fieldFingerprints] = fps
	if e.EternalSeal != "" {
		m[fieldSeal] = e.EternalSeal
	}
	return m
}

func cloneFingerprints(fps []Fingerprint) []Fingerprint {
	if fps == nil {
		return nil
	}
	out := make([]Fingerprint, len(fps))
	for i, f := range fps {
		f.Extra = cloneMap(f.Extra)
		out[i] = f
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	n, err := canonical.FromAny(m)
	if err != nil {
		// Values that cannot be normalised cannot be sealed either; keep a
		// shallow copy so the failure surfaces at MintSeal.
		out := make(map[string]any, len(m))
		for k, v := range m {
			out[k] = v
		}
		return out
	}
	return n.(map[string]any)
}
