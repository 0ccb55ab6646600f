package envelope

import (
	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/canonical"
	"xdao.co/bloom/digest"
)

// SealOf computes the Eternal Seal of an envelope-like mapping: the digest of
// the canonical form of members with any eternal_seal member removed.
// members is not modified.
func SealOf(members map[string]any) (string, error) {
	unsealed := make(map[string]any, len(members))
	for k, v := range members {
		if k == fieldSeal {
			continue
		}
		unsealed[k] = v
	}
	b, err := canonical.Marshal(unsealed)
	if err != nil {
		return "", err
	}
	return digest.Bytes(b), nil
}

// MintSeal computes the seal of e, ignoring e.EternalSeal.
func MintSeal(e *Envelope) (string, error) {
	if e == nil {
		return "", bloomerr.New(bloomerr.KindInternal, "BLOOM-SEAL-000", "nil envelope")
	}
	return SealOf(e.Members())
}

// CheckSeal recomputes the seal of e and compares it with the stored one.
//
// A missing or empty seal fails with KindSealMissing, a differing one with
// KindSealMismatch. The comparison is a plain string comparison.
func CheckSeal(e *Envelope) error {
	if e == nil || e.EternalSeal == "" {
		return bloomerr.New(bloomerr.KindSealMissing, "BLOOM-SEAL-001", "eternal seal missing")
	}
	want, err := MintSeal(e)
	if err != nil {
		return err
	}
	if e.EternalSeal != want {
		return bloomerr.New(bloomerr.KindSealMismatch, "BLOOM-SEAL-002", "eternal seal invalid")
	}
	return nil
}

// VerifySeal reports whether e carries a seal matching its content.
func VerifySeal(e *Envelope) bool {
	return CheckSeal(e) == nil
}
