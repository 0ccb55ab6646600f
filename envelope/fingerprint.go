package envelope

import (
	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/digest"
)

// ExternalFingerprintsPresent reports whether any fingerprint uses the
// supported algorithm, regardless of its hash. This is the presence-only check
// used when no live artifact is available.
func ExternalFingerprintsPresent(e *Envelope) bool {
	if e == nil {
		return false
	}
	for _, f := range e.ExternalFingerprints {
		if f.supported() {
			return true
		}
	}
	return false
}

// CheckExternalFingerprints checks the envelope's fingerprint claims.
//
// With an empty target it only requires a supported fingerprint to be present.
// Otherwise the target file is hashed once and the first supported fingerprint
// with an equal hash succeeds. The seal is not consulted.
//
// Failures: KindFingerprintAbsent when there is nothing to check against,
// KindFingerprintMismatch when no supported fingerprint matches, KindIO when
// the target cannot be read.
func CheckExternalFingerprints(e *Envelope, target string) error {
	if target == "" {
		if !ExternalFingerprintsPresent(e) {
			return bloomerr.New(bloomerr.KindFingerprintAbsent, "BLOOM-FP-001", "no supported external fingerprint")
		}
		return nil
	}
	if e == nil || len(e.ExternalFingerprints) == 0 {
		return bloomerr.New(bloomerr.KindFingerprintAbsent, "BLOOM-FP-002", "no external fingerprints to check target against")
	}
	h, err := digest.File(target)
	if err != nil {
		return err
	}
	_, err = matchDigest(e, h)
	return err
}

// VerifyExternalFingerprints is the boolean form of CheckExternalFingerprints.
func VerifyExternalFingerprints(e *Envelope, target string) bool {
	return CheckExternalFingerprints(e, target) == nil
}

// MatchDigest returns the index of the first supported fingerprint whose hash
// equals hexDigest.
func MatchDigest(e *Envelope, hexDigest string) (int, error) {
	if e == nil || len(e.ExternalFingerprints) == 0 {
		return -1, bloomerr.New(bloomerr.KindFingerprintAbsent, "BLOOM-FP-002", "no external fingerprints to check target against")
	}
	return matchDigest(e, hexDigest)
}

func matchDigest(e *Envelope, hexDigest string) (int, error) {
	supportedSeen := false
	for i, f := range e.ExternalFingerprints {
		if !f.supported() {
			continue
		}
		supportedSeen = true
		if f.Hash == hexDigest {
			return i, nil
		}
	}
	if !supportedSeen {
		return -1, bloomerr.New(bloomerr.KindFingerprintAbsent, "BLOOM-FP-003", "no fingerprint uses "+digest.Algorithm)
	}
	return -1, bloomerr.New(bloomerr.KindFingerprintMismatch, "BLOOM-FP-004", "target does not match any external fingerprint")
}
