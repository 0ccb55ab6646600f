package envelope

import (
	"os"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/digest"
)

// Mode is the fingerprint stage strategy.
type Mode string

const (
	// ModePresence accepts any supported fingerprint without checking freshness.
	ModePresence Mode = "presence"
	// ModeMatch requires a supported fingerprint equal to the live artifact digest.
	ModeMatch Mode = "match"
)

// Outcome is the terminal state of a verification pass.
type Outcome string

const (
	// OutcomePass means the seal holds and the fingerprint stage accepted.
	OutcomePass Outcome = "pass"
	// OutcomeIOError means the target could not be read; no seal logic ran.
	OutcomeIOError Outcome = "io-error"
	// OutcomeSealMissing means the envelope carries no eternal_seal.
	OutcomeSealMissing Outcome = "seal-missing"
	// OutcomeSealInvalid means the recomputed seal differs from the stored one.
	OutcomeSealInvalid Outcome = "seal-invalid"
	// OutcomeFingerprintInvalid means the seal holds but no fingerprint vouches
	// for the target (or, in presence mode, none is supported).
	OutcomeFingerprintInvalid Outcome = "fingerprint-invalid"
)

// VerifyOptions selects the fingerprint stage.
//
// When both Target and TargetDigest are empty the presence-only mode is used.
// TargetDigest lets callers that already hold the artifact digest (for example
// from an archive) skip the file read.
type VerifyOptions struct {
	Target       string
	TargetDigest string
	// AllowEmpty passes the fingerprint stage when the envelope carries no
	// supported fingerprint at all. A supported but stale fingerprint still fails.
	AllowEmpty bool
}

func (o VerifyOptions) mode() Mode {
	if o.Target == "" && o.TargetDigest == "" {
		return ModePresence
	}
	return ModeMatch
}

// Report is the structured result of Verify.
//
// Err is the structured cause (a *bloomerr.Error) for every outcome except
// OutcomePass. Matched is the index of the matching fingerprint in ModeMatch,
// -1 otherwise.
type Report struct {
	Mode         Mode
	Outcome      Outcome
	Err          error
	Matched      int
	TargetDigest string
}

// OK reports whether the pass ended in OutcomePass.
func (r Report) OK() bool { return r.Outcome == OutcomePass }

// Verify runs a single verification pass over e:
//
//	target readable? -> seal present? -> seal matches? -> fingerprints hold? -> pass
//
// The first failing step is terminal. An unreadable target aborts before any
// seal logic runs.
func Verify(e *Envelope, opts VerifyOptions) Report {
	r := Report{Mode: opts.mode(), Matched: -1}

	if opts.Target != "" && opts.TargetDigest == "" {
		info, err := os.Stat(opts.Target)
		if err != nil {
			return r.fail(OutcomeIOError, bloomerr.Wrap(bloomerr.KindIO, "BLOOM-IO-001", "stat "+opts.Target, err))
		}
		if !info.Mode().IsRegular() {
			return r.fail(OutcomeIOError, bloomerr.New(bloomerr.KindIO, "BLOOM-IO-002", opts.Target+" is not a regular file"))
		}
	}

	if err := CheckSeal(e); err != nil {
		if bloomerr.IsKind(err, bloomerr.KindSealMissing) {
			return r.fail(OutcomeSealMissing, err)
		}
		return r.fail(OutcomeSealInvalid, err)
	}

	if r.Mode == ModePresence {
		if err := CheckExternalFingerprints(e, ""); err != nil && !opts.AllowEmpty {
			return r.fail(OutcomeFingerprintInvalid, err)
		}
		r.Outcome = OutcomePass
		return r
	}

	if len(e.ExternalFingerprints) == 0 {
		if opts.AllowEmpty {
			r.Outcome = OutcomePass
			return r
		}
		return r.fail(OutcomeFingerprintInvalid, bloomerr.New(bloomerr.KindFingerprintAbsent, "BLOOM-FP-002", "no external fingerprints to check target against"))
	}

	h := opts.TargetDigest
	if h == "" {
		var err error
		h, err = digest.File(opts.Target)
		if err != nil {
			return r.fail(OutcomeIOError, err)
		}
	}
	r.TargetDigest = h

	idx, err := matchDigest(e, h)
	if err != nil {
		if opts.AllowEmpty && bloomerr.IsKind(err, bloomerr.KindFingerprintAbsent) {
			r.Outcome = OutcomePass
			return r
		}
		return r.fail(OutcomeFingerprintInvalid, err)
	}
	r.Matched = idx
	r.Outcome = OutcomePass
	return r
}

func (r Report) fail(o Outcome, err error) Report {
	r.Outcome = o
	r.Err = err
	return r
}
