// Package bloomerr defines the structured error taxonomy shared by the Bloom
// envelope packages.
package bloomerr

import "errors"

// Kind is a stable category for programmatic error handling.
//
// Callers should branch on Kind/RuleID rather than matching error strings.
// Error() strings are human-readable and may evolve.
type Kind string

const (
	KindIO                  Kind = "IO"
	KindParse               Kind = "Parse"
	KindCanonical           Kind = "Canonical"
	KindSealMissing         Kind = "SealMissing"
	KindSealMismatch        Kind = "SealMismatch"
	KindFingerprintAbsent   Kind = "FingerprintAbsent"
	KindFingerprintMismatch Kind = "FingerprintMismatch"
	KindStorage             Kind = "Storage"
	KindConfig              Kind = "Config"
	KindInternal            Kind = "Internal"
)

// Error is the structured error type returned across package boundaries.
//
// RuleID is a stable identifier (e.g., BLOOM-IO-001, BLOOM-SEAL-002) that names
// the violated rule. Message is intended for humans; do not match on it.
type Error struct {
	Kind    Kind
	RuleID  string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// New returns a structured error without a cause.
func New(kind Kind, ruleID, msg string) error {
	return &Error{Kind: kind, RuleID: ruleID, Message: msg}
}

// Wrap returns a structured error wrapping cause. A nil cause yields New.
func Wrap(kind Kind, ruleID, msg string, cause error) error {
	if cause == nil {
		return New(kind, ruleID, msg)
	}
	return &Error{Kind: kind, RuleID: ruleID, Message: msg, Cause: cause}
}

// IsKind reports whether err is (or wraps) a *Error with the given Kind.
func IsKind(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}

// KindOf returns the Kind of a structured error, or "" if err is not one.
func KindOf(err error) Kind {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Kind
}

// RuleID returns the stable RuleID for a structured error, or "" if unknown.
func RuleID(err error) string {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.RuleID
}
