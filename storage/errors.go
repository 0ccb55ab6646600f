package storage

import (
	"errors"

	"xdao.co/bloom/bloomerr"
)

// Sentinel failures shared by every backend. They are *bloomerr.Error values of
// KindStorage, so both errors.Is and bloomerr.IsKind work on them.
var (
	ErrNotFound    = bloomerr.New(bloomerr.KindStorage, "BLOOM-CAS-001", "storage: not found")
	ErrInvalidCID  = bloomerr.New(bloomerr.KindStorage, "BLOOM-CAS-002", "storage: invalid cid")
	ErrCIDMismatch = bloomerr.New(bloomerr.KindStorage, "BLOOM-CAS-003", "storage: cid mismatch")
	ErrImmutable   = bloomerr.New(bloomerr.KindStorage, "BLOOM-CAS-004", "storage: immutable object mismatch")
	ErrNoBackends  = bloomerr.New(bloomerr.KindStorage, "BLOOM-CAS-005", "storage: no backends configured")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
