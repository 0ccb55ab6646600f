package testkit

import (
	"testing"

	"xdao.co/bloom/storage"
)

func TestMemory_Conformance(t *testing.T) {
	RunCASConformance(t, func(t *testing.T) storage.CAS {
		t.Helper()
		return NewMemory()
	})
}
