package envelope

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/digest"
)

func TestVerify_Outcomes(t *testing.T) {
	dir := t.TempDir()
	content := []byte("artifact")
	target := writeFile(t, dir, "artifact.bin", content)
	stale := writeFile(t, dir, "stale.bin", []byte("other"))

	sealed, err := Build(map[string]any{"k": "v"}, []Fingerprint{
		{Algorithm: "sha256", Hash: "ignored", Target: "x"},
		NewFingerprint(digest.Bytes(content), "artifact.bin"),
	})
	require.NoError(t, err)

	unsealed := sealed.Clone()
	unsealed.EternalSeal = ""

	tampered := sealed.Clone()
	tampered.Payload["k"] = "w"

	empty, err := Build(nil, nil)
	require.NoError(t, err)

	tests := []struct {
		name    string
		env     *Envelope
		opts    VerifyOptions
		mode    Mode
		outcome Outcome
		kind    bloomerr.Kind
		matched int
	}{
		{name: "presence pass", env: sealed, mode: ModePresence, outcome: OutcomePass, matched: -1},
		{name: "match pass", env: sealed, opts: VerifyOptions{Target: target}, mode: ModeMatch, outcome: OutcomePass, matched: 1},
		{name: "digest pass", env: sealed, opts: VerifyOptions{TargetDigest: digest.Bytes(content)}, mode: ModeMatch, outcome: OutcomePass, matched: 1},
		{name: "stale target", env: sealed, opts: VerifyOptions{Target: stale}, mode: ModeMatch, outcome: OutcomeFingerprintInvalid, kind: bloomerr.KindFingerprintMismatch, matched: -1},
		{name: "missing target", env: sealed, opts: VerifyOptions{Target: filepath.Join(dir, "nope")}, mode: ModeMatch, outcome: OutcomeIOError, kind: bloomerr.KindIO, matched: -1},
		{name: "directory target", env: sealed, opts: VerifyOptions{Target: dir}, mode: ModeMatch, outcome: OutcomeIOError, kind: bloomerr.KindIO, matched: -1},
		{name: "missing seal", env: unsealed, mode: ModePresence, outcome: OutcomeSealMissing, kind: bloomerr.KindSealMissing, matched: -1},
		{name: "tampered", env: tampered, opts: VerifyOptions{Target: target}, mode: ModeMatch, outcome: OutcomeSealInvalid, kind: bloomerr.KindSealMismatch, matched: -1},
		{name: "empty presence", env: empty, mode: ModePresence, outcome: OutcomeFingerprintInvalid, kind: bloomerr.KindFingerprintAbsent, matched: -1},
		{name: "empty match", env: empty, opts: VerifyOptions{Target: target}, mode: ModeMatch, outcome: OutcomeFingerprintInvalid, kind: bloomerr.KindFingerprintAbsent, matched: -1},
		{name: "empty presence allowed", env: empty, opts: VerifyOptions{AllowEmpty: true}, mode: ModePresence, outcome: OutcomePass, matched: -1},
		{name: "empty match allowed", env: empty, opts: VerifyOptions{Target: target, AllowEmpty: true}, mode: ModeMatch, outcome: OutcomePass, matched: -1},
		{name: "stale not rescued by allow empty", env: sealed, opts: VerifyOptions{Target: stale, AllowEmpty: true}, mode: ModeMatch, outcome: OutcomeFingerprintInvalid, kind: bloomerr.KindFingerprintMismatch, matched: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Verify(tt.env, tt.opts)
			assert.Equal(t, tt.mode, r.Mode)
			assert.Equal(t, tt.outcome, r.Outcome)
			assert.Equal(t, tt.matched, r.Matched)
			if tt.outcome == OutcomePass {
				assert.True(t, r.OK())
				assert.NoError(t, r.Err)
				return
			}
			assert.False(t, r.OK())
			require.Error(t, r.Err)
			assert.Equal(t, tt.kind, bloomerr.KindOf(r.Err), "err: %v", r.Err)
		})
	}
}

func TestVerify_UnreadableTargetBeforeSeal(t *testing.T) {
	// Even a tampered envelope reports the IO failure first.
	e, err := Build(nil, []Fingerprint{NewFingerprint(digest.Bytes([]byte("x")), "x")})
	require.NoError(t, err)
	e.Version = "9"

	r := Verify(e, VerifyOptions{Target: filepath.Join(t.TempDir(), "absent")})
	assert.Equal(t, OutcomeIOError, r.Outcome)
}

func TestVerify_UnsupportedOnlyAllowEmpty(t *testing.T) {
	dir := t.TempDir()
	target := writeFile(t, dir, "t.bin", []byte("t"))
	e, err := Build(nil, []Fingerprint{{Algorithm: "md5", Hash: "00", Target: "t.bin"}})
	require.NoError(t, err)

	r := Verify(e, VerifyOptions{Target: target})
	assert.Equal(t, OutcomeFingerprintInvalid, r.Outcome)
	assert.Equal(t, "BLOOM-FP-003", bloomerr.RuleID(r.Err))

	r = Verify(e, VerifyOptions{Target: target, AllowEmpty: true})
	assert.True(t, r.OK())
}

func TestVerify_ReportsTargetDigest(t *testing.T) {
	e, path := anchoredEnvelope(t, []byte("bytes"))
	r := Verify(e, VerifyOptions{Target: path})
	require.True(t, r.OK())
	assert.Equal(t, digest.Bytes([]byte("bytes")), r.TargetDigest)
	assert.Equal(t, 0, r.Matched)

	require.NoError(t, os.WriteFile(path, []byte("changed"), 0o644))
	r = Verify(e, VerifyOptions{Target: path})
	assert.Equal(t, OutcomeFingerprintInvalid, r.Outcome)
	assert.Equal(t, digest.Bytes([]byte("changed")), r.TargetDigest)
}
