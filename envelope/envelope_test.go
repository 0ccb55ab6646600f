package envelope

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/digest"
)

func writeFile(t *testing.T, dir, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, content, 0o644))
	return path
}

func anchoredEnvelope(t *testing.T, content []byte) (*Envelope, string) {
	t.Helper()
	path := writeFile(t, t.TempDir(), "anchor.bin", content)
	fp, err := Anchor(path)
	require.NoError(t, err)
	e, err := Build(nil, []Fingerprint{fp})
	require.NoError(t, err)
	return e, path
}

func TestBuild_Defaults(t *testing.T) {
	e, err := Build(nil, nil)
	require.NoError(t, err)
	assert.Equal(t, Version, e.Version)
	assert.NotNil(t, e.Payload)
	assert.Empty(t, e.Payload)
	assert.NotNil(t, e.ExternalFingerprints)
	assert.Empty(t, e.ExternalFingerprints)
	assert.True(t, digest.ValidHex(e.EternalSeal))
	assert.True(t, VerifySeal(e))
}

func TestBuild_Deterministic(t *testing.T) {
	payload := map[string]any{"b": []any{1, "two"}, "a": map[string]any{"y": true, "x": nil}}
	fps := []Fingerprint{NewFingerprint(digest.Bytes([]byte("x")), "x.bin")}

	first, err := Build(payload, fps)
	require.NoError(t, err)
	second, err := Build(payload, fps)
	require.NoError(t, err)
	assert.Equal(t, first.EternalSeal, second.EternalSeal)
}

func TestBuild_DoesNotAliasInputs(t *testing.T) {
	payload := map[string]any{"k": "v"}
	fps := []Fingerprint{NewFingerprint(digest.Bytes([]byte("x")), "x.bin")}
	e, err := Build(payload, fps)
	require.NoError(t, err)

	payload["k"] = "changed"
	fps[0].Hash = "changed"
	assert.True(t, VerifySeal(e))
}

func TestBuild_RejectsUnserializablePayload(t *testing.T) {
	cyclic := map[string]any{}
	cyclic["self"] = cyclic
	_, err := Build(cyclic, nil)
	require.Error(t, err)
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindCanonical))
}

func TestBuild_BindsFingerprintsIntoSeal(t *testing.T) {
	withFP, err := Build(nil, []Fingerprint{NewFingerprint(digest.Bytes([]byte("a")), "a")})
	require.NoError(t, err)
	without, err := Build(nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, withFP.EternalSeal, without.EternalSeal)
}

func TestAnchor(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "document.bin", []byte("document"))

	fp, err := Anchor(path)
	require.NoError(t, err)
	assert.Equal(t, digest.Algorithm, fp.Algorithm)
	assert.Equal(t, digest.Bytes([]byte("document")), fp.Hash)
	assert.Equal(t, "document.bin", fp.Target)

	_, err = Anchor(filepath.Join(dir, "missing"))
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindIO))
}

func TestSealOf_IgnoresSealMember(t *testing.T) {
	e, err := Build(map[string]any{"k": 1}, nil)
	require.NoError(t, err)

	members := e.Members()
	require.Contains(t, members, "eternal_seal")
	seal, err := SealOf(members)
	require.NoError(t, err)
	assert.Equal(t, e.EternalSeal, seal)
	assert.Contains(t, members, "eternal_seal", "SealOf must not mutate its input")

	members["eternal_seal"] = "something else"
	again, err := SealOf(members)
	require.NoError(t, err)
	assert.Equal(t, seal, again)
}

func TestCheckSeal_Missing(t *testing.T) {
	e, err := Build(nil, nil)
	require.NoError(t, err)
	e.EternalSeal = ""

	err = CheckSeal(e)
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindSealMissing))
	assert.False(t, VerifySeal(e))
	assert.False(t, VerifySeal(nil))
}

func TestCheckSeal_TamperSensitivity(t *testing.T) {
	base, err := Build(
		map[string]any{"owner": "alice", "count": 3},
		[]Fingerprint{
			NewFingerprint(digest.Bytes([]byte("one")), "one.bin"),
			NewFingerprint(digest.Bytes([]byte("two")), "two.bin"),
		},
	)
	require.NoError(t, err)
	require.True(t, VerifySeal(base))

	tampers := map[string]func(e *Envelope){
		"payload value":         func(e *Envelope) { e.Payload["owner"] = "mallory" },
		"payload key added":     func(e *Envelope) { e.Payload["extra"] = true },
		"payload key removed":   func(e *Envelope) { delete(e.Payload, "count") },
		"version":               func(e *Envelope) { e.Version = "1.2" },
		"fingerprint hash":      func(e *Envelope) { e.ExternalFingerprints[0].Hash = digest.Bytes([]byte("evil")) },
		"fingerprint algorithm": func(e *Envelope) { e.ExternalFingerprints[1].Algorithm = "sha256" },
		"fingerprint target":    func(e *Envelope) { e.ExternalFingerprints[0].Target = "other.bin" },
		"fingerprint removed":   func(e *Envelope) { e.ExternalFingerprints = e.ExternalFingerprints[:1] },
		"fingerprint added": func(e *Envelope) {
			e.ExternalFingerprints = append(e.ExternalFingerprints, NewFingerprint(digest.Bytes(nil), "empty"))
		},
		"fingerprints reordered": func(e *Envelope) {
			fps := e.ExternalFingerprints
			fps[0], fps[1] = fps[1], fps[0]
		},
		"extra member": func(e *Envelope) { e.Extra = map[string]any{"note": "x"} },
		"seal flipped": func(e *Envelope) {
			b := []byte(e.EternalSeal)
			if b[0] == 'a' {
				b[0] = 'b'
			} else {
				b[0] = 'a'
			}
			e.EternalSeal = string(b)
		},
	}
	for name, tamper := range tampers {
		t.Run(name, func(t *testing.T) {
			e := base.Clone()
			tamper(e)
			err := CheckSeal(e)
			require.Error(t, err)
			assert.True(t, bloomerr.IsKind(err, bloomerr.KindSealMismatch), "got %v", err)
			assert.True(t, VerifySeal(base), "tampering a clone must not affect the original")
		})
	}
}

func TestExternalFingerprintsPresent(t *testing.T) {
	empty, err := Build(nil, nil)
	require.NoError(t, err)
	assert.False(t, ExternalFingerprintsPresent(empty))
	assert.False(t, ExternalFingerprintsPresent(nil))

	unsupported, err := Build(nil, []Fingerprint{{Algorithm: "sha256", Hash: "00", Target: "x"}})
	require.NoError(t, err)
	assert.False(t, ExternalFingerprintsPresent(unsupported))

	mixed, err := Build(nil, []Fingerprint{
		{Algorithm: "sha256", Hash: "00", Target: "x"},
		NewFingerprint("not even a real hash", "y"),
	})
	require.NoError(t, err)
	assert.True(t, ExternalFingerprintsPresent(mixed))
}

func TestCheckExternalFingerprints_Freshness(t *testing.T) {
	e, path := anchoredEnvelope(t, []byte("original"))
	assert.True(t, VerifyExternalFingerprints(e, path))

	require.NoError(t, os.WriteFile(path, []byte("mutated"), 0o644))
	err := CheckExternalFingerprints(e, path)
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindFingerprintMismatch))
	assert.False(t, VerifyExternalFingerprints(e, path))

	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))
	assert.True(t, VerifyExternalFingerprints(e, path))
}

func TestCheckExternalFingerprints_AnyEntryMayMatch(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "second.bin", []byte("second"))
	e, err := Build(nil, []Fingerprint{
		NewFingerprint(digest.Bytes([]byte("first")), "first.bin"),
		{Algorithm: "sha256", Hash: digest.Bytes([]byte("second")), Target: "decoy"},
		NewFingerprint(digest.Bytes([]byte("second")), "second.bin"),
	})
	require.NoError(t, err)
	assert.NoError(t, CheckExternalFingerprints(e, path))

	idx, err := MatchDigest(e, digest.Bytes([]byte("second")))
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestCheckExternalFingerprints_EmptyList(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "t.bin", []byte("t"))
	e, err := Build(nil, nil)
	require.NoError(t, err)

	err = CheckExternalFingerprints(e, path)
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindFingerprintAbsent))
	assert.Equal(t, "BLOOM-FP-002", bloomerr.RuleID(err))

	err = CheckExternalFingerprints(e, "")
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindFingerprintAbsent))
	assert.Equal(t, "BLOOM-FP-001", bloomerr.RuleID(err))
}

func TestCheckExternalFingerprints_UnsupportedAlgorithmOnly(t *testing.T) {
	dir := t.TempDir()
	content := []byte("payload")
	path := writeFile(t, dir, "payload.bin", content)
	e, err := Build(nil, []Fingerprint{{Algorithm: "sha3-256", Hash: digest.Bytes(content), Target: "payload.bin"}})
	require.NoError(t, err)

	err = CheckExternalFingerprints(e, path)
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindFingerprintAbsent))
	assert.Equal(t, "BLOOM-FP-003", bloomerr.RuleID(err))
	assert.False(t, VerifyExternalFingerprints(e, ""))
}

func TestCheckExternalFingerprints_IgnoresSeal(t *testing.T) {
	e, path := anchoredEnvelope(t, []byte("content"))
	e.EternalSeal = ""
	e.Payload["tampered"] = true
	assert.NoError(t, CheckExternalFingerprints(e, path))
}

func TestCheckExternalFingerprints_UnreadableTarget(t *testing.T) {
	e, path := anchoredEnvelope(t, []byte("content"))
	err := CheckExternalFingerprints(e, path+".missing")
	assert.True(t, bloomerr.IsKind(err, bloomerr.KindIO))
}

// TestScenario_Hello follows the hello walkthrough end to end, including a
// single-character flip of the serialized seal.
func TestScenario_Hello(t *testing.T) {
	dir := t.TempDir()
	d := digest.Bytes([]byte("hello"))

	e, err := Build(nil, []Fingerprint{{Algorithm: "sha3-512", Hash: d, Target: "f.bin"}})
	require.NoError(t, err)
	assert.True(t, VerifySeal(e))

	same := writeFile(t, dir, "same.bin", []byte("hello"))
	assert.True(t, VerifyExternalFingerprints(e, same))

	changed := writeFile(t, dir, "changed.bin", []byte("hello!"))
	assert.False(t, VerifyExternalFingerprints(e, changed))

	b, err := Marshal(e)
	require.NoError(t, err)
	seal := []byte(e.EternalSeal)
	flipped := append([]byte(nil), seal...)
	if flipped[len(flipped)-1] == '0' {
		flipped[len(flipped)-1] = '1'
	} else {
		flipped[len(flipped)-1] = '0'
	}
	tampered := []byte(strings.Replace(string(b), string(seal), string(flipped), 1))
	require.NotEqual(t, string(b), string(tampered))

	back, err := Parse(tampered)
	require.NoError(t, err)
	assert.False(t, VerifySeal(back))
}
