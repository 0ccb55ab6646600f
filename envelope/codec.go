package envelope

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"xdao.co/bloom/bloomerr"
	"xdao.co/bloom/canonical"
)

// DefaultIndent is the indentation used by Marshal.
const DefaultIndent = 2

const schemaURL = "https://schemas.xdao.co/bloom/envelope-1.schema.json"

const schemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["version", "payload", "external_fingerprints"],
  "properties": {
    "version": {"type": "string"},
    "payload": {"type": "object"},
    "external_fingerprints": {
      "type": "array",
      "items": {"$ref": "#/$defs/fingerprint"}
    },
    "eternal_seal": {"type": ["string", "null"]}
  },
  "$defs": {
    "fingerprint": {
      "type": "object",
      "required": ["algorithm", "hash", "target"],
      "properties": {
        "algorithm": {"type": "string"},
        "hash": {"type": "string"},
        "target": {"type": "string"}
      }
    }
  }
}`

var envelopeSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, strings.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
})

// Parse decodes an envelope document.
//
// Malformed JSON and documents that do not have the envelope shape fail with
// KindParse. Parse does not check the seal; a missing or null eternal_seal
// member is reported later by CheckSeal as KindSealMissing.
func Parse(data []byte) (*Envelope, error) {
	v, err := canonical.Decode(data)
	if err != nil {
		if bloomerr.IsKind(err, bloomerr.KindParse) {
			return nil, err
		}
		return nil, bloomerr.Wrap(bloomerr.KindParse, "BLOOM-PARSE-003", "envelope contains values outside the JSON data model", err)
	}

	sch, err := envelopeSchema()
	if err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-PARSE-900", "compile envelope schema", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindParse, "BLOOM-PARSE-004", "document is not an envelope", err)
	}

	obj := v.(map[string]any)
	e := &Envelope{
		Version: obj[fieldVersion].(string),
		Payload: obj[fieldPayload].(map[string]any),
	}
	if s, ok := obj[fieldSeal].(string); ok {
		e.EternalSeal = s
	}
	raw := obj[fieldFingerprints].([]any)
	e.ExternalFingerprints = make([]Fingerprint, 0, len(raw))
	for _, item := range raw {
		m := item.(map[string]any)
		f := Fingerprint{
			Algorithm: m[fpAlgorithm].(string),
			Hash:      m[fpHash].(string),
			Target:    m[fpTarget].(string),
		}
		for k, val := range m {
			switch k {
			case fpAlgorithm, fpHash, fpTarget:
				continue
			}
			if f.Extra == nil {
				f.Extra = make(map[string]any)
			}
			f.Extra[k] = val
		}
		e.ExternalFingerprints = append(e.ExternalFingerprints, f)
	}
	for k, val := range obj {
		switch k {
		case fieldVersion, fieldPayload, fieldFingerprints, fieldSeal:
			continue
		}
		if e.Extra == nil {
			e.Extra = make(map[string]any)
		}
		e.Extra[k] = val
	}
	return e, nil
}

// Marshal serializes e as indented JSON with DefaultIndent.
func Marshal(e *Envelope) ([]byte, error) {
	return MarshalIndent(e, DefaultIndent)
}

// MarshalIndent serializes e as JSON indented by indent spaces; indent <= 0
// yields compact output. Members are written in the order version, payload,
// external_fingerprints, eternal_seal, then any extra members sorted by name.
// Layout is cosmetic: the seal does not depend on it.
func MarshalIndent(e *Envelope, indent int) ([]byte, error) {
	compact, err := e.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if indent <= 0 {
		return compact, nil
	}
	var out bytes.Buffer
	if err := json.Indent(&out, compact, "", strings.Repeat(" ", indent)); err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-ENC-002", "indent envelope", err)
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// MarshalJSON implements json.Marshaler.
func (e *Envelope) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	members := e.Members()

	order := []string{fieldVersion, fieldPayload, fieldFingerprints}
	if _, ok := members[fieldSeal]; ok {
		order = append(order, fieldSeal)
	}
	extra := make([]string, 0, len(e.Extra))
	for k := range e.Extra {
		switch k {
		case fieldVersion, fieldPayload, fieldFingerprints, fieldSeal:
			continue
		}
		extra = append(extra, k)
	}
	sort.Strings(extra)
	order = append(order, extra...)

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	out := bytes.NewBufferString("{")
	for i, k := range order {
		if i > 0 {
			out.WriteByte(',')
		}
		buf.Reset()
		if err := enc.Encode(k); err != nil {
			return nil, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-ENC-001", "encode member name", err)
		}
		out.Write(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
		out.WriteByte(':')
		buf.Reset()
		if err := enc.Encode(members[k]); err != nil {
			return nil, bloomerr.Wrap(bloomerr.KindCanonical, "BLOOM-ENC-001", "encode member "+k, err)
		}
		out.Write(bytes.TrimSuffix(buf.Bytes(), []byte{'\n'}))
	}
	out.WriteByte('}')
	return out.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler with the same rules as Parse.
func (e *Envelope) UnmarshalJSON(data []byte) error {
	parsed, err := Parse(data)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}
