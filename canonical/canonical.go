// Package canonical implements the deterministic JSON form that seals are
// computed over.
//
// Values are handled in the JSON data model: nil, bool, string, json.Number,
// []any and map[string]any. Any other Go value is first normalised into that
// model through a JSON round trip, so callers may pass structs or typed maps.
// Native float64 and float32 values are rendered directly as floats (2.0 stays
// 2.0); floats nested inside typed containers go through the round trip and
// lose that distinction.
//
// The canonical form matches a sort_keys JSON encoder with compact separators
// and ASCII-only output:
//   - object keys sorted by code point at every nesting level
//   - no insignificant whitespace
//   - strings escaped to ASCII (\uXXXX, surrogate pairs above the BMP)
//   - integers in plain decimal, other numbers in shortest round-trip form
package canonical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/big"
	"sort"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"xdao.co/bloom/bloomerr"
)

// MaxDepth bounds container nesting. Self-referencing maps exceed it.
const MaxDepth = 1000

// Marshal returns the canonical bytes of v.
func Marshal(v any) ([]byte, error) {
	n, err := FromAny(v)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := encode(&buf, n); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// String returns the canonical form of v as a string.
func String(v any) (string, error) {
	b, err := Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Decode parses a single JSON value into the data model. Numbers are kept as
// json.Number so their literal survives until encoding.
//
// An unpaired surrogate escape such as "\ud800" decodes to U+FFFD, so a
// document carrying one does not reproduce its original canonical bytes.
func Decode(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindParse, "BLOOM-PARSE-001", "invalid JSON", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, bloomerr.New(bloomerr.KindParse, "BLOOM-PARSE-002", "unexpected data after JSON value")
	}
	return FromAny(v)
}

// FromAny normalises v into the data model and validates it.
// The returned value shares no containers with v.
func FromAny(v any) (any, error) {
	return normalize(v, 0)
}

func normalize(v any, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, bloomerr.New(bloomerr.KindCanonical, "BLOOM-CANON-004", "value nested too deeply (circular reference?)")
	}
	switch t := v.(type) {
	case nil, bool:
		return t, nil
	case string:
		if !utf8.ValidString(t) {
			return nil, bloomerr.New(bloomerr.KindCanonical, "BLOOM-CANON-001", "string is not valid UTF-8")
		}
		return t, nil
	case json.Number:
		if _, err := formatNumber(t); err != nil {
			return nil, err
		}
		return t, nil
	case []any:
		out := make([]any, len(t))
		for i, elem := range t {
			n, err := normalize(elem, depth+1)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, elem := range t {
			if !utf8.ValidString(k) {
				return nil, bloomerr.New(bloomerr.KindCanonical, "BLOOM-CANON-001", "object key is not valid UTF-8")
			}
			n, err := normalize(elem, depth+1)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, bloomerr.New(bloomerr.KindCanonical, "BLOOM-CANON-002", "non-finite number")
		}
		return json.Number(formatFloat(t)), nil
	case float32:
		if math.IsNaN(float64(t)) || math.IsInf(float64(t), 0) {
			return nil, bloomerr.New(bloomerr.KindCanonical, "BLOOM-CANON-002", "non-finite number")
		}
		// Widen through the shortest float32 literal so 0.1 stays 0.1.
		f, _ := strconv.ParseFloat(strconv.FormatFloat(float64(t), 'g', -1, 32), 64)
		return json.Number(formatFloat(f)), nil
	}

	b, err := json.Marshal(v)
	if err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindCanonical, "BLOOM-CANON-005", "value is not JSON-serializable", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, bloomerr.Wrap(bloomerr.KindInternal, "BLOOM-CANON-006", "intermediate decode failed", err)
	}
	return normalize(generic, depth+1)
}

func encode(buf *bytes.Buffer, v any) error {
	switch t := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if t {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		writeString(buf, t)
	case json.Number:
		s, err := formatNumber(t)
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case []any:
		buf.WriteByte('[')
		for i, elem := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := encode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		// Byte order of valid UTF-8 equals code point order.
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeString(buf, k)
			buf.WriteByte(':')
			if err := encode(buf, t[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	default:
		return bloomerr.New(bloomerr.KindInternal, "BLOOM-CANON-007", fmt.Sprintf("unexpected type %T after normalisation", v))
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		default:
			switch {
			case r >= 0x20 && r <= 0x7e:
				buf.WriteRune(r)
			case r < 0x10000:
				fmt.Fprintf(buf, `\u%04x`, r)
			default:
				r1, r2 := utf16.EncodeRune(r)
				fmt.Fprintf(buf, `\u%04x\u%04x`, r1, r2)
			}
		}
	}
	buf.WriteByte('"')
}

func formatNumber(n json.Number) (string, error) {
	s := string(n)
	if isIntegerLiteral(s) {
		var z big.Int
		if _, ok := z.SetString(s, 10); !ok {
			return "", bloomerr.New(bloomerr.KindCanonical, "BLOOM-CANON-003", "invalid number "+strconv.Quote(s))
		}
		return z.String(), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return "", bloomerr.Wrap(bloomerr.KindCanonical, "BLOOM-CANON-003", "invalid number "+strconv.Quote(s), err)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", bloomerr.New(bloomerr.KindCanonical, "BLOOM-CANON-002", "non-finite number "+strconv.Quote(s))
	}
	return formatFloat(f), nil
}

func isIntegerLiteral(s string) bool {
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// formatFloat renders f in shortest round-trip form: exponent notation when
// the decimal exponent is below -4 or at least 16, fixed notation with at
// least one fractional digit otherwise.
func formatFloat(f float64) string {
	e := strconv.FormatFloat(f, 'e', -1, 64)
	_, expStr, _ := strings.Cut(e, "e")
	exp, _ := strconv.Atoi(expStr)
	if exp < -4 || exp >= 16 {
		return e
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
