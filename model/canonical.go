package model

import (
	"bytes"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"unicode/utf16"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
)

// ErrInvalidSpecs is returned when a specs document cannot be canonically
// serialized.
var ErrInvalidSpecs = errors.New("specs document is not serializable")

// CanonicalJSON serializes a JSON-shaped document into one deterministic
// byte form: object keys recursively sorted, compact separators, and all
// non-ASCII characters escaped. The same logical document always yields the
// same bytes regardless of construction order, which makes the form safe to
// hash for content-addressed identity. Integer-valued numbers render without
// a decimal point, so digests do not depend on which numeric type decoded a
// value; fractional floats use Go's shortest 'g' form.
func CanonicalJSON(doc interface{}) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := canonicalEncode(buf, doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// SpecsHash computes the hex-encoded sha256 digest of a document's canonical
// form. Two documents with the same key/value pairs, in any order, hash
// identically.
func SpecsHash(doc interface{}) (string, error) {
	canonical, err := CanonicalJSON(doc)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%x", sha256.Sum256(canonical)), nil
}

func canonicalEncode(buf *bytes.Buffer, v interface{}) error {
	switch val := v.(type) {
	case nil:
		buf.WriteString("null")
	case bool:
		if val {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	case string:
		canonicalEncodeString(buf, val)
	case json.Number:
		// route through the integer and float cases so a value hashes the
		// same no matter which decode path produced it
		if i, err := strconv.ParseInt(val.String(), 10, 64); err == nil {
			return canonicalEncode(buf, i)
		}
		f, err := strconv.ParseFloat(val.String(), 64)
		if err != nil {
			return errors.Wrapf(ErrInvalidSpecs, "invalid number '%s'", val.String())
		}
		return canonicalEncode(buf, f)
	case int:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int32:
		buf.WriteString(strconv.FormatInt(int64(val), 10))
	case int64:
		buf.WriteString(strconv.FormatInt(val, 10))
	case float32:
		return canonicalEncode(buf, float64(val))
	case float64:
		if val == float64(int64(val)) {
			// integral floats render without a decimal point so the
			// digest does not depend on which numeric type decoded
			// the value
			buf.WriteString(strconv.FormatInt(int64(val), 10))
		} else {
			buf.WriteString(strconv.FormatFloat(val, 'g', -1, 64))
		}
	case map[string]interface{}:
		return canonicalEncodeMap(buf, val)
	case bson.M:
		return canonicalEncodeMap(buf, val)
	case []interface{}:
		buf.WriteByte('[')
		for idx, elem := range val {
			if idx > 0 {
				buf.WriteByte(',')
			}
			if err := canonicalEncode(buf, elem); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// fall back to a JSON round trip for anything else that is
		// still JSON-shaped (structs, typed slices, yaml decoded maps)
		normalized, err := normalizeValue(v)
		if err != nil {
			return err
		}
		return canonicalEncode(buf, normalized)
	}

	return nil
}

func canonicalEncodeMap(buf *bytes.Buffer, m map[string]interface{}) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	buf.WriteByte('{')
	for idx, k := range keys {
		if idx > 0 {
			buf.WriteByte(',')
		}
		canonicalEncodeString(buf, k)
		buf.WriteByte(':')
		if err := canonicalEncode(buf, m[k]); err != nil {
			return err
		}
	}
	buf.WriteByte('}')

	return nil
}

// canonicalEncodeString writes a JSON string with every rune outside
// printable ASCII escaped, so the output is independent of encoder defaults.
func canonicalEncodeString(buf *bytes.Buffer, s string) {
	buf.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			buf.WriteString(`\"`)
		case '\\':
			buf.WriteString(`\\`)
		case '\b':
			buf.WriteString(`\b`)
		case '\f':
			buf.WriteString(`\f`)
		case '\n':
			buf.WriteString(`\n`)
		case '\r':
			buf.WriteString(`\r`)
		case '\t':
			buf.WriteString(`\t`)
		default:
			switch {
			case r < 0x20:
				fmt.Fprintf(buf, `\u%04x`, r)
			case r < 0x80:
				buf.WriteRune(r)
			case r > 0xFFFF:
				r1, r2 := utf16.EncodeRune(r)
				fmt.Fprintf(buf, `\u%04x\u%04x`, r1, r2)
			default:
				fmt.Fprintf(buf, `\u%04x`, r)
			}
		}
	}
	buf.WriteByte('"')
}

func normalizeValue(v interface{}) (interface{}, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidSpecs, "marshaling value of type %T", v)
	}

	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.UseNumber()

	var out interface{}
	if err := decoder.Decode(&out); err != nil {
		return nil, errors.Wrapf(ErrInvalidSpecs, "decoding value of type %T", v)
	}

	return out, nil
}
