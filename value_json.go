package superscript

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// MarshalJSON encodes a Value as the wire form {"type": "<tag>", "value": <payload>}
// described in spec §3. Hand-rolled instead of relying purely on struct tags
// (the teacher's evaluate.go takes the same approach for EvaluationResult's
// hot path) because the payload shape depends on the tag, not on a fixed
// struct layout, and list/map payloads recurse.
func (v Value) MarshalJSON() ([]byte, error) {
	var b strings.Builder
	b.WriteString(`{"type":"`)
	b.WriteString(string(v.Tag))
	b.WriteString(`","value":`)
	if err := writeValueJSON(&b, v); err != nil {
		return nil, err
	}
	b.WriteByte('}')
	return []byte(b.String()), nil
}

func writeValueJSON(b *strings.Builder, v Value) error {
	switch v.Tag {
	case TagNull:
		b.WriteString("null")
	case TagString:
		writeJSONString(b, v.Str)
	case TagInt:
		b.WriteString(strconv.FormatInt(v.Int, 10))
	case TagUint:
		b.WriteString(strconv.FormatUint(v.Uint, 10))
	case TagFloat:
		b.WriteString(strconv.FormatFloat(v.Float, 'g', -1, 64))
	case TagBool:
		if v.Bool {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case TagTimestamp:
		b.WriteString(strconv.FormatInt(v.Timestamp, 10))
	case TagBytes:
		b.WriteByte('[')
		for i, by := range v.Bytes {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.Itoa(int(by)))
		}
		b.WriteByte(']')
	case TagList:
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteByte(',')
			}
			wire, err := item.MarshalJSON()
			if err != nil {
				return err
			}
			b.Write(wire)
		}
		b.WriteByte(']')
	case TagMap:
		b.WriteByte('{')
		if v.Map != nil {
			for i, k := range v.Map.Keys {
				if i > 0 {
					b.WriteByte(',')
				}
				writeJSONString(b, k)
				b.WriteByte(':')
				mv, _ := v.Map.Get(k)
				wire, err := mv.MarshalJSON()
				if err != nil {
					return err
				}
				b.Write(wire)
			}
		}
		b.WriteByte('}')
	case TagFunction:
		b.WriteByte('{')
		b.WriteString(`"name":`)
		writeJSONString(b, v.Func.Name)
		if v.Func.Arg != nil {
			b.WriteString(`,"arg":`)
			wire, err := v.Func.Arg.MarshalJSON()
			if err != nil {
				return err
			}
			b.Write(wire)
		}
		b.WriteByte('}')
	default:
		return fmt.Errorf("superscript: unknown value tag %q", v.Tag)
	}
	return nil
}

// writeJSONString writes a JSON string literal, escaping as needed. Adapted
// from the teacher's escapeJSONString (evaluate.go), which special-cases the
// common no-escape-needed path.
func writeJSONString(b *strings.Builder, s string) {
	b.WriteByte('"')
	start := 0
	for i := 0; i < len(s); {
		c := s[i]
		if c >= 0x20 && c != '"' && c != '\\' {
			i++
			continue
		}
		b.WriteString(s[start:i])
		switch c {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		default:
			fmt.Fprintf(b, `\u%04x`, c)
		}
		i++
		start = i
	}
	b.WriteString(s[start:])
	b.WriteByte('"')
	_ = utf8.RuneLen // keep utf8 import meaningful if string is valid UTF-8 already
}

// UnmarshalJSON decodes the wire form. Unknown tags, payload/tag mismatches,
// non-string map keys, and out-of-range byte values are hard errors per
// spec §3/§4.1.
func (v *Value) UnmarshalJSON(data []byte) error {
	parsed, rest, err := decodeValue(data)
	if err != nil {
		return err
	}
	if len(strings.TrimSpace(string(rest))) != 0 {
		return fmt.Errorf("superscript: trailing data after value")
	}
	*v = parsed
	return nil
}

type wireEnvelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

// decodeValue decodes one wire Value starting at data, returning the
// decoded value and the unconsumed remainder. It uses encoding/json for the
// outer {"type":...,"value":...} envelope (cheap, not worth hand-rolling)
// but recurses by hand into list/map payloads so nested decode errors are
// attributed precisely and map key order is preserved.
func decodeValue(data []byte) (Value, []byte, error) {
	var env wireEnvelope
	dec := json.NewDecoder(strings.NewReader(string(data)))
	if err := dec.Decode(&env); err != nil {
		return Value{}, nil, fmt.Errorf("superscript: malformed value: %w", err)
	}

	tag := Tag(strings.ToLower(env.Type))
	switch tag {
	case TagNull:
		if string(env.Value) != "null" {
			return Value{}, nil, fmt.Errorf("superscript: null value must carry null payload")
		}
		return Null, nil, nil
	case TagString:
		var s string
		if err := json.Unmarshal(env.Value, &s); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: string payload: %w", err)
		}
		return NewString(s), nil, nil
	case TagInt:
		var n int64
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: int payload: %w", err)
		}
		return NewInt(n), nil, nil
	case TagUint:
		var n uint64
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: uint payload: %w", err)
		}
		return NewUint(n), nil, nil
	case TagFloat:
		var f float64
		if err := json.Unmarshal(env.Value, &f); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: float payload: %w", err)
		}
		return NewFloat(f), nil, nil
	case TagBool:
		var bv bool
		if err := json.Unmarshal(env.Value, &bv); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: bool payload: %w", err)
		}
		return NewBool(bv), nil, nil
	case TagTimestamp:
		var n int64
		if err := json.Unmarshal(env.Value, &n); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: timestamp payload: %w", err)
		}
		return NewTimestamp(n), nil, nil
	case TagBytes:
		// Accept either a JSON array of 0..255 ints, or a base64 string for
		// compact transport; the teacher's own parser (parse.go) tries a
		// fast path first and falls back, which this mirrors.
		trimmed := strings.TrimSpace(string(env.Value))
		if strings.HasPrefix(trimmed, `"`) {
			var s string
			if err := json.Unmarshal(env.Value, &s); err != nil {
				return Value{}, nil, fmt.Errorf("superscript: bytes payload: %w", err)
			}
			decoded, err := base64.StdEncoding.DecodeString(s)
			if err != nil {
				return Value{}, nil, fmt.Errorf("superscript: bytes payload not valid base64: %w", err)
			}
			return NewBytes(decoded), nil, nil
		}
		var ints []int
		if err := json.Unmarshal(env.Value, &ints); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: bytes payload: %w", err)
		}
		out := make([]byte, len(ints))
		for i, n := range ints {
			if n < 0 || n > 255 {
				return Value{}, nil, fmt.Errorf("superscript: byte value %d out of range 0..255", n)
			}
			out[i] = byte(n)
		}
		return NewBytes(out), nil, nil
	case TagList:
		var raws []json.RawMessage
		if err := json.Unmarshal(env.Value, &raws); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: list payload: %w", err)
		}
		items := make([]Value, len(raws))
		for i, raw := range raws {
			item, _, err := decodeValue(raw)
			if err != nil {
				return Value{}, nil, fmt.Errorf("superscript: list[%d]: %w", i, err)
			}
			items[i] = item
		}
		return NewList(items), nil, nil
	case TagMap:
		om, err := decodeOrderedMap(env.Value)
		if err != nil {
			return Value{}, nil, err
		}
		return NewMap(om), nil, nil
	case TagFunction:
		var raw struct {
			Name string          `json:"name"`
			Arg  json.RawMessage `json:"arg"`
		}
		if err := json.Unmarshal(env.Value, &raw); err != nil {
			return Value{}, nil, fmt.Errorf("superscript: function payload: %w", err)
		}
		fv := &FunctionValue{Name: raw.Name}
		if len(raw.Arg) > 0 && string(raw.Arg) != "null" {
			arg, _, err := decodeValue(raw.Arg)
			if err != nil {
				return Value{}, nil, fmt.Errorf("superscript: function arg: %w", err)
			}
			fv.Arg = &arg
		}
		return Value{Tag: TagFunction, Func: fv}, nil, nil
	default:
		return Value{}, nil, fmt.Errorf("superscript: unknown value tag %q", env.Type)
	}
}

// decodeOrderedMap decodes a JSON object preserving key order and rejecting
// non-string keys (structurally impossible for encoding/json's own decode
// target, which is why this walks tokens by hand) and duplicate keys.
func decodeOrderedMap(data []byte) (*OrderedMap, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("superscript: map payload: %w", err)
	}
	delim, ok := tok.(json.Delim)
	if !ok || delim != '{' {
		return nil, fmt.Errorf("superscript: map payload must be a JSON object")
	}

	om := NewOrderedMap()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("superscript: map key: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return nil, fmt.Errorf("superscript: map keys must be strings")
		}
		if _, exists := om.Get(key); exists {
			return nil, fmt.Errorf("superscript: duplicate map key %q", key)
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, fmt.Errorf("superscript: map value for %q: %w", key, err)
		}
		val, _, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("superscript: map value for %q: %w", key, err)
		}
		om.Set(key, val)
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("superscript: map payload: %w", err)
	}
	return om, nil
}
