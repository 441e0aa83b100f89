package superscript

import (
	"strconv"
	"strings"
)

// NormalizeValue applies the scalar rule of spec §4.3 recursively: list and
// map payloads recurse, string scalars are rewritten per normalizeScalar,
// every other tag is returned unchanged. Idempotent: re-normalizing an
// already-normalized value is a no-op, since normalizeScalar only ever
// fires on TagString and never produces a string that would itself
// normalize further (int/uint/float/bool outputs are not re-scanned).
func NormalizeValue(v Value) Value {
	switch v.Tag {
	case TagString:
		return normalizeScalar(v.Str)
	case TagList:
		out := make([]Value, len(v.List))
		for i, item := range v.List {
			out[i] = NormalizeValue(item)
		}
		return NewList(out)
	case TagMap:
		if v.Map == nil {
			return v
		}
		out := NewOrderedMap()
		for _, k := range v.Map.Keys {
			item, _ := v.Map.Get(k)
			out.Set(k, NormalizeValue(item))
		}
		return NewMap(out)
	default:
		return v
	}
}

// normalizeScalar implements the §4.3 scalar rule for a single string
// payload.
func normalizeScalar(s string) Value {
	switch s {
	case "true":
		return NewBool(true)
	case "false":
		return NewBool(false)
	}

	if isPaddedNumeric(s) {
		return NewString(s)
	}

	if n, ok := parseSignedInt(s); ok {
		return NewInt(n)
	}
	if n, ok := parseUnsignedInt(s); ok {
		return NewUint(n)
	}
	if f, ok := parseFiniteFloat(s); ok {
		return NewFloat(f)
	}
	return NewString(s)
}

// isPaddedNumeric reports whether s is a numeric-looking string whose
// integer part carries a leading zero that would be lost by round-tripping
// through int/uint/float — e.g. "007", "01.5", but not "0" or "0.5". Per
// spec §4.3 these strings must stay strings.
func isPaddedNumeric(s string) bool {
	body := s
	if len(body) > 0 && (body[0] == '-' || body[0] == '+') {
		body = body[1:]
	}
	// integer part is the run of digits before '.' or 'e'/'E', or the
	// whole body if neither is present.
	end := len(body)
	for i, c := range body {
		if c == '.' || c == 'e' || c == 'E' {
			end = i
			break
		}
	}
	intPart := body[:end]
	if len(intPart) < 2 {
		return false
	}
	if intPart[0] != '0' {
		return false
	}
	// every remaining character of the original string must be a digit,
	// '.', 'e', 'E', '+', or '-' for this to even be numeric-shaped;
	// otherwise it was never a numeric candidate and the padded-numeric
	// rule does not apply (e.g. "007-abc").
	for _, c := range body {
		if !(c >= '0' && c <= '9') && c != '.' && c != 'e' && c != 'E' && c != '+' && c != '-' {
			return false
		}
	}
	return true
}

// parseSignedInt parses s as a signed 64-bit integer with no leading '+'
// and no leading zeros other than the literal "0" itself.
func parseSignedInt(s string) (int64, bool) {
	if s == "" {
		return 0, false
	}
	body := s
	neg := false
	if body[0] == '-' {
		neg = true
		body = body[1:]
	}
	if body == "" || body[0] == '+' {
		return 0, false
	}
	if len(body) > 1 && body[0] == '0' {
		return 0, false
	}
	for _, c := range body {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	full := s
	if neg {
		full = "-" + body
	}
	n, err := strconv.ParseInt(full, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseUnsignedInt parses s as an unsigned 64-bit integer (no sign).
func parseUnsignedInt(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, false
	}
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseFiniteFloat parses s as a finite decimal float; s must contain a
// '.' or an exponent marker to be eligible (otherwise plain digit strings
// would already have matched parseSignedInt/parseUnsignedInt, and bare
// integers should not silently become floats).
func parseFiniteFloat(s string) (float64, bool) {
	if !strings.ContainsAny(s, ".eE") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if isInfOrNaN(f) {
		return 0, false
	}
	return f, true
}

func isInfOrNaN(f float64) bool {
	return f != f || f > 1.7976931348623157e+308 || f < -1.7976931348623157e+308
}

// NormalizeASTLiterals walks e, applying normalizeScalar to every string
// literal atom, leaving every other node kind (and every non-string
// literal) unchanged. This is normalize_ast_literals from spec §4.3.
func NormalizeASTLiterals(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindLiteral:
		if e.Literal.Tag == TagString {
			return &Expr{ID: e.ID, Kind: KindLiteral, Literal: normalizeScalar(e.Literal.Str)}
		}
		return e
	case KindSelect:
		return &Expr{ID: e.ID, Kind: KindSelect, Operand: NormalizeASTLiterals(e.Operand), Field: e.Field, TestOnly: e.TestOnly}
	case KindCall:
		args := make([]*Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = NormalizeASTLiterals(a)
		}
		return &Expr{ID: e.ID, Kind: KindCall, Target: NormalizeASTLiterals(e.Target), Function: e.Function, Args: args}
	case KindList:
		elements := make([]*Expr, len(e.Elements))
		for i, el := range e.Elements {
			elements[i] = NormalizeASTLiterals(el)
		}
		return &Expr{ID: e.ID, Kind: KindList, Elements: elements}
	case KindMap:
		entries := make([]MapEntry, len(e.Entries))
		for i, entry := range e.Entries {
			entries[i] = MapEntry{Key: NormalizeASTLiterals(entry.Key), Value: NormalizeASTLiterals(entry.Value)}
		}
		return &Expr{ID: e.ID, Kind: KindMap, Entries: entries}
	default:
		return e
	}
}
