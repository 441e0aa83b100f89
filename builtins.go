package superscript

import (
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
)

// coreBuiltins returns the cel.EnvOption set for the fixed builtin
// functions spec §4.6 step 2 requires beyond CEL's own standard library.
// has(...) and size(...) are NOT redeclared here: has() is CEL's own
// parser macro (it desugars to a test-only Select, exactly the shape
// fromProtoExpr already understands) and size() is part of cel-go's
// standard environment — reimplementing either would diverge from the
// semantics the rewriter's unparsed-and-reparsed output already relies on.
// This resolves SPEC_FULL.md's open-question decision 3.
func coreBuiltins(decls *declaredNames) []cel.EnvOption {
	return []cel.EnvOption{
		cel.Function("maybe",
			cel.Overload("maybe_dyn_dyn", []*cel.Type{cel.DynType, cel.DynType}, cel.DynType,
				cel.BinaryBinding(func(x, def ref.Val) ref.Val {
					if types.IsUnknownOrError(x) || x == types.NullValue {
						return def
					}
					return x
				}),
			),
		),
		cel.Function("hasFn",
			cel.Overload("hasFn_string", []*cel.Type{cel.StringType}, cel.BoolType,
				cel.UnaryBinding(func(name ref.Val) ref.Val {
					s, ok := name.Value().(string)
					if !ok {
						return types.NewErr("hasFn: argument must be a string")
					}
					return types.Bool(decls.has(s))
				}),
			),
		),
		cel.Function("toString",
			cel.Overload("toString_dyn", []*cel.Type{cel.DynType}, cel.StringType,
				cel.UnaryBinding(func(x ref.Val) ref.Val {
					v := FromNative(x.Value())
					return types.String(convertToString(v))
				}),
			),
		),
		cel.Function("toBool",
			cel.Overload("toBool_dyn", []*cel.Type{cel.DynType}, cel.BoolType,
				cel.UnaryBinding(func(x ref.Val) ref.Val {
					v := FromNative(x.Value())
					b, ok := convertToBool(v)
					if !ok {
						return types.NewErr("toBool: cannot convert %s to bool", v.Tag)
					}
					return types.Bool(b)
				}),
			),
		),
		cel.Function("toInt",
			cel.Overload("toInt_dyn", []*cel.Type{cel.DynType}, cel.IntType,
				cel.UnaryBinding(func(x ref.Val) ref.Val {
					v := FromNative(x.Value())
					n, ok := convertToInt(v)
					if !ok {
						return types.NewErr("toInt: cannot convert %s to int", v.Tag)
					}
					return types.Int(n)
				}),
			),
		),
		cel.Function("toFloat",
			cel.Overload("toFloat_dyn", []*cel.Type{cel.DynType}, cel.DoubleType,
				cel.UnaryBinding(func(x ref.Val) ref.Val {
					v := FromNative(x.Value())
					f, ok := convertToFloat(v)
					if !ok {
						return types.NewErr("toFloat: cannot convert %s to float", v.Tag)
					}
					return types.Double(f)
				}),
			),
		),
	}
}

// convertToString/convertToBool/convertToInt/convertToFloat back the
// toString/toBool/toInt/toFloat builtins. convertToString accepts every
// value (null becomes "", non-string tags use Value.String()). The other
// three are not total: each accepts bool, int, uint and float values, plus
// strings that parse — "true"/"false" for toBool, integer strings for
// toInt, integer or decimal strings for toFloat — and toBool also accepts
// null. Any other input (e.g. "hello", a list, a map, bytes) reports
// ok=false, and the builtin then returns a CEL error value.

func convertToString(v Value) string {
	switch v.Tag {
	case TagString:
		return v.Str
	case TagNull:
		return ""
	default:
		return v.String()
	}
}

func convertToBool(v Value) (bool, bool) {
	switch v.Tag {
	case TagBool:
		return v.Bool, true
	case TagString:
		switch v.Str {
		case "true":
			return true, true
		case "false":
			return false, true
		}
		return false, false
	case TagInt:
		return v.Int != 0, true
	case TagUint:
		return v.Uint != 0, true
	case TagFloat:
		return v.Float != 0, true
	case TagNull:
		return false, true
	default:
		return false, false
	}
}

func convertToInt(v Value) (int64, bool) {
	switch v.Tag {
	case TagInt:
		return v.Int, true
	case TagUint:
		return int64(v.Uint), true
	case TagFloat:
		return int64(v.Float), true
	case TagBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case TagString:
		if n, ok := parseSignedInt(v.Str); ok {
			return n, true
		}
		if n, ok := parseUnsignedInt(v.Str); ok {
			return int64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func convertToFloat(v Value) (float64, bool) {
	switch v.Tag {
	case TagFloat:
		return v.Float, true
	case TagInt:
		return float64(v.Int), true
	case TagUint:
		return float64(v.Uint), true
	case TagBool:
		if v.Bool {
			return 1, true
		}
		return 0, true
	case TagString:
		if f, ok := parseFiniteFloat(v.Str); ok {
			return f, true
		}
		if n, ok := parseSignedInt(v.Str); ok {
			return float64(n), true
		}
		if n, ok := parseUnsignedInt(v.Str); ok {
			return float64(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}
