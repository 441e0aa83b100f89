package superscript

// ToNative converts a Value into the plain Go representation cel-go's
// DefaultTypeAdapter expects (map[string]any, []any, string, int64, uint64,
// float64, bool, []byte, nil). FunctionValue has no native rendering; it is
// only ever consulted for presence (see spec §3) and converts to its name.
func (v Value) ToNative() any {
	switch v.Tag {
	case TagNull:
		return nil
	case TagString:
		return v.Str
	case TagInt:
		return v.Int
	case TagUint:
		return v.Uint
	case TagFloat:
		return v.Float
	case TagBool:
		return v.Bool
	case TagBytes:
		return v.Bytes
	case TagTimestamp:
		return v.Timestamp
	case TagList:
		out := make([]any, len(v.List))
		for i, item := range v.List {
			out[i] = item.ToNative()
		}
		return out
	case TagMap:
		if v.Map == nil {
			return map[string]any{}
		}
		return v.Map.ToNative()
	case TagFunction:
		if v.Func == nil {
			return nil
		}
		return v.Func.Name
	default:
		return nil
	}
}

// FromNative converts a Go value returned by cel-go (ref.Val.Value()) back
// into a Value. Used after Eval and after a bridge round-trip.
func FromNative(x any) Value {
	switch t := x.(type) {
	case nil:
		return Null
	case string:
		return NewString(t)
	case bool:
		return NewBool(t)
	case int:
		return NewInt(int64(t))
	case int32:
		return NewInt(int64(t))
	case int64:
		return NewInt(t)
	case uint:
		return NewUint(uint64(t))
	case uint32:
		return NewUint(uint64(t))
	case uint64:
		return NewUint(t)
	case float32:
		return NewFloat(float64(t))
	case float64:
		return NewFloat(t)
	case []byte:
		return NewBytes(t)
	case []any:
		out := make([]Value, len(t))
		for i, item := range t {
			out[i] = FromNative(item)
		}
		return NewList(out)
	case []Value:
		return NewList(t)
	case map[string]any:
		om := NewOrderedMap()
		for k, val := range t {
			om.Set(k, FromNative(val))
		}
		return NewMap(om)
	case *OrderedMap:
		return NewMap(t)
	case Value:
		return t
	default:
		return Null
	}
}
