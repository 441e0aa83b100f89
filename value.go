package superscript

import (
	"fmt"
	"strings"
)

// Tag is the wire discriminator for a Value. See spec §3.
type Tag string

const (
	TagString    Tag = "string"
	TagInt       Tag = "int"
	TagUint      Tag = "uint"
	TagFloat     Tag = "float"
	TagBool      Tag = "bool"
	TagList      Tag = "list"
	TagMap       Tag = "map"
	TagBytes     Tag = "bytes"
	TagTimestamp Tag = "timestamp"
	TagFunction  Tag = "function"
	TagNull      Tag = "null"
)

// FunctionValue is the payload of a TagFunction value: a host-declared
// function name plus an optional single example/argument value, used only
// for presence-checking (see spec §3, §9 open question 2).
type FunctionValue struct {
	Name string
	Arg  *Value
}

// Value (V in spec §3) is the tagged value variant that crosses the host
// bridge boundary. Exactly one payload field is populated, selected by Tag.
type Value struct {
	Tag Tag

	Str       string
	Int       int64
	Uint      uint64
	Float     float64
	Bool      bool
	List      []Value
	Map       *OrderedMap
	Bytes     []byte
	Timestamp int64
	Func      *FunctionValue
}

// Constructors mirror the teacher's preference for small, obvious helpers
// over struct literals scattered across call sites.

func NewString(s string) Value { return Value{Tag: TagString, Str: s} }
func NewInt(i int64) Value     { return Value{Tag: TagInt, Int: i} }
func NewUint(u uint64) Value   { return Value{Tag: TagUint, Uint: u} }
func NewFloat(f float64) Value { return Value{Tag: TagFloat, Float: f} }
func NewBool(b bool) Value     { return Value{Tag: TagBool, Bool: b} }
func NewList(items []Value) Value {
	return Value{Tag: TagList, List: items}
}
func NewMap(m *OrderedMap) Value { return Value{Tag: TagMap, Map: m} }
func NewBytes(b []byte) Value    { return Value{Tag: TagBytes, Bytes: b} }
func NewTimestamp(ms int64) Value {
	return Value{Tag: TagTimestamp, Timestamp: ms}
}
func NewFunction(name string, arg *Value) Value {
	return Value{Tag: TagFunction, Func: &FunctionValue{Name: name, Arg: arg}}
}

var Null = Value{Tag: TagNull}

// IsNull reports whether v is the null value.
func (v Value) IsNull() bool { return v.Tag == TagNull }

// DefaultForTag returns the type-aware default for a tag per spec §4.4(d):
// int→0, uint→0, float→0.0, string→"", bool→false. Other tags return null.
func DefaultForTag(t Tag) Value {
	switch t {
	case TagInt:
		return NewInt(0)
	case TagUint:
		return NewUint(0)
	case TagFloat:
		return NewFloat(0)
	case TagString:
		return NewString("")
	case TagBool:
		return NewBool(false)
	default:
		return Null
	}
}

// Equal implements structural equality: distinct tags are always distinct,
// even when numerically equivalent (the evaluator's own comparison
// semantics are permissive across numeric tags — see §4.6 — but structural
// equality used by tests is not).
func (v Value) Equal(other Value) bool {
	if v.Tag != other.Tag {
		return false
	}
	switch v.Tag {
	case TagString:
		return v.Str == other.Str
	case TagInt:
		return v.Int == other.Int
	case TagUint:
		return v.Uint == other.Uint
	case TagFloat:
		return v.Float == other.Float
	case TagBool:
		return v.Bool == other.Bool
	case TagTimestamp:
		return v.Timestamp == other.Timestamp
	case TagNull:
		return true
	case TagBytes:
		if len(v.Bytes) != len(other.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != other.Bytes[i] {
				return false
			}
		}
		return true
	case TagList:
		if len(v.List) != len(other.List) {
			return false
		}
		for i := range v.List {
			if !v.List[i].Equal(other.List[i]) {
				return false
			}
		}
		return true
	case TagMap:
		if v.Map == nil || other.Map == nil {
			return v.Map == other.Map
		}
		if len(v.Map.Keys) != len(other.Map.Keys) {
			return false
		}
		for _, k := range v.Map.Keys {
			ov, ok := other.Map.Get(k)
			if !ok {
				return false
			}
			sv, _ := v.Map.Get(k)
			if !sv.Equal(ov) {
				return false
			}
		}
		return true
	case TagFunction:
		if v.Func == nil || other.Func == nil {
			return v.Func == other.Func
		}
		if v.Func.Name != other.Func.Name {
			return false
		}
		if (v.Func.Arg == nil) != (other.Func.Arg == nil) {
			return false
		}
		if v.Func.Arg == nil {
			return true
		}
		return v.Func.Arg.Equal(*other.Func.Arg)
	default:
		return false
	}
}

// Clone returns a deep copy of v. (The driver does not use it: buildActivation
// deep-copies variables with go-deepcopy after converting them to native Go.)
func (v Value) Clone() Value {
	switch v.Tag {
	case TagList:
		out := make([]Value, len(v.List))
		for i, item := range v.List {
			out[i] = item.Clone()
		}
		return Value{Tag: TagList, List: out}
	case TagMap:
		return Value{Tag: TagMap, Map: v.Map.Clone()}
	case TagBytes:
		out := make([]byte, len(v.Bytes))
		copy(out, v.Bytes)
		return Value{Tag: TagBytes, Bytes: out}
	case TagFunction:
		if v.Func == nil {
			return v
		}
		fv := &FunctionValue{Name: v.Func.Name}
		if v.Func.Arg != nil {
			cloned := v.Func.Arg.Clone()
			fv.Arg = &cloned
		}
		return Value{Tag: TagFunction, Func: fv}
	default:
		return v
	}
}

func (v Value) String() string {
	var b strings.Builder
	writeValueDebug(&b, v)
	return b.String()
}

func writeValueDebug(b *strings.Builder, v Value) {
	switch v.Tag {
	case TagNull:
		b.WriteString("null")
	case TagString:
		fmt.Fprintf(b, "%q", v.Str)
	case TagInt:
		fmt.Fprintf(b, "%d", v.Int)
	case TagUint:
		fmt.Fprintf(b, "%du", v.Uint)
	case TagFloat:
		fmt.Fprintf(b, "%g", v.Float)
	case TagBool:
		fmt.Fprintf(b, "%t", v.Bool)
	case TagBytes:
		fmt.Fprintf(b, "bytes(%d)", len(v.Bytes))
	case TagTimestamp:
		fmt.Fprintf(b, "timestamp(%d)", v.Timestamp)
	case TagFunction:
		if v.Func != nil {
			fmt.Fprintf(b, "function(%s)", v.Func.Name)
		}
	case TagList:
		b.WriteByte('[')
		for i, item := range v.List {
			if i > 0 {
				b.WriteString(", ")
			}
			writeValueDebug(b, item)
		}
		b.WriteByte(']')
	case TagMap:
		b.WriteByte('{')
		if v.Map != nil {
			for i, k := range v.Map.Keys {
				if i > 0 {
					b.WriteString(", ")
				}
				fmt.Fprintf(b, "%q: ", k)
				val, _ := v.Map.Get(k)
				writeValueDebug(b, val)
			}
		}
		b.WriteByte('}')
	}
}

// OrderedMap is a string-keyed map that preserves insertion order, needed
// because the TagMap payload's iteration order is contractually the
// host-supplied insertion order (spec §3) and encoding/json's map[string]any
// does not preserve key order.
type OrderedMap struct {
	Keys   []string
	values map[string]Value
}

func NewOrderedMap() *OrderedMap {
	return &OrderedMap{values: make(map[string]Value)}
}

// Set inserts or updates key. Updating an existing key does not move it.
func (m *OrderedMap) Set(key string, v Value) {
	if _, exists := m.values[key]; !exists {
		m.Keys = append(m.Keys, key)
	}
	m.values[key] = v
}

func (m *OrderedMap) Get(key string) (Value, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *OrderedMap) Len() int { return len(m.Keys) }

func (m *OrderedMap) Clone() *OrderedMap {
	if m == nil {
		return nil
	}
	out := NewOrderedMap()
	for _, k := range m.Keys {
		v, _ := m.values[k]
		out.Set(k, v.Clone())
	}
	return out
}

// ToNative converts m into a plain map[string]any for handing to the CEL
// activation / type adapter.
func (m *OrderedMap) ToNative() map[string]any {
	out := make(map[string]any, m.Len())
	for _, k := range m.Keys {
		v, _ := m.values[k]
		out[k] = v.ToNative()
	}
	return out
}
