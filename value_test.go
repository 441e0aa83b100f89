package superscript

import "testing"

func TestValueEqual(t *testing.T) {
	if !NewInt(7).Equal(NewInt(7)) {
		t.Error("expected int(7) == int(7)")
	}
	if NewInt(7).Equal(NewUint(7)) {
		t.Error("expected int(7) != uint(7): Equal is structural, not CEL-comparison-permissive")
	}
	if !Null.Equal(Null) {
		t.Error("expected null == null")
	}
}

func TestValueClone(t *testing.T) {
	om := NewOrderedMap()
	om.Set("a", NewInt(1))
	original := NewMap(om)
	cloned := original.Clone()

	om.Set("a", NewInt(2))
	v, _ := cloned.Map.Get("a")
	assertEqual(t, int64(1), v.Int)
}

func TestDefaultForTag(t *testing.T) {
	cases := []struct {
		tag Tag
		exp Value
	}{
		{TagInt, NewInt(0)},
		{TagUint, NewUint(0)},
		{TagFloat, NewFloat(0)},
		{TagString, NewString("")},
		{TagBool, NewBool(false)},
		{TagList, Null},
	}
	for _, c := range cases {
		got := DefaultForTag(c.tag)
		if !got.Equal(c.exp) {
			t.Errorf("DefaultForTag(%s) = %v, want %v", c.tag, got, c.exp)
		}
	}
}

// Round-trip of the wire format: decode(encode(v)) == v for every v
// constructible from the eleven tags (spec §8).
func TestValueWireRoundTrip(t *testing.T) {
	om := NewOrderedMap()
	om.Set("k1", NewInt(1))
	om.Set("k2", NewString("two"))

	cases := []Value{
		Null,
		NewString("hello"),
		NewInt(-42),
		NewUint(42),
		NewFloat(3.5),
		NewBool(true),
		NewBytes([]byte{0, 1, 255}),
		NewTimestamp(1700000000),
		NewList([]Value{NewInt(1), NewString("a"), Null}),
		NewMap(om),
		NewFunction("device.foo", nil),
	}

	for _, v := range cases {
		wire, err := v.MarshalJSON()
		assertNoError(t, err)

		var decoded Value
		if err := decoded.UnmarshalJSON(wire); err != nil {
			t.Fatalf("UnmarshalJSON(%s) failed: %v", wire, err)
		}
		if !decoded.Equal(v) {
			t.Errorf("round-trip mismatch: %v -> %s -> %v", v, wire, decoded)
		}
	}
}

// OrderedMap round-trip across 0, 1, and many keys, preserving insertion
// order (adapted from the teacher's table-test style).
func TestOrderedMapRoundTripPreservesOrder(t *testing.T) {
	cases := []struct {
		name string
		keys []string
	}{
		{"empty", nil},
		{"single", []string{"only"}},
		{"many", []string{"z", "a", "m", "b"}},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			om := NewOrderedMap()
			for i, k := range c.keys {
				om.Set(k, NewInt(int64(i)))
			}
			wire, err := NewMap(om).MarshalJSON()
			assertNoError(t, err)

			var decoded Value
			if err := decoded.UnmarshalJSON(wire); err != nil {
				t.Fatalf("UnmarshalJSON failed: %v", err)
			}
			if decoded.Map.Len() != len(c.keys) {
				t.Fatalf("expected %d keys, got %d", len(c.keys), decoded.Map.Len())
			}
			for i, k := range c.keys {
				if decoded.Map.Keys[i] != k {
					t.Errorf("key order mismatch at %d: want %q, got %q", i, k, decoded.Map.Keys[i])
				}
			}
		})
	}
}

func TestValueUnmarshalRejectsUnknownTag(t *testing.T) {
	var v Value
	err := v.UnmarshalJSON([]byte(`{"type":"weird","value":1}`))
	if err == nil {
		t.Fatal("expected error for unknown tag")
	}
}

func TestValueUnmarshalRejectsDuplicateMapKey(t *testing.T) {
	var v Value
	err := v.UnmarshalJSON([]byte(`{"type":"map","value":{"a":{"type":"int","value":1},"a":{"type":"int","value":2}}}`))
	if err == nil {
		t.Fatal("expected error for duplicate map key")
	}
}

func TestValueBytesAcceptsBothWireForms(t *testing.T) {
	var fromInts Value
	assertNoError(t, fromInts.UnmarshalJSON([]byte(`{"type":"bytes","value":[1,2,3]}`)))
	assertEqual(t, 3, len(fromInts.Bytes))

	var fromBase64 Value
	assertNoError(t, fromBase64.UnmarshalJSON([]byte(`{"type":"bytes","value":"AQID"}`)))
	if !fromInts.Equal(fromBase64) {
		t.Errorf("expected both bytes encodings to decode equal, got %v vs %v", fromInts, fromBase64)
	}
}
