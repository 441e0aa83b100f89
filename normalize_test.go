package superscript

import "testing"

// Normalization idempotence: normalize(normalize(v)) == normalize(v) for
// any value v (spec §8).
func TestNormalizeIdempotence(t *testing.T) {
	inputs := []Value{
		NewString("true"),
		NewString("false"),
		NewString("007"),
		NewString("42"),
		NewString("-42"),
		NewString("3.14"),
		NewString("hello"),
		NewInt(5),
		Null,
		NewList([]Value{NewString("1"), NewString("true")}),
	}
	for _, v := range inputs {
		once := NormalizeValue(v)
		twice := NormalizeValue(once)
		if !once.Equal(twice) {
			t.Errorf("normalize not idempotent for %v: once=%v twice=%v", v, once, twice)
		}
	}
}

// Padded-numeric preservation: a digit string with length >= 2 and a
// leading '0' in the integer part stays a string (spec §8).
func TestNormalizePaddedNumericPreservation(t *testing.T) {
	padded := []string{"007", "01.5", "00", "-007"}
	for _, s := range padded {
		got := NormalizeValue(NewString(s))
		if got.Tag != TagString {
			t.Errorf("normalize(%q) = %v, want string preserved", s, got)
		}
	}

	notPadded := []string{"0", "0.5", "7", "-7", "10"}
	for _, s := range notPadded {
		got := NormalizeValue(NewString(s))
		if got.Tag == TagString {
			t.Errorf("normalize(%q) unexpectedly stayed a string", s)
		}
	}
}

func TestNormalizeScalarCoercions(t *testing.T) {
	cases := []struct {
		in  string
		tag Tag
	}{
		{"true", TagBool},
		{"false", TagBool},
		{"42", TagInt},
		{"-42", TagInt},
		{"18446744073709551615", TagUint}, // > max int64, fits uint64
		{"3.14", TagFloat},
		{"1e10", TagFloat},
		{"hello", TagString},
		{"", TagString},
	}
	for _, c := range cases {
		got := normalizeScalar(c.in)
		if got.Tag != c.tag {
			t.Errorf("normalizeScalar(%q).Tag = %v, want %v", c.in, got.Tag, c.tag)
		}
	}
}

func TestNormalizeValueRecursesIntoListsAndMaps(t *testing.T) {
	om := NewOrderedMap()
	om.Set("flag", NewString("true"))
	om.Set("id", NewString("007"))
	v := NewMap(om)

	out := NormalizeValue(v)
	flag, _ := out.Map.Get("flag")
	id, _ := out.Map.Get("id")
	assertEqual(t, TagBool, flag.Tag)
	assertEqual(t, TagString, id.Tag)
}

func TestNormalizeASTLiteralsOnlyTouchesStringLiterals(t *testing.T) {
	expr := NewCall(nil, OpEquals, NewLiteral(NewString("true")), NewLiteral(NewInt(5)))
	out := NormalizeASTLiterals(expr)
	assertEqual(t, TagBool, out.Args[0].Literal.Tag)
	assertEqual(t, TagInt, out.Args[1].Literal.Tag)
}
