package superscript

import "testing"

func TestParseCELSourceIdentAndSelect(t *testing.T) {
	expr, err := parseCELSource(sourceEnv, "user.name")
	assertNoError(t, err)
	assertEqual(t, KindSelect, expr.Kind)
	assertEqual(t, "name", expr.Field)
	assertEqual(t, KindIdent, expr.Operand.Kind)
	assertEqual(t, "user", expr.Operand.Ident)
}

func TestParseCELSourceRelationAndLogical(t *testing.T) {
	expr, err := parseCELSource(sourceEnv, "a == 1 && b != 2")
	assertNoError(t, err)
	assertEqual(t, KindCall, expr.Kind)
	assertEqual(t, OpLogicalAnd, expr.Function)
	assertEqual(t, OpEquals, expr.Args[0].Function)
	assertEqual(t, OpNotEquals, expr.Args[1].Function)
}

func TestParseCELSourceMemberCall(t *testing.T) {
	expr, err := parseCELSource(sourceEnv, "device.getDays(5)")
	assertNoError(t, err)
	assertEqual(t, KindCall, expr.Kind)
	assertEqual(t, "getDays", expr.Function)
	if expr.Target == nil {
		t.Fatal("expected a member call to carry a Target")
	}
	assertEqual(t, KindIdent, expr.Target.Kind)
	assertEqual(t, "device", expr.Target.Ident)
}

func TestParseCELSourceListAndMapLiterals(t *testing.T) {
	expr, err := parseCELSource(sourceEnv, `[1, "two", {"k": true}]`)
	assertNoError(t, err)
	assertEqual(t, KindList, expr.Kind)
	if len(expr.Elements) != 3 {
		t.Fatalf("expected 3 elements, got %d", len(expr.Elements))
	}
	assertEqual(t, KindMap, expr.Elements[2].Kind)
}

func TestParseCELSourceRejectsComprehension(t *testing.T) {
	_, err := parseCELSource(sourceEnv, "[1, 2, 3].exists(x, x > 1)")
	if err == nil {
		t.Fatal("expected comprehension expressions to be rejected")
	}
}

func TestParseCELSourceSyntaxError(t *testing.T) {
	_, err := parseCELSource(sourceEnv, "user. .name")
	if err == nil {
		t.Fatal("expected a parse error for malformed syntax")
	}
}

func TestParseToASTRoundTripsThroughJSON(t *testing.T) {
	astJSON, err := ParseToAST(`user.age > 18`)
	assertNoError(t, err)

	parsed, err := ParseASTJSON(astJSON)
	assertNoError(t, err)
	assertEqual(t, KindCall, parsed.Kind)
	assertEqual(t, OpGreater, parsed.Function)
}
