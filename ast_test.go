package superscript

import "testing"

func TestExprStringUnparsesInfixAndTernary(t *testing.T) {
	expr := NewCall(nil, OpConditional,
		NewCall(nil, "has", NewSelect(NewIdent("user"), "name")),
		NewSelect(NewIdent("user"), "name"),
		NewLiteral(Null),
	)
	got := expr.String()
	assertContains(t, got, "has(user.name)")
	assertContains(t, got, "?")
	assertContains(t, got, ":")
}

func TestExprStringRelation(t *testing.T) {
	expr := NewCall(nil, OpEquals, NewIdent("a"), NewLiteral(NewInt(5)))
	assertEqual(t, "(a) == (5)", expr.String())
}

func TestExprStringMemberCall(t *testing.T) {
	// celconv produces this shape from a parsed `device.getDays()`: Target
	// is the bare receiver identifier, Function carries the method name.
	expr := NewCall(NewIdent("device"), "getDays")
	got := expr.String()
	assertContains(t, got, "device")
	assertContains(t, got, "getDays(")
}

func TestIsTernaryRecognizesGuardShape(t *testing.T) {
	cond := NewIdent("c")
	then := NewIdent("t")
	els := NewLiteral(Null)
	guard := NewCall(nil, OpConditional, cond, then, els)

	gc, gt, ge, ok := guard.IsTernary()
	if !ok {
		t.Fatal("expected IsTernary to recognize the ternary shape")
	}
	assertEqual(t, cond, gc)
	assertEqual(t, then, gt)
	assertEqual(t, els, ge)

	_, _, _, ok = NewIdent("x").IsTernary()
	if ok {
		t.Error("expected IsTernary to reject a non-call node")
	}
}

func TestIsReceiver(t *testing.T) {
	if !NewIdent("device").IsReceiver() {
		t.Error("expected device to be a receiver")
	}
	if !NewIdent("computed").IsReceiver() {
		t.Error("expected computed to be a receiver")
	}
	if NewIdent("user").IsReceiver() {
		t.Error("expected user not to be a receiver")
	}
}

func TestWalkVisitsEveryDescendant(t *testing.T) {
	expr := NewCall(nil, OpLogicalAnd,
		NewCall(nil, OpEquals, NewIdent("a"), NewLiteral(NewInt(1))),
		NewCall(nil, OpEquals, NewIdent("b"), NewLiteral(NewInt(2))),
	)
	var idents []string
	Walk(expr, func(e *Expr) {
		if e.Kind == KindIdent {
			idents = append(idents, e.Ident)
		}
	})
	if len(idents) != 2 {
		t.Fatalf("expected 2 idents visited, got %d: %v", len(idents), idents)
	}
}
