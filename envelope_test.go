package superscript

import (
	"encoding/json"
	"testing"
)

func TestParseEnvelopeRequiresVariablesMap(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"expression": "1 == 1"}`))
	if err == nil {
		t.Fatal("expected an error when variables.map is absent")
	}
}

func TestParseEnvelopeRequiresExpressionOrAST(t *testing.T) {
	_, err := ParseEnvelope([]byte(`{"variables": {"map": {}}}`))
	if err == nil {
		t.Fatal("expected an error when neither expression nor ast is present")
	}
}

func TestParseEnvelopeAcceptsASTInPlaceOfExpression(t *testing.T) {
	ctx, err := ParseEnvelope([]byte(`{"variables": {"map": {}}, "ast": {"kind":1}}`))
	assertNoError(t, err)
	assertEqual(t, "", ctx.Expression)
	assertContains(t, string(ctx.AST), `"kind":1`)
}

func TestParseEnvelopeComputedAndDeviceDefaultToEmpty(t *testing.T) {
	ctx, err := ParseEnvelope([]byte(`{"variables": {"map": {}}, "expression": "1 == 1"}`))
	assertNoError(t, err)
	if ctx.Computed == nil || len(ctx.Computed) != 0 {
		t.Errorf("expected Computed to default to an empty, non-nil map, got %v", ctx.Computed)
	}
	if ctx.Device == nil || len(ctx.Device) != 0 {
		t.Errorf("expected Device to default to an empty, non-nil map, got %v", ctx.Device)
	}
}

func TestParseEnvelopeDecodesDeclaredExamples(t *testing.T) {
	ctx, err := ParseEnvelope([]byte(`{
		"variables": {"map": {}},
		"expression": "1 == 1",
		"computed": {"foo": [{"type":"int","value":5}]},
		"device": {"bar": []}
	}`))
	assertNoError(t, err)
	if len(ctx.Computed["foo"]) != 1 || ctx.Computed["foo"][0].Int != 5 {
		t.Errorf("expected computed.foo example [int(5)], got %v", ctx.Computed["foo"])
	}
	if len(ctx.Device["bar"]) != 0 {
		t.Errorf("expected device.bar to decode to an empty example list, got %v", ctx.Device["bar"])
	}
}

func TestParseEnvelopeRejectsMalformedJSON(t *testing.T) {
	_, err := ParseEnvelope([]byte(`not json at all`))
	if err == nil {
		t.Fatal("expected a malformed-envelope error")
	}
}

func TestResultEnvelopeWrapsOk(t *testing.T) {
	out, err := ResultEnvelope(NewBool(true))
	assertNoError(t, err)
	assertEqual(t, `{"Ok":{"type":"bool","value":true}}`, string(out))
}

func TestResultEnvelopeWrapsNullAsOkNotErr(t *testing.T) {
	out, err := ResultEnvelope(Null)
	assertNoError(t, err)
	assertEqual(t, `{"Ok":{"type":"null","value":null}}`, string(out))
}

func TestErrorEnvelopePlainMessage(t *testing.T) {
	out := ErrorEnvelope(&EvalError{Kind: KindParse, Message: "boom"})
	assertEqual(t, `{"Err":"parse: boom"}`, string(out))
}

func TestErrorEnvelopeSplicesSourceAndFunctionIntoMessageNotSiblingKeys(t *testing.T) {
	out := ErrorEnvelope(&EvalError{Kind: KindBridge, Message: "bridge call failed", Source: "bridge", Function: "device.getDays"})

	var top map[string]json.RawMessage
	assertNoError(t, json.Unmarshal(out, &top))
	if _, ok := top["Ok"]; ok {
		t.Fatal("expected no Ok key alongside Err")
	}
	if len(top) != 1 {
		t.Fatalf("expected exactly one top-level key (Err), got %v", top)
	}

	var errMsg string
	assertNoError(t, json.Unmarshal(top["Err"], &errMsg))
	assertContains(t, errMsg, "bridge: bridge call failed")

	var detail map[string]string
	assertNoError(t, json.Unmarshal([]byte(errMsg), &detail))
	assertEqual(t, "bridge", detail["source"])
	assertEqual(t, "device.getDays", detail["function"])
}
