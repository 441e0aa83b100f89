package superscript

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/sjson"
)

// ExecutionContext is the parsed form of the envelope JSON described in
// spec §3/§6: variables, the expression (or pre-parsed AST), and the
// device/computed declarations. At least one of Expression or AST is set,
// mirroring the two envelope shapes §6 describes ("for the AST entry
// point, replace expression with ast"); an envelope carrying both sets both.
type ExecutionContext struct {
	Variables  *OrderedMap
	Expression string
	AST        json.RawMessage
	Computed   map[string][]Value
	Device     map[string][]Value
}

type envelopeWire struct {
	Variables struct {
		Map json.RawMessage `json:"map"`
	} `json:"variables"`
	Expression *string                    `json:"expression"`
	AST        json.RawMessage            `json:"ast"`
	Computed   map[string][]json.RawMessage `json:"computed"`
	Device     map[string][]json.RawMessage `json:"device"`
}

// ParseEnvelope decodes the execution envelope per spec §4.2: the
// variables.map object is required (absent or non-object is a hard
// envelope-parse error); computed/device default to empty when absent.
func ParseEnvelope(data []byte) (*ExecutionContext, error) {
	var wire envelopeWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, &EvalError{Kind: KindEnvelope, Message: fmt.Sprintf("malformed envelope: %v", err)}
	}
	if len(wire.Variables.Map) == 0 {
		return nil, &EvalError{Kind: KindEnvelope, Message: "envelope missing required variables.map object"}
	}

	vars, err := decodeOrderedMap(wire.Variables.Map)
	if err != nil {
		return nil, &EvalError{Kind: KindEnvelope, Message: fmt.Sprintf("variables.map: %v", err)}
	}

	ctx := &ExecutionContext{
		Variables: vars,
		Computed:  map[string][]Value{},
		Device:    map[string][]Value{},
	}

	if wire.Expression == nil && len(wire.AST) == 0 {
		return nil, &EvalError{Kind: KindEnvelope, Message: "envelope missing required expression (or ast)"}
	}
	if wire.Expression != nil {
		ctx.Expression = *wire.Expression
	}
	if len(wire.AST) > 0 {
		ctx.AST = wire.AST
	}

	for name, rawList := range wire.Computed {
		vals, err := decodeValueList(rawList)
		if err != nil {
			return nil, &EvalError{Kind: KindEnvelope, Message: fmt.Sprintf("computed.%s: %v", name, err)}
		}
		ctx.Computed[name] = vals
	}
	for name, rawList := range wire.Device {
		vals, err := decodeValueList(rawList)
		if err != nil {
			return nil, &EvalError{Kind: KindEnvelope, Message: fmt.Sprintf("device.%s: %v", name, err)}
		}
		ctx.Device[name] = vals
	}

	return ctx, nil
}

func decodeValueList(raws []json.RawMessage) ([]Value, error) {
	out := make([]Value, len(raws))
	for i, raw := range raws {
		v, _, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("[%d]: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

// ResultEnvelope serializes an evaluation outcome per spec §3/§6/§7:
// {"Ok": V} on success, {"Err": "<message>"} on a surfaced error. A null
// result value is serialized as Ok, never as Err, per §7.
func ResultEnvelope(v Value) ([]byte, error) {
	wire, err := v.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf(`{"Ok":%s}`, wire)), nil
}

// ErrorEnvelope serializes a surfaced error (§7's "Envelope/parse",
// "Expression parse", and "Bridge/runtime" kinds) as {"Err": "<message>"} —
// spec §3/§6's invariant that the result envelope is exactly {"Ok": V} or
// {"Err": string} at the top level, so programmatic callers can key on
// Ok/Err alone. When err is an *EvalError carrying structured context (a
// bridge function name, a declaration name), sjson splices that context
// into the message string itself — building a small JSON object for the
// message and embedding it as the Err string's content — rather than
// adding sibling keys next to "Err", the same library the retrieval pack's
// CEL interceptor pairs with cel-go for in-place JSON edits.
func ErrorEnvelope(err error) []byte {
	msg := err.Error()

	var evalErr *EvalError
	if ee, ok := err.(*EvalError); ok {
		evalErr = ee
	}
	if evalErr == nil || (evalErr.Source == "" && evalErr.Function == "") {
		return []byte(fmt.Sprintf(`{"Err":%s}`, mustQuoteJSON(msg)))
	}

	detail := []byte(fmt.Sprintf(`{"message":%s}`, mustQuoteJSON(msg)))
	if evalErr.Source != "" {
		if patched, err := sjson.SetBytes(detail, "source", evalErr.Source); err == nil {
			detail = patched
		}
	}
	if evalErr.Function != "" {
		if patched, err := sjson.SetBytes(detail, "function", evalErr.Function); err == nil {
			detail = patched
		}
	}
	return []byte(fmt.Sprintf(`{"Err":%s}`, mustQuoteJSON(string(detail))))
}

func mustQuoteJSON(s string) string {
	b, err := json.Marshal(s)
	if err != nil {
		return `""`
	}
	return string(b)
}
