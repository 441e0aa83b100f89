package superscript

import (
	"encoding/json"
	"fmt"
)

// astWire is the JSON shape ast_json uses on the wire: a discriminated
// union keyed by "kind", matching the tagged-envelope idiom the rest of
// the wire format (Value, ExecutionContext) already uses.
type astWire struct {
	ID       int64             `json:"id,omitempty"`
	Kind     string            `json:"kind"`
	Ident    string            `json:"ident,omitempty"`
	Operand  *astWire          `json:"operand,omitempty"`
	Field    string            `json:"field,omitempty"`
	TestOnly bool              `json:"testOnly,omitempty"`
	Target   *astWire          `json:"target,omitempty"`
	Function string            `json:"function,omitempty"`
	Args     []*astWire        `json:"args,omitempty"`
	Literal  json.RawMessage   `json:"literal,omitempty"`
	Elements []*astWire        `json:"elements,omitempty"`
	Entries  []astWireMapEntry `json:"entries,omitempty"`
}

type astWireMapEntry struct {
	Key   *astWire `json:"key"`
	Value *astWire `json:"value"`
}

func kindName(k ExprKind) string {
	switch k {
	case KindIdent:
		return "ident"
	case KindSelect:
		return "select"
	case KindCall:
		return "call"
	case KindLiteral:
		return "literal"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "unknown"
	}
}

func toWire(e *Expr) (*astWire, error) {
	if e == nil {
		return nil, nil
	}
	w := &astWire{ID: e.ID, Kind: kindName(e.Kind)}
	switch e.Kind {
	case KindIdent:
		w.Ident = e.Ident
	case KindSelect:
		operand, err := toWire(e.Operand)
		if err != nil {
			return nil, err
		}
		w.Operand = operand
		w.Field = e.Field
		w.TestOnly = e.TestOnly
	case KindCall:
		target, err := toWire(e.Target)
		if err != nil {
			return nil, err
		}
		w.Target = target
		w.Function = e.Function
		for _, a := range e.Args {
			aw, err := toWire(a)
			if err != nil {
				return nil, err
			}
			w.Args = append(w.Args, aw)
		}
	case KindLiteral:
		raw, err := e.Literal.MarshalJSON()
		if err != nil {
			return nil, err
		}
		w.Literal = raw
	case KindList:
		for _, el := range e.Elements {
			ew, err := toWire(el)
			if err != nil {
				return nil, err
			}
			w.Elements = append(w.Elements, ew)
		}
	case KindMap:
		for _, entry := range e.Entries {
			kw, err := toWire(entry.Key)
			if err != nil {
				return nil, err
			}
			vw, err := toWire(entry.Value)
			if err != nil {
				return nil, err
			}
			w.Entries = append(w.Entries, astWireMapEntry{Key: kw, Value: vw})
		}
	default:
		return nil, fmt.Errorf("superscript: unknown expr kind %d", e.Kind)
	}
	return w, nil
}

func fromWire(w *astWire) (*Expr, error) {
	if w == nil {
		return nil, nil
	}
	e := &Expr{ID: w.ID}
	switch w.Kind {
	case "ident":
		e.Kind = KindIdent
		e.Ident = w.Ident
	case "select":
		e.Kind = KindSelect
		operand, err := fromWire(w.Operand)
		if err != nil {
			return nil, err
		}
		e.Operand = operand
		e.Field = w.Field
		e.TestOnly = w.TestOnly
	case "call":
		e.Kind = KindCall
		target, err := fromWire(w.Target)
		if err != nil {
			return nil, err
		}
		e.Target = target
		e.Function = w.Function
		for _, aw := range w.Args {
			a, err := fromWire(aw)
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, a)
		}
	case "literal":
		e.Kind = KindLiteral
		var v Value
		if err := v.UnmarshalJSON(w.Literal); err != nil {
			return nil, fmt.Errorf("superscript: ast literal: %w", err)
		}
		e.Literal = v
	case "list":
		e.Kind = KindList
		for _, ew := range w.Elements {
			el, err := fromWire(ew)
			if err != nil {
				return nil, err
			}
			e.Elements = append(e.Elements, el)
		}
	case "map":
		e.Kind = KindMap
		for _, entry := range w.Entries {
			k, err := fromWire(entry.Key)
			if err != nil {
				return nil, err
			}
			v, err := fromWire(entry.Value)
			if err != nil {
				return nil, err
			}
			e.Entries = append(e.Entries, MapEntry{Key: k, Value: v})
		}
	default:
		return nil, fmt.Errorf("superscript: unknown ast node kind %q", w.Kind)
	}
	return e, nil
}

// MarshalJSON renders e as ast_json.
func (e *Expr) MarshalJSON() ([]byte, error) {
	w, err := toWire(e)
	if err != nil {
		return nil, err
	}
	return json.Marshal(w)
}

// UnmarshalJSON parses ast_json into e.
func (e *Expr) UnmarshalJSON(data []byte) error {
	var w astWire
	if err := json.Unmarshal(data, &w); err != nil {
		return fmt.Errorf("superscript: malformed ast: %w", err)
	}
	parsed, err := fromWire(&w)
	if err != nil {
		return err
	}
	*e = *parsed
	return nil
}

// ParseASTJSON decodes ast_json into a local Expr tree.
func ParseASTJSON(data []byte) (*Expr, error) {
	var e Expr
	if err := e.UnmarshalJSON(data); err != nil {
		return nil, &EvalError{Kind: KindEnvelope, Message: err.Error()}
	}
	return &e, nil
}
