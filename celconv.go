package superscript

import (
	"fmt"

	exprpb "cel.dev/expr"
	"github.com/google/cel-go/cel"
)

// parseCELSource parses CEL source text into Superscript's local Expr tree.
// cel-go produces the AST; cel.AstToParsedExpr converts it to the
// cel.dev/expr protobuf tree (the standard mechanism CEL tooling uses to
// exchange ASTs across process/language boundaries), and fromProtoExpr
// converts that into the local tree the rewriter operates on.
func parseCELSource(env *cel.Env, source string) (*Expr, error) {
	ast, issues := env.Parse(source)
	if issues != nil && issues.Err() != nil {
		return nil, &EvalError{Kind: KindParse, Message: issues.Err().Error()}
	}
	parsedExpr, err := cel.AstToParsedExpr(ast)
	if err != nil {
		return nil, &EvalError{Kind: KindParse, Message: fmt.Sprintf("ast conversion: %v", err)}
	}
	return fromProtoExpr(parsedExpr.GetExpr())
}

// fromProtoExpr converts a cel.dev/expr protobuf Expr tree into the local
// Expr type. Message-typed struct literals (Protobuf-typed values) are
// rejected — full Protobuf conformance is an explicit non-goal (spec §1) —
// as are comprehensions, since none of has()/size()/the rewriter's own
// output require them and cel-go's has() macro desugars to a test-only
// Select rather than a comprehension.
func fromProtoExpr(pe *exprpb.Expr) (*Expr, error) {
	if pe == nil {
		return nil, nil
	}
	switch k := pe.GetExprKind().(type) {
	case *exprpb.Expr_IdentExpr:
		return &Expr{ID: pe.GetId(), Kind: KindIdent, Ident: k.IdentExpr.GetName()}, nil
	case *exprpb.Expr_SelectExpr:
		operand, err := fromProtoExpr(k.SelectExpr.GetOperand())
		if err != nil {
			return nil, err
		}
		return &Expr{
			ID: pe.GetId(), Kind: KindSelect,
			Operand: operand, Field: k.SelectExpr.GetField(), TestOnly: k.SelectExpr.GetTestOnly(),
		}, nil
	case *exprpb.Expr_CallExpr:
		target, err := fromProtoExpr(k.CallExpr.GetTarget())
		if err != nil {
			return nil, err
		}
		args := make([]*Expr, 0, len(k.CallExpr.GetArgs()))
		for _, a := range k.CallExpr.GetArgs() {
			ae, err := fromProtoExpr(a)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return &Expr{
			ID: pe.GetId(), Kind: KindCall,
			Target: target, Function: k.CallExpr.GetFunction(), Args: args,
		}, nil
	case *exprpb.Expr_ConstExpr:
		v, err := fromProtoConst(k.ConstExpr)
		if err != nil {
			return nil, err
		}
		return &Expr{ID: pe.GetId(), Kind: KindLiteral, Literal: v}, nil
	case *exprpb.Expr_ListExpr:
		elements := make([]*Expr, 0, len(k.ListExpr.GetElements()))
		for _, el := range k.ListExpr.GetElements() {
			ee, err := fromProtoExpr(el)
			if err != nil {
				return nil, err
			}
			elements = append(elements, ee)
		}
		return &Expr{ID: pe.GetId(), Kind: KindList, Elements: elements}, nil
	case *exprpb.Expr_StructExpr:
		if k.StructExpr.GetMessageName() != "" {
			return nil, &EvalError{Kind: KindParse, Message: "message-typed struct literals are not supported"}
		}
		entries := make([]MapEntry, 0, len(k.StructExpr.GetEntries()))
		for _, entry := range k.StructExpr.GetEntries() {
			var key *Expr
			switch kk := entry.GetKeyKind().(type) {
			case *exprpb.Expr_CreateStruct_Entry_MapKey:
				ke, err := fromProtoExpr(kk.MapKey)
				if err != nil {
					return nil, err
				}
				key = ke
			case *exprpb.Expr_CreateStruct_Entry_FieldKey:
				key = NewLiteral(NewString(kk.FieldKey))
			default:
				return nil, fmt.Errorf("superscript: struct entry has no key")
			}
			val, err := fromProtoExpr(entry.GetValue())
			if err != nil {
				return nil, err
			}
			entries = append(entries, MapEntry{Key: key, Value: val})
		}
		return &Expr{ID: pe.GetId(), Kind: KindMap, Entries: entries}, nil
	case *exprpb.Expr_ComprehensionExpr:
		return nil, &EvalError{Kind: KindParse, Message: "comprehension expressions are not supported"}
	default:
		return nil, fmt.Errorf("superscript: unrecognized proto expr kind %T", k)
	}
}

func fromProtoConst(c *exprpb.Constant) (Value, error) {
	switch k := c.GetConstantKind().(type) {
	case *exprpb.Constant_NullValue:
		return Null, nil
	case *exprpb.Constant_BoolValue:
		return NewBool(k.BoolValue), nil
	case *exprpb.Constant_Int64Value:
		return NewInt(k.Int64Value), nil
	case *exprpb.Constant_Uint64Value:
		return NewUint(k.Uint64Value), nil
	case *exprpb.Constant_DoubleValue:
		return NewFloat(k.DoubleValue), nil
	case *exprpb.Constant_StringValue:
		return NewString(k.StringValue), nil
	case *exprpb.Constant_BytesValue:
		return NewBytes(k.BytesValue), nil
	default:
		return Value{}, fmt.Errorf("superscript: unrecognized proto constant kind %T", k)
	}
}

// idCounter assigns monotonically increasing node IDs when building a
// protobuf Expr tree from a local one that lacks them (e.g. freshly
// rewriter-produced nodes never had a parser-assigned ID).
type idCounter struct{ next int64 }

func (c *idCounter) take(existing int64) int64 {
	if existing != 0 {
		return existing
	}
	c.next++
	return c.next
}

// toProtoExpr converts a local Expr tree back into the cel.dev/expr
// protobuf shape. Not required for execution (Superscript unparses the
// rewritten tree to CEL source text and re-parses it — see DESIGN.md,
// open-question resolution 5) but kept as the inverse of fromProtoExpr for tooling that wants a
// protobuf AST out of parse_to_ast/rewrite without a text round-trip.
func toProtoExpr(e *Expr, ids *idCounter) (*exprpb.Expr, error) {
	if e == nil {
		return nil, nil
	}
	id := ids.take(e.ID)
	switch e.Kind {
	case KindIdent:
		return &exprpb.Expr{Id: id, ExprKind: &exprpb.Expr_IdentExpr{
			IdentExpr: &exprpb.Expr_Ident{Name: e.Ident},
		}}, nil
	case KindSelect:
		operand, err := toProtoExpr(e.Operand, ids)
		if err != nil {
			return nil, err
		}
		return &exprpb.Expr{Id: id, ExprKind: &exprpb.Expr_SelectExpr{
			SelectExpr: &exprpb.Expr_Select{Operand: operand, Field: e.Field, TestOnly: e.TestOnly},
		}}, nil
	case KindCall:
		target, err := toProtoExpr(e.Target, ids)
		if err != nil {
			return nil, err
		}
		args := make([]*exprpb.Expr, 0, len(e.Args))
		for _, a := range e.Args {
			ae, err := toProtoExpr(a, ids)
			if err != nil {
				return nil, err
			}
			args = append(args, ae)
		}
		return &exprpb.Expr{Id: id, ExprKind: &exprpb.Expr_CallExpr{
			CallExpr: &exprpb.Expr_Call{Target: target, Function: e.Function, Args: args},
		}}, nil
	case KindLiteral:
		c, err := toProtoConst(e.Literal)
		if err != nil {
			return nil, err
		}
		return &exprpb.Expr{Id: id, ExprKind: &exprpb.Expr_ConstExpr{ConstExpr: c}}, nil
	case KindList:
		elements := make([]*exprpb.Expr, 0, len(e.Elements))
		for _, el := range e.Elements {
			ee, err := toProtoExpr(el, ids)
			if err != nil {
				return nil, err
			}
			elements = append(elements, ee)
		}
		return &exprpb.Expr{Id: id, ExprKind: &exprpb.Expr_ListExpr{
			ListExpr: &exprpb.Expr_CreateList{Elements: elements},
		}}, nil
	case KindMap:
		entries := make([]*exprpb.Expr_CreateStruct_Entry, 0, len(e.Entries))
		for _, entry := range e.Entries {
			keyExpr, err := toProtoExpr(entry.Key, ids)
			if err != nil {
				return nil, err
			}
			valExpr, err := toProtoExpr(entry.Value, ids)
			if err != nil {
				return nil, err
			}
			entries = append(entries, &exprpb.Expr_CreateStruct_Entry{
				Id:      ids.take(0),
				KeyKind: &exprpb.Expr_CreateStruct_Entry_MapKey{MapKey: keyExpr},
				Value:   valExpr,
			})
		}
		return &exprpb.Expr{Id: id, ExprKind: &exprpb.Expr_StructExpr{
			StructExpr: &exprpb.Expr_CreateStruct{Entries: entries},
		}}, nil
	default:
		return nil, fmt.Errorf("superscript: unknown expr kind %d", e.Kind)
	}
}

func toProtoConst(v Value) (*exprpb.Constant, error) {
	switch v.Tag {
	case TagNull:
		return &exprpb.Constant{ConstantKind: &exprpb.Constant_NullValue{}}, nil
	case TagBool:
		return &exprpb.Constant{ConstantKind: &exprpb.Constant_BoolValue{BoolValue: v.Bool}}, nil
	case TagInt:
		return &exprpb.Constant{ConstantKind: &exprpb.Constant_Int64Value{Int64Value: v.Int}}, nil
	case TagUint:
		return &exprpb.Constant{ConstantKind: &exprpb.Constant_Uint64Value{Uint64Value: v.Uint}}, nil
	case TagFloat:
		return &exprpb.Constant{ConstantKind: &exprpb.Constant_DoubleValue{DoubleValue: v.Float}}, nil
	case TagString:
		return &exprpb.Constant{ConstantKind: &exprpb.Constant_StringValue{StringValue: v.Str}}, nil
	case TagBytes:
		return &exprpb.Constant{ConstantKind: &exprpb.Constant_BytesValue{BytesValue: v.Bytes}}, nil
	default:
		return nil, fmt.Errorf("superscript: value tag %q has no literal representation", v.Tag)
	}
}
