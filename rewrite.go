package superscript

// RewriteNullSafety runs the full two-pass null-safety transformation of
// spec §4.4: guarding (rules a-c) in a first post-order walk, then relation
// enhancement (rule d) in a second post-order walk that sees the
// already-guarded operands. Kept as two passes (rather than merged) per
// the design note in spec §9, so each can be unit-tested independently.
func RewriteNullSafety(e *Expr) *Expr {
	return rewriteRelations(rewriteGuards(e))
}

// --- Pass 1: member/call guarding (rules a-c) ---

func rewriteGuards(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindIdent, KindLiteral:
		return e
	case KindList:
		elements := make([]*Expr, len(e.Elements))
		for i, el := range e.Elements {
			elements[i] = rewriteGuards(el)
		}
		return &Expr{ID: e.ID, Kind: KindList, Elements: elements}
	case KindMap:
		entries := make([]MapEntry, len(e.Entries))
		for i, entry := range e.Entries {
			entries[i] = MapEntry{Key: rewriteGuards(entry.Key), Value: rewriteGuards(entry.Value)}
		}
		return &Expr{ID: e.ID, Kind: KindMap, Entries: entries}
	case KindSelect:
		return rewriteSelect(e)
	case KindCall:
		return rewriteCall(e)
	default:
		return e
	}
}

// rewriteSelect implements rules (a) and (c), plus tie-break (f)'s
// outermost-access-only rule: a select chain A.B.C is wrapped once, at its
// outermost node, using the whole chain as both the has() argument and the
// guarded value — the intermediate steps are left exactly as the parser
// produced them, since the interpreter's own member lookup resolves them.
func rewriteSelect(e *Expr) *Expr {
	if e.TestOnly {
		// Already a has()-macro presence test (produced by fromProtoExpr,
		// never by this rewriter); rule (f) has no opinion on these and
		// wrapping one would be redundant.
		return e
	}

	root := chainRoot(e)
	if root.Kind == KindIdent {
		if ReservedBuiltins[root.Ident] {
			return e
		}
		// Rule (a) (root is device/computed) and rule (c) (any other
		// identifier) both resolve to the same guard shape once the chain
		// is treated as a unit — see the rewrite.go notes in DESIGN.md for why this
		// generalizes the single-level wording of rule (a) to chains
		// rooted at device/computed.
		return wrapHasTernary(e)
	}

	// The chain bottoms out in something other than a plain identifier
	// (a call result, a literal, etc.) — rule (c) does not apply to the
	// chain as a whole, but the root sub-expression may still need its own
	// guarding (e.g. a device/computed call nested earlier in the chain).
	newRoot := rewriteGuards(root)
	if newRoot == root {
		return e
	}
	return replaceChainRoot(e, root, newRoot)
}

func chainRoot(e *Expr) *Expr {
	for e.Kind == KindSelect {
		e = e.Operand
	}
	return e
}

func replaceChainRoot(e, oldRoot, newRoot *Expr) *Expr {
	if e == oldRoot {
		return newRoot
	}
	if e.Kind != KindSelect {
		return e
	}
	return &Expr{
		ID: e.ID, Kind: KindSelect,
		Operand: replaceChainRoot(e.Operand, oldRoot, newRoot),
		Field:   e.Field, TestOnly: e.TestOnly,
	}
}

// rewriteCall implements rule (b) (device/computed calls) and tie-break
// (f)'s "calls to anything else are not wrapped" rule. Call arguments are
// always recursively rewritten (last bullet of (f)); the callee path
// itself is never rewritten, since CEL call syntax requires a literal
// target/function path, not an arbitrary value expression.
func rewriteCall(e *Expr) *Expr {
	args := make([]*Expr, len(e.Args))
	for i, a := range e.Args {
		args[i] = rewriteGuards(a)
	}

	if receiver, method, ok := matchDeviceComputedSelect(e); ok {
		dotted := receiver + "." + method
		inner := &Expr{ID: e.ID, Kind: KindCall, Target: e.Target, Function: e.Function, Args: args}
		return wrapHasFnTernary(dotted, inner)
	}
	return &Expr{ID: e.ID, Kind: KindCall, Target: e.Target, Function: e.Function, Args: args}
}

// matchDeviceComputedSelect reports whether call is exactly a direct member
// call `device.X(args…)` or `computed.X(args…)`. cel-go parses such a call
// as Call{Target: Ident("device"/"computed"), Function: "X"} — the target
// is the bare receiver identifier, not a Select, since the dotted method
// name is carried in Function rather than as a chained member access.
func matchDeviceComputedSelect(call *Expr) (receiver, method string, ok bool) {
	if call == nil || call.Target == nil || call.Target.Kind != KindIdent {
		return "", "", false
	}
	name := call.Target.Ident
	if name != "device" && name != "computed" {
		return "", "", false
	}
	return name, call.Function, true
}

func wrapHasTernary(e *Expr) *Expr {
	cond := NewCall(nil, "has", e)
	return NewCall(nil, OpConditional, cond, e, NewLiteral(Null))
}

func wrapHasFnTernary(dotted string, inner *Expr) *Expr {
	cond := NewCall(nil, "hasFn", NewLiteral(NewString(dotted)))
	return NewCall(nil, OpConditional, cond, inner, NewLiteral(NewBool(false)))
}

// --- Pass 2: relation enhancement (rule d) ---

func rewriteRelations(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Kind {
	case KindIdent, KindLiteral:
		return e
	case KindSelect:
		return &Expr{ID: e.ID, Kind: KindSelect, Operand: rewriteRelations(e.Operand), Field: e.Field, TestOnly: e.TestOnly}
	case KindList:
		elements := make([]*Expr, len(e.Elements))
		for i, el := range e.Elements {
			elements[i] = rewriteRelations(el)
		}
		return &Expr{ID: e.ID, Kind: KindList, Elements: elements}
	case KindMap:
		entries := make([]MapEntry, len(e.Entries))
		for i, entry := range e.Entries {
			entries[i] = MapEntry{Key: rewriteRelations(entry.Key), Value: rewriteRelations(entry.Value)}
		}
		return &Expr{ID: e.ID, Kind: KindMap, Entries: entries}
	case KindCall:
		var target *Expr
		if e.Target != nil {
			target = rewriteRelations(e.Target)
		}
		args := make([]*Expr, len(e.Args))
		for i, a := range e.Args {
			args[i] = rewriteRelations(a)
		}
		call := &Expr{ID: e.ID, Kind: KindCall, Target: target, Function: e.Function, Args: args}
		if relationalOps[e.Function] && len(args) == 2 {
			return enhanceRelation(call)
		}
		return call
	default:
		return e
	}
}

// guardedOperand is a relation operand recognized as a ternary produced by
// pass 1: `cond ? value : def`, where def is the rule (a)/(b) sentinel
// (null or false).
type guardedOperand struct {
	cond, value, def *Expr
}

func asGuardedOperand(e *Expr) (guardedOperand, bool) {
	cond, then, els, ok := e.IsTernary()
	if !ok {
		return guardedOperand{}, false
	}
	if els.Kind != KindLiteral {
		return guardedOperand{}, false
	}
	if els.Literal.IsNull() || (els.Literal.Tag == TagBool && !els.Literal.Bool) {
		return guardedOperand{cond: cond, value: then, def: els}, true
	}
	return guardedOperand{}, false
}

func isAtomicLiteral(e *Expr) bool {
	if e.Kind != KindLiteral {
		return false
	}
	switch e.Literal.Tag {
	case TagInt, TagUint, TagFloat, TagString, TagBool:
		return true
	default:
		return false
	}
}

// enhanceRelation applies rule (d) to a single already-guard-rewritten
// relation node.
func enhanceRelation(call *Expr) *Expr {
	left, right := call.Args[0], call.Args[1]
	lg, lok := asGuardedOperand(left)
	rg, rok := asGuardedOperand(right)

	switch {
	case lok && rok:
		guard := NewCall(nil, OpLogicalAnd, lg.cond, rg.cond)
		inner := NewCall(nil, call.Function, lg.value, rg.value)
		return NewCall(nil, OpConditional, guard, inner, NewLiteral(NewBool(false)))
	case lok:
		return enhanceSingleGuarded(lg, right, call.Function, true)
	case rok:
		return enhanceSingleGuarded(rg, left, call.Function, false)
	default:
		return call
	}
}

func enhanceSingleGuarded(g guardedOperand, other *Expr, op string, guardedIsLeft bool) *Expr {
	if isAtomicLiteral(other) {
		defVal := NewLiteral(DefaultForTag(other.Literal.Tag))
		var thenExpr, elseExpr *Expr
		if guardedIsLeft {
			thenExpr = NewCall(nil, op, g.value, other)
			elseExpr = NewCall(nil, op, defVal, other)
		} else {
			thenExpr = NewCall(nil, op, other, g.value)
			elseExpr = NewCall(nil, op, other, defVal)
		}
		return NewCall(nil, OpConditional, g.cond, thenExpr, elseExpr)
	}

	var inner *Expr
	if guardedIsLeft {
		inner = NewCall(nil, op, g.value, other)
	} else {
		inner = NewCall(nil, op, other, g.value)
	}
	return NewCall(nil, OpConditional, g.cond, inner, NewLiteral(NewBool(false)))
}
