package superscript

import (
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
)

func rewriteSource(t *testing.T, source string) *Expr {
	t.Helper()
	parsed, err := parseCELSource(sourceEnv, source)
	assertNoError(t, err)
	return RewriteNullSafety(NormalizeASTLiterals(parsed))
}

// Snapshot tests of the rewriter's unparsed output over a representative
// grid of expressions (spec.md §8's six scenarios don't by themselves
// exercise every rewrite branch — see SPEC_FULL.md §8).
func TestRewriteSnapshots(t *testing.T) {
	grid := []struct {
		name   string
		source string
	}{
		{"plain_select_guard", `user.name == "x"`},
		{"device_value_site", `device.model == "pixel"`},
		{"device_call_site", `device.getDays() > 5`},
		{"computed_call_site", `computed.randomUserValue("test") == 7`},
		{"nested_chain_guard", `user.profile.name == "x"`},
		{"both_sides_guarded", `user.a == user.b`},
		{"logical_and_of_relations", `user.a == 1 && user.b == 2`},
		{"reserved_builtin_untouched", `has(user.name)`},
		{"ternary_source_untouched_shape", `user.flag ? 1 : 2`},
	}
	for _, c := range grid {
		rewritten := rewriteSource(t, c.source)
		snaps.MatchSnapshot(t, c.name, rewritten.String())
	}
}

// Guard completeness: after rewriting, every device.X(...)/computed.X(...)
// call site is dominated by a hasFn("device.X")/hasFn("computed.X") test
// (spec §8). The rewriter wraps a device/computed call in its own hasFn
// ternary (rule b), and rule (d) may fold that guard into a conjunction
// around a relation — this walks the tree looking for any call whose
// Target is the bare device/computed identifier that is NOT inside the
// then-branch of a ternary whose condition includes the matching hasFn.
func TestRewriteGuardCompleteness(t *testing.T) {
	sources := []string{
		`device.getDays() > 5`,
		`computed.randomUserValue("test") == 7`,
		`device.a() && computed.b()`,
		`user.x == device.getDays()`,
	}
	for _, src := range sources {
		rewritten := rewriteSource(t, src)
		assertNoUnguardedDynamicCall(t, rewritten)
	}
}

func assertNoUnguardedDynamicCall(t *testing.T, root *Expr) {
	t.Helper()
	var walk func(e *Expr, dominatedBy map[string]bool)
	walk = func(e *Expr, dominatedBy map[string]bool) {
		if e == nil {
			return
		}
		if e.Kind == KindCall {
			if cond, then, _, ok := e.IsTernary(); ok {
				if names := collectHasFnNames(cond); len(names) > 0 {
					next := cloneGuardSet(dominatedBy)
					for _, n := range names {
						next[n] = true
					}
					walk(then, next)
					return
				}
			}
			if receiver, method, ok := matchDeviceComputedSelect(e); ok {
				dotted := receiver + "." + method
				if !dominatedBy[dotted] {
					t.Errorf("call to %s is not dominated by a matching hasFn guard", dotted)
				}
			}
			if e.Target != nil {
				walk(e.Target, dominatedBy)
			}
			for _, a := range e.Args {
				walk(a, dominatedBy)
			}
			return
		}
		if e.Operand != nil {
			walk(e.Operand, dominatedBy)
		}
		for _, el := range e.Elements {
			walk(el, dominatedBy)
		}
		for _, entry := range e.Entries {
			walk(entry.Key, dominatedBy)
			walk(entry.Value, dominatedBy)
		}
	}
	walk(root, map[string]bool{})
}

// collectHasFnNames flattens a condition that is either a single hasFn(...)
// call or a conjunction (&&) of such calls (the shape rule (d) produces
// when both sides of a relation are guarded calls), returning every dotted
// name it guards. Any other operand (e.g. a plain has(...) chain guard)
// contributes no names; a condition with no hasFn operand yields none.
func collectHasFnNames(cond *Expr) []string {
	if cond == nil || cond.Kind != KindCall {
		return nil
	}
	if cond.Function == "hasFn" && len(cond.Args) == 1 {
		arg := cond.Args[0]
		if arg.Kind == KindLiteral && arg.Literal.Tag == TagString {
			return []string{arg.Literal.Str}
		}
		return nil
	}
	if cond.Function == OpLogicalAnd && len(cond.Args) == 2 {
		return append(collectHasFnNames(cond.Args[0]), collectHasFnNames(cond.Args[1])...)
	}
	return nil
}

func cloneGuardSet(in map[string]bool) map[string]bool {
	out := make(map[string]bool, len(in)+1)
	for k, v := range in {
		out[k] = v
	}
	return out
}

// Default-type consistency (§4.4(d)): for any relation G ? E op O : D op O
// produced by the rewriter, D and O share the same value tag.
func TestRewriteDefaultTypeConsistency(t *testing.T) {
	sources := []string{
		`device.getDays() > 5`,
		`user.name == "x"`,
		`user.flag == true`,
	}
	for _, src := range sources {
		rewritten := rewriteSource(t, src)
		if !findAndCheckGuardedRelation(t, rewritten) {
			t.Errorf("%s: expected a guarded relation with a literal-default else branch", src)
		}
	}
}

// findAndCheckGuardedRelation walks the tree for a ternary whose else
// branch is a relation between two literals (the rule (d) default-vs-other
// case) and asserts both literals share a tag; returns whether it found one.
func findAndCheckGuardedRelation(t *testing.T, e *Expr) bool {
	t.Helper()
	found := false
	var walk func(*Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		if _, _, els, ok := e.IsTernary(); ok {
			if els.Kind == KindCall && relationalOps[els.Function] && len(els.Args) == 2 {
				l, r := els.Args[0], els.Args[1]
				if l.Kind == KindLiteral && r.Kind == KindLiteral {
					found = true
					if l.Literal.Tag != r.Literal.Tag {
						t.Errorf("default/other tag mismatch: %s vs %s", l.Literal.Tag, r.Literal.Tag)
					}
				}
			}
		}
		if e.Target != nil {
			walk(e.Target)
		}
		if e.Operand != nil {
			walk(e.Operand)
		}
		for _, a := range e.Args {
			walk(a)
		}
		for _, el := range e.Elements {
			walk(el)
		}
		for _, entry := range e.Entries {
			walk(entry.Key)
			walk(entry.Value)
		}
	}
	walk(e)
	return found
}

func TestRewriteLeavesReservedBuiltinsUntouched(t *testing.T) {
	// cel-go expands the has() macro at parse time into a test-only Select.
	rewritten := rewriteSource(t, `has(user.name)`)
	if rewritten.Kind != KindSelect || !rewritten.TestOnly || rewritten.Field != "name" {
		t.Fatalf("expected has() call to survive the rewrite untouched, got %s", rewritten.String())
	}
}

// Call arguments are themselves subject to the rewrite (spec §4.4): the
// argument passed to a device/computed call gets its own guard ternary
// nested inside the call's own hasFn wrapper.
func TestRewriteArgumentsToDynamicCallAreThemselvesRewritten(t *testing.T) {
	rewritten := rewriteSource(t, `device.f(user.x)`)

	cond, then, _, ok := rewritten.IsTernary()
	if !ok {
		t.Fatalf("expected the outer call to be wrapped in a hasFn ternary, got %s", rewritten.String())
	}
	names := collectHasFnNames(cond)
	if len(names) != 1 || names[0] != "device.f" {
		t.Fatalf("expected the outer guard to be hasFn(\"device.f\"), got names=%v", names)
	}
	if then.Kind != KindCall || len(then.Args) != 1 {
		t.Fatalf("expected the guarded call to carry exactly one argument, got %s", then.String())
	}
	argCond, argThen, _, ok := then.Args[0].IsTernary()
	if !ok {
		t.Fatalf("expected the argument itself to be wrapped in a has() ternary, got %s", then.Args[0].String())
	}
	if argCond.Function != "has" {
		t.Errorf("expected the argument's guard to be has(...), got %s", argCond.Function)
	}
	if argThen.Kind != KindSelect || argThen.Field != "x" {
		t.Errorf("expected the argument's guarded value to be user.x, got %s", argThen.String())
	}
}
