package superscript

import (
	"fmt"
	"reflect"
	"sort"
	"strings"

	deepcopy "github.com/barkimedes/go-deepcopy"
	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/common/types/traits"
)

// DeviceNamespaceType and ComputedNamespaceType are the two distinct CEL
// types bound to the `device` and `computed` identifiers. They are
// deliberately distinct (rather than both cel.DynType, or both a shared
// generic map type) so that a declared function name reused under both
// namespaces (e.g. both declare "foo") can still be dispatched correctly:
// CEL resolves a member call purely by (function name, receiver type,
// argument types), so two receiver types are what let `device.foo(x)` and
// `computed.foo(x)` route to different bridge calls despite sharing a
// function name.
var (
	DeviceNamespaceType   = types.NewOpaqueType("superscript.device")
	ComputedNamespaceType = types.NewOpaqueType("superscript.computed")
)

// namespaceVal is the runtime ref.Val backing the device/computed
// identifiers. It implements traits.Mapper (Indexer+Container+Iterable+
// Sizer plus Find) by hand — grounded on the custom ref.Val pattern in
// rashadism-openchoreo's internal/template/custom_functions.go (its
// omitCELValue type) — rather than delegating to cel-go's built-in
// types.NewDynamicMap, because DynamicMap's CEL type is a generic map type
// shared by any map value, which would collapse the device/computed
// distinction this type exists to preserve.
type namespaceVal struct {
	ns      string
	celType ref.Type
	fields  map[string]Value
	keys    []string
	adapter types.Adapter
}

func newNamespaceVal(ns string, celType ref.Type, fields map[string]Value, keys []string, adapter types.Adapter) *namespaceVal {
	return &namespaceVal{ns: ns, celType: celType, fields: fields, keys: keys, adapter: adapter}
}

func (v *namespaceVal) ConvertToNative(_ reflect.Type) (any, error) {
	out := make(map[string]any, len(v.fields))
	for k, val := range v.fields {
		out[k] = val.ToNative()
	}
	return out, nil
}

func (v *namespaceVal) ConvertToType(typeVal ref.Type) ref.Val {
	return types.NewErr("%s values cannot be converted to %s", v.ns, typeVal.TypeName())
}

func (v *namespaceVal) Equal(other ref.Val) ref.Val {
	o, ok := other.(*namespaceVal)
	return types.Bool(ok && o.ns == v.ns)
}

func (v *namespaceVal) Type() ref.Type { return v.celType }

func (v *namespaceVal) Value() any {
	out := make(map[string]any, len(v.fields))
	for k, val := range v.fields {
		out[k] = val.ToNative()
	}
	return out
}

// Get implements traits.Indexer: plain member access device.X/computed.X.
func (v *namespaceVal) Get(index ref.Val) ref.Val {
	key, ok := index.Value().(string)
	if !ok {
		return types.NewErr("%s: field name must be a string", v.ns)
	}
	val, found := v.fields[key]
	if !found {
		return types.NewErr("%s: no declared entry %q", v.ns, key)
	}
	return v.adapter.NativeToValue(val.ToNative())
}

// Find implements the presence half of traits.Mapper, used by has().
func (v *namespaceVal) Find(key ref.Val) (ref.Val, bool) {
	k, ok := key.Value().(string)
	if !ok {
		return nil, false
	}
	val, found := v.fields[k]
	if !found {
		return nil, false
	}
	return v.adapter.NativeToValue(val.ToNative()), true
}

// Contains implements traits.Container.
func (v *namespaceVal) Contains(key ref.Val) ref.Val {
	_, found := v.Find(key)
	return types.Bool(found)
}

// Size implements traits.Sizer.
func (v *namespaceVal) Size() ref.Val { return types.Int(len(v.fields)) }

// Iterator implements traits.Iterable, enumerating declared field names.
func (v *namespaceVal) Iterator() traits.Iterator { return &namespaceIterator{keys: v.keys} }

type namespaceIterator struct {
	keys []string
	pos  int
}

func (it *namespaceIterator) ConvertToNative(_ reflect.Type) (any, error) {
	return nil, fmt.Errorf("iterators cannot be converted to native values")
}
func (it *namespaceIterator) ConvertToType(typeVal ref.Type) ref.Val {
	return types.NewErr("iterators cannot be converted to %s", typeVal.TypeName())
}
func (it *namespaceIterator) Equal(other ref.Val) ref.Val { return types.Bool(it == other) }
func (it *namespaceIterator) Type() ref.Type              { return types.IteratorType }
func (it *namespaceIterator) Value() any                  { return it }

func (it *namespaceIterator) HasNext() ref.Val { return types.Bool(it.pos < len(it.keys)) }
func (it *namespaceIterator) Next() ref.Val {
	if it.pos >= len(it.keys) {
		return types.NewErr("iterator exhausted")
	}
	k := it.keys[it.pos]
	it.pos++
	return types.String(k)
}

// declaredNames is the presence set hasFn(...) consults: the dotted
// "device.name"/"computed.name" strings declared in the ExecutionContext,
// or empty when evaluating without a bridge (evaluate_ast per spec §6:
// "no host bridge; any dynamic call is treated as absent").
type declaredNames struct {
	names map[string]bool
}

func (d *declaredNames) has(dotted string) bool {
	return d != nil && d.names[dotted]
}

func buildDeclaredNames(ctx *ExecutionContext, bridge Bridge) *declaredNames {
	names := map[string]bool{}
	if bridge != nil {
		for k := range ctx.Device {
			names["device."+k] = true
		}
		for k := range ctx.Computed {
			names["computed."+k] = true
		}
	}
	return &declaredNames{names: names}
}

// functionMarker builds the spec §3 "function" value representing a
// declared dynamic name's presence. The declaration's example array is
// informational only (SPEC_FULL.md §8 open-question resolution 2); at
// most its first element is retained as the marker's optional argument.
func functionMarker(name string, examples []Value) Value {
	if len(examples) == 0 {
		return NewFunction(name, nil)
	}
	arg := examples[0]
	return NewFunction(name, &arg)
}

// buildNamespaces constructs the device/computed field maps per spec
// §4.6 step 3: device holds only declared-function presence markers;
// computed holds the same markers plus any top-level variable bound under
// the "computed." prefix (hoisted here because CEL identifiers cannot
// themselves contain a literal '.', so `computed.foo` can only resolve as
// a select off a real `computed` variable). A hoisted variable overwrites
// a same-named function marker, matching "the variable wins during value
// sites" from spec §4.6 step 3 — call-site dispatch is unaffected since it
// never consults this map.
func buildNamespaces(ctx *ExecutionContext) (device, computed map[string]Value) {
	device = map[string]Value{}
	computed = map[string]Value{}
	for name, examples := range ctx.Device {
		device[name] = functionMarker(name, examples)
	}
	for name, examples := range ctx.Computed {
		computed[name] = functionMarker(name, examples)
	}
	if ctx.Variables != nil {
		for _, k := range ctx.Variables.Keys {
			if sub, ok := strings.CutPrefix(k, "computed."); ok {
				v, _ := ctx.Variables.Get(k)
				computed[sub] = v
			}
		}
	}
	return device, computed
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// bridgeDispatch is the shared state one evaluation's member-overload
// bindings close over: it routes a call through the Bridge and remembers
// the first bridge-level failure so runEvaluation can distinguish a fatal
// bridge error (spec §7's "Bridge/runtime error" kind) from an ordinary
// resolution error that the interpreter itself raises and that the driver
// maps to null.
type bridgeDispatch struct {
	bridge Bridge
	err    *EvalError
}

func (d *bridgeDispatch) call(ns, name string, args []ref.Val) ref.Val {
	vargs := make([]Value, len(args))
	for i, a := range args {
		vargs[i] = FromNative(a.Value())
	}
	var (
		result Value
		err    error
	)
	if ns == "device" {
		result, err = d.bridge.DeviceProperty(name, vargs)
	} else {
		result, err = d.bridge.ComputedProperty(name, vargs)
	}
	if err != nil {
		if d.err == nil {
			d.err = newBridgeError(ns+"."+name, "bridge call failed: %v", err)
		}
		return types.NewErr("bridge call to %s.%s failed", ns, name)
	}
	return types.DefaultTypeAdapter.NativeToValue(result.ToNative())
}

// dynamicFunctionOverloads registers, per unique declared function name
// across both namespaces, member overloads at 0/1/2-argument arity against
// whichever of DeviceNamespaceType/ComputedNamespaceType actually declared
// that name (see SPEC_FULL.md §4.6).
func dynamicFunctionOverloads(ctx *ExecutionContext, dispatch *bridgeDispatch) []cel.EnvOption {
	type origin struct {
		ns   string
		typ  *cel.Type
		name string
	}
	var origins []origin
	if dispatch != nil {
		for name := range ctx.Device {
			origins = append(origins, origin{"device", DeviceNamespaceType, name})
		}
		for name := range ctx.Computed {
			origins = append(origins, origin{"computed", ComputedNamespaceType, name})
		}
	}

	byName := map[string][]origin{}
	for _, o := range origins {
		byName[o.name] = append(byName[o.name], o)
	}

	var opts []cel.EnvOption
	for name, os := range byName {
		var overloads []cel.FunctionOpt
		for _, o := range os {
			ns := o.ns
			overloads = append(overloads,
				cel.MemberOverload(o.ns+"_"+name+"_0",
					[]*cel.Type{o.typ}, cel.DynType,
					cel.UnaryBinding(func(self ref.Val) ref.Val {
						return dispatch.call(ns, name, nil)
					}),
				),
				cel.MemberOverload(o.ns+"_"+name+"_1",
					[]*cel.Type{o.typ, cel.DynType}, cel.DynType,
					cel.BinaryBinding(func(self, a1 ref.Val) ref.Val {
						return dispatch.call(ns, name, []ref.Val{a1})
					}),
				),
				cel.MemberOverload(o.ns+"_"+name+"_2",
					[]*cel.Type{o.typ, cel.DynType, cel.DynType}, cel.DynType,
					cel.FunctionBinding(func(args ...ref.Val) ref.Val {
						return dispatch.call(ns, name, args[1:])
					}),
				),
			)
		}
		opts = append(opts, cel.Function(name, overloads...))
	}
	return opts
}

// buildEnv constructs the per-evaluation *cel.Env per spec §4.6: ordinary
// variables at cel.DynType, the device/computed namespaces at their own
// distinct types, the fixed builtins, and the dynamic member overloads.
// A fresh env is built every call (mirroring rashadism-openchoreo's
// BuildComponentCELEnv, which does the same for the same reason: the set
// of declared names varies per call and cel-go's function/variable set is
// fixed once an Env is constructed).
func buildEnv(ctx *ExecutionContext, decls *declaredNames, dispatch *bridgeDispatch) (*cel.Env, error) {
	var opts []cel.EnvOption
	if ctx.Variables != nil {
		for _, name := range ctx.Variables.Keys {
			if strings.HasPrefix(name, "computed.") || strings.HasPrefix(name, "device.") {
				continue
			}
			opts = append(opts, cel.Variable(name, cel.DynType))
		}
	}
	opts = append(opts,
		cel.Variable("device", DeviceNamespaceType),
		cel.Variable("computed", ComputedNamespaceType),
	)
	opts = append(opts, coreBuiltins(decls)...)
	opts = append(opts, dynamicFunctionOverloads(ctx, dispatch)...)

	return cel.NewEnv(opts...)
}

// buildActivation deep-copies the normalized variable map (via
// barkimedes/go-deepcopy — see SPEC_FULL.md §3) before binding it into the
// evaluation so a bridge implementation that mutates a value it returned
// cannot retroactively corrupt a value another in-flight evaluation still
// holds a reference to.
func buildActivation(ctx *ExecutionContext, device, computed map[string]Value) (map[string]any, error) {
	activation := map[string]any{}
	if ctx.Variables != nil {
		for _, name := range ctx.Variables.Keys {
			if strings.HasPrefix(name, "computed.") || strings.HasPrefix(name, "device.") {
				continue
			}
			v, _ := ctx.Variables.Get(name)
			native := v.ToNative()
			copied, err := deepcopy.Anything(native)
			if err != nil {
				return nil, err
			}
			activation[name] = copied
		}
	}
	activation["device"] = newNamespaceVal("device", DeviceNamespaceType, device, sortedKeys(device), types.DefaultTypeAdapter)
	activation["computed"] = newNamespaceVal("computed", ComputedNamespaceType, computed, sortedKeys(computed), types.DefaultTypeAdapter)
	return activation, nil
}

// runEvaluation binds ctx into a fresh environment, evaluates rewritten
// against it, and maps the outcome per spec §7: bridge failures are fatal
// (KindBridge), every other interpreter failure is the "handled" resolution
// category and degrades to null.
func runEvaluation(ctx *ExecutionContext, rewritten *Expr, bridge Bridge) (Value, error) {
	normalizedVars := NormalizeValue(NewMap(ctx.Variables)).Map
	normCtx := *ctx
	normCtx.Variables = normalizedVars

	decls := buildDeclaredNames(&normCtx, bridge)
	dispatch := &bridgeDispatch{bridge: bridge}

	env, err := buildEnv(&normCtx, decls, dispatch)
	if err != nil {
		return Null, &EvalError{Kind: KindParse, Message: "environment construction failed: " + err.Error()}
	}

	ast, issues := env.Parse(rewritten.String())
	if issues != nil && issues.Err() != nil {
		return Null, &EvalError{Kind: KindParse, Message: issues.Err().Error()}
	}
	prg, err := env.Program(ast)
	if err != nil {
		return Null, &EvalError{Kind: KindParse, Message: "program construction failed: " + err.Error()}
	}

	device, computed := buildNamespaces(&normCtx)
	activation, err := buildActivation(&normCtx, device, computed)
	if err != nil {
		return Null, &EvalError{Kind: KindBridge, Message: "activation construction failed: " + err.Error()}
	}

	out, _, evalErr := prg.Eval(activation)
	if dispatch.err != nil {
		return Null, dispatch.err
	}
	if evalErr != nil {
		// Resolution error — handled per spec §7: undeclared reference,
		// call to an unknown function, comparison involving null. The
		// null-safety rewrite is meant to make this path rare; this is
		// the backstop.
		return Null, nil
	}
	return FromNative(out.Value()), nil
}
