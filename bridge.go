package superscript

// Bridge is the host capability described in spec §4.5/§9: a polymorphic
// pair of operations for resolving dynamic device/computed calls. An
// implementation may use virtual dispatch (this interface), a
// function-pointer pair, or a message channel, so long as the
// synchronous-value contract holds — the evaluator suspends the current
// comparison until a value is produced (§5).
type Bridge interface {
	DeviceProperty(name string, args []Value) (Value, error)
	ComputedProperty(name string, args []Value) (Value, error)
}

// BridgeFuncs is a function-pointer-pair implementation of Bridge, for
// callers that would rather hand over two closures than define a type.
type BridgeFuncs struct {
	Device   func(name string, args []Value) (Value, error)
	Computed func(name string, args []Value) (Value, error)
}

func (b BridgeFuncs) DeviceProperty(name string, args []Value) (Value, error) {
	if b.Device == nil {
		return Null, newBridgeError(name, "no device bridge configured")
	}
	return b.Device(name, args)
}

func (b BridgeFuncs) ComputedProperty(name string, args []Value) (Value, error) {
	if b.Computed == nil {
		return Null, newBridgeError(name, "no computed bridge configured")
	}
	return b.Computed(name, args)
}

// InProcessBridge is the default, synchronous, in-process Bridge
// implementation: a pair of Go closures held directly, for hosts that are
// already running Go (tests, server-side embedding, the CLI). It is a thin
// named wrapper over BridgeFuncs so embedders have an obvious zero-config
// constructor to reach for.
type InProcessBridge struct {
	BridgeFuncs
}

// NewInProcessBridge builds an InProcessBridge from two resolver
// functions. Either may be nil if the host declares no functions of that
// kind; calling a nil resolver surfaces a bridge error rather than
// panicking.
func NewInProcessBridge(device, computed func(name string, args []Value) (Value, error)) *InProcessBridge {
	return &InProcessBridge{BridgeFuncs{Device: device, Computed: computed}}
}

// staticBridge answers every call from a fixed lookup table, keyed by
// dotted "device.name"/"computed.name". Used by tests and by the CLI's
// `eval` subcommand when a bridge is supplied as literal JSON rather than
// as Go code.
type staticBridge struct {
	table map[string]Value
}

// NewStaticBridge builds a Bridge that returns table[dotted name] for any
// call, or a bridge error if the name is absent.
func NewStaticBridge(table map[string]Value) Bridge {
	return &staticBridge{table: table}
}

func (s *staticBridge) DeviceProperty(name string, _ []Value) (Value, error) {
	return s.lookup("device." + name)
}

func (s *staticBridge) ComputedProperty(name string, _ []Value) (Value, error) {
	return s.lookup("computed." + name)
}

func (s *staticBridge) lookup(dotted string) (Value, error) {
	v, ok := s.table[dotted]
	if !ok {
		return Null, newBridgeError(dotted, "no static value registered for %q", dotted)
	}
	return v, nil
}
