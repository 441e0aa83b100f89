package superscript

import "testing"

func TestBridgeFuncsDispatchesToTheMatchingClosure(t *testing.T) {
	var gotDeviceName, gotComputedName string
	b := BridgeFuncs{
		Device: func(name string, args []Value) (Value, error) {
			gotDeviceName = name
			return NewInt(1), nil
		},
		Computed: func(name string, args []Value) (Value, error) {
			gotComputedName = name
			return NewInt(2), nil
		},
	}

	dv, err := b.DeviceProperty("model", nil)
	assertNoError(t, err)
	assertEqual(t, "model", gotDeviceName)
	assertEqual(t, int64(1), dv.Int)

	cv, err := b.ComputedProperty("score", nil)
	assertNoError(t, err)
	assertEqual(t, "score", gotComputedName)
	assertEqual(t, int64(2), cv.Int)
}

func TestBridgeFuncsSurfacesBridgeErrorWhenResolverIsNil(t *testing.T) {
	var b BridgeFuncs
	_, err := b.DeviceProperty("model", nil)
	if err == nil {
		t.Fatal("expected a bridge error when no device resolver is configured")
	}
	var evalErr *EvalError
	if ee, ok := err.(*EvalError); ok {
		evalErr = ee
	}
	if evalErr == nil || evalErr.Kind != KindBridge {
		t.Fatalf("expected a KindBridge EvalError, got %#v", err)
	}

	_, err = b.ComputedProperty("score", nil)
	if err == nil {
		t.Fatal("expected a bridge error when no computed resolver is configured")
	}
}

func TestNewInProcessBridgeWrapsClosures(t *testing.T) {
	called := false
	b := NewInProcessBridge(func(name string, args []Value) (Value, error) {
		called = true
		return NewBool(true), nil
	}, nil)

	v, err := b.DeviceProperty("anything", nil)
	assertNoError(t, err)
	if !called {
		t.Error("expected the device closure to be invoked")
	}
	assertEqual(t, true, v.Bool)

	_, err = b.ComputedProperty("anything", nil)
	if err == nil {
		t.Fatal("expected a bridge error for the unconfigured computed resolver")
	}
}

func TestStaticBridgeLooksUpByDottedName(t *testing.T) {
	table := map[string]Value{
		"device.model":   NewString("pixel"),
		"computed.score": NewInt(42),
	}
	b := NewStaticBridge(table)

	dv, err := b.DeviceProperty("model", nil)
	assertNoError(t, err)
	assertEqual(t, "pixel", dv.Str)

	cv, err := b.ComputedProperty("score", nil)
	assertNoError(t, err)
	assertEqual(t, int64(42), cv.Int)

	_, err = b.DeviceProperty("missing", nil)
	if err == nil {
		t.Fatal("expected a bridge error for an unregistered name")
	}
}
