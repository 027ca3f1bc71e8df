package engine

import (
	"context"
	"slices"
	"strings"
	"testing"
)

// doubleWasm exports kernel(f64) -> f64 returning x+x.
var doubleWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00,
	// type section: (f64) -> f64
	0x01, 0x06, 0x01, 0x60, 0x01, 0x7c, 0x01, 0x7c,
	// function section
	0x03, 0x02, 0x01, 0x00,
	// export "kernel"
	0x07, 0x0a, 0x01, 0x06, 0x6b, 0x65, 0x72, 0x6e, 0x65, 0x6c, 0x00, 0x00,
	// code: local.get 0, local.get 0, f64.add
	0x0a, 0x09, 0x01, 0x07, 0x00, 0x20, 0x00, 0x20, 0x00, 0xa0, 0x0b,
}

func TestRegisterKernel(t *testing.T) {
	ctx := context.Background()
	e := New(Config{MemoryLimitPages: 16})
	defer e.Close(ctx)

	if err := e.RegisterKernel(ctx, "double", doubleWasm, "", ""); err != nil {
		t.Fatalf("RegisterKernel: %v", err)
	}
	if !slices.Contains(e.Operations(), "double") {
		t.Fatal("kernel not listed")
	}

	op, _ := e.NewOperation("double")
	if got := op.Description(); got != "apply wasm kernel kernel" {
		t.Errorf("description = %q", got)
	}

	in := newImage(t, 2, 1, 2, FormatUchar, 1, 2, 3, 200)
	out := get[*Image](t, run(t, e, "double", map[string]any{"in": in}), "out")
	if out.Format() != FormatDouble {
		t.Errorf("format = %s", out.Format())
	}
	if got := out.Samples(); !slices.Equal(got, []float64{2, 4, 6, 400}) {
		t.Errorf("samples = %v", got)
	}
}

func TestRegisterKernel_Errors(t *testing.T) {
	ctx := context.Background()
	e := New(Config{})
	defer e.Close(ctx)

	tests := []struct {
		name    string
		op      string
		export  string
		wasm    []byte
		wantErr string
	}{
		{"bad name", "Double", "", doubleWasm, "invalid operation name"},
		{"builtin", "invert", "", doubleWasm, "already registered"},
		{"missing export", "k1", "run", doubleWasm, "no exported function"},
		{"not wasm", "k2", "", []byte("nope"), "compile kernel"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := e.RegisterKernel(ctx, tt.op, tt.wasm, tt.export, "")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want %q", err, tt.wantErr)
			}
		})
	}

	if err := e.RegisterKernel(ctx, "twice", doubleWasm, "kernel", "x2"); err != nil {
		t.Fatal(err)
	}
	if err := e.RegisterKernel(ctx, "twice", doubleWasm, "kernel", "x2"); err == nil {
		t.Error("duplicate kernel name should fail")
	}
}
