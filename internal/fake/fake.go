// Package fake provides a scriptable engine for exercising the bridge
// without the reference engine's operation semantics.
package fake

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wippyai/opcall"
)

// Image is an in-memory image. Data is shared, never copied, unless the
// engine is asked for a memory copy.
type Image struct {
	Data    []float64
	W, H, B int
}

func (i *Image) Width() int  { return i.W }
func (i *Image) Height() int { return i.H }
func (i *Image) Bands() int  { return i.B }

// Op defines one operation. Run receives every argument that was set, keyed
// by engine name, and returns the outputs to expose through Get.
type Op struct {
	Run         func(in map[string]any) (map[string]any, error)
	Name        string
	Description string
	Args        []opcall.ArgSpec
	Flags       opcall.OperationFlags
}

// Engine implements opcall.Engine over a table of Op definitions.
type Engine struct {
	ops       map[string]*Op
	news      map[string]int
	last      *Operation
	constants [][]float64
	copies    int
	mu        sync.Mutex
}

// New creates an engine serving ops.
func New(ops ...*Op) *Engine {
	e := &Engine{
		ops:  make(map[string]*Op, len(ops)),
		news: make(map[string]int),
	}
	for _, op := range ops {
		e.ops[op.Name] = op
	}
	return e
}

func (e *Engine) NewOperation(name string) (opcall.Operation, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	def, ok := e.ops[name]
	if !ok {
		return nil, fmt.Errorf("class %q not found", name)
	}
	e.news[name]++
	op := &Operation{def: def, inputs: make(map[string]any)}
	e.last = op
	return op, nil
}

func (e *Engine) Operations() []string {
	e.mu.Lock()
	defer e.mu.Unlock()

	names := make([]string, 0, len(e.ops))
	for name := range e.ops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (e *Engine) Build(_ context.Context, op opcall.Operation) (opcall.Operation, error) {
	o, ok := op.(*Operation)
	if !ok {
		return nil, fmt.Errorf("foreign operation %T", op)
	}
	for _, a := range o.def.Args {
		if a.Flags.Has(opcall.ArgRequired|opcall.ArgInput) && !a.Flags.Has(opcall.ArgDeprecated) {
			if _, set := o.inputs[a.Name]; !set {
				return nil, fmt.Errorf("%s: parameter %s not set", o.def.Name, a.Name)
			}
		}
	}
	var out map[string]any
	if o.def.Run != nil {
		var err error
		if out, err = o.def.Run(o.inputs); err != nil {
			return nil, err
		}
	}
	o.outputs = out
	o.built = true
	return o, nil
}

// ImageFromConstant makes an image shaped like match with one band per
// constant.
func (e *Engine) ImageFromConstant(match opcall.Image, c []float64) (opcall.Image, error) {
	e.mu.Lock()
	e.constants = append(e.constants, append([]float64(nil), c...))
	e.mu.Unlock()

	w, h := match.Width(), match.Height()
	data := make([]float64, 0, w*h*len(c))
	for i := 0; i < w*h; i++ {
		data = append(data, c...)
	}
	return &Image{Data: data, W: w, H: h, B: len(c)}, nil
}

func (e *Engine) ImageFromMemory(data []float64, w, h, bands int) (opcall.Image, error) {
	if len(data) != w*h*bands {
		return nil, fmt.Errorf("buffer holds %d values, need %d", len(data), w*h*bands)
	}
	return &Image{Data: data, W: w, H: h, B: bands}, nil
}

func (e *Engine) CopyMemory(img opcall.Image) (opcall.Image, error) {
	src, ok := img.(*Image)
	if !ok {
		return nil, fmt.Errorf("foreign image %T", img)
	}
	e.mu.Lock()
	e.copies++
	e.mu.Unlock()
	return &Image{Data: append([]float64(nil), src.Data...), W: src.W, H: src.H, B: src.B}, nil
}

// NewCount reports how many instances of name were created.
func (e *Engine) NewCount(name string) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.news[name]
}

// Last returns the most recently created operation.
func (e *Engine) Last() *Operation {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Copies reports how many memory copies were made.
func (e *Engine) Copies() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.copies
}

// Constants returns the constant vectors promoted so far.
func (e *Engine) Constants() [][]float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([][]float64(nil), e.constants...)
}

// Operation records what the bridge does to it.
type Operation struct {
	def      *Op
	inputs   map[string]any
	outputs  map[string]any
	options  string
	setOrder []string
	built    bool
	unref    bool
}

func (o *Operation) Name() string                    { return o.def.Name }
func (o *Operation) Description() string             { return o.def.Description }
func (o *Operation) Flags() opcall.OperationFlags    { return o.def.Flags }
func (o *Operation) Args() ([]opcall.ArgSpec, error) { return o.def.Args, nil }

func (o *Operation) Set(name string, v any) error {
	if o.built {
		return fmt.Errorf("%s: already built", o.def.Name)
	}
	for _, a := range o.def.Args {
		if a.Name == name {
			if !a.Flags.Has(opcall.ArgInput) {
				return fmt.Errorf("%s: %s is not an input", o.def.Name, name)
			}
			o.inputs[name] = v
			o.setOrder = append(o.setOrder, name)
			return nil
		}
	}
	return fmt.Errorf("%s: no property named %s", o.def.Name, name)
}

func (o *Operation) Get(name string) (any, error) {
	if v, ok := o.outputs[name]; ok {
		return v, nil
	}
	for _, a := range o.def.Args {
		if a.Name == name && a.Flags.Has(opcall.ArgModify) {
			return o.inputs[name], nil
		}
	}
	return nil, fmt.Errorf("%s: no output named %s", o.def.Name, name)
}

// SetOptions accepts any string without "bad" in it.
func (o *Operation) SetOptions(s string) error {
	if len(o.setOrder) > 0 {
		return fmt.Errorf("%s: options after arguments", o.def.Name)
	}
	if strings.Contains(s, "bad") {
		return fmt.Errorf("%s: unable to parse %q", o.def.Name, s)
	}
	o.options = s
	return nil
}

func (o *Operation) UnrefOutputs() { o.unref = true }

func (o *Operation) Options() string        { return o.options }
func (o *Operation) Inputs() map[string]any { return o.inputs }
func (o *Operation) SetOrder() []string     { return o.setOrder }
func (o *Operation) Built() bool            { return o.built }
func (o *Operation) Unreffed() bool         { return o.unref }
