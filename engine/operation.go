package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/wippyai/opcall"
)

const (
	reqIn  = opcall.ArgRequired | opcall.ArgConstruct | opcall.ArgInput
	reqOut = opcall.ArgRequired | opcall.ArgConstruct | opcall.ArgOutput
	optIn  = opcall.ArgConstruct | opcall.ArgInput
	optOut = opcall.ArgConstruct | opcall.ArgOutput
)

// opDef is the class of an operation: its schema and implementation.
type opDef struct {
	run         func(ctx context.Context, e *Engine, a *args) error
	defaults    map[string]any
	name        string
	description string
	args        []opcall.ArgSpec
	flags       opcall.OperationFlags
	// file marks loaders and savers, which count against CacheMaxFiles.
	file bool
}

func (d *opDef) spec(name string) (opcall.ArgSpec, bool) {
	for _, a := range d.args {
		if sameArg(a.Name, name) {
			return a, true
		}
	}
	return opcall.ArgSpec{}, false
}

func input(name, blurb string, t opcall.Type) opcall.ArgSpec {
	return opcall.ArgSpec{Name: name, Blurb: blurb, Type: t, Flags: reqIn}
}

func output(name, blurb string, t opcall.Type) opcall.ArgSpec {
	return opcall.ArgSpec{Name: name, Blurb: blurb, Type: t, Flags: reqOut}
}

func optional(name, blurb string, t opcall.Type) opcall.ArgSpec {
	return opcall.ArgSpec{Name: name, Blurb: blurb, Type: t, Flags: optIn}
}

func optionalOutput(name, blurb string, t opcall.Type) opcall.ArgSpec {
	return opcall.ArgSpec{Name: name, Blurb: blurb, Type: t, Flags: optOut}
}

func enumArg(a opcall.ArgSpec, e *opcall.EnumType) opcall.ArgSpec {
	a.Enum = e
	return a
}

// Operation is one instance of an operation class. It is single use: set
// its inputs, build it, read its outputs.
type Operation struct {
	def     *opDef
	inputs  map[string]any
	outputs map[string]any
	built   bool
}

var _ opcall.Operation = (*Operation)(nil)

func newOperation(def *opDef) *Operation {
	return &Operation{def: def, inputs: make(map[string]any)}
}

func (o *Operation) Name() string                 { return o.def.name }
func (o *Operation) Description() string          { return o.def.description }
func (o *Operation) Flags() opcall.OperationFlags { return o.def.flags }

// Args returns the argument schema in declaration order.
func (o *Operation) Args() ([]opcall.ArgSpec, error) {
	return append([]opcall.ArgSpec(nil), o.def.args...), nil
}

// Set assigns an input. v must be the native representation of the
// argument's type.
func (o *Operation) Set(name string, v any) error {
	if o.built {
		return fmt.Errorf("%s: cannot set %s after build", o.def.name, name)
	}
	spec, ok := o.def.spec(name)
	if !ok {
		return fmt.Errorf("%s: no property named %q", o.def.name, name)
	}
	if !spec.Flags.Has(opcall.ArgInput) {
		return fmt.Errorf("%s: %s is not an input", o.def.name, spec.Name)
	}
	if err := checkNative(spec, v); err != nil {
		return fmt.Errorf("%s: %w", o.def.name, err)
	}
	o.inputs[spec.Name] = v
	return nil
}

// Get reads an output, or a modified input, of a built operation.
func (o *Operation) Get(name string) (any, error) {
	if !o.built {
		return nil, fmt.Errorf("%s: not built", o.def.name)
	}
	spec, ok := o.def.spec(name)
	if !ok {
		return nil, fmt.Errorf("%s: no property named %q", o.def.name, name)
	}
	if v, ok := o.outputs[spec.Name]; ok {
		return v, nil
	}
	if spec.Flags.Has(opcall.ArgModify) {
		return o.inputs[spec.Name], nil
	}
	return nil, fmt.Errorf("%s: output %s not available", o.def.name, spec.Name)
}

// SetOptions applies an option string such as "[fill,left=2]".
func (o *Operation) SetOptions(s string) error {
	opts, err := parseOptions(s)
	if err != nil {
		return fmt.Errorf("%s: %w", o.def.name, err)
	}
	for _, opt := range opts {
		spec, ok := o.def.spec(opt.name)
		if !ok {
			return fmt.Errorf("%s: no property named %q", o.def.name, opt.name)
		}
		v, err := optionValue(spec, opt)
		if err != nil {
			return fmt.Errorf("%s: %w", o.def.name, err)
		}
		if err := o.Set(spec.Name, v); err != nil {
			return err
		}
	}
	return nil
}

// UnrefOutputs drops this instance's hold on its outputs.
func (o *Operation) UnrefOutputs() {
	o.outputs = nil
}

// ready checks required inputs and fills in defaults for the rest.
func (o *Operation) ready() error {
	for _, a := range o.def.args {
		if !a.Flags.Has(opcall.ArgInput) {
			continue
		}
		if _, set := o.inputs[a.Name]; set {
			continue
		}
		if a.Flags.Has(opcall.ArgRequired) {
			return fmt.Errorf("%s: parameter %s not set", o.def.name, a.Name)
		}
		if v, ok := o.def.defaults[a.Name]; ok {
			o.inputs[a.Name] = v
		}
	}
	return nil
}

func (o *Operation) finish(outputs map[string]any) *Operation {
	o.outputs = make(map[string]any, len(outputs))
	for k, v := range outputs {
		o.outputs[k] = v
	}
	o.built = true
	return o
}

// signature identifies an operation by class and inputs. Images compare by
// identity.
func (o *Operation) signature() string {
	names := make([]string, 0, len(o.inputs))
	for name := range o.inputs {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(o.def.name)
	for _, name := range names {
		b.WriteByte(' ')
		b.WriteString(name)
		b.WriteByte('=')
		switch v := o.inputs[name].(type) {
		case opcall.Image:
			fmt.Fprintf(&b, "%p", v)
		case []opcall.Image:
			for _, im := range v {
				fmt.Fprintf(&b, "%p;", im)
			}
		case []byte:
			h := fnv.New64a()
			_, _ = h.Write(v)
			fmt.Fprintf(&b, "blob:%d:%x", len(v), h.Sum64())
		default:
			fmt.Fprintf(&b, "%v", v)
		}
	}
	return b.String()
}

// checkNative verifies v is the native representation of spec's type.
func checkNative(spec opcall.ArgSpec, v any) error {
	ok := false
	switch spec.Type {
	case opcall.TypeInt, opcall.TypeFlags:
		_, ok = v.(int)
	case opcall.TypeEnum:
		var tag int
		if tag, ok = v.(int); ok && spec.Enum != nil {
			if _, member := spec.Enum.Nick(tag); !member {
				return fmt.Errorf("%d is not a valid %s", tag, spec.Enum.Name)
			}
		}
	case opcall.TypeDouble:
		_, ok = v.(float64)
	case opcall.TypeBool:
		_, ok = v.(bool)
	case opcall.TypeString:
		_, ok = v.(string)
	case opcall.TypeImage:
		_, ok = v.(*Image)
	case opcall.TypeArrayDouble:
		_, ok = v.([]float64)
	case opcall.TypeArrayInt:
		_, ok = v.([]int)
	case opcall.TypeArrayImage:
		var imgs []opcall.Image
		if imgs, ok = v.([]opcall.Image); ok {
			for i, im := range imgs {
				if _, isImage := im.(*Image); !isImage {
					return fmt.Errorf("%s element %d is a %T, not an image of this engine", spec.Name, i, im)
				}
			}
		}
	case opcall.TypeBlob:
		_, ok = v.([]byte)
	}
	if !ok {
		return fmt.Errorf("%s wants %s, got %T", spec.Name, spec.Type, v)
	}
	return nil
}

// args gives an implementation typed access to its inputs and a place to
// put its outputs.
type args struct {
	in  map[string]any
	out map[string]any
	op  string
}

func (a *args) has(name string) bool {
	_, ok := a.in[name]
	return ok
}

func (a *args) image(name string) *Image      { return a.in[name].(*Image) }
func (a *args) int(name string) int           { return a.in[name].(int) }
func (a *args) float(name string) float64     { return a.in[name].(float64) }
func (a *args) doubles(name string) []float64 { return a.in[name].([]float64) }
func (a *args) blob(name string) []byte       { return a.in[name].([]byte) }
func (a *args) set(name string, v any)        { a.out[name] = v }

// bool reads an optional flag; unset is false.
func (a *args) bool(name string) bool {
	v, _ := a.in[name].(bool)
	return v
}

func (a *args) errorf(format string, x ...any) error {
	return fmt.Errorf("%s: %s", a.op, fmt.Sprintf(format, x...))
}

func (a *args) images(name string) []*Image {
	raw := a.in[name].([]opcall.Image)
	out := make([]*Image, len(raw))
	for i, im := range raw {
		out[i] = im.(*Image)
	}
	return out
}
