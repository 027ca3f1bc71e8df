package introspect

import (
	"strings"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/errors"
)

// Argument is a construct argument in declaration order.
type Argument struct {
	Name  string
	Flags opcall.ArgFlags
}

// Details describes one argument. Name is normalized; NativeName is the
// engine's own spelling and is what gets passed to Set and Get.
type Details struct {
	Enum       *opcall.EnumType
	Name       string
	NativeName string
	Blurb      string
	Flags      opcall.ArgFlags
	Type       opcall.Type
}

// TypeName is the display name of the argument type. Enums and flags show
// their own type name.
func (d Details) TypeName() string {
	if d.Enum != nil && d.Enum.Name != "" {
		return d.Enum.Name
	}
	return d.Type.String()
}

// Descriptor is everything known about an operation's signature. It is
// immutable once published.
type Descriptor struct {
	Details        map[string]Details
	Name           string
	Description    string
	Arguments      []Argument
	RequiredInput  []string
	OptionalInput  []string
	RequiredOutput []string
	OptionalOutput []string
	Flags          opcall.OperationFlags
}

func (d *Descriptor) Deprecated() bool {
	return d.Flags.Has(opcall.OpDeprecated)
}

// IsOptionalInput reports whether name may be passed as an optional input.
func (d *Descriptor) IsOptionalInput(name string) bool {
	return contains(d.OptionalInput, name)
}

// IsOptionalOutput reports whether name may be requested as an optional
// output.
func (d *Descriptor) IsOptionalOutput(name string) bool {
	return contains(d.OptionalOutput, name)
}

// MemberImage returns the first required input of image type, or "".
func (d *Descriptor) MemberImage() string {
	for _, name := range d.RequiredInput {
		if d.Details[name].Type == opcall.TypeImage {
			return name
		}
	}
	return ""
}

// NormalizeName maps an engine argument name to its caller-facing form.
func NormalizeName(name string) string {
	return strings.ReplaceAll(name, "-", "_")
}

func contains(list []string, name string) bool {
	for _, n := range list {
		if n == name {
			return true
		}
	}
	return false
}

// build creates a transient operation, reads its schema and classifies the
// construct arguments. The operation is never built.
func build(eng opcall.Engine, name string) (*Descriptor, error) {
	op, err := eng.NewOperation(name)
	if err != nil {
		return nil, errors.UnknownOperation(name, err)
	}

	specs, err := op.Args()
	if err != nil {
		return nil, errors.New(errors.PhaseDescribe, errors.KindUnknownOperation).
			Operation(name).
			Detail("unable to get arguments from operation").
			Cause(err).
			Build()
	}

	d := &Descriptor{
		Name:        name,
		Description: op.Description(),
		Flags:       op.Flags(),
		Details:     make(map[string]Details, len(specs)),
	}

	for _, spec := range specs {
		if !spec.Flags.Has(opcall.ArgConstruct) {
			continue
		}
		argName := NormalizeName(spec.Name)
		d.Arguments = append(d.Arguments, Argument{Name: argName, Flags: spec.Flags})
		d.Details[argName] = Details{
			Name:       argName,
			NativeName: spec.Name,
			Flags:      spec.Flags,
			Blurb:      spec.Blurb,
			Type:       spec.Type,
			Enum:       spec.Enum,
		}
	}

	for _, a := range d.Arguments {
		input := a.Flags.Has(opcall.ArgInput)
		output := a.Flags.Has(opcall.ArgOutput)
		required := a.Flags.Has(opcall.ArgRequired)
		deprecated := a.Flags.Has(opcall.ArgDeprecated)

		if input && required && !deprecated {
			d.RequiredInput = append(d.RequiredInput, a.Name)
			// a modified input comes back as an output
			if a.Flags.Has(opcall.ArgModify) {
				d.RequiredOutput = append(d.RequiredOutput, a.Name)
			}
		}
		if output && required && !deprecated {
			d.RequiredOutput = append(d.RequiredOutput, a.Name)
		}

		// deprecated optionals stay usable, the invoker warns on use
		if input && !required {
			d.OptionalInput = append(d.OptionalInput, a.Name)
		}
		if output && !required {
			d.OptionalOutput = append(d.OptionalOutput, a.Name)
		}
	}

	return d, nil
}
