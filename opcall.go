package opcall

import "context"

// ArgFlags describes how an operation argument is used.
type ArgFlags uint32

const (
	ArgRequired   ArgFlags = 1
	ArgConstruct  ArgFlags = 2
	ArgSetOnce    ArgFlags = 4
	ArgSetAlways  ArgFlags = 8
	ArgInput      ArgFlags = 16
	ArgOutput     ArgFlags = 32
	ArgDeprecated ArgFlags = 64
	ArgModify     ArgFlags = 128
)

// Has reports whether all bits in f are set.
func (a ArgFlags) Has(f ArgFlags) bool {
	return a&f == f
}

// OperationFlags describes an operation as a whole.
type OperationFlags uint32

const (
	OpSequential           OperationFlags = 1
	OpSequentialUnbuffered OperationFlags = 2
	OpNoCache              OperationFlags = 4
	OpDeprecated           OperationFlags = 8
)

// Has reports whether all bits in f are set.
func (o OperationFlags) Has(f OperationFlags) bool {
	return o&f == f
}

// Type is the declared engine type of an argument.
type Type uint8

const (
	TypeInvalid Type = iota
	TypeInt
	TypeDouble
	TypeBool
	TypeString
	TypeEnum
	TypeFlags
	TypeImage
	TypeArrayDouble
	TypeArrayInt
	TypeArrayImage
	TypeBlob
)

var typeNames = [...]string{
	TypeInvalid:     "invalid",
	TypeInt:         "int",
	TypeDouble:      "float64",
	TypeBool:        "bool",
	TypeString:      "string",
	TypeEnum:        "enum",
	TypeFlags:       "flags",
	TypeImage:       "Image",
	TypeArrayDouble: "[]float64",
	TypeArrayInt:    "[]int",
	TypeArrayImage:  "[]Image",
	TypeBlob:        "[]byte",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return "invalid"
}

// EnumType names the members of an enum or flags type.
// For flags, Values holds bit masks.
type EnumType struct {
	Name   string
	Nicks  []string
	Values []int
}

// Value returns the tag for nick.
func (e *EnumType) Value(nick string) (int, bool) {
	for i, n := range e.Nicks {
		if n == nick {
			return e.Values[i], true
		}
	}
	return 0, false
}

// Nick returns the nick for tag.
func (e *EnumType) Nick(tag int) (string, bool) {
	for i, v := range e.Values {
		if v == tag {
			return e.Nicks[i], true
		}
	}
	return "", false
}

// ArgSpec is one construct argument as enumerated by the engine.
type ArgSpec struct {
	Enum  *EnumType
	Name  string
	Blurb string
	Flags ArgFlags
	Type  Type
}

// Image is an engine-owned processing unit. The bridge treats it as opaque
// apart from its geometry.
type Image interface {
	Width() int
	Height() int
	Bands() int
}

// Operation is a single-use engine operation instance.
//
// Native values passed to Set and returned by Get are one of:
// int (int, enum tag, flags mask), float64, bool, string, Image,
// []float64, []int, []Image or []byte.
type Operation interface {
	Name() string
	Description() string
	Flags() OperationFlags

	// Args enumerates construct arguments in declaration order.
	Args() ([]ArgSpec, error)

	Set(name string, value any) error
	Get(name string) (any, error)

	// SetOptions applies an engine option string such as "[fill,left=2]".
	SetOptions(options string) error

	// UnrefOutputs drops the references the operation holds on its outputs.
	UnrefOutputs()
}

// Engine is the native processing engine.
type Engine interface {
	// NewOperation looks up an operation by name.
	NewOperation(name string) (Operation, error)

	// Operations lists every registered operation name.
	Operations() []string

	// Build runs a fully configured operation. The returned operation may be
	// a cached equivalent of op.
	Build(ctx context.Context, op Operation) (Operation, error)

	// ImageFromConstant makes an image shaped like match with one band per
	// element of c.
	ImageFromConstant(match Image, c []float64) (Image, error)

	// ImageFromMemory wraps data without copying.
	ImageFromMemory(data []float64, width, height, bands int) (Image, error)

	// CopyMemory returns a contiguous copy of img that shares no memory with it.
	CopyMemory(img Image) (Image, error)
}
