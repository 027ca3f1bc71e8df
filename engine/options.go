package engine

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wippyai/opcall"
)

type option struct {
	name  string
	value string
	// bare is a name without "=value", meaning true for booleans.
	bare bool
}

// parseOptions splits an option string of the form "[name=value,flag]".
// The brackets are optional; an empty string gives no options.
func parseOptions(s string) ([]option, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "[") {
		if !strings.HasSuffix(s, "]") {
			return nil, fmt.Errorf("unterminated option string %q", s)
		}
		s = s[1 : len(s)-1]
	}
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	var opts []option
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("empty option in %q", s)
		}
		name, value, hasValue := strings.Cut(part, "=")
		name = strings.TrimSpace(name)
		if name == "" {
			return nil, fmt.Errorf("option without a name in %q", s)
		}
		opts = append(opts, option{
			name:  name,
			value: strings.TrimSpace(value),
			bare:  !hasValue,
		})
	}
	return opts, nil
}

// optionValue converts an option's text to the native value of spec's type.
func optionValue(spec opcall.ArgSpec, opt option) (any, error) {
	if opt.bare {
		if spec.Type != opcall.TypeBool {
			return nil, fmt.Errorf("option %s needs a value", spec.Name)
		}
		return true, nil
	}

	switch spec.Type {
	case opcall.TypeBool:
		switch strings.ToLower(opt.value) {
		case "true", "yes", "on", "1":
			return true, nil
		case "false", "no", "off", "0":
			return false, nil
		}
	case opcall.TypeInt:
		if n, err := strconv.Atoi(opt.value); err == nil {
			return n, nil
		}
	case opcall.TypeDouble:
		if f, err := strconv.ParseFloat(opt.value, 64); err == nil {
			return f, nil
		}
	case opcall.TypeString:
		return opt.value, nil
	case opcall.TypeEnum:
		if spec.Enum != nil {
			if tag, ok := spec.Enum.Value(opt.value); ok {
				return tag, nil
			}
		}
		if n, err := strconv.Atoi(opt.value); err == nil {
			return n, nil
		}
	case opcall.TypeFlags:
		return parseFlags(spec, opt.value)
	case opcall.TypeArrayDouble:
		fields := strings.Fields(opt.value)
		out := make([]float64, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.ParseFloat(f, 64)
			if err != nil {
				return nil, fmt.Errorf("option %s: bad number %q", spec.Name, f)
			}
			out = append(out, v)
		}
		return out, nil
	case opcall.TypeArrayInt:
		fields := strings.Fields(opt.value)
		out := make([]int, 0, len(fields))
		for _, f := range fields {
			v, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("option %s: bad integer %q", spec.Name, f)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("option %s of type %s cannot be set from a string", spec.Name, spec.Type)
	}
	return nil, fmt.Errorf("option %s: bad %s value %q", spec.Name, spec.Type, opt.value)
}

// parseFlags reads a flags value: a number, or nicks joined with ':' or '|'.
func parseFlags(spec opcall.ArgSpec, s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	mask := 0
	for _, nick := range strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == '|' }) {
		if spec.Enum == nil {
			return 0, fmt.Errorf("option %s: unknown flag %q", spec.Name, nick)
		}
		bit, ok := spec.Enum.Value(strings.TrimSpace(nick))
		if !ok {
			return 0, fmt.Errorf("option %s: unknown flag %q", spec.Name, nick)
		}
		mask |= bit
	}
	return mask, nil
}
