package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/runtime"
	"github.com/wippyai/opcall/unit"
)

// argParser turns command line strings into call arguments, guided by the
// declared engine type. "@path" reads a file: images are decoded, blobs are
// passed as raw bytes.
type argParser struct {
	ctx    context.Context
	rt     *runtime.Runtime
	opened []*unit.Unit
}

func newArgParser(ctx context.Context, rt *runtime.Runtime) *argParser {
	return &argParser{ctx: ctx, rt: rt}
}

// Close releases every image the parser loaded.
func (p *argParser) Close() {
	for _, u := range p.opened {
		_ = u.Close()
	}
	p.opened = nil
}

func (p *argParser) parse(raw string, t opcall.Type, enum *opcall.EnumType) (any, error) {
	switch t {
	case opcall.TypeImage:
		if path, ok := filePath(raw); ok {
			return p.load(path)
		}
		return parseConstant(raw)

	case opcall.TypeArrayImage:
		parts := splitList(raw)
		items := make([]any, 0, len(parts))
		for _, part := range parts {
			if path, ok := filePath(part); ok {
				u, err := p.load(path)
				if err != nil {
					return nil, err
				}
				items = append(items, u)
				continue
			}
			f, err := strconv.ParseFloat(part, 64)
			if err != nil {
				return nil, fmt.Errorf("%q is neither @file nor a number", part)
			}
			items = append(items, f)
		}
		return items, nil

	case opcall.TypeInt:
		return strconv.Atoi(strings.TrimSpace(raw))

	case opcall.TypeDouble:
		return strconv.ParseFloat(strings.TrimSpace(raw), 64)

	case opcall.TypeBool:
		return strconv.ParseBool(strings.TrimSpace(raw))

	case opcall.TypeArrayDouble:
		return parseDoubles(raw)

	case opcall.TypeArrayInt:
		parts := splitList(raw)
		out := make([]int, len(parts))
		for i, part := range parts {
			n, err := strconv.Atoi(part)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil

	case opcall.TypeBlob:
		if path, ok := filePath(raw); ok {
			return os.ReadFile(path)
		}
		return []byte(raw), nil

	case opcall.TypeEnum:
		if enum != nil {
			if _, found := enum.Value(raw); found {
				return raw, nil
			}
		}
		if n, err := strconv.Atoi(raw); err == nil {
			return n, nil
		}
		return raw, nil

	case opcall.TypeString, opcall.TypeFlags:
		return raw, nil
	}

	return guess(raw), nil
}

func (p *argParser) load(path string) (*unit.Unit, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	u, err := p.rt.Load(p.ctx, buf)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	p.opened = append(p.opened, u)
	return u, nil
}

// filePath reports whether raw names a file with the @ prefix.
func filePath(raw string) (string, bool) {
	if len(raw) < 2 || raw[0] != '@' {
		return "", false
	}
	return raw[1:], true
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := parts[:0]
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseDoubles(raw string) ([]float64, error) {
	parts := splitList(raw)
	out := make([]float64, len(parts))
	for i, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}

// parseConstant reads a number or a comma separated list of numbers; the
// invoker turns either into an image.
func parseConstant(raw string) (any, error) {
	if !strings.Contains(raw, ",") {
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("%q is neither @file nor a number", raw)
		}
		return f, nil
	}
	return parseDoubles(raw)
}

// guess parses arguments whose type is unknown, such as names the operation
// does not declare. The invoker reports those.
func guess(raw string) any {
	if n, err := strconv.Atoi(raw); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

// saveFormat maps an output file extension to a saver name.
func saveFormat(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "png", nil
	case ".tif", ".tiff":
		return "tiff", nil
	}
	return "", fmt.Errorf("cannot save %s: use a .png, .tif or .tiff name", path)
}
