package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/opcall"
	"github.com/wippyai/opcall/introspect"
	"github.com/wippyai/opcall/invoke"
	"github.com/wippyai/opcall/runtime"
)

// CallOptions holds flags for the call command.
type CallOptions struct {
	*RootOptions
	Options string
	Output  string
	Set     []string
	Want    []string
}

// NewCallCommand creates the call command.
func NewCallCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CallOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "call <operation> [args...]",
		Short: "Call an operation",
		Long: `Call an operation with its required inputs in order.

Arguments are parsed by the declared argument type. Images are read from
files with @path, or made from a constant ("128" or "255,0,0"). Arrays are
comma separated. Optional inputs are given with --set name=value and
optional outputs are requested with --want name.

The first required image or blob output is written to -o when given.

Example:
  opcall call invert @in.png -o out.png
  opcall call max @in.png --want x --want y
  opcall call linear @in.png 2 10 --set uchar=true -o out.png
  opcall call black 64 64 --options "[bands=3]" -o black.png`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return callOperation(opts, args[0], args[1:], cmd)
		},
	}

	cmd.Flags().StringArrayVar(&opts.Set, "set", nil, "optional input name=value (repeatable)")
	cmd.Flags().StringArrayVar(&opts.Want, "want", nil, "optional output to return (repeatable)")
	cmd.Flags().StringVar(&opts.Options, "options", "", `option string, e.g. "[size=2]"`)
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "write the image or blob output to this file")

	return cmd
}

type callJSON struct {
	Outputs    map[string]any `json:"outputs"`
	Optional   map[string]any `json:"optional,omitempty"`
	Operation  string         `json:"operation"`
	Written    string         `json:"written,omitempty"`
	Shape      string         `json:"shape"`
	Advisories []string       `json:"advisories,omitempty"`
}

func callOperation(opts *CallOptions, name string, raw []string, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	d, err := s.rt.Describe(name)
	if err != nil {
		return err
	}

	parser := newArgParser(ctx, s.rt)
	defer parser.Close()

	args, named, err := callArgs(parser, d, raw, opts.Set, opts.Want)
	if err != nil {
		return err
	}

	res, err := s.rt.CallOpts(ctx, name, args, named, opts.Options)
	if err != nil {
		return err
	}
	defer res.Close()

	var written string
	if opts.Output != "" {
		if written, err = writeOutput(cmd, s.rt, d, res, opts.Output); err != nil {
			return err
		}
	}

	return printResult(cmd.OutOrStdout(), cmd.ErrOrStderr(), opts.Format, d, res, written)
}

// callArgs parses positional arguments against the required inputs and
// --set/--want against the optional ones.
func callArgs(p *argParser, d *introspect.Descriptor, raw, set, want []string) ([]any, map[string]any, error) {
	args := make([]any, len(raw))
	for i, r := range raw {
		var det introspect.Details
		if i < len(d.RequiredInput) {
			det = d.Details[d.RequiredInput[i]]
		}
		v, err := p.parse(r, det.Type, det.Enum)
		if err != nil {
			return nil, nil, fmt.Errorf("argument %d (%s): %w", i+1, det.Name, err)
		}
		args[i] = v
	}

	named := make(map[string]any, len(set)+len(want))
	for _, kv := range set {
		k, r, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, nil, fmt.Errorf("--set %q: want name=value", kv)
		}
		k = introspect.NormalizeName(strings.TrimSpace(k))
		det := d.Details[k]
		v, err := p.parse(r, det.Type, det.Enum)
		if err != nil {
			return nil, nil, fmt.Errorf("--set %s: %w", k, err)
		}
		named[k] = v
	}
	for _, w := range want {
		named[introspect.NormalizeName(w)] = true
	}
	return args, named, nil
}

// writeOutput saves the first required image or blob output to path.
func writeOutput(cmd *cobra.Command, rt *runtime.Runtime, d *introspect.Descriptor, res *invoke.Result, path string) (string, error) {
	for i, n := range d.RequiredOutput {
		if i >= len(res.Outputs) {
			break
		}
		v := res.Outputs[i]
		switch d.Details[n].Type {
		case opcall.TypeImage:
			u, ok := v.AsUnit()
			if !ok {
				continue
			}
			format, err := saveFormat(path)
			if err != nil {
				return "", err
			}
			buf, err := rt.Save(cmd.Context(), u, format, "")
			if err != nil {
				return "", err
			}
			return n, os.WriteFile(path, buf, 0o644)

		case opcall.TypeBlob:
			buf, ok := v.AsBlob()
			if !ok {
				continue
			}
			return n, os.WriteFile(path, buf, 0o644)
		}
	}
	return "", fmt.Errorf("%s has no image or blob output to write", d.Name)
}

func printResult(out, errOut io.Writer, format string, d *introspect.Descriptor, res *invoke.Result, written string) error {
	optional := res.OptionalNames()

	if format == "json" {
		data := callJSON{
			Operation: d.Name,
			Shape:     res.Shape().String(),
			Outputs:   make(map[string]any, len(res.Outputs)),
			Written:   written,
		}
		for i, v := range res.Outputs {
			data.Outputs[d.RequiredOutput[i]] = jsonValue(v)
		}
		if len(optional) > 0 {
			data.Optional = make(map[string]any, len(optional))
			for _, n := range optional {
				data.Optional[n] = jsonValue(res.Optional[n])
			}
		}
		for _, a := range res.Advisories {
			data.Advisories = append(data.Advisories, a.Error())
		}
		return writeJSON(out, data)
	}

	p := newPainter(out)
	for _, a := range res.Advisories {
		fmt.Fprintln(errOut, newPainter(errOut).paint(errorStyle, "warning: "+a.Error()))
	}
	for i, v := range res.Outputs {
		n := d.RequiredOutput[i]
		if n == written {
			fmt.Fprintf(out, "%s: %s (written)\n", n, p.paint(resultStyle, v.String()))
			continue
		}
		fmt.Fprintf(out, "%s: %s\n", n, p.paint(resultStyle, v.String()))
	}
	for _, n := range optional {
		fmt.Fprintf(out, "%s: %s\n", n, p.paint(resultStyle, res.Optional[n].String()))
	}
	return nil
}
