package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wippyai/opcall/introspect"
)

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the available operations",
		Long: `List every operation the engine offers, with its required inputs and
outputs. Deprecated operations are callable but not listed.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listOperations(rootOpts, cmd)
		},
	}
}

type operationJSON struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Inputs      []string `json:"inputs"`
	Outputs     []string `json:"outputs"`
}

func listOperations(opts *RootOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	s, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer s.Close(ctx)

	names, err := s.rt.Operations()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if opts.Format == "json" {
		ops := make([]operationJSON, 0, len(names))
		for _, name := range names {
			d, err := s.rt.Describe(name)
			if err != nil {
				return err
			}
			ops = append(ops, operationJSON{
				Name:        d.Name,
				Description: d.Description,
				Inputs:      d.RequiredInput,
				Outputs:     d.RequiredOutput,
			})
		}
		return writeJSON(out, ops)
	}

	p := newPainter(out)
	for _, name := range names {
		d, err := s.rt.Describe(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s  %s\n", signature(d, p), d.Description)
	}
	return nil
}

// signature renders name(in: type, ...) -> out.
func signature(d *introspect.Descriptor, p painter) string {
	params := make([]string, 0, len(d.RequiredInput))
	for _, n := range d.RequiredInput {
		params = append(params, n+": "+p.paint(typeStyle, d.Details[n].TypeName()))
	}
	sig := p.paint(funcStyle, d.Name) + "(" + strings.Join(params, ", ") + ")"
	if len(d.RequiredOutput) > 0 {
		sig += " -> " + strings.Join(d.RequiredOutput, ", ")
	}
	return sig
}
